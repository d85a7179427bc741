package shared

import (
	"context"
	"time"
)

// MessagePublisher forwards serialized events to the message broker.
// Publishing is best-effort: the call either succeeds or returns an error,
// there is no delivery receipt beyond that.
type MessagePublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte) error
}

// LockService is a time-bounded mutual-exclusion primitive backed by a shared
// key-value store. Lock state is advisory and never authoritative: losing it
// only risks duplicate publishing, never data loss, because the relational
// store retains record state until a publish is confirmed and persisted.
type LockService interface {
	// TryAcquire attempts a set-if-absent with TTL. Returns false when the
	// lock is already held by another owner.
	TryAcquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	// Release deletes the lock only if it is still owned by owner, so a lock
	// reassigned after TTL expiry is never deleted from under its new holder.
	Release(ctx context.Context, key, owner string) error
}

// AlertNotifier escalates processing failures on two independent channels.
// Both calls are fire-and-forget: implementations log delivery failures and
// never surface them to the caller, notification is not part of the delivery
// guarantee.
type AlertNotifier interface {
	// NotifyLow sends a low-friction notification (chat webhook class)
	NotifyLow(ctx context.Context, category, errMsg, correlationID string)
	// NotifyHigh sends a high-severity notification (email class)
	NotifyHigh(ctx context.Context, category, errMsg, correlationID string)
}
