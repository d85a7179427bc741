package locking

import (
	"context"
	"fmt"
	"time"

	"github.com/orderhub/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only when it still holds the owner's
// value. An unconditional DEL could remove a lock that already expired and
// was re-acquired by another instance.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisLockService implements shared.LockService on a single Redis instance.
// Locks are advisory and TTL-bounded: a crashed owner blocks others only
// until the TTL expires.
type RedisLockService struct {
	client    *redis.Client
	keyPrefix string
	release   *redis.Script
}

// NewRedisLockService creates a lock service and verifies connectivity
func NewRedisLockService(addr, password string, db int) (*RedisLockService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisLockServiceWithClient(client, "lock:"), nil
}

// NewRedisLockServiceWithClient creates a lock service with an existing client.
// Useful for testing or when sharing a client across components.
func NewRedisLockServiceWithClient(client *redis.Client, keyPrefix string) *RedisLockService {
	if keyPrefix == "" {
		keyPrefix = "lock:"
	}
	return &RedisLockService{
		client:    client,
		keyPrefix: keyPrefix,
		release:   redis.NewScript(releaseScript),
	}
}

// TryAcquire performs an atomic set-if-absent with TTL. Returns false when
// the key is already held by another owner.
func (s *RedisLockService) TryAcquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	return ok, nil
}

// Release deletes the lock only if owner still holds it (compare-and-delete)
func (s *RedisLockService) Release(ctx context.Context, key, owner string) error {
	if err := s.release.Run(ctx, s.client, []string{s.keyPrefix + key}, owner).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	return nil
}

// Ping checks Redis connectivity
func (s *RedisLockService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (s *RedisLockService) Close() error {
	return s.client.Close()
}

// Ensure RedisLockService implements LockService
var _ shared.LockService = (*RedisLockService)(nil)
