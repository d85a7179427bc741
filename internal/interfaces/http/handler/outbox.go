package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/orderhub/backend/internal/application/event"
	"github.com/orderhub/backend/internal/domain/shared"
)

// OutboxHandler handles the operator surface over the outbox table
type OutboxHandler struct {
	BaseHandler
	service *event.Service
}

// NewOutboxHandler creates a new outbox handler
func NewOutboxHandler(service *event.Service) *OutboxHandler {
	return &OutboxHandler{service: service}
}

// OutboxListRequest represents outbox listing query parameters
type OutboxListRequest struct {
	Processed     *bool `form:"processed"`
	MinRetryCount *int  `form:"min_retry_count"`
	Page          int   `form:"page"`
	PageSize      int   `form:"page_size"`
}

// OutboxRecordResponse represents an outbox record in API responses
type OutboxRecordResponse struct {
	ID          string  `json:"id"`
	EventType   string  `json:"event_type"`
	Payload     string  `json:"payload"`
	Processed   bool    `json:"processed"`
	ProcessedAt *string `json:"processed_at,omitempty"`
	RetryCount  int     `json:"retry_count"`
	CreatedAt   string  `json:"created_at"`
}

// OutboxStatsResponse represents outbox statistics
type OutboxStatsResponse struct {
	Pending       int64   `json:"pending"`
	Processed     int64   `json:"processed"`
	Exhausted     int64   `json:"exhausted"`
	OldestPending *string `json:"oldest_pending,omitempty"`
}

// List handles GET /system/outbox
func (h *OutboxHandler) List(c *gin.Context) {
	var req OutboxListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	filter := shared.OutboxFilter{
		Processed:     req.Processed,
		MinRetryCount: req.MinRetryCount,
		Page:          req.Page,
		PageSize:      req.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	records, total, err := h.service.ListOutbox(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]OutboxRecordResponse, len(records))
	for i, r := range records {
		items[i] = toOutboxRecordResponse(r)
	}

	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

// Stats handles GET /system/outbox/stats
func (h *OutboxHandler) Stats(c *gin.Context) {
	stats, err := h.service.OutboxStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := OutboxStatsResponse{
		Pending:   stats.Pending,
		Processed: stats.Processed,
		Exhausted: stats.Exhausted,
	}
	if stats.OldestPending != nil {
		t := stats.OldestPending.Format(time.RFC3339)
		resp.OldestPending = &t
	}

	h.Success(c, resp)
}

// Retry handles POST /system/outbox/:id/retry
func (h *OutboxHandler) Retry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid record ID")
		return
	}

	if err := h.service.RetryOutboxRecord(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"id": id.String(), "status": "rearmed"})
}

// Process handles POST /system/outbox/:id/process
func (h *OutboxHandler) Process(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid record ID")
		return
	}

	if err := h.service.ProcessOutboxRecord(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"id": id.String(), "status": "processed"})
}

// Delete handles DELETE /system/outbox/:id
func (h *OutboxHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid record ID")
		return
	}

	if err := h.service.DeleteOutboxRecord(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

func toOutboxRecordResponse(r *shared.OutboxRecord) OutboxRecordResponse {
	resp := OutboxRecordResponse{
		ID:         r.ID.String(),
		EventType:  r.EventType,
		Payload:    string(r.Payload),
		Processed:  r.Processed,
		RetryCount: r.RetryCount,
		CreatedAt:  r.CreatedAt.Format(time.RFC3339),
	}
	if r.ProcessedAt != nil {
		t := r.ProcessedAt.Format(time.RFC3339)
		resp.ProcessedAt = &t
	}
	return resp
}
