package handler

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/orderhub/backend/internal/application/event"
	"github.com/orderhub/backend/internal/domain/shared"
	"github.com/orderhub/backend/internal/interfaces/http/dto"
)

// DeadLetterHandler handles the operator surface over the dead letter store
type DeadLetterHandler struct {
	BaseHandler
	service *event.Service
}

// NewDeadLetterHandler creates a new dead letter handler
func NewDeadLetterHandler(service *event.Service) *DeadLetterHandler {
	return &DeadLetterHandler{service: service}
}

// DeadLetterListRequest represents dead letter listing query parameters
type DeadLetterListRequest struct {
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// RecordDeadLetterRequest is the inbound contract for the broker-side DLQ
// consumer reporting an undeliverable message
type RecordDeadLetterRequest struct {
	MessageContent json.RawMessage `json:"message_content" binding:"required"`
	Error          string          `json:"error"`
	Source         string          `json:"source" binding:"required"`
}

// DeadLetterRecordResponse represents a dead letter record in API responses
type DeadLetterRecordResponse struct {
	ID             uint    `json:"id"`
	MessageContent string  `json:"message_content"`
	Error          string  `json:"error"`
	Source         string  `json:"source"`
	Status         string  `json:"status"`
	RetryCount     int     `json:"retry_count"`
	LastRetryAt    *string `json:"last_retry_at,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// List handles GET /system/dead-letters
func (h *DeadLetterHandler) List(c *gin.Context) {
	var req DeadLetterListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	var status *shared.DeadLetterStatus
	if req.Status != "" {
		s := shared.DeadLetterStatus(req.Status)
		switch s {
		case shared.DeadLetterStatusPending, shared.DeadLetterStatusProcessed, shared.DeadLetterStatusFailed:
			status = &s
		default:
			h.BadRequest(c, "Invalid status filter")
			return
		}
	}

	list := dto.ListRequest{Page: req.Page, PageSize: req.PageSize}
	list.Normalize()

	records, total, err := h.service.ListDeadLetters(c.Request.Context(), status, list.Page, list.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]DeadLetterRecordResponse, len(records))
	for i, r := range records {
		items[i] = toDeadLetterRecordResponse(r)
	}

	h.SuccessWithMeta(c, items, total, list.Page, list.PageSize)
}

// Record handles POST /system/dead-letters/record
func (h *DeadLetterHandler) Record(c *gin.Context) {
	var req RecordDeadLetterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.service.RecordDeadLetter(c.Request.Context(), req.MessageContent, req.Error, req.Source); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, gin.H{"status": "recorded"})
}

func toDeadLetterRecordResponse(r *shared.DeadLetterRecord) DeadLetterRecordResponse {
	resp := DeadLetterRecordResponse{
		ID:             r.ID,
		MessageContent: string(r.MessageContent),
		Error:          r.Error,
		Source:         r.Source,
		Status:         string(r.Status),
		RetryCount:     r.RetryCount,
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
	}
	if r.LastRetryAt != nil {
		t := r.LastRetryAt.Format(time.RFC3339)
		resp.LastRetryAt = &t
	}
	return resp
}
