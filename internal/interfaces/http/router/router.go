package router

import (
	"github.com/gin-gonic/gin"
	"github.com/orderhub/backend/internal/infrastructure/logger"
	"github.com/orderhub/backend/internal/interfaces/http/handler"
	"github.com/orderhub/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Handlers groups the handler set mounted by Setup
type Handlers struct {
	Orders      *handler.OrderHandler
	Outbox      *handler.OutboxHandler
	DeadLetters *handler.DeadLetterHandler
	System      *handler.SystemHandler
}

// Setup builds the gin engine with middleware and all API routes
func Setup(h Handlers, log *zap.Logger) *gin.Engine {
	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
	)

	engine.GET("/healthz", h.System.Healthz)

	api := engine.Group("/api/v1")

	orders := api.Group("/orders")
	{
		orders.POST("", h.Orders.Create)
		orders.GET("", h.Orders.List)
		orders.GET("/:id", h.Orders.Get)
	}

	system := api.Group("/system")
	{
		outbox := system.Group("/outbox")
		{
			outbox.GET("", h.Outbox.List)
			outbox.GET("/stats", h.Outbox.Stats)
			outbox.POST("/:id/retry", h.Outbox.Retry)
			outbox.POST("/:id/process", h.Outbox.Process)
			outbox.DELETE("/:id", h.Outbox.Delete)
		}

		deadLetters := system.Group("/dead-letters")
		{
			deadLetters.GET("", h.DeadLetters.List)
			deadLetters.POST("/record", h.DeadLetters.Record)
		}
	}

	return engine
}
