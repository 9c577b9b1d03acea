// Package api provides the HTTP handlers of the agent service.
package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/adapter/llm"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/config"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/knowledge"
	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/service"
)

const serviceName = "agent-service"

// Handler handles HTTP requests.
type Handler struct {
	service  *service.Service
	cfg      *config.Config
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service, cfg *config.Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service: svc,
		cfg:     cfg,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers the routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/agent/agents", h.ListAgents)
	e.POST("/agent/chat", h.Chat)
	e.GET("/agent/stream", h.Stream)
	e.POST("/agent/action", h.DecideAction)
	e.GET("/agent/actions", h.ListActions)
	e.GET("/agent/actions/:action_id", h.GetAction)
	e.GET("/agent/requests/:request_id/tools", h.ListToolExecutions)

	e.POST("/knowledge/upload", h.UploadFile)
	e.POST("/knowledge/scrape", h.ScrapeURL)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"agents":  len(h.service.ListAgents()),
	})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var upstream *llm.UpstreamError
	switch {
	case errors.Is(err, service.ErrInvalidRequest), knowledge.IsValidationError(err), llm.IsConfigError(err):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrActionNotFound):
		return http.StatusNotFound
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c echo.Context, err error) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
