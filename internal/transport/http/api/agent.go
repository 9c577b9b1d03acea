package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
)

// ListAgents lists the available agents.
// GET /agent/agents
func (h *Handler) ListAgents(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"agents": h.service.ListAgents(),
	})
}

// Chat runs one chat turn.
// POST /agent/chat
func (h *Handler) Chat(c echo.Context) error {
	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	resp, err := h.service.Chat(c.Request().Context(), req, nil)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// DecideAction approves or rejects a pending action.
// POST /agent/action
func (h *Handler) DecideAction(c echo.Context) error {
	var req domain.ActionDecisionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	resp, err := h.service.DecideAction(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// ListActions lists stored pending actions.
// GET /agent/actions?status=pending
func (h *Handler) ListActions(c echo.Context) error {
	actions, err := h.service.ListPendingActions(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"actions": actions})
}

// GetAction returns one stored pending action.
// GET /agent/actions/:action_id
func (h *Handler) GetAction(c echo.Context) error {
	action, err := h.service.GetPendingAction(c.Request().Context(), c.Param("action_id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, action)
}

// ListToolExecutions returns the tool audit trail of a chat request.
// GET /agent/requests/:request_id/tools
func (h *Handler) ListToolExecutions(c echo.Context) error {
	requestID := c.Param("request_id")
	execs, err := h.service.ListToolExecutions(c.Request().Context(), requestID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"request_id": requestID, "tools": execs})
}
