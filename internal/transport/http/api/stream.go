package api

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
)

// Stream runs chat turns over a WebSocket. Each text message is a chat
// request; loop events are pushed as they happen and the turn ends with a
// response or error event.
// GET /agent/stream
func (h *Handler) Stream(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("failed to upgrade websocket", zap.Error(err))
		return err
	}
	defer ws.Close()
	ws.SetReadLimit(maxMessageSize)

	var mu sync.Mutex
	send := func(ev domain.Event) {
		mu.Lock()
		defer mu.Unlock()
		ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteJSON(ev); err != nil {
			h.logger.Debug("failed to write stream event", zap.Error(err))
		}
	}

	ctx := c.Request().Context()
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", zap.Error(err))
			}
			return nil
		}

		var req domain.ChatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			send(event(domain.EventError, map[string]string{"message": "invalid chat request"}))
			continue
		}

		// Chat reports its own failures through the observer.
		resp, err := h.service.Chat(ctx, req, send)
		if err != nil {
			continue
		}
		ev := event(domain.EventResponse, resp)
		ev.AgentID = resp.AgentID
		send(ev)
	}
}

func event(typ domain.EventType, payload any) domain.Event {
	ev := domain.Event{Type: typ, Ts: time.Now().UnixMilli()}
	if b, err := json.Marshal(payload); err == nil {
		ev.Payload = b
	}
	return ev
}
