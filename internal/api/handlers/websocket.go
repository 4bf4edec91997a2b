package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/pandeygsundaram/gameforge/internal/websocket"
	"github.com/pandeygsundaram/gameforge/pkg/ratelimit"
)

// WebSocketHandler WebSocket 연결 처리
type WebSocketHandler struct {
	hub     *websocket.Hub
	events  websocket.EventHandler
	limiter *ratelimit.RateLimiter
}

// NewWebSocketHandler WebSocketHandler 생성
func NewWebSocketHandler(hub *websocket.Hub, events websocket.EventHandler, limiter *ratelimit.RateLimiter) *WebSocketHandler {
	return &WebSocketHandler{
		hub:     hub,
		events:  events,
		limiter: limiter,
	}
}

// HandleWebSocket WebSocket 연결 엔드포인트 (지갑은 connect_wallet 이벤트로 식별)
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	websocket.ServeWs(h.hub, h.events, h.limiter, c.Writer, c.Request)
}
