package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pandeygsundaram/gameforge/internal/protocol"
	"github.com/pandeygsundaram/gameforge/pkg/ratelimit"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	sendBufferSize = 256
)

// EventHandler 연결 수명주기와 수신 이벤트 처리
type EventHandler interface {
	OnConnect(connectionID string)
	OnEvent(connectionID string, event protocol.Inbound)
	OnReject(connectionID string, err error)
	OnDisconnect(connectionID string)
}

// Client WebSocket 클라이언트
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan protocol.Frame
	id      string
	handler EventHandler
	limiter *ratelimit.RateLimiter
	logger  *zap.Logger
}

// NewClient 클라이언트 생성 (연결 ID는 새로 발급)
func NewClient(hub *Hub, conn *websocket.Conn, handler EventHandler, limiter *ratelimit.RateLimiter) *Client {
	id := uuid.NewString()
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan protocol.Frame, sendBufferSize),
		id:      id,
		handler: handler,
		limiter: limiter,
		logger:  hub.logger.With(zap.String("connectionId", id)),
	}
}

// readPump 클라이언트 이벤트를 읽어 handler로 넘긴다.
// 종료 시 Hub 해제를 먼저 끝낸 뒤 OnDisconnect를 호출한다.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close()
		c.handler.OnDisconnect(c.id)
		if c.limiter != nil {
			c.limiter.Forget(c.id)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error", zap.Error(err))
			}
			break
		}

		c.dispatch(data)
	}
}

// dispatch 프레임 하나 처리
func (c *Client) dispatch(data []byte) {
	if c.limiter != nil && !c.limiter.Allow(c.id) {
		c.handler.OnReject(c.id, ratelimit.ErrRateLimited)
		return
	}

	event, err := protocol.Decode(data)
	if err != nil {
		c.logger.Debug("Rejected inbound frame", zap.Error(err))
		c.handler.OnReject(c.id, err)
		return
	}

	c.handler.OnEvent(c.id, event)
}

// writePump Hub로부터 메시지를 받아 클라이언트에게 전송
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub가 채널을 닫음
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(frame)
			if err != nil {
				c.logger.Error("Failed to marshal frame",
					zap.String("type", frame.Type),
					zap.Error(err))
				continue
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs WebSocket 연결 업그레이드 및 클라이언트 시작
func ServeWs(hub *Hub, handler EventHandler, limiter *ratelimit.RateLimiter, w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return hub.checkOrigin(r.Header.Get("Origin"))
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := NewClient(hub, conn, handler, limiter)
	hub.registerClient(client)
	handler.OnConnect(client.id)

	// 고루틴 시작
	go client.writePump()
	go client.readPump()
}
