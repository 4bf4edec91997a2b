package websocket

import (
	"sync"

	"go.uber.org/zap"

	"github.com/pandeygsundaram/gameforge/internal/protocol"
	"github.com/pandeygsundaram/gameforge/pkg/logger"
)

// Hub WebSocket 연결과 방 그룹 관리.
// 모든 송신은 broadcast 채널 하나를 거치므로 큐에 넣은 순서대로 전달된다.
type Hub struct {
	// 연결별 클라이언트 (connectionID -> *Client)
	clients map[string]*Client
	// 방 그룹 (roomID -> connectionID 집합)
	rooms map[string]map[string]struct{}
	mu    sync.RWMutex

	// 브로드캐스트 채널
	broadcast chan *Message

	allowedOrigins []string

	stopOnce sync.Once
	stop     chan struct{}
	logger   *zap.Logger
}

// Message 수신자 목록은 큐에 넣는 시점에 확정된다
type Message struct {
	Recipients []string
	Frame      protocol.Frame
}

// NewHub Hub 생성. allowedOrigins가 비어 있거나 "*"를 포함하면 모든 origin 허용.
func NewHub(allowedOrigins []string) *Hub {
	return &Hub{
		clients:        make(map[string]*Client),
		rooms:          make(map[string]map[string]struct{}),
		broadcast:      make(chan *Message, 256),
		allowedOrigins: allowedOrigins,
		stop:           make(chan struct{}),
		logger:         logger.Named("websocket"),
	}
}

// Run Hub 실행
func (h *Hub) Run() {
	for {
		select {
		case message := <-h.broadcast:
			h.deliver(message)

		case <-h.stop:
			h.closeAll()
			return
		}
	}
}

// Stop 실행 중지 및 모든 연결 종료
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// registerClient 클라이언트 등록
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.id] = client
	h.logger.Info("WebSocket client registered",
		zap.String("connectionId", client.id),
		zap.Int("totalClients", len(h.clients)))
}

// unregisterClient 클라이언트 해제. 여러 번 호출해도 무방하다.
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, exists := h.clients[client.id]; !exists || current != client {
		return
	}

	delete(h.clients, client.id)
	for roomID, members := range h.rooms {
		delete(members, client.id)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	close(client.send)

	h.logger.Info("WebSocket client unregistered",
		zap.String("connectionId", client.id),
		zap.Int("totalClients", len(h.clients)))
}

// deliver 수신자별 send 채널에 전달. 가득 찬 클라이언트는 연결 해제.
func (h *Hub) deliver(message *Message) {
	var slow []*Client

	h.mu.RLock()
	for _, id := range message.Recipients {
		client, exists := h.clients[id]
		if !exists {
			continue
		}
		select {
		case client.send <- message.Frame:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn("Client send channel full, unregistering",
			zap.String("connectionId", client.id))
		h.unregisterClient(client)
	}
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		h.unregisterClient(client)
	}
}

func (h *Hub) enqueue(recipients []string, event protocol.Outbound) {
	if len(recipients) == 0 {
		return
	}

	select {
	case h.broadcast <- &Message{Recipients: recipients, Frame: protocol.NewFrame(event)}:
	case <-h.stop:
	}
}

// Send 특정 연결에만 전송
func (h *Hub) Send(connectionID string, event protocol.Outbound) {
	h.enqueue([]string{connectionID}, event)
}

// JoinRoom 방 그룹에 연결 추가
func (h *Hub) JoinRoom(roomID string, connectionIDs ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, exists := h.rooms[roomID]
	if !exists {
		members = make(map[string]struct{})
		h.rooms[roomID] = members
	}
	for _, id := range connectionIDs {
		if _, connected := h.clients[id]; connected {
			members[id] = struct{}{}
		}
	}
}

// LeaveRoom 방 그룹에서 연결 제거
func (h *Hub) LeaveRoom(roomID, connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, exists := h.rooms[roomID]; exists {
		delete(members, connectionID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// Broadcast 방 그룹 전체에 전송
func (h *Hub) Broadcast(roomID string, event protocol.Outbound) {
	h.enqueue(h.Members(roomID), event)
}

// CloseRoom 방 그룹 삭제
func (h *Hub) CloseRoom(roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, roomID)
}

// Members 방 그룹의 연결 ID 목록
func (h *Hub) Members(roomID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := make([]string, 0, len(h.rooms[roomID]))
	for id := range h.rooms[roomID] {
		members = append(members, id)
	}
	return members
}

// ClientCount 현재 연결 수
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) checkOrigin(origin string) bool {
	if len(h.allowedOrigins) == 0 || origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
