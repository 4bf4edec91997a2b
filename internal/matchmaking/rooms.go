package matchmaking

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pandeygsundaram/gameforge/internal/models"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrPlayerNotInRoom = errors.New("player not in this room")
	ErrSamePlayer      = errors.New("a room needs two distinct players")
)

// Rooms 활성 방 레지스트리. 종료된 방은 보관하지 않는다.
type Rooms struct {
	rooms map[string]*models.Room
	newID func() string
}

func NewRooms() *Rooms {
	return &Rooms{
		rooms: make(map[string]*models.Room),
		newID: generateRoomID,
	}
}

func generateRoomID() string {
	return "room_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Create 두 플레이어로 활성 방 생성
func (r *Rooms) Create(gameType models.GameType, a, b models.QueuedPlayer, now time.Time) (*models.Room, error) {
	if a.Wallet == b.Wallet {
		return nil, ErrSamePlayer
	}

	id := r.newID()
	for r.rooms[id] != nil {
		id = r.newID()
	}

	room := &models.Room{
		ID:       id,
		GameType: gameType,
		Players: [2]models.RoomPlayer{
			{Wallet: a.Wallet, ConnectionID: a.ConnectionID},
			{Wallet: b.Wallet, ConnectionID: b.ConnectionID},
		},
		Status:    models.RoomStatusActive,
		CreatedAt: now,
	}
	r.rooms[id] = room
	return room, nil
}

// Get 활성 방 조회
func (r *Rooms) Get(roomID string) (*models.Room, error) {
	room, ok := r.rooms[roomID]
	if !ok || room.Status != models.RoomStatusActive {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// UpdateScore 점수 덮어쓰기 (누적 아님)
func (r *Rooms) UpdateScore(roomID, wallet string, score float64) (*models.Room, error) {
	room, err := r.Get(roomID)
	if err != nil {
		return nil, err
	}
	player := room.Player(wallet)
	if player == nil {
		return nil, ErrPlayerNotInRoom
	}
	player.Score = score
	return room, nil
}

// End 방을 종료 상태로 바꾸고 레지스트리에서 제거
func (r *Rooms) End(roomID string) (*models.Room, error) {
	room, err := r.Get(roomID)
	if err != nil {
		return nil, err
	}
	room.Status = models.RoomStatusEnded
	delete(r.rooms, roomID)
	return room, nil
}

// AttachSession 비동기로 생성된 세션 ID 연결
func (r *Rooms) AttachSession(roomID string, sessionID int64) bool {
	room, err := r.Get(roomID)
	if err != nil {
		return false
	}
	room.SessionID = &sessionID
	return true
}

// RoomsOf 해당 지갑이 참가 중인 활성 방 목록
func (r *Rooms) RoomsOf(wallet string) []*models.Room {
	var out []*models.Room
	for _, room := range r.rooms {
		if room.Player(wallet) != nil {
			out = append(out, room)
		}
	}
	return out
}

// MarkDisconnected 참가자 연결 끊김 기록. 방은 그대로 유지된다.
func (r *Rooms) MarkDisconnected(wallet string, at time.Time) []*models.Room {
	rooms := r.RoomsOf(wallet)
	for _, room := range rooms {
		player := room.Player(wallet)
		if player.DisconnectedAt == nil {
			disconnectedAt := at
			player.DisconnectedAt = &disconnectedAt
		}
	}
	return rooms
}

// Reseat 재접속한 참가자의 연결 교체
type Reseat struct {
	Room               *models.Room
	PreviousConnection string
}

// Reconnect 참가 중인 방의 연결을 새 연결로 교체. 바뀐 방만 반환한다.
func (r *Rooms) Reconnect(wallet, connectionID string) []Reseat {
	var out []Reseat
	for _, room := range r.RoomsOf(wallet) {
		player := room.Player(wallet)
		if player.ConnectionID == connectionID && player.DisconnectedAt == nil {
			continue
		}
		out = append(out, Reseat{Room: room, PreviousConnection: player.ConnectionID})
		player.ConnectionID = connectionID
		player.DisconnectedAt = nil
	}
	return out
}

// Orphaned 참가자가 maxAge 이상 끊겨 있는 방 ID
func (r *Rooms) Orphaned(maxAge time.Duration, now time.Time) []string {
	var ids []string
	for id, room := range r.rooms {
		for _, p := range room.Players {
			if p.DisconnectedAt != nil && now.Sub(*p.DisconnectedAt) >= maxAge {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids
}

func (r *Rooms) Len() int {
	return len(r.rooms)
}
