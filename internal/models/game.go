package models

import "time"

type GameType string

const (
	GameTypeFruitNinja GameType = "game1"
	GameTypeCornPot    GameType = "game2"
)

// GameTypes 지원하는 게임 목록
var GameTypes = []GameType{GameTypeFruitNinja, GameTypeCornPot}

func (g GameType) IsValid() bool {
	for _, t := range GameTypes {
		if g == t {
			return true
		}
	}
	return false
}

type RoomStatus string

const (
	RoomStatusActive RoomStatus = "active"
	RoomStatusEnded  RoomStatus = "ended"
)

// QueuedPlayer 매칭 큐에서 대기 중인 플레이어
type QueuedPlayer struct {
	Wallet       string    `json:"wallet"`
	ConnectionID string    `json:"-"`
	JoinedAt     time.Time `json:"joinedAt"`
}

// RoomPlayer 방에 참가한 플레이어
type RoomPlayer struct {
	Wallet         string     `json:"wallet"`
	ConnectionID   string     `json:"-"`
	Score          float64    `json:"score"`
	DisconnectedAt *time.Time `json:"-"`
}

// Room 진행 중인 2인 게임 세션
type Room struct {
	ID        string        `json:"id"`
	GameType  GameType      `json:"gameType"`
	SessionID *int64        `json:"sessionId"`
	Players   [2]RoomPlayer `json:"players"`
	Status    RoomStatus    `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
}

// PlayerScore 브로드캐스트용 점수
type PlayerScore struct {
	Wallet string  `json:"wallet"`
	Score  float64 `json:"score"`
}

func (r *Room) Scores() []PlayerScore {
	scores := make([]PlayerScore, 0, len(r.Players))
	for _, p := range r.Players {
		scores = append(scores, PlayerScore{Wallet: p.Wallet, Score: p.Score})
	}
	return scores
}

// Player 참가자 조회 (없으면 nil)
func (r *Room) Player(wallet string) *RoomPlayer {
	for i := range r.Players {
		if r.Players[i].Wallet == wallet {
			return &r.Players[i]
		}
	}
	return nil
}

// Stats 매칭 현황
type Stats struct {
	ActiveRooms    int              `json:"activeRooms"`
	Queues         map[GameType]int `json:"queues"`
	ConnectedUsers int              `json:"connectedUsers"`
}
