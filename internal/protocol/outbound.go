package protocol

import "github.com/pandeygsundaram/gameforge/internal/models"

// Outbound 서버 -> 클라이언트 이벤트
type Outbound interface {
	EventType() string
}

type Message struct {
	Msg string `json:"msg"`
}

type WalletConnected struct {
	Message       string `json:"message"`
	WalletAddress string `json:"walletAddress"`
}

type Queued struct {
	GameType models.GameType `json:"gameType"`
	Position int             `json:"position"`
	Message  string          `json:"message"`
}

type LeftQueue struct {
	GameType models.GameType `json:"gameType"`
	Message  string          `json:"message"`
}

type GameMatched struct {
	RoomID   string               `json:"roomId"`
	GameType models.GameType      `json:"gameType"`
	Players  []models.PlayerScore `json:"players"`
	Message  string               `json:"message"`
}

type GameState struct {
	Players []models.PlayerScore `json:"players"`
}

type ScoreUpdated struct {
	PlayerWallet string    `json:"playerWallet"`
	Score        float64   `json:"score"`
	GameState    GameState `json:"gameState"`
}

type GameEnded struct {
	RoomID       string               `json:"roomId"`
	WinnerWallet *string              `json:"winnerWallet"`
	FinalScores  []models.PlayerScore `json:"finalScores"`
	Message      string               `json:"message"`
}

type PlayerDisconnected struct {
	DisconnectedPlayer string `json:"disconnectedPlayer"`
	Message            string `json:"message"`
}

// PlayerReconnected 재접속 알림. 재접속한 본인에게도 방 상태와 함께 전송된다.
type PlayerReconnected struct {
	RoomID   string               `json:"roomId"`
	GameType models.GameType      `json:"gameType"`
	Wallet   string               `json:"wallet"`
	Players  []models.PlayerScore `json:"players"`
	Message  string               `json:"message"`
}

type Error struct {
	Message string `json:"message"`
}

func (Message) EventType() string            { return TypeMessage }
func (WalletConnected) EventType() string    { return TypeWalletConnected }
func (Queued) EventType() string             { return TypeQueued }
func (LeftQueue) EventType() string          { return TypeLeftQueue }
func (GameMatched) EventType() string        { return TypeGameMatched }
func (ScoreUpdated) EventType() string       { return TypeScoreUpdated }
func (GameEnded) EventType() string          { return TypeGameEnded }
func (PlayerDisconnected) EventType() string { return TypePlayerDisconnected }
func (PlayerReconnected) EventType() string  { return TypePlayerReconnected }
func (Error) EventType() string              { return TypeError }

// Frame 송신용 프레임
type Frame struct {
	Type    string   `json:"type"`
	Payload Outbound `json:"payload"`
}

func NewFrame(event Outbound) Frame {
	return Frame{Type: event.EventType(), Payload: event}
}
