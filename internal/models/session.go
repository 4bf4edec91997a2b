package models

import "time"

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

// GameSession 게임 세션 영속 기록
type GameSession struct {
	ID            int64         `json:"id" db:"id"`
	RoomID        string        `json:"roomId" db:"room_id"`
	GameType      GameType      `json:"gameType" db:"game_type"`
	Player1Wallet string        `json:"player1Wallet" db:"player1_wallet"`
	Player2Wallet string        `json:"player2Wallet" db:"player2_wallet"`
	Player1Score  float64       `json:"player1Score" db:"player1_score"`
	Player2Score  float64       `json:"player2Score" db:"player2_score"`
	Status        SessionStatus `json:"status" db:"status"`
	WinnerWallet  *string       `json:"winnerWallet,omitempty" db:"winner_wallet"`
	StartedAt     time.Time     `json:"startedAt" db:"started_at"`
	EndedAt       *time.Time    `json:"endedAt,omitempty" db:"ended_at"`
}

type LeaderboardEntry struct {
	WinnerWallet string  `json:"winner_wallet"`
	Wins         int     `json:"wins"`
	AvgScore     float64 `json:"avg_score"`
}
