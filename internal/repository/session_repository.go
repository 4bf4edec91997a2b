package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pandeygsundaram/gameforge/internal/models"
	"github.com/pandeygsundaram/gameforge/pkg/database"
)

var ErrSessionNotFound = errors.New("active game session not found")

type SessionRepository struct {
	db *database.DB
}

func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create 새 게임 세션 생성
func (r *SessionRepository) Create(ctx context.Context, roomID string, gameType models.GameType, player1Wallet, player2Wallet string) (int64, error) {
	query := `
		INSERT INTO game_sessions (room_id, game_type, player1_wallet, player2_wallet, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, roomID, gameType, player1Wallet, player2Wallet, models.SessionStatusActive).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create game session: %w", err)
	}

	return id, nil
}

// UpdateScore 진행 중인 세션에서 해당 지갑의 점수 컬럼 갱신
func (r *SessionRepository) UpdateScore(ctx context.Context, roomID, wallet string, score float64) error {
	query := `
		UPDATE game_sessions
		SET player1_score = CASE WHEN player1_wallet = $2 THEN $3 ELSE player1_score END,
		    player2_score = CASE WHEN player1_wallet <> $2 AND player2_wallet = $2 THEN $3 ELSE player2_score END
		WHERE room_id = $1 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query, roomID, wallet, score, models.SessionStatusActive)
	if err != nil {
		return fmt.Errorf("failed to update score: %w", err)
	}

	return requireRows(result)
}

// End 세션 완료 처리. 최종 점수와 승자를 기록하고 게임 종류를 반환한다.
func (r *SessionRepository) End(ctx context.Context, roomID string, winner *string, finalScores []models.PlayerScore) (models.GameType, error) {
	var wallets [2]string
	var scores [2]float64
	for i := 0; i < len(finalScores) && i < 2; i++ {
		wallets[i] = finalScores[i].Wallet
		scores[i] = finalScores[i].Score
	}

	query := `
		UPDATE game_sessions
		SET status = $2,
		    winner_wallet = $3,
		    ended_at = NOW(),
		    player1_score = CASE player1_wallet WHEN $4 THEN $5 WHEN $6 THEN $7 ELSE player1_score END,
		    player2_score = CASE player2_wallet WHEN $4 THEN $5 WHEN $6 THEN $7 ELSE player2_score END
		WHERE room_id = $1 AND status = $8
		RETURNING game_type
	`

	var gameType models.GameType
	err := r.db.QueryRowContext(ctx, query,
		roomID,
		models.SessionStatusCompleted,
		winner,
		wallets[0], scores[0],
		wallets[1], scores[1],
		models.SessionStatusActive,
	).Scan(&gameType)

	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to end game session: %w", err)
	}

	return gameType, nil
}

// FindByWallet 지갑이 참가한 세션 (최근 시작 순)
func (r *SessionRepository) FindByWallet(ctx context.Context, wallet string, limit int) ([]models.GameSession, error) {
	query := `
		SELECT id, room_id, game_type, player1_wallet, player2_wallet,
		       player1_score, player2_score, status, winner_wallet, started_at, ended_at
		FROM game_sessions
		WHERE player1_wallet = $1 OR player2_wallet = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, wallet, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query game sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.GameSession{}
	for rows.Next() {
		var s models.GameSession
		var winner sql.NullString
		var endedAt sql.NullTime

		err := rows.Scan(
			&s.ID,
			&s.RoomID,
			&s.GameType,
			&s.Player1Wallet,
			&s.Player2Wallet,
			&s.Player1Score,
			&s.Player2Score,
			&s.Status,
			&winner,
			&s.StartedAt,
			&endedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game session: %w", err)
		}

		if winner.Valid {
			s.WinnerWallet = &winner.String
		}
		if endedAt.Valid {
			s.EndedAt = &endedAt.Time
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate game sessions: %w", err)
	}

	return sessions, nil
}

// Leaderboard 게임별 승수 순위 (승수 내림차순, 평균 점수 포함)
func (r *SessionRepository) Leaderboard(ctx context.Context, gameType models.GameType, limit int) ([]models.LeaderboardEntry, error) {
	query := `
		SELECT winner_wallet,
		       COUNT(*) AS wins,
		       COALESCE(AVG((player1_score + player2_score) / 2.0), 0)::float8 AS avg_score
		FROM game_sessions
		WHERE game_type = $1 AND winner_wallet IS NOT NULL
		GROUP BY winner_wallet
		ORDER BY wins DESC, winner_wallet ASC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, gameType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []models.LeaderboardEntry{}
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.WinnerWallet, &e.Wins, &e.AvgScore); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leaderboard: %w", err)
	}

	return entries, nil
}

func requireRows(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}
