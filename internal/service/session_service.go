package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/pandeygsundaram/gameforge/internal/cache"
	"github.com/pandeygsundaram/gameforge/internal/models"
	"github.com/pandeygsundaram/gameforge/pkg/logger"
)

const (
	UserGamesLimit          = 50
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// SessionStore 게임 세션 테이블 (repository.SessionRepository)
type SessionStore interface {
	Create(ctx context.Context, roomID string, gameType models.GameType, player1Wallet, player2Wallet string) (int64, error)
	UpdateScore(ctx context.Context, roomID, wallet string, score float64) error
	End(ctx context.Context, roomID string, winner *string, finalScores []models.PlayerScore) (models.GameType, error)
	FindByWallet(ctx context.Context, wallet string, limit int) ([]models.GameSession, error)
	Leaderboard(ctx context.Context, gameType models.GameType, limit int) ([]models.LeaderboardEntry, error)
}

// UserStore 사용자 테이블 (repository.UserRepository)
type UserStore interface {
	Upsert(ctx context.Context, walletAddress string) (*models.User, error)
}

// SessionService 세션 기록과 조회. SessionRecorder, UserRecorder 구현.
type SessionService struct {
	sessions    SessionStore
	users       UserStore
	leaderboard *cache.LeaderboardCache
	logger      *zap.Logger
}

// NewSessionService leaderboard가 nil이면 캐시 없이 동작
func NewSessionService(sessions SessionStore, users UserStore, leaderboard *cache.LeaderboardCache) *SessionService {
	return &SessionService{
		sessions:    sessions,
		users:       users,
		leaderboard: leaderboard,
		logger:      logger.Named("session"),
	}
}

func (s *SessionService) CreateSession(ctx context.Context, roomID string, gameType models.GameType, walletA, walletB string) (int64, error) {
	return s.sessions.Create(ctx, roomID, gameType, walletA, walletB)
}

func (s *SessionService) RecordScore(ctx context.Context, roomID, wallet string, score float64) error {
	return s.sessions.UpdateScore(ctx, roomID, wallet, score)
}

// EndSession 세션 완료 후 해당 게임 리더보드 캐시 무효화
func (s *SessionService) EndSession(ctx context.Context, roomID string, winner *string, finalScores []models.PlayerScore) error {
	gameType, err := s.sessions.End(ctx, roomID, winner, finalScores)
	if err != nil {
		return err
	}

	if s.leaderboard != nil && winner != nil {
		if err := s.leaderboard.Invalidate(ctx, gameType); err != nil {
			s.logger.Warn("Failed to invalidate leaderboard cache",
				zap.String("gameType", string(gameType)), zap.Error(err))
		}
	}
	return nil
}

func (s *SessionService) SaveUser(ctx context.Context, wallet string) error {
	_, err := s.users.Upsert(ctx, wallet)
	return err
}

// GetUserGames 지갑의 최근 게임 기록
func (s *SessionService) GetUserGames(ctx context.Context, wallet string) ([]models.GameSession, error) {
	if wallet == "" {
		return nil, ErrWalletRequired
	}
	return s.sessions.FindByWallet(ctx, wallet, UserGamesLimit)
}

// GetLeaderboard 게임별 승수 순위. 캐시 오류는 DB 조회로 대신한다.
func (s *SessionService) GetLeaderboard(ctx context.Context, gameType models.GameType, limit int) ([]models.LeaderboardEntry, error) {
	if !gameType.IsValid() {
		return nil, ErrInvalidGameType
	}
	if limit < 1 || limit > MaxLeaderboardLimit {
		return nil, ErrInvalidLimit
	}

	if s.leaderboard != nil {
		entries, ok, err := s.leaderboard.Get(ctx, gameType, limit)
		if err != nil {
			s.logger.Warn("Leaderboard cache read failed", zap.Error(err))
		} else if ok {
			return entries, nil
		}
	}

	entries, err := s.sessions.Leaderboard(ctx, gameType, limit)
	if err != nil {
		return nil, err
	}

	if s.leaderboard != nil {
		if err := s.leaderboard.Set(ctx, gameType, limit, entries); err != nil {
			s.logger.Warn("Leaderboard cache write failed", zap.Error(err))
		}
	}
	return entries, nil
}
