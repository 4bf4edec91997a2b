package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pandeygsundaram/gameforge/internal/models"
	"github.com/pandeygsundaram/gameforge/pkg/database"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert 지갑 주소로 사용자 생성 (이미 있으면 그대로 반환)
func (r *UserRepository) Upsert(ctx context.Context, walletAddress string) (*models.User, error) {
	query := `
		INSERT INTO users (wallet_address)
		VALUES ($1)
		ON CONFLICT (wallet_address) DO UPDATE SET wallet_address = EXCLUDED.wallet_address
		RETURNING id, wallet_address, created_at, updated_at
	`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, walletAddress).Scan(
		&user.ID,
		&user.WalletAddress,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return user, nil
}

// FindByWallet 지갑 주소로 사용자 찾기
func (r *UserRepository) FindByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	query := `
		SELECT id, wallet_address, created_at, updated_at
		FROM users
		WHERE wallet_address = $1
	`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, walletAddress).Scan(
		&user.ID,
		&user.WalletAddress,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // 사용자 없음
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}
