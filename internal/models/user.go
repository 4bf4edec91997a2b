package models

import "time"

// User 지갑 주소로 식별되는 사용자
type User struct {
	ID            int64     `json:"id" db:"id"`
	WalletAddress string    `json:"walletAddress" db:"wallet_address"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}
