package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pandeygsundaram/gameforge/internal/models"
)

// LeaderboardCache 게임별 리더보드 조회 결과 캐시.
// 게임 종류마다 해시 하나에 limit별 결과를 담고, 해시 단위로 만료/무효화한다.
type LeaderboardCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewLeaderboardCache(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &LeaderboardCache{
		client: client,
		prefix: "leaderboard:",
		ttl:    ttl,
	}
}

func (c *LeaderboardCache) key(gameType models.GameType) string {
	return c.prefix + string(gameType)
}

// Get 캐시된 리더보드. 없으면 ok=false.
func (c *LeaderboardCache) Get(ctx context.Context, gameType models.GameType, limit int) ([]models.LeaderboardEntry, bool, error) {
	data, err := c.client.HGet(ctx, c.key(gameType), strconv.Itoa(limit)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read leaderboard cache: %w", err)
	}

	var entries []models.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false, fmt.Errorf("failed to decode leaderboard cache: %w", err)
	}
	return entries, true, nil
}

// Set 리더보드 저장 후 해시 TTL 갱신
func (c *LeaderboardCache) Set(ctx context.Context, gameType models.GameType, limit int, entries []models.LeaderboardEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode leaderboard: %w", err)
	}

	key := c.key(gameType)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, strconv.Itoa(limit), data)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write leaderboard cache: %w", err)
	}
	return nil
}

// Invalidate 게임 종류의 모든 캐시 삭제
func (c *LeaderboardCache) Invalidate(ctx context.Context, gameType models.GameType) error {
	if err := c.client.Del(ctx, c.key(gameType)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate leaderboard cache: %w", err)
	}
	return nil
}
