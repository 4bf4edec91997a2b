package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Database
	DatabaseURL string

	// Redis (빈 문자열이면 비활성화)
	RedisURL string

	// CORS
	CORSAllowedOrigins []string

	// Session Recorder
	RecorderQueueSize int
	RecorderTimeout   time.Duration

	// 연결이 끊긴 방 정리 (기본 비활성화)
	RoomReapEnabled  bool
	RoomReapAfter    time.Duration
	RoomReapInterval time.Duration

	// Leaderboard
	LeaderboardCacheTTL time.Duration

	// Rate limit
	EventRateLimit int64 // 연결당 초당 이벤트 수
	EventBurst     int64
	APIRateLimit   int // IP당 분당 요청 수
}

func Load() (*Config, error) {
	// .env 파일 로드 (있는 경우)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "3001"),
		Env:                 getEnv("ENV", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		RedisURL:            os.Getenv("REDIS_URL"),
		CORSAllowedOrigins:  parseList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		RecorderQueueSize:   parseInt(getEnv("RECORDER_QUEUE_SIZE", "1024"), 1024),
		RecorderTimeout:     parseDuration(getEnv("RECORDER_TIMEOUT", "5s"), 5*time.Second),
		RoomReapEnabled:     parseBool(getEnv("ROOM_REAP_ENABLED", "false")),
		RoomReapAfter:       parseDuration(getEnv("ROOM_REAP_AFTER", "10m"), 10*time.Minute),
		RoomReapInterval:    parseDuration(getEnv("ROOM_REAP_INTERVAL", "1m"), time.Minute),
		LeaderboardCacheTTL: parseDuration(getEnv("LEADERBOARD_CACHE_TTL", "30s"), 30*time.Second),
		EventRateLimit:      int64(parseInt(getEnv("EVENT_RATE_LIMIT", "20"), 20)),
		EventBurst:          int64(parseInt(getEnv("EVENT_BURST", "40"), 40)),
		APIRateLimit:        parseInt(getEnv("API_RATE_LIMIT", "100"), 100),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
