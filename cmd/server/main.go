package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pandeygsundaram/gameforge/internal/api"
	"github.com/pandeygsundaram/gameforge/internal/cache"
	"github.com/pandeygsundaram/gameforge/internal/config"
	"github.com/pandeygsundaram/gameforge/internal/repository"
	"github.com/pandeygsundaram/gameforge/internal/service"
	"github.com/pandeygsundaram/gameforge/internal/websocket"
	"github.com/pandeygsundaram/gameforge/pkg/database"
	"github.com/pandeygsundaram/gameforge/pkg/logger"
	"github.com/pandeygsundaram/gameforge/pkg/ratelimit"
)

func main() {
	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 로거 초기화
	logger.Init(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("Starting gameforge backend",
		"port", cfg.Port,
		"env", cfg.Env,
	)

	// 데이터베이스 연결 (없으면 기록 없이 실행)
	var sessionService *service.SessionService
	var db *database.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Connect(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", "error", err)
		}
		defer db.Close()
	} else {
		logger.Warn("DATABASE_URL not set, game sessions will not be recorded")
	}

	// Redis 연결 (선택)
	redisClient := connectRedis(cfg.RedisURL)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var leaderboardCache *cache.LeaderboardCache
	var redisAPILimiter *ratelimit.RedisRateLimiter
	if redisClient != nil {
		leaderboardCache = cache.NewLeaderboardCache(redisClient, cfg.LeaderboardCacheTTL)
		redisAPILimiter = ratelimit.NewRedisRateLimiter(redisClient, ratelimit.RedisRateLimiterConfig{
			KeyPrefix: "gameforge:ratelimit:",
			Limit:     cfg.APIRateLimit,
			Window:    time.Minute,
		})
	}

	// Recorder 큐 시작
	recorder := service.NewRecorderQueue(cfg.RecorderQueueSize, cfg.RecorderTimeout)
	recorder.Start()

	// WebSocket Hub 초기화 및 시작
	hub := websocket.NewHub(cfg.CORSAllowedOrigins)
	go hub.Run()

	// Matchmaking Service 초기화 및 시작
	opts := service.MatchmakingOptions{
		ReapEnabled:  cfg.RoomReapEnabled,
		ReapAfter:    cfg.RoomReapAfter,
		ReapInterval: cfg.RoomReapInterval,
	}
	var matchmakingService *service.MatchmakingService
	if db != nil {
		sessionService = service.NewSessionService(
			repository.NewSessionRepository(db),
			repository.NewUserRepository(db),
			leaderboardCache,
		)
		matchmakingService = service.NewMatchmakingService(hub, sessionService, sessionService, recorder, opts)
	} else {
		matchmakingService = service.NewMatchmakingService(hub, nil, nil, recorder, opts)
	}
	matchmakingService.Start()

	eventLimiter := ratelimit.NewRateLimiter(cfg.EventBurst, cfg.EventRateLimit)
	defer eventLimiter.Stop()

	perSecond := int64(cfg.APIRateLimit / 60)
	if perSecond < 1 {
		perSecond = 1
	}
	apiLimiter := ratelimit.NewRateLimiter(int64(cfg.APIRateLimit), perSecond)
	defer apiLimiter.Stop()

	router := api.SetupRouter(cfg, api.Dependencies{
		Matchmaking:     matchmakingService,
		Sessions:        sessionService,
		Hub:             hub,
		EventLimiter:    eventLimiter,
		APILimiter:      apiLimiter,
		RedisAPILimiter: redisAPILimiter,
	})

	// 서버 설정
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// 서버 시작 (고루틴)
	go func() {
		logger.Info("Server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown 대기
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// 10초 타임아웃으로 종료
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// 연결 종료 후 남은 기록 작업 처리
	hub.Stop()
	matchmakingService.Stop()
	recorder.Stop()

	logger.Info("Server exited")
}

// connectRedis REDIS_URL이 비어 있거나 연결 실패 시 nil
func connectRedis(url string) *redis.Client {
	if url == "" {
		logger.Info("REDIS_URL not set, using in-memory rate limiting without leaderboard cache")
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Warn("Invalid REDIS_URL, continuing without Redis", "error", err)
		return nil
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis not reachable, continuing without Redis", "error", err)
		client.Close()
		return nil
	}

	logger.Info("Redis connected", "addr", opts.Addr)
	return client
}
