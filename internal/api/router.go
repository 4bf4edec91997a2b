package api

import (
	"github.com/gin-gonic/gin"

	"github.com/pandeygsundaram/gameforge/internal/api/handlers"
	"github.com/pandeygsundaram/gameforge/internal/api/middleware"
	"github.com/pandeygsundaram/gameforge/internal/config"
	"github.com/pandeygsundaram/gameforge/internal/service"
	"github.com/pandeygsundaram/gameforge/internal/websocket"
	"github.com/pandeygsundaram/gameforge/pkg/ratelimit"
)

// Dependencies main에서 생성해 수명주기를 관리하는 구성 요소
type Dependencies struct {
	Matchmaking *service.MatchmakingService
	Sessions    *service.SessionService // nil이면 기록 조회 API는 503
	Hub         *websocket.Hub

	EventLimiter    *ratelimit.RateLimiter      // 연결당 이벤트
	APILimiter      *ratelimit.RateLimiter      // Redis 미사용 시 IP당 요청
	RedisAPILimiter *ratelimit.RedisRateLimiter // nil이면 APILimiter 사용
}

// SetupRouter API 라우터 설정
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 전역 미들웨어
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Handler 초기화
	var games handlers.UserGamesReader
	var leaderboard handlers.LeaderboardReader
	if deps.Sessions != nil {
		games = deps.Sessions
		leaderboard = deps.Sessions
	}
	statsHandler := handlers.NewStatsHandler(deps.Matchmaking)
	userHandler := handlers.NewUserHandler(games)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboard)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.Matchmaking, deps.EventLimiter)

	// WebSocket endpoint
	router.GET("/ws", wsHandler.HandleWebSocket)

	api := router.Group("/api")
	api.Use(middleware.APIRateLimit(deps.RedisAPILimiter, deps.APILimiter, cfg.APIRateLimit))
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/stats", statsHandler.GetStats)
		api.GET("/user/:wallet/games", userHandler.GetUserGames)
		api.GET("/leaderboard/:gameType", leaderboardHandler.GetLeaderboard)
	}

	return router
}
