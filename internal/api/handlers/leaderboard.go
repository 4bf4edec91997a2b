package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pandeygsundaram/gameforge/internal/models"
	"github.com/pandeygsundaram/gameforge/internal/service"
)

// LeaderboardReader 게임별 순위 조회 (service.SessionService)
type LeaderboardReader interface {
	GetLeaderboard(ctx context.Context, gameType models.GameType, limit int) ([]models.LeaderboardEntry, error)
}

type LeaderboardHandler struct {
	leaderboard LeaderboardReader
}

func NewLeaderboardHandler(leaderboard LeaderboardReader) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

// GetLeaderboard 게임별 승수 순위 (?limit=, 기본 10)
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	if h.leaderboard == nil {
		persistenceDisabled(c)
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultLeaderboardLimit)))
	if err != nil {
		respondError(c, service.ErrInvalidLimit)
		return
	}

	gameType := models.GameType(c.Param("gameType"))
	entries, err := h.leaderboard.GetLeaderboard(c.Request.Context(), gameType, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"gameType":    gameType,
		"leaderboard": entries,
	})
}
