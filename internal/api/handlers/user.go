package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pandeygsundaram/gameforge/internal/models"
)

// UserGamesReader 지갑별 게임 기록 조회 (service.SessionService)
type UserGamesReader interface {
	GetUserGames(ctx context.Context, wallet string) ([]models.GameSession, error)
}

type UserHandler struct {
	games UserGamesReader
}

// NewUserHandler games가 nil이면 503 응답
func NewUserHandler(games UserGamesReader) *UserHandler {
	return &UserHandler{games: games}
}

// GetUserGames 지갑의 최근 게임 50개
func (h *UserHandler) GetUserGames(c *gin.Context) {
	if h.games == nil {
		persistenceDisabled(c)
		return
	}

	games, err := h.games.GetUserGames(c.Request.Context(), c.Param("wallet"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"games": games})
}
