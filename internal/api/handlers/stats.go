package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pandeygsundaram/gameforge/internal/models"
)

// StatsSource 현재 매칭 현황 (service.MatchmakingService)
type StatsSource interface {
	Stats() models.Stats
}

type StatsHandler struct {
	source StatsSource
}

func NewStatsHandler(source StatsSource) *StatsHandler {
	return &StatsHandler{source: source}
}

// GetStats 활성 방, 게임별 대기 인원, 접속 지갑 수
func (h *StatsHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.source.Stats())
}
