package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pandeygsundaram/gameforge/internal/service"
	"github.com/pandeygsundaram/gameforge/pkg/logger"
)

// respondError 요청 에러는 메시지 그대로, 나머지는 500
func respondError(c *gin.Context, err error) {
	var reqErr *service.RequestError
	if !errors.As(err, &reqErr) {
		logger.Error("Request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	status := http.StatusBadRequest
	switch {
	case errors.Is(reqErr.Kind, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(reqErr.Kind, service.ErrNotAuthorized):
		status = http.StatusForbidden
	}
	c.JSON(status, gin.H{"error": reqErr.Message})
}

// persistenceDisabled DATABASE_URL 없이 실행 중일 때
func persistenceDisabled(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Persistence is not configured"})
}
