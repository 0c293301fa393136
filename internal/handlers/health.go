package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/photofeed/backend/internal/cache"
	"github.com/photofeed/backend/internal/database"
)

// Health reports liveness plus the reachability of both stores. The service
// stays "ok" with Redis down — reads degrade and writes fail closed — so
// the status is informational, not a readiness gate.
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	status := gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	}

	redisOK := false
	if rc := cache.GetRedisClient(); rc != nil {
		redisOK = rc.Ping(c.Request.Context()) == nil
	}
	status["redis"] = redisOK

	dbOK := false
	if database.DB != nil {
		if sqlDB, err := database.DB.DB(); err == nil {
			dbOK = sqlDB.PingContext(c.Request.Context()) == nil
		}
	}
	status["database"] = dbOK

	c.JSON(http.StatusOK, status)
}
