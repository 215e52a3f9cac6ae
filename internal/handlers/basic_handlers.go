package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sponsor-backend/internal/db"
)

// HealthCheckHandler liveness probe
// GET /api/health
func HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "sponsor-backend",
		"api":     "healthy",
	})
}

// DatabaseHealthCheckHandler readiness probe including the database
// GET /api/health/db
func DatabaseHealthCheckHandler(c *gin.Context) {
	sqlDB, err := db.DB.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "healthy"})
}
