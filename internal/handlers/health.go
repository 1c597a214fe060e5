package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/teamtrackhq/teamtrack/internal/models"
	"github.com/teamtrackhq/teamtrack/internal/services"
)

// HealthHandler provides the health check endpoint.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"

	// Database check
	dbStatus := "ok"
	sqlDB, err := models.GetDB().DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}

	// Notification queue mode
	queue := services.GetNotifyQueue()
	queueMode := "sync"
	if queue != nil && queue.IsAsync() {
		queueMode = "async (Redis)"
	}

	// Undelivered (unread) notifications
	var pending int64
	models.GetDB().Model(&models.Notification{}).
		Where("is_read = ?", false).
		Count(&pending)

	c.JSON(200, gin.H{
		"status":  overall,
		"service": "teamtrack",
		"components": gin.H{
			"database":              dbStatus,
			"queue_mode":            queueMode,
			"pending_notifications": pending,
		},
	})
}
