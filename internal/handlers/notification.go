package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/teamtrackhq/teamtrack/internal/middleware"
	"github.com/teamtrackhq/teamtrack/internal/services"
	"github.com/teamtrackhq/teamtrack/pkg/response"
	"gorm.io/gorm"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{
		notificationService: services.NewNotificationService(db),
	}
}

// List returns the caller's notifications
// GET /api/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	var req services.NotificationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.notificationService.List(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// UnreadCount returns the caller's unread notification count
// GET /api/notifications/unread
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.notificationService.UnreadCount(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"count": count})
}

// MarkRead flags a notification as read
// PUT /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}

	if svcErr := h.notificationService.MarkRead(middleware.GetUserID(c), id); svcErr != nil {
		response.Error(c, svcErr)
		return
	}

	response.Success(c, gin.H{"message": "marked read"})
}

// MarkAllRead flags all of the caller's notifications as read
// PUT /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.notificationService.MarkAllRead(middleware.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "all marked read"})
}
