package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/teamtrackhq/teamtrack/internal/services"
	"github.com/teamtrackhq/teamtrack/pkg/response"
	"gorm.io/gorm"
)

type ActivityLogHandler struct {
	activityService *services.ActivityLogService
}

func NewActivityLogHandler(db *gorm.DB) *ActivityLogHandler {
	return &ActivityLogHandler{
		activityService: services.NewActivityLogService(db),
	}
}

// List returns paginated activity log entries
// GET /api/activity
func (h *ActivityLogHandler) List(c *gin.Context) {
	var req services.ActivityLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.activityService.List(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// Cleanup removes entries older than the retention window
// DELETE /api/activity/cleanup?days=30
func (h *ActivityLogHandler) Cleanup(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 1 {
		response.BadRequest(c, "invalid retention days")
		return
	}

	deleted, svcErr := h.activityService.Cleanup(days)
	if svcErr != nil {
		response.Error(c, svcErr)
		return
	}

	response.Success(c, gin.H{"deleted": deleted})
}
