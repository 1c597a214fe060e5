package services

import (
	"encoding/json"
	"time"

	"github.com/teamtrackhq/teamtrack/internal/models"
	"gorm.io/gorm"
)

var activityDB *gorm.DB

// InitActivityLogger wires the package-level activity log writers used by
// middleware and schedulers.
func InitActivityLogger(db *gorm.DB) {
	activityDB = db
}

func LogInfo(module, action, message string, userID *uint, ip, userAgent string, extra interface{}) {
	writeActivity("info", module, action, message, userID, ip, userAgent, extra)
}

func LogWarning(module, action, message string, userID *uint, ip, userAgent string, extra interface{}) {
	writeActivity("warning", module, action, message, userID, ip, userAgent, extra)
}

func LogError(module, action, message string, userID *uint, ip, userAgent string, extra interface{}) {
	writeActivity("error", module, action, message, userID, ip, userAgent, extra)
}

func writeActivity(level, module, action, message string, userID *uint, ip, userAgent string, extra interface{}) {
	if activityDB == nil {
		return
	}

	var extraStr string
	if extra != nil {
		if b, err := json.Marshal(extra); err == nil {
			extraStr = string(b)
		}
	}

	entry := &models.ActivityLog{
		Level:     level,
		Module:    module,
		Action:    action,
		Message:   message,
		UserID:    userID,
		IP:        ip,
		UserAgent: userAgent,
		Extra:     extraStr,
		CreatedAt: time.Now(),
	}
	activityDB.Create(entry)
}

type ActivityLogService struct {
	db *gorm.DB
}

func NewActivityLogService(db *gorm.DB) *ActivityLogService {
	return &ActivityLogService{db: db}
}

type ActivityLogListRequest struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Level     string `form:"level"`
	Module    string `form:"module"`
	Action    string `form:"action"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Search    string `form:"search"`
}

type ActivityLogListResponse struct {
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
	Items []models.ActivityLog `json:"items"`
}

func (s *ActivityLogService) List(req *ActivityLogListRequest) (*ActivityLogListResponse, error) {
	req.Page, req.Limit = normalizePage(req.Page, req.Limit)

	var logs []models.ActivityLog
	var total int64

	query := s.db.Model(&models.ActivityLog{})

	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}
	if req.Action != "" {
		query = query.Where("action LIKE ?", "%"+req.Action+"%")
	}
	if req.StartDate != "" {
		query = query.Where("created_at >= ?", req.StartDate)
	}
	if req.EndDate != "" {
		query = query.Where("created_at <= ?", req.EndDate+" 23:59:59")
	}
	if req.Search != "" {
		query = query.Where("message LIKE ?", "%"+req.Search+"%")
	}

	query.Count(&total)

	offset := (req.Page - 1) * req.Limit
	if err := query.Offset(offset).Limit(req.Limit).Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, transient(err)
	}

	return &ActivityLogListResponse{
		Total: total,
		Page:  req.Page,
		Limit: req.Limit,
		Items: logs,
	}, nil
}

// Cleanup removes entries older than retentionDays and returns the count.
func (s *ActivityLogService) Cleanup(retentionDays int) (int64, error) {
	if retentionDays < 1 {
		retentionDays = 30
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.Where("created_at < ?", cutoff).Delete(&models.ActivityLog{})
	if result.Error != nil {
		return 0, transient(result.Error)
	}
	return result.RowsAffected, nil
}
