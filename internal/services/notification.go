package services

import (
	"context"

	"github.com/teamtrackhq/teamtrack/internal/models"
	"github.com/teamtrackhq/teamtrack/pkg/logger"
	"github.com/teamtrackhq/teamtrack/pkg/response"
	"gorm.io/gorm"
)

// NotificationService persists dispatched notifications and serves the
// in-app notification endpoints.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// Process writes a queued notification job as a notification row. Wired as
// the processor for both the sync queue and the async worker.
func (s *NotificationService) Process(ctx context.Context, task *NotificationTask) error {
	row := models.Notification{
		UserID:    task.UserID,
		Kind:      task.Kind,
		TaskID:    task.TaskID,
		ProjectID: task.ProjectID,
		Message:   task.Message,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		logger.Errorf("failed to persist notification %s: %v", task.ID, err)
		return err
	}
	return nil
}

type NotificationListRequest struct {
	Page   int   `form:"page" binding:"omitempty,min=1"`
	Limit  int   `form:"limit" binding:"omitempty,min=1,max=100"`
	Unread *bool `form:"unread"`
}

type NotificationListResponse struct {
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
	Items []models.Notification `json:"items"`
}

// List returns the actor's own notifications, newest first.
func (s *NotificationService) List(userID uint, req *NotificationListRequest) (*NotificationListResponse, error) {
	req.Page, req.Limit = normalizePage(req.Page, req.Limit)

	query := s.db.Model(&models.Notification{}).Where("user_id = ?", userID)
	if req.Unread != nil && *req.Unread {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	query.Count(&total)

	var items []models.Notification
	offset := (req.Page - 1) * req.Limit
	if err := query.Offset(offset).Limit(req.Limit).Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, transient(err)
	}

	return &NotificationListResponse{Total: total, Page: req.Page, Limit: req.Limit, Items: items}, nil
}

// UnreadCount returns the actor's unread notification count.
func (s *NotificationService) UnreadCount(userID uint) (int64, error) {
	var count int64
	if err := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		return 0, transient(err)
	}
	return count, nil
}

// MarkRead flags one of the actor's notifications as read.
func (s *NotificationService) MarkRead(userID, notificationID uint) error {
	result := s.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("is_read", true)
	if result.Error != nil {
		return transient(result.Error)
	}
	if result.RowsAffected == 0 {
		return response.NewNotFound("notification not found")
	}
	return nil
}

// MarkAllRead flags all of the actor's notifications as read.
func (s *NotificationService) MarkAllRead(userID uint) error {
	if err := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error; err != nil {
		return transient(err)
	}
	return nil
}

// notify enqueues a dispatch job if the global queue is running. Failures
// are logged and swallowed: notifications never fail the triggering write.
func notify(userID uint, kind string, taskID, projectID *uint, message string) {
	queue := GetNotifyQueue()
	if queue == nil {
		return
	}
	job := NewNotificationTask(userID, kind, taskID, projectID, message)
	if err := queue.Enqueue(job); err != nil {
		logger.Warnf("failed to enqueue notification for user %d: %v", userID, err)
	}
}
