package models

import "time"

// Notification kinds.
const (
	NotifyTaskAssigned = "task_assigned"
	NotifyTaskComment  = "task_comment"
	NotifyTaskProgress = "task_progress"
	NotifyTaskOverdue  = "task_overdue"
)

// Notification is an in-app notification row written by the dispatch
// worker.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Kind      string    `gorm:"size:50;index;not null" json:"kind"`
	TaskID    *uint     `gorm:"index" json:"task_id,omitempty"`
	ProjectID *uint     `json:"project_id,omitempty"`
	Message   string    `gorm:"size:1000" json:"message"`
	IsRead    bool      `gorm:"default:false;index" json:"is_read"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
