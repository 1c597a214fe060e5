package models

import (
	"time"

	"gorm.io/gorm"
)

// Task status constants. Terminal statuses are completed and cancelled.
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusReview     = "review"
	TaskStatusCompleted  = "completed"
	TaskStatusCancelled  = "cancelled"
)

// Task type constants.
const (
	TaskTypeFeature       = "feature"
	TaskTypeBug           = "bug"
	TaskTypeImprovement   = "improvement"
	TaskTypeResearch      = "research"
	TaskTypeTesting       = "testing"
	TaskTypeDocumentation = "documentation"
	TaskTypeOther         = "other"
)

// Task belongs to exactly one project. The assignee must be the project
// manager or an assigned member at the time of assignment.
type Task struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Title          string         `gorm:"size:300;not null" json:"title"`
	Description    string         `gorm:"type:text" json:"description"`
	ProjectID      uint           `gorm:"index;not null" json:"project_id"`
	Project        *Project       `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	AssigneeID     uint           `gorm:"index;not null" json:"assignee_id"`
	Assignee       *User          `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	CreatorID      uint           `gorm:"index;not null" json:"creator_id"`
	Creator        *User          `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Status         string         `gorm:"size:50;default:todo" json:"status"`
	Priority       string         `gorm:"size:50;default:medium" json:"priority"`
	Type           string         `gorm:"size:50;default:feature" json:"type"`
	EstimatedHours float64        `gorm:"default:0" json:"estimated_hours"`
	ActualHours    float64        `gorm:"default:0" json:"actual_hours"`
	StartDate      time.Time      `json:"start_date"`
	DueDate        time.Time      `json:"due_date"`
	CompletedDate  *time.Time     `json:"completed_date"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Task) TableName() string { return "tasks" }

// ProgressPercentage maps status to the fixed progress figure:
// todo=0, in_progress=25, review=75, completed=100, cancelled=0.
func (t *Task) ProgressPercentage() int {
	switch t.Status {
	case TaskStatusInProgress:
		return 25
	case TaskStatusReview:
		return 75
	case TaskStatusCompleted:
		return 100
	default:
		return 0
	}
}

// IsTerminal reports whether the task is completed or cancelled.
func (t *Task) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusCancelled
}

// ValidTaskStatus reports whether s is a known task status.
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusReview,
		TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// ValidTaskType reports whether t is a known task type.
func ValidTaskType(t string) bool {
	switch t {
	case TaskTypeFeature, TaskTypeBug, TaskTypeImprovement, TaskTypeResearch,
		TaskTypeTesting, TaskTypeDocumentation, TaskTypeOther:
		return true
	}
	return false
}

// TaskOpenStatuses are the statuses that block project deletion and
// project-member removal.
var TaskOpenStatuses = []string{TaskStatusTodo, TaskStatusInProgress, TaskStatusReview}
