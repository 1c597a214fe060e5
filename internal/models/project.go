package models

import (
	"time"

	"gorm.io/gorm"
)

// Project status constants. "Active" here means any status that blocks
// team deletion: planning, active or on_hold.
const (
	ProjectStatusPlanning  = "planning"
	ProjectStatusActive    = "active"
	ProjectStatusOnHold    = "on_hold"
	ProjectStatusCompleted = "completed"
	ProjectStatusCancelled = "cancelled"
)

// Priority constants shared by projects and tasks.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Project belongs to exactly one team. NameKey is the lowercased name;
// together with TeamID it enforces per-team case-insensitive uniqueness.
type Project struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Name            string          `gorm:"size:200;not null" json:"name"`
	NameKey         string          `gorm:"uniqueIndex:idx_team_project_name;size:200;not null" json:"-"`
	Description     string          `gorm:"size:2000" json:"description"`
	TeamID          uint            `gorm:"uniqueIndex:idx_team_project_name;index;not null" json:"team_id"`
	Team            *Team           `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	ManagerID       uint            `gorm:"index;not null" json:"manager_id"`
	Manager         *User           `gorm:"foreignKey:ManagerID" json:"manager,omitempty"`
	Status          string          `gorm:"size:50;default:planning" json:"status"`
	Priority        string          `gorm:"size:50;default:medium" json:"priority"`
	StartDate       time.Time       `json:"start_date"`
	EndDate         time.Time       `json:"end_date"`
	ActualEndDate   *time.Time      `json:"actual_end_date"`
	BudgetAllocated float64         `gorm:"default:0" json:"budget_allocated"`
	BudgetSpent     float64         `gorm:"default:0" json:"budget_spent"`
	Members         []ProjectMember `gorm:"foreignKey:ProjectID" json:"members,omitempty"`
	CreatedBy       uint            `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Project) TableName() string { return "projects" }

// ValidProjectStatus reports whether s is a known project status.
func ValidProjectStatus(s string) bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusActive, ProjectStatusOnHold,
		ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ProjectActiveStatuses are the statuses that block team deletion.
var ProjectActiveStatuses = []string{ProjectStatusPlanning, ProjectStatusActive, ProjectStatusOnHold}
