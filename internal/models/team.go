package models

import (
	"time"

	"gorm.io/gorm"
)

// Team owns membership and leadership relations. NameKey holds the
// lowercased name so the unique index is case-insensitive.
type Team struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"size:200;not null" json:"name"`
	NameKey     string         `gorm:"uniqueIndex;size:200;not null" json:"-"`
	Description string         `gorm:"size:1000" json:"description"`
	LeaderID    uint           `gorm:"index;not null" json:"leader_id"`
	Leader      *User          `gorm:"foreignKey:LeaderID" json:"leader,omitempty"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	Members     []TeamMember   `gorm:"foreignKey:TeamID" json:"members,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Team) TableName() string { return "teams" }
