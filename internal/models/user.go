package models

import (
	"time"

	"gorm.io/gorm"
)

// Global role constants. A user holds exactly one of these; everything the
// authorization engine decides starts from this field.
const (
	RoleAdmin      = "admin"
	RoleTeamLeader = "team_leader"
	RoleMember     = "member"
)

// Auth type constants.
const (
	AuthTypeLocal = "local"
	AuthTypeLDAP  = "ldap"
)

// User represents a system user. Email is stored lowercased so the unique
// index enforces case-insensitive identity. An inactive user is treated as
// non-existent by every registry.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Email     string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password  string         `gorm:"size:255" json:"-"` // bcrypt hash, empty for LDAP users
	Nickname  string         `gorm:"size:100" json:"nickname"`
	Role      string         `gorm:"size:50;default:member" json:"role"`     // admin, team_leader, member
	AuthType  string         `gorm:"size:20;default:local" json:"auth_type"` // local, ldap
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	LastLogin *time.Time     `json:"last_login"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

// ValidRole reports whether role is one of the three global roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleTeamLeader || role == RoleMember
}
