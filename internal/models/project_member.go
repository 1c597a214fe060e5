package models

import "time"

// Functional role tags within a project.
const (
	ProjectRoleManager   = "manager"
	ProjectRoleDeveloper = "developer"
	ProjectRoleTester    = "tester"
	ProjectRoleDesigner  = "designer"
	ProjectRoleOther     = "other"
)

// ProjectMember links a user to a project with a functional role. Rows are
// hard-deleted on removal so the (project, user) unique index permits
// re-adding.
type ProjectMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"uniqueIndex:idx_project_user;not null" json:"project_id"`
	Project   *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	UserID    uint      `gorm:"uniqueIndex:idx_project_user;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      string    `gorm:"size:50;default:developer" json:"role"` // manager, developer, tester, designer, other
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProjectMember) TableName() string { return "project_members" }

// ValidProjectRole reports whether r is a known functional role.
func ValidProjectRole(r string) bool {
	switch r {
	case ProjectRoleManager, ProjectRoleDeveloper, ProjectRoleTester,
		ProjectRoleDesigner, ProjectRoleOther:
		return true
	}
	return false
}
