package models

import "time"

// Team membership role tags. Exactly one member per team carries
// TeamRoleLeader, and that member is always the team's LeaderID.
const (
	TeamRoleLeader = "team_leader"
	TeamRoleMember = "member"
)

// TeamMember links a user to a team with a role tag. Rows are hard-deleted
// on removal so the (team, user) unique index permits re-adding.
type TeamMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TeamID    uint      `gorm:"uniqueIndex:idx_team_user;not null" json:"team_id"`
	Team      *Team     `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	UserID    uint      `gorm:"uniqueIndex:idx_team_user;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      string    `gorm:"size:50;default:member" json:"role"` // team_leader, member
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TeamMember) TableName() string { return "team_members" }
