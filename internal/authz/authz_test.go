package authz

import (
	"testing"

	"github.com/teamtrackhq/teamtrack/internal/models"
)

func user(id uint, role string) *models.User {
	return &models.User{ID: id, Role: role, IsActive: true}
}

func TestCanManageUsers(t *testing.T) {
	tests := []struct {
		name  string
		actor *models.User
		want  bool
	}{
		{"admin", user(1, models.RoleAdmin), true},
		{"team leader", user(2, models.RoleTeamLeader), false},
		{"member", user(3, models.RoleMember), false},
		{"inactive admin", &models.User{ID: 4, Role: models.RoleAdmin, IsActive: false}, false},
		{"nil actor", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanManageUsers(tt.actor); got != tt.want {
				t.Errorf("CanManageUsers() = %v, expected %v", got, tt.want)
			}
			// Team administration follows the same rule
			if got := CanManageTeams(tt.actor); got != tt.want {
				t.Errorf("CanManageTeams() = %v, expected %v", got, tt.want)
			}
		})
	}
}

func TestCanLeadTeam(t *testing.T) {
	team := &models.Team{ID: 10, LeaderID: 2}

	tests := []struct {
		name  string
		actor *models.User
		team  *models.Team
		want  bool
	}{
		{"admin anywhere", user(1, models.RoleAdmin), team, true},
		{"the leader", user(2, models.RoleTeamLeader), team, true},
		{"other team leader", user(5, models.RoleTeamLeader), team, false},
		{"member", user(3, models.RoleMember), team, false},
		{"inactive leader", &models.User{ID: 2, Role: models.RoleTeamLeader, IsActive: false}, team, false},
		{"nil team", user(1, models.RoleAdmin), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanLeadTeam(tt.actor, tt.team); got != tt.want {
				t.Errorf("CanLeadTeam() = %v, expected %v", got, tt.want)
			}
		})
	}
}

func TestCanManageProject(t *testing.T) {
	team := &models.Team{ID: 10, LeaderID: 2}
	project := &models.Project{ID: 20, TeamID: 10, ManagerID: 6}

	tests := []struct {
		name  string
		actor *models.User
		want  bool
	}{
		{"admin", user(1, models.RoleAdmin), true},
		{"project manager", user(6, models.RoleMember), true},
		{"team leader of owning team", user(2, models.RoleTeamLeader), true},
		{"unrelated member", user(3, models.RoleMember), false},
		{"unrelated team leader", user(7, models.RoleTeamLeader), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanManageProject(tt.actor, project, team); got != tt.want {
				t.Errorf("CanManageProject() = %v, expected %v", got, tt.want)
			}
		})
	}
}

func TestCanManageProject_NilTeam(t *testing.T) {
	project := &models.Project{ID: 20, TeamID: 10, ManagerID: 6}

	// Without the owning team resolved, leadership cannot be asserted,
	// but manager and admin grants still hold.
	if !CanManageProject(user(6, models.RoleMember), project, nil) {
		t.Error("manager should manage the project without team resolution")
	}
	if CanManageProject(user(2, models.RoleTeamLeader), project, nil) {
		t.Error("leadership must not be granted without the team")
	}
}

func TestCanAccessProject(t *testing.T) {
	team := &models.Team{ID: 10, LeaderID: 2}
	project := &models.Project{ID: 20, TeamID: 10, ManagerID: 6}

	tests := []struct {
		name     string
		actor    *models.User
		assigned bool
		want     bool
	}{
		{"assigned member", user(3, models.RoleMember), true, true},
		{"unassigned member", user(3, models.RoleMember), false, false},
		{"manager without assignment", user(6, models.RoleMember), false, true},
		{"admin without assignment", user(1, models.RoleAdmin), false, true},
		{"inactive assigned member", &models.User{ID: 3, Role: models.RoleMember}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAccessProject(tt.actor, project, team, tt.assigned); got != tt.want {
				t.Errorf("CanAccessProject() = %v, expected %v", got, tt.want)
			}
		})
	}
}

func TestCanModifyTask(t *testing.T) {
	team := &models.Team{ID: 10, LeaderID: 2}
	project := &models.Project{ID: 20, TeamID: 10, ManagerID: 6}
	task := &models.Task{ID: 30, ProjectID: 20, AssigneeID: 3, CreatorID: 4}

	tests := []struct {
		name  string
		actor *models.User
		want  bool
	}{
		{"admin", user(1, models.RoleAdmin), true},
		{"assignee", user(3, models.RoleMember), true},
		{"creator", user(4, models.RoleMember), true},
		{"project manager", user(6, models.RoleMember), true},
		{"team leader", user(2, models.RoleTeamLeader), true},
		{"unrelated member", user(9, models.RoleMember), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanModifyTask(tt.actor, task, project, team); got != tt.want {
				t.Errorf("CanModifyTask() = %v, expected %v", got, tt.want)
			}
		})
	}
}

func TestCanAccessTask(t *testing.T) {
	team := &models.Team{ID: 10, LeaderID: 2}
	project := &models.Project{ID: 20, TeamID: 10, ManagerID: 6}
	task := &models.Task{ID: 30, ProjectID: 20, AssigneeID: 3, CreatorID: 4}

	// A project participant who is neither assignee, creator nor manager
	// may read and comment but relies on the participant relation.
	participant := user(8, models.RoleMember)
	if !CanAccessTask(participant, task, project, team, true) {
		t.Error("project participant should access the task")
	}
	if CanAccessTask(participant, task, project, team, false) {
		t.Error("non-participant should not access the task")
	}
	if CanModifyTask(participant, task, project, team) {
		t.Error("participant access must not imply modify permission")
	}
}
