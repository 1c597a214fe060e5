package services

import (
	"testing"

	"github.com/teamtrackhq/teamtrack/internal/models"
	"github.com/teamtrackhq/teamtrack/pkg/response"
)

func TestUserChangeRole_DemoteBlockedWhileLeadingTeam(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db)

	admin := createUser(t, db, "admin@example.com", models.RoleAdmin)
	leader := createUser(t, db, "leader@example.com", models.RoleTeamLeader)
	team := createTeam(t, db, "Platform", leader)

	if _, err := svc.ChangeRole(admin.ID, leader.ID, &ChangeRoleRequest{Role: models.RoleMember}); kindOf(err) != response.KindConflict {
		t.Errorf("demote active leader: expected %s, got %v", response.KindConflict, err)
	}

	// Archiving the team releases the guard.
	db.Model(team).Update("is_active", false)

	demoted, err := svc.ChangeRole(admin.ID, leader.ID, &ChangeRoleRequest{Role: models.RoleMember})
	if err != nil {
		t.Fatalf("demote failed: %v", err)
	}
	if demoted.Role != models.RoleMember {
		t.Errorf("role = %q, expected %q", demoted.Role, models.RoleMember)
	}
}

func TestUserChangeRole_Guards(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db)

	admin := createUser(t, db, "admin@example.com", models.RoleAdmin)
	other := createUser(t, db, "other@example.com", models.RoleAdmin)
	member := createUser(t, db, "member@example.com", models.RoleMember)

	// Admin accounts are not demotable.
	if _, err := svc.ChangeRole(admin.ID, other.ID, &ChangeRoleRequest{Role: models.RoleMember}); kindOf(err) != response.KindConflict {
		t.Errorf("demote admin: expected %s, got %v", response.KindConflict, err)
	}

	// Non-admins cannot change roles.
	if _, err := svc.ChangeRole(member.ID, member.ID, &ChangeRoleRequest{Role: models.RoleTeamLeader}); kindOf(err) != response.KindPermissionDenied {
		t.Errorf("member promoting self: expected %s, got %v", response.KindPermissionDenied, err)
	}

	promoted, err := svc.ChangeRole(admin.ID, member.ID, &ChangeRoleRequest{Role: models.RoleTeamLeader})
	if err != nil {
		t.Fatalf("promote failed: %v", err)
	}
	if promoted.Role != models.RoleTeamLeader {
		t.Errorf("role = %q, expected %q", promoted.Role, models.RoleTeamLeader)
	}
}

func TestUserDelete_DependencyGuards(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db)

	admin := createUser(t, db, "admin@example.com", models.RoleAdmin)
	leader := createUser(t, db, "leader@example.com", models.RoleTeamLeader)
	dev := createUser(t, db, "dev@example.com", models.RoleMember)
	team := createTeam(t, db, "Platform", leader, dev)
	project := createProject(t, db, "Rollout", team, leader, dev)
	task := createTask(t, db, "Ship it", project, dev, leader)

	// Leads a team.
	if err := svc.Delete(admin.ID, leader.ID); kindOf(err) != response.KindConflict {
		t.Errorf("delete team leader: expected %s, got %v", response.KindConflict, err)
	}

	// Holds an open task.
	if err := svc.Delete(admin.ID, dev.ID); kindOf(err) != response.KindConflict {
		t.Errorf("delete assignee of open task: expected %s, got %v", response.KindConflict, err)
	}

	db.Model(task).Update("status", models.TaskStatusCompleted)

	if err := svc.Delete(admin.ID, dev.ID); err != nil {
		t.Fatalf("delete after task completion failed: %v", err)
	}

	var memberRows int64
	db.Model(&models.TeamMember{}).Where("user_id = ?", dev.ID).Count(&memberRows)
	if memberRows != 0 {
		t.Errorf("team member rows after delete = %d, expected 0", memberRows)
	}
}

func TestUserDelete_SelfAndNonAdmin(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db)

	admin := createUser(t, db, "admin@example.com", models.RoleAdmin)
	member := createUser(t, db, "member@example.com", models.RoleMember)

	if err := svc.Delete(admin.ID, admin.ID); kindOf(err) != response.KindConflict {
		t.Errorf("self delete: expected %s, got %v", response.KindConflict, err)
	}
	if err := svc.Delete(member.ID, admin.ID); kindOf(err) != response.KindPermissionDenied {
		t.Errorf("non-admin delete: expected %s, got %v", response.KindPermissionDenied, err)
	}
}

func TestUserUpdate_SelfNicknameOnly(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db)

	member := createUser(t, db, "member@example.com", models.RoleMember)
	other := createUser(t, db, "other@example.com", models.RoleMember)

	nickname := "The Dev"
	updated, err := svc.Update(member.ID, member.ID, &UpdateUserRequest{Nickname: &nickname})
	if err != nil {
		t.Fatalf("self nickname update failed: %v", err)
	}
	if updated.Nickname != nickname {
		t.Errorf("nickname = %q, expected %q", updated.Nickname, nickname)
	}

	// Non-admins cannot touch other accounts or privileged fields.
	if _, err := svc.Update(member.ID, other.ID, &UpdateUserRequest{Nickname: &nickname}); kindOf(err) != response.KindPermissionDenied {
		t.Errorf("update other user: expected %s, got %v", response.KindPermissionDenied, err)
	}
	inactive := false
	if _, err := svc.Update(member.ID, member.ID, &UpdateUserRequest{IsActive: &inactive}); kindOf(err) != response.KindPermissionDenied {
		t.Errorf("self deactivate: expected %s, got %v", response.KindPermissionDenied, err)
	}
}
