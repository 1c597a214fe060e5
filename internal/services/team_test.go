package services

import (
	"errors"
	"testing"

	"github.com/teamtrackhq/teamtrack/internal/models"
	"github.com/teamtrackhq/teamtrack/pkg/response"
)

func kindOf(err error) string {
	var appErr *response.AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

func TestTeamCreate_LeaderAlwaysInMemberSet(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTeamService(db)

	admin := createUser(t, db, "admin@example.com", models.RoleAdmin)
	leader := createUser(t, db, "leader@example.com", models.RoleTeamLeader)
	dev := createUser(t, db, "dev@example.com", models.RoleMember)

	// The leader is listed among the plain members too; the leader row
	// must still come out tagged team_leader, exactly once.
	team, err := svc.Create(admin.ID, &CreateTeamRequest{
		Name:      "Platform",
		LeaderID:  leader.ID,
		MemberIDs: []uint{leader.ID, dev.ID},
	})
	if err != nil {
		t.Fatalf("create team failed: %v", err)
	}

	var rows []models.TeamMember
	if err := db.Where("team_id = ?", team.ID).Find(&rows).Error; err != nil {
		t.Fatalf("load members: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("member rows = %d, expected 2", len(rows))
	}

	leaderRows := 0
	for _, row := range rows {
		if row.UserID == leader.ID {
			leaderRows++
			if row.Role != models.TeamRoleLeader {
				t.Errorf("leader row role = %q, expected %q", row.Role, models.TeamRoleLeader)
			}
		}
	}
	if leaderRows != 1 {
		t.Errorf("leader rows = %d, expected exactly 1", leaderRows)
	}
}

func TestTeamCreate_RequiresAdminAndUniqueName(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTeamService(db)

	admin := createUser(t, db, "admin@example.com", models.RoleAdmin)
	leader := createUser(t, db, "leader@example.com", models.RoleTeamLeader)

	if _, err := svc.Create(leader.ID, &CreateTeamRequest{Name: "Platform", LeaderID: leader.ID}); kindOf(err) != response.KindPermissionDenied {
		t.Errorf("non-admin create: expected %s, got %v", response.KindPermissionDenied, err)
	}

	if _, err := svc.Create(admin.ID, &CreateTeamRequest{Name: "Platform", LeaderID: leader.ID}); err != nil {
		t.Fatalf("create team failed: %v", err)
	}

	// Case-insensitive collision.
	if _, err := svc.Create(admin.ID, &CreateTeamRequest{Name: "PLATFORM", LeaderID: leader.ID}); kindOf(err) != response.KindDuplicateName {
		t.Errorf("duplicate name: expected %s, got %v", response.KindDuplicateName, err)
	}
}

func TestTeamReassignLeader(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTeamService(db)

	admin := createUser(t, db, "admin@example.com", models.RoleAdmin)
	oldLeader := createUser(t, db, "old@example.com", models.RoleTeamLeader)
	newLeader := createUser(t, db, "new@example.com", models.RoleTeamLeader)
	member := createUser(t, db, "member@example.com", models.RoleMember)
	team := createTeam(t, db, "Platform", oldLeader)

	// A plain member cannot take over leadership.
	if _, err := svc.ReassignLeader(admin.ID, team.ID, &ReassignLeaderRequest{LeaderID: member.ID}); kindOf(err) != response.KindConflict {
		t.Errorf("member as leader: expected %s, got %v", response.KindConflict, err)
	}

	updated, err := svc.ReassignLeader(admin.ID, team.ID, &ReassignLeaderRequest{LeaderID: newLeader.ID})
	if err != nil {
		t.Fatalf("reassign leader failed: %v", err)
	}
	if updated.LeaderID != newLeader.ID {
		t.Errorf("leader_id = %d, expected %d", updated.LeaderID, newLeader.ID)
	}

	// Old leader stays on as a member; new leader is tagged team_leader.
	var rows []models.TeamMember
	db.Where("team_id = ?", team.ID).Find(&rows)
	for _, row := range rows {
		switch row.UserID {
		case oldLeader.ID:
			if row.Role != models.TeamRoleMember {
				t.Errorf("old leader role = %q, expected %q", row.Role, models.TeamRoleMember)
			}
		case newLeader.ID:
			if row.Role != models.TeamRoleLeader {
				t.Errorf("new leader role = %q, expected %q", row.Role, models.TeamRoleLeader)
			}
		}
	}
}

func TestTeamMembers_AddRemoveGuards(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTeamService(db)

	leader := createUser(t, db, "leader@example.com", models.RoleTeamLeader)
	dev := createUser(t, db, "dev@example.com", models.RoleMember)
	team := createTeam(t, db, "Platform", leader)

	if _, err := svc.AddMember(leader.ID, team.ID, &TeamMemberRequest{UserID: dev.ID}); err != nil {
		t.Fatalf("add member failed: %v", err)
	}
	// Adding twice conflicts.
	if _, err := svc.AddMember(leader.ID, team.ID, &TeamMemberRequest{UserID: dev.ID}); kindOf(err) != response.KindConflict {
		t.Errorf("double add: expected %s, got %v", response.KindConflict, err)
	}

	// The leader cannot be removed from their own team.
	if _, err := svc.RemoveMember(leader.ID, team.ID, leader.ID); kindOf(err) != response.KindConflict {
		t.Errorf("remove leader: expected %s, got %v", response.KindConflict, err)
	}

	if _, err := svc.RemoveMember(leader.ID, team.ID, dev.ID); err != nil {
		t.Fatalf("remove member failed: %v", err)
	}
	// Removing an absent member conflicts.
	if _, err := svc.RemoveMember(leader.ID, team.ID, dev.ID); kindOf(err) != response.KindConflict {
		t.Errorf("remove absent: expected %s, got %v", response.KindConflict, err)
	}

	// Re-adding after removal works (join rows are hard-deleted).
	if _, err := svc.AddMember(leader.ID, team.ID, &TeamMemberRequest{UserID: dev.ID}); err != nil {
		t.Errorf("re-add member failed: %v", err)
	}
}

func TestTeamDelete_BlockedByUnfinishedProjects(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTeamService(db)

	admin := createUser(t, db, "admin@example.com", models.RoleAdmin)
	leader := createUser(t, db, "leader@example.com", models.RoleTeamLeader)
	team := createTeam(t, db, "Platform", leader)
	project := createProject(t, db, "Rollout", team, leader)

	if err := svc.Delete(admin.ID, team.ID); kindOf(err) != response.KindConflict {
		t.Errorf("delete with planning project: expected %s, got %v", response.KindConflict, err)
	}

	db.Model(project).Update("status", models.ProjectStatusCompleted)

	if err := svc.Delete(admin.ID, team.ID); err != nil {
		t.Fatalf("delete after completion failed: %v", err)
	}

	var memberRows int64
	db.Model(&models.TeamMember{}).Where("team_id = ?", team.ID).Count(&memberRows)
	if memberRows != 0 {
		t.Errorf("member rows after delete = %d, expected 0", memberRows)
	}
}

func TestTeamList_ScopedToMembership(t *testing.T) {
	db := setupTestDB(t)
	svc := NewTeamService(db)

	admin := createUser(t, db, "admin@example.com", models.RoleAdmin)
	leaderA := createUser(t, db, "a@example.com", models.RoleTeamLeader)
	leaderB := createUser(t, db, "b@example.com", models.RoleTeamLeader)
	createTeam(t, db, "Alpha", leaderA)
	createTeam(t, db, "Beta", leaderB)

	all, err := svc.List(admin.ID, &TeamListRequest{})
	if err != nil {
		t.Fatalf("admin list failed: %v", err)
	}
	if all.Total != 2 {
		t.Errorf("admin sees %d teams, expected 2", all.Total)
	}

	mine, err := svc.List(leaderA.ID, &TeamListRequest{})
	if err != nil {
		t.Fatalf("leader list failed: %v", err)
	}
	if mine.Total != 1 {
		t.Errorf("leader sees %d teams, expected 1", mine.Total)
	}
	if len(mine.Items) == 1 && mine.Items[0].Name != "Alpha" {
		t.Errorf("leader sees team %q, expected Alpha", mine.Items[0].Name)
	}
}
