package services

import (
	"strings"
	"testing"
	"time"

	"github.com/teamtrackhq/teamtrack/internal/config"
	"github.com/teamtrackhq/teamtrack/internal/models"
	"github.com/teamtrackhq/teamtrack/internal/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	utils.SetJWTSecret("test-secret-for-service-testing")
}

// setupTestDB opens a fresh in-memory database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Team{},
		&models.TeamMember{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Task{},
		&models.TaskDependency{},
		&models.TaskComment{},
		&models.TaskProgressUpdate{},
		&models.Notification{},
		&models.ActivityLog{},
		&models.SchedulerLock{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func testAuthService(db *gorm.DB) *AuthService {
	return NewAuthService(db,
		&config.LDAPConfig{Enabled: false},
		&config.JWTConfig{Secret: "test-secret-for-service-testing", ExpireHour: 24, RefreshExpireHour: 720},
	)
}

// createUser inserts an active user with a bcrypt password of "password123".
func createUser(t *testing.T, db *gorm.DB, email, role string) *models.User {
	t.Helper()

	hashed, err := utils.HashPassword("password123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	email = strings.ToLower(email)
	user := models.User{
		Username: email,
		Email:    email,
		Password: hashed,
		Nickname: strings.SplitN(email, "@", 2)[0],
		Role:     role,
		AuthType: models.AuthTypeLocal,
		IsActive: true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", email, err)
	}
	return &user
}

// createTeam inserts a team led by leader, with leader in the member set.
func createTeam(t *testing.T, db *gorm.DB, name string, leader *models.User, members ...*models.User) *models.Team {
	t.Helper()

	team := models.Team{
		Name:     name,
		NameKey:  strings.ToLower(name),
		LeaderID: leader.ID,
		IsActive: true,
	}
	if err := db.Create(&team).Error; err != nil {
		t.Fatalf("failed to create team %s: %v", name, err)
	}

	rows := []models.TeamMember{{TeamID: team.ID, UserID: leader.ID, Role: models.TeamRoleLeader}}
	for _, m := range members {
		rows = append(rows, models.TeamMember{TeamID: team.ID, UserID: m.ID, Role: models.TeamRoleMember})
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("failed to add team members: %v", err)
	}
	return &team
}

// createProject inserts a planning project managed by manager, with the
// manager in the project member set.
func createProject(t *testing.T, db *gorm.DB, name string, team *models.Team, manager *models.User, members ...*models.User) *models.Project {
	t.Helper()

	project := models.Project{
		Name:      name,
		NameKey:   strings.ToLower(name),
		TeamID:    team.ID,
		ManagerID: manager.ID,
		Status:    models.ProjectStatusPlanning,
		Priority:  models.PriorityMedium,
		StartDate: mustDate(t, "2026-01-01"),
		EndDate:   mustDate(t, "2026-12-31"),
		CreatedBy: manager.ID,
	}
	if err := db.Create(&project).Error; err != nil {
		t.Fatalf("failed to create project %s: %v", name, err)
	}

	rows := []models.ProjectMember{{ProjectID: project.ID, UserID: manager.ID, Role: models.ProjectRoleManager}}
	for _, m := range members {
		rows = append(rows, models.ProjectMember{ProjectID: project.ID, UserID: m.ID, Role: models.ProjectRoleDeveloper})
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("failed to add project members: %v", err)
	}
	return &project
}

// createTask inserts a todo task assigned to assignee.
func createTask(t *testing.T, db *gorm.DB, title string, project *models.Project, assignee, creator *models.User) *models.Task {
	t.Helper()

	task := models.Task{
		Title:      title,
		ProjectID:  project.ID,
		AssigneeID: assignee.ID,
		CreatorID:  creator.ID,
		Status:     models.TaskStatusTodo,
		Priority:   models.PriorityMedium,
		Type:       models.TaskTypeFeature,
		StartDate:  mustDate(t, "2026-02-01"),
		DueDate:    mustDate(t, "2026-03-01"),
	}
	if err := db.Create(&task).Error; err != nil {
		t.Fatalf("failed to create task %s: %v", title, err)
	}
	return &task
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	d, ok := parseDate(value)
	if !ok {
		t.Fatalf("bad test date %q", value)
	}
	return d
}
