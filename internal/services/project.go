package services

import (
	"errors"
	"strings"
	"time"

	"github.com/teamtrackhq/teamtrack/internal/authz"
	"github.com/teamtrackhq/teamtrack/internal/models"
	"github.com/teamtrackhq/teamtrack/pkg/response"
	"gorm.io/gorm"
)

type ProjectService struct {
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db}
}

type ProjectMemberInput struct {
	UserID uint   `json:"user_id" binding:"required"`
	Role   string `json:"role"`
}

type CreateProjectRequest struct {
	Name            string               `json:"name" binding:"required,min=1,max=200"`
	Description     string               `json:"description" binding:"max=2000"`
	TeamID          uint                 `json:"team_id" binding:"required"`
	ManagerID       uint                 `json:"manager_id" binding:"required"`
	Priority        string               `json:"priority"`
	StartDate       string               `json:"start_date" binding:"required"`
	EndDate         string               `json:"end_date" binding:"required"`
	BudgetAllocated float64              `json:"budget_allocated" binding:"omitempty,min=0"`
	Members         []ProjectMemberInput `json:"members"`
}

// Create registers a project under a team. The manager and every listed
// member must already be active members of the owning team, and the
// manager is carried in the project member set with the manager role.
func (s *ProjectService) Create(actorID uint, req *CreateProjectRequest) (*models.Project, error) {
	actor, appErr := findActiveUser(s.db, actorID)
	if appErr != nil {
		return nil, appErr
	}

	var team models.Team
	if err := s.db.First(&team, req.TeamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("team not found")
		}
		return nil, transient(err)
	}

	if !authz.CanLeadTeam(actor, &team) {
		return nil, response.NewPermissionDenied("only the team leader or an admin can create projects")
	}

	nameKey := strings.ToLower(strings.TrimSpace(req.Name))
	var count int64
	if err := s.db.Model(&models.Project{}).
		Where("team_id = ? AND name_key = ?", team.ID, nameKey).
		Count(&count).Error; err != nil {
		return nil, transient(err)
	}
	if count > 0 {
		return nil, response.NewDuplicateName("project name already in use within this team")
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.ValidPriority(priority) {
		return nil, response.NewValidation("invalid priority").WithField("priority", "must be low, medium, high or critical")
	}

	startDate, ok := parseDate(req.StartDate)
	if !ok {
		return nil, response.NewValidation("invalid start date").WithField("start_date", "expected YYYY-MM-DD")
	}
	endDate, ok := parseDate(req.EndDate)
	if !ok {
		return nil, response.NewValidation("invalid end date").WithField("end_date", "expected YYYY-MM-DD")
	}
	if !endDate.After(startDate) {
		return nil, response.NewValidation("project dates out of order").WithField("end_date", "must be after start_date")
	}

	manager, appErr := s.requireTeamMember(team.ID, req.ManagerID)
	if appErr != nil {
		return nil, appErr
	}

	memberRows := []models.ProjectMember{{UserID: manager.ID, Role: models.ProjectRoleManager}}
	seen := map[uint]bool{manager.ID: true}
	for _, m := range req.Members {
		if seen[m.UserID] {
			continue
		}
		seen[m.UserID] = true
		if _, appErr := s.requireTeamMember(team.ID, m.UserID); appErr != nil {
			return nil, appErr
		}
		role := m.Role
		if role == "" {
			role = models.ProjectRoleDeveloper
		}
		if !models.ValidProjectRole(role) {
			return nil, response.NewValidation("invalid project role").WithField("role", role)
		}
		memberRows = append(memberRows, models.ProjectMember{UserID: m.UserID, Role: role})
	}

	project := models.Project{
		Name:            strings.TrimSpace(req.Name),
		NameKey:         nameKey,
		Description:     req.Description,
		TeamID:          team.ID,
		ManagerID:       manager.ID,
		Status:          models.ProjectStatusPlanning,
		Priority:        priority,
		StartDate:       startDate,
		EndDate:         endDate,
		BudgetAllocated: req.BudgetAllocated,
		CreatedBy:       actor.ID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		for i := range memberRows {
			memberRows[i].ProjectID = project.ID
		}
		return tx.Create(&memberRows).Error
	})
	if err != nil {
		return nil, transient(err)
	}

	return s.loadProject(project.ID)
}

type UpdateProjectRequest struct {
	Name            *string  `json:"name"`
	Description     *string  `json:"description"`
	ManagerID       *uint    `json:"manager_id"`
	Status          *string  `json:"status"`
	Priority        *string  `json:"priority"`
	StartDate       *string  `json:"start_date"`
	EndDate         *string  `json:"end_date"`
	BudgetAllocated *float64 `json:"budget_allocated"`
	BudgetSpent     *float64 `json:"budget_spent"`
}

// Update modifies a project. Moving the status to completed stamps the
// actual end date; leaving completed clears it again.
func (s *ProjectService) Update(actorID, projectID uint, req *UpdateProjectRequest) (*models.Project, error) {
	actor, project, appErr := s.actorAndProject(actorID, projectID)
	if appErr != nil {
		return nil, appErr
	}
	if !authz.CanManageProject(actor, project, project.Team) {
		return nil, response.NewPermissionDenied("only the project manager, team leader or an admin can modify this project")
	}

	updates := make(map[string]interface{})

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, response.NewValidation("project name cannot be empty").WithField("name", "required")
		}
		nameKey := strings.ToLower(name)
		var count int64
		if err := s.db.Model(&models.Project{}).
			Where("team_id = ? AND name_key = ? AND id <> ?", project.TeamID, nameKey, projectID).
			Count(&count).Error; err != nil {
			return nil, transient(err)
		}
		if count > 0 {
			return nil, response.NewDuplicateName("project name already in use within this team")
		}
		updates["name"] = name
		updates["name_key"] = nameKey
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Priority != nil {
		if !models.ValidPriority(*req.Priority) {
			return nil, response.NewValidation("invalid priority").WithField("priority", *req.Priority)
		}
		updates["priority"] = *req.Priority
	}
	if req.BudgetAllocated != nil {
		if *req.BudgetAllocated < 0 {
			return nil, response.NewValidation("budget cannot be negative").WithField("budget_allocated", "min 0")
		}
		updates["budget_allocated"] = *req.BudgetAllocated
	}
	if req.BudgetSpent != nil {
		if *req.BudgetSpent < 0 {
			return nil, response.NewValidation("budget cannot be negative").WithField("budget_spent", "min 0")
		}
		updates["budget_spent"] = *req.BudgetSpent
	}

	startDate := project.StartDate
	endDate := project.EndDate
	if req.StartDate != nil {
		d, ok := parseDate(*req.StartDate)
		if !ok {
			return nil, response.NewValidation("invalid start date").WithField("start_date", "expected YYYY-MM-DD")
		}
		startDate = d
		updates["start_date"] = d
	}
	if req.EndDate != nil {
		d, ok := parseDate(*req.EndDate)
		if !ok {
			return nil, response.NewValidation("invalid end date").WithField("end_date", "expected YYYY-MM-DD")
		}
		endDate = d
		updates["end_date"] = d
	}
	if !endDate.After(startDate) {
		return nil, response.NewValidation("project dates out of order").WithField("end_date", "must be after start_date")
	}

	if req.ManagerID != nil && *req.ManagerID != project.ManagerID {
		newManager, appErr := s.requireTeamMember(project.TeamID, *req.ManagerID)
		if appErr != nil {
			return nil, appErr
		}
		updates["manager_id"] = newManager.ID
	}

	if req.Status != nil && *req.Status != project.Status {
		if !models.ValidProjectStatus(*req.Status) {
			return nil, response.NewValidation("invalid status").WithField("status", *req.Status)
		}
		updates["status"] = *req.Status
		if *req.Status == models.ProjectStatusCompleted {
			now := time.Now()
			updates["actual_end_date"] = &now
		} else if project.Status == models.ProjectStatusCompleted {
			updates["actual_end_date"] = gorm.Expr("NULL")
		}
	}

	if len(updates) == 0 {
		return nil, response.NewValidation("no fields to update")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(project).Updates(updates).Error; err != nil {
			return err
		}
		if mid, ok := updates["manager_id"]; ok {
			oldManagerID := project.ManagerID
			if err := tx.Model(&models.ProjectMember{}).
				Where("project_id = ? AND user_id = ?", projectID, oldManagerID).
				Update("role", models.ProjectRoleDeveloper).Error; err != nil {
				return err
			}
			var row models.ProjectMember
			err := tx.Where("project_id = ? AND user_id = ?", projectID, mid).First(&row).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return tx.Create(&models.ProjectMember{
					ProjectID: projectID,
					UserID:    mid.(uint),
					Role:      models.ProjectRoleManager,
				}).Error
			}
			if err != nil {
				return err
			}
			return tx.Model(&row).Update("role", models.ProjectRoleManager).Error
		}
		return nil
	})
	if err != nil {
		return nil, transient(err)
	}

	return s.loadProject(projectID)
}

func (s *ProjectService) AddMember(actorID, projectID uint, req *ProjectMemberInput) (*models.Project, error) {
	actor, project, appErr := s.actorAndProject(actorID, projectID)
	if appErr != nil {
		return nil, appErr
	}
	if !authz.CanManageProject(actor, project, project.Team) {
		return nil, response.NewPermissionDenied("only the project manager, team leader or an admin can manage members")
	}

	if _, appErr := s.requireTeamMember(project.TeamID, req.UserID); appErr != nil {
		return nil, appErr
	}

	present, appErr := isProjectMember(s.db, projectID, req.UserID)
	if appErr != nil {
		return nil, appErr
	}
	if present {
		return nil, response.NewConflict("user is already a member of this project")
	}

	role := req.Role
	if role == "" {
		role = models.ProjectRoleDeveloper
	}
	if !models.ValidProjectRole(role) || role == models.ProjectRoleManager {
		return nil, response.NewValidation("invalid project role").WithField("role", role)
	}

	row := models.ProjectMember{ProjectID: projectID, UserID: req.UserID, Role: role}
	if err := s.db.Create(&row).Error; err != nil {
		return nil, transient(err)
	}
	return s.loadProject(projectID)
}

// RemoveMember drops a user from the project. Rejected for the manager
// and for members still holding open tasks in the project.
func (s *ProjectService) RemoveMember(actorID, projectID, userID uint) (*models.Project, error) {
	actor, project, appErr := s.actorAndProject(actorID, projectID)
	if appErr != nil {
		return nil, appErr
	}
	if !authz.CanManageProject(actor, project, project.Team) {
		return nil, response.NewPermissionDenied("only the project manager, team leader or an admin can manage members")
	}
	if userID == project.ManagerID {
		return nil, response.NewConflict("cannot remove the project manager, reassign the manager first")
	}

	present, appErr := isProjectMember(s.db, projectID, userID)
	if appErr != nil {
		return nil, appErr
	}
	if !present {
		return nil, response.NewConflict("user is not a member of this project")
	}

	var count int64
	if err := s.db.Model(&models.Task{}).
		Where("project_id = ? AND assignee_id = ? AND status IN ?", projectID, userID, models.TaskOpenStatuses).
		Count(&count).Error; err != nil {
		return nil, transient(err)
	}
	if count > 0 {
		return nil, response.NewConflict("user still holds open tasks in this project")
	}

	result := s.db.Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&models.ProjectMember{})
	if result.Error != nil {
		return nil, transient(result.Error)
	}
	return s.loadProject(projectID)
}

// Delete removes a project. Rejected while any task is still open.
func (s *ProjectService) Delete(actorID, projectID uint) error {
	actor, project, appErr := s.actorAndProject(actorID, projectID)
	if appErr != nil {
		return appErr
	}
	if !authz.CanManageProject(actor, project, project.Team) {
		return response.NewPermissionDenied("only the project manager, team leader or an admin can delete this project")
	}

	var count int64
	if err := s.db.Model(&models.Task{}).
		Where("project_id = ? AND status IN ?", projectID, models.TaskOpenStatuses).
		Count(&count).Error; err != nil {
		return transient(err)
	}
	if count > 0 {
		return response.NewConflict("project still has open tasks")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(project).Error
	})
}

func (s *ProjectService) Get(actorID, projectID uint) (*models.Project, error) {
	actor, project, appErr := s.actorAndProject(actorID, projectID)
	if appErr != nil {
		return nil, appErr
	}

	assigned, appErr := isProjectMember(s.db, projectID, actor.ID)
	if appErr != nil {
		return nil, appErr
	}
	if !authz.CanAccessProject(actor, project, project.Team, assigned) {
		return nil, response.NewPermissionDenied("no access to this project")
	}
	return s.loadProject(projectID)
}

type ProjectListRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Sort     string `form:"sort"`
	Order    string `form:"order"`
	Search   string `form:"search"`
	TeamID   uint   `form:"team_id"`
	Status   string `form:"status"`
	Priority string `form:"priority"`
}

type ProjectListResponse struct {
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
	Items []models.Project `json:"items"`
}

var projectSortFields = map[string]bool{
	"created_at": true,
	"name":       true,
	"status":     true,
	"priority":   true,
	"start_date": true,
	"end_date":   true,
}

// List returns projects visible to the actor: admins see all, everyone
// else what they manage, lead through a team, or belong to.
func (s *ProjectService) List(actorID uint, req *ProjectListRequest) (*ProjectListResponse, error) {
	actor, appErr := findActiveUser(s.db, actorID)
	if appErr != nil {
		return nil, appErr
	}

	req.Page, req.Limit = normalizePage(req.Page, req.Limit)

	query := s.scopedProjects(actor)
	if req.TeamID != 0 {
		query = query.Where("team_id = ?", req.TeamID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Priority != "" {
		query = query.Where("priority = ?", req.Priority)
	}
	if req.Search != "" {
		query = query.Where("name LIKE ?", "%"+req.Search+"%")
	}

	var total int64
	query.Count(&total)

	var projects []models.Project
	offset := (req.Page - 1) * req.Limit
	order := orderClause(req.Sort, req.Order, projectSortFields)
	if err := query.Preload("Team").Preload("Manager").
		Offset(offset).Limit(req.Limit).Order(order).Find(&projects).Error; err != nil {
		return nil, transient(err)
	}

	return &ProjectListResponse{Total: total, Page: req.Page, Limit: req.Limit, Items: projects}, nil
}

type ProjectStats struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"by_status"`
	ByPriority map[string]int64 `json:"by_priority"`
}

func (s *ProjectService) Stats(actorID uint) (*ProjectStats, error) {
	actor, appErr := findActiveUser(s.db, actorID)
	if appErr != nil {
		return nil, appErr
	}

	stats := &ProjectStats{
		ByStatus:   make(map[string]int64),
		ByPriority: make(map[string]int64),
	}

	type bucket struct {
		Key   string
		Count int64
	}

	var rows []bucket
	if err := s.scopedProjects(actor).Select("status AS key, COUNT(*) AS count").
		Group("status").Scan(&rows).Error; err != nil {
		return nil, transient(err)
	}
	for _, r := range rows {
		stats.ByStatus[r.Key] = r.Count
		stats.Total += r.Count
	}

	rows = nil
	if err := s.scopedProjects(actor).Select("priority AS key, COUNT(*) AS count").
		Group("priority").Scan(&rows).Error; err != nil {
		return nil, transient(err)
	}
	for _, r := range rows {
		stats.ByPriority[r.Key] = r.Count
	}

	return stats, nil
}

func (s *ProjectService) scopedProjects(actor *models.User) *gorm.DB {
	query := s.db.Model(&models.Project{})
	if actor.Role == models.RoleAdmin {
		return query
	}
	return query.Where(
		"manager_id = ? OR team_id IN (?) OR id IN (?)",
		actor.ID,
		s.db.Model(&models.Team{}).Select("id").Where("leader_id = ?", actor.ID),
		s.db.Model(&models.ProjectMember{}).Select("project_id").Where("user_id = ?", actor.ID),
	)
}

func (s *ProjectService) actorAndProject(actorID, projectID uint) (*models.User, *models.Project, *response.AppError) {
	actor, appErr := findActiveUser(s.db, actorID)
	if appErr != nil {
		return nil, nil, appErr
	}
	project, appErr := loadProjectWithTeam(s.db, projectID)
	if appErr != nil {
		return nil, nil, appErr
	}
	return actor, project, nil
}

func (s *ProjectService) loadProject(id uint) (*models.Project, error) {
	var project models.Project
	if err := s.db.Preload("Team").Preload("Manager").
		Preload("Members").Preload("Members.User").
		First(&project, id).Error; err != nil {
		return nil, transient(err)
	}
	return &project, nil
}

// requireTeamMember resolves an active user and checks team membership.
func (s *ProjectService) requireTeamMember(teamID, userID uint) (*models.User, *response.AppError) {
	user, appErr := findActiveUser(s.db, userID)
	if appErr != nil {
		return nil, appErr
	}
	member, appErr := isTeamMember(s.db, teamID, userID)
	if appErr != nil {
		return nil, appErr
	}
	if !member {
		return nil, response.NewConflict("user is not a member of the owning team")
	}
	return user, nil
}
