package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teamtrackhq/teamtrack/internal/authz"
	"github.com/teamtrackhq/teamtrack/internal/models"
	"github.com/teamtrackhq/teamtrack/pkg/response"
	"gorm.io/gorm"
)

type TaskService struct {
	db *gorm.DB
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db}
}

type TaskDependencyInput struct {
	DependsOnID uint   `json:"depends_on_id" binding:"required"`
	Kind        string `json:"kind"`
}

type CreateTaskRequest struct {
	Title          string                `json:"title" binding:"required,min=1,max=300"`
	Description    string                `json:"description"`
	ProjectID      uint                  `json:"project_id" binding:"required"`
	AssigneeID     uint                  `json:"assignee_id" binding:"required"`
	Priority       string                `json:"priority"`
	Type           string                `json:"type"`
	EstimatedHours float64               `json:"estimated_hours" binding:"omitempty,min=0"`
	StartDate      string                `json:"start_date"`
	DueDate        string                `json:"due_date" binding:"required"`
	Dependencies   []TaskDependencyInput `json:"dependencies"`
}

// Create registers a task under a project. The assignee must be the
// project manager or an assigned member, and every dependency must point
// at a task of the same project.
func (s *TaskService) Create(actorID uint, req *CreateTaskRequest) (*models.Task, error) {
	actor, appErr := findActiveUser(s.db, actorID)
	if appErr != nil {
		return nil, appErr
	}
	project, appErr := loadProjectWithTeam(s.db, req.ProjectID)
	if appErr != nil {
		return nil, appErr
	}
	if !authz.CanManageProject(actor, project, project.Team) {
		return nil, response.NewPermissionDenied("only the project manager, team leader or an admin can create tasks")
	}

	assignee, appErr := s.requireProjectParticipant(project, req.AssigneeID)
	if appErr != nil {
		return nil, appErr
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.ValidPriority(priority) {
		return nil, response.NewValidation("invalid priority").WithField("priority", priority)
	}
	taskType := req.Type
	if taskType == "" {
		taskType = models.TaskTypeFeature
	}
	if !models.ValidTaskType(taskType) {
		return nil, response.NewValidation("invalid task type").WithField("type", taskType)
	}

	startDate := time.Now().Truncate(24 * time.Hour)
	if req.StartDate != "" {
		d, ok := parseDate(req.StartDate)
		if !ok {
			return nil, response.NewValidation("invalid start date").WithField("start_date", "expected YYYY-MM-DD")
		}
		startDate = d
	}
	dueDate, ok := parseDate(req.DueDate)
	if !ok {
		return nil, response.NewValidation("invalid due date").WithField("due_date", "expected YYYY-MM-DD")
	}
	if !dueDate.After(startDate) {
		return nil, response.NewValidation("task dates out of order").WithField("due_date", "must be after start_date")
	}

	deps := make([]models.TaskDependency, 0, len(req.Dependencies))
	seen := make(map[uint]bool, len(req.Dependencies))
	for _, d := range req.Dependencies {
		if seen[d.DependsOnID] {
			continue
		}
		seen[d.DependsOnID] = true
		kind := d.Kind
		if kind == "" {
			kind = models.DependencyDependsOn
		}
		if !models.ValidDependencyKind(kind) {
			return nil, response.NewValidation("invalid dependency kind").WithField("kind", d.Kind)
		}
		var dep models.Task
		if err := s.db.First(&dep, d.DependsOnID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, response.NewNotFound("dependency task not found")
			}
			return nil, transient(err)
		}
		if dep.ProjectID != project.ID {
			return nil, response.NewConflict("dependencies must belong to the same project")
		}
		deps = append(deps, models.TaskDependency{DependsOnID: dep.ID, Kind: kind})
	}

	task := models.Task{
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		ProjectID:      project.ID,
		AssigneeID:     assignee.ID,
		CreatorID:      actor.ID,
		Status:         models.TaskStatusTodo,
		Priority:       priority,
		Type:           taskType,
		EstimatedHours: req.EstimatedHours,
		StartDate:      startDate,
		DueDate:        dueDate,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return err
		}
		if len(deps) == 0 {
			return nil
		}
		for i := range deps {
			deps[i].TaskID = task.ID
		}
		return tx.Create(&deps).Error
	})
	if err != nil {
		return nil, transient(err)
	}

	if assignee.ID != actor.ID {
		notify(assignee.ID, models.NotifyTaskAssigned, &task.ID, &project.ID,
			fmt.Sprintf("You have been assigned task %q in project %q", task.Title, project.Name))
	}

	return s.loadTask(task.ID)
}

type UpdateTaskRequest struct {
	Title          *string  `json:"title"`
	Description    *string  `json:"description"`
	AssigneeID     *uint    `json:"assignee_id"`
	Status         *string  `json:"status"`
	Priority       *string  `json:"priority"`
	Type           *string  `json:"type"`
	EstimatedHours *float64 `json:"estimated_hours"`
	StartDate      *string  `json:"start_date"`
	DueDate        *string  `json:"due_date"`
}

// Update modifies a task. Moving the status to completed stamps the
// completion date; moving away from completed clears it.
func (s *TaskService) Update(actorID, taskID uint, req *UpdateTaskRequest) (*models.Task, error) {
	actor, task, project, appErr := s.actorAndTask(actorID, taskID)
	if appErr != nil {
		return nil, appErr
	}
	if !authz.CanModifyTask(actor, task, project, project.Team) {
		return nil, response.NewPermissionDenied("no permission to modify this task")
	}

	updates := make(map[string]interface{})

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, response.NewValidation("task title cannot be empty").WithField("title", "required")
		}
		updates["title"] = title
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
	if req.Type != nil {
		if !models.ValidTaskType(*req.Type) {
			return nil, response.NewValidation("invalid task type").WithField("type", *req.Type)
		}
		updates["type"] = *req.Type
	}
	if req.EstimatedHours != nil {
		if *req.EstimatedHours < 0 {
			return nil, response.NewValidation("hours cannot be negative").WithField("estimated_hours", "min 0")
		}
		updates["estimated_hours"] = *req.EstimatedHours
	}

	startDate := task.StartDate
	dueDate := task.DueDate
	if req.StartDate != nil {
		d, ok := parseDate(*req.StartDate)
		if !ok {
			return nil, response.NewValidation("invalid start date").WithField("start_date", "expected YYYY-MM-DD")
		}
		startDate = d
		updates["start_date"] = d
	}
	if req.DueDate != nil {
		d, ok := parseDate(*req.DueDate)
		if !ok {
			return nil, response.NewValidation("invalid due date").WithField("due_date", "expected YYYY-MM-DD")
		}
		dueDate = d
		updates["due_date"] = d
	}
	if !dueDate.After(startDate) {
		return nil, response.NewValidation("task dates out of order").WithField("due_date", "must be after start_date")
	}

	var newAssignee *models.User
	if req.AssigneeID != nil && *req.AssigneeID != task.AssigneeID {
		assignee, appErr := s.requireProjectParticipant(project, *req.AssigneeID)
		if appErr != nil {
			return nil, appErr
		}
		newAssignee = assignee
		updates["assignee_id"] = assignee.ID
	}

	if req.Status != nil && *req.Status != task.Status {
		if !models.ValidTaskStatus(*req.Status) {
			return nil, response.NewValidation("invalid status").WithField("status", *req.Status)
		}
		updates["status"] = *req.Status
		applyCompletionStamp(updates, task.Status, *req.Status)
	}

	if len(updates) == 0 {
		return nil, response.NewValidation("no fields to update")
	}

	if err := s.db.Model(task).Updates(updates).Error; err != nil {
		return nil, transient(err)
	}

	if newAssignee != nil && newAssignee.ID != actor.ID {
		notify(newAssignee.ID, models.NotifyTaskAssigned, &task.ID, &project.ID,
			fmt.Sprintf("You have been assigned task %q in project %q", task.Title, project.Name))
	}

	return s.loadTask(taskID)
}

type RecordProgressRequest struct {
	Status      string  `json:"status" binding:"required"`
	Comment     string  `json:"comment" binding:"max=2000"`
	HoursWorked float64 `json:"hours_worked" binding:"omitempty,min=0"`
}

// RecordProgress appends a progress record, sets the task status and adds
// the hours worked to the task's accumulated total.
func (s *TaskService) RecordProgress(actorID, taskID uint, req *RecordProgressRequest) (*models.Task, error) {
	actor, task, project, appErr := s.actorAndTask(actorID, taskID)
	if appErr != nil {
		return nil, appErr
	}

	// Any project participant may record progress, not just those allowed
	// to edit the task itself.
	participant, appErr := isProjectMember(s.db, project.ID, actor.ID)
	if appErr != nil {
		return nil, appErr
	}
	if !authz.CanModifyTask(actor, task, project, project.Team) && !participant {
		return nil, response.NewPermissionDenied("no permission to record progress on this task")
	}

	if !models.ValidTaskStatus(req.Status) {
		return nil, response.NewValidation("invalid status").WithField("status", req.Status)
	}

	record := models.TaskProgressUpdate{
		TaskID:      task.ID,
		AuthorID:    actor.ID,
		Status:      req.Status,
		Comment:     req.Comment,
		HoursWorked: req.HoursWorked,
	}

	updates := map[string]interface{}{
		"status":       req.Status,
		"actual_hours": gorm.Expr("actual_hours + ?", req.HoursWorked),
	}
	applyCompletionStamp(updates, task.Status, req.Status)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return tx.Model(task).Updates(updates).Error
	})
	if err != nil {
		return nil, transient(err)
	}

	if task.AssigneeID != actor.ID {
		notify(task.AssigneeID, models.NotifyTaskProgress, &task.ID, &project.ID,
			fmt.Sprintf("Task %q moved to %s", task.Title, req.Status))
	}

	return s.loadTask(taskID)
}

type AddCommentRequest struct {
	Content string `json:"content" binding:"required,min=1,max=2000"`
}

// AddComment appends a comment. Any project participant may comment.
func (s *TaskService) AddComment(actorID, taskID uint, req *AddCommentRequest) (*models.TaskComment, error) {
	actor, task, project, appErr := s.actorAndTask(actorID, taskID)
	if appErr != nil {
		return nil, appErr
	}

	participant, appErr := isProjectMember(s.db, project.ID, actor.ID)
	if appErr != nil {
		return nil, appErr
	}
	if !authz.CanAccessTask(actor, task, project, project.Team, participant) {
		return nil, response.NewPermissionDenied("no access to this task")
	}

	comment := models.TaskComment{
		TaskID:   task.ID,
		AuthorID: actor.ID,
		Content:  req.Content,
	}
	if err := s.db.Create(&comment).Error; err != nil {
		return nil, transient(err)
	}

	if task.AssigneeID != actor.ID {
		notify(task.AssigneeID, models.NotifyTaskComment, &task.ID, &project.ID,
			fmt.Sprintf("New comment on task %q", task.Title))
	}

	s.db.Preload("Author").First(&comment, comment.ID)
	return &comment, nil
}

// Comments returns a task's comments, oldest first.
func (s *TaskService) Comments(actorID, taskID uint) ([]models.TaskComment, error) {
	actor, task, project, appErr := s.actorAndTask(actorID, taskID)
	if appErr != nil {
		return nil, appErr
	}
	participant, appErr := isProjectMember(s.db, project.ID, actor.ID)
	if appErr != nil {
		return nil, appErr
	}
	if !authz.CanAccessTask(actor, task, project, project.Team, participant) {
		return nil, response.NewPermissionDenied("no access to this task")
	}

	var comments []models.TaskComment
	if err := s.db.Preload("Author").
		Where("task_id = ?", taskID).Order("created_at ASC").
		Find(&comments).Error; err != nil {
		return nil, transient(err)
	}
	return comments, nil
}

// ProgressHistory returns a task's progress records, oldest first.
func (s *TaskService) ProgressHistory(actorID, taskID uint) ([]models.TaskProgressUpdate, error) {
	actor, task, project, appErr := s.actorAndTask(actorID, taskID)
	if appErr != nil {
		return nil, appErr
	}
	participant, appErr := isProjectMember(s.db, project.ID, actor.ID)
	if appErr != nil {
		return nil, appErr
	}
	if !authz.CanAccessTask(actor, task, project, project.Team, participant) {
		return nil, response.NewPermissionDenied("no access to this task")
	}

	var records []models.TaskProgressUpdate
	if err := s.db.Preload("Author").
		Where("task_id = ?", taskID).Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, transient(err)
	}
	return records, nil
}

// Delete removes a task. Rejected while a non-terminal task still points a
// dependency edge at it; edges in both directions are cleaned up.
func (s *TaskService) Delete(actorID, taskID uint) error {
	actor, task, project, appErr := s.actorAndTask(actorID, taskID)
	if appErr != nil {
		return appErr
	}
	if !authz.CanModifyTask(actor, task, project, project.Team) {
		return response.NewPermissionDenied("no permission to delete this task")
	}

	var count int64
	if err := s.db.Model(&models.TaskDependency{}).
		Joins("JOIN tasks ON tasks.id = task_dependencies.task_id").
		Where("task_dependencies.depends_on_id = ? AND tasks.status IN ? AND tasks.deleted_at IS NULL",
			taskID, models.TaskOpenStatuses).
		Count(&count).Error; err != nil {
		return transient(err)
	}
	if count > 0 {
		return response.NewConflict("open tasks still depend on this task")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ? OR depends_on_id = ?", taskID, taskID).
			Delete(&models.TaskDependency{}).Error; err != nil {
			return err
		}
		return tx.Delete(task).Error
	})
}

func (s *TaskService) Get(actorID, taskID uint) (*models.Task, error) {
	actor, task, project, appErr := s.actorAndTask(actorID, taskID)
	if appErr != nil {
		return nil, appErr
	}
	participant, appErr := isProjectMember(s.db, project.ID, actor.ID)
	if appErr != nil {
		return nil, appErr
	}
	if !authz.CanAccessTask(actor, task, project, project.Team, participant) {
		return nil, response.NewPermissionDenied("no access to this task")
	}
	return s.loadTask(taskID)
}

type TaskListRequest struct {
	Page       int    `form:"page" binding:"omitempty,min=1"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Sort       string `form:"sort"`
	Order      string `form:"order"`
	Search     string `form:"search"`
	ProjectID  uint   `form:"project_id"`
	AssigneeID uint   `form:"assignee_id"`
	Status     string `form:"status"`
	Priority   string `form:"priority"`
	Type       string `form:"type"`
	Overdue    bool   `form:"overdue"`
}

type TaskListResponse struct {
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Items []models.Task `json:"items"`
}

var taskSortFields = map[string]bool{
	"created_at": true,
	"title":      true,
	"status":     true,
	"priority":   true,
	"due_date":   true,
	"start_date": true,
}

// List returns tasks in projects visible to the actor.
func (s *TaskService) List(actorID uint, req *TaskListRequest) (*TaskListResponse, error) {
	actor, appErr := findActiveUser(s.db, actorID)
	if appErr != nil {
		return nil, appErr
	}

	req.Page, req.Limit = normalizePage(req.Page, req.Limit)

	query := s.scopedTasks(actor)
	if req.ProjectID != 0 {
		query = query.Where("project_id = ?", req.ProjectID)
	}
	if req.AssigneeID != 0 {
		query = query.Where("assignee_id = ?", req.AssigneeID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Priority != "" {
		query = query.Where("priority = ?", req.Priority)
	}
	if req.Type != "" {
		query = query.Where("type = ?", req.Type)
	}
	if req.Overdue {
		query = query.Where("due_date < ? AND status IN ?", time.Now(), models.TaskOpenStatuses)
	}
	if req.Search != "" {
		query = query.Where("title LIKE ?", "%"+req.Search+"%")
	}

	var total int64
	query.Count(&total)

	var tasks []models.Task
	offset := (req.Page - 1) * req.Limit
	order := orderClause(req.Sort, req.Order, taskSortFields)
	if err := query.Preload("Assignee").Preload("Project").
		Offset(offset).Limit(req.Limit).Order(order).Find(&tasks).Error; err != nil {
		return nil, transient(err)
	}

	return &TaskListResponse{Total: total, Page: req.Page, Limit: req.Limit, Items: tasks}, nil
}

// MyTasks returns the actor's assigned tasks.
func (s *TaskService) MyTasks(actorID uint, req *TaskListRequest) (*TaskListResponse, error) {
	req.AssigneeID = actorID
	return s.List(actorID, req)
}

type TaskStats struct {
	Total      int64            `json:"total"`
	Overdue    int64            `json:"overdue"`
	ByStatus   map[string]int64 `json:"by_status"`
	ByPriority map[string]int64 `json:"by_priority"`
}

func (s *TaskService) Stats(actorID uint) (*TaskStats, error) {
	actor, appErr := findActiveUser(s.db, actorID)
	if appErr != nil {
		return nil, appErr
	}

	stats := &TaskStats{
		ByStatus:   make(map[string]int64),
		ByPriority: make(map[string]int64),
	}

	type bucket struct {
		Key   string
		Count int64
	}

	var rows []bucket
	if err := s.scopedTasks(actor).Select("status AS key, COUNT(*) AS count").
		Group("status").Scan(&rows).Error; err != nil {
		return nil, transient(err)
	}
	for _, r := range rows {
		stats.ByStatus[r.Key] = r.Count
		stats.Total += r.Count
	}

	rows = nil
	if err := s.scopedTasks(actor).Select("priority AS key, COUNT(*) AS count").
		Group("priority").Scan(&rows).Error; err != nil {
		return nil, transient(err)
	}
	for _, r := range rows {
		stats.ByPriority[r.Key] = r.Count
	}

	if err := s.scopedTasks(actor).
		Where("due_date < ? AND status IN ?", time.Now(), models.TaskOpenStatuses).
		Count(&stats.Overdue).Error; err != nil {
		return nil, transient(err)
	}

	return stats, nil
}

func (s *TaskService) scopedTasks(actor *models.User) *gorm.DB {
	query := s.db.Model(&models.Task{})
	if actor.Role == models.RoleAdmin {
		return query
	}
	return query.Where(
		"assignee_id = ? OR creator_id = ? OR project_id IN (?)",
		actor.ID,
		actor.ID,
		s.db.Model(&models.Project{}).Select("id").Where(
			"manager_id = ? OR team_id IN (?) OR id IN (?)",
			actor.ID,
			s.db.Model(&models.Team{}).Select("id").Where("leader_id = ?", actor.ID),
			s.db.Model(&models.ProjectMember{}).Select("project_id").Where("user_id = ?", actor.ID),
		),
	)
}

func (s *TaskService) actorAndTask(actorID, taskID uint) (*models.User, *models.Task, *models.Project, *response.AppError) {
	actor, appErr := findActiveUser(s.db, actorID)
	if appErr != nil {
		return nil, nil, nil, appErr
	}
	var task models.Task
	if err := s.db.First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, response.NewNotFound("task not found")
		}
		return nil, nil, nil, transient(err)
	}
	project, appErr := loadProjectWithTeam(s.db, task.ProjectID)
	if appErr != nil {
		return nil, nil, nil, appErr
	}
	return actor, &task, project, nil
}

func (s *TaskService) loadTask(id uint) (*models.Task, error) {
	var task models.Task
	if err := s.db.Preload("Project").Preload("Assignee").Preload("Creator").
		First(&task, id).Error; err != nil {
		return nil, transient(err)
	}
	return &task, nil
}

// requireProjectParticipant resolves an active user and checks they are
// the project manager or an assigned member.
func (s *TaskService) requireProjectParticipant(project *models.Project, userID uint) (*models.User, *response.AppError) {
	user, appErr := findActiveUser(s.db, userID)
	if appErr != nil {
		return nil, appErr
	}
	if userID == project.ManagerID {
		return user, nil
	}
	member, appErr := isProjectMember(s.db, project.ID, userID)
	if appErr != nil {
		return nil, appErr
	}
	if !member {
		return nil, response.NewConflict("assignee is not a member of this project")
	}
	return user, nil
}

// applyCompletionStamp stamps completed_date when a task enters completed
// and clears it when the task leaves completed.
func applyCompletionStamp(updates map[string]interface{}, oldStatus, newStatus string) {
	if newStatus == models.TaskStatusCompleted && oldStatus != models.TaskStatusCompleted {
		now := time.Now()
		updates["completed_date"] = &now
	} else if oldStatus == models.TaskStatusCompleted && newStatus != models.TaskStatusCompleted {
		updates["completed_date"] = gorm.Expr("NULL")
	}
}
