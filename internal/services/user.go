package services

import (
	"errors"
	"strings"

	"github.com/teamtrackhq/teamtrack/internal/authz"
	"github.com/teamtrackhq/teamtrack/internal/models"
	"github.com/teamtrackhq/teamtrack/internal/utils"
	"github.com/teamtrackhq/teamtrack/pkg/response"
	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

type UserListRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Sort     string `form:"sort"`
	Order    string `form:"order"`
	Search   string `form:"search"`
	Role     string `form:"role"`
	IsActive *bool  `form:"is_active"`
}

type UserListResponse struct {
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Items []models.User `json:"items"`
}

var userSortFields = map[string]bool{
	"created_at": true,
	"username":   true,
	"email":      true,
	"role":       true,
	"last_login": true,
}

// List returns paginated users. Admin only (enforced by the caller's
// route guard and re-checked here).
func (s *UserService) List(actorID uint, req *UserListRequest) (*UserListResponse, error) {
	actor, appErr := findActiveUser(s.db, actorID)
	if appErr != nil {
		return nil, appErr
	}
	if !authz.CanManageUsers(actor) {
		return nil, response.NewPermissionDenied("user administration requires admin role")
	}

	req.Page, req.Limit = normalizePage(req.Page, req.Limit)

	var users []models.User
	var total int64

	query := s.db.Model(&models.User{})

	if req.Search != "" {
		like := "%" + req.Search + "%"
		query = query.Where("username LIKE ? OR email LIKE ? OR nickname LIKE ?", like, like, like)
	}
	if req.Role != "" {
		query = query.Where("role = ?", req.Role)
	}
	if req.IsActive != nil {
		query = query.Where("is_active = ?", *req.IsActive)
	}

	query.Count(&total)

	offset := (req.Page - 1) * req.Limit
	order := orderClause(req.Sort, req.Order, userSortFields)
	if err := query.Offset(offset).Limit(req.Limit).Order(order).Find(&users).Error; err != nil {
		return nil, transient(err)
	}

	return &UserListResponse{Total: total, Page: req.Page, Limit: req.Limit, Items: users}, nil
}

// Get returns a user visible to the actor: admins see anyone, everyone
// else only themselves.
func (s *UserService) Get(actorID, targetID uint) (*models.User, error) {
	actor, appErr := findActiveUser(s.db, actorID)
	if appErr != nil {
		return nil, appErr
	}
	if actor.ID != targetID && !authz.CanManageUsers(actor) {
		return nil, response.NewPermissionDenied("cannot view other users")
	}

	var user models.User
	if err := s.db.First(&user, targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("user not found")
		}
		return nil, transient(err)
	}
	return &user, nil
}

type CreateUserRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role"`
}

// Create adds a user by admin action. Unlike self-registration, the
// requested role is honored (but never admin).
func (s *UserService) Create(actorID uint, req *CreateUserRequest) (*models.User, error) {
	actor, appErr := findActiveUser(s.db, actorID)
	if appErr != nil {
		return nil, appErr
	}
	if !authz.CanManageUsers(actor) {
		return nil, response.NewPermissionDenied("user administration requires admin role")
	}

	role := req.Role
	if role == "" {
		role = models.RoleMember
	}
	if !models.ValidRole(role) {
		return nil, response.NewValidation("invalid role").WithField("role", "must be admin, team_leader or member")
	}
	if role == models.RoleAdmin {
		return nil, response.NewValidation("admin accounts cannot be created through this endpoint")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, transient(err)
	}
	if count > 0 {
		return nil, response.NewDuplicateIdentity("email already registered")
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, transient(err)
	}

	user := models.User{
		Username: email,
		Email:    email,
		Password: hashed,
		Nickname: req.Name,
		Role:     role,
		AuthType: models.AuthTypeLocal,
		IsActive: true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, transient(err)
	}
	return &user, nil
}

type UpdateUserRequest struct {
	Nickname *string `json:"nickname"`
	Email    *string `json:"email"`
	IsActive *bool   `json:"is_active"`
}

// Update modifies a user. Admins may change any field; a user may change
// only their own nickname.
func (s *UserService) Update(actorID, targetID uint, req *UpdateUserRequest) (*models.User, error) {
	actor, appErr := findActiveUser(s.db, actorID)
	if appErr != nil {
		return nil, appErr
	}

	var user models.User
	if err := s.db.First(&user, targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("user not found")
		}
		return nil, transient(err)
	}

	admin := authz.CanManageUsers(actor)
	self := actor.ID == targetID
	if !admin && !self {
		return nil, response.NewPermissionDenied("cannot modify other users")
	}

	updates := make(map[string]interface{})
	if req.Nickname != nil {
		updates["nickname"] = *req.Nickname
	}
	if req.Email != nil {
		if !admin {
			return nil, response.NewPermissionDenied("only admins can change email")
		}
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		var count int64
		if err := s.db.Model(&models.User{}).
			Where("email = ? AND id <> ?", email, targetID).
			Count(&count).Error; err != nil {
			return nil, transient(err)
		}
		if count > 0 {
			return nil, response.NewDuplicateIdentity("email already registered")
		}
		updates["email"] = email
	}
	if req.IsActive != nil {
		if !admin {
			return nil, response.NewPermissionDenied("only admins can change account state")
		}
		if self {
			return nil, response.NewConflict("cannot deactivate your own account")
		}
		updates["is_active"] = *req.IsActive
	}

	if len(updates) == 0 {
		return nil, response.NewValidation("no fields to update")
	}

	if err := s.db.Model(&user).Updates(updates).Error; err != nil {
		return nil, transient(err)
	}

	s.db.First(&user, targetID)
	return &user, nil
}

type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=team_leader member"`
}

// ChangeRole promotes a user to team_leader or demotes them to member.
// Admin accounts are never changed through this endpoint, and a demotion
// is rejected while the target still leads an active team.
func (s *UserService) ChangeRole(actorID, targetID uint, req *ChangeRoleRequest) (*models.User, error) {
	actor, appErr := findActiveUser(s.db, actorID)
	if appErr != nil {
		return nil, appErr
	}
	if !authz.CanManageUsers(actor) {
		return nil, response.NewPermissionDenied("role changes require admin role")
	}

	target, appErr := findActiveUser(s.db, targetID)
	if appErr != nil {
		return nil, appErr
	}
	if target.Role == models.RoleAdmin {
		return nil, response.NewConflict("admin accounts cannot be promoted or demoted")
	}

	if req.Role == models.RoleMember && target.Role == models.RoleTeamLeader {
		var count int64
		if err := s.db.Model(&models.Team{}).
			Where("leader_id = ? AND is_active = ?", targetID, true).
			Count(&count).Error; err != nil {
			return nil, transient(err)
		}
		if count > 0 {
			return nil, response.NewConflict("user still leads an active team, reassign leadership first")
		}
	}

	if err := s.db.Model(target).Update("role", req.Role).Error; err != nil {
		return nil, transient(err)
	}
	target.Role = req.Role
	return target, nil
}

// Delete removes a user. Rejected while the target leads teams, manages
// unfinished projects or holds open tasks.
func (s *UserService) Delete(actorID, targetID uint) error {
	actor, appErr := findActiveUser(s.db, actorID)
	if appErr != nil {
		return appErr
	}
	if !authz.CanManageUsers(actor) {
		return response.NewPermissionDenied("user administration requires admin role")
	}
	if actor.ID == targetID {
		return response.NewConflict("cannot delete your own account")
	}

	var user models.User
	if err := s.db.First(&user, targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NewNotFound("user not found")
		}
		return transient(err)
	}

	var count int64
	if err := s.db.Model(&models.Team{}).Where("leader_id = ?", targetID).Count(&count).Error; err != nil {
		return transient(err)
	}
	if count > 0 {
		return response.NewConflict("user still leads teams, reassign leadership first")
	}

	if err := s.db.Model(&models.Project{}).
		Where("manager_id = ? AND status IN ?", targetID, models.ProjectActiveStatuses).
		Count(&count).Error; err != nil {
		return transient(err)
	}
	if count > 0 {
		return response.NewConflict("user still manages unfinished projects")
	}

	if err := s.db.Model(&models.Task{}).
		Where("assignee_id = ? AND status IN ?", targetID, models.TaskOpenStatuses).
		Count(&count).Error; err != nil {
		return transient(err)
	}
	if count > 0 {
		return response.NewConflict("user still holds open tasks")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		// Drop remaining membership rows; the authoritative relations
		// live on the team/project side.
		if err := tx.Where("user_id = ?", targetID).Delete(&models.TeamMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", targetID).Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
}
