package services

import (
	"errors"
	"strings"

	"github.com/teamtrackhq/teamtrack/internal/authz"
	"github.com/teamtrackhq/teamtrack/internal/models"
	"github.com/teamtrackhq/teamtrack/pkg/response"
	"gorm.io/gorm"
)

type TeamService struct {
	db *gorm.DB
}

func NewTeamService(db *gorm.DB) *TeamService {
	return &TeamService{db: db}
}

type CreateTeamRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"max=500"`
	LeaderID    uint   `json:"leader_id" binding:"required"`
	MemberIDs   []uint `json:"member_ids"`
}

// Create registers a new team. The leader is always carried in the
// member set, tagged with the team_leader role.
func (s *TeamService) Create(actorID uint, req *CreateTeamRequest) (*models.Team, error) {
	actor, appErr := findActiveUser(s.db, actorID)
	if appErr != nil {
		return nil, appErr
	}
	if !authz.CanManageTeams(actor) {
		return nil, response.NewPermissionDenied("creating teams requires admin role")
	}

	nameKey := strings.ToLower(strings.TrimSpace(req.Name))
	var count int64
	if err := s.db.Model(&models.Team{}).Where("name_key = ?", nameKey).Count(&count).Error; err != nil {
		return nil, transient(err)
	}
	if count > 0 {
		return nil, response.NewDuplicateName("team name already in use")
	}

	leader, appErr := findActiveUser(s.db, req.LeaderID)
	if appErr != nil {
		return nil, appErr
	}

	memberIDs := dedupeIDs(req.MemberIDs, req.LeaderID)
	members := make([]*models.User, 0, len(memberIDs))
	for _, id := range memberIDs {
		u, appErr := findActiveUser(s.db, id)
		if appErr != nil {
			return nil, appErr
		}
		members = append(members, u)
	}

	team := models.Team{
		Name:        strings.TrimSpace(req.Name),
		NameKey:     nameKey,
		Description: req.Description,
		LeaderID:    leader.ID,
		IsActive:    true,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&team).Error; err != nil {
			return err
		}
		rows := []models.TeamMember{{TeamID: team.ID, UserID: leader.ID, Role: models.TeamRoleLeader}}
		for _, m := range members {
			rows = append(rows, models.TeamMember{TeamID: team.ID, UserID: m.ID, Role: models.TeamRoleMember})
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, transient(err)
	}

	return s.loadTeam(team.ID)
}

type UpdateTeamRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

func (s *TeamService) Update(actorID, teamID uint, req *UpdateTeamRequest) (*models.Team, error) {
	actor, team, appErr := s.actorAndTeam(actorID, teamID)
	if appErr != nil {
		return nil, appErr
	}
	if !authz.CanLeadTeam(actor, team) {
		return nil, response.NewPermissionDenied("only the team leader or an admin can modify this team")
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, response.NewValidation("team name cannot be empty").WithField("name", "required")
		}
		nameKey := strings.ToLower(name)
		var count int64
		if err := s.db.Model(&models.Team{}).
			Where("name_key = ? AND id <> ?", nameKey, teamID).
			Count(&count).Error; err != nil {
			return nil, transient(err)
		}
		if count > 0 {
			return nil, response.NewDuplicateName("team name already in use")
		}
		updates["name"] = name
		updates["name_key"] = nameKey
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.IsActive != nil {
		if !authz.CanManageTeams(actor) {
			return nil, response.NewPermissionDenied("only admins can archive teams")
		}
		updates["is_active"] = *req.IsActive
	}

	if len(updates) == 0 {
		return nil, response.NewValidation("no fields to update")
	}

	if err := s.db.Model(team).Updates(updates).Error; err != nil {
		return nil, transient(err)
	}
	return s.loadTeam(teamID)
}

type ReassignLeaderRequest struct {
	LeaderID uint `json:"leader_id" binding:"required"`
}

// ReassignLeader transfers leadership. The new leader must already hold
// the team_leader or admin role; the old leader stays on as a member.
func (s *TeamService) ReassignLeader(actorID, teamID uint, req *ReassignLeaderRequest) (*models.Team, error) {
	actor, team, appErr := s.actorAndTeam(actorID, teamID)
	if appErr != nil {
		return nil, appErr
	}
	if !authz.CanLeadTeam(actor, team) {
		return nil, response.NewPermissionDenied("only the team leader or an admin can reassign leadership")
	}

	newLeader, appErr := findActiveUser(s.db, req.LeaderID)
	if appErr != nil {
		return nil, appErr
	}
	if newLeader.Role != models.RoleTeamLeader && newLeader.Role != models.RoleAdmin {
		return nil, response.NewConflict("new leader must hold the team_leader role")
	}
	if newLeader.ID == team.LeaderID {
		return nil, response.NewConflict("user already leads this team")
	}

	oldLeaderID := team.LeaderID

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Team{}).Where("id = ?", teamID).
			Update("leader_id", newLeader.ID).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.TeamMember{}).
			Where("team_id = ? AND user_id = ?", teamID, oldLeaderID).
			Update("role", models.TeamRoleMember).Error; err != nil {
			return err
		}
		var row models.TeamMember
		err := tx.Where("team_id = ? AND user_id = ?", teamID, newLeader.ID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&models.TeamMember{
				TeamID: teamID,
				UserID: newLeader.ID,
				Role:   models.TeamRoleLeader,
			}).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&row).Update("role", models.TeamRoleLeader).Error
	})
	if err != nil {
		return nil, transient(err)
	}
	return s.loadTeam(teamID)
}

type TeamMemberRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

func (s *TeamService) AddMember(actorID, teamID uint, req *TeamMemberRequest) (*models.Team, error) {
	actor, team, appErr := s.actorAndTeam(actorID, teamID)
	if appErr != nil {
		return nil, appErr
	}
	if !authz.CanLeadTeam(actor, team) {
		return nil, response.NewPermissionDenied("only the team leader or an admin can manage members")
	}

	user, appErr := findActiveUser(s.db, req.UserID)
	if appErr != nil {
		return nil, appErr
	}

	present, appErr := isTeamMember(s.db, teamID, user.ID)
	if appErr != nil {
		return nil, appErr
	}
	if present {
		return nil, response.NewConflict("user is already a member of this team")
	}

	row := models.TeamMember{TeamID: teamID, UserID: user.ID, Role: models.TeamRoleMember}
	if err := s.db.Create(&row).Error; err != nil {
		return nil, transient(err)
	}
	return s.loadTeam(teamID)
}

func (s *TeamService) RemoveMember(actorID, teamID, userID uint) (*models.Team, error) {
	actor, team, appErr := s.actorAndTeam(actorID, teamID)
	if appErr != nil {
		return nil, appErr
	}
	if !authz.CanLeadTeam(actor, team) {
		return nil, response.NewPermissionDenied("only the team leader or an admin can manage members")
	}
	if userID == team.LeaderID {
		return nil, response.NewConflict("cannot remove the team leader, assign a new leader first")
	}

	present, appErr := isTeamMember(s.db, teamID, userID)
	if appErr != nil {
		return nil, appErr
	}
	if !present {
		return nil, response.NewConflict("user is not a member of this team")
	}

	result := s.db.Where("team_id = ? AND user_id = ?", teamID, userID).Delete(&models.TeamMember{})
	if result.Error != nil {
		return nil, transient(result.Error)
	}
	return s.loadTeam(teamID)
}

// Delete removes a team. Rejected while any of its projects is still in
// planning, active or on_hold.
func (s *TeamService) Delete(actorID, teamID uint) error {
	actor, team, appErr := s.actorAndTeam(actorID, teamID)
	if appErr != nil {
		return appErr
	}
	if !authz.CanManageTeams(actor) {
		return response.NewPermissionDenied("deleting teams requires admin role")
	}

	var count int64
	if err := s.db.Model(&models.Project{}).
		Where("team_id = ? AND status IN ?", teamID, models.ProjectActiveStatuses).
		Count(&count).Error; err != nil {
		return transient(err)
	}
	if count > 0 {
		return response.NewConflict("team still has unfinished projects")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ?", teamID).Delete(&models.TeamMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(team).Error
	})
}

func (s *TeamService) Get(actorID, teamID uint) (*models.Team, error) {
	actor, team, appErr := s.actorAndTeam(actorID, teamID)
	if appErr != nil {
		return nil, appErr
	}

	if actor.Role != models.RoleAdmin {
		member, appErr := isTeamMember(s.db, teamID, actor.ID)
		if appErr != nil {
			return nil, appErr
		}
		if !member {
			return nil, response.NewPermissionDenied("not a member of this team")
		}
	}
	return s.loadTeam(team.ID)
}

type TeamListRequest struct {
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Sort   string `form:"sort"`
	Order  string `form:"order"`
	Search string `form:"search"`
}

type TeamListResponse struct {
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Items []models.Team `json:"items"`
}

var teamSortFields = map[string]bool{
	"created_at": true,
	"name":       true,
}

// List returns teams visible to the actor: admins see all, everyone else
// only the teams they belong to.
func (s *TeamService) List(actorID uint, req *TeamListRequest) (*TeamListResponse, error) {
	actor, appErr := findActiveUser(s.db, actorID)
	if appErr != nil {
		return nil, appErr
	}

	req.Page, req.Limit = normalizePage(req.Page, req.Limit)

	query := s.db.Model(&models.Team{})
	if actor.Role != models.RoleAdmin {
		query = query.Where("id IN (?)",
			s.db.Model(&models.TeamMember{}).Select("team_id").Where("user_id = ?", actor.ID))
	}
	if req.Search != "" {
		query = query.Where("name LIKE ?", "%"+req.Search+"%")
	}

	var total int64
	query.Count(&total)

	var teams []models.Team
	offset := (req.Page - 1) * req.Limit
	order := orderClause(req.Sort, req.Order, teamSortFields)
	if err := query.Preload("Leader").Offset(offset).Limit(req.Limit).Order(order).Find(&teams).Error; err != nil {
		return nil, transient(err)
	}

	return &TeamListResponse{Total: total, Page: req.Page, Limit: req.Limit, Items: teams}, nil
}

func (s *TeamService) actorAndTeam(actorID, teamID uint) (*models.User, *models.Team, *response.AppError) {
	actor, appErr := findActiveUser(s.db, actorID)
	if appErr != nil {
		return nil, nil, appErr
	}
	var team models.Team
	if err := s.db.First(&team, teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, response.NewNotFound("team not found")
		}
		return nil, nil, transient(err)
	}
	return actor, &team, nil
}

func (s *TeamService) loadTeam(id uint) (*models.Team, error) {
	var team models.Team
	if err := s.db.Preload("Leader").Preload("Members").Preload("Members.User").
		First(&team, id).Error; err != nil {
		return nil, transient(err)
	}
	return &team, nil
}

// dedupeIDs strips duplicates and the excluded id from a member list.
func dedupeIDs(ids []uint, exclude uint) []uint {
	seen := map[uint]bool{exclude: true}
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
