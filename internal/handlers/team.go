package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/teamtrackhq/teamtrack/internal/middleware"
	"github.com/teamtrackhq/teamtrack/internal/services"
	"github.com/teamtrackhq/teamtrack/pkg/response"
	"gorm.io/gorm"
)

type TeamHandler struct {
	teamService *services.TeamService
}

func NewTeamHandler(db *gorm.DB) *TeamHandler {
	return &TeamHandler{
		teamService: services.NewTeamService(db),
	}
}

// List returns teams visible to the caller
// GET /api/teams
func (h *TeamHandler) List(c *gin.Context) {
	var req services.TeamListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.teamService.List(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// GetByID returns a team by ID
// GET /api/teams/:id
func (h *TeamHandler) GetByID(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid team id")
		return
	}

	team, svcErr := h.teamService.Get(middleware.GetUserID(c), id)
	if svcErr != nil {
		response.Error(c, svcErr)
		return
	}

	response.Success(c, team)
}

// Create creates a new team
// POST /api/teams
func (h *TeamHandler) Create(c *gin.Context) {
	var req services.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	team, err := h.teamService.Create(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, team)
}

// Update modifies a team
// PUT /api/teams/:id
func (h *TeamHandler) Update(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid team id")
		return
	}

	var req services.UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	team, svcErr := h.teamService.Update(middleware.GetUserID(c), id, &req)
	if svcErr != nil {
		response.Error(c, svcErr)
		return
	}

	response.Success(c, team)
}

// ReassignLeader transfers team leadership
// PUT /api/teams/:id/leader
func (h *TeamHandler) ReassignLeader(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid team id")
		return
	}

	var req services.ReassignLeaderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	team, svcErr := h.teamService.ReassignLeader(middleware.GetUserID(c), id, &req)
	if svcErr != nil {
		response.Error(c, svcErr)
		return
	}

	response.Success(c, team)
}

// AddMember adds a user to the team
// POST /api/teams/:id/members
func (h *TeamHandler) AddMember(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid team id")
		return
	}

	var req services.TeamMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	team, svcErr := h.teamService.AddMember(middleware.GetUserID(c), id, &req)
	if svcErr != nil {
		response.Error(c, svcErr)
		return
	}

	response.Success(c, team)
}

// RemoveMember removes a user from the team
// DELETE /api/teams/:id/members/:userId
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid team id")
		return
	}
	userID, err := parseIDParam(c, "userId")
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	team, svcErr := h.teamService.RemoveMember(middleware.GetUserID(c), id, userID)
	if svcErr != nil {
		response.Error(c, svcErr)
		return
	}

	response.Success(c, team)
}

// Delete removes a team
// DELETE /api/teams/:id
func (h *TeamHandler) Delete(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid team id")
		return
	}

	if svcErr := h.teamService.Delete(middleware.GetUserID(c), id); svcErr != nil {
		response.Error(c, svcErr)
		return
	}

	response.Success(c, gin.H{"message": "team deleted"})
}
