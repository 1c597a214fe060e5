package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/teamtrackhq/teamtrack/internal/middleware"
	"github.com/teamtrackhq/teamtrack/internal/services"
	"github.com/teamtrackhq/teamtrack/pkg/response"
	"gorm.io/gorm"
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(db *gorm.DB) *ProjectHandler {
	return &ProjectHandler{
		projectService: services.NewProjectService(db),
	}
}

// List returns projects visible to the caller
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	var req services.ProjectListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.projectService.List(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// Stats returns project counts grouped by status and priority
// GET /api/projects/stats
func (h *ProjectHandler) Stats(c *gin.Context) {
	stats, err := h.projectService.Stats(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// GetByID returns a project by ID
// GET /api/projects/:id
func (h *ProjectHandler) GetByID(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}

	project, svcErr := h.projectService.Get(middleware.GetUserID(c), id)
	if svcErr != nil {
		response.Error(c, svcErr)
		return
	}

	response.Success(c, project)
}

// Create creates a new project
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Create(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, project)
}

// Update modifies a project
// PUT /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}

	var req services.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, svcErr := h.projectService.Update(middleware.GetUserID(c), id, &req)
	if svcErr != nil {
		response.Error(c, svcErr)
		return
	}

	response.Success(c, project)
}

// AddMember adds a team member to the project
// POST /api/projects/:id/members
func (h *ProjectHandler) AddMember(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}

	var req services.ProjectMemberInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, svcErr := h.projectService.AddMember(middleware.GetUserID(c), id, &req)
	if svcErr != nil {
		response.Error(c, svcErr)
		return
	}

	response.Success(c, project)
}

// RemoveMember removes a member from the project
// DELETE /api/projects/:id/members/:userId
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}
	userID, err := parseIDParam(c, "userId")
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	project, svcErr := h.projectService.RemoveMember(middleware.GetUserID(c), id, userID)
	if svcErr != nil {
		response.Error(c, svcErr)
		return
	}

	response.Success(c, project)
}

// Delete removes a project
// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid project id")
		return
	}

	if svcErr := h.projectService.Delete(middleware.GetUserID(c), id); svcErr != nil {
		response.Error(c, svcErr)
		return
	}

	response.Success(c, gin.H{"message": "project deleted"})
}
