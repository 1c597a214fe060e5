package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/teamtrackhq/teamtrack/internal/middleware"
	"github.com/teamtrackhq/teamtrack/internal/services"
	"github.com/teamtrackhq/teamtrack/pkg/response"
	"gorm.io/gorm"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{
		userService: services.NewUserService(db),
	}
}

// List returns paginated users
// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	var req services.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.userService.List(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// GetByID returns a user by ID
// GET /api/users/:id
func (h *UserHandler) GetByID(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	user, svcErr := h.userService.Get(middleware.GetUserID(c), id)
	if svcErr != nil {
		response.Error(c, svcErr)
		return
	}

	response.Success(c, user)
}

// Create adds a user by admin action
// POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var req services.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.userService.Create(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, user)
}

// Update modifies a user
// PUT /api/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	var req services.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, svcErr := h.userService.Update(middleware.GetUserID(c), id, &req)
	if svcErr != nil {
		response.Error(c, svcErr)
		return
	}

	response.Success(c, user)
}

// ChangeRole promotes or demotes a user
// PUT /api/users/:id/role
func (h *UserHandler) ChangeRole(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	var req services.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, svcErr := h.userService.ChangeRole(middleware.GetUserID(c), id, &req)
	if svcErr != nil {
		response.Error(c, svcErr)
		return
	}

	response.Success(c, user)
}

// Delete removes a user
// DELETE /api/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	if svcErr := h.userService.Delete(middleware.GetUserID(c), id); svcErr != nil {
		response.Error(c, svcErr)
		return
	}

	response.Success(c, gin.H{"message": "user deleted"})
}

// parseIDParam reads a uint path parameter.
func parseIDParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
