package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/teamtrackhq/teamtrack/internal/middleware"
	"github.com/teamtrackhq/teamtrack/internal/services"
	"github.com/teamtrackhq/teamtrack/pkg/response"
	"gorm.io/gorm"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(db *gorm.DB) *TaskHandler {
	return &TaskHandler{
		taskService: services.NewTaskService(db),
	}
}

// List returns tasks in projects visible to the caller
// GET /api/tasks
func (h *TaskHandler) List(c *gin.Context) {
	var req services.TaskListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.taskService.List(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// MyTasks returns the caller's assigned tasks
// GET /api/tasks/my
func (h *TaskHandler) MyTasks(c *gin.Context) {
	var req services.TaskListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.taskService.MyTasks(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, resp)
}

// Stats returns task counts grouped by status and priority
// GET /api/tasks/stats
func (h *TaskHandler) Stats(c *gin.Context) {
	stats, err := h.taskService.Stats(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// GetByID returns a task by ID
// GET /api/tasks/:id
func (h *TaskHandler) GetByID(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}

	task, svcErr := h.taskService.Get(middleware.GetUserID(c), id)
	if svcErr != nil {
		response.Error(c, svcErr)
		return
	}

	response.Success(c, task)
}

// Create creates a new task
// POST /api/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var req services.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.Create(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, task)
}

// Update modifies a task
// PUT /api/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}

	var req services.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, svcErr := h.taskService.Update(middleware.GetUserID(c), id, &req)
	if svcErr != nil {
		response.Error(c, svcErr)
		return
	}

	response.Success(c, task)
}

// RecordProgress appends a progress record and moves the task status
// POST /api/tasks/:id/progress
func (h *TaskHandler) RecordProgress(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}

	var req services.RecordProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, svcErr := h.taskService.RecordProgress(middleware.GetUserID(c), id, &req)
	if svcErr != nil {
		response.Error(c, svcErr)
		return
	}

	response.Success(c, task)
}

// ProgressHistory returns a task's progress records
// GET /api/tasks/:id/progress
func (h *TaskHandler) ProgressHistory(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}

	records, svcErr := h.taskService.ProgressHistory(middleware.GetUserID(c), id)
	if svcErr != nil {
		response.Error(c, svcErr)
		return
	}

	response.Success(c, records)
}

// AddComment appends a comment to a task
// POST /api/tasks/:id/comments
func (h *TaskHandler) AddComment(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}

	var req services.AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	comment, svcErr := h.taskService.AddComment(middleware.GetUserID(c), id, &req)
	if svcErr != nil {
		response.Error(c, svcErr)
		return
	}

	response.Created(c, comment)
}

// Comments returns a task's comments
// GET /api/tasks/:id/comments
func (h *TaskHandler) Comments(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}

	comments, svcErr := h.taskService.Comments(middleware.GetUserID(c), id)
	if svcErr != nil {
		response.Error(c, svcErr)
		return
	}

	response.Success(c, comments)
}

// Delete removes a task
// DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}

	if svcErr := h.taskService.Delete(middleware.GetUserID(c), id); svcErr != nil {
		response.Error(c, svcErr)
		return
	}

	response.Success(c, gin.H{"message": "task deleted"})
}
