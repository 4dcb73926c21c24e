package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/kanban-board-api/internal/constants"
	"github.com/yukikurage/kanban-board-api/internal/dto"
	apierrors "github.com/yukikurage/kanban-board-api/internal/errors"
	"github.com/yukikurage/kanban-board-api/internal/middleware"
	"github.com/yukikurage/kanban-board-api/internal/models"
	"github.com/yukikurage/kanban-board-api/internal/services"
)

// TaskHandler coordinates task-related HTTP handlers.
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// CreateTask appends a task to the column named by the :id parameter.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	type CreateTaskRequest struct {
		Title       string              `json:"title" binding:"required,max=200"`
		Description string              `json:"description"`
		Priority    models.TaskPriority `json:"priority"`
		Deadline    *time.Time          `json:"deadline"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	column, exists := middleware.GetColumn(c)
	if !exists {
		apierrors.Forbidden(c, "")
		return
	}
	userID, _ := middleware.GetUserID(c)

	task, err := h.taskService.CreateTask(services.CreateTaskInput{
		ColumnID:    column.ID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Deadline:    req.Deadline,
		CreatorID:   userID,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// GetTask returns a task with its responsible users, comments and files.
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, exists := middleware.GetTask(c)
	if !exists {
		apierrors.Forbidden(c, "")
		return
	}

	loaded, err := h.taskService.GetTask(task.ID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	taskDTO := dto.ToTaskDTO(*loaded)
	if len(loaded.Files) > 0 {
		taskDTO.Files = make([]dto.TaskFileDTO, len(loaded.Files))
		for i, file := range loaded.Files {
			taskDTO.Files[i] = dto.ToTaskFileDTO(file, h.taskService.FileURL(&file))
		}
	}
	c.JSON(http.StatusOK, taskDTO)
}

// UpdateTask updates a task's title and description.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	type UpdateTaskRequest struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, _ := middleware.GetTask(c)
	userID, _ := middleware.GetUserID(c)

	updated, err := h.taskService.UpdateTask(userID, task.ID, services.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// MoveTask repositions a task within its column or into another column
// of the same board. Omitting position appends to the target column.
func (h *TaskHandler) MoveTask(c *gin.Context) {
	type MoveTaskRequest struct {
		Column   uint64 `json:"column" binding:"required"`
		Position int    `json:"position"`
	}

	var req MoveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, _ := middleware.GetTask(c)
	userID, _ := middleware.GetUserID(c)

	moved, err := h.taskService.MoveTask(userID, task.ID, req.Column, req.Position)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*moved))
}

// UpdatePriority sets a task's priority.
func (h *TaskHandler) UpdatePriority(c *gin.Context) {
	type PriorityRequest struct {
		Priority models.TaskPriority `json:"priority" binding:"required"`
	}

	var req PriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, _ := middleware.GetTask(c)
	userID, _ := middleware.GetUserID(c)

	updated, err := h.taskService.UpdateTask(userID, task.ID, services.UpdateTaskInput{
		Priority: &req.Priority,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// UpdateDeadline sets or clears a task's deadline. The body carries an
// RFC3339 timestamp or an explicit null to clear.
func (h *TaskHandler) UpdateDeadline(c *gin.Context) {
	type DeadlineRequest struct {
		Deadline *string `json:"deadline"`
	}

	var req DeadlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, _ := middleware.GetTask(c)
	userID, _ := middleware.GetUserID(c)

	input := services.UpdateTaskInput{}
	if req.Deadline == nil {
		input.ClearDeadline = true
	} else {
		deadline, err := time.Parse(time.RFC3339, *req.Deadline)
		if err != nil {
			apierrors.BadRequest(c, "Deadline must be an RFC3339 timestamp")
			return
		}
		input.Deadline = &deadline
	}

	updated, err := h.taskService.UpdateTask(userID, task.ID, input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// DeleteTask removes a task. Only the creator may delete.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	task, _ := middleware.GetTask(c)
	userID, _ := middleware.GetUserID(c)

	if err := h.taskService.DeleteTask(userID, task.ID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AddResponsible marks a user as responsible for the task.
func (h *TaskHandler) AddResponsible(c *gin.Context) {
	type ResponsibleRequest struct {
		UserID uint64 `json:"user_id" binding:"required"`
	}

	var req ResponsibleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, _ := middleware.GetTask(c)
	userID, _ := middleware.GetUserID(c)

	if err := h.taskService.AssignResponsible(userID, task.ID, req.UserID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"task_id": task.ID, "user_id": req.UserID})
}

// RemoveResponsible removes a responsible link from the task.
func (h *TaskHandler) RemoveResponsible(c *gin.Context) {
	targetID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	task, _ := middleware.GetTask(c)
	userID, _ := middleware.GetUserID(c)

	if err := h.taskService.UnassignResponsible(userID, task.ID, targetID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AddComment appends a comment to the task.
func (h *TaskHandler) AddComment(c *gin.Context) {
	type CommentRequest struct {
		Text string `json:"text" binding:"required"`
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, _ := middleware.GetTask(c)
	userID, _ := middleware.GetUserID(c)

	comment, err := h.taskService.AddComment(userID, task.ID, req.Text)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCommentDTO(*comment))
}

// ListComments returns the task's comments oldest first.
func (h *TaskHandler) ListComments(c *gin.Context) {
	task, _ := middleware.GetTask(c)

	comments, err := h.taskService.ListComments(task.ID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	commentDTOs := make([]dto.CommentDTO, len(comments))
	for i, comment := range comments {
		commentDTOs[i] = dto.ToCommentDTO(comment)
	}
	c.JSON(http.StatusOK, gin.H{"comments": commentDTOs})
}

// UploadFile attaches an uploaded file to the task.
func (h *TaskHandler) UploadFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		apierrors.BadRequest(c, "File is required")
		return
	}
	if fileHeader.Size > constants.MaxChatFileSize {
		apierrors.BadRequest(c, "File too large")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}
	defer src.Close()

	task, _ := middleware.GetTask(c)
	userID, _ := middleware.GetUserID(c)

	file, err := h.taskService.AttachFile(userID, task.ID, fileHeader.Filename, src)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskFileDTO(*file, h.taskService.FileURL(file)))
}

// ListFiles returns the task's attachments.
func (h *TaskHandler) ListFiles(c *gin.Context) {
	task, _ := middleware.GetTask(c)

	files, err := h.taskService.ListFiles(task.ID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	fileDTOs := make([]dto.TaskFileDTO, len(files))
	for i, file := range files {
		fileDTOs[i] = dto.ToTaskFileDTO(file, h.taskService.FileURL(&file))
	}
	c.JSON(http.StatusOK, gin.H{"files": fileDTOs})
}

// DeleteFile removes an attachment and its stored blob.
func (h *TaskHandler) DeleteFile(c *gin.Context) {
	fileID, err := strconv.ParseUint(c.Param("file_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid file ID")
		return
	}

	if err := h.taskService.DeleteFile(fileID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrCommentRequired),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrDeadlineInPast),
		errors.Is(err, services.ErrColumnMismatch),
		errors.Is(err, services.ErrNotBoardMember),
		errors.Is(err, services.ErrAlreadyResponsible),
		errors.Is(err, services.ErrNotResponsible):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrNotTaskCreator):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrColumnNotFound),
		errors.Is(err, services.ErrFileNotFound):
		apierrors.NotFound(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
