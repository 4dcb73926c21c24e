package dto

import (
	"time"

	"github.com/yukikurage/kanban-board-api/internal/models"
)

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID          uint64              `json:"id"`
	ColumnID    uint64              `json:"column_id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    models.TaskPriority `json:"priority"`
	Deadline    *time.Time          `json:"deadline"`
	Position    int                 `json:"position"`
	CreatorID   uint64              `json:"creator_id"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Creator     *UserDTO            `json:"creator,omitempty"`
	Responsible []UserDTO           `json:"responsible,omitempty"`
	Comments    []CommentDTO        `json:"comments,omitempty"`
	Files       []TaskFileDTO       `json:"files,omitempty"`
}

// CommentDTO represents a task comment in API responses
type CommentDTO struct {
	ID        uint64    `json:"id"`
	TaskID    uint64    `json:"task_id"`
	UserID    uint64    `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskFileDTO represents a task attachment in API responses
type TaskFileDTO struct {
	ID         uint64    `json:"id"`
	TaskID     uint64    `json:"task_id"`
	FileName   string    `json:"file_name"`
	URL        string    `json:"url"`
	UploadedBy uint64    `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		ColumnID:    task.ColumnID,
		Title:       task.Title,
		Description: task.Description,
		Priority:    task.Priority,
		Deadline:    task.Deadline,
		Position:    task.Position,
		CreatorID:   task.CreatorID,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}

	// Include creator if preloaded
	if task.Creator.ID != 0 {
		creator := ToUserDTO(task.Creator)
		dto.Creator = &creator
	}

	// Include responsible users if preloaded
	if len(task.Responsible) > 0 {
		dto.Responsible = make([]UserDTO, len(task.Responsible))
		for i, link := range task.Responsible {
			dto.Responsible[i] = ToUserDTO(link.User)
		}
	}

	if len(task.Comments) > 0 {
		dto.Comments = make([]CommentDTO, len(task.Comments))
		for i, comment := range task.Comments {
			dto.Comments[i] = ToCommentDTO(comment)
		}
	}

	return dto
}

// ToTaskDTOs converts a slice of tasks
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	dtos := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		dtos[i] = ToTaskDTO(task)
	}
	return dtos
}

// ToCommentDTO converts a Comment model to CommentDTO
func ToCommentDTO(comment models.Comment) CommentDTO {
	return CommentDTO{
		ID:        comment.ID,
		TaskID:    comment.TaskID,
		UserID:    comment.UserID,
		Text:      comment.Text,
		CreatedAt: comment.CreatedAt,
	}
}

// ToTaskFileDTO converts a TaskFile model to DTO. The URL is resolved by
// the caller since only the service knows the store's base address.
func ToTaskFileDTO(file models.TaskFile, url string) TaskFileDTO {
	return TaskFileDTO{
		ID:         file.ID,
		TaskID:     file.TaskID,
		FileName:   file.FileName,
		URL:        url,
		UploadedBy: file.UploadedByID,
		UploadedAt: file.UploadedAt,
	}
}
