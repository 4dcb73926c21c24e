package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yukikurage/kanban-board-api/internal/access"
	"github.com/yukikurage/kanban-board-api/internal/events"
	"github.com/yukikurage/kanban-board-api/internal/models"
	"github.com/yukikurage/kanban-board-api/internal/realtime"
	"github.com/yukikurage/kanban-board-api/internal/repository"
	"github.com/yukikurage/kanban-board-api/internal/storage"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrFileNotFound       = errors.New("file not found")
	ErrNotTaskCreator     = errors.New("only the task creator can perform this action")
	ErrTitleRequired      = errors.New("title is required")
	ErrCommentRequired    = errors.New("comment text is required")
	ErrInvalidPriority    = errors.New("invalid task priority")
	ErrDeadlineInPast     = errors.New("deadline cannot be in the past")
	ErrColumnMismatch     = errors.New("target column belongs to a different board")
	ErrNotBoardMember     = errors.New("user does not have access to this board")
	ErrAlreadyResponsible = errors.New("user is already responsible for this task")
	ErrNotResponsible     = errors.New("user is not responsible for this task")
)

// TaskService handles task business logic.
type TaskService struct {
	taskRepo  repository.TaskRepository
	boardRepo repository.BoardRepository
	db        *gorm.DB
	store     storage.FileStore
	hub       *realtime.Hub
	producer  *events.Producer
}

// NewTaskService creates a new TaskService.
func NewTaskService(taskRepo repository.TaskRepository, boardRepo repository.BoardRepository, db *gorm.DB, store storage.FileStore, hub *realtime.Hub, producer *events.Producer) *TaskService {
	return &TaskService{
		taskRepo:  taskRepo,
		boardRepo: boardRepo,
		db:        db,
		store:     store,
		hub:       hub,
		producer:  producer,
	}
}

// CreateTaskInput represents input for creating a task.
type CreateTaskInput struct {
	ColumnID    uint64
	Title       string
	Description string
	Priority    models.TaskPriority
	Deadline    *time.Time
	CreatorID   uint64
}

// CreateTask appends a new task to the end of its column.
func (s *TaskService) CreateTask(input CreateTaskInput) (*models.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleRequired
	}
	if input.Priority == "" {
		input.Priority = models.PriorityLow
	}
	if !models.ValidPriority(input.Priority) {
		return nil, ErrInvalidPriority
	}
	if input.Deadline != nil && input.Deadline.Before(time.Now()) {
		return nil, ErrDeadlineInPast
	}

	column, err := s.boardRepo.FindColumn(input.ColumnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrColumnNotFound
		}
		return nil, fmt.Errorf("failed to find column: %w", err)
	}

	task := &models.Task{
		ColumnID:    input.ColumnID,
		Title:       input.Title,
		Description: input.Description,
		CreatorID:   input.CreatorID,
		Priority:    input.Priority,
		Deadline:    input.Deadline,
	}
	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.notify(column.BoardID, input.CreatorID, events.TypeTaskCreated, map[string]any{"task_id": task.ID})
	return task, nil
}

// GetTask returns a task with related data.
func (s *TaskService) GetTask(taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "Creator", "Responsible", "Responsible.User", "Comments", "Files")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// UpdateTaskInput represents input for updating a task. Nil fields are
// left unchanged.
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	Priority      *models.TaskPriority
	Deadline      *time.Time
	ClearDeadline bool
}

// UpdateTask updates a task's mutable fields.
func (s *TaskService) UpdateTask(actorID, taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, ErrTitleRequired
		}
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Priority != nil {
		if !models.ValidPriority(*input.Priority) {
			return nil, ErrInvalidPriority
		}
		task.Priority = *input.Priority
	}
	if input.ClearDeadline {
		task.Deadline = nil
	} else if input.Deadline != nil {
		if input.Deadline.Before(time.Now()) {
			return nil, ErrDeadlineInPast
		}
		task.Deadline = input.Deadline
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	if boardID, err := s.boardIDOfColumn(task.ColumnID); err == nil {
		s.notify(boardID, actorID, events.TypeTaskUpdated, map[string]any{"task_id": task.ID})
	}
	return task, nil
}

// MoveTask repositions a task within its column or transfers it to
// another column of the same board. Position 0 appends to the target.
func (s *TaskService) MoveTask(actorID, taskID, targetColumnID uint64, position int) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	target, err := s.boardRepo.FindColumn(targetColumnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrColumnNotFound
		}
		return nil, fmt.Errorf("failed to find column: %w", err)
	}

	moved, err := s.taskRepo.Move(taskID, targetColumnID, position)
	if err != nil {
		if errors.Is(err, repository.ErrColumnMismatch) {
			return nil, ErrColumnMismatch
		}
		return nil, fmt.Errorf("failed to move task: %w", err)
	}

	s.notify(target.BoardID, actorID, events.TypeTaskMoved, map[string]any{
		"task_id":     moved.ID,
		"from_column": task.ColumnID,
		"to_column":   moved.ColumnID,
		"position":    moved.Position,
	})
	return moved, nil
}

// DeleteTask deletes a task if the actor is its creator.
func (s *TaskService) DeleteTask(actorID, taskID uint64) error {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}
	if task.CreatorID != actorID {
		return ErrNotTaskCreator
	}

	boardID, berr := s.boardIDOfColumn(task.ColumnID)

	if err := s.taskRepo.Delete(task); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	if berr == nil {
		s.notify(boardID, actorID, events.TypeTaskDeleted, map[string]any{"task_id": taskID})
	}
	return nil
}

// AssignResponsible marks a user as responsible for a task. The user must
// already hold access to the task's board; assigning twice is rejected.
func (s *TaskService) AssignResponsible(actorID, taskID, userID uint64) error {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	boardID, err := s.boardIDOfColumn(task.ColumnID)
	if err != nil {
		return err
	}
	ok, err := access.HasBoardAccess(s.db, userID, boardID)
	if err != nil {
		return fmt.Errorf("failed to check board access: %w", err)
	}
	if !ok {
		return ErrNotBoardMember
	}

	if _, err := s.taskRepo.FindResponsible(taskID, userID); err == nil {
		return ErrAlreadyResponsible
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check responsible: %w", err)
	}

	if err := s.taskRepo.AddResponsible(taskID, userID); err != nil {
		return fmt.Errorf("failed to assign responsible: %w", err)
	}

	s.notify(boardID, actorID, events.TypeTaskUpdated, map[string]any{
		"task_id":        taskID,
		"responsible_id": userID,
	})
	return nil
}

// UnassignResponsible removes a responsible link from a task.
func (s *TaskService) UnassignResponsible(actorID, taskID, userID uint64) error {
	if _, err := s.taskRepo.FindByID(taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if _, err := s.taskRepo.FindResponsible(taskID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotResponsible
		}
		return fmt.Errorf("failed to check responsible: %w", err)
	}

	if err := s.taskRepo.RemoveResponsible(taskID, userID); err != nil {
		return fmt.Errorf("failed to unassign responsible: %w", err)
	}
	return nil
}

// AddComment appends a comment to a task. Comments are never edited or
// reordered.
func (s *TaskService) AddComment(actorID, taskID uint64, text string) (*models.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrCommentRequired
	}
	if _, err := s.taskRepo.FindByID(taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	comment := &models.Comment{
		TaskID: taskID,
		UserID: actorID,
		Text:   text,
	}
	if err := s.taskRepo.AddComment(comment); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	return comment, nil
}

// ListComments returns a task's comments oldest first.
func (s *TaskService) ListComments(taskID uint64) ([]models.Comment, error) {
	if _, err := s.taskRepo.FindByID(taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	comments, err := s.taskRepo.ListComments(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// AttachFile stores an uploaded blob and records it against the task.
func (s *TaskService) AttachFile(actorID, taskID uint64, filename string, r io.Reader) (*models.TaskFile, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	boardID, err := s.boardIDOfColumn(task.ColumnID)
	if err != nil {
		return nil, err
	}

	key, err := s.store.Save(actorID, boardID, taskID, filename, r)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	file := &models.TaskFile{
		TaskID:       taskID,
		UploadedByID: actorID,
		FileKey:      key,
		FileName:     filename,
	}
	if err := s.taskRepo.AddFile(file); err != nil {
		s.store.Remove(key)
		return nil, fmt.Errorf("failed to record file: %w", err)
	}
	return file, nil
}

// ListFiles returns a task's attachments.
func (s *TaskService) ListFiles(taskID uint64) ([]models.TaskFile, error) {
	files, err := s.taskRepo.ListFiles(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return files, nil
}

// FileURL returns the address a stored attachment is served from.
func (s *TaskService) FileURL(file *models.TaskFile) string {
	return s.store.URL(file.FileKey)
}

// DeleteFile removes an attachment record and its blob.
func (s *TaskService) DeleteFile(fileID uint64) error {
	file, err := s.taskRepo.FindFile(fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFileNotFound
		}
		return fmt.Errorf("failed to find file: %w", err)
	}

	if err := s.taskRepo.DeleteFile(fileID); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if err := s.store.Remove(file.FileKey); err != nil {
		return fmt.Errorf("failed to remove blob: %w", err)
	}
	return nil
}

// boardIDOfColumn resolves a column to its board.
func (s *TaskService) boardIDOfColumn(columnID uint64) (uint64, error) {
	column, err := s.boardRepo.FindColumn(columnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrColumnNotFound
		}
		return 0, fmt.Errorf("failed to find column: %w", err)
	}
	return column.BoardID, nil
}

// notify publishes a mutation to the board's realtime room and, when a
// producer is configured, to Kafka.
func (s *TaskService) notify(boardID, actorID uint64, eventType string, payload map[string]any) {
	if s.hub != nil {
		body := map[string]any{"type": eventType, "board_id": boardID}
		for k, v := range payload {
			body[k] = v
		}
		s.hub.Publish(realtime.BoardTopic(boardID), body)
	}
	s.producer.Publish(context.Background(), events.Event{
		Type:    eventType,
		BoardID: boardID,
		ActorID: actorID,
		Payload: payload,
	})
}
