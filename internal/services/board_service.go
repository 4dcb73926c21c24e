package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/kanban-board-api/internal/events"
	"github.com/yukikurage/kanban-board-api/internal/models"
	"github.com/yukikurage/kanban-board-api/internal/realtime"
	"github.com/yukikurage/kanban-board-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrBoardNotFound     = errors.New("board not found")
	ErrColumnNotFound    = errors.New("column not found")
	ErrInvalidBoardTitle = errors.New("board title cannot be empty")
	ErrInvalidColumnName = errors.New("column title cannot be empty")
	ErrInvalidRole       = errors.New("invalid board role")
	ErrOwnerCannotExit   = errors.New("owner cannot exit their own board")
	ErrCannotRemoveOwner = errors.New("cannot remove the board owner")
	ErrMemberNotFound    = errors.New("board member not found")
	ErrBoardNotVisible   = errors.New("board not visible to user")
)

// BoardService provides business logic for boards, columns, membership and
// the per-viewer board ordering.
type BoardService struct {
	boardRepo repository.BoardRepository
	userRepo  repository.UserRepository
	taskRepo  repository.TaskRepository
	hub       *realtime.Hub
	producer  *events.Producer
}

// NewBoardService creates a new BoardService.
func NewBoardService(boardRepo repository.BoardRepository, userRepo repository.UserRepository, taskRepo repository.TaskRepository, hub *realtime.Hub, producer *events.Producer) *BoardService {
	return &BoardService{
		boardRepo: boardRepo,
		userRepo:  userRepo,
		taskRepo:  taskRepo,
		hub:       hub,
		producer:  producer,
	}
}

// CreateBoard creates a board owned by ownerID. The board row, the owner
// permit and the owner's ordering row are written in one transaction; the
// new board lands at position 1 of the owner's personal list.
func (s *BoardService) CreateBoard(ownerID uint64, title string) (*models.Board, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrInvalidBoardTitle
	}

	board := &models.Board{
		OwnerID: ownerID,
		Title:   title,
	}
	if err := s.boardRepo.CreateWithOwner(board); err != nil {
		return nil, fmt.Errorf("failed to create board: %w", err)
	}

	s.notify(board.ID, ownerID, events.TypeBoardCreated, nil)
	return board, nil
}

// GetBoard returns a board with its columns preloaded in position order.
func (s *BoardService) GetBoard(boardID uint64) (*models.Board, error) {
	board, err := s.boardRepo.FindByID(boardID, "Columns")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBoardNotFound
		}
		return nil, fmt.Errorf("failed to find board: %w", err)
	}
	return board, nil
}

// RenameBoard updates a board's title.
func (s *BoardService) RenameBoard(boardID uint64, title string) (*models.Board, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrInvalidBoardTitle
	}

	board, err := s.boardRepo.FindByID(boardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBoardNotFound
		}
		return nil, fmt.Errorf("failed to find board: %w", err)
	}

	board.Title = title
	if err := s.boardRepo.Update(board); err != nil {
		return nil, fmt.Errorf("failed to update board: %w", err)
	}
	return board, nil
}

// SetArchived archives or unarchives a board. Archived boards stay
// readable but drop out of the default board listing.
func (s *BoardService) SetArchived(actorID, boardID uint64, archived bool) (*models.Board, error) {
	board, err := s.boardRepo.FindByID(boardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBoardNotFound
		}
		return nil, fmt.Errorf("failed to find board: %w", err)
	}

	if board.IsArchived == archived {
		return board, nil
	}
	board.IsArchived = archived
	if err := s.boardRepo.Update(board); err != nil {
		return nil, fmt.Errorf("failed to update board: %w", err)
	}

	if archived {
		s.notify(board.ID, actorID, events.TypeBoardArchived, nil)
	}
	return board, nil
}

// DeleteBoard removes a board and everything under it.
func (s *BoardService) DeleteBoard(actorID, boardID uint64) error {
	if _, err := s.boardRepo.FindByID(boardID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBoardNotFound
		}
		return fmt.Errorf("failed to find board: %w", err)
	}

	if err := s.boardRepo.Delete(boardID); err != nil {
		return fmt.Errorf("failed to delete board: %w", err)
	}

	s.notify(boardID, actorID, events.TypeBoardDeleted, nil)
	return nil
}

// ListBoardsForUser returns the boards userID can see, ordered by the
// user's personal ranking.
func (s *BoardService) ListBoardsForUser(userID uint64, includeArchived bool) ([]models.Board, error) {
	boards, err := s.boardRepo.ListVisibleBoards(userID, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}
	return boards, nil
}

// ReorderBoards applies a client-supplied order to the user's personal
// board list. Listed boards come first in the given order; boards the user
// can see but did not list keep their relative order after them.
func (s *BoardService) ReorderBoards(userID uint64, boardIDs []uint64) ([]models.Board, error) {
	if err := s.boardRepo.ReorderBoards(userID, boardIDs); err != nil {
		if errors.Is(err, repository.ErrBoardNotVisible) {
			return nil, ErrBoardNotVisible
		}
		return nil, fmt.Errorf("failed to reorder boards: %w", err)
	}
	return s.ListBoardsForUser(userID, false)
}

// AddMember grants a user access to a board. Granting access a user
// already holds is a no-op, not an error.
func (s *BoardService) AddMember(actorID, boardID, userID uint64, role models.BoardRole) (*models.BoardPermit, error) {
	switch role {
	case models.RoleMember, models.RoleViewer:
	case "":
		role = models.RoleMember
	default:
		return nil, ErrInvalidRole
	}

	if _, err := s.userRepo.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	permit := &models.BoardPermit{
		BoardID: boardID,
		UserID:  userID,
		Role:    role,
	}
	if err := s.boardRepo.AddPermit(permit); err != nil {
		return nil, fmt.Errorf("failed to add board member: %w", err)
	}

	s.notify(boardID, actorID, events.TypeMemberAdded, map[string]any{"user_id": userID})
	return permit, nil
}

// RemoveMember revokes a user's access to a board. The owner's own permit
// cannot be revoked.
func (s *BoardService) RemoveMember(actorID, boardID, targetID uint64) error {
	board, err := s.boardRepo.FindByID(boardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBoardNotFound
		}
		return fmt.Errorf("failed to find board: %w", err)
	}
	if board.OwnerID == targetID {
		return ErrCannotRemoveOwner
	}

	if _, err := s.boardRepo.FindPermit(boardID, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to find board member: %w", err)
	}

	if err := s.boardRepo.RemovePermit(boardID, targetID); err != nil {
		return fmt.Errorf("failed to remove board member: %w", err)
	}

	s.notify(boardID, actorID, events.TypeMemberRemoved, map[string]any{"user_id": targetID})
	return nil
}

// ExitBoard lets a member leave a board on their own. The owner cannot
// exit; owners delete or transfer instead.
func (s *BoardService) ExitBoard(userID, boardID uint64) error {
	board, err := s.boardRepo.FindByID(boardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBoardNotFound
		}
		return fmt.Errorf("failed to find board: %w", err)
	}
	if board.OwnerID == userID {
		return ErrOwnerCannotExit
	}

	if _, err := s.boardRepo.FindPermit(boardID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to find board member: %w", err)
	}

	if err := s.boardRepo.RemovePermit(boardID, userID); err != nil {
		return fmt.Errorf("failed to exit board: %w", err)
	}
	return nil
}

// ListMembers returns a board's permits with user data preloaded.
func (s *BoardService) ListMembers(boardID uint64) ([]models.BoardPermit, error) {
	permits, err := s.boardRepo.ListPermits(boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list board members: %w", err)
	}
	return permits, nil
}

// CreateColumn appends a column to the end of the board's column list.
func (s *BoardService) CreateColumn(actorID, boardID uint64, title string) (*models.Column, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrInvalidColumnName
	}

	column := &models.Column{
		BoardID: boardID,
		Title:   title,
	}
	if err := s.boardRepo.CreateColumn(column); err != nil {
		return nil, fmt.Errorf("failed to create column: %w", err)
	}

	s.notify(boardID, actorID, events.TypeColumnCreated, map[string]any{"column_id": column.ID})
	return column, nil
}

// RenameColumn updates a column's title.
func (s *BoardService) RenameColumn(columnID uint64, title string) (*models.Column, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrInvalidColumnName
	}

	column, err := s.boardRepo.FindColumn(columnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrColumnNotFound
		}
		return nil, fmt.Errorf("failed to find column: %w", err)
	}

	column.Title = title
	if err := s.boardRepo.UpdateColumn(column); err != nil {
		return nil, fmt.Errorf("failed to update column: %w", err)
	}
	return column, nil
}

// DeleteColumn removes a column, its tasks and everything under them, and
// closes the gap in the board's column positions.
func (s *BoardService) DeleteColumn(actorID, columnID uint64) (*models.Column, error) {
	column, err := s.boardRepo.FindColumn(columnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrColumnNotFound
		}
		return nil, fmt.Errorf("failed to find column: %w", err)
	}

	if err := s.boardRepo.DeleteColumn(column); err != nil {
		return nil, fmt.Errorf("failed to delete column: %w", err)
	}

	s.notify(column.BoardID, actorID, events.TypeColumnDeleted, map[string]any{"column_id": columnID})
	return column, nil
}

// FindColumn returns a column by ID.
func (s *BoardService) FindColumn(columnID uint64) (*models.Column, error) {
	column, err := s.boardRepo.FindColumn(columnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrColumnNotFound
		}
		return nil, fmt.Errorf("failed to find column: %w", err)
	}
	return column, nil
}

// ListColumns returns a board's columns with their tasks, both in
// position order.
func (s *BoardService) ListColumns(boardID uint64) ([]models.Column, []models.Task, error) {
	columns, err := s.boardRepo.ListColumns(boardID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list columns: %w", err)
	}

	var tasks []models.Task
	for i := range columns {
		columnTasks, err := s.taskRepo.ListByColumn(columns[i].ID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list tasks: %w", err)
		}
		tasks = append(tasks, columnTasks...)
	}
	return columns, tasks, nil
}

// notify publishes a mutation to the board's realtime room and, when a
// producer is configured, to Kafka.
func (s *BoardService) notify(boardID, actorID uint64, eventType string, payload map[string]any) {
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
