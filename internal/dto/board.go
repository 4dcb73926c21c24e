package dto

import (
	"time"

	"github.com/yukikurage/kanban-board-api/internal/models"
)

// BoardDTO represents a board in API responses
type BoardDTO struct {
	ID         uint64      `json:"id"`
	Title      string      `json:"title"`
	OwnerID    uint64      `json:"owner_id"`
	IsArchived bool        `json:"is_archived"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Columns    []ColumnDTO `json:"columns,omitempty"`
}

// ColumnDTO represents a column in API responses
type ColumnDTO struct {
	ID       uint64    `json:"id"`
	BoardID  uint64    `json:"board_id"`
	Title    string    `json:"title"`
	Position int       `json:"position"`
	Tasks    []TaskDTO `json:"tasks,omitempty"`
}

// BoardMemberDTO represents a board permit in API responses
type BoardMemberDTO struct {
	User      UserDTO          `json:"user"`
	Role      models.BoardRole `json:"role"`
	CreatedAt time.Time        `json:"created_at"`
}

// BoardDetailDTO is a board with its columns and their tasks, both in
// position order
type BoardDetailDTO struct {
	BoardDTO
	Columns []ColumnDTO `json:"columns"`
}

// ToBoardDTO converts a Board model to BoardDTO
func ToBoardDTO(board models.Board) BoardDTO {
	return BoardDTO{
		ID:         board.ID,
		Title:      board.Title,
		OwnerID:    board.OwnerID,
		IsArchived: board.IsArchived,
		CreatedAt:  board.CreatedAt,
		UpdatedAt:  board.UpdatedAt,
	}
}

// ToBoardDTOs converts a slice of boards
func ToBoardDTOs(boards []models.Board) []BoardDTO {
	dtos := make([]BoardDTO, len(boards))
	for i, board := range boards {
		dtos[i] = ToBoardDTO(board)
	}
	return dtos
}

// ToColumnDTO converts a Column model to ColumnDTO
func ToColumnDTO(column models.Column) ColumnDTO {
	return ColumnDTO{
		ID:       column.ID,
		BoardID:  column.BoardID,
		Title:    column.Title,
		Position: column.Position,
	}
}

// ToBoardMemberDTO converts a permit to DTO
func ToBoardMemberDTO(permit models.BoardPermit) BoardMemberDTO {
	return BoardMemberDTO{
		User:      ToUserDTO(permit.User),
		Role:      permit.Role,
		CreatedAt: permit.CreatedAt,
	}
}

// ToBoardDetailDTO assembles a board with its columns and tasks. Tasks
// are distributed to their columns preserving position order.
func ToBoardDetailDTO(board models.Board, columns []models.Column, tasks []models.Task) BoardDetailDTO {
	byColumn := make(map[uint64][]TaskDTO)
	for _, task := range tasks {
		byColumn[task.ColumnID] = append(byColumn[task.ColumnID], ToTaskDTO(task))
	}

	columnDTOs := make([]ColumnDTO, len(columns))
	for i, column := range columns {
		columnDTO := ToColumnDTO(column)
		columnDTO.Tasks = byColumn[column.ID]
		columnDTOs[i] = columnDTO
	}

	return BoardDetailDTO{
		BoardDTO: ToBoardDTO(board),
		Columns:  columnDTOs,
	}
}
