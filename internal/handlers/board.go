package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/kanban-board-api/internal/dto"
	apierrors "github.com/yukikurage/kanban-board-api/internal/errors"
	"github.com/yukikurage/kanban-board-api/internal/middleware"
	"github.com/yukikurage/kanban-board-api/internal/models"
	"github.com/yukikurage/kanban-board-api/internal/services"
)

// BoardHandler coordinates board, membership and column HTTP handlers.
type BoardHandler struct {
	boardService *services.BoardService
}

// NewBoardHandler creates a new BoardHandler.
func NewBoardHandler(boardService *services.BoardService) *BoardHandler {
	return &BoardHandler{
		boardService: boardService,
	}
}

// CreateBoard creates a board owned by the caller.
func (h *BoardHandler) CreateBoard(c *gin.Context) {
	type CreateBoardRequest struct {
		Title string `json:"title" binding:"required,max=200"`
	}

	var req CreateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	board, err := h.boardService.CreateBoard(userID, req.Title)
	if err != nil {
		respondBoardError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToBoardDTO(*board))
}

// ListBoards returns the caller's boards ordered by their personal
// ranking. Archived boards are included only with ?include_archived=true.
func (h *BoardHandler) ListBoards(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	includeArchived := c.Query("include_archived") == "true"
	boards, err := h.boardService.ListBoardsForUser(userID, includeArchived)
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"boards": dto.ToBoardDTOs(boards)})
}

// GetBoard returns a board with its columns and their tasks.
func (h *BoardHandler) GetBoard(c *gin.Context) {
	boardID, exists := middleware.GetBoardID(c)
	if !exists {
		apierrors.Forbidden(c, "")
		return
	}

	board, err := h.boardService.GetBoard(boardID)
	if err != nil {
		respondBoardError(c, err)
		return
	}

	columns, tasks, err := h.boardService.ListColumns(boardID)
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, dto.ToBoardDetailDTO(*board, columns, tasks))
}

// RenameBoard updates a board's title. Owner only.
func (h *BoardHandler) RenameBoard(c *gin.Context) {
	type RenameBoardRequest struct {
		Title string `json:"title" binding:"required,max=200"`
	}

	var req RenameBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	boardID, _ := middleware.GetBoardID(c)
	board, err := h.boardService.RenameBoard(boardID, req.Title)
	if err != nil {
		respondBoardError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToBoardDTO(*board))
}

// SetArchived archives or unarchives a board. Owner only.
func (h *BoardHandler) SetArchived(c *gin.Context) {
	type ArchiveRequest struct {
		IsArchived *bool `json:"is_archived" binding:"required"`
	}

	var req ArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	userID, _ := middleware.GetUserID(c)
	boardID, _ := middleware.GetBoardID(c)

	board, err := h.boardService.SetArchived(userID, boardID, *req.IsArchived)
	if err != nil {
		respondBoardError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToBoardDTO(*board))
}

// DeleteBoard removes a board and everything under it. Owner only.
func (h *BoardHandler) DeleteBoard(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	boardID, _ := middleware.GetBoardID(c)

	if err := h.boardService.DeleteBoard(userID, boardID); err != nil {
		respondBoardError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ReorderBoards applies a client-supplied order to the caller's personal
// board list.
func (h *BoardHandler) ReorderBoards(c *gin.Context) {
	type ReorderRequest struct {
		BoardIDs []uint64 `json:"board_ids" binding:"required"`
	}

	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	boards, err := h.boardService.ReorderBoards(userID, req.BoardIDs)
	if err != nil {
		respondBoardError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"boards": dto.ToBoardDTOs(boards)})
}

// AddMember grants a user access to the board. Owner only; repeated
// grants are a no-op.
func (h *BoardHandler) AddMember(c *gin.Context) {
	type AddMemberRequest struct {
		RecipientID uint64           `json:"recipient_id" binding:"required"`
		Role        models.BoardRole `json:"role"`
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	userID, _ := middleware.GetUserID(c)
	boardID, _ := middleware.GetBoardID(c)

	permit, err := h.boardService.AddMember(userID, boardID, req.RecipientID, req.Role)
	if err != nil {
		respondBoardError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"board_id": permit.BoardID,
		"user_id":  permit.UserID,
		"role":     permit.Role,
	})
}

// RemoveMember revokes a user's access to the board. Owner only.
func (h *BoardHandler) RemoveMember(c *gin.Context) {
	type RemoveMemberRequest struct {
		RecipientID uint64 `json:"recipient_id" binding:"required"`
	}

	var req RemoveMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	userID, _ := middleware.GetUserID(c)
	boardID, _ := middleware.GetBoardID(c)

	if err := h.boardService.RemoveMember(userID, boardID, req.RecipientID); err != nil {
		respondBoardError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ExitBoard removes the caller's own membership. Owners cannot exit.
func (h *BoardHandler) ExitBoard(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	boardID, _ := middleware.GetBoardID(c)

	if err := h.boardService.ExitBoard(userID, boardID); err != nil {
		respondBoardError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListMembers returns the board's permits.
func (h *BoardHandler) ListMembers(c *gin.Context) {
	boardID, _ := middleware.GetBoardID(c)

	permits, err := h.boardService.ListMembers(boardID)
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}

	members := make([]dto.BoardMemberDTO, len(permits))
	for i, permit := range permits {
		members[i] = dto.ToBoardMemberDTO(permit)
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// CreateColumn appends a column to the board.
func (h *BoardHandler) CreateColumn(c *gin.Context) {
	type CreateColumnRequest struct {
		Title string `json:"title" binding:"required,max=200"`
	}

	var req CreateColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	userID, _ := middleware.GetUserID(c)
	boardID, _ := middleware.GetBoardID(c)

	column, err := h.boardService.CreateColumn(userID, boardID, req.Title)
	if err != nil {
		respondBoardError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToColumnDTO(*column))
}

// RenameColumn updates a column's title.
func (h *BoardHandler) RenameColumn(c *gin.Context) {
	type RenameColumnRequest struct {
		Title string `json:"title" binding:"required,max=200"`
	}

	var req RenameColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	columnID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid column ID")
		return
	}

	column, err := h.boardService.RenameColumn(columnID, req.Title)
	if err != nil {
		respondBoardError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToColumnDTO(*column))
}

// DeleteColumn removes a column and its tasks.
func (h *BoardHandler) DeleteColumn(c *gin.Context) {
	columnID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid column ID")
		return
	}

	userID, _ := middleware.GetUserID(c)
	if _, err := h.boardService.DeleteColumn(userID, columnID); err != nil {
		respondBoardError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func respondBoardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidBoardTitle),
		errors.Is(err, services.ErrInvalidColumnName),
		errors.Is(err, services.ErrInvalidRole):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrOwnerCannotExit),
		errors.Is(err, services.ErrCannotRemoveOwner),
		errors.Is(err, services.ErrBoardNotVisible):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrBoardNotFound),
		errors.Is(err, services.ErrColumnNotFound),
		errors.Is(err, services.ErrMemberNotFound),
		errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
