package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/kanban-board-api/internal/constants"
	"github.com/yukikurage/kanban-board-api/internal/dto"
	apierrors "github.com/yukikurage/kanban-board-api/internal/errors"
	"github.com/yukikurage/kanban-board-api/internal/middleware"
	"github.com/yukikurage/kanban-board-api/internal/services"
	"github.com/yukikurage/kanban-board-api/internal/utils"
)

// ChatHandler coordinates the REST chat endpoints: room history and
// sending for clients without a live connection, plus private dialogs.
type ChatHandler struct {
	chatService *services.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// History returns a page of the board room's messages oldest first.
func (h *ChatHandler) History(c *gin.Context) {
	boardID, exists := middleware.GetBoardID(c)
	if !exists {
		apierrors.Forbidden(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	page, err := h.chatService.History(boardID, params.Limit, params.Offset)
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}

	messages := make([]dto.ChatMessageDTO, len(page.Messages))
	for i := range page.Messages {
		message := page.Messages[i]
		url := ""
		if message.Attachment != nil {
			url = h.chatService.FileURL(message.Attachment)
		}
		messages[i] = dto.ToChatMessageDTO(message, url)
	}

	c.JSON(http.StatusOK, dto.ChatHistoryDTO{
		Messages: messages,
		HasMore:  page.HasMore,
		Total:    page.Total,
	})
}

// Send posts a message to the board's room.
func (h *ChatHandler) Send(c *gin.Context) {
	type SendRequest struct {
		Text string `json:"text" binding:"required"`
	}

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	boardID, _ := middleware.GetBoardID(c)
	userID, _ := middleware.GetUserID(c)

	message, err := h.chatService.Send(boardID, userID, req.Text)
	if err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToChatMessageDTO(*message, ""))
}

// Upload posts a file message to the board's room.
func (h *ChatHandler) Upload(c *gin.Context) {
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

	boardID, _ := middleware.GetBoardID(c)
	userID, _ := middleware.GetUserID(c)

	message, err := h.chatService.Upload(boardID, userID, fileHeader.Filename, src)
	if err != nil {
		respondChatError(c, err)
		return
	}

	url := ""
	if message.Attachment != nil {
		url = h.chatService.FileURL(message.Attachment)
	}
	c.JSON(http.StatusCreated, dto.ToChatMessageDTO(*message, url))
}

// MarkRead acknowledges the caller has seen the room.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	boardID, _ := middleware.GetBoardID(c)

	if err := h.chatService.MarkRead(boardID); err != nil {
		apierrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// EditMessage replaces a room message's text. Author only.
func (h *ChatHandler) EditMessage(c *gin.Context) {
	type EditRequest struct {
		Text string `json:"text" binding:"required"`
	}

	var req EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	messageID, err := strconv.ParseUint(c.Param("message_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid message ID")
		return
	}

	userID, _ := middleware.GetUserID(c)
	message, err := h.chatService.EditMessage(userID, messageID, req.Text)
	if err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToChatMessageDTO(*message, ""))
}

// ListDialogs returns the caller's private chats with unread counts.
func (h *ChatHandler) ListDialogs(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	dialogs, err := h.chatService.ListDialogs(userID)
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}

	dialogDTOs := make([]dto.DialogDTO, len(dialogs))
	for i, dialog := range dialogs {
		dialogDTOs[i] = dto.ToDialogDTO(dialog)
	}
	c.JSON(http.StatusOK, gin.H{"dialogs": dialogDTOs})
}

// DialogMessages opens the dialog with the user named by the :user_id
// parameter and returns its newest messages oldest first. Incoming
// messages are marked read as a side effect.
func (h *ChatHandler) DialogMessages(c *gin.Context) {
	otherID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	userID, _ := middleware.GetUserID(c)
	chat, messages, err := h.chatService.DialogMessages(userID, otherID)
	if err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"chat_id":  chat.ID,
		"messages": dto.ToPrivateMessageDTOs(messages),
	})
}

// SendPrivate posts a private message to the user named by the :user_id
// parameter.
func (h *ChatHandler) SendPrivate(c *gin.Context) {
	type SendRequest struct {
		Text string `json:"text" binding:"required"`
	}

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	recipientID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	userID, _ := middleware.GetUserID(c)
	message, err := h.chatService.SendPrivate(userID, recipientID, req.Text)
	if err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToPrivateMessageDTO(*message))
}

// MarkDialogRead marks every incoming message of a dialog as read.
func (h *ChatHandler) MarkDialogRead(c *gin.Context) {
	chatID, err := strconv.ParseUint(c.Param("chat_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid chat ID")
		return
	}

	userID, _ := middleware.GetUserID(c)
	if err := h.chatService.MarkDialogRead(userID, chatID); err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func respondChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrMessageEmpty),
		errors.Is(err, services.ErrMessageTooLong),
		errors.Is(err, services.ErrSelfPrivateChat):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrNotMessageAuthor),
		errors.Is(err, services.ErrNotChatMember):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrMessageNotFound),
		errors.Is(err, services.ErrChatNotFound),
		errors.Is(err, services.ErrRecipientNotFound):
		apierrors.NotFound(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
