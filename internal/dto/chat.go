package dto

import (
	"time"

	"github.com/yukikurage/kanban-board-api/internal/models"
	"github.com/yukikurage/kanban-board-api/internal/services"
)

// ChatMessageDTO represents a room message in API responses
type ChatMessageDTO struct {
	ID         uint64       `json:"id"`
	RoomID     uint64       `json:"room_id"`
	AuthorID   uint64       `json:"author_id"`
	Text       string       `json:"text"`
	IsEdited   bool         `json:"is_edited"`
	CreatedAt  time.Time    `json:"created_at"`
	Author     *UserDTO     `json:"author,omitempty"`
	Attachment *ChatFileDTO `json:"attachment,omitempty"`
}

// ChatFileDTO represents a chat attachment in API responses
type ChatFileDTO struct {
	ID         uint64    `json:"id"`
	FileName   string    `json:"file_name"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ChatHistoryDTO is one page of room history, oldest message first
type ChatHistoryDTO struct {
	Messages []ChatMessageDTO `json:"messages"`
	HasMore  bool             `json:"has_more"`
	Total    int64            `json:"total"`
}

// DialogDTO summarizes one private chat in the dialog list
type DialogDTO struct {
	ChatID      uint64             `json:"chat_id"`
	OtherUser   *UserDTO           `json:"other_user,omitempty"`
	LastMessage *PrivateMessageDTO `json:"last_message,omitempty"`
	Unread      int64              `json:"unread"`
}

// PrivateMessageDTO represents a private message in API responses
type PrivateMessageDTO struct {
	ID        uint64    `json:"id"`
	ChatID    uint64    `json:"chat_id"`
	SenderID  uint64    `json:"sender_id"`
	Text      string    `json:"text"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// ToChatMessageDTO converts a ChatMessage model to DTO. attachmentURL is
// empty when the message carries no attachment.
func ToChatMessageDTO(message models.ChatMessage, attachmentURL string) ChatMessageDTO {
	dto := ChatMessageDTO{
		ID:        message.ID,
		RoomID:    message.RoomID,
		AuthorID:  message.AuthorID,
		Text:      message.Text,
		IsEdited:  message.IsEdited,
		CreatedAt: message.CreatedAt,
	}

	if message.Author.ID != 0 {
		author := ToUserDTO(message.Author)
		dto.Author = &author
	}
	if message.Attachment != nil {
		dto.Attachment = &ChatFileDTO{
			ID:         message.Attachment.ID,
			FileName:   message.Attachment.FileName,
			URL:        attachmentURL,
			UploadedAt: message.Attachment.UploadedAt,
		}
	}
	return dto
}

// ToPrivateMessageDTO converts a PrivateMessage model to DTO
func ToPrivateMessageDTO(message models.PrivateMessage) PrivateMessageDTO {
	return PrivateMessageDTO{
		ID:        message.ID,
		ChatID:    message.ChatID,
		SenderID:  message.SenderID,
		Text:      message.Text,
		IsRead:    message.IsRead,
		CreatedAt: message.CreatedAt,
	}
}

// ToPrivateMessageDTOs converts a slice of private messages
func ToPrivateMessageDTOs(messages []models.PrivateMessage) []PrivateMessageDTO {
	dtos := make([]PrivateMessageDTO, len(messages))
	for i, message := range messages {
		dtos[i] = ToPrivateMessageDTO(message)
	}
	return dtos
}

// ToDialogDTO converts a dialog summary to DTO
func ToDialogDTO(dialog services.Dialog) DialogDTO {
	dto := DialogDTO{
		ChatID: dialog.Chat.ID,
		Unread: dialog.Unread,
	}
	if dialog.OtherUser != nil {
		other := ToUserDTO(*dialog.OtherUser)
		dto.OtherUser = &other
	}
	if dialog.LastMessage != nil {
		last := ToPrivateMessageDTO(*dialog.LastMessage)
		dto.LastMessage = &last
	}
	return dto
}
