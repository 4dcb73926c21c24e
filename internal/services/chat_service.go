package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/yukikurage/kanban-board-api/internal/constants"
	"github.com/yukikurage/kanban-board-api/internal/events"
	"github.com/yukikurage/kanban-board-api/internal/models"
	"github.com/yukikurage/kanban-board-api/internal/realtime"
	"github.com/yukikurage/kanban-board-api/internal/repository"
	"github.com/yukikurage/kanban-board-api/internal/storage"
	"gorm.io/gorm"
)

var (
	ErrMessageEmpty      = errors.New("message text cannot be empty")
	ErrMessageTooLong    = errors.New("message text exceeds the maximum length")
	ErrMessageNotFound   = errors.New("message not found")
	ErrNotMessageAuthor  = errors.New("only the author can edit a message")
	ErrChatNotFound      = errors.New("chat not found")
	ErrNotChatMember     = errors.New("user is not a participant of this chat")
	ErrSelfPrivateChat   = errors.New("cannot open a private chat with yourself")
	ErrRecipientNotFound = errors.New("recipient not found")
)

// ChatService handles board chat rooms and private messaging.
type ChatService struct {
	chatRepo repository.ChatRepository
	userRepo repository.UserRepository
	store    storage.FileStore
	hub      *realtime.Hub
	producer *events.Producer
}

// NewChatService creates a new ChatService.
func NewChatService(chatRepo repository.ChatRepository, userRepo repository.UserRepository, store storage.FileStore, hub *realtime.Hub, producer *events.Producer) *ChatService {
	return &ChatService{
		chatRepo: chatRepo,
		userRepo: userRepo,
		store:    store,
		hub:      hub,
		producer: producer,
	}
}

// HistoryPage is one page of room history, oldest message first.
type HistoryPage struct {
	Messages []models.ChatMessage
	HasMore  bool
	Total    int64
}

// History returns a page of the board room's messages taken from the
// newest end. A board without a room yet reads as an empty history.
func (s *ChatService) History(boardID uint64, limit, offset int) (*HistoryPage, error) {
	if limit <= 0 {
		limit = constants.ChatHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	room, err := s.chatRepo.GetOrCreateRoom(boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to open chat room: %w", err)
	}

	messages, total, err := s.chatRepo.History(room.ID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	return &HistoryPage{
		Messages: messages,
		HasMore:  int64(offset+len(messages)) < total,
		Total:    total,
	}, nil
}

// Send persists a message to the board's room (created lazily) and
// broadcasts it to the room's subscribers, sender included.
func (s *ChatService) Send(boardID, authorID uint64, text string) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrMessageEmpty
	}
	if utf8.RuneCountInString(text) > constants.MaxChatMessageLength {
		return nil, ErrMessageTooLong
	}

	room, err := s.chatRepo.GetOrCreateRoom(boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to open chat room: %w", err)
	}

	message := &models.ChatMessage{
		RoomID:   room.ID,
		AuthorID: authorID,
		Text:     text,
	}
	if err := s.chatRepo.CreateMessage(message); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	s.broadcast(boardID, message)
	return message, nil
}

// Upload stores a chat attachment and posts a message carrying it.
func (s *ChatService) Upload(boardID, authorID uint64, filename string, r io.Reader) (*models.ChatMessage, error) {
	room, err := s.chatRepo.GetOrCreateRoom(boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to open chat room: %w", err)
	}

	key, err := s.store.Save(authorID, boardID, room.ID, filename, r)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	file := &models.ChatFile{
		RoomID:       room.ID,
		UploadedByID: authorID,
		FileKey:      key,
		FileName:     filename,
	}
	if err := s.chatRepo.CreateFile(file); err != nil {
		s.store.Remove(key)
		return nil, fmt.Errorf("failed to record file: %w", err)
	}

	message := &models.ChatMessage{
		RoomID:       room.ID,
		AuthorID:     authorID,
		Text:         filename,
		AttachmentID: &file.ID,
	}
	if err := s.chatRepo.CreateMessage(message); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	message.Attachment = file

	s.broadcast(boardID, message)
	return message, nil
}

// EditMessage replaces a message's text and marks it edited. Only the
// author may edit.
func (s *ChatService) EditMessage(actorID, messageID uint64, text string) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrMessageEmpty
	}
	if utf8.RuneCountInString(text) > constants.MaxChatMessageLength {
		return nil, ErrMessageTooLong
	}

	message, err := s.chatRepo.FindMessage(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to find message: %w", err)
	}
	if message.AuthorID != actorID {
		return nil, ErrNotMessageAuthor
	}

	message.Text = text
	message.IsEdited = true
	if err := s.chatRepo.UpdateMessage(message); err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}
	return message, nil
}

// MarkRead acknowledges the caller has seen the room. Room messages carry
// no per-user read state, so this only validates the room exists.
func (s *ChatService) MarkRead(boardID uint64) error {
	if _, err := s.chatRepo.GetOrCreateRoom(boardID); err != nil {
		return fmt.Errorf("failed to open chat room: %w", err)
	}
	return nil
}

// FileURL returns the address a chat attachment is served from.
func (s *ChatService) FileURL(file *models.ChatFile) string {
	return s.store.URL(file.FileKey)
}

// Dialog summarizes one private chat for the dialog list.
type Dialog struct {
	Chat        *models.PrivateChat
	OtherUser   *models.User
	LastMessage *models.PrivateMessage
	Unread      int64
}

// ListDialogs returns every private chat the user participates in, with
// the counterpart, the newest message and the unread count.
func (s *ChatService) ListDialogs(userID uint64) ([]Dialog, error) {
	chats, err := s.chatRepo.ListPrivateChats(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list private chats: %w", err)
	}

	dialogs := make([]Dialog, 0, len(chats))
	for i := range chats {
		chat := &chats[i]

		other, err := s.userRepo.FindByID(chat.OtherUserID(userID))
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to find user: %w", err)
		}
		last, err := s.chatRepo.LastPrivateMessage(chat.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load last message: %w", err)
		}
		unread, err := s.chatRepo.CountUnread(chat.ID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to count unread: %w", err)
		}

		dialogs = append(dialogs, Dialog{
			Chat:        chat,
			OtherUser:   other,
			LastMessage: last,
			Unread:      unread,
		})
	}
	return dialogs, nil
}

// DialogMessages opens (or creates) the dialog with otherID and returns
// its newest messages oldest first. Incoming messages are marked read.
func (s *ChatService) DialogMessages(userID, otherID uint64) (*models.PrivateChat, []models.PrivateMessage, error) {
	if userID == otherID {
		return nil, nil, ErrSelfPrivateChat
	}
	if _, err := s.userRepo.FindByID(otherID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrRecipientNotFound
		}
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	chat, err := s.chatRepo.FindOrCreatePrivateChat(userID, otherID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open private chat: %w", err)
	}

	messages, err := s.chatRepo.PrivateMessages(chat.ID, constants.ChatHistoryLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load messages: %w", err)
	}

	if err := s.chatRepo.MarkIncomingRead(chat.ID, userID); err != nil {
		return nil, nil, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return chat, messages, nil
}

// MarkDialogRead marks every incoming message of the dialog as read.
func (s *ChatService) MarkDialogRead(userID, chatID uint64) error {
	chat, err := s.chatRepo.FindPrivateChat(chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChatNotFound
		}
		return fmt.Errorf("failed to find private chat: %w", err)
	}
	if !chat.Involves(userID) {
		return ErrNotChatMember
	}
	if err := s.chatRepo.MarkIncomingRead(chatID, userID); err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	return nil
}

// SendPrivate persists a private message to the pair's chat (created on
// first contact) and delivers it to both participants' personal groups:
// the recipient receives a new_message event, the sender a message_sent
// acknowledgement.
func (s *ChatService) SendPrivate(senderID, recipientID uint64, text string) (*models.PrivateMessage, error) {
	if senderID == recipientID {
		return nil, ErrSelfPrivateChat
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrMessageEmpty
	}
	if utf8.RuneCountInString(text) > constants.MaxChatMessageLength {
		return nil, ErrMessageTooLong
	}

	if _, err := s.userRepo.FindByID(recipientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	chat, err := s.chatRepo.FindOrCreatePrivateChat(senderID, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to open private chat: %w", err)
	}

	message := &models.PrivateMessage{
		ChatID:   chat.ID,
		SenderID: senderID,
		Text:     text,
	}
	if err := s.chatRepo.CreatePrivateMessage(message); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	if s.hub != nil {
		s.hub.Publish(realtime.UserTopic(recipientID), map[string]any{
			"type":       "new_message",
			"chat_id":    chat.ID,
			"message_id": message.ID,
			"sender_id":  senderID,
			"text":       message.Text,
			"created_at": message.CreatedAt,
		})
		s.hub.Publish(realtime.UserTopic(senderID), map[string]any{
			"type":       "message_sent",
			"chat_id":    chat.ID,
			"message_id": message.ID,
			"created_at": message.CreatedAt,
		})
	}
	return message, nil
}

// broadcast fans a room message out to the board topic and records the
// mutation event.
func (s *ChatService) broadcast(boardID uint64, message *models.ChatMessage) {
	if s.hub != nil {
		s.hub.Publish(realtime.BoardTopic(boardID), map[string]any{
			"type":       "chat_message",
			"board_id":   boardID,
			"message_id": message.ID,
			"author_id":  message.AuthorID,
			"text":       message.Text,
			"is_edited":  message.IsEdited,
			"created_at": message.CreatedAt,
		})
	}
	s.producer.Publish(context.Background(), events.Event{
		Type:    events.TypeMessagePosted,
		BoardID: boardID,
		ActorID: message.AuthorID,
		Payload: map[string]any{"message_id": message.ID},
	})
}
