package repository

import (
	"errors"

	"github.com/yukikurage/kanban-board-api/internal/database"
	"github.com/yukikurage/kanban-board-api/internal/models"
	"github.com/yukikurage/kanban-board-api/internal/utils"
	"gorm.io/gorm"
)

// GormChatRepository is a GORM implementation of ChatRepository
type GormChatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new ChatRepository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &GormChatRepository{db: db}
}

// GetOrCreateRoom returns the board's chat room, creating it lazily on the
// first message or history fetch.
func (r *GormChatRepository) GetOrCreateRoom(boardID uint64) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := r.db.Where("board_id = ?", boardID).FirstOrCreate(&room, models.ChatRoom{BoardID: boardID}).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// History returns a page of room messages. The page is cut from the newest
// end (offset 0 = most recent messages) but returned oldest first, so a
// client rendering top-to-bottom sees chronological order.
func (r *GormChatRepository) History(roomID uint64, limit, offset int) ([]models.ChatMessage, int64, error) {
	var total int64
	err := r.db.Model(&models.ChatMessage{}).
		Where("room_id = ?", roomID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var messages []models.ChatMessage
	err = r.db.Preload("Author").Preload("Attachment").
		Where("room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		Scopes(database.Paginate(utils.PaginationParams{Limit: limit, Offset: offset})).
		Find(&messages).Error
	if err != nil {
		return nil, 0, err
	}

	// Reverse into oldest-first order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, total, nil
}

// CreateMessage persists a chat message
func (r *GormChatRepository) CreateMessage(message *models.ChatMessage) error {
	return r.db.Create(message).Error
}

// FindMessage finds a message by ID
func (r *GormChatRepository) FindMessage(id uint64) (*models.ChatMessage, error) {
	var message models.ChatMessage
	if err := r.db.Preload("Author").First(&message, id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// UpdateMessage saves an edited message
func (r *GormChatRepository) UpdateMessage(message *models.ChatMessage) error {
	return r.db.Save(message).Error
}

// CreateFile records an uploaded chat attachment
func (r *GormChatRepository) CreateFile(file *models.ChatFile) error {
	return r.db.Create(file).Error
}

// FindOrCreatePrivateChat returns the chat for an unordered user pair.
// Both orderings are tried before a new row is created, keeping the pair
// unique regardless of who messaged first.
func (r *GormChatRepository) FindOrCreatePrivateChat(userID, otherID uint64) (*models.PrivateChat, error) {
	var chat models.PrivateChat
	err := r.db.
		Where("(user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?)",
			userID, otherID, otherID, userID).
		First(&chat).Error
	if err == nil {
		return &chat, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	chat = models.PrivateChat{User1ID: userID, User2ID: otherID}
	if err := r.db.Create(&chat).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

// FindPrivateChat finds a private chat by ID
func (r *GormChatRepository) FindPrivateChat(id uint64) (*models.PrivateChat, error) {
	var chat models.PrivateChat
	if err := r.db.First(&chat, id).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListPrivateChats lists the chats a user participates in
func (r *GormChatRepository) ListPrivateChats(userID uint64) ([]models.PrivateChat, error) {
	var chats []models.PrivateChat
	err := r.db.Preload("User1").Preload("User2").
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Find(&chats).Error
	if err != nil {
		return nil, err
	}
	return chats, nil
}

// PrivateMessages returns the newest messages of a chat oldest first
func (r *GormChatRepository) PrivateMessages(chatID uint64, limit int) ([]models.PrivateMessage, error) {
	var messages []models.PrivateMessage
	err := r.db.Preload("Sender").
		Where("chat_id = ?", chatID).
		Order("created_at DESC, id DESC").
		Scopes(database.Paginate(utils.PaginationParams{Limit: limit})).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// CreatePrivateMessage persists a private message
func (r *GormChatRepository) CreatePrivateMessage(message *models.PrivateMessage) error {
	return r.db.Create(message).Error
}

// MarkIncomingRead marks all messages not sent by userID as read
func (r *GormChatRepository) MarkIncomingRead(chatID, userID uint64) error {
	return r.db.Model(&models.PrivateMessage{}).
		Where("chat_id = ? AND sender_id <> ? AND is_read = ?", chatID, userID, false).
		UpdateColumn("is_read", true).Error
}

// CountUnread counts unread messages not sent by userID
func (r *GormChatRepository) CountUnread(chatID, userID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&models.PrivateMessage{}).
		Where("chat_id = ? AND sender_id <> ? AND is_read = ?", chatID, userID, false).
		Count(&count).Error
	return count, err
}

// LastPrivateMessage returns the newest message of a chat, nil if none
func (r *GormChatRepository) LastPrivateMessage(chatID uint64) (*models.PrivateMessage, error) {
	var message models.PrivateMessage
	err := r.db.Where("chat_id = ?", chatID).
		Order("created_at DESC, id DESC").
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}
