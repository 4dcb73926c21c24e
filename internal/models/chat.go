package models

import (
	"time"
)

// ChatRoom is bound one-to-one to a board and created lazily on the first
// message or history fetch.
type ChatRoom struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	BoardID   uint64    `gorm:"not null;uniqueIndex" json:"board_id"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Board    Board         `gorm:"foreignKey:BoardID" json:"board,omitempty"`
	Messages []ChatMessage `gorm:"foreignKey:RoomID" json:"messages,omitempty"`
}

type ChatMessage struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	RoomID       uint64    `gorm:"not null;index" json:"room_id"`
	AuthorID     uint64    `gorm:"not null" json:"author_id"`
	Text         string    `gorm:"type:varchar(2000);not null" json:"text"`
	AttachmentID *uint64   `json:"attachment_id"`
	IsEdited     bool      `gorm:"not null;default:false" json:"is_edited"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	Author     User      `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Attachment *ChatFile `gorm:"foreignKey:AttachmentID" json:"attachment,omitempty"`
}

type ChatFile struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	RoomID       uint64    `gorm:"not null;index" json:"room_id"`
	UploadedByID uint64    `gorm:"not null" json:"uploaded_by_id"`
	FileKey      string    `gorm:"type:varchar(512);not null" json:"file_key"`
	FileName     string    `gorm:"type:varchar(255);not null" json:"file_name"`
	UploadedAt   time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}

// PrivateChat is an unordered pair of two distinct users. Lookups must try
// both orderings before creating a new row.
type PrivateChat struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	User1ID   uint64    `gorm:"not null;uniqueIndex:idx_private_chat_pair" json:"user1_id"`
	User2ID   uint64    `gorm:"not null;uniqueIndex:idx_private_chat_pair" json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	User1 User `gorm:"foreignKey:User1ID" json:"user1,omitempty"`
	User2 User `gorm:"foreignKey:User2ID" json:"user2,omitempty"`
}

// OtherUserID returns the counterpart of userID in the pair.
func (c *PrivateChat) OtherUserID(userID uint64) uint64 {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// Involves reports whether userID is one of the two participants.
func (c *PrivateChat) Involves(userID uint64) bool {
	return c.User1ID == userID || c.User2ID == userID
}

type PrivateMessage struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	ChatID    uint64    `gorm:"not null;index" json:"chat_id"`
	SenderID  uint64    `gorm:"not null" json:"sender_id"`
	Text      string    `gorm:"type:varchar(2000);not null" json:"text"`
	IsRead    bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Sender User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}
