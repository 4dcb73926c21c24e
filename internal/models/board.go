package models

import (
	"time"

	"gorm.io/gorm"
)

type BoardRole string

const (
	RoleOwner  BoardRole = "owner"
	RoleMember BoardRole = "member"
	RoleViewer BoardRole = "viewer"
)

type Board struct {
	ID         uint64         `gorm:"primarykey" json:"id"`
	OwnerID    uint64         `gorm:"not null;index" json:"owner_id"`
	Title      string         `gorm:"type:varchar(200);not null" json:"title"`
	IsArchived bool           `gorm:"not null;default:false" json:"is_archived"`
	Position   int            `gorm:"not null" json:"position"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Owner   User          `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Permits []BoardPermit `gorm:"foreignKey:BoardID" json:"permits,omitempty"`
	Columns []Column      `gorm:"foreignKey:BoardID" json:"columns,omitempty"`
}

// BoardPermit grants a user access to a board. Every board carries exactly
// one owner permit, created in the same transaction as the board itself.
type BoardPermit struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	BoardID   uint64    `gorm:"not null;uniqueIndex:idx_permit_board_user" json:"board_id"`
	UserID    uint64    `gorm:"not null;uniqueIndex:idx_permit_board_user" json:"user_id"`
	Role      BoardRole `gorm:"type:varchar(20);not null;default:'viewer'" json:"role"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Board Board `gorm:"foreignKey:BoardID" json:"board,omitempty"`
	User  User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// UserBoardOrder is the per-viewer board ordering: each user who can see a
// board ranks it independently of Board.Position (the owner's own ranking).
// Positions form a dense 1..N sequence per user.
type UserBoardOrder struct {
	ID       uint64 `gorm:"primarykey" json:"id"`
	UserID   uint64 `gorm:"not null;uniqueIndex:idx_user_board_order" json:"user_id"`
	BoardID  uint64 `gorm:"not null;uniqueIndex:idx_user_board_order" json:"board_id"`
	Position int    `gorm:"not null" json:"position"`

	// Relations
	Board Board `gorm:"foreignKey:BoardID" json:"board,omitempty"`
}
