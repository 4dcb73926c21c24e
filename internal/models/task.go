package models

import (
	"time"
)

type TaskPriority string

const (
	PriorityLow     TaskPriority = "low"
	PriorityAverage TaskPriority = "average"
	PriorityHigh    TaskPriority = "high"
	PriorityMaximal TaskPriority = "maximal"
)

// ValidPriority reports whether p is one of the closed priority values.
func ValidPriority(p TaskPriority) bool {
	switch p {
	case PriorityLow, PriorityAverage, PriorityHigh, PriorityMaximal:
		return true
	}
	return false
}

type Task struct {
	ID          uint64       `gorm:"primarykey" json:"id"`
	ColumnID    uint64       `gorm:"not null;index" json:"column_id"`
	Title       string       `gorm:"type:varchar(200);not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	CreatorID   uint64       `gorm:"not null" json:"creator_id"`
	Priority    TaskPriority `gorm:"type:varchar(20);not null;default:'low'" json:"priority"`
	Deadline    *time.Time   `json:"deadline"`
	Position    int          `gorm:"not null" json:"position"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`

	// Relations
	Column      Column            `gorm:"foreignKey:ColumnID" json:"column,omitempty"`
	Creator     User              `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Responsible []TaskResponsible `gorm:"foreignKey:TaskID" json:"responsible,omitempty"`
	Comments    []Comment         `gorm:"foreignKey:TaskID" json:"comments,omitempty"`
	Files       []TaskFile        `gorm:"foreignKey:TaskID" json:"files,omitempty"`
}

// TaskResponsible links a task to a user responsible for it.
type TaskResponsible struct {
	TaskID    uint64    `gorm:"primarykey" json:"task_id"`
	UserID    uint64    `gorm:"primarykey" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Task Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// Comment is append-only: comments are never reordered or edited.
type Comment struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	TaskID    uint64    `gorm:"not null;index" json:"task_id"`
	UserID    uint64    `gorm:"not null" json:"user_id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

type TaskFile struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	TaskID       uint64    `gorm:"not null;index" json:"task_id"`
	UploadedByID uint64    `gorm:"not null" json:"uploaded_by_id"`
	FileKey      string    `gorm:"type:varchar(512);not null" json:"file_key"`
	FileName     string    `gorm:"type:varchar(255);not null" json:"file_name"`
	UploadedAt   time.Time `gorm:"autoCreateTime" json:"uploaded_at"`

	// Relations
	UploadedBy User `gorm:"foreignKey:UploadedByID" json:"uploaded_by,omitempty"`
}
