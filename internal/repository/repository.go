package repository

import (
	"github.com/yukikurage/kanban-board-api/internal/models"
)

// BoardRepository defines the interface for board, permit, column and
// per-viewer ordering data access.
type BoardRepository interface {
	// CreateWithOwner creates a board, its owner permit, the owner's board
	// position and the owner's personal ordering row in one transaction.
	CreateWithOwner(board *models.Board) error

	// FindByID finds a board by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Board, error)

	// Update updates a board
	Update(board *models.Board) error

	// Delete removes a board and cascades to columns, tasks, permits,
	// orderings and chat data
	Delete(id uint64) error

	// AddPermit grants access; repeated grants for the same (board, user)
	// are a no-op
	AddPermit(permit *models.BoardPermit) error

	// RemovePermit revokes a user's access to a board
	RemovePermit(boardID, userID uint64) error

	// FindPermit finds a specific permit
	FindPermit(boardID, userID uint64) (*models.BoardPermit, error)

	// ListPermits lists all permits of a board
	ListPermits(boardID uint64) ([]models.BoardPermit, error)

	// ListVisibleBoards returns the boards a user owns or holds a permit
	// on, ordered by the user's personal ordering (repaired lazily)
	ListVisibleBoards(userID uint64, includeArchived bool) ([]models.Board, error)

	// ReorderBoards applies a client-provided order to the user's personal
	// board list
	ReorderBoards(userID uint64, boardIDs []uint64) error

	// CreateColumn appends a column to the board's column list
	CreateColumn(column *models.Column) error

	// DeleteColumn removes a column, renumbers the board's remaining
	// columns and cascades to the column's tasks
	DeleteColumn(column *models.Column) error

	// UpdateColumn updates a column
	UpdateColumn(column *models.Column) error

	// FindColumn finds a column by ID
	FindColumn(id uint64) (*models.Column, error)

	// ListColumns lists a board's columns in position order
	ListColumns(boardID uint64) ([]models.Column, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create appends a task to its column's list
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// ListByColumn lists a column's tasks in position order
	ListByColumn(columnID uint64) ([]models.Task, error)

	// Update updates a task
	Update(task *models.Task) error

	// Delete removes a task, closes the position gap and cascades to
	// comments, responsible links and files
	Delete(task *models.Task) error

	// Move repositions a task within or across columns and returns the
	// task with its committed position
	Move(taskID, targetColumnID uint64, position int) (*models.Task, error)

	// AddResponsible links a user as responsible for a task
	AddResponsible(taskID, userID uint64) error

	// RemoveResponsible removes a responsible link
	RemoveResponsible(taskID, userID uint64) error

	// FindResponsible finds a specific responsible link
	FindResponsible(taskID, userID uint64) (*models.TaskResponsible, error)

	// AddComment appends a comment to a task
	AddComment(comment *models.Comment) error

	// ListComments lists a task's comments oldest first
	ListComments(taskID uint64) ([]models.Comment, error)

	// AddFile records an uploaded task attachment
	AddFile(file *models.TaskFile) error

	// ListFiles lists a task's attachments
	ListFiles(taskID uint64) ([]models.TaskFile, error)

	// FindFile finds an attachment by ID
	FindFile(id uint64) (*models.TaskFile, error)

	// DeleteFile removes an attachment record
	DeleteFile(id uint64) error
}

// ChatRepository defines the interface for room and private chat data access
type ChatRepository interface {
	// GetOrCreateRoom returns the board's chat room, creating it lazily
	GetOrCreateRoom(boardID uint64) (*models.ChatRoom, error)

	// History returns a page of room messages oldest first, taken from the
	// newest end, plus the total message count
	History(roomID uint64, limit, offset int) ([]models.ChatMessage, int64, error)

	// CreateMessage persists a chat message
	CreateMessage(message *models.ChatMessage) error

	// FindMessage finds a message by ID
	FindMessage(id uint64) (*models.ChatMessage, error)

	// UpdateMessage saves an edited message
	UpdateMessage(message *models.ChatMessage) error

	// CreateFile records an uploaded chat attachment
	CreateFile(file *models.ChatFile) error

	// FindOrCreatePrivateChat returns the chat for an unordered user pair,
	// trying both orderings before creating
	FindOrCreatePrivateChat(userID, otherID uint64) (*models.PrivateChat, error)

	// FindPrivateChat finds a private chat by ID
	FindPrivateChat(id uint64) (*models.PrivateChat, error)

	// ListPrivateChats lists the chats a user participates in
	ListPrivateChats(userID uint64) ([]models.PrivateChat, error)

	// PrivateMessages returns the newest messages of a chat oldest first
	PrivateMessages(chatID uint64, limit int) ([]models.PrivateMessage, error)

	// CreatePrivateMessage persists a private message
	CreatePrivateMessage(message *models.PrivateMessage) error

	// MarkIncomingRead marks all messages not sent by userID as read
	MarkIncomingRead(chatID, userID uint64) error

	// CountUnread counts unread messages not sent by userID
	CountUnread(chatID, userID uint64) (int64, error)

	// LastPrivateMessage returns the newest message of a chat, nil if none
	LastPrivateMessage(chatID uint64) (*models.PrivateMessage, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)

	// SearchByUsername finds users whose name contains the query
	SearchByUsername(query string, limit int) ([]models.User, error)
}
