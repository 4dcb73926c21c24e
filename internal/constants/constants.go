package constants

// Context keys
const (
	ContextKeyUserID = "user_id"
)

// Session
const (
	SessionCookieName = "board_session"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Auth
const (
	MinPasswordLength = 8
)

// Chat
const (
	MaxChatMessageLength = 2000
	ChatHistoryLimit     = 50
	MaxChatFileSize      = 10 << 20 // 10MB
)
