package handlers

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/kanban-board-api/internal/database"
	"github.com/yukikurage/kanban-board-api/internal/dto"
	"github.com/yukikurage/kanban-board-api/internal/models"
	"github.com/yukikurage/kanban-board-api/internal/realtime"
	"github.com/yukikurage/kanban-board-api/internal/repository"
	"github.com/yukikurage/kanban-board-api/internal/services"
	"github.com/yukikurage/kanban-board-api/internal/storage"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type wsTestEnv struct {
	db          *gorm.DB
	chatService *services.ChatService
	hub         *realtime.Hub
	owner       *models.User
	board       *models.Board
}

func setupWSTestEnv(t *testing.T) *wsTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Board{},
		&models.BoardPermit{},
		&models.ChatRoom{},
		&models.ChatMessage{},
		&models.ChatFile{},
	)
	require.NoError(t, err)

	database.SetDB(db)

	owner := &models.User{Username: "owner", PasswordHash: "x"}
	require.NoError(t, db.Create(owner).Error)
	board := &models.Board{OwnerID: owner.ID, Title: "board", Position: 1}
	require.NoError(t, db.Create(board).Error)

	store, err := storage.NewDiskStore(t.TempDir(), "/media")
	require.NoError(t, err)

	hub := realtime.NewHub()
	chatService := services.NewChatService(
		repository.NewChatRepository(db),
		repository.NewUserRepository(db),
		store, hub, nil,
	)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return &wsTestEnv{
		db:          db,
		chatService: chatService,
		hub:         hub,
		owner:       owner,
		board:       board,
	}
}

func (env *wsTestEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	r := gin.New()
	r.Use(asUser(env.owner.ID))
	wsHandler := NewWSHandler(env.chatService, env.hub)
	r.GET("/ws/boards/:id/chat", wsHandler.BoardChat)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + fmt.Sprintf("/ws/boards/%d/chat", env.board.ID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
	})
	return conn
}

type historyEvent struct {
	Type     string               `json:"type"`
	Messages []dto.ChatMessageDTO `json:"messages"`
}

func TestBoardChatHistoryResolvesAttachmentURLs(t *testing.T) {
	env := setupWSTestEnv(t)

	_, err := env.chatService.Send(env.board.ID, env.owner.ID, "hi")
	require.NoError(t, err)
	uploaded, err := env.chatService.Upload(env.board.ID, env.owner.ID, "notes.txt", strings.NewReader("hello"))
	require.NoError(t, err)

	conn := env.dial(t)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var history historyEvent
	require.NoError(t, conn.ReadJSON(&history))
	require.Equal(t, "history", history.Type)
	require.Len(t, history.Messages, 2)

	require.Equal(t, "hi", history.Messages[0].Text)
	require.Nil(t, history.Messages[0].Attachment)

	// The attachment address matches what the REST history returns.
	attachment := history.Messages[1].Attachment
	require.NotNil(t, attachment)
	require.Equal(t, env.chatService.FileURL(uploaded.Attachment), attachment.URL)
	require.True(t, strings.HasPrefix(attachment.URL, "/media/"))
	require.True(t, strings.HasSuffix(attachment.URL, "_notes.txt"))
}

func TestBoardChatBroadcastsSentMessages(t *testing.T) {
	env := setupWSTestEnv(t)

	conn := env.dial(t)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var history historyEvent
	require.NoError(t, conn.ReadJSON(&history))
	require.Equal(t, "history", history.Type)
	require.Empty(t, history.Messages)

	_, err := env.chatService.Send(env.board.ID, env.owner.ID, "live")
	require.NoError(t, err)

	var event map[string]any
	require.NoError(t, conn.ReadJSON(&event))
	require.Equal(t, "chat_message", event["type"])
	require.Equal(t, "live", event["text"])
}
