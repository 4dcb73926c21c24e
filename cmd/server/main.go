package main

import (
	"log"
	"strings"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/kanban-board-api/internal/config"
	"github.com/yukikurage/kanban-board-api/internal/constants"
	"github.com/yukikurage/kanban-board-api/internal/database"
	"github.com/yukikurage/kanban-board-api/internal/events"
	"github.com/yukikurage/kanban-board-api/internal/handlers"
	"github.com/yukikurage/kanban-board-api/internal/middleware"
	"github.com/yukikurage/kanban-board-api/internal/realtime"
	"github.com/yukikurage/kanban-board-api/internal/repository"
	"github.com/yukikurage/kanban-board-api/internal/services"
	"github.com/yukikurage/kanban-board-api/internal/storage"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if err := database.AddIndexes(database.GetDB()); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	// Initialize Gin router
	r := gin.Default()

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // username (empty for default user)
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	// Configure session options based on environment
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction, // true in production (HTTPS), false in development
		SameSite: 2,            // SameSite=Lax (1=Strict, 2=Lax, 3=None)
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Realtime hub with cross-process fan-out over the same Redis
	hub := realtime.NewHub()
	bridge, err := realtime.NewRedisBridge(redisAddr, hub)
	if err != nil {
		log.Printf("Redis bridge unavailable, running single-process: %v", err)
	} else {
		hub.SetBridge(bridge)
		defer bridge.Close()
	}

	// Kafka mutation event producer (optional)
	var producer *events.Producer
	if cfg.KafkaBrokers != "" {
		producer = events.NewProducer(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic)
		defer producer.Close()
	}

	// File storage
	fileStore, err := storage.NewDiskStore(cfg.UploadDir, "/media")
	if err != nil {
		log.Fatalf("Failed to initialize file storage: %v", err)
	}

	// Repositories
	db := database.GetDB()
	userRepo := repository.NewUserRepository(db)
	boardRepo := repository.NewBoardRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	chatRepo := repository.NewChatRepository(db)

	// Services
	authService := services.NewAuthService(userRepo)
	boardService := services.NewBoardService(boardRepo, userRepo, taskRepo, hub, producer)
	taskService := services.NewTaskService(taskRepo, boardRepo, db, fileStore, hub, producer)
	chatService := services.NewChatService(chatRepo, userRepo, fileStore, hub, producer)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	boardHandler := handlers.NewBoardHandler(boardService)
	taskHandler := handlers.NewTaskHandler(taskService)
	chatHandler := handlers.NewChatHandler(chatService)
	wsHandler := handlers.NewWSHandler(chatService, hub)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Kanban Board API is running",
		})
	})

	// Uploaded files
	r.Static("/media", cfg.UploadDir)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		// User search (protected)
		api.GET("/users", middleware.RequireAuth(), authHandler.SearchUsers)

		// Board routes (protected)
		boards := api.Group("/boards")
		boards.Use(middleware.RequireAuth())
		{
			boards.POST("", boardHandler.CreateBoard)
			boards.GET("", boardHandler.ListBoards)
			boards.PUT("/reorder", boardHandler.ReorderBoards)
			boards.GET("/:id", middleware.RequireBoardAccess(), boardHandler.GetBoard)
			boards.PATCH("/:id", middleware.RequireBoardOwner(), boardHandler.RenameBoard)
			boards.PATCH("/:id/archive", middleware.RequireBoardOwner(), boardHandler.SetArchived)
			boards.DELETE("/:id", middleware.RequireBoardOwner(), boardHandler.DeleteBoard)
			boards.GET("/:id/members", middleware.RequireBoardAccess(), boardHandler.ListMembers)
			boards.POST("/:id/add-member", middleware.RequireBoardOwner(), boardHandler.AddMember)
			boards.POST("/:id/remove-member", middleware.RequireBoardOwner(), boardHandler.RemoveMember)
			boards.POST("/:id/exit", middleware.RequireBoardAccess(), boardHandler.ExitBoard)
			boards.POST("/:id/columns", middleware.RequireBoardAccess(), boardHandler.CreateColumn)

			// REST chat fallback
			boards.GET("/:id/history", middleware.RequireBoardAccess(), chatHandler.History)
			boards.POST("/:id/send", middleware.RequireBoardAccess(), chatHandler.Send)
			boards.POST("/:id/upload", middleware.RequireBoardAccess(), chatHandler.Upload)
			boards.POST("/:id/mark-read", middleware.RequireBoardAccess(), chatHandler.MarkRead)
			boards.PATCH("/:id/messages/:message_id", middleware.RequireBoardAccess(), chatHandler.EditMessage)
		}

		// Column routes (protected)
		columns := api.Group("/columns")
		columns.Use(middleware.RequireAuth())
		{
			columns.PATCH("/:id", middleware.RequireColumnAccess(), boardHandler.RenameColumn)
			columns.DELETE("/:id", middleware.RequireColumnAccess(), boardHandler.DeleteColumn)
			columns.POST("/:id/tasks", middleware.RequireColumnAccess(), taskHandler.CreateTask)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth())
		{
			tasks.GET("/:id", middleware.RequireTaskAccess(), taskHandler.GetTask)
			tasks.PATCH("/:id", middleware.RequireTaskAccess(), taskHandler.UpdateTask)
			tasks.DELETE("/:id", middleware.RequireTaskAccess(), taskHandler.DeleteTask)
			tasks.PATCH("/:id/move", middleware.RequireTaskAccess(), taskHandler.MoveTask)
			tasks.PATCH("/:id/priority", middleware.RequireTaskAccess(), taskHandler.UpdatePriority)
			tasks.PATCH("/:id/deadline", middleware.RequireTaskAccess(), taskHandler.UpdateDeadline)
			tasks.POST("/:id/responsible", middleware.RequireTaskAccess(), taskHandler.AddResponsible)
			tasks.DELETE("/:id/responsible/:user_id", middleware.RequireTaskAccess(), taskHandler.RemoveResponsible)
			tasks.POST("/:id/comments", middleware.RequireTaskAccess(), taskHandler.AddComment)
			tasks.GET("/:id/comments", middleware.RequireTaskAccess(), taskHandler.ListComments)
			tasks.POST("/:id/files", middleware.RequireTaskAccess(), taskHandler.UploadFile)
			tasks.GET("/:id/files", middleware.RequireTaskAccess(), taskHandler.ListFiles)
			tasks.DELETE("/:id/files/:file_id", middleware.RequireTaskAccess(), taskHandler.DeleteFile)
		}

		// Private messaging (protected)
		messages := api.Group("/messages")
		messages.Use(middleware.RequireAuth())
		{
			messages.GET("", chatHandler.ListDialogs)
			messages.GET("/:user_id", chatHandler.DialogMessages)
			messages.POST("/:user_id", chatHandler.SendPrivate)
		}
		api.POST("/chats/:chat_id/read", middleware.RequireAuth(), chatHandler.MarkDialogRead)
	}

	// Persistent connections
	ws := r.Group("/ws")
	ws.Use(middleware.RequireAuth())
	{
		ws.GET("/boards/:id/chat", wsHandler.BoardChat)
		ws.GET("/messages", wsHandler.PrivateMessages)
	}

	// Start server
	log.Println("Server starting on :8080")
	if err := r.Run(":8080"); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
