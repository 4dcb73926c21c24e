package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/kanban-board-api/internal/constants"
	"github.com/yukikurage/kanban-board-api/internal/database"
	"github.com/yukikurage/kanban-board-api/internal/dto"
	"github.com/yukikurage/kanban-board-api/internal/middleware"
	"github.com/yukikurage/kanban-board-api/internal/models"
	"github.com/yukikurage/kanban-board-api/internal/realtime"
	"github.com/yukikurage/kanban-board-api/internal/repository"
	"github.com/yukikurage/kanban-board-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type boardTestEnv struct {
	db           *gorm.DB
	router       *gin.Engine
	boardService *services.BoardService
	taskService  *services.TaskService
	owner        *models.User
	member       *models.User
}

// asUser stands in for the session middleware in tests.
func asUser(userID uint64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(constants.ContextKeyUserID, userID)
		c.Next()
	}
}

func setupBoardTestEnv(t *testing.T) *boardTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Board{},
		&models.BoardPermit{},
		&models.UserBoardOrder{},
		&models.Column{},
		&models.Task{},
		&models.TaskResponsible{},
		&models.Comment{},
		&models.TaskFile{},
		&models.ChatRoom{},
		&models.ChatMessage{},
		&models.ChatFile{},
	)
	require.NoError(t, err)

	database.SetDB(db)

	owner := &models.User{Username: "owner", PasswordHash: "x"}
	member := &models.User{Username: "member", PasswordHash: "x"}
	require.NoError(t, db.Create(owner).Error)
	require.NoError(t, db.Create(member).Error)

	hub := realtime.NewHub()
	userRepo := repository.NewUserRepository(db)
	boardRepo := repository.NewBoardRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	boardService := services.NewBoardService(boardRepo, userRepo, taskRepo, hub, nil)
	taskService := services.NewTaskService(taskRepo, boardRepo, db, nil, hub, nil)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return &boardTestEnv{
		db:           db,
		boardService: boardService,
		taskService:  taskService,
		owner:        owner,
		member:       member,
	}
}

func (env *boardTestEnv) routerFor(userID uint64) *gin.Engine {
	boardHandler := NewBoardHandler(env.boardService)
	taskHandler := NewTaskHandler(env.taskService)

	r := gin.New()
	r.Use(asUser(userID))

	boards := r.Group("/api/boards")
	{
		boards.POST("", boardHandler.CreateBoard)
		boards.GET("", boardHandler.ListBoards)
		boards.GET("/:id", middleware.RequireBoardAccess(), boardHandler.GetBoard)
		boards.POST("/:id/columns", middleware.RequireBoardAccess(), boardHandler.CreateColumn)
		boards.POST("/:id/exit", middleware.RequireBoardAccess(), boardHandler.ExitBoard)
	}
	columns := r.Group("/api/columns")
	{
		columns.DELETE("/:id", middleware.RequireColumnAccess(), boardHandler.DeleteColumn)
		columns.POST("/:id/tasks", middleware.RequireColumnAccess(), taskHandler.CreateTask)
	}
	tasks := r.Group("/api/tasks")
	{
		tasks.PATCH("/:id/move", middleware.RequireTaskAccess(), taskHandler.MoveTask)
		tasks.PATCH("/:id/priority", middleware.RequireTaskAccess(), taskHandler.UpdatePriority)
		tasks.DELETE("/:id", middleware.RequireTaskAccess(), taskHandler.DeleteTask)
	}
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTaskHandler_CreateAndMoveScenario(t *testing.T) {
	env := setupBoardTestEnv(t)
	r := env.routerFor(env.owner.ID)

	board, err := env.boardService.CreateBoard(env.owner.ID, "X")
	require.NoError(t, err)

	// Two columns appended in order.
	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/boards/%d/columns", board.ID), gin.H{"title": "Todo"})
	require.Equal(t, http.StatusCreated, w.Code)
	var todo dto.ColumnDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &todo))
	require.Equal(t, 1, todo.Position)

	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/boards/%d/columns", board.ID), gin.H{"title": "Doing"})
	require.Equal(t, http.StatusCreated, w.Code)
	var doing dto.ColumnDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doing))
	require.Equal(t, 2, doing.Position)

	// T2 pre-populates Doing at position 1, T1 goes into Todo.
	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/columns/%d/tasks", doing.ID), gin.H{"title": "T2"})
	require.Equal(t, http.StatusCreated, w.Code)
	var t2 dto.TaskDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &t2))
	require.Equal(t, 1, t2.Position)

	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/columns/%d/tasks", todo.ID), gin.H{"title": "T1"})
	require.Equal(t, http.StatusCreated, w.Code)
	var t1 dto.TaskDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &t1))
	require.Equal(t, 1, t1.Position)

	// Move T1 to Doing at position 1; T2 shifts to 2.
	w = doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/tasks/%d/move", t1.ID), gin.H{"column": doing.ID, "position": 1})
	require.Equal(t, http.StatusOK, w.Code)
	var moved dto.TaskDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &moved))
	require.Equal(t, doing.ID, moved.ColumnID)
	require.Equal(t, 1, moved.Position)

	var todoCount int64
	require.NoError(t, env.db.Model(&models.Task{}).Where("column_id = ?", todo.ID).Count(&todoCount).Error)
	require.Zero(t, todoCount)

	var shifted models.Task
	require.NoError(t, env.db.First(&shifted, t2.ID).Error)
	require.Equal(t, 2, shifted.Position)
}

func TestTaskHandler_MoveRejectsCrossBoardColumn(t *testing.T) {
	env := setupBoardTestEnv(t)
	r := env.routerFor(env.owner.ID)

	boardA, err := env.boardService.CreateBoard(env.owner.ID, "A")
	require.NoError(t, err)
	boardB, err := env.boardService.CreateBoard(env.owner.ID, "B")
	require.NoError(t, err)

	colA, err := env.boardService.CreateColumn(env.owner.ID, boardA.ID, "Todo")
	require.NoError(t, err)
	colB, err := env.boardService.CreateColumn(env.owner.ID, boardB.ID, "Todo")
	require.NoError(t, err)

	task, err := env.taskService.CreateTask(services.CreateTaskInput{
		ColumnID:  colA.ID,
		Title:     "T1",
		CreatorID: env.owner.ID,
	})
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/tasks/%d/move", task.ID), gin.H{"column": colB.ID, "position": 1})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Nothing moved.
	var unchanged models.Task
	require.NoError(t, env.db.First(&unchanged, task.ID).Error)
	require.Equal(t, colA.ID, unchanged.ColumnID)
	require.Equal(t, 1, unchanged.Position)
}

func TestTaskHandler_PriorityValidation(t *testing.T) {
	env := setupBoardTestEnv(t)
	r := env.routerFor(env.owner.ID)

	board, err := env.boardService.CreateBoard(env.owner.ID, "X")
	require.NoError(t, err)
	column, err := env.boardService.CreateColumn(env.owner.ID, board.ID, "Todo")
	require.NoError(t, err)
	task, err := env.taskService.CreateTask(services.CreateTaskInput{
		ColumnID:  column.ID,
		Title:     "T1",
		CreatorID: env.owner.ID,
	})
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/tasks/%d/priority", task.ID), gin.H{"priority": "urgent"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/tasks/%d/priority", task.ID), gin.H{"priority": "maximal"})
	require.Equal(t, http.StatusOK, w.Code)

	var updated dto.TaskDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	require.Equal(t, models.PriorityMaximal, updated.Priority)
}

func TestTaskHandler_DeleteRequiresCreator(t *testing.T) {
	env := setupBoardTestEnv(t)

	board, err := env.boardService.CreateBoard(env.owner.ID, "X")
	require.NoError(t, err)
	_, err = env.boardService.AddMember(env.owner.ID, board.ID, env.member.ID, models.RoleMember)
	require.NoError(t, err)
	column, err := env.boardService.CreateColumn(env.owner.ID, board.ID, "Todo")
	require.NoError(t, err)
	task, err := env.taskService.CreateTask(services.CreateTaskInput{
		ColumnID:  column.ID,
		Title:     "T1",
		CreatorID: env.owner.ID,
	})
	require.NoError(t, err)

	memberRouter := env.routerFor(env.member.ID)
	w := doJSON(t, memberRouter, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", task.ID), nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	ownerRouter := env.routerFor(env.owner.ID)
	w = doJSON(t, ownerRouter, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", task.ID), nil)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestBoardHandler_AccessDeniedIsGeneric(t *testing.T) {
	env := setupBoardTestEnv(t)

	board, err := env.boardService.CreateBoard(env.owner.ID, "Private")
	require.NoError(t, err)

	strangerRouter := env.routerFor(env.member.ID)

	// Existing board without a permit and a missing board answer alike.
	w := doJSON(t, strangerRouter, http.MethodGet, fmt.Sprintf("/api/boards/%d", board.ID), nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, strangerRouter, http.MethodGet, "/api/boards/99999", nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestBoardHandler_OwnerCannotExit(t *testing.T) {
	env := setupBoardTestEnv(t)
	r := env.routerFor(env.owner.ID)

	board, err := env.boardService.CreateBoard(env.owner.ID, "X")
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/boards/%d/exit", board.ID), nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	// Membership unchanged.
	var permits int64
	require.NoError(t, env.db.Model(&models.BoardPermit{}).Where("board_id = ?", board.ID).Count(&permits).Error)
	require.EqualValues(t, 1, permits)
}

func TestBoardHandler_ColumnDeleteCascadesTasks(t *testing.T) {
	env := setupBoardTestEnv(t)
	r := env.routerFor(env.owner.ID)

	board, err := env.boardService.CreateBoard(env.owner.ID, "X")
	require.NoError(t, err)
	first, err := env.boardService.CreateColumn(env.owner.ID, board.ID, "First")
	require.NoError(t, err)
	second, err := env.boardService.CreateColumn(env.owner.ID, board.ID, "Second")
	require.NoError(t, err)

	_, err = env.taskService.CreateTask(services.CreateTaskInput{
		ColumnID:  first.ID,
		Title:     "doomed",
		CreatorID: env.owner.ID,
	})
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/columns/%d", first.ID), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	var tasks int64
	require.NoError(t, env.db.Model(&models.Task{}).Count(&tasks).Error)
	require.Zero(t, tasks)

	// Remaining column renumbered to position 1.
	var remaining models.Column
	require.NoError(t, env.db.First(&remaining, second.ID).Error)
	require.Equal(t, 1, remaining.Position)
}
