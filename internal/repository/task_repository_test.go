package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/kanban-board-api/internal/models"
)

func TestUpdateKeepsCommittedMove(t *testing.T) {
	db := setupRepoDB(t)
	boardRepo := NewBoardRepository(db)
	taskRepo := NewTaskRepository(db)
	owner := createUser(t, db, "owner")

	board := &models.Board{OwnerID: owner.ID, Title: "board"}
	require.NoError(t, boardRepo.CreateWithOwner(board))
	todo := &models.Column{BoardID: board.ID, Title: "Todo"}
	require.NoError(t, boardRepo.CreateColumn(todo))
	doing := &models.Column{BoardID: board.ID, Title: "Doing"}
	require.NoError(t, boardRepo.CreateColumn(doing))

	task := &models.Task{ColumnID: todo.ID, Title: "task", CreatorID: owner.ID, Priority: models.PriorityLow}
	require.NoError(t, taskRepo.Create(task))
	other := &models.Task{ColumnID: doing.ID, Title: "other", CreatorID: owner.ID, Priority: models.PriorityLow}
	require.NoError(t, taskRepo.Create(other))

	// Request A reads the task, request B's move commits in between, then
	// A writes its rename. The stale column and position A read must not
	// overwrite what the move committed.
	stale, err := taskRepo.FindByID(task.ID)
	require.NoError(t, err)

	_, err = taskRepo.Move(task.ID, doing.ID, 1)
	require.NoError(t, err)

	stale.Title = "renamed"
	require.NoError(t, taskRepo.Update(stale))

	after, err := taskRepo.FindByID(task.ID)
	require.NoError(t, err)
	require.Equal(t, "renamed", after.Title)
	require.Equal(t, doing.ID, after.ColumnID)
	require.Equal(t, 1, after.Position)

	// The destination column stayed dense.
	tasks, err := taskRepo.ListByColumn(doing.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	require.Equal(t, task.ID, tasks[0].ID)
	require.Equal(t, other.ID, tasks[1].ID)
	require.Equal(t, 2, tasks[1].Position)
}

func TestUpdateCanClearDeadline(t *testing.T) {
	db := setupRepoDB(t)
	boardRepo := NewBoardRepository(db)
	taskRepo := NewTaskRepository(db)
	owner := createUser(t, db, "owner")

	board := &models.Board{OwnerID: owner.ID, Title: "board"}
	require.NoError(t, boardRepo.CreateWithOwner(board))
	todo := &models.Column{BoardID: board.ID, Title: "Todo"}
	require.NoError(t, boardRepo.CreateColumn(todo))

	deadline := time.Now().Add(24 * time.Hour)
	task := &models.Task{ColumnID: todo.ID, Title: "task", CreatorID: owner.ID, Priority: models.PriorityLow, Deadline: &deadline}
	require.NoError(t, taskRepo.Create(task))

	task.Deadline = nil
	require.NoError(t, taskRepo.Update(task))

	after, err := taskRepo.FindByID(task.ID)
	require.NoError(t, err)
	require.Nil(t, after.Deadline)
}

func TestBoardUpdateKeepsOwnerRanking(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewBoardRepository(db)
	owner := createUser(t, db, "owner")

	first := &models.Board{OwnerID: owner.ID, Title: "first"}
	require.NoError(t, repo.CreateWithOwner(first))
	second := &models.Board{OwnerID: owner.ID, Title: "second"}
	require.NoError(t, repo.CreateWithOwner(second))

	// Rename with a stale ranking on the struct.
	stale, err := repo.FindByID(second.ID)
	require.NoError(t, err)
	stale.Position = 99
	stale.Title = "renamed"
	require.NoError(t, repo.Update(stale))

	after, err := repo.FindByID(second.ID)
	require.NoError(t, err)
	require.Equal(t, "renamed", after.Title)
	require.Equal(t, 2, after.Position)
}

func TestColumnRenameKeepsPosition(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewBoardRepository(db)
	owner := createUser(t, db, "owner")

	board := &models.Board{OwnerID: owner.ID, Title: "board"}
	require.NoError(t, repo.CreateWithOwner(board))
	todo := &models.Column{BoardID: board.ID, Title: "Todo"}
	require.NoError(t, repo.CreateColumn(todo))
	doing := &models.Column{BoardID: board.ID, Title: "Doing"}
	require.NoError(t, repo.CreateColumn(doing))

	stale, err := repo.FindColumn(doing.ID)
	require.NoError(t, err)
	stale.Position = 1
	stale.Title = "In Progress"
	require.NoError(t, repo.UpdateColumn(stale))

	after, err := repo.FindColumn(doing.ID)
	require.NoError(t, err)
	require.Equal(t, "In Progress", after.Title)
	require.Equal(t, 2, after.Position)
}
