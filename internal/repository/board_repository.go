package repository

import (
	"errors"
	"fmt"
	"sort"

	"github.com/yukikurage/kanban-board-api/internal/models"
	"github.com/yukikurage/kanban-board-api/internal/ordering"
	"gorm.io/gorm"
)

var (
	// ErrBoardNotVisible is returned when a reorder names a board the user
	// cannot see.
	ErrBoardNotVisible = errors.New("board repository: board not visible to user")
)

// GormBoardRepository is a GORM implementation of BoardRepository
type GormBoardRepository struct {
	db          *gorm.DB
	columnOrder ordering.List
	viewerOrder ordering.List
}

// NewBoardRepository creates a new BoardRepository
func NewBoardRepository(db *gorm.DB) BoardRepository {
	return &GormBoardRepository{
		db:          db,
		columnOrder: ordering.NewList(&models.Column{}, "board_id"),
		viewerOrder: ordering.NewList(&models.UserBoardOrder{}, "user_id"),
	}
}

// CreateWithOwner creates the board row, the owner's permit, the owner's
// board position and the owner's personal ordering row atomically. A board
// existing without its owner permit is an invariant violation, so partial
// application must never survive.
func (r *GormBoardRepository) CreateWithOwner(board *models.Board) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// Owner's own ranking: next slot after their non-archived boards.
		var max int
		err := tx.Model(&models.Board{}).
			Where("owner_id = ? AND is_archived = ?", board.OwnerID, false).
			Select("COALESCE(MAX(position), 0)").
			Scan(&max).Error
		if err != nil {
			return fmt.Errorf("failed to read board positions: %w", err)
		}
		board.Position = max + 1

		if err := tx.Create(board).Error; err != nil {
			return fmt.Errorf("failed to create board: %w", err)
		}

		permit := &models.BoardPermit{
			BoardID: board.ID,
			UserID:  board.OwnerID,
			Role:    models.RoleOwner,
		}
		if err := tx.Create(permit).Error; err != nil {
			return fmt.Errorf("failed to create owner permit: %w", err)
		}

		// New boards sort first in the personal view: shift everything
		// down and take position 1.
		err = tx.Model(&models.UserBoardOrder{}).
			Where("user_id = ?", board.OwnerID).
			UpdateColumn("position", gorm.Expr("position + 1")).Error
		if err != nil {
			return fmt.Errorf("failed to shift board order: %w", err)
		}
		order := &models.UserBoardOrder{
			UserID:   board.OwnerID,
			BoardID:  board.ID,
			Position: 1,
		}
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create board order: %w", err)
		}

		return nil
	})
}

// FindByID finds a board by ID with optional preloading
func (r *GormBoardRepository) FindByID(id uint64, preload ...string) (*models.Board, error) {
	var board models.Board
	query := r.db
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&board, id).Error; err != nil {
		return nil, err
	}
	return &board, nil
}

// Update writes a board's editable fields. The owner's ranking is managed
// by board creation and reorder, never by a rename or archive toggle.
func (r *GormBoardRepository) Update(board *models.Board) error {
	return r.db.Model(board).
		Select("title", "is_archived").
		Updates(board).Error
}

// Delete removes a board and everything hanging off it in one transaction.
func (r *GormBoardRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var columnIDs []uint64
		if err := tx.Model(&models.Column{}).Where("board_id = ?", id).Pluck("id", &columnIDs).Error; err != nil {
			return err
		}
		if len(columnIDs) > 0 {
			if err := deleteTasksInColumns(tx, columnIDs); err != nil {
				return err
			}
			if err := tx.Where("board_id = ?", id).Delete(&models.Column{}).Error; err != nil {
				return err
			}
		}

		var room models.ChatRoom
		if err := tx.Where("board_id = ?", id).First(&room).Error; err == nil {
			if err := tx.Where("room_id = ?", room.ID).Delete(&models.ChatMessage{}).Error; err != nil {
				return err
			}
			if err := tx.Where("room_id = ?", room.ID).Delete(&models.ChatFile{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&room).Error; err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Where("board_id = ?", id).Delete(&models.BoardPermit{}).Error; err != nil {
			return err
		}
		if err := tx.Where("board_id = ?", id).Delete(&models.UserBoardOrder{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Board{}, id).Error
	})
}

// AddPermit grants access. A second grant for the same (board, user) keeps
// the existing row untouched, making grants idempotent.
func (r *GormBoardRepository) AddPermit(permit *models.BoardPermit) error {
	return r.db.
		Where("board_id = ? AND user_id = ?", permit.BoardID, permit.UserID).
		FirstOrCreate(permit).Error
}

// RemovePermit revokes a user's access to a board and drops the user's
// personal ordering row for it.
func (r *GormBoardRepository) RemovePermit(boardID, userID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("board_id = ? AND user_id = ?", boardID, userID).
			Delete(&models.BoardPermit{}).Error
		if err != nil {
			return err
		}
		return tx.Where("board_id = ? AND user_id = ?", boardID, userID).
			Delete(&models.UserBoardOrder{}).Error
	})
}

// FindPermit finds a specific permit
func (r *GormBoardRepository) FindPermit(boardID, userID uint64) (*models.BoardPermit, error) {
	var permit models.BoardPermit
	if err := r.db.Where("board_id = ? AND user_id = ?", boardID, userID).
		First(&permit).Error; err != nil {
		return nil, err
	}
	return &permit, nil
}

// ListPermits lists all permits of a board
func (r *GormBoardRepository) ListPermits(boardID uint64) ([]models.BoardPermit, error) {
	var permits []models.BoardPermit
	if err := r.db.Preload("User").
		Where("board_id = ?", boardID).
		Find(&permits).Error; err != nil {
		return nil, err
	}
	return permits, nil
}

// ListVisibleBoards returns the boards a user owns or holds a permit on,
// ordered by the user's personal ordering. Ordering rows are created
// lazily, so any missing or drifted rows trigger a full repair renumber
// before the list is returned.
func (r *GormBoardRepository) ListVisibleBoards(userID uint64, includeArchived bool) ([]models.Board, error) {
	var boards []models.Board
	err := r.db.Transaction(func(tx *gorm.DB) error {
		visible, err := visibleBoards(tx, userID)
		if err != nil {
			return err
		}

		if err := r.repairViewerOrder(tx, userID, visible); err != nil {
			return err
		}

		var orders []models.UserBoardOrder
		if err := tx.Where("user_id = ?", userID).Order("position").Find(&orders).Error; err != nil {
			return err
		}

		byID := make(map[uint64]models.Board, len(visible))
		for _, b := range visible {
			byID[b.ID] = b
		}
		for _, o := range orders {
			b, ok := byID[o.BoardID]
			if !ok {
				continue
			}
			if b.IsArchived && !includeArchived {
				continue
			}
			boards = append(boards, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return boards, nil
}

// ReorderBoards applies a client-provided order to the user's visible
// boards in one atomic pass.
func (r *GormBoardRepository) ReorderBoards(userID uint64, boardIDs []uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		visible, err := visibleBoards(tx, userID)
		if err != nil {
			return err
		}
		visibleSet := make(map[uint64]bool, len(visible))
		for _, b := range visible {
			visibleSet[b.ID] = true
		}
		for _, id := range boardIDs {
			if !visibleSet[id] {
				return ErrBoardNotVisible
			}
		}

		if err := r.repairViewerOrder(tx, userID, visible); err != nil {
			return err
		}

		var orders []models.UserBoardOrder
		if err := tx.Where("user_id = ?", userID).Find(&orders).Error; err != nil {
			return err
		}
		rowByBoard := make(map[uint64]uint64, len(orders))
		for _, o := range orders {
			rowByBoard[o.BoardID] = o.ID
		}

		// Boards the client listed come first in the given order; any
		// visible board it omitted keeps its relative position after them.
		orderedRows := make([]uint64, 0, len(orders))
		seen := make(map[uint64]bool, len(boardIDs))
		for _, boardID := range boardIDs {
			if rowID, ok := rowByBoard[boardID]; ok && !seen[boardID] {
				orderedRows = append(orderedRows, rowID)
				seen[boardID] = true
			}
		}
		sort.Slice(orders, func(i, j int) bool { return orders[i].Position < orders[j].Position })
		for _, o := range orders {
			if !seen[o.BoardID] {
				orderedRows = append(orderedRows, o.ID)
			}
		}

		return r.viewerOrder.Renumber(tx, userID, orderedRows)
	})
}

// repairViewerOrder creates ordering rows for newly visible boards, drops
// orphaned rows and renumbers whenever the sequence is not dense 1..N.
// Boards without a row sort first, newest first, matching board creation.
func (r *GormBoardRepository) repairViewerOrder(tx *gorm.DB, userID uint64, visible []models.Board) error {
	var orders []models.UserBoardOrder
	if err := tx.Where("user_id = ?", userID).Order("position").Find(&orders).Error; err != nil {
		return err
	}

	visibleSet := make(map[uint64]models.Board, len(visible))
	for _, b := range visible {
		visibleSet[b.ID] = b
	}

	ordered := make(map[uint64]bool, len(orders))
	dense := true
	kept := orders[:0]
	for _, o := range orders {
		if _, ok := visibleSet[o.BoardID]; !ok {
			if err := tx.Delete(&models.UserBoardOrder{}, o.ID).Error; err != nil {
				return err
			}
			dense = false
			continue
		}
		ordered[o.BoardID] = true
		kept = append(kept, o)
	}
	for i, o := range kept {
		if o.Position != i+1 {
			dense = false
		}
	}

	var missing []models.Board
	for _, b := range visible {
		if !ordered[b.ID] {
			missing = append(missing, b)
		}
	}
	if len(missing) == 0 && dense {
		return nil
	}

	sort.Slice(missing, func(i, j int) bool { return missing[i].CreatedAt.After(missing[j].CreatedAt) })

	rowIDs := make([]uint64, 0, len(missing)+len(kept))
	for _, b := range missing {
		row := models.UserBoardOrder{UserID: userID, BoardID: b.ID}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		rowIDs = append(rowIDs, row.ID)
	}
	for _, o := range kept {
		rowIDs = append(rowIDs, o.ID)
	}

	return r.viewerOrder.Renumber(tx, userID, rowIDs)
}

func visibleBoards(tx *gorm.DB, userID uint64) ([]models.Board, error) {
	var boards []models.Board
	err := tx.
		Distinct("boards.*").
		Joins("LEFT JOIN board_permits ON board_permits.board_id = boards.id").
		Where("boards.owner_id = ? OR board_permits.user_id = ?", userID, userID).
		Find(&boards).Error
	if err != nil {
		return nil, err
	}
	return boards, nil
}

// CreateColumn appends a column to its board's list.
func (r *GormBoardRepository) CreateColumn(column *models.Column) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		pos, err := r.columnOrder.Append(tx, column.BoardID)
		if err != nil {
			return err
		}
		column.Position = pos
		return tx.Create(column).Error
	})
}

// DeleteColumn removes a column, shifts the board's remaining columns down
// and cascades to the column's tasks. The cascade is an accepted
// destructive side effect of column deletion.
func (r *GormBoardRepository) DeleteColumn(column *models.Column) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteTasksInColumns(tx, []uint64{column.ID}); err != nil {
			return err
		}
		if err := tx.Delete(&models.Column{}, column.ID).Error; err != nil {
			return err
		}
		return r.columnOrder.Remove(tx, column.BoardID, column.Position)
	})
}

// UpdateColumn writes a column's editable fields. Position stays with the
// ordering engine.
func (r *GormBoardRepository) UpdateColumn(column *models.Column) error {
	return r.db.Model(column).
		Select("title").
		Updates(column).Error
}

// FindColumn finds a column by ID
func (r *GormBoardRepository) FindColumn(id uint64) (*models.Column, error) {
	var column models.Column
	if err := r.db.First(&column, id).Error; err != nil {
		return nil, err
	}
	return &column, nil
}

// ListColumns lists a board's columns in position order
func (r *GormBoardRepository) ListColumns(boardID uint64) ([]models.Column, error) {
	var columns []models.Column
	if err := r.db.Where("board_id = ?", boardID).
		Order("position").
		Find(&columns).Error; err != nil {
		return nil, err
	}
	return columns, nil
}

// deleteTasksInColumns removes every task in the given columns along with
// comments, responsible links and file records.
func deleteTasksInColumns(tx *gorm.DB, columnIDs []uint64) error {
	var taskIDs []uint64
	if err := tx.Model(&models.Task{}).Where("column_id IN ?", columnIDs).Pluck("id", &taskIDs).Error; err != nil {
		return err
	}
	if len(taskIDs) == 0 {
		return nil
	}
	if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.TaskResponsible{}).Error; err != nil {
		return err
	}
	if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.TaskFile{}).Error; err != nil {
		return err
	}
	return tx.Where("column_id IN ?", columnIDs).Delete(&models.Task{}).Error
}
