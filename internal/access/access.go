// Package access answers "can this user act on this board". The predicate
// is evaluated fresh against the database on every call — permits can be
// revoked between requests, so results are never cached.
package access

import (
	"errors"
	"fmt"

	"github.com/yukikurage/kanban-board-api/internal/models"
	"gorm.io/gorm"
)

// HasBoardAccess reports whether the user is the board's owner or holds
// any permit on it. Member and viewer permits are equivalent here.
func HasBoardAccess(db *gorm.DB, userID, boardID uint64) (bool, error) {
	var board models.Board
	if err := db.First(&board, boardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load board: %w", err)
	}
	if board.OwnerID == userID {
		return true, nil
	}

	var count int64
	err := db.Model(&models.BoardPermit{}).
		Where("board_id = ? AND user_id = ?", boardID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check permit: %w", err)
	}
	return count > 0, nil
}

// IsBoardOwner reports strict ownership. Owner-restricted operations
// (rename, archive, membership changes) require this, not just a permit.
func IsBoardOwner(db *gorm.DB, userID, boardID uint64) (bool, error) {
	var board models.Board
	if err := db.First(&board, boardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load board: %w", err)
	}
	return board.OwnerID == userID, nil
}
