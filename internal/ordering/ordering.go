// Package ordering maintains dense, gap-free, 1-based integer positions for
// the members of a scope: tasks within a column, columns within a board,
// boards within a user's personal list. All operations run inside a
// caller-supplied transaction and lock the scope's rows before reading
// positions, so two concurrent movers never both observe pre-mutation state.
package ordering

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrMemberNotFound is returned when a reposition targets a member id
	// that does not exist in its claimed scope.
	ErrMemberNotFound = errors.New("ordering: member not found in scope")
)

// List binds a gorm model to the foreign-key column that names its scope.
// A List value is stateless and safe for concurrent use; the database is
// the sole arbiter of positions.
type List struct {
	model       interface{}
	scopeColumn string
}

// NewList creates a List for model rows grouped by scopeColumn,
// e.g. NewList(&models.Task{}, "column_id").
func NewList(model interface{}, scopeColumn string) List {
	return List{model: model, scopeColumn: scopeColumn}
}

func (l List) scoped(tx *gorm.DB, scope uint64) *gorm.DB {
	return tx.Model(l.model).Where(l.scopeColumn+" = ?", scope)
}

// lockScope takes row locks on every member of the scope and returns the
// current maximum position (0 when empty). Aggregates cannot carry FOR
// UPDATE on Postgres, so the lock and the max are two statements.
// SQLite has no row locks and serializes writers on its own.
func (l List) lockScope(tx *gorm.DB, scope uint64) (int, error) {
	if tx.Dialector.Name() != "sqlite" {
		var ids []uint64
		err := l.scoped(tx, scope).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Order("position").
			Pluck("id", &ids).Error
		if err != nil {
			return 0, fmt.Errorf("ordering: lock scope: %w", err)
		}
	}

	var max int
	err := l.scoped(tx, scope).
		Select("COALESCE(MAX(position), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, fmt.Errorf("ordering: read max position: %w", err)
	}
	return max, nil
}

// Append computes the next free position for scope: max(position)+1, or 1
// for an empty scope. The caller inserts the member with the returned
// position inside the same transaction; the scope lock held until commit
// guarantees two concurrent appends never receive the same value.
func (l List) Append(tx *gorm.DB, scope uint64) (int, error) {
	max, err := l.lockScope(tx, scope)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// Remove closes the gap left by deleting the member at position: every
// member of the scope past it shifts down by one. The caller deletes the
// member row itself, before or after, inside the same transaction.
func (l List) Remove(tx *gorm.DB, scope uint64, position int) error {
	if _, err := l.lockScope(tx, scope); err != nil {
		return err
	}
	err := l.scoped(tx, scope).
		Where("position > ?", position).
		UpdateColumn("position", gorm.Expr("position - 1")).Error
	if err != nil {
		return fmt.Errorf("ordering: close gap: %w", err)
	}
	return nil
}

// Reposition moves memberID from (oldScope, oldPos) to (newScope, newPos)
// and returns the position actually assigned. newPos <= 0 appends to the
// destination scope; a newPos beyond the end is clamped so the sequence
// stays dense. Same scope and same position is a no-op.
func (l List) Reposition(tx *gorm.DB, memberID uint64, oldScope uint64, oldPos int, newScope uint64, newPos int) (int, error) {
	if oldScope == newScope {
		return l.rotate(tx, memberID, oldScope, oldPos, newPos)
	}
	return l.transfer(tx, memberID, oldScope, oldPos, newScope, newPos)
}

func (l List) rotate(tx *gorm.DB, memberID uint64, scope uint64, oldPos, newPos int) (int, error) {
	max, err := l.lockScope(tx, scope)
	if err != nil {
		return 0, err
	}
	if newPos <= 0 || newPos > max {
		newPos = max
	}
	if newPos == oldPos {
		return oldPos, nil
	}

	if newPos > oldPos {
		// Member moves to a higher position: everyone in (oldPos, newPos]
		// shifts down one to fill the gap.
		err = l.scoped(tx, scope).
			Where("position > ? AND position <= ?", oldPos, newPos).
			UpdateColumn("position", gorm.Expr("position - 1")).Error
	} else {
		// Member moves to a lower position: everyone in [newPos, oldPos)
		// shifts up one to make room.
		err = l.scoped(tx, scope).
			Where("position >= ? AND position < ?", newPos, oldPos).
			UpdateColumn("position", gorm.Expr("position + 1")).Error
	}
	if err != nil {
		return 0, fmt.Errorf("ordering: rotate: %w", err)
	}

	return newPos, l.place(tx, memberID, scope, newPos)
}

func (l List) transfer(tx *gorm.DB, memberID uint64, oldScope uint64, oldPos int, newScope uint64, newPos int) (int, error) {
	// Lock both scopes in a fixed order so two opposite moves between the
	// same pair of scopes cannot deadlock.
	first, second := oldScope, newScope
	if second < first {
		first, second = second, first
	}
	if _, err := l.lockScope(tx, first); err != nil {
		return 0, err
	}
	destMax, err := l.lockScope(tx, second)
	if err != nil {
		return 0, err
	}
	if first == newScope {
		// destMax came from the old scope; re-read the destination.
		var max int
		err = l.scoped(tx, newScope).
			Select("COALESCE(MAX(position), 0)").
			Scan(&max).Error
		if err != nil {
			return 0, fmt.Errorf("ordering: read max position: %w", err)
		}
		destMax = max
	}

	// Close the gap the member leaves behind.
	err = l.scoped(tx, oldScope).
		Where("position > ?", oldPos).
		UpdateColumn("position", gorm.Expr("position - 1")).Error
	if err != nil {
		return 0, fmt.Errorf("ordering: close gap: %w", err)
	}

	if newPos <= 0 || newPos > destMax+1 {
		newPos = destMax + 1
	} else {
		// Open a slot at the requested position.
		err = l.scoped(tx, newScope).
			Where("position >= ?", newPos).
			UpdateColumn("position", gorm.Expr("position + 1")).Error
		if err != nil {
			return 0, fmt.Errorf("ordering: open slot: %w", err)
		}
	}

	err = tx.Model(l.model).
		Where("id = ?", memberID).
		UpdateColumns(map[string]interface{}{
			l.scopeColumn: newScope,
			"position":    newPos,
		}).Error
	if err != nil {
		return 0, fmt.Errorf("ordering: reassign member: %w", err)
	}
	return newPos, nil
}

func (l List) place(tx *gorm.DB, memberID uint64, scope uint64, position int) error {
	res := tx.Model(l.model).
		Where("id = ? AND "+l.scopeColumn+" = ?", memberID, scope).
		UpdateColumn("position", position)
	if res.Error != nil {
		return fmt.Errorf("ordering: place member: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// Renumber reassigns positions 1..N to the scope's members following the
// given order in one atomic pass. Used to repair a scope whose positions
// have drifted and to apply a client-provided bulk reorder.
func (l List) Renumber(tx *gorm.DB, scope uint64, orderedIDs []uint64) error {
	if _, err := l.lockScope(tx, scope); err != nil {
		return err
	}
	for i, id := range orderedIDs {
		err := tx.Model(l.model).
			Where("id = ? AND "+l.scopeColumn+" = ?", id, scope).
			UpdateColumn("position", i+1).Error
		if err != nil {
			return fmt.Errorf("ordering: renumber: %w", err)
		}
	}
	return nil
}
