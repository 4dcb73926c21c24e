package ordering

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// item is a minimal ordered member: positions are dense per scope_id.
type item struct {
	ID       uint64 `gorm:"primarykey"`
	ScopeID  uint64 `gorm:"column:scope_id;not null"`
	Position int    `gorm:"not null"`
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&item{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

func seed(t *testing.T, db *gorm.DB, scope uint64, count int) []item {
	t.Helper()

	list := NewList(&item{}, "scope_id")
	items := make([]item, 0, count)
	for i := 0; i < count; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			pos, err := list.Append(tx, scope)
			if err != nil {
				return err
			}
			member := item{ScopeID: scope, Position: pos}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
			items = append(items, member)
			return nil
		})
		require.NoError(t, err)
	}
	return items
}

// positions returns the scope's positions in member-id order and asserts
// density: the set must be exactly {1..N}.
func positions(t *testing.T, db *gorm.DB, scope uint64) map[uint64]int {
	t.Helper()

	var members []item
	require.NoError(t, db.Where("scope_id = ?", scope).Find(&members).Error)

	got := make([]int, 0, len(members))
	byID := make(map[uint64]int, len(members))
	for _, m := range members {
		got = append(got, m.Position)
		byID[m.ID] = m.Position
	}
	sort.Ints(got)
	for i, pos := range got {
		require.Equal(t, i+1, pos, "positions in scope %d are not dense: %v", scope, got)
	}
	return byID
}

func TestAppendAssignsSequentialPositions(t *testing.T) {
	db := setupDB(t)

	items := seed(t, db, 1, 5)
	for i, member := range items {
		require.Equal(t, i+1, member.Position)
	}
	positions(t, db, 1)
}

func TestAppendAfterExistingMax(t *testing.T) {
	db := setupDB(t)
	list := NewList(&item{}, "scope_id")

	seed(t, db, 1, 5)

	// Each append lands on a distinct next slot: {6, ..., 5+N}.
	assigned := make(map[int]bool)
	for i := 0; i < 4; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			pos, err := list.Append(tx, 1)
			if err != nil {
				return err
			}
			require.False(t, assigned[pos], "position %d assigned twice", pos)
			assigned[pos] = true
			return tx.Create(&item{ScopeID: 1, Position: pos}).Error
		})
		require.NoError(t, err)
	}
	for pos := 6; pos <= 9; pos++ {
		require.True(t, assigned[pos], "expected position %d to be assigned", pos)
	}
	positions(t, db, 1)
}

func TestRemoveClosesGap(t *testing.T) {
	db := setupDB(t)
	list := NewList(&item{}, "scope_id")

	items := seed(t, db, 1, 5)
	victim := items[2] // position 3

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&item{}, victim.ID).Error; err != nil {
			return err
		}
		return list.Remove(tx, 1, victim.Position)
	})
	require.NoError(t, err)

	byID := positions(t, db, 1)
	require.Equal(t, 1, byID[items[0].ID])
	require.Equal(t, 2, byID[items[1].ID])
	require.Equal(t, 3, byID[items[3].ID])
	require.Equal(t, 4, byID[items[4].ID])
}

func TestRotateMovesDown(t *testing.T) {
	db := setupDB(t)
	list := NewList(&item{}, "scope_id")

	items := seed(t, db, 1, 5)

	var finalPos int
	err := db.Transaction(func(tx *gorm.DB) error {
		pos, err := list.Reposition(tx, items[0].ID, 1, 1, 1, 4)
		finalPos = pos
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 4, finalPos)

	byID := positions(t, db, 1)
	require.Equal(t, 4, byID[items[0].ID])
	require.Equal(t, 1, byID[items[1].ID])
	require.Equal(t, 2, byID[items[2].ID])
	require.Equal(t, 3, byID[items[3].ID])
	require.Equal(t, 5, byID[items[4].ID])
}

func TestRotateMovesUp(t *testing.T) {
	db := setupDB(t)
	list := NewList(&item{}, "scope_id")

	items := seed(t, db, 1, 5)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := list.Reposition(tx, items[4].ID, 1, 5, 1, 2)
		return err
	})
	require.NoError(t, err)

	byID := positions(t, db, 1)
	require.Equal(t, 2, byID[items[4].ID])
	require.Equal(t, 1, byID[items[0].ID])
	require.Equal(t, 3, byID[items[1].ID])
	require.Equal(t, 4, byID[items[2].ID])
	require.Equal(t, 5, byID[items[3].ID])
}

func TestRotateSamePositionIsNoop(t *testing.T) {
	db := setupDB(t)
	list := NewList(&item{}, "scope_id")

	items := seed(t, db, 1, 3)

	err := db.Transaction(func(tx *gorm.DB) error {
		pos, err := list.Reposition(tx, items[1].ID, 1, 2, 1, 2)
		require.Equal(t, 2, pos)
		return err
	})
	require.NoError(t, err)
	positions(t, db, 1)
}

func TestRotateClampsBeyondEnd(t *testing.T) {
	db := setupDB(t)
	list := NewList(&item{}, "scope_id")

	items := seed(t, db, 1, 3)

	err := db.Transaction(func(tx *gorm.DB) error {
		pos, err := list.Reposition(tx, items[0].ID, 1, 1, 1, 99)
		require.Equal(t, 3, pos)
		return err
	})
	require.NoError(t, err)

	byID := positions(t, db, 1)
	require.Equal(t, 3, byID[items[0].ID])
}

func TestTransferMovesAcrossScopes(t *testing.T) {
	db := setupDB(t)
	list := NewList(&item{}, "scope_id")

	source := seed(t, db, 1, 3)
	dest := seed(t, db, 2, 2)

	// Insert at position 1 of the destination; both residents shift.
	err := db.Transaction(func(tx *gorm.DB) error {
		pos, err := list.Reposition(tx, source[1].ID, 1, 2, 2, 1)
		require.Equal(t, 1, pos)
		return err
	})
	require.NoError(t, err)

	srcByID := positions(t, db, 1)
	require.Len(t, srcByID, 2)
	require.Equal(t, 1, srcByID[source[0].ID])
	require.Equal(t, 2, srcByID[source[2].ID])

	destByID := positions(t, db, 2)
	require.Len(t, destByID, 3)
	require.Equal(t, 1, destByID[source[1].ID])
	require.Equal(t, 2, destByID[dest[0].ID])
	require.Equal(t, 3, destByID[dest[1].ID])
}

func TestTransferAppendsWhenPositionOmitted(t *testing.T) {
	db := setupDB(t)
	list := NewList(&item{}, "scope_id")

	source := seed(t, db, 1, 1)
	seed(t, db, 2, 2)

	err := db.Transaction(func(tx *gorm.DB) error {
		pos, err := list.Reposition(tx, source[0].ID, 1, 1, 2, 0)
		require.Equal(t, 3, pos)
		return err
	})
	require.NoError(t, err)

	positions(t, db, 2)
	var emptied int64
	require.NoError(t, db.Model(&item{}).Where("scope_id = ?", 1).Count(&emptied).Error)
	require.Zero(t, emptied)
}

func TestTransferIntoEmptyScope(t *testing.T) {
	db := setupDB(t)
	list := NewList(&item{}, "scope_id")

	source := seed(t, db, 1, 2)

	err := db.Transaction(func(tx *gorm.DB) error {
		pos, err := list.Reposition(tx, source[0].ID, 1, 1, 7, 5)
		require.Equal(t, 1, pos, "out-of-range position clamps to append")
		return err
	})
	require.NoError(t, err)

	positions(t, db, 1)
	positions(t, db, 7)
}

func TestRepositionUnknownMember(t *testing.T) {
	db := setupDB(t)
	list := NewList(&item{}, "scope_id")

	seed(t, db, 1, 3)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := list.Reposition(tx, 9999, 1, 2, 1, 1)
		return err
	})
	require.ErrorIs(t, err, ErrMemberNotFound)

	// The failed transaction rolled back: no partial shifts.
	positions(t, db, 1)
}

func TestRenumberAppliesGivenOrder(t *testing.T) {
	db := setupDB(t)
	list := NewList(&item{}, "scope_id")

	items := seed(t, db, 1, 4)

	reversed := []uint64{items[3].ID, items[2].ID, items[1].ID, items[0].ID}
	err := db.Transaction(func(tx *gorm.DB) error {
		return list.Renumber(tx, 1, reversed)
	})
	require.NoError(t, err)

	byID := positions(t, db, 1)
	for i, id := range reversed {
		require.Equal(t, i+1, byID[id])
	}
}

func TestRenumberIgnoresForeignMembers(t *testing.T) {
	db := setupDB(t)
	list := NewList(&item{}, "scope_id")

	items := seed(t, db, 1, 2)
	foreign := seed(t, db, 2, 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		return list.Renumber(tx, 1, []uint64{items[1].ID, foreign[0].ID, items[0].ID})
	})
	require.NoError(t, err)

	// The foreign member keeps its own scope's position.
	var untouched item
	require.NoError(t, db.First(&untouched, foreign[0].ID).Error)
	require.Equal(t, 1, untouched.Position)
}

func TestMixedOperationSequenceStaysDense(t *testing.T) {
	db := setupDB(t)
	list := NewList(&item{}, "scope_id")

	items := seed(t, db, 1, 6)

	ops := []func(tx *gorm.DB) error{
		func(tx *gorm.DB) error {
			_, err := list.Reposition(tx, items[5].ID, 1, 6, 1, 1)
			return err
		},
		func(tx *gorm.DB) error {
			var victim item
			if err := tx.First(&victim, items[2].ID).Error; err != nil {
				return err
			}
			if err := tx.Delete(&item{}, victim.ID).Error; err != nil {
				return err
			}
			return list.Remove(tx, 1, victim.Position)
		},
		func(tx *gorm.DB) error {
			pos, err := list.Append(tx, 1)
			if err != nil {
				return err
			}
			return tx.Create(&item{ScopeID: 1, Position: pos}).Error
		},
		func(tx *gorm.DB) error {
			_, err := list.Reposition(tx, items[0].ID, 1, 2, 1, 5)
			return err
		},
	}

	for i, op := range ops {
		require.NoError(t, db.Transaction(op), fmt.Sprintf("op %d", i))
		positions(t, db, 1)
	}
}
