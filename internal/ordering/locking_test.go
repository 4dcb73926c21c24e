package ordering

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// The sqlite tests above cannot observe locking clauses, so the SQL shape
// is asserted against the mysql dialector with a mocked connection.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return db, mock
}

func TestAppendLocksScopeRowsForUpdate(t *testing.T) {
	db, mock := setupMockDB(t)
	list := NewList(&item{}, "scope_id")

	mock.ExpectQuery("SELECT `id` FROM `items` WHERE scope_id = \\? ORDER BY position FOR UPDATE").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10).AddRow(11))
	mock.ExpectQuery("SELECT COALESCE\\(MAX\\(position\\), 0\\) FROM `items` WHERE scope_id = \\?").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(2))

	pos, err := list.Append(db, 1)
	require.NoError(t, err)
	require.Equal(t, 3, pos)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveLocksBeforeShifting(t *testing.T) {
	db, mock := setupMockDB(t)
	list := NewList(&item{}, "scope_id")

	mock.ExpectQuery("SELECT `id` FROM `items` WHERE scope_id = \\? ORDER BY position FOR UPDATE").
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(20).AddRow(21).AddRow(22))
	mock.ExpectQuery("SELECT COALESCE\\(MAX\\(position\\), 0\\) FROM `items` WHERE scope_id = \\?").
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(3))
	mock.ExpectExec("UPDATE `items` SET `position`=position - 1 WHERE scope_id = \\? AND position > \\?").
		WithArgs(4, 1).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := list.Remove(db, 4, 1)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
