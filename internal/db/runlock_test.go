package db

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLock_Acquire(t *testing.T) {
	mock := newMockPool(t)
	lock := NewRunLock(mock, "sync")

	mock.ExpectQuery(`SELECT pg_try_advisory_lock\(\$1, \$2\)`).
		WithArgs(lockNamespace, lock.key).
		WillReturnRows(pgxmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))

	require.NoError(t, lock.Acquire(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunLock_AcquireContended(t *testing.T) {
	mock := newMockPool(t)
	lock := NewRunLock(mock, "calculate")

	mock.ExpectQuery(`SELECT pg_try_advisory_lock\(\$1, \$2\)`).
		WithArgs(lockNamespace, lock.key).
		WillReturnRows(pgxmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	err := lock.Acquire(context.Background())
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrRunInProgress))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunLock_Release(t *testing.T) {
	mock := newMockPool(t)
	lock := NewRunLock(mock, "sync")

	mock.ExpectExec(`SELECT pg_advisory_unlock\(\$1, \$2\)`).
		WithArgs(lockNamespace, lock.key).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, lock.Release(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockKeyStable(t *testing.T) {
	assert.Equal(t, lockKey("sync"), lockKey("sync"))
	assert.NotEqual(t, lockKey("sync"), lockKey("calculate"))
}
