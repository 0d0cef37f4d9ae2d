package db

import (
	"context"
	"hash/fnv"

	"github.com/rotisserie/eris"
)

// ErrRunInProgress is returned when another run of the same type holds the lock.
var ErrRunInProgress = eris.New("db: a run of this type is already in progress")

// lockNamespace keeps fieldops advisory lock keys away from other tools
// sharing the same database.
const lockNamespace = int32(0x7A78) // "zx" — tax

// RunLock is a session-scoped Postgres advisory lock keyed by run type.
// It prevents two operators from triggering overlapping runs of the same
// pipeline stage against the same database.
type RunLock struct {
	pool Pool
	key  int32
}

// NewRunLock creates an advisory lock for the given run type.
func NewRunLock(pool Pool, runType string) *RunLock {
	return &RunLock{pool: pool, key: lockKey(runType)}
}

// Acquire takes the lock without blocking. Returns ErrRunInProgress if a
// concurrent run of the same type already holds it.
func (l *RunLock) Acquire(ctx context.Context) error {
	var acquired bool
	err := l.pool.QueryRow(ctx,
		`SELECT pg_try_advisory_lock($1, $2)`,
		lockNamespace, l.key,
	).Scan(&acquired)
	if err != nil {
		return eris.Wrap(err, "db: acquire run lock")
	}
	if !acquired {
		return ErrRunInProgress
	}
	return nil
}

// Release frees the lock. Safe to call after a failed Acquire; Postgres
// reports a no-op unlock without error to the client.
func (l *RunLock) Release(ctx context.Context) error {
	_, err := l.pool.Exec(ctx,
		`SELECT pg_advisory_unlock($1, $2)`,
		lockNamespace, l.key,
	)
	return eris.Wrap(err, "db: release run lock")
}

// lockKey hashes a run type to a stable 32-bit advisory lock key.
func lockKey(runType string) int32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(runType))
	return int32(h.Sum32())
}
