// Package lock provides a session-level advisory lock on the target that
// keeps two migration runs from writing into the same target at once.
package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dbsmedya/litemigrate/internal/sqlutil"
)

// ErrLockTimeout is returned when another run holds the lock.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// TimeoutShort is the default wait, in seconds, for acquiring the run lock.
const TimeoutShort = 1

// Queries renders the dialect specific lock statements. Both return a
// single 1, 0 or NULL value.
type Queries interface {
	AcquireLockQuery(name string, timeoutSeconds int) (string, []interface{})
	ReleaseLockQuery(name string) (string, []interface{})
}

// AdvisoryLock is a named lock held on one dedicated connection. Advisory
// locks belong to the session, so acquire and release must use the same one.
type AdvisoryLock struct {
	db       *sql.DB
	queries  Queries
	lockName string
	conn     *sql.Conn
}

// NewAdvisoryLock creates a lock; nothing is acquired until AcquireLock.
func NewAdvisoryLock(db *sql.DB, queries Queries, lockName string) *AdvisoryLock {
	return &AdvisoryLock{
		db:       db,
		queries:  queries,
		lockName: lockName,
	}
}

// GenerateRunLockName derives the lock name for a target schema.
// Example: GenerateRunLockName("public") -> "litemigrate:run:public"
func GenerateRunLockName(target string) string {
	return fmt.Sprintf("litemigrate:run:%s", sqlutil.SanitizeName(target))
}

// AcquireLock tries to take the lock, waiting up to timeoutSeconds where the
// target supports waiting. It returns false when another session holds it.
func (a *AdvisoryLock) AcquireLock(ctx context.Context, timeoutSeconds int) (bool, error) {
	if a.conn != nil {
		return true, nil // Already holding the lock
	}

	conn, err := a.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to reserve lock connection: %w", err)
	}

	query, args := a.queries.AcquireLockQuery(a.lockName, timeoutSeconds)
	var result sql.NullInt64
	if err := conn.QueryRowContext(ctx, query, args...).Scan(&result); err != nil {
		_ = conn.Close()
		return false, fmt.Errorf("failed to acquire lock %q: %w", a.lockName, err)
	}

	if !result.Valid {
		_ = conn.Close()
		return false, fmt.Errorf("lock query returned NULL for lock %q", a.lockName)
	}

	switch result.Int64 {
	case 1:
		a.conn = conn
		return true, nil
	case 0:
		_ = conn.Close()
		return false, nil
	default:
		_ = conn.Close()
		return false, fmt.Errorf("unexpected lock result: %d", result.Int64)
	}
}

// ReleaseLock releases the lock and returns its connection to the pool.
// Returns false if the lock was not held.
func (a *AdvisoryLock) ReleaseLock(ctx context.Context) (bool, error) {
	if a.conn == nil {
		return false, nil
	}
	conn := a.conn
	a.conn = nil
	defer func() { _ = conn.Close() }()

	query, args := a.queries.ReleaseLockQuery(a.lockName)
	var result sql.NullInt64
	if err := conn.QueryRowContext(ctx, query, args...).Scan(&result); err != nil {
		return false, fmt.Errorf("failed to release lock %q: %w", a.lockName, err)
	}
	return result.Valid && result.Int64 == 1, nil
}

// IsHeld returns true if this instance holds the lock.
func (a *AdvisoryLock) IsHeld() bool {
	return a.conn != nil
}

// LockName returns the name of the advisory lock.
func (a *AdvisoryLock) LockName() string {
	return a.lockName
}

// AcquireOrFail acquires the lock or returns ErrLockTimeout.
func (a *AdvisoryLock) AcquireOrFail(ctx context.Context, timeoutSeconds int) error {
	acquired, err := a.AcquireLock(ctx, timeoutSeconds)
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("%w: lock %q is held by another run", ErrLockTimeout, a.lockName)
	}
	return nil
}

// WithLock runs fn while holding the lock. The lock is released even if fn
// panics, using a fresh context so a cancelled run still unlocks.
func (a *AdvisoryLock) WithLock(ctx context.Context, timeoutSeconds int, fn func() error) error {
	if err := a.AcquireOrFail(ctx, timeoutSeconds); err != nil {
		return err
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// The session ends with the connection, which also drops the lock.
		_, _ = a.ReleaseLock(releaseCtx)
	}()

	return fn()
}
