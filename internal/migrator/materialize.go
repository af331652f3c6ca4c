package migrator

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbsmedya/litemigrate/internal/dialect"
	"github.com/dbsmedya/litemigrate/internal/logger"
)

// Materializer creates translated tables on the target.
type Materializer struct {
	db      *sql.DB
	dialect dialect.Dialect
	logger  *logger.Logger
}

// NewMaterializer creates a Materializer for the target handle.
func NewMaterializer(db *sql.DB, d dialect.Dialect, log *logger.Logger) (*Materializer, error) {
	if db == nil {
		return nil, fmt.Errorf("target database is nil")
	}
	if d == nil {
		return nil, fmt.Errorf("dialect is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Materializer{db: db, dialect: d, logger: log}, nil
}

// TableExists probes the target catalog for table.
func (m *Materializer) TableExists(ctx context.Context, table string) (bool, error) {
	query, args := m.dialect.TableExistsQuery(table)
	var n int64
	if err := m.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to probe table %q: %w", table, err)
	}
	return n > 0, nil
}

// Materialize makes sure table exists on the target. An existing table is
// left untouched. The DDL runs as a single autocommit statement, outside any
// transaction. A failure is returned as *TableCreationError together with
// StateCreateFailed.
func (m *Materializer) Materialize(ctx context.Context, table, ddl string) (TableState, error) {
	log := m.logger.WithTable(table)

	exists, err := m.TableExists(ctx, table)
	switch {
	case err != nil:
		log.Warnw("Existence probe failed, attempting creation", "error", err)
	case exists:
		log.Infow("Table exists on target, skipping creation")
		return StateExisted, nil
	}

	if _, err := m.db.ExecContext(ctx, ddl); err != nil {
		if m.dialect.Classify(err) == dialect.KindAlreadyExists {
			log.Infow("Table was created concurrently, treating as existing")
			return StateExisted, nil
		}
		log.Errorw("Table creation failed", "error", err)
		return StateCreateFailed, &TableCreationError{Table: table, Err: err}
	}

	log.Infow("Created table")
	log.Debugw("Executed DDL", "ddl", ddl)
	return StateCreated, nil
}
