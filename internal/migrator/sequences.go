package migrator

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbsmedya/litemigrate/internal/dialect"
	"github.com/dbsmedya/litemigrate/internal/logger"
	"github.com/dbsmedya/litemigrate/internal/schema"
)

// SequenceResyncer moves auto-increment counters past the copied ids.
type SequenceResyncer struct {
	db      *sql.DB
	dialect dialect.Dialect
	logger  *logger.Logger
}

// NewSequenceResyncer creates a resyncer for the target handle.
func NewSequenceResyncer(db *sql.DB, d dialect.Dialect, log *logger.Logger) (*SequenceResyncer, error) {
	if db == nil {
		return nil, fmt.Errorf("target database is nil")
	}
	if d == nil {
		return nil, fmt.Errorf("dialect is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &SequenceResyncer{db: db, dialect: d, logger: log}, nil
}

// Resync resets the counter of def's auto-increment column so the next id
// is MAX(id)+1, or 1 on an empty table. Tables without such a column are
// left alone. A failure is returned as *SequenceResetError.
func (s *SequenceResyncer) Resync(ctx context.Context, def *schema.TableDefinition, rec *MigrationRecord) error {
	col, ok := def.AutoIncrementColumn()
	if !ok {
		return nil
	}
	log := s.logger.WithTable(def.Name)

	next, err := s.dialect.ResetSequence(ctx, s.db, def.Name, col.Name)
	if err != nil {
		resetErr := &SequenceResetError{Table: def.Name, Column: col.Name, Err: err}
		log.Warnw("Sequence reset failed", "column", col.Name, "error", err)
		return resetErr
	}

	rec.NextSequenceValue = next
	log.Infow("Sequence reset", "column", col.Name, "next_value", next)
	return nil
}
