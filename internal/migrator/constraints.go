package migrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dbsmedya/litemigrate/internal/dialect"
	"github.com/dbsmedya/litemigrate/internal/logger"
	"github.com/dbsmedya/litemigrate/internal/schema"
	"github.com/dbsmedya/litemigrate/internal/sqlutil"
)

// ConstraintName returns the deterministic name of the index-th (1-based)
// foreign key of table, so reruns produce the same name.
func ConstraintName(table string, index int) string {
	return fmt.Sprintf("fk_%s_%d", sqlutil.SanitizeName(table), index)
}

// ConstraintApplier adds deferred foreign keys to the target.
type ConstraintApplier struct {
	db         *sql.DB
	dialect    dialect.Dialect
	logger     *logger.Logger
	discovered map[string]bool
	defs       map[string]*schema.TableDefinition

	maxAttempts int
	backoff     time.Duration
}

// NewConstraintApplier creates an applier. discovered lists every table the
// schema reader found; defs are the parsed definitions, used to resolve
// references that name no columns.
func NewConstraintApplier(db *sql.DB, d dialect.Dialect, log *logger.Logger, discovered []string, defs []*schema.TableDefinition) (*ConstraintApplier, error) {
	if db == nil {
		return nil, fmt.Errorf("target database is nil")
	}
	if d == nil {
		return nil, fmt.Errorf("dialect is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	a := &ConstraintApplier{
		db:         db,
		dialect:    d,
		logger:     log,
		discovered:  make(map[string]bool, len(discovered)),
		defs:        make(map[string]*schema.TableDefinition, len(defs)),
		maxAttempts: 3,
		backoff:     500 * time.Millisecond,
	}
	for _, name := range discovered {
		a.discovered[name] = true
	}
	for _, def := range defs {
		a.defs[def.Name] = def
	}
	return a, nil
}

// SetRetry sets how many times an ALTER that failed with a deadlock or lock
// timeout is attempted, and the wait before the first retry.
func (a *ConstraintApplier) SetRetry(attempts int, backoff time.Duration) {
	if attempts < 1 {
		attempts = 1
	}
	a.maxAttempts = attempts
	a.backoff = backoff
}

// ResolveForeignKey returns fk with its referenced columns filled in from
// the primary key of the referenced table when the key names none. The
// reference is returned unchanged if that table is not in defs.
func ResolveForeignKey(fk schema.ForeignKeyRef, defs map[string]*schema.TableDefinition) schema.ForeignKeyRef {
	if len(fk.ReferencedColumns) > 0 {
		return fk
	}
	if ref, ok := defs[fk.ReferencedTable]; ok {
		fk.ReferencedColumns = primaryKeyColumns(ref)
	}
	return fk
}

// primaryKeyColumns returns the primary key of def, table-level or inline.
func primaryKeyColumns(def *schema.TableDefinition) []string {
	if len(def.PrimaryKey) > 0 {
		return def.PrimaryKey
	}
	for _, c := range def.Columns {
		if c.IsPrimaryKey {
			return []string{c.Name}
		}
	}
	return nil
}

// Apply adds every foreign key of def. Each ALTER runs on its own in
// autocommit mode. An already existing constraint counts as applied; any
// other failure is recorded and the next constraint is attempted.
func (a *ConstraintApplier) Apply(ctx context.Context, def *schema.TableDefinition, rec *MigrationRecord) {
	log := a.logger.WithTable(def.Name)

	for i, fk := range def.ForeignKeys {
		name := ConstraintName(def.Name, i+1)

		if err := ctx.Err(); err != nil {
			rec.ConstraintsFailed++
			rec.AddError(&ConstraintApplicationError{Table: def.Name, Constraint: name, Err: err})
			continue
		}

		if !a.discovered[fk.ReferencedTable] {
			rec.ConstraintsFailed++
			rec.AddError(&ConstraintApplicationError{
				Table:      def.Name,
				Constraint: name,
				Err:        fmt.Errorf("%w: %q", ErrMissingReferencedTable, fk.ReferencedTable),
			})
			log.Warnw("Skipping foreign key to unknown table", "constraint", name, "references", fk.ReferencedTable)
			continue
		}

		fk = ResolveForeignKey(fk, a.defs)
		stmt := a.dialect.AddForeignKeySQL(def.Name, name, fk)

		if err := a.exec(ctx, log, name, stmt); err != nil {
			if a.dialect.Classify(err) == dialect.KindDuplicateConstraint {
				rec.ConstraintsApplied++
				log.Debugw("Foreign key already present", "constraint", name)
				continue
			}
			rec.ConstraintsFailed++
			rec.AddError(&ConstraintApplicationError{Table: def.Name, Constraint: name, Err: err})
			log.Warnw("Failed to add foreign key", "constraint", name, "references", fk.ReferencedTable, "error", err)
			continue
		}

		rec.ConstraintsApplied++
		log.Infow("Added foreign key", "constraint", name, "references", fk.ReferencedTable)
	}
}

// exec runs one ALTER, retrying with exponential backoff while the target
// reports a deadlock or lock timeout.
func (a *ConstraintApplier) exec(ctx context.Context, log *logger.Logger, name, stmt string) error {
	backoff := a.backoff
	var err error
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if _, err = a.db.ExecContext(ctx, stmt); err == nil {
			return nil
		}
		if a.dialect.Classify(err) != dialect.KindRetryable || attempt == a.maxAttempts {
			return err
		}
		log.Warnw("Foreign key hit a lock conflict, retrying", "constraint", name, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return err
}

// IsMissingReference reports whether err is a constraint skipped because
// its referenced table does not exist in the source.
func IsMissingReference(err error) bool {
	return errors.Is(err, ErrMissingReferencedTable)
}
