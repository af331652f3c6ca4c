package migrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dbsmedya/litemigrate/internal/dialect"
	"github.com/dbsmedya/litemigrate/internal/logger"
	"github.com/dbsmedya/litemigrate/internal/schema"
	"github.com/dbsmedya/litemigrate/internal/sqlutil"
	"github.com/dbsmedya/litemigrate/internal/types"
)

// maxRecordedRowErrors caps how many skipped rows per table keep their error
// in the MigrationRecord. The counters are always exact.
const maxRecordedRowErrors = 20

// TargetColumn is a column as reported by the target catalog.
type TargetColumn struct {
	Name       string
	DataType   string
	ColumnType string
}

// Copier streams rows from the source into existing target tables.
type Copier struct {
	source   *sql.DB
	target   *sql.DB
	dialect  dialect.Dialect
	logger   *logger.Logger
	progress *Progress
	defs     map[string]*schema.TableDefinition
}

// referenceCheck looks up the target row of one foreign key in the source.
type referenceCheck struct {
	fk      schema.ForeignKeyRef
	columns []int // positions of the local columns in a scanned row
	query   string
}

// NewCopier creates a Copier. progress may be nil.
func NewCopier(source, target *sql.DB, d dialect.Dialect, log *logger.Logger, progress *Progress) (*Copier, error) {
	if source == nil {
		return nil, fmt.Errorf("source database is nil")
	}
	if target == nil {
		return nil, fmt.Errorf("target database is nil")
	}
	if d == nil {
		return nil, fmt.Errorf("dialect is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Copier{source: source, target: target, dialect: d, logger: log, progress: progress}, nil
}

// SetDefinitions enables the orphan row check for the given tables. A row
// whose foreign key value is missing from the referenced source table is
// skipped before insert, since the constraint added later could not hold
// with it in place.
func (c *Copier) SetDefinitions(defs []*schema.TableDefinition) {
	c.defs = make(map[string]*schema.TableDefinition, len(defs))
	for _, def := range defs {
		c.defs[def.Name] = def
	}
}

// referenceChecks prepares the orphan lookups for table. Foreign keys to
// tables without a definition are not checked.
func (c *Copier) referenceChecks(table string, columns []string) []referenceCheck {
	def, ok := c.defs[table]
	if !ok {
		return nil
	}
	pos := make(map[string]int, len(columns))
	for i, col := range columns {
		pos[strings.ToLower(col)] = i
	}

	var checks []referenceCheck
	for _, fk := range def.ForeignKeys {
		ref, ok := c.defs[fk.ReferencedTable]
		if !ok {
			continue
		}
		refCols := fk.ReferencedColumns
		if len(refCols) == 0 {
			refCols = primaryKeyColumns(ref)
		}
		if len(refCols) != len(fk.LocalColumns) {
			continue
		}

		check := referenceCheck{fk: fk}
		conds := make([]string, len(refCols))
		for i, local := range fk.LocalColumns {
			p, ok := pos[strings.ToLower(local)]
			if !ok {
				break
			}
			check.columns = append(check.columns, p)
			conds[i] = sqlutil.QuoteIdentifier(refCols[i]) + " = ?"
		}
		if len(check.columns) != len(refCols) {
			continue
		}
		check.query = fmt.Sprintf("SELECT 1 FROM %s WHERE %s LIMIT 1",
			sqlutil.QuoteIdentifier(fk.ReferencedTable), strings.Join(conds, " AND "))
		checks = append(checks, check)
	}
	return checks
}

// findOrphan returns the first foreign key of the row whose referenced row
// does not exist in the source. Keys with a NULL column are not checked. A
// failed lookup is logged and the row is let through.
func (c *Copier) findOrphan(ctx context.Context, log *logger.Logger, checks []referenceCheck, values []interface{}) *referenceCheck {
	for i := range checks {
		check := &checks[i]
		args := make([]interface{}, 0, len(check.columns))
		for _, p := range check.columns {
			if values[p] == nil {
				break
			}
			args = append(args, values[p])
		}
		if len(args) != len(check.columns) {
			continue
		}

		var one int
		err := c.source.QueryRowContext(ctx, check.query, args...).Scan(&one)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return check
		case err != nil:
			log.Debugw("Reference lookup failed", "references", check.fk.ReferencedTable, "error", err)
		}
	}
	return nil
}

// TargetColumns reads the column metadata of table from the target catalog.
// It is read per table right before copying, since the table may have just
// been created.
func (c *Copier) TargetColumns(ctx context.Context, table string) ([]TargetColumn, error) {
	query, args := c.dialect.ColumnTypesQuery(table)
	rows, err := c.target.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query column types: %w", err)
	}
	defer rows.Close()

	var cols []TargetColumn
	for rows.Next() {
		var col TargetColumn
		var columnType sql.NullString
		if err := rows.Scan(&col.Name, &col.DataType, &columnType); err != nil {
			return nil, fmt.Errorf("failed to scan column type: %w", err)
		}
		col.ColumnType = columnType.String
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

// BooleanColumns returns the set of boolean-typed target columns of table.
func (c *Copier) BooleanColumns(ctx context.Context, table string) (map[string]bool, error) {
	cols, err := c.TargetColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool)
	for _, col := range cols {
		if c.dialect.IsBooleanType(col.DataType, col.ColumnType) {
			out[col.Name] = true
		}
	}
	return out, nil
}

// CopyTable copies every source row of table. Each row is inserted in its
// own transaction; a failed row is rolled back, counted as skipped and the
// copy continues. The returned error means the source could not be read or
// ctx was cancelled; rows handled before that stay counted in rec.
func (c *Copier) CopyTable(ctx context.Context, table string, rec *MigrationRecord) error {
	log := c.logger.WithTable(table)

	boolCols, err := c.BooleanColumns(ctx, table)
	if err != nil {
		log.Warnw("Could not read target column types, copying without boolean coercion", "error", err)
		boolCols = nil
	}

	var bar *TableBar
	if c.progress.Enabled() {
		var total int
		if err := c.source.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+sqlutil.QuoteIdentifier(table)).Scan(&total); err != nil {
			log.Debugw("Could not count source rows for progress", "error", err)
		}
		bar = c.progress.AddTable(table, total)
	}

	rows, err := c.source.QueryContext(ctx, "SELECT * FROM "+sqlutil.QuoteIdentifier(table))
	if err != nil {
		return fmt.Errorf("failed to read rows from source table %q: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("failed to read source columns of %q: %w", table, err)
	}

	coerce := make([]bool, len(columns))
	for i, col := range columns {
		coerce[i] = boolCols[col]
	}
	insertSQL := c.dialect.InsertSQL(table, columns)
	checks := c.referenceChecks(table, columns)

	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("copy of %q interrupted: %w", table, err)
		}

		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("failed to scan row from %q: %w", table, err)
		}
		rec.RowsRead++

		if check := c.findOrphan(ctx, log, checks, values); check != nil {
			c.skipRow(log, rec, &RowInsertError{
				Table:     table,
				Row:       rec.RowsRead,
				Integrity: true,
				Err: fmt.Errorf("%w: %s(%s) -> %s", ErrOrphanRow, table,
					strings.Join(check.fk.LocalColumns, ", "), check.fk.ReferencedTable),
			})
			bar.Incr()
			continue
		}

		for i, v := range values {
			if !coerce[i] {
				continue
			}
			if b, ok := types.CoerceBool(v); ok {
				values[i] = b
				continue
			}
			rec.CoercionWarnings++
			warning := &RowCoercionWarning{Table: table, Column: columns[i], Value: v}
			log.Debugw("Boolean coercion skipped", "column", columns[i], "row", rec.RowsRead, "warning", warning.Error())
		}

		if err := c.insertRow(ctx, insertSQL, values); err != nil {
			c.skipRow(log, rec, &RowInsertError{
				Table:     table,
				Row:       rec.RowsRead,
				Integrity: c.dialect.Classify(err) == dialect.KindIntegrity,
				Err:       err,
			})
		} else {
			rec.RowsInserted++
		}
		bar.Incr()
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows of %q: %w", table, err)
	}

	log.Infow("Copied table",
		"rows_read", rec.RowsRead,
		"rows_inserted", rec.RowsInserted,
		"rows_skipped", rec.RowsSkipped,
	)
	return nil
}

// skipRow counts a skipped row and keeps its error while under the cap.
func (c *Copier) skipRow(log *logger.Logger, rec *MigrationRecord, insertErr *RowInsertError) {
	rec.RowsSkipped++
	if rec.RowsSkipped <= maxRecordedRowErrors {
		rec.AddError(insertErr)
	}
	log.Warnw("Skipped row", "row", insertErr.Row, "integrity", insertErr.Integrity, "error", insertErr.Err)
}

// insertRow inserts one row in a short transaction of its own.
func (c *Copier) insertRow(ctx context.Context, query string, values []interface{}) error {
	tx, err := c.target.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, values...); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
