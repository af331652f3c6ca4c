package dialect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/dbsmedya/litemigrate/internal/schema"
	"github.com/dbsmedya/litemigrate/internal/sqlutil"
)

type PostgresDialect struct {
	schema string
}

// NewPostgres returns a PostgreSQL dialect creating tables in schemaName
// ("public" when empty).
func NewPostgres(schemaName string) *PostgresDialect {
	if schemaName == "" {
		schemaName = "public"
	}
	return &PostgresDialect{schema: schemaName}
}

func (d *PostgresDialect) Name() string { return "postgres" }

// Schema returns the target schema name.
func (d *PostgresDialect) Schema() string { return d.schema }

func (d *PostgresDialect) QuoteIdentifier(name string) string {
	return sqlutil.QuoteIdentifier(name)
}

func (d *PostgresDialect) Table(name string) string {
	return sqlutil.QuoteIdentifier(d.schema) + "." + sqlutil.QuoteIdentifier(name)
}

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index+1)
}

// MapType maps a SQLite column type to PostgreSQL. DATETIME becomes
// TIMESTAMP and the rowid-alias key becomes SERIAL; everything else passes
// through unchanged.
func (d *PostgresDialect) MapType(col schema.ColumnSpec) string {
	switch {
	case col.IsAutoIncrement:
		return "SERIAL"
	case strings.TrimSpace(col.SourceType) == "":
		return "TEXT"
	case datetimePattern.MatchString(col.SourceType):
		return "TIMESTAMP"
	default:
		return col.SourceType
	}
}

func (d *PostgresDialect) columnSQL(col schema.ColumnSpec, inlinePK bool) string {
	typ := d.MapType(col)
	constraints := col.Constraints
	if isBooleanTypeName(typ) {
		// PostgreSQL rejects integer defaults on boolean columns.
		constraints = booleanDefaultPattern.ReplaceAllStringFunc(constraints, func(m string) string {
			sub := booleanDefaultPattern.FindStringSubmatch(m)
			value := "FALSE"
			if sub[1] == "1" {
				value = "TRUE"
			}
			return "DEFAULT " + value + sub[2]
		})
		constraints = strings.TrimSpace(constraints)
	}
	pk := ""
	if inlinePK {
		pk = "PRIMARY KEY"
	}
	return joinNonEmpty(d.QuoteIdentifier(col.Name), typ, pk, constraints)
}

func (d *PostgresDialect) CreateTableSQL(def *schema.TableDefinition) (string, error) {
	return createTable(d, def, d.columnSQL)
}

func (d *PostgresDialect) AddForeignKeySQL(table, constraintName string, fk schema.ForeignKeyRef) string {
	return addForeignKey(d, table, constraintName, fk)
}

func (d *PostgresDialect) InsertSQL(table string, cols []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Table(table), quoteList(cols, d.QuoteIdentifier), GeneratePlaceholders(len(cols), d.Placeholder))
}

func (d *PostgresDialect) CountSQL(table string) string {
	return "SELECT COUNT(*) FROM " + d.Table(table)
}

func (d *PostgresDialect) TableExistsQuery(table string) (string, []interface{}) {
	return `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2`,
		[]interface{}{d.schema, table}
}

func (d *PostgresDialect) ColumnTypesQuery(table string) (string, []interface{}) {
	return `SELECT column_name, data_type, udt_name FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`, []interface{}{d.schema, table}
}

func (d *PostgresDialect) IsBooleanType(dataType, columnType string) bool {
	return strings.EqualFold(dataType, "boolean") || strings.EqualFold(columnType, "bool")
}

// ResetSequence calls setval with is_called = false, so the value set is
// the next one nextval hands out.
func (d *PostgresDialect) ResetSequence(ctx context.Context, q Querier, table, column string) (int64, error) {
	query := fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence($1, $2), COALESCE((SELECT MAX(%s) FROM %s), 0) + 1, false)",
		d.QuoteIdentifier(column), d.Table(table))

	var next sql.NullInt64
	if err := q.QueryRowContext(ctx, query, d.Table(table), column).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to reset sequence for %s.%s: %w", table, column, err)
	}
	if !next.Valid {
		return 0, fmt.Errorf("column %s.%s has no owned sequence", table, column)
	}
	return next.Int64, nil
}

func (d *PostgresDialect) AcquireLockQuery(name string, timeoutSeconds int) (string, []interface{}) {
	return "SELECT CASE WHEN pg_try_advisory_lock(hashtext($1)) THEN 1 ELSE 0 END", []interface{}{name}
}

func (d *PostgresDialect) ReleaseLockQuery(name string) (string, []interface{}) {
	return "SELECT CASE WHEN pg_advisory_unlock(hashtext($1)) THEN 1 ELSE 0 END", []interface{}{name}
}

// Classify maps lib/pq SQLSTATE codes.
func (d *PostgresDialect) Classify(err error) ErrorKind {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return KindOther
	}
	switch {
	case pqErr.Code == "42P07": // duplicate_table
		return KindAlreadyExists
	case pqErr.Code == "42710": // duplicate_object
		return KindDuplicateConstraint
	case pqErr.Code.Class() == "23": // integrity_constraint_violation
		return KindIntegrity
	case pqErr.Code == "40P01" || pqErr.Code == "40001": // deadlock_detected, serialization_failure
		return KindRetryable
	default:
		return KindOther
	}
}
