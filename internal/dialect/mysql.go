package dialect

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/dbsmedya/litemigrate/internal/schema"
	"github.com/dbsmedya/litemigrate/internal/sqlutil"
)

type MysqlDialect struct{}

func (d *MysqlDialect) Name() string { return "mysql" }

func (d *MysqlDialect) QuoteIdentifier(name string) string {
	return sqlutil.QuoteBacktick(name)
}

// Table quotes a table name; the database comes from the DSN.
func (d *MysqlDialect) Table(name string) string {
	return sqlutil.QuoteBacktick(name)
}

func (d *MysqlDialect) Placeholder(index int) string {
	return "?"
}

// MapType keeps DATETIME, which MySQL supports natively, and maps the
// rowid-alias key to INT AUTO_INCREMENT.
func (d *MysqlDialect) MapType(col schema.ColumnSpec) string {
	switch {
	case col.IsAutoIncrement:
		return "INT AUTO_INCREMENT"
	case strings.TrimSpace(col.SourceType) == "":
		return "TEXT"
	default:
		return col.SourceType
	}
}

func (d *MysqlDialect) columnSQL(col schema.ColumnSpec, inlinePK bool) string {
	pk := ""
	if inlinePK {
		pk = "PRIMARY KEY"
	}
	return joinNonEmpty(d.QuoteIdentifier(col.Name), d.MapType(col), pk, col.Constraints)
}

func (d *MysqlDialect) CreateTableSQL(def *schema.TableDefinition) (string, error) {
	return createTable(d, def, d.columnSQL)
}

func (d *MysqlDialect) AddForeignKeySQL(table, constraintName string, fk schema.ForeignKeyRef) string {
	return addForeignKey(d, table, constraintName, fk)
}

func (d *MysqlDialect) InsertSQL(table string, cols []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Table(table), quoteList(cols, d.QuoteIdentifier), GeneratePlaceholders(len(cols), d.Placeholder))
}

func (d *MysqlDialect) CountSQL(table string) string {
	return "SELECT COUNT(*) FROM " + d.Table(table)
}

func (d *MysqlDialect) TableExistsQuery(table string) (string, []interface{}) {
	return `SELECT COUNT(*) FROM information_schema.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?`,
		[]interface{}{table}
}

func (d *MysqlDialect) ColumnTypesQuery(table string) (string, []interface{}) {
	return `SELECT COLUMN_NAME, DATA_TYPE, COLUMN_TYPE FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`, []interface{}{table}
}

// IsBooleanType recognises BOOLEAN columns, which MySQL stores as tinyint(1).
func (d *MysqlDialect) IsBooleanType(dataType, columnType string) bool {
	return strings.EqualFold(columnType, "tinyint(1)") || strings.EqualFold(dataType, "boolean")
}

func (d *MysqlDialect) ResetSequence(ctx context.Context, q Querier, table, column string) (int64, error) {
	var next int64
	query := fmt.Sprintf("SELECT COALESCE(MAX(%s), 0) + 1 FROM %s", d.QuoteIdentifier(column), d.Table(table))
	if err := q.QueryRowContext(ctx, query).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to read max %s.%s: %w", table, column, err)
	}

	// ALTER TABLE does not take placeholders for AUTO_INCREMENT.
	if _, err := q.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s AUTO_INCREMENT = %d", d.Table(table), next)); err != nil {
		return 0, fmt.Errorf("failed to set AUTO_INCREMENT for %s: %w", table, err)
	}
	return next, nil
}

func (d *MysqlDialect) AcquireLockQuery(name string, timeoutSeconds int) (string, []interface{}) {
	return "SELECT GET_LOCK(?, ?)", []interface{}{name, timeoutSeconds}
}

func (d *MysqlDialect) ReleaseLockQuery(name string) (string, []interface{}) {
	return "SELECT RELEASE_LOCK(?)", []interface{}{name}
}

// Classify maps go-sql-driver/mysql error numbers.
func (d *MysqlDialect) Classify(err error) ErrorKind {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return KindOther
	}
	switch myErr.Number {
	case 1050: // ER_TABLE_EXISTS_ERROR
		return KindAlreadyExists
	case 1826, 1061, 1022: // ER_FK_DUP_NAME, ER_DUP_KEYNAME, ER_DUP_KEY
		return KindDuplicateConstraint
	case 1062, 1451, 1452, 1048, 1364: // duplicate entry, FK parent/child, NOT NULL, no default
		return KindIntegrity
	case 1213, 1205: // ER_LOCK_DEADLOCK, ER_LOCK_WAIT_TIMEOUT
		return KindRetryable
	default:
		return KindOther
	}
}
