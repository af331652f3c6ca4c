// Package dialect renders DDL and catalog queries for the supported target
// stores and classifies their driver errors.
package dialect

import (
	"context"
	"database/sql"

	"github.com/dbsmedya/litemigrate/internal/schema"
)

// ErrorKind is the coarse classification of a target driver error.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindAlreadyExists
	KindDuplicateConstraint
	KindIntegrity
	KindRetryable
)

func (k ErrorKind) String() string {
	switch k {
	case KindAlreadyExists:
		return "already_exists"
	case KindDuplicateConstraint:
		return "duplicate_constraint"
	case KindIntegrity:
		return "integrity"
	case KindRetryable:
		return "retryable"
	default:
		return "other"
	}
}

// Querier is the subset of *sql.DB, *sql.Conn and *sql.Tx that dialects need.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Dialect abstracts target-specific SQL.
type Dialect interface {
	// Name is the database/sql driver name.
	Name() string

	// Identifiers and placeholders
	QuoteIdentifier(name string) string
	Table(name string) string
	Placeholder(index int) string

	// DDL
	MapType(col schema.ColumnSpec) string
	CreateTableSQL(def *schema.TableDefinition) (string, error)
	AddForeignKeySQL(table, constraintName string, fk schema.ForeignKeyRef) string

	// DML
	InsertSQL(table string, cols []string) string
	CountSQL(table string) string

	// Catalog. TableExistsQuery returns a single COUNT; ColumnTypesQuery
	// returns (column_name, data_type, column_type) rows.
	TableExistsQuery(table string) (string, []interface{})
	ColumnTypesQuery(table string) (string, []interface{})
	IsBooleanType(dataType, columnType string) bool

	// ResetSequence moves the counter behind column so the next generated
	// value is MAX(column)+1, or 1 for an empty table. It returns that value.
	ResetSequence(ctx context.Context, q Querier, table, column string) (int64, error)

	// Session-level advisory lock. Both queries return 1, 0 or NULL.
	AcquireLockQuery(name string, timeoutSeconds int) (string, []interface{})
	ReleaseLockQuery(name string) (string, []interface{})

	Classify(err error) ErrorKind
}
