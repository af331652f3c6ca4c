package migrator

import (
	"errors"
	"fmt"
)

// ErrMissingReferencedTable marks a foreign key whose referenced table was
// not discovered in the source.
var ErrMissingReferencedTable = errors.New("referenced table not found in source schema")

// ErrOrphanRow marks a row whose foreign key value has no matching row in
// the referenced source table.
var ErrOrphanRow = errors.New("referenced row not found in source")

// SchemaReadError means the source catalog could not be read. It is the only
// error that aborts a run.
type SchemaReadError struct {
	Err error
}

func (e *SchemaReadError) Error() string {
	return fmt.Sprintf("failed to read source schema: %v", e.Err)
}

func (e *SchemaReadError) Unwrap() error { return e.Err }

// DDLTranslationError means a table definition could not be parsed or
// rendered; the table is neither created nor copied.
type DDLTranslationError struct {
	Table string
	Err   error
}

func (e *DDLTranslationError) Error() string {
	return fmt.Sprintf("failed to translate table %q: %v", e.Table, e.Err)
}

func (e *DDLTranslationError) Unwrap() error { return e.Err }

// TableCreationError means the target table could not be created; its rows
// are not copied.
type TableCreationError struct {
	Table string
	Err   error
}

func (e *TableCreationError) Error() string {
	return fmt.Sprintf("failed to create table %q: %v", e.Table, e.Err)
}

func (e *TableCreationError) Unwrap() error { return e.Err }

// RowCoercionWarning records a value that could not be coerced to boolean
// and was passed to the insert unchanged.
type RowCoercionWarning struct {
	Table  string
	Column string
	Value  interface{}
}

func (e *RowCoercionWarning) Error() string {
	return fmt.Sprintf("table %q column %q: value %v is not a recognised boolean, inserting as is", e.Table, e.Column, e.Value)
}

// RowInsertError records one skipped row. Integrity is set for constraint
// violations such as duplicate keys or unsatisfied foreign keys.
type RowInsertError struct {
	Table     string
	Row       int64 // 1-based position in the source scan
	Integrity bool
	Err       error
}

func (e *RowInsertError) Error() string {
	kind := "insert failed"
	if e.Integrity {
		kind = "integrity violation"
	}
	return fmt.Sprintf("table %q row %d: %s: %v", e.Table, e.Row, kind, e.Err)
}

func (e *RowInsertError) Unwrap() error { return e.Err }

// ConstraintApplicationError records a foreign key that could not be added.
type ConstraintApplicationError struct {
	Table      string
	Constraint string
	Err        error
}

func (e *ConstraintApplicationError) Error() string {
	return fmt.Sprintf("failed to apply constraint %q on %q: %v", e.Constraint, e.Table, e.Err)
}

func (e *ConstraintApplicationError) Unwrap() error { return e.Err }

// SequenceResetError records a failed counter resynchronisation.
type SequenceResetError struct {
	Table  string
	Column string
	Err    error
}

func (e *SequenceResetError) Error() string {
	return fmt.Sprintf("failed to reset sequence for %q.%q: %v", e.Table, e.Column, e.Err)
}

func (e *SequenceResetError) Unwrap() error { return e.Err }
