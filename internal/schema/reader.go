package schema

import (
	"context"
	"database/sql"
	"fmt"
)

// listTablesQuery lists user tables; sqlite_ internal tables are excluded.
const listTablesQuery = `SELECT name, sql FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
ORDER BY name`

// Reader lists table definitions from a SQLite catalog.
type Reader struct {
	db *sql.DB
}

// NewReader creates a Reader over an open SQLite handle.
func NewReader(db *sql.DB) (*Reader, error) {
	if db == nil {
		return nil, fmt.Errorf("source database is nil")
	}
	return &Reader{db: db}, nil
}

// ReadTables returns every user table with its CREATE TABLE statement, ordered by name.
// A source with no user tables yields an empty slice and no error.
func (r *Reader) ReadTables(ctx context.Context) ([]RawTable, error) {
	rows, err := r.db.QueryContext(ctx, listTablesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query sqlite_master: %w", err)
	}
	defer rows.Close()

	tables := []RawTable{}
	for rows.Next() {
		var name string
		var ddl sql.NullString
		if err := rows.Scan(&name, &ddl); err != nil {
			return nil, fmt.Errorf("failed to scan table entry: %w", err)
		}
		tables = append(tables, RawTable{Name: name, RawDefinition: ddl.String})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sqlite_master: %w", err)
	}
	return tables, nil
}
