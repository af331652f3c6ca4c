// Package schema reads table definitions from the SQLite source and parses
// them into a structured model that target dialects render from.
package schema

// TableDefinition is the parsed form of one source table. It is built once by
// ParseTable and not modified afterwards.
type TableDefinition struct {
	Name          string
	RawDefinition string
	Columns       []ColumnSpec
	PrimaryKey    []string // table-level PRIMARY KEY (...) columns, empty when declared inline
	Constraints   []string // other table-level constraints (UNIQUE, CHECK), verbatim
	ForeignKeys   []ForeignKeyRef
}

// ColumnSpec describes one column of a source table.
type ColumnSpec struct {
	Name            string
	SourceType      string // declared type, empty for untyped SQLite columns
	Constraints     string // column constraints left after PRIMARY KEY, AUTOINCREMENT and REFERENCES are lifted out
	IsPrimaryKey    bool
	IsAutoIncrement bool
}

// ForeignKeyRef is a foreign key lifted out of a CREATE TABLE statement so it
// can be applied after the data load.
type ForeignKeyRef struct {
	LocalColumns      []string
	ReferencedTable   string
	ReferencedColumns []string // empty means the referenced table's primary key
	OnDelete          string
	OnUpdate          string
}

// RawTable is a table as listed by the source catalog.
type RawTable struct {
	Name          string
	RawDefinition string
}

// Column returns the column with the given name.
func (t *TableDefinition) Column(name string) (ColumnSpec, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSpec{}, false
}

// AutoIncrementColumn returns the auto-incrementing primary key column, if any.
func (t *TableDefinition) AutoIncrementColumn() (ColumnSpec, bool) {
	for _, c := range t.Columns {
		if c.IsAutoIncrement {
			return c, true
		}
	}
	return ColumnSpec{}, false
}

// ReferencedTables returns the distinct tables this table points at, in declaration order.
func (t *TableDefinition) ReferencedTables() []string {
	seen := make(map[string]bool)
	var out []string
	for _, fk := range t.ForeignKeys {
		if !seen[fk.ReferencedTable] {
			seen[fk.ReferencedTable] = true
			out = append(out, fk.ReferencedTable)
		}
	}
	return out
}
