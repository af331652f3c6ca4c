package dialect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dbsmedya/litemigrate/internal/schema"
)

// GeneratePlaceholders returns count placeholders joined by ", ".
func GeneratePlaceholders(count int, placeholderFunc func(int) string) string {
	placeholders := make([]string, count)
	for i := 0; i < count; i++ {
		placeholders[i] = placeholderFunc(i)
	}
	return strings.Join(placeholders, ", ")
}

func quoteList(cols []string, quote func(string) string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
	}
	return strings.Join(quoted, ", ")
}

// datetimePattern matches the SQLite timestamp-without-timezone type names.
var datetimePattern = regexp.MustCompile(`(?i)^\s*DATETIME\s*$`)

// booleanDefaultPattern matches DEFAULT 0 / DEFAULT 1 (optionally quoted).
var booleanDefaultPattern = regexp.MustCompile(`(?i)\bDEFAULT\s+'?([01])'?(\s|$)`)

func isBooleanTypeName(t string) bool {
	t = strings.ToUpper(strings.TrimSpace(t))
	return t == "BOOLEAN" || t == "BOOL"
}

// createTable renders the shared CREATE TABLE shape. columnSQL renders one
// column including its inline PRIMARY KEY, if any.
func createTable(d Dialect, def *schema.TableDefinition, columnSQL func(schema.ColumnSpec, bool) string) (string, error) {
	if def == nil || len(def.Columns) == 0 {
		return "", fmt.Errorf("table definition has no columns")
	}

	inlinePK := len(def.PrimaryKey) == 0
	lines := make([]string, 0, len(def.Columns)+1+len(def.Constraints))
	for _, c := range def.Columns {
		lines = append(lines, "    "+columnSQL(c, inlinePK && c.IsPrimaryKey))
	}
	if len(def.PrimaryKey) > 0 {
		lines = append(lines, fmt.Sprintf("    PRIMARY KEY (%s)", quoteList(def.PrimaryKey, d.QuoteIdentifier)))
	}
	for _, c := range def.Constraints {
		lines = append(lines, "    "+c)
	}

	return fmt.Sprintf("CREATE TABLE %s (\n%s\n)", d.Table(def.Name), strings.Join(lines, ",\n")), nil
}

func addForeignKey(d Dialect, table, constraintName string, fk schema.ForeignKeyRef) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s",
		d.Table(table), d.QuoteIdentifier(constraintName),
		quoteList(fk.LocalColumns, d.QuoteIdentifier), d.Table(fk.ReferencedTable))
	if len(fk.ReferencedColumns) > 0 {
		fmt.Fprintf(&b, " (%s)", quoteList(fk.ReferencedColumns, d.QuoteIdentifier))
	}
	if fk.OnDelete != "" {
		b.WriteString(" ON DELETE " + fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		b.WriteString(" ON UPDATE " + fk.OnUpdate)
	}
	return b.String()
}

func joinNonEmpty(parts ...string) string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
