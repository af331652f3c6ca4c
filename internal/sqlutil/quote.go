// Package sqlutil provides SQL identifier utilities for litemigrate.
package sqlutil

import (
	"strings"
)

// QuoteIdentifier quotes an identifier with ANSI double quotes (PostgreSQL, SQLite).
// It escapes any existing double quotes by doubling them.
// Example: "my_table" -> "\"my_table\""
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteBacktick quotes a MySQL identifier with backticks.
// It escapes any existing backticks by doubling them.
// Example: "my`table" -> "`my``table`"
func QuoteBacktick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Unquote strips one layer of SQLite identifier quoting: "x", `x`, [x] or 'x'.
// Doubled quote characters inside are collapsed. Bare names are returned trimmed.
func Unquote(name string) string {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return name
	}
	first, last := name[0], name[len(name)-1]
	switch {
	case first == '"' && last == '"':
		return strings.ReplaceAll(name[1:len(name)-1], `""`, `"`)
	case first == '`' && last == '`':
		return strings.ReplaceAll(name[1:len(name)-1], "``", "`")
	case first == '\'' && last == '\'':
		return strings.ReplaceAll(name[1:len(name)-1], "''", "'")
	case first == '[' && last == ']':
		return name[1 : len(name)-1]
	}
	return name
}

// SanitizeName maps any character outside [A-Za-z0-9_-] to an underscore.
// Used to derive lock and constraint names from arbitrary table names.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, name)
}
