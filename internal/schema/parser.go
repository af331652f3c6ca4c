package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dbsmedya/litemigrate/internal/sqlutil"
)

// ErrUnsupportedDefinition is returned for statements that are not a plain
// CREATE TABLE with a column list (for example CREATE TABLE ... AS SELECT).
var ErrUnsupportedDefinition = errors.New("unsupported table definition")

// columnConstraintKeywords end the type name of a column definition.
var columnConstraintKeywords = map[string]bool{
	"CONSTRAINT": true, "PRIMARY": true, "NOT": true, "NULL": true, "UNIQUE": true,
	"CHECK": true, "DEFAULT": true, "COLLATE": true, "REFERENCES": true,
	"GENERATED": true, "AS": true, "AUTOINCREMENT": true,
}

// ParseTable parses a SQLite CREATE TABLE statement into a TableDefinition.
// Foreign keys, whether declared as table constraints or inline REFERENCES
// clauses, are lifted into ForeignKeys and removed from the column text.
func ParseTable(name, raw string) (*TableDefinition, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty definition for table %q", ErrUnsupportedDefinition, name)
	}

	tokens, err := lex(raw)
	if err != nil {
		return nil, err
	}

	p := &parser{raw: raw, tokens: tokens}
	body, err := p.header()
	if err != nil {
		return nil, err
	}

	def := &TableDefinition{Name: name, RawDefinition: raw}
	for _, part := range splitTopLevel(body) {
		if len(part) == 0 {
			return nil, fmt.Errorf("empty column definition in table %q", name)
		}
		if err := p.definition(def, part); err != nil {
			return nil, fmt.Errorf("table %q: %w", name, err)
		}
	}

	if len(def.Columns) == 0 {
		return nil, fmt.Errorf("table %q has no columns", name)
	}

	if err := markPrimaryKey(def); err != nil {
		return nil, fmt.Errorf("table %q: %w", name, err)
	}

	return def, nil
}

type parser struct {
	raw    string
	tokens []token
}

// header consumes CREATE [TEMP] TABLE [IF NOT EXISTS] name ( ... ) and returns the body tokens.
func (p *parser) header() ([]token, error) {
	t := p.tokens
	i := 0
	if i >= len(t) || !t[i].is("CREATE") {
		return nil, fmt.Errorf("%w: expected CREATE", ErrUnsupportedDefinition)
	}
	i++
	if i < len(t) && (t[i].is("TEMP") || t[i].is("TEMPORARY")) {
		i++
	}
	if i >= len(t) || !t[i].is("TABLE") {
		return nil, fmt.Errorf("%w: expected TABLE", ErrUnsupportedDefinition)
	}
	i++
	if i+2 < len(t) && t[i].is("IF") && t[i+1].is("NOT") && t[i+2].is("EXISTS") {
		i += 3
	}
	// [schema .] name
	if i < len(t) && (t[i].kind == tokWord || t[i].kind == tokQuoted || t[i].kind == tokString) {
		i++
		if i+1 < len(t) && t[i].kind == tokDot {
			i += 2
		}
	} else {
		return nil, fmt.Errorf("%w: expected table name", ErrUnsupportedDefinition)
	}
	if i >= len(t) || t[i].kind != tokLParen {
		return nil, fmt.Errorf("%w: expected column list", ErrUnsupportedDefinition)
	}
	closing := matchParen(t, i)
	if closing < 0 {
		return nil, fmt.Errorf("unbalanced parentheses in table definition")
	}
	return t[i+1 : closing], nil
}

func (p *parser) slice(tokens []token) string {
	if len(tokens) == 0 {
		return ""
	}
	return p.raw[tokens[0].start:tokens[len(tokens)-1].end]
}

// definition dispatches one comma-separated entry of the column list.
func (p *parser) definition(def *TableDefinition, part []token) error {
	body := part
	if body[0].is("CONSTRAINT") {
		if len(body) < 3 {
			return fmt.Errorf("incomplete CONSTRAINT clause")
		}
		body = body[2:]
	}

	switch body[0].upper() {
	case "PRIMARY":
		cols, rest, err := p.keyColumns(body, 2)
		if err != nil {
			return fmt.Errorf("PRIMARY KEY: %w", err)
		}
		_ = rest // ON CONFLICT clause is SQLite specific
		def.PrimaryKey = cols
		return nil
	case "FOREIGN":
		cols, rest, err := p.keyColumns(body, 2)
		if err != nil {
			return fmt.Errorf("FOREIGN KEY: %w", err)
		}
		if len(rest) == 0 || !rest[0].is("REFERENCES") {
			return fmt.Errorf("FOREIGN KEY without REFERENCES")
		}
		fk, _, err := p.references(rest)
		if err != nil {
			return err
		}
		fk.LocalColumns = cols
		if len(fk.ReferencedColumns) > 0 && len(fk.ReferencedColumns) != len(fk.LocalColumns) {
			return fmt.Errorf("foreign key to %q has %d local and %d referenced columns",
				fk.ReferencedTable, len(fk.LocalColumns), len(fk.ReferencedColumns))
		}
		def.ForeignKeys = append(def.ForeignKeys, fk)
		return nil
	case "UNIQUE", "CHECK":
		def.Constraints = append(def.Constraints, p.slice(part))
		return nil
	}

	if part[0].is("CONSTRAINT") {
		return fmt.Errorf("unsupported table constraint %q", p.slice(part))
	}
	return p.column(def, part)
}

// keyColumns reads "KEYWORD KEY ( col [ASC|DESC|COLLATE x], ... )" starting after skip tokens.
func (p *parser) keyColumns(body []token, skip int) ([]string, []token, error) {
	if len(body) <= skip || body[skip].kind != tokLParen {
		return nil, nil, fmt.Errorf("expected column list")
	}
	closing := matchParen(body, skip)
	if closing < 0 {
		return nil, nil, fmt.Errorf("unbalanced parentheses")
	}
	cols := identList(body[skip+1 : closing])
	if len(cols) == 0 {
		return nil, nil, fmt.Errorf("empty column list")
	}
	return cols, body[closing+1:], nil
}

// identList returns the leading identifier of each comma-separated item.
func identList(tokens []token) []string {
	var cols []string
	for _, item := range splitTopLevel(tokens) {
		if len(item) == 0 {
			continue
		}
		cols = append(cols, sqlutil.Unquote(item[0].text))
	}
	return cols
}

// references parses "REFERENCES table [(cols)] [actions...]" and returns the
// foreign key and the number of tokens consumed.
func (p *parser) references(t []token) (ForeignKeyRef, int, error) {
	var fk ForeignKeyRef
	i := 1
	if i >= len(t) {
		return fk, 0, fmt.Errorf("REFERENCES without table")
	}
	fk.ReferencedTable = sqlutil.Unquote(t[i].text)
	i++
	if i+1 < len(t) && t[i].kind == tokDot {
		fk.ReferencedTable = sqlutil.Unquote(t[i+1].text)
		i += 2
	}
	if i < len(t) && t[i].kind == tokLParen {
		closing := matchParen(t, i)
		if closing < 0 {
			return fk, 0, fmt.Errorf("unbalanced parentheses in REFERENCES")
		}
		fk.ReferencedColumns = identList(t[i+1 : closing])
		i = closing + 1
	}

	for i < len(t) {
		switch {
		case t[i].is("ON") && i+1 < len(t):
			event := t[i+1].upper()
			action, n := referentialAction(t[i+2:])
			if n == 0 {
				return fk, 0, fmt.Errorf("invalid ON %s action", event)
			}
			switch event {
			case "DELETE":
				fk.OnDelete = action
			case "UPDATE":
				fk.OnUpdate = action
			}
			i += 2 + n
		case t[i].is("MATCH") && i+1 < len(t):
			i += 2
		case t[i].is("NOT") && i+1 < len(t) && t[i+1].is("DEFERRABLE"):
			i += 2
		case t[i].is("DEFERRABLE"):
			i++
		case t[i].is("INITIALLY") && i+1 < len(t):
			i += 2
		default:
			return fk, i, nil
		}
	}
	return fk, i, nil
}

func referentialAction(t []token) (string, int) {
	if len(t) == 0 {
		return "", 0
	}
	switch t[0].upper() {
	case "CASCADE", "RESTRICT":
		return t[0].upper(), 1
	case "SET":
		if len(t) > 1 && (t[1].is("NULL") || t[1].is("DEFAULT")) {
			return "SET " + t[1].upper(), 2
		}
	case "NO":
		if len(t) > 1 && t[1].is("ACTION") {
			return "NO ACTION", 2
		}
	}
	return "", 0
}

// column parses "name [type] [constraints...]".
func (p *parser) column(def *TableDefinition, part []token) error {
	col := ColumnSpec{Name: sqlutil.Unquote(part[0].text)}

	// Type name: words up to the first constraint keyword, plus an optional (n[, m]).
	i := 1
	for i < len(part) && part[i].kind == tokWord && !columnConstraintKeywords[part[i].upper()] {
		i++
	}
	if i > 1 && i < len(part) && part[i].kind == tokLParen {
		closing := matchParen(part, i)
		if closing < 0 {
			return fmt.Errorf("column %q: unbalanced type parentheses", col.Name)
		}
		i = closing + 1
	}
	col.SourceType = p.slice(part[1:i])

	// Constraints: keep runs of tokens that are not lifted out.
	var kept []string
	runStart := -1
	flush := func(end int) {
		if runStart >= 0 {
			kept = append(kept, p.slice(part[runStart:end]))
			runStart = -1
		}
	}

	for i < len(part) {
		t := part[i]
		switch {
		case t.is("CONSTRAINT") && i+2 < len(part) && (part[i+2].is("PRIMARY") || part[i+2].is("REFERENCES")):
			flush(i)
			i += 2
		case t.is("PRIMARY") && i+1 < len(part) && part[i+1].is("KEY"):
			flush(i)
			col.IsPrimaryKey = true
			i += 2
			if i < len(part) && (part[i].is("ASC") || part[i].is("DESC")) {
				i++
			}
			if i+2 < len(part) && part[i].is("ON") && part[i+1].is("CONFLICT") {
				i += 3
			}
		case t.is("AUTOINCREMENT"):
			flush(i)
			i++
		case t.is("REFERENCES"):
			flush(i)
			fk, n, err := p.references(part[i:])
			if err != nil {
				return fmt.Errorf("column %q: %w", col.Name, err)
			}
			fk.LocalColumns = []string{col.Name}
			if len(fk.ReferencedColumns) > 1 {
				return fmt.Errorf("column %q references %d columns", col.Name, len(fk.ReferencedColumns))
			}
			def.ForeignKeys = append(def.ForeignKeys, fk)
			i += n
		case t.kind == tokLParen:
			// keep parenthesised expressions (DEFAULT (...), CHECK (...)) whole
			if runStart < 0 {
				runStart = i
			}
			closing := matchParen(part, i)
			if closing < 0 {
				return fmt.Errorf("column %q: unbalanced parentheses", col.Name)
			}
			i = closing + 1
		default:
			if runStart < 0 {
				runStart = i
			}
			i++
		}
	}
	flush(len(part))
	col.Constraints = strings.Join(kept, " ")

	def.Columns = append(def.Columns, col)
	return nil
}

// markPrimaryKey applies a table-level PRIMARY KEY clause to the columns and
// decides which column, if any, is an auto-incrementing key. In SQLite only a
// column declared exactly INTEGER and used alone as the primary key is a rowid
// alias, which is what auto-increments.
func markPrimaryKey(def *TableDefinition) error {
	inline := 0
	for _, c := range def.Columns {
		if c.IsPrimaryKey {
			inline++
		}
	}
	if inline > 1 {
		return fmt.Errorf("more than one column declared PRIMARY KEY")
	}
	if inline > 0 && len(def.PrimaryKey) > 0 {
		return fmt.Errorf("primary key declared both inline and as a table constraint")
	}

	for _, pk := range def.PrimaryKey {
		found := false
		for i := range def.Columns {
			if def.Columns[i].Name == pk {
				def.Columns[i].IsPrimaryKey = true
				found = true
			}
		}
		if !found {
			return fmt.Errorf("primary key column %q is not defined", pk)
		}
	}

	if inline+len(def.PrimaryKey) != 1 {
		return nil
	}
	for i := range def.Columns {
		c := &def.Columns[i]
		if c.IsPrimaryKey && strings.EqualFold(strings.TrimSpace(c.SourceType), "INTEGER") {
			c.IsAutoIncrement = true
		}
	}
	return nil
}
