package migrator

import (
	"github.com/dbsmedya/litemigrate/internal/dialect"
	"github.com/dbsmedya/litemigrate/internal/schema"
)

// TranslatedTable is a parsed source table together with its target DDL.
// Foreign keys are not part of DDL; they stay on Definition for the
// constraint stage.
type TranslatedTable struct {
	Definition *schema.TableDefinition
	DDL        string
}

// Name returns the table name.
func (t *TranslatedTable) Name() string {
	return t.Definition.Name
}

// Translate parses a raw SQLite definition and renders it for the target.
// Failures are returned as *DDLTranslationError.
func Translate(raw schema.RawTable, d dialect.Dialect) (*TranslatedTable, error) {
	def, err := schema.ParseTable(raw.Name, raw.RawDefinition)
	if err != nil {
		return nil, &DDLTranslationError{Table: raw.Name, Err: err}
	}

	ddl, err := d.CreateTableSQL(def)
	if err != nil {
		return nil, &DDLTranslationError{Table: raw.Name, Err: err}
	}

	return &TranslatedTable{Definition: def, DDL: ddl}, nil
}
