package migrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/litemigrate/internal/schema"
)

func TestTranslate(t *testing.T) {
	tt, err := Translate(schema.RawTable{
		Name: "orders",
		RawDefinition: `CREATE TABLE orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			placed_at DATETIME,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
	}, pg())
	require.NoError(t, err)

	assert.Equal(t, "orders", tt.Name())
	assert.Contains(t, tt.DDL, `CREATE TABLE "public"."orders"`)
	assert.Contains(t, tt.DDL, `"id" SERIAL PRIMARY KEY`)
	assert.Contains(t, tt.DDL, `"placed_at" TIMESTAMP`)
	assert.NotContains(t, tt.DDL, "FOREIGN KEY")
	assert.NotContains(t, tt.DDL, "AUTOINCREMENT")
	require.Len(t, tt.Definition.ForeignKeys, 1)
	assert.Equal(t, "users", tt.Definition.ForeignKeys[0].ReferencedTable)
}

func TestTranslate_Unparseable(t *testing.T) {
	_, err := Translate(schema.RawTable{Name: "broken", RawDefinition: "CREATE TABLE broken (id INTEGER"}, pg())
	require.Error(t, err)

	var translationErr *DDLTranslationError
	require.True(t, errors.As(err, &translationErr))
	assert.Equal(t, "broken", translationErr.Table)
}
