package migrator

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/litemigrate/internal/config"
	"github.com/dbsmedya/litemigrate/internal/dialect"
	"github.com/dbsmedya/litemigrate/internal/logger"
	"github.com/dbsmedya/litemigrate/internal/schema"
)

// newSQLiteSource creates a temporary SQLite file, runs stmts on it and
// returns a handle to it.
func newSQLiteSource(t *testing.T, stmts ...string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "source.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return db
}

func newTargetMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Target.DSN = "postgres://test"
	cfg.Processing.Workers = 1
	cfg.Verification.Enabled = false
	cfg.Processing.Progress = false
	return cfg
}

func pg() dialect.Dialect {
	return dialect.NewPostgres("public")
}

func nopLogger() *logger.Logger {
	return logger.NewNop()
}

func mustParse(t *testing.T, name, ddl string) *schema.TableDefinition {
	t.Helper()
	def, err := schema.ParseTable(name, ddl)
	require.NoError(t, err)
	return def
}

func columnRows(cols ...[3]string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"column_name", "data_type", "udt_name"})
	for _, c := range cols {
		rows.AddRow(c[0], c[1], c[2])
	}
	return rows
}

func countRows(n int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count"}).AddRow(n)
}

func sqliteQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
