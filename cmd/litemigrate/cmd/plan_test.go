package cmd

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dbsmedya/litemigrate/internal/config"
	"github.com/dbsmedya/litemigrate/internal/dialect"
)

// newShopDB creates a SQLite file with a users/orders pair, a cycle between
// teams and members, and a dangling reference.
func newShopDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, email TEXT NOT NULL, is_active BOOLEAN DEFAULT 1)`,
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, user_id INTEGER NOT NULL REFERENCES users(id), coupon_id INTEGER REFERENCES coupons(id))`,
		`CREATE TABLE teams (id INTEGER PRIMARY KEY, captain_id INTEGER REFERENCES members(id))`,
		`CREATE TABLE members (id INTEGER PRIMARY KEY, team_id INTEGER REFERENCES teams(id))`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return path
}

func openShopDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPlanCommandStructure(t *testing.T) {
	assert.NotNil(t, planCmd)
	assert.Equal(t, "plan", planCmd.Use)
	assert.NotEmpty(t, planCmd.Short)
	assert.NotEmpty(t, planCmd.Long)
	assert.NotNil(t, planCmd.RunE)
	assert.Contains(t, planCmd.Long, "Example:")

	format := planCmd.Flags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "f", format.Shorthand)
	assert.Equal(t, "text", format.DefValue)
}

func TestBuildPlan(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Source.Path = newShopDB(t)
	source := openShopDB(t, cfg.Source.Path)

	doc, err := buildPlan(context.Background(), cfg, source, dialect.NewPostgres("public"))
	require.NoError(t, err)

	names := make([]string, len(doc.Tables))
	for i, tbl := range doc.Tables {
		names[i] = tbl.Name
	}
	assert.Equal(t, []string{"members", "orders", "teams", "users"}, names)
	assert.Equal(t, "postgres", doc.Target)

	orders := doc.Tables[1]
	assert.Contains(t, orders.DDL, `CREATE TABLE "public"."orders"`)
	require.Len(t, orders.ForeignKeys, 2)
	assert.Equal(t, "fk_orders_1", orders.ForeignKeys[0].Name)
	assert.Equal(t, "users", orders.ForeignKeys[0].References)
	assert.Contains(t, orders.ForeignKeys[0].SQL, `ADD CONSTRAINT "fk_orders_1"`)

	users := doc.Tables[3]
	assert.Equal(t, "id", users.SequenceColumn)
	assert.Contains(t, users.DDL, `"id" SERIAL PRIMARY KEY`)

	require.Len(t, doc.Cycles, 1)
	assert.Subset(t, doc.Cycles[0], []string{"members", "teams"})
	assert.Empty(t, doc.DependencyOrder)
	assert.Equal(t, []string{"orders -> coupons"}, doc.MissingReferences)
}

func TestBuildPlan_TableFilter(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Source.Path = newShopDB(t)
	cfg.Processing.IncludeTables = []string{"users", "orders"}
	source := openShopDB(t, cfg.Source.Path)

	doc, err := buildPlan(context.Background(), cfg, source, &dialect.MysqlDialect{})
	require.NoError(t, err)

	require.Len(t, doc.Tables, 2)
	assert.Equal(t, "mysql", doc.Target)
	assert.Equal(t, []string{"users", "orders"}, doc.DependencyOrder)
	assert.Empty(t, doc.Cycles)
	assert.Contains(t, doc.Tables[1].DDL, "AUTO_INCREMENT")
}

func TestWritePlanText(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Source.Path = newShopDB(t)
	source := openShopDB(t, cfg.Source.Path)

	doc, err := buildPlan(context.Background(), cfg, source, dialect.NewPostgres(""))
	require.NoError(t, err)

	var buf bytes.Buffer
	writePlanText(&buf, doc)
	out := buf.String()

	assert.Contains(t, out, "Migration Plan:")
	assert.Contains(t, out, "[users]")
	assert.Contains(t, out, "deferred: ALTER TABLE")
	assert.Contains(t, out, "sequence: id")
	assert.Contains(t, out, "cycle:")
	assert.Contains(t, out, "missing reference: orders -> coupons")
}

func TestWritePlanYAML(t *testing.T) {
	doc := &PlanDocument{
		Source: "app.db",
		Target: "postgres",
		Tables: []PlanTable{{
			Name:           "users",
			DDL:            `CREATE TABLE "public"."users" ("id" SERIAL PRIMARY KEY)`,
			SequenceColumn: "id",
		}},
		DependencyOrder: []string{"users"},
	}

	var buf bytes.Buffer
	require.NoError(t, writePlanYAML(&buf, doc))
	assert.Contains(t, buf.String(), "sequence_column: id")
	assert.NotContains(t, buf.String(), "cycles:")

	var decoded PlanDocument
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, *doc, decoded)
}

func TestRunPlan_ThroughRootCommand(t *testing.T) {
	resetFlags(t)
	t.Cleanup(func() { planFormat = "text" })

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	defer rootCmd.SetOut(nil)
	rootCmd.SetArgs([]string{"plan", "--config", "", "--source", newShopDB(t), "--format", "yaml"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())

	var decoded PlanDocument
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded.Tables, 4)
}

func TestRunPlan_UnsupportedFormat(t *testing.T) {
	t.Cleanup(func() { planFormat = "text" })
	planFormat = "xml"

	err := runPlan(planCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestBuildPlan_ResolvesReferencedPrimaryKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	for _, stmt := range []string{
		`CREATE TABLE accounts (id INTEGER PRIMARY KEY, owner_id INTEGER REFERENCES people)`,
		`CREATE TABLE people (pid INTEGER PRIMARY KEY, name TEXT)`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	cfg := config.DefaultConfig()
	cfg.Source.Path = path
	doc, err := buildPlan(context.Background(), cfg, openShopDB(t, path), dialect.NewPostgres("public"))
	require.NoError(t, err)

	require.Len(t, doc.Tables, 2)
	accounts := doc.Tables[0]
	require.Equal(t, "accounts", accounts.Name)
	require.Len(t, accounts.ForeignKeys, 1)
	assert.Equal(t,
		`ALTER TABLE "public"."accounts" ADD CONSTRAINT "fk_accounts_1" FOREIGN KEY ("owner_id") REFERENCES "public"."people" ("pid")`,
		accounts.ForeignKeys[0].SQL)
}
