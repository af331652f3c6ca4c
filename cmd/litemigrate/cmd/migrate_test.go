package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/litemigrate/internal/config"
	"github.com/dbsmedya/litemigrate/internal/lock"
)

func TestMigrateCommandStructure(t *testing.T) {
	assert.NotNil(t, migrateCmd)
	assert.Equal(t, "migrate", migrateCmd.Use)
	assert.NotEmpty(t, migrateCmd.Short)
	assert.NotEmpty(t, migrateCmd.Long)
	assert.NotNil(t, migrateCmd.RunE)
	assert.Contains(t, migrateCmd.Long, "litemigrate migrate")
}

func TestMigrateCommandFlags(t *testing.T) {
	flags := migrateCmd.Flags()

	force := flags.Lookup("force")
	require.NotNil(t, force)
	assert.Equal(t, "false", force.DefValue)

	progress := flags.Lookup("progress")
	require.NotNil(t, progress)
	assert.Equal(t, "false", progress.DefValue)
}

func TestLockTimeout(t *testing.T) {
	cfg := config.DefaultConfig()

	cfg.Safety.LockTimeoutSeconds = 10
	assert.Equal(t, 10, lockTimeout(cfg))

	cfg.Safety.LockTimeoutSeconds = 0
	assert.Equal(t, lock.TimeoutShort, lockTimeout(cfg))
}

func TestRunMigrate_InvalidConfig(t *testing.T) {
	resetFlags(t)
	t.Setenv("DATABASE_URL", "")
	cfgFile = ""

	err := runMigrate(migrateCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
