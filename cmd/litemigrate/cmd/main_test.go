package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dbsmedya/litemigrate/internal/config"
)

func TestExecute(t *testing.T) {
	// Execute() calls os.Exit(1) on error, so only its presence is checked here.
	assert.NotNil(t, Execute)
}

func TestVersionVariables(t *testing.T) {
	assert.NotEmpty(t, Version, "Version should not be empty")
	assert.NotEmpty(t, Commit, "Commit should not be empty")
}

func TestCLIFlagsVariables(t *testing.T) {
	assert.Equal(t, config.DefaultConfigFile, cfgFile, "cfgFile should default to litemigrate.yaml")
	assert.Equal(t, "", logLevel)
	assert.Equal(t, "", logFormat)
	assert.Equal(t, "", sourcePath)
	assert.Equal(t, "", targetDSN)
	assert.Equal(t, "", targetDriver)
	assert.Equal(t, 0, workers)
	assert.Equal(t, false, skipVerify)
}

func TestCommandsAreAddedToRoot(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}

	for _, want := range []string{"migrate", "plan", "validate", "verify", "version"} {
		assert.True(t, names[want], "%s command should be added to root command", want)
	}
}
