package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/litemigrate/internal/database"
	"github.com/dbsmedya/litemigrate/internal/dialect"
	"github.com/dbsmedya/litemigrate/internal/migrator"
	"github.com/dbsmedya/litemigrate/internal/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and run preflight checks",
	Long: `Validate checks the configuration file and makes sure a migration
can start.

Checks performed:
  - Configuration syntax and required fields
  - Database connectivity (source and target)
  - Source schema readability
  - CREATE TABLE translation of every selected table

Example:
  litemigrate validate --config litemigrate.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting validation checks...")
	out := cmd.OutOrStdout()

	d, err := dialect.GetDialect(cfg.Target.Driver, cfg.Target.Schema)
	if err != nil {
		return err
	}

	ctx := context.Background()
	dbManager := database.NewManager(cfg)
	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to databases: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Ping(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	fmt.Fprintf(out, "\n=== Configuration Validation ===\n")
	fmt.Fprintf(out, "Config file: %s\n", GetConfigFile())
	fmt.Fprintf(out, "Source:      %s\n", cfg.Source.Path)
	fmt.Fprintf(out, "Target:      %s (%s)\n\n", d.Name(), database.TargetName(&cfg.Target))

	reader, err := schema.NewReader(dbManager.Source)
	if err != nil {
		return err
	}
	raw, err := reader.ReadTables(ctx)
	if err != nil {
		return &migrator.SchemaReadError{Err: err}
	}

	selected, failed := 0, 0
	for _, rt := range raw {
		if !cfg.TableSelected(rt.Name) {
			continue
		}
		selected++
		if _, err := migrator.Translate(rt, d); err != nil {
			fmt.Fprintf(out, "❌ %v\n", err)
			failed++
		}
	}
	fmt.Fprintf(out, "Tables selected: %d of %d\n", selected, len(raw))

	if failed > 0 {
		return fmt.Errorf("%d table(s) cannot be translated", failed)
	}

	fmt.Fprintln(out, "=== Validation Complete ===")
	fmt.Fprintln(out, "✅ Configuration and connections are valid")
	return nil
}
