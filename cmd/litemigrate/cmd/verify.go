package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/litemigrate/internal/database"
	"github.com/dbsmedya/litemigrate/internal/dialect"
	"github.com/dbsmedya/litemigrate/internal/schema"
	"github.com/dbsmedya/litemigrate/internal/verifier"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Compare row counts between source and target",
	Long: `Verify counts the rows of every selected table on both sides and
reports the tables whose counts differ. Rows skipped during migrate show up
here as a lower target count.

Example:
  litemigrate verify --config litemigrate.yaml`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	d, err := dialect.GetDialect(cfg.Target.Driver, cfg.Target.Schema)
	if err != nil {
		return err
	}

	ctx, stop := database.SetupSignalHandler(context.Background(), nil)
	defer stop()

	dbManager := database.NewManager(cfg)
	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to databases: %w", err)
	}
	defer dbManager.Close()

	reader, err := schema.NewReader(dbManager.Source)
	if err != nil {
		return err
	}
	raw, err := reader.ReadTables(ctx)
	if err != nil {
		return fmt.Errorf("failed to read source schema: %w", err)
	}
	var tables []string
	for _, rt := range raw {
		if cfg.TableSelected(rt.Name) {
			tables = append(tables, rt.Name)
		}
	}

	v, err := verifier.NewVerifier(dbManager.Source, dbManager.Target, d, log)
	if err != nil {
		return err
	}
	stats, err := v.Verify(ctx, tables)
	if stats != nil {
		printVerifyStats(cmd, stats)
	}
	if err != nil {
		return err
	}
	if stats.TablesFailed > 0 {
		return fmt.Errorf("verification failed for %d table(s)", stats.TablesFailed)
	}
	return nil
}

func printVerifyStats(cmd *cobra.Command, stats *verifier.VerifyStats) {
	cmd.Printf("\n=== Verification ===\n")
	for _, res := range stats.Results {
		switch {
		case res.ErrorMessage != "":
			cmd.Printf("  ❌ %s: %s\n", res.Table, res.ErrorMessage)
		case !res.Match:
			cmd.Printf("  ❌ %s: source %d, target %d\n", res.Table, res.SourceCount, res.TargetCount)
		default:
			cmd.Printf("  ✅ %s: %d rows\n", res.Table, res.SourceCount)
		}
	}
	cmd.Printf("Tables verified: %d, passed: %d, failed: %d, rows: %d\n",
		stats.TablesVerified, stats.TablesPassed, stats.TablesFailed, stats.TotalRows)
}
