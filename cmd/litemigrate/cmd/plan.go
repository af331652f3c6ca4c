package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dbsmedya/litemigrate/internal/config"
	"github.com/dbsmedya/litemigrate/internal/database"
	"github.com/dbsmedya/litemigrate/internal/dialect"
	"github.com/dbsmedya/litemigrate/internal/graph"
	"github.com/dbsmedya/litemigrate/internal/migrator"
	"github.com/dbsmedya/litemigrate/internal/schema"
)

var planFormat string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the migration plan without touching the target",
	Long: `Plan reads the SQLite schema and shows what migrate would do.
The target database is not contacted.

The plan shows:
  - Translated CREATE TABLE statements
  - Foreign keys, added after all rows are copied
  - Auto-increment columns whose sequences are reset
  - Dependency order and foreign key cycles

Example:
  litemigrate plan --source app.db --target-driver mysql --format yaml`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planFormat, "format", "f", "text",
		"Output format (text, yaml)")

	rootCmd.AddCommand(planCmd)
}

// PlanDocument is the machine readable plan.
type PlanDocument struct {
	Source            string      `yaml:"source"`
	Target            string      `yaml:"target"`
	Tables            []PlanTable `yaml:"tables"`
	DependencyOrder   []string    `yaml:"dependency_order,omitempty"`
	Cycles            [][]string  `yaml:"cycles,omitempty"`
	MissingReferences []string    `yaml:"missing_references,omitempty"`
}

// PlanTable is one source table in the plan.
type PlanTable struct {
	Name           string           `yaml:"name"`
	DDL            string           `yaml:"ddl,omitempty"`
	Error          string           `yaml:"error,omitempty"`
	ForeignKeys    []PlanForeignKey `yaml:"foreign_keys,omitempty"`
	SequenceColumn string           `yaml:"sequence_column,omitempty"`
}

// PlanForeignKey is a deferred constraint.
type PlanForeignKey struct {
	Name       string `yaml:"name"`
	References string `yaml:"references"`
	SQL        string `yaml:"sql"`
}

func runPlan(cmd *cobra.Command, args []string) error {
	if planFormat != "text" && planFormat != "yaml" {
		return fmt.Errorf("unsupported format %q (use text or yaml)", planFormat)
	}

	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	d, err := dialect.GetDialect(cfg.Target.Driver, cfg.Target.Schema)
	if err != nil {
		return err
	}

	ctx := context.Background()
	dbManager := database.NewManager(cfg)
	if err := dbManager.ConnectSource(ctx); err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer dbManager.Close()

	doc, err := buildPlan(ctx, cfg, dbManager.Source, d)
	if err != nil {
		return err
	}

	if planFormat == "yaml" {
		return writePlanYAML(cmd.OutOrStdout(), doc)
	}
	writePlanText(cmd.OutOrStdout(), doc)
	return nil
}

// buildPlan reads and translates the source schema.
func buildPlan(ctx context.Context, cfg *config.Config, source *sql.DB, d dialect.Dialect) (*PlanDocument, error) {
	reader, err := schema.NewReader(source)
	if err != nil {
		return nil, err
	}
	raw, err := reader.ReadTables(ctx)
	if err != nil {
		return nil, &migrator.SchemaReadError{Err: err}
	}

	doc := &PlanDocument{Source: cfg.Source.Path, Target: d.Name(), Tables: []PlanTable{}}
	var defs []*schema.TableDefinition
	byName := make(map[string]*schema.TableDefinition)
	for _, rt := range raw {
		if !cfg.TableSelected(rt.Name) {
			continue
		}

		pt := PlanTable{Name: rt.Name}
		t, err := migrator.Translate(rt, d)
		if err != nil {
			pt.Error = err.Error()
			doc.Tables = append(doc.Tables, pt)
			continue
		}

		defs = append(defs, t.Definition)
		byName[rt.Name] = t.Definition
		pt.DDL = t.DDL
		if col, ok := t.Definition.AutoIncrementColumn(); ok {
			pt.SequenceColumn = col.Name
		}
		doc.Tables = append(doc.Tables, pt)
	}

	// Foreign keys render once every definition is known, so references
	// without columns resolve to the same primary key migrate would use.
	for i := range doc.Tables {
		def, ok := byName[doc.Tables[i].Name]
		if !ok {
			continue
		}
		for j, fk := range def.ForeignKeys {
			name := migrator.ConstraintName(def.Name, j+1)
			doc.Tables[i].ForeignKeys = append(doc.Tables[i].ForeignKeys, PlanForeignKey{
				Name:       name,
				References: fk.ReferencedTable,
				SQL:        d.AddForeignKeySQL(def.Name, name, migrator.ResolveForeignKey(fk, byName)),
			})
		}
	}

	g := graph.Build(defs)
	if order, err := g.TopologicalSort(); err == nil {
		doc.DependencyOrder = order
	}
	if info := g.DetectIncompleteProcessing(); info != nil {
		doc.Cycles = append(doc.Cycles, info.CyclePath)
	}
	for _, missing := range g.Missing {
		doc.MissingReferences = append(doc.MissingReferences,
			fmt.Sprintf("%s -> %s", missing.To, missing.From))
	}

	return doc, nil
}

func writePlanYAML(w io.Writer, doc *PlanDocument) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	return enc.Close()
}

func writePlanText(w io.Writer, doc *PlanDocument) {
	printHeader(w, "Migration Plan: %s -> %s", doc.Source, doc.Target)

	for _, t := range doc.Tables {
		fmt.Fprintln(w)
		printSection(w, t.Name)
		if t.Error != "" {
			fmt.Fprintf(w, "  not migrated: %s\n", t.Error)
			continue
		}
		for _, line := range strings.Split(t.DDL, "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
		for _, fk := range t.ForeignKeys {
			fmt.Fprintf(w, "  deferred: %s\n", fk.SQL)
		}
		if t.SequenceColumn != "" {
			fmt.Fprintf(w, "  sequence: %s\n", t.SequenceColumn)
		}
	}

	fmt.Fprintln(w)
	printSection(w, "Dependency Order (referenced tables first)")
	if len(doc.DependencyOrder) == 0 {
		fmt.Fprintln(w, "  none (foreign key cycle, constraints are deferred)")
	}
	for i, table := range doc.DependencyOrder {
		fmt.Fprintf(w, "  [%d] %s\n", i+1, table)
	}

	for _, cycle := range doc.Cycles {
		fmt.Fprintf(w, "  cycle: %s\n", strings.Join(cycle, " -> "))
	}
	for _, missing := range doc.MissingReferences {
		fmt.Fprintf(w, "  missing reference: %s\n", missing)
	}
}

func printHeader(w io.Writer, format string, args ...interface{}) {
	title := fmt.Sprintf(format, args...)
	width := len(title) + 4
	fmt.Fprintln(w, strings.Repeat("=", width))
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, strings.Repeat("=", width))
}

func printSection(w io.Writer, title string) {
	fmt.Fprintf(w, "[%s]\n", title)
	fmt.Fprintln(w, strings.Repeat("-", len(title)+2))
}
