// Package migrator moves a SQLite schema and its rows into a PostgreSQL or
// MySQL target: tables are created first, rows copied next, foreign keys
// added afterwards and auto-increment counters resynchronised last.
package migrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/dbsmedya/litemigrate/internal/config"
	"github.com/dbsmedya/litemigrate/internal/dialect"
	"github.com/dbsmedya/litemigrate/internal/graph"
	"github.com/dbsmedya/litemigrate/internal/logger"
	"github.com/dbsmedya/litemigrate/internal/schema"
	"github.com/dbsmedya/litemigrate/internal/verifier"
)

// Stage names one step of a run.
type Stage string

const (
	StageSchemaRead  Stage = "schema_read"
	StageTranslate   Stage = "translate"
	StageMaterialize Stage = "materialize"
	StageCopy        Stage = "copy"
	StageConstraints Stage = "constraints"
	StageSequences   Stage = "sequences"
	StageVerify      Stage = "verify"
)

// Hooks observe per-table work. They are called from worker goroutines and
// must be safe for concurrent use.
type Hooks struct {
	BeforeTable func(stage Stage, table string)
	AfterTable  func(stage Stage, table string)
}

// Orchestrator runs the migration stages in order, with a barrier between
// stages and a bounded pool of workers within each.
type Orchestrator struct {
	source  *sql.DB
	target  *sql.DB
	dialect dialect.Dialect
	config  *config.Config
	logger  *logger.Logger
	hooks   Hooks
}

// NewOrchestrator creates an orchestrator over open source and target handles.
func NewOrchestrator(cfg *config.Config, source, target *sql.DB, d dialect.Dialect, log *logger.Logger) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if source == nil {
		return nil, fmt.Errorf("source database is nil")
	}
	if target == nil {
		return nil, fmt.Errorf("target database is nil")
	}
	if d == nil {
		return nil, fmt.Errorf("dialect is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}

	return &Orchestrator{
		source:  source,
		target:  target,
		dialect: d,
		config:  cfg,
		logger:  log,
	}, nil
}

// SetHooks installs stage observers.
func (o *Orchestrator) SetHooks(h Hooks) {
	o.hooks = h
}

// Plan reads and translates the source schema without touching the target.
// It returns the translated tables, the report holding translation
// failures, and the names of every discovered table.
func (o *Orchestrator) Plan(ctx context.Context) ([]*TranslatedTable, *Report, []string, error) {
	report := NewReport(o.dialect.Name())

	reader, err := schema.NewReader(o.source)
	if err != nil {
		return nil, nil, nil, &SchemaReadError{Err: err}
	}
	raw, err := reader.ReadTables(ctx)
	if err != nil {
		return nil, nil, nil, &SchemaReadError{Err: err}
	}

	discovered := make([]string, 0, len(raw))
	var tables []*TranslatedTable
	for _, rt := range raw {
		discovered = append(discovered, rt.Name)
		if !o.config.TableSelected(rt.Name) {
			o.logger.Debugw("Table filtered out", "table", rt.Name)
			continue
		}

		rec := report.Record(rt.Name)
		t, err := Translate(rt, o.dialect)
		if err != nil {
			rec.State = StateTranslateFailed
			rec.AddError(err)
			o.logger.Warnw("Translation failed", "table", rt.Name, "error", err)
			continue
		}
		tables = append(tables, t)
	}

	return tables, report, discovered, nil
}

// Run executes a full migration. Only a failure to read the source schema
// is returned as an error on its own; every other failure is recorded in
// the report. If ctx is cancelled the remaining work is skipped and the
// report is returned together with the context error.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	o.logger.Infow("Starting migration", "target", o.dialect.Name(), "workers", o.config.EffectiveWorkers())

	tables, report, discovered, err := o.Plan(ctx)
	if err != nil {
		o.logger.Errorw("Schema read failed", "error", err)
		return nil, err
	}

	defs := make([]*schema.TableDefinition, len(tables))
	for i, t := range tables {
		defs[i] = t.Definition
	}
	report.Cycles = o.logDependencies(defs)

	// Materialize
	o.runStage(ctx, report, StageMaterialize, each(tables), func(ctx context.Context, t *TranslatedTable) {
		m, _ := NewMaterializer(o.target, o.dialect, o.logger.WithStage(string(StageMaterialize)))
		rec := report.Record(t.Name())
		state, err := m.Materialize(ctx, t.Name(), t.DDL)
		rec.State = state
		if err != nil {
			rec.AddError(err)
		}
	})

	// Copy rows
	progress := NewProgress(o.config.Processing.Progress)
	copier, _ := NewCopier(o.source, o.target, o.dialect, o.logger.WithStage(string(StageCopy)), progress)
	copier.SetDefinitions(defs)
	o.runStage(ctx, report, StageCopy, each(o.materialized(report, tables)), func(ctx context.Context, t *TranslatedTable) {
		rec := report.Record(t.Name())
		if err := copier.CopyTable(ctx, t.Name(), rec); err != nil {
			rec.State = StateCopyInterrupted
			rec.AddError(err)
			return
		}
		rec.State = StateCopied
	})
	progress.Stop()

	// Foreign keys, after every table holds its rows
	applier, _ := NewConstraintApplier(o.target, o.dialect, o.logger.WithStage(string(StageConstraints)), discovered, defs)
	o.runStage(ctx, report, StageConstraints, constraintGroups(defs, tables), func(ctx context.Context, t *TranslatedTable) {
		applier.Apply(ctx, t.Definition, report.Record(t.Name()))
	})

	// Sequences
	resyncer, _ := NewSequenceResyncer(o.target, o.dialect, o.logger.WithStage(string(StageSequences)))
	var withSeq []*TranslatedTable
	for _, t := range o.materialized(report, tables) {
		if _, ok := t.Definition.AutoIncrementColumn(); ok {
			withSeq = append(withSeq, t)
		}
	}
	o.runStage(ctx, report, StageSequences, each(withSeq), func(ctx context.Context, t *TranslatedTable) {
		rec := report.Record(t.Name())
		if err := resyncer.Resync(ctx, t.Definition, rec); err != nil {
			rec.AddError(err)
		}
	})

	if o.config.Verification.Enabled && ctx.Err() == nil {
		o.verify(ctx, report, o.materialized(report, tables))
	}

	report.CompletedAt = time.Now()
	totals := report.Totals()
	o.logger.Infow("Migration finished",
		"tables", report.Records.Len(),
		"rows_inserted", totals.RowsInserted,
		"rows_skipped", totals.RowsSkipped,
		"constraints_applied", totals.ConstraintsApplied,
		"constraints_failed", totals.ConstraintsFailed,
		"duration", report.Duration(),
	)

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("migration interrupted: %w", err)
	}
	return report, nil
}

// runStage processes groups with at most EffectiveWorkers goroutines and
// returns only when all of them are done. Tables within a group run one
// after another. With stage_timeout_seconds set, the stage runs under its
// own deadline.
func (o *Orchestrator) runStage(ctx context.Context, report *Report, stage Stage, groups [][]*TranslatedTable, fn func(context.Context, *TranslatedTable)) {
	count := 0
	for _, g := range groups {
		count += len(g)
	}
	if count == 0 {
		return
	}
	if timeout := o.config.Processing.StageTimeoutSeconds; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()
	}

	log := o.logger.WithStage(string(stage))
	log.Infow("Stage started", "tables", count, "groups", len(groups))
	start := time.Now()

	p := pool.New().WithMaxGoroutines(o.config.EffectiveWorkers())
	for _, group := range groups {
		p.Go(func() {
			for _, t := range group {
				if err := ctx.Err(); err != nil {
					log.Warnw("Skipping table", "table", t.Name(), "error", err)
					report.Record(t.Name()).AddError(fmt.Errorf("%s skipped: %w", stage, err))
					continue
				}
				if o.hooks.BeforeTable != nil {
					o.hooks.BeforeTable(stage, t.Name())
				}
				fn(ctx, t)
				if o.hooks.AfterTable != nil {
					o.hooks.AfterTable(stage, t.Name())
				}
			}
		})
	}
	p.Wait()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		log.Warnw("Stage deadline exceeded", "timeout_seconds", o.config.Processing.StageTimeoutSeconds)
	}
	log.Infow("Stage finished", "duration", time.Since(start))
}

// each puts every table in a group of its own.
func each(tables []*TranslatedTable) [][]*TranslatedTable {
	groups := make([][]*TranslatedTable, len(tables))
	for i, t := range tables {
		groups[i] = []*TranslatedTable{t}
	}
	return groups
}

// constraintGroups groups the tables holding foreign keys by connected
// component of the dependency graph. An ALTER adding a foreign key locks
// both the table and the one it references, so tables sharing a component
// must not be altered concurrently.
func constraintGroups(defs []*schema.TableDefinition, tables []*TranslatedTable) [][]*TranslatedTable {
	byName := make(map[string]*TranslatedTable, len(tables))
	for _, t := range tables {
		if len(t.Definition.ForeignKeys) > 0 {
			byName[t.Name()] = t
		}
	}

	var groups [][]*TranslatedTable
	for _, component := range graph.Build(defs).Components() {
		var group []*TranslatedTable
		for _, name := range component {
			if t, ok := byName[name]; ok {
				group = append(group, t)
			}
		}
		if len(group) > 0 {
			groups = append(groups, group)
		}
	}
	return groups
}

// materialized returns the tables that exist on the target.
func (o *Orchestrator) materialized(report *Report, tables []*TranslatedTable) []*TranslatedTable {
	var out []*TranslatedTable
	for _, t := range tables {
		if report.Record(t.Name()).Materialized() {
			out = append(out, t)
		}
	}
	return out
}

// logDependencies reports foreign key cycles and dangling references. Cycles
// need no special handling since constraints are added after the data load.
func (o *Orchestrator) logDependencies(defs []*schema.TableDefinition) [][]string {
	g := graph.Build(defs)

	for _, missing := range g.Missing {
		o.logger.Warnw("Foreign key references a table that is not migrated",
			"table", missing.To, "references", missing.From)
	}

	info := g.DetectIncompleteProcessing()
	if info == nil {
		return nil
	}
	o.logger.Infow("Foreign key cycle detected, constraints are deferred until all rows are copied",
		"cycle", info.CyclePath, "tables", info.CycleParticipants)
	return [][]string{info.CyclePath}
}

// verify compares row counts and records the target counts.
func (o *Orchestrator) verify(ctx context.Context, report *Report, tables []*TranslatedTable) {
	v, err := verifier.NewVerifier(o.source, o.target, o.dialect, o.logger.WithStage(string(StageVerify)))
	if err != nil {
		o.logger.Warnw("Verification unavailable", "error", err)
		return
	}

	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name()
	}
	stats, err := v.Verify(ctx, names)
	if err != nil {
		o.logger.Warnw("Verification interrupted", "error", err)
	}
	if stats == nil {
		return
	}
	for _, res := range stats.Results {
		rec := report.Record(res.Table)
		rec.TargetRows = res.TargetCount
		rec.VerifyFailed = !res.Match
	}
}
