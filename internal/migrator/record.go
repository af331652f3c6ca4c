package migrator

import (
	"time"

	"github.com/elliotchance/orderedmap/v2"
)

// TableState is how far a table got through the run.
type TableState string

const (
	StatePending         TableState = "pending"
	StateTranslateFailed TableState = "translate_failed"
	StateCreated         TableState = "created"
	StateExisted         TableState = "existed"
	StateCreateFailed    TableState = "create_failed"
	StateCopied          TableState = "copied"
	StateCopyInterrupted TableState = "copy_interrupted"
)

// MigrationRecord holds the counters of one table for the run summary.
// Within a stage only the worker handling the table writes to it.
type MigrationRecord struct {
	Table              string
	State              TableState
	RowsRead           int64
	RowsInserted       int64
	RowsSkipped        int64
	CoercionWarnings   int64
	ConstraintsApplied int
	ConstraintsFailed  int
	NextSequenceValue  int64 // 0 when the table has no auto-increment key or the reset failed
	TargetRows         int64 // set by verification, -1 when not verified
	VerifyFailed       bool
	Errors             []error
}

func newRecord(table string) *MigrationRecord {
	return &MigrationRecord{Table: table, State: StatePending, TargetRows: -1}
}

// AddError appends a non-fatal error.
func (r *MigrationRecord) AddError(err error) {
	r.Errors = append(r.Errors, err)
}

// Materialized reports whether the table exists on the target.
func (r *MigrationRecord) Materialized() bool {
	switch r.State {
	case StateCreated, StateExisted, StateCopied, StateCopyInterrupted:
		return true
	}
	return false
}

// Healthy reports whether the table migrated without any recorded problem.
func (r *MigrationRecord) Healthy() bool {
	return len(r.Errors) == 0 && r.RowsSkipped == 0 && r.ConstraintsFailed == 0 && !r.VerifyFailed
}

// Report is the outcome of a run, with records in source table name order.
type Report struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Target      string
	Records     *orderedmap.OrderedMap[string, *MigrationRecord]
	Cycles      [][]string // foreign key cycles, resolved by deferring constraints
}

// NewReport creates an empty report.
func NewReport(target string) *Report {
	return &Report{
		StartedAt: time.Now(),
		Target:    target,
		Records:   orderedmap.NewOrderedMap[string, *MigrationRecord](),
	}
}

// Record returns the record of table, creating it on first use.
func (r *Report) Record(table string) *MigrationRecord {
	if rec, ok := r.Records.Get(table); ok {
		return rec
	}
	rec := newRecord(table)
	r.Records.Set(table, rec)
	return rec
}

// Each calls fn for every record in insertion order.
func (r *Report) Each(fn func(*MigrationRecord)) {
	for el := r.Records.Front(); el != nil; el = el.Next() {
		fn(el.Value)
	}
}

// Totals sums the per-table counters.
func (r *Report) Totals() MigrationRecord {
	total := MigrationRecord{Table: "TOTAL"}
	r.Each(func(rec *MigrationRecord) {
		total.RowsRead += rec.RowsRead
		total.RowsInserted += rec.RowsInserted
		total.RowsSkipped += rec.RowsSkipped
		total.CoercionWarnings += rec.CoercionWarnings
		total.ConstraintsApplied += rec.ConstraintsApplied
		total.ConstraintsFailed += rec.ConstraintsFailed
		total.Errors = append(total.Errors, rec.Errors...)
	})
	return total
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
