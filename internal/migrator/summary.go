package migrator

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
)

var summaryHeader = []string{"TABLE", "STATE", "READ", "INSERTED", "SKIPPED", "FK OK", "FK FAILED", "NEXT ID", "STATUS"}

// status returns the one-word outcome of a table and its colour.
func (r *MigrationRecord) status() (string, color.Color) {
	switch {
	case r.State == StateTranslateFailed || r.State == StateCreateFailed || r.State == StateCopyInterrupted:
		return "FAILED", color.FgRed
	case r.Healthy():
		return "OK", color.FgGreen
	default:
		return "WARN", color.FgYellow
	}
}

func (r *MigrationRecord) summaryRow() []string {
	next := "-"
	if r.NextSequenceValue > 0 {
		next = fmt.Sprintf("%d", r.NextSequenceValue)
	}
	st, _ := r.status()
	return []string{
		r.Table,
		string(r.State),
		fmt.Sprintf("%d", r.RowsRead),
		fmt.Sprintf("%d", r.RowsInserted),
		fmt.Sprintf("%d", r.RowsSkipped),
		fmt.Sprintf("%d", r.ConstraintsApplied),
		fmt.Sprintf("%d", r.ConstraintsFailed),
		next,
		st,
	}
}

// WriteSummary prints the per-table table and the errors of the run. Status
// cells are coloured when w is a terminal that supports it.
func (r *Report) WriteSummary(w io.Writer) {
	rows := [][]string{summaryHeader}
	var colors []color.Color
	r.Each(func(rec *MigrationRecord) {
		rows = append(rows, rec.summaryRow())
		_, c := rec.status()
		colors = append(colors, c)
	})

	widths := make([]int, len(summaryHeader))
	for _, row := range rows {
		for i, cell := range row {
			if n := runewidth.StringWidth(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	fmt.Fprintf(w, "\nMigration summary (%s target, %s)\n", r.Target, r.Duration().Round(time.Millisecond))
	for ri, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = runewidth.FillRight(cell, widths[i])
		}
		last := len(cells) - 1
		if ri == 0 {
			fmt.Fprintln(w, color.Bold.Sprint(strings.Join(cells, "  ")))
			continue
		}
		cells[last] = colors[ri-1].Sprint(cells[last])
		fmt.Fprintln(w, strings.Join(cells, "  "))
	}

	totals := r.Totals()
	fmt.Fprintf(w, "\nTotals: %d rows read, %d inserted, %d skipped, %d constraints applied, %d failed\n",
		totals.RowsRead, totals.RowsInserted, totals.RowsSkipped, totals.ConstraintsApplied, totals.ConstraintsFailed)
	if totals.CoercionWarnings > 0 {
		fmt.Fprintf(w, "Boolean values inserted without coercion: %d\n", totals.CoercionWarnings)
	}

	for _, cycle := range r.Cycles {
		fmt.Fprintf(w, "Foreign key cycle (constraints deferred): %s\n", strings.Join(cycle, " -> "))
	}

	if len(totals.Errors) > 0 {
		fmt.Fprintln(w, color.FgYellow.Sprintf("\nProblems (%d):", len(totals.Errors)))
		for _, err := range totals.Errors {
			fmt.Fprintf(w, "  - %v\n", err)
		}
	}
}
