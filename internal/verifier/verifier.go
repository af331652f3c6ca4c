// Package verifier compares per-table row counts between the source and the
// target after a migration.
package verifier

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbsmedya/litemigrate/internal/dialect"
	"github.com/dbsmedya/litemigrate/internal/logger"
	"github.com/dbsmedya/litemigrate/internal/sqlutil"
)

// VerifyResult holds verification results for a single table.
type VerifyResult struct {
	Table        string
	SourceCount  int64
	TargetCount  int64
	Match        bool
	ErrorMessage string
}

// VerifyStats contains overall verification statistics.
type VerifyStats struct {
	TablesVerified int
	TablesPassed   int
	TablesFailed   int
	TotalRows      int64
	Results        []VerifyResult
}

// Verifier counts rows on both sides.
type Verifier struct {
	source  *sql.DB
	target  *sql.DB
	dialect dialect.Dialect
	logger  *logger.Logger
}

// NewVerifier creates a verifier. The source is queried with SQLite quoting,
// the target through d.
func NewVerifier(source, target *sql.DB, d dialect.Dialect, log *logger.Logger) (*Verifier, error) {
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

	return &Verifier{
		source:  source,
		target:  target,
		dialect: d,
		logger:  log,
	}, nil
}

// Verify compares row counts for every table. A mismatch or a failed count
// is reported in the table's result rather than returned as an error; the
// error return is reserved for cancellation.
func (v *Verifier) Verify(ctx context.Context, tables []string) (*VerifyStats, error) {
	stats := &VerifyStats{}

	for _, table := range tables {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("verification interrupted: %w", err)
		}

		result := v.verifyTable(ctx, table)
		stats.TablesVerified++
		stats.TotalRows += result.SourceCount
		if result.Match {
			stats.TablesPassed++
			v.logger.Debugw("Verification passed", "table", table, "rows", result.SourceCount)
		} else {
			stats.TablesFailed++
			v.logger.Warnw("Verification failed",
				"table", table,
				"source_count", result.SourceCount,
				"target_count", result.TargetCount,
				"error", result.ErrorMessage,
			)
		}
		stats.Results = append(stats.Results, result)
	}

	v.logger.Infow("Verification complete",
		"tables", stats.TablesVerified,
		"passed", stats.TablesPassed,
		"failed", stats.TablesFailed,
	)
	return stats, nil
}

func (v *Verifier) verifyTable(ctx context.Context, table string) VerifyResult {
	result := VerifyResult{Table: table}

	var err error
	result.SourceCount, err = count(ctx, v.source, "SELECT COUNT(*) FROM "+sqlutil.QuoteIdentifier(table))
	if err != nil {
		result.ErrorMessage = fmt.Sprintf("source count failed: %v", err)
		return result
	}

	result.TargetCount, err = count(ctx, v.target, v.dialect.CountSQL(table))
	if err != nil {
		result.ErrorMessage = fmt.Sprintf("target count failed: %v", err)
		return result
	}

	result.Match = result.SourceCount == result.TargetCount
	if !result.Match {
		result.ErrorMessage = fmt.Sprintf("row count mismatch: source=%d, target=%d", result.SourceCount, result.TargetCount)
	}
	return result
}

func count(ctx context.Context, db *sql.DB, query string) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
