// Package database manages the source (SQLite) and target (PostgreSQL or
// MySQL) connections for a migration run.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/dbsmedya/litemigrate/internal/config"
)

// SourceDriver is the database/sql driver name of the source store.
const SourceDriver = "sqlite3"

// Manager owns the source and target handles for one run.
type Manager struct {
	Source *sql.DB
	Target *sql.DB
	config *config.Config
}

// NewManager creates a new database manager from configuration.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		config: cfg,
	}
}

// Connect opens the source and then the target.
func (m *Manager) Connect(ctx context.Context) error {
	if err := m.ConnectSource(ctx); err != nil {
		return err
	}
	if err := m.ConnectTarget(ctx); err != nil {
		_ = m.Source.Close()
		m.Source = nil
		return err
	}
	return nil
}

// ConnectSource opens the SQLite file read-only. A missing file is an error
// rather than an empty database.
func (m *Manager) ConnectSource(ctx context.Context) error {
	path := m.config.Source.Path
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("failed to open source database %q: %w", path, err)
	}

	db, err := sql.Open(SourceDriver, BuildSourceDSN(path))
	if err != nil {
		return fmt.Errorf("failed to open source database %q: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to connect to source database %q: %w", path, err)
	}

	m.Source = db
	return nil
}

// ConnectTarget opens the target with retries.
func (m *Manager) ConnectTarget(ctx context.Context) error {
	db, err := m.connectWithRetry(ctx, &m.config.Target)
	if err != nil {
		return fmt.Errorf("failed to connect to target database: %w", err)
	}
	m.Target = db
	return nil
}

// connectWithRetry attempts to connect with exponential backoff.
func (m *Manager) connectWithRetry(ctx context.Context, cfg *config.TargetConfig) (*sql.DB, error) {
	var db *sql.DB
	var err error

	maxRetries := 3
	backoff := time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = m.connect(cfg)
		if err == nil {
			// Verify connection
			if pingErr := db.PingContext(ctx); pingErr == nil {
				return db, nil
			} else {
				_ = db.Close()
				err = pingErr
			}
		}

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}

	return nil, fmt.Errorf("failed after %d retries: %w", maxRetries, err)
}

// connect creates the target handle without verifying it.
func (m *Manager) connect(cfg *config.TargetConfig) (*sql.DB, error) {
	dsn, err := BuildTargetDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConnections)
	}
	db.SetConnMaxLifetime(10 * time.Minute)

	return db, nil
}

// BuildSourceDSN returns a read-only SQLite URI for path.
func BuildSourceDSN(path string) string {
	return fmt.Sprintf("file:%s?mode=ro", path)
}

// BuildTargetDSN normalizes the configured DSN for the target driver.
// MySQL DSNs get parseTime so DATETIME values scan as time.Time; PostgreSQL
// DSNs (URL or key=value) are passed through.
func BuildTargetDSN(cfg *config.TargetConfig) (string, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return "", fmt.Errorf("target DSN is empty")
	}

	switch cfg.Driver {
	case config.DriverMySQL:
		myCfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("invalid mysql DSN: %w", err)
		}
		myCfg.ParseTime = true
		return myCfg.FormatDSN(), nil
	case config.DriverPostgres:
		return dsn, nil
	default:
		return "", fmt.Errorf("unsupported target driver %q", cfg.Driver)
	}
}

// TargetName identifies the target namespace for lock naming and reports:
// the schema on PostgreSQL, the database name on MySQL.
func TargetName(cfg *config.TargetConfig) string {
	if cfg.Driver == config.DriverMySQL {
		if myCfg, err := mysql.ParseDSN(strings.TrimSpace(cfg.DSN)); err == nil && myCfg.DBName != "" {
			return myCfg.DBName
		}
		return "mysql"
	}
	if cfg.Schema == "" {
		return "public"
	}
	return cfg.Schema
}

// Close closes all database connections gracefully.
func (m *Manager) Close() error {
	var errs []error

	if m.Target != nil {
		if err := m.Target.Close(); err != nil {
			errs = append(errs, fmt.Errorf("target close: %w", err))
		}
	}

	if m.Source != nil {
		if err := m.Source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("source close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing connections: %v", errs)
	}
	return nil
}

// Ping verifies all connections are alive.
func (m *Manager) Ping(ctx context.Context) error {
	if m.Source != nil {
		if err := m.Source.PingContext(ctx); err != nil {
			return fmt.Errorf("source ping failed: %w", err)
		}
	}

	if m.Target != nil {
		if err := m.Target.PingContext(ctx); err != nil {
			return fmt.Errorf("target ping failed: %w", err)
		}
	}

	return nil
}
