package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dbsmedya/litemigrate/internal/config"
)

func TestBuildSourceDSN(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"relative", "digi_aata.db", "file:digi_aata.db?mode=ro"},
		{"absolute", "/var/data/app.db", "file:/var/data/app.db?mode=ro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildSourceDSN(tt.path); got != tt.expected {
				t.Errorf("BuildSourceDSN() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestBuildTargetDSN(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.TargetConfig
		expected  string
		expectErr bool
	}{
		{
			name:     "postgres URL passes through",
			cfg:      config.TargetConfig{Driver: "postgres", DSN: "postgres://app:secret@db:5432/app?sslmode=disable"},
			expected: "postgres://app:secret@db:5432/app?sslmode=disable",
		},
		{
			name:     "postgres key value trimmed",
			cfg:      config.TargetConfig{Driver: "postgres", DSN: "  host=db user=app dbname=app  "},
			expected: "host=db user=app dbname=app",
		},
		{
			name:     "mysql gets parseTime",
			cfg:      config.TargetConfig{Driver: "mysql", DSN: "root:secret@tcp(localhost:3306)/app"},
			expected: "root:secret@tcp(localhost:3306)/app?parseTime=true",
		},
		{
			name:      "empty DSN",
			cfg:       config.TargetConfig{Driver: "postgres"},
			expectErr: true,
		},
		{
			name:      "unknown driver",
			cfg:       config.TargetConfig{Driver: "oracle", DSN: "x"},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildTargetDSN(&tt.cfg)
			if tt.expectErr {
				if err == nil {
					t.Errorf("BuildTargetDSN() expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildTargetDSN() unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("BuildTargetDSN() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestTargetName(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.TargetConfig
		expected string
	}{
		{"postgres schema", config.TargetConfig{Driver: "postgres", Schema: "app"}, "app"},
		{"postgres default schema", config.TargetConfig{Driver: "postgres"}, "public"},
		{"mysql database", config.TargetConfig{Driver: "mysql", DSN: "root@tcp(localhost:3306)/shop"}, "shop"},
		{"mysql without database", config.TargetConfig{Driver: "mysql", DSN: "root@tcp(localhost:3306)/"}, "mysql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TargetName(&tt.cfg); got != tt.expected {
				t.Errorf("TargetName() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestNewManager(t *testing.T) {
	cfg := config.DefaultConfig()

	manager := NewManager(cfg)
	if manager == nil {
		t.Fatal("NewManager() returned nil")
	}
	if manager.config != cfg {
		t.Error("manager.config should point to provided config")
	}
	if manager.Source != nil {
		t.Error("Source should be nil before Connect()")
	}
	if manager.Target != nil {
		t.Error("Target should be nil before Connect()")
	}
}

func TestManagerCloseWithoutConnect(t *testing.T) {
	manager := NewManager(config.DefaultConfig())

	// Should not panic when closing unconnected manager
	if err := manager.Close(); err != nil {
		t.Errorf("Close() on unconnected manager returned error: %v", err)
	}
}

func TestConnectSource_MissingFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Source.Path = filepath.Join(t.TempDir(), "missing.db")

	manager := NewManager(cfg)
	err := manager.ConnectSource(context.Background())
	if err == nil {
		t.Fatal("ConnectSource() should fail for a missing file")
	}
	if !strings.Contains(err.Error(), "missing.db") {
		t.Errorf("error should name the file, got %v", err)
	}
	if manager.Source != nil {
		t.Error("Source should stay nil after a failed connect")
	}
}

func TestConnectSource_ReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "source.db")
	seed, err := sql.Open(SourceDriver, path)
	if err != nil {
		t.Fatalf("open seed db: %v", err)
	}
	if _, err := seed.Exec("CREATE TABLE users (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("seed schema: %v", err)
	}
	_ = seed.Close()

	cfg := config.DefaultConfig()
	cfg.Source.Path = path
	manager := NewManager(cfg)
	if err := manager.ConnectSource(context.Background()); err != nil {
		t.Fatalf("ConnectSource() error: %v", err)
	}
	defer func() { _ = manager.Close() }()

	if err := manager.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error: %v", err)
	}

	if _, err := manager.Source.Exec("INSERT INTO users (id) VALUES (1)"); err == nil {
		t.Error("source handle should reject writes")
	}
}

func TestConnectTarget_InvalidDSN(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Target.Driver = config.DriverMySQL
	cfg.Target.DSN = "not a dsn"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	manager := NewManager(cfg)
	if err := manager.ConnectTarget(ctx); err == nil {
		t.Fatal("ConnectTarget() should fail for an invalid DSN")
	}
	if manager.Target != nil {
		t.Error("Target should stay nil after a failed connect")
	}
}
