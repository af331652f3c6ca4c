package config

import (
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Source.Path != "digi_aata.db" {
		t.Errorf("expected source path 'digi_aata.db', got %s", cfg.Source.Path)
	}
	if cfg.Target.Driver != DriverPostgres {
		t.Errorf("expected target driver postgres, got %s", cfg.Target.Driver)
	}
	if cfg.Target.DSN != "${DATABASE_URL}" {
		t.Errorf("expected target dsn to reference DATABASE_URL, got %s", cfg.Target.DSN)
	}
	if cfg.Target.Schema != "public" {
		t.Errorf("expected target schema 'public', got %s", cfg.Target.Schema)
	}
	if cfg.Target.MaxConnections != 10 {
		t.Errorf("expected target max_connections 10, got %d", cfg.Target.MaxConnections)
	}
	if cfg.Processing.Workers != 4 {
		t.Errorf("expected workers 4, got %d", cfg.Processing.Workers)
	}
	if !cfg.Safety.Lock {
		t.Errorf("expected run lock enabled by default")
	}
	if !cfg.Verification.Enabled {
		t.Errorf("expected verification enabled by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected logging level 'info', got %s", cfg.Logging.Level)
	}
}

func TestEffectiveWorkers(t *testing.T) {
	tests := []struct {
		name     string
		workers  int
		maxConns int
		expected int
	}{
		{"within pool", 4, 10, 4},
		{"capped by pool", 16, 8, 8},
		{"unlimited pool", 16, 0, 16},
		{"zero workers", 0, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Processing.Workers = tt.workers
			cfg.Target.MaxConnections = tt.maxConns
			if got := cfg.EffectiveWorkers(); got != tt.expected {
				t.Errorf("EffectiveWorkers() = %d, expected %d", got, tt.expected)
			}
		})
	}
}

func TestTableSelected(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.TableSelected("users") {
		t.Error("expected all tables selected without filters")
	}

	cfg.Processing.ExcludeTables = []string{"alembic_version"}
	if cfg.TableSelected("alembic_version") {
		t.Error("expected excluded table to be filtered out")
	}
	if !cfg.TableSelected("users") {
		t.Error("expected non-excluded table to be selected")
	}

	cfg.Processing.IncludeTables = []string{"users", "alembic_version"}
	if cfg.TableSelected("orders") {
		t.Error("expected table outside include list to be filtered out")
	}
	if cfg.TableSelected("alembic_version") {
		t.Error("expected exclusion to win over inclusion")
	}
	if !cfg.TableSelected("users") {
		t.Error("expected included table to be selected")
	}
}
