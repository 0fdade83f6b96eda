package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Session.DebounceInterval != 150*time.Millisecond {
		t.Errorf("DebounceInterval = %v, want 150ms", cfg.Session.DebounceInterval)
	}
	if cfg.Solver.URL != "" {
		t.Errorf("Solver.URL = %q, want empty (in-process)", cfg.Solver.URL)
	}
	if cfg.Solver.Timeout != 30*time.Second {
		t.Errorf("Solver.Timeout = %v, want 30s", cfg.Solver.Timeout)
	}
	if cfg.Store.Path != "gusset.db" {
		t.Errorf("Store.Path = %q, want gusset.db", cfg.Store.Path)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GUSSET_ADDR", ":9090")
	t.Setenv("GUSSET_DEBOUNCE", "75ms")
	t.Setenv("GUSSET_SOLVER_URL", "http://solver:9000/solve")
	t.Setenv("GUSSET_STORE_PATH", "/tmp/projects.db")

	cfg := Load()

	if cfg.Server.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Session.DebounceInterval != 75*time.Millisecond {
		t.Errorf("DebounceInterval = %v, want 75ms", cfg.Session.DebounceInterval)
	}
	if cfg.Solver.URL != "http://solver:9000/solve" {
		t.Errorf("Solver.URL = %q", cfg.Solver.URL)
	}
	if cfg.Store.Path != "/tmp/projects.db" {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
}

func TestGetDuration(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"30", 30 * time.Second},
		{"500ms", 500 * time.Millisecond},
		{"2m", 2 * time.Minute},
		{"1h", time.Hour},
		{"garbage", 7 * time.Second},
		{"", 7 * time.Second},
	}
	for _, tt := range tests {
		t.Setenv("GUSSET_TEST_DURATION", tt.value)
		if got := getDuration("GUSSET_TEST_DURATION", 7*time.Second); got != tt.want {
			t.Errorf("getDuration(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
