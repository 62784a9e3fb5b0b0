package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default("/tmp/havik.db")
	if cfg.Log.Path != "/tmp/havik.db" {
		t.Fatalf("unexpected log path %q", cfg.Log.Path)
	}
	if len(cfg.Board.TerminalStatuses) == 0 {
		t.Fatal("expected default terminal statuses")
	}
	if cfg.Refresh.IntervalSeconds != 30 || cfg.Refresh.PauseAfter != 5 {
		t.Fatalf("unexpected refresh defaults %+v", cfg.Refresh)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	defaults := Default("/tmp/havik.db")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"), defaults)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Path != defaults.Log.Path {
		t.Fatalf("expected default log path, got %q", cfg.Log.Path)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[[sources]]
id = "acme/api"
groups = ["Todo,Backlog", "In Progress"]

[[sources]]
id = "todoist"
kind = "stream"

[board]
terminal_statuses = ["Done"]

[[completion]]
status = "Done"
action = "close"

[refresh]
interval_seconds = 10
pause_after_failures = 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path, Default("/tmp/havik.db"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Sources) != 2 || cfg.Sources[0].ID != "acme/api" {
		t.Fatalf("unexpected sources %+v", cfg.Sources)
	}
	if cfg.Sources[1].Kind != "stream" {
		t.Fatalf("stream kind not normalized: %q", cfg.Sources[1].Kind)
	}
	if cfg.Refresh.IntervalSeconds != 10 {
		t.Fatalf("refresh interval = %d", cfg.Refresh.IntervalSeconds)
	}
	if len(cfg.Completion) != 1 || cfg.Completion[0].Action != "close" {
		t.Fatalf("unexpected completion rules %+v", cfg.Completion)
	}
}

func TestValidateRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"duplicate source", Config{Sources: []SourceConfig{{ID: "a"}, {ID: "a"}}}},
		{"bad kind", Config{Sources: []SourceConfig{{ID: "a", Kind: "queue"}}}},
		{"label without arg", Config{Completion: []CompletionRule{{Status: "Done", Action: "label"}}}},
		{"bad action", Config{Completion: []CompletionRule{{Status: "Done", Action: "explode"}}}},
		{"negative interval", Config{Refresh: RefreshConfig{IntervalSeconds: -1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestSaveRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default("/tmp/havik.db")
	cfg.Sources = []SourceConfig{{ID: "acme/api", Name: "API", Kind: "repo"}}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(path, Default(""))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded.Sources) != 1 || loaded.Sources[0].Name != "API" {
		t.Fatalf("round trip lost sources: %+v", loaded.Sources)
	}
}
