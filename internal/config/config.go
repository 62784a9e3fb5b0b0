package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Config is the user-facing dashboard configuration.
type Config struct {
	Sources    []SourceConfig   `toml:"sources"`
	Board      BoardConfig      `toml:"board"`
	Completion []CompletionRule `toml:"completion"`
	Refresh    RefreshConfig    `toml:"refresh"`
	Log        LogConfig        `toml:"log"`
	Keys       KeyConfig        `toml:"keys"`
}

// SourceConfig describes one tracked data source (a repository or an
// external task stream).
type SourceConfig struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
	// Kind is "repo" for grouped sections, "stream" for flat lists.
	Kind string `toml:"kind"`
	// Groups are ordered comma-separated status-name definitions; the
	// first name of each definition becomes the group label. Empty
	// means auto-detect.
	Groups []string `toml:"groups"`
}

// BoardConfig holds grouping behavior shared by all sources.
type BoardConfig struct {
	// TerminalStatuses are closed/done-like values never rendered as
	// groups unless a group definition names them explicitly.
	TerminalStatuses []string `toml:"terminal_statuses"`
}

// CompletionRule maps a status to a follow-up action ("close",
// "label", or "status") performed with the primary mutation.
type CompletionRule struct {
	Status string `toml:"status"`
	Action string `toml:"action"`
	Arg    string `toml:"arg"`
}

// RefreshConfig tunes the background refresh loop.
type RefreshConfig struct {
	IntervalSeconds int `toml:"interval_seconds"`
	PauseAfter      int `toml:"pause_after_failures"`
}

// LogConfig points the durable action-log mirror at its database.
type LogConfig struct {
	Path string `toml:"path"`
}

// KeyConfig carries the user-remappable bindings.
type KeyConfig struct {
	MultiSelect string `toml:"multi_select"`
	Undo        string `toml:"undo"`
	Yank        string `toml:"yank"`
}

// Default returns default config.
func Default(logPath string) Config {
	return Config{
		Board: BoardConfig{
			TerminalStatuses: []string{"Done", "Closed", "Canceled"},
		},
		Refresh: RefreshConfig{
			IntervalSeconds: 30,
			PauseAfter:      5,
		},
		Log: LogConfig{
			Path: logPath,
		},
		Keys: KeyConfig{
			MultiSelect: "v",
			Undo:        "u",
			Yank:        "y",
		},
	}
}

// Load reads a config file over the supplied defaults. A missing or
// empty file keeps the defaults.
func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Save writes the config back out as TOML.
func Save(path string, cfg Config) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	content, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode toml: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks structural constraints and normalizes fields.
func (c Config) Validate() error {
	seen := map[string]struct{}{}
	for idx := range c.Sources {
		source := c.Sources[idx]
		source.ID = strings.TrimSpace(source.ID)
		source.Name = strings.TrimSpace(source.Name)
		if source.ID == "" {
			return fmt.Errorf("sources[%d].id is required", idx)
		}
		if source.Name == "" {
			source.Name = source.ID
		}
		switch strings.TrimSpace(strings.ToLower(source.Kind)) {
		case "", "repo":
			source.Kind = "repo"
		case "stream":
			source.Kind = "stream"
		default:
			return fmt.Errorf("sources[%d].kind must be repo or stream, got %q", idx, source.Kind)
		}
		if _, ok := seen[source.ID]; ok {
			return fmt.Errorf("sources[%d].id is duplicated: %s", idx, source.ID)
		}
		seen[source.ID] = struct{}{}
		c.Sources[idx] = source
	}

	for idx, rule := range c.Completion {
		if strings.TrimSpace(rule.Status) == "" {
			return fmt.Errorf("completion[%d].status is required", idx)
		}
		switch strings.TrimSpace(strings.ToLower(rule.Action)) {
		case "close":
		case "label", "status":
			if strings.TrimSpace(rule.Arg) == "" {
				return fmt.Errorf("completion[%d].arg is required for action %q", idx, rule.Action)
			}
		default:
			return fmt.Errorf("completion[%d].action must be close, label, or status, got %q", idx, rule.Action)
		}
	}

	if c.Refresh.IntervalSeconds < 0 {
		return errors.New("refresh.interval_seconds must be >= 0")
	}
	if c.Refresh.PauseAfter < 0 {
		return errors.New("refresh.pause_after_failures must be >= 0")
	}
	return nil
}

// EnsureConfigDir creates the parent directory for a config path.
func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
