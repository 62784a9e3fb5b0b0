package filesource

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SeedSource describes one source to materialize when seeding a board
// file that does not exist yet.
type SeedSource struct {
	ID     string
	Name   string
	Kind   string
	Groups []string
}

// Seed writes a starter board file for the given sources. An existing
// file is left untouched so user data survives restarts.
func Seed(path string, sources []SeedSource) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("board file path is required")
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat board file: %w", err)
	}

	board := boardFile{}
	for _, src := range sources {
		id := strings.TrimSpace(src.ID)
		if id == "" {
			continue
		}
		name := strings.TrimSpace(src.Name)
		if name == "" {
			name = id
		}
		if strings.EqualFold(strings.TrimSpace(src.Kind), "stream") {
			board.Streams = append(board.Streams, streamFile{ID: id, Name: name, Items: []itemFile{}})
			continue
		}
		board.Sections = append(board.Sections, sectionFile{
			ID:     id,
			Name:   name,
			Groups: append([]string(nil), src.Groups...),
			Items:  []itemFile{},
		})
	}

	data, err := json.MarshalIndent(board, "", "  ")
	if err != nil {
		return fmt.Errorf("encode board file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create board dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write board file: %w", err)
	}
	return nil
}
