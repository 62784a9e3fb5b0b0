package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/raklev/havik/internal/adapters/provider/filesource"
	"github.com/raklev/havik/internal/board"
	"github.com/raklev/havik/internal/config"
	"github.com/raklev/havik/internal/domain"
)

// newSnapshotCmd renders a one-shot board table without entering the
// TUI, for scripting and quick checks.
func newSnapshotCmd(flags *rootFlags, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Print the current board as a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(*flags, io.Discard)
			if err != nil {
				return err
			}
			defer func() { _ = rt.logger.Close() }()
			return runSnapshot(cmd.Context(), rt, stdout)
		},
	}
}

// runSnapshot fetches the board once and prints it.
func runSnapshot(ctx context.Context, rt runtime, stdout io.Writer) error {
	if err := filesource.Seed(rt.flags.dataPath, seedSources(rt.cfg.Sources)); err != nil {
		return fmt.Errorf("seed board file: %w", err)
	}
	provider, err := filesource.New(rt.flags.dataPath)
	if err != nil {
		return fmt.Errorf("open board file: %w", err)
	}
	res, err := provider.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch board: %w", err)
	}

	tree := board.Build(boardConfig(rt.cfg), res.Sections, res.Streams)
	_, _ = fmt.Fprintln(stdout, renderSnapshot(tree))
	_, _ = fmt.Fprintf(stdout, "fetched %s\n", res.FetchedAt.Format("2006-01-02 15:04:05"))
	return nil
}

// boardConfig maps the user config onto the tree builder's knobs.
func boardConfig(cfg config.Config) board.Config {
	return board.Config{TerminalStatuses: cfg.Board.TerminalStatuses}
}

// renderSnapshot lays the whole tree out as one table, a row per item.
func renderSnapshot(tree domain.BoardTree) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230"))
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("62"))).
		Headers("Source", "Group", "Item", "Status", "Assignee", "Labels").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, section := range tree.Sections {
		if section.Err != "" {
			t.Row(section.Name, "", "fetch failed: "+section.Err, "", "", "")
			continue
		}
		if section.Empty {
			t.Row(section.Name, "", "(empty)", "", "", "")
			continue
		}
		for _, group := range section.Groups {
			for _, item := range group.Items {
				t.Row(section.Name, group.Label, itemCell(item), item.Status, item.Assignee, strings.Join(item.Labels, ", "))
			}
		}
	}
	for _, stream := range tree.Streams {
		for _, item := range stream.Items {
			t.Row(stream.Name, "", itemCell(item), item.Status, item.Assignee, strings.Join(item.Labels, ", "))
		}
	}
	return t.Render()
}

// itemCell formats the number-and-title cell for one item.
func itemCell(item domain.Item) string {
	if item.Number > 0 {
		return fmt.Sprintf("#%d %s", item.Number, item.Title)
	}
	return item.Title
}
