// Package mcpapi provides a stateless MCP streamable-HTTP adapter over
// the live dashboard session.
package mcpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/raklev/havik/internal/app"
	"github.com/raklev/havik/internal/domain"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// boardReader exposes the read side of the live session.
type boardReader interface {
	Tree() domain.BoardTree
	FetchedAt() time.Time
}

// actionReader exposes the recent action history.
type actionReader interface {
	All() []domain.ActionEntry
}

// statusWriter dispatches a status change through the full mutation
// protocol, optimistic patch and action log included.
type statusWriter interface {
	ChangeStatus(ctx context.Context, id, status string) error
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter with board_snapshot,
// action_log, and set_status tools.
func NewHandler(cfg Config, board boardReader, actions actionReader, writer statusWriter) (*Handler, error) {
	if board == nil {
		return nil, fmt.Errorf("board reader is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerBoardSnapshotTool(mcpSrv, board)
	if actions != nil {
		registerActionLogTool(mcpSrv, actions)
	}
	if writer != nil {
		registerSetStatusTool(mcpSrv, writer)
	}

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "havik"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerBoardSnapshotTool registers the `havik.board_snapshot` tool.
func registerBoardSnapshotTool(srv *mcpserver.MCPServer, board boardReader) {
	srv.AddTool(
		mcp.NewTool(
			"havik.board_snapshot",
			mcp.WithDescription("Return the current grouped board: sections, status groups, streams, items."),
			mcp.WithString("section_id", mcp.Description("Limit the snapshot to one section id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			snapshot := snapshotFromTree(board.Tree(), board.FetchedAt(), req.GetString("section_id", ""))
			result, err := mcp.NewToolResultJSON(snapshot)
			if err != nil {
				return nil, fmt.Errorf("encode board_snapshot result: %w", err)
			}
			return result, nil
		},
	)
}

// registerActionLogTool registers the `havik.action_log` tool.
func registerActionLogTool(srv *mcpserver.MCPServer, actions actionReader) {
	srv.AddTool(
		mcp.NewTool(
			"havik.action_log",
			mcp.WithDescription("Return the retained action history, newest first."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			entries := actions.All()
			out := make([]actionJSON, 0, len(entries))
			for _, entry := range entries {
				out = append(out, actionJSON{
					ID:          entry.ID,
					Description: entry.Description,
					Status:      string(entry.Status),
					At:          entry.At,
					Undoable:    entry.Undo != nil,
				})
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"actions": out})
			if err != nil {
				return nil, fmt.Errorf("encode action_log result: %w", err)
			}
			return result, nil
		},
	)
}

// registerSetStatusTool registers the `havik.set_status` tool.
func registerSetStatusTool(srv *mcpserver.MCPServer, writer statusWriter) {
	srv.AddTool(
		mcp.NewTool(
			"havik.set_status",
			mcp.WithDescription("Move one item to a status through the normal mutation path."),
			mcp.WithString("item_id", mcp.Required(), mcp.Description("Stable item id, e.g. issue:acme/api#42")),
			mcp.WithString("status", mcp.Required(), mcp.Description("Target status name")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			itemID, err := req.RequireString("item_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			status, err := req.RequireString("status")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := writer.ChangeStatus(ctx, itemID, status); err != nil {
				return mcp.NewToolResultError("mutation_failed: " + err.Error()), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"item_id": itemID, "status": status})
			if err != nil {
				return nil, fmt.Errorf("encode set_status result: %w", err)
			}
			return result, nil
		},
	)
}

// snapshotJSON is the serialized board shape returned to MCP clients.
type snapshotJSON struct {
	FetchedAt time.Time     `json:"fetched_at"`
	Sections  []sectionJSON `json:"sections"`
	Streams   []streamJSON  `json:"streams,omitempty"`
}

type sectionJSON struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Error  string      `json:"error,omitempty"`
	Empty  bool        `json:"empty,omitempty"`
	Groups []groupJSON `json:"groups,omitempty"`
}

type groupJSON struct {
	ID    string     `json:"id"`
	Label string     `json:"label"`
	Items []itemJSON `json:"items"`
}

type streamJSON struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Items []itemJSON `json:"items"`
}

type itemJSON struct {
	ID       string   `json:"id"`
	Number   int      `json:"number,omitempty"`
	Title    string   `json:"title"`
	Status   string   `json:"status,omitempty"`
	Assignee string   `json:"assignee,omitempty"`
	Labels   []string `json:"labels,omitempty"`
	URL      string   `json:"url,omitempty"`
}

type actionJSON struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	At          time.Time `json:"at"`
	Undoable    bool      `json:"undoable"`
}

// snapshotFromTree converts the live tree into its wire shape,
// optionally filtered to one section.
func snapshotFromTree(tree domain.BoardTree, fetchedAt time.Time, sectionID string) snapshotJSON {
	out := snapshotJSON{FetchedAt: fetchedAt, Sections: []sectionJSON{}}
	for _, section := range tree.Sections {
		if sectionID != "" && section.ID != sectionID && section.SourceID != sectionID {
			continue
		}
		sec := sectionJSON{ID: section.ID, Name: section.Name, Error: section.Err, Empty: section.Empty}
		for _, group := range section.Groups {
			g := groupJSON{ID: group.ID, Label: group.Label, Items: []itemJSON{}}
			for _, item := range group.Items {
				g.Items = append(g.Items, toItemJSON(item))
			}
			sec.Groups = append(sec.Groups, g)
		}
		out.Sections = append(out.Sections, sec)
	}
	if sectionID != "" {
		return out
	}
	for _, stream := range tree.Streams {
		s := streamJSON{ID: stream.ID, Name: stream.Name, Items: []itemJSON{}}
		for _, item := range stream.Items {
			s.Items = append(s.Items, toItemJSON(item))
		}
		out.Streams = append(out.Streams, s)
	}
	return out
}

func toItemJSON(item domain.Item) itemJSON {
	return itemJSON{
		ID:       item.ID,
		Number:   item.Number,
		Title:    item.Title,
		Status:   item.Status,
		Assignee: item.Assignee,
		Labels:   item.Labels,
		URL:      item.URL,
	}
}

var _ boardReader = (*app.Session)(nil)
var _ actionReader = (*app.ActionLog)(nil)
var _ statusWriter = (*app.Orchestrator)(nil)
