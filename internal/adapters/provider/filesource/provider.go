package filesource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/raklev/havik/internal/app"
	"github.com/raklev/havik/internal/domain"
)

// boardFile is the on-disk JSON shape backing a Provider.
type boardFile struct {
	Sections []sectionFile `json:"sections"`
	Streams  []streamFile  `json:"streams,omitempty"`
}

// sectionFile represents one grouped source in the board file.
type sectionFile struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Groups []string   `json:"groups,omitempty"`
	Items  []itemFile `json:"items"`
}

// streamFile represents one flat stream in the board file.
type streamFile struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Items []itemFile `json:"items"`
}

// itemFile represents one item row in the board file.
type itemFile struct {
	Number    int           `json:"number"`
	Title     string        `json:"title"`
	Body      string        `json:"body,omitempty"`
	URL       string        `json:"url,omitempty"`
	Status    string        `json:"status,omitempty"`
	Assignee  string        `json:"assignee,omitempty"`
	Labels    []string      `json:"labels,omitempty"`
	Closed    bool          `json:"closed,omitempty"`
	UpdatedAt time.Time     `json:"updated_at,omitempty"`
	Comments  []commentFile `json:"comments,omitempty"`
}

// commentFile represents one comment row in the board file.
type commentFile struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Provider serves a board from a single JSON file and applies
// mutations by rewriting it. It backs demo boards and offline use, and
// gives every mutation a real undo by restoring the prior field value.
type Provider struct {
	mu      sync.Mutex
	path    string
	pending map[string]struct{}
	clock   func() time.Time
}

// New constructs a provider over the given board file.
func New(path string) (*Provider, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("board file path is required")
	}
	return &Provider{
		path:    path,
		pending: make(map[string]struct{}),
		clock:   time.Now,
	}, nil
}

// Fetch reads the board file and converts it to a fetch result.
// Closed items are dropped the way a remote search query would filter
// them server-side.
func (p *Provider) Fetch(_ context.Context) (domain.FetchResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	board, err := p.load()
	if err != nil {
		return domain.FetchResult{}, err
	}

	result := domain.FetchResult{FetchedAt: p.clock()}
	for _, sec := range board.Sections {
		raw := domain.RawSection{
			SourceID: sec.ID,
			Name:     sec.Name,
			Groups:   append([]string(nil), sec.Groups...),
		}
		for _, row := range sec.Items {
			if row.Closed {
				continue
			}
			raw.Items = append(raw.Items, toItem(sec.ID, row, issueID(sec.ID, row.Number)))
		}
		result.Sections = append(result.Sections, raw)
	}
	for _, stream := range board.Streams {
		raw := domain.RawStream{ID: stream.ID, Name: stream.Name}
		for _, row := range stream.Items {
			if row.Closed {
				continue
			}
			raw.Items = append(raw.Items, toItem(stream.ID, row, taskID(stream.ID, row.Number)))
		}
		result.Streams = append(result.Streams, raw)
	}
	return result, nil
}

// Comments returns the stored comment thread for one item.
func (p *Provider) Comments(_ context.Context, ref app.ItemRef) ([]domain.Comment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	board, err := p.load()
	if err != nil {
		return nil, err
	}
	row, _, err := findItem(&board, ref)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Comment, 0, len(row.Comments))
	for _, c := range row.Comments {
		out = append(out, domain.Comment{ID: c.ID, Author: c.Author, Body: c.Body, CreatedAt: c.CreatedAt})
	}
	return out, nil
}

// RegisterPendingMutation marks an item as having an in-flight write.
// Fetch reads the same file every mutation rewrites, under the same
// mutex, so there is no stale-snapshot window here for the mark to
// guard; remote-backed providers use it to keep a refresh from
// clobbering the optimistic patch.
func (p *Provider) RegisterPendingMutation(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending[key] = struct{}{}
}

// ClearPendingMutation removes the in-flight mark for an item.
func (p *Provider) ClearPendingMutation(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pending, key)
}

// SetStatus updates the status field of one item.
func (p *Provider) SetStatus(ctx context.Context, ref app.ItemRef, status string) (app.MutationResult, error) {
	if strings.TrimSpace(status) == "" {
		return app.MutationResult{}, domain.ErrInvalidStatus
	}
	return p.mutate(ref, func(row *itemFile) (domain.UndoFunc, error) {
		prev := row.Status
		row.Status = status
		return p.restoreFunc(ref, func(r *itemFile) { r.Status = prev }), nil
	})
}

// Assign sets the assignee of one item.
func (p *Provider) Assign(ctx context.Context, ref app.ItemRef, login string) (app.MutationResult, error) {
	return p.mutate(ref, func(row *itemFile) (domain.UndoFunc, error) {
		prev := row.Assignee
		row.Assignee = login
		return p.restoreFunc(ref, func(r *itemFile) { r.Assignee = prev }), nil
	})
}

// Unassign clears the assignee of one item if it matches login.
func (p *Provider) Unassign(ctx context.Context, ref app.ItemRef, login string) (app.MutationResult, error) {
	return p.mutate(ref, func(row *itemFile) (domain.UndoFunc, error) {
		prev := row.Assignee
		if prev != login {
			return nil, fmt.Errorf("item %s is not assigned to %s", ref.ID, login)
		}
		row.Assignee = ""
		return p.restoreFunc(ref, func(r *itemFile) { r.Assignee = prev }), nil
	})
}

// AddLabel appends a label to one item.
func (p *Provider) AddLabel(ctx context.Context, ref app.ItemRef, label string) (app.MutationResult, error) {
	return p.mutate(ref, func(row *itemFile) (domain.UndoFunc, error) {
		for _, existing := range row.Labels {
			if strings.EqualFold(existing, label) {
				return nil, fmt.Errorf("item %s already has label %q", ref.ID, label)
			}
		}
		row.Labels = append(row.Labels, label)
		return p.restoreFunc(ref, func(r *itemFile) { r.Labels = removeLabel(r.Labels, label) }), nil
	})
}

// RemoveLabel removes a label from one item.
func (p *Provider) RemoveLabel(ctx context.Context, ref app.ItemRef, label string) (app.MutationResult, error) {
	return p.mutate(ref, func(row *itemFile) (domain.UndoFunc, error) {
		next := removeLabel(row.Labels, label)
		if len(next) == len(row.Labels) {
			return nil, fmt.Errorf("item %s has no label %q", ref.ID, label)
		}
		row.Labels = next
		return p.restoreFunc(ref, func(r *itemFile) { r.Labels = append(r.Labels, label) }), nil
	})
}

// AddComment appends a comment to one item. Comments have no undo.
func (p *Provider) AddComment(ctx context.Context, ref app.ItemRef, body string) (app.MutationResult, error) {
	return p.mutate(ref, func(row *itemFile) (domain.UndoFunc, error) {
		row.Comments = append(row.Comments, commentFile{
			ID:        fmt.Sprintf("%s/c%d", ref.ID, len(row.Comments)+1),
			Author:    "havik",
			Body:      body,
			CreatedAt: p.clock(),
		})
		return nil, nil
	})
}

// CloseItem closes one item; closed items drop out of the next fetch.
func (p *Provider) CloseItem(ctx context.Context, ref app.ItemRef) (app.MutationResult, error) {
	return p.mutate(ref, func(row *itemFile) (domain.UndoFunc, error) {
		if row.Closed {
			return nil, fmt.Errorf("item %s is already closed", ref.ID)
		}
		row.Closed = true
		return p.restoreFunc(ref, func(r *itemFile) { r.Closed = false }), nil
	})
}

// CreateItem appends a new item to a grouped section and mints its id
// from the next free number.
func (p *Provider) CreateItem(_ context.Context, sourceID string, in domain.ItemInput) (domain.Item, app.MutationResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	board, err := p.load()
	if err != nil {
		return domain.Item{}, app.MutationResult{}, err
	}
	var sec *sectionFile
	for i := range board.Sections {
		if board.Sections[i].ID == sourceID {
			sec = &board.Sections[i]
			break
		}
	}
	if sec == nil {
		return domain.Item{}, app.MutationResult{}, fmt.Errorf("unknown source %q", sourceID)
	}

	number := 0
	for _, row := range sec.Items {
		if row.Number > number {
			number = row.Number
		}
	}
	number++

	row := itemFile{
		Number:    number,
		Title:     in.Title,
		Body:      in.Body,
		Status:    in.Status,
		Labels:    append([]string(nil), in.Labels...),
		UpdatedAt: p.clock(),
	}
	sec.Items = append(sec.Items, row)
	if err := p.save(board); err != nil {
		return domain.Item{}, app.MutationResult{}, err
	}

	id := issueID(sourceID, number)
	item, err := domain.NewItem(domain.ItemInput{
		ID:       id,
		SourceID: sourceID,
		Title:    in.Title,
		Body:     in.Body,
		Status:   in.Status,
		Labels:   in.Labels,
	}, row.UpdatedAt)
	if err != nil {
		return domain.Item{}, app.MutationResult{}, err
	}
	item.Number = number
	ref := app.ItemRef{SourceID: sourceID, ID: id}
	return item, app.MutationResult{Undo: p.restoreFunc(ref, func(r *itemFile) { r.Closed = true })}, nil
}

// mutate loads the board, applies fn to the addressed item, and writes
// the file back. fn returns the undo for the change it made.
func (p *Provider) mutate(ref app.ItemRef, fn func(*itemFile) (domain.UndoFunc, error)) (app.MutationResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	board, err := p.load()
	if err != nil {
		return app.MutationResult{}, err
	}
	row, _, err := findItem(&board, ref)
	if err != nil {
		return app.MutationResult{}, err
	}
	undo, err := fn(row)
	if err != nil {
		return app.MutationResult{}, err
	}
	row.UpdatedAt = p.clock()
	if err := p.save(board); err != nil {
		return app.MutationResult{}, err
	}
	return app.MutationResult{Undo: undo}, nil
}

// restoreFunc builds an undo callable that re-applies fn against the
// current file contents.
func (p *Provider) restoreFunc(ref app.ItemRef, fn func(*itemFile)) domain.UndoFunc {
	return func(context.Context) error {
		p.mu.Lock()
		defer p.mu.Unlock()

		board, err := p.load()
		if err != nil {
			return err
		}
		row, _, err := findItem(&board, ref)
		if err != nil {
			return err
		}
		fn(row)
		row.UpdatedAt = p.clock()
		return p.save(board)
	}
}

// load reads and decodes the board file. Caller holds the lock.
func (p *Provider) load() (boardFile, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return boardFile{}, fmt.Errorf("read board file: %w", err)
	}
	var board boardFile
	if err := json.Unmarshal(data, &board); err != nil {
		return boardFile{}, fmt.Errorf("decode board file: %w", err)
	}
	return board, nil
}

// save encodes and writes the board file. Caller holds the lock.
func (p *Provider) save(board boardFile) error {
	data, err := json.MarshalIndent(board, "", "  ")
	if err != nil {
		return fmt.Errorf("encode board file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("create board dir: %w", err)
	}
	if err := os.WriteFile(p.path, data, 0o644); err != nil {
		return fmt.Errorf("write board file: %w", err)
	}
	return nil
}

// findItem addresses one item row inside the board by its ref.
// Closed items stay addressable so undo can reopen them.
func findItem(board *boardFile, ref app.ItemRef) (*itemFile, string, error) {
	for i := range board.Sections {
		sec := &board.Sections[i]
		if sec.ID != ref.SourceID {
			continue
		}
		for j := range sec.Items {
			if issueID(sec.ID, sec.Items[j].Number) == ref.ID {
				return &sec.Items[j], sec.ID, nil
			}
		}
	}
	for i := range board.Streams {
		stream := &board.Streams[i]
		if stream.ID != ref.SourceID {
			continue
		}
		for j := range stream.Items {
			if taskID(stream.ID, stream.Items[j].Number) == ref.ID {
				return &stream.Items[j], stream.ID, nil
			}
		}
	}
	return nil, "", fmt.Errorf("item %s not found in source %q", ref.ID, ref.SourceID)
}

// toItem converts one file row to a domain item.
func toItem(sourceID string, row itemFile, id string) domain.Item {
	return domain.Item{
		ID:        id,
		SourceID:  sourceID,
		Number:    row.Number,
		Title:     row.Title,
		Body:      row.Body,
		URL:       row.URL,
		Status:    row.Status,
		Assignee:  row.Assignee,
		Labels:    append([]string(nil), row.Labels...),
		UpdatedAt: row.UpdatedAt,
	}
}

// issueID mints the stable id for a grouped-section item.
func issueID(sourceID string, number int) string {
	return fmt.Sprintf("issue:%s#%d", sourceID, number)
}

// taskID mints the stable id for a stream item.
func taskID(streamID string, number int) string {
	return fmt.Sprintf("task:%s:%d", streamID, number)
}

// removeLabel drops a label case-insensitively, preserving order.
func removeLabel(labels []string, label string) []string {
	out := labels[:0:0]
	for _, existing := range labels {
		if strings.EqualFold(existing, label) {
			continue
		}
		out = append(out, existing)
	}
	return out
}
