package filesource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/raklev/havik/internal/app"
	"github.com/raklev/havik/internal/domain"
)

// fixtureBoard is a small board with one grouped section and one stream.
const fixtureBoard = `{
  "sections": [
    {
      "id": "acme/api",
      "name": "API",
      "groups": ["Todo,Backlog", "In Progress"],
      "items": [
        {"number": 1, "title": "Fix login", "status": "Todo", "labels": ["bug"]},
        {"number": 2, "title": "Ship v2", "status": "In Progress", "assignee": "octocat"},
        {"number": 3, "title": "Old work", "status": "Done", "closed": true}
      ]
    }
  ],
  "streams": [
    {
      "id": "inbox",
      "name": "Inbox",
      "items": [
        {"number": 7, "title": "Renew certs"}
      ]
    }
  ]
}`

func writeFixture(t *testing.T) *Provider {
	t.Helper()
	path := filepath.Join(t.TempDir(), "board.json")
	if err := os.WriteFile(path, []byte(fixtureBoard), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	p, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestFetchConvertsSectionsAndStreams(t *testing.T) {
	p := writeFixture(t)
	result, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(result.Sections) != 1 || len(result.Streams) != 1 {
		t.Fatalf("unexpected shape: %d sections, %d streams", len(result.Sections), len(result.Streams))
	}

	sec := result.Sections[0]
	if sec.SourceID != "acme/api" || len(sec.Groups) != 2 {
		t.Fatalf("unexpected section %+v", sec)
	}
	if len(sec.Items) != 2 {
		t.Fatalf("expected closed item dropped, got %d items", len(sec.Items))
	}
	if sec.Items[0].ID != "issue:acme/api#1" {
		t.Fatalf("unexpected item id %q", sec.Items[0].ID)
	}
	if result.Streams[0].Items[0].ID != "task:inbox:7" {
		t.Fatalf("unexpected stream item id %q", result.Streams[0].Items[0].ID)
	}
}

func TestSetStatusPersistsAndUndoRestores(t *testing.T) {
	ctx := context.Background()
	p := writeFixture(t)
	ref := app.ItemRef{SourceID: "acme/api", ID: "issue:acme/api#1"}

	res, err := p.SetStatus(ctx, ref, "In Progress")
	if err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	if res.Undo == nil {
		t.Fatal("expected undo callable")
	}

	result, err := p.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := result.Sections[0].Items[0].Status; got != "In Progress" {
		t.Fatalf("expected persisted status, got %q", got)
	}

	if err := res.Undo(ctx); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	result, err = p.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch() after undo error = %v", err)
	}
	if got := result.Sections[0].Items[0].Status; got != "Todo" {
		t.Fatalf("expected status restored, got %q", got)
	}
}

func TestLabelMutationsValidate(t *testing.T) {
	ctx := context.Background()
	p := writeFixture(t)
	ref := app.ItemRef{SourceID: "acme/api", ID: "issue:acme/api#1"}

	if _, err := p.AddLabel(ctx, ref, "Bug"); err == nil {
		t.Fatal("expected duplicate label rejection")
	}
	if _, err := p.RemoveLabel(ctx, ref, "missing"); err == nil {
		t.Fatal("expected missing label rejection")
	}
	if _, err := p.AddLabel(ctx, ref, "urgent"); err != nil {
		t.Fatalf("AddLabel() error = %v", err)
	}

	result, err := p.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	labels := result.Sections[0].Items[0].Labels
	if len(labels) != 2 || labels[1] != "urgent" {
		t.Fatalf("unexpected labels %v", labels)
	}
}

func TestCloseItemDropsFromFetchAndUndoReopens(t *testing.T) {
	ctx := context.Background()
	p := writeFixture(t)
	ref := app.ItemRef{SourceID: "acme/api", ID: "issue:acme/api#2"}

	res, err := p.CloseItem(ctx, ref)
	if err != nil {
		t.Fatalf("CloseItem() error = %v", err)
	}
	result, err := p.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(result.Sections[0].Items) != 1 {
		t.Fatalf("expected closed item dropped, got %d", len(result.Sections[0].Items))
	}

	if err := res.Undo(ctx); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	result, err = p.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch() after undo error = %v", err)
	}
	if len(result.Sections[0].Items) != 2 {
		t.Fatalf("expected item reopened, got %d", len(result.Sections[0].Items))
	}
}

func TestCreateItemMintsNextNumber(t *testing.T) {
	ctx := context.Background()
	p := writeFixture(t)

	item, _, err := p.CreateItem(ctx, "acme/api", domain.ItemInput{Title: "New work", Status: "Todo"})
	if err != nil {
		t.Fatalf("CreateItem() error = %v", err)
	}
	if item.ID != "issue:acme/api#4" {
		t.Fatalf("unexpected minted id %q", item.ID)
	}
	if item.Number != 4 {
		t.Fatalf("unexpected number %d", item.Number)
	}
}

func TestCommentsRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := writeFixture(t)
	ref := app.ItemRef{SourceID: "acme/api", ID: "issue:acme/api#1"}

	if _, err := p.AddComment(ctx, ref, "On it."); err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}
	comments, err := p.Comments(ctx, ref)
	if err != nil {
		t.Fatalf("Comments() error = %v", err)
	}
	if len(comments) != 1 || comments[0].Body != "On it." {
		t.Fatalf("unexpected comments %+v", comments)
	}
}

func TestMutateUnknownItemFails(t *testing.T) {
	p := writeFixture(t)
	_, err := p.SetStatus(context.Background(), app.ItemRef{SourceID: "acme/api", ID: "issue:acme/api#99"}, "Done")
	if err == nil {
		t.Fatal("expected error for unknown item")
	}
}

func TestSeedWritesStarterBoard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.json")
	sources := []SeedSource{
		{ID: "acme/api", Name: "API", Kind: "repo", Groups: []string{"Todo,Backlog"}},
		{ID: "inbox", Kind: "stream"},
	}
	if err := Seed(path, sources); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	p, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	res, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(res.Sections) != 1 || res.Sections[0].SourceID != "acme/api" {
		t.Fatalf("unexpected sections %+v", res.Sections)
	}
	if len(res.Streams) != 1 || res.Streams[0].ID != "inbox" {
		t.Fatalf("unexpected streams %+v", res.Streams)
	}
}

func TestSeedKeepsExistingFile(t *testing.T) {
	p := writeFixture(t)
	if err := Seed(p.path, nil); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	res, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(res.Sections) == 0 {
		t.Fatal("expected existing board to survive seeding")
	}
}

func TestSetStatusRejectsBlankStatus(t *testing.T) {
	p := writeFixture(t)
	ref := app.ItemRef{SourceID: "acme/api", ID: "issue:acme/api#1"}
	_, err := p.SetStatus(context.Background(), ref, "   ")
	if !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}
