package domain

import (
	"strings"
	"time"
)

// Item represents one tracked entity (an issue or an external task) as
// delivered by a data provider. IDs are content-derived by the provider
// (e.g. "issue:owner/repo#42", "task:8831") and stay stable across
// fetches as long as the underlying entity is unchanged.
type Item struct {
	ID        string
	SourceID  string
	Number    int
	Title     string
	Body      string
	URL       string
	Status    string
	Assignee  string
	Labels    []string
	UpdatedAt time.Time
}

// ItemInput carries the fields a caller supplies when creating an item.
type ItemInput struct {
	ID       string
	SourceID string
	Title    string
	Body     string
	Status   string
	Labels   []string
}

// NewItem constructs a new value for this package.
func NewItem(in ItemInput, now time.Time) (Item, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.SourceID = strings.TrimSpace(in.SourceID)
	in.Title = strings.TrimSpace(in.Title)

	if in.ID == "" {
		return Item{}, ErrInvalidID
	}
	if in.SourceID == "" {
		return Item{}, ErrInvalidSource
	}
	if in.Title == "" {
		return Item{}, ErrInvalidTitle
	}

	return Item{
		ID:        in.ID,
		SourceID:  in.SourceID,
		Title:     in.Title,
		Body:      in.Body,
		Status:    strings.TrimSpace(in.Status),
		Labels:    normalizeLabels(in.Labels),
		UpdatedAt: now.UTC(),
	}, nil
}

// Comment represents one discussion comment fetched on demand for an item.
type Comment struct {
	ID        string
	Author    string
	Body      string
	CreatedAt time.Time
}

// NormalizeStatus folds a raw status value for matching: grouping treats
// status values case- and whitespace-insensitively.
func NormalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// priorityRanks orders label-derived priorities; unknown labels rank last.
var priorityRanks = map[string]int{
	"urgent":          0,
	"priority:urgent": 0,
	"high":            1,
	"priority:high":   1,
	"medium":          2,
	"priority:medium": 2,
	"low":             3,
	"priority:low":    3,
}

// priorityRankDefault sorts unlabeled items after every ranked one.
const priorityRankDefault = 4

// PriorityRank derives a sort rank from an item's labels. The best
// (lowest) rank among the labels wins; items without a priority label
// keep the default rank so they sort last within their group.
func PriorityRank(labels []string) int {
	rank := priorityRankDefault
	for _, label := range labels {
		if r, ok := priorityRanks[strings.ToLower(strings.TrimSpace(label))]; ok && r < rank {
			rank = r
		}
	}
	return rank
}

// normalizeLabels trims, drops empties, and deduplicates label values.
func normalizeLabels(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		key := strings.ToLower(label)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, label)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
