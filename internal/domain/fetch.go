package domain

import "time"

// RawSection is one data source's payload before grouping: a flat item
// list plus optional explicit group definitions. Each definition is a
// comma-separated list of status names merged under one group whose
// label is the first name. FetchErr short-circuits grouping for the
// section and renders an error placeholder instead.
type RawSection struct {
	SourceID string
	Name     string
	Items    []Item
	Groups   []string
	FetchErr string
}

// RawStream is one ungrouped flat item stream (e.g. an external task
// list or an activity feed) rendered after the sections.
type RawStream struct {
	ID    string
	Name  string
	Items []Item
}

// FetchResult is the full payload of one data-provider fetch.
type FetchResult struct {
	Sections  []RawSection
	Streams   []RawStream
	FetchedAt time.Time
}
