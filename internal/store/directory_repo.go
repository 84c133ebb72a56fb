package store

import (
	"context"
	"time"
)

// DirectoryStatus mirrors the companies_directory status column.
type DirectoryStatus string

// Directory entry statuses persisted in companies_directory.status.
const (
	DirectoryPending   DirectoryStatus = "pending"
	DirectoryProcessed DirectoryStatus = "processed"
	DirectoryFailed    DirectoryStatus = "failed"
)

// DirectoryEntry models one harvested company listing. SourceURL is the
// unique key; the harvester refreshes the descriptive columns on re-crawl
// without resetting a processed entry back to pending.
type DirectoryEntry struct {
	ID          int64
	CompanyName string
	CountryName string
	// FleetSize holds the listing badge verbatim (e.g. "12 Vessels").
	FleetSize    string
	CompanyTitle string
	SourceURL    string
	Status       DirectoryStatus
	// Note carries the failure diagnostic for failed entries.
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DirectoryQueue is the work queue behind the batch runner: harvested entries
// go in pending, the runner drains them lowest id first.
type DirectoryQueue interface {
	// NextPending returns the lowest-id pending entry or ErrNotFound when the
	// queue is drained.
	NextPending(ctx context.Context) (DirectoryEntry, error)
	// MarkProcessed flips the entry to processed.
	MarkProcessed(ctx context.Context, id int64) error
	// MarkFailed flips the entry to failed and records the diagnostic.
	MarkFailed(ctx context.Context, id int64, note string) error
	// UpsertEntries inserts new entries as pending and refreshes the
	// descriptive columns of known ones, keyed by source URL.
	UpsertEntries(ctx context.Context, entries []DirectoryEntry) error
}
