// Package memory provides an in-memory work queue for single-shot scrapes.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sajidahmed66/company-vessels/internal/store"
)

// Queue is an in-memory store.DirectoryQueue seeded up front. It backs the
// single-URL scrape mode, where no database queue is involved, and keeps the
// runner loop identical in both modes.
type Queue struct {
	mu      sync.Mutex
	entries []store.DirectoryEntry
	nextID  int64
}

// NewQueue seeds a queue with one pending entry per URL.
func NewQueue(urls ...string) *Queue {
	q := &Queue{}
	now := time.Now().UTC()
	for _, u := range urls {
		q.nextID++
		q.entries = append(q.entries, store.DirectoryEntry{
			ID:        q.nextID,
			SourceURL: u,
			Status:    store.DirectoryPending,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return q
}

// NextPending returns the lowest-id pending entry or store.ErrNotFound when
// the queue is drained.
func (q *Queue) NextPending(ctx context.Context) (store.DirectoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return store.DirectoryEntry{}, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, entry := range q.entries {
		if entry.Status == store.DirectoryPending {
			return entry, nil
		}
	}
	return store.DirectoryEntry{}, store.ErrNotFound
}

// MarkProcessed flips the entry to processed.
func (q *Queue) MarkProcessed(_ context.Context, id int64) error {
	return q.setStatus(id, store.DirectoryProcessed, "")
}

// MarkFailed flips the entry to failed and records the diagnostic.
func (q *Queue) MarkFailed(_ context.Context, id int64, note string) error {
	return q.setStatus(id, store.DirectoryFailed, note)
}

// UpsertEntries appends entries that are not yet known, keyed by source URL.
func (q *Queue) UpsertEntries(_ context.Context, entries []store.DirectoryEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now().UTC()
	for _, entry := range entries {
		if entry.SourceURL == "" {
			return fmt.Errorf("directory entry source url is required")
		}
		if idx := q.indexBySourceURL(entry.SourceURL); idx >= 0 {
			q.entries[idx].CompanyName = entry.CompanyName
			q.entries[idx].CountryName = entry.CountryName
			q.entries[idx].FleetSize = entry.FleetSize
			q.entries[idx].CompanyTitle = entry.CompanyTitle
			q.entries[idx].UpdatedAt = now
			continue
		}
		q.nextID++
		entry.ID = q.nextID
		entry.Status = store.DirectoryPending
		entry.CreatedAt = now
		entry.UpdatedAt = now
		q.entries = append(q.entries, entry)
	}
	return nil
}

// Snapshot returns a copy of all entries with their current statuses.
func (q *Queue) Snapshot() []store.DirectoryEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]store.DirectoryEntry(nil), q.entries...)
}

func (q *Queue) setStatus(id int64, status store.DirectoryStatus, note string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.entries {
		if q.entries[i].ID == id {
			q.entries[i].Status = status
			q.entries[i].Note = note
			q.entries[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("entry %d not found", id)
}

func (q *Queue) indexBySourceURL(sourceURL string) int {
	for i := range q.entries {
		if q.entries[i].SourceURL == sourceURL {
			return i
		}
	}
	return -1
}
