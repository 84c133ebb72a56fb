package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sajidahmed66/company-vessels/internal/store"
)

// DirectoryStore implements the store.DirectoryQueue interface using Postgres.
type DirectoryStore struct {
	pool Pool
}

// NewDirectoryStore wires a store to the shared pool.
func NewDirectoryStore(pool Pool) (*DirectoryStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &DirectoryStore{pool: pool}, nil
}

// NextPending returns the lowest-id pending entry or store.ErrNotFound when
// the queue is drained.
func (s *DirectoryStore) NextPending(ctx context.Context) (store.DirectoryEntry, error) {
	query := `
		SELECT id, company_name, country_name, fleet_size, company_title,
			source_url, status, note, created_at, updated_at
		FROM companies_directory
		WHERE status = $1
		ORDER BY id
		LIMIT 1;
	`
	var entry store.DirectoryEntry
	err := s.pool.QueryRow(ctx, query, store.DirectoryPending).Scan(
		&entry.ID,
		&entry.CompanyName,
		&entry.CountryName,
		&entry.FleetSize,
		&entry.CompanyTitle,
		&entry.SourceURL,
		&entry.Status,
		&entry.Note,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.DirectoryEntry{}, store.ErrNotFound
		}
		return store.DirectoryEntry{}, fmt.Errorf("next pending entry: %w", err)
	}
	return entry, nil
}

// MarkProcessed flips an entry to processed.
func (s *DirectoryStore) MarkProcessed(ctx context.Context, id int64) error {
	query := `UPDATE companies_directory SET status = $1, updated_at = NOW() WHERE id = $2;`
	if _, err := s.pool.Exec(ctx, query, store.DirectoryProcessed, id); err != nil {
		return fmt.Errorf("mark entry %d processed: %w", id, err)
	}
	return nil
}

// MarkFailed flips an entry to failed and records the diagnostic.
func (s *DirectoryStore) MarkFailed(ctx context.Context, id int64, note string) error {
	query := `UPDATE companies_directory SET status = $1, note = $2, updated_at = NOW() WHERE id = $3;`
	if _, err := s.pool.Exec(ctx, query, store.DirectoryFailed, note, id); err != nil {
		return fmt.Errorf("mark entry %d failed: %w", id, err)
	}
	return nil
}

// UpsertEntries inserts new entries as pending and refreshes the descriptive
// columns of known ones, keyed by source URL. Status and note are left alone
// on refresh so a processed entry does not return to the queue.
func (s *DirectoryStore) UpsertEntries(ctx context.Context, entries []store.DirectoryEntry) error {
	query := `
		INSERT INTO companies_directory (company_name, country_name, fleet_size, company_title, source_url)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (source_url) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			country_name = EXCLUDED.country_name,
			fleet_size = EXCLUDED.fleet_size,
			company_title = EXCLUDED.company_title,
			updated_at = NOW();
	`
	for _, entry := range entries {
		if entry.SourceURL == "" {
			return fmt.Errorf("directory entry source url is required")
		}
		_, err := s.pool.Exec(ctx, query,
			entry.CompanyName,
			entry.CountryName,
			entry.FleetSize,
			entry.CompanyTitle,
			entry.SourceURL,
		)
		if err != nil {
			return fmt.Errorf("upsert directory entry %q: %w", entry.SourceURL, err)
		}
	}
	return nil
}
