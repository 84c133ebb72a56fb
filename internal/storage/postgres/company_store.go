package postgres

import (
	"context"
	"fmt"

	"github.com/sajidahmed66/company-vessels/internal/scraper"
)

// CompanyStore upserts company rows keyed by their stored display name.
type CompanyStore struct {
	pool Pool
}

// NewCompanyStore wires a store to the shared pool.
func NewCompanyStore(pool Pool) (*CompanyStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &CompanyStore{pool: pool}, nil
}

// UpsertCompany inserts the company or refreshes the mutable columns of the
// row carrying the same name, returning the row id either way.
func (s *CompanyStore) UpsertCompany(ctx context.Context, info scraper.CompanyInfo) (int64, error) {
	if info.Name == "" {
		return 0, fmt.Errorf("company name is required")
	}
	query := `
		INSERT INTO companies (name, country, address, website, total_dwt, fleet_count, source_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name) DO UPDATE SET
			country = EXCLUDED.country,
			address = EXCLUDED.address,
			website = EXCLUDED.website,
			total_dwt = EXCLUDED.total_dwt,
			fleet_count = EXCLUDED.fleet_count,
			source_url = EXCLUDED.source_url,
			updated_at = NOW()
		RETURNING id;
	`
	var id int64
	err := s.pool.QueryRow(ctx, query,
		info.Name,
		info.Country,
		info.Address,
		info.Website,
		info.TotalDWT,
		info.FleetCount,
		info.SourceURL,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert company: %w", err)
	}
	return id, nil
}
