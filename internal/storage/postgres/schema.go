package postgres

import (
	"context"
	"fmt"
)

// schemaStatements bootstrap the four tables the stores expect. Every
// statement is idempotent, so EnsureSchema is safe to run on each startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS companies (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		country TEXT,
		address TEXT NOT NULL,
		website TEXT,
		total_dwt TEXT,
		fleet_count TEXT,
		source_url TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS vessels (
		id BIGSERIAL PRIMARY KEY,
		company_id BIGINT NOT NULL REFERENCES companies (id),
		imo BIGINT NOT NULL UNIQUE,
		mmsi BIGINT,
		name TEXT,
		vessel_type TEXT,
		core_type_key TEXT,
		core_type_name TEXT,
		flag TEXT,
		dwt TEXT,
		last_position_update TEXT,
		registered_owner TEXT,
		registered_owner_company_imo BIGINT,
		registered_owner_company_country_slug TEXT,
		registered_owner_company_name_slug TEXT,
		registered_owner_total_distinct_vessels INT,
		commercial_manager TEXT,
		commercial_manager_company_imo BIGINT,
		commercial_manager_company_country_slug TEXT,
		commercial_manager_company_name_slug TEXT,
		commercial_manager_total_distinct_vessels INT,
		ism_manager TEXT,
		ism_manager_company_imo BIGINT,
		ism_manager_company_country_slug TEXT,
		ism_manager_company_name_slug TEXT,
		ism_manager_total_distinct_vessels INT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_vessels_company_id ON vessels (company_id);`,
	`CREATE INDEX IF NOT EXISTS idx_vessels_mmsi ON vessels (mmsi);`,
	`CREATE TABLE IF NOT EXISTS companies_directory (
		id BIGSERIAL PRIMARY KEY,
		company_name TEXT NOT NULL DEFAULT '',
		country_name TEXT NOT NULL DEFAULT '',
		fleet_size TEXT NOT NULL DEFAULT '',
		company_title TEXT NOT NULL DEFAULT '',
		source_url TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'pending',
		note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_companies_directory_status ON companies_directory (status);`,
	`CREATE TABLE IF NOT EXISTS scrape_runs (
		run_id UUID PRIMARY KEY,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		status TEXT NOT NULL,
		companies_processed BIGINT NOT NULL DEFAULT 0,
		companies_failed BIGINT NOT NULL DEFAULT 0,
		vessels_inserted BIGINT NOT NULL DEFAULT 0,
		vessels_updated BIGINT NOT NULL DEFAULT 0,
		error_message TEXT
	);`,
}

// EnsureSchema creates the tables and indexes used by the stores.
func EnsureSchema(ctx context.Context, pool Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}
