package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/jackc/pgx/v5"

	"github.com/sajidahmed66/company-vessels/internal/scraper"
)

// VesselStore reconciles fleet rows against the globally keyed vessels table.
type VesselStore struct {
	pool Pool
}

// NewVesselStore wires a store to the shared pool.
func NewVesselStore(pool Pool) (*VesselStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &VesselStore{pool: pool}, nil
}

// UpsertVessels reconciles one company's fleet rows in a single transaction.
// The register number is the global business key: an unknown number inserts a
// row owned by companyID, a known one has its attribute columns overwritten in
// place. Ownership only moves to companyID when the row's claimed registered
// owner matches companyName (case-insensitive, whitespace ignored). Rows
// without a register number are skipped.
func (s *VesselStore) UpsertVessels(
	ctx context.Context,
	companyID int64,
	companyName string,
	records []scraper.VesselRecord,
) (scraper.UpsertResult, error) {
	var res scraper.UpsertResult
	if len(records) == 0 {
		return res, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return scraper.UpsertResult{}, fmt.Errorf("begin vessel batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, rec := range records {
		if rec.IMO == 0 {
			res.Skipped++
			continue
		}

		var existingID int64
		err := tx.QueryRow(ctx, `SELECT id FROM vessels WHERE imo = $1;`, rec.IMO).Scan(&existingID)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			if err := insertVessel(ctx, tx, companyID, rec); err != nil {
				return scraper.UpsertResult{}, err
			}
			res.Inserted++
		case err != nil:
			return scraper.UpsertResult{}, fmt.Errorf("look up vessel %d: %w", rec.IMO, err)
		default:
			if err := updateVessel(ctx, tx, existingID, companyID, companyName, rec); err != nil {
				return scraper.UpsertResult{}, err
			}
			res.Updated++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return scraper.UpsertResult{}, fmt.Errorf("commit vessel batch: %w", err)
	}
	return res, nil
}

func insertVessel(ctx context.Context, tx pgx.Tx, companyID int64, rec scraper.VesselRecord) error {
	query := `
		INSERT INTO vessels (
			company_id, imo, mmsi, name, vessel_type, core_type_key, core_type_name,
			flag, dwt, last_position_update,
			registered_owner, registered_owner_company_imo,
			registered_owner_company_country_slug, registered_owner_company_name_slug,
			registered_owner_total_distinct_vessels,
			commercial_manager, commercial_manager_company_imo,
			commercial_manager_company_country_slug, commercial_manager_company_name_slug,
			commercial_manager_total_distinct_vessels,
			ism_manager, ism_manager_company_imo,
			ism_manager_company_country_slug, ism_manager_company_name_slug,
			ism_manager_total_distinct_vessels
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25
		);
	`
	args := append([]any{companyID, rec.IMO}, vesselArgs(rec)...)
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert vessel %d: %w", rec.IMO, err)
	}
	return nil
}

func updateVessel(
	ctx context.Context,
	tx pgx.Tx,
	existingID int64,
	companyID int64,
	companyName string,
	rec scraper.VesselRecord,
) error {
	if sameOwner(rec.RegisteredOwner.Name, companyName) {
		query := `
			UPDATE vessels SET
				company_id = $1,
				mmsi = $2, name = $3, vessel_type = $4, core_type_key = $5,
				core_type_name = $6, flag = $7, dwt = $8, last_position_update = $9,
				registered_owner = $10, registered_owner_company_imo = $11,
				registered_owner_company_country_slug = $12,
				registered_owner_company_name_slug = $13,
				registered_owner_total_distinct_vessels = $14,
				commercial_manager = $15, commercial_manager_company_imo = $16,
				commercial_manager_company_country_slug = $17,
				commercial_manager_company_name_slug = $18,
				commercial_manager_total_distinct_vessels = $19,
				ism_manager = $20, ism_manager_company_imo = $21,
				ism_manager_company_country_slug = $22,
				ism_manager_company_name_slug = $23,
				ism_manager_total_distinct_vessels = $24,
				updated_at = NOW()
			WHERE id = $25;
		`
		args := append([]any{companyID}, vesselArgs(rec)...)
		args = append(args, existingID)
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("reassign vessel %d: %w", rec.IMO, err)
		}
		return nil
	}

	query := `
		UPDATE vessels SET
			mmsi = $1, name = $2, vessel_type = $3, core_type_key = $4,
			core_type_name = $5, flag = $6, dwt = $7, last_position_update = $8,
			registered_owner = $9, registered_owner_company_imo = $10,
			registered_owner_company_country_slug = $11,
			registered_owner_company_name_slug = $12,
			registered_owner_total_distinct_vessels = $13,
			commercial_manager = $14, commercial_manager_company_imo = $15,
			commercial_manager_company_country_slug = $16,
			commercial_manager_company_name_slug = $17,
			commercial_manager_total_distinct_vessels = $18,
			ism_manager = $19, ism_manager_company_imo = $20,
			ism_manager_company_country_slug = $21,
			ism_manager_company_name_slug = $22,
			ism_manager_total_distinct_vessels = $23,
			updated_at = NOW()
		WHERE id = $24;
	`
	args := append(vesselArgs(rec), existingID)
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update vessel %d: %w", rec.IMO, err)
	}
	return nil
}

// vesselArgs returns the mutable attribute columns in the order shared by the
// insert and update statements.
func vesselArgs(rec scraper.VesselRecord) []any {
	return []any{
		nullableInt64(rec.MMSI),
		rec.Name,
		rec.VesselType,
		rec.CoreTypeKey,
		rec.CoreTypeName,
		rec.Flag,
		rec.DWT,
		rec.LastPositionUpdate,
		rec.RegisteredOwner.Name,
		nullableInt64(rec.RegisteredOwner.CompanyIMO),
		rec.RegisteredOwner.CountrySlug,
		rec.RegisteredOwner.NameSlug,
		nullableInt(rec.RegisteredOwner.TotalDistinctVessels),
		rec.CommercialManager.Name,
		nullableInt64(rec.CommercialManager.CompanyIMO),
		rec.CommercialManager.CountrySlug,
		rec.CommercialManager.NameSlug,
		nullableInt(rec.CommercialManager.TotalDistinctVessels),
		rec.ISMManager.Name,
		nullableInt64(rec.ISMManager.CompanyIMO),
		rec.ISMManager.CountrySlug,
		rec.ISMManager.NameSlug,
		nullableInt(rec.ISMManager.TotalDistinctVessels),
	}
}

// sameOwner compares the row's registered-owner claim against the processing
// company's stored name, ignoring case and all whitespace.
func sameOwner(claimed, companyName string) bool {
	folded := foldName(claimed)
	return folded != "" && folded == foldName(companyName)
}

func foldName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// nullableInt64 maps a zero scalar to NULL. The payload's tolerant decoding
// turns absent numbers into zero, and zero is never a real identifier.
func nullableInt64(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

func nullableInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}
