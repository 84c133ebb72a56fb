package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/sajidahmed66/company-vessels/internal/scraper"
)

func TestUpsertCompanyReturnsRowID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	companies, err := NewCompanyStore(mock)
	require.NoError(t, err)

	info := scraper.CompanyInfo{
		Name:       "Neptune Navigators S.A.",
		Country:    "Panama",
		Address:    "Calle 50, Panama City",
		Website:    "https://neptune-navigators.example",
		TotalDWT:   "845200",
		FleetCount: "12",
		SourceURL:  "https://magicport.ai/owners-managers/panama/neptune-navigators-sa",
	}

	mock.ExpectQuery("INSERT INTO companies").
		WithArgs(
			info.Name,
			info.Country,
			info.Address,
			info.Website,
			info.TotalDWT,
			info.FleetCount,
			info.SourceURL,
		).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := companies.UpsertCompany(context.Background(), info)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertCompanyRequiresName(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	companies, err := NewCompanyStore(mock)
	require.NoError(t, err)

	_, err = companies.UpsertCompany(context.Background(), scraper.CompanyInfo{})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewCompanyStoreRequiresPool(t *testing.T) {
	t.Parallel()

	_, err := NewCompanyStore(nil)
	require.Error(t, err)
}
