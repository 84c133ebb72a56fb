package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/sajidahmed66/company-vessels/internal/store"
)

func TestNextPendingReturnsOldestEntry(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	queue, err := NewDirectoryStore(mock)
	require.NoError(t, err)

	createdAt := time.Unix(1700000000, 0).UTC()

	rows := pgxmock.NewRows([]string{
		"id", "company_name", "country_name", "fleet_size", "company_title",
		"source_url", "status", "note", "created_at", "updated_at",
	}).AddRow(
		int64(3), "Neptune Navigators S.A.", "Panama", "12 Vessels",
		"Neptune Navigators S.A. - Ship Owner",
		"https://magicport.ai/owners-managers/panama/neptune-navigators-sa",
		store.DirectoryPending, "", createdAt, createdAt,
	)

	mock.ExpectQuery("SELECT (.+) FROM companies_directory").
		WithArgs(store.DirectoryPending).
		WillReturnRows(rows)

	entry, err := queue.NextPending(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), entry.ID)
	require.Equal(t, "Neptune Navigators S.A.", entry.CompanyName)
	require.Equal(t, "12 Vessels", entry.FleetSize)
	require.Equal(t, store.DirectoryPending, entry.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNextPendingDrainedQueue(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	queue, err := NewDirectoryStore(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM companies_directory").
		WithArgs(store.DirectoryPending).
		WillReturnError(pgx.ErrNoRows)

	_, err = queue.NextPending(context.Background())
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkProcessed(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	queue, err := NewDirectoryStore(mock)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE companies_directory").
		WithArgs(store.DirectoryProcessed, int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, queue.MarkProcessed(context.Background(), 3))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkFailedStoresNote(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	queue, err := NewDirectoryStore(mock)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE companies_directory").
		WithArgs(store.DirectoryFailed, "page not found", int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, queue.MarkFailed(context.Background(), 3, "page not found"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertEntriesKeyedBySourceURL(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	queue, err := NewDirectoryStore(mock)
	require.NoError(t, err)

	entries := []store.DirectoryEntry{
		{
			CompanyName:  "Neptune Navigators S.A.",
			CountryName:  "Panama",
			FleetSize:    "12 Vessels",
			CompanyTitle: "Neptune Navigators S.A. - Ship Owner",
			SourceURL:    "https://magicport.ai/owners-managers/panama/neptune-navigators-sa",
		},
		{
			CompanyName: "Han River Shipping",
			CountryName: "South Korea",
			SourceURL:   "https://magicport.ai/owners-managers/south-korea/han-river-shipping",
		},
	}

	for _, e := range entries {
		mock.ExpectExec("INSERT INTO companies_directory").
			WithArgs(e.CompanyName, e.CountryName, e.FleetSize, e.CompanyTitle, e.SourceURL).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	require.NoError(t, queue.UpsertEntries(context.Background(), entries))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertEntriesRejectsMissingSourceURL(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	queue, err := NewDirectoryStore(mock)
	require.NoError(t, err)

	err = queue.UpsertEntries(context.Background(), []store.DirectoryEntry{{CompanyName: "No URL"}})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
