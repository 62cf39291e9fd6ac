package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dealroom-scraper/internal/domain"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTest(t)
	require.NoError(t, Migrate(db.Pool))
	require.NoError(t, Migrate(db.Pool))
}

func TestUpsertAndGetRecord(t *testing.T) {
	ctx := context.Background()
	db := openTest(t)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	rec := domain.CompanyRecord{
		About:         "first",
		CompanyStatus: domain.StatusOperational,
		Industries:    []string{"adtech"},
		RawSourceURL:  "https://app.dealroom.co/companies/vibe",
	}
	require.NoError(t, UpsertRecord(ctx, db.Pool, "run-1", rec, at))

	rec.About = "second"
	rec.CompanyStatus = domain.StatusAcquired
	require.NoError(t, UpsertRecord(ctx, db.Pool, "run-2", rec, at.Add(time.Hour)))

	got, ok, err := GetRecord(ctx, db.Pool, rec.RawSourceURL)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rec, got)

	var n int
	require.NoError(t, db.Pool.QueryRow(`SELECT COUNT(*) FROM companies;`).Scan(&n))
	require.Equal(t, 1, n)

	_, ok, err = GetRecord(ctx, db.Pool, "https://nope")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUpsertRejectsMissingSource(t *testing.T) {
	db := openTest(t)
	err := UpsertRecord(context.Background(), db.Pool, "run", domain.CompanyRecord{}, time.Now())
	require.Error(t, err)
}

func TestListRecordsNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := openTest(t)
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, u := range []string{"https://a", "https://b", "https://c"} {
		rec := domain.CompanyRecord{CompanyStatus: domain.StatusOperational, RawSourceURL: u}
		require.NoError(t, UpsertRecord(ctx, db.Pool, "run", rec, base.Add(time.Duration(i)*time.Minute)))
	}

	got, err := ListRecords(ctx, db.Pool, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "https://c", got[0].RawSourceURL)
	require.Equal(t, "https://b", got[1].RawSourceURL)
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	db := openTest(t)

	_, ok, err := LastRun(ctx, db.Pool)
	require.NoError(t, err)
	require.False(t, ok)

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, InsertRun(ctx, db.Pool, Run{ID: "r1", StartedAt: start, FinishedAt: start.Add(time.Minute), Identifiers: 3, Records: 2, Output: "out.json"}))
	require.NoError(t, InsertRun(ctx, db.Pool, Run{ID: "r2", StartedAt: start.Add(time.Hour), FinishedAt: start.Add(2 * time.Hour), Identifiers: 1, Records: 1}))

	last, ok, err := LastRun(ctx, db.Pool)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "r2", last.ID)
	require.Equal(t, start.Add(2*time.Hour), last.FinishedAt)
	require.Equal(t, 1, last.Records)
}
