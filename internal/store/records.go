package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dealroom-scraper/internal/domain"
)

// UpsertRecord stores rec under its RawSourceURL, replacing an earlier scrape.
func UpsertRecord(ctx context.Context, db *sql.DB, runID string, rec domain.CompanyRecord, at time.Time) error {
	if rec.RawSourceURL == "" {
		return errors.New("upsert record: empty raw_source_url")
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	status := rec.CompanyStatus
	if status == "" {
		status = domain.StatusOperational
	}

	_, err = db.ExecContext(ctx, `
INSERT INTO companies (source_url, website_url, company_status, record, run_id, scraped_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(source_url) DO UPDATE SET
  website_url = excluded.website_url,
  company_status = excluded.company_status,
  record = excluded.record,
  run_id = excluded.run_id,
  scraped_at = excluded.scraped_at;`,
		rec.RawSourceURL, rec.WebsiteURL, string(status), string(b), runID, at.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// GetRecord returns the stored record for sourceURL; ok is false when absent.
func GetRecord(ctx context.Context, db *sql.DB, sourceURL string) (rec domain.CompanyRecord, ok bool, err error) {
	var raw string
	err = db.QueryRowContext(ctx, `SELECT record FROM companies WHERE source_url = ?;`, sourceURL).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, err
	}
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return rec, false, fmt.Errorf("decode record %s: %w", sourceURL, err)
	}
	return rec, true, nil
}

// ListRecords returns stored records, most recently scraped first.
func ListRecords(ctx context.Context, db *sql.DB, limit int) ([]domain.CompanyRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `
SELECT record FROM companies
ORDER BY scraped_at DESC, source_url ASC
LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CompanyRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var rec domain.CompanyRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	Identifiers int
	Records     int
	Output      string
}

func InsertRun(ctx context.Context, db *sql.DB, r Run) error {
	_, err := db.ExecContext(ctx, `
INSERT OR REPLACE INTO scrape_runs (run_id, started_at, finished_at, identifiers, records, output)
VALUES (?, ?, ?, ?, ?, ?);`,
		r.ID, r.StartedAt.UTC().Format(time.RFC3339), r.FinishedAt.UTC().Format(time.RFC3339),
		r.Identifiers, r.Records, r.Output)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func LastRun(ctx context.Context, db *sql.DB) (Run, bool, error) {
	var r Run
	var started, finished string
	err := db.QueryRowContext(ctx, `
SELECT run_id, started_at, finished_at, identifiers, records, output
FROM scrape_runs
ORDER BY finished_at DESC
LIMIT 1;`).Scan(&r.ID, &started, &finished, &r.Identifiers, &r.Records, &r.Output)
	if errors.Is(err, sql.ErrNoRows) {
		return r, false, nil
	}
	if err != nil {
		return r, false, err
	}
	r.StartedAt, _ = time.Parse(time.RFC3339, started)
	r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
	return r, true, nil
}
