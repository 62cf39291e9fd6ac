package httpapi

import (
	"context"
	"database/sql"
	"log/slog"

	"dealroom-scraper/internal/extract"
	"dealroom-scraper/internal/fetch"
)

type Fetcher interface {
	Fetch(ctx context.Context, identifier string) (fetch.Page, error)
}

type Deps struct {
	Fetcher   Fetcher
	Extractor *extract.Extractor

	// DB is optional. When set, fetched records are stored and /records is served.
	DB *sql.DB

	RunID string
	Log   *slog.Logger
}
