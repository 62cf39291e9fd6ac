// Package run drives a batch: identifiers in, one record per successfully
// fetched profile out.
package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"dealroom-scraper/internal/domain"
	"dealroom-scraper/internal/extract"
	"dealroom-scraper/internal/fetch"
)

var ErrNoIdentifiers = errors.New("no identifiers to process")

var tracer = otel.Tracer("dealroom-scraper/run")

type Fetcher interface {
	Fetch(ctx context.Context, identifier string) (fetch.Page, error)
}

type Runner struct {
	Fetcher   Fetcher
	Extractor *extract.Extractor
	Workers   int
	Log       *slog.Logger

	// OnRecord, when set, sees every record before it is collected. Its
	// errors are logged and do not drop the record.
	OnRecord func(ctx context.Context, rec domain.CompanyRecord) error
}

func (r *Runner) logger() *slog.Logger {
	if r.Log == nil {
		return slog.Default()
	}
	return r.Log
}

// Run processes every identifier and returns the records that succeeded.
// With one worker or one identifier the order of ids is kept; otherwise
// records arrive in completion order. Failures are logged and skipped.
func (r *Runner) Run(ctx context.Context, ids []string) []domain.CompanyRecord {
	if r.Extractor == nil {
		r.Extractor = extract.New(r.logger())
	}

	var out []domain.CompanyRecord
	if r.Workers <= 1 || len(ids) == 1 {
		for _, id := range ids {
			if rec, ok := r.processOne(ctx, id); ok {
				out = append(out, rec)
			}
		}
		return out
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(r.Workers)
	for _, id := range ids {
		g.Go(func() error {
			rec, ok := r.processOne(ctx, id)
			if ok {
				mu.Lock()
				out = append(out, rec)
				mu.Unlock()
			}
			return nil // best-effort: don't cancel siblings
		})
	}
	_ = g.Wait()
	return out
}

func (r *Runner) processOne(ctx context.Context, identifier string) (rec domain.CompanyRecord, ok bool) {
	log := r.logger()
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || ctx.Err() != nil {
		return rec, false
	}

	ctx, span := tracer.Start(ctx, "process identifier")
	span.SetAttributes(attribute.String("identifier", identifier))
	defer span.End()

	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("panic: %v", p)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.ErrorContext(ctx, "unexpected error processing identifier", "identifier", identifier, "err", err)
			rec, ok = domain.CompanyRecord{}, false
		}
	}()

	page, err := r.Fetcher.Fetch(ctx, identifier)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WarnContext(ctx, "skipping identifier", "identifier", identifier, "url", page.URL, "err", err)
		return rec, false
	}
	if page.HTML == "" {
		log.WarnContext(ctx, "skipping identifier: empty page", "identifier", identifier, "url", page.URL)
		return rec, false
	}

	rec = r.Extractor.Extract(page.HTML, page.URL)
	if r.OnRecord != nil {
		if err := r.OnRecord(ctx, rec); err != nil {
			log.WarnContext(ctx, "record sink failed", "identifier", identifier, "err", err)
		}
	}
	log.InfoContext(ctx, "extracted record", "identifier", identifier, "url", page.URL, "status", rec.CompanyStatus)
	return rec, true
}
