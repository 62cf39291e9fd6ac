// Package extract turns a company profile page into a domain.CompanyRecord.
//
// Passes run in a fixed order and only fill fields that are still empty,
// except where a later pass merges (industries) or classifies (status, stage):
//
//	organization JSON-LD -> anchors -> meta tags -> status/stage ->
//	funding and investors -> locations -> industries
package extract

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"dealroom-scraper/internal/domain"
)

type Extractor struct {
	log *slog.Logger
}

// New returns an Extractor logging to log, or to slog.Default when log is nil.
func New(log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{log: log}
}

// Extract runs every pass over html. It never fails: unparseable input or a
// panic in a pass yields a record holding only the default status and
// sourceURL.
func Extract(html, sourceURL string) domain.CompanyRecord {
	return New(nil).Extract(html, sourceURL)
}

func (e *Extractor) Extract(html, sourceURL string) (rec domain.CompanyRecord) {
	rec = minimalRecord(sourceURL)
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("extract: recovered from panic", "url", sourceURL, "panic", r)
			rec = minimalRecord(sourceURL)
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.log.Warn("extract: parse html", "url", sourceURL, "err", err)
		return rec
	}

	if org := findOrganization(doc, e.log); org != nil {
		e.log.Debug("extract: organization block found", "url", sourceURL)
		applyOrganization(&rec, org)
	}
	applyAnchors(&rec, doc)
	applyMeta(&rec, doc)

	rec.CompanyStatus, rec.GrowthStage = classify(visibleText(doc))

	scripts := collectScripts(doc)
	harvestFunding(&rec, scripts)
	harvestLocations(&rec, scripts)
	harvestIndustries(&rec, scripts)

	return rec
}

func minimalRecord(sourceURL string) domain.CompanyRecord {
	return domain.CompanyRecord{
		CompanyStatus: domain.StatusOperational,
		RawSourceURL:  sourceURL,
	}
}
