package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"dealroom-scraper/internal/domain"
)

func applyMeta(rec *domain.CompanyRecord, doc *goquery.Document) {
	if rec.About == "" {
		rec.About = firstAttr(doc, "content",
			`meta[name="description"]`,
			`meta[property="og:description"]`,
		)
	}
	if rec.WebsiteURL == "" {
		rec.WebsiteURL = firstAttr(doc, "href", `link[rel~="canonical"]`)
	}
	if rec.WebsiteURL == "" {
		rec.WebsiteURL = firstAttr(doc, "content", `meta[property="og:url"]`)
	}
}

// firstAttr returns the trimmed attr of the first element of the first
// selector that has a non-blank value.
func firstAttr(doc *goquery.Document, attr string, selectors ...string) string {
	for _, sel := range selectors {
		if v := strings.TrimSpace(doc.Find(sel).First().AttrOr(attr, "")); v != "" {
			return v
		}
	}
	return ""
}
