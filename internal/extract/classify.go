package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"dealroom-scraper/internal/domain"
)

// Checked in order against the lower-cased text. Keywords are plain
// substrings, so "undisclosed" counts as closed.
var statusRules = []struct {
	status   domain.CompanyStatus
	keywords []string
}{
	{domain.StatusClosed, []string{"closed", "defunct"}},
	{domain.StatusAcquired, []string{"acquired"}},
	{domain.StatusPublic, []string{"ipo"}},
}

// Checked in order; the first keyword present anywhere in the text wins,
// regardless of where it appears.
var stageKeywords = []struct {
	keyword string
	stage   domain.GrowthStage
}{
	{"pre-seed", domain.StagePreSeed},
	{"seed", domain.StageSeed},
	{"series a", domain.StageEarlyGrowth},
	{"early stage", domain.StageEarlyGrowth},
	{"series b", domain.StageGrowth},
	{"series c", domain.StageLateGrowth},
	{"series d", domain.StageLateGrowth},
	{"late stage", domain.StageLateGrowth},
	{"scaleup", domain.StageScaleup},
}

// classify derives status and growth stage from lower-cased page text.
// Stage is empty when no keyword is present.
func classify(text string) (domain.CompanyStatus, domain.GrowthStage) {
	status := domain.StatusOperational
	for _, r := range statusRules {
		if containsAny(text, r.keywords) {
			status = r.status
			break
		}
	}

	var stage domain.GrowthStage
	for _, kw := range stageKeywords {
		if strings.Contains(text, kw.keyword) {
			stage = kw.stage
			break
		}
	}
	return status, stage
}

var hiddenElements = map[string]bool{
	"script":   true,
	"style":    true,
	"template": true,
}

// visibleText joins the text nodes of the document, collapses every run of
// whitespace (non-breaking spaces included) to a single space and
// lower-cases the result. Script, style and template contents are not text.
func visibleText(doc *goquery.Document) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hiddenElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	joined := strings.ReplaceAll(strings.Join(parts, " "), "\u00a0", " ")
	return strings.ToLower(strings.Join(strings.Fields(joined), " "))
}
