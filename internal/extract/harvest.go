package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"dealroom-scraper/internal/domain"
	"dealroom-scraper/internal/jsondoc"
)

// script is the raw text of one <script> element. It is decoded at most
// once, on first use.
type script struct {
	raw    string
	tried  bool
	value  any
	parsed bool
}

func (s *script) json() (any, bool) {
	if !s.tried {
		s.tried = true
		v, err := jsondoc.Parse(s.raw)
		s.value, s.parsed = v, err == nil
	}
	return s.value, s.parsed
}

func collectScripts(doc *goquery.Document) []*script {
	var out []*script
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		out = append(out, &script{raw: s.Text()})
	})
	return out
}

// eachJSON calls fn with the decoded body of every script whose raw text
// contains one of the markers and decodes as a single JSON value.
func eachJSON(scripts []*script, markers []string, fn func(v any)) {
	for _, s := range scripts {
		if !containsAny(s.raw, markers) {
			continue
		}
		if v, ok := s.json(); ok {
			fn(v)
		}
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// walkObjects visits every object under v depth-first, parents before
// children, keys and list items in document order.
func walkObjects(v any, fn func(o *jsondoc.Object)) {
	switch t := v.(type) {
	case *jsondoc.Object:
		fn(t)
		for _, k := range t.Keys() {
			child, _ := t.Get(k)
			walkObjects(child, fn)
		}
	case []any:
		for _, x := range t {
			walkObjects(x, fn)
		}
	}
}

func objectsIn(o *jsondoc.Object, key string) []*jsondoc.Object {
	list, _ := jsondoc.First(o, key).([]any)
	var out []*jsondoc.Object
	for _, x := range list {
		if obj, ok := x.(*jsondoc.Object); ok {
			out = append(out, obj)
		}
	}
	return out
}

func harvestFunding(rec *domain.CompanyRecord, scripts []*script) {
	var rounds []domain.FundingRound
	var investors []domain.Investor

	eachJSON(scripts, []string{"funding", "investor"}, func(v any) {
		walkObjects(v, func(o *jsondoc.Object) {
			for _, item := range objectsIn(o, "funding_rounds") {
				if r, ok := fundingRound(item); ok {
					rounds = append(rounds, r)
				}
			}
			for _, item := range objectsIn(o, "investors") {
				if inv, ok := investor(item); ok {
					investors = append(investors, inv)
				}
			}
		})
	})

	rec.FundingRounds = dedupRounds(rounds)
	rec.Investors = dedupInvestors(investors)
}

func fundingRound(o *jsondoc.Object) (domain.FundingRound, bool) {
	r := domain.FundingRound{
		Year:     jsondoc.Prune(jsondoc.First(o, "year", "date", "round_year")),
		Round:    jsondoc.Prune(jsondoc.First(o, "round", "type")),
		Amount:   jsondoc.Prune(jsondoc.First(o, "amount", "raised")),
		Currency: jsondoc.Prune(jsondoc.First(o, "currency", "currency_code")),
	}
	list, _ := jsondoc.First(o, "investors").([]any)
	for _, x := range list {
		if !jsondoc.Truthy(x) {
			continue
		}
		if p := jsondoc.Prune(x); p != nil {
			r.Investors = append(r.Investors, p)
		}
	}
	empty := r.Year == nil && r.Round == nil && r.Amount == nil && r.Currency == nil && len(r.Investors) == 0
	return r, !empty
}

func investor(o *jsondoc.Object) (domain.Investor, bool) {
	inv := domain.Investor{
		Name: jsondoc.Text(jsondoc.First(o, "name")),
		Type: jsondoc.Text(jsondoc.First(o, "type")),
		Path: jsondoc.Text(jsondoc.First(o, "path", "slug")),
	}
	return inv, inv.Name != ""
}

func dedupRounds(in []domain.FundingRound) []domain.FundingRound {
	seen := map[string]bool{}
	var out []domain.FundingRound
	for _, r := range in {
		k := strings.Join([]string{
			jsondoc.Key(r.Year), jsondoc.Key(r.Round), jsondoc.Key(r.Amount), jsondoc.Key(r.Currency),
		}, "\x00")
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

func dedupInvestors(in []domain.Investor) []domain.Investor {
	seen := map[string]bool{}
	var out []domain.Investor
	for _, inv := range in {
		if seen[inv.Name] {
			continue
		}
		seen[inv.Name] = true
		out = append(out, inv)
	}
	return out
}

func harvestLocations(rec *domain.CompanyRecord, scripts []*script) {
	seen := map[domain.Location]bool{}
	var out []domain.Location

	eachJSON(scripts, []string{"address"}, func(v any) {
		walkObjects(v, func(o *jsondoc.Object) {
			addr, ok := jsondoc.First(o, "address").(*jsondoc.Object)
			if !ok {
				return
			}
			loc := domain.Location{
				Address: jsondoc.Text(jsondoc.First(addr, "streetAddress", "address", "full")),
				Country: countryText(jsondoc.First(addr, "addressCountry", "country")),
			}
			if loc == (domain.Location{}) || seen[loc] {
				return
			}
			seen[loc] = true
			out = append(out, loc)
		})
	})

	rec.HQLocations = out
}

// countryText accepts a plain value or a schema.org Country object.
func countryText(v any) string {
	if o, ok := v.(*jsondoc.Object); ok {
		return jsondoc.Text(jsondoc.First(o, "name"))
	}
	return jsondoc.Text(v)
}

func harvestIndustries(rec *domain.CompanyRecord, scripts []*script) {
	var found []string
	eachJSON(scripts, []string{"industries"}, func(v any) {
		walkObjects(v, func(o *jsondoc.Object) {
			switch t := jsondoc.First(o, "industries").(type) {
			case string:
				found = append(found, t)
			case []any:
				for _, x := range t {
					if obj, ok := x.(*jsondoc.Object); ok {
						found = append(found, jsondoc.Text(jsondoc.First(obj, "name")))
						continue
					}
					found = append(found, jsondoc.Text(x))
				}
			}
		})
	})
	rec.MergeIndustries(found...)
}
