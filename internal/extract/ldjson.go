package extract

import (
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"dealroom-scraper/internal/domain"
	"dealroom-scraper/internal/jsondoc"
)

var organizationTypes = map[string]bool{
	"organization": true,
	"corp":         true,
	"corporation":  true,
	"company":      true,
}

// findOrganization returns the first JSON-LD object, in document order,
// declaring an organization type. Blocks that fail to decode are skipped.
func findOrganization(doc *goquery.Document, log *slog.Logger) *jsondoc.Object {
	var found *jsondoc.Object
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.EqualFold(strings.TrimSpace(s.AttrOr("type", "")), "application/ld+json") {
			return true
		}
		v, err := jsondoc.Parse(s.Text())
		if err != nil {
			log.Debug("extract: skip json-ld block", "err", err)
			return true
		}

		var candidates []any
		switch t := v.(type) {
		case *jsondoc.Object:
			candidates = []any{t}
		case []any:
			candidates = t
		}
		for _, c := range candidates {
			obj, ok := c.(*jsondoc.Object)
			if !ok {
				continue
			}
			if t, _ := obj.Get("@type"); isOrganizationType(t) {
				found = obj
				return false
			}
		}
		return true
	})
	return found
}

func isOrganizationType(v any) bool {
	switch t := v.(type) {
	case string:
		return organizationTypes[strings.ToLower(t)]
	case []any:
		for _, x := range t {
			if s, ok := x.(string); ok && organizationTypes[strings.ToLower(s)] {
				return true
			}
		}
	}
	return false
}

func applyOrganization(rec *domain.CompanyRecord, org *jsondoc.Object) {
	if s, ok := jsondoc.First(org, "description").(string); ok {
		if s = strings.TrimSpace(s); s != "" {
			rec.About = s
		}
	}

	if v, _ := org.Get("url"); jsondoc.Truthy(v) {
		rec.WebsiteURL = websiteValue(v, false)
	} else if v, _ := org.Get("sameAs"); jsondoc.Truthy(v) {
		rec.WebsiteURL = websiteValue(v, true)
	}

	switch v := jsondoc.First(org, "industry").(type) {
	case string:
		rec.MergeIndustries(v)
	case []any:
		values := make([]string, 0, len(v))
		for _, x := range v {
			values = append(values, jsondoc.Text(x))
		}
		rec.MergeIndustries(values...)
	}

	employees := jsondoc.First(org, "numberOfEmployees")
	if employees == nil {
		if emp, ok := jsondoc.First(org, "employee").(*jsondoc.Object); ok {
			employees = jsondoc.First(emp, "count")
		}
	}
	rec.Employees = employeesText(employees)

	for _, link := range sameAsLinks(org) {
		if platform, ok := SocialPlatform(link); ok {
			rec.AddSocial(platform, link)
		}
	}
}

// websiteValue takes a string as is (requiring an http prefix when strict)
// or the first http entry of a list.
func websiteValue(v any, strict bool) string {
	switch t := v.(type) {
	case string:
		if strict && !strings.HasPrefix(t, "http") {
			return ""
		}
		return t
	case []any:
		for _, x := range t {
			if s, ok := x.(string); ok && strings.HasPrefix(s, "http") {
				return s
			}
		}
	}
	return ""
}

// employeesText accepts a number (truncated to an integer), a string, or a
// QuantitativeValue object with value or minValue/maxValue.
func employeesText(v any) string {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		f, err := t.Float64()
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return ""
		}
		return strconv.FormatFloat(math.Trunc(f), 'f', 0, 64)
	case string:
		return strings.TrimSpace(t)
	case *jsondoc.Object:
		if val := jsondoc.First(t, "value"); val != nil {
			return employeesText(val)
		}
		lo := employeesText(jsondoc.First(t, "minValue"))
		hi := employeesText(jsondoc.First(t, "maxValue"))
		switch {
		case lo != "" && hi != "":
			return lo + "-" + hi
		case lo != "":
			return lo + "+"
		}
	}
	return ""
}

func sameAsLinks(org *jsondoc.Object) []string {
	switch v := jsondoc.First(org, "sameAs").(type) {
	case string:
		return []string{v}
	case []any:
		var out []string
		for _, x := range v {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
