package domain

import (
	"bytes"
	"encoding/json"
	"sort"
)

type CompanyStatus string

const (
	StatusOperational CompanyStatus = "operational"
	StatusClosed      CompanyStatus = "closed"
	StatusAcquired    CompanyStatus = "acquired"
	StatusPublic      CompanyStatus = "public"
)

type GrowthStage string

const (
	StagePreSeed     GrowthStage = "pre-seed"
	StageSeed        GrowthStage = "seed"
	StageEarlyGrowth GrowthStage = "early growth"
	StageGrowth      GrowthStage = "growth"
	StageLateGrowth  GrowthStage = "late growth"
	StageScaleup     GrowthStage = "scaleup"
)

// Social platform keys used in CompanyRecord.SocialLinks.
const (
	LinkedIn  = "linkedin"
	Twitter   = "twitter"
	Instagram = "instagram"
	Facebook  = "facebook"
	YouTube   = "youtube"
)

// FundingRound is one round harvested from embedded page data. Fields keep
// whatever JSON type the page used, with null and empty members removed.
type FundingRound struct {
	Year      any   `json:"year,omitempty"`
	Round     any   `json:"round,omitempty"`
	Amount    any   `json:"amount,omitempty"`
	Currency  any   `json:"currency,omitempty"`
	Investors []any `json:"investors,omitempty"`
}

type Investor struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
	Path string `json:"path,omitempty"`
}

type Location struct {
	Address string `json:"address,omitempty"`
	Country string `json:"country,omitempty"`
}

// CompanyRecord is the normalized profile of one company page. Unset fields
// are left out of the JSON form; CompanyStatus is always written.
//
// SimilarwebTraffic, Team, KPISummary, NearbyCompanies, RelatedCompanies and
// News have no extraction pass yet and stay empty.
type CompanyRecord struct {
	About             string            `json:"about,omitempty"`
	CompanyStatus     CompanyStatus     `json:"company_status"`
	FundingRounds     []FundingRound    `json:"funding_rounds,omitempty"`
	GrowthStage       GrowthStage       `json:"growth_stage,omitempty"`
	Employees         string            `json:"employees,omitempty"`
	SimilarwebTraffic string            `json:"similarweb_traffic,omitempty"`
	SocialLinks       map[string]string `json:"social_links,omitempty"`
	Investors         []Investor        `json:"investors,omitempty"`
	Industries        []string          `json:"industries,omitempty"`
	Team              []any             `json:"team,omitempty"`
	HQLocations       []Location        `json:"hq_locations,omitempty"`
	KPISummary        map[string]any    `json:"kpi_summary,omitempty"`
	NearbyCompanies   []any             `json:"nearby_companies,omitempty"`
	RelatedCompanies  []any             `json:"related_companies,omitempty"`
	News              []any             `json:"news,omitempty"`
	WebsiteURL        string            `json:"website_url,omitempty"`
	LinkedInURL       string            `json:"linkedin_url,omitempty"`
	TwitterURL        string            `json:"twitter_url,omitempty"`
	InstagramURL      string            `json:"instagram_url,omitempty"`
	RawSourceURL      string            `json:"raw_source_url,omitempty"`
}

func (r CompanyRecord) MarshalJSON() ([]byte, error) {
	type plain CompanyRecord
	if r.CompanyStatus == "" {
		r.CompanyStatus = StatusOperational
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(plain(r)); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// AddSocial stores href under platform unless that platform already has a
// link. LinkedIn, Twitter and Instagram also fill their dedicated field.
// It reports whether the link was stored.
func (r *CompanyRecord) AddSocial(platform, href string) bool {
	if _, ok := r.SocialLinks[platform]; ok {
		return false
	}
	if r.SocialLinks == nil {
		r.SocialLinks = map[string]string{}
	}
	r.SocialLinks[platform] = href

	switch platform {
	case LinkedIn:
		r.LinkedInURL = href
	case Twitter:
		r.TwitterURL = href
	case Instagram:
		r.InstagramURL = href
	}
	return true
}

// MergeIndustries replaces Industries with the sorted union of the current
// values and values. Empty strings are dropped.
func (r *CompanyRecord) MergeIndustries(values ...string) {
	set := map[string]struct{}{}
	for _, v := range r.Industries {
		set[v] = struct{}{}
	}
	for _, v := range values {
		if v != "" {
			set[v] = struct{}{}
		}
	}
	if len(set) == 0 {
		return
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	r.Industries = out
}
