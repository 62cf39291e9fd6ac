package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarshalOmitsEmptyFields(t *testing.T) {
	rec := CompanyRecord{RawSourceURL: "https://example.com"}
	b, err := json.Marshal(rec)
	require.NoError(t, err)
	require.JSONEq(t, `{"company_status":"operational","raw_source_url":"https://example.com"}`, string(b))
}

func TestMarshalKeyOrder(t *testing.T) {
	rec := CompanyRecord{
		About:         "x",
		CompanyStatus: StatusAcquired,
		GrowthStage:   StageSeed,
		WebsiteURL:    "https://a.io",
		RawSourceURL:  "https://a.io",
	}
	b, err := json.Marshal(rec)
	require.NoError(t, err)
	require.Equal(t,
		`{"about":"x","company_status":"acquired","growth_stage":"seed","website_url":"https://a.io","raw_source_url":"https://a.io"}`,
		string(b))
}

func TestMarshalNestedItemsOmitEmpty(t *testing.T) {
	rec := CompanyRecord{
		CompanyStatus: StatusOperational,
		FundingRounds: []FundingRound{{Round: "Seed"}},
		HQLocations:   []Location{{Country: "France"}},
		Investors:     []Investor{{Name: "Acme"}},
	}
	b, err := json.Marshal(rec)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"company_status": "operational",
		"funding_rounds": [{"round": "Seed"}],
		"investors": [{"name": "Acme"}],
		"hq_locations": [{"country": "France"}]
	}`, string(b))
}

func TestAddSocialFirstWins(t *testing.T) {
	var rec CompanyRecord
	require.True(t, rec.AddSocial(LinkedIn, "https://linkedin.com/company/a"))
	require.False(t, rec.AddSocial(LinkedIn, "https://linkedin.com/company/b"))
	require.True(t, rec.AddSocial(Facebook, "https://facebook.com/a"))

	require.Equal(t, "https://linkedin.com/company/a", rec.LinkedInURL)
	require.Equal(t, map[string]string{
		LinkedIn: "https://linkedin.com/company/a",
		Facebook: "https://facebook.com/a",
	}, rec.SocialLinks)
	require.Empty(t, rec.TwitterURL)
}

func TestMergeIndustries(t *testing.T) {
	rec := CompanyRecord{Industries: []string{"fintech"}}
	rec.MergeIndustries("payments", "fintech", "")
	require.Equal(t, []string{"fintech", "payments"}, rec.Industries)

	var empty CompanyRecord
	empty.MergeIndustries()
	require.Nil(t, empty.Industries)
}
