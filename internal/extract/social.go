package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"dealroom-scraper/internal/domain"
)

var socialDomains = []struct {
	platform string
	domains  []string
}{
	{domain.LinkedIn, []string{"linkedin.com"}},
	{domain.Twitter, []string{"twitter.com", "x.com"}},
	{domain.Instagram, []string{"instagram.com"}},
	{domain.Facebook, []string{"facebook.com"}},
	{domain.YouTube, []string{"youtube.com", "youtu.be"}},
}

// SocialPlatform reports which social network href points to. A platform
// matches when any of its domains appears anywhere in the lower-cased href.
func SocialPlatform(href string) (string, bool) {
	low := strings.ToLower(href)
	for _, s := range socialDomains {
		for _, d := range s.domains {
			if strings.Contains(low, d) {
				return s.platform, true
			}
		}
	}
	return "", false
}

func applyAnchors(rec *domain.CompanyRecord, doc *goquery.Document) {
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if platform, ok := SocialPlatform(href); ok {
			rec.AddSocial(platform, href)
		}
	})
}
