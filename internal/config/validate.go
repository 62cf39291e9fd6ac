package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrInvalid = errors.New("invalid config")

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// Err folds the collected errors into one error wrapping ErrInvalid.
func (v Validation) Err() error {
	if v.OK() {
		return nil
	}
	return fmt.Errorf("%w:\n- %s", ErrInvalid, strings.Join(v.Errors, "\n- "))
}

// NormalizeAndValidate trims string settings and checks ranges.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	out.HTTP.UserAgent = strings.TrimSpace(out.HTTP.UserAgent)
	out.Crawler.BaseURL = strings.TrimRight(strings.TrimSpace(out.Crawler.BaseURL), "/")
	out.Cache.RedisAddr = strings.TrimSpace(out.Cache.RedisAddr)
	out.Telemetry.OTLPEndpoint = strings.TrimSpace(out.Telemetry.OTLPEndpoint)

	if out.HTTP.Timeout <= 0 {
		res.addErr("http.timeout must be > 0")
	}
	if out.HTTP.MaxRetries < 1 {
		res.addErr("http.max_retries must be >= 1")
	} else if out.HTTP.MaxRetries > 10 {
		res.addWarn("http.max_retries is high (%d); failing profiles will take long to give up.", out.HTTP.MaxRetries)
	}
	if out.HTTP.UserAgent == "" {
		res.addWarn("http.user_agent is empty; the default Go user agent will be sent.")
	}

	if u, err := url.Parse(out.Crawler.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		res.addErr("crawler.dealroom_base_url must be an absolute http(s) URL")
	}
	if out.Crawler.SleepBetween < 0 {
		res.addErr("crawler.sleep_between_requests must be >= 0")
	}
	if out.Crawler.Concurrency < 1 {
		res.addErr("crawler.concurrency must be >= 1")
	}
	if out.Crawler.RequestsPerSecond < 0 {
		res.addErr("crawler.requests_per_second must be >= 0")
	}

	if strings.TrimSpace(out.Paths.OutputFile) == "" {
		res.addErr("paths.output_file is required")
	}

	if out.Cache.TTL < 0 {
		res.addErr("cache.ttl must be >= 0")
	}
	if out.Cache.RedisAddr != "" && out.Cache.TTL == 0 {
		res.addWarn("cache.ttl is 0; cached pages never expire.")
	}

	return out, res
}
