// Package fetch resolves company identifiers to profile URLs and downloads
// their HTML with retries, per-host rate limiting and an optional cache.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"dealroom-scraper/internal/cache"
)

const (
	DefaultBaseURL   = "https://app.dealroom.co/companies"
	DefaultUserAgent = "dealroom-scraper/1.0"

	acceptHTML     = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptEncoding = "gzip, deflate, br, zstd"
)

var ErrFetchFailed = errors.New("fetch failed")

// StatusError is an attempt that got an HTTP status >= 400.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("HTTP %d", e.Code) }

type Config struct {
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	MaxRetries        int
	Delay             time.Duration // slept after every attempt
	RequestsPerSecond float64       // per host, 0 = unlimited
}

// Page is a downloaded profile. URL is the address after redirects.
type Page struct {
	HTML string `json:"html"`
	URL  string `json:"url"`
}

type Client struct {
	cfg      Config
	http     *resty.Client
	limiter  *HostLimiter
	store    cache.Store
	cacheTTL time.Duration
	log      *slog.Logger
}

type Option func(*Client)

// WithCache memoizes successful fetches in s, keyed by profile URL.
func WithCache(s cache.Store, ttl time.Duration) Option {
	return func(c *Client) {
		c.store = s
		c.cacheTTL = ttl
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", acceptHTML).
		SetHeader("Accept-Encoding", acceptEncoding)
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	instrument(client, "dealroom-scraper/fetch")

	c := &Client{
		cfg:     cfg,
		http:    client,
		limiter: NewHostLimiter(cfg.RequestsPerSecond, 1),
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ProfileURL maps an identifier to the page to download: http(s) URLs are
// used as is, dotted tokens without spaces are treated as domains, anything
// else is a slug under the base URL.
func ProfileURL(baseURL, identifier string) string {
	lower := strings.ToLower(identifier)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return identifier
	}
	if strings.Contains(identifier, ".") && !strings.Contains(identifier, " ") {
		return "https://" + identifier
	}
	slug := strings.Trim(strings.TrimSpace(identifier), "/")
	return strings.TrimRight(baseURL, "/") + "/" + slug
}

func (c *Client) ProfileURL(identifier string) string {
	return ProfileURL(c.cfg.BaseURL, identifier)
}

// Fetch downloads the profile page for identifier. When every attempt fails
// the returned Page carries only the attempted URL and the error wraps
// ErrFetchFailed.
func (c *Client) Fetch(ctx context.Context, identifier string) (Page, error) {
	u := c.ProfileURL(identifier)
	c.log.InfoContext(ctx, "fetching profile", "identifier", identifier, "url", u)

	if c.store == nil {
		return c.fetchLive(ctx, u)
	}
	page, err := cache.Memoize(ctx, c.store, "page:"+u, c.cacheTTL, func(ctx context.Context) (Page, error) {
		return c.fetchLive(ctx, u)
	})
	if err != nil {
		return Page{URL: u}, err
	}
	return page, nil
}

func (c *Client) fetchLive(ctx context.Context, u string) (Page, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := c.limiter.WaitURL(ctx, u); err != nil {
			return Page{URL: u}, err
		}

		page, err := c.get(ctx, u)
		sleepErr := sleep(ctx, c.cfg.Delay)
		if err == nil {
			c.log.DebugContext(ctx, "fetched profile", "url", page.URL, "bytes", len(page.HTML))
			return page, nil
		}

		lastErr = err
		c.log.WarnContext(ctx, "fetch attempt failed",
			"url", u, "attempt", attempt, "max_attempts", c.cfg.MaxRetries, "err", err)
		if sleepErr != nil {
			return Page{URL: u}, sleepErr
		}
	}

	c.log.ErrorContext(ctx, "giving up on profile", "url", u, "attempts", c.cfg.MaxRetries, "err", lastErr)
	return Page{URL: u}, fmt.Errorf("%w: %s after %d attempts: %w", ErrFetchFailed, u, c.cfg.MaxRetries, lastErr)
}

func (c *Client) get(ctx context.Context, u string) (Page, error) {
	res, err := c.http.R().SetContext(ctx).Get(u)
	if err != nil {
		return Page{}, err
	}
	if res.StatusCode() >= 400 {
		return Page{}, &StatusError{Code: res.StatusCode()}
	}

	body, err := decodeBody(res.Body(), res.Header().Get("Content-Encoding"))
	if err != nil {
		return Page{}, err
	}

	final := u
	if raw := res.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		final = raw.Request.URL.String()
	}
	return Page{HTML: string(body), URL: final}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
