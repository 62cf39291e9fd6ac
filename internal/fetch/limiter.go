package fetch

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter spaces requests per host so concurrent workers hitting the
// same profile site share one budget. "www." is ignored when keying hosts.
type HostLimiter struct {
	limit rate.Limit
	burst int

	mu     sync.Mutex
	byHost map[string]*rate.Limiter
}

// NewHostLimiter allows perSecond requests per host. perSecond <= 0 means
// no limit.
func NewHostLimiter(perSecond float64, burst int) *HostLimiter {
	hl := &HostLimiter{limit: rate.Inf, burst: max(burst, 1)}
	if perSecond > 0 {
		hl.limit = rate.Limit(perSecond)
		hl.byHost = make(map[string]*rate.Limiter)
	}
	return hl
}

// WaitURL blocks until a request to rawURL's host may go out.
func (hl *HostLimiter) WaitURL(ctx context.Context, rawURL string) error {
	if hl.limit == rate.Inf {
		return ctx.Err()
	}
	return hl.forHost(hostKey(rawURL)).Wait(ctx)
}

func (hl *HostLimiter) forHost(host string) *rate.Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	lim, ok := hl.byHost[host]
	if !ok {
		lim = rate.NewLimiter(hl.limit, hl.burst)
		hl.byHost[host] = lim
	}
	return lim
}

func hostKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
