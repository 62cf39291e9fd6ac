package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealroom-scraper/internal/cache"
)

func testClient(baseURL string, retries int, opts ...Option) *Client {
	return New(Config{
		BaseURL:    baseURL,
		UserAgent:  DefaultUserAgent,
		Timeout:    2 * time.Second,
		MaxRetries: retries,
	}, opts...)
}

func TestProfileURL(t *testing.T) {
	testCases := []struct {
		identifier string
		want       string
	}{
		{"https://app.dealroom.co/companies/vibe_ctv_ott", "https://app.dealroom.co/companies/vibe_ctv_ott"},
		{"http://example.com/x", "http://example.com/x"},
		{"HTTPS://Example.com", "HTTPS://Example.com"},
		{"vibe.co", "https://vibe.co"},
		{"vibe_ctv_ott", "https://app.dealroom.co/companies/vibe_ctv_ott"},
		{"/vibe_ctv_ott/", "https://app.dealroom.co/companies/vibe_ctv_ott"},
		{"acme inc.", "https://app.dealroom.co/companies/acme inc."},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.want, ProfileURL(DefaultBaseURL, tc.identifier), tc.identifier)
	}
	require.Equal(t, "https://x.test/c/acme", ProfileURL("https://x.test/c/", "acme"))
}

func TestFetchSendsSessionHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/companies/acme", r.URL.Path)
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, acceptHTML, r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>acme</html>"))
	}))
	defer srv.Close()

	c := testClient(srv.URL+"/companies", 1)
	page, err := c.Fetch(context.Background(), "acme")
	require.NoError(t, err)
	require.Equal(t, "<html>acme</html>", page.HTML)
	require.Equal(t, srv.URL+"/companies/acme", page.URL)
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := testClient("", 2)
	c.cfg.Delay = 20 * time.Millisecond

	start := time.Now()
	page, err := c.Fetch(context.Background(), srv.URL+"/p")
	require.NoError(t, err)
	require.Equal(t, "ok", page.HTML)
	require.EqualValues(t, 2, hits.Load())
	require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestFetchGivesUp(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := testClient("", 3)
	page, err := c.Fetch(context.Background(), srv.URL+"/missing")
	require.ErrorIs(t, err, ErrFetchFailed)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.Code)

	require.Empty(t, page.HTML)
	require.Equal(t, srv.URL+"/missing", page.URL)
	require.EqualValues(t, 3, hits.Load())
}

func TestFetchFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("moved"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	page, err := testClient("", 1).Fetch(context.Background(), srv.URL+"/old")
	require.NoError(t, err)
	require.Equal(t, "moved", page.HTML)
	require.Equal(t, srv.URL+"/new", page.URL)
}

func TestFetchDecodesCompressedBodies(t *testing.T) {
	const html = "<html><body>compressed profile</body></html>"

	encoders := map[string]func([]byte) []byte{
		"br": func(b []byte) []byte {
			var buf bytes.Buffer
			w := brotli.NewWriter(&buf)
			_, _ = w.Write(b)
			_ = w.Close()
			return buf.Bytes()
		},
		"gzip": func(b []byte) []byte {
			var buf bytes.Buffer
			w := gzip.NewWriter(&buf)
			_, _ = w.Write(b)
			_ = w.Close()
			return buf.Bytes()
		},
		"zstd": func(b []byte) []byte {
			enc, _ := zstd.NewWriter(nil)
			defer enc.Close()
			return enc.EncodeAll(b, nil)
		},
	}

	for name, encode := range encoders {
		t.Run(name, func(t *testing.T) {
			body := encode([]byte(html))
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Encoding", name)
				_, _ = w.Write(body)
			}))
			defer srv.Close()

			page, err := testClient("", 1).Fetch(context.Background(), srv.URL)
			require.NoError(t, err)
			require.Equal(t, html, page.HTML)
		})
	}
}

func TestFetchStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := testClient("", 5)
	c.cfg.Delay = time.Hour
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := c.Fetch(ctx, srv.URL)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFetchUsesCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("cached page"))
	}))
	defer srv.Close()

	c := testClient("", 1, WithCache(cache.NewMemory(), time.Hour))
	for i := 0; i < 3; i++ {
		page, err := c.Fetch(context.Background(), srv.URL+"/a")
		require.NoError(t, err)
		require.Equal(t, "cached page", page.HTML)
		require.Equal(t, srv.URL+"/a", page.URL)
	}
	require.EqualValues(t, 1, hits.Load())
}

func TestHostLimiterUnlimited(t *testing.T) {
	hl := NewHostLimiter(0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 100; i++ {
		require.NoError(t, hl.WaitURL(ctx, "https://a.test/x"))
	}
}

func TestHostLimiterSpacesSameHost(t *testing.T) {
	hl := NewHostLimiter(20, 1)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, hl.WaitURL(ctx, "https://www.app.test/companies/x"))
	}
	require.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)

	start = time.Now()
	require.NoError(t, hl.WaitURL(ctx, "https://other.test/"))
	require.Less(t, time.Since(start), 40*time.Millisecond)
}

func TestHostKey(t *testing.T) {
	require.Equal(t, "app.dealroom.co", hostKey("https://APP.dealroom.co/companies/x"))
	require.Equal(t, "vibe.co", hostKey("https://www.vibe.co:443/"))
	require.Equal(t, "", hostKey("not a url"))
}
