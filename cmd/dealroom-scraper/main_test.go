package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"dealroom-scraper/internal/run"
)

const acmeHTML = `<html><head>
<script type="application/ld+json">{"@type":"Organization","description":"Acme builds rockets","url":"https://acme.io"}</script>
</head><body><p>Acquired by Globex</p></body></html>`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScrapeWritesRecordsAndSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/companies/acme" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, acmeHTML)
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "settings.yml")
	writeFile(t, cfgPath, `
http:
  timeout: 5
  max_retries: 1
crawler:
  dealroom_base_url: `+srv.URL+`/companies
  sleep_between_requests: 0
  concurrency: 1
paths:
  input_domains: ids.txt
  output_file: out/records.json
`)
	writeFile(t, filepath.Join(dir, "ids.txt"), "acme\n# skipped\n\nmissing\n")

	out, err := execute(t, "--config", cfgPath)
	require.NoError(t, err)

	var sum run.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	require.Equal(t, 1, sum.Records)
	require.Equal(t, filepath.Join(dir, "out", "records.json"), sum.Output)

	b, err := os.ReadFile(sum.Output)
	require.NoError(t, err)
	var recs []map[string]any
	require.NoError(t, json.Unmarshal(b, &recs))
	require.Len(t, recs, 1)
	require.Equal(t, "Acme builds rockets", recs[0]["about"])
	require.Equal(t, "acquired", recs[0]["company_status"])
	require.Equal(t, srv.URL+"/companies/acme", recs[0]["raw_source_url"])
}

func TestScrapeFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "settings.yml")
	writeFile(t, cfgPath, "paths:\n  input_domains: ids.txt\n")
	writeFile(t, filepath.Join(dir, "ids.txt"), "acme\n")
	empty := filepath.Join(dir, "empty.txt")
	writeFile(t, empty, "# nothing here\n\n")

	_, err := execute(t, "--config", cfgPath, "--input", empty)
	require.ErrorIs(t, err, run.ErrNoIdentifiers)
}

func TestScrapeExplicitMissingConfig(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "nope.yml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestScrapeRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "settings.yml")
	writeFile(t, cfgPath, "http:\n  timeout: -1\n")

	_, err := execute(t, "--config", cfgPath)
	require.Error(t, err)
	require.Contains(t, err.Error(), "http.timeout")
}

func TestExtractCommand(t *testing.T) {
	page := filepath.Join(t.TempDir(), "acme.html")
	writeFile(t, page, acmeHTML)

	out, err := execute(t, "extract", page, "--url", "https://app.dealroom.co/companies/acme")
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	require.Equal(t, "https://acme.io", rec["website_url"])
	require.Equal(t, "https://app.dealroom.co/companies/acme", rec["raw_source_url"])
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "settings.yml")

	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	require.Contains(t, out, "wrote")
	require.FileExists(t, path)

	out, err = execute(t, "config", "init", path)
	require.NoError(t, err)
	require.Contains(t, out, "already exists")
}
