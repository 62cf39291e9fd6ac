package httpapi

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"dealroom-scraper/internal/extract"
	"dealroom-scraper/internal/store"
)

type CompaniesHandler struct {
	Fetcher   Fetcher
	Extractor *extract.Extractor
	DB        *sql.DB
	RunID     string
	Log       *slog.Logger
}

// Get fetches and extracts one profile. The identifier comes from the path
// (/companies/{identifier}) or, for full URLs, the identifier query value.
func (h CompaniesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["identifier"])
	if id == "" {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "identifier is required")
		return
	}

	page, err := h.Fetcher.Fetch(r.Context(), id)
	if err != nil {
		writeFetchError(w, r, err)
		return
	}
	if page.HTML == "" {
		WriteError(w, r, http.StatusBadGateway, "empty_page", "profile page was empty")
		return
	}

	rec := h.Extractor.Extract(page.HTML, page.URL)
	if h.DB != nil {
		if err := store.UpsertRecord(r.Context(), h.DB, h.RunID, rec, time.Now()); err != nil {
			LoggerFrom(r.Context(), h.Log).Warn("store record", "url", page.URL, "err", err)
		}
	}
	WriteJSON(w, http.StatusOK, rec)
}

type extractRequest struct {
	HTML      string `json:"html"`
	SourceURL string `json:"source_url"`
}

func (h CompaniesHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<20))
	if err := dec.Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.HTML) == "" {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "html is required")
		return
	}
	WriteJSON(w, http.StatusOK, h.Extractor.Extract(req.HTML, req.SourceURL))
}

func (h CompaniesHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	recs, err := store.ListRecords(r.Context(), h.DB, limit)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"records": recs, "count": len(recs)})
}

// Lookup returns the stored record for ?source_url= without fetching.
func (h CompaniesHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	src := strings.TrimSpace(r.URL.Query().Get("source_url"))
	if src == "" {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "source_url is required")
		return
	}
	rec, ok, err := store.GetRecord(r.Context(), h.DB, src)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	if !ok {
		WriteError(w, r, http.StatusNotFound, "not_found", "no stored record for "+src)
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

type runResponse struct {
	RunID       string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Identifiers int       `json:"identifiers"`
	Records     int       `json:"records"`
	Output      string    `json:"output"`
}

func (h CompaniesHandler) LastRun(w http.ResponseWriter, r *http.Request) {
	run, ok, err := store.LastRun(r.Context(), h.DB)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	if !ok {
		WriteError(w, r, http.StatusNotFound, "not_found", "no batch run recorded")
		return
	}
	WriteJSON(w, http.StatusOK, runResponse{
		RunID:       run.ID,
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
		Identifiers: run.Identifiers,
		Records:     run.Records,
		Output:      run.Output,
	})
}
