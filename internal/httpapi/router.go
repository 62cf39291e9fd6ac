package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"dealroom-scraper/internal/extract"
)

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	ex := d.Extractor
	if ex == nil {
		ex = extract.New(log)
	}

	r := mux.NewRouter()

	r.HandleFunc("/health", HealthHandler{}.Health).Methods(http.MethodGet)

	ch := CompaniesHandler{Fetcher: d.Fetcher, Extractor: ex, DB: d.DB, RunID: d.RunID, Log: log}
	r.HandleFunc("/companies", ch.Get).Methods(http.MethodGet).Queries("identifier", "{identifier}")
	r.HandleFunc("/companies/{identifier}", ch.Get).Methods(http.MethodGet)
	r.HandleFunc("/extract", ch.Extract).Methods(http.MethodPost)
	if d.DB != nil {
		r.HandleFunc("/records", ch.List).Methods(http.MethodGet)
		r.HandleFunc("/records/lookup", ch.Lookup).Methods(http.MethodGet)
		r.HandleFunc("/runs/last", ch.LastRun).Methods(http.MethodGet)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		WriteError(w, req, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		WriteError(w, req, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	return Chain(r,
		WithRequestLog(log),
		AccessLog,
		Recover,
		handlers.CompressHandler,
	)
}
