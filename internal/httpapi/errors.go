package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"dealroom-scraper/internal/fetch"
)

// APIError is the body of every non-2xx response.
type APIError struct {
	Error struct {
		Status    int    `json:"status"`
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e APIError
	e.Error.Status = status
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

// writeFetchError maps a failed profile download to a gateway status. An
// upstream 404 stays a 404 so callers can tell unknown companies apart.
func writeFetchError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	var se *fetch.StatusError
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		status = http.StatusGatewayTimeout
	case errors.As(err, &se) && se.Code == http.StatusNotFound:
		status = http.StatusNotFound
	}
	WriteError(w, r, status, "fetch_failed", err.Error())
}
