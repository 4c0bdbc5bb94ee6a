package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/username/lotfolio/backend/src/ledger"
	"github.com/username/lotfolio/backend/src/logger"
	"github.com/username/lotfolio/backend/src/nbp"
	"github.com/username/lotfolio/backend/src/store"
)

func sendJSON(w http.ResponseWriter, payload any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.L.Error("Failed to encode JSON response", "error", err)
	}
}

func sendJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	logger.L.Warn("Sending JSON error to client", "message", message, "statusCode", statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// sendServiceError maps the service error taxonomy onto HTTP statuses.
func sendServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidInput):
		sendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ledger.ErrInsufficientShares):
		sendJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, store.ErrNotFound):
		sendJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, nbp.ErrRateUnavailable):
		sendJSONError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		logger.L.Error("Unhandled service error", "error", err)
		sendJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}

// urlParamID parses the {id}-style chi URL parameter named name.
func urlParamID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// queryInt parses an optional integer query parameter; absent = 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// queryFloat parses an optional float query parameter; absent = 0.
func queryFloat(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

// queryInt64 parses an optional int64 query parameter; absent = 0.
func queryInt64(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
