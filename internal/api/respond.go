package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MikeSquared-Agency/Tally/internal/catalog"
	"github.com/MikeSquared-Agency/Tally/internal/scoring"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var pd *scoring.PartialDataError
	var ce *catalog.ConfigurationError
	switch {
	case errors.Is(err, scoring.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &pd), errors.As(err, &ce):
		return http.StatusUnprocessableEntity
	case errors.Is(err, scoring.ErrCoupleIncomplete), errors.Is(err, scoring.ErrCoupleMismatch):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}
