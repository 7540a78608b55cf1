package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/Tally/internal/store"
)

type ResultsHandler struct {
	store  store.Store
	recalc Recalculator
}

func NewResultsHandler(s store.Store, rc Recalculator) *ResultsHandler {
	return &ResultsHandler{store: s, recalc: rc}
}

func (h *ResultsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "respondent")
	result, err := h.store.GetResult(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if result == nil {
		writeError(w, http.StatusNotFound, "result not found")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ResultsHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "respondent")
	result, err := h.recalc.RecalculateOne(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
