package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type CouplesHandler struct {
	recalc Recalculator
}

func NewCouplesHandler(rc Recalculator) *CouplesHandler {
	return &CouplesHandler{recalc: rc}
}

func (h *CouplesHandler) Compatibility(w http.ResponseWriter, r *http.Request) {
	report, err := h.recalc.Compatibility(r.Context(), chi.URLParam(r, "pairing"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
