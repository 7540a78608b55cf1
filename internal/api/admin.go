package api

import (
	"log/slog"
	"net/http"

	"github.com/MikeSquared-Agency/Tally/internal/catalog"
	"github.com/MikeSquared-Agency/Tally/internal/metrics"
)

type AdminHandler struct {
	recalc   Recalculator
	catalogs CatalogSource
	logger   *slog.Logger
}

func NewAdminHandler(rc Recalculator, c CatalogSource, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{recalc: rc, catalogs: c, logger: logger}
}

// RecalculateAll runs a bulk recalculation and returns its summary. A client
// disconnect stops new work; respondents already started still complete.
func (h *AdminHandler) RecalculateAll(w http.ResponseWriter, r *http.Request) {
	summary, err := h.recalc.RecalculateAll(r.Context())
	if err != nil {
		h.logger.Error("bulk recalculation failed", "error", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *AdminHandler) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	b, err := h.catalogs.Reload(r.Context())
	metrics.RecordCatalogReload(err == nil)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, describeCatalog(b))
}

func (h *AdminHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, describeCatalog(h.catalogs.Current()))
}

type CatalogView struct {
	Version     string                  `json:"version"`
	TotalWeight float64                 `json:"total_weight"`
	Sections    []catalog.SectionWeight `json:"sections"`
	Questions   int                     `json:"questions"`
	Profiles    []catalog.Profile       `json:"profiles"`
}

func describeCatalog(b *catalog.Bundle) CatalogView {
	return CatalogView{
		Version:     b.Version,
		TotalWeight: b.Weights.TotalWeight(),
		Sections:    b.Weights.Sections(),
		Questions:   b.Questions.Len(),
		Profiles:    b.Profiles.All(),
	}
}
