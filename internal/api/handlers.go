package api

import (
	"context"

	"github.com/MikeSquared-Agency/Tally/internal/catalog"
	"github.com/MikeSquared-Agency/Tally/internal/recalc"
	"github.com/MikeSquared-Agency/Tally/internal/scoring"
)

// Scorer runs the scoring pipeline without persistence.
type Scorer interface {
	Score(sub scoring.Submission) *scoring.AssessmentResult
}

// Recalculator is the subset of the recalculation coordinator the API drives.
type Recalculator interface {
	RecalculateOne(ctx context.Context, respondentID string) (*scoring.AssessmentResult, error)
	RecalculateAll(ctx context.Context) (*recalc.BatchSummary, error)
	Compatibility(ctx context.Context, pairingID string) (*scoring.CompatibilityReport, error)
}

// CatalogSource exposes and reloads the active catalog.
type CatalogSource interface {
	Current() *catalog.Bundle
	Reload(ctx context.Context) (*catalog.Bundle, error)
}
