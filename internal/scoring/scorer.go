package scoring

import (
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/Tally/internal/catalog"
	"github.com/MikeSquared-Agency/Tally/internal/metrics"
)

// CatalogSource hands out the current catalog snapshot.
type CatalogSource interface {
	Current() *catalog.Bundle
}

// Engine runs the scoring pipeline against one catalog snapshot per call. It
// holds no mutable state and is safe for concurrent use.
type Engine struct {
	catalogs  CatalogSource
	tolerance float64
	logger    *slog.Logger
}

// NewEngine creates an Engine. A non-positive tolerance uses the default.
func NewEngine(catalogs CatalogSource, tolerance float64, logger *slog.Logger) *Engine {
	if tolerance <= 0 {
		tolerance = DefaultIntegrityTolerance
	}
	return &Engine{catalogs: catalogs, tolerance: tolerance, logger: logger}
}

// Catalog returns the snapshot the next Score call would use.
func (e *Engine) Catalog() *catalog.Bundle { return e.catalogs.Current() }

// Score computes the full result of a submission. The result timestamp is the
// submission's completion time, so unchanged input scores byte-identically.
func (e *Engine) Score(sub Submission) *AssessmentResult {
	start := time.Now()
	defer func() { metrics.ObserveScoring(time.Since(start)) }()

	b := e.catalogs.Current()
	sections := Aggregate(b.Questions, sub.Responses)
	overall := OverallScore(b.Weights, sections, e.tolerance)
	strengths, improvements := RankSections(b.Weights, sections)
	profiles := MatchProfiles(b.Profiles, sections, sub.Demographics.Gender())

	result := &AssessmentResult{
		ID:               ResultID(sub.RespondentID, sub.Attempt),
		RespondentID:     sub.RespondentID,
		Attempt:          sub.Attempt,
		Demographics:     sub.Demographics,
		Sections:         sections,
		Overall:          overall.Percentage,
		TotalEarned:      overall.TotalEarned,
		TotalPossible:    overall.TotalPossible,
		Complete:         overall.Complete,
		WeightedShare:    overall.WeightedShare,
		Strengths:        strengths,
		ImprovementAreas: improvements,
		Profile:          profiles.Unisex,
		GenderProfile:    profiles.GenderSpecific,
		Warning:          overall.Warning,
		CatalogVersion:   b.Version,
		ScoredAt:         sub.CompletedAt.UTC(),
	}

	if overall.Warning != nil {
		metrics.RecordIntegrityWarning()
		e.logger.Warn("overall score formulas disagree",
			"respondent", sub.RespondentID,
			"attempt", sub.Attempt,
			"detail", overall.Warning.String(),
		)
	}
	return result
}

// Compare runs the couple comparison with the current weight catalog.
func (e *Engine) Compare(link CoupleLink, a, b *AssessmentResult) (*CompatibilityReport, error) {
	return CompareLinked(e.catalogs.Current().Weights, link, a, b)
}
