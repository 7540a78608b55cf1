package scoring

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a respondent or pairing has no stored data.
	ErrNotFound = errors.New("not found")

	// ErrCoupleIncomplete is returned when a couple comparison is requested
	// before both sides have completed the assessment.
	ErrCoupleIncomplete = errors.New("couple link incomplete")

	// ErrCoupleMismatch is returned when the results handed to a comparison do
	// not belong to the couple link.
	ErrCoupleMismatch = errors.New("results do not belong to couple link")
)

// PartialDataError marks stored input that cannot be scored: missing or
// malformed responses, or missing demographics.
type PartialDataError struct {
	RespondentID string
	Reason       string
	Err          error
}

func (e *PartialDataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("partial data for %s: %s: %v", e.RespondentID, e.Reason, e.Err)
	}
	return fmt.Sprintf("partial data for %s: %s", e.RespondentID, e.Reason)
}

func (e *PartialDataError) Unwrap() error { return e.Err }

// DataIntegrityWarning records a weighted-share versus earned/possible
// disagreement on a complete assessment. It is surfaced, never fatal.
type DataIntegrityWarning struct {
	Canonical     float64 `json:"canonical_percentage"`
	WeightedShare float64 `json:"weighted_share_percentage"`
	Delta         float64 `json:"delta"`
	Tolerance     float64 `json:"tolerance"`
}

func (w DataIntegrityWarning) String() string {
	return fmt.Sprintf("overall %.1f disagrees with weighted-share %.1f by %.2f (tolerance %.2f)",
		w.Canonical, w.WeightedShare, w.Delta, w.Tolerance)
}
