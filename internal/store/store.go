package store

import (
	"context"
	"errors"

	"github.com/MikeSquared-Agency/Tally/internal/scoring"
)

// ErrMalformedRecord marks a stored row whose JSON payload cannot be decoded.
var ErrMalformedRecord = errors.New("malformed stored record")

// Store persists submissions, scored results and couple links. Lookups of
// absent rows return nil with a nil error.
type Store interface {
	// ListRespondents returns every respondent with at least one submission,
	// ordered by identifier.
	ListRespondents(ctx context.Context) ([]string, error)
	// GetSubmission returns the latest attempt of a respondent.
	GetSubmission(ctx context.Context, respondentID string) (*scoring.Submission, error)
	SaveSubmission(ctx context.Context, sub *scoring.Submission) error

	// GetResult returns the result of the latest scored attempt.
	GetResult(ctx context.Context, respondentID string) (*scoring.AssessmentResult, error)
	// ReplaceResult swaps the stored result of (respondent, attempt) in one
	// transaction. Readers see either the old result or the new one.
	ReplaceResult(ctx context.Context, result *scoring.AssessmentResult) error

	GetCoupleLink(ctx context.Context, pairingID string) (*scoring.CoupleLink, error)
	SaveCoupleLink(ctx context.Context, link *scoring.CoupleLink) error

	Close() error
}
