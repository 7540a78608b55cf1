package hermes

import "time"

// SubmissionCompletedEvent is published by the submission endpoint once a
// respondent finishes an attempt.
type SubmissionCompletedEvent struct {
	RespondentID string `json:"respondent_id"`
	Attempt      int    `json:"attempt,omitempty"`
}

type ResultRecalculatedEvent struct {
	ResultID       string    `json:"result_id"`
	RespondentID   string    `json:"respondent_id"`
	Attempt        int       `json:"attempt"`
	Overall        float64   `json:"overall_percentage"`
	Complete       bool      `json:"complete"`
	ProfileID      string    `json:"profile_id"`
	CatalogVersion string    `json:"catalog_version"`
	ScoredAt       time.Time `json:"scored_at"`
}

type IntegrityWarningEvent struct {
	RespondentID  string  `json:"respondent_id"`
	Attempt       int     `json:"attempt"`
	Canonical     float64 `json:"canonical_percentage"`
	WeightedShare float64 `json:"weighted_share_percentage"`
	Delta         float64 `json:"delta"`
	Tolerance     float64 `json:"tolerance"`
}

type RecalcCompletedEvent struct {
	BatchID    string    `json:"batch_id"`
	Attempted  int       `json:"attempted"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Cancelled  bool      `json:"cancelled"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

type CoupleComparedEvent struct {
	PairingID    string  `json:"pairing_id"`
	RespondentA  string  `json:"respondent_a"`
	RespondentB  string  `json:"respondent_b"`
	Composite    float64 `json:"composite"`
	Incomparable int     `json:"incomparable_sections"`
}
