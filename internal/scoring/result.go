package scoring

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Tally/internal/catalog"
)

// resultNamespace seeds name-based result IDs so that re-scoring the same
// respondent attempt always yields the same ID.
var resultNamespace = uuid.MustParse("6f1c7a2e-8d4b-4c61-9a0e-3b5d2f7e9c14")

// Demographics is opaque to the engine except for the gender field.
type Demographics map[string]any

// Gender returns the parsed gender, "" when absent or unrecognised.
func (d Demographics) Gender() catalog.Gender {
	s, _ := d["gender"].(string)
	return catalog.ParseGender(s)
}

// Submission is the raw input for one respondent attempt.
type Submission struct {
	RespondentID string       `json:"respondent_id"`
	Attempt      int          `json:"attempt"`
	Responses    Responses    `json:"responses"`
	Demographics Demographics `json:"demographics,omitempty"`
	CompletedAt  time.Time    `json:"completed_at"`
}

// AssessmentResult is the scored outcome of one submission.
type AssessmentResult struct {
	ID               uuid.UUID                        `json:"id"`
	RespondentID     string                           `json:"respondent_id"`
	Attempt          int                              `json:"attempt"`
	Demographics     Demographics                     `json:"demographics,omitempty"`
	Sections         map[catalog.Section]SectionScore `json:"sections"`
	Overall          float64                          `json:"overall_percentage"`
	TotalEarned      float64                          `json:"total_earned"`
	TotalPossible    float64                          `json:"total_possible"`
	Complete         bool                             `json:"complete"`
	WeightedShare    *float64                         `json:"weighted_share_percentage,omitempty"`
	Strengths        []catalog.Section                `json:"strengths"`
	ImprovementAreas []catalog.Section                `json:"improvement_areas"`
	Profile          ProfileRef                       `json:"profile"`
	GenderProfile    *ProfileRef                      `json:"gender_profile,omitempty"`
	Warning          *DataIntegrityWarning            `json:"integrity_warning,omitempty"`
	CatalogVersion   string                           `json:"catalog_version"`
	ScoredAt         time.Time                        `json:"scored_at"`
}

// ResultID derives the stable result identifier of a respondent attempt.
func ResultID(respondentID string, attempt int) uuid.UUID {
	return uuid.NewSHA1(resultNamespace, []byte(fmt.Sprintf("%s#%d", respondentID, attempt)))
}
