package scoring

import (
	"math"

	"github.com/MikeSquared-Agency/Tally/internal/catalog"
)

// SectionScore is the per-section tally of answered questions.
type SectionScore struct {
	Earned     float64 `json:"earned"`
	Possible   float64 `json:"possible"`
	Percentage float64 `json:"percentage"`
	Answered   int     `json:"answered"`
}

// Aggregate sums scored responses per section. Only answered questions count
// toward possible; sections with no answers are omitted.
func Aggregate(questions *catalog.QuestionCatalog, responses Responses) map[catalog.Section]SectionScore {
	out := make(map[catalog.Section]SectionScore)
	// Catalog order keeps float summation stable across runs.
	for _, q := range questions.All() {
		r, ok := responses[q.ID]
		if !ok {
			continue
		}
		s := out[q.Section]
		s.Earned += ScoreResponse(q, r)
		s.Possible += q.Weight
		s.Answered++
		out[q.Section] = s
	}
	for name, s := range out {
		s.Percentage = percentage(s.Earned, s.Possible)
		out[name] = s
	}
	return out
}

func percentage(earned, possible float64) float64 {
	if possible <= 0 {
		return 0
	}
	return roundHalfUp(100 * earned / possible)
}

// roundHalfUp rounds to one decimal place, halves away from zero. The epsilon
// absorbs binary representation error such as 0.15*10 = 1.4999999.
func roundHalfUp(v float64) float64 {
	return math.Floor(v*10+0.5+1e-9) / 10
}
