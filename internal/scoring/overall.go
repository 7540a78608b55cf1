package scoring

import (
	"math"

	"github.com/MikeSquared-Agency/Tally/internal/catalog"
)

// DefaultIntegrityTolerance is the allowed gap, in percentage points, between
// the two overall formulas on a complete assessment.
const DefaultIntegrityTolerance = 0.5

// Overall is the combined score of one assessment.
type Overall struct {
	Percentage    float64
	TotalEarned   float64
	TotalPossible float64
	Complete      bool
	WeightedShare *float64
	Warning       *DataIntegrityWarning
}

// OverallScore computes the canonical earned/possible percentage. When every
// catalog section is present the weighted-share formula is computed as a
// cross-check and a disagreement beyond tolerance yields a warning.
func OverallScore(weights *catalog.WeightCatalog, sections map[catalog.Section]SectionScore, tolerance float64) Overall {
	var o Overall
	complete := weights.Len() > 0
	var weighted float64
	for _, sw := range weights.Sections() {
		s, ok := sections[sw.Name]
		if !ok {
			complete = false
			continue
		}
		o.TotalEarned += s.Earned
		o.TotalPossible += s.Possible
		weighted += s.Percentage * sw.Share
	}

	o.Percentage = percentage(o.TotalEarned, o.TotalPossible)
	o.Complete = complete
	if !complete {
		return o
	}

	ws := roundHalfUp(weighted)
	o.WeightedShare = &ws
	if delta := math.Abs(ws - o.Percentage); delta > tolerance {
		o.Warning = &DataIntegrityWarning{
			Canonical:     o.Percentage,
			WeightedShare: ws,
			Delta:         roundHalfUp(delta),
			Tolerance:     tolerance,
		}
	}
	return o
}
