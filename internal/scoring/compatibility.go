package scoring

import (
	"fmt"
	"math"

	"github.com/MikeSquared-Agency/Tally/internal/catalog"
)

// Side names which partner scored higher on a section.
type Side string

const (
	SideA   Side = "a"
	SideB   Side = "b"
	SideTie Side = "tie"
)

// CoupleLink pairs two respondents.
type CoupleLink struct {
	PairingID   string `json:"pairing_id"`
	RespondentA string `json:"respondent_a"`
	RespondentB string `json:"respondent_b"`
	CompleteA   bool   `json:"complete_a"`
	CompleteB   bool   `json:"complete_b"`
}

// Complete reports whether both sides finished the assessment.
func (l CoupleLink) Complete() bool { return l.CompleteA && l.CompleteB }

// SectionAlignment compares one section across the couple.
type SectionAlignment struct {
	Section     catalog.Section `json:"section"`
	PercentageA float64         `json:"percentage_a"`
	PercentageB float64         `json:"percentage_b"`
	Alignment   float64         `json:"alignment"`
	Higher      Side            `json:"higher"`
}

// CompatibilityReport is the couple comparison consumed by report rendering.
type CompatibilityReport struct {
	PairingID    string             `json:"pairing_id,omitempty"`
	RespondentA  string             `json:"respondent_a"`
	RespondentB  string             `json:"respondent_b"`
	Composite    float64            `json:"composite"`
	Sections     []SectionAlignment `json:"sections"`
	Incomparable []catalog.Section  `json:"incomparable,omitempty"`
}

// Compare aligns two results section by section in catalog order. Sections
// present in only one result are reported as incomparable and excluded from
// the share-weighted composite.
func Compare(weights *catalog.WeightCatalog, a, b *AssessmentResult) CompatibilityReport {
	report := CompatibilityReport{
		RespondentA: a.RespondentID,
		RespondentB: b.RespondentID,
		Sections:    []SectionAlignment{},
	}

	var weighted, shares float64
	for _, sw := range weights.Sections() {
		sa, okA := a.Sections[sw.Name]
		sb, okB := b.Sections[sw.Name]
		switch {
		case okA && okB:
		case okA || okB:
			report.Incomparable = append(report.Incomparable, sw.Name)
			continue
		default:
			continue
		}

		align := roundHalfUp(clamp(100-math.Abs(sa.Percentage-sb.Percentage), 0, 100))
		higher := SideTie
		switch {
		case sa.Percentage > sb.Percentage:
			higher = SideA
		case sb.Percentage > sa.Percentage:
			higher = SideB
		}
		report.Sections = append(report.Sections, SectionAlignment{
			Section:     sw.Name,
			PercentageA: sa.Percentage,
			PercentageB: sb.Percentage,
			Alignment:   align,
			Higher:      higher,
		})
		weighted += align * sw.Share
		shares += sw.Share
	}

	if shares > 0 {
		report.Composite = roundHalfUp(weighted / shares)
	}
	return report
}

// CompareLinked compares the results of a completed couple link.
func CompareLinked(weights *catalog.WeightCatalog, link CoupleLink, a, b *AssessmentResult) (*CompatibilityReport, error) {
	if !link.Complete() || a == nil || b == nil {
		return nil, fmt.Errorf("%w: pairing %s", ErrCoupleIncomplete, link.PairingID)
	}
	if a.RespondentID != link.RespondentA || b.RespondentID != link.RespondentB {
		return nil, fmt.Errorf("%w: pairing %s", ErrCoupleMismatch, link.PairingID)
	}
	report := Compare(weights, a, b)
	report.PairingID = link.PairingID
	return &report, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
