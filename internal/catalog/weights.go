package catalog

import (
	"fmt"
	"math"
)

// Tolerance used when reconciling the weight and share totals.
const sumTolerance = 1e-6

// Section is one thematic grouping of questions, e.g. "Finances".
type Section string

// SectionWeight is one row of the weight catalog.
type SectionWeight struct {
	Name   Section `json:"name"`
	Weight float64 `json:"weight"`
	Share  float64 `json:"share"`
}

// WeightCatalog holds the fixed section weights and percentage shares.
// Declaration order is the canonical section order used for tie-breaks.
type WeightCatalog struct {
	total    float64
	sections []SectionWeight
	index    map[Section]int
}

// NewWeightCatalog validates that weights sum to total and shares sum to 1.0.
func NewWeightCatalog(total float64, sections []SectionWeight) (*WeightCatalog, error) {
	var problems []string
	if len(sections) == 0 {
		problems = append(problems, "no sections declared")
	}

	index := make(map[Section]int, len(sections))
	var weightSum, shareSum float64
	for i, s := range sections {
		if s.Name == "" {
			problems = append(problems, fmt.Sprintf("section %d has no name", i))
			continue
		}
		if _, dup := index[s.Name]; dup {
			problems = append(problems, fmt.Sprintf("duplicate section %q", s.Name))
			continue
		}
		if s.Weight < 0 {
			problems = append(problems, fmt.Sprintf("negative weight for %q: %f", s.Name, s.Weight))
		}
		if s.Share < 0 {
			problems = append(problems, fmt.Sprintf("negative share for %q: %f", s.Name, s.Share))
		}
		index[s.Name] = i
		weightSum += s.Weight
		shareSum += s.Share
	}

	if math.Abs(weightSum-total) > sumTolerance {
		problems = append(problems, fmt.Sprintf("weights sum to %.4f, must sum to total weight %.4f", weightSum, total))
	}
	if math.Abs(shareSum-1.0) > sumTolerance {
		problems = append(problems, fmt.Sprintf("shares sum to %.6f, must sum to 1.0", shareSum))
	}
	if err := configErr("weight catalog", problems); err != nil {
		return nil, err
	}

	out := make([]SectionWeight, len(sections))
	copy(out, sections)
	return &WeightCatalog{total: total, sections: out, index: index}, nil
}

// TotalWeight returns the published total weight constant.
func (w *WeightCatalog) TotalWeight() float64 { return w.total }

// Sections returns the section rows in canonical order.
func (w *WeightCatalog) Sections() []SectionWeight {
	out := make([]SectionWeight, len(w.sections))
	copy(out, w.sections)
	return out
}

// Names returns the section names in canonical order.
func (w *WeightCatalog) Names() []Section {
	out := make([]Section, len(w.sections))
	for i, s := range w.sections {
		out[i] = s.Name
	}
	return out
}

func (w *WeightCatalog) Has(s Section) bool {
	_, ok := w.index[s]
	return ok
}

// Order returns the canonical position of s, or -1 when s is not catalogued.
func (w *WeightCatalog) Order(s Section) int {
	if i, ok := w.index[s]; ok {
		return i
	}
	return -1
}

// Share returns the percentage share of s, 0 for unknown sections.
func (w *WeightCatalog) Share(s Section) float64 {
	if i, ok := w.index[s]; ok {
		return w.sections[i].Share
	}
	return 0
}

// Weight returns the section weight of s, 0 for unknown sections.
func (w *WeightCatalog) Weight(s Section) float64 {
	if i, ok := w.index[s]; ok {
		return w.sections[i].Weight
	}
	return 0
}

func (w *WeightCatalog) Len() int { return len(w.sections) }
