package scoring

import (
	"sort"

	"github.com/MikeSquared-Agency/Tally/internal/catalog"
)

const (
	strengthCount    = 3
	improvementCount = 2
)

// RankSections returns the top sections by percentage and the bottom ones,
// lowest first. Ties fall back to canonical catalog order.
func RankSections(weights *catalog.WeightCatalog, sections map[catalog.Section]SectionScore) (strengths, improvements []catalog.Section) {
	ranked := make([]catalog.Section, 0, len(sections))
	for name := range sections {
		ranked = append(ranked, name)
	}
	sort.Slice(ranked, func(i, j int) bool {
		pi, pj := sections[ranked[i]].Percentage, sections[ranked[j]].Percentage
		if pi != pj {
			return pi > pj
		}
		if oi, oj := orderOf(weights, ranked[i]), orderOf(weights, ranked[j]); oi != oj {
			return oi < oj
		}
		return ranked[i] < ranked[j]
	})

	n := min(strengthCount, len(ranked))
	strengths = append([]catalog.Section{}, ranked[:n]...)

	m := min(improvementCount, len(ranked))
	improvements = make([]catalog.Section, 0, m)
	for i := len(ranked) - 1; i >= len(ranked)-m; i-- {
		improvements = append(improvements, ranked[i])
	}
	return strengths, improvements
}

// orderOf places uncatalogued sections after catalogued ones.
func orderOf(weights *catalog.WeightCatalog, s catalog.Section) int {
	if i := weights.Order(s); i >= 0 {
		return i
	}
	return weights.Len()
}
