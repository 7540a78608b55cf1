package catalog

import "fmt"

// Criterion is an inclusive percentage range on one section. A nil bound is
// unbounded on that side.
type Criterion struct {
	Section Section  `json:"section"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
}

// Contains reports whether pct lies within the range.
func (c Criterion) Contains(pct float64) bool {
	if c.Min != nil && pct < *c.Min {
		return false
	}
	if c.Max != nil && pct > *c.Max {
		return false
	}
	return true
}

// Profile is a named category assigned from section percentages.
type Profile struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Gender   Gender      `json:"gender"`
	Criteria []Criterion `json:"criteria,omitempty"`
}

// IsFallback reports whether p is the criteria-less unisex profile.
func (p Profile) IsFallback() bool {
	return p.Gender == GenderNone && len(p.Criteria) == 0
}

// ProfileCatalog keeps profiles in declaration order; it is never re-sorted.
type ProfileCatalog struct {
	profiles []Profile
	fallback int
}

// NewProfileCatalog requires exactly one fallback profile. A profile without
// a gender is unisex.
func NewProfileCatalog(weights *WeightCatalog, profiles []Profile) (*ProfileCatalog, error) {
	out := make([]Profile, len(profiles))
	copy(out, profiles)
	for i := range out {
		if out[i].Gender == "" {
			out[i].Gender = GenderNone
		}
	}

	var problems []string
	seen := make(map[string]bool, len(out))
	fallback, fallbacks := -1, 0

	for i, p := range out {
		if p.ID == "" {
			problems = append(problems, fmt.Sprintf("profile %d has no id", i))
		} else if seen[p.ID] {
			problems = append(problems, fmt.Sprintf("duplicate profile id %q", p.ID))
		}
		seen[p.ID] = true

		if !p.Gender.Valid() {
			problems = append(problems, fmt.Sprintf("profile %q: invalid gender %q", p.ID, p.Gender))
		}
		for _, c := range p.Criteria {
			if !weights.Has(c.Section) {
				problems = append(problems, fmt.Sprintf("profile %q: unknown section %q%s", p.ID, c.Section, suggestSection(weights, c.Section)))
			}
			if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
				problems = append(problems, fmt.Sprintf("profile %q: min %.1f above max %.1f for %q", p.ID, *c.Min, *c.Max, c.Section))
			}
			for _, b := range []*float64{c.Min, c.Max} {
				if b != nil && (*b < 0 || *b > 100) {
					problems = append(problems, fmt.Sprintf("profile %q: bound %.1f outside [0,100]", p.ID, *b))
				}
			}
		}
		if p.IsFallback() {
			fallback = i
			fallbacks++
		}
	}

	switch {
	case fallbacks == 0:
		problems = append(problems, "missing fallback profile (gender none, no criteria)")
	case fallbacks > 1:
		problems = append(problems, fmt.Sprintf("expected exactly one fallback profile, found %d", fallbacks))
	}
	if err := configErr("profile catalog", problems); err != nil {
		return nil, err
	}

	return &ProfileCatalog{profiles: out, fallback: fallback}, nil
}

// All returns the profiles in declaration order.
func (c *ProfileCatalog) All() []Profile {
	out := make([]Profile, len(c.profiles))
	copy(out, c.profiles)
	return out
}

// Fallback returns the designated fallback profile.
func (c *ProfileCatalog) Fallback() Profile { return c.profiles[c.fallback] }

func (c *ProfileCatalog) Len() int { return len(c.profiles) }
