package scoring

import (
	"github.com/MikeSquared-Agency/Tally/internal/catalog"
)

// ProfileRef is the persisted reference to an assigned profile.
type ProfileRef struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Gender catalog.Gender `json:"gender"`
}

func refOf(p catalog.Profile) ProfileRef {
	return ProfileRef{ID: p.ID, Name: p.Name, Gender: p.Gender}
}

// ProfileMatch holds the unisex profile and the optional gender-specific one.
type ProfileMatch struct {
	Unisex         ProfileRef  `json:"unisex"`
	GenderSpecific *ProfileRef `json:"gender_specific,omitempty"`
}

// MatchProfiles assigns profiles by first match in catalog order. The result
// depends only on its arguments.
func MatchProfiles(profiles *catalog.ProfileCatalog, sections map[catalog.Section]SectionScore, gender catalog.Gender) ProfileMatch {
	all := profiles.All()

	m := ProfileMatch{Unisex: refOf(profiles.Fallback())}
	if p, ok := firstMatch(all, catalog.GenderNone, sections); ok {
		m.Unisex = refOf(p)
	}

	if gender == catalog.GenderMale || gender == catalog.GenderFemale {
		if p, ok := firstMatch(all, gender, sections); ok {
			ref := refOf(p)
			m.GenderSpecific = &ref
		}
	}
	return m
}

func firstMatch(profiles []catalog.Profile, gender catalog.Gender, sections map[catalog.Section]SectionScore) (catalog.Profile, bool) {
	for _, p := range profiles {
		if p.Gender == gender && matches(p, sections) {
			return p, true
		}
	}
	return catalog.Profile{}, false
}

// matches requires every criterion to hold. A criterion on a section the
// result does not cover fails.
func matches(p catalog.Profile, sections map[catalog.Section]SectionScore) bool {
	for _, c := range p.Criteria {
		s, ok := sections[c.Section]
		if !ok || !c.Contains(s.Percentage) {
			return false
		}
	}
	return true
}
