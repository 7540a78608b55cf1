package catalog

import (
	"strings"

	"golang.org/x/text/cases"
)

// Gender is the gender affinity of a profile or respondent.
type Gender string

const (
	GenderNone   Gender = "none"
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// ParseGender normalises free-form demographic input. Unrecognised or empty
// input yields "", which matches no gender-specific profile.
func ParseGender(s string) Gender {
	switch cases.Fold().String(strings.TrimSpace(s)) {
	case "m", "male", "man":
		return GenderMale
	case "f", "female", "woman":
		return GenderFemale
	default:
		return ""
	}
}

func (g Gender) Valid() bool {
	return g == GenderNone || g == GenderMale || g == GenderFemale
}
