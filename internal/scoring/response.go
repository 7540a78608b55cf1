package scoring

import (
	"encoding/json"
	"math"
	"strings"

	"golang.org/x/text/cases"

	"github.com/MikeSquared-Agency/Tally/internal/catalog"
)

const (
	// declinePenalty is the fraction of weight earned by the second
	// declaration option.
	declinePenalty = 0.25
	choiceStep     = 0.25
	choiceFloor    = 0.25
)

// Response is one answer. Index, when set, wins over Option; Value carries
// the payload of input questions.
type Response struct {
	Option string `json:"option,omitempty"`
	Index  *int   `json:"index,omitempty"`
	Value  any    `json:"value,omitempty"`
}

// Responses maps question identifiers to answers.
type Responses map[string]Response

// ScoreResponse scores one answer against its question. It never fails: an
// unrecognised option or empty input scores zero.
func ScoreResponse(q catalog.Question, r Response) float64 {
	switch k := q.Kind.(type) {
	case catalog.Declaration:
		switch optionIndex(k.Options(), r) {
		case 0:
			return q.Weight
		case 1:
			return q.Weight * declinePenalty
		}
	case catalog.MultipleChoice:
		if i := optionIndex(k.Choices, r); i >= 0 {
			return q.Weight * math.Max(choiceFloor, 1-choiceStep*float64(i))
		}
	case catalog.Input:
		if truthy(r.Value) || strings.TrimSpace(r.Option) != "" {
			return q.Weight
		}
	}
	return 0
}

// optionIndex resolves the chosen option, -1 when it matches nothing.
func optionIndex(options []string, r Response) int {
	if r.Index != nil {
		if *r.Index >= 0 && *r.Index < len(options) {
			return *r.Index
		}
		return -1
	}
	if strings.TrimSpace(r.Option) == "" {
		return -1
	}
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(r.Option))
	for i, o := range options {
		if fold.String(strings.TrimSpace(o)) == want {
			return i
		}
	}
	return -1
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case json.Number:
		return t.String() != "0" && t.String() != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
