package catalog

import (
	"fmt"

	"github.com/agnivade/levenshtein"
)

// Question kind names as they appear in catalog files.
const (
	KindDeclaration    = "declaration"
	KindMultipleChoice = "multiple_choice"
	KindInput          = "input"
)

// Kind is the closed set of question variants. Each variant carries only
// what its scoring rule needs.
type Kind interface {
	Name() string
	Options() []string
	kind()
}

// Declaration is a binary commitment question: Affirm is the commitment,
// Decline the hedged answer.
type Declaration struct {
	Affirm  string
	Decline string
}

func (Declaration) Name() string        { return KindDeclaration }
func (d Declaration) Options() []string { return []string{d.Affirm, d.Decline} }
func (Declaration) kind()               {}

// MultipleChoice options are graded by ordinal position.
type MultipleChoice struct {
	Choices []string
}

func (MultipleChoice) Name() string { return KindMultipleChoice }
func (m MultipleChoice) Options() []string {
	out := make([]string, len(m.Choices))
	copy(out, m.Choices)
	return out
}
func (MultipleChoice) kind() {}

// Input accepts a free-form payload.
type Input struct{}

func (Input) Name() string      { return KindInput }
func (Input) Options() []string { return nil }
func (Input) kind()             {}

// Question is immutable once published.
type Question struct {
	ID         string  `json:"id"`
	Section    Section `json:"section"`
	BaseWeight float64 `json:"base_weight"`
	Weight     float64 `json:"weight"`
	Kind       Kind    `json:"-"`
}

// Options returns the ordered option labels of the question.
func (q Question) Options() []string {
	if q.Kind == nil {
		return nil
	}
	return q.Kind.Options()
}

// QuestionCatalog is the ordered, validated question set.
type QuestionCatalog struct {
	questions []Question
	index     map[string]int
}

// NewQuestionCatalog checks every question against the weight catalog.
// Questions without an effective weight inherit their base weight.
func NewQuestionCatalog(weights *WeightCatalog, questions []Question) (*QuestionCatalog, error) {
	var problems []string
	if len(questions) == 0 {
		problems = append(problems, "no questions declared")
	}

	out := make([]Question, 0, len(questions))
	index := make(map[string]int, len(questions))
	for i, q := range questions {
		if q.ID == "" {
			problems = append(problems, fmt.Sprintf("question %d has no id", i))
			continue
		}
		if _, dup := index[q.ID]; dup {
			problems = append(problems, fmt.Sprintf("duplicate question id %q", q.ID))
			continue
		}
		if !weights.Has(q.Section) {
			problems = append(problems, fmt.Sprintf("question %q: unknown section %q%s", q.ID, q.Section, suggestSection(weights, q.Section)))
		}
		if q.Weight == 0 {
			q.Weight = q.BaseWeight
		}
		if q.BaseWeight <= 0 || q.Weight <= 0 {
			problems = append(problems, fmt.Sprintf("question %q: weights must be positive", q.ID))
		}
		switch k := q.Kind.(type) {
		case Declaration:
			if k.Affirm == "" || k.Decline == "" {
				problems = append(problems, fmt.Sprintf("question %q: declaration needs exactly 2 options", q.ID))
			}
		case MultipleChoice:
			if len(k.Choices) == 0 {
				problems = append(problems, fmt.Sprintf("question %q: multiple choice needs at least 1 option", q.ID))
			}
		case Input:
		default:
			problems = append(problems, fmt.Sprintf("question %q: missing kind", q.ID))
		}
		index[q.ID] = len(out)
		out = append(out, q)
	}

	if err := configErr("question catalog", problems); err != nil {
		return nil, err
	}
	return &QuestionCatalog{questions: out, index: index}, nil
}

// Lookup returns the question with the given identifier.
func (c *QuestionCatalog) Lookup(id string) (Question, bool) {
	i, ok := c.index[id]
	if !ok {
		return Question{}, false
	}
	return c.questions[i], true
}

// All returns the questions in catalog order.
func (c *QuestionCatalog) All() []Question {
	out := make([]Question, len(c.questions))
	copy(out, c.questions)
	return out
}

func (c *QuestionCatalog) Len() int { return len(c.questions) }

// suggestSection returns a " (did you mean ...)" hint for near-miss section
// names, or "" when nothing is close.
func suggestSection(weights *WeightCatalog, name Section) string {
	const maxDistance = 3
	best, bestDist := Section(""), maxDistance+1
	for _, s := range weights.Names() {
		if d := levenshtein.ComputeDistance(string(name), string(s)); d < bestDist {
			best, bestDist = s, d
		}
	}
	if best == "" {
		return ""
	}
	return fmt.Sprintf(" (did you mean %q?)", best)
}
