package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

var validate = validator.New()

// Bundle is one consistent snapshot of the three catalogs.
type Bundle struct {
	Version   string
	Weights   *WeightCatalog
	Questions *QuestionCatalog
	Profiles  *ProfileCatalog
}

type fileCatalog struct {
	Version     string         `yaml:"version" validate:"required"`
	TotalWeight float64        `yaml:"total_weight" validate:"gt=0"`
	Sections    []fileSection  `yaml:"sections" validate:"required,min=1,dive"`
	Questions   []fileQuestion `yaml:"questions" validate:"required,min=1,dive"`
	Profiles    []fileProfile  `yaml:"profiles" validate:"required,min=1,dive"`
}

type fileSection struct {
	Name   string  `yaml:"name" validate:"required"`
	Weight float64 `yaml:"weight" validate:"gte=0"`
	Share  float64 `yaml:"share" validate:"gte=0,lte=1"`
}

type fileQuestion struct {
	ID         string   `yaml:"id" validate:"required"`
	Section    string   `yaml:"section" validate:"required"`
	Type       string   `yaml:"type" validate:"required,oneof=declaration multiple_choice input"`
	Options    []string `yaml:"options"`
	BaseWeight float64  `yaml:"base_weight" validate:"gt=0"`
	Weight     float64  `yaml:"weight" validate:"gte=0"`
}

type fileProfile struct {
	ID       string          `yaml:"id" validate:"required"`
	Name     string          `yaml:"name" validate:"required"`
	Gender   string          `yaml:"gender" validate:"omitempty,oneof=none male female"`
	Criteria []fileCriterion `yaml:"criteria" validate:"dive"`
}

type fileCriterion struct {
	Section string   `yaml:"section" validate:"required"`
	Min     *float64 `yaml:"min" validate:"omitempty,gte=0,lte=100"`
	Max     *float64 `yaml:"max" validate:"omitempty,gte=0,lte=100"`
}

// Load reads a catalog file. An empty path loads the embedded default.
func Load(path string) (*Bundle, error) {
	if path == "" {
		return Parse(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Default returns the embedded canonical catalog.
func Default() (*Bundle, error) { return Parse(defaultCatalog) }

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Bundle, error) {
	var fc fileCatalog
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, &ConfigurationError{Component: "catalog", Problems: []string{"parse: " + err.Error()}}
	}
	if err := validate.Struct(fc); err != nil {
		return nil, &ConfigurationError{Component: "catalog", Problems: validationProblems(err)}
	}

	sections := make([]SectionWeight, len(fc.Sections))
	for i, s := range fc.Sections {
		sections[i] = SectionWeight{Name: Section(s.Name), Weight: s.Weight, Share: s.Share}
	}
	weights, err := NewWeightCatalog(fc.TotalWeight, sections)
	if err != nil {
		return nil, err
	}

	questions := make([]Question, len(fc.Questions))
	for i, q := range fc.Questions {
		questions[i] = Question{
			ID:         q.ID,
			Section:    Section(q.Section),
			BaseWeight: q.BaseWeight,
			Weight:     q.Weight,
			Kind:       kindFor(q),
		}
	}
	qc, err := NewQuestionCatalog(weights, questions)
	if err != nil {
		return nil, err
	}

	profiles := make([]Profile, len(fc.Profiles))
	for i, p := range fc.Profiles {
		gender := Gender(p.Gender)
		criteria := make([]Criterion, len(p.Criteria))
		for j, c := range p.Criteria {
			criteria[j] = Criterion{Section: Section(c.Section), Min: c.Min, Max: c.Max}
		}
		profiles[i] = Profile{ID: p.ID, Name: p.Name, Gender: gender, Criteria: criteria}
	}
	pc, err := NewProfileCatalog(weights, profiles)
	if err != nil {
		return nil, err
	}

	return &Bundle{Version: fc.Version, Weights: weights, Questions: qc, Profiles: pc}, nil
}

// kindFor maps a file question to its variant. A declaration with the wrong
// option count gets an empty label, which NewQuestionCatalog rejects.
func kindFor(q fileQuestion) Kind {
	switch q.Type {
	case KindDeclaration:
		if len(q.Options) != 2 {
			return Declaration{}
		}
		return Declaration{Affirm: q.Options[0], Decline: q.Options[1]}
	case KindMultipleChoice:
		return MultipleChoice{Choices: q.Options}
	case KindInput:
		return Input{}
	}
	return nil
}

func validationProblems(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			out = append(out, fmt.Sprintf("%s: failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			out = append(out, fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return out
}
