package grading

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/edustep/placement-backend/internal/model"
)

// Spec is the closed set of correctness specifications, one variant per
// question type. The raw JSON stored on a question is parsed into exactly one
// of these before grading.
type Spec interface {
	isSpec()
}

// SingleChoiceSpec holds the single correct letter for a choice question.
type SingleChoiceSpec struct {
	Answer string `json:"answer"`
}

// MultiSelectSpec holds the exact set of correct letters.
type MultiSelectSpec struct {
	Answers []string `json:"answers"`
}

// FreeFormSpec holds the expected text. For multi-part questions the parts
// are delimited by pipe or comma and split against the question's OptionCount
// at grading time.
type FreeFormSpec struct {
	Answer string `json:"answer"`
}

// CompoundSpec holds the ordered list of independently-gradable components.
type CompoundSpec struct {
	Components []CompoundComponent `json:"components"`
}

// CompoundComponent is one sub-answer of a compound question: either a small
// multiple-choice ("mcq") with its own option alphabet, or a free-form text
// ("input").
type CompoundComponent struct {
	Kind        string `json:"kind"`
	Answer      string `json:"answer"`
	OptionCount int    `json:"option_count,omitempty"`
}

const (
	ComponentKindMCQ   = "mcq"
	ComponentKindInput = "input"
)

func (SingleChoiceSpec) isSpec() {}
func (MultiSelectSpec) isSpec()  {}
func (FreeFormSpec) isSpec()     {}
func (CompoundSpec) isSpec()     {}

// ParseSpec decodes a question's correct_spec JSON into its typed variant.
// A parse failure here is an authoring error, not a student-input error, so
// it is returned rather than degraded.
func ParseSpec(q *model.Question) (Spec, error) {
	if len(q.CorrectSpec) == 0 {
		return nil, fmt.Errorf("question %s: empty correct spec", q.ID)
	}

	switch q.QuestionType {
	case model.QuestionTypeSingleChoice:
		var s SingleChoiceSpec
		if err := json.Unmarshal(q.CorrectSpec, &s); err != nil {
			return nil, fmt.Errorf("question %s: decode single-choice spec: %w", q.ID, err)
		}
		if strings.TrimSpace(s.Answer) == "" {
			return nil, fmt.Errorf("question %s: single-choice spec has no answer", q.ID)
		}
		return s, nil

	case model.QuestionTypeMultiSelect:
		var s MultiSelectSpec
		if err := json.Unmarshal(q.CorrectSpec, &s); err != nil {
			return nil, fmt.Errorf("question %s: decode multi-select spec: %w", q.ID, err)
		}
		if len(s.Answers) == 0 {
			return nil, fmt.Errorf("question %s: multi-select spec has no answers", q.ID)
		}
		return s, nil

	case model.QuestionTypeFreeForm:
		var s FreeFormSpec
		if err := json.Unmarshal(q.CorrectSpec, &s); err != nil {
			return nil, fmt.Errorf("question %s: decode free-form spec: %w", q.ID, err)
		}
		if strings.TrimSpace(s.Answer) == "" {
			return nil, fmt.Errorf("question %s: free-form spec has no answer", q.ID)
		}
		return s, nil

	case model.QuestionTypeCompound:
		var s CompoundSpec
		if err := json.Unmarshal(q.CorrectSpec, &s); err != nil {
			return nil, fmt.Errorf("question %s: decode compound spec: %w", q.ID, err)
		}
		if len(s.Components) == 0 {
			return nil, fmt.Errorf("question %s: compound spec has no components", q.ID)
		}
		for i, c := range s.Components {
			if c.Kind != ComponentKindMCQ && c.Kind != ComponentKindInput {
				return nil, fmt.Errorf("question %s: component %d has unknown kind %q", q.ID, i, c.Kind)
			}
		}
		return s, nil
	}

	return nil, fmt.Errorf("question %s: unknown question type %q", q.ID, q.QuestionType)
}
