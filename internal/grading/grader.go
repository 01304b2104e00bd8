package grading

import (
	"encoding/json"
	"strings"

	"github.com/edustep/placement-backend/internal/model"
	"github.com/google/uuid"
)

// Result is the outcome of grading one question.
type Result struct {
	QuestionID     uuid.UUID `json:"question_id"`
	Answered       bool      `json:"answered"`
	IsCorrect      bool      `json:"is_correct"`
	PointsEarned   float64   `json:"points_earned"`
	PointsPossible float64   `json:"points_possible"`
}

// Grade scores a raw submitted value against a question's correct spec.
// Malformed student input never produces an error — the unparseable portion
// degrades to zero credit. The only error source is an undecodable correct
// spec, which is an authoring fault the caller decides how to surface.
//
// precision is the exam's declared decimal precision for rounding partial
// credit.
func Grade(q *model.Question, raw string, precision int) (Result, error) {
	spec, err := ParseSpec(q)
	if err != nil {
		return Result{QuestionID: q.ID, PointsPossible: q.PointValue}, err
	}

	res := Result{
		QuestionID:     q.ID,
		Answered:       strings.TrimSpace(raw) != "",
		PointsPossible: q.PointValue,
	}
	if !res.Answered {
		return res, nil
	}

	switch s := spec.(type) {
	case SingleChoiceSpec:
		res.IsCorrect = gradeSingleChoice(s.Answer, raw, q.OptionCount)
		if res.IsCorrect {
			res.PointsEarned = q.PointValue
		}

	case MultiSelectSpec:
		res.IsCorrect = gradeMultiSelect(s.Answers, raw, q.OptionCount)
		if res.IsCorrect {
			res.PointsEarned = q.PointValue
		}

	case FreeFormSpec:
		correct, total := gradeFreeForm(s.Answer, raw, q.OptionCount)
		res.IsCorrect = correct == total
		res.PointsEarned = RoundTo(q.PointValue*float64(correct)/float64(total), precision)

	case CompoundSpec:
		correct, total := gradeCompound(s.Components, raw)
		res.IsCorrect = correct == total
		res.PointsEarned = RoundTo(q.PointValue*float64(correct)/float64(total), precision)
	}

	return res, nil
}

// gradeSingleChoice compares exactly one letter, case-insensitively. A value
// that is not a single letter inside the question's alphabet is simply wrong.
func gradeSingleChoice(correct, raw string, optionCount int) bool {
	sel := strings.ToUpper(strings.TrimSpace(raw))
	if !validLetter(sel, optionCount) {
		return false
	}
	return strings.EqualFold(sel, strings.TrimSpace(correct))
}

// gradeMultiSelect compares letter sets: order-irrelevant, duplicates
// collapsed, exact set equality. No partial credit.
func gradeMultiSelect(correct []string, raw string, optionCount int) bool {
	want := make(map[string]struct{}, len(correct))
	for _, c := range correct {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			want[c] = struct{}{}
		}
	}

	got := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		p := strings.ToUpper(strings.TrimSpace(part))
		if p == "" {
			continue
		}
		if !validLetter(p, optionCount) {
			// A letter outside the alphabet can never match the key,
			// so the set comparison fails.
			return false
		}
		got[p] = struct{}{}
	}

	if len(got) != len(want) {
		return false
	}
	for k := range want {
		if _, ok := got[k]; !ok {
			return false
		}
	}
	return true
}

// gradeFreeForm returns (correctParts, totalParts). With optionCount <= 1 the
// whole value is compared directly; otherwise both sides are split into
// optionCount parts and compared independently. Missing or surplus delimited
// parts count as incorrect parts, never as an error.
func gradeFreeForm(correct, raw string, optionCount int) (int, int) {
	if optionCount <= 1 {
		if equalsTrimmedFold(correct, raw) {
			return 1, 1
		}
		return 0, 1
	}

	wantParts := padParts(splitParts(correct), optionCount)
	gotParts := padParts(splitParts(raw), optionCount)

	matched := 0
	for i := 0; i < optionCount; i++ {
		if wantParts[i] != "" && equalsTrimmedFold(wantParts[i], gotParts[i]) {
			matched++
		}
	}
	return matched, optionCount
}

// gradeCompound returns (correctComponents, totalComponents). The raw value
// must parse into an ordered list the same length as the component list; a
// value that does not parse at all leaves every component unanswered.
func gradeCompound(components []CompoundComponent, raw string) (int, int) {
	total := len(components)

	parts, ok := parseCompoundAnswer(raw)
	if !ok {
		return 0, total
	}
	parts = padParts(parts, total)

	matched := 0
	for i, comp := range components {
		switch comp.Kind {
		case ComponentKindMCQ:
			if gradeSingleChoice(comp.Answer, parts[i], comp.OptionCount) {
				matched++
			}
		case ComponentKindInput:
			if equalsTrimmedFold(comp.Answer, parts[i]) {
				matched++
			}
		}
	}
	return matched, total
}

// parseCompoundAnswer accepts a JSON array of strings or, as a fallback, a
// pipe-delimited string. Anything else is treated as unparseable.
func parseCompoundAnswer(raw string) ([]string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, false
	}

	if strings.HasPrefix(trimmed, "[") {
		var parts []string
		if err := json.Unmarshal([]byte(trimmed), &parts); err != nil {
			return nil, false
		}
		return parts, true
	}

	return strings.Split(trimmed, "|"), true
}

// splitParts splits a multi-part value on pipe when present, comma otherwise.
func splitParts(s string) []string {
	sep := ","
	if strings.Contains(s, "|") {
		sep = "|"
	}
	return strings.Split(s, sep)
}

// padParts extends or truncates parts to exactly n entries; missing entries
// become empty strings (graded as incorrect).
func padParts(parts []string, n int) []string {
	out := make([]string, n)
	for i := 0; i < n && i < len(parts); i++ {
		out[i] = parts[i]
	}
	return out
}

func equalsTrimmedFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// validLetter reports whether sel is a single uppercase letter within the
// A..(optionCount-th letter) alphabet. optionCount outside [2,10] falls back
// to the full range.
func validLetter(sel string, optionCount int) bool {
	if len(sel) != 1 {
		return false
	}
	if optionCount < 2 || optionCount > 10 {
		optionCount = 10
	}
	c := sel[0]
	return c >= 'A' && c < 'A'+byte(optionCount)
}
