package model

import "time"

// PlacementRule maps a (grade range, rank bucket, optional term scope) to a
// target curriculum level. Rules are authored by an external admin workflow
// and are read-only here.
type PlacementRule struct {
	ID         int        `json:"id"`
	GradeMin   int        `json:"grade_min"`
	GradeMax   int        `json:"grade_max"`
	RankBucket RankBucket `json:"rank_bucket"`
	TermTag    *string    `json:"term_tag,omitempty"` // nil = applies to any term
	LevelID    int        `json:"level_id"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Specificity ranks how narrowly a rule is scoped. A term-scoped rule beats a
// term-agnostic one; a single-grade rule beats a grade range. Ties are broken
// by CreatedAt at the call site.
func (r *PlacementRule) Specificity() int {
	score := 0
	if r.TermTag != nil {
		score += 2
	}
	if r.GradeMin == r.GradeMax {
		score++
	}
	return score
}
