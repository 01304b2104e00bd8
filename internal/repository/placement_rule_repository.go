package repository

import (
	"context"

	"github.com/edustep/placement-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PlacementRuleRepository handles read access to placement rules. Rules are
// authored by an external admin workflow; this core never writes them.
type PlacementRuleRepository struct {
	pool *pgxpool.Pool
}

// NewPlacementRuleRepository creates a new PlacementRuleRepository.
func NewPlacementRuleRepository(pool *pgxpool.Pool) *PlacementRuleRepository {
	return &PlacementRuleRepository{pool: pool}
}

// RulesMatching retrieves every rule whose grade range and rank bucket cover
// the input. Term-agnostic rules (term_tag IS NULL) always qualify; term-scoped
// rules qualify only when the request carries the matching term.
func (r *PlacementRuleRepository) RulesMatching(ctx context.Context, grade int, bucket model.RankBucket, termTag *string) ([]model.PlacementRule, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, grade_min, grade_max, rank_bucket, term_tag, level_id, created_at
		 FROM placement_rules
		 WHERE grade_min <= $1 AND grade_max >= $1
		   AND rank_bucket = $2
		   AND (term_tag IS NULL OR term_tag = $3)`,
		grade, bucket, termTag,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []model.PlacementRule
	for rows.Next() {
		var rule model.PlacementRule
		if err := rows.Scan(&rule.ID, &rule.GradeMin, &rule.GradeMax, &rule.RankBucket, &rule.TermTag, &rule.LevelID, &rule.CreatedAt); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}
