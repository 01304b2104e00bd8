package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/edustep/placement-backend/internal/model"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type placementRuleFinder interface {
	RulesMatching(ctx context.Context, grade int, bucket model.RankBucket, termTag *string) ([]model.PlacementRule, error)
}

type levelReader interface {
	LevelByID(ctx context.Context, id int) (*model.CurriculumLevel, error)
}

type activeExamFinder interface {
	ActiveForLevel(ctx context.Context, levelID int) (*model.Exam, error)
}

// MatchResult is the outcome of a successful placement lookup.
type MatchResult struct {
	Rule  model.PlacementRule   `json:"rule"`
	Level model.CurriculumLevel `json:"level"`
	Exam  model.Exam            `json:"exam"`
}

// PlacementService resolves student academic standing into a concrete exam via
// the placement rule table.
type PlacementService struct {
	rules  placementRuleFinder
	levels levelReader
	exams  activeExamFinder
	logger zerolog.Logger
}

// NewPlacementService creates a PlacementService.
func NewPlacementService(rules placementRuleFinder, levels levelReader, exams activeExamFinder) *PlacementService {
	return &PlacementService{
		rules:  rules,
		levels: levels,
		exams:  exams,
		logger: log.With().Str("component", "placement_service").Logger(),
	}
}

// MatchExam finds the exam a student should sit. Among qualifying rules the
// most specific wins; ties break toward the newest rule. A match with no
// active exam is an explicit failure, never a silent fallback to another rule.
func (s *PlacementService) MatchExam(ctx context.Context, grade int, bucket model.RankBucket, termTag *string) (*MatchResult, error) {
	candidates, err := s.rules.RulesMatching(ctx, grade, bucket, termTag)
	if err != nil {
		return nil, fmt.Errorf("match exam: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoMatchingRule
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := candidates[i].Specificity(), candidates[j].Specificity()
		if si != sj {
			return si > sj
		}
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	rule := candidates[0]

	level, err := s.levels.LevelByID(ctx, rule.LevelID)
	if err != nil {
		return nil, fmt.Errorf("match exam: %w", err)
	}
	if level == nil {
		s.logger.Error().Int("rule_id", rule.ID).Int("level_id", rule.LevelID).
			Msg("placement rule points at a missing level")
		return nil, ErrLevelNotFound
	}

	exam, err := s.exams.ActiveForLevel(ctx, level.ID)
	if err != nil {
		return nil, fmt.Errorf("match exam: %w", err)
	}
	if exam == nil {
		return nil, ErrNoActiveExamForLevel
	}

	s.logger.Debug().Int("rule_id", rule.ID).Int("level_id", level.ID).
		Str("exam_id", exam.ID.String()).Msg("placement matched")

	return &MatchResult{Rule: rule, Level: *level, Exam: *exam}, nil
}
