package service

import (
	"context"
	"fmt"

	"github.com/edustep/placement-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type adjacencyReader interface {
	LevelByID(ctx context.Context, id int) (*model.CurriculumLevel, error)
	LevelsInSubProgram(ctx context.Context, subProgramID int) ([]model.CurriculumLevel, error)
	AdjacentLevel(ctx context.Context, subProgramID, levelNumber int, direction model.Direction) (*model.CurriculumLevel, error)
}

type adjustableSessionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
	RecordAdjustment(ctx context.Context, id uuid.UUID, finalLevelID int) error
}

type adjustmentLedger interface {
	Append(ctx context.Context, rec *model.AdjustmentRecord) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.AdjustmentRecord, error)
}

// AdjustmentService moves completed sessions along the difficulty ladder of
// their subprogram, one adjacent level at a time.
type AdjustmentService struct {
	levels   adjacencyReader
	sessions adjustableSessionStore
	records  adjustmentLedger
	maxDelta int
	logger   zerolog.Logger
}

// NewAdjustmentService creates an AdjustmentService. maxDelta caps how far the
// final level may drift from the original level across repeated adjustments.
func NewAdjustmentService(levels adjacencyReader, sessions adjustableSessionStore, records adjustmentLedger, maxDelta int) *AdjustmentService {
	return &AdjustmentService{
		levels:   levels,
		sessions: sessions,
		records:  records,
		maxDelta: maxDelta,
		logger:   log.With().Str("component", "adjustment_service").Logger(),
	}
}

// SuggestAdjacent returns the neighbouring level in the given direction, or
// (nil, nil) when the ladder ends there. It never applies anything.
func (s *AdjustmentService) SuggestAdjacent(ctx context.Context, levelID int, direction model.Direction) (*model.CurriculumLevel, error) {
	level, err := s.levels.LevelByID(ctx, levelID)
	if err != nil {
		return nil, fmt.Errorf("suggest adjacent: %w", err)
	}
	if level == nil {
		return nil, ErrLevelNotFound
	}
	return s.levels.AdjacentLevel(ctx, level.SubProgramID, level.LevelNumber, direction)
}

// ApplyAdjustment moves a completed session's final level one step in the
// given direction. The move is rejected when the ladder ends or when it would
// put the final level more than maxDelta steps from the original level.
func (s *AdjustmentService) ApplyAdjustment(ctx context.Context, sessionID uuid.UUID, direction model.Direction) (*model.AdjustmentRecord, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("apply adjustment: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if !session.Completed() {
		return nil, ErrSessionNotCompleted
	}

	current, err := s.levels.LevelByID(ctx, session.FinalLevelID)
	if err != nil {
		return nil, fmt.Errorf("apply adjustment: %w", err)
	}
	if current == nil {
		return nil, ErrLevelNotFound
	}

	target, err := s.levels.AdjacentLevel(ctx, current.SubProgramID, current.LevelNumber, direction)
	if err != nil {
		return nil, fmt.Errorf("apply adjustment: %w", err)
	}
	if target == nil {
		return nil, ErrNoAdjacentLevel
	}

	original, err := s.levels.LevelByID(ctx, session.OriginalLevelID)
	if err != nil {
		return nil, fmt.Errorf("apply adjustment: %w", err)
	}
	if original == nil {
		return nil, ErrLevelNotFound
	}
	if abs(target.LevelNumber-original.LevelNumber) > s.maxDelta {
		return nil, ErrAdjustmentLimit
	}

	rec := &model.AdjustmentRecord{
		SessionID:   sessionID,
		FromLevelID: current.ID,
		ToLevelID:   target.ID,
		Delta:       target.LevelNumber - current.LevelNumber,
	}
	if err := s.records.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("apply adjustment: %w", err)
	}
	if err := s.sessions.RecordAdjustment(ctx, sessionID, target.ID); err != nil {
		return nil, fmt.Errorf("apply adjustment: %w", err)
	}

	s.logger.Info().Str("session_id", sessionID.String()).
		Int("from_level", current.ID).Int("to_level", target.ID).
		Msg("adjustment applied")

	return rec, nil
}

// Ladder returns a subprogram's full level ladder, ordered by level number.
func (s *AdjustmentService) Ladder(ctx context.Context, subProgramID int) ([]model.CurriculumLevel, error) {
	return s.levels.LevelsInSubProgram(ctx, subProgramID)
}

// History returns a session's adjustment lineage in order of application.
func (s *AdjustmentService) History(ctx context.Context, sessionID uuid.UUID) ([]model.AdjustmentRecord, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("adjustment history: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return s.records.ListBySession(ctx, sessionID)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
