package repository

import (
	"context"
	"errors"
	"time"

	"github.com/edustep/placement-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository handles session data access.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts a new session and fills in the generated ID and start
// timestamp. FinalLevelID starts equal to OriginalLevelID.
func (r *SessionRepository) Create(ctx context.Context, s *model.Session) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO sessions (exam_id, student_ref, original_level_id, final_level_id)
		 VALUES ($1, $2, $3, $3)
		 RETURNING id, started_at`,
		s.ExamID, s.StudentRef, s.OriginalLevelID,
	).Scan(&s.ID, &s.StartedAt)
}

// GetByID retrieves a session. Returns (nil, nil) when absent.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	s := &model.Session{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_ref, original_level_id, final_level_id,
		        started_at, completed_at, score, percentage, adjustment_count, timer_forced
		 FROM sessions
		 WHERE id = $1`, id,
	).Scan(&s.ID, &s.ExamID, &s.StudentRef, &s.OriginalLevelID, &s.FinalLevelID,
		&s.StartedAt, &s.CompletedAt, &s.Score, &s.Percentage, &s.AdjustmentCount, &s.TimerForced)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Complete marks a session finished with its final score. The guard on
// completed_at makes completion a one-shot transition: a concurrent second
// submit sees zero rows affected and the stored result stays untouched.
func (r *SessionRepository) Complete(ctx context.Context, id uuid.UUID, completedAt time.Time, score, percentage float64, timerForced bool) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions
		 SET completed_at = $2, score = $3, percentage = $4, timer_forced = $5
		 WHERE id = $1 AND completed_at IS NULL`,
		id, completedAt, score, percentage, timerForced,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RecordAdjustment moves a completed session to a new final level and bumps
// its adjustment counter.
func (r *SessionRepository) RecordAdjustment(ctx context.Context, id uuid.UUID, finalLevelID int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions
		 SET final_level_id = $2, adjustment_count = adjustment_count + 1
		 WHERE id = $1`,
		id, finalLevelID,
	)
	return err
}

// AttemptStats aggregates a student's completed attempts at one exam. Best and
// average are computed from stored scores on read, never persisted.
func (r *SessionRepository) AttemptStats(ctx context.Context, studentRef string, examID uuid.UUID) (best, average float64, attempts int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(score), 0), COALESCE(AVG(score), 0), COUNT(*)
		 FROM sessions
		 WHERE student_ref = $1 AND exam_id = $2 AND completed_at IS NOT NULL`,
		studentRef, examID,
	).Scan(&best, &average, &attempts)
	return best, average, attempts, err
}
