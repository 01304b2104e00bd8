package repository

import (
	"context"
	"errors"

	"github.com/edustep/placement-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetByID retrieves an exam. Returns (nil, nil) when absent.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, level_id, title, status, duration_minutes, question_count, score_precision, created_at, updated_at
		 FROM exams
		 WHERE id = $1`, id,
	).Scan(&e.ID, &e.LevelID, &e.Title, &e.Status, &e.DurationMinutes, &e.QuestionCount, &e.ScorePrecision, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ActiveForLevel retrieves the eligible exam for a level, preferring the most
// recently created on ties. Returns (nil, nil) when the level has no active
// exam.
func (r *ExamRepository) ActiveForLevel(ctx context.Context, levelID int) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, level_id, title, status, duration_minutes, question_count, score_precision, created_at, updated_at
		 FROM exams
		 WHERE level_id = $1 AND status = $2
		 ORDER BY created_at DESC
		 LIMIT 1`, levelID, model.ExamStatusActive,
	).Scan(&e.ID, &e.LevelID, &e.Title, &e.Status, &e.DurationMinutes, &e.QuestionCount, &e.ScorePrecision, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}
