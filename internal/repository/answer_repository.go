package repository

import (
	"context"
	"time"

	"github.com/edustep/placement-backend/internal/grading"
	"github.com/edustep/placement-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnswerRepository handles answer data access.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// Upsert stores one raw answer, overwriting any previous value for the same
// question. Grading columns are left untouched.
func (r *AnswerRepository) Upsert(ctx context.Context, sessionID, questionID uuid.UUID, raw string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO answers (session_id, question_id, raw_value, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (session_id, question_id)
		 DO UPDATE SET raw_value = EXCLUDED.raw_value, updated_at = NOW()`,
		sessionID, questionID, raw,
	)
	return err
}

// BulkGrade persists the graded outcome for a whole session in one statement.
// Questions the student never touched are inserted with an empty raw value so
// the stored breakdown covers the full exam.
func (r *AnswerRepository) BulkGrade(ctx context.Context, sessionID uuid.UUID, results []grading.Result, raws map[uuid.UUID]string) error {
	if len(results) == 0 {
		return nil
	}

	questionIDs := make([]uuid.UUID, 0, len(results))
	rawValues := make([]string, 0, len(results))
	corrects := make([]bool, 0, len(results))
	points := make([]float64, 0, len(results))
	for _, res := range results {
		questionIDs = append(questionIDs, res.QuestionID)
		rawValues = append(rawValues, raws[res.QuestionID])
		corrects = append(corrects, res.IsCorrect)
		points = append(points, res.PointsEarned)
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO answers (session_id, question_id, raw_value, is_correct, points_earned, updated_at)
		 SELECT $1::uuid, q, rv, c, p, $6::timestamptz
		 FROM UNNEST($2::uuid[], $3::text[], $4::boolean[], $5::float8[]) AS t(q, rv, c, p)
		 ON CONFLICT (session_id, question_id)
		 DO UPDATE SET raw_value = EXCLUDED.raw_value,
		               is_correct = EXCLUDED.is_correct,
		               points_earned = EXCLUDED.points_earned,
		               updated_at = EXCLUDED.updated_at`,
		sessionID, questionIDs, rawValues, corrects, points, time.Now(),
	)
	return err
}

// ListBySession retrieves a session's stored answers.
func (r *AnswerRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Answer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_id, question_id, raw_value, is_correct, points_earned, updated_at
		 FROM answers
		 WHERE session_id = $1`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.SessionID, &a.QuestionID, &a.RawValue, &a.IsCorrect, &a.PointsEarned, &a.UpdatedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
