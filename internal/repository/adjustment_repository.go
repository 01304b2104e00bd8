package repository

import (
	"context"

	"github.com/edustep/placement-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AdjustmentRepository handles the append-only adjustment lineage.
type AdjustmentRepository struct {
	pool *pgxpool.Pool
}

// NewAdjustmentRepository creates a new AdjustmentRepository.
func NewAdjustmentRepository(pool *pgxpool.Pool) *AdjustmentRepository {
	return &AdjustmentRepository{pool: pool}
}

// Append records one level move.
func (r *AdjustmentRepository) Append(ctx context.Context, rec *model.AdjustmentRecord) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO adjustment_records (session_id, from_level_id, to_level_id, delta)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		rec.SessionID, rec.FromLevelID, rec.ToLevelID, rec.Delta,
	).Scan(&rec.ID, &rec.CreatedAt)
}

// ListBySession retrieves a session's adjustment history in insertion order.
func (r *AdjustmentRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.AdjustmentRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, from_level_id, to_level_id, delta, created_at
		 FROM adjustment_records
		 WHERE session_id = $1
		 ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.AdjustmentRecord
	for rows.Next() {
		var rec model.AdjustmentRecord
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.FromLevelID, &rec.ToLevelID, &rec.Delta, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
