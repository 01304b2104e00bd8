package repository

import (
	"context"
	"time"

	"github.com/edustep/placement-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NoteRepository handles the append-only session audit notes.
type NoteRepository struct {
	pool *pgxpool.Pool
}

// NewNoteRepository creates a new NoteRepository.
func NewNoteRepository(pool *pgxpool.Pool) *NoteRepository {
	return &NoteRepository{pool: pool}
}

// BulkAppend inserts a batch of notes in one statement.
func (r *NoteRepository) BulkAppend(ctx context.Context, sessionIDs []uuid.UUID, notes []string, createdAts []time.Time) error {
	if len(sessionIDs) == 0 {
		return nil
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO session_notes (session_id, note, created_at)
		 SELECT s, n, c
		 FROM UNNEST($1::uuid[], $2::text[], $3::timestamptz[]) AS u(s, n, c)`,
		sessionIDs, notes, createdAts,
	)
	return err
}

// ListBySession retrieves a session's notes in insertion order.
func (r *NoteRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.SessionNote, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, note, created_at
		 FROM session_notes
		 WHERE session_id = $1
		 ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []model.SessionNote
	for rows.Next() {
		var n model.SessionNote
		if err := rows.Scan(&n.ID, &n.SessionID, &n.Note, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
