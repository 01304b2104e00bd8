package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/edustep/placement-backend/internal/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

type noteAppender interface {
	BulkAppend(ctx context.Context, sessionIDs []uuid.UUID, notes []string, createdAts []time.Time) error
}

// AuditWorker consumes queued session notes and inserts them in batches.
// Notes are opaque text from an external collector; they are never parsed.
type AuditWorker struct {
	notes noteAppender
	rdb   *redis.Client
	log   zerolog.Logger
}

// NewAuditWorker creates a new AuditWorker.
func NewAuditWorker(notes noteAppender, rdb *redis.Client) *AuditWorker {
	return &AuditWorker{
		notes: notes,
		rdb:   rdb,
		log:   log.With().Str("component", "audit_worker").Logger(),
	}
}

type notePayload struct {
	SessionID string `json:"session_id"`
	Note      string `json:"note"`
	CreatedAt string `json:"created_at"`
}

// Start begins the batching loop. Call in a goroutine. A batch is flushed
// when it reaches BatchSize or after BatchTimeout, whichever comes first.
func (w *AuditWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	buffer := make([]*notePayload, 0, BatchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlush) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlush = time.Now()
			}
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.AuditNotesQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // Queue empty, loop back to check the flush timer
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var payload notePayload
		if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
			// Malformed JSON cannot be retried. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed payload")
			continue
		}
		buffer = append(buffer, &payload)
	}
}

// flushSafe attempts a bulk insert, then per-row recovery, then requeue.
func (w *AuditWorker) flushSafe(ctx context.Context, batch []*notePayload) {
	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).
			Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

func (w *AuditWorker) bulkInsert(ctx context.Context, batch []*notePayload) error {
	sessionIDs := make([]uuid.UUID, 0, len(batch))
	notes := make([]string, 0, len(batch))
	createdAts := make([]time.Time, 0, len(batch))
	for _, p := range batch {
		sessionID, createdAt, err := parseNote(p)
		if err != nil {
			// Trigger fallback, which drops the bad row individually.
			return err
		}
		sessionIDs = append(sessionIDs, sessionID)
		notes = append(notes, p.Note)
		createdAts = append(createdAts, createdAt)
	}
	return w.notes.BulkAppend(ctx, sessionIDs, notes, createdAts)
}

func (w *AuditWorker) fallbackInsert(ctx context.Context, batch []*notePayload) {
	requeue := make([]*notePayload, 0)

	for _, p := range batch {
		sessionID, createdAt, err := parseNote(p)
		if err != nil {
			w.log.Error().Str("session_id", p.SessionID).Msg("Dropping note with invalid payload")
			continue
		}
		if err := w.notes.BulkAppend(ctx,
			[]uuid.UUID{sessionID}, []string{p.Note}, []time.Time{createdAt}); err != nil {
			w.log.Error().Err(err).Str("session_id", p.SessionID).Msg("Insert failed, requeueing")
			requeue = append(requeue, p)
		}
	}

	if len(requeue) > 0 {
		w.requeue(ctx, requeue)
	}
}

func (w *AuditWorker) requeue(ctx context.Context, items []*notePayload) {
	pipe := w.rdb.Pipeline()
	for _, p := range items {
		data, _ := json.Marshal(p)
		pipe.RPush(ctx, config.WorkerKey.AuditNotesQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue notes to Redis. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
	// Avoid thrashing while the database is down.
	time.Sleep(2 * time.Second)
}

func (w *AuditWorker) shutdown(buffer []*notePayload) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
	w.log.Info().Msg("Worker stopped")
}

func parseNote(p *notePayload) (uuid.UUID, time.Time, error) {
	sessionID, err := uuid.Parse(p.SessionID)
	if err != nil {
		return uuid.Nil, time.Time{}, err
	}
	createdAt, err := time.Parse(time.RFC3339, p.CreatedAt)
	if err != nil {
		return uuid.Nil, time.Time{}, err
	}
	return sessionID, createdAt, nil
}
