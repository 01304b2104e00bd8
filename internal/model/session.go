package model

import (
	"time"

	"github.com/google/uuid"
)

// Session represents one attempt at one exam. It is created once, mutated
// only by its own lifecycle operations, and frozen after CompletedAt is set.
type Session struct {
	ID         uuid.UUID `json:"id"`
	ExamID     uuid.UUID `json:"exam_id"`
	StudentRef string    `json:"student_ref"`
	// OriginalLevelID is the level the attempt started on; FinalLevelID is
	// the level after any post-attempt adjustments (initially equal).
	OriginalLevelID int        `json:"original_level_id"`
	FinalLevelID    int        `json:"final_level_id"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Score           *float64   `json:"score,omitempty"`
	Percentage      *float64   `json:"percentage,omitempty"`
	AdjustmentCount int        `json:"adjustment_count"`
	// TimerForced records whether completion was triggered by timer expiry
	// rather than an explicit student submit.
	TimerForced bool `json:"timer_forced"`
}

// Completed reports whether the session has reached its terminal state.
func (s *Session) Completed() bool {
	return s.CompletedAt != nil
}

// Answer is the stored response for one (session, question) pair. RawValue is
// overwritten in place on resubmission while the session is open; IsCorrect
// and PointsEarned are set once at submit and frozen afterwards.
type Answer struct {
	SessionID    uuid.UUID `json:"session_id"`
	QuestionID   uuid.UUID `json:"question_id"`
	RawValue     string    `json:"raw_value"`
	IsCorrect    *bool     `json:"is_correct,omitempty"`
	PointsEarned *float64  `json:"points_earned,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AdjustmentRecord is one append-only entry in a session's adjustment lineage.
type AdjustmentRecord struct {
	ID          int64     `json:"id"`
	SessionID   uuid.UUID `json:"session_id"`
	FromLevelID int       `json:"from_level_id"`
	ToLevelID   int       `json:"to_level_id"`
	Delta       int       `json:"delta"`
	CreatedAt   time.Time `json:"created_at"`
}

// SessionNote is a free-form audit note appended by an external collector.
// Notes are never interpreted, mutated, or deleted here.
type SessionNote struct {
	ID        int64     `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}
