package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft    ExamStatus = "DRAFT"
	ExamStatusActive   ExamStatus = "ACTIVE"
	ExamStatusArchived ExamStatus = "ARCHIVED"
)

// Exam is the assessment attached to a single curriculum level. Exams are
// immutable while a session references them; grading always uses the snapshot
// valid at session start.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	LevelID         int        `json:"level_id"`
	Title           string     `json:"title"`
	Status          ExamStatus `json:"status"`
	DurationMinutes int        `json:"duration_minutes"`
	QuestionCount   int        `json:"question_count"`
	// ScorePrecision is the number of decimal places scores and percentages
	// are rounded to.
	ScorePrecision int       `json:"score_precision"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DurationSeconds returns the exam duration in seconds.
func (e *Exam) DurationSeconds() int64 {
	return int64(e.DurationMinutes) * 60
}
