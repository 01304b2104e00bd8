package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/edustep/placement-backend/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionTestEnv struct {
	svc      *SessionService
	sessions *fakeSessionStore
	answers  *fakeAnswerStore
	cache    *fakeSessionCache
	notes    *fakeNoteStore
	exam     model.Exam
	q1, q2   model.Question
	clock    *time.Time
}

// newSessionTestEnv builds a service around a 60 minute, two question exam
// with a controllable clock.
func newSessionTestEnv(t *testing.T) *sessionTestEnv {
	t.Helper()

	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := start

	exam := model.Exam{
		ID:              uuid.New(),
		LevelID:         3,
		Status:          model.ExamStatusActive,
		DurationMinutes: 60,
		QuestionCount:   2,
		ScorePrecision:  2,
	}
	q1 := model.Question{
		ID:           uuid.New(),
		ExamID:       exam.ID,
		QuestionType: model.QuestionTypeSingleChoice,
		OptionCount:  4,
		PointValue:   10,
		CorrectSpec:  json.RawMessage(`{"answer":"C"}`),
		OrderNum:     1,
	}
	q2 := model.Question{
		ID:           uuid.New(),
		ExamID:       exam.ID,
		QuestionType: model.QuestionTypeFreeForm,
		OptionCount:  1,
		PointValue:   5,
		CorrectSpec:  json.RawMessage(`{"answer":"seven"}`),
		OrderNum:     2,
	}

	sessions := newFakeSessionStore(start)
	answers := newFakeAnswerStore()
	cache := newFakeSessionCache()
	notes := &fakeNoteStore{}
	exams := &fakeExamStore{exams: map[uuid.UUID]model.Exam{exam.ID: exam}}
	quests := &fakeQuestionStore{questions: []model.Question{q1, q2}}

	svc := NewSessionService(sessions, exams, quests, answers, cache, notes)
	env := &sessionTestEnv{
		svc: svc, sessions: sessions, answers: answers, cache: cache, notes: notes,
		exam: exam, q1: q1, q2: q2, clock: &clock,
	}
	svc.now = func() time.Time { return *env.clock }
	return env
}

func (e *sessionTestEnv) advance(d time.Duration) {
	*e.clock = e.clock.Add(d)
}

func TestCreateSessionRejectsInactiveExam(t *testing.T) {
	env := newSessionTestEnv(t)
	draft := env.exam
	draft.ID = uuid.New()
	draft.Status = model.ExamStatusDraft
	env.svc.exams.(*fakeExamStore).exams[draft.ID] = draft

	_, err := env.svc.CreateSession(context.Background(), "student-1", draft.ID)
	assert.ErrorIs(t, err, ErrExamNotAvailable)
}

func TestCreateSessionSnapshotsLevelAndStartTime(t *testing.T) {
	env := newSessionTestEnv(t)

	s, err := env.svc.CreateSession(context.Background(), "student-1", env.exam.ID)
	require.NoError(t, err)
	assert.Equal(t, env.exam.LevelID, s.OriginalLevelID)
	assert.Equal(t, env.exam.LevelID, s.FinalLevelID)

	cached, ok, err := env.cache.StartedAt(context.Background(), s.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, cached.Equal(s.StartedAt))
}

func TestRecordAnswerRejectsForeignQuestion(t *testing.T) {
	env := newSessionTestEnv(t)
	s, err := env.svc.CreateSession(context.Background(), "student-1", env.exam.ID)
	require.NoError(t, err)

	err = env.svc.RecordAnswer(context.Background(), s.ID, uuid.New(), "A")
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestAutoSaveMergesPerQuestion(t *testing.T) {
	env := newSessionTestEnv(t)
	s, err := env.svc.CreateSession(context.Background(), "student-1", env.exam.ID)
	require.NoError(t, err)

	require.NoError(t, env.svc.AutoSave(context.Background(), s.ID,
		map[string]string{env.q1.ID.String(): "A"}))
	require.NoError(t, env.svc.AutoSave(context.Background(), s.ID,
		map[string]string{env.q2.ID.String(): "seven", "not-a-uuid": "x"}))

	got, err := env.svc.Answers(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]string{env.q1.ID: "A", env.q2.ID: "seven"}, got)
}

func TestSubmitGradesMergedAnswers(t *testing.T) {
	env := newSessionTestEnv(t)
	s, err := env.svc.CreateSession(context.Background(), "student-1", env.exam.ID)
	require.NoError(t, err)

	// First choice is overwritten before submit; only the last value counts.
	require.NoError(t, env.svc.RecordAnswer(context.Background(), s.ID, env.q1.ID, "A"))
	require.NoError(t, env.svc.RecordAnswer(context.Background(), s.ID, env.q1.ID, "c"))
	require.NoError(t, env.svc.RecordAnswer(context.Background(), s.ID, env.q2.ID, "Seven"))

	res, err := env.svc.Submit(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, 15.0, res.Summary.TotalEarned)
	assert.Equal(t, 15.0, res.Summary.TotalPossible)
	assert.Equal(t, 100.0, res.Summary.Percentage)
	assert.False(t, res.TimerForced)
	assert.Len(t, res.Breakdown, 2)
}

func TestSubmitIsIdempotent(t *testing.T) {
	env := newSessionTestEnv(t)
	s, err := env.svc.CreateSession(context.Background(), "student-1", env.exam.ID)
	require.NoError(t, err)
	require.NoError(t, env.svc.RecordAnswer(context.Background(), s.ID, env.q1.ID, "C"))

	first, err := env.svc.Submit(context.Background(), s.ID)
	require.NoError(t, err)

	second, err := env.svc.Submit(context.Background(), s.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Summary.TotalEarned, second.Summary.TotalEarned)
	assert.Equal(t, first.Summary.Percentage, second.Summary.Percentage)
	assert.Equal(t, first.Session.CompletedAt, second.Session.CompletedAt)
	assert.Equal(t, 1, env.answers.bulkGradeCalls, "second submit must not re-grade")
}

func TestRecordAnswerAfterCompletionIsRejected(t *testing.T) {
	env := newSessionTestEnv(t)
	s, err := env.svc.CreateSession(context.Background(), "student-1", env.exam.ID)
	require.NoError(t, err)
	_, err = env.svc.Submit(context.Background(), s.ID)
	require.NoError(t, err)

	err = env.svc.RecordAnswer(context.Background(), s.ID, env.q1.ID, "C")
	assert.ErrorIs(t, err, ErrSessionCompleted)
}

func TestAutoSaveAfterCompletionIsSilentlyDiscarded(t *testing.T) {
	env := newSessionTestEnv(t)
	s, err := env.svc.CreateSession(context.Background(), "student-1", env.exam.ID)
	require.NoError(t, err)
	require.NoError(t, env.svc.RecordAnswer(context.Background(), s.ID, env.q1.ID, "C"))
	_, err = env.svc.Submit(context.Background(), s.ID)
	require.NoError(t, err)

	err = env.svc.AutoSave(context.Background(), s.ID,
		map[string]string{env.q1.ID.String(): "A"})
	require.NoError(t, err)

	// The stored answer is untouched.
	got, err := env.svc.Answers(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, "C", got[env.q1.ID])
}

func TestTimerExpiryForcesSubmissionOnNextTouch(t *testing.T) {
	env := newSessionTestEnv(t)
	s, err := env.svc.CreateSession(context.Background(), "student-1", env.exam.ID)
	require.NoError(t, err)
	require.NoError(t, env.svc.RecordAnswer(context.Background(), s.ID, env.q1.ID, "C"))

	env.advance(61 * time.Minute)

	err = env.svc.RecordAnswer(context.Background(), s.ID, env.q2.ID, "seven")
	assert.ErrorIs(t, err, ErrSessionCompleted)

	stored, err := env.sessions.GetByID(context.Background(), s.ID)
	require.NoError(t, err)
	require.True(t, stored.Completed())
	assert.True(t, stored.TimerForced)
	// Only the answer saved before expiry counts.
	assert.Equal(t, 10.0, *stored.Score)
}

func TestStateCountsDownAndClampsAtZero(t *testing.T) {
	env := newSessionTestEnv(t)
	s, err := env.svc.CreateSession(context.Background(), "student-1", env.exam.ID)
	require.NoError(t, err)

	st, err := env.svc.State(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), st.RemainingSeconds)

	env.advance(10 * time.Minute)
	st, err = env.svc.State(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), st.RemainingSeconds)

	env.advance(2 * time.Hour)
	st, err = env.svc.State(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), st.RemainingSeconds)
	assert.True(t, st.Session.Completed())
	assert.True(t, st.Session.TimerForced)
}

func TestRemainingFallsBackToDatabaseOnCacheMiss(t *testing.T) {
	env := newSessionTestEnv(t)
	s, err := env.svc.CreateSession(context.Background(), "student-1", env.exam.ID)
	require.NoError(t, err)

	delete(env.cache.starts, s.ID)
	env.advance(5 * time.Minute)

	st, err := env.svc.State(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3300), st.RemainingSeconds)

	// Cache is re-primed from the database row.
	_, ok, err := env.cache.StartedAt(context.Background(), s.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStatsAreDerivedFromCompletedAttempts(t *testing.T) {
	env := newSessionTestEnv(t)

	for _, answer := range []string{"C", "A"} {
		s, err := env.svc.CreateSession(context.Background(), "student-1", env.exam.ID)
		require.NoError(t, err)
		require.NoError(t, env.svc.RecordAnswer(context.Background(), s.ID, env.q1.ID, answer))
		_, err = env.svc.Submit(context.Background(), s.ID)
		require.NoError(t, err)
	}
	// An open session must not count.
	_, err := env.svc.CreateSession(context.Background(), "student-1", env.exam.ID)
	require.NoError(t, err)

	stats, err := env.svc.Stats(context.Background(), "student-1", env.exam.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, stats.BestScore)
	assert.Equal(t, 5.0, stats.AverageScore)
	assert.Equal(t, 2, stats.Attempts)
}

func TestAppendNoteQueuesForPersistence(t *testing.T) {
	env := newSessionTestEnv(t)
	s, err := env.svc.CreateSession(context.Background(), "student-1", env.exam.ID)
	require.NoError(t, err)

	require.NoError(t, env.svc.AppendNote(context.Background(), s.ID, "proctor flagged a retry"))
	assert.Equal(t, []string{"proctor flagged a retry"}, env.cache.notes)

	err = env.svc.AppendNote(context.Background(), uuid.New(), "orphan")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestNotesReturnsPersistedRowsInOrder(t *testing.T) {
	env := newSessionTestEnv(t)
	s, err := env.svc.CreateSession(context.Background(), "student-1", env.exam.ID)
	require.NoError(t, err)

	env.notes.notes = []model.SessionNote{
		{ID: 1, SessionID: s.ID, Note: "tab switch detected"},
		{ID: 2, SessionID: s.ID, Note: "window refocused"},
		{ID: 3, SessionID: uuid.New(), Note: "someone else's note"},
	}

	got, err := env.svc.Notes(context.Background(), s.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "tab switch detected", got[0].Note)
	assert.Equal(t, "window refocused", got[1].Note)

	_, err = env.svc.Notes(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// The countdown from a re-primed cache entry must never exceed the one
// computed from the cached value before the miss, even when the session
// started at a sub-second offset.
func TestRemainingNeverTicksUpAcrossCacheMiss(t *testing.T) {
	env := newSessionTestEnv(t)
	env.sessions.createdAt = env.sessions.createdAt.Add(900 * time.Millisecond)

	s, err := env.svc.CreateSession(context.Background(), "student-1", env.exam.ID)
	require.NoError(t, err)

	env.advance(5 * time.Minute)
	before, err := env.svc.State(context.Background(), s.ID)
	require.NoError(t, err)

	delete(env.cache.starts, s.ID)
	after, err := env.svc.State(context.Background(), s.ID)
	require.NoError(t, err)

	assert.Equal(t, before.RemainingSeconds, after.RemainingSeconds)
}

func TestLockMapShrinksWhenRequestsFinish(t *testing.T) {
	env := newSessionTestEnv(t)
	s, err := env.svc.CreateSession(context.Background(), "student-1", env.exam.ID)
	require.NoError(t, err)

	require.NoError(t, env.svc.RecordAnswer(context.Background(), s.ID, env.q1.ID, "C"))
	_, err = env.svc.State(context.Background(), s.ID)
	require.NoError(t, err)
	_, err = env.svc.Submit(context.Background(), s.ID)
	require.NoError(t, err)
	_, err = env.svc.Submit(context.Background(), s.ID)
	require.NoError(t, err)

	env.svc.mu.Lock()
	defer env.svc.mu.Unlock()
	assert.Empty(t, env.svc.locks)
}
