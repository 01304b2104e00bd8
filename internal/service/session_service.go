package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/edustep/placement-backend/internal/grading"
	"github.com/edustep/placement-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type sessionStore interface {
	Create(ctx context.Context, s *model.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error)
	Complete(ctx context.Context, id uuid.UUID, completedAt time.Time, score, percentage float64, timerForced bool) (bool, error)
	AttemptStats(ctx context.Context, studentRef string, examID uuid.UUID) (best, average float64, attempts int, err error)
}

type examStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
}

type questionStore interface {
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
	GetByID(ctx context.Context, id, examID uuid.UUID) (*model.Question, error)
}

type answerStore interface {
	BulkGrade(ctx context.Context, sessionID uuid.UUID, results []grading.Result, raws map[uuid.UUID]string) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Answer, error)
}

type noteStore interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.SessionNote, error)
}

type sessionCache interface {
	SaveAnswer(ctx context.Context, sessionID, questionID uuid.UUID, raw string) error
	SaveAnswers(ctx context.Context, sessionID uuid.UUID, answers map[uuid.UUID]string) error
	Answers(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]string, error)
	Clear(ctx context.Context, sessionID uuid.UUID) error
	SetStartedAt(ctx context.Context, sessionID uuid.UUID, startedAt time.Time) error
	StartedAt(ctx context.Context, sessionID uuid.UUID) (time.Time, bool, error)
	EnqueueNote(ctx context.Context, sessionID uuid.UUID, note string) error
}

// SessionState is the live view of a session returned to clients.
type SessionState struct {
	Session          model.Session `json:"session"`
	RemainingSeconds int64         `json:"remaining_seconds"`
}

// SubmitResult is the stored outcome of a finished session. Calling Submit
// again returns the same stored result without re-grading.
type SubmitResult struct {
	Session     model.Session    `json:"session"`
	Summary     grading.Summary  `json:"summary"`
	Breakdown   []grading.Result `json:"breakdown"`
	TimerForced bool             `json:"timer_forced"`
}

// AttemptStats is a student's derived history against one exam.
type AttemptStats struct {
	BestScore    float64 `json:"best_score"`
	AverageScore float64 `json:"average_score"`
	Attempts     int     `json:"attempts"`
}

// SessionService owns the attempt lifecycle: creation, answer intake, the
// countdown timer, submission, and derived statistics. All mutating paths for
// one session are serialized through a per-session lock, so expiry checks and
// the completion transition never race within this process.
type SessionService struct {
	sessions sessionStore
	exams    examStore
	quests   questionStore
	answers  answerStore
	cache    sessionCache
	notes    noteStore
	logger   zerolog.Logger
	now      func() time.Time

	mu    sync.Mutex
	locks map[uuid.UUID]*sessionLock
}

// sessionLock is a per-session mutex with a holder count so entries can be
// dropped from the map once the last in-flight request releases them.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewSessionService creates a SessionService.
func NewSessionService(sessions sessionStore, exams examStore, quests questionStore, answers answerStore, cache sessionCache, notes noteStore) *SessionService {
	return &SessionService{
		sessions: sessions,
		exams:    exams,
		quests:   quests,
		answers:  answers,
		cache:    cache,
		notes:    notes,
		logger:   log.With().Str("component", "session_service").Logger(),
		now:      time.Now,
		locks:    make(map[uuid.UUID]*sessionLock),
	}
}

// lock acquires the session's mutex, creating the entry on first use. The map
// only ever holds sessions with in-flight requests.
func (s *SessionService) lock(sessionID uuid.UUID) *sessionLock {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return l
}

// unlock releases the session's mutex and evicts the map entry when no other
// request holds or awaits it.
func (s *SessionService) unlock(sessionID uuid.UUID, l *sessionLock) {
	l.mu.Unlock()

	s.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, sessionID)
	}
	s.mu.Unlock()
}

// CreateSession starts a new attempt at an active exam. The start timestamp is
// fixed at creation and cached for cheap countdown reads.
func (s *SessionService) CreateSession(ctx context.Context, studentRef string, examID uuid.UUID) (*model.Session, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if exam == nil {
		return nil, ErrExamNotFound
	}
	if exam.Status != model.ExamStatusActive {
		return nil, ErrExamNotAvailable
	}

	session := &model.Session{
		ExamID:          examID,
		StudentRef:      studentRef,
		OriginalLevelID: exam.LevelID,
		FinalLevelID:    exam.LevelID,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if err := s.cache.SetStartedAt(ctx, session.ID, session.StartedAt); err != nil {
		// Countdown reads fall back to the database row.
		s.logger.Warn().Err(err).Str("session_id", session.ID.String()).
			Msg("failed to cache session start time")
	}

	s.logger.Info().Str("session_id", session.ID.String()).
		Str("exam_id", examID.String()).Str("student_ref", studentRef).
		Msg("session created")

	return session, nil
}

// State returns the session with its remaining time. Reading the state of an
// expired open session finalizes it first, so clients always observe a
// consistent terminal result.
func (s *SessionService) State(ctx context.Context, sessionID uuid.UUID) (*SessionState, error) {
	l := s.lock(sessionID)
	defer s.unlock(sessionID, l)

	session, _, remaining, err := s.touch(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &SessionState{Session: *session, RemainingSeconds: remaining}, nil
}

// RecordAnswer stores one answer for an open session. Answers to questions
// outside the session's exam are rejected; answers after completion (explicit
// or timer-forced) are rejected with ErrSessionCompleted.
func (s *SessionService) RecordAnswer(ctx context.Context, sessionID, questionID uuid.UUID, raw string) error {
	l := s.lock(sessionID)
	defer s.unlock(sessionID, l)

	session, _, _, err := s.touch(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Completed() {
		return ErrSessionCompleted
	}

	question, err := s.quests.GetByID(ctx, questionID, session.ExamID)
	if err != nil {
		return fmt.Errorf("record answer: %w", err)
	}
	if question == nil {
		return ErrQuestionNotFound
	}

	return s.cache.SaveAnswer(ctx, sessionID, questionID, raw)
}

// AutoSave merges a partial answer map into the session's working set with
// per-question overwrite. Question IDs not belonging to the exam are skipped.
// An autosave arriving after completion is acknowledged and discarded, so a
// straggling background flush from a client never fails loudly.
func (s *SessionService) AutoSave(ctx context.Context, sessionID uuid.UUID, answers map[string]string) error {
	l := s.lock(sessionID)
	defer s.unlock(sessionID, l)

	session, _, _, err := s.touch(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Completed() {
		return nil
	}

	questions, err := s.quests.ListByExam(ctx, session.ExamID)
	if err != nil {
		return fmt.Errorf("autosave: %w", err)
	}
	known := make(map[uuid.UUID]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true
	}

	valid := make(map[uuid.UUID]string, len(answers))
	for rawID, val := range answers {
		qid, err := uuid.Parse(rawID)
		if err != nil || !known[qid] {
			continue
		}
		valid[qid] = val
	}

	return s.cache.SaveAnswers(ctx, sessionID, valid)
}

// Submit finalizes the session: grades every exam question against the merged
// answer set, stores the per-question breakdown, and freezes the score. A
// second Submit returns the stored result unchanged.
func (s *SessionService) Submit(ctx context.Context, sessionID uuid.UUID) (*SubmitResult, error) {
	l := s.lock(sessionID)
	defer s.unlock(sessionID, l)

	// touch already finalizes an expired session, so reaching finalize here
	// always means an explicit in-time submit.
	session, exam, _, err := s.touch(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Completed() {
		return s.storedResult(ctx, session, exam)
	}

	return s.finalize(ctx, session, exam, false)
}

// AppendNote queues an audit note for asynchronous persistence. The session
// must exist but may be in any lifecycle state.
func (s *SessionService) AppendNote(ctx context.Context, sessionID uuid.UUID, note string) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("append note: %w", err)
	}
	if session == nil {
		return ErrSessionNotFound
	}
	return s.cache.EnqueueNote(ctx, sessionID, note)
}

// Notes returns the session's persisted audit notes in insertion order. Notes
// still sitting in the batch queue are not included until the worker flushes
// them.
func (s *SessionService) Notes(ctx context.Context, sessionID uuid.UUID) ([]model.SessionNote, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session notes: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return s.notes.ListBySession(ctx, sessionID)
}

// Answers returns the session's current working answer set keyed by question.
func (s *SessionService) Answers(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]string, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session answers: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.Completed() {
		answers, err := s.answers.ListBySession(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("session answers: %w", err)
		}
		out := make(map[uuid.UUID]string, len(answers))
		for _, a := range answers {
			if a.RawValue != "" {
				out[a.QuestionID] = a.RawValue
			}
		}
		return out, nil
	}
	return s.mergedAnswers(ctx, sessionID)
}

// Stats aggregates a student's completed attempts at one exam, rounded to the
// exam's score precision.
func (s *SessionService) Stats(ctx context.Context, studentRef string, examID uuid.UUID) (*AttemptStats, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("attempt stats: %w", err)
	}
	if exam == nil {
		return nil, ErrExamNotFound
	}

	best, avg, attempts, err := s.sessions.AttemptStats(ctx, studentRef, examID)
	if err != nil {
		return nil, fmt.Errorf("attempt stats: %w", err)
	}
	return &AttemptStats{
		BestScore:    grading.RoundTo(best, exam.ScorePrecision),
		AverageScore: grading.RoundTo(avg, exam.ScorePrecision),
		Attempts:     attempts,
	}, nil
}

// touch loads the session and its exam, computes the remaining time, and
// force-finalizes an open session whose timer has expired. Callers hold the
// per-session lock. The returned session reflects any forced completion.
func (s *SessionService) touch(ctx context.Context, sessionID uuid.UUID) (*model.Session, *model.Exam, int64, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, nil, 0, ErrSessionNotFound
	}

	exam, err := s.exams.GetByID(ctx, session.ExamID)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("load exam: %w", err)
	}
	if exam == nil {
		return nil, nil, 0, ErrExamNotFound
	}

	if session.Completed() {
		return session, exam, 0, nil
	}

	remaining, err := s.remainingSeconds(ctx, session, exam)
	if err != nil {
		return nil, nil, 0, err
	}
	if remaining > 0 {
		return session, exam, remaining, nil
	}

	// Timer ran out while the session sat open. Finalize with whatever was
	// saved before expiry.
	if _, err := s.finalize(ctx, session, exam, true); err != nil {
		return nil, nil, 0, err
	}
	session, err = s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("reload session: %w", err)
	}
	if session == nil {
		return nil, nil, 0, ErrSessionNotFound
	}
	return session, exam, 0, nil
}

// remainingSeconds computes the countdown from the cached start timestamp,
// falling back to the database row and re-priming the cache on a miss. It
// never goes below zero.
func (s *SessionService) remainingSeconds(ctx context.Context, session *model.Session, exam *model.Exam) (int64, error) {
	startedAt, ok, err := s.cache.StartedAt(ctx, session.ID)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", session.ID.String()).
			Msg("start time cache read failed, using database value")
		ok = false
	}
	if !ok {
		startedAt = session.StartedAt
		if err := s.cache.SetStartedAt(ctx, session.ID, startedAt); err != nil {
			s.logger.Warn().Err(err).Str("session_id", session.ID.String()).
				Msg("failed to re-prime start time cache")
		}
	}

	elapsed := int64(s.now().Sub(startedAt).Seconds())
	remaining := exam.DurationSeconds() - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// finalize grades and completes an open session. Callers hold the per-session
// lock. If another process completed the session first, the stored result is
// returned instead of overwriting it.
func (s *SessionService) finalize(ctx context.Context, session *model.Session, exam *model.Exam, timerForced bool) (*SubmitResult, error) {
	questions, err := s.quests.ListByExam(ctx, session.ExamID)
	if err != nil {
		return nil, fmt.Errorf("finalize: %w", err)
	}
	raws, err := s.mergedAnswers(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("finalize: %w", err)
	}

	results := make([]grading.Result, 0, len(questions))
	for i := range questions {
		q := &questions[i]
		res, err := grading.Grade(q, raws[q.ID], exam.ScorePrecision)
		if err != nil {
			s.logger.Error().Err(err).Str("question_id", q.ID.String()).
				Msg("question has an undecodable answer key, scoring it zero")
		}
		results = append(results, res)
	}
	summary := grading.Summarize(results, exam.ScorePrecision)

	completedAt := s.now()
	won, err := s.sessions.Complete(ctx, session.ID, completedAt, summary.TotalEarned, summary.Percentage, timerForced)
	if err != nil {
		return nil, fmt.Errorf("finalize: %w", err)
	}
	if !won {
		// Lost the race to another instance; its stored result stands.
		stored, err := s.sessions.GetByID(ctx, session.ID)
		if err != nil {
			return nil, fmt.Errorf("finalize: %w", err)
		}
		return s.storedResult(ctx, stored, exam)
	}

	if err := s.answers.BulkGrade(ctx, session.ID, results, raws); err != nil {
		return nil, fmt.Errorf("finalize: %w", err)
	}
	if err := s.cache.Clear(ctx, session.ID); err != nil {
		s.logger.Warn().Err(err).Str("session_id", session.ID.String()).
			Msg("failed to clear answer cache after completion")
	}

	session.CompletedAt = &completedAt
	session.Score = &summary.TotalEarned
	session.Percentage = &summary.Percentage
	session.TimerForced = timerForced

	event := s.logger.Info().Str("session_id", session.ID.String()).
		Float64("score", summary.TotalEarned).Float64("percentage", summary.Percentage)
	if timerForced {
		event = event.Bool("timer_forced", true)
	}
	event.Msg("session completed")

	return &SubmitResult{
		Session:     *session,
		Summary:     summary,
		Breakdown:   results,
		TimerForced: timerForced,
	}, nil
}

// storedResult rebuilds the submit response from persisted rows without
// re-grading anything.
func (s *SessionService) storedResult(ctx context.Context, session *model.Session, exam *model.Exam) (*SubmitResult, error) {
	questions, err := s.quests.ListByExam(ctx, session.ExamID)
	if err != nil {
		return nil, fmt.Errorf("stored result: %w", err)
	}

	stored, err := s.answers.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("stored result: %w", err)
	}
	byQuestion := make(map[uuid.UUID]model.Answer, len(stored))
	for _, a := range stored {
		byQuestion[a.QuestionID] = a
	}

	// Rebuild in question order so repeat submits return an identical
	// breakdown.
	results := make([]grading.Result, 0, len(questions))
	for _, q := range questions {
		res := grading.Result{
			QuestionID:     q.ID,
			PointsPossible: q.PointValue,
		}
		if a, ok := byQuestion[q.ID]; ok {
			res.Answered = a.RawValue != ""
			if a.IsCorrect != nil {
				res.IsCorrect = *a.IsCorrect
			}
			if a.PointsEarned != nil {
				res.PointsEarned = *a.PointsEarned
			}
		}
		results = append(results, res)
	}

	summary := grading.Summary{}
	if session.Score != nil {
		summary.TotalEarned = *session.Score
	}
	if session.Percentage != nil {
		summary.Percentage = *session.Percentage
	}
	for _, q := range questions {
		summary.TotalPossible += q.PointValue
	}

	return &SubmitResult{
		Session:     *session,
		Summary:     summary,
		Breakdown:   results,
		TimerForced: session.TimerForced,
	}, nil
}

// mergedAnswers merges persisted answer rows with the cache working set. The
// cache wins per question since it holds the latest writes.
func (s *SessionService) mergedAnswers(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]string, error) {
	merged := make(map[uuid.UUID]string)

	persisted, err := s.answers.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, a := range persisted {
		merged[a.QuestionID] = a.RawValue
	}

	cached, err := s.cache.Answers(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for qid, raw := range cached {
		merged[qid] = raw
	}
	return merged, nil
}
