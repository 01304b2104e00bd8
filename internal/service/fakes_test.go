package service

import (
	"context"
	"sort"
	"time"

	"github.com/edustep/placement-backend/internal/grading"
	"github.com/edustep/placement-backend/internal/model"
	"github.com/google/uuid"
)

type fakeRuleFinder struct {
	rules []model.PlacementRule
}

func (f *fakeRuleFinder) RulesMatching(_ context.Context, grade int, bucket model.RankBucket, termTag *string) ([]model.PlacementRule, error) {
	var out []model.PlacementRule
	for _, r := range f.rules {
		if grade < r.GradeMin || grade > r.GradeMax || r.RankBucket != bucket {
			continue
		}
		if r.TermTag != nil && (termTag == nil || *termTag != *r.TermTag) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

type fakeLevelStore struct {
	levels map[int]model.CurriculumLevel
}

func (f *fakeLevelStore) LevelByID(_ context.Context, id int) (*model.CurriculumLevel, error) {
	l, ok := f.levels[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (f *fakeLevelStore) LevelsInSubProgram(_ context.Context, subProgramID int) ([]model.CurriculumLevel, error) {
	var out []model.CurriculumLevel
	for _, l := range f.levels {
		if l.SubProgramID == subProgramID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LevelNumber < out[j].LevelNumber })
	return out, nil
}

func (f *fakeLevelStore) AdjacentLevel(_ context.Context, subProgramID, levelNumber int, direction model.Direction) (*model.CurriculumLevel, error) {
	var candidates []model.CurriculumLevel
	for _, l := range f.levels {
		if l.SubProgramID != subProgramID {
			continue
		}
		if direction == model.DirectionHarder && l.LevelNumber > levelNumber {
			candidates = append(candidates, l)
		}
		if direction == model.DirectionEasier && l.LevelNumber < levelNumber {
			candidates = append(candidates, l)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if direction == model.DirectionHarder {
			return candidates[i].LevelNumber < candidates[j].LevelNumber
		}
		return candidates[i].LevelNumber > candidates[j].LevelNumber
	})
	l := candidates[0]
	return &l, nil
}

type fakeExamStore struct {
	exams         map[uuid.UUID]model.Exam
	activeByLevel map[int]model.Exam
}

func (f *fakeExamStore) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	e, ok := f.exams[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (f *fakeExamStore) ActiveForLevel(_ context.Context, levelID int) (*model.Exam, error) {
	e, ok := f.activeByLevel[levelID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

type fakeSessionStore struct {
	sessions    map[uuid.UUID]*model.Session
	createdAt   time.Time
	adjustments int
}

func newFakeSessionStore(createdAt time.Time) *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[uuid.UUID]*model.Session), createdAt: createdAt}
}

func (f *fakeSessionStore) Create(_ context.Context, s *model.Session) error {
	s.ID = uuid.New()
	s.StartedAt = f.createdAt
	stored := *s
	f.sessions[s.ID] = &stored
	return nil
}

func (f *fakeSessionStore) GetByID(_ context.Context, id uuid.UUID) (*model.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionStore) Complete(_ context.Context, id uuid.UUID, completedAt time.Time, score, percentage float64, timerForced bool) (bool, error) {
	s, ok := f.sessions[id]
	if !ok || s.CompletedAt != nil {
		return false, nil
	}
	s.CompletedAt = &completedAt
	s.Score = &score
	s.Percentage = &percentage
	s.TimerForced = timerForced
	return true, nil
}

func (f *fakeSessionStore) RecordAdjustment(_ context.Context, id uuid.UUID, finalLevelID int) error {
	s := f.sessions[id]
	s.FinalLevelID = finalLevelID
	s.AdjustmentCount++
	f.adjustments++
	return nil
}

func (f *fakeSessionStore) AttemptStats(_ context.Context, studentRef string, examID uuid.UUID) (float64, float64, int, error) {
	var best, sum float64
	var n int
	for _, s := range f.sessions {
		if s.StudentRef != studentRef || s.ExamID != examID || s.CompletedAt == nil {
			continue
		}
		n++
		sum += *s.Score
		if *s.Score > best {
			best = *s.Score
		}
	}
	if n == 0 {
		return 0, 0, 0, nil
	}
	return best, sum / float64(n), n, nil
}

type fakeQuestionStore struct {
	questions []model.Question
}

func (f *fakeQuestionStore) ListByExam(_ context.Context, examID uuid.UUID) ([]model.Question, error) {
	var out []model.Question
	for _, q := range f.questions {
		if q.ExamID == examID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuestionStore) GetByID(_ context.Context, id, examID uuid.UUID) (*model.Question, error) {
	for _, q := range f.questions {
		if q.ID == id && q.ExamID == examID {
			cp := q
			return &cp, nil
		}
	}
	return nil, nil
}

type fakeAnswerStore struct {
	rows           map[uuid.UUID][]model.Answer
	bulkGradeCalls int
}

func newFakeAnswerStore() *fakeAnswerStore {
	return &fakeAnswerStore{rows: make(map[uuid.UUID][]model.Answer)}
}

func (f *fakeAnswerStore) BulkGrade(_ context.Context, sessionID uuid.UUID, results []grading.Result, raws map[uuid.UUID]string) error {
	f.bulkGradeCalls++
	answers := make([]model.Answer, 0, len(results))
	for _, r := range results {
		correct := r.IsCorrect
		earned := r.PointsEarned
		answers = append(answers, model.Answer{
			SessionID:    sessionID,
			QuestionID:   r.QuestionID,
			RawValue:     raws[r.QuestionID],
			IsCorrect:    &correct,
			PointsEarned: &earned,
		})
	}
	f.rows[sessionID] = answers
	return nil
}

func (f *fakeAnswerStore) ListBySession(_ context.Context, sessionID uuid.UUID) ([]model.Answer, error) {
	return f.rows[sessionID], nil
}

// fakeSessionCache stores start timestamps as Unix nanoseconds, matching the
// Redis cache encoding, so precision loss would show up in tests.
type fakeSessionCache struct {
	answers map[uuid.UUID]map[uuid.UUID]string
	starts  map[uuid.UUID]int64
	notes   []string
}

func newFakeSessionCache() *fakeSessionCache {
	return &fakeSessionCache{
		answers: make(map[uuid.UUID]map[uuid.UUID]string),
		starts:  make(map[uuid.UUID]int64),
	}
}

func (f *fakeSessionCache) SaveAnswer(_ context.Context, sessionID, questionID uuid.UUID, raw string) error {
	if f.answers[sessionID] == nil {
		f.answers[sessionID] = make(map[uuid.UUID]string)
	}
	f.answers[sessionID][questionID] = raw
	return nil
}

func (f *fakeSessionCache) SaveAnswers(ctx context.Context, sessionID uuid.UUID, answers map[uuid.UUID]string) error {
	for qid, raw := range answers {
		if err := f.SaveAnswer(ctx, sessionID, qid, raw); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeSessionCache) Answers(_ context.Context, sessionID uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(f.answers[sessionID]))
	for k, v := range f.answers[sessionID] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeSessionCache) Clear(_ context.Context, sessionID uuid.UUID) error {
	delete(f.answers, sessionID)
	return nil
}

func (f *fakeSessionCache) SetStartedAt(_ context.Context, sessionID uuid.UUID, startedAt time.Time) error {
	f.starts[sessionID] = startedAt.UnixNano()
	return nil
}

func (f *fakeSessionCache) StartedAt(_ context.Context, sessionID uuid.UUID) (time.Time, bool, error) {
	nanos, ok := f.starts[sessionID]
	if !ok {
		return time.Time{}, false, nil
	}
	return time.Unix(0, nanos), true, nil
}

func (f *fakeSessionCache) EnqueueNote(_ context.Context, _ uuid.UUID, note string) error {
	f.notes = append(f.notes, note)
	return nil
}

type fakeNoteStore struct {
	notes []model.SessionNote
}

func (f *fakeNoteStore) ListBySession(_ context.Context, sessionID uuid.UUID) ([]model.SessionNote, error) {
	var out []model.SessionNote
	for _, n := range f.notes {
		if n.SessionID == sessionID {
			out = append(out, n)
		}
	}
	return out, nil
}

type fakeAdjustmentLedger struct {
	records []model.AdjustmentRecord
}

func (f *fakeAdjustmentLedger) Append(_ context.Context, rec *model.AdjustmentRecord) error {
	rec.ID = int64(len(f.records) + 1)
	rec.CreatedAt = time.Now()
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeAdjustmentLedger) ListBySession(_ context.Context, sessionID uuid.UUID) ([]model.AdjustmentRecord, error) {
	var out []model.AdjustmentRecord
	for _, r := range f.records {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out, nil
}
