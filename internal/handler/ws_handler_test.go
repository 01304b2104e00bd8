package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/edustep/placement-backend/internal/grading"
	"github.com/edustep/placement-backend/internal/middleware"
	"github.com/edustep/placement-backend/internal/model"
	"github.com/edustep/placement-backend/internal/service"
	ws "github.com/edustep/placement-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type streamSessionStore struct {
	sessions map[uuid.UUID]*model.Session
}

func (f *streamSessionStore) Create(_ context.Context, s *model.Session) error {
	s.ID = uuid.New()
	s.StartedAt = time.Now()
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *streamSessionStore) GetByID(_ context.Context, id uuid.UUID) (*model.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *streamSessionStore) Complete(_ context.Context, id uuid.UUID, completedAt time.Time, score, percentage float64, timerForced bool) (bool, error) {
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

func (f *streamSessionStore) AttemptStats(_ context.Context, _ string, _ uuid.UUID) (float64, float64, int, error) {
	return 0, 0, 0, nil
}

type streamExamStore struct {
	exam model.Exam
}

func (f *streamExamStore) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	if id != f.exam.ID {
		return nil, nil
	}
	cp := f.exam
	return &cp, nil
}

type streamQuestionStore struct {
	questions []model.Question
}

func (f *streamQuestionStore) ListByExam(_ context.Context, examID uuid.UUID) ([]model.Question, error) {
	var out []model.Question
	for _, q := range f.questions {
		if q.ExamID == examID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *streamQuestionStore) GetByID(_ context.Context, id, examID uuid.UUID) (*model.Question, error) {
	for _, q := range f.questions {
		if q.ID == id && q.ExamID == examID {
			cp := q
			return &cp, nil
		}
	}
	return nil, nil
}

type streamAnswerStore struct{}

func (f *streamAnswerStore) BulkGrade(_ context.Context, _ uuid.UUID, _ []grading.Result, _ map[uuid.UUID]string) error {
	return nil
}

func (f *streamAnswerStore) ListBySession(_ context.Context, _ uuid.UUID) ([]model.Answer, error) {
	return nil, nil
}

type streamNoteStore struct{}

func (f *streamNoteStore) ListBySession(_ context.Context, _ uuid.UUID) ([]model.SessionNote, error) {
	return nil, nil
}

type streamCache struct {
	answers   map[uuid.UUID]map[uuid.UUID]string
	starts    map[uuid.UUID]int64
	saveCalls int
}

func newStreamCache() *streamCache {
	return &streamCache{
		answers: make(map[uuid.UUID]map[uuid.UUID]string),
		starts:  make(map[uuid.UUID]int64),
	}
}

func (f *streamCache) SaveAnswer(_ context.Context, sessionID, questionID uuid.UUID, raw string) error {
	if f.answers[sessionID] == nil {
		f.answers[sessionID] = make(map[uuid.UUID]string)
	}
	f.answers[sessionID][questionID] = raw
	return nil
}

func (f *streamCache) SaveAnswers(ctx context.Context, sessionID uuid.UUID, answers map[uuid.UUID]string) error {
	f.saveCalls++
	for qid, raw := range answers {
		if err := f.SaveAnswer(ctx, sessionID, qid, raw); err != nil {
			return err
		}
	}
	return nil
}

func (f *streamCache) Answers(_ context.Context, sessionID uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(f.answers[sessionID]))
	for k, v := range f.answers[sessionID] {
		out[k] = v
	}
	return out, nil
}

func (f *streamCache) Clear(_ context.Context, sessionID uuid.UUID) error {
	delete(f.answers, sessionID)
	return nil
}

func (f *streamCache) SetStartedAt(_ context.Context, sessionID uuid.UUID, startedAt time.Time) error {
	f.starts[sessionID] = startedAt.UnixNano()
	return nil
}

func (f *streamCache) StartedAt(_ context.Context, sessionID uuid.UUID) (time.Time, bool, error) {
	nanos, ok := f.starts[sessionID]
	if !ok {
		return time.Time{}, false, nil
	}
	return time.Unix(0, nanos), true, nil
}

func (f *streamCache) EnqueueNote(_ context.Context, _ uuid.UUID, _ string) error {
	return nil
}

// Autosaves over the stream must count against the same fixed window as the
// HTTP answer routes; once the window is spent the save is dropped with a
// retry hint instead of reaching the service.
func TestSessionStreamAutosaveSharesAnswerRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	exam := model.Exam{
		ID:              uuid.New(),
		LevelID:         1,
		Status:          model.ExamStatusActive,
		DurationMinutes: 60,
		QuestionCount:   1,
		ScorePrecision:  2,
	}
	q := model.Question{
		ID:           uuid.New(),
		ExamID:       exam.ID,
		QuestionType: model.QuestionTypeSingleChoice,
		OptionCount:  4,
		PointValue:   10,
		CorrectSpec:  json.RawMessage(`{"answer":"A"}`),
		OrderNum:     1,
	}

	cache := newStreamCache()
	svc := service.NewSessionService(
		&streamSessionStore{sessions: make(map[uuid.UUID]*model.Session)},
		&streamExamStore{exam: exam},
		&streamQuestionStore{questions: []model.Question{q}},
		&streamAnswerStore{},
		cache,
		&streamNoteStore{},
	)

	s, err := svc.CreateSession(context.Background(), "student-1", exam.ID)
	require.NoError(t, err)

	limiter := middleware.NewRateLimiter(2, time.Minute)
	h := NewWSHandler(svc, limiter, nil)

	r := gin.New()
	r.GET("/ws/v1/sessions/:session_id/stream", h.SessionStream)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/sessions/" + s.ID.String() + "/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	save := ws.RequestEnvelope{
		Action:  ws.ActionAutosave,
		Answers: map[string]string{q.ID.String(): "A"},
	}

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.WriteJSON(save))
		var reply map[string]interface{}
		require.NoError(t, conn.ReadJSON(&reply))
		assert.Equal(t, string(ws.EventSaved), reply["event"])
	}

	// Third save in the same window is rejected before touching the service.
	require.NoError(t, conn.WriteJSON(save))
	var limited ws.RateLimitedResponse
	require.NoError(t, conn.ReadJSON(&limited))
	assert.Equal(t, ws.EventRateLimited, limited.Event)
	assert.GreaterOrEqual(t, limited.RetryAfterSeconds, 1)
	assert.Equal(t, 2, cache.saveCalls)
}
