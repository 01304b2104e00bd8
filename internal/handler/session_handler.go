package handler

import (
	"net/http"

	"github.com/edustep/placement-backend/internal/model"
	"github.com/edustep/placement-backend/internal/response"
	"github.com/edustep/placement-backend/internal/service"
	"github.com/edustep/placement-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionHandler handles the attempt lifecycle endpoints.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// CreateSession godoc
// POST /api/v1/sessions
// Starts a new attempt at an active exam.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req model.CreateSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	examID, err := uuid.Parse(req.ExamID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	session, err := h.sessionService.CreateSession(c.Request.Context(), req.StudentRef, examID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": session})
}

// GetState godoc
// GET /api/v1/sessions/:session_id
// Returns the session with its remaining time. An expired open session is
// finalized before the state is returned.
func (h *SessionHandler) GetState(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	state, err := h.sessionService.State(c.Request.Context(), sessionID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// RecordAnswer godoc
// POST /api/v1/sessions/:session_id/answers
// Stores one answer, overwriting any earlier value for the same question.
func (h *SessionHandler) RecordAnswer(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	var req model.RecordAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.sessionService.RecordAnswer(c.Request.Context(), sessionID, questionID, req.RawValue); err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// AutoSave godoc
// POST /api/v1/sessions/:session_id/autosave
// Merges a partial answer map into the working set. A save arriving after
// completion is acknowledged and discarded.
func (h *SessionHandler) AutoSave(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	var req model.AutoSaveRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.AutoSave(c.Request.Context(), sessionID, req.Answers); err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "saved", "count": len(req.Answers)})
}

// Submit godoc
// POST /api/v1/sessions/:session_id/submit
// Finalizes and grades the session. Safe to call more than once; repeat calls
// return the stored result.
func (h *SessionHandler) Submit(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	result, err := h.sessionService.Submit(c.Request.Context(), sessionID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetAnswers godoc
// GET /api/v1/sessions/:session_id/answers
// Returns the current working answer set (or the stored set once completed).
func (h *SessionHandler) GetAnswers(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	answers, err := h.sessionService.Answers(c.Request.Context(), sessionID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"answers": answers})
}

// AppendNote godoc
// POST /api/v1/sessions/:session_id/notes
// Queues a free-form audit note from an external collector.
func (h *SessionHandler) AppendNote(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	var req model.AppendNoteRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.AppendNote(c.Request.Context(), sessionID, req.Note); err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{"status": "queued"})
}

// GetNotes godoc
// GET /api/v1/sessions/:session_id/notes
// Returns the persisted audit notes in insertion order. Notes still in the
// batch queue appear once the worker flushes them.
func (h *SessionHandler) GetNotes(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	notes, err := h.sessionService.Notes(c.Request.Context(), sessionID)
	if err != nil {
		failFromService(c, err)
		return
	}
	if notes == nil {
		notes = []model.SessionNote{}
	}

	response.Success(c, http.StatusOK, gin.H{"notes": notes})
}

// GetStats godoc
// GET /api/v1/students/:student_ref/exams/:exam_id/stats
// Returns best score, average score and attempt count across completed
// attempts, derived on read.
func (h *SessionHandler) GetStats(c *gin.Context) {
	studentRef := c.Param("student_ref")
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	stats, err := h.sessionService.Stats(c.Request.Context(), studentRef, examID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"stats": stats})
}

// sessionParam parses the :session_id path parameter, writing a 400 response
// on failure.
func sessionParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
