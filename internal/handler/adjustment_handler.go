package handler

import (
	"net/http"
	"strconv"

	"github.com/edustep/placement-backend/internal/model"
	"github.com/edustep/placement-backend/internal/response"
	"github.com/edustep/placement-backend/internal/service"
	"github.com/edustep/placement-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// AdjustmentHandler handles level adjustment endpoints.
type AdjustmentHandler struct {
	adjustmentService *service.AdjustmentService
}

// NewAdjustmentHandler creates a new AdjustmentHandler.
func NewAdjustmentHandler(adjustmentService *service.AdjustmentService) *AdjustmentHandler {
	return &AdjustmentHandler{adjustmentService: adjustmentService}
}

// SuggestAdjacent godoc
// GET /api/v1/levels/:level_id/adjacent?direction=easier|harder
// Returns the neighbouring level without applying anything. A null level in
// the response means the ladder ends there.
func (h *AdjustmentHandler) SuggestAdjacent(c *gin.Context) {
	levelID, err := strconv.Atoi(c.Param("level_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	direction := model.Direction(c.Query("direction"))
	if !direction.Valid() {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"direction": "must be easier or harder"})
		return
	}

	level, err := h.adjustmentService.SuggestAdjacent(c.Request.Context(), levelID, direction)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"level": level})
}

// GetLadder godoc
// GET /api/v1/subprograms/:sub_program_id/levels
// Returns a subprogram's ordered level ladder.
func (h *AdjustmentHandler) GetLadder(c *gin.Context) {
	subProgramID, err := strconv.Atoi(c.Param("sub_program_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	levels, err := h.adjustmentService.Ladder(c.Request.Context(), subProgramID)
	if err != nil {
		failFromService(c, err)
		return
	}
	if levels == nil {
		levels = []model.CurriculumLevel{}
	}

	response.Success(c, http.StatusOK, gin.H{"levels": levels})
}

// ApplyAdjustment godoc
// POST /api/v1/sessions/:session_id/adjustments
// Moves a completed session's final level one step and records the move.
func (h *AdjustmentHandler) ApplyAdjustment(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	var req model.AdjustRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	rec, err := h.adjustmentService.ApplyAdjustment(c.Request.Context(), sessionID, model.Direction(req.Direction))
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"adjustment": rec})
}

// GetHistory godoc
// GET /api/v1/sessions/:session_id/adjustments
// Returns the session's adjustment lineage in order of application.
func (h *AdjustmentHandler) GetHistory(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	history, err := h.adjustmentService.History(c.Request.Context(), sessionID)
	if err != nil {
		failFromService(c, err)
		return
	}
	if history == nil {
		history = []model.AdjustmentRecord{}
	}

	response.Success(c, http.StatusOK, gin.H{"adjustments": history})
}
