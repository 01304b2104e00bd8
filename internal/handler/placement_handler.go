package handler

import (
	"net/http"

	"github.com/edustep/placement-backend/internal/model"
	"github.com/edustep/placement-backend/internal/response"
	"github.com/edustep/placement-backend/internal/service"
	"github.com/edustep/placement-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// PlacementHandler handles the placement lookup endpoint.
type PlacementHandler struct {
	placementService *service.PlacementService
}

// NewPlacementHandler creates a new PlacementHandler.
func NewPlacementHandler(placementService *service.PlacementService) *PlacementHandler {
	return &PlacementHandler{placementService: placementService}
}

// MatchExam godoc
// POST /api/v1/placement/match
// Resolves grade + rank bucket (+ optional term) into the exam to sit.
func (h *PlacementHandler) MatchExam(c *gin.Context) {
	var req model.MatchExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	bucket := model.RankBucket(req.RankBucket)
	if !bucket.Valid() {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"rank_bucket": "must be one of TOP_10, TOP_20, TOP_30, TOP_50, BELOW_50"})
		return
	}

	match, err := h.placementService.MatchExam(c.Request.Context(), req.Grade, bucket, req.TermTag)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"match": match})
}
