package router

import (
	"net/http"
	"time"

	"github.com/edustep/placement-backend/internal/config"
	"github.com/edustep/placement-backend/internal/handler"
	"github.com/edustep/placement-backend/internal/middleware"
	"github.com/edustep/placement-backend/internal/response"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Placement  *handler.PlacementHandler
	Session    *handler.SessionHandler
	Adjustment *handler.AdjustmentHandler
	WS         *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// answerLimiter is the shared answer-intake limiter; the WebSocket stream
// checks the same instance so one policy covers both transports.
func SetupRouter(handlers *Handlers, cfg *config.Config, answerLimiter *middleware.RateLimiter) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Placement ──────────────────────────────────────────────────
	placementAPI := router.Group("/api/v1/placement")
	{
		placementAPI.POST("/match", handlers.Placement.MatchExam)
	}

	// ─── 2. Levels ─────────────────────────────────────────────────────
	levelAPI := router.Group("/api/v1/levels")
	{
		levelAPI.GET("/:level_id/adjacent", handlers.Adjustment.SuggestAdjacent)
	}
	subProgramAPI := router.Group("/api/v1/subprograms")
	{
		subProgramAPI.GET("/:sub_program_id/levels", handlers.Adjustment.GetLadder)
	}

	// ─── 3. Sessions ───────────────────────────────────────────────────
	sessionAPI := router.Group("/api/v1/sessions")
	{
		sessionAPI.POST("", handlers.Session.CreateSession)
		sessionAPI.GET("/:session_id", handlers.Session.GetState)
		sessionAPI.GET("/:session_id/answers", handlers.Session.GetAnswers)
		sessionAPI.POST("/:session_id/answers", answerLimiter.Middleware(), handlers.Session.RecordAnswer)
		sessionAPI.POST("/:session_id/autosave", answerLimiter.Middleware(), handlers.Session.AutoSave)
		sessionAPI.POST("/:session_id/submit", handlers.Session.Submit)
		sessionAPI.POST("/:session_id/notes", handlers.Session.AppendNote)
		sessionAPI.GET("/:session_id/notes", handlers.Session.GetNotes)
		sessionAPI.POST("/:session_id/adjustments", handlers.Adjustment.ApplyAdjustment)
		sessionAPI.GET("/:session_id/adjustments", handlers.Adjustment.GetHistory)
	}

	// ─── 4. Students ───────────────────────────────────────────────────
	studentAPI := router.Group("/api/v1/students")
	{
		studentAPI.GET("/:student_ref/exams/:exam_id/stats", handlers.Session.GetStats)
	}

	// ─── 5. WebSocket ──────────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/sessions/:session_id/stream", handlers.WS.SessionStream)
	}

	return router
}
