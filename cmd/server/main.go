package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edustep/placement-backend/internal/cache"
	"github.com/edustep/placement-backend/internal/config"
	"github.com/edustep/placement-backend/internal/database"
	"github.com/edustep/placement-backend/internal/handler"
	"github.com/edustep/placement-backend/internal/logger"
	"github.com/edustep/placement-backend/internal/middleware"
	"github.com/edustep/placement-backend/internal/repository"
	"github.com/edustep/placement-backend/internal/router"
	"github.com/edustep/placement-backend/internal/service"
	"github.com/edustep/placement-backend/internal/validator"
	"github.com/edustep/placement-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Placement Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	curriculumRepo := repository.NewCurriculumRepository(pool)
	ruleRepo := repository.NewPlacementRuleRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	answerRepo := repository.NewAnswerRepository(pool)
	adjustmentRepo := repository.NewAdjustmentRepository(pool)
	noteRepo := repository.NewNoteRepository(pool)

	sessionCache := cache.NewRedisSessionCache(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	placementService := service.NewPlacementService(ruleRepo, curriculumRepo, examRepo)
	sessionService := service.NewSessionService(sessionRepo, examRepo, questionRepo, answerRepo, sessionCache, noteRepo)
	adjustmentService := service.NewAdjustmentService(curriculumRepo, sessionRepo, adjustmentRepo, cfg.MaxAdjustmentDelta)

	// Answer-intake rate limiter, shared between the HTTP routes and the
	// WebSocket stream so one policy covers both transports.
	answerLimiter := middleware.NewRateLimiter(cfg.RateLimitPerWindow, cfg.RateLimitWindow)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Placement:  handler.NewPlacementHandler(placementService),
		Session:    handler.NewSessionHandler(sessionService),
		Adjustment: handler.NewAdjustmentHandler(adjustmentService),
		WS:         handler.NewWSHandler(sessionService, answerLimiter, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	answerWorker := worker.NewAnswerWorker(pool, rdb)
	auditWorker := worker.NewAuditWorker(noteRepo, rdb)

	go answerWorker.Start(workerCtx)
	go auditWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, cfg, answerLimiter)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
