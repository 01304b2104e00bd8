package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/edustep/placement-backend/internal/service"
	ws "github.com/edustep/placement-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// answerLimiter is the slice of the shared answer-intake rate limiter the
// stream needs. Autosaves over WebSocket count against the same fixed window
// as the HTTP answer routes.
type answerLimiter interface {
	Allow(key string) (retryAfterSeconds int, ok bool)
}

// WSHandler handles WebSocket session streaming.
type WSHandler struct {
	sessionService *service.SessionService
	limiter        answerLimiter
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, limiter answerLimiter, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		limiter:        limiter,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/sessions/:session_id/stream
// Upgrades to WebSocket for real-time autosave, countdown reads and submit.
func (h *WSHandler) SessionStream(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	// Reject unknown sessions before paying for the upgrade.
	if _, err := h.sessionService.State(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("session_id", sessionID.String()).Logger()
	wsLog.Info().Msg("Client connected")

	for {
		var msg ws.RequestEnvelope
		err := ws.ReadJSON(conn, &msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionAutosave:
			// Same window as the HTTP answer routes, keyed by session ID.
			if retryAfter, ok := h.limiter.Allow(sessionID.String()); !ok {
				wsLog.Warn().Int("retry_after", retryAfter).Msg("Autosave rate limited")
				ws.WriteTyped(conn, ws.RateLimitedResponse{
					Event:             ws.EventRateLimited,
					RetryAfterSeconds: retryAfter,
				})
				continue
			}
			h.handleAutosave(conn, wsLog, sessionID, msg.Answers)
		case ws.ActionState:
			h.handleState(conn, wsLog, sessionID)
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, sessionID)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

func (h *WSHandler) handleAutosave(conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID, answers map[string]string) {
	if len(answers) == 0 {
		ws.WriteError(conn, "answers map is required")
		return
	}

	if err := h.sessionService.AutoSave(context.Background(), sessionID, answers); err != nil {
		wsLog.Error().Err(err).Msg("Autosave error")
		ws.WriteError(conn, "save failed")
		return
	}

	ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, Count: len(answers)})
}

func (h *WSHandler) handleState(conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID) {
	state, err := h.sessionService.State(context.Background(), sessionID)
	if err != nil {
		wsLog.Error().Err(err).Msg("State read error")
		ws.WriteError(conn, "state read failed")
		return
	}

	ws.WriteTyped(conn, ws.StateResponse{
		Event:            ws.EventState,
		RemainingSeconds: state.RemainingSeconds,
		Completed:        state.Session.Completed(),
	})
}

func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID) {
	result, err := h.sessionService.Submit(context.Background(), sessionID)
	if err != nil {
		wsLog.Error().Err(err).Msg("Submit error")
		ws.WriteError(conn, "submit failed")
		return
	}

	wsLog.Info().Float64("score", result.Summary.TotalEarned).
		Bool("timer_forced", result.TimerForced).Msg("Session submitted")

	ws.WriteTyped(conn, ws.GradedResponse{
		Event:       ws.EventGraded,
		Score:       result.Summary.TotalEarned,
		Percentage:  result.Summary.Percentage,
		TimerForced: result.TimerForced,
	})
}
