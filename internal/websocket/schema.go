package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSubmit   Action = "submit"
	ActionState    Action = "state"
	ActionPing     Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
	// Answers is set on autosave: a partial question_id → raw value map.
	Answers map[string]string `json:"answers,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError       Event = "error"
	EventSaved       Event = "saved"
	EventState       Event = "state"
	EventGraded      Event = "graded"
	EventPong        Event = "pong"
	EventRateLimited Event = "rate_limited"
)

type SavedResponse struct {
	Event Event `json:"event"`
	Count int   `json:"count"`
}

type StateResponse struct {
	Event            Event `json:"event"`
	RemainingSeconds int64 `json:"remaining_seconds"`
	Completed        bool  `json:"completed"`
}

type GradedResponse struct {
	Event       Event   `json:"event"`
	Score       float64 `json:"score"`
	Percentage  float64 `json:"percentage"`
	TimerForced bool    `json:"timer_forced"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

// RateLimitedResponse tells the client to back off and retry the save after
// the given number of seconds. The message is dropped, not queued.
type RateLimitedResponse struct {
	Event             Event `json:"event"`
	RetryAfterSeconds int   `json:"retry_after_seconds"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
