package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Placement ─────────────────────────────────────────────────────
	ErrNoMatchingRule       ErrCode = "NO_MATCHING_RULE"
	ErrNoActiveExamForLevel ErrCode = "NO_ACTIVE_EXAM_FOR_LEVEL"

	// ─── Session lifecycle ─────────────────────────────────────────────
	ErrSessionCompleted    ErrCode = "SESSION_ALREADY_COMPLETED"
	ErrSessionNotCompleted ErrCode = "SESSION_NOT_COMPLETED"
	ErrExamNotAvailable    ErrCode = "EXAM_NOT_AVAILABLE"

	// ─── Adjustment ────────────────────────────────────────────────────
	ErrAdjustmentLimit ErrCode = "ADJUSTMENT_LIMIT_REACHED"
	ErrNoAdjacentLevel ErrCode = "NO_ADJACENT_LEVEL"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"
	ErrInvalidID  ErrCode = "INVALID_ID"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimited ErrCode = "RATE_LIMITED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrNoMatchingRule:
		return "No assessment is currently available for this grade and rank."
	case ErrNoActiveExamForLevel:
		return "The matched level has no active exam."
	case ErrSessionCompleted:
		return "This session is already completed."
	case ErrSessionNotCompleted:
		return "This session has not been completed yet."
	case ErrExamNotAvailable:
		return "This exam is not available for new sessions."
	case ErrAdjustmentLimit:
		return "The adjustment limit for this session has been reached."
	case ErrNoAdjacentLevel:
		return "There is no adjacent level in that direction."
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrNotFound:
		return "Resource not found."
	case ErrRateLimited:
		return "Too many requests. Please retry after a short delay."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
