package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden ErrCode = "FORBIDDEN"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Papers ────────────────────────────────────────────────────────
	ErrPaperNotFound ErrCode = "PAPER_NOT_FOUND"
	ErrInvalidPaper  ErrCode = "INVALID_PAPER"
	ErrNoQuestions   ErrCode = "NO_QUESTIONS"

	// ─── Attempts ──────────────────────────────────────────────────────
	ErrAttemptNotFound      ErrCode = "ATTEMPT_NOT_FOUND"
	ErrAttemptNotCompleted  ErrCode = "ATTEMPT_NOT_COMPLETED"
	ErrInvalidIndex         ErrCode = "INVALID_INDEX"
	ErrInvalidOption        ErrCode = "INVALID_OPTION"
	ErrInvalidModeOperation ErrCode = "INVALID_MODE_OPERATION"
	ErrScoringPrecondition  ErrCode = "SCORING_PRECONDITION"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have access to this resource."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Papers ────────────────────────────────────────────────────────
	case ErrPaperNotFound:
		return "Question paper not found."
	case ErrInvalidPaper:
		return "The question paper is malformed and cannot be started."
	case ErrNoQuestions:
		return "The question paper has no questions."

	// ─── Attempts ──────────────────────────────────────────────────────
	case ErrAttemptNotFound:
		return "Attempt not found or no longer available."
	case ErrAttemptNotCompleted:
		return "The attempt has not been submitted yet."
	case ErrInvalidIndex:
		return "Question index is out of range."
	case ErrInvalidOption:
		return "Option is not valid for this question."
	case ErrInvalidModeOperation:
		return "This action is not allowed in the attempt's current state."
	case ErrScoringPrecondition:
		return "The attempt could not be scored."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
