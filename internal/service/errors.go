package service

import "errors"

// Domain errors returned by the services. Engine errors pass through
// unwrapped so callers can still match them with errors.Is.
var (
	ErrPaperNotFound       = errors.New("paper not found")
	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrNotAttemptOwner     = errors.New("attempt belongs to another user")
	ErrAttemptNotCompleted = errors.New("attempt has not been submitted")
	ErrAnswerHidden        = errors.New("correct answer is not revealed yet")
)
