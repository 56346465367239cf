package engine

import "errors"

// Domain errors. Navigation and mode errors are recoverable: the session is
// left unchanged and the caller may ignore them. ErrScoringPrecondition means
// the session was corrupted and must not be scored.
var (
	ErrInvalidIndex         = errors.New("question index out of range")
	ErrInvalidOption        = errors.New("option index out of range")
	ErrInvalidModeOperation = errors.New("operation not allowed in current mode or phase")
	ErrInvalidMode          = errors.New("unknown session mode")
	ErrInvalidFilter        = errors.New("unknown review filter")
	ErrNoQuestions          = errors.New("session requires at least one question")
	ErrInvalidQuestion      = errors.New("malformed question")
	ErrInvalidScheme        = errors.New("invalid marking scheme")
	ErrScoringPrecondition  = errors.New("answers length does not match questions length")
	ErrPersistence          = errors.New("result persistence failed")
)
