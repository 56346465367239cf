package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/prepexam/internal/engine"
)

// AttemptStatus enumerates persisted attempt states.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusCompleted  AttemptStatus = "COMPLETED"
)

// Attempt is one user's run through a paper.
type Attempt struct {
	ID          uuid.UUID        `json:"id"`
	PaperID     uuid.UUID        `json:"paper_id"`
	PaperTitle  string           `json:"paper_title,omitempty"`
	UserID      int              `json:"user_id"`
	Mode        engine.Mode      `json:"mode"`
	Status      AttemptStatus    `json:"status"`
	EndReason   engine.EndReason `json:"end_reason,omitempty"`
	RawScore    *float64         `json:"raw_score,omitempty"`
	Percentage  *float64         `json:"percentage,omitempty"`
	Correct     *int             `json:"correct_count,omitempty"`
	Wrong       *int             `json:"wrong_count,omitempty"`
	Skipped     *int             `json:"skipped_count,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	SubmittedAt *time.Time       `json:"submitted_at,omitempty"`
}

// AnswerChange is queued on every in-progress answer or mark change.
type AnswerChange struct {
	AttemptID      string    `json:"attempt_id"`
	QuestionID     int       `json:"question_id"`
	SelectedOption int       `json:"selected_option"`
	IsFlagged      bool      `json:"is_flagged"`
	ChangedAt      time.Time `json:"changed_at"`
}

// ─── Requests ───────────────────────────────────────────────────────

// StartAttemptRequest is the payload for starting an attempt.
type StartAttemptRequest struct {
	PaperID string `json:"paper_id" binding:"required,uuid"`
	Mode    string `json:"mode" binding:"required,attempt_mode"`
}

// SelectAnswerRequest picks an option on the current question.
type SelectAnswerRequest struct {
	Option *int `json:"option" binding:"required,min=0"`
}

// JumpRequest moves to a question by its original index.
type JumpRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}

// ReviewFilterRequest changes the review filter.
type ReviewFilterRequest struct {
	Filter string `json:"filter" binding:"required,review_filter"`
}

// HistoryQuery pages through a user's past attempts.
type HistoryQuery struct {
	Page    int `form:"page" binding:"omitempty,min=1"`
	PerPage int `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// ─── Responses ──────────────────────────────────────────────────────

// AttemptView is the in-progress snapshot returned after every action.
type AttemptView struct {
	AttemptID       uuid.UUID             `json:"attempt_id"`
	PaperID         uuid.UUID             `json:"paper_id"`
	Title           string                `json:"title"`
	Progress        engine.Progress       `json:"progress"`
	Question        *QuestionForCandidate `json:"question,omitempty"`
	RevealedAnswer  *int                  `json:"revealed_answer,omitempty"`
	SubmitRequested bool                  `json:"submit_requested,omitempty"`
}

// SubmitView is returned once an attempt has been graded.
type SubmitView struct {
	AttemptID    uuid.UUID        `json:"attempt_id"`
	EndReason    engine.EndReason `json:"end_reason"`
	Result       *engine.Result   `json:"result"`
	Passed       bool             `json:"passed"`
	Persisted    bool             `json:"persisted"`
	PersistError string           `json:"persist_error,omitempty"`
}

// ─── Events ─────────────────────────────────────────────────────────

// AttemptEventType names a lifecycle event published for an attempt.
type AttemptEventType string

const (
	AttemptEventGuard  AttemptEventType = "guard"
	AttemptEventGraded AttemptEventType = "graded"
)

// AttemptEvent is published on the attempt's pub/sub channel.
type AttemptEvent struct {
	Type         AttemptEventType `json:"type"`
	AttemptID    uuid.UUID        `json:"attempt_id"`
	GuardEnabled *bool            `json:"guard_enabled,omitempty"`
	Submission   *SubmitView      `json:"submission,omitempty"`
	At           time.Time        `json:"at"`
}
