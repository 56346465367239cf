package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/prepexam/internal/engine"
)

// ErrInvalidPaper is returned when a paper fails boundary validation.
var ErrInvalidPaper = errors.New("invalid paper")

// Paper is a timed question paper as stored in PostgreSQL.
type Paper struct {
	ID                uuid.UUID            `json:"id"`
	Title             string               `json:"title"`
	DurationSeconds   int                  `json:"duration_seconds"`
	MarkingScheme     engine.MarkingScheme `json:"marking_scheme"`
	PassingPercentage float64              `json:"passing_percentage"`
	Questions         []PaperQuestion      `json:"questions"`
	CreatedAt         time.Time            `json:"created_at"`
}

// PaperQuestion is one question row with its answer key.
type PaperQuestion struct {
	ID                 int             `json:"id"`
	OrderNum           int             `json:"order_num"`
	PromptPrimary      string          `json:"prompt_primary"`
	PromptSecondary    string          `json:"prompt_secondary"`
	Options            []engine.Option `json:"options"`
	CorrectOptionIndex int             `json:"correct_option_index"`
}

// Validate checks the paper shape before it reaches the engine.
func (p *Paper) Validate() error {
	if p.DurationSeconds < 0 {
		return fmt.Errorf("%w: negative duration %d", ErrInvalidPaper, p.DurationSeconds)
	}
	if len(p.Questions) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPaper, engine.ErrNoQuestions)
	}
	seen := make(map[int]struct{}, len(p.Questions))
	for _, q := range p.Questions {
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %d", ErrInvalidPaper, q.ID)
		}
		seen[q.ID] = struct{}{}
		if err := q.engineQuestion().Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPaper, err)
		}
	}
	return nil
}

// EngineQuestions converts the stored rows into engine input, in order.
func (p *Paper) EngineQuestions() []engine.Question {
	out := make([]engine.Question, len(p.Questions))
	for i, q := range p.Questions {
		out[i] = q.engineQuestion()
	}
	return out
}

func (q PaperQuestion) engineQuestion() engine.Question {
	return engine.Question{
		ID:                 q.ID,
		PromptPrimary:      q.PromptPrimary,
		PromptSecondary:    q.PromptSecondary,
		Options:            q.Options,
		CorrectOptionIndex: q.CorrectOptionIndex,
	}
}

// PaperSummary is the paper metadata shown before an attempt starts.
type PaperSummary struct {
	ID                uuid.UUID            `json:"id"`
	Title             string               `json:"title"`
	DurationSeconds   int                  `json:"duration_seconds"`
	TotalQuestions    int                  `json:"total_questions"`
	MarkingScheme     engine.MarkingScheme `json:"marking_scheme"`
	PassingPercentage float64              `json:"passing_percentage"`
}

// Summary strips the questions and answer key.
func (p *Paper) Summary() PaperSummary {
	return PaperSummary{
		ID:                p.ID,
		Title:             p.Title,
		DurationSeconds:   p.DurationSeconds,
		TotalQuestions:    len(p.Questions),
		MarkingScheme:     p.MarkingScheme,
		PassingPercentage: p.PassingPercentage,
	}
}

// QuestionForCandidate is a question without its answer key.
type QuestionForCandidate struct {
	Index           int             `json:"index"`
	ID              int             `json:"id"`
	PromptPrimary   string          `json:"prompt_primary"`
	PromptSecondary string          `json:"prompt_secondary"`
	Options         []engine.Option `json:"options"`
}

// NewQuestionForCandidate hides the correct option of q.
func NewQuestionForCandidate(index int, q engine.Question) QuestionForCandidate {
	return QuestionForCandidate{
		Index:           index,
		ID:              q.ID,
		PromptPrimary:   q.PromptPrimary,
		PromptSecondary: q.PromptSecondary,
		Options:         q.Options,
	}
}
