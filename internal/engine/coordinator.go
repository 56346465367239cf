package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// EndReason records what closed the session.
type EndReason string

const (
	EndReasonManual  EndReason = "manual"
	EndReasonTimeout EndReason = "timeout"
)

// ResultSink receives the finished submission. It is usually a network or
// queue write.
type ResultSink interface {
	Persist(ctx context.Context, p *SubmissionPayload) error
}

// NavigationGuard is implemented by the host to intercept leave/reload
// attempts while a session is in progress.
type NavigationGuard interface {
	GuardNavigation(enable bool)
}

// AnswerRecord is one question in a submission payload.
type AnswerRecord struct {
	QuestionID     int  `json:"question_id"`
	SelectedOption int  `json:"selected_option"`
	IsFlagged      bool `json:"is_flagged"`
}

// SubmissionMeta identifies the attempt being submitted.
type SubmissionMeta struct {
	AttemptID string `json:"attempt_id"`
	PaperID   string `json:"paper_id"`
	UserID    int    `json:"user_id"`
}

// SubmissionPayload is handed to the ResultSink.
type SubmissionPayload struct {
	SubmissionMeta
	Mode          Mode           `json:"mode"`
	EndReason     EndReason      `json:"end_reason"`
	Answers       []AnswerRecord `json:"answers"`
	AnsweredCount int            `json:"answered_count"`
	SkippedCount  int            `json:"skipped_count"`
	MarkedCount   int            `json:"marked_count"`
	Result        *Result        `json:"result"`
	SubmittedAt   time.Time      `json:"submitted_at"`
}

// CoordinatorConfig wires a Coordinator to its collaborators. Sink and Guard
// may be nil.
type CoordinatorConfig struct {
	Scheme         MarkingScheme
	Sink           ResultSink
	Guard          NavigationGuard
	Meta           SubmissionMeta
	PersistTimeout time.Duration
	Log            zerolog.Logger
}

// Coordinator drives a Session from start to a scored, persisted Result.
type Coordinator struct {
	session *Session
	cfg     CoordinatorConfig
	log     zerolog.Logger

	done       chan struct{}
	result     *Result
	reason     EndReason
	err        error
	persistErr error
}

// NewCoordinator validates the marking scheme and binds it to session.
func NewCoordinator(session *Session, cfg CoordinatorConfig) (*Coordinator, error) {
	if err := cfg.Scheme.Validate(); err != nil {
		return nil, err
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 10 * time.Second
	}
	return &Coordinator{
		session: session,
		cfg:     cfg,
		log: cfg.Log.With().
			Str("component", "coordinator").
			Str("attempt_id", cfg.Meta.AttemptID).
			Logger(),
		done: make(chan struct{}),
	}, nil
}

// Session returns the coordinated session.
func (c *Coordinator) Session() *Session {
	return c.session
}

// Start arms the navigation guard and begins the session.
func (c *Coordinator) Start(mode Mode) error {
	// Armed before the timer starts so an instant expiry disarms it last.
	c.guard(true)
	if err := c.session.Begin(mode, c.expire); err != nil {
		c.guard(false)
		return err
	}
	c.log.Info().
		Str("mode", string(mode)).
		Int("questions", len(c.session.Questions())).
		Int("duration_seconds", c.session.duration).
		Msg("Session started")
	return nil
}

// Submit is the user-confirmed submission. A call that loses the race with
// another submission (or with expiry) waits for it and returns its Result.
func (c *Coordinator) Submit(ctx context.Context) (*Result, error) {
	return c.submit(ctx, EndReasonManual)
}

// Done is closed once submission has finished, successfully or not.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Result returns the final result, nil until submission completes.
func (c *Coordinator) Result() *Result {
	select {
	case <-c.done:
		return c.result
	default:
		return nil
	}
}

// Reason returns why the session ended, empty until it has.
func (c *Coordinator) Reason() EndReason {
	select {
	case <-c.done:
		return c.reason
	default:
		return ""
	}
}

// PersistErr reports a sink failure. The Result is still authoritative.
func (c *Coordinator) PersistErr() error {
	select {
	case <-c.done:
		return c.persistErr
	default:
		return nil
	}
}

func (c *Coordinator) expire() {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PersistTimeout)
	defer cancel()

	if _, err := c.submit(ctx, EndReasonTimeout); err != nil {
		c.log.Error().Err(err).Msg("Submission on expiry failed")
	}
}

func (c *Coordinator) submit(ctx context.Context, reason EndReason) (*Result, error) {
	if !c.session.beginSubmit() {
		if c.session.Phase() == PhaseNotStarted {
			return nil, fmt.Errorf("%w: submit before start", ErrInvalidModeOperation)
		}
		select {
		case <-c.done:
			return c.result, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	defer close(c.done)

	c.session.timer.Stop()
	c.guard(false)
	c.reason = reason

	answers := c.session.Answers()
	marked := c.session.Marked()

	res, err := Score(c.session.questions, answers, c.cfg.Scheme)
	if err != nil {
		// Corrupted session: stay in submitting so nothing reads a bogus result.
		c.err = err
		c.log.Error().Err(err).Msg("Scoring precondition violated")
		return nil, err
	}
	c.result = res

	if c.cfg.Sink != nil {
		payload := c.payload(answers, marked, res, reason)
		if err := c.cfg.Sink.Persist(ctx, payload); err != nil {
			c.persistErr = fmt.Errorf("%w: %v", ErrPersistence, err)
			c.log.Warn().Err(err).Msg("Result persistence failed, keeping local result")
		}
	}

	c.session.complete()

	c.log.Info().
		Str("reason", string(reason)).
		Float64("raw_score", res.RawScore).
		Float64("percentage", res.Percentage).
		Int("correct", res.CorrectCount).
		Int("wrong", res.WrongCount).
		Int("skipped", res.SkippedCount).
		Msg("Session submitted and graded")

	return res, nil
}

func (c *Coordinator) payload(answers []int, marked []bool, res *Result, reason EndReason) *SubmissionPayload {
	qs := c.session.questions
	records := make([]AnswerRecord, len(qs))
	for i, q := range qs {
		records[i] = AnswerRecord{
			QuestionID:     q.ID,
			SelectedOption: answers[i],
			IsFlagged:      marked[i],
		}
	}
	return &SubmissionPayload{
		SubmissionMeta: c.cfg.Meta,
		Mode:           c.session.Mode(),
		EndReason:      reason,
		Answers:        records,
		AnsweredCount:  res.CorrectCount + res.WrongCount,
		SkippedCount:   res.SkippedCount,
		MarkedCount:    countTrue(marked),
		Result:         res,
		SubmittedAt:    time.Now().UTC(),
	}
}

func (c *Coordinator) guard(enable bool) {
	if c.cfg.Guard != nil {
		c.cfg.Guard.GuardNavigation(enable)
	}
}
