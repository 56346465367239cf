package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/prepexam/internal/engine"
	"github.com/stemsi/prepexam/internal/model"
	"github.com/stemsi/prepexam/internal/response"
)

// PaperLoader supplies the paper for a new attempt.
type PaperLoader interface {
	Load(ctx context.Context, id uuid.UUID) (*model.Paper, error)
}

// AttemptStore records attempts in PostgreSQL.
type AttemptStore interface {
	Create(ctx context.Context, a *model.Attempt) error
	ListByUser(ctx context.Context, userID, limit, offset int) ([]model.Attempt, int, error)
}

// AnswerQueue receives in-progress answer changes for autosave.
type AnswerQueue interface {
	Enqueue(ctx context.Context, change model.AnswerChange) error
}

// EventPublisher broadcasts attempt lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, attemptID uuid.UUID, ev model.AttemptEvent) error
}

// AttemptServiceConfig tunes the attempt registry.
type AttemptServiceConfig struct {
	// Retention keeps completed attempts in memory for review. Zero keeps
	// them until the process exits.
	Retention      time.Duration
	PersistTimeout time.Duration
	// Scheduler drives every attempt's countdown; nil uses the wall clock.
	Scheduler engine.Scheduler
}

// AttemptService owns the live attempts on this instance: one engine
// coordinator per attempt, reachable only by the user who started it.
type AttemptService struct {
	papers   PaperLoader
	attempts AttemptStore
	answers  AnswerQueue
	sink     engine.ResultSink
	events   EventPublisher
	cfg      AttemptServiceConfig
	log      zerolog.Logger

	mu   sync.RWMutex
	live map[uuid.UUID]*liveAttempt
}

type liveAttempt struct {
	id     uuid.UUID
	userID int
	paper  *model.Paper
	coord  *engine.Coordinator

	// mu serialises actions so the autosave record matches the question
	// the action applied to.
	mu       sync.Mutex
	reviewer *engine.Reviewer
}

// NewAttemptService creates a new AttemptService. answers and events may be nil.
func NewAttemptService(
	papers PaperLoader,
	attempts AttemptStore,
	answers AnswerQueue,
	sink engine.ResultSink,
	events EventPublisher,
	cfg AttemptServiceConfig,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		papers:   papers,
		attempts: attempts,
		answers:  answers,
		sink:     sink,
		events:   events,
		cfg:      cfg,
		log:      log.With().Str("component", "attempt_service").Logger(),
		live:     make(map[uuid.UUID]*liveAttempt),
	}
}

// Start loads the paper, records the attempt and begins the countdown.
func (s *AttemptService) Start(ctx context.Context, userID int, paperID uuid.UUID, mode engine.Mode) (*model.AttemptView, error) {
	if _, err := engine.ParseMode(string(mode)); err != nil {
		return nil, err
	}

	paper, err := s.papers.Load(ctx, paperID)
	if err != nil {
		return nil, err
	}

	session, err := engine.NewSession(paper.EngineQuestions(), paper.DurationSeconds, s.cfg.Scheduler)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidPaper, err)
	}

	attempt := &model.Attempt{
		ID:      uuid.New(),
		PaperID: paper.ID,
		UserID:  userID,
		Mode:    mode,
		Status:  model.AttemptStatusInProgress,
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	coord, err := engine.NewCoordinator(session, engine.CoordinatorConfig{
		Scheme: paper.MarkingScheme,
		Sink:   s.sink,
		Guard:  &eventGuard{attemptID: attempt.ID, events: s.events, log: s.log},
		Meta: engine.SubmissionMeta{
			AttemptID: attempt.ID.String(),
			PaperID:   paper.ID.String(),
			UserID:    userID,
		},
		PersistTimeout: s.cfg.PersistTimeout,
		Log:            s.log,
	})
	if err != nil {
		return nil, err
	}

	la := &liveAttempt{id: attempt.ID, userID: userID, paper: paper, coord: coord}
	s.mu.Lock()
	s.live[la.id] = la
	s.mu.Unlock()

	if err := coord.Start(mode); err != nil {
		s.evict(la.id)
		return nil, err
	}
	go s.watch(la)

	return s.view(la, false), nil
}

// SelectAnswer applies option to the current question.
func (s *AttemptService) SelectAnswer(ctx context.Context, userID int, id uuid.UUID, option int) (*model.AttemptView, error) {
	return s.act(ctx, userID, id, true, func(sess *engine.Session) (bool, error) {
		return false, sess.SelectAnswer(option)
	})
}

// Next moves forward. On the last question the view carries
// SubmitRequested and nothing moves.
func (s *AttemptService) Next(ctx context.Context, userID int, id uuid.UUID) (*model.AttemptView, error) {
	return s.act(ctx, userID, id, false, func(sess *engine.Session) (bool, error) {
		return sess.Next()
	})
}

// Previous moves back one question.
func (s *AttemptService) Previous(ctx context.Context, userID int, id uuid.UUID) (*model.AttemptView, error) {
	return s.act(ctx, userID, id, false, func(sess *engine.Session) (bool, error) {
		return false, sess.Previous()
	})
}

// JumpTo moves to the question at index.
func (s *AttemptService) JumpTo(ctx context.Context, userID int, id uuid.UUID, index int) (*model.AttemptView, error) {
	return s.act(ctx, userID, id, false, func(sess *engine.Session) (bool, error) {
		return false, sess.JumpTo(index)
	})
}

// ToggleMark flips the review flag on the current question.
func (s *AttemptService) ToggleMark(ctx context.Context, userID int, id uuid.UUID) (*model.AttemptView, error) {
	return s.act(ctx, userID, id, true, func(sess *engine.Session) (bool, error) {
		return false, sess.ToggleMark()
	})
}

// Progress returns the current snapshot without changing anything.
func (s *AttemptService) Progress(_ context.Context, userID int, id uuid.UUID) (*model.AttemptView, error) {
	la, err := s.get(userID, id)
	if err != nil {
		return nil, err
	}
	return s.view(la, false), nil
}

// Submit grades the attempt. Concurrent submissions and expiry resolve to a
// single result.
func (s *AttemptService) Submit(ctx context.Context, userID int, id uuid.UUID) (*model.SubmitView, error) {
	la, err := s.get(userID, id)
	if err != nil {
		return nil, err
	}
	if _, err := la.coord.Submit(ctx); err != nil {
		return nil, err
	}
	return submitView(la), nil
}

// Result returns the graded result of a completed attempt.
func (s *AttemptService) Result(_ context.Context, userID int, id uuid.UUID) (*model.SubmitView, error) {
	la, err := s.get(userID, id)
	if err != nil {
		return nil, err
	}
	if la.coord.Result() == nil {
		return nil, ErrAttemptNotCompleted
	}
	return submitView(la), nil
}

// Review returns the review navigator state.
func (s *AttemptService) Review(_ context.Context, userID int, id uuid.UUID) (*engine.ReviewState, error) {
	return s.review(userID, id, func(*engine.Reviewer) error { return nil })
}

// SetReviewFilter changes the filter; the position resets.
func (s *AttemptService) SetReviewFilter(_ context.Context, userID int, id uuid.UUID, f engine.Filter) (*engine.ReviewState, error) {
	return s.review(userID, id, func(r *engine.Reviewer) error { return r.SetFilter(f) })
}

// ReviewStep moves the review cursor one item forward or back. Stepping
// past either end leaves the cursor where it is.
func (s *AttemptService) ReviewStep(_ context.Context, userID int, id uuid.UUID, forward bool) (*engine.ReviewState, error) {
	return s.review(userID, id, func(r *engine.Reviewer) error {
		if forward {
			r.Next()
		} else {
			r.Previous()
		}
		return nil
	})
}

// ReviewJump moves to an original question index, widening the filter to
// all when the question is hidden.
func (s *AttemptService) ReviewJump(_ context.Context, userID int, id uuid.UUID, index int) (*engine.ReviewState, error) {
	return s.review(userID, id, func(r *engine.Reviewer) error { return r.JumpToOriginalIndex(index) })
}

// RevealCorrect returns the answer key for index once it may be shown.
func (s *AttemptService) RevealCorrect(_ context.Context, userID int, id uuid.UUID, index int) (int, error) {
	la, err := s.get(userID, id)
	if err != nil {
		return 0, err
	}
	if _, err := la.coord.Session().Question(index); err != nil {
		return 0, err
	}
	key, ok := la.coord.Session().CorrectOption(index)
	if !ok {
		return 0, ErrAnswerHidden
	}
	return key, nil
}

// History pages through the user's persisted attempts.
func (s *AttemptService) History(ctx context.Context, userID, page, perPage int) ([]model.Attempt, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	attempts, total, err := s.attempts.ListByUser(ctx, userID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("list attempts: %w", err)
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}
	return attempts, response.NewPagination(page, perPage, total), nil
}

// Done is closed when the attempt has been graded. It lets stream
// handlers wait without polling.
func (s *AttemptService) Done(userID int, id uuid.UUID) (<-chan struct{}, error) {
	la, err := s.get(userID, id)
	if err != nil {
		return nil, err
	}
	return la.coord.Done(), nil
}

// LiveCount reports how many attempts this instance holds in memory.
func (s *AttemptService) LiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.live)
}

// ─── internals ──────────────────────────────────────────────────────

func (s *AttemptService) get(userID int, id uuid.UUID) (*liveAttempt, error) {
	s.mu.RLock()
	la, ok := s.live[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrAttemptNotFound
	}
	if la.userID != userID {
		return nil, ErrNotAttemptOwner
	}
	return la, nil
}

// act runs op under the attempt lock and, when autosave is set, queues the
// current question's answer and flag.
func (s *AttemptService) act(ctx context.Context, userID int, id uuid.UUID, autosave bool, op func(*engine.Session) (bool, error)) (*model.AttemptView, error) {
	la, err := s.get(userID, id)
	if err != nil {
		return nil, err
	}

	la.mu.Lock()
	defer la.mu.Unlock()

	sess := la.coord.Session()
	submitRequested, err := op(sess)
	if err != nil {
		return nil, err
	}
	if autosave {
		s.autosave(ctx, la, sess)
	}
	return s.view(la, submitRequested), nil
}

func (s *AttemptService) autosave(ctx context.Context, la *liveAttempt, sess *engine.Session) {
	if s.answers == nil {
		return
	}
	p := sess.Progress()
	i := p.CurrentIndex
	change := model.AnswerChange{
		AttemptID:      la.id.String(),
		QuestionID:     la.paper.Questions[i].ID,
		SelectedOption: p.Answers[i],
		IsFlagged:      p.Marked[i],
		ChangedAt:      time.Now().UTC(),
	}
	if err := s.answers.Enqueue(ctx, change); err != nil {
		s.log.Warn().Err(err).
			Str("attempt_id", la.id.String()).
			Int("question_id", change.QuestionID).
			Msg("Autosave enqueue failed")
	}
}

func (s *AttemptService) review(userID int, id uuid.UUID, op func(*engine.Reviewer) error) (*engine.ReviewState, error) {
	la, err := s.get(userID, id)
	if err != nil {
		return nil, err
	}

	la.mu.Lock()
	defer la.mu.Unlock()

	if la.reviewer == nil {
		res := la.coord.Result()
		if res == nil {
			return nil, ErrAttemptNotCompleted
		}
		sess := la.coord.Session()
		r, err := engine.NewReviewer(sess.Questions(), res, sess.Marked())
		if err != nil {
			return nil, err
		}
		la.reviewer = r
	}

	if err := op(la.reviewer); err != nil {
		return nil, err
	}
	st := la.reviewer.State()
	return &st, nil
}

func (s *AttemptService) view(la *liveAttempt, submitRequested bool) *model.AttemptView {
	sess := la.coord.Session()
	p := sess.Progress()

	v := &model.AttemptView{
		AttemptID:       la.id,
		PaperID:         la.paper.ID,
		Title:           la.paper.Title,
		Progress:        p,
		SubmitRequested: submitRequested,
	}
	if q, err := sess.Question(p.CurrentIndex); err == nil {
		c := model.NewQuestionForCandidate(p.CurrentIndex, q)
		v.Question = &c
	}
	if key, ok := sess.CorrectOption(p.CurrentIndex); ok {
		v.RevealedAnswer = &key
	}
	return v
}

func submitView(la *liveAttempt) *model.SubmitView {
	res := la.coord.Result()
	v := &model.SubmitView{
		AttemptID: la.id,
		EndReason: la.coord.Reason(),
		Result:    res,
		Persisted: la.coord.PersistErr() == nil,
	}
	if res != nil {
		v.Passed = res.Passed(la.paper.PassingPercentage)
	}
	if err := la.coord.PersistErr(); err != nil {
		v.PersistError = err.Error()
	}
	return v
}

// watch publishes the graded event once the attempt finishes, however it
// finished, and schedules eviction.
func (s *AttemptService) watch(la *liveAttempt) {
	<-la.coord.Done()

	if la.coord.Result() == nil {
		s.log.Error().Str("attempt_id", la.id.String()).Msg("Attempt finished without a result")
	} else if s.events != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := s.events.Publish(ctx, la.id, model.AttemptEvent{
			Type:       model.AttemptEventGraded,
			AttemptID:  la.id,
			Submission: submitView(la),
			At:         time.Now().UTC(),
		})
		cancel()
		if err != nil {
			s.log.Warn().Err(err).Str("attempt_id", la.id.String()).Msg("Graded event publish failed")
		}
	}

	if s.cfg.Retention > 0 {
		time.AfterFunc(s.cfg.Retention, func() { s.evict(la.id) })
	}
}

func (s *AttemptService) evict(id uuid.UUID) {
	s.mu.Lock()
	delete(s.live, id)
	s.mu.Unlock()
	s.log.Debug().Str("attempt_id", id.String()).Msg("Attempt evicted")
}
