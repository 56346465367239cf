package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/prepexam/internal/cache"
	"github.com/stemsi/prepexam/internal/engine"
	"github.com/stemsi/prepexam/internal/model"
)

var nopLog = zerolog.Nop()

var testScheme = engine.MarkingScheme{Correct: 1, Incorrect: -0.25, Unattempted: 0}

// manualClock ticks only when the test says so.
type manualClock struct {
	mu  sync.Mutex
	fns []func()
}

func (m *manualClock) Every(_ time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fns = append(m.fns, fn)
	i := len(m.fns) - 1
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.fns[i] = nil
	}
}

func (m *manualClock) advance(seconds int) {
	for s := 0; s < seconds; s++ {
		m.mu.Lock()
		fns := append([]func(){}, m.fns...)
		m.mu.Unlock()
		for _, fn := range fns {
			if fn != nil {
				fn()
			}
		}
	}
}

func testPaper() *model.Paper {
	opts := []engine.Option{{Primary: "A"}, {Primary: "B"}, {Primary: "C"}, {Primary: "D"}}
	return &model.Paper{
		ID:                uuid.New(),
		Title:             "Reasoning Set 1",
		DurationSeconds:   60,
		MarkingScheme:     testScheme,
		PassingPercentage: 40,
		Questions: []model.PaperQuestion{
			{ID: 11, OrderNum: 1, PromptPrimary: "q1", Options: opts, CorrectOptionIndex: 0},
			{ID: 12, OrderNum: 2, PromptPrimary: "q2", Options: opts, CorrectOptionIndex: 1},
			{ID: 13, OrderNum: 3, PromptPrimary: "q3", Options: opts, CorrectOptionIndex: 2},
			{ID: 14, OrderNum: 4, PromptPrimary: "q4", Options: opts, CorrectOptionIndex: 3},
		},
	}
}

type fakePaperStore struct {
	papers map[uuid.UUID]*model.Paper
	calls  int
}

func (f *fakePaperStore) GetByID(_ context.Context, id uuid.UUID) (*model.Paper, error) {
	f.calls++
	p, ok := f.papers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

// Load lets the store stand in for a PaperLoader.
func (f *fakePaperStore) Load(ctx context.Context, id uuid.UUID) (*model.Paper, error) {
	p, err := f.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPaperNotFound
	}
	return p, err
}

type fakePaperCache struct {
	entries map[uuid.UUID]*model.Paper
	err     error
}

func newFakePaperCache() *fakePaperCache {
	return &fakePaperCache{entries: make(map[uuid.UUID]*model.Paper)}
}

func (f *fakePaperCache) Prefetch(_ context.Context, p *model.Paper, _ time.Duration) error {
	if f.err != nil {
		return f.err
	}
	cp := *p
	f.entries[p.ID] = &cp
	return nil
}

func (f *fakePaperCache) Take(_ context.Context, id uuid.UUID) (*model.Paper, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.entries[id]
	if !ok {
		return nil, cache.ErrMiss
	}
	delete(f.entries, id)
	return p, nil
}

func (f *fakePaperCache) Invalidate(_ context.Context, id uuid.UUID) error {
	delete(f.entries, id)
	return nil
}

type fakeAttemptStore struct {
	mu      sync.Mutex
	created []model.Attempt
	err     error
}

func (f *fakeAttemptStore) Create(_ context.Context, a *model.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	a.StartedAt = time.Now().UTC()
	f.created = append(f.created, *a)
	return nil
}

func (f *fakeAttemptStore) ListByUser(_ context.Context, userID, limit, offset int) ([]model.Attempt, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var mine []model.Attempt
	for _, a := range f.created {
		if a.UserID == userID {
			mine = append(mine, a)
		}
	}
	total := len(mine)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return mine[offset:end], total, nil
}

type fakeAnswerQueue struct {
	mu      sync.Mutex
	changes []model.AnswerChange
	err     error
}

func (f *fakeAnswerQueue) Enqueue(_ context.Context, c model.AnswerChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.changes = append(f.changes, c)
	return nil
}

func (f *fakeAnswerQueue) last() model.AnswerChange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.changes[len(f.changes)-1]
}

type fakeSink struct {
	mu       sync.Mutex
	payloads []*engine.SubmissionPayload
	err      error
}

func (f *fakeSink) Persist(_ context.Context, p *engine.SubmissionPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, p)
	return f.err
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

type fakeEvents struct {
	mu     sync.Mutex
	events []model.AttemptEvent
}

func (f *fakeEvents) Publish(_ context.Context, _ uuid.UUID, ev model.AttemptEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeEvents) ofType(t model.AttemptEventType) []model.AttemptEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AttemptEvent
	for _, ev := range f.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type attemptFixture struct {
	svc      *AttemptService
	paper    *model.Paper
	clock    *manualClock
	attempts *fakeAttemptStore
	answers  *fakeAnswerQueue
	sink     *fakeSink
	events   *fakeEvents
}

func newAttemptFixture() *attemptFixture {
	paper := testPaper()
	f := &attemptFixture{
		paper:    paper,
		clock:    &manualClock{},
		attempts: &fakeAttemptStore{},
		answers:  &fakeAnswerQueue{},
		sink:     &fakeSink{},
		events:   &fakeEvents{},
	}
	store := &fakePaperStore{papers: map[uuid.UUID]*model.Paper{paper.ID: paper}}
	f.svc = NewAttemptService(store, f.attempts, f.answers, f.sink, f.events, AttemptServiceConfig{
		PersistTimeout: time.Second,
		Scheduler:      f.clock,
	}, nopLog)
	return f
}

func (f *attemptFixture) start(t *testing.T, userID int, mode engine.Mode) uuid.UUID {
	t.Helper()
	v, err := f.svc.Start(context.Background(), userID, f.paper.ID, mode)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return v.AttemptID
}
