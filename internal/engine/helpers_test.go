package engine

import (
	"context"
	"errors"
	"sync"
	"time"
)

// manualClock is a Scheduler the test advances by hand.
type manualClock struct {
	mu        sync.Mutex
	fn        func()
	cancelled bool
}

func (m *manualClock) Every(_ time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = fn
	m.cancelled = false
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.cancelled = true
	}
}

func (m *manualClock) advance(seconds int) {
	for i := 0; i < seconds; i++ {
		m.mu.Lock()
		fn, cancelled := m.fn, m.cancelled
		m.mu.Unlock()
		if fn == nil || cancelled {
			return
		}
		fn()
	}
}

type recordingSink struct {
	mu       sync.Mutex
	payloads []*SubmissionPayload
	err      error
}

func (s *recordingSink) Persist(_ context.Context, p *SubmissionPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, p)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

type recordingGuard struct {
	mu    sync.Mutex
	calls []bool
}

func (g *recordingGuard) GuardNavigation(enable bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, enable)
}

func (g *recordingGuard) armed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls) > 0 && g.calls[len(g.calls)-1]
}

var errSinkDown = errors.New("sink down")

// fiveQuestions has correct answers 0,1,2,3,0 with four options each.
func fiveQuestions() []Question {
	keys := []int{0, 1, 2, 3, 0}
	qs := make([]Question, len(keys))
	for i, k := range keys {
		qs[i] = Question{
			ID:                 100 + i,
			PromptPrimary:      "Question",
			PromptSecondary:    "Pertanyaan",
			Options:            []Option{{Primary: "A"}, {Primary: "B"}, {Primary: "C"}, {Primary: "D"}},
			CorrectOptionIndex: k,
		}
	}
	return qs
}

var negativeMarking = MarkingScheme{Correct: 1, Incorrect: -1.0 / 3.0, Unattempted: 0}

func startedSession(mode Mode, clock *manualClock) *Session {
	s, err := NewSession(fiveQuestions(), 60, clock)
	if err != nil {
		panic(err)
	}
	if err := s.Begin(mode, nil); err != nil {
		panic(err)
	}
	return s
}
