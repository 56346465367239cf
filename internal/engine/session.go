package engine

import (
	"fmt"
	"sort"
	"sync"
)

// NoAnswer marks an unanswered question.
const NoAnswer = -1

// Mode is chosen once before a session starts.
type Mode string

const (
	ModeExam     Mode = "exam"
	ModePractice Mode = "practice"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeExam, ModePractice:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Phase only moves forward.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseInProgress Phase = "in_progress"
	PhaseSubmitting Phase = "submitting"
	PhaseCompleted  Phase = "completed"
)

// Option is one bilingual answer choice.
type Option struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// Question is read-only input owned by the caller.
type Question struct {
	ID                 int      `json:"id"`
	PromptPrimary      string   `json:"prompt_primary"`
	PromptSecondary    string   `json:"prompt_secondary"`
	Options            []Option `json:"options"`
	CorrectOptionIndex int      `json:"correct_option_index"`
}

// Validate checks the question shape.
func (q Question) Validate() error {
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: question %d has %d options", ErrInvalidQuestion, q.ID, len(q.Options))
	}
	if q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= len(q.Options) {
		return fmt.Errorf("%w: question %d correct option %d", ErrInvalidQuestion, q.ID, q.CorrectOptionIndex)
	}
	return nil
}

// Progress is a read-only snapshot for a question palette.
type Progress struct {
	Phase                Phase  `json:"phase"`
	Mode                 Mode   `json:"mode,omitempty"`
	CurrentIndex         int    `json:"current_index"`
	TotalQuestions       int    `json:"total_questions"`
	AnsweredCount        int    `json:"answered_count"`
	SkippedCount         int    `json:"skipped_count"`
	MarkedCount          int    `json:"marked_count"`
	VisitedCount         int    `json:"visited_count"`
	TimeRemainingSeconds int    `json:"time_remaining_seconds"`
	Answers              []int  `json:"answers"`
	Marked               []bool `json:"marked"`
	Locked               []bool `json:"locked"`
	Visited              []int  `json:"visited"`
}

// Session is the navigation and answer-tracking state machine for one
// attempt. It is safe for concurrent use because the timer ticks on its own
// goroutine.
type Session struct {
	mu sync.Mutex

	questions []Question
	duration  int
	timer     *Timer

	phase   Phase
	mode    Mode
	current int
	answers []int
	marked  []bool
	locked  []bool
	visited map[int]struct{}
}

// NewSession validates questions and returns a not-started session.
func NewSession(questions []Question, durationSeconds int, sched Scheduler) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, err
		}
	}

	qs := make([]Question, len(questions))
	copy(qs, questions)

	return &Session{
		questions: qs,
		duration:  durationSeconds,
		timer:     NewTimer(sched),
		phase:     PhaseNotStarted,
		visited:   make(map[int]struct{}),
	}, nil
}

// Begin moves not-started → in-progress and starts the countdown.
func (s *Session) Begin(mode Mode, onExpire func()) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}

	s.mu.Lock()
	if s.phase != PhaseNotStarted {
		s.mu.Unlock()
		return fmt.Errorf("%w: begin in phase %s", ErrInvalidModeOperation, s.phase)
	}

	n := len(s.questions)
	s.mode = mode
	s.answers = make([]int, n)
	for i := range s.answers {
		s.answers[i] = NoAnswer
	}
	s.marked = make([]bool, n)
	s.locked = make([]bool, n)
	s.current = 0
	s.visited[0] = struct{}{}
	s.phase = PhaseInProgress
	s.mu.Unlock()

	// Started outside the lock: a zero duration may expire synchronously
	// with a scheduler that ticks immediately.
	s.timer.Start(s.duration, onExpire)
	return nil
}

// SelectAnswer records option for the current question.
//
// Exam mode toggles: picking the selected option clears it, any other option
// replaces it. Practice mode sets and locks on first pick; later picks on a
// locked question are rejected.
func (s *Session) SelectAnswer(option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseInProgress {
		return fmt.Errorf("%w: select in phase %s", ErrInvalidModeOperation, s.phase)
	}
	q := s.questions[s.current]
	if option < 0 || option >= len(q.Options) {
		return fmt.Errorf("%w: %d", ErrInvalidOption, option)
	}

	i := s.current
	switch s.mode {
	case ModePractice:
		if s.locked[i] {
			return fmt.Errorf("%w: question %d is locked", ErrInvalidModeOperation, i)
		}
		s.answers[i] = option
		s.locked[i] = true
	default:
		if s.answers[i] == option {
			s.answers[i] = NoAnswer
		} else {
			s.answers[i] = option
		}
	}
	return nil
}

// Next moves forward one question. On the last question it does not move
// and reports submitRequested so the caller can ask for confirmation.
func (s *Session) Next() (submitRequested bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseInProgress {
		return false, fmt.Errorf("%w: next in phase %s", ErrInvalidModeOperation, s.phase)
	}
	if s.current == len(s.questions)-1 {
		return true, nil
	}
	s.moveTo(s.current + 1)
	return false, nil
}

// Previous moves back one question. It is a no-op on the first question.
func (s *Session) Previous() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseInProgress {
		return fmt.Errorf("%w: previous in phase %s", ErrInvalidModeOperation, s.phase)
	}
	if s.current == 0 {
		return nil
	}
	s.moveTo(s.current - 1)
	return nil
}

// JumpTo moves to index.
func (s *Session) JumpTo(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseInProgress {
		return fmt.Errorf("%w: jump in phase %s", ErrInvalidModeOperation, s.phase)
	}
	if index < 0 || index >= len(s.questions) {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	s.moveTo(index)
	return nil
}

// ToggleMark flips the review flag on the current question. Marking ignores
// the practice lock.
func (s *Session) ToggleMark() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseInProgress {
		return fmt.Errorf("%w: mark in phase %s", ErrInvalidModeOperation, s.phase)
	}
	s.marked[s.current] = !s.marked[s.current]
	return nil
}

// moveTo must be called with mu held. Answers are written through on
// selection, so there is nothing pending to save here.
func (s *Session) moveTo(index int) {
	s.current = index
	s.visited[index] = struct{}{}
}

// CorrectOption reveals the key for index once it is locked in practice mode
// or the session has completed.
func (s *Session) CorrectOption(index int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.questions) {
		return 0, false
	}
	revealed := s.phase == PhaseCompleted ||
		(s.mode == ModePractice && s.locked != nil && s.locked[index])
	if !revealed {
		return 0, false
	}
	return s.questions[index].CorrectOptionIndex, true
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Mode returns the chosen mode, empty before Begin.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// CurrentIndex returns the displayed question index.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Questions returns the question list. The slice must not be modified.
func (s *Session) Questions() []Question {
	return s.questions
}

// Question returns the question at index.
func (s *Session) Question(index int) (Question, error) {
	if index < 0 || index >= len(s.questions) {
		return Question{}, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	return s.questions[index], nil
}

// TimeRemaining returns the seconds left.
func (s *Session) TimeRemaining() int {
	return s.timer.Remaining()
}

// AnsweredCount counts questions with a selected option.
func (s *Session) AnsweredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answeredLocked()
}

// SkippedCount counts questions without a selected option.
func (s *Session) SkippedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.questions) - s.answeredLocked()
}

// MarkedCount counts questions flagged for review.
func (s *Session) MarkedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return countTrue(s.marked)
}

// VisitedCount counts distinct questions displayed so far.
func (s *Session) VisitedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visited)
}

// Answers returns a copy of the answer array.
func (s *Session) Answers() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answersLocked()
}

// Marked returns a copy of the review flags.
func (s *Session) Marked() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markedLocked()
}

// Progress returns a consistent snapshot of the whole state.
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	answered := s.answeredLocked()
	visited := make([]int, 0, len(s.visited))
	for i := range s.visited {
		visited = append(visited, i)
	}
	sort.Ints(visited)

	p := Progress{
		Phase:                s.phase,
		Mode:                 s.mode,
		CurrentIndex:         s.current,
		TotalQuestions:       len(s.questions),
		AnsweredCount:        answered,
		SkippedCount:         len(s.questions) - answered,
		MarkedCount:          countTrue(s.marked),
		VisitedCount:         len(visited),
		TimeRemainingSeconds: s.timer.Remaining(),
		Answers:              s.answersLocked(),
		Marked:               s.markedLocked(),
		Visited:              visited,
	}
	if s.locked != nil {
		p.Locked = append([]bool(nil), s.locked...)
	}
	return p
}

// beginSubmit is the guarded in-progress → submitting transition. Only the
// first caller gets true.
func (s *Session) beginSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseInProgress {
		return false
	}
	s.phase = PhaseSubmitting
	return true
}

func (s *Session) complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseSubmitting {
		s.phase = PhaseCompleted
	}
}

func (s *Session) answeredLocked() int {
	n := 0
	for _, a := range s.answers {
		if a != NoAnswer {
			n++
		}
	}
	return n
}

func (s *Session) answersLocked() []int {
	if s.answers == nil {
		return nil
	}
	return append([]int(nil), s.answers...)
}

func (s *Session) markedLocked() []bool {
	if s.marked == nil {
		return nil
	}
	return append([]bool(nil), s.marked...)
}

func countTrue(bs []bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}
