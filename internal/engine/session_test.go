package engine

import (
	"errors"
	"testing"
)

func TestNewSessionValidatesQuestions(t *testing.T) {
	good := fiveQuestions()

	tests := []struct {
		name      string
		questions []Question
		want      error
	}{
		{"empty", nil, ErrNoQuestions},
		{"one option", []Question{{ID: 1, Options: []Option{{Primary: "A"}}}}, ErrInvalidQuestion},
		{"key out of range", []Question{{ID: 1, Options: good[0].Options, CorrectOptionIndex: 4}}, ErrInvalidQuestion},
		{"ok", good, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSession(tt.questions, 60, &manualClock{})
			if !errors.Is(err, tt.want) {
				t.Errorf("NewSession() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBeginInitialisesState(t *testing.T) {
	s, _ := NewSession(fiveQuestions(), 90, &manualClock{})

	if err := s.SelectAnswer(0); !errors.Is(err, ErrInvalidModeOperation) {
		t.Fatalf("SelectAnswer before Begin error = %v", err)
	}
	if err := s.Begin(Mode("quiz"), nil); !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("Begin(quiz) error = %v", err)
	}
	if err := s.Begin(ModeExam, nil); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := s.Begin(ModePractice, nil); !errors.Is(err, ErrInvalidModeOperation) {
		t.Fatalf("second Begin error = %v", err)
	}

	p := s.Progress()
	if p.Phase != PhaseInProgress || p.Mode != ModeExam {
		t.Errorf("phase/mode = %s/%s", p.Phase, p.Mode)
	}
	if p.CurrentIndex != 0 || p.VisitedCount != 1 || p.Visited[0] != 0 {
		t.Errorf("unexpected position: %+v", p)
	}
	if len(p.Answers) != 5 || len(p.Marked) != 5 || len(p.Locked) != 5 {
		t.Fatalf("array lengths = %d/%d/%d, want 5", len(p.Answers), len(p.Marked), len(p.Locked))
	}
	for i, a := range p.Answers {
		if a != NoAnswer {
			t.Errorf("answers[%d] = %d, want NoAnswer", i, a)
		}
	}
	if p.TimeRemainingSeconds != 90 {
		t.Errorf("TimeRemainingSeconds = %d, want 90", p.TimeRemainingSeconds)
	}
	if p.SkippedCount != 5 || p.AnsweredCount != 0 {
		t.Errorf("answered/skipped = %d/%d", p.AnsweredCount, p.SkippedCount)
	}
}

func TestExamModeToggle(t *testing.T) {
	for x := 0; x < 4; x++ {
		s := startedSession(ModeExam, &manualClock{})

		if err := s.SelectAnswer(x); err != nil {
			t.Fatalf("SelectAnswer(%d) error = %v", x, err)
		}
		if got := s.Answers()[0]; got != x {
			t.Fatalf("answers[0] = %d, want %d", got, x)
		}
		if err := s.SelectAnswer(x); err != nil {
			t.Fatalf("second SelectAnswer(%d) error = %v", x, err)
		}
		if got := s.Answers()[0]; got != NoAnswer {
			t.Errorf("toggle: answers[0] = %d, want NoAnswer", got)
		}
	}
}

func TestExamModeReplace(t *testing.T) {
	s := startedSession(ModeExam, &manualClock{})
	_ = s.SelectAnswer(1)
	_ = s.SelectAnswer(3)
	if got := s.Answers()[0]; got != 3 {
		t.Errorf("answers[0] = %d, want 3", got)
	}
	if _, ok := s.CorrectOption(0); ok {
		t.Error("exam mode revealed the key before completion")
	}
}

func TestPracticeModeLock(t *testing.T) {
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			if x == y {
				continue
			}
			s := startedSession(ModePractice, &manualClock{})

			if _, ok := s.CorrectOption(0); ok {
				t.Fatal("key revealed before selection")
			}
			if err := s.SelectAnswer(x); err != nil {
				t.Fatalf("SelectAnswer(%d) error = %v", x, err)
			}
			if err := s.SelectAnswer(y); !errors.Is(err, ErrInvalidModeOperation) {
				t.Errorf("SelectAnswer(%d) on locked error = %v", y, err)
			}
			if got := s.Answers()[0]; got != x {
				t.Errorf("x=%d y=%d: answers[0] = %d", x, y, got)
			}
			key, ok := s.CorrectOption(0)
			if !ok || key != 0 {
				t.Errorf("CorrectOption(0) = %d, %v; want 0, true", key, ok)
			}
		}
	}
}

func TestPracticeLockSurvivesNavigation(t *testing.T) {
	s := startedSession(ModePractice, &manualClock{})
	_ = s.SelectAnswer(2)
	_, _ = s.Next()
	_ = s.Previous()
	_ = s.SelectAnswer(1)
	if got := s.Answers()[0]; got != 2 {
		t.Errorf("answers[0] = %d, want 2", got)
	}
}

func TestMarkIsOrthogonalToLock(t *testing.T) {
	s := startedSession(ModePractice, &manualClock{})
	_ = s.SelectAnswer(0)
	if err := s.ToggleMark(); err != nil {
		t.Fatalf("ToggleMark on locked question error = %v", err)
	}
	if s.MarkedCount() != 1 || s.AnsweredCount() != 1 {
		t.Errorf("marked/answered = %d/%d, want 1/1", s.MarkedCount(), s.AnsweredCount())
	}
	_ = s.ToggleMark()
	if s.MarkedCount() != 0 {
		t.Errorf("MarkedCount() after second toggle = %d", s.MarkedCount())
	}
}

func TestNavigationBoundaries(t *testing.T) {
	s := startedSession(ModeExam, &manualClock{})

	if err := s.Previous(); err != nil {
		t.Fatalf("Previous at 0 error = %v", err)
	}
	if s.CurrentIndex() != 0 {
		t.Fatalf("Previous at 0 moved to %d", s.CurrentIndex())
	}

	for _, idx := range []int{-1, 5, 42} {
		if err := s.JumpTo(idx); !errors.Is(err, ErrInvalidIndex) {
			t.Errorf("JumpTo(%d) error = %v, want ErrInvalidIndex", idx, err)
		}
	}
	if s.CurrentIndex() != 0 || s.VisitedCount() != 1 {
		t.Errorf("rejected jump changed state: index=%d visited=%d", s.CurrentIndex(), s.VisitedCount())
	}

	if err := s.JumpTo(4); err != nil {
		t.Fatalf("JumpTo(4) error = %v", err)
	}
	submit, err := s.Next()
	if err != nil || !submit {
		t.Fatalf("Next on last = %v, %v; want true, nil", submit, err)
	}
	if s.CurrentIndex() != 4 {
		t.Errorf("Next on last moved to %d", s.CurrentIndex())
	}
	if s.Phase() != PhaseInProgress {
		t.Errorf("Next on last changed phase to %s", s.Phase())
	}
}

func TestNavigationKeepsAnswers(t *testing.T) {
	tests := []struct {
		i, j, k int
	}{
		{0, 4, 2},
		{3, 1, 0},
		{4, 0, 3},
		{2, 2, 1},
	}

	for _, tt := range tests {
		s := startedSession(ModeExam, &manualClock{})
		_ = s.JumpTo(tt.i)
		_ = s.SelectAnswer(tt.k)
		_ = s.JumpTo(tt.j)
		_ = s.JumpTo(tt.i)
		if got := s.Answers()[tt.i]; got != tt.k {
			t.Errorf("round trip %+v: answers[%d] = %d", tt, tt.i, got)
		}
	}

	s := startedSession(ModeExam, &manualClock{})
	_ = s.SelectAnswer(1)
	_, _ = s.Next()
	_ = s.SelectAnswer(2)
	_ = s.Previous()
	_, _ = s.Next()
	got := s.Answers()
	if got[0] != 1 || got[1] != 2 {
		t.Errorf("answers after next/previous = %v", got)
	}
	if s.VisitedCount() != 2 {
		t.Errorf("VisitedCount() = %d, want 2", s.VisitedCount())
	}
}

func TestDerivedCounts(t *testing.T) {
	s := startedSession(ModeExam, &manualClock{})
	_ = s.SelectAnswer(0)
	_ = s.ToggleMark()
	_ = s.JumpTo(2)
	_ = s.SelectAnswer(1)
	_ = s.JumpTo(3)
	_ = s.ToggleMark()

	if got := s.AnsweredCount(); got != 2 {
		t.Errorf("AnsweredCount() = %d, want 2", got)
	}
	if got := s.SkippedCount(); got != 3 {
		t.Errorf("SkippedCount() = %d, want 3", got)
	}
	if got := s.MarkedCount(); got != 2 {
		t.Errorf("MarkedCount() = %d, want 2", got)
	}
	if got := s.VisitedCount(); got != 3 {
		t.Errorf("VisitedCount() = %d, want 3", got)
	}
}

func TestOperationsRejectedAfterSubmit(t *testing.T) {
	s := startedSession(ModeExam, &manualClock{})
	_ = s.SelectAnswer(0)
	if !s.beginSubmit() {
		t.Fatal("beginSubmit() = false")
	}
	if s.beginSubmit() {
		t.Fatal("second beginSubmit() = true")
	}

	ops := map[string]func() error{
		"select":   func() error { return s.SelectAnswer(1) },
		"previous": s.Previous,
		"jump":     func() error { return s.JumpTo(1) },
		"mark":     s.ToggleMark,
		"next": func() error {
			_, err := s.Next()
			return err
		},
	}
	for name, op := range ops {
		if err := op(); !errors.Is(err, ErrInvalidModeOperation) {
			t.Errorf("%s after submit error = %v", name, err)
		}
	}
	if got := s.Answers()[0]; got != 0 {
		t.Errorf("answers[0] = %d, want 0", got)
	}
}

func TestSelectAnswerRejectsUnknownOption(t *testing.T) {
	s := startedSession(ModeExam, &manualClock{})
	for _, opt := range []int{-1, 4} {
		if err := s.SelectAnswer(opt); !errors.Is(err, ErrInvalidOption) {
			t.Errorf("SelectAnswer(%d) error = %v", opt, err)
		}
	}
	if s.AnsweredCount() != 0 {
		t.Error("invalid option was recorded")
	}
}
