package engine

import (
	"errors"
	"testing"
)

func newTestReviewer(t *testing.T) *Reviewer {
	t.Helper()
	qs := fiveQuestions()
	res, err := Score(qs, []int{0, 2, NoAnswer, 3, NoAnswer}, negativeMarking)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	r, err := NewReviewer(qs, res, []bool{false, true, false, false, true})
	if err != nil {
		t.Fatalf("NewReviewer() error = %v", err)
	}
	return r
}

func TestReviewerFilters(t *testing.T) {
	r := newTestReviewer(t)

	tests := []struct {
		filter  Filter
		indices []int
	}{
		{FilterAll, []int{0, 1, 2, 3, 4}},
		{FilterCorrect, []int{0, 3}},
		{FilterWrong, []int{1}},
		{FilterSkipped, []int{2, 4}},
	}

	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			if err := r.SetFilter(tt.filter); err != nil {
				t.Fatalf("SetFilter() error = %v", err)
			}
			items := r.Items()
			if len(items) != len(tt.indices) {
				t.Fatalf("len(Items()) = %d, want %d", len(items), len(tt.indices))
			}
			for i, item := range items {
				if item.Index != tt.indices[i] {
					t.Errorf("Items()[%d].Index = %d, want %d", i, item.Index, tt.indices[i])
				}
			}
		})
	}
}

func TestReviewerWrongAndSkippedItems(t *testing.T) {
	r := newTestReviewer(t)

	_ = r.SetFilter(FilterWrong)
	wrong := r.Items()
	if len(wrong) != 1 || wrong[0].UserAnswer == wrong[0].CorrectAnswer {
		t.Errorf("wrong items = %+v", wrong)
	}
	if !wrong[0].Marked {
		t.Error("marked flag lost for question 1")
	}

	_ = r.SetFilter(FilterSkipped)
	skipped := r.Items()
	if len(skipped) != 2 {
		t.Fatalf("len(skipped) = %d, want 2", len(skipped))
	}
	for _, item := range skipped {
		if item.UserAnswer != NoAnswer {
			t.Errorf("skipped item %d has answer %d", item.Index, item.UserAnswer)
		}
	}
}

func TestReviewerFilterChangeResetsPosition(t *testing.T) {
	r := newTestReviewer(t)
	r.Next()
	r.Next()
	if r.Position() != 2 {
		t.Fatalf("Position() = %d, want 2", r.Position())
	}
	_ = r.SetFilter(FilterCorrect)
	if r.Position() != 0 {
		t.Errorf("Position() after SetFilter = %d, want 0", r.Position())
	}
	cur, ok := r.Current()
	if !ok || cur.Index != 0 {
		t.Errorf("Current() = %+v, %v", cur, ok)
	}
}

func TestReviewerNextPreviousBounds(t *testing.T) {
	r := newTestReviewer(t)
	_ = r.SetFilter(FilterSkipped)

	if r.Previous() {
		t.Error("Previous() at start = true")
	}
	if !r.Next() {
		t.Error("Next() = false with one item left")
	}
	if r.Next() {
		t.Error("Next() at end = true")
	}
	cur, _ := r.Current()
	if cur.Index != 4 {
		t.Errorf("Current().Index = %d, want 4", cur.Index)
	}
}

func TestReviewerJumpToOriginalIndex(t *testing.T) {
	r := newTestReviewer(t)

	_ = r.SetFilter(FilterSkipped)
	if err := r.JumpToOriginalIndex(4); err != nil {
		t.Fatalf("JumpToOriginalIndex(4) error = %v", err)
	}
	if r.Filter() != FilterSkipped || r.Position() != 1 {
		t.Errorf("in-filter jump: filter=%s pos=%d", r.Filter(), r.Position())
	}

	if err := r.JumpToOriginalIndex(3); err != nil {
		t.Fatalf("JumpToOriginalIndex(3) error = %v", err)
	}
	if r.Filter() != FilterAll {
		t.Errorf("filter = %s, want fallback to all", r.Filter())
	}
	cur, _ := r.Current()
	if cur.Index != 3 || r.Position() != 3 {
		t.Errorf("after fallback: index=%d pos=%d", cur.Index, r.Position())
	}

	_ = r.SetFilter(FilterWrong)
	for _, bad := range []int{-1, 5} {
		if err := r.JumpToOriginalIndex(bad); !errors.Is(err, ErrInvalidIndex) {
			t.Errorf("JumpToOriginalIndex(%d) error = %v", bad, err)
		}
	}
	if r.Filter() != FilterWrong {
		t.Errorf("rejected jump changed filter to %s", r.Filter())
	}
}

func TestReviewerEmptyFilter(t *testing.T) {
	qs := fiveQuestions()
	res, _ := Score(qs, []int{0, 1, 2, 3, 0}, negativeMarking)
	r, _ := NewReviewer(qs, res, nil)

	_ = r.SetFilter(FilterWrong)
	if _, ok := r.Current(); ok {
		t.Error("Current() ok on empty filter")
	}
	if r.Next() || r.Previous() {
		t.Error("navigation moved on empty filter")
	}
	st := r.State()
	if st.Total != 0 || st.Current != nil {
		t.Errorf("State() = %+v", st)
	}
	if st.Counts[FilterCorrect] != 5 || st.Counts[FilterWrong] != 0 {
		t.Errorf("Counts = %v", st.Counts)
	}
}

func TestReviewerRejectsUnknownFilter(t *testing.T) {
	r := newTestReviewer(t)
	if err := r.SetFilter(Filter("flagged")); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("SetFilter(flagged) error = %v", err)
	}
	if r.Filter() != FilterAll {
		t.Errorf("Filter() = %s", r.Filter())
	}
}
