package engine

import (
	"fmt"
	"sync"
)

// Filter selects which questions the review shows.
type Filter string

const (
	FilterAll     Filter = "all"
	FilterCorrect Filter = "correct"
	FilterWrong   Filter = "wrong"
	FilterSkipped Filter = "skipped"
)

// ParseFilter validates a filter string.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case FilterAll, FilterCorrect, FilterWrong, FilterSkipped:
		return Filter(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFilter, s)
	}
}

func (f Filter) matches(o Outcome) bool {
	switch f {
	case FilterAll:
		return true
	case FilterCorrect:
		return o == OutcomeCorrect
	case FilterWrong:
		return o == OutcomeWrong
	case FilterSkipped:
		return o == OutcomeSkipped
	}
	return false
}

// ReviewItem is one question as recorded in a finished session.
type ReviewItem struct {
	Index         int      `json:"index"`
	Question      Question `json:"question"`
	UserAnswer    int      `json:"user_answer"`
	CorrectAnswer int      `json:"correct_answer"`
	Outcome       Outcome  `json:"outcome"`
	Marked        bool     `json:"marked"`
}

// ReviewState is a snapshot of the navigator position.
type ReviewState struct {
	Filter   Filter         `json:"filter"`
	Position int            `json:"position"`
	Total    int            `json:"total"`
	Current  *ReviewItem    `json:"current,omitempty"`
	Indices  []int          `json:"indices"`
	Counts   map[Filter]int `json:"counts"`
}

// Reviewer replays a finished session. It never changes answers; only the
// filter and position move.
type Reviewer struct {
	mu      sync.Mutex
	items   []ReviewItem
	filter  Filter
	visible []int
	pos     int
}

// NewReviewer builds a navigator over result. marked may be nil.
func NewReviewer(questions []Question, result *Result, marked []bool) (*Reviewer, error) {
	if result == nil || len(result.PerQuestion) != len(questions) {
		return nil, ErrScoringPrecondition
	}

	items := make([]ReviewItem, len(questions))
	for i, line := range result.PerQuestion {
		items[i] = ReviewItem{
			Index:         i,
			Question:      questions[i],
			UserAnswer:    line.UserAnswer,
			CorrectAnswer: line.CorrectAnswer,
			Outcome:       line.Outcome,
			Marked:        i < len(marked) && marked[i],
		}
	}

	r := &Reviewer{items: items}
	r.applyFilter(FilterAll)
	return r, nil
}

// SetFilter changes the visible subset and resets the position.
func (r *Reviewer) SetFilter(f Filter) error {
	if _, err := ParseFilter(string(f)); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applyFilter(f)
	return nil
}

// Filter returns the active filter.
func (r *Reviewer) Filter() Filter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter
}

// Items returns the visible items in original order.
func (r *Reviewer) Items() []ReviewItem {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ReviewItem, len(r.visible))
	for i, idx := range r.visible {
		out[i] = r.items[idx]
	}
	return out
}

// Current returns the item under the cursor, false when the filter is empty.
func (r *Reviewer) Current() (ReviewItem, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentLocked()
}

// Position returns the cursor within the filtered list.
func (r *Reviewer) Position() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos
}

// Next advances the cursor. It reports false at the end of the list.
func (r *Reviewer) Next() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pos+1 >= len(r.visible) {
		return false
	}
	r.pos++
	return true
}

// Previous moves the cursor back. It reports false at the start.
func (r *Reviewer) Previous() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pos == 0 {
		return false
	}
	r.pos--
	return true
}

// JumpToOriginalIndex moves to question i. When i is hidden by the current
// filter the filter falls back to all.
func (r *Reviewer) JumpToOriginalIndex(i int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i < 0 || i >= len(r.items) {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, i)
	}
	if pos, ok := r.locate(i); ok {
		r.pos = pos
		return nil
	}

	r.applyFilter(FilterAll)
	pos, _ := r.locate(i)
	r.pos = pos
	return nil
}

// Counts returns how many items each filter shows.
func (r *Reviewer) Counts() map[Filter]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countsLocked()
}

// State returns the full navigator snapshot.
func (r *Reviewer) State() ReviewState {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := ReviewState{
		Filter:   r.filter,
		Position: r.pos,
		Total:    len(r.visible),
		Indices:  append([]int{}, r.visible...),
		Counts:   r.countsLocked(),
	}
	if item, ok := r.currentLocked(); ok {
		st.Current = &item
	}
	return st
}

func (r *Reviewer) applyFilter(f Filter) {
	r.filter = f
	r.pos = 0
	r.visible = r.visible[:0]
	for i, item := range r.items {
		if f.matches(item.Outcome) {
			r.visible = append(r.visible, i)
		}
	}
}

func (r *Reviewer) locate(original int) (int, bool) {
	for pos, idx := range r.visible {
		if idx == original {
			return pos, true
		}
	}
	return 0, false
}

func (r *Reviewer) currentLocked() (ReviewItem, bool) {
	if len(r.visible) == 0 {
		return ReviewItem{}, false
	}
	return r.items[r.visible[r.pos]], true
}

func (r *Reviewer) countsLocked() map[Filter]int {
	counts := map[Filter]int{
		FilterAll:     len(r.items),
		FilterCorrect: 0,
		FilterWrong:   0,
		FilterSkipped: 0,
	}
	for _, item := range r.items {
		switch item.Outcome {
		case OutcomeCorrect:
			counts[FilterCorrect]++
		case OutcomeWrong:
			counts[FilterWrong]++
		case OutcomeSkipped:
			counts[FilterSkipped]++
		}
	}
	return counts
}
