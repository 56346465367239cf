package model

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/prepexam/internal/engine"
)

func twoOptions() []engine.Option {
	return []engine.Option{{Primary: "Yes", Secondary: "Ya"}, {Primary: "No", Secondary: "Tidak"}}
}

func TestPaperValidate(t *testing.T) {
	tests := []struct {
		name    string
		paper   Paper
		wantErr bool
	}{
		{
			name: "valid",
			paper: Paper{DurationSeconds: 60, Questions: []PaperQuestion{
				{ID: 1, Options: twoOptions(), CorrectOptionIndex: 1},
			}},
		},
		{name: "no questions", paper: Paper{DurationSeconds: 60}, wantErr: true},
		{
			name: "negative duration",
			paper: Paper{DurationSeconds: -1, Questions: []PaperQuestion{
				{ID: 1, Options: twoOptions()},
			}},
			wantErr: true,
		},
		{
			name: "key out of range",
			paper: Paper{Questions: []PaperQuestion{
				{ID: 1, Options: twoOptions(), CorrectOptionIndex: 2},
			}},
			wantErr: true,
		},
		{
			name: "single option",
			paper: Paper{Questions: []PaperQuestion{
				{ID: 1, Options: twoOptions()[:1]},
			}},
			wantErr: true,
		},
		{
			name: "duplicate ids",
			paper: Paper{Questions: []PaperQuestion{
				{ID: 1, Options: twoOptions()},
				{ID: 1, Options: twoOptions()},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.paper.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPaper) {
				t.Errorf("Validate() error %v does not wrap ErrInvalidPaper", err)
			}
		})
	}
}

func TestPaperSummaryHidesQuestions(t *testing.T) {
	p := &Paper{
		ID:              uuid.New(),
		Title:           "Reasoning Set A",
		DurationSeconds: 600,
		Questions: []PaperQuestion{
			{ID: 7, Options: twoOptions(), CorrectOptionIndex: 1},
			{ID: 8, Options: twoOptions()},
		},
	}
	s := p.Summary()
	if s.TotalQuestions != 2 || s.Title != p.Title || s.ID != p.ID {
		t.Errorf("Summary() = %+v", s)
	}

	qs := p.EngineQuestions()
	if len(qs) != 2 || qs[0].ID != 7 || qs[0].CorrectOptionIndex != 1 {
		t.Errorf("EngineQuestions() = %+v", qs)
	}
	if c := NewQuestionForCandidate(0, qs[0]); c.ID != 7 || len(c.Options) != 2 {
		t.Errorf("NewQuestionForCandidate() = %+v", c)
	}
}
