package main

import (
	"errors"
	"testing"

	"github.com/stemsi/prepexam/internal/engine"
	"github.com/stemsi/prepexam/internal/model"
)

func TestCatalogToPaper(t *testing.T) {
	scheme := engine.MarkingScheme{Correct: 1, Incorrect: -0.25}
	q := catalogQuestion{
		Question:      "Capital of France?",
		QuestionHindi: "फ्रांस की राजधानी?",
		Options:       []string{"Paris", "Rome"},
		OptionsHindi:  []string{"पेरिस", "रोम"},
		CorrectAnswer: 0,
	}

	p, err := catalog{Title: "GK", DurationMinutes: 2, Questions: []catalogQuestion{q}}.toPaper(scheme)
	if err != nil {
		t.Fatalf("toPaper() error = %v", err)
	}
	if p.DurationSeconds != 120 || p.MarkingScheme != scheme {
		t.Errorf("paper = %+v", p)
	}
	if got := p.Questions[0].Options[0]; got.Primary != "Paris" || got.Secondary != "पेरिस" {
		t.Errorf("option = %+v", got)
	}

	own := engine.MarkingScheme{Correct: 4, Incorrect: -1}
	p, err = catalog{Title: "GK", MarkingScheme: &own, Questions: []catalogQuestion{q}}.toPaper(scheme)
	if err != nil || p.MarkingScheme != own {
		t.Errorf("own scheme = %+v, %v", p, err)
	}
}

func TestCatalogToPaperRejects(t *testing.T) {
	good := catalogQuestion{Question: "q", Options: []string{"a", "b"}}
	badKey := catalogQuestion{Question: "q", Options: []string{"a", "b"}, CorrectAnswer: 2}
	badHindi := catalogQuestion{Question: "q", Options: []string{"a", "b"}, OptionsHindi: []string{"x"}}

	tests := []struct {
		name string
		cat  catalog
	}{
		{"no title", catalog{Questions: []catalogQuestion{good}}},
		{"no questions", catalog{Title: "t"}},
		{"key out of range", catalog{Title: "t", Questions: []catalogQuestion{badKey}}},
		{"translation mismatch", catalog{Title: "t", Questions: []catalogQuestion{badHindi}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.cat.toPaper(engine.MarkingScheme{Correct: 1}); !errors.Is(err, model.ErrInvalidPaper) {
				t.Errorf("err = %v, want ErrInvalidPaper", err)
			}
		})
	}
}
