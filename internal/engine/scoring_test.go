package engine

import (
	"errors"
	"math"
	"math/big"
	"reflect"
	"testing"
)

func TestScoreExamples(t *testing.T) {
	tests := []struct {
		name       string
		answers    []int
		raw        float64
		percentage float64
		correct    int
		wrong      int
		skipped    int
	}{
		{
			name:       "mixed with negative marking",
			answers:    []int{0, 2, NoAnswer, 3, NoAnswer},
			raw:        1.67,
			percentage: 33.4,
			correct:    2, wrong: 1, skipped: 2,
		},
		{
			name:       "all correct",
			answers:    []int{0, 1, 2, 3, 0},
			raw:        5,
			percentage: 100,
			correct:    5,
		},
		{
			name:       "all wrong",
			answers:    []int{1, 0, 0, 0, 1},
			raw:        -1.67,
			percentage: 0,
			wrong:      5,
		},
		{
			name:       "all skipped",
			answers:    []int{NoAnswer, NoAnswer, NoAnswer, NoAnswer, NoAnswer},
			raw:        0,
			percentage: 0,
			skipped:    5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Score(fiveQuestions(), tt.answers, negativeMarking)
			if err != nil {
				t.Fatalf("Score() error = %v", err)
			}
			if res.RawScore != tt.raw {
				t.Errorf("RawScore = %v, want %v", res.RawScore, tt.raw)
			}
			if res.Percentage != tt.percentage {
				t.Errorf("Percentage = %v, want %v", res.Percentage, tt.percentage)
			}
			if res.CorrectCount != tt.correct || res.WrongCount != tt.wrong || res.SkippedCount != tt.skipped {
				t.Errorf("counts = %d/%d/%d, want %d/%d/%d",
					res.CorrectCount, res.WrongCount, res.SkippedCount, tt.correct, tt.wrong, tt.skipped)
			}
			if res.TotalQuestions != 5 {
				t.Errorf("TotalQuestions = %d", res.TotalQuestions)
			}
		})
	}
}

func TestScorePerQuestionOutcomes(t *testing.T) {
	res, _ := Score(fiveQuestions(), []int{0, 2, NoAnswer, 3, NoAnswer}, negativeMarking)
	want := []Outcome{OutcomeCorrect, OutcomeWrong, OutcomeSkipped, OutcomeCorrect, OutcomeSkipped}
	for i, line := range res.PerQuestion {
		if line.Index != i || line.Outcome != want[i] {
			t.Errorf("PerQuestion[%d] = %+v, want outcome %s", i, line, want[i])
		}
	}
	if res.PerQuestion[1].UserAnswer != 2 || res.PerQuestion[1].CorrectAnswer != 1 {
		t.Errorf("PerQuestion[1] = %+v", res.PerQuestion[1])
	}
	if res.PerQuestion[0].QuestionID != 100 {
		t.Errorf("QuestionID = %d, want 100", res.PerQuestion[0].QuestionID)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	answers := []int{0, 2, NoAnswer, 3, 1}
	a, _ := Score(fiveQuestions(), answers, negativeMarking)
	b, _ := Score(fiveQuestions(), answers, negativeMarking)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Score() not deterministic:\n%+v\n%+v", a, b)
	}
	if math.Float64bits(a.RawScore) != math.Float64bits(b.RawScore) {
		t.Error("RawScore bits differ")
	}
}

func TestScoreInvariantsOverAllAnswerCombinations(t *testing.T) {
	schemes := []MarkingScheme{
		negativeMarking,
		{Correct: 4, Incorrect: -1, Unattempted: 0},
		{Correct: 1, Incorrect: 0, Unattempted: 0},
		{Correct: 2, Incorrect: -2, Unattempted: 0.5},
	}
	qs := fiveQuestions()
	choices := []int{NoAnswer, 0, 1, 2, 3}

	answers := make([]int, len(qs))
	var walk func(i int)
	walk = func(i int) {
		if i == len(qs) {
			for _, scheme := range schemes {
				res, err := Score(qs, answers, scheme)
				if err != nil {
					t.Fatalf("Score(%v) error = %v", answers, err)
				}
				if res.CorrectCount+res.WrongCount+res.SkippedCount != res.TotalQuestions {
					t.Fatalf("counts do not sum for %v: %+v", answers, res)
				}
				if res.Percentage < 0 || res.Percentage > 100+1e-9 {
					t.Fatalf("Percentage %v out of range for %v under %+v", res.Percentage, answers, scheme)
				}
			}
			return
		}
		for _, c := range choices {
			answers[i] = c
			walk(i + 1)
		}
	}
	walk(0)
}

func TestScorePreconditionViolated(t *testing.T) {
	_, err := Score(fiveQuestions(), []int{0, 1}, negativeMarking)
	if !errors.Is(err, ErrScoringPrecondition) {
		t.Errorf("Score() error = %v, want ErrScoringPrecondition", err)
	}
}

func TestMarkingSchemeValidate(t *testing.T) {
	tests := []struct {
		name    string
		scheme  MarkingScheme
		wantErr bool
	}{
		{"negative marking", negativeMarking, false},
		{"zero correct", MarkingScheme{Correct: 0}, true},
		{"incorrect above correct", MarkingScheme{Correct: 1, Incorrect: 2}, true},
		{"unattempted above correct", MarkingScheme{Correct: 1, Unattempted: 1.5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scheme.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRoundRat(t *testing.T) {
	tests := []struct {
		x      string
		places int
		want   string
	}{
		{"1.666666", 2, "1.67"},
		{"-1.666666", 2, "-1.67"},
		{"2.5", 0, "3"},
		{"-2.5", 0, "-2"},
		{"33.4", 1, "33.4"},
		{"0.125", 2, "0.13"},
		{"81.65", 1, "81.7"},
		{"86.65", 1, "86.7"},
		{"35.25", 1, "35.3"},
		{"1633/20", 1, "81.7"},
	}
	for _, tt := range tests {
		x, _ := new(big.Rat).SetString(tt.x)
		want, _ := new(big.Rat).SetString(tt.want)
		if got := roundRat(x, tt.places); got.Cmp(want) != 0 {
			t.Errorf("roundRat(%s, %d) = %s, want %s", tt.x, tt.places, got.FloatString(tt.places), tt.want)
		}
	}
}

// A float-based half-up rounds these down: 16.33*100/20 is stored as 81.6499...
func TestScoreDecimalTies(t *testing.T) {
	tests := []struct {
		name              string
		n, correct, wrong int
		scheme            MarkingScheme
		raw, percentage   float64
	}{
		{"20 questions 17 right 2 wrong", 20, 17, 2, negativeMarking, 16.33, 81.7},
		{"20 questions 18 right 2 wrong", 20, 18, 2, negativeMarking, 17.33, 86.7},
		{"52 questions 19 right 2 wrong", 52, 19, 2, negativeMarking, 18.33, 35.3},
		{"quarter penalty", 8, 3, 1, MarkingScheme{Correct: 1, Incorrect: -0.25}, 2.75, 34.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qs, answers := gradedSheet(tt.n, tt.correct, tt.wrong)
			res, err := Score(qs, answers, tt.scheme)
			if err != nil {
				t.Fatalf("Score() error = %v", err)
			}
			if res.RawScore != tt.raw || res.Percentage != tt.percentage {
				t.Errorf("raw/percentage = %v/%v, want %v/%v", res.RawScore, res.Percentage, tt.raw, tt.percentage)
			}
		})
	}
}

func TestMarkingSchemeRejectsNonFinite(t *testing.T) {
	for _, m := range []MarkingScheme{
		{Correct: math.NaN()},
		{Correct: 1, Incorrect: math.Inf(-1)},
		{Correct: 1, Unattempted: math.NaN()},
	} {
		if err := m.Validate(); !errors.Is(err, ErrInvalidScheme) {
			t.Errorf("Validate(%+v) = %v, want ErrInvalidScheme", m, err)
		}
	}
}

// gradedSheet builds n two-option questions keyed 0 with the first correct
// answers right, the next wrong answers wrong and the rest skipped.
func gradedSheet(n, correct, wrong int) ([]Question, []int) {
	qs := make([]Question, n)
	answers := make([]int, n)
	for i := range qs {
		qs[i] = Question{ID: i + 1, Options: []Option{{Primary: "A"}, {Primary: "B"}}}
		switch {
		case i < correct:
			answers[i] = 0
		case i < correct+wrong:
			answers[i] = 1
		default:
			answers[i] = NoAnswer
		}
	}
	return qs, answers
}

func TestResultPassed(t *testing.T) {
	res := &Result{Percentage: 40}
	if !res.Passed(40) {
		t.Error("Passed(40) = false at 40%")
	}
	if res.Passed(40.1) {
		t.Error("Passed(40.1) = true at 40%")
	}
}
