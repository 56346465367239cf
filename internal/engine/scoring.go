package engine

import (
	"fmt"
	"math"
	"math/big"
)

// MarkingScheme holds per-outcome points. Negative marking means
// Incorrect < 0.
type MarkingScheme struct {
	Correct     float64 `json:"correct"`
	Incorrect   float64 `json:"incorrect"`
	Unattempted float64 `json:"unattempted"`
}

// Validate rejects schemes that could push the percentage outside [0, 100].
func (m MarkingScheme) Validate() error {
	for _, v := range []float64{m.Correct, m.Incorrect, m.Unattempted} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite points %v", ErrInvalidScheme, v)
		}
	}
	if m.Correct <= 0 {
		return fmt.Errorf("%w: correct must be positive, got %v", ErrInvalidScheme, m.Correct)
	}
	if m.Incorrect > m.Correct {
		return fmt.Errorf("%w: incorrect %v exceeds correct %v", ErrInvalidScheme, m.Incorrect, m.Correct)
	}
	if m.Unattempted > m.Correct {
		return fmt.Errorf("%w: unattempted %v exceeds correct %v", ErrInvalidScheme, m.Unattempted, m.Correct)
	}
	return nil
}

// Outcome classifies one answered (or skipped) question.
type Outcome string

const (
	OutcomeCorrect Outcome = "correct"
	OutcomeWrong   Outcome = "wrong"
	OutcomeSkipped Outcome = "skipped"
)

// QuestionOutcome is the per-question line of a Result.
type QuestionOutcome struct {
	Index         int     `json:"index"`
	QuestionID    int     `json:"question_id"`
	UserAnswer    int     `json:"user_answer"`
	CorrectAnswer int     `json:"correct_answer"`
	Outcome       Outcome `json:"outcome"`
}

// Result is produced once per session and never mutated.
type Result struct {
	RawScore       float64           `json:"raw_score"`
	TotalQuestions int               `json:"total_questions"`
	CorrectCount   int               `json:"correct_count"`
	WrongCount     int               `json:"wrong_count"`
	SkippedCount   int               `json:"skipped_count"`
	Percentage     float64           `json:"percentage"`
	PerQuestion    []QuestionOutcome `json:"per_question"`
}

// Passed compares the percentage against a caller-supplied threshold.
func (r *Result) Passed(threshold float64) bool {
	return r.Percentage >= threshold
}

// Score grades answers against the questions' keys. It has no side effects:
// identical inputs give identical results.
func Score(questions []Question, answers []int, scheme MarkingScheme) (*Result, error) {
	if len(answers) != len(questions) {
		return nil, fmt.Errorf("%w: %d answers for %d questions", ErrScoringPrecondition, len(answers), len(questions))
	}

	res := &Result{
		TotalQuestions: len(questions),
		PerQuestion:    make([]QuestionOutcome, len(questions)),
	}

	for i, q := range questions {
		line := QuestionOutcome{
			Index:         i,
			QuestionID:    q.ID,
			UserAnswer:    answers[i],
			CorrectAnswer: q.CorrectOptionIndex,
		}
		switch {
		case answers[i] == NoAnswer:
			line.Outcome = OutcomeSkipped
			res.SkippedCount++
		case answers[i] == q.CorrectOptionIndex:
			line.Outcome = OutcomeCorrect
			res.CorrectCount++
		default:
			line.Outcome = OutcomeWrong
			res.WrongCount++
		}
		res.PerQuestion[i] = line
	}

	// Summed and rounded as exact rationals so decimal ties round up.
	raw := new(big.Rat)
	raw.Add(raw, weighted(res.CorrectCount, scheme.Correct))
	raw.Add(raw, weighted(res.WrongCount, scheme.Incorrect))
	raw.Add(raw, weighted(res.SkippedCount, scheme.Unattempted))
	raw = roundRat(raw, 2)
	res.RawScore, _ = raw.Float64()

	maxScore := weighted(len(questions), scheme.Correct)
	if maxScore.Sign() > 0 && raw.Sign() > 0 {
		pct := new(big.Rat).Mul(raw, big.NewRat(100, 1))
		pct.Quo(pct, maxScore)
		pct = roundRat(pct, 1)
		if pct.Cmp(big.NewRat(100, 1)) > 0 {
			pct.SetInt64(100)
		}
		res.Percentage, _ = pct.Float64()
	}
	return res, nil
}

func weighted(n int, points float64) *big.Rat {
	w := new(big.Rat).SetFloat64(points)
	return w.Mul(w, big.NewRat(int64(n), 1))
}

// roundRat rounds x to places decimals, half-up with ties toward +Inf:
// floor(x*10^places + 1/2) / 10^places.
func roundRat(x *big.Rat, places int) *big.Rat {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(places)), nil)
	v := new(big.Rat).Mul(x, new(big.Rat).SetInt(scale))
	v.Add(v, big.NewRat(1, 2))
	// Rat denominators are positive, so Euclidean DivMod yields the floor.
	q, m := new(big.Int), new(big.Int)
	q.DivMod(v.Num(), v.Denom(), m)
	return new(big.Rat).SetFrac(q, scale)
}
