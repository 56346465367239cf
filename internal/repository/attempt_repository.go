package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/prepexam/internal/model"
)

// AttemptRepository handles attempt data access. Results and answers are
// written asynchronously by the workers; this repository covers the
// request path.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Create inserts a new in-progress attempt.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO attempts (id, paper_id, user_id, mode, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING started_at`,
		a.ID, a.PaperID, a.UserID, a.Mode, model.AttemptStatusInProgress,
	).Scan(&a.StartedAt)
}

const attemptColumns = `a.id, a.paper_id, p.title, a.user_id, a.mode, a.status,
	COALESCE(a.end_reason, ''), a.raw_score, a.percentage, a.correct_count,
	a.wrong_count, a.skipped_count, a.started_at, a.submitted_at`

func scanAttempt(row interface{ Scan(...any) error }, a *model.Attempt) error {
	return row.Scan(&a.ID, &a.PaperID, &a.PaperTitle, &a.UserID, &a.Mode, &a.Status,
		&a.EndReason, &a.RawScore, &a.Percentage, &a.Correct,
		&a.Wrong, &a.Skipped, &a.StartedAt, &a.SubmittedAt)
}

// GetByID retrieves an attempt by its UUID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+`
		 FROM attempts a JOIN papers p ON p.id = a.paper_id
		 WHERE a.id = $1`, id)
	if err := scanAttempt(row, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListByUser pages through a user's attempts, newest first.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID, limit, offset int) ([]model.Attempt, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+`
		 FROM attempts a JOIN papers p ON p.id = a.paper_id
		 WHERE a.user_id = $1
		 ORDER BY a.started_at DESC
		 LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := scanAttempt(rows, &a); err != nil {
			return nil, 0, err
		}
		attempts = append(attempts, a)
	}
	return attempts, total, rows.Err()
}
