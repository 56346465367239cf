package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/prepexam/internal/model"
)

// PaperRepository handles question paper data access.
type PaperRepository struct {
	pool *pgxpool.Pool
}

// NewPaperRepository creates a new PaperRepository.
func NewPaperRepository(pool *pgxpool.Pool) *PaperRepository {
	return &PaperRepository{pool: pool}
}

// GetByID loads a paper with its questions in order. A missing paper returns
// pgx.ErrNoRows.
func (r *PaperRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Paper, error) {
	p := &model.Paper{}
	var correct, incorrect, unattempted *float64
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, duration_seconds, mark_correct, mark_incorrect,
		        mark_unattempted, passing_percentage, created_at
		 FROM papers WHERE id = $1`, id,
	).Scan(&p.ID, &p.Title, &p.DurationSeconds, &correct, &incorrect,
		&unattempted, &p.PassingPercentage, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if correct != nil {
		p.MarkingScheme.Correct = *correct
	}
	if incorrect != nil {
		p.MarkingScheme.Incorrect = *incorrect
	}
	if unattempted != nil {
		p.MarkingScheme.Unattempted = *unattempted
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, order_num, prompt_primary, prompt_secondary, options, correct_option
		 FROM paper_questions WHERE paper_id = $1
		 ORDER BY order_num, id`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var q model.PaperQuestion
		var options []byte
		if err := rows.Scan(&q.ID, &q.OrderNum, &q.PromptPrimary, &q.PromptSecondary, &options, &q.CorrectOptionIndex); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("question %d options: %w", q.ID, err)
		}
		p.Questions = append(p.Questions, q)
	}
	return p, rows.Err()
}

// Create inserts a paper and its questions in one transaction. Question IDs
// are assigned by the database and written back into p.
func (r *PaperRepository) Create(ctx context.Context, p *model.Paper) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO papers (title, duration_seconds, mark_correct, mark_incorrect,
		                     mark_unattempted, passing_percentage)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		p.Title, p.DurationSeconds, p.MarkingScheme.Correct, p.MarkingScheme.Incorrect,
		p.MarkingScheme.Unattempted, p.PassingPercentage,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert paper: %w", err)
	}

	rows := make([][]interface{}, len(p.Questions))
	for i, q := range p.Questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("marshal options %d: %w", i, err)
		}
		rows[i] = []interface{}{p.ID, i + 1, q.PromptPrimary, q.PromptSecondary, options, q.CorrectOptionIndex}
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"paper_questions"},
		[]string{"paper_id", "order_num", "prompt_primary", "prompt_secondary", "options", "correct_option"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("copy questions: %w", err)
	}

	ids, err := tx.Query(ctx,
		`SELECT id FROM paper_questions WHERE paper_id = $1 ORDER BY order_num`, p.ID)
	if err != nil {
		return err
	}
	i := 0
	for ids.Next() {
		if err := ids.Scan(&p.Questions[i].ID); err != nil {
			ids.Close()
			return err
		}
		p.Questions[i].OrderNum = i + 1
		i++
	}
	ids.Close()
	if err := ids.Err(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
