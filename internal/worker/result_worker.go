package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/prepexam/internal/config"
	"github.com/stemsi/prepexam/internal/engine"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultWorker consumes persist_results_queue and writes graded attempts
// with their final answers to PostgreSQL.
type ResultWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewResultWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "result_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]*engine.SubmissionPayload, 0, ResultBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			p, err := decodeSubmission([]byte(item[1]))
			if err != nil {
				w.log.Error().Err(err).Msg("Dropping invalid submission payload")
				continue
			}
			batch = append(batch, p)
		}
	}
}

// decodeSubmission rejects payloads the database could never accept, so a
// poison message is dropped instead of requeued forever.
func decodeSubmission(raw []byte) (*engine.SubmissionPayload, error) {
	var p engine.SubmissionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(p.AttemptID); err != nil {
		return nil, fmt.Errorf("attempt id: %w", err)
	}
	if p.Result == nil {
		return nil, errors.New("submission without result")
	}
	if len(p.Result.PerQuestion) != len(p.Answers) {
		return nil, fmt.Errorf("%d answers for %d graded questions", len(p.Answers), len(p.Result.PerQuestion))
	}
	return &p, nil
}

// ----------------------------------------------------------------
// Batch wrapper with single-row fallback
// ----------------------------------------------------------------

func (w *ResultWorker) flushSafe(ctx context.Context, batch []*engine.SubmissionPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.persistBatch(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("size", len(batch)).Msg("Bulk result write failed, using fallback")

		for _, p := range batch {
			if err := w.persistBatch(ctx, []*engine.SubmissionPayload{p}); err != nil {
				w.log.Error().Err(err).Str("attempt_id", p.AttemptID).Msg("Single result write failed, requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw)
			}
		}
		return
	}

	w.log.Debug().Int("size", len(batch)).Msg("Results persisted")
}

func (w *ResultWorker) persistBatch(ctx context.Context, batch []*engine.SubmissionPayload) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cols := newResultColumns(batch)
	if _, err := tx.Exec(ctx, bulkResultUpdate,
		cols.ids, cols.reasons, cols.raw, cols.pct,
		cols.correct, cols.wrong, cols.skipped, cols.marked, cols.submittedAt,
	); err != nil {
		return fmt.Errorf("update attempts: %w", err)
	}

	b := &pgx.Batch{}
	for _, p := range batch {
		for _, row := range answerRows(p) {
			b.Queue(finalAnswerUpsert, cols.byID[p.AttemptID], row.QuestionID, row.SelectedOption, row.IsFlagged, row.Outcome)
		}
	}
	if err := tx.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("upsert answers: %w", err)
	}

	return tx.Commit(ctx)
}

// ----------------------------------------------------------------
// BULK PostgreSQL UPDATE using UNNEST + alias
// ----------------------------------------------------------------

const bulkResultUpdate = `
	UPDATE attempts AS a
	SET status = 'COMPLETED',
	    end_reason = t.end_reason,
	    raw_score = t.raw_score,
	    percentage = t.percentage,
	    correct_count = t.correct_count,
	    wrong_count = t.wrong_count,
	    skipped_count = t.skipped_count,
	    marked_count = t.marked_count,
	    submitted_at = t.submitted_at
	FROM UNNEST(
		$1::uuid[],
		$2::text[],
		$3::float8[],
		$4::float8[],
		$5::int[],
		$6::int[],
		$7::int[],
		$8::int[],
		$9::timestamptz[]
	) AS t (id, end_reason, raw_score, percentage, correct_count, wrong_count, skipped_count, marked_count, submitted_at)
	WHERE a.id = t.id
`

// Graded rows are final; later autosaves skip them.
const finalAnswerUpsert = `
	INSERT INTO attempt_answers (attempt_id, question_id, selected_option, is_flagged, outcome, updated_at)
	VALUES ($1, $2, $3, $4, $5, NOW())
	ON CONFLICT (attempt_id, question_id) DO UPDATE
	SET selected_option = EXCLUDED.selected_option,
	    is_flagged = EXCLUDED.is_flagged,
	    outcome = EXCLUDED.outcome,
	    updated_at = NOW()
`

type resultColumns struct {
	ids         []uuid.UUID
	reasons     []string
	raw         []float64
	pct         []float64
	correct     []int
	wrong       []int
	skipped     []int
	marked      []int
	submittedAt []time.Time
	byID        map[string]uuid.UUID
}

// newResultColumns expects payloads that passed decodeSubmission.
func newResultColumns(batch []*engine.SubmissionPayload) resultColumns {
	n := len(batch)
	c := resultColumns{
		ids:         make([]uuid.UUID, 0, n),
		reasons:     make([]string, 0, n),
		raw:         make([]float64, 0, n),
		pct:         make([]float64, 0, n),
		correct:     make([]int, 0, n),
		wrong:       make([]int, 0, n),
		skipped:     make([]int, 0, n),
		marked:      make([]int, 0, n),
		submittedAt: make([]time.Time, 0, n),
		byID:        make(map[string]uuid.UUID, n),
	}
	for _, p := range batch {
		id := uuid.MustParse(p.AttemptID)
		c.byID[p.AttemptID] = id
		c.ids = append(c.ids, id)
		c.reasons = append(c.reasons, string(p.EndReason))
		c.raw = append(c.raw, p.Result.RawScore)
		c.pct = append(c.pct, p.Result.Percentage)
		c.correct = append(c.correct, p.Result.CorrectCount)
		c.wrong = append(c.wrong, p.Result.WrongCount)
		c.skipped = append(c.skipped, p.Result.SkippedCount)
		c.marked = append(c.marked, p.MarkedCount)
		at := p.SubmittedAt
		if at.IsZero() {
			at = time.Now().UTC()
		}
		c.submittedAt = append(c.submittedAt, at)
	}
	return c
}

type answerRow struct {
	QuestionID     int
	SelectedOption int
	IsFlagged      bool
	Outcome        engine.Outcome
}

// answerRows pairs every submitted answer with its graded outcome.
func answerRows(p *engine.SubmissionPayload) []answerRow {
	outcomes := make(map[int]engine.Outcome, len(p.Result.PerQuestion))
	for _, line := range p.Result.PerQuestion {
		outcomes[line.QuestionID] = line.Outcome
	}

	rows := make([]answerRow, len(p.Answers))
	for i, a := range p.Answers {
		rows[i] = answerRow{
			QuestionID:     a.QuestionID,
			SelectedOption: a.SelectedOption,
			IsFlagged:      a.IsFlagged,
			Outcome:        outcomes[a.QuestionID],
		}
	}
	return rows
}
