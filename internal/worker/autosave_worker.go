package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/prepexam/internal/config"
	"github.com/stemsi/prepexam/internal/model"
)

// AutosaveWorker consumes persist_answers_queue and UPSERTs in-progress
// answers to PostgreSQL.
type AutosaveWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger

	// retryDelay pauses the loop after a failed write.
	retryDelay time.Duration
}

// NewAutosaveWorker creates a new AutosaveWorker.
func NewAutosaveWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *AutosaveWorker {
	return &AutosaveWorker{
		pool:       pool,
		rdb:        rdb,
		log:        log.With().Str("component", "autosave_worker").Logger(),
		retryDelay: 5 * time.Second,
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *AutosaveWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *AutosaveWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistAnswersQueue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}
	if len(result) < 2 {
		return
	}

	change, err := decodeAnswerChange([]byte(result[1]))
	if err != nil {
		w.log.Error().Err(err).Msg("Dropping invalid answer change")
		return
	}

	if err := w.persistAnswer(ctx, change); err != nil {
		w.log.Error().Err(err).
			Str("attempt_id", change.AttemptID).
			Int("question_id", change.QuestionID).
			Dur("retry_in", w.retryDelay).
			Msg("Persist error, requeueing")
		w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, result[1])
		time.Sleep(w.retryDelay)
	}
}

func decodeAnswerChange(raw []byte) (*model.AnswerChange, error) {
	var c model.AnswerChange
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(c.AttemptID); err != nil {
		return nil, err
	}
	if c.QuestionID <= 0 {
		return nil, errors.New("missing question id")
	}
	if c.ChangedAt.IsZero() {
		c.ChangedAt = time.Now().UTC()
	}
	return &c, nil
}

// Older changes and graded rows never overwrite what is stored.
const autosaveUpsert = `
	INSERT INTO attempt_answers (attempt_id, question_id, selected_option, is_flagged, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (attempt_id, question_id) DO UPDATE
	SET selected_option = EXCLUDED.selected_option,
	    is_flagged = EXCLUDED.is_flagged,
	    updated_at = EXCLUDED.updated_at
	WHERE attempt_answers.outcome IS NULL
	  AND attempt_answers.updated_at <= EXCLUDED.updated_at
`

func (w *AutosaveWorker) persistAnswer(ctx context.Context, c *model.AnswerChange) error {
	_, err := w.pool.Exec(ctx, autosaveUpsert,
		uuid.MustParse(c.AttemptID), c.QuestionID, c.SelectedOption, c.IsFlagged, c.ChangedAt,
	)
	return err
}

// drain processes all remaining items in the queue before shutdown.
func (w *AutosaveWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistAnswersQueue).Result()
		if err != nil {
			break
		}

		change, err := decodeAnswerChange([]byte(result))
		if err != nil {
			w.log.Error().Err(err).Msg("Drain decode error")
			continue
		}

		if err := w.persistAnswer(ctx, change); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
