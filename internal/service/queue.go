package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/prepexam/internal/config"
	"github.com/stemsi/prepexam/internal/engine"
	"github.com/stemsi/prepexam/internal/model"
)

// QueueResultSink hands finished submissions to the result worker through
// persist_results_queue.
type QueueResultSink struct {
	rdb *redis.Client
}

// NewQueueResultSink creates a new QueueResultSink.
func NewQueueResultSink(rdb *redis.Client) *QueueResultSink {
	return &QueueResultSink{rdb: rdb}
}

// Persist implements engine.ResultSink.
func (s *QueueResultSink) Persist(ctx context.Context, p *engine.SubmissionPayload) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw).Err(); err != nil {
		return fmt.Errorf("queue submission: %w", err)
	}
	return nil
}

// RedisAnswerQueue feeds the autosave worker.
type RedisAnswerQueue struct {
	rdb *redis.Client
}

// NewRedisAnswerQueue creates a new RedisAnswerQueue.
func NewRedisAnswerQueue(rdb *redis.Client) *RedisAnswerQueue {
	return &RedisAnswerQueue{rdb: rdb}
}

// Enqueue pushes one answer change onto persist_answers_queue.
func (q *RedisAnswerQueue) Enqueue(ctx context.Context, change model.AnswerChange) error {
	raw, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, raw).Err()
}
