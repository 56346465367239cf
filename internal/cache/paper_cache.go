package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/prepexam/internal/config"
	"github.com/stemsi/prepexam/internal/model"
)

// ErrMiss is returned by Take when nothing was prefetched.
var ErrMiss = errors.New("paper not prefetched")

// PaperCache holds papers fetched ahead of an attempt. An entry is
// populated by Prefetch, consumed once by Take and dropped by Invalidate.
type PaperCache interface {
	Prefetch(ctx context.Context, paper *model.Paper, ttl time.Duration) error
	Take(ctx context.Context, id uuid.UUID) (*model.Paper, error)
	Invalidate(ctx context.Context, id uuid.UUID) error
}

type paperCache struct {
	client *redis.Client
}

func NewPaperCache(client *redis.Client) PaperCache {
	return &paperCache{client: client}
}

func (c *paperCache) Prefetch(ctx context.Context, paper *model.Paper, ttl time.Duration) error {
	data, err := json.Marshal(paper)
	if err != nil {
		return fmt.Errorf("marshal paper: %w", err)
	}
	return c.client.Set(ctx, config.CacheKey.PaperPrefetchKey(paper.ID.String()), data, ttl).Err()
}

func (c *paperCache) Take(ctx context.Context, id uuid.UUID) (*model.Paper, error) {
	data, err := c.client.GetDel(ctx, config.CacheKey.PaperPrefetchKey(id.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, err
	}
	var paper model.Paper
	if err := json.Unmarshal(data, &paper); err != nil {
		return nil, fmt.Errorf("unmarshal paper: %w", err)
	}
	return &paper, nil
}

func (c *paperCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	return c.client.Del(ctx, config.CacheKey.PaperPrefetchKey(id.String())).Err()
}
