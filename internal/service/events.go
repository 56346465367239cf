package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/prepexam/internal/config"
	"github.com/stemsi/prepexam/internal/model"
)

// RedisEventBus fans attempt events out over Redis pub/sub so every
// connected client sees them, whichever server instance owns the attempt.
type RedisEventBus struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisEventBus creates a new RedisEventBus.
func NewRedisEventBus(rdb *redis.Client, log zerolog.Logger) *RedisEventBus {
	return &RedisEventBus{
		rdb: rdb,
		log: log.With().Str("component", "event_bus").Logger(),
	}
}

// Publish sends ev on the attempt's channel.
func (b *RedisEventBus) Publish(ctx context.Context, attemptID uuid.UUID, ev model.AttemptEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, config.CacheKey.AttemptEventsChannel(attemptID.String()), raw).Err()
}

// Subscribe streams the attempt's events until ctx is done or the returned
// close func is called.
func (b *RedisEventBus) Subscribe(ctx context.Context, attemptID uuid.UUID) (<-chan model.AttemptEvent, func() error) {
	pubsub := b.rdb.Subscribe(ctx, config.CacheKey.AttemptEventsChannel(attemptID.String()))
	out := make(chan model.AttemptEvent, 16)

	go func() {
		defer close(out)
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev model.AttemptEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.log.Warn().Err(err).Msg("Dropping malformed attempt event")
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, pubsub.Close
}

// eventGuard is the NavigationGuard for server-hosted attempts: it tells
// connected clients to arm or drop their leave-page interception.
type eventGuard struct {
	attemptID uuid.UUID
	events    EventPublisher
	log       zerolog.Logger
}

func (g *eventGuard) GuardNavigation(enable bool) {
	if g.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ev := model.AttemptEvent{
		Type:         model.AttemptEventGuard,
		AttemptID:    g.attemptID,
		GuardEnabled: &enable,
		At:           time.Now().UTC(),
	}
	if err := g.events.Publish(ctx, g.attemptID, ev); err != nil {
		g.log.Warn().Err(err).Bool("enabled", enable).Msg("Guard event publish failed")
	}
}
