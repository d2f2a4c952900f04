// Package events carries the cache invalidation signal sent after every
// successful mutation so that readers can drop stale lane views.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const LanesKey = "memory-lanes"

func LaneKey(laneID string) string {
	return "memory-lane:" + laneID
}

func UserLanesKey(userID string) string {
	return "user-lanes:" + userID
}

type Invalidation struct {
	Keys   []string  `json:"keys"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, inv Invalidation) error
}

// Connect returns a redis client after checking the server answers
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

// RedisPublisher sends invalidations as JSON over a pub/sub channel
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, inv Invalidation) error {
	data, err := json.Marshal(inv)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, data).Err()
}

// LogPublisher only logs invalidations. Used when no redis is configured.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, inv Invalidation) error {
	p.log.Debug().Strs("keys", inv.Keys).Str("reason", inv.Reason).Msg("invalidate")
	return nil
}
