package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel opportunities are broadcast on.
const DefaultChannel = "opportunities"

// ConnectRedis opens a client and checks it answers.
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisPublisher broadcasts events on a Redis pub/sub channel.
type RedisPublisher struct {
	Client  redis.Cmdable
	Channel string
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	channel := p.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	if err := p.Client.Publish(ctx, channel, b).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", ev.ID, err)
	}
	return nil
}
