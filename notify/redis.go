package notify

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ruteri/university-ledger/ledger"
)

const DefaultRedisKey = "university-ledger:notifications"

// RedisQueue publishes notifications to a Redis list with LPUSH and consumes
// them with BRPOP, so each message is delivered to exactly one consumer.
type RedisQueue struct {
	client redis.UniversalClient
	key    string
}

// NewRedisQueue builds a queue on key, DefaultRedisKey if empty.
func NewRedisQueue(client redis.UniversalClient, key string) *RedisQueue {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisQueue{client: client, key: key}
}

func (q *RedisQueue) Name() string { return "redis" }

func (q *RedisQueue) Key() string { return q.key }

func (q *RedisQueue) Publish(ctx context.Context, n ledger.Notification) error {
	msg, err := NewMessage(n)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, serialize(msg)).Err()
}

// Consume streams messages using BRPOP until ctx is done.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if !errors.Is(err, redis.Nil) {
					// Back off on connection errors instead of spinning.
					select {
					case <-time.After(time.Second):
					case <-ctx.Done():
						return
					}
				}
				continue
			}
			if len(res) != 2 {
				continue
			}
			select {
			case out <- deserialize(res[1]):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Ping checks connectivity to the Redis server.
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}
