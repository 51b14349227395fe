package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"aura-journal/internal/domain"
)

// RedisBackfillQueue реализует очередь повторного анализа на базе Redis lists.
type RedisBackfillQueue struct {
	client *redis.Client
	key    string
}

var _ domain.BackfillQueue = (*RedisBackfillQueue)(nil)

// NewRedisBackfillQueue создаёт очередь по указанному ключу.
func NewRedisBackfillQueue(client *redis.Client, key string) *RedisBackfillQueue {
	return &RedisBackfillQueue{client: client, key: key}
}

// Enqueue публикует задачу в очередь.
func (q *RedisBackfillQueue) Enqueue(ctx context.Context, job domain.BackfillJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Pop блокирующе читает задачу из очереди.
func (q *RedisBackfillQueue) Pop(ctx context.Context) (domain.BackfillJob, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.BackfillJob{}, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.BackfillJob{}, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.BackfillJob{}, err
		}
		if len(res) != 2 {
			return domain.BackfillJob{}, errors.New("redis queue: unexpected response")
		}
		var job domain.BackfillJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return domain.BackfillJob{}, fmt.Errorf("decode job: %w", err)
		}
		return job, nil
	}
}
