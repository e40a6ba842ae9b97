package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/slotter-org/cs-ai-agent/internal/logger"
)

const (
	DefaultRedisQueueKey = "cs-ai-agent:save-reminder"
	redisPopTimeout      = 5 * time.Second
)

// RedisQueue keeps jobs in a Redis list so they survive a restart.
type RedisQueue struct {
	log    *logger.Logger
	client *redis.Client
	key    string
}

func NewRedisQueue(log *logger.Logger, address, password, key string) (*RedisQueue, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       0,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	if key == "" {
		key = DefaultRedisQueueKey
	}
	return &RedisQueue{
		log:    log.With("component", "RedisQueue"),
		client: rdb,
		key:    key,
	}, nil
}

func (q *RedisQueue) Enqueue(ctx context.Context, job SaveJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode save job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, raw).Err(); err != nil {
		q.log.Warn("Failed to push save job", "error", err)
		return err
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (SaveJob, error) {
	for {
		res, err := q.client.BRPop(ctx, redisPopTimeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return SaveJob{}, ctx.Err()
			}
			if errors.Is(err, redis.ErrClosed) {
				return SaveJob{}, ErrQueueClosed
			}
			return SaveJob{}, err
		}
		// BRPOP answers [key, value].
		if len(res) != 2 {
			continue
		}
		var job SaveJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			q.log.Warn("Dropping undecodable save job", "error", err)
			continue
		}
		return job, nil
	}
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
