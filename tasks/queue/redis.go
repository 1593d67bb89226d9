package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/redis/go-redis/v9"

	"research-orchestrator/tasks"
)

// BRPOP is issued with a finite timeout so a cancelled context is noticed.
const dequeuePollInterval = time.Second

type RedisTaskQueue struct {
	client    *redis.Client
	queueName string
}

var _ TaskQueue = (*RedisTaskQueue)(nil)

func NewRedisTaskQueue(url, queueName string) (*RedisTaskQueue, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisTaskQueue{
		client:    client,
		queueName: queueName,
	}, nil
}

func (q *RedisTaskQueue) Enqueue(ctx context.Context, job tasks.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	// Left push + right pop gives FIFO order
	return q.client.LPush(ctx, q.queueName, data).Err()
}

func (q *RedisTaskQueue) Dequeue(ctx context.Context) (tasks.Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return tasks.Job{}, err
		}

		result, err := q.client.BRPop(ctx, dequeuePollInterval, q.queueName).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if errors.Is(err, redis.ErrClosed) {
			return tasks.Job{}, ErrQueueClosed
		}
		if err != nil {
			return tasks.Job{}, fmt.Errorf("failed to dequeue job: %w", err)
		}

		// BRPop returns [queueName, value]
		if len(result) != 2 {
			return tasks.Job{}, fmt.Errorf("unexpected BRPop result format. Should have %d elements but got %d", 2, len(result))
		}

		var job tasks.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			return tasks.Job{}, fmt.Errorf("failed to unmarshal job: %w", err)
		}
		return job, nil
	}
}

func (q *RedisTaskQueue) GetQueueDepth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueName).Result()
}

func (q *RedisTaskQueue) Close() error {
	return q.client.Close()
}
