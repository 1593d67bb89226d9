//go:build integration

package queue

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisTestcontainer starts a throwaway Redis and returns a queue bound
// to a per-test list name.
func setupRedisTestcontainer(t *testing.T) (*RedisTaskQueue, func()) {
	t.Helper()
	ctx := context.Background()

	queueName := fmt.Sprintf("research_jobs_%s_%d", strings.ReplaceAll(t.Name(), "/", "_"), time.Now().UnixNano())

	redisContainer, err := redis.Run(ctx, "redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("6379/tcp").WithStartupTimeout(30*time.Second),
			wait.ForLog("Ready to accept connections").WithOccurrence(1).WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("Failed to start Redis testcontainer: %v", err)
	}

	connStr, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		_ = redisContainer.Terminate(ctx)
		t.Fatalf("Failed to get Redis connection string: %v", err)
	}
	redisURL := connStr + "/1"

	var queue *RedisTaskQueue
	const maxRetries = 5
	for i := 0; i < maxRetries; i++ {
		queue, err = NewRedisTaskQueue(redisURL, queueName)
		if err == nil {
			break
		}
		t.Logf("Failed to connect to Redis, retrying... (%d/%d): %v", i+1, maxRetries, err)
		time.Sleep(time.Duration(i+1) * 500 * time.Millisecond)
	}
	if queue == nil {
		_ = redisContainer.Terminate(ctx)
		t.Fatalf("Failed to create Redis queue after %d retries: %v", maxRetries, err)
	}

	queue.client.Del(ctx, queueName)

	cleanup := func() {
		ctx := context.Background()
		queue.client.Del(ctx, queueName)
		queue.Close()
		if terminateErr := redisContainer.Terminate(ctx); terminateErr != nil {
			t.Logf("Failed to terminate container: %v", terminateErr)
		}
	}

	return queue, cleanup
}
