package main

import (
	"context"
	"fmt"

	"research-orchestrator/api/server"
	"research-orchestrator/config"
	"research-orchestrator/logger"
	"research-orchestrator/tasks/orchestrator"
	"research-orchestrator/tasks/orchestrator/execution"
	"research-orchestrator/tasks/queue"
	"research-orchestrator/tasks/runners"
	"research-orchestrator/tasks/store"
	"research-orchestrator/tasks/tools"
	"research-orchestrator/tasks/workers"
)

type dispatch int

const (
	// dispatchDefault follows ASYNC_MODE.
	dispatchDefault dispatch = iota
	dispatchSynchronous
)

// app holds the wired components of one process.
type app struct {
	cfg          *config.Config
	logger       *logger.Logger
	store        *store.MemoryTaskStore
	orchestrator orchestrator.Orchestrator

	background *runners.BackgroundRunner
	pool       *workers.WorkerPool
	queue      queue.TaskQueue
}

func newApp(cfg *config.Config, lg *logger.Logger, mode dispatch) (*app, error) {
	taskStore := store.NewMemoryTaskStore()

	provider := tools.NewProvider(tools.Options{
		BingAPIKey:         cfg.BingAPIKey,
		BingEndpoint:       cfg.BingEndpoint,
		DuckDuckGoEndpoint: cfg.DuckDuckGoEndpoint,
		GeminiAPIKey:       cfg.GeminiAPIKey,
		GeminiEndpoint:     cfg.GeminiEndpoint,
		GeminiModel:        cfg.GeminiModel,
		OllamaURL:          cfg.OllamaURL,
		OllamaModel:        cfg.OllamaModel,
		HTTPTimeout:        cfg.HTTPTimeout,
		MaxAttempts:        cfg.ToolMaxAttempts,
		RetryDelay:         cfg.ToolRetryDelay,
	}, lg)

	lg.Info("tool backends configured", map[string]any{
		"search":    provider.SearchBackend(),
		"summarize": provider.SummaryBackends(),
	})

	workflow := execution.NewDefaultExecutionWorkflow(
		provider,
		execution.NewDefaultStateManager(taskStore, lg),
		execution.NewDefaultResultHandler(),
		lg,
	)

	a := &app{cfg: cfg, logger: lg, store: taskStore}

	var runner runners.Runner
	switch {
	case mode == dispatchSynchronous:
		runner = runners.NewSynchronousRunner(workflow)

	case cfg.Async:
		q, err := newQueue(cfg)
		if err != nil {
			return nil, err
		}
		pool := workers.NewWorkerPool(cfg.WorkerCount, q, workflow, cfg.TaskTimeout, lg)
		pool.SetShutdownTimeout(cfg.ShutdownTimeout)
		pool.Start(context.Background())

		a.queue = q
		a.pool = pool
		runner = runners.NewAsynchronousRunner(q)

	default:
		a.background = runners.NewBackgroundRunner(workflow, cfg.TaskTimeout, lg)
		runner = a.background
	}

	a.orchestrator = orchestrator.NewOrchestrator(taskStore, runner, cfg.DefaultMaxResults, lg)
	return a, nil
}

func newQueue(cfg *config.Config) (queue.TaskQueue, error) {
	switch cfg.QueueBackend {
	case config.QueueBackendRedis:
		q, err := queue.NewRedisTaskQueue(cfg.RedisURL, cfg.QueueName)
		if err != nil {
			return nil, fmt.Errorf("create redis queue: %w", err)
		}
		return q, nil
	default:
		return queue.NewMemoryTaskQueue(queue.DefaultMemoryQueueSize), nil
	}
}

func (a *app) dependencies() server.Dependencies {
	deps := server.Dependencies{
		Orchestrator: a.orchestrator,
		Counter:      a.store,
		Config:       a.cfg,
		Logger:       a.logger,
	}
	if a.pool != nil {
		deps.Queue = a.pool
	}
	return deps
}

// drainers stop background work after the HTTP listener has closed.
func (a *app) drainers() []server.Drainer {
	var out []server.Drainer
	if a.background != nil {
		out = append(out, server.DrainFunc(a.background.Wait))
	}
	if a.pool != nil {
		out = append(out, server.DrainFunc(a.stopPool))
	}
	return out
}

func (a *app) stopPool(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.pool.Stop()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if closeErr := a.queue.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
