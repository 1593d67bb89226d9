package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"research-orchestrator/api/server"
	"research-orchestrator/config"
	"research-orchestrator/logger"
	"research-orchestrator/tasks"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/spf13/cobra"
)

var errTaskFailed = errors.New("research task failed")

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "research-orchestrator",
		Short:         "Asynchronous web research service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, stdout)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().String("log-level", "", "log level override (DEBUG, INFO, WARN, ERROR)")
	root.PersistentFlags().Int("port", 0, "HTTP port override")

	root.AddCommand(newServeCmd(stdout), newRunCmd(stdout, stderr))
	return root
}

func newServeCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, stdout)
		},
	}
}

func newRunCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <query>",
		Short: "Run one research task in the foreground and print the final task as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			maxResults, err := cmd.Flags().GetInt("max-results")
			if err != nil {
				return err
			}
			return runOnce(cmd, strings.Join(args, " "), maxResults, stdout, stderr)
		},
	}
	cmd.Flags().Int("max-results", 0, "number of search results to process (1-10, default from config)")
	return cmd
}

// loadConfig reads the environment, then applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("port") {
		cfg.ServerPort, _ = flags.GetInt("port")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, stdout io.Writer) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return err
	}

	lg := logger.New(cfg.LogLevel, stdout)
	lg.Info("Starting research orchestrator", map[string]any{
		"version":       cfg.Version,
		"port":          cfg.ServerPort,
		"log_level":     cfg.LogLevel,
		"dispatch_mode": cfg.DispatchMode(),
	})

	app, err := newApp(cfg, lg, dispatchDefault)
	if err != nil {
		lg.Error("failed to wire application", map[string]any{"error": err.Error()})
		return err
	}

	srv := server.New(app.dependencies(), app.drainers()...)
	return srv.Start()
}

func runOnce(cmd *cobra.Command, query string, maxResults int, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return err
	}

	// stdout carries only the task JSON
	lg := logger.New(cfg.LogLevel, stderr)

	app, err := newApp(cfg, lg, dispatchSynchronous)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.TaskTimeout)
	defer cancel()

	task, submitErr := app.orchestrator.SubmitResearch(ctx, query, maxResults)
	if task == nil {
		fmt.Fprintln(stderr, submitErr)
		return submitErr
	}

	if err := json.MarshalWrite(stdout, task, jsontext.WithIndent("  ")); err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	fmt.Fprintln(stdout)

	if task.Status != tasks.StatusCompleted {
		return fmt.Errorf("%w: %s", errTaskFailed, task.Error)
	}
	return nil
}
