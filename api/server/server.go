package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"research-orchestrator/api"
	"research-orchestrator/api/middleware"
	"research-orchestrator/config"
	"research-orchestrator/logger"
	"research-orchestrator/tasks/orchestrator"
)

// Drainer finishes or abandons in-flight work during shutdown.
type Drainer interface {
	Drain(ctx context.Context) error
}

// DrainFunc adapts a function to Drainer.
type DrainFunc func(ctx context.Context) error

func (f DrainFunc) Drain(ctx context.Context) error { return f(ctx) }

// Server wraps http.Server with graceful shutdown capabilities
type Server struct {
	httpServer *http.Server
	config     *config.Config
	logger     *logger.Logger
	drainers   []Drainer
}

// Dependencies contains everything the HTTP layer needs.
type Dependencies struct {
	Orchestrator orchestrator.Orchestrator
	Counter      api.TaskCounter
	Queue        api.QueueInspector
	Config       *config.Config
	Logger       *logger.Logger
}

// New creates a new server with all HTTP configuration. Drainers run in order
// after the listener has shut down.
func New(deps Dependencies, drainers ...Drainer) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         deps.Config.Address(),
			Handler:      NewRouter(deps),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		config:   deps.Config,
		logger:   deps.Logger,
		drainers: drainers,
	}
}

// NewRouter registers all routes and wraps them in middleware.
func NewRouter(deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /research", api.NewSubmitHandler(deps.Orchestrator, deps.Logger))
	mux.HandleFunc("GET /research/{task_id}", api.NewTaskStatusHandler(deps.Orchestrator, deps.Logger))
	mux.HandleFunc("GET /health", api.NewHealthHandler(deps.Config, deps.Counter, deps.Queue, deps.Logger))

	return applyMiddleware(mux, deps.Logger)
}

// applyMiddleware wraps the handler with all necessary middleware
func applyMiddleware(handler http.Handler, lg *logger.Logger) http.Handler {
	// last applied = first executed
	wrapped := handler
	wrapped = middleware.RecoveryMiddleware(lg)(wrapped)
	wrapped = middleware.LoggingMiddleware(lg)(wrapped)
	return wrapped
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", map[string]any{
			"address": ln.Addr().String(),
		})
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			s.logger.Error("Server failed", map[string]any{
				"error": err.Error(),
			})
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	return s.shutdown()
}

// shutdown stops the listener, then drains background work, all within
// the configured shutdown timeout.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Server forced to shutdown", map[string]any{
			"error": err.Error(),
		})
		errs = append(errs, err)
	}

	for _, d := range s.drainers {
		if err := d.Drain(ctx); err != nil {
			s.logger.Warn("background work not drained", map[string]any{
				"error": err.Error(),
			})
			errs = append(errs, err)
		}
	}

	s.logger.Info("Server shutdown complete")
	return errors.Join(errs...)
}
