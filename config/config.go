package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	QueueBackendMemory = "memory"
	QueueBackendRedis  = "redis"

	MinMaxResults = 1
	MaxMaxResults = 10
)

// Config holds all application configuration
type Config struct {
	ServerPort      int           `json:"server_port"`
	TaskTimeout     time.Duration `json:"task_timeout"`
	LogLevel        string        `json:"log_level"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	Version         string        `json:"version"`

	// Dispatch. Async switches from one goroutine per task to a worker pool fed by a queue.
	Async        bool   `json:"async"`
	QueueBackend string `json:"queue_backend"`
	RedisURL     string `json:"redis_url"`
	WorkerCount  int    `json:"worker_count"`
	QueueName    string `json:"queue_name"`

	DefaultMaxResults int `json:"default_max_results"`

	// Tool backends. Empty endpoints use the public services.
	BingAPIKey         string `json:"-"`
	BingEndpoint       string `json:"bing_endpoint,omitempty"`
	DuckDuckGoEndpoint string `json:"duckduckgo_endpoint,omitempty"`
	GeminiAPIKey       string `json:"-"`
	GeminiEndpoint     string `json:"gemini_endpoint,omitempty"`
	GeminiModel        string `json:"gemini_model"`
	OllamaURL          string `json:"ollama_url"`
	OllamaModel        string `json:"ollama_model"`

	ToolMaxAttempts int           `json:"tool_max_attempts"`
	ToolRetryDelay  time.Duration `json:"tool_retry_delay"`
	HTTPTimeout     time.Duration `json:"http_timeout"`
}

// LoadConfig loads configuration from environment variables with sensible defaults
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerPort:         getEnvInt("PORT", 8080),
		LogLevel:           getEnvString("LOG_LEVEL", "INFO"),
		TaskTimeout:        getEnvDuration("TASK_TIMEOUT", 5*time.Minute),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		Version:            getEnvString("VERSION", "1.0.0"),
		Async:              getEnvBool("ASYNC_MODE", false),
		QueueBackend:       getEnvString("QUEUE_BACKEND", QueueBackendMemory),
		RedisURL:           getEnvString("REDIS_URL", "redis://localhost:6379"),
		WorkerCount:        getEnvInt("WORKER_COUNT", 3),
		QueueName:          getEnvString("QUEUE_NAME", "research_jobs"),
		DefaultMaxResults:  getEnvInt("DEFAULT_MAX_RESULTS", 5),
		BingAPIKey:         getEnvString("BING_API_KEY", ""),
		BingEndpoint:       getEnvString("BING_ENDPOINT", ""),
		DuckDuckGoEndpoint: getEnvString("DUCKDUCKGO_ENDPOINT", ""),
		GeminiAPIKey:       getEnvString("GEMINI_API_KEY", ""),
		GeminiEndpoint:     getEnvString("GEMINI_ENDPOINT", ""),
		GeminiModel:        getEnvString("GEMINI_MODEL", "gemini-1.5-flash"),
		OllamaURL:          getEnvString("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:        getEnvString("OLLAMA_MODEL", "llama3"),
		ToolMaxAttempts:    getEnvInt("TOOL_MAX_ATTEMPTS", 3),
		ToolRetryDelay:     getEnvDuration("TOOL_RETRY_DELAY", time.Second),
		HTTPTimeout:        getEnvDuration("HTTP_TIMEOUT", 20*time.Second),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Address returns the server address in host:port format
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// DispatchMode names how submitted tasks are scheduled.
func (c *Config) DispatchMode() string {
	if c.Async {
		return "queue:" + c.QueueBackend
	}
	return "goroutine"
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validate re-runs validation, e.g. after CLI flags have overridden fields.
func (c *Config) Validate() error {
	return c.validate()
}

// validate performs basic validation of the configuration
func (c *Config) validate() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid server port %d: must be between 1 and 65535", c.ServerPort)
	}

	// Validate and normalize LogLevel
	validLevels := map[string]bool{
		"DEBUG": true, "INFO": true, "WARN": true, "ERROR": true, "FATAL": true,
	}
	upperLevel := strings.ToUpper(strings.TrimSpace(c.LogLevel))
	if !validLevels[upperLevel] {
		return fmt.Errorf("invalid log level '%s': must be DEBUG, INFO, WARN, ERROR, or FATAL", c.LogLevel)
	}
	c.LogLevel = upperLevel

	if c.TaskTimeout <= 0 {
		return fmt.Errorf("invalid task timeout %v: must be positive", c.TaskTimeout)
	}
	if c.TaskTimeout > 24*time.Hour {
		return fmt.Errorf("invalid task timeout %v: must not exceed 24 hours", c.TaskTimeout)
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout %v: must be positive", c.ShutdownTimeout)
	}
	if c.ShutdownTimeout > 5*time.Minute {
		return fmt.Errorf("invalid shutdown timeout %v: must not exceed 5 minutes", c.ShutdownTimeout)
	}

	if strings.TrimSpace(c.Version) == "" {
		return fmt.Errorf("version cannot be empty")
	}
	c.Version = strings.TrimSpace(c.Version)

	if c.DefaultMaxResults < MinMaxResults || c.DefaultMaxResults > MaxMaxResults {
		return fmt.Errorf("invalid default max results %d: must be between %d and %d",
			c.DefaultMaxResults, MinMaxResults, MaxMaxResults)
	}

	if c.ToolMaxAttempts < 1 {
		return fmt.Errorf("invalid tool max attempts %d: must be at least 1", c.ToolMaxAttempts)
	}
	if c.ToolRetryDelay < 0 {
		return fmt.Errorf("invalid tool retry delay %v: must not be negative", c.ToolRetryDelay)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("invalid http timeout %v: must be positive", c.HTTPTimeout)
	}

	for name, endpoint := range map[string]string{
		"bing endpoint":       c.BingEndpoint,
		"duckduckgo endpoint": c.DuckDuckGoEndpoint,
		"gemini endpoint":     c.GeminiEndpoint,
	} {
		if endpoint == "" {
			continue
		}
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, endpoint, err)
		}
	}

	if _, err := url.ParseRequestURI(c.OllamaURL); err != nil {
		return fmt.Errorf("invalid ollama URL '%s': %w", c.OllamaURL, err)
	}
	c.OllamaURL = strings.TrimRight(c.OllamaURL, "/")

	if c.Async {
		if c.WorkerCount < 1 {
			return fmt.Errorf("worker count must be at least 1 when async mode is enabled")
		}
		if strings.TrimSpace(c.QueueName) == "" {
			return fmt.Errorf("queue name cannot be empty when async mode is enabled")
		}
		switch c.QueueBackend {
		case QueueBackendMemory:
		case QueueBackendRedis:
			if strings.TrimSpace(c.RedisURL) == "" {
				return fmt.Errorf("redis URL cannot be empty when the redis queue backend is selected")
			}
		default:
			return fmt.Errorf("invalid queue backend '%s': must be %s or %s",
				c.QueueBackend, QueueBackendMemory, QueueBackendRedis)
		}
	}

	return nil
}
