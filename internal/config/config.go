// Package config provides configuration loading for mcpd.
//
// Configuration is loaded from hardcoded defaults, then an optional YAML file,
// then environment variables, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate checks that the loaded configuration is internally consistent.
// Returns the first problem found; callers surface this as a startup error.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	if _, _, err := net.SplitHostPort(normalizeAddr(c.Server.Addr)); err != nil {
		return fmt.Errorf("invalid server.addr %q: %w", c.Server.Addr, err)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}
	if c.Server.MaxInFlight < 0 {
		return errors.New("server.max_in_flight must not be negative")
	}

	if c.Session.StdioTTL.Duration() <= 0 {
		return errors.New("session.stdio_ttl must be positive")
	}
	if c.Session.HTTPTTL.Duration() <= 0 {
		return errors.New("session.http_ttl must be positive")
	}
	if c.Session.SweepInterval.Duration() <= 0 {
		return errors.New("session.sweep_interval must be positive")
	}
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("session.backend must be 'memory' or 'redis', got %q", c.Session.Backend)
	}
	if c.Session.Backend == "redis" && c.Session.RedisAddr == "" {
		return errors.New("session.redis_addr required when session.backend is 'redis'")
	}

	if c.Queue.DefaultMaxParallelItems < 1 {
		return errors.New("queue.default_max_parallel_items must be at least 1")
	}
	switch c.Queue.LockBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("queue.lock_backend must be 'memory' or 'redis', got %q", c.Queue.LockBackend)
	}

	if c.Tools.DefaultDeadline.Duration() <= 0 {
		return errors.New("tools.default_deadline must be positive")
	}
	if c.Tools.LLMDeadline.Duration() <= 0 {
		return errors.New("tools.llm_deadline must be positive")
	}

	if c.Observability.ServiceName == "" {
		return errors.New("observability.service_name must not be empty")
	}
	switch strings.ToLower(c.Observability.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("observability.log_format must be 'json' or 'console', got %q", c.Observability.LogFormat)
	}

	for _, srv := range c.External.Servers {
		if srv.ID == "" {
			return errors.New("external server entries require a non-empty id")
		}
		if srv.Command == "" && srv.URL == "" {
			return fmt.Errorf("external server %q must set command or url", srv.ID)
		}
	}

	switch c.LLM.Provider {
	case "anthropic", "mock", "":
	default:
		return fmt.Errorf("llm.provider must be 'anthropic' or 'mock', got %q", c.LLM.Provider)
	}
	if c.LLM.Provider == "anthropic" && !c.LLM.APIKey.IsSet() {
		return errors.New("llm.api_key required when llm.provider is 'anthropic'")
	}

	switch c.Vector.Provider {
	case "chromem", "qdrant", "":
	default:
		return fmt.Errorf("vector.provider must be 'chromem' or 'qdrant', got %q", c.Vector.Provider)
	}
	if c.Vector.Provider == "qdrant" && c.Vector.QdrantURL == "" {
		return errors.New("vector.qdrant_url required when vector.provider is 'qdrant'")
	}

	if c.Temporal.Enabled && c.Temporal.HostPort == "" {
		return errors.New("temporal.host_port required when temporal.enabled is true")
	}

	return nil
}

func normalizeAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "0.0.0.0" + addr
	}
	return addr
}

// Defaults returns a Config populated with the hardcoded baseline settings.
// LoadWithFile layers a YAML file and environment variables on top of this.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			BasePath:        "/mcp",
			ShutdownTimeout: Duration(defaultShutdownTimeout),
			MaxInFlight:     16,
		},
		Session: SessionConfig{
			StdioTTL:      Duration(defaultStdioTTL),
			HTTPTTL:       Duration(defaultHTTPTTL),
			SweepInterval: Duration(defaultSweepInterval),
			Backend:       "memory",
		},
		Queue: QueueConfig{
			DefaultMaxParallelItems: 1,
			StreamName:              "MCPD_QUEUES",
			LockBackend:             "memory",
		},
		Tools: ToolsConfig{
			DefaultDeadline: Duration(defaultToolDeadline),
			LLMDeadline:     Duration(defaultLLMDeadline),
			Overrides:       map[string]Duration{},
		},
		Observability: ObservabilityConfig{
			ServiceName: "mcpd",
			LogLevel:    "info",
			LogFormat:   "json",
		},
		LLM: LLMConfig{
			Provider: "mock",
			Model:    "claude-sonnet-4-5",
		},
		Vector: VectorConfig{
			Provider:  "chromem",
			ChromPath: "~/.config/mcpd/vectorstore",
		},
		Temporal: TemporalConfig{
			Enabled:   false,
			Namespace: "default",
			TaskQueue: "mcpd-maintenance",
		},
	}
}
