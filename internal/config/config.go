// Package config loads the coordinator's tunables: defaults, then an
// optional YAML file overlay, then environment variable overrides,
// then validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every DTQ_* tunable the server process recognizes.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Queue  QueueConfig  `yaml:"queue"`
	Auth   AuthConfig   `yaml:"auth"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// QueueConfig configures the coordination core.
type QueueConfig struct {
	WorkerDeadAfterSeconds int `yaml:"worker_dead_after_seconds"`
	TaskLeaseSeconds       int `yaml:"task_lease_seconds"`
	SweepIntervalSeconds   int `yaml:"sweep_interval_seconds"`
}

// AuthConfig carries the per-role shared secrets.
type AuthConfig struct {
	ClientAPIKey string `yaml:"client_api_key"`
	WorkerAPIKey string `yaml:"worker_api_key"`
}

// Load builds a Config from defaults, an optional YAML file named by
// DTQ_CONFIG_FILE (if it exists), then environment variable overrides,
// then validates the result.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("DTQ_CONFIG_FILE"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8000",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Queue: QueueConfig{
			WorkerDeadAfterSeconds: 15,
			TaskLeaseSeconds:       20,
			SweepIntervalSeconds:   2,
		},
		Auth: AuthConfig{
			ClientAPIKey: "client-dev-key",
			WorkerAPIKey: "worker-dev-key",
		},
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DTQ_HTTP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v, ok := getEnvInt("DTQ_WORKER_DEAD_AFTER_SECONDS"); ok {
		c.Queue.WorkerDeadAfterSeconds = v
	}
	if v, ok := getEnvInt("DTQ_TASK_LEASE_SECONDS"); ok {
		c.Queue.TaskLeaseSeconds = v
	}
	if v, ok := getEnvInt("DTQ_SWEEP_INTERVAL_SECONDS"); ok {
		c.Queue.SweepIntervalSeconds = v
	}
	if v := os.Getenv("DTQ_CLIENT_API_KEY"); v != "" {
		c.Auth.ClientAPIKey = v
	}
	if v := os.Getenv("DTQ_WORKER_API_KEY"); v != "" {
		c.Auth.WorkerAPIKey = v
	}
}

func getEnvInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Validate rejects out-of-range tunables before the server starts.
func (c *Config) Validate() error {
	if c.Queue.WorkerDeadAfterSeconds <= 0 {
		return fmt.Errorf("queue.worker_dead_after_seconds must be positive")
	}
	if c.Queue.TaskLeaseSeconds <= 0 {
		return fmt.Errorf("queue.task_lease_seconds must be positive")
	}
	if c.Queue.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("queue.sweep_interval_seconds must be positive")
	}
	if c.Auth.ClientAPIKey == "" || c.Auth.WorkerAPIKey == "" {
		return fmt.Errorf("auth.client_api_key and auth.worker_api_key must be set")
	}
	return nil
}
