// Package config loads the runtime configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/scoobiii/HVMx/internal/core"
)

// Config holds all runtime configuration.
type Config struct {
	Runtime RuntimeConfig `yaml:"runtime"`
	Book    BookConfig    `yaml:"book"`
	Logging LoggingConfig `yaml:"logging"`
}

// RuntimeConfig sizes the arena and the worker pool.
type RuntimeConfig struct {
	HeapWords    uint64 `yaml:"heap_words"`
	MaxHeapWords uint64 `yaml:"max_heap_words"`
	Workers      int    `yaml:"workers"`
	MaxSteps     uint64 `yaml:"max_steps"`
}

// BookConfig locates the definition book.
type BookConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns a single-worker configuration with the default
// arena sizing.
func DefaultConfig() *Config {
	nc := core.DefaultNetConfig()
	return &Config{
		Runtime: RuntimeConfig{
			HeapWords:    nc.HeapWords,
			MaxHeapWords: nc.MaxHeapWords,
			Workers:      nc.Workers,
		},
		Logging: LoggingConfig{Level: "info", JSON: true},
	}
}

// Load reads a YAML config from path over the defaults. A missing file
// yields the defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, cfg.Validate()
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies HVMX_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("HVMX_HEAP_WORDS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Runtime.HeapWords = n
		}
	}
	if v := os.Getenv("HVMX_MAX_HEAP_WORDS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Runtime.MaxHeapWords = n
		}
	}
	if v := os.Getenv("HVMX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Runtime.Workers = n
		}
	}
	if v := os.Getenv("HVMX_MAX_STEPS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Runtime.MaxSteps = n
		}
	}
	if v := os.Getenv("HVMX_BOOK"); v != "" {
		c.Book.Path = v
	}
	if v := os.Getenv("HVMX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration for usable values.
func (c *Config) Validate() error {
	if c.Runtime.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1, got %d", core.ErrBadConfig, c.Runtime.Workers)
	}
	if c.Runtime.HeapWords < 2 {
		return fmt.Errorf("%w: heap of %d words is too small", core.ErrBadConfig, c.Runtime.HeapWords)
	}
	if c.Runtime.MaxHeapWords < c.Runtime.HeapWords {
		return fmt.Errorf("%w: max heap %d below initial heap %d",
			core.ErrBadConfig, c.Runtime.MaxHeapWords, c.Runtime.HeapWords)
	}
	return nil
}

// NetConfig translates the runtime section into a net configuration.
func (c *Config) NetConfig() core.NetConfig {
	return core.NetConfig{
		HeapWords:    c.Runtime.HeapWords,
		MaxHeapWords: c.Runtime.MaxHeapWords,
		Workers:      c.Runtime.Workers,
	}
}
