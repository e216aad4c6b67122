// Package config loads workflow settings from YAML with environment
// overrides.
//
// Priority: defaults, then the YAML file (with ${VAR} expansion), then
// POCKETFLOW_* environment variables. An empty llm.api_key falls back to the
// vendor variable of the provider (OPENAI_API_KEY, GOOGLE_API_KEY).
//
//	cfg, err := config.Load("pocketflow.yaml")
//	node := core.NewNode(base, cfg.NodeOptions("summarize")...)
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/alt-coder/pocketflow-go/v2/core"
	"github.com/alt-coder/pocketflow-go/v2/llm"
)

// Config is the complete configuration of a workflow application.
type Config struct {
	Engine  EngineConfig          `yaml:"engine"`
	Nodes   map[string]NodeConfig `yaml:"nodes"`
	LLM     llm.Config            `yaml:"llm"`
	Logging LoggingConfig         `yaml:"logging"`
	Metrics MetricsConfig         `yaml:"metrics"`
	Tracing TracingConfig         `yaml:"tracing"`
}

// EngineConfig holds the retry defaults applied to every node.
type EngineConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	Wait       time.Duration `yaml:"wait"`
}

// NodeConfig overrides the engine defaults for one named node. Unset fields
// keep the defaults.
type NodeConfig struct {
	MaxRetries *int           `yaml:"max_retries"`
	Wait       *time.Duration `yaml:"wait"`
	Strategy   string         `yaml:"strategy"` // single, sequential or parallel
	Params     map[string]any `yaml:"params"`
}

// LoggingConfig selects the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"` // console encoding
}

// MetricsConfig controls the prometheus observer.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// TracingConfig controls the stdout OpenTelemetry exporter.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Output      string `yaml:"output"` // file path, empty for stdout
	ServiceName string `yaml:"service_name"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{MaxRetries: 1},
		Nodes:  map[string]NodeConfig{},
		LLM: llm.Config{
			Provider:          "mock",
			Temperature:       0.7,
			RateLimitInterval: time.Minute,
		},
		Logging: LoggingConfig{Level: "info"},
		Metrics: MetricsConfig{Namespace: "pocketflow"},
		Tracing: TracingConfig{ServiceName: "pocketflow"},
	}
}

// Load reads and validates the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults, expanding ${VAR} references, applies
// environment overrides and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if cfg.Nodes == nil {
		cfg.Nodes = map[string]NodeConfig{}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv returns the defaults with environment overrides applied.
func FromEnv() (*Config, error) {
	cfg := Default()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// providerKeyEnv names the vendor variable consulted when no API key is
// configured for the provider.
var providerKeyEnv = map[string]string{
	"openai": "OPENAI_API_KEY",
	"gemini": "GOOGLE_API_KEY",
}

func (c *Config) applyEnv() {
	c.Engine.MaxRetries = getEnvIntOrDefault("POCKETFLOW_MAX_RETRIES", c.Engine.MaxRetries)
	c.Engine.Wait = getEnvDurationOrDefault("POCKETFLOW_WAIT", c.Engine.Wait)
	c.LLM.Provider = getEnvOrDefault("POCKETFLOW_LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = getEnvOrDefault("POCKETFLOW_LLM_MODEL", c.LLM.Model)
	c.LLM.APIKey = getEnvOrDefault("POCKETFLOW_LLM_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnvOrDefault("POCKETFLOW_LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Temperature = getEnvFloatOrDefault("POCKETFLOW_LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.MaxTokens = getEnvIntOrDefault("POCKETFLOW_LLM_MAX_TOKENS", c.LLM.MaxTokens)
	c.LLM.RateLimit = getEnvIntOrDefault("POCKETFLOW_LLM_RATE_LIMIT", c.LLM.RateLimit)
	c.LLM.RateLimitInterval = getEnvDurationOrDefault("POCKETFLOW_LLM_RATE_LIMIT_INTERVAL", c.LLM.RateLimitInterval)
	if key, ok := providerKeyEnv[c.LLM.Provider]; ok && c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv(key)
	}
	c.Logging.Level = getEnvOrDefault("POCKETFLOW_LOG_LEVEL", c.Logging.Level)
}

// Validate checks if the configuration is valid and complete
func (c *Config) Validate() error {
	var errs []error
	if c.Engine.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("engine.max_retries cannot be negative, got %d", c.Engine.MaxRetries))
	}
	if c.Engine.Wait < 0 {
		errs = append(errs, fmt.Errorf("engine.wait cannot be negative, got %v", c.Engine.Wait))
	}
	for name, node := range c.Nodes {
		if node.MaxRetries != nil && *node.MaxRetries < 0 {
			errs = append(errs, fmt.Errorf("nodes.%s.max_retries cannot be negative, got %d", name, *node.MaxRetries))
		}
		if node.Wait != nil && *node.Wait < 0 {
			errs = append(errs, fmt.Errorf("nodes.%s.wait cannot be negative, got %v", name, *node.Wait))
		}
		if _, ok := core.ParseStrategy(node.Strategy); !ok {
			errs = append(errs, fmt.Errorf("nodes.%s.strategy: unknown strategy %q", name, node.Strategy))
		}
	}
	switch c.LLM.Provider {
	case "mock", "openai", "gemini":
	default:
		errs = append(errs, fmt.Errorf("llm.provider: unknown provider %q", c.LLM.Provider))
	}
	if c.LLM.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("llm.rate_limit cannot be negative, got %d", c.LLM.RateLimit))
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	return errors.Join(errs...)
}

// getEnvOrDefault returns the environment variable value or a default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns the environment variable as int or default if not set/invalid
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(parsed)
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
