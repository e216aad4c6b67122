package config

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alt-coder/pocketflow-go/v2/core"
	"github.com/alt-coder/pocketflow-go/v2/llm"
	"github.com/alt-coder/pocketflow-go/v2/llm/gemini"
	"github.com/alt-coder/pocketflow-go/v2/llm/openai"
	"github.com/alt-coder/pocketflow-go/v2/observe"
	"github.com/alt-coder/pocketflow-go/v2/tracing"
)

// NodeOptions returns the construction options for the node called name:
// its name, the engine retry defaults overlaid by the node's own entry, and
// its default params.
func (c *Config) NodeOptions(name string, extra ...core.Option) []core.Option {
	retries, wait := c.Engine.MaxRetries, c.Engine.Wait
	node := c.Nodes[name]
	if node.MaxRetries != nil {
		retries = *node.MaxRetries
	}
	if node.Wait != nil {
		wait = *node.Wait
	}

	opts := []core.Option{core.WithName(name), core.WithRetry(core.NewRetryPolicy(retries, wait))}
	if len(node.Params) > 0 {
		opts = append(opts, core.WithParams(node.Params))
	}
	return append(opts, extra...)
}

// Strategy returns the batch strategy configured for the node called name,
// or fallback when none is set.
func (c *Config) Strategy(name string, fallback core.Strategy) core.Strategy {
	node, ok := c.Nodes[name]
	if !ok || node.Strategy == "" {
		return fallback
	}
	s, ok := core.ParseStrategy(node.Strategy)
	if !ok {
		return fallback
	}
	return s
}

// NewLogger builds the zap logger described by the logging section.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if c.Logging.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoding = "console"
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      c.Logging.Development,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return zapConfig.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}

// NewProvider creates the LLM provider named by llm.provider.
func (c *Config) NewProvider(ctx context.Context) (llm.Provider, error) {
	switch c.LLM.Provider {
	case "mock":
		return llm.NewMockProvider("mock"), nil
	case "openai":
		return openai.NewClient(openai.FromLLMConfig(c.LLM))
	case "gemini":
		return gemini.NewClient(ctx, gemini.FromLLMConfig(c.LLM))
	default:
		return nil, fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
}

// Observer composes the engine observers: a zap logger observer, plus
// prometheus metrics registered with reg when metrics are enabled.
func (c *Config) Observer(logger *zap.Logger, reg prometheus.Registerer) core.Observer {
	observers := []core.Observer{observe.NewLogger(logger)}
	if c.Metrics.Enabled {
		observers = append(observers, observe.NewMetrics(c.Metrics.Namespace, reg))
	}
	return observe.Multi(observers...)
}

// InitTracing installs the stdout trace exporter when tracing is enabled.
func (c *Config) InitTracing(version string) error {
	if !c.Tracing.Enabled {
		return nil
	}
	return tracing.Init(c.Tracing.ServiceName, version, c.Tracing.Output)
}
