package openai

import (
	"errors"
	"fmt"
	"time"

	"github.com/alt-coder/pocketflow-go/v2/llm"
)

const (
	defaultModel   = "gpt-4o"
	defaultBaseURL = "https://api.openai.com/v1"
)

// Config holds the OpenAI client settings. Environment handling lives in
// the config package; retries are left to the node running the client.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	BaseURL     string
	OrgID       string

	// RateLimit is the number of requests per RateLimitInterval, 0 disables it.
	RateLimit         int
	RateLimitInterval time.Duration

	MaxTokens        int // 0 leaves the limit to the API
	TopP             float32
	FrequencyPenalty float32
	PresencePenalty  float32
}

// FromLLMConfig builds a Config from the provider-neutral settings. The
// sampling penalties stay at zero and TopP at 1.
func FromLLMConfig(c llm.Config) *Config {
	cfg := &Config{
		APIKey:            c.APIKey,
		Model:             c.Model,
		Temperature:       c.Temperature,
		BaseURL:           c.BaseURL,
		RateLimit:         c.RateLimit,
		RateLimitInterval: c.RateLimitInterval,
		MaxTokens:         c.MaxTokens,
		TopP:              1.0,
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.RateLimitInterval == 0 {
		cfg.RateLimitInterval = time.Minute
	}
	return cfg
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.APIKey == "" {
		errs = append(errs, errors.New("api key is required, set llm.api_key or OPENAI_API_KEY"))
	}
	if c.Model == "" {
		errs = append(errs, errors.New("model name cannot be empty"))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be between 0.0 and 2.0, got %g", c.Temperature))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate limit cannot be negative, got %d", c.RateLimit))
	}
	if c.RateLimit > 0 && c.RateLimitInterval <= 0 {
		errs = append(errs, fmt.Errorf("rate limit interval must be positive when rate limiting is enabled, got %v", c.RateLimitInterval))
	}
	if c.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("max tokens cannot be negative, got %d", c.MaxTokens))
	}
	if c.TopP < 0 || c.TopP > 1 {
		errs = append(errs, fmt.Errorf("top_p must be between 0.0 and 1.0, got %g", c.TopP))
	}
	for name, v := range map[string]float32{"frequency": c.FrequencyPenalty, "presence": c.PresencePenalty} {
		if v < -2 || v > 2 {
			errs = append(errs, fmt.Errorf("%s penalty must be between -2.0 and 2.0, got %g", name, v))
		}
	}
	return errors.Join(errs...)
}
