package gemini

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/alt-coder/pocketflow-go/v2/llm"
)

const defaultModel = "gemini-2.0-flash"

// Config holds the Gemini client settings.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int           // 0 uses the model default
	Backend     genai.Backend // genai.BackendGeminiAPI unless set
	BaseURL     string        // optional endpoint override

	RateLimit         int // requests per RateLimitInterval, 0 disables it
	RateLimitInterval time.Duration
}

// FromLLMConfig builds a Config from the provider-neutral settings.
func FromLLMConfig(c llm.Config) *Config {
	cfg := &Config{
		APIKey:            c.APIKey,
		Model:             c.Model,
		Temperature:       c.Temperature,
		MaxTokens:         c.MaxTokens,
		Backend:           genai.BackendGeminiAPI,
		BaseURL:           c.BaseURL,
		RateLimit:         c.RateLimit,
		RateLimitInterval: c.RateLimitInterval,
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.RateLimitInterval == 0 {
		cfg.RateLimitInterval = time.Minute
	}
	return cfg
}

func (c *Config) Validate() error {
	var errs []error
	if c.APIKey == "" {
		errs = append(errs, errors.New("api key is required, set llm.api_key or GOOGLE_API_KEY"))
	}
	if c.Model == "" {
		errs = append(errs, errors.New("model name cannot be empty"))
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		errs = append(errs, fmt.Errorf("temperature must be between 0.0 and 1.0, got %g", c.Temperature))
	}
	if c.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("max tokens cannot be negative, got %d", c.MaxTokens))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate limit cannot be negative, got %d", c.RateLimit))
	}
	if c.RateLimit > 0 && c.RateLimitInterval <= 0 {
		errs = append(errs, fmt.Errorf("rate limit interval must be positive when rate limiting is enabled, got %v", c.RateLimitInterval))
	}
	return errors.Join(errs...)
}
