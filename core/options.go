package core

import (
	"time"

	"go.opentelemetry.io/otel/trace"
)

// settings collects the construction options shared by nodes and flows.
type settings struct {
	name           string
	retry          RetryPolicy
	params         Params
	observer       Observer
	tracerProvider trace.TracerProvider
}

func newSettings(defaultName string, opts []Option) *settings {
	s := &settings{
		name:   defaultName,
		retry:  DefaultRetryPolicy(),
		params: Params{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.retry = s.retry.Normalize()
	return s
}

// Option configures a node or flow at construction.
type Option func(*settings)

// WithName sets the name used in events, spans and errors.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithMaxRetries sets the number of Exec attempts before falling back.
// Values below 1 are treated as 1.
func WithMaxRetries(n int) Option {
	return func(s *settings) {
		s.retry.MaxRetries = n
	}
}

// WithWait sets the fixed delay between attempts. Negative values are treated as 0.
func WithWait(d time.Duration) Option {
	return func(s *settings) {
		s.retry.Wait = d
	}
}

// WithRetry sets the whole retry policy.
func WithRetry(p RetryPolicy) Option {
	return func(s *settings) {
		s.retry = p
	}
}

// WithParams sets the default params. The map is copied.
func WithParams(p Params) Option {
	return func(s *settings) {
		s.params = p.Clone()
	}
}

// WithObserver sets the event sink. Nested workflows without their own
// observer inherit the one of the workflow that runs them.
func WithObserver(o Observer) Option {
	return func(s *settings) {
		s.observer = o
	}
}

// WithTracerProvider sets the provider used for Run spans. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *settings) {
		s.tracerProvider = tp
	}
}
