// Package tracing installs the OpenTelemetry tracer provider that workflow
// runs report their spans to. Nodes and flows use the global provider unless
// core.WithTracerProvider overrides it.
package tracing

import (
	"context"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var (
	mu       sync.Mutex
	provider *sdktrace.TracerProvider
	output   io.Closer
)

// Init configures OpenTelemetry with the stdout exporter. An empty
// outputFile writes to os.Stdout. Only the first successful call installs a
// provider; later calls are no-ops until Shutdown.
func Init(serviceName, serviceVersion, outputFile string) error {
	mu.Lock()
	installed := provider != nil
	mu.Unlock()
	if installed {
		return nil
	}

	var w io.Writer = os.Stdout
	var closer io.Closer
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return err
		}
		w, closer = f, f
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return err
	}
	if err := install(serviceName, serviceVersion, exporter, closer); err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return err
	}
	return nil
}

// InitWithExporter configures OpenTelemetry using the supplied exporter, for
// example an OTLP one. A nil exporter is a no-op.
func InitWithExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) error {
	if exporter == nil {
		return nil
	}
	return install(serviceName, serviceVersion, exporter, nil)
}

func install(serviceName, serviceVersion string, exporter sdktrace.SpanExporter, closer io.Closer) error {
	mu.Lock()
	defer mu.Unlock()
	if provider != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return err
	}

	provider = sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	)
	output = closer
	otel.SetTracerProvider(provider)
	return nil
}

// Provider returns the installed provider, or nil before Init.
func Provider() *sdktrace.TracerProvider {
	mu.Lock()
	defer mu.Unlock()
	return provider
}

// Shutdown flushes and stops the installed provider. Init may be called
// again afterwards.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	tp, out := provider, output
	provider, output = nil, nil
	mu.Unlock()

	if tp == nil {
		return nil
	}
	err := tp.Shutdown(ctx)
	if out != nil {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
