package tracing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/alt-coder/pocketflow-go/v2/core"
)

type noop struct {
	core.NoOp[core.Shared, any, any]
}

func TestInit_WritesSpansToFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "spans.json")
	require.NoError(t, Init("pocketflow-test", "0.0.1", fname))
	t.Cleanup(func() { _ = Shutdown(context.Background()) })

	_, err := core.NewNode[core.Shared, any, any](&noop{}, core.WithName("traced")).
		Run(context.Background(), &core.Shared{}, nil)
	require.NoError(t, err)
	require.NoError(t, Shutdown(context.Background()))

	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Name":"traced"`)
	assert.Contains(t, string(data), "pocketflow.run_id")
}

func TestInitWithExporter_FirstWins(t *testing.T) {
	first := tracetest.NewInMemoryExporter()
	second := tracetest.NewInMemoryExporter()
	require.NoError(t, InitWithExporter("svc", "1", first))
	t.Cleanup(func() { _ = Shutdown(context.Background()) })
	require.NoError(t, InitWithExporter("svc", "1", second))
	require.NoError(t, InitWithExporter("svc", "1", nil))
	require.NotNil(t, Provider())

	a := core.NewNode[core.Shared, any, any](&noop{}, core.WithName("a"))
	a.Then(core.NewNode[core.Shared, any, any](&noop{}, core.WithName("b")))
	_, err := core.NewFlow[core.Shared](a).Run(context.Background(), &core.Shared{}, nil)
	require.NoError(t, err)

	spans := first.GetSpans()
	require.Len(t, spans, 3)
	assert.Empty(t, second.GetSpans())
	for _, s := range spans {
		assert.Contains(t, []string{"flow", "a", "b"}, s.Name)
	}
}

func TestShutdown_WithoutInit(t *testing.T) {
	assert.NoError(t, Shutdown(context.Background()))
	assert.Nil(t, Provider())
}
