package llm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProvider_Echo(t *testing.T) {
	provider := NewMockProvider("test-mock")

	response, err := provider.CallLLM(context.Background(), []Message{UserMessage("Hello")})

	require.NoError(t, err)
	assert.Equal(t, RoleAssistant, response.Role)
	assert.Equal(t, "Mock response to: Hello", response.Content)
	assert.Equal(t, 1, provider.CallCount())
	assert.Equal(t, "test-mock", provider.Name())
}

func TestMockProvider_QueuedResponses(t *testing.T) {
	ctx := context.Background()
	messages := []Message{UserMessage("Test")}

	t.Run("run out then echo", func(t *testing.T) {
		provider := NewMockProvider("m").SetResponses("first", "second")
		var got []string
		for range 3 {
			r, err := provider.CallLLM(ctx, messages)
			require.NoError(t, err)
			got = append(got, r.Content)
		}
		assert.Equal(t, []string{"first", "second", "Mock response to: Test"}, got)
	})

	t.Run("cycle", func(t *testing.T) {
		provider := NewMockProvider("m").SetResponses("a", "b").Cycle()
		var got []string
		for range 5 {
			r, err := provider.CallLLM(ctx, messages)
			require.NoError(t, err)
			got = append(got, r.Content)
		}
		assert.Equal(t, []string{"a", "b", "a", "b", "a"}, got)
	})

	t.Run("tool calls", func(t *testing.T) {
		call := ToolCall{ID: "1", Name: "add", Args: map[string]any{"a": 1}}
		provider := NewMockProvider("m").SetMessages(Message{ToolCalls: []ToolCall{call}})
		r, err := provider.CallLLM(ctx, messages)
		require.NoError(t, err)
		assert.Equal(t, RoleAssistant, r.Role)
		assert.Equal(t, []ToolCall{call}, r.ToolCalls)
	})
}

func TestMockProvider_Patterns(t *testing.T) {
	provider := NewMockProvider("m").SetResponsePattern(map[string]string{"hello": "Hi there!"})

	r, err := provider.CallLLM(context.Background(), []Message{UserMessage("well HELLO you")})
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", r.Content)

	r, err = provider.CallLLM(context.Background(), []Message{UserMessage("bye")})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: bye", r.Content)
}

func TestMockProvider_Errors(t *testing.T) {
	ctx := context.Background()
	messages := []Message{UserMessage("x")}
	errAPI := errors.New("api down")

	t.Run("empty conversation", func(t *testing.T) {
		_, err := NewMockProvider("m").CallLLM(ctx, nil)
		assert.ErrorIs(t, err, ErrNoMessages)
	})

	t.Run("always", func(t *testing.T) {
		provider := NewMockProvider("m").SetError(errAPI)
		_, err := provider.CallLLM(ctx, messages)
		assert.ErrorIs(t, err, errAPI)
		provider.ClearError()
		_, err = provider.CallLLM(ctx, messages)
		assert.NoError(t, err)
	})

	t.Run("fail times", func(t *testing.T) {
		provider := NewMockProvider("m").SetResponses("ok").FailTimes(2, errAPI)
		for range 2 {
			_, err := provider.CallLLM(ctx, messages)
			assert.ErrorIs(t, err, errAPI)
		}
		r, err := provider.CallLLM(ctx, messages)
		require.NoError(t, err)
		assert.Equal(t, "ok", r.Content)
	})

	t.Run("delayed", func(t *testing.T) {
		provider := NewMockProvider("m").SetDelayedError(2, nil)
		for range 2 {
			_, err := provider.CallLLM(ctx, messages)
			assert.NoError(t, err)
		}
		_, err := provider.CallLLM(ctx, messages)
		assert.EqualError(t, err, "delayed simulated error")
	})
}

func TestMockProvider_ResetAndHistory(t *testing.T) {
	provider := NewMockProvider("m").SetResponses("a").SetError(errors.New("x"))
	_, _ = provider.CallLLM(context.Background(), []Message{UserMessage("one")})

	calls := provider.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "one", calls[0][0].Content)

	provider.Reset()
	assert.Zero(t, provider.CallCount())
	assert.Empty(t, provider.Calls())
	r, err := provider.CallLLM(context.Background(), []Message{UserMessage("two")})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: two", r.Content)
}

func TestMockProvider_ConcurrentCalls(t *testing.T) {
	provider := NewMockProvider("m")
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = provider.CallLLM(context.Background(), []Message{UserMessage("hi")})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, provider.CallCount())
}
