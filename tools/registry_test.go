package tools

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alt-coder/pocketflow-go/v2/llm"
)

type weatherInput struct {
	City  string  `json:"city" description:"City name"`
	Units *string `json:"units" enum:"metric, imperial"`
	Days  int     `json:"days" default:"1"`
	skip  bool
}

type weatherOutput struct {
	City   string `json:"city"`
	Days   int    `json:"days"`
	Metric bool   `json:"metric"`
}

func weather(_ context.Context, in weatherInput) (weatherOutput, error) {
	return weatherOutput{City: in.City, Days: in.Days, Metric: in.Units == nil || *in.Units == "metric"}, nil
}

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, Register(r, "weather", "Get the forecast", weather))
	require.NoError(t, Register(r, "echo", "Echo text", func(_ context.Context, in struct {
		Text string `json:"text"`
	}) (string, error) {
		return in.Text, nil
	}))
	return r
}

func TestRegistry_Definitions(t *testing.T) {
	r := newRegistry(t)

	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "weather", defs[0].Name)
	assert.Equal(t, "echo", defs[1].Name)

	schema := defs[0].Parameters
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"city"}, schema["required"])

	props := schema["properties"].(map[string]any)
	assert.Len(t, props, 3)
	assert.Equal(t, map[string]any{"type": "string", "description": "City name"}, props["city"])
	assert.Equal(t, []string{"metric", "imperial"}, props["units"].(map[string]any)["enum"])
	assert.Equal(t, "integer", props["days"].(map[string]any)["type"])
	assert.Equal(t, 1, props["days"].(map[string]any)["default"])
}

func TestRegistry_Execute(t *testing.T) {
	r := newRegistry(t)

	tests := []struct {
		name    string
		call    llm.ToolCall
		content string
		errMsg  string
	}{
		{
			name:    "defaults applied",
			call:    llm.ToolCall{ID: "1", Name: "weather", Args: map[string]any{"city": "Oslo"}},
			content: `{"city":"Oslo","days":1,"metric":true}`,
		},
		{
			name:    "enum value",
			call:    llm.ToolCall{ID: "2", Name: "weather", Args: map[string]any{"city": "Austin", "units": "imperial", "days": 3.0}},
			content: `{"city":"Austin","days":3,"metric":false}`,
		},
		{
			name:    "string output",
			call:    llm.ToolCall{ID: "3", Name: "echo", Args: map[string]any{"text": "hi"}},
			content: "hi",
		},
		{
			name:   "missing required",
			call:   llm.ToolCall{ID: "4", Name: "weather", Args: map[string]any{}},
			errMsg: `required parameter "city" is missing`,
		},
		{
			name:   "bad enum",
			call:   llm.ToolCall{ID: "5", Name: "weather", Args: map[string]any{"city": "Rome", "units": "kelvin"}},
			errMsg: "is not one of",
		},
		{
			name:   "wrong type",
			call:   llm.ToolCall{ID: "6", Name: "weather", Args: map[string]any{"city": 42}},
			errMsg: "decode arguments",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := r.Execute(context.Background(), tt.call)
			if tt.errMsg != "" {
				assert.ErrorContains(t, err, tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.call.ID, result.ID)
			assert.Equal(t, tt.call.Name, result.Name)
			assert.False(t, result.IsError)
			assert.JSONEq(t, jsonOrString(tt.content), jsonOrString(result.Content))
		})
	}
}

// jsonOrString quotes plain text so JSONEq can compare both kinds of output.
func jsonOrString(s string) string {
	if len(s) > 0 && s[0] == '{' {
		return s
	}
	return fmt.Sprintf("%q", s)
}

func TestRegistry_HandlerError(t *testing.T) {
	errQuota := errors.New("quota exceeded")
	r := NewRegistry()
	require.NoError(t, Register(r, "search", "", func(context.Context, struct{}) (string, error) {
		return "", errQuota
	}))

	_, err := r.Execute(context.Background(), llm.ToolCall{Name: "search"})
	assert.ErrorIs(t, err, errQuota)
}

func TestRegistry_RegisterErrors(t *testing.T) {
	r := newRegistry(t)

	assert.ErrorContains(t, Register(r, "weather", "", weather), "already registered")
	assert.Error(t, Register(r, "", "", weather))
	assert.ErrorContains(t, Register[string, string](r, "bad", "", func(context.Context, string) (string, error) {
		return "", nil
	}), "must be a struct")
	assert.ErrorContains(t, Register(r, "chan", "", func(context.Context, struct {
		C chan int `json:"c"`
	}) (string, error) {
		return "", nil
	}), "unsupported type")
	var nilHandler func(context.Context, weatherInput) (string, error)
	assert.Error(t, Register(r, "nil", "", nilHandler))
}

func TestRegistry_RemoveAndNotFound(t *testing.T) {
	r := newRegistry(t)

	require.NoError(t, r.Remove("echo"))
	assert.False(t, r.Has("echo"))
	assert.True(t, r.Has("weather"))
	assert.Len(t, r.Definitions(), 1)
	assert.ErrorIs(t, r.Remove("echo"), ErrToolNotFound)

	_, err := r.Execute(context.Background(), llm.ToolCall{Name: "echo"})
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestChain(t *testing.T) {
	local := NewRegistry()
	require.NoError(t, Register(local, "echo", "local echo", func(_ context.Context, in struct {
		Text string `json:"text"`
	}) (string, error) {
		return "local:" + in.Text, nil
	}))
	remote := NewRegistry()
	require.NoError(t, Register(remote, "echo", "remote echo", func(context.Context, struct{}) (string, error) {
		return "remote", nil
	}))
	require.NoError(t, Register(remote, "time", "remote time", func(context.Context, struct{}) (string, error) {
		return "noon", nil
	}))

	c := Chain(local, remote)

	defs := c.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "local echo", defs[0].Description)
	assert.Equal(t, "time", defs[1].Name)

	result, err := c.Execute(context.Background(), llm.ToolCall{Name: "echo", Args: map[string]any{"text": "x"}})
	require.NoError(t, err)
	assert.Equal(t, "local:x", result.Content)

	result, err = c.Execute(context.Background(), llm.ToolCall{Name: "time"})
	require.NoError(t, err)
	assert.Equal(t, "noon", result.Content)

	_, err = c.Execute(context.Background(), llm.ToolCall{Name: "missing"})
	assert.ErrorIs(t, err, ErrToolNotFound)
}
