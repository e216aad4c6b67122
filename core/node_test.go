package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParams_Merge(t *testing.T) {
	defaults := Params{"a": 1, "b": 2}
	runtime := Params{"b": 3, "c": 4}

	merged := defaults.Merge(runtime)

	assert.Equal(t, Params{"a": 1, "b": 3, "c": 4}, merged)
	assert.Equal(t, Params{"a": 1, "b": 2}, defaults, "defaults must not be modified")
	assert.Equal(t, Params{"b": 3, "c": 4}, runtime, "runtime params must not be modified")
}

func TestParams_MergeProperty(t *testing.T) {
	gen := rapid.MapOf(rapid.StringMatching(`[a-d]`), rapid.Int())
	rapid.Check(t, func(t *rapid.T) {
		defaults := Params{}
		for k, v := range gen.Draw(t, "defaults") {
			defaults[k] = v
		}
		runtime := Params{}
		for k, v := range gen.Draw(t, "runtime") {
			runtime[k] = v
		}

		merged := defaults.Merge(runtime)
		for k, v := range runtime {
			if merged[k] != v {
				t.Fatalf("key %q: runtime value %v lost, got %v", k, v, merged[k])
			}
		}
		for k, v := range defaults {
			if _, overridden := runtime[k]; !overridden && merged[k] != v {
				t.Fatalf("key %q: default value %v lost, got %v", k, v, merged[k])
			}
		}
		if len(merged) > len(defaults)+len(runtime) {
			t.Fatalf("merged has extra keys: %v", merged)
		}
	})
}

func TestParams_Accessors(t *testing.T) {
	p := Params{"name": "alice", "count": 3, "ratio": 0.5, "on": true, "float_count": 2.0}

	assert.Equal(t, "alice", p.String("name"))
	assert.Equal(t, "3", p.String("count"))
	assert.Equal(t, "", p.String("missing"))
	assert.Equal(t, 3, p.Int("count", 0))
	assert.Equal(t, 2, p.Int("float_count", 0))
	assert.Equal(t, 7, p.Int("name", 7))
	assert.Equal(t, 0.5, p.Float("ratio", 0))
	assert.True(t, p.Bool("on", false))
	assert.False(t, p.Bool("missing", false))
}

func TestNode_ExecSeesMergedParams(t *testing.T) {
	var seen Params
	node := NewNode[Shared, any, any](&funcNode{
		exec: func(_ context.Context, _ any, params Params, _ int) (any, error) {
			seen = params
			return nil, nil
		},
	}).SetParams(Params{"a": 1, "b": 2})

	_, err := node.Run(context.Background(), &Shared{}, Params{"b": 3, "c": 4})

	require.NoError(t, err)
	assert.Equal(t, Params{"a": 1, "b": 3, "c": 4}, seen)
	assert.Equal(t, Params{"a": 1, "b": 2}, node.Params())
}

func TestNode_ActionNormalization(t *testing.T) {
	tests := []struct {
		name     string
		post     Action
		expected Action
	}{
		{name: "empty becomes default", post: "", expected: ActionDefault},
		{name: "default stays default", post: ActionDefault, expected: ActionDefault},
		{name: "custom label", post: "approve", expected: "approve"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := NewNode[Shared, any, any](&funcNode{
				post: func(context.Context, *Shared, any, any, Params) (Action, error) {
					return tt.post, nil
				},
			})
			action, err := node.Run(context.Background(), &Shared{}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, action)
		})
	}
}

func TestNode_LifecycleOrder(t *testing.T) {
	steps := &trail{}
	node := NewNode[Shared, any, any](&funcNode{
		prep: func(_ context.Context, state *Shared, _ Params) (any, error) {
			steps.add("prep")
			return (*state)["input"], nil
		},
		exec: func(_ context.Context, prep any, _ Params, _ int) (any, error) {
			steps.add("exec")
			return prep.(int) * 2, nil
		},
		post: func(_ context.Context, state *Shared, prep, exec any, _ Params) (Action, error) {
			steps.add("post")
			(*state)["output"] = exec
			return ActionSuccess, nil
		},
	})

	state := Shared{"input": 21}
	action, err := node.Run(context.Background(), &state, nil)

	require.NoError(t, err)
	assert.Equal(t, ActionSuccess, action)
	assert.Equal(t, 42, state["output"])
	assert.Equal(t, []string{"prep", "exec", "post"}, steps.list())
}

func TestNode_PrepAndPostErrorsAreFatal(t *testing.T) {
	errPrep := errors.New("prep failed")
	errPost := errors.New("post failed")

	tests := []struct {
		name  string
		node  *funcNode
		err   error
		phase Phase
	}{
		{
			name: "prep",
			node: &funcNode{prep: func(context.Context, *Shared, Params) (any, error) {
				return nil, errPrep
			}},
			err:   errPrep,
			phase: PhasePrep,
		},
		{
			name: "post",
			node: &funcNode{post: func(context.Context, *Shared, any, any, Params) (Action, error) {
				return "", errPost
			}},
			err:   errPost,
			phase: PhasePost,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			execCalled := false
			tt.node.exec = func(context.Context, any, Params, int) (any, error) {
				execCalled = true
				return nil, nil
			}
			_, err := NewNode[Shared, any, any](tt.node, WithName("n")).Run(context.Background(), &Shared{}, nil)

			require.ErrorIs(t, err, tt.err)
			var nodeErr *NodeError
			require.ErrorAs(t, err, &nodeErr)
			assert.Equal(t, tt.phase, nodeErr.Phase)
			assert.Equal(t, "node n: "+string(tt.phase)+": "+tt.err.Error(), err.Error())
			assert.Equal(t, tt.phase == PhasePost, execCalled)
		})
	}
}

func TestNode_Successors(t *testing.T) {
	rec := &recorder{}
	a := NewNode[Shared, any, any](&funcNode{}, WithName("a"), WithObserver(rec))
	b := NewNode[Shared, any, any](&funcNode{}, WithName("b"))
	c := NewNode[Shared, any, any](&funcNode{}, WithName("c"))

	assert.Equal(t, b, a.Then(b))
	a.On("retry", a)
	a.AddSuccessor(c, "")

	assert.Equal(t, c, a.GetSuccessor(ActionDefault), "empty action is the default action")
	assert.Equal(t, c, a.GetSuccessor(""))
	assert.Equal(t, a, a.GetSuccessor("retry"))
	assert.Nil(t, a.GetSuccessor("missing"))
	assert.Len(t, a.Successors(), 2)

	overwrites := rec.kinds(EventSuccessorOverwritten)
	require.Len(t, overwrites, 1)
	assert.Equal(t, ActionDefault, overwrites[0].Action)
	assert.Contains(t, overwrites[0].Err.Error(), "from b to c")

	assert.Nil(t, a.AddSuccessor(nil))
	assert.Len(t, a.Successors(), 2)
}

func TestNode_RunWithSuccessorsWarns(t *testing.T) {
	rec := &recorder{}
	a := NewNode[Shared, any, any](&funcNode{}, WithName("a"), WithObserver(rec))
	b := NewNode[Shared, any, any](&funcNode{}, WithName("b"))
	a.Then(b)

	action, err := a.Run(context.Background(), &Shared{}, nil)

	require.NoError(t, err)
	assert.Equal(t, ActionDefault, action)
	ignored := rec.kinds(EventSuccessorsIgnored)
	require.Len(t, ignored, 1)
	assert.Equal(t, "a", ignored[0].Node)
	assert.NotEmpty(t, ignored[0].RunID)
}

func TestNode_SetMaxRetries(t *testing.T) {
	calls := 0
	node := NewNode[Shared, any, any](&funcNode{
		exec: func(context.Context, any, Params, int) (any, error) {
			calls++
			return nil, errors.New("boom")
		},
		fallback: func(context.Context, any, error, Params, int) (any, error) {
			return nil, nil
		},
	})
	node.SetMaxRetries(4)
	node.SetWait(-1)

	_, err := node.Run(context.Background(), &Shared{}, nil)

	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, RetryPolicy{MaxRetries: 4}, node.RetryPolicy())
}

type namedNode struct {
	NoOp[Shared, string, string]
}

func TestNode_DefaultName(t *testing.T) {
	assert.Equal(t, "namedNode", NewNode[Shared, string, string](&namedNode{}).Name())
	assert.Equal(t, "custom", NewNode[Shared, string, string](&namedNode{}, WithName("custom")).Name())
	assert.Equal(t, Single, NewNode[Shared, string, string](namedNode{}).Strategy())
}
