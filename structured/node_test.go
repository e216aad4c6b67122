package structured

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alt-coder/pocketflow-go/v2/core"
	"github.com/alt-coder/pocketflow-go/v2/llm"
)

type resume struct {
	Name   string   `yaml:"name" description:"Candidate name"`
	Skills []string `yaml:"skills" description:"Technical skills"`
}

type screening struct {
	Text    string
	Parsed  resume
	Visited int
}

const resumeReply = "```yaml\nname: Ada Lovelace\nskills:\n  - math\n  - engines\n```"

func resumeNode(provider llm.Provider, opts ...ParseOption[screening, resume]) *ParseNode[screening, resume] {
	return NewParseNode(provider,
		func(s *screening, _ core.Params) (Request, error) {
			return Request{Input: s.Text, Context: []string{"Resume screening"}}, nil
		},
		func(s *screening, r resume, _ core.Params) (core.Action, error) {
			s.Parsed = r
			s.Visited++
			return core.ActionSuccess, nil
		},
		opts...,
	)
}

func TestParseNode_ParsesReply(t *testing.T) {
	mock := llm.NewMockProvider("mock").SetResponses(resumeReply)
	state := &screening{Text: "Ada Lovelace, mathematician"}

	action, err := core.NewNode[screening, Request, resume](resumeNode(mock, WithSystemPrompt[screening, resume]("You read resumes.")), core.WithName("resume")).
		Run(context.Background(), state, nil)

	require.NoError(t, err)
	assert.Equal(t, core.ActionSuccess, action)
	assert.Equal(t, resume{Name: "Ada Lovelace", Skills: []string{"math", "engines"}}, state.Parsed)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0], 2)
	assert.Equal(t, llm.RoleSystem, calls[0][0].Role)
	assert.Contains(t, calls[0][1].Content, "Ada Lovelace, mathematician")
	assert.Contains(t, calls[0][1].Content, "Resume screening")
	assert.Contains(t, calls[0][1].Content, "- skills: Technical skills")
}

func TestParseNode_RetriesProviderErrors(t *testing.T) {
	mock := llm.NewMockProvider("mock").FailTimes(2, nil).SetResponses(resumeReply)
	state := &screening{Text: "Ada"}

	_, err := core.NewNode[screening, Request, resume](resumeNode(mock), core.WithMaxRetries(3)).Run(context.Background(), state, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, mock.CallCount())
	assert.Equal(t, "Ada Lovelace", state.Parsed.Name)
}

func TestParseNode_RetriesUnparsableReply(t *testing.T) {
	mock := llm.NewMockProvider("mock").SetResponses("I would rather not", resumeReply)
	state := &screening{Text: "Ada"}

	_, err := core.NewNode[screening, Request, resume](resumeNode(mock), core.WithMaxRetries(2)).Run(context.Background(), state, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, mock.CallCount())
	assert.Equal(t, "Ada Lovelace", state.Parsed.Name)
}

func TestParseNode_ValidationFailureIsRetried(t *testing.T) {
	mock := llm.NewMockProvider("mock").SetResponses("```yaml\nname: \"\"\n```", resumeReply)
	requireName := ValidatorFunc[resume](func(r *resume) error {
		if strings.TrimSpace(r.Name) == "" {
			return errors.New("name is required")
		}
		return nil
	})
	state := &screening{Text: "Ada"}

	_, err := core.NewNode[screening, Request, resume](resumeNode(mock, WithValidator[screening](Validators[resume](NoOpValidator[resume]{}, requireName))),
		core.WithMaxRetries(2)).Run(context.Background(), state, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, mock.CallCount())
	assert.Equal(t, "Ada Lovelace", state.Parsed.Name)
}

func TestParseNode_Fallback(t *testing.T) {
	errAPI := errors.New("api down")
	mock := llm.NewMockProvider("mock").SetError(errAPI)
	var fallbackErr error
	state := &screening{Text: "Ada"}

	node := resumeNode(mock, WithFallback[screening](func(req Request, err error) (resume, error) {
		fallbackErr = err
		return resume{Name: "unknown: " + req.Input}, nil
	}))
	_, err := core.NewNode[screening, Request, resume](node, core.WithMaxRetries(2)).Run(context.Background(), state, nil)

	require.NoError(t, err)
	assert.ErrorIs(t, fallbackErr, errAPI)
	assert.Equal(t, "unknown: Ada", state.Parsed.Name)
	assert.Equal(t, 2, mock.CallCount())
}

func TestParseNode_FailsWithoutFallback(t *testing.T) {
	errAPI := errors.New("api down")
	mock := llm.NewMockProvider("mock").SetError(errAPI)
	state := &screening{Text: "Ada"}

	_, err := core.NewNode[screening, Request, resume](resumeNode(mock), core.WithName("resume")).Run(context.Background(), state, nil)

	require.ErrorIs(t, err, errAPI)
	var nodeErr *core.NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, core.PhaseExec, nodeErr.Phase)
	assert.Zero(t, state.Visited)
}

func TestParseNode_PrepErrors(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		mock := llm.NewMockProvider("mock")
		_, err := core.NewNode[screening, Request, resume](resumeNode(mock)).Run(context.Background(), &screening{}, nil)

		var nodeErr *core.NodeError
		require.ErrorAs(t, err, &nodeErr)
		assert.Equal(t, core.PhasePrep, nodeErr.Phase)
		assert.Zero(t, mock.CallCount())
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := core.NewNode[screening, Request, resume](resumeNode(nil)).Run(context.Background(), &screening{Text: "x"}, nil)
		assert.ErrorContains(t, err, "provider cannot be nil")
	})
}

func TestParseText(t *testing.T) {
	mock := llm.NewMockProvider("mock").SetResponses(`{"id": 9, "name": "z"}`)

	got, err := ParseText[SimpleStruct](context.Background(), mock, "id nine")
	require.NoError(t, err)
	assert.Equal(t, SimpleStruct{ID: 9, Name: "z"}, got)

	_, err = ParseText[SimpleStruct](context.Background(), mock, "   ")
	assert.Error(t, err)
}

func TestReadInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.txt")
	require.NoError(t, os.WriteFile(path, []byte("  Ada Lovelace \n"), 0o600))

	content, err := ReadInput(path)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", content)

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n"), 0o600))
	_, err = ReadInput(empty)
	assert.ErrorContains(t, err, "is empty")

	_, err = ReadInput(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}
