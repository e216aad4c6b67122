package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// MockProvider implements Provider for tests and offline examples. It
// returns queued responses, pattern responses or an echo of the last user
// message, and can be scripted to fail. It is safe for concurrent use.
type MockProvider struct {
	mu sync.Mutex

	name          string
	responses     []Message
	responseIndex int
	cycle         bool
	patterns      map[string]string

	err             error // returned by every call when set
	failFirst       int   // number of leading calls that fail with failErr
	failErr         error
	callsBeforeFail int // calls allowed before delayedErr; 0 disables
	delayedErr      error

	callCount int
	history   [][]Message
}

// NewMockProvider creates a new mock LLM provider that echoes the last user
// message until responses are configured.
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		name:     name,
		patterns: make(map[string]string),
	}
}

// CallLLM simulates an LLM call and returns configured responses or errors
func (m *MockProvider) CallLLM(ctx context.Context, messages []Message) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++
	m.history = append(m.history, append([]Message(nil), messages...))

	if len(messages) == 0 {
		return Message{}, ErrNoMessages
	}
	if m.err != nil {
		return Message{}, m.err
	}
	if m.callCount <= m.failFirst {
		return Message{}, m.failErr
	}
	if m.callsBeforeFail > 0 && m.callCount > m.callsBeforeFail {
		return Message{}, m.delayedErr
	}

	last := messages[len(messages)-1]
	if len(m.patterns) > 0 && last.Role == RoleUser {
		input := strings.ToLower(last.Content)
		for pattern, response := range m.patterns {
			if strings.Contains(input, strings.ToLower(pattern)) {
				return Message{Role: RoleAssistant, Content: response}, nil
			}
		}
	}

	if m.responseIndex < len(m.responses) {
		response := m.responses[m.responseIndex]
		m.responseIndex++
		if m.cycle && m.responseIndex == len(m.responses) {
			m.responseIndex = 0
		}
		if response.Role == "" {
			response.Role = RoleAssistant
		}
		return response, nil
	}

	return Message{Role: RoleAssistant, Content: "Mock response to: " + last.Content}, nil
}

// Name returns the mock provider name
func (m *MockProvider) Name() string {
	return m.name
}

// SetResponses replaces the queued text responses. Once they are used up the
// mock goes back to echoing.
func (m *MockProvider) SetResponses(responses ...string) *MockProvider {
	msgs := make([]Message, len(responses))
	for i, r := range responses {
		msgs[i] = Message{Role: RoleAssistant, Content: r}
	}
	return m.SetMessages(msgs...)
}

// SetMessages replaces the queued responses with full messages, for example
// ones carrying tool calls.
func (m *MockProvider) SetMessages(responses ...Message) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
	m.responseIndex = 0
	return m
}

// AddResponse appends a single response to the queue.
func (m *MockProvider) AddResponse(response string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, Message{Role: RoleAssistant, Content: response})
	return m
}

// Cycle makes the queued responses repeat instead of running out.
func (m *MockProvider) Cycle() *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycle = true
	return m
}

// SetResponsePattern answers user messages containing a pattern (case
// insensitive) with the mapped response, e.g. {"hello": "Hi there!"}.
func (m *MockProvider) SetResponsePattern(patterns map[string]string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = patterns
	return m
}

// SetError makes every call fail with err. A nil err clears it.
func (m *MockProvider) SetError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// FailTimes makes the next n calls fail with err before responses resume.
func (m *MockProvider) FailTimes(n int, err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		err = fmt.Errorf("simulated API error from %s", m.name)
	}
	m.failFirst = m.callCount + n
	m.failErr = err
	return m
}

// SetDelayedError lets callsBeforeError calls succeed and fails every call
// after that.
func (m *MockProvider) SetDelayedError(callsBeforeError int, err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		err = errors.New("delayed simulated error")
	}
	m.callsBeforeFail = callsBeforeError
	m.delayedErr = err
	return m
}

// ClearError removes any error simulation
func (m *MockProvider) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = nil
	m.failFirst = 0
	m.failErr = nil
	m.callsBeforeFail = 0
	m.delayedErr = nil
}

// Reset restores the initial state, keeping the name.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses, m.responseIndex, m.cycle = nil, 0, false
	m.patterns = make(map[string]string)
	m.err, m.failFirst, m.failErr = nil, 0, nil
	m.callsBeforeFail, m.delayedErr = 0, nil
	m.callCount, m.history = 0, nil
}

// CallCount returns the number of times CallLLM has been called
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Calls returns a copy of the conversations CallLLM received, in call order.
func (m *MockProvider) Calls() [][]Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]Message(nil), m.history...)
}
