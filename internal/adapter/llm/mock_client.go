package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
)

// Call records one request made to a MockClient.
type Call struct {
	Config   Config
	Messages []domain.ChatMessage
	Options  Options
}

// Reply is a scripted MockClient answer.
type Reply struct {
	Content string
	Err     error
}

// MockClient serves scripted replies in order and records every call.
// When the script is exhausted it echoes the last user message.
type MockClient struct {
	mu      sync.Mutex
	replies []Reply
	calls   []Call
	// Respond, when set, computes the reply instead of the script.
	Respond func(call Call) (string, error)
}

// NewMockClient creates a mock client with the given replies.
func NewMockClient(replies ...string) *MockClient {
	m := &MockClient{}
	for _, r := range replies {
		m.replies = append(m.replies, Reply{Content: r})
	}
	return m
}

var _ Client = (*MockClient)(nil)

// Enqueue appends replies to the script.
func (m *MockClient) Enqueue(replies ...Reply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, replies...)
}

// Chat implements Client.
func (m *MockClient) Chat(ctx context.Context, cfg Config, messages []domain.ChatMessage, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	snapshot := make([]domain.ChatMessage, len(messages))
	copy(snapshot, messages)
	call := Call{Config: cfg, Messages: snapshot, Options: opts}

	m.mu.Lock()
	m.calls = append(m.calls, call)
	var next *Reply
	if len(m.replies) > 0 {
		next = &m.replies[0]
		m.replies = m.replies[1:]
	}
	respond := m.Respond
	m.mu.Unlock()

	if respond != nil {
		return respond(call)
	}
	if next != nil {
		if next.Err != nil {
			return "", next.Err
		}
		if next.Content == "" {
			return "", &UpstreamError{Provider: "mock", Err: ErrEmptyResponse}
		}
		return next.Content, nil
	}
	return echo(messages), nil
}

// Calls returns a copy of the recorded calls.
func (m *MockClient) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// ErrMockFailure is a convenience error for scripted failures.
var ErrMockFailure = errors.New("mock llm failure")

func echo(messages []domain.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(messages[i].Content, 100))
		}
	}
	return "[MOCK] This is a mock response from the LLM client."
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
