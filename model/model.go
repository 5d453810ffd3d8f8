package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Message roles understood by every provider adapter.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one provider-neutral chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request captures the normalized model input produced by the decision requester.
// System messages come first; providers that keep system text out of the message
// list (Anthropic) lift them into their dedicated field.
type Request struct {
	Messages []Message `json:"messages"`

	// Temperature and MaxTokens override the adapter defaults when non-nil.
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int64   `json:"max_tokens,omitempty"`

	// JSONObject asks providers that support it to constrain the reply to a
	// single JSON object.
	JSONObject bool `json:"json_object,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the single reply to a Request.
type Response struct {
	ID           string      `json:"id"`
	Text         string      `json:"text"`
	FinishReason string      `json:"finish_reason"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", ...
}

// Model is the synchronous request/response exchange the decision requester
// depends on. Implementations must honour ctx cancellation.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// ErrNoReply is returned by MockModel when its script is exhausted.
var ErrNoReply = errors.New("mock model: no scripted reply left")

// MockModel is a lightweight in-memory Model useful for tests & examples.
// It replays scripted replies in order and records every request.
type MockModel struct {
	info Info

	mu       sync.Mutex
	replies  []mockReply
	fallback *mockReply
	requests []Request
}

type mockReply struct {
	text string
	err  error
}

// NewMockModel constructs an empty MockModel.
func NewMockModel(name string) *MockModel {
	return &MockModel{info: Info{Name: name, Provider: "mock"}}
}

// AddReply queues a raw text reply.
func (m *MockModel) AddReply(text string) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, mockReply{text: text})
	return m
}

// AddError queues a failing exchange.
func (m *MockModel) AddError(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, mockReply{err: err})
	return m
}

// SetFallback sets the reply used once the queue is empty; without one the
// model returns ErrNoReply.
func (m *MockModel) SetFallback(text string) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = &mockReply{text: text}
	return m
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	var next mockReply
	switch {
	case len(m.replies) > 0:
		next = m.replies[0]
		m.replies = m.replies[1:]
	case m.fallback != nil:
		next = *m.fallback
	default:
		return nil, ErrNoReply
	}

	if next.err != nil {
		return nil, next.err
	}

	return &Response{
		ID:           fmt.Sprintf("mock-%d", len(m.requests)),
		Text:         next.text,
		FinishReason: "stop",
	}, nil
}

// Calls returns how many times Generate was invoked.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every request received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
