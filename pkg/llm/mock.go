package llm

import (
	"context"
	"sync"
	"time"
)

// Mock implements Responder for testing.
// All methods can be customized via function fields.
type Mock struct {
	// ReplyFunc is called when Reply is invoked.
	// If nil, echoes the last user message.
	ReplyFunc func(ctx context.Context, history []Message) (*Response, error)

	// HealthFunc is called when Health is invoked.
	// If nil, returns nil (healthy).
	HealthFunc func(ctx context.Context) error

	// CloseFunc is called when Close is invoked.
	// If nil, returns nil.
	CloseFunc func() error

	// Tracking
	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method  string
	History []Message
	Time    time.Time
}

// NewMock creates a mock that echoes the last user message.
func NewMock() *Mock {
	return &Mock{
		ReplyFunc: func(ctx context.Context, history []Message) (*Response, error) {
			text := "ok"
			for i := len(history) - 1; i >= 0; i-- {
				if history[i].Role == RoleUser {
					text = "echo: " + history[i].Content
					break
				}
			}
			return &Response{Text: text, FinishReason: "stop", LatencyMs: 1}, nil
		},
	}
}

// WithError returns a mock whose methods all fail with err.
func WithError(err error) *Mock {
	return &Mock{
		ReplyFunc: func(ctx context.Context, history []Message) (*Response, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
	}
}

// Reply calls ReplyFunc and records the call.
func (m *Mock) Reply(ctx context.Context, history []Message) (*Response, error) {
	m.recordCall("Reply", history)
	if m.ReplyFunc != nil {
		return m.ReplyFunc(ctx, history)
	}
	return nil, WrapError("mock", ErrEmptyReply)
}

// Health calls HealthFunc and records the call.
func (m *Mock) Health(ctx context.Context) error {
	m.recordCall("Health", nil)
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.recordCall("Close", nil)
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *Mock) recordCall(method string, history []Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make([]Message, len(history))
	copy(snapshot, history)
	m.calls = append(m.calls, MockCall{Method: method, History: snapshot, Time: time.Now()})
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// LastCall returns the most recent call, or nil if none.
func (m *Mock) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	call := m.calls[len(m.calls)-1]
	return &call
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Verify Mock implements Responder at compile time.
var _ Responder = (*Mock)(nil)
