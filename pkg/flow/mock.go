package flow

import (
	"context"
	"errors"
	"sync"
)

// ErrSequenceExhausted is the failure cause when a scripted mock runs out of
// responses.
var ErrSequenceExhausted = errors.New("mock sequence exhausted")

// MockOption scripts a Mock primitive's behavior.
type MockOption func(*MockPrimitive)

// Returns makes every call succeed with v.
func Returns(v any) MockOption {
	return func(m *MockPrimitive) {
		m.value = v
		m.hasValue = true
	}
}

// ReturnsSequence scripts one response per call, in order. An element that
// is an error is returned as that call's failure, so mixed scripts like
// fail, fail, succeed work directly. Calls past the end of the script fail
// with an ExecutionError wrapping ErrSequenceExhausted.
func ReturnsSequence(vs ...any) MockOption {
	return func(m *MockPrimitive) {
		m.sequence = append([]any(nil), vs...)
		m.useSequence = true
	}
}

// Fails makes every call fail with err.
func Fails(err error) MockOption {
	return func(m *MockPrimitive) { m.failure = err }
}

// MockPrimitive is a scriptable primitive for tests. Without options it
// echoes its input. It records every call; Calls and LastInput read the
// recording.
type MockPrimitive struct {
	name string

	mu          sync.Mutex
	value       any
	hasValue    bool
	sequence    []any
	useSequence bool
	failure     error
	calls       int
	lastInput   any
}

// Mock builds a scriptable test primitive.
func Mock(name string, opts ...MockOption) *MockPrimitive {
	if name == "" {
		panic("loom: mock name must not be empty")
	}
	m := &MockPrimitive{name: name}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MockPrimitive) Name() string { return m.name }
func (m *MockPrimitive) Kind() string { return KindMock }

func (m *MockPrimitive) Execute(_ context.Context, input any) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastInput = input
	if m.failure != nil {
		return nil, m.failure
	}
	if m.useSequence {
		if len(m.sequence) == 0 {
			return nil, &ExecutionError{Primitive: m.name, Cause: ErrSequenceExhausted}
		}
		next := m.sequence[0]
		m.sequence = m.sequence[1:]
		if err, ok := next.(error); ok {
			return nil, err
		}
		return next, nil
	}
	if m.hasValue {
		return m.value, nil
	}
	return input, nil
}

// Calls reports how many times the mock has executed.
func (m *MockPrimitive) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastInput reports the input of the most recent call.
func (m *MockPrimitive) LastInput() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastInput
}
