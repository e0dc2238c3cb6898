package model

import (
	"context"
	"errors"
	"sync"
)

// ErrNoScriptedResponse is returned by MockModel when its script is empty.
var ErrNoScriptedResponse = errors.New("mock model: no scripted response left")

// MockModel replays a scripted sequence of responses in FIFO order. It is
// safe for concurrent use and records every conversation it receives.
type MockModel struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     [][]Message
}

// NewMockModel creates a mock that returns the given responses in order.
func NewMockModel(responses ...string) *MockModel {
	return &MockModel{responses: responses}
}

// FailWith makes every subsequent Chat call return err instead of a
// scripted response.
func (m *MockModel) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Enqueue appends responses to the script.
func (m *MockModel) Enqueue(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, responses...)
}

// Chat implements Model.
func (m *MockModel) Chat(_ context.Context, messages []Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make([]Message, len(messages))
	copy(snapshot, messages)
	m.calls = append(m.calls, snapshot)

	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", ErrNoScriptedResponse
	}
	next := m.responses[0]
	m.responses = m.responses[1:]
	return next, nil
}

// Info implements Model.
func (m *MockModel) Info() Info {
	return Info{Provider: "mock", Model: "scripted"}
}

// CallCount returns the number of Chat calls received.
func (m *MockModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Call returns the messages of the i-th Chat call.
func (m *MockModel) Call(i int) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[i]
}
