// Package model defines the language model collaborator boundary: a minimal
// chat interface, strict decoding of model output into typed decisions, and
// resilience decorators (rate limiting, circuit breaking). Everything past
// this boundary deals in decoded decisions, never raw model text.
package model

import (
	"context"
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	// RoleSystem carries instructions that frame the conversation.
	RoleSystem Role = "system"
	// RoleUser carries task input.
	RoleUser Role = "user"
	// RoleAssistant carries prior model output.
	RoleAssistant Role = "assistant"
)

// Message is a single chat turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage creates a system role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage creates a user role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Info describes a model implementation for logging and diagnostics.
type Info struct {
	Provider string
	Model    string
}

// Model is the collaborator boundary to a language model. Implementations
// must be safe for concurrent use; agents share a single Model instance.
type Model interface {
	// Chat sends the conversation and returns the model's raw text reply.
	Chat(ctx context.Context, messages []Message) (string, error)

	// Info returns provider and model identifiers.
	Info() Info
}

// Retry invokes fn up to attempts times, sleeping with exponential backoff
// between failures. It returns the first successful result, the last error
// once attempts are exhausted, or ctx.Err() if the context ends while
// waiting. Providers use this for transient API failures.
func Retry(ctx context.Context, attempts int, baseDelay time.Duration, fn func() (string, error)) (string, error) {
	if attempts < 1 {
		attempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}

	var lastErr error
	delay := baseDelay
	for i := 0; i < attempts; i++ {
		if i > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			}
			delay *= 2
		}

		out, err := fn()
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", lastErr
}
