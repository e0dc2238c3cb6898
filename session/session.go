// Package session records the task/response exchanges of a runtime so past
// work can be inspected or resumed. Stores are pluggable: a volatile
// in-memory store for tests and demos, a SQLite store for durability.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/actormesh/core"
)

// ErrSessionNotFound is returned for lookups of unknown session ids.
var ErrSessionNotFound = errors.New("session not found")

// Entry is one task/response exchange within a session.
type Entry struct {
	ID        string        `json:"id"`
	Task      core.Task     `json:"task"`
	Response  core.Response `json:"response"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewEntry creates an entry with a fresh id and timestamp.
func NewEntry(task core.Task, response core.Response) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Task:      task,
		Response:  response,
		CreatedAt: time.Now().UTC(),
	}
}

// Session is an ordered record of exchanges.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Entries   []Entry   `json:"entries,omitempty"`
}

// Clone returns a deep enough copy that callers cannot mutate store state.
func (s *Session) Clone() *Session {
	clone := *s
	clone.Entries = make([]Entry, len(s.Entries))
	copy(clone.Entries, s.Entries)
	return &clone
}

// Store persists sessions.
type Store interface {
	// Create makes a new empty session under the given id, replacing any
	// existing session with that id.
	Create(ctx context.Context, id string) (*Session, error)

	// Get returns the session or ErrSessionNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Append adds an entry to the session, creating the session if needed.
	Append(ctx context.Context, id string, entry Entry) error

	// List returns all session ids.
	List(ctx context.Context) ([]string, error)

	// Delete removes the session. Deleting an unknown id is a no-op.
	Delete(ctx context.Context, id string) error
}
