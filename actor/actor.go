// Package actor provides the in-process message passing substrate: actor
// identities, bounded mailboxes and a router for addressed delivery and
// request/reply conversations. Every actor owns exactly one mailbox and one
// goroutine draining it; all cross-actor communication flows through the
// router, never through shared state.
package actor

import (
	"time"

	"github.com/google/uuid"
)

// Message is the polymorphic payload carried through mailboxes. Kind returns
// a stable discriminator used for logging and dispatch.
type Message interface {
	Kind() string
}

// Identity uniquely identifies an actor instance. The name addresses the
// actor; the ID distinguishes successive incarnations under the same name.
type Identity struct {
	Name string
	ID   string
}

// NewIdentity creates an identity with a fresh unique ID.
func NewIdentity(name string) Identity {
	return Identity{Name: name, ID: uuid.NewString()}
}

// String returns a short human readable form of the identity.
func (i Identity) String() string {
	if len(i.ID) >= 8 {
		return i.Name + "/" + i.ID[:8]
	}
	return i.Name
}

// Envelope wraps a message with its delivery metadata. ReplyTo, when non-nil,
// is a single-use buffered channel: the recipient sends at most one reply and
// the channel is never reused across conversations.
type Envelope struct {
	Sender  string
	Message Message
	ReplyTo chan Message
	SentAt  time.Time
}

// Reply delivers msg on the envelope's reply channel. It reports false when
// the envelope carries no reply channel or a reply was already sent.
func (e Envelope) Reply(msg Message) bool {
	if e.ReplyTo == nil {
		return false
	}
	select {
	case e.ReplyTo <- msg:
		return true
	default:
		return false
	}
}

// Mailbox is an ordered, capacity-bounded inbound queue owned by exactly one
// actor. Only the owning actor receives from it; everyone else delivers
// through the Router.
type Mailbox struct {
	owner Identity
	ch    chan Envelope
}

// Owner returns the identity of the actor this mailbox belongs to.
func (m *Mailbox) Owner() Identity { return m.owner }

// Receive returns the channel the owning actor drains envelopes from.
func (m *Mailbox) Receive() <-chan Envelope { return m.ch }

// Len returns the number of envelopes currently queued.
func (m *Mailbox) Len() int { return len(m.ch) }

// Cap returns the mailbox capacity.
func (m *Mailbox) Cap() int { return cap(m.ch) }
