package actor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/actormesh/logging"
)

// Routing errors. Callers branch with errors.Is.
var (
	// ErrUnknownRecipient is returned when the target name has no registered
	// mailbox, either because it never registered or was deregistered.
	ErrUnknownRecipient = errors.New("unknown recipient")

	// ErrReplyTimeout is returned by Request when no reply arrived within the
	// deadline. The conversation's reply channel is abandoned, not reused.
	ErrReplyTimeout = errors.New("reply timeout")

	// ErrDuplicateActor is returned by Register when the name is taken.
	ErrDuplicateActor = errors.New("actor name already registered")

	// ErrMailboxFull is returned by TrySend when the recipient's mailbox has
	// no free capacity.
	ErrMailboxFull = errors.New("mailbox full")
)

// DefaultMailboxCapacity bounds mailboxes when no capacity option is given.
const DefaultMailboxCapacity = 64

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithMailboxCapacity sets the capacity of mailboxes created by Register.
func WithMailboxCapacity(n int) RouterOption {
	return func(r *Router) {
		if n > 0 {
			r.capacity = n
		}
	}
}

// WithRouterLogger sets the router's logger.
func WithRouterLogger(l logging.Logger) RouterOption {
	return func(r *Router) { r.logger = l }
}

// WithDeliveryObserver installs a hook invoked after every successful
// delivery. Used for operational counters.
func WithDeliveryObserver(fn func(from, to string)) RouterOption {
	return func(r *Router) { r.observer = fn }
}

// Router owns the name to mailbox registry and performs all message delivery.
// Delivery to a full mailbox blocks the sender, which preserves per-sender
// FIFO ordering toward each recipient: a sender's next message cannot
// overtake one it already submitted.
type Router struct {
	mu        sync.RWMutex
	mailboxes map[string]*Mailbox
	capacity  int
	logger    logging.Logger
	observer  func(from, to string)
}

// NewRouter creates an empty router.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		mailboxes: make(map[string]*Mailbox),
		capacity:  DefaultMailboxCapacity,
		logger:    logging.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register creates a mailbox under the given name and returns it to the
// caller, who becomes its sole owner. Registering a taken name fails with
// ErrDuplicateActor.
func (r *Router) Register(name string) (*Mailbox, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.mailboxes[name]; exists {
		return nil, fmt.Errorf("register %q: %w", name, ErrDuplicateActor)
	}
	mb := &Mailbox{
		owner: NewIdentity(name),
		ch:    make(chan Envelope, r.capacity),
	}
	r.mailboxes[name] = mb
	r.logger.Debug("actor registered", "actor", mb.owner.String())
	return mb, nil
}

// Deregister removes the identity's mailbox from the routing table.
// Subsequent sends fail with ErrUnknownRecipient. The mailbox channel is not
// closed; in-flight envelopes already queued remain readable by the owner.
// Deregistering an identity that is not current (a stale incarnation) is a
// no-op, so a restarted actor cannot be unregistered by its predecessor.
func (r *Router) Deregister(id Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mb, ok := r.mailboxes[id.Name]
	if !ok || mb.owner.ID != id.ID {
		return
	}
	delete(r.mailboxes, id.Name)
	r.logger.Debug("actor deregistered", "actor", id.String())
}

// Lookup reports whether a mailbox is registered under name.
func (r *Router) Lookup(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.mailboxes[name]
	return ok
}

// Names returns the currently registered actor names.
func (r *Router) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.mailboxes))
	for name := range r.mailboxes {
		names = append(names, name)
	}
	return names
}

// Send delivers msg to the named recipient's mailbox. It blocks while the
// mailbox is full and returns ctx.Err() if the context ends first. An
// unregistered recipient yields ErrUnknownRecipient.
func (r *Router) Send(ctx context.Context, from, to string, msg Message) error {
	return r.deliver(ctx, Envelope{Sender: from, Message: msg, SentAt: time.Now()}, to)
}

// Request delivers msg to the named recipient with a fresh single-use reply
// channel and waits for the reply. It returns ErrReplyTimeout when the
// recipient does not reply within timeout, or ctx.Err() if the context ends
// first. The reply channel is buffered so a late reply never blocks the
// recipient; it is simply dropped with the abandoned channel.
func (r *Router) Request(ctx context.Context, from, to string, msg Message, timeout time.Duration) (Message, error) {
	replyTo := make(chan Message, 1)
	env := Envelope{Sender: from, Message: msg, ReplyTo: replyTo, SentAt: time.Now()}
	if err := r.deliver(ctx, env, to); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reply := <-replyTo:
		return reply, nil
	case <-timer.C:
		return nil, fmt.Errorf("request %s -> %s (%s): %w", from, to, msg.Kind(), ErrReplyTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TrySend delivers msg without blocking. A full mailbox yields
// ErrMailboxFull instead of waiting for capacity. Used by callers that must
// never stall on a slow recipient, such as the health monitor's probe loop.
func (r *Router) TrySend(from, to string, msg Message) error {
	r.mu.RLock()
	mb, ok := r.mailboxes[to]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("send %s -> %s (%s): %w", from, to, msg.Kind(), ErrUnknownRecipient)
	}

	env := Envelope{Sender: from, Message: msg, SentAt: time.Now()}
	select {
	case mb.ch <- env:
		if r.observer != nil {
			r.observer(from, to)
		}
		return nil
	default:
		return fmt.Errorf("send %s -> %s (%s): %w", from, to, msg.Kind(), ErrMailboxFull)
	}
}

func (r *Router) deliver(ctx context.Context, env Envelope, to string) error {
	r.mu.RLock()
	mb, ok := r.mailboxes[to]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("send %s -> %s (%s): %w", env.Sender, to, env.Message.Kind(), ErrUnknownRecipient)
	}

	select {
	case mb.ch <- env:
		if r.observer != nil {
			r.observer(env.Sender, to)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Serve drains mb until ctx ends, answering heartbeat probes inline and
// handing every other envelope to handler. Because probes are answered from
// the same loop that processes work, a heartbeat ack means the actor is
// actually draining its mailbox, not merely that its goroutine exists.
func (r *Router) Serve(ctx context.Context, mb *Mailbox, handler func(ctx context.Context, env Envelope)) {
	owner := mb.Owner().Name
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-mb.ch:
			if probe, ok := env.Message.(HeartbeatProbe); ok {
				ack := HeartbeatAck{From: owner, Seq: probe.Seq, At: time.Now()}
				if !env.Reply(ack) {
					if err := r.Send(ctx, owner, probe.From, ack); err != nil {
						r.logger.Debug("heartbeat ack undeliverable", "actor", owner, "error", err)
					}
				}
				continue
			}
			handler(ctx, env)
		}
	}
}
