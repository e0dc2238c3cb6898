// Package health implements heartbeat based liveness monitoring for actors.
// The monitor is itself an actor: it owns a mailbox, probes watched actors on
// a fixed interval and tracks their state through Alive, Suspected and Dead.
// It reports faults; it never restarts anything. Restart policy belongs to
// whoever owns the actors.
package health

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/actormesh/actor"
	"github.com/hupe1980/actormesh/logging"
)

// Status is the monitor's belief about an actor's liveness.
type Status int

const (
	// StatusAlive means the actor answered its most recent probe.
	StatusAlive Status = iota
	// StatusSuspected means exactly one probe went unanswered. A late ack
	// returns the actor to StatusAlive.
	StatusSuspected
	// StatusDead means two consecutive probes went unanswered. Dead is
	// terminal until the actor is unwatched.
	StatusDead
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusAlive:
		return "alive"
	case StatusSuspected:
		return "suspected"
	case StatusDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Fault is emitted exactly once when a watched actor transitions to Dead.
type Fault struct {
	Actor    actor.Identity
	LastSeen time.Time
	Detected time.Time
}

// MonitorName is the actor name the monitor registers under.
const MonitorName = "health_monitor"

// DefaultInterval is the probe interval when none is configured.
const DefaultInterval = 5 * time.Second

// ErrMonitorStopped is returned by queries once the monitor's context ended.
var ErrMonitorStopped = errors.New("health monitor stopped")

// control messages processed by the monitor loop

type watchMsg struct{ id actor.Identity }

func (watchMsg) Kind() string { return "health.watch" }

type unwatchMsg struct{ id actor.Identity }

func (unwatchMsg) Kind() string { return "health.unwatch" }

type snapshotMsg struct{}

func (snapshotMsg) Kind() string { return "health.snapshot" }

// Snapshot is the reply to a snapshot query: status per watched actor name.
type Snapshot struct {
	Statuses map[string]Status
}

// Kind implements actor.Message.
func (Snapshot) Kind() string { return "health.snapshot.reply" }

type record struct {
	id          actor.Identity
	status      Status
	lastSeen    time.Time
	awaitingAck bool
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithInterval sets the probe interval.
func WithInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithMonitorLogger sets the monitor's logger.
func WithMonitorLogger(l logging.Logger) MonitorOption {
	return func(m *Monitor) { m.logger = l }
}

// WithFaultHandler installs a callback invoked from the monitor loop for each
// fault, in addition to delivery on the Faults channel.
func WithFaultHandler(fn func(Fault)) MonitorOption {
	return func(m *Monitor) { m.onFault = fn }
}

// Monitor probes watched actors and tracks their liveness. All monitoring
// state lives inside Run's loop; the exported methods communicate with the
// loop exclusively through the monitor's own mailbox.
type Monitor struct {
	router   *actor.Router
	mailbox  *actor.Mailbox
	interval time.Duration
	logger   logging.Logger
	faults   chan Fault
	onFault  func(Fault)
	seq      uint64
}

// NewMonitor creates a monitor and registers its mailbox with the router.
// Call Run to start monitoring.
func NewMonitor(router *actor.Router, opts ...MonitorOption) (*Monitor, error) {
	m := &Monitor{
		router:   router,
		interval: DefaultInterval,
		logger:   logging.NoOpLogger{},
		faults:   make(chan Fault, 16),
	}
	for _, opt := range opts {
		opt(m)
	}

	mb, err := router.Register(MonitorName)
	if err != nil {
		return nil, err
	}
	m.mailbox = mb
	return m, nil
}

// Identity returns the monitor's actor identity.
func (m *Monitor) Identity() actor.Identity { return m.mailbox.Owner() }

// Faults returns the channel on which death events are delivered. Exactly
// one fault is emitted per watched actor death.
func (m *Monitor) Faults() <-chan Fault { return m.faults }

// Watch adds the actor to the monitored set. It starts as Alive with the
// current time as its last heartbeat.
func (m *Monitor) Watch(ctx context.Context, id actor.Identity) error {
	return m.router.Send(ctx, MonitorName, MonitorName, watchMsg{id: id})
}

// Unwatch removes the actor from the monitored set. A deliberately stopped
// actor must be unwatched before deregistration so no death is reported.
func (m *Monitor) Unwatch(ctx context.Context, id actor.Identity) error {
	return m.router.Send(ctx, MonitorName, MonitorName, unwatchMsg{id: id})
}

// Statuses asks the monitor loop for a snapshot of all watched actors.
func (m *Monitor) Statuses(ctx context.Context, timeout time.Duration) (map[string]Status, error) {
	reply, err := m.router.Request(ctx, MonitorName, MonitorName, snapshotMsg{}, timeout)
	if err != nil {
		return nil, err
	}
	snap, ok := reply.(Snapshot)
	if !ok {
		return nil, ErrMonitorStopped
	}
	return snap.Statuses, nil
}

// Run executes the monitor loop until ctx ends. The records map is owned by
// this goroutine alone; no lock guards it because nothing else touches it.
func (m *Monitor) Run(ctx context.Context) {
	records := make(map[string]*record)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	defer m.router.Deregister(m.mailbox.Owner())

	for {
		select {
		case <-ctx.Done():
			return
		case env := <-m.mailbox.Receive():
			m.handle(env, records)
		case <-ticker.C:
			m.sweep(records)
		}
	}
}

func (m *Monitor) handle(env actor.Envelope, records map[string]*record) {
	switch msg := env.Message.(type) {
	case watchMsg:
		records[msg.id.Name] = &record{id: msg.id, status: StatusAlive, lastSeen: time.Now()}
		m.logger.Debug("watching actor", "actor", msg.id.String())
	case unwatchMsg:
		delete(records, msg.id.Name)
		m.logger.Debug("unwatched actor", "actor", msg.id.String())
	case actor.HeartbeatAck:
		rec, ok := records[msg.From]
		if !ok {
			return
		}
		rec.lastSeen = msg.At
		rec.awaitingAck = false
		if rec.status == StatusSuspected {
			rec.status = StatusAlive
			m.logger.Info("actor recovered", "actor", rec.id.String())
		}
	case snapshotMsg:
		statuses := make(map[string]Status, len(records))
		for name, rec := range records {
			statuses[name] = rec.status
		}
		env.Reply(Snapshot{Statuses: statuses})
	default:
		m.logger.Warn("unexpected message", "kind", env.Message.Kind(), "sender", env.Sender)
	}
}

// sweep advances liveness state for every watched actor and issues the next
// probe round. An unanswered probe moves Alive to Suspected and Suspected to
// Dead; the Dead transition emits exactly one fault.
func (m *Monitor) sweep(records map[string]*record) {
	m.seq++
	now := time.Now()

	for name, rec := range records {
		if rec.status == StatusDead {
			continue
		}

		if rec.awaitingAck {
			switch rec.status {
			case StatusAlive:
				rec.status = StatusSuspected
				m.logger.Warn("actor suspected", "actor", rec.id.String(), "last_seen", rec.lastSeen)
			case StatusSuspected:
				rec.status = StatusDead
				m.emit(Fault{Actor: rec.id, LastSeen: rec.lastSeen, Detected: now})
				continue
			}
		}

		rec.awaitingAck = true
		probe := actor.HeartbeatProbe{From: MonitorName, Seq: m.seq}
		if err := m.router.TrySend(MonitorName, name, probe); err != nil {
			// Undeliverable probes count as missed: the next sweep escalates.
			m.logger.Debug("probe undeliverable", "actor", rec.id.String(), "error", err)
		}
	}
}

func (m *Monitor) emit(f Fault) {
	m.logger.Error("actor dead", "actor", f.Actor.String(), "last_seen", f.LastSeen)
	if m.onFault != nil {
		m.onFault(f)
	}
	select {
	case m.faults <- f:
	default:
		m.logger.Warn("fault channel full, dropping event", "actor", f.Actor.String())
	}
}
