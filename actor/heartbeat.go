package actor

import "time"

// HeartbeatProbe is sent by a health monitor to check that an actor is
// draining its mailbox. Serve answers probes automatically; actors running
// their own receive loop must answer them the same way.
type HeartbeatProbe struct {
	// From is the monitor actor expecting the ack.
	From string
	// Seq correlates acks with the probe round that produced them.
	Seq uint64
}

// Kind implements Message.
func (HeartbeatProbe) Kind() string { return "heartbeat.probe" }

// HeartbeatAck answers a HeartbeatProbe.
type HeartbeatAck struct {
	// From is the actor acknowledging liveness.
	From string
	// Seq echoes the probe's sequence number.
	Seq uint64
	// At is when the ack was produced.
	At time.Time
}

// Kind implements Message.
func (HeartbeatAck) Kind() string { return "heartbeat.ack" }
