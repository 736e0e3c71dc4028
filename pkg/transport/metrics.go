package transport

import "sync/atomic"

// Running counters on atomics, off the lock path. Everything the transport
// refuses or loses shows up here, so a non-exceptional failure is still
// visible to operations.
type counters struct {
	sent           atomic.Uint64
	delivered      atomic.Uint64
	received       atomic.Uint64
	rejected       atomic.Uint64
	queueFull      atomic.Uint64
	evicted        atomic.Uint64
	expired        atomic.Uint64
	droppedOnClose atomic.Uint64
}

// Stats is a point-in-time snapshot of the transport counters.
type Stats struct {
	Sent           uint64 // sends accepted at ingress
	Delivered      uint64 // copies enqueued into mailboxes
	Received       uint64 // messages handed to consumers
	Rejected       uint64 // sends refused at ingress (validation/integrity)
	QueueFull      uint64 // destinations refused by backpressure
	Evicted        uint64 // queued messages dropped by the evict policy
	Expired        uint64 // queued messages evicted by TTL
	DroppedOnClose uint64 // queued messages lost to forced disconnects
}

func (c *counters) snapshot() Stats {
	return Stats{
		Sent:           c.sent.Load(),
		Delivered:      c.delivered.Load(),
		Received:       c.received.Load(),
		Rejected:       c.rejected.Load(),
		QueueFull:      c.queueFull.Load(),
		Evicted:        c.evicted.Load(),
		Expired:        c.expired.Load(),
		DroppedOnClose: c.droppedOnClose.Load(),
	}
}
