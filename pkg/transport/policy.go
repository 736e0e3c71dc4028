package transport

import (
	"fmt"
	"time"

	"vectorcomm/pkg/protocol"
)

// Policy decides what a send does when the destination mailbox is full. It
// is a strategy injected at transport construction, so deployments swap
// policies without touching routing.
type Policy interface {
	Name() string
	deliver(mb *mailbox, m *protocol.Message, timeout time.Duration) deliverResult
}

type deliverResult struct {
	outcome pushOutcome
	evicted *protocol.Message
}

// PolicyReject fails fast with a QueueFullError result. The default:
// neither unbounded blocking nor silent loss.
func PolicyReject() Policy { return rejectPolicy{} }

// PolicyBlock suspends the sending producer (only) until space frees or
// the send timeout lapses, then reports queue-full.
func PolicyBlock() Policy { return blockPolicy{} }

// PolicyEvictOldest drops the oldest queued entry to make room, ring-buffer
// style. Every eviction is logged and counted.
func PolicyEvictOldest() Policy { return evictOldestPolicy{} }

// ParsePolicy maps a config string to its policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "reject":
		return PolicyReject(), nil
	case "block":
		return PolicyBlock(), nil
	case "evict-oldest":
		return PolicyEvictOldest(), nil
	}
	return nil, fmt.Errorf("unknown backpressure policy %q", s)
}

type rejectPolicy struct{}

func (rejectPolicy) Name() string { return "reject" }

func (rejectPolicy) deliver(mb *mailbox, m *protocol.Message, _ time.Duration) deliverResult {
	return deliverResult{outcome: mb.push(m)}
}

type blockPolicy struct{}

func (blockPolicy) Name() string { return "block" }

func (blockPolicy) deliver(mb *mailbox, m *protocol.Message, timeout time.Duration) deliverResult {
	out := mb.pushWait(m, timeout)
	if out == pushTimeout {
		out = pushFull
	}
	return deliverResult{outcome: out}
}

type evictOldestPolicy struct{}

func (evictOldestPolicy) Name() string { return "evict-oldest" }

func (evictOldestPolicy) deliver(mb *mailbox, m *protocol.Message, _ time.Duration) deliverResult {
	evicted, out := mb.pushEvict(m)
	return deliverResult{outcome: out, evicted: evicted}
}
