package transport

import (
	"errors"
	"fmt"
)

// RoutingError explains why a destination could not accept a message. It is
// carried inside SendResult, never returned from Send directly: an
// unreachable agent is a routing outcome, not a sender failure.
type RoutingError struct {
	Agent  string
	Reason string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("cannot route to %q: %s", e.Agent, e.Reason)
}

// QueueFullError reports a mailbox at capacity under the reject policy, or
// a blocking send that ran out its timeout with the mailbox still full.
type QueueFullError struct {
	Agent    string
	Capacity int
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("mailbox for %q is full (capacity %d)", e.Agent, e.Capacity)
}

var (
	// ErrEndpointClosed is returned by Receive when the endpoint closes
	// while the caller is waiting. It is a wakeup, not a routing failure.
	ErrEndpointClosed = errors.New("endpoint closed")

	// ErrTransportClosed marks use of a transport after Close.
	ErrTransportClosed = errors.New("transport closed")

	errMailboxClosed = errors.New("mailbox closed")
)
