package transport

import "sync"

// State is the endpoint lifecycle: Closed -> Open -> Draining -> Closed.
// Open accepts sends and receives; Draining rejects new sends but still
// delivers what is queued; Closed rejects both.
type State uint8

const (
	StateClosed State = iota
	StateOpen
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateDraining:
		return "draining"
	default:
		return "closed"
	}
}

// endpoint pairs an agent id with its mailbox. Its state guards the send
// side only; the receive side is governed by the mailbox itself, which
// stays readable through Draining and wakes waiters on final close.
type endpoint struct {
	id string
	mb *mailbox

	mu    sync.Mutex
	state State
}

func newEndpoint(id string, kind MailboxKind, capacity int) *endpoint {
	return &endpoint{id: id, mb: newMailbox(kind, capacity), state: StateOpen}
}

func (ep *endpoint) currentState() State {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return ep.state
}

// beginDrain moves Open to Draining. Reports false when the endpoint was
// already draining or closed, making Disconnect idempotent.
func (ep *endpoint) beginDrain() bool {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	if ep.state != StateOpen {
		return false
	}
	ep.state = StateDraining
	return true
}

func (ep *endpoint) setClosed() {
	ep.mu.Lock()
	ep.state = StateClosed
	ep.mu.Unlock()
}
