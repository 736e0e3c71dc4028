// Package transport routes vector messages between agents sharing one
// process. A Transport owns an explicit endpoint registry (constructor
// built, torn down by Close, never a global), one bounded mailbox per
// connected agent, and multicast group membership.
//
// Delivery is unicast (named agent), broadcast (every open endpoint except
// the sender) or multicast (every group subscriber); fan-out recipients
// each get their own deep copy. Routing and backpressure outcomes are
// result values, never panics or errors thrown at the sender: only a
// structurally invalid or tampered message makes Send return an error.
//
// FIFO order holds within a single mailbox only. Priority is consumer
// metadata unless the optional banded priority mailbox is configured.
// Every drop, reject, eviction and forced disconnect is counted and
// logged; nothing fails invisibly.
package transport
