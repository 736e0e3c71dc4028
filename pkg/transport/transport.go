package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"vectorcomm/pkg/protocol"
)

// Defaults for Options zero values.
const (
	DefaultQueueCapacity = 1000
	DefaultSendTimeout   = time.Second
	DefaultGraceTimeout  = 5 * time.Second
)

// Options configures a transport instance at construction.
type Options struct {
	// QueueCapacity bounds every mailbox. Default 1000.
	QueueCapacity int
	// Policy decides full-mailbox behavior. Default PolicyReject.
	Policy Policy
	// SendTimeout bounds a blocking send under PolicyBlock. Default 1s.
	SendTimeout time.Duration
	// GraceTimeout bounds draining on disconnect. Default 5s.
	GraceTimeout time.Duration
	// MessageTTL evicts unclaimed messages after this age. 0 disables.
	MessageTTL time.Duration
	// Mailbox selects the queuing discipline. Default MailboxFIFO.
	Mailbox MailboxKind
}

func (o Options) withDefaults() Options {
	res := o
	if res.QueueCapacity <= 0 {
		res.QueueCapacity = DefaultQueueCapacity
	}
	if res.Policy == nil {
		res.Policy = PolicyReject()
	}
	if res.SendTimeout <= 0 {
		res.SendTimeout = DefaultSendTimeout
	}
	if res.GraceTimeout <= 0 {
		res.GraceTimeout = DefaultGraceTimeout
	}
	return res
}

// Transport is the shared-process registry of agent endpoints. It is an
// explicit object with a create/teardown lifecycle so isolated instances
// can coexist; nothing here is process-global. Mutations of the endpoint
// map are serialized through the write lock while send/receive lookups
// proceed under the read lock, and no registry lock is held while bytes
// move into a mailbox, so one slow agent cannot starve the rest.
type Transport struct {
	opts Options
	log  *zap.Logger

	mu     sync.RWMutex
	eps    map[string]*endpoint
	groups map[string]map[string]struct{}
	closed bool

	ctr    counters
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a transport. A nil logger disables logging.
func New(opts Options, log *zap.Logger) *Transport {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Transport{
		opts:   opts.withDefaults(),
		log:    log,
		eps:    make(map[string]*endpoint),
		groups: make(map[string]map[string]struct{}),
		stopCh: make(chan struct{}),
	}
	if t.opts.MessageTTL > 0 {
		t.wg.Add(1)
		go t.sweep()
	}
	t.log.Info("transport started",
		zap.Int("queue_capacity", t.opts.QueueCapacity),
		zap.String("backpressure", t.opts.Policy.Name()),
		zap.String("mailbox", t.opts.Mailbox.String()),
		zap.Duration("message_ttl", t.opts.MessageTTL))
	return t
}

// Close tears the registry down: every endpoint is force-closed (queued
// messages are counted and logged as dropped) and the sweeper stops.
func (t *Transport) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	eps := make([]*endpoint, 0, len(t.eps))
	for _, ep := range t.eps {
		eps = append(eps, ep)
	}
	t.eps = make(map[string]*endpoint)
	t.groups = make(map[string]map[string]struct{})
	t.mu.Unlock()

	close(t.stopCh)
	for _, ep := range eps {
		ep.setClosed()
		if remaining := ep.mb.close(); len(remaining) > 0 {
			t.ctr.droppedOnClose.Add(uint64(len(remaining)))
			t.log.Warn("transport close dropped queued messages",
				zap.String("agent", ep.id), zap.Int("dropped", len(remaining)))
		}
	}
	t.wg.Wait()
	t.log.Info("transport closed")
}

// Connect idempotently registers an open endpoint for agentID.
func (t *Transport) Connect(agentID string) error {
	if agentID == "" {
		return fmt.Errorf("empty agent id")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransportClosed
	}
	if ep := t.eps[agentID]; ep != nil {
		if ep.currentState() == StateOpen {
			return nil
		}
		return fmt.Errorf("agent %q is still draining", agentID)
	}
	t.eps[agentID] = newEndpoint(agentID, t.opts.Mailbox, t.opts.QueueCapacity)
	t.log.Info("agent connected", zap.String("agent", agentID))
	return nil
}

// Disconnect moves the endpoint to Draining and closes it once its queue
// empties or the grace timeout lapses, whichever comes first. A forced
// close with messages still queued is a logged, counted loss. In-flight
// receives are woken with ErrEndpointClosed. Idempotent.
func (t *Transport) Disconnect(agentID string) error {
	t.mu.RLock()
	ep := t.eps[agentID]
	t.mu.RUnlock()
	if ep == nil {
		return fmt.Errorf("unknown agent %q", agentID)
	}
	if !ep.beginDrain() {
		return nil
	}
	t.log.Info("agent draining", zap.String("agent", agentID), zap.Int("queued", ep.mb.len()))
	t.wg.Add(1)
	go t.finishDrain(ep)
	return nil
}

func (t *Transport) finishDrain(ep *endpoint) {
	defer t.wg.Done()
	drained := ep.mb.waitEmpty(t.opts.GraceTimeout)
	ep.setClosed()
	remaining := ep.mb.close()

	t.mu.Lock()
	delete(t.eps, ep.id)
	for _, members := range t.groups {
		delete(members, ep.id)
	}
	t.mu.Unlock()

	if len(remaining) > 0 {
		t.ctr.droppedOnClose.Add(uint64(len(remaining)))
		t.log.Warn("forced disconnect dropped queued messages",
			zap.String("agent", ep.id), zap.Int("dropped", len(remaining)))
		return
	}
	t.log.Info("agent disconnected", zap.String("agent", ep.id), zap.Bool("drained", drained))
}

// Subscribe adds an open endpoint to a multicast group, creating the group
// on first use. The group id then becomes routable as a destination.
func (t *Transport) Subscribe(agentID, group string) error {
	if group == "" {
		return fmt.Errorf("empty group id")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTransportClosed
	}
	ep := t.eps[agentID]
	if ep == nil || ep.currentState() != StateOpen {
		return fmt.Errorf("agent %q is not connected", agentID)
	}
	if t.groups[group] == nil {
		t.groups[group] = make(map[string]struct{})
	}
	t.groups[group][agentID] = struct{}{}
	return nil
}

// Unsubscribe removes the agent from the group. The group stays registered
// even when empty.
func (t *Transport) Unsubscribe(agentID, group string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	members := t.groups[group]
	if members == nil {
		return fmt.Errorf("unknown group %q", group)
	}
	delete(members, agentID)
	return nil
}

// Send routes m by its destination: a known agent id is unicast, a
// registered group id is multicast to every subscriber, and an empty
// destination broadcasts to every open endpoint except the sender. Fan-out
// recipients each receive their own copy.
//
// The returned error is non-nil only for invalid input: a structurally
// broken message (*protocol.ValidationError), a failed integrity check
// (protocol.ErrIntegrity), or a closed transport. Routing-level outcomes
// such as an unknown destination, a draining endpoint, or a full mailbox
// come back inside the SendResult so an unreachable agent can never crash
// its sender.
func (t *Transport) Send(m *protocol.Message) (SendResult, error) {
	var res SendResult
	if m == nil {
		return res, fmt.Errorf("nil message")
	}
	res.MessageID = m.Metadata.MessageID

	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	if closed {
		return res, ErrTransportClosed
	}

	if err := protocol.Verify(m); err != nil {
		t.ctr.rejected.Add(1)
		t.log.Warn("rejected message at ingress",
			zap.String("message_id", m.Metadata.MessageID),
			zap.String("source", m.Metadata.Source),
			zap.Error(err))
		return res, err
	}
	t.ctr.sent.Add(1)

	dest := m.Metadata.Destination
	if dest == "" {
		for _, ep := range t.broadcastTargets(m.Metadata.Source) {
			t.deliver(&res, ep, m.Clone())
		}
		return res, nil
	}

	t.mu.RLock()
	ep := t.eps[dest]
	ids, isGroup := t.groups[dest]
	var members []*endpoint
	if ep == nil && isGroup {
		members = make([]*endpoint, 0, len(ids))
		for id := range ids {
			if e := t.eps[id]; e != nil {
				members = append(members, e)
			}
		}
	}
	t.mu.RUnlock()

	switch {
	case ep != nil:
		t.deliver(&res, ep, m)
	case isGroup:
		for _, e := range members {
			t.deliver(&res, e, m.Clone())
		}
	default:
		res.Attempted++
		res.Failures = append(res.Failures, Failure{
			AgentID: dest,
			Err:     &RoutingError{Agent: dest, Reason: "unknown agent or group"},
		})
	}
	return res, nil
}

// broadcastTargets snapshots every open endpoint except the sender. Draining
// endpoints are bystanders here: a broadcast is addressed to whoever is
// currently open, so skipping them is not a delivery failure.
func (t *Transport) broadcastTargets(sender string) []*endpoint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*endpoint, 0, len(t.eps))
	for id, ep := range t.eps {
		if id == sender || ep.currentState() != StateOpen {
			continue
		}
		out = append(out, ep)
	}
	return out
}

// deliver enqueues one copy into one endpoint. Only the destination
// mailbox's own lock is taken here.
func (t *Transport) deliver(res *SendResult, ep *endpoint, m *protocol.Message) {
	res.Attempted++
	if st := ep.currentState(); st != StateOpen {
		res.Failures = append(res.Failures, Failure{
			AgentID: ep.id,
			Err:     &RoutingError{Agent: ep.id, Reason: "endpoint " + st.String()},
		})
		return
	}
	d := t.opts.Policy.deliver(ep.mb, m, t.opts.SendTimeout)
	if d.evicted != nil {
		t.ctr.evicted.Add(1)
		t.log.Warn("evicted oldest queued message",
			zap.String("agent", ep.id),
			zap.String("evicted_message_id", d.evicted.Metadata.MessageID))
	}
	switch d.outcome {
	case pushOK:
		res.Delivered++
		t.ctr.delivered.Add(1)
	case pushFull:
		t.ctr.queueFull.Add(1)
		res.Failures = append(res.Failures, Failure{
			AgentID: ep.id,
			Err:     &QueueFullError{Agent: ep.id, Capacity: t.opts.QueueCapacity},
		})
	default: // pushClosed
		res.Failures = append(res.Failures, Failure{
			AgentID: ep.id,
			Err:     &RoutingError{Agent: ep.id, Reason: "endpoint closed"},
		})
	}
}

// Receive suspends the caller until a message arrives for agentID. A lapsed
// timeout returns (nil, nil), a normal outcome. A disconnect while waiting
// returns ErrEndpointClosed promptly instead of letting the caller hang out
// its own timeout. timeout <= 0 waits until ctx is done.
func (t *Transport) Receive(ctx context.Context, agentID string, timeout time.Duration) (*protocol.Message, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	t.mu.RLock()
	ep := t.eps[agentID]
	t.mu.RUnlock()
	if ep == nil {
		return nil, fmt.Errorf("unknown agent %q", agentID)
	}
	m, err := ep.mb.popWait(ctx, timeout)
	if err == errMailboxClosed {
		return nil, ErrEndpointClosed
	}
	if err != nil {
		return nil, err
	}
	if m != nil {
		t.ctr.received.Add(1)
	}
	return m, nil
}

// ReceiveAll drains the agent's queue without blocking.
func (t *Transport) ReceiveAll(agentID string) ([]*protocol.Message, error) {
	t.mu.RLock()
	ep := t.eps[agentID]
	t.mu.RUnlock()
	if ep == nil {
		return nil, fmt.Errorf("unknown agent %q", agentID)
	}
	msgs := ep.mb.drain()
	t.ctr.received.Add(uint64(len(msgs)))
	return msgs, nil
}

// AgentState returns the lifecycle state of agentID, StateClosed if unknown.
func (t *Transport) AgentState(agentID string) State {
	t.mu.RLock()
	ep := t.eps[agentID]
	t.mu.RUnlock()
	if ep == nil {
		return StateClosed
	}
	return ep.currentState()
}

// QueueLen reports how many messages are waiting for agentID.
func (t *Transport) QueueLen(agentID string) int {
	t.mu.RLock()
	ep := t.eps[agentID]
	t.mu.RUnlock()
	if ep == nil {
		return 0
	}
	return ep.mb.len()
}

// Stats snapshots the transport counters.
func (t *Transport) Stats() Stats { return t.ctr.snapshot() }

// sweep evicts unclaimed messages older than MessageTTL. Eviction is an
// observable event: logged per agent and counted.
func (t *Transport) sweep() {
	defer t.wg.Done()
	interval := t.opts.MessageTTL / 4
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-t.stopCh:
			return
		case <-tick.C:
			cutoff := time.Now().Add(-t.opts.MessageTTL)
			t.mu.RLock()
			eps := make([]*endpoint, 0, len(t.eps))
			for _, ep := range t.eps {
				eps = append(eps, ep)
			}
			t.mu.RUnlock()
			for _, ep := range eps {
				if expired := ep.mb.expire(cutoff); len(expired) > 0 {
					t.ctr.expired.Add(uint64(len(expired)))
					t.log.Warn("ttl evicted unclaimed messages",
						zap.String("agent", ep.id), zap.Int("evicted", len(expired)))
				}
			}
		}
	}
}
