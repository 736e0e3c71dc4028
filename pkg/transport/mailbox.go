package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vectorcomm/pkg/protocol"
)

// MailboxKind selects the queuing discipline for every endpoint of a
// transport instance.
type MailboxKind uint8

const (
	// MailboxFIFO is the default: strict arrival order, priority is
	// metadata only.
	MailboxFIFO MailboxKind = iota
	// MailboxPriority is the opt-in banded extension: strict order between
	// priority bands, FIFO within a band.
	MailboxPriority
)

func (k MailboxKind) String() string {
	if k == MailboxPriority {
		return "priority"
	}
	return "fifo"
}

// ParseMailboxKind maps a config string to its kind.
func ParseMailboxKind(s string) (MailboxKind, error) {
	switch s {
	case "", "fifo":
		return MailboxFIFO, nil
	case "priority":
		return MailboxPriority, nil
	}
	return 0, fmt.Errorf("unknown mailbox kind %q", s)
}

type queued struct {
	msg        *protocol.Message
	enqueuedAt time.Time
}

// buffer is the storage discipline behind a mailbox: plainly FIFO or
// priority-banded. Not safe for concurrent use; the mailbox serializes.
type buffer interface {
	push(q queued)
	pop() (queued, bool)
	// evict removes the entry the discipline sacrifices when full.
	evict() (queued, bool)
	len() int
	// expire removes entries enqueued before the cutoff.
	expire(cutoff time.Time) []queued
}

type pushOutcome uint8

const (
	pushOK pushOutcome = iota
	pushFull
	pushTimeout
	pushClosed
)

// mailbox is a bounded queue whose waits are timeout-able and wakeable on
// close, so a disconnect can interrupt an in-flight receive well inside the
// caller's own timeout bound. The notEmpty/notFull channels are broadcast
// signals: closed to wake every waiter, then re-armed under the lock, so a
// waiter that snapshots the channel before sleeping can never miss a
// wakeup.
type mailbox struct {
	mu       sync.Mutex
	buf      buffer
	capacity int
	closed   bool
	notEmpty chan struct{}
	notFull  chan struct{}
}

func newMailbox(kind MailboxKind, capacity int) *mailbox {
	var buf buffer
	if kind == MailboxPriority {
		buf = newBandedBuffer()
	} else {
		buf = &fifoBuffer{}
	}
	return &mailbox{
		buf:      buf,
		capacity: capacity,
		notEmpty: make(chan struct{}),
		notFull:  make(chan struct{}),
	}
}

func (mb *mailbox) signalNotEmptyLocked() {
	if mb.closed {
		return
	}
	close(mb.notEmpty)
	mb.notEmpty = make(chan struct{})
}

func (mb *mailbox) signalNotFullLocked() {
	if mb.closed {
		return
	}
	close(mb.notFull)
	mb.notFull = make(chan struct{})
}

func (mb *mailbox) len() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return mb.buf.len()
}

// push appends without blocking.
func (mb *mailbox) push(m *protocol.Message) pushOutcome {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.closed {
		return pushClosed
	}
	if mb.buf.len() >= mb.capacity {
		return pushFull
	}
	mb.buf.push(queued{msg: m, enqueuedAt: time.Now()})
	mb.signalNotEmptyLocked()
	return pushOK
}

// pushEvict appends, sacrificing one queued entry when full. The evicted
// message is returned so the caller can log and count the loss.
func (mb *mailbox) pushEvict(m *protocol.Message) (*protocol.Message, pushOutcome) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.closed {
		return nil, pushClosed
	}
	var evicted *protocol.Message
	if mb.buf.len() >= mb.capacity {
		if q, ok := mb.buf.evict(); ok {
			evicted = q.msg
		}
	}
	mb.buf.push(queued{msg: m, enqueuedAt: time.Now()})
	mb.signalNotEmptyLocked()
	return evicted, pushOK
}

// pushWait blocks the calling producer (only) until space frees, the
// timeout lapses, or the mailbox closes.
func (mb *mailbox) pushWait(m *protocol.Message, timeout time.Duration) pushOutcome {
	var deadline <-chan time.Time
	if timeout > 0 {
		tm := time.NewTimer(timeout)
		defer tm.Stop()
		deadline = tm.C
	}
	for {
		mb.mu.Lock()
		if mb.closed {
			mb.mu.Unlock()
			return pushClosed
		}
		if mb.buf.len() < mb.capacity {
			mb.buf.push(queued{msg: m, enqueuedAt: time.Now()})
			mb.signalNotEmptyLocked()
			mb.mu.Unlock()
			return pushOK
		}
		wait := mb.notFull
		mb.mu.Unlock()

		select {
		case <-wait:
		case <-deadline:
			return pushTimeout
		}
	}
}

// popWait suspends the caller until a message arrives, the timeout lapses
// (nil, nil, a normal outcome), the context is cancelled, or the mailbox
// closes (errMailboxClosed).
func (mb *mailbox) popWait(ctx context.Context, timeout time.Duration) (*protocol.Message, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		tm := time.NewTimer(timeout)
		defer tm.Stop()
		deadline = tm.C
	}
	for {
		mb.mu.Lock()
		if q, ok := mb.buf.pop(); ok {
			mb.signalNotFullLocked()
			mb.mu.Unlock()
			return q.msg, nil
		}
		if mb.closed {
			mb.mu.Unlock()
			return nil, errMailboxClosed
		}
		wait := mb.notEmpty
		mb.mu.Unlock()

		select {
		case <-wait:
		case <-deadline:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// drain removes and returns everything queued, without blocking.
func (mb *mailbox) drain() []*protocol.Message {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	var out []*protocol.Message
	for {
		q, ok := mb.buf.pop()
		if !ok {
			break
		}
		out = append(out, q.msg)
	}
	if len(out) > 0 {
		mb.signalNotFullLocked()
	}
	return out
}

// expire removes messages enqueued before the cutoff.
func (mb *mailbox) expire(cutoff time.Time) []*protocol.Message {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.closed {
		return nil
	}
	qs := mb.buf.expire(cutoff)
	if len(qs) == 0 {
		return nil
	}
	out := make([]*protocol.Message, len(qs))
	for i, q := range qs {
		out[i] = q.msg
	}
	mb.signalNotFullLocked()
	return out
}

// waitEmpty blocks until the mailbox is empty or the timeout lapses.
func (mb *mailbox) waitEmpty(timeout time.Duration) bool {
	tm := time.NewTimer(timeout)
	defer tm.Stop()
	for {
		mb.mu.Lock()
		if mb.buf.len() == 0 {
			mb.mu.Unlock()
			return true
		}
		wait := mb.notFull
		mb.mu.Unlock()

		select {
		case <-wait:
		case <-tm.C:
			return false
		}
	}
}

// close marks the mailbox closed, wakes every waiter, and returns whatever
// was still queued so the caller can account for the loss.
func (mb *mailbox) close() []*protocol.Message {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.closed {
		return nil
	}
	var out []*protocol.Message
	for {
		q, ok := mb.buf.pop()
		if !ok {
			break
		}
		out = append(out, q.msg)
	}
	mb.closed = true
	close(mb.notEmpty)
	close(mb.notFull)
	return out
}

// fifoBuffer is the default discipline: one slice in arrival order.
type fifoBuffer struct {
	items []queued
}

func (b *fifoBuffer) push(q queued) { b.items = append(b.items, q) }

func (b *fifoBuffer) pop() (queued, bool) {
	if len(b.items) == 0 {
		return queued{}, false
	}
	q := b.items[0]
	b.items[0] = queued{}
	b.items = b.items[1:]
	return q, true
}

func (b *fifoBuffer) evict() (queued, bool) { return b.pop() }

func (b *fifoBuffer) len() int { return len(b.items) }

func (b *fifoBuffer) expire(cutoff time.Time) []queued {
	var out []queued
	for len(b.items) > 0 && b.items[0].enqueuedAt.Before(cutoff) {
		q, _ := b.pop()
		out = append(out, q)
	}
	return out
}
