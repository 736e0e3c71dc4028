package transport

import (
	"time"

	"vectorcomm/pkg/protocol"
)

// Banded discipline for the opt-in priority mailbox: strict order between
// bands, FIFO within a band. Three bands keep head-of-line blocking cheap
// without per-message heap churn.
const (
	bandHigh = iota // priority 8..10
	bandNormal      // priority 4..7
	bandLow         // priority 0..3
	numBands
)

func bandFor(m *protocol.Message) int {
	switch p := m.Metadata.Priority; {
	case p >= 8:
		return bandHigh
	case p >= 4:
		return bandNormal
	default:
		return bandLow
	}
}

type bandedBuffer struct {
	bands [numBands][]queued
	size  int
}

func newBandedBuffer() *bandedBuffer { return &bandedBuffer{} }

func (b *bandedBuffer) push(q queued) {
	band := bandFor(q.msg)
	b.bands[band] = append(b.bands[band], q)
	b.size++
}

// pop takes from the highest non-empty band.
func (b *bandedBuffer) pop() (queued, bool) {
	for band := bandHigh; band < numBands; band++ {
		if len(b.bands[band]) > 0 {
			return b.popFrom(band), true
		}
	}
	return queued{}, false
}

// evict sacrifices the oldest entry of the lowest non-empty band, so a
// burst of low-priority traffic cannot push out urgent messages.
func (b *bandedBuffer) evict() (queued, bool) {
	for band := numBands - 1; band >= 0; band-- {
		if len(b.bands[band]) > 0 {
			return b.popFrom(band), true
		}
	}
	return queued{}, false
}

func (b *bandedBuffer) popFrom(band int) queued {
	q := b.bands[band][0]
	b.bands[band][0] = queued{}
	b.bands[band] = b.bands[band][1:]
	b.size--
	return q
}

func (b *bandedBuffer) len() int { return b.size }

func (b *bandedBuffer) expire(cutoff time.Time) []queued {
	var out []queued
	for band := range b.bands {
		for len(b.bands[band]) > 0 && b.bands[band][0].enqueuedAt.Before(cutoff) {
			out = append(out, b.popFrom(band))
		}
	}
	return out
}
