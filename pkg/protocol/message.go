package protocol

import (
	"time"

	"github.com/google/uuid"
)

// Header describes the vectors a message carries.
type Header struct {
	Dimension     Dimension
	Encoding      Encoding
	SemanticSpace string // embedding model identifier, e.g. "all-MiniLM-L6-v2"
	Confidence    float32
}

// Payload carries the vectors themselves. Every vector must have exactly
// Header.Dimension elements; AttentionWeights, when present, has one weight
// per context vector.
type Payload struct {
	Primary          []float32
	Context          [][]float32
	AttentionWeights []float32
	Uncertainty      []float32
}

// Metadata identifies and routes a message. An empty Destination means
// broadcast; a group id means multicast.
type Metadata struct {
	Source      string
	Destination string
	Intent      Intent
	Priority    int
	Timestamp   time.Time
	MessageID   string
}

// Message is the unit of exchange. Checksum/Signature are 32-byte trailers
// attached by AddChecksum/Sign; a message with either set must be treated
// as immutable.
type Message struct {
	Header    Header
	Payload   Payload
	Metadata  Metadata
	Checksum  []byte
	Signature []byte
}

func (m *Message) HasChecksum() bool  { return len(m.Checksum) == checksumSize }
func (m *Message) HasSignature() bool { return len(m.Signature) == signatureSize }

// IsBroadcast reports whether the message has no named destination.
func (m *Message) IsBroadcast() bool { return m.Metadata.Destination == "" }

// Clone returns a deep copy. Fan-out delivery hands each recipient its own
// copy so consumers can never observe each other's mutations.
func (m *Message) Clone() *Message {
	out := *m
	out.Payload.Primary = append([]float32(nil), m.Payload.Primary...)
	if m.Payload.Context != nil {
		out.Payload.Context = make([][]float32, len(m.Payload.Context))
		for i, v := range m.Payload.Context {
			out.Payload.Context[i] = append([]float32(nil), v...)
		}
	}
	if m.Payload.AttentionWeights != nil {
		out.Payload.AttentionWeights = append([]float32(nil), m.Payload.AttentionWeights...)
	}
	if m.Payload.Uncertainty != nil {
		out.Payload.Uncertainty = append([]float32(nil), m.Payload.Uncertainty...)
	}
	if m.Checksum != nil {
		out.Checksum = append([]byte(nil), m.Checksum...)
	}
	if m.Signature != nil {
		out.Signature = append([]byte(nil), m.Signature...)
	}
	return &out
}

// Option adjusts a message under construction.
type Option func(*Message)

func WithDestination(agentID string) Option {
	return func(m *Message) { m.Metadata.Destination = agentID }
}

func WithIntent(i Intent) Option {
	return func(m *Message) { m.Metadata.Intent = i }
}

func WithPriority(p int) Option {
	return func(m *Message) { m.Metadata.Priority = p }
}

func WithContext(vectors ...[]float32) Option {
	return func(m *Message) { m.Payload.Context = vectors }
}

func WithAttentionWeights(weights []float32) Option {
	return func(m *Message) { m.Payload.AttentionWeights = weights }
}

func WithUncertainty(v []float32) Option {
	return func(m *Message) { m.Payload.Uncertainty = v }
}

func WithEncoding(e Encoding) Option {
	return func(m *Message) { m.Header.Encoding = e }
}

func WithSemanticSpace(model string) Option {
	return func(m *Message) { m.Header.SemanticSpace = model }
}

func WithConfidence(c float32) Option {
	return func(m *Message) { m.Header.Confidence = c }
}

// New builds a validated message from a source agent id and a primary
// vector. Defaults: intent QUERY, priority 5, float32 encoding, confidence
// 1.0, dimension inferred from len(primary), a fresh UUIDv4 message id and
// the current UTC time. Returns *ValidationError if any invariant fails.
func New(source string, primary []float32, opts ...Option) (*Message, error) {
	m := &Message{
		Header: Header{
			Encoding:   Float32,
			Confidence: 1,
		},
		Payload: Payload{Primary: primary},
		Metadata: Metadata{
			Source:    source,
			Intent:    IntentQuery,
			Priority:  DefaultPriority,
			Timestamp: time.Now().UTC(),
			MessageID: uuid.NewString(),
		},
	}
	if d, ok := DimensionFor(len(primary)); ok {
		m.Header.Dimension = d
	}
	for _, o := range opts {
		o(m)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
