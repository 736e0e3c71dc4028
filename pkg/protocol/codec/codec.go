// Package codec provides out-of-band encodings of vector messages for the
// callers around the transport (dashboards, diagnostics, logs). These are
// views, not the wire format: the frame layout in package protocol is the
// only inter-agent encoding.
package codec

import (
	"encoding/hex"

	"vectorcomm/pkg/protocol"
)

// Codec marshals typed values for external consumers. Implementations
// should be deterministic.
type Codec interface {
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Registry maps content types to codecs.
type Registry struct{ byType map[string]Codec }

// NewRegistry constructs a registry preloaded with the JSON codec.
// CBOR can be added explicitly via Register(CBOR()).
func NewRegistry() *Registry {
	r := &Registry{byType: make(map[string]Codec)}
	r.Register(JSON())
	return r
}

// Register adds a codec.
func (r *Registry) Register(c Codec) { r.byType[c.ContentType()] = c }

// Get returns a codec by content type, or nil.
func (r *Registry) Get(contentType string) Codec { return r.byType[contentType] }

// View is a flat, tag-annotated snapshot of a message suitable for JSON or
// CBOR export. Vectors ride along so tooling can inspect them; integrity
// trailers are hex strings.
type View struct {
	MessageID     string      `json:"message_id" cbor:"1,keyasint"`
	Source        string      `json:"source" cbor:"2,keyasint"`
	Destination   string      `json:"destination,omitempty" cbor:"3,keyasint,omitempty"`
	Intent        string      `json:"intent" cbor:"4,keyasint"`
	Priority      int         `json:"priority" cbor:"5,keyasint"`
	TimestampNano int64       `json:"timestamp_unix_nano" cbor:"6,keyasint"`
	Dimension     int         `json:"dimension" cbor:"7,keyasint"`
	Encoding      string      `json:"encoding" cbor:"8,keyasint"`
	SemanticSpace string      `json:"semantic_space,omitempty" cbor:"9,keyasint,omitempty"`
	Confidence    float32     `json:"confidence" cbor:"10,keyasint"`
	Primary       []float32   `json:"primary" cbor:"11,keyasint"`
	Context       [][]float32 `json:"context,omitempty" cbor:"12,keyasint,omitempty"`
	Attention     []float32   `json:"attention_weights,omitempty" cbor:"13,keyasint,omitempty"`
	Uncertainty   []float32   `json:"uncertainty,omitempty" cbor:"14,keyasint,omitempty"`
	Checksum      string      `json:"checksum,omitempty" cbor:"15,keyasint,omitempty"`
	Signature     string      `json:"signature,omitempty" cbor:"16,keyasint,omitempty"`
}

// Snapshot flattens a message into a View.
func Snapshot(m *protocol.Message) View {
	return View{
		MessageID:     m.Metadata.MessageID,
		Source:        m.Metadata.Source,
		Destination:   m.Metadata.Destination,
		Intent:        m.Metadata.Intent.String(),
		Priority:      m.Metadata.Priority,
		TimestampNano: m.Metadata.Timestamp.UnixNano(),
		Dimension:     int(m.Header.Dimension),
		Encoding:      m.Header.Encoding.String(),
		SemanticSpace: m.Header.SemanticSpace,
		Confidence:    m.Header.Confidence,
		Primary:       m.Payload.Primary,
		Context:       m.Payload.Context,
		Attention:     m.Payload.AttentionWeights,
		Uncertainty:   m.Payload.Uncertainty,
		Checksum:      hex.EncodeToString(m.Checksum),
		Signature:     hex.EncodeToString(m.Signature),
	}
}
