package protocol

import "fmt"

// Validate performs pure structural checking with no side effects. It
// returns nil or a *ValidationError listing every violation found.
func (m *Message) Validate() error {
	var issues []string
	add := func(format string, args ...any) {
		issues = append(issues, fmt.Sprintf(format, args...))
	}

	dim := int(m.Header.Dimension)
	if !m.Header.Dimension.Valid() {
		add("dimension %d is not one of 384/768/1536/4096", dim)
	}
	if !m.Header.Encoding.Valid() {
		add("unknown encoding %d", uint8(m.Header.Encoding))
	}
	if c := m.Header.Confidence; c < 0 || c > 1 || c != c {
		add("confidence %v outside [0,1]", c)
	}

	if m.Header.Dimension.Valid() {
		if len(m.Payload.Primary) != dim {
			add("primary vector has %d elements, header dimension is %d", len(m.Payload.Primary), dim)
		}
		for i, v := range m.Payload.Context {
			if len(v) != dim {
				add("context vector %d has %d elements, header dimension is %d", i, len(v), dim)
			}
		}
		if u := m.Payload.Uncertainty; u != nil && len(u) != dim {
			add("uncertainty vector has %d elements, header dimension is %d", len(u), dim)
		}
	}
	if w := m.Payload.AttentionWeights; w != nil && len(w) != len(m.Payload.Context) {
		add("%d attention weights for %d context vectors", len(w), len(m.Payload.Context))
	}
	if len(m.Payload.Context) > maxContextVectors {
		add("%d context vectors exceeds limit %d", len(m.Payload.Context), maxContextVectors)
	}

	if m.Metadata.Source == "" {
		add("source agent id is required")
	}
	for _, f := range []struct {
		name  string
		value string
	}{
		{"source", m.Metadata.Source},
		{"destination", m.Metadata.Destination},
		{"message id", m.Metadata.MessageID},
		{"semantic space", m.Header.SemanticSpace},
	} {
		if len(f.value) > maxMetadataFieldLen {
			add("%s is %d bytes, limit %d", f.name, len(f.value), maxMetadataFieldLen)
		}
	}
	if !m.Metadata.Intent.Valid() {
		add("unknown intent %d", uint8(m.Metadata.Intent))
	}
	if p := m.Metadata.Priority; p < MinPriority || p > MaxPriority {
		add("priority %d outside [%d,%d]", p, MinPriority, MaxPriority)
	}
	if m.Metadata.MessageID == "" {
		add("message id is required")
	}
	if m.Metadata.Timestamp.IsZero() {
		add("timestamp is required")
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
