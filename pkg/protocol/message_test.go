package protocol

import (
	"errors"
	"strings"
	"testing"
)

func vec(dim int, f func(i int) float32) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = f(i)
	}
	return v
}

func constVec(dim int, x float32) []float32 {
	return vec(dim, func(int) float32 { return x })
}

func TestNewDefaults(t *testing.T) {
	m, err := New("agentA", constVec(384, 0.5))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if m.Header.Dimension != Dim384 || m.Header.Encoding != Float32 {
		t.Fatalf("header defaults: %+v", m.Header)
	}
	if m.Metadata.Intent != IntentQuery || m.Metadata.Priority != DefaultPriority {
		t.Fatalf("metadata defaults: %+v", m.Metadata)
	}
	if m.Metadata.MessageID == "" || m.Metadata.Timestamp.IsZero() {
		t.Fatalf("missing id/timestamp: %+v", m.Metadata)
	}
	if !m.IsBroadcast() {
		t.Fatal("no destination should mean broadcast")
	}
}

func TestNewUniqueMessageIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		m, err := New("agentA", constVec(384, 1))
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		if seen[m.Metadata.MessageID] {
			t.Fatalf("duplicate message id %s", m.Metadata.MessageID)
		}
		seen[m.Metadata.MessageID] = true
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	cases := []struct {
		name    string
		primary []float32
		opts    []Option
		want    string
	}{
		{"odd dimension", constVec(100, 1), nil, "dimension"},
		{"priority too high", constVec(384, 1), []Option{WithPriority(11)}, "priority"},
		{"priority negative", constVec(384, 1), []Option{WithPriority(-1)}, "priority"},
		{"confidence out of range", constVec(384, 1), []Option{WithConfidence(1.5)}, "confidence"},
		{"context wrong length", constVec(384, 1), []Option{WithContext(constVec(768, 1))}, "context"},
		{"attention without context", constVec(384, 1), []Option{WithAttentionWeights([]float32{0.5})}, "attention"},
		{"uncertainty wrong length", constVec(384, 1), []Option{WithUncertainty(constVec(10, 1))}, "uncertainty"},
		{"bad intent", constVec(384, 1), []Option{WithIntent(Intent(99))}, "intent"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New("agentA", tc.primary, tc.opts...)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("want ValidationError, got %v", err)
			}
			if !strings.Contains(verr.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", verr.Error(), tc.want)
			}
		})
	}
}

func TestValidateCollectsAllIssues(t *testing.T) {
	m := &Message{} // everything wrong at once
	err := m.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if len(verr.Issues) < 4 {
		t.Fatalf("expected several issues, got %d: %v", len(verr.Issues), verr.Issues)
	}
}

func TestEmptySourceRejected(t *testing.T) {
	_, err := New("", constVec(384, 1))
	if err == nil {
		t.Fatal("expected error for empty source")
	}
}

func TestParseIntent(t *testing.T) {
	for i := IntentQuery; i <= IntentHeartbeat; i++ {
		got, err := ParseIntent(i.String())
		if err != nil || got != i {
			t.Fatalf("roundtrip %v: got %v err %v", i, got, err)
		}
	}
	if _, err := ParseIntent("GOSSIP"); err == nil {
		t.Fatal("unknown intent accepted")
	}
}

func TestCloneIsDeep(t *testing.T) {
	m, err := New("agentA", constVec(384, 1),
		WithContext(constVec(384, 2)),
		WithAttentionWeights([]float32{1}),
		WithUncertainty(constVec(384, 0.1)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	c := m.Clone()
	c.Payload.Primary[0] = 99
	c.Payload.Context[0][0] = 99
	c.Payload.AttentionWeights[0] = 99
	c.Payload.Uncertainty[0] = 99
	if m.Payload.Primary[0] == 99 || m.Payload.Context[0][0] == 99 ||
		m.Payload.AttentionWeights[0] == 99 || m.Payload.Uncertainty[0] == 99 {
		t.Fatal("clone shares storage with original")
	}
}
