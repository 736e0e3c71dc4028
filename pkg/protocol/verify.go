package protocol

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
)

// canonicalBytes is the hashing input for checksums and signatures: the
// uncompressed encoding of Header+Payload+Metadata with both trailer flags
// cleared and no trailers appended. Excluding the trailers prevents a
// checksum-of-checksum, and excluding compression keeps the hash stable
// across transport settings.
func canonicalBytes(m *Message) ([]byte, error) {
	return encode(m, false, false)
}

// AddChecksum returns a copy of m carrying a SHA-256 checksum over its
// canonical bytes. The original is not touched; the returned message must
// be treated as immutable.
func AddChecksum(m *Message) (*Message, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	b, err := canonicalBytes(m)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(b)
	out := m.Clone()
	out.Checksum = sum[:]
	return out, nil
}

// VerifyChecksum reports whether m carries a checksum that matches its
// content.
func VerifyChecksum(m *Message) bool {
	if !m.HasChecksum() {
		return false
	}
	b, err := canonicalBytes(m)
	if err != nil {
		return false
	}
	sum := sha256.Sum256(b)
	return subtle.ConstantTimeCompare(sum[:], m.Checksum) == 1
}

// Sign returns a copy of m carrying an HMAC-SHA256 signature over its
// canonical bytes. Unlike a checksum, verifying it requires the shared
// secret, so it authenticates the sender as well as the content.
func Sign(m *Message, secret []byte) (*Message, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	b, err := canonicalBytes(m)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(b)
	out := m.Clone()
	out.Signature = mac.Sum(nil)
	return out, nil
}

// VerifySignature reports whether m carries a signature produced with
// secret over its current content.
func VerifySignature(m *Message, secret []byte) bool {
	if !m.HasSignature() {
		return false
	}
	b, err := canonicalBytes(m)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(b)
	return hmac.Equal(mac.Sum(nil), m.Signature)
}

// Verify composes structural validation with integrity checking. It is the
// single ingress call the transport makes before queuing: a message that
// fails here is rejected whole, never partially accepted.
func Verify(m *Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if m.HasChecksum() && !VerifyChecksum(m) {
		return ErrIntegrity
	}
	return nil
}
