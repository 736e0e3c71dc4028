package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestChecksumIdempotence(t *testing.T) {
	m := mkMessage(t)
	cm, err := AddChecksum(m)
	if err != nil {
		t.Fatalf("add checksum: %v", err)
	}
	if !VerifyChecksum(cm) {
		t.Fatal("fresh checksum does not verify")
	}
	if m.HasChecksum() {
		t.Fatal("AddChecksum mutated the original")
	}
	// re-checksum of the already-checksummed copy hashes the same content
	cm2, err := AddChecksum(cm)
	if err != nil {
		t.Fatalf("re-checksum: %v", err)
	}
	if !bytes.Equal(cm.Checksum, cm2.Checksum) {
		t.Fatal("checksum not stable: prior checksum leaked into the hash")
	}
}

func TestChecksumRoundtripsOnWire(t *testing.T) {
	for _, compress := range []bool{false, true} {
		cm, err := AddChecksum(mkMessage(t))
		if err != nil {
			t.Fatalf("add checksum: %v", err)
		}
		data, err := Serialize(cm, compress)
		if err != nil {
			t.Fatalf("serialize: %v", err)
		}
		got, err := Deserialize(data)
		if err != nil {
			t.Fatalf("deserialize(compress=%v): %v", compress, err)
		}
		if !bytes.Equal(got.Checksum, cm.Checksum) {
			t.Fatal("checksum trailer lost in roundtrip")
		}
	}
}

func TestBitFlipTriggersIntegrityError(t *testing.T) {
	cm, err := AddChecksum(mkMessage(t))
	if err != nil {
		t.Fatalf("add checksum: %v", err)
	}
	data, err := Serialize(cm, false)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	// flip one byte in the payload region and one in the checksum trailer
	for _, off := range []int{prefixSize + 8, len(data) - 1} {
		bad := append([]byte(nil), data...)
		bad[off] ^= 0x01
		_, err := Deserialize(bad)
		if errors.Is(err, ErrIntegrity) {
			continue
		}
		// a flip may also break the frame structure itself; silence is the
		// only unacceptable outcome
		if err == nil {
			t.Fatalf("flipped byte %d accepted silently", off)
		}
	}
}

func TestVerifyChecksumFalseCases(t *testing.T) {
	m := mkMessage(t)
	if VerifyChecksum(m) {
		t.Fatal("message without checksum verified")
	}
	cm, _ := AddChecksum(m)
	tampered := cm.Clone()
	tampered.Payload.Primary[0] += 1
	if VerifyChecksum(tampered) {
		t.Fatal("tampered payload verified")
	}
}

func TestSignAndVerify(t *testing.T) {
	secret := []byte("shared-secret")
	sm, err := Sign(mkMessage(t), secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !VerifySignature(sm, secret) {
		t.Fatal("signature does not verify with the right secret")
	}
	if VerifySignature(sm, []byte("wrong")) {
		t.Fatal("signature verified with the wrong secret")
	}
	tampered := sm.Clone()
	tampered.Metadata.Priority = 9
	if VerifySignature(tampered, secret) {
		t.Fatal("signature survived tampering")
	}
}

func TestSignatureRoundtripsOnWire(t *testing.T) {
	secret := []byte("shared-secret")
	sm, err := Sign(mkMessage(t), secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	data, err := Serialize(sm, false)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	got, err := Deserialize(data)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if !VerifySignature(got, secret) {
		t.Fatal("signature does not verify after roundtrip")
	}
}

func TestVerifyComposes(t *testing.T) {
	var verr *ValidationError
	if err := Verify(&Message{}); !errors.As(err, &verr) {
		t.Fatalf("structural failure: got %v", err)
	}

	cm, _ := AddChecksum(mkMessage(t))
	mutated := cm.Clone()
	mutated.Payload.Primary[3] = -1
	if err := Verify(mutated); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("mutated checksummed message: got %v, want ErrIntegrity", err)
	}

	if err := Verify(cm); err != nil {
		t.Fatalf("intact message rejected: %v", err)
	}
}
