package protocol

import (
	"bytes"
	"encoding/binary"
	"math"
	"strconv"
	"time"
)

// Frame layout, little-endian throughout:
//
//	0..3   magic 'V','C','M','P'
//	4      version u8
//	5      flags u8 (bit0 compressed, bit1 checksum, bit2 signature)
//	6      dimension code u8 (0=384,1=768,2=1536,3=4096)
//	7      encoding code u8 (0=float32,1=float16,2=bfloat16)
//	8..11  payload_length u32
//	...    payload region (payload_length bytes; compressed blob length
//	       when bit0 is set, since the blob then spans payload+metadata)
//	...    metadata region (8 length-prefixed UTF-8 fields)
//	+32B   checksum   iff bit1
//	+32B   signature  iff bit2
//
// Payload region: primary | u16 nctx | context... | u8 hasAttn |
// weights(float32) | u8 hasUnc | uncertainty. Vector elements use the
// header encoding; attention weights are scalars and stay float32.
//
// Metadata region fields, in order: source, destination (empty =
// broadcast), intent name, priority (decimal), timestamp (decimal
// UnixNano), message id, semantic space, confidence (shortest exact
// float32 form).
const (
	prefixSize    = 12
	checksumSize  = 32
	signatureSize = 32

	// guards against absurd sizes, as in any length-prefixed codec
	maxRegionLen      = 1 << 31
	maxContextVectors = 1 << 16 - 1

	// metadata fields carry a u16 length prefix on the wire
	maxMetadataFieldLen = 1 << 16 - 1
)

// Serialize encodes m into a self-describing frame. When compress is true
// the payload+metadata region is deflated and flag bit0 records it; the
// fixed prefix always stays raw so receivers can dispatch without
// inflating. The message is validated first; a structurally invalid
// message is a caller bug and yields *ValidationError.
func Serialize(m *Message, compress bool) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return encode(m, compress, true)
}

func encode(m *Message, compress, withTrailers bool) ([]byte, error) {
	payload := appendPayloadRegion(nil, m)
	meta := appendMetadataRegion(nil, m)

	var flags byte
	var body []byte
	var plen uint32
	if compress {
		blob, err := deflate(append(payload, meta...))
		if err != nil {
			return nil, err
		}
		flags |= FlagCompressed
		body = blob
		plen = uint32(len(blob))
	} else {
		body = append(payload, meta...)
		plen = uint32(len(payload))
	}
	trailer := 0
	if withTrailers {
		if m.HasChecksum() {
			flags |= FlagChecksum
			trailer += checksumSize
		}
		if m.HasSignature() {
			flags |= FlagSignature
			trailer += signatureSize
		}
	}

	out := make([]byte, 0, prefixSize+len(body)+trailer)
	out = append(out, magic[:]...)
	out = append(out, Version, flags, dimensionCode(m.Header.Dimension), byte(m.Header.Encoding))
	out = binary.LittleEndian.AppendUint32(out, plen)
	out = append(out, body...)
	if withTrailers {
		if m.HasChecksum() {
			out = append(out, m.Checksum...)
		}
		if m.HasSignature() {
			out = append(out, m.Signature...)
		}
	}
	return out, nil
}

// Deserialize parses a frame produced by Serialize. Compression is read
// from the flag bit, so the same call handles both modes. Typed failures:
// ErrCorruptMessage for anything unparseable, *VersionError for version
// skew, *DecompressionError for a bad deflate stream, ErrIntegrity when a
// carried checksum does not match the decoded content. No field is ever
// silently dropped or defaulted.
func Deserialize(data []byte) (*Message, error) {
	if len(data) < prefixSize || !bytes.Equal(data[0:4], magic[:]) {
		return nil, ErrCorruptMessage
	}
	if data[4] != Version {
		return nil, &VersionError{Got: data[4]}
	}
	flags := data[5]
	dim, ok := dimensionFromCode(data[6])
	if !ok {
		return nil, ErrCorruptMessage
	}
	enc := Encoding(data[7])
	if !enc.Valid() {
		return nil, ErrCorruptMessage
	}
	plen := binary.LittleEndian.Uint32(data[8:12])
	if uint64(plen) > maxRegionLen {
		return nil, ErrCorruptMessage
	}

	trailer := 0
	if flags&FlagChecksum != 0 {
		trailer += checksumSize
	}
	if flags&FlagSignature != 0 {
		trailer += signatureSize
	}
	rest := data[prefixSize:]
	if len(rest) < trailer {
		return nil, ErrCorruptMessage
	}
	region := rest[:len(rest)-trailer]

	var payloadLen int
	if flags&FlagCompressed != 0 {
		if int(plen) != len(region) {
			return nil, ErrCorruptMessage
		}
		raw, err := inflate(region)
		if err != nil {
			return nil, &DecompressionError{Err: err}
		}
		region = raw
		payloadLen = -1 // unknown up front; the cursor discovers it
	} else {
		if int(plen) > len(region) {
			return nil, ErrCorruptMessage
		}
		payloadLen = int(plen)
	}

	m := &Message{Header: Header{Dimension: dim, Encoding: enc}}
	cur := cursor{b: region}
	if err := readPayloadRegion(&cur, m); err != nil {
		return nil, err
	}
	if payloadLen >= 0 && cur.off != payloadLen {
		return nil, ErrCorruptMessage
	}
	if err := readMetadataRegion(&cur, m); err != nil {
		return nil, err
	}
	if cur.off != len(region) {
		return nil, ErrCorruptMessage
	}

	tb := rest[len(rest)-trailer:]
	if flags&FlagChecksum != 0 {
		m.Checksum = append([]byte(nil), tb[:checksumSize]...)
		tb = tb[checksumSize:]
	}
	if flags&FlagSignature != 0 {
		m.Signature = append([]byte(nil), tb[:signatureSize]...)
	}

	if m.HasChecksum() && !VerifyChecksum(m) {
		return nil, ErrIntegrity
	}
	return m, nil
}

// EstimateSize computes the exact uncompressed frame size without encoding,
// for batching and capacity decisions.
func EstimateSize(m *Message) int {
	esz := m.Header.Encoding.elemSize()
	dim := int(m.Header.Dimension)

	n := prefixSize
	n += dim * esz                            // primary
	n += 2 + len(m.Payload.Context)*dim*esz   // count + context vectors
	n += 1 + 4*len(m.Payload.AttentionWeights) // flag + weights
	n++                                       // uncertainty flag
	if m.Payload.Uncertainty != nil {
		n += dim * esz
	}
	for _, f := range metadataFields(m) {
		n += 2 + len(f)
	}
	if m.HasChecksum() {
		n += checksumSize
	}
	if m.HasSignature() {
		n += signatureSize
	}
	return n
}

// cursor is a bounds-checked reader over a decoded region.
type cursor struct {
	b   []byte
	off int
}

func (c *cursor) take(n int) ([]byte, bool) {
	if n < 0 || c.off+n > len(c.b) {
		return nil, false
	}
	b := c.b[c.off : c.off+n]
	c.off += n
	return b, true
}

func (c *cursor) u8() (byte, bool) {
	b, ok := c.take(1)
	if !ok {
		return 0, false
	}
	return b[0], true
}

func (c *cursor) u16() (uint16, bool) {
	b, ok := c.take(2)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint16(b), true
}

func appendPayloadRegion(b []byte, m *Message) []byte {
	enc := m.Header.Encoding
	b = appendVector(b, m.Payload.Primary, enc)
	b = binary.LittleEndian.AppendUint16(b, uint16(len(m.Payload.Context)))
	for _, v := range m.Payload.Context {
		b = appendVector(b, v, enc)
	}
	if m.Payload.AttentionWeights != nil {
		b = append(b, 1)
		for _, w := range m.Payload.AttentionWeights {
			b = binary.LittleEndian.AppendUint32(b, math.Float32bits(w))
		}
	} else {
		b = append(b, 0)
	}
	if m.Payload.Uncertainty != nil {
		b = append(b, 1)
		b = appendVector(b, m.Payload.Uncertainty, enc)
	} else {
		b = append(b, 0)
	}
	return b
}

func readPayloadRegion(cur *cursor, m *Message) error {
	enc := m.Header.Encoding
	dim := int(m.Header.Dimension)

	v, ok := readVector(cur, dim, enc)
	if !ok {
		return ErrCorruptMessage
	}
	m.Payload.Primary = v

	nctx, ok := cur.u16()
	if !ok {
		return ErrCorruptMessage
	}
	if nctx > 0 {
		m.Payload.Context = make([][]float32, nctx)
		for i := range m.Payload.Context {
			if m.Payload.Context[i], ok = readVector(cur, dim, enc); !ok {
				return ErrCorruptMessage
			}
		}
	}

	hasAttn, ok := cur.u8()
	if !ok || hasAttn > 1 {
		return ErrCorruptMessage
	}
	if hasAttn == 1 {
		raw, ok := cur.take(4 * int(nctx))
		if !ok {
			return ErrCorruptMessage
		}
		m.Payload.AttentionWeights = make([]float32, nctx)
		for i := range m.Payload.AttentionWeights {
			m.Payload.AttentionWeights[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
		}
	}

	hasUnc, ok := cur.u8()
	if !ok || hasUnc > 1 {
		return ErrCorruptMessage
	}
	if hasUnc == 1 {
		if m.Payload.Uncertainty, ok = readVector(cur, dim, enc); !ok {
			return ErrCorruptMessage
		}
	}
	return nil
}

func metadataFields(m *Message) [8]string {
	return [8]string{
		m.Metadata.Source,
		m.Metadata.Destination,
		m.Metadata.Intent.String(),
		strconv.Itoa(m.Metadata.Priority),
		strconv.FormatInt(m.Metadata.Timestamp.UnixNano(), 10),
		m.Metadata.MessageID,
		m.Header.SemanticSpace,
		strconv.FormatFloat(float64(m.Header.Confidence), 'g', -1, 32),
	}
}

func appendMetadataRegion(b []byte, m *Message) []byte {
	for _, f := range metadataFields(m) {
		b = binary.LittleEndian.AppendUint16(b, uint16(len(f)))
		b = append(b, f...)
	}
	return b
}

func readMetadataRegion(cur *cursor, m *Message) error {
	var fields [8]string
	for i := range fields {
		n, ok := cur.u16()
		if !ok {
			return ErrCorruptMessage
		}
		raw, ok := cur.take(int(n))
		if !ok {
			return ErrCorruptMessage
		}
		fields[i] = string(raw)
	}

	intent, err := ParseIntent(fields[2])
	if err != nil {
		return ErrCorruptMessage
	}
	prio, err := strconv.Atoi(fields[3])
	if err != nil {
		return ErrCorruptMessage
	}
	ns, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return ErrCorruptMessage
	}
	conf, err := strconv.ParseFloat(fields[7], 32)
	if err != nil {
		return ErrCorruptMessage
	}

	m.Metadata = Metadata{
		Source:      fields[0],
		Destination: fields[1],
		Intent:      intent,
		Priority:    prio,
		Timestamp:   time.Unix(0, ns).UTC(),
		MessageID:   fields[5],
	}
	m.Header.SemanticSpace = fields[6]
	m.Header.Confidence = float32(conf)
	return nil
}
