package protocol

import (
	"encoding/binary"
	"math"

	"github.com/x448/float16"
)

// appendVector encodes one vector with the given element encoding.
func appendVector(b []byte, v []float32, enc Encoding) []byte {
	switch enc {
	case Float16:
		for _, f := range v {
			b = binary.LittleEndian.AppendUint16(b, float16.Fromfloat32(f).Bits())
		}
	case BFloat16:
		for _, f := range v {
			b = binary.LittleEndian.AppendUint16(b, bfloat16Bits(f))
		}
	default:
		for _, f := range v {
			b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
		}
	}
	return b
}

// readVector decodes dim elements, widening half-precision forms back to
// float32. For Float16/BFloat16 the result is an approximation of the
// producer's values.
func readVector(cur *cursor, dim int, enc Encoding) ([]float32, bool) {
	raw, ok := cur.take(dim * enc.elemSize())
	if !ok {
		return nil, false
	}
	v := make([]float32, dim)
	switch enc {
	case Float16:
		for i := range v {
			v[i] = float16.Frombits(binary.LittleEndian.Uint16(raw[2*i:])).Float32()
		}
	case BFloat16:
		for i := range v {
			v[i] = bfloat16Float32(binary.LittleEndian.Uint16(raw[2*i:]))
		}
	default:
		for i := range v {
			v[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
		}
	}
	return v, true
}

// bfloat16Bits truncates a float32 to bfloat16 with round-to-nearest-even.
// NaN/Inf patterns are truncated as-is so they stay NaN/Inf.
func bfloat16Bits(f float32) uint16 {
	bits := math.Float32bits(f)
	if bits&0x7f800000 == 0x7f800000 {
		return uint16(bits >> 16)
	}
	round := uint32(0x7fff) + (bits >> 16 & 1)
	return uint16((bits + round) >> 16)
}

func bfloat16Float32(bits uint16) float32 {
	return math.Float32frombits(uint32(bits) << 16)
}
