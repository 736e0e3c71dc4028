package protocol

import (
	"math"
	"testing"
)

func TestBFloat16ExactValues(t *testing.T) {
	// values whose mantissa fits in bfloat16's 7 bits roundtrip exactly
	for _, f := range []float32{0, 1, -1, 0.5, 2, 3.140625, -256, 1.0 / 128} {
		if got := bfloat16Float32(bfloat16Bits(f)); got != f {
			t.Fatalf("bfloat16 roundtrip of representable %g gave %g", f, got)
		}
	}
}

func TestBFloat16Rounding(t *testing.T) {
	for _, f := range []float32{0.1, 0.3, 1.7, math.Pi, -0.123} {
		got := bfloat16Float32(bfloat16Bits(f))
		if re := relErr(f, got); re > 1.0/256 {
			t.Fatalf("bfloat16 %g -> %g, rel err %g", f, got, re)
		}
	}
}

func TestBFloat16Specials(t *testing.T) {
	inf := float32(math.Inf(1))
	if got := bfloat16Float32(bfloat16Bits(inf)); !math.IsInf(float64(got), 1) {
		t.Fatalf("+inf became %g", got)
	}
	nan := float32(math.NaN())
	if got := bfloat16Float32(bfloat16Bits(nan)); got == got {
		t.Fatalf("NaN became %g", got)
	}
}

func TestVectorEncodingWidths(t *testing.T) {
	v := constVec(384, 0.25)
	if n := len(appendVector(nil, v, Float32)); n != 384*4 {
		t.Fatalf("float32 width %d", n)
	}
	if n := len(appendVector(nil, v, Float16)); n != 384*2 {
		t.Fatalf("float16 width %d", n)
	}
	if n := len(appendVector(nil, v, BFloat16)); n != 384*2 {
		t.Fatalf("bfloat16 width %d", n)
	}
}

func TestReadVectorShortBuffer(t *testing.T) {
	cur := &cursor{b: make([]byte, 10)}
	if _, ok := readVector(cur, 384, Float32); ok {
		t.Fatal("short buffer accepted")
	}
}
