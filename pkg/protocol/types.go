package protocol

import "fmt"

// Wire constants. All integer fields on the wire are little-endian.
const (
	Version = 1

	// Flags byte (offset 5 of the fixed prefix)
	FlagCompressed byte = 1 << 0
	FlagChecksum   byte = 1 << 1
	FlagSignature  byte = 1 << 2
)

var magic = [4]byte{'V', 'C', 'M', 'P'}

// Dimension is the embedding width shared by every vector in a message.
// Only the four model widths below are valid.
type Dimension uint16

const (
	Dim384  Dimension = 384
	Dim768  Dimension = 768
	Dim1536 Dimension = 1536
	Dim4096 Dimension = 4096
)

// Valid reports whether d is one of the supported widths.
func (d Dimension) Valid() bool {
	switch d {
	case Dim384, Dim768, Dim1536, Dim4096:
		return true
	}
	return false
}

// DimensionFor maps a vector length to its Dimension, if any.
func DimensionFor(n int) (Dimension, bool) {
	if n <= 0 || n > int(Dim4096) {
		return 0, false
	}
	d := Dimension(n)
	return d, d.Valid()
}

func dimensionCode(d Dimension) byte {
	switch d {
	case Dim384:
		return 0
	case Dim768:
		return 1
	case Dim1536:
		return 2
	default:
		return 3
	}
}

func dimensionFromCode(c byte) (Dimension, bool) {
	switch c {
	case 0:
		return Dim384, true
	case 1:
		return Dim768, true
	case 2:
		return Dim1536, true
	case 3:
		return Dim4096, true
	}
	return 0, false
}

// Encoding selects the on-wire element representation. Float32 is canonical
// and lossless; Float16 and BFloat16 are lossy truncations applied at encode
// time, so decoded vectors are approximations, never bit-exact.
type Encoding uint8

const (
	Float32 Encoding = iota
	Float16
	BFloat16
)

func (e Encoding) Valid() bool { return e <= BFloat16 }

// elemSize is the per-element byte width on the wire.
func (e Encoding) elemSize() int {
	if e == Float32 {
		return 4
	}
	return 2
}

func (e Encoding) String() string {
	switch e {
	case Float32:
		return "float32"
	case Float16:
		return "float16"
	case BFloat16:
		return "bfloat16"
	default:
		return fmt.Sprintf("encoding(%d)", uint8(e))
	}
}

// Intent is the closed set of message purposes. Unknown values are rejected
// at construction and at decode, never carried as free-form strings.
type Intent uint8

const (
	IntentQuery Intent = iota
	IntentResponse
	IntentCommand
	IntentNotification
	IntentUpdate
	IntentError
	IntentHeartbeat
)

func (i Intent) Valid() bool { return i <= IntentHeartbeat }

func (i Intent) String() string {
	switch i {
	case IntentQuery:
		return "QUERY"
	case IntentResponse:
		return "RESPONSE"
	case IntentCommand:
		return "COMMAND"
	case IntentNotification:
		return "NOTIFICATION"
	case IntentUpdate:
		return "UPDATE"
	case IntentError:
		return "ERROR"
	case IntentHeartbeat:
		return "HEARTBEAT"
	default:
		return fmt.Sprintf("intent(%d)", uint8(i))
	}
}

// ParseIntent maps an intent name to its value.
func ParseIntent(s string) (Intent, error) {
	for i := IntentQuery; i <= IntentHeartbeat; i++ {
		if i.String() == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown intent %q", s)
}

// Priority bounds. Priority is consumer metadata, not a transport
// scheduling input, unless a priority mailbox is configured.
const (
	MinPriority     = 0
	MaxPriority     = 10
	DefaultPriority = 5
)
