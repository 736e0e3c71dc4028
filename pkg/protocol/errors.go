package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError collects every structural problem found in a message, so
// callers see the full list instead of the first failure.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "invalid message: " + strings.Join(e.Issues, "; ")
}

// VersionError reports a frame whose version byte this implementation does
// not speak.
type VersionError struct {
	Got uint8
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("unsupported protocol version %d (want %d)", e.Got, Version)
}

// DecompressionError wraps a failure to inflate a compressed region.
type DecompressionError struct {
	Err error
}

func (e *DecompressionError) Error() string { return "decompress payload: " + e.Err.Error() }
func (e *DecompressionError) Unwrap() error { return e.Err }

var (
	// ErrCorruptMessage marks a frame that cannot be parsed at all: bad
	// magic, truncated regions, trailing garbage, or malformed fields.
	ErrCorruptMessage = errors.New("corrupt message frame")

	// ErrIntegrity marks a frame whose checksum or signature does not match
	// its content. Such a message is rejected, never repaired.
	ErrIntegrity = errors.New("integrity check failed")
)
