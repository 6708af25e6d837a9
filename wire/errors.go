package wire

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is against these sentinels; the concrete
// errors returned by Conn wrap one of them together with context (the
// underlying I/O error, or a description of what was malformed).
var (
	// ErrIO marks a transport read/write failure. Carries the OS-level
	// cause via errors.Unwrap. Not recoverable on the connection.
	ErrIO = errors.New("i/o error")

	// ErrClosed marks a zero-byte read: the peer closed the stream.
	// Terminal for the connection.
	ErrClosed = errors.New("connection closed unexpectedly")

	// ErrMalformed marks a framing violation: an unexpected byte, a
	// bad tuple shape, or trailing non-whitespace. Terminal for the
	// current exchange; callers MAY also tear down the connection.
	ErrMalformed = errors.New("malformed data")
)

// ioErrorf wraps a transport error as ErrIO.
func ioErrorf(cause error) error {
	return fmt.Errorf("%w: %w", ErrIO, cause)
}

// malformedf builds an ErrMalformed with a specific diagnostic.
func malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{error(ErrMalformed)}, args...)...)
}
