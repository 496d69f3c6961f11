// Package errs defines the error kinds shared by every tabular package.
// Callers match them with errors.Is; the concrete errors returned by the
// codecs wrap one of these kinds together with the underlying cause.
package errs

import (
	"errors"
	"fmt"
)

// Error kinds
var (
	ErrIO               = errors.New("io error")
	ErrFormat           = errors.New("format error")
	ErrTypeMismatch     = errors.New("type mismatch")
	ErrUnsupportedType  = errors.New("unsupported type")
	ErrUnsupportedValue = errors.New("unsupported value")
	ErrCapability       = errors.New("stream capability error")
	ErrClosed           = errors.New("writer is closed")
)

// ErrLengthMismatch is returned when the arrays of a chunk disagree on length.
// It is a TypeMismatch.
var ErrLengthMismatch = fmt.Errorf("length mismatch: %w", ErrTypeMismatch)

// IO wraps a failed stream operation.
func IO(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, ErrIO, err)
}

// Format wraps a malformed metadata or data block. A cause that is already an
// I/O error keeps that kind instead.
func Format(what string, err error) error {
	if errors.Is(err, ErrIO) {
		return fmt.Errorf("failed to decode %s: %w", what, err)
	}
	return fmt.Errorf("failed to decode %s: %w: %w", what, ErrFormat, err)
}

// Mismatch builds a TypeMismatch with a formatted message.
func Mismatch(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTypeMismatch, fmt.Sprintf(format, args...))
}

// Unsupported builds an UnsupportedType naming the offending type.
func Unsupported(what string) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedType, what)
}

// Capability builds a CapabilityError for a host object lacking a required
// stream operation.
func Capability(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCapability, fmt.Sprintf(format, args...))
}
