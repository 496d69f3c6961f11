package errs

import (
	"errors"
	"io"
	"testing"
)

func TestLengthMismatchIsTypeMismatch(t *testing.T) {
	if !errors.Is(ErrLengthMismatch, ErrTypeMismatch) {
		t.Fatal("ErrLengthMismatch should wrap ErrTypeMismatch")
	}
	if errors.Is(ErrTypeMismatch, ErrLengthMismatch) {
		t.Fatal("ErrTypeMismatch must not match ErrLengthMismatch")
	}
}

func TestWrappersKeepCause(t *testing.T) {
	err := IO("read", io.ErrUnexpectedEOF)
	if !errors.Is(err, ErrIO) || !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("IO() lost a wrapped error: %v", err)
	}

	cause := errors.New("bad magic")
	err = Format("footer", cause)
	if !errors.Is(err, ErrFormat) || !errors.Is(err, cause) {
		t.Errorf("Format() lost a wrapped error: %v", err)
	}

	err = Format("footer", IO("read", io.ErrClosedPipe))
	if errors.Is(err, ErrFormat) || !errors.Is(err, ErrIO) {
		t.Errorf("Format() of an I/O failure = %v, want ErrIO only", err)
	}

	if err := Mismatch("column %d", 2); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Mismatch() = %v, want ErrTypeMismatch", err)
	}
	if err := Unsupported("decimal128"); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Unsupported() = %v, want ErrUnsupportedType", err)
	}
	if err := Capability("%T", 1); !errors.Is(err, ErrCapability) {
		t.Errorf("Capability() = %v, want ErrCapability", err)
	}
}
