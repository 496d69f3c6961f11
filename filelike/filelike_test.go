package filelike

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/VanDung-dev/tabular/errs"
)

// seekOnly hides any io.ReaderAt implementation of the wrapped stream.
type seekOnly struct {
	io.ReadSeeker
}

type flushCounter struct {
	*Buffer
	flushes int
}

func (f *flushCounter) Flush() error {
	f.flushes++
	return nil
}

func TestOpenReaderCapability(t *testing.T) {
	tests := []struct {
		name string
		src  any
	}{
		{"reader without seek", bytes.NewBufferString("x")},
		{"plain reader", io.MultiReader(strings.NewReader("x"))},
		{"number", 42},
		{"nil", nil},
	}
	for _, tt := range tests {
		if _, err := OpenReader(tt.src); !errors.Is(err, errs.ErrCapability) {
			t.Errorf("%s: error = %v, want ErrCapability", tt.name, err)
		}
	}
}

func TestOpenWriterCapability(t *testing.T) {
	for _, dst := range []any{&bytes.Buffer{}, io.Discard, 1, nil} {
		if _, err := OpenWriter(dst); !errors.Is(err, errs.ErrCapability) {
			t.Errorf("OpenWriter(%T) error = %v, want ErrCapability", dst, err)
		}
	}
}

func TestOpenReaderMissingPath(t *testing.T) {
	_, err := OpenReader(filepath.Join(t.TempDir(), "missing.arrow"))
	if !errors.Is(err, errs.ErrIO) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("OpenReader error = %v, want ErrIO wrapping ErrNotExist", err)
	}
}

func TestReadAtEmulation(t *testing.T) {
	r, err := OpenReader(seekOnly{strings.NewReader("hello world")})
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	if _, err := r.Seek(2, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}

	p := make([]byte, 5)
	n, err := r.ReadAt(p, 6)
	if err != nil || n != 5 || string(p) != "world" {
		t.Fatalf("ReadAt = %d %q %v", n, p, err)
	}

	// The read position is restored.
	q := make([]byte, 3)
	if _, err := io.ReadFull(r, q); err != nil || string(q) != "llo" {
		t.Fatalf("Read after ReadAt = %q %v", q, err)
	}

	n, err = r.ReadAt(make([]byte, 10), 8)
	if n != 3 || err != io.EOF {
		t.Errorf("short ReadAt = %d %v, want 3 io.EOF", n, err)
	}

	size, err := r.Size()
	if err != nil || size != 11 {
		t.Errorf("Size() = %d %v", size, err)
	}
}

func TestPathRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	w, err := OpenWriter(path)
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	if _, err := w.Write([]byte("abcdef")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := w.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if _, err := w.Write([]byte("X")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if w.Written() != 7 {
		t.Errorf("Written() = %d, want 7", w.Written())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "Xbcdef" {
		t.Errorf("file contents = %q", got)
	}
}

func TestHostStreamIsNotClosed(t *testing.T) {
	host := &flushCounter{Buffer: &Buffer{}}
	w, err := OpenWriter(host)
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	w.Write([]byte("abc"))
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if host.flushes != 1 {
		t.Errorf("host flushed %d times, want 1", host.flushes)
	}
	// Still usable after Close.
	host.Write([]byte("d"))
	if string(host.Bytes()) != "abcd" {
		t.Errorf("host contents = %q", host.Bytes())
	}
}

func TestBuffer(t *testing.T) {
	var b Buffer
	b.Write([]byte("abc"))
	if _, err := b.Seek(5, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	b.Write([]byte("z"))
	if !bytes.Equal(b.Bytes(), []byte("abc\x00\x00z")) {
		t.Errorf("Bytes() = %q", b.Bytes())
	}

	if _, err := b.Seek(-1, io.SeekStart); err == nil {
		t.Error("negative seek should fail")
	}
	pos, _ := b.Seek(-2, io.SeekEnd)
	if pos != 4 {
		t.Errorf("Seek(-2, end) = %d", pos)
	}
	rest, _ := io.ReadAll(&b)
	if string(rest) != "\x00z" {
		t.Errorf("tail = %q", rest)
	}

	p := make([]byte, 2)
	if n, err := b.ReadAt(p, 1); n != 2 || err != nil || string(p) != "bc" {
		t.Errorf("ReadAt = %d %q %v", n, p, err)
	}
}
