package filelike

import (
	"errors"
	"io"
	"slices"
)

var errNegativePosition = errors.New("negative position")

// Buffer is an in-memory stream supporting reads, writes and seeks at any
// position. Writing past the end grows the buffer, zero-filling any gap. The
// zero value is an empty buffer ready to use.
type Buffer struct {
	data []byte
	pos  int64
}

// NewBuffer returns a Buffer positioned at the start of data. The buffer takes
// ownership of data.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Bytes returns the buffer contents. The slice aliases the buffer until the
// next Write.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the length of the contents.
func (b *Buffer) Len() int { return len(b.data) }

func (b *Buffer) Read(p []byte) (int, error) {
	if b.pos >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.pos:])
	b.pos += int64(n)
	return n, nil
}

func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errNegativePosition
	}
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *Buffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if n := int64(len(b.data)); end > n {
		b.data = slices.Grow(b.data, int(end-n))[:end]
		if b.pos > n {
			clear(b.data[n:b.pos])
		}
	}
	copy(b.data[b.pos:], p)
	b.pos = end
	return len(p), nil
}

func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = b.pos
	case io.SeekEnd:
		base = int64(len(b.data))
	default:
		return 0, errors.New("invalid whence")
	}
	if base+offset < 0 {
		return 0, errNegativePosition
	}
	b.pos = base + offset
	return b.pos, nil
}
