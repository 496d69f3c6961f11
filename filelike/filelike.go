// Package filelike adapts paths and host stream objects to the byte-stream
// contract the codecs read from and write to.
package filelike

import (
	"bufio"
	"errors"
	"io"
	"os"

	"github.com/VanDung-dev/tabular/errs"
)

// Flusher is implemented by host writers that buffer internally.
type Flusher interface {
	Flush() error
}

// Reader is a seekable input stream with random access.
type Reader struct {
	rs     io.ReadSeeker
	closer io.Closer
	name   string
}

// OpenReader opens src for reading. A string is a filesystem path that the
// Reader owns and closes; anything else must implement io.Reader and
// io.Seeker and is never closed by the Reader.
func OpenReader(src any) (*Reader, error) {
	switch s := src.(type) {
	case string:
		f, err := os.Open(s)
		if err != nil {
			return nil, errs.IO("open "+s, err)
		}
		return &Reader{rs: f, closer: f, name: s}, nil
	case io.ReadSeeker:
		return &Reader{rs: s, name: "stream"}, nil
	case io.Reader:
		return nil, errs.Capability("%T supports reading but not seeking", src)
	}
	return nil, errs.Capability("%T is not readable", src)
}

// Name returns the path the Reader was opened from, or "stream".
func (r *Reader) Name() string { return r.name }

// Read reads up to len(p) bytes. End of stream is reported as a bare io.EOF.
func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.rs.Read(p)
	if err != nil && err != io.EOF {
		return n, errs.IO("read "+r.name, err)
	}
	return n, err
}

// Seek sets the offset for the next Read.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	pos, err := r.rs.Seek(offset, whence)
	if err != nil {
		return pos, errs.IO("seek "+r.name, err)
	}
	return pos, nil
}

// ReadAt reads len(p) bytes at off. Streams without native positional reads
// are served by seeking, and the previous position is restored afterwards.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	if ra, ok := r.rs.(io.ReaderAt); ok {
		n, err := ra.ReadAt(p, off)
		if err != nil && err != io.EOF {
			return n, errs.IO("read "+r.name, err)
		}
		return n, err
	}

	cur, err := r.rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, errs.IO("seek "+r.name, err)
	}
	if _, err := r.rs.Seek(off, io.SeekStart); err != nil {
		return 0, errs.IO("seek "+r.name, err)
	}
	n, rerr := io.ReadFull(r.rs, p)
	if _, err := r.rs.Seek(cur, io.SeekStart); err != nil {
		return n, errs.IO("seek "+r.name, err)
	}
	switch {
	case rerr == nil:
		return n, nil
	case errors.Is(rerr, io.EOF), errors.Is(rerr, io.ErrUnexpectedEOF):
		return n, io.EOF
	}
	return n, errs.IO("read "+r.name, rerr)
}

// Size returns the length of the stream without moving the read position.
func (r *Reader) Size() (int64, error) {
	cur, err := r.rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, errs.IO("seek "+r.name, err)
	}
	end, err := r.rs.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, errs.IO("seek "+r.name, err)
	}
	if _, err := r.rs.Seek(cur, io.SeekStart); err != nil {
		return 0, errs.IO("seek "+r.name, err)
	}
	return end, nil
}

// Close releases the file when the Reader opened it.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	c := r.closer
	r.closer = nil
	if err := c.Close(); err != nil {
		return errs.IO("close "+r.name, err)
	}
	return nil
}

// Writer is a seekable output stream that counts the bytes written through it.
type Writer struct {
	ws      io.WriteSeeker
	buf     *bufio.Writer
	flusher Flusher
	closer  io.Closer
	name    string
	written int64
}

// OpenWriter opens dst for writing. A string is a filesystem path that is
// created or truncated, buffered, and closed by the Writer; anything else must
// implement io.Writer and io.Seeker. Host writers that implement Flusher are
// flushed on Flush.
func OpenWriter(dst any) (*Writer, error) {
	switch d := dst.(type) {
	case string:
		f, err := os.Create(d)
		if err != nil {
			return nil, errs.IO("create "+d, err)
		}
		return &Writer{ws: f, buf: bufio.NewWriter(f), closer: f, name: d}, nil
	case io.WriteSeeker:
		w := &Writer{ws: d, name: "stream"}
		if f, ok := dst.(Flusher); ok {
			w.flusher = f
		}
		return w, nil
	case io.Writer:
		return nil, errs.Capability("%T supports writing but not seeking", dst)
	}
	return nil, errs.Capability("%T is not writable", dst)
}

// Name returns the path the Writer was opened from, or "stream".
func (w *Writer) Name() string { return w.name }

// Write appends p at the current position.
func (w *Writer) Write(p []byte) (int, error) {
	var (
		n   int
		err error
	)
	if w.buf != nil {
		n, err = w.buf.Write(p)
	} else {
		n, err = w.ws.Write(p)
	}
	w.written += int64(n)
	if err != nil {
		return n, errs.IO("write "+w.name, err)
	}
	return n, nil
}

// Written returns the number of bytes accepted by Write.
func (w *Writer) Written() int64 { return w.written }

// Flush pushes buffered bytes to the underlying stream.
func (w *Writer) Flush() error {
	if w.buf != nil {
		if err := w.buf.Flush(); err != nil {
			return errs.IO("flush "+w.name, err)
		}
	}
	if w.flusher != nil {
		if err := w.flusher.Flush(); err != nil {
			return errs.IO("flush "+w.name, err)
		}
	}
	return nil
}

// Seek flushes pending bytes and moves the write position.
func (w *Writer) Seek(offset int64, whence int) (int64, error) {
	if err := w.Flush(); err != nil {
		return 0, err
	}
	pos, err := w.ws.Seek(offset, whence)
	if err != nil {
		return pos, errs.IO("seek "+w.name, err)
	}
	return pos, nil
}

// Close flushes the stream and closes the file when the Writer created it.
// Host streams are flushed but left open.
func (w *Writer) Close() error {
	ferr := w.Flush()
	if w.closer == nil {
		return ferr
	}
	c := w.closer
	w.closer = nil
	if err := c.Close(); err != nil {
		return errors.Join(ferr, errs.IO("close "+w.name, err))
	}
	return ferr
}
