package ipc

import (
	"errors"
	"io"

	arrowipc "github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/rs/zerolog"

	"github.com/VanDung-dev/tabular/chunk"
	"github.com/VanDung-dev/tabular/datatypes"
	"github.com/VanDung-dev/tabular/errs"
	"github.com/VanDung-dev/tabular/filelike"
	"github.com/VanDung-dev/tabular/gologger"
)

// writerOnly keeps the arrow writer from seeing Close or Seek on the stream.
type writerOnly struct {
	io.Writer
}

// Writer encodes chunks as record batches of an Arrow IPC file. The file is
// only valid after Close has written the footer.
type Writer struct {
	dst    *filelike.Writer
	fw     *arrowipc.FileWriter
	schema *datatypes.Schema
	opts   *WriterOptions
	log    *zerolog.Logger
	closed bool
	err    error
}

// NewWriter opens dst, a path or a writable and seekable host stream, for a
// file with the given schema. A nil opts uses DefaultWriterOptions.
func NewWriter(dst any, schema *datatypes.Schema, opts *WriterOptions) (*Writer, error) {
	opts = opts.orDefault()
	if err := schema.CheckEncodable(); err != nil {
		return nil, err
	}
	out, err := filelike.OpenWriter(dst)
	if err != nil {
		return nil, err
	}

	fw, err := arrowipc.NewFileWriter(writerOnly{out},
		append(opts.arrowOptions(), arrowipc.WithSchema(schema.Arrow()))...)
	if err != nil {
		out.Close()
		return nil, errs.IO("create arrow file writer", err)
	}

	w := &Writer{
		dst:    out,
		fw:     fw,
		schema: schema,
		opts:   opts,
		log:    gologger.Nop(opts.Logger),
	}
	w.log.Debug().Str("destination", out.Name()).Stringer("compression", opts.Compression).Msg("opened arrow writer")
	return w, nil
}

// Schema returns the schema every written chunk must match.
func (w *Writer) Schema() *datatypes.Schema { return w.schema }

// Write validates c against the schema and appends it as one record batch.
func (w *Writer) Write(c *chunk.Chunk) error {
	if w.closed {
		return errs.ErrClosed
	}
	rec, err := c.Record(w.schema)
	if err != nil {
		return err
	}
	defer rec.Release()

	if err := w.fw.Write(rec); err != nil {
		return errs.IO("write record batch", err)
	}
	w.opts.Metrics.RecordWrite(format, c.Len())
	return nil
}

// Close writes the footer and closes the destination when the Writer opened
// it. Only the first call finalizes; later calls return the same result.
func (w *Writer) Close() error {
	if w.closed {
		return w.err
	}
	w.closed = true

	var ferr error
	if err := w.fw.Close(); err != nil {
		ferr = errs.IO("write arrow file footer", err)
	}
	w.err = errors.Join(ferr, w.dst.Close())
	w.opts.Metrics.RecordFinalize(format, w.dst.Written(), w.err)
	w.log.Debug().Int64("bytes", w.dst.Written()).Err(w.err).Msg("finalized arrow writer")
	return w.err
}

// WithWriter opens a Writer, passes it to fn, and finalizes it on every exit
// path, including a panic in fn. Errors from fn and from finalization are
// both returned.
func WithWriter(dst any, schema *datatypes.Schema, opts *WriterOptions, fn func(*Writer) error) (err error) {
	w, err := NewWriter(dst, schema, opts)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, w.Close())
	}()
	return fn(w)
}

// WriteAll writes chunks to a new file at dst.
func WriteAll(dst any, schema *datatypes.Schema, opts *WriterOptions, chunks ...*chunk.Chunk) error {
	return WithWriter(dst, schema, opts, func(w *Writer) error {
		for _, c := range chunks {
			if err := w.Write(c); err != nil {
				return err
			}
		}
		return nil
	})
}
