package parquet

import (
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/rs/zerolog"

	"github.com/VanDung-dev/tabular/chunk"
	"github.com/VanDung-dev/tabular/datatypes"
	"github.com/VanDung-dev/tabular/errs"
	"github.com/VanDung-dev/tabular/filelike"
	"github.com/VanDung-dev/tabular/gologger"
)

// writerOnly hides Close from the parquet writer, which would otherwise close
// host streams it does not own.
type writerOnly struct {
	io.Writer
}

// Writer encodes each chunk as one row group. The file is only valid after
// Close has written the footer.
type Writer struct {
	dst    *filelike.Writer
	fw     *pqarrow.FileWriter
	schema *datatypes.Schema
	opts   *WriterOptions
	log    *zerolog.Logger
	closed bool
	err    error
}

// NewWriter opens dst, a path or a writable and seekable host stream, for a
// file with the given schema. The Arrow schema is stored in the footer so that
// large variants and timezones survive a round trip. A nil opts uses
// DefaultWriterOptions.
func NewWriter(dst any, schema *datatypes.Schema, opts *WriterOptions) (*Writer, error) {
	opts = opts.orDefault()
	for _, f := range schema.Fields() {
		if err := checkType(f.Type); err != nil {
			return nil, err
		}
	}
	out, err := filelike.OpenWriter(dst)
	if err != nil {
		return nil, err
	}

	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithStoreSchema(),
		pqarrow.WithAllocator(opts.Allocator),
	)
	fw, err := pqarrow.NewFileWriter(schema.Arrow(), writerOnly{out}, opts.properties(schema), arrowProps)
	if err != nil {
		out.Close()
		return nil, errs.IO("create parquet writer", err)
	}

	w := &Writer{
		dst:    out,
		fw:     fw,
		schema: schema,
		opts:   opts,
		log:    gologger.Nop(opts.Logger),
	}
	w.log.Debug().Str("destination", out.Name()).Stringer("version", opts.Version).
		Stringer("compression", opts.Compression).Msg("opened parquet writer")
	return w, nil
}

// checkType rejects types Parquet has no physical layout for. Parquet
// timestamps stop at milliseconds, so Timestamp(s) would be silently rescaled.
func checkType(dt datatypes.DataType) error {
	if err := dt.CheckEncodable(); err != nil {
		return fmt.Errorf("parquet: %w", err)
	}
	if dt.Kind() == datatypes.KindTimestamp && dt.Unit() == datatypes.Second {
		return errs.Unsupported("parquet " + dt.String())
	}
	return nil
}

// Schema returns the schema every written chunk must match.
func (w *Writer) Schema() *datatypes.Schema { return w.schema }

// Write validates c against the schema and writes it as one row group.
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
		return errs.IO("write row group", err)
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
		ferr = errs.IO("write parquet footer", err)
	}
	w.err = errors.Join(ferr, w.dst.Close())
	w.opts.Metrics.RecordFinalize(format, w.dst.Written(), w.err)
	w.log.Debug().Int64("bytes", w.dst.Written()).Err(w.err).Msg("finalized parquet writer")
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

// WriteAll writes chunks to a new file at dst, one row group each.
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
