// Package ipc reads and writes the Arrow IPC file format, with stream-format
// helpers for in-memory transfer.
package ipc

import (
	"errors"
	"fmt"

	arrowipc "github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/rs/zerolog"

	"github.com/VanDung-dev/tabular/chunk"
	"github.com/VanDung-dev/tabular/datatypes"
	"github.com/VanDung-dev/tabular/errs"
	"github.com/VanDung-dev/tabular/filelike"
	"github.com/VanDung-dev/tabular/gologger"
)

// Reader decodes the record batches of an Arrow IPC file one chunk at a time.
type Reader struct {
	src    *filelike.Reader
	fr     *arrowipc.FileReader
	schema *datatypes.Schema
	opts   *ReaderOptions
	log    *zerolog.Logger

	next int
	cur  *chunk.Chunk
	err  error
}

// NewReader opens src, a path or a readable and seekable host stream, and
// decodes the file footer and schema. A nil opts uses DefaultReaderOptions.
func NewReader(src any, opts *ReaderOptions) (*Reader, error) {
	opts = opts.orDefault()
	in, err := filelike.OpenReader(src)
	if err != nil {
		return nil, err
	}

	fr, err := arrowipc.NewFileReader(in, arrowipc.WithAllocator(opts.Allocator))
	if err != nil {
		in.Close()
		return nil, errs.Format("arrow file footer", err)
	}
	schema, err := datatypes.SchemaFromArrow(fr.Schema())
	if err != nil {
		fr.Close()
		in.Close()
		return nil, err
	}

	r := &Reader{
		src:    in,
		fr:     fr,
		schema: schema,
		opts:   opts,
		log:    gologger.Nop(opts.Logger),
	}
	r.log.Debug().Str("source", in.Name()).Int("batches", fr.NumRecords()).Msg("opened arrow file")
	return r, nil
}

// Schema returns the file schema.
func (r *Reader) Schema() *datatypes.Schema { return r.schema }

// NumChunks returns the number of record batches in the file.
func (r *Reader) NumChunks() int { return r.fr.NumRecords() }

// Next decodes the next record batch. It returns false at the end of the file
// or after an error; Err distinguishes the two.
func (r *Reader) Next() bool {
	r.cur = nil
	if r.err != nil || r.fr == nil || r.next >= r.fr.NumRecords() {
		return false
	}

	rec, err := r.fr.RecordAt(r.next)
	if err != nil {
		r.err = errs.Format(fmt.Sprintf("record batch %d", r.next), err)
		return false
	}
	defer rec.Release()

	c, err := chunk.FromRecord(rec)
	if err != nil {
		r.err = fmt.Errorf("record batch %d: %w", r.next, err)
		return false
	}
	r.next++
	r.cur = c
	r.opts.Metrics.RecordRead(format, c.Len())
	return true
}

// Chunk returns the chunk decoded by the last successful Next.
func (r *Reader) Chunk() *chunk.Chunk { return r.cur }

// Err returns the error that stopped iteration, if any.
func (r *Reader) Err() error { return r.err }

// Close releases the file reader and closes the source when the Reader
// opened it.
func (r *Reader) Close() error {
	if r.fr == nil {
		return nil
	}
	ferr := r.fr.Close()
	r.fr = nil
	if ferr != nil {
		ferr = errs.IO("close arrow file", ferr)
	}
	return errors.Join(ferr, r.src.Close())
}

// ReadAll decodes every chunk of src.
func ReadAll(src any, opts *ReaderOptions) (*datatypes.Schema, []*chunk.Chunk, error) {
	r, err := NewReader(src, opts)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	var chunks []*chunk.Chunk
	for r.Next() {
		chunks = append(chunks, r.Chunk())
	}
	if err := r.Err(); err != nil {
		return nil, nil, err
	}
	return r.Schema(), chunks, nil
}
