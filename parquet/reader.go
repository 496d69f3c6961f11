// Package parquet reads and writes Parquet files, one row group per chunk.
package parquet

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	pq "github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/rs/zerolog"

	"github.com/VanDung-dev/tabular/arrays"
	"github.com/VanDung-dev/tabular/chunk"
	"github.com/VanDung-dev/tabular/datatypes"
	"github.com/VanDung-dev/tabular/errs"
	"github.com/VanDung-dev/tabular/filelike"
	"github.com/VanDung-dev/tabular/gologger"
)

// Reader decodes a Parquet file one row group at a time.
type Reader struct {
	src    *filelike.Reader
	pr     *file.Reader
	fr     *pqarrow.FileReader
	schema *datatypes.Schema
	leaves []int
	opts   *ReaderOptions
	log    *zerolog.Logger

	next int
	cur  *chunk.Chunk
	err  error
}

// NewReader opens src, a path or a readable and seekable host stream, and
// decodes the footer metadata and schema. A nil opts uses
// DefaultReaderOptions.
func NewReader(src any, opts *ReaderOptions) (*Reader, error) {
	opts = opts.orDefault()
	in, err := filelike.OpenReader(src)
	if err != nil {
		return nil, err
	}

	pr, err := file.NewParquetReader(in, file.WithReadProps(pq.NewReaderProperties(opts.Allocator)))
	if err != nil {
		in.Close()
		return nil, errs.Format("parquet footer", err)
	}
	fr, err := pqarrow.NewFileReader(pr, pqarrow.ArrowReadProperties{Parallel: false}, opts.Allocator)
	if err != nil {
		in.Close()
		return nil, errs.Format("parquet schema", err)
	}
	as, err := fr.Schema()
	if err != nil {
		in.Close()
		return nil, errs.Format("parquet schema", err)
	}
	schema, err := datatypes.SchemaFromArrow(as)
	if err != nil {
		in.Close()
		return nil, err
	}

	leaves := make([]int, pr.MetaData().Schema.NumColumns())
	for i := range leaves {
		leaves[i] = i
	}

	r := &Reader{
		src:    in,
		pr:     pr,
		fr:     fr,
		schema: schema,
		leaves: leaves,
		opts:   opts,
		log:    gologger.Nop(opts.Logger),
	}
	r.log.Debug().Str("source", in.Name()).Int("row_groups", pr.NumRowGroups()).Int64("rows", pr.NumRows()).Msg("opened parquet file")
	return r, nil
}

// Schema returns the file schema.
func (r *Reader) Schema() *datatypes.Schema { return r.schema }

// NumRowGroups returns the number of row groups in the file.
func (r *Reader) NumRowGroups() int { return r.pr.NumRowGroups() }

// NumChunks is NumRowGroups.
func (r *Reader) NumChunks() int { return r.NumRowGroups() }

// Next decodes the next row group. It returns false at the end of the file or
// after an error; Err distinguishes the two.
func (r *Reader) Next() bool {
	r.cur = nil
	if r.err != nil || r.fr == nil || r.next >= r.pr.NumRowGroups() {
		return false
	}

	c, err := r.readRowGroup(r.next)
	if err != nil {
		r.err = err
		return false
	}
	r.next++
	r.cur = c
	r.opts.Metrics.RecordRead(format, c.Len())
	return true
}

func (r *Reader) readRowGroup(rg int) (*chunk.Chunk, error) {
	tbl, err := r.fr.ReadRowGroups(context.Background(), r.leaves, []int{rg})
	if err != nil {
		return nil, errs.Format(fmt.Sprintf("row group %d", rg), err)
	}
	defer tbl.Release()

	cols := make([]arrays.Array, tbl.NumCols())
	for i := range cols {
		col, err := r.column(tbl.Column(i))
		if err != nil {
			return nil, fmt.Errorf("row group %d column %q: %w", rg, tbl.Column(i).Name(), err)
		}
		cols[i] = col
	}
	return chunk.NewWithRows(int(tbl.NumRows()), cols...)
}

// column flattens the pieces of one column into a single array.
func (r *Reader) column(col *arrow.Column) (arrays.Array, error) {
	pieces := col.Data().Chunks()
	var merged arrow.Array
	switch len(pieces) {
	case 0:
		merged = array.MakeArrayOfNull(r.opts.Allocator, col.DataType(), 0)
	case 1:
		merged = pieces[0]
		merged.Retain()
	default:
		var err error
		merged, err = array.Concatenate(pieces, r.opts.Allocator)
		if err != nil {
			return nil, errs.Format("column pages", err)
		}
	}
	defer merged.Release()
	return arrays.FromArrow(merged)
}

// Chunk returns the chunk decoded by the last successful Next.
func (r *Reader) Chunk() *chunk.Chunk { return r.cur }

// Err returns the error that stopped iteration, if any.
func (r *Reader) Err() error { return r.err }

// Close closes the source when the Reader opened it.
func (r *Reader) Close() error {
	if r.fr == nil {
		return nil
	}
	r.fr = nil
	return r.src.Close()
}

// ReadAll decodes every row group of src.
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
