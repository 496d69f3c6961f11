// Package chunk provides Chunk, an ordered set of equal-length arrays and the
// unit of I/O for every codec.
package chunk

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/VanDung-dev/tabular/arrays"
	"github.com/VanDung-dev/tabular/datatypes"
	"github.com/VanDung-dev/tabular/errs"
)

// Chunk is an immutable, ordered collection of arrays sharing one length.
// It carries no schema; codecs pair it with one when serializing.
type Chunk struct {
	cols []arrays.Array
	rows int
}

// New builds a chunk from arrays of equal length. A chunk without arrays has
// length 0.
func New(cols ...arrays.Array) (*Chunk, error) {
	rows := 0
	if len(cols) > 0 {
		rows = cols[0].Len()
	}
	return NewWithRows(rows, cols...)
}

// NewWithRows builds a chunk whose arrays must all have length rows. It is the
// only way to give a chunk without arrays a non-zero length.
func NewWithRows(rows int, cols ...arrays.Array) (*Chunk, error) {
	if rows < 0 {
		return nil, fmt.Errorf("%w: negative row count %d", errs.ErrLengthMismatch, rows)
	}
	for i, a := range cols {
		if a == nil {
			return nil, errs.Mismatch("column %d is nil", i)
		}
		if a.Len() != rows {
			return nil, fmt.Errorf("%w: column %d has length %d, expected %d", errs.ErrLengthMismatch, i, a.Len(), rows)
		}
	}
	return &Chunk{cols: append([]arrays.Array(nil), cols...), rows: rows}, nil
}

// Len returns the shared row count.
func (c *Chunk) Len() int { return c.rows }

// NumCols returns the number of arrays.
func (c *Chunk) NumCols() int { return len(c.cols) }

// Array returns the i-th array.
func (c *Chunk) Array(i int) arrays.Array { return c.cols[i] }

// Arrays returns the arrays in order.
func (c *Chunk) Arrays() []arrays.Array { return append([]arrays.Array(nil), c.cols...) }

// Equal reports whether both chunks hold equal arrays in the same order.
func (c *Chunk) Equal(o *Chunk) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.rows != o.rows || len(c.cols) != len(o.cols) {
		return false
	}
	for i := range c.cols {
		if !c.cols[i].Equal(o.cols[i]) {
			return false
		}
	}
	return true
}

func (c *Chunk) String() string {
	parts := make([]string, len(c.cols))
	for i, a := range c.cols {
		parts[i] = a.String()
	}
	return fmt.Sprintf("Chunk(%d rows)[%s]", c.rows, strings.Join(parts, ", "))
}

// Validate checks that c can be written under schema: the column count must
// match, each array must have the field's type, and non-nullable fields must
// hold no nulls.
func (c *Chunk) Validate(schema *datatypes.Schema) error {
	if schema.Len() != len(c.cols) {
		return errs.Mismatch("field count mismatch: got %d, expected %d", len(c.cols), schema.Len())
	}
	for i, a := range c.cols {
		f := schema.Field(i)
		if a.DataType() != f.Type {
			return errs.Mismatch("field %s type mismatch: got %s, expected %s", f.Name, a.DataType(), f.Type)
		}
		if !f.Nullable && a.NullCount() > 0 {
			return errs.Mismatch("field %s is not nullable but holds %d nulls", f.Name, a.NullCount())
		}
	}
	return nil
}

// Record validates c against schema and returns it as an Arrow record. The
// caller must release the record.
func (c *Chunk) Record(schema *datatypes.Schema) (arrow.Record, error) {
	if err := c.Validate(schema); err != nil {
		return nil, err
	}
	cols := make([]arrow.Array, len(c.cols))
	for i, a := range c.cols {
		cols[i] = a.Arrow()
	}
	return array.NewRecord(schema.Arrow(), cols, int64(c.rows)), nil
}

// FromRecord wraps the columns of an Arrow record.
func FromRecord(rec arrow.Record) (*Chunk, error) {
	cols := make([]arrays.Array, rec.NumCols())
	for i, col := range rec.Columns() {
		a, err := arrays.FromArrow(col)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", rec.ColumnName(i), err)
		}
		cols[i] = a
	}
	return NewWithRows(int(rec.NumRows()), cols...)
}

// InferSchema derives a schema from the arrays of c. Fields are named
// column_0, column_1 and so on, and are all nullable.
func InferSchema(c *Chunk) *datatypes.Schema {
	fields := make([]datatypes.Field, len(c.cols))
	for i, a := range c.cols {
		fields[i] = datatypes.NewField(fmt.Sprintf("column_%d", i), a.DataType(), true)
	}
	return datatypes.NewSchema(fields...)
}
