// Package arrays implements immutable, null-aware typed arrays backed by
// Apache Arrow buffers.
//
// There is one generic implementation per physical family: Primitive for
// fixed-width numbers, Boolean for bit-packed booleans, Text for UTF-8 strings
// and Binary for byte strings, the last two in 32-bit and 64-bit offset forms.
// Timestamp, Date32 and Time64 arrays are Primitive arrays carrying a logical
// DataType over the same buffers.
package arrays

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/VanDung-dev/tabular/datatypes"
	"github.com/VanDung-dev/tabular/errs"
)

// Native is the set of fixed-width value types.
type Native interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

// Offset is the set of offset widths for variable-length arrays.
type Offset interface {
	int32 | int64
}

// Array is implemented by every typed array.
type Array interface {
	// DataType returns the logical type.
	DataType() datatypes.DataType
	// Len returns the number of elements.
	Len() int
	// IsValid reports whether element i is present.
	IsValid(i int) bool
	// NullCount returns the number of absent elements.
	NullCount() int
	// Validity returns the validity bitmap.
	Validity() Validity
	// Get returns element i as a Go value, or nil if it is absent.
	Get(i int) any
	// Equal reports whether other holds the same type, validity and values.
	Equal(other Array) bool
	// Arrow returns the array as an Arrow array sharing the same buffers.
	Arrow() arrow.Array
	String() string
}

// Validity is a validity bitmap. The zero value has no bitmap and means every
// element is present.
type Validity struct {
	bits   []byte
	offset int
	nulls  int
}

// ValidityFromBools builds a bitmap from a presence mask. A nil mask, or one
// without a single false entry, yields no bitmap.
func ValidityFromBools(valid []bool) Validity {
	nulls := 0
	for _, ok := range valid {
		if !ok {
			nulls++
		}
	}
	if nulls == 0 {
		return Validity{}
	}

	bits := make([]byte, bitutil.BytesForBits(int64(len(valid))))
	for i, ok := range valid {
		if ok {
			bitutil.SetBit(bits, i)
		}
	}
	return Validity{bits: bits, nulls: nulls}
}

func validityFromArrow(a arrow.Array) Validity {
	buf := a.Data().Buffers()[0]
	if buf == nil || a.NullN() == 0 {
		return Validity{}
	}
	return Validity{bits: buf.Bytes(), offset: a.Data().Offset(), nulls: a.NullN()}
}

// HasBitmap reports whether a bitmap is present.
func (v Validity) HasBitmap() bool { return v.bits != nil }

// IsSet reports whether bit i is set. Without a bitmap every bit is set.
func (v Validity) IsSet(i int) bool {
	return v.bits == nil || bitutil.BitIsSet(v.bits, v.offset+i)
}

// NullCount returns the number of cleared bits.
func (v Validity) NullCount() int { return v.nulls }

func (v Validity) buffer() *memory.Buffer {
	if v.bits == nil {
		return nil
	}
	return memory.NewBufferBytes(v.bits)
}

type base struct {
	dt       datatypes.DataType
	length   int
	validity Validity
	arr      arrow.Array
}

func (b *base) DataType() datatypes.DataType { return b.dt }
func (b *base) Len() int                     { return b.length }
func (b *base) NullCount() int               { return b.validity.nulls }
func (b *base) Validity() Validity           { return b.validity }
func (b *base) Arrow() arrow.Array           { return b.arr }

func (b *base) IsValid(i int) bool {
	return i >= 0 && i < b.length && b.validity.IsSet(i)
}

// checkIndex panics unless i addresses a slot of the array.
func (b *base) checkIndex(i int) {
	if i < 0 || i >= b.length {
		panic(fmt.Sprintf("arrays: index %d out of range [0:%d]", i, b.length))
	}
}

// sameShape compares everything but the values at valid slots.
func (b *base) sameShape(o *base) bool {
	if b.dt != o.dt || b.length != o.length {
		return false
	}
	for i := 0; i < b.length; i++ {
		if b.validity.IsSet(i) != o.validity.IsSet(i) {
			return false
		}
	}
	return true
}

// newArrow wraps freshly built Go buffers as an Arrow array.
func newArrow(dt datatypes.DataType, n int, v Validity, buffers ...*memory.Buffer) arrow.Array {
	data := array.NewData(dt.Arrow(), n, append([]*memory.Buffer{v.buffer()}, buffers...), nil, v.nulls, 0)
	defer data.Release()
	return array.MakeFromData(data)
}

// bytesBuffer wraps a Go slice without copying.
func bytesBuffer[T Native](values []T) *memory.Buffer {
	if len(values) == 0 {
		return memory.NewBufferBytes(nil)
	}
	return memory.NewBufferBytes(arrow.GetBytes(values))
}

// view reinterprets n elements of an Arrow buffer starting at offset.
func view[T Native](buf *memory.Buffer, offset, n int) []T {
	if buf == nil || n == 0 || buf.Len() == 0 {
		return nil
	}
	return arrow.GetData[T](buf.Bytes())[offset : offset+n]
}

func format(a Array, elem func(i int) string) string {
	var sb strings.Builder
	sb.WriteString(a.DataType().String())
	sb.WriteByte('[')
	for i := 0; i < a.Len(); i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		if a.IsValid(i) {
			sb.WriteString(elem(i))
		} else {
			sb.WriteString("null")
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

func checkMask(n int, valid []bool) error {
	if valid != nil && len(valid) != n {
		return fmt.Errorf("%w: %d values but %d validity entries", errs.ErrLengthMismatch, n, len(valid))
	}
	return nil
}
