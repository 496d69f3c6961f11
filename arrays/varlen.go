package arrays

import (
	"bytes"
	"fmt"
	"iter"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/VanDung-dev/tabular/datatypes"
	"github.com/VanDung-dev/tabular/errs"
)

// varlen holds the offsets and data buffers shared by Text and Binary.
type varlen[O Offset] struct {
	base
	offsets []O
	data    []byte
}

func (v *varlen[O]) slot(i int) []byte {
	return v.data[v.offsets[i]:v.offsets[i+1]]
}

func (v *varlen[O]) equalSlots(o *varlen[O]) bool {
	if !v.sameShape(&o.base) {
		return false
	}
	for i := 0; i < v.length; i++ {
		if v.validity.IsSet(i) && !bytes.Equal(v.slot(i), o.slot(i)) {
			return false
		}
	}
	return true
}

// Text is a UTF-8 string array. Every present element is valid UTF-8; this is
// checked once when the array is built.
type Text[O Offset] struct {
	varlen[O]
}

// Binary is a byte string array.
type Binary[O Offset] struct {
	varlen[O]
}

type (
	StringArray      = Text[int32]
	LargeStringArray = Text[int64]
	BinaryArray      = Binary[int32]
	LargeBinaryArray = Binary[int64]
)

func textType[O Offset]() datatypes.DataType {
	var zero O
	if _, ok := any(zero).(int32); ok {
		return datatypes.Utf8()
	}
	return datatypes.LargeUtf8()
}

func binaryType[O Offset]() datatypes.DataType {
	var zero O
	if _, ok := any(zero).(int32); ok {
		return datatypes.Binary()
	}
	return datatypes.LargeBinary()
}

func pack[O Offset, E string | []byte](dt datatypes.DataType, values []E, valid []bool) (varlen[O], error) {
	if err := checkMask(len(values), valid); err != nil {
		return varlen[O]{}, err
	}

	size := 0
	for _, v := range values {
		size += len(v)
	}
	var zero O
	if _, small := any(zero).(int32); small && size > math.MaxInt32 {
		return varlen[O]{}, errs.Mismatch("%d bytes do not fit %s offsets", size, dt)
	}

	offsets := make([]O, len(values)+1)
	data := make([]byte, 0, size)
	for i, v := range values {
		data = append(data, v...)
		offsets[i+1] = O(len(data))
	}

	vb := ValidityFromBools(valid)
	return varlen[O]{
		base: base{
			dt:       dt,
			length:   len(values),
			validity: vb,
			arr:      newArrow(dt, len(values), vb, bytesBuffer(offsets), memory.NewBufferBytes(data)),
		},
		offsets: offsets,
		data:    data,
	}, nil
}

func wrapVarlen[O Offset](b base) varlen[O] {
	data := b.arr.Data()
	bufs := data.Buffers()
	v := varlen[O]{base: b, offsets: view[O](bufs[1], data.Offset(), data.Len()+1)}
	if len(bufs) > 2 && bufs[2] != nil {
		v.data = bufs[2].Bytes()
	}
	if v.offsets == nil {
		v.offsets = make([]O, data.Len()+1)
	}
	return v
}

func (v *varlen[O]) checkUTF8() error {
	for i := 0; i < v.length; i++ {
		if v.validity.IsSet(i) && !utf8.Valid(v.slot(i)) {
			return fmt.Errorf("%w: element %d is not valid UTF-8", errs.ErrFormat, i)
		}
	}
	return nil
}

// FromStrings builds a string array from values and an optional presence mask.
// Present values must be valid UTF-8.
func FromStrings[O Offset](values []string, valid []bool) (*Text[O], error) {
	v, err := pack[O](textType[O](), values, valid)
	if err != nil {
		return nil, err
	}
	if err := v.checkUTF8(); err != nil {
		return nil, err
	}
	return &Text[O]{v}, nil
}

// Value returns the string at i, whether or not it is present. It panics
// unless 0 <= i < Len().
func (t *Text[O]) Value(i int) string {
	t.checkIndex(i)
	return string(t.slot(i))
}

// Get returns the string at i, or nil if it is absent.
func (t *Text[O]) Get(i int) any {
	if !t.IsValid(i) {
		return nil
	}
	return t.Value(i)
}

// All yields every element with its presence flag.
func (t *Text[O]) All() iter.Seq2[string, bool] {
	return func(yield func(string, bool) bool) {
		for i := 0; i < t.length; i++ {
			ok := t.validity.IsSet(i)
			s := ""
			if ok {
				s = t.Value(i)
			}
			if !yield(s, ok) {
				return
			}
		}
	}
}

func (t *Text[O]) Equal(other Array) bool {
	o, ok := other.(*Text[O])
	return ok && t.equalSlots(&o.varlen)
}

func (t *Text[O]) String() string {
	return format(t, func(i int) string { return strconv.Quote(t.Value(i)) })
}

// FromBytes builds a binary array from values and an optional presence mask.
// A nil value is stored as an empty slot; use the mask to mark it absent.
func FromBytes[O Offset](values [][]byte, valid []bool) (*Binary[O], error) {
	v, err := pack[O](binaryType[O](), values, valid)
	if err != nil {
		return nil, err
	}
	return &Binary[O]{v}, nil
}

// Value returns the bytes at i, whether or not they are present. The slice
// aliases the array's buffer and must not be modified. It panics unless
// 0 <= i < Len().
func (b *Binary[O]) Value(i int) []byte {
	b.checkIndex(i)
	return b.slot(i)
}

// Get returns a copy of the bytes at i, or nil if they are absent.
func (b *Binary[O]) Get(i int) any {
	if !b.IsValid(i) {
		return nil
	}
	return bytes.Clone(b.slot(i))
}

// All yields every element with its presence flag.
func (b *Binary[O]) All() iter.Seq2[[]byte, bool] {
	return func(yield func([]byte, bool) bool) {
		for i := 0; i < b.length; i++ {
			ok := b.validity.IsSet(i)
			var v []byte
			if ok {
				v = b.slot(i)
			}
			if !yield(v, ok) {
				return
			}
		}
	}
}

func (b *Binary[O]) Equal(other Array) bool {
	o, ok := other.(*Binary[O])
	return ok && b.equalSlots(&o.varlen)
}

func (b *Binary[O]) String() string {
	return format(b, func(i int) string { return fmt.Sprintf("%q", b.slot(i)) })
}
