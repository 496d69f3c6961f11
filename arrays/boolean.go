package arrays

import (
	"iter"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/VanDung-dev/tabular/datatypes"
)

// Boolean is a bit-packed boolean array.
type Boolean struct {
	base
	bits   []byte
	offset int
}

type BooleanArray = Boolean

// FromBools builds a boolean array from values and an optional presence mask.
func FromBools(values []bool, valid []bool) (*Boolean, error) {
	if err := checkMask(len(values), valid); err != nil {
		return nil, err
	}

	bits := make([]byte, bitutil.BytesForBits(int64(len(values))))
	for i, v := range values {
		if v {
			bitutil.SetBit(bits, i)
		}
	}

	dt := datatypes.Boolean()
	v := ValidityFromBools(valid)
	return &Boolean{
		base: base{
			dt:       dt,
			length:   len(values),
			validity: v,
			arr:      newArrow(dt, len(values), v, memory.NewBufferBytes(bits)),
		},
		bits: bits,
	}, nil
}

// Value returns the stored bit at i, whether or not it is present. A null
// slot yields its raw payload. Value panics unless 0 <= i < Len(); use Get
// for a checked read.
func (b *Boolean) Value(i int) bool {
	b.checkIndex(i)
	return bitutil.BitIsSet(b.bits, b.offset+i)
}

// Get returns the value at i, or nil if it is absent.
func (b *Boolean) Get(i int) any {
	if !b.IsValid(i) {
		return nil
	}
	return b.Value(i)
}

// All yields every element with its presence flag.
func (b *Boolean) All() iter.Seq2[bool, bool] {
	return func(yield func(bool, bool) bool) {
		for i := 0; i < b.length; i++ {
			ok := b.validity.IsSet(i)
			if !yield(ok && b.Value(i), ok) {
				return
			}
		}
	}
}

func (b *Boolean) Equal(other Array) bool {
	o, ok := other.(*Boolean)
	if !ok || !b.sameShape(&o.base) {
		return false
	}
	for i := 0; i < b.length; i++ {
		if b.validity.IsSet(i) && b.Value(i) != o.Value(i) {
			return false
		}
	}
	return true
}

func (b *Boolean) String() string {
	return format(b, func(i int) string { return strconv.FormatBool(b.Value(i)) })
}
