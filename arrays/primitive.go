package arrays

import (
	"fmt"
	"iter"
	"slices"

	"github.com/VanDung-dev/tabular/datatypes"
)

// Primitive is a fixed-width numeric array.
type Primitive[T Native] struct {
	base
	values []T
}

type (
	Int8Array    = Primitive[int8]
	Int16Array   = Primitive[int16]
	Int32Array   = Primitive[int32]
	Int64Array   = Primitive[int64]
	UInt8Array   = Primitive[uint8]
	UInt16Array  = Primitive[uint16]
	UInt32Array  = Primitive[uint32]
	UInt64Array  = Primitive[uint64]
	Float32Array = Primitive[float32]
	Float64Array = Primitive[float64]
)

// nativeType returns the DataType whose storage is T.
func nativeType[T Native]() datatypes.DataType {
	var zero T
	switch any(zero).(type) {
	case int8:
		return datatypes.Int8()
	case int16:
		return datatypes.Int16()
	case int32:
		return datatypes.Int32()
	case int64:
		return datatypes.Int64()
	case uint8:
		return datatypes.UInt8()
	case uint16:
		return datatypes.UInt16()
	case uint32:
		return datatypes.UInt32()
	case uint64:
		return datatypes.UInt64()
	case float32:
		return datatypes.Float32()
	default:
		return datatypes.Float64()
	}
}

// FromValues builds an array from values and an optional presence mask.
// Values at absent slots are kept as the raw payload.
func FromValues[T Native](values []T, valid []bool) (*Primitive[T], error) {
	if err := checkMask(len(values), valid); err != nil {
		return nil, err
	}
	return newPrimitive(nativeType[T](), slices.Clone(values), ValidityFromBools(valid)), nil
}

func newPrimitive[T Native](dt datatypes.DataType, values []T, v Validity) *Primitive[T] {
	return &Primitive[T]{
		base: base{
			dt:       dt,
			length:   len(values),
			validity: v,
			arr:      newArrow(dt, len(values), v, bytesBuffer(values)),
		},
		values: values,
	}
}

// Value returns the stored value at i, whether or not it is present, so a
// null slot yields its raw payload. It panics unless 0 <= i < Len().
func (p *Primitive[T]) Value(i int) T {
	p.checkIndex(i)
	return p.values[i]
}

// Get returns the value at i, or nil if it is absent.
func (p *Primitive[T]) Get(i int) any {
	if !p.IsValid(i) {
		return nil
	}
	return p.values[i]
}

// All yields every element with its presence flag. Absent elements yield the
// zero value.
func (p *Primitive[T]) All() iter.Seq2[T, bool] {
	return func(yield func(T, bool) bool) {
		var zero T
		for i := 0; i < p.length; i++ {
			v, ok := zero, p.validity.IsSet(i)
			if ok {
				v = p.values[i]
			}
			if !yield(v, ok) {
				return
			}
		}
	}
}

// Equal compares values with ==, so NaN never equals NaN.
func (p *Primitive[T]) Equal(other Array) bool {
	o, ok := other.(*Primitive[T])
	if !ok || !p.sameShape(&o.base) {
		return false
	}
	for i := 0; i < p.length; i++ {
		if p.validity.IsSet(i) && p.values[i] != o.values[i] {
			return false
		}
	}
	return true
}

func (p *Primitive[T]) String() string {
	return format(p, func(i int) string { return fmt.Sprint(p.values[i]) })
}
