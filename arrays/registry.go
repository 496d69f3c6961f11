package arrays

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/VanDung-dev/tabular/datatypes"
	"github.com/VanDung-dev/tabular/errs"
)

func widen[A Array](a A, err error) (Array, error) {
	if err != nil {
		return nil, err
	}
	return a, nil
}

// New builds an array of type dt from a host sequence. Timestamp, Date32 and
// Time64 take the integer values of their physical type.
func New(dt datatypes.DataType, source any) (Array, error) {
	switch dt.Kind() {
	case datatypes.KindBoolean:
		return widen(NewBoolean(source))
	case datatypes.KindInt8:
		return widen(NewInt8(source))
	case datatypes.KindInt16:
		return widen(NewInt16(source))
	case datatypes.KindInt32:
		return widen(NewInt32(source))
	case datatypes.KindInt64:
		return widen(NewInt64(source))
	case datatypes.KindUInt8:
		return widen(NewUInt8(source))
	case datatypes.KindUInt16:
		return widen(NewUInt16(source))
	case datatypes.KindUInt32:
		return widen(NewUInt32(source))
	case datatypes.KindUInt64:
		return widen(NewUInt64(source))
	case datatypes.KindFloat32:
		return widen(NewFloat32(source))
	case datatypes.KindFloat64:
		return widen(NewFloat64(source))
	case datatypes.KindUtf8:
		return widen(NewUtf8(source))
	case datatypes.KindLargeUtf8:
		return widen(NewLargeUtf8(source))
	case datatypes.KindBinary:
		return widen(NewBinary(source))
	case datatypes.KindLargeBinary:
		return widen(NewLargeBinary(source))
	case datatypes.KindTimestamp, datatypes.KindTime64:
		a, err := NewInt64(source)
		if err != nil {
			return nil, err
		}
		return retag(a, dt), nil
	case datatypes.KindDate32:
		a, err := NewInt32(source)
		if err != nil {
			return nil, err
		}
		return retag(a, dt), nil
	}
	return nil, errs.Unsupported(dt.String())
}

func wrapPrimitive[T Native](b base) *Primitive[T] {
	data := b.arr.Data()
	return &Primitive[T]{base: b, values: view[T](data.Buffers()[1], data.Offset(), data.Len())}
}

// FromArrow wraps an Arrow array without copying its buffers. The array is
// retained for the lifetime of the result. Arrow types with no DataType fail
// with ErrUnsupportedType; string arrays holding invalid UTF-8 fail with
// ErrFormat.
func FromArrow(a arrow.Array) (Array, error) {
	dt, err := datatypes.FromArrow(a.DataType())
	if err != nil {
		return nil, err
	}

	a.Retain()
	b := base{dt: dt, length: a.Len(), validity: validityFromArrow(a), arr: a}

	switch dt.Physical() {
	case datatypes.KindBoolean:
		data := a.Data()
		out := &Boolean{base: b, offset: data.Offset()}
		if buf := data.Buffers()[1]; buf != nil {
			out.bits = buf.Bytes()
		}
		return out, nil
	case datatypes.KindInt8:
		return wrapPrimitive[int8](b), nil
	case datatypes.KindInt16:
		return wrapPrimitive[int16](b), nil
	case datatypes.KindInt32:
		return wrapPrimitive[int32](b), nil
	case datatypes.KindInt64:
		return wrapPrimitive[int64](b), nil
	case datatypes.KindUInt8:
		return wrapPrimitive[uint8](b), nil
	case datatypes.KindUInt16:
		return wrapPrimitive[uint16](b), nil
	case datatypes.KindUInt32:
		return wrapPrimitive[uint32](b), nil
	case datatypes.KindUInt64:
		return wrapPrimitive[uint64](b), nil
	case datatypes.KindFloat32:
		return wrapPrimitive[float32](b), nil
	case datatypes.KindFloat64:
		return wrapPrimitive[float64](b), nil
	case datatypes.KindUtf8:
		return wrapText[int32](b)
	case datatypes.KindLargeUtf8:
		return wrapText[int64](b)
	case datatypes.KindBinary:
		return &Binary[int32]{wrapVarlen[int32](b)}, nil
	default:
		return &Binary[int64]{wrapVarlen[int64](b)}, nil
	}
}

func wrapText[O Offset](b base) (Array, error) {
	t := &Text[O]{wrapVarlen[O](b)}
	if err := t.checkUTF8(); err != nil {
		b.arr.Release()
		return nil, err
	}
	return t, nil
}

// retag returns a new array over the same buffers with a different logical
// type of the same physical kind.
func retag[T Native](a *Primitive[T], dt datatypes.DataType) *Primitive[T] {
	src := a.arr.Data()
	data := array.NewData(dt.Arrow(), src.Len(), src.Buffers(), nil, a.validity.nulls, src.Offset())
	defer data.Release()

	return &Primitive[T]{
		base:   base{dt: dt, length: a.length, validity: a.validity, arr: array.MakeFromData(data)},
		values: a.values,
	}
}

// ToTimestamp reinterprets 64-bit integers as timestamps in unit. No value is
// converted.
func ToTimestamp(a *Int64Array, unit datatypes.Unit, tz string) *Int64Array {
	return retag(a, datatypes.Timestamp(unit, tz))
}

// ToTime64 reinterprets 64-bit integers as times of day in unit.
func ToTime64(a *Int64Array, unit datatypes.Unit) *Int64Array {
	return retag(a, datatypes.Time64(unit))
}

// ToDate32 reinterprets 32-bit integers as days since the epoch.
func ToDate32(a *Int32Array) *Int32Array {
	return retag(a, datatypes.Date32())
}
