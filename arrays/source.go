package arrays

import (
	"math"
	"reflect"
	"slices"

	"github.com/VanDung-dev/tabular/datatypes"
	"github.com/VanDung-dev/tabular/errs"
)

// A host sequence is accepted in two shapes: a dense sequence of values, which
// produces no bitmap, or a sequence of optional values where nil (an untyped
// nil or a nil pointer) marks an absent element. Elements must convert to the
// target exactly; nothing is narrowed, rounded or reinterpreted.

// collect turns a host sequence into values and a presence mask. The mask is
// nil when no element is absent.
func collect[T any](source any, dt datatypes.DataType, conv func(reflect.Value) (T, bool)) ([]T, []bool, error) {
	switch s := source.(type) {
	case []T:
		return slices.Clone(s), nil, nil
	case []*T:
		values := make([]T, len(s))
		valid := make([]bool, len(s))
		for i, p := range s {
			if p != nil {
				values[i], valid[i] = *p, true
			}
		}
		return values, valid, nil
	}

	rv := reflect.ValueOf(source)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, nil, errs.Mismatch("%s expects a sequence, got %T", dt, source)
	}

	n := rv.Len()
	values := make([]T, n)
	valid := make([]bool, n)
	nulls := 0
	for i := 0; i < n; i++ {
		elem, present := deref(rv.Index(i))
		if !present {
			nulls++
			continue
		}
		v, ok := conv(elem)
		if !ok {
			return nil, nil, errs.Mismatch("element %d of type %s does not fit %s", i, elem.Type(), dt)
		}
		values[i], valid[i] = v, true
	}
	if nulls == 0 {
		valid = nil
	}
	return values, valid, nil
}

// deref unwraps interfaces and pointers. It reports false for nil.
func deref(v reflect.Value) (reflect.Value, bool) {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return v, false
		}
		v = v.Elem()
	}
	return v, v.IsValid()
}

func isInt(k reflect.Kind) bool   { return k >= reflect.Int && k <= reflect.Int64 }
func isUint(k reflect.Kind) bool  { return k >= reflect.Uint && k <= reflect.Uintptr }
func isFloat(k reflect.Kind) bool { return k == reflect.Float32 || k == reflect.Float64 }

// convertNumeric converts v to T only when the value is exactly representable.
// Booleans never convert to numbers and floats never convert to integers.
func convertNumeric[T Native](v reflect.Value) (T, bool) {
	var out T
	target := reflect.ValueOf(&out).Elem()
	tk := target.Kind()

	switch k := v.Kind(); {
	case isInt(k):
		x := v.Int()
		switch {
		case isInt(tk):
			if target.OverflowInt(x) {
				return out, false
			}
			target.SetInt(x)
		case isUint(tk):
			if x < 0 || target.OverflowUint(uint64(x)) {
				return out, false
			}
			target.SetUint(uint64(x))
		default:
			f, ok := intToFloat(x, tk)
			if !ok {
				return out, false
			}
			target.SetFloat(f)
		}
	case isUint(k):
		x := v.Uint()
		switch {
		case isInt(tk):
			if x > math.MaxInt64 || target.OverflowInt(int64(x)) {
				return out, false
			}
			target.SetInt(int64(x))
		case isUint(tk):
			if target.OverflowUint(x) {
				return out, false
			}
			target.SetUint(x)
		default:
			f, ok := uintToFloat(x, tk)
			if !ok {
				return out, false
			}
			target.SetFloat(f)
		}
	case isFloat(k):
		f := v.Float()
		if !isFloat(tk) {
			return out, false
		}
		if tk == reflect.Float32 && !math.IsNaN(f) && float64(float32(f)) != f {
			return out, false
		}
		target.SetFloat(f)
	default:
		return out, false
	}
	return out, true
}

func intToFloat(x int64, k reflect.Kind) (float64, bool) {
	f := float64(x)
	if k == reflect.Float32 {
		f = float64(float32(x))
	}
	return f, f < 0x1p63 && int64(f) == x
}

func uintToFloat(x uint64, k reflect.Kind) (float64, bool) {
	f := float64(x)
	if k == reflect.Float32 {
		f = float64(float32(x))
	}
	return f, f < 0x1p64 && uint64(f) == x
}

func convertBool(v reflect.Value) (bool, bool) {
	if v.Kind() != reflect.Bool {
		return false, false
	}
	return v.Bool(), true
}

func convertString(v reflect.Value) (string, bool) {
	if v.Kind() != reflect.String {
		return "", false
	}
	return v.String(), true
}

func convertBytes(v reflect.Value) ([]byte, bool) {
	if v.Kind() != reflect.Slice || v.Type().Elem().Kind() != reflect.Uint8 {
		return nil, false
	}
	return v.Bytes(), true
}

func newNumeric[T Native](source any) (*Primitive[T], error) {
	dt := nativeType[T]()
	values, valid, err := collect(source, dt, convertNumeric[T])
	if err != nil {
		return nil, err
	}
	return newPrimitive(dt, values, ValidityFromBools(valid)), nil
}

// NewBoolean builds a boolean array from a host sequence.
func NewBoolean(source any) (*BooleanArray, error) {
	values, valid, err := collect(source, datatypes.Boolean(), convertBool)
	if err != nil {
		return nil, err
	}
	return FromBools(values, valid)
}

func NewInt8(source any) (*Int8Array, error)       { return newNumeric[int8](source) }
func NewInt16(source any) (*Int16Array, error)     { return newNumeric[int16](source) }
func NewInt32(source any) (*Int32Array, error)     { return newNumeric[int32](source) }
func NewInt64(source any) (*Int64Array, error)     { return newNumeric[int64](source) }
func NewUInt8(source any) (*UInt8Array, error)     { return newNumeric[uint8](source) }
func NewUInt16(source any) (*UInt16Array, error)   { return newNumeric[uint16](source) }
func NewUInt32(source any) (*UInt32Array, error)   { return newNumeric[uint32](source) }
func NewUInt64(source any) (*UInt64Array, error)   { return newNumeric[uint64](source) }
func NewFloat32(source any) (*Float32Array, error) { return newNumeric[float32](source) }
func NewFloat64(source any) (*Float64Array, error) { return newNumeric[float64](source) }

func newText[O Offset](source any) (*Text[O], error) {
	values, valid, err := collect(source, textType[O](), convertString)
	if err != nil {
		return nil, err
	}
	return FromStrings[O](values, valid)
}

func newBinary[O Offset](source any) (*Binary[O], error) {
	values, valid, err := collect(source, binaryType[O](), convertBytes)
	if err != nil {
		return nil, err
	}
	return FromBytes[O](values, valid)
}

// NewUtf8 builds a string array from a host sequence. Strings that are not
// valid UTF-8 fail with ErrFormat.
func NewUtf8(source any) (*StringArray, error) { return newText[int32](source) }

// NewLargeUtf8 is NewUtf8 with 64-bit offsets.
func NewLargeUtf8(source any) (*LargeStringArray, error) { return newText[int64](source) }

// NewBinary builds a binary array from a host sequence of byte slices.
func NewBinary(source any) (*BinaryArray, error) { return newBinary[int32](source) }

// NewLargeBinary is NewBinary with 64-bit offsets.
func NewLargeBinary(source any) (*LargeBinaryArray, error) { return newBinary[int64](source) }
