// Package dispatch converts between typed arrays and opaque host values.
//
// ToGeneric erases an array to a Value tagged with its physical kind.
// FromGeneric recovers an array. Callers that know the type should pass a
// Tagged value or a statically typed Go slice; anything else is resolved by
// probing the array constructors in ProbeOrder, and the first constructor that
// accepts the value wins. Probing is order dependent: []any{1, 2} becomes an
// Int8 array, not an Int64 array.
package dispatch

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/decimal256"
	"github.com/apache/arrow-go/v18/arrow/float16"

	"github.com/VanDung-dev/tabular/arrays"
	"github.com/VanDung-dev/tabular/chunk"
	"github.com/VanDung-dev/tabular/datatypes"
	"github.com/VanDung-dev/tabular/errs"
)

// Value is an array erased to its physical kind.
type Value struct {
	Physical datatypes.Kind
	Array    arrays.Array
}

// Tagged is a host sequence with an explicit target type.
type Tagged struct {
	Type   datatypes.DataType
	Values any
}

var probeOrder = []datatypes.DataType{
	datatypes.Boolean(),
	datatypes.Int8(),
	datatypes.Int16(),
	datatypes.Int32(),
	datatypes.Int64(),
	datatypes.UInt8(),
	datatypes.UInt16(),
	datatypes.UInt32(),
	datatypes.UInt64(),
	datatypes.Float32(),
	datatypes.Float64(),
	datatypes.Utf8(),
	datatypes.LargeUtf8(),
	datatypes.Binary(),
	datatypes.LargeBinary(),
}

// ProbeOrder returns the order in which FromGeneric tries constructors for
// untagged values.
func ProbeOrder() []datatypes.DataType {
	return append([]datatypes.DataType(nil), probeOrder...)
}

// ToGeneric erases a to a Value tagged with its physical kind.
func ToGeneric(a arrays.Array) Value {
	return Value{Physical: a.DataType().Physical(), Array: a}
}

// FromGeneric recovers a typed array from a host value.
//
// Values carrying types with no array variant (decimals, big integers, half
// floats, intervals, complex numbers) fail with ErrUnsupportedType. A value no
// constructor accepts fails with ErrUnsupportedValue. Any other constructor
// error, such as invalid UTF-8, stops probing and is returned.
func FromGeneric(v any) (arrays.Array, error) {
	switch v := v.(type) {
	case Value:
		if v.Array == nil {
			return nil, fmt.Errorf("%w: empty value", errs.ErrUnsupportedValue)
		}
		if got := v.Array.DataType().Physical(); got != v.Physical {
			return nil, errs.Mismatch("value tagged %s holds a %s array", v.Physical, got)
		}
		return v.Array, nil
	case *Value:
		return FromGeneric(*v)
	case Tagged:
		return arrays.New(v.Type, v.Values)
	case arrays.Array:
		return v, nil
	case arrow.Array:
		return arrays.FromArrow(v)
	}

	if dt, ok := staticType(v); ok {
		return arrays.New(dt, v)
	}
	if name, ok := unsupportedElement(v); ok {
		return nil, errs.Unsupported(name)
	}

	for _, dt := range probeOrder {
		a, err := arrays.New(dt, v)
		if err == nil {
			return a, nil
		}
		if !errors.Is(err, errs.ErrTypeMismatch) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: no array type accepts %T", errs.ErrUnsupportedValue, v)
}

// staticType maps typed Go slices onto the variant their element type names.
func staticType(v any) (datatypes.DataType, bool) {
	switch v.(type) {
	case []bool, []*bool:
		return datatypes.Boolean(), true
	case []int8, []*int8:
		return datatypes.Int8(), true
	case []int16, []*int16:
		return datatypes.Int16(), true
	case []int32, []*int32:
		return datatypes.Int32(), true
	case []int64, []*int64:
		return datatypes.Int64(), true
	case []uint8, []*uint8:
		return datatypes.UInt8(), true
	case []uint16, []*uint16:
		return datatypes.UInt16(), true
	case []uint32, []*uint32:
		return datatypes.UInt32(), true
	case []uint64, []*uint64:
		return datatypes.UInt64(), true
	case []float32, []*float32:
		return datatypes.Float32(), true
	case []float64, []*float64:
		return datatypes.Float64(), true
	case []string, []*string:
		return datatypes.Utf8(), true
	case [][]byte, []*[]byte:
		return datatypes.Binary(), true
	}
	return datatypes.DataType{}, false
}

var unsupportedTypes = map[reflect.Type]string{
	reflect.TypeFor[decimal128.Num]():              "decimal128",
	reflect.TypeFor[decimal256.Num]():              "decimal256",
	reflect.TypeFor[float16.Num]():                 "float16",
	reflect.TypeFor[big.Int]():                     "big integer",
	reflect.TypeFor[big.Float]():                   "big float",
	reflect.TypeFor[arrow.MonthInterval]():         "month interval",
	reflect.TypeFor[arrow.DayTimeInterval]():       "day-time interval",
	reflect.TypeFor[arrow.MonthDayNanoInterval](): "month-day-nano interval",
}

func unsupportedName(t reflect.Type) (string, bool) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name, ok := unsupportedTypes[t]; ok {
		return name, true
	}
	switch t.Kind() {
	case reflect.Complex64, reflect.Complex128:
		return "complex number", true
	}
	return "", false
}

// unsupportedElement reports the first element of a sequence whose type has no
// array variant.
func unsupportedElement(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return "", false
	}
	if name, ok := unsupportedName(rv.Type().Elem()); ok {
		return name, true
	}
	if rv.Type().Elem().Kind() != reflect.Interface {
		return "", false
	}
	for i := 0; i < rv.Len(); i++ {
		e := rv.Index(i)
		if e.IsNil() {
			continue
		}
		if name, ok := unsupportedName(e.Elem().Type()); ok {
			return name, true
		}
	}
	return "", false
}

// ChunkFromGeneric recovers every value and assembles them into a chunk.
func ChunkFromGeneric(values ...any) (*chunk.Chunk, error) {
	cols := make([]arrays.Array, len(values))
	for i, v := range values {
		a, err := FromGeneric(v)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		cols[i] = a
	}
	return chunk.New(cols...)
}

// ChunkToGeneric erases every column of c.
func ChunkToGeneric(c *chunk.Chunk) []Value {
	out := make([]Value, c.NumCols())
	for i, a := range c.Arrays() {
		out[i] = ToGeneric(a)
	}
	return out
}
