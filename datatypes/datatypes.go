// Package datatypes describes the logical column types understood by tabular
// and their mapping onto Apache Arrow types.
//
// Timestamp, Date32 and Time64 carry no storage of their own: they reinterpret
// an Int64 or Int32 buffer, which is what Physical reports.
package datatypes

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/VanDung-dev/tabular/errs"
)

// Kind is the tag of a DataType.
type Kind uint8

const (
	KindBoolean Kind = iota
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUInt8
	KindUInt16
	KindUInt32
	KindUInt64
	KindFloat32
	KindFloat64
	KindUtf8
	KindLargeUtf8
	KindBinary
	KindLargeBinary
	KindTimestamp
	KindDate32
	KindTime64
)

var kindNames = [...]string{
	KindBoolean:     "Boolean",
	KindInt8:        "Int8",
	KindInt16:       "Int16",
	KindInt32:       "Int32",
	KindInt64:       "Int64",
	KindUInt8:       "UInt8",
	KindUInt16:      "UInt16",
	KindUInt32:      "UInt32",
	KindUInt64:      "UInt64",
	KindFloat32:     "Float32",
	KindFloat64:     "Float64",
	KindUtf8:        "Utf8",
	KindLargeUtf8:   "LargeUtf8",
	KindBinary:      "Binary",
	KindLargeBinary: "LargeBinary",
	KindTimestamp:   "Timestamp",
	KindDate32:      "Date32",
	KindTime64:      "Time64",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsPhysical reports whether values of this kind have their own storage.
func (k Kind) IsPhysical() bool { return k <= KindLargeBinary }

// Unit is the resolution of a Timestamp or Time64.
type Unit uint8

const (
	Second Unit = iota
	Millisecond
	Microsecond
	Nanosecond
)

var unitNames = [...]string{Second: "s", Millisecond: "ms", Microsecond: "us", Nanosecond: "ns"}

// String returns the short unit name: "s", "ms", "us" or "ns".
func (u Unit) String() string {
	if int(u) < len(unitNames) {
		return unitNames[u]
	}
	return fmt.Sprintf("Unit(%d)", u)
}

// DataType is an immutable logical type. Two DataTypes are equal (with ==)
// when their tag, unit and timezone agree.
type DataType struct {
	kind Kind
	unit Unit
	tz   string
}

func Boolean() DataType     { return DataType{kind: KindBoolean} }
func Int8() DataType        { return DataType{kind: KindInt8} }
func Int16() DataType       { return DataType{kind: KindInt16} }
func Int32() DataType       { return DataType{kind: KindInt32} }
func Int64() DataType       { return DataType{kind: KindInt64} }
func UInt8() DataType       { return DataType{kind: KindUInt8} }
func UInt16() DataType      { return DataType{kind: KindUInt16} }
func UInt32() DataType      { return DataType{kind: KindUInt32} }
func UInt64() DataType      { return DataType{kind: KindUInt64} }
func Float32() DataType     { return DataType{kind: KindFloat32} }
func Float64() DataType     { return DataType{kind: KindFloat64} }
func Utf8() DataType        { return DataType{kind: KindUtf8} }
func LargeUtf8() DataType   { return DataType{kind: KindLargeUtf8} }
func Binary() DataType      { return DataType{kind: KindBinary} }
func LargeBinary() DataType { return DataType{kind: KindLargeBinary} }
func Date32() DataType      { return DataType{kind: KindDate32} }

// Timestamp returns a timestamp type in the given unit. An empty tz means the
// timestamp has no timezone.
func Timestamp(unit Unit, tz string) DataType {
	return DataType{kind: KindTimestamp, unit: unit, tz: tz}
}

// Time64 returns a time-of-day type stored as a 64-bit count of unit.
func Time64(unit Unit) DataType { return DataType{kind: KindTime64, unit: unit} }

func TimestampSeconds(tz string) DataType { return Timestamp(Second, tz) }
func TimestampMillis(tz string) DataType  { return Timestamp(Millisecond, tz) }
func TimestampMicros(tz string) DataType  { return Timestamp(Microsecond, tz) }
func TimestampNanos(tz string) DataType   { return Timestamp(Nanosecond, tz) }

// Date is the calendar date type, days since the epoch.
func Date() DataType { return Date32() }

// Time is the time-of-day type at microsecond resolution.
func Time() DataType { return Time64(Microsecond) }

// Kind returns the tag.
func (d DataType) Kind() Kind { return d.kind }

// Physical returns the kind of the buffer that stores values of d.
func (d DataType) Physical() Kind {
	switch d.kind {
	case KindTimestamp, KindTime64:
		return KindInt64
	case KindDate32:
		return KindInt32
	}
	return d.kind
}

// IsTimestamp reports whether d is a Timestamp.
func (d DataType) IsTimestamp() bool { return d.kind == KindTimestamp }

// TimeUnit returns the unit name of a Timestamp or Time64.
func (d DataType) TimeUnit() (string, bool) {
	if d.kind != KindTimestamp && d.kind != KindTime64 {
		return "", false
	}
	return d.unit.String(), true
}

// Unit returns the unit of a Timestamp or Time64, and Second otherwise.
func (d DataType) Unit() Unit { return d.unit }

// Tz returns the timezone of a Timestamp, if it has one.
func (d DataType) Tz() (string, bool) {
	if d.kind != KindTimestamp || d.tz == "" {
		return "", false
	}
	return d.tz, true
}

func (d DataType) String() string {
	switch d.kind {
	case KindTimestamp:
		if d.tz != "" {
			return fmt.Sprintf("Timestamp(%s, %s)", d.unit, d.tz)
		}
		return fmt.Sprintf("Timestamp(%s)", d.unit)
	case KindTime64:
		return fmt.Sprintf("Time64(%s)", d.unit)
	}
	return d.kind.String()
}

var arrowUnits = [...]arrow.TimeUnit{
	Second:      arrow.Second,
	Millisecond: arrow.Millisecond,
	Microsecond: arrow.Microsecond,
	Nanosecond:  arrow.Nanosecond,
}

// Arrow returns the equivalent Arrow type.
func (d DataType) Arrow() arrow.DataType {
	switch d.kind {
	case KindBoolean:
		return arrow.FixedWidthTypes.Boolean
	case KindInt8:
		return arrow.PrimitiveTypes.Int8
	case KindInt16:
		return arrow.PrimitiveTypes.Int16
	case KindInt32:
		return arrow.PrimitiveTypes.Int32
	case KindInt64:
		return arrow.PrimitiveTypes.Int64
	case KindUInt8:
		return arrow.PrimitiveTypes.Uint8
	case KindUInt16:
		return arrow.PrimitiveTypes.Uint16
	case KindUInt32:
		return arrow.PrimitiveTypes.Uint32
	case KindUInt64:
		return arrow.PrimitiveTypes.Uint64
	case KindFloat32:
		return arrow.PrimitiveTypes.Float32
	case KindFloat64:
		return arrow.PrimitiveTypes.Float64
	case KindUtf8:
		return arrow.BinaryTypes.String
	case KindLargeUtf8:
		return arrow.BinaryTypes.LargeString
	case KindBinary:
		return arrow.BinaryTypes.Binary
	case KindLargeBinary:
		return arrow.BinaryTypes.LargeBinary
	case KindTimestamp:
		return &arrow.TimestampType{Unit: arrowUnits[d.unit], TimeZone: d.tz}
	case KindDate32:
		return arrow.FixedWidthTypes.Date32
	case KindTime64:
		return &arrow.Time64Type{Unit: arrowUnits[d.unit]}
	}
	panic(fmt.Sprintf("datatypes: invalid kind %d", d.kind))
}

// CheckEncodable fails with ErrUnsupportedType when d has no Arrow encoding.
// Arrow's Time64 is only defined for microseconds and nanoseconds; coarser
// units belong to Time32, which tabular does not model.
func (d DataType) CheckEncodable() error {
	if d.kind == KindTime64 && (d.unit == Second || d.unit == Millisecond) {
		return errs.Unsupported(d.String())
	}
	return nil
}

func unitFromArrow(u arrow.TimeUnit) Unit {
	switch u {
	case arrow.Millisecond:
		return Millisecond
	case arrow.Microsecond:
		return Microsecond
	case arrow.Nanosecond:
		return Nanosecond
	}
	return Second
}

// FromArrow maps an Arrow type onto a DataType. Arrow types this package does
// not implement (decimals, half floats, intervals, nested types and so on)
// return ErrUnsupportedType.
func FromArrow(dt arrow.DataType) (DataType, error) {
	switch dt.ID() {
	case arrow.BOOL:
		return Boolean(), nil
	case arrow.INT8:
		return Int8(), nil
	case arrow.INT16:
		return Int16(), nil
	case arrow.INT32:
		return Int32(), nil
	case arrow.INT64:
		return Int64(), nil
	case arrow.UINT8:
		return UInt8(), nil
	case arrow.UINT16:
		return UInt16(), nil
	case arrow.UINT32:
		return UInt32(), nil
	case arrow.UINT64:
		return UInt64(), nil
	case arrow.FLOAT32:
		return Float32(), nil
	case arrow.FLOAT64:
		return Float64(), nil
	case arrow.STRING:
		return Utf8(), nil
	case arrow.LARGE_STRING:
		return LargeUtf8(), nil
	case arrow.BINARY:
		return Binary(), nil
	case arrow.LARGE_BINARY:
		return LargeBinary(), nil
	case arrow.TIMESTAMP:
		ts := dt.(*arrow.TimestampType)
		return Timestamp(unitFromArrow(ts.Unit), ts.TimeZone), nil
	case arrow.DATE32:
		return Date32(), nil
	case arrow.TIME64:
		return Time64(unitFromArrow(dt.(*arrow.Time64Type).Unit)), nil
	}
	return DataType{}, errs.Unsupported(dt.String())
}
