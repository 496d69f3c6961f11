package arrays

import (
	"iter"
	"time"

	"github.com/VanDung-dev/tabular/datatypes"
	"github.com/VanDung-dev/tabular/errs"
)

const secondsPerDay = 24 * 60 * 60

// UnitDuration returns the length of one unit.
func UnitDuration(u datatypes.Unit) time.Duration {
	switch u {
	case datatypes.Second:
		return time.Second
	case datatypes.Millisecond:
		return time.Millisecond
	case datatypes.Microsecond:
		return time.Microsecond
	}
	return time.Nanosecond
}

// ToEpoch returns t as a count of unit since the Unix epoch, truncating
// anything finer than unit.
func ToEpoch(t time.Time, u datatypes.Unit) int64 {
	switch u {
	case datatypes.Second:
		return t.Unix()
	case datatypes.Millisecond:
		return t.UnixMilli()
	case datatypes.Microsecond:
		return t.UnixMicro()
	}
	return t.UnixNano()
}

// FromEpoch is the inverse of ToEpoch. The result is in the local zone.
func FromEpoch(v int64, u datatypes.Unit) time.Time {
	switch u {
	case datatypes.Second:
		return time.Unix(v, 0)
	case datatypes.Millisecond:
		return time.UnixMilli(v)
	case datatypes.Microsecond:
		return time.UnixMicro(v)
	}
	return time.Unix(0, v)
}

// FromTimes builds a timestamp array in unit from wall-clock times, truncating
// anything finer than unit.
func FromTimes(times []time.Time, valid []bool, unit datatypes.Unit, tz string) (*Int64Array, error) {
	if err := checkMask(len(times), valid); err != nil {
		return nil, err
	}
	values := make([]int64, len(times))
	for i, t := range times {
		if valid == nil || valid[i] {
			values[i] = ToEpoch(t, unit)
		}
	}
	return newPrimitive(datatypes.Timestamp(unit, tz), values, ValidityFromBools(valid)), nil
}

// Location resolves the timezone of a timestamp type. Naive timestamps are
// reported in UTC.
func Location(dt datatypes.DataType) (*time.Location, error) {
	tz, ok := dt.Tz()
	if !ok {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, errs.Format("timezone "+tz, err)
	}
	return loc, nil
}

// Times yields the elements of a timestamp array as times in the array's
// timezone.
func Times(a *Int64Array) (iter.Seq2[time.Time, bool], error) {
	if !a.dt.IsTimestamp() {
		return nil, errs.Mismatch("%s is not a timestamp", a.dt)
	}
	loc, err := Location(a.dt)
	if err != nil {
		return nil, err
	}
	unit := a.dt.Unit()
	return func(yield func(time.Time, bool) bool) {
		for v, ok := range a.All() {
			var t time.Time
			if ok {
				t = FromEpoch(v, unit).In(loc)
			}
			if !yield(t, ok) {
				return
			}
		}
	}, nil
}

// DaysSinceEpoch returns the civil day of t in t's location.
func DaysSinceEpoch(t time.Time) int32 {
	y, m, d := t.Date()
	return int32(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay)
}

// FromDates builds a Date32 array from the calendar dates of times.
func FromDates(dates []time.Time, valid []bool) (*Int32Array, error) {
	if err := checkMask(len(dates), valid); err != nil {
		return nil, err
	}
	values := make([]int32, len(dates))
	for i, t := range dates {
		if valid == nil || valid[i] {
			values[i] = DaysSinceEpoch(t)
		}
	}
	return newPrimitive(datatypes.Date32(), values, ValidityFromBools(valid)), nil
}

// Dates yields the elements of a Date32 array as UTC midnights.
func Dates(a *Int32Array) (iter.Seq2[time.Time, bool], error) {
	if a.dt.Kind() != datatypes.KindDate32 {
		return nil, errs.Mismatch("%s is not a date", a.dt)
	}
	return func(yield func(time.Time, bool) bool) {
		for v, ok := range a.All() {
			var t time.Time
			if ok {
				t = time.Unix(int64(v)*secondsPerDay, 0).UTC()
			}
			if !yield(t, ok) {
				return
			}
		}
	}, nil
}

// FromTimesOfDay builds a Time64 array in unit from offsets since midnight.
func FromTimesOfDay(offsets []time.Duration, valid []bool, unit datatypes.Unit) (*Int64Array, error) {
	if err := checkMask(len(offsets), valid); err != nil {
		return nil, err
	}
	step := UnitDuration(unit)
	values := make([]int64, len(offsets))
	for i, d := range offsets {
		if valid == nil || valid[i] {
			values[i] = int64(d / step)
		}
	}
	return newPrimitive(datatypes.Time64(unit), values, ValidityFromBools(valid)), nil
}

// TimesOfDay yields the elements of a Time64 array as offsets since midnight.
func TimesOfDay(a *Int64Array) (iter.Seq2[time.Duration, bool], error) {
	if a.dt.Kind() != datatypes.KindTime64 {
		return nil, errs.Mismatch("%s is not a time of day", a.dt)
	}
	step := UnitDuration(a.dt.Unit())
	return func(yield func(time.Duration, bool) bool) {
		for v, ok := range a.All() {
			var d time.Duration
			if ok {
				d = time.Duration(v) * step
			}
			if !yield(d, ok) {
				return
			}
		}
	}, nil
}
