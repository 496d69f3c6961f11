package dispatch

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/VanDung-dev/tabular/arrays"
	"github.com/VanDung-dev/tabular/chunk"
	"github.com/VanDung-dev/tabular/datatypes"
	"github.com/VanDung-dev/tabular/errs"
)

// Layouts used for temporal values in JSON.
const (
	DateLayout      = "2006-01-02"
	TimeOfDayLayout = "15:04:05.999999999"
)

// DecodeJSON decodes a JSON document into host values. Numbers become int64
// when they fit, then uint64, then float64 when they carry a fraction or
// exponent; integers wider than 64 bits become *big.Int, which FromGeneric
// rejects as unsupported.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w: %w", errs.ErrFormat, err)
	}
	return normalize(v)
}

func normalize(v any) (any, error) {
	switch v := v.(type) {
	case json.Number:
		return number(v)
	case []any:
		for i, e := range v {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			v[i] = n
		}
		return v, nil
	case map[string]any:
		for k, e := range v {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			v[k] = n
		}
		return v, nil
	}
	return v, nil
}

func number(n json.Number) (any, error) {
	s := n.String()
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return u, nil
	}
	if b, ok := new(big.Int).SetString(s, 10); ok {
		return b, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid number %q", errs.ErrFormat, s)
	}
	return f, nil
}

// ArrayFromJSON decodes a JSON array and recovers a typed array from it by
// probing.
func ArrayFromJSON(data []byte) (arrays.Array, error) {
	v, err := DecodeJSON(data)
	if err != nil {
		return nil, err
	}
	seq, ok := v.([]any)
	if !ok {
		return nil, errs.Mismatch("expected a JSON array, got %T", v)
	}
	return FromGeneric(seq)
}

// ChunkFromJSON decodes a JSON array of row objects into a chunk shaped by
// schema. Missing keys and JSON nulls are absent values. Timestamp, Date32 and
// Time64 columns accept either raw integers or RFC 3339 timestamps, dates in
// DateLayout and times of day in TimeOfDayLayout.
func ChunkFromJSON(data []byte, schema *datatypes.Schema) (*chunk.Chunk, error) {
	v, err := DecodeJSON(data)
	if err != nil {
		return nil, err
	}
	rows, ok := v.([]any)
	if !ok {
		return nil, errs.Mismatch("expected a JSON array of rows, got %T", v)
	}

	cols := make([]arrays.Array, schema.Len())
	for c, f := range schema.Fields() {
		values := make([]any, len(rows))
		for r, row := range rows {
			obj, ok := row.(map[string]any)
			if !ok {
				return nil, errs.Mismatch("row %d is %T, not an object", r, row)
			}
			val, err := fromJSONValue(f.Type, obj[f.Name])
			if err != nil {
				return nil, fmt.Errorf("row %d field %s: %w", r, f.Name, err)
			}
			values[r] = val
		}
		a, err := arrays.New(f.Type, values)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		cols[c] = a
	}
	return chunk.NewWithRows(len(rows), cols...)
}

func fromJSONValue(dt datatypes.DataType, v any) (any, error) {
	s, isString := v.(string)
	switch dt.Kind() {
	case datatypes.KindBinary, datatypes.KindLargeBinary:
		if isString {
			b, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", errs.ErrFormat, err)
			}
			return b, nil
		}
	case datatypes.KindTimestamp:
		if isString {
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", errs.ErrFormat, err)
			}
			return arrays.ToEpoch(t, dt.Unit()), nil
		}
	case datatypes.KindDate32:
		if isString {
			t, err := time.Parse(DateLayout, s)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", errs.ErrFormat, err)
			}
			return arrays.DaysSinceEpoch(t), nil
		}
	case datatypes.KindTime64:
		if isString {
			t, err := time.Parse(TimeOfDayLayout, s)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", errs.ErrFormat, err)
			}
			d := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second + time.Duration(t.Nanosecond())
			return int64(d / arrays.UnitDuration(dt.Unit())), nil
		}
	}
	return v, nil
}

// ChunkToJSON renders c as a JSON array of row objects. Keys follow schema
// order. Binary values are base64, temporal values use the layouts accepted by
// ChunkFromJSON and non-finite floats are rendered as strings.
func ChunkToJSON(c *chunk.Chunk, schema *datatypes.Schema) ([]byte, error) {
	if err := c.Validate(schema); err != nil {
		return nil, err
	}

	render := make([]func(i int) (any, error), c.NumCols())
	for i, a := range c.Arrays() {
		r, err := renderer(a)
		if err != nil {
			return nil, err
		}
		render[i] = r
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for row := 0; row < c.Len(); row++ {
		if row > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for col, f := range schema.Fields() {
			if col > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(f.Name)
			if err != nil {
				return nil, err
			}
			v, err := render[col](row)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal field %s: %w", f.Name, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func renderer(a arrays.Array) (func(i int) (any, error), error) {
	dt := a.DataType()
	plain := func(i int) (any, error) {
		v := a.Get(i)
		switch f := v.(type) {
		case float32:
			return finite(float64(f), v), nil
		case float64:
			return finite(f, v), nil
		}
		return v, nil
	}

	switch dt.Kind() {
	case datatypes.KindTimestamp:
		loc, err := arrays.Location(dt)
		if err != nil {
			return nil, err
		}
		ints := a.(*arrays.Int64Array)
		unit := dt.Unit()
		return func(i int) (any, error) {
			if !a.IsValid(i) {
				return nil, nil
			}
			return arrays.FromEpoch(ints.Value(i), unit).In(loc).Format(time.RFC3339Nano), nil
		}, nil
	case datatypes.KindDate32:
		ints := a.(*arrays.Int32Array)
		return func(i int) (any, error) {
			if !a.IsValid(i) {
				return nil, nil
			}
			return time.Unix(int64(ints.Value(i))*86400, 0).UTC().Format(DateLayout), nil
		}, nil
	case datatypes.KindTime64:
		ints := a.(*arrays.Int64Array)
		step := arrays.UnitDuration(dt.Unit())
		return func(i int) (any, error) {
			if !a.IsValid(i) {
				return nil, nil
			}
			d := time.Duration(ints.Value(i)) * step
			return time.Time{}.Add(d).Format(TimeOfDayLayout), nil
		}, nil
	}
	return plain, nil
}

func finite(f float64, v any) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return v
}
