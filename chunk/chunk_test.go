package chunk

import (
	"errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/VanDung-dev/tabular/arrays"
	"github.com/VanDung-dev/tabular/datatypes"
	"github.com/VanDung-dev/tabular/errs"
)

func mustInt32(t *testing.T, src any) *arrays.Int32Array {
	t.Helper()
	a, err := arrays.NewInt32(src)
	if err != nil {
		t.Fatalf("NewInt32: %v", err)
	}
	return a
}

func TestNewEqualLengths(t *testing.T) {
	a := mustInt32(t, []int32{1, 2, 3})
	b, _ := arrays.NewUtf8([]any{"x", nil, "z"})
	c, _ := arrays.NewBoolean([]bool{true, false, true})

	ch, err := New(a, b, c)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if ch.Len() != 3 {
		t.Errorf("Len() = %d, want 3", ch.Len())
	}
	if ch.NumCols() != 3 || ch.Array(1) != arrays.Array(b) {
		t.Error("arrays not kept in order")
	}
}

func TestNewLengthMismatch(t *testing.T) {
	a := mustInt32(t, []int32{1, 2, 3})
	b := mustInt32(t, []int32{1, 2, 3})
	c := mustInt32(t, []int32{1, 2})

	_, err := New(a, b, c)
	if !errors.Is(err, errs.ErrLengthMismatch) {
		t.Fatalf("New error = %v, want ErrLengthMismatch", err)
	}
	if !errors.Is(err, errs.ErrTypeMismatch) {
		t.Fatal("ErrLengthMismatch should be a TypeMismatch")
	}
}

func TestZeroColumns(t *testing.T) {
	ch, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if ch.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ch.Len())
	}

	ch, err = NewWithRows(5)
	if err != nil {
		t.Fatalf("NewWithRows: %v", err)
	}
	if ch.Len() != 5 {
		t.Errorf("Len() = %d, want 5", ch.Len())
	}

	if _, err := NewWithRows(2, mustInt32(t, []int32{1})); !errors.Is(err, errs.ErrLengthMismatch) {
		t.Errorf("NewWithRows error = %v, want ErrLengthMismatch", err)
	}
}

func TestEqual(t *testing.T) {
	x, _ := New(mustInt32(t, []any{1, nil}))
	y, _ := New(mustInt32(t, []any{1, nil}))
	z, _ := New(mustInt32(t, []any{1, 2}))

	if !x.Equal(y) {
		t.Error("equal chunks compare unequal")
	}
	if x.Equal(z) {
		t.Error("different chunks compare equal")
	}
	empty, _ := New()
	if x.Equal(empty) {
		t.Error("chunks of different width compare equal")
	}
}

func TestArraysIsACopy(t *testing.T) {
	ch, _ := New(mustInt32(t, []int32{1}))
	cols := ch.Arrays()
	cols[0] = nil
	if ch.Array(0) == nil {
		t.Error("Arrays() must not expose internal storage")
	}
}

func TestValidate(t *testing.T) {
	ints := mustInt32(t, []any{1, nil})
	ch, _ := New(ints)

	tests := []struct {
		name   string
		schema *datatypes.Schema
		ok     bool
	}{
		{"match", datatypes.NewSchema(datatypes.NewField("a", datatypes.Int32(), true)), true},
		{"wrong type", datatypes.NewSchema(datatypes.NewField("a", datatypes.Int64(), true)), false},
		{"logical type", datatypes.NewSchema(datatypes.NewField("a", datatypes.Date32(), true)), false},
		{"not nullable", datatypes.NewSchema(datatypes.NewField("a", datatypes.Int32(), false)), false},
		{"too many fields", datatypes.NewSchema(
			datatypes.NewField("a", datatypes.Int32(), true),
			datatypes.NewField("b", datatypes.Int32(), true),
		), false},
	}
	for _, tt := range tests {
		err := ch.Validate(tt.schema)
		if tt.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if !tt.ok && !errors.Is(err, errs.ErrTypeMismatch) {
			t.Errorf("%s: error = %v, want ErrTypeMismatch", tt.name, err)
		}
	}
}

func TestRecordRoundTrip(t *testing.T) {
	ts := arrays.ToTimestamp(func() *arrays.Int64Array {
		a, _ := arrays.NewInt64([]any{int64(10), nil})
		return a
	}(), datatypes.Millisecond, "UTC")
	names, _ := arrays.NewLargeUtf8([]string{"a", "b"})

	schema := datatypes.NewSchema(
		datatypes.NewField("at", ts.DataType(), true),
		datatypes.NewField("name", datatypes.LargeUtf8(), false),
	)
	ch, _ := New(ts, names)

	rec, err := ch.Record(schema)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	defer rec.Release()

	if rec.NumRows() != 2 || rec.NumCols() != 2 {
		t.Fatalf("record shape = %dx%d", rec.NumRows(), rec.NumCols())
	}
	if rec.ColumnName(0) != "at" {
		t.Errorf("ColumnName(0) = %q", rec.ColumnName(0))
	}

	back, err := FromRecord(rec)
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if !back.Equal(ch) {
		t.Errorf("FromRecord = %s, want %s", back, ch)
	}
}

func TestFromRecordUnsupported(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := arrow.NewSchema([]arrow.Field{{Name: "h", Type: arrow.FixedWidthTypes.Float16}}, nil)
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	b.Field(0).AppendNull()
	rec := b.NewRecord()
	defer rec.Release()

	if _, err := FromRecord(rec); !errors.Is(err, errs.ErrUnsupportedType) {
		t.Fatalf("FromRecord error = %v, want ErrUnsupportedType", err)
	}
}

func TestInferSchema(t *testing.T) {
	a := mustInt32(t, []int32{1, 2})
	b, _ := arrays.NewUtf8([]any{"x", nil})
	ch, _ := New(a, b)

	s := InferSchema(ch)
	want := datatypes.NewSchema(
		datatypes.NewField("column_0", datatypes.Int32(), true),
		datatypes.NewField("column_1", datatypes.Utf8(), true),
	)
	if !s.Equal(want) {
		t.Fatalf("InferSchema() = %s, want %s", s, want)
	}
	if err := ch.Validate(s); err != nil {
		t.Errorf("Validate(InferSchema()): %v", err)
	}
}
