package parquet

import (
	"errors"
	"path/filepath"
	"testing"

	pq "github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"

	"github.com/VanDung-dev/tabular/arrays"
	"github.com/VanDung-dev/tabular/chunk"
	"github.com/VanDung-dev/tabular/datatypes"
	"github.com/VanDung-dev/tabular/errs"
	"github.com/VanDung-dev/tabular/filelike"
)

func TestNullableBooleanRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flags.parquet")
	flags, err := arrays.NewBoolean([]any{true, false, nil, true})
	if err != nil {
		t.Fatalf("NewBoolean: %v", err)
	}
	schema := datatypes.NewSchema(datatypes.NewField("flag", datatypes.Boolean(), true))
	c, _ := chunk.New(flags)

	if err := WriteAll(path, schema, nil, c); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	got, chunks, err := ReadAll(path, nil)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !got.Equal(schema) {
		t.Errorf("schema = %s, want %s", got, schema)
	}
	if len(chunks) != 1 {
		t.Fatalf("read %d chunks, want 1", len(chunks))
	}
	back := chunks[0].Array(0).(*arrays.BooleanArray)
	if back.NullCount() != 1 || back.IsValid(2) {
		t.Errorf("validity = %s", back)
	}
	if !chunks[0].Equal(c) {
		t.Errorf("chunk = %s, want %s", chunks[0], c)
	}
}

func allTypesChunk(t *testing.T) (*datatypes.Schema, *chunk.Chunk) {
	t.Helper()
	ts, _ := arrays.NewInt64([]any{int64(1700000000000000), nil})
	day, _ := arrays.NewInt32([]any{int32(19783), nil})
	clock, _ := arrays.NewInt64([]any{int64(45000000000), nil})

	columns := []struct {
		name string
		arr  arrays.Array
	}{
		{"i8", must(arrays.NewInt8([]any{-1, nil}))},
		{"i16", must(arrays.NewInt16([]any{-300, nil}))},
		{"i32", must(arrays.NewInt32([]any{1 << 20, nil}))},
		{"i64", must(arrays.NewInt64([]any{int64(1) << 40, nil}))},
		{"u8", must(arrays.NewUInt8([]any{255, nil}))},
		{"u16", must(arrays.NewUInt16([]any{65535, nil}))},
		{"u32", must(arrays.NewUInt32([]any{uint32(1) << 31, nil}))},
		{"u64", must(arrays.NewUInt64([]any{uint64(1) << 63, nil}))},
		{"f32", must(arrays.NewFloat32([]any{0.5, nil}))},
		{"f64", must(arrays.NewFloat64([]any{0.1, nil}))},
		{"s", must(arrays.NewUtf8([]any{"x", nil}))},
		{"ls", must(arrays.NewLargeUtf8([]any{"y", nil}))},
		{"b", must(arrays.NewBinary([]any{[]byte{0, 1}, nil}))},
		{"lb", must(arrays.NewLargeBinary([]any{[]byte{2}, nil}))},
		{"ts", arrays.ToTimestamp(ts, datatypes.Microsecond, "UTC")},
		{"naive", arrays.ToTimestamp(ts, datatypes.Microsecond, "")},
		{"day", arrays.ToDate32(day)},
		{"clock", arrays.ToTime64(clock, datatypes.Microsecond)},
	}

	fields := make([]datatypes.Field, len(columns))
	cols := make([]arrays.Array, len(columns))
	for i, col := range columns {
		fields[i] = datatypes.NewField(col.name, col.arr.DataType(), true)
		cols[i] = col.arr
	}
	c, err := chunk.New(cols...)
	if err != nil {
		t.Fatalf("chunk.New: %v", err)
	}
	return datatypes.NewSchema(fields...), c
}

func must[A arrays.Array](a A, err error) arrays.Array {
	if err != nil {
		panic(err)
	}
	return a
}

func TestAllTypesRoundTrip(t *testing.T) {
	schema, c := allTypesChunk(t)

	tests := []struct {
		name string
		opts *WriterOptions
	}{
		{"defaults", nil},
		{"snappy", &WriterOptions{Compression: Snappy}},
		{"zstd without statistics", &WriterOptions{Compression: Zstd, DisableStatistics: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf filelike.Buffer
			if err := WriteAll(&buf, schema, tt.opts, c); err != nil {
				t.Fatalf("WriteAll: %v", err)
			}
			got, chunks, err := ReadAll(filelike.NewBuffer(buf.Bytes()), nil)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if !got.Equal(schema) {
				t.Fatalf("schema = %s\nwant %s", got, schema)
			}
			if len(chunks) != 1 || !chunks[0].Equal(c) {
				t.Errorf("chunks = %v, want %s", chunks, c)
			}
		})
	}
}

func TestV1Pages(t *testing.T) {
	ids, _ := arrays.NewInt64([]any{int64(7), nil})
	names, _ := arrays.NewUtf8([]any{nil, "n"})
	flags, _ := arrays.NewBoolean([]bool{true, false})
	schema := datatypes.NewSchema(
		datatypes.NewField("id", datatypes.Int64(), true),
		datatypes.NewField("name", datatypes.Utf8(), true),
		datatypes.NewField("flag", datatypes.Boolean(), false),
	)
	c, _ := chunk.New(ids, names, flags)

	var buf filelike.Buffer
	if err := WriteAll(&buf, schema, &WriterOptions{Version: V1}, c); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	pr, err := file.NewParquetReader(filelike.NewBuffer(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewParquetReader: %v", err)
	}
	if pr.MetaData().Version() != pq.V1_0 {
		t.Errorf("version = %v, want 1.0", pr.MetaData().Version())
	}

	_, chunks, err := ReadAll(filelike.NewBuffer(buf.Bytes()), nil)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(chunks) != 1 || !chunks[0].Equal(c) {
		t.Errorf("chunks = %v, want %s", chunks, c)
	}
}

func TestOneRowGroupPerChunk(t *testing.T) {
	schema := datatypes.NewSchema(datatypes.NewField("n", datatypes.Int64(), false))
	var want []*chunk.Chunk
	for i := range 3 {
		a, _ := arrays.NewInt64([]int64{int64(i), int64(i * 10)})
		c, _ := chunk.New(a)
		want = append(want, c)
	}

	var buf filelike.Buffer
	if err := WriteAll(&buf, schema, nil, want...); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	r, err := NewReader(filelike.NewBuffer(buf.Bytes()), nil)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()
	if r.NumRowGroups() != 3 {
		t.Fatalf("NumRowGroups() = %d, want 3", r.NumRowGroups())
	}
	i := 0
	for r.Next() {
		if !r.Chunk().Equal(want[i]) {
			t.Errorf("row group %d = %s, want %s", i, r.Chunk(), want[i])
		}
		i++
	}
	if r.Err() != nil || i != 3 {
		t.Errorf("read %d row groups, Err() = %v", i, r.Err())
	}
}

func TestWriterProperties(t *testing.T) {
	a, _ := arrays.NewInt32([]any{1, nil, 3})
	schema := datatypes.NewSchema(datatypes.NewField("v", datatypes.Int32(), true))
	c, _ := chunk.New(a)

	tests := []struct {
		name  string
		opts  *WriterOptions
		codec compress.Compression
		stats bool
	}{
		{"defaults", nil, compress.Codecs.Uncompressed, true},
		{"partial options keep statistics", &WriterOptions{Compression: Snappy}, compress.Codecs.Snappy, true},
		{"statistics disabled", &WriterOptions{DisableStatistics: true}, compress.Codecs.Uncompressed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf filelike.Buffer
			if err := WriteAll(&buf, schema, tt.opts, c); err != nil {
				t.Fatalf("WriteAll: %v", err)
			}

			pr, err := file.NewParquetReader(filelike.NewBuffer(buf.Bytes()))
			if err != nil {
				t.Fatalf("NewParquetReader: %v", err)
			}
			col, err := pr.MetaData().RowGroup(0).ColumnChunk(0)
			if err != nil {
				t.Fatalf("ColumnChunk: %v", err)
			}
			if col.Compression() != tt.codec {
				t.Errorf("compression = %v, want %v", col.Compression(), tt.codec)
			}
			for _, enc := range col.Encodings() {
				if enc == pq.Encodings.PlainDict || enc == pq.Encodings.RLEDict {
					t.Errorf("dictionary encoding %v used", enc)
				}
			}
			ok, err := col.StatsSet()
			if err != nil {
				t.Fatalf("StatsSet: %v", err)
			}
			if ok != tt.stats {
				t.Errorf("statistics written = %v, want %v", ok, tt.stats)
			}
		})
	}
}

func TestEarlyErrorStillFinalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.parquet")
	a, _ := arrays.NewUtf8([]string{"kept"})
	schema := datatypes.NewSchema(datatypes.NewField("s", datatypes.Utf8(), false))
	c, _ := chunk.New(a)
	boom := errors.New("boom")

	err := WithWriter(path, schema, nil, func(w *Writer) error {
		if err := w.Write(c); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithWriter error = %v, want boom", err)
	}

	_, chunks, err := ReadAll(path, nil)
	if err != nil {
		t.Fatalf("file written before the error is not readable: %v", err)
	}
	if len(chunks) != 1 || !chunks[0].Equal(c) {
		t.Errorf("chunks = %v", chunks)
	}
}

func TestWriterErrors(t *testing.T) {
	schema := datatypes.NewSchema(datatypes.NewField("v", datatypes.Int32(), false))
	w, err := NewWriter(&filelike.Buffer{}, schema, nil)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	wrong, _ := arrays.NewInt64([]int64{1})
	c, _ := chunk.New(wrong)
	if err := w.Write(c); !errors.Is(err, errs.ErrTypeMismatch) {
		t.Errorf("Write error = %v, want ErrTypeMismatch", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Write(c); !errors.Is(err, errs.ErrClosed) {
		t.Errorf("Write after Close = %v, want ErrClosed", err)
	}

	for _, dt := range []datatypes.DataType{
		datatypes.Time64(datatypes.Second),
		datatypes.Time64(datatypes.Millisecond),
		datatypes.TimestampSeconds("UTC"),
		datatypes.TimestampSeconds(""),
	} {
		schema := datatypes.NewSchema(datatypes.NewField("t", dt, true))
		if _, err := NewWriter(&filelike.Buffer{}, schema, nil); !errors.Is(err, errs.ErrUnsupportedType) {
			t.Errorf("%s error = %v, want ErrUnsupportedType", dt, err)
		}
	}
}

func TestTemporalUnits(t *testing.T) {
	units := []datatypes.Unit{datatypes.Second, datatypes.Millisecond, datatypes.Microsecond, datatypes.Nanosecond}
	for _, unit := range units {
		tests := []struct {
			dt          datatypes.DataType
			unsupported bool
		}{
			{datatypes.Timestamp(unit, "UTC"), unit == datatypes.Second},
			{datatypes.Time64(unit), unit == datatypes.Second || unit == datatypes.Millisecond},
		}
		for _, tt := range tests {
			t.Run(tt.dt.String(), func(t *testing.T) {
				raw, _ := arrays.NewInt64([]any{int64(0), nil, int64(43200)})
				var col *arrays.Int64Array
				if tt.dt.Kind() == datatypes.KindTimestamp {
					col = arrays.ToTimestamp(raw, unit, "UTC")
				} else {
					col = arrays.ToTime64(raw, unit)
				}
				c, _ := chunk.New(col)
				schema := datatypes.NewSchema(datatypes.NewField("t", tt.dt, true))

				var buf filelike.Buffer
				err := WriteAll(&buf, schema, nil, c)
				if tt.unsupported {
					if !errors.Is(err, errs.ErrUnsupportedType) {
						t.Errorf("WriteAll error = %v, want ErrUnsupportedType", err)
					}
					if buf.Len() != 0 {
						t.Errorf("rejected schema wrote %d bytes", buf.Len())
					}
					return
				}
				if err != nil {
					t.Fatalf("WriteAll: %v", err)
				}

				got, chunks, err := ReadAll(filelike.NewBuffer(buf.Bytes()), nil)
				if err != nil {
					t.Fatalf("ReadAll: %v", err)
				}
				if !got.Equal(schema) {
					t.Errorf("schema = %s, want %s", got, schema)
				}
				if len(chunks) != 1 || !chunks[0].Equal(c) {
					t.Errorf("chunks = %v, want %s", chunks, c)
				}
			})
		}
	}
}

func TestReaderErrors(t *testing.T) {
	if _, err := NewReader(filelike.NewBuffer([]byte("PAR1 but not really")), nil); !errors.Is(err, errs.ErrFormat) {
		t.Errorf("garbage error = %v, want ErrFormat", err)
	}
	if _, err := NewReader(struct{}{}, nil); !errors.Is(err, errs.ErrCapability) {
		t.Errorf("capability error = %v, want ErrCapability", err)
	}
}
