package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/VanDung-dev/tabular/arrays"
	"github.com/VanDung-dev/tabular/chunk"
	"github.com/VanDung-dev/tabular/datatypes"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		head string
		want string
	}{
		{"ARROW1\x00\x00", formatArrow},
		{"PAR1\x15\x04", formatParquet},
		{"PAR1", formatParquet},
		{"CSV,1", ""},
		{"", ""},
	}
	for _, tt := range tests {
		got, err := detectFormat(strings.NewReader(tt.head))
		if got != tt.want || (tt.want == "") != (err != nil) {
			t.Errorf("detectFormat(%q) = %q, %v; want %q", tt.head, got, err, tt.want)
		}
	}
}

func TestFormatFromName(t *testing.T) {
	for name, want := range map[string]string{
		"a.arrow":   formatArrow,
		"a.feather": formatArrow,
		"A.PARQUET": formatParquet,
		"a.csv":     "",
	} {
		got, err := formatFromName(name)
		if got != want || (want == "") != (err != nil) {
			t.Errorf("formatFromName(%q) = %q, %v; want %q", name, got, err, want)
		}
	}
}

func TestConvertRoundTrip(t *testing.T) {
	dir := t.TempDir()
	schema := datatypes.NewSchema(
		datatypes.NewField("id", datatypes.Int64(), false),
		datatypes.NewField("name", datatypes.Utf8(), true),
	)
	ids, _ := arrays.NewInt64([]int64{1, 2})
	names, _ := arrays.NewUtf8([]any{"a", nil})
	in, _ := chunk.New(ids, names)

	arrowPath := filepath.Join(dir, "in.arrow")
	dst, err := createSink(arrowPath, schema, sinkOptions{compression: "zstd"}, nil)
	if err != nil {
		t.Fatalf("createSink: %v", err)
	}
	if err := dst.Write(in); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := dst.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	src, format, err := openSource(arrowPath, nil)
	if err != nil || format != formatArrow {
		t.Fatalf("openSource = %q, %v", format, err)
	}
	parquetPath := filepath.Join(dir, "out.bin")
	out, err := createSink(parquetPath, src.Schema(), sinkOptions{format: formatParquet, compression: "snappy"}, nil)
	if err != nil {
		t.Fatalf("createSink: %v", err)
	}
	rows, err := copyChunks(out, src)
	if err != nil || rows != 2 {
		t.Fatalf("copyChunks = %d, %v", rows, err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	src.Close()

	back, format, err := openSource(parquetPath, nil)
	if err != nil || format != formatParquet {
		t.Fatalf("openSource = %q, %v", format, err)
	}
	defer back.Close()
	if !back.Schema().Equal(schema) {
		t.Errorf("schema = %s, want %s", back.Schema(), schema)
	}

	var buf bytes.Buffer
	if err := printChunks(&buf, back.Schema(), back, 0); err != nil {
		t.Fatalf("printChunks: %v", err)
	}
	if got := buf.String(); got != `[{"id":1,"name":"a"},{"id":2,"name":null}]`+"\n" {
		t.Errorf("printChunks = %q", got)
	}
}

func TestCreateSinkErrors(t *testing.T) {
	schema := datatypes.NewSchema(datatypes.NewField("id", datatypes.Int64(), false))
	dir := t.TempDir()
	if _, err := createSink(filepath.Join(dir, "x.csv"), schema, sinkOptions{}, nil); err == nil {
		t.Error("expected error for unknown extension")
	}
	if _, err := createSink(filepath.Join(dir, "x.arrow"), schema, sinkOptions{compression: "snappy"}, nil); err == nil {
		t.Error("snappy is not an arrow compression")
	}
}

func TestOutputPath(t *testing.T) {
	if got := outputPath("out", "data/events.arrow", formatParquet); got != filepath.Join("out", "events.parquet") {
		t.Errorf("outputPath = %q", got)
	}
}

func TestConvertFileCancelled(t *testing.T) {
	dir := t.TempDir()
	schema := datatypes.NewSchema(datatypes.NewField("id", datatypes.Int64(), false))
	ids, _ := arrays.NewInt64([]int64{1, 2, 3})
	in, _ := chunk.New(ids)

	src := filepath.Join(dir, "in.arrow")
	dst, err := createSink(src, schema, sinkOptions{}, nil)
	if err != nil {
		t.Fatalf("createSink: %v", err)
	}
	dst.Write(in)
	if err := dst.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := outputPath(dir, src, formatParquet)
	if err := convertFile(ctx, src, out, sinkOptions{format: formatParquet}); !errors.Is(err, context.Canceled) {
		t.Fatalf("convertFile error = %v, want context.Canceled", err)
	}

	// The output is still finalized and readable.
	back, _, err := openSource(out, nil)
	if err != nil {
		t.Fatalf("openSource: %v", err)
	}
	defer back.Close()
	if back.NumChunks() != 0 {
		t.Errorf("NumChunks() = %d, want 0", back.NumChunks())
	}
}
