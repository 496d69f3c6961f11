package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/VanDung-dev/tabular/chunk"
	"github.com/VanDung-dev/tabular/datatypes"
	"github.com/VanDung-dev/tabular/ipc"
	"github.com/VanDung-dev/tabular/monitoring"
	"github.com/VanDung-dev/tabular/parquet"
)

// File formats
const (
	formatArrow   = "arrow"
	formatParquet = "parquet"
)

var (
	arrowMagic   = []byte("ARROW1")
	parquetMagic = []byte("PAR1")
)

// detectFormat identifies a file by its leading magic bytes.
func detectFormat(r io.Reader) (string, error) {
	head := make([]byte, len(arrowMagic))
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("failed to read file header: %w", err)
	}
	head = head[:n]
	switch {
	case bytes.HasPrefix(head, arrowMagic):
		return formatArrow, nil
	case bytes.HasPrefix(head, parquetMagic):
		return formatParquet, nil
	}
	return "", fmt.Errorf("unrecognized file format")
}

// formatFromName picks the output format for path from its extension.
func formatFromName(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".arrow", ".feather", ".ipc":
		return formatArrow, nil
	case ".parquet", ".pq":
		return formatParquet, nil
	}
	return "", fmt.Errorf("cannot infer format from %q, use --to", path)
}

// source is a sequential chunk reader over either file format.
type source interface {
	Schema() *datatypes.Schema
	NumChunks() int
	Next() bool
	Chunk() *chunk.Chunk
	Err() error
	Close() error
}

// sink is a chunk writer over either file format.
type sink interface {
	Write(c *chunk.Chunk) error
	Close() error
}

func openSource(path string, metrics *monitoring.Metrics) (source, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	format, err := detectFormat(f)
	f.Close()
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}

	switch format {
	case formatArrow:
		opts := ipc.DefaultReaderOptions()
		opts.Metrics = metrics
		opts.Logger = &logger
		r, err := ipc.NewReader(path, opts)
		if err != nil {
			return nil, "", err
		}
		return r, format, nil
	default:
		opts := parquet.DefaultReaderOptions()
		opts.Metrics = metrics
		opts.Logger = &logger
		r, err := parquet.NewReader(path, opts)
		if err != nil {
			return nil, "", err
		}
		return r, format, nil
	}
}

// sinkOptions holds the writer flags shared by convert and query.
type sinkOptions struct {
	format      string
	compression string
	v1          bool
	noStats     bool
}

func createSink(path string, schema *datatypes.Schema, so sinkOptions, metrics *monitoring.Metrics) (sink, error) {
	format := so.format
	if format == "" {
		var err error
		if format, err = formatFromName(path); err != nil {
			return nil, err
		}
	}

	switch format {
	case formatArrow:
		opts := ipc.DefaultWriterOptions()
		c, ok := ipc.ParseCompression(so.compression)
		if !ok {
			return nil, fmt.Errorf("unknown arrow compression %q", so.compression)
		}
		opts.Compression = c
		opts.Metrics = metrics
		opts.Logger = &logger
		w, err := ipc.NewWriter(path, schema, opts)
		if err != nil {
			return nil, err
		}
		return w, nil
	case formatParquet:
		opts := parquet.DefaultWriterOptions()
		c, ok := parquet.ParseCompression(so.compression)
		if !ok {
			return nil, fmt.Errorf("unknown parquet compression %q", so.compression)
		}
		opts.Compression = c
		if so.v1 {
			opts.Version = parquet.V1
		}
		opts.DisableStatistics = so.noStats
		opts.Metrics = metrics
		opts.Logger = &logger
		w, err := parquet.NewWriter(path, schema, opts)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
	return nil, fmt.Errorf("unknown format %q", format)
}
