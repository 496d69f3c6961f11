package ipc

import (
	arrowipc "github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/rs/zerolog"

	"github.com/VanDung-dev/tabular/monitoring"
)

const format = "ipc"

// Compression selects the body compression of written record batches.
type Compression int

// Supported compressions
const (
	CompressionNone Compression = iota
	CompressionLZ4
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	}
	return "none"
}

// ParseCompression maps "none", "lz4" and "zstd" to a Compression.
func ParseCompression(s string) (Compression, bool) {
	switch s {
	case "", "none":
		return CompressionNone, true
	case "lz4":
		return CompressionLZ4, true
	case "zstd":
		return CompressionZstd, true
	}
	return CompressionNone, false
}

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	// Allocator backs decoded buffers
	Allocator memory.Allocator
	// Metrics receives read counters; nil disables them
	Metrics *monitoring.Metrics
	// Logger receives debug events; nil disables them
	Logger *zerolog.Logger
}

// DefaultReaderOptions returns options using the Go allocator.
func DefaultReaderOptions() *ReaderOptions {
	return &ReaderOptions{
		Allocator: memory.NewGoAllocator(),
	}
}

func (o *ReaderOptions) orDefault() *ReaderOptions {
	if o == nil {
		return DefaultReaderOptions()
	}
	out := *o
	if out.Allocator == nil {
		out.Allocator = memory.NewGoAllocator()
	}
	return &out
}

// WriterOptions configures a Writer.
type WriterOptions struct {
	// Compression of record batch bodies (default: none)
	Compression Compression
	// Allocator used while encoding
	Allocator memory.Allocator
	// Metrics receives write counters; nil disables them
	Metrics *monitoring.Metrics
	// Logger receives debug events; nil disables them
	Logger *zerolog.Logger
}

// DefaultWriterOptions returns uncompressed options using the Go allocator.
func DefaultWriterOptions() *WriterOptions {
	return &WriterOptions{
		Compression: CompressionNone,
		Allocator:   memory.NewGoAllocator(),
	}
}

func (o *WriterOptions) orDefault() *WriterOptions {
	if o == nil {
		return DefaultWriterOptions()
	}
	out := *o
	if out.Allocator == nil {
		out.Allocator = memory.NewGoAllocator()
	}
	return &out
}

func (o *WriterOptions) arrowOptions() []arrowipc.Option {
	opts := []arrowipc.Option{arrowipc.WithAllocator(o.Allocator)}
	switch o.Compression {
	case CompressionLZ4:
		opts = append(opts, arrowipc.WithLZ4())
	case CompressionZstd:
		opts = append(opts, arrowipc.WithZstd())
	}
	return opts
}
