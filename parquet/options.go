package parquet

import (
	"github.com/apache/arrow-go/v18/arrow/memory"
	pq "github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/rs/zerolog"

	"github.com/VanDung-dev/tabular/datatypes"
	"github.com/VanDung-dev/tabular/monitoring"
)

const format = "parquet"

// Version selects the format version and data page layout of written files.
type Version int

// Supported versions
const (
	V2 Version = iota
	V1
)

func (v Version) String() string {
	if v == V1 {
		return "1.0"
	}
	return "2.6"
}

// Compression selects the column chunk codec.
type Compression int

// Supported codecs
const (
	Uncompressed Compression = iota
	Snappy
	Gzip
	Zstd
)

func (c Compression) String() string {
	switch c {
	case Snappy:
		return "snappy"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	}
	return "uncompressed"
}

// ParseCompression maps a codec name to a Compression.
func ParseCompression(s string) (Compression, bool) {
	switch s {
	case "", "none", "uncompressed":
		return Uncompressed, true
	case "snappy":
		return Snappy, true
	case "gzip":
		return Gzip, true
	case "zstd":
		return Zstd, true
	}
	return Uncompressed, false
}

func (c Compression) codec() compress.Compression {
	switch c {
	case Snappy:
		return compress.Codecs.Snappy
	case Gzip:
		return compress.Codecs.Gzip
	case Zstd:
		return compress.Codecs.Zstd
	}
	return compress.Codecs.Uncompressed
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
	// Version of the format and data pages (default: V2)
	Version Version
	// DisableStatistics omits column chunk statistics (default: written)
	DisableStatistics bool
	// Compression codec for every column (default: uncompressed)
	Compression Compression
	// Allocator used while encoding
	Allocator memory.Allocator
	// Metrics receives write counters; nil disables them
	Metrics *monitoring.Metrics
	// Logger receives debug events; nil disables them
	Logger *zerolog.Logger
}

// DefaultWriterOptions returns V2 pages, statistics on, no compression and
// plain encoding.
func DefaultWriterOptions() *WriterOptions {
	return &WriterOptions{
		Version:     V2,
		Compression: Uncompressed,
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

// EncodingFor returns the page encoding used for columns of type dt. Every
// supported type is written plain; dictionary encoding is never used.
func EncodingFor(dt datatypes.DataType) pq.Encoding {
	return pq.Encodings.Plain
}

func (o *WriterOptions) properties(schema *datatypes.Schema) *pq.WriterProperties {
	props := []pq.WriterProperty{
		pq.WithAllocator(o.Allocator),
		pq.WithStats(!o.DisableStatistics),
		pq.WithCompression(o.Compression.codec()),
		pq.WithDictionaryDefault(false),
	}
	if o.Version == V1 {
		props = append(props, pq.WithVersion(pq.V1_0), pq.WithDataPageVersion(pq.DataPageV1))
	} else {
		props = append(props, pq.WithVersion(pq.V2_LATEST), pq.WithDataPageVersion(pq.DataPageV2))
	}
	for _, f := range schema.Fields() {
		props = append(props, pq.WithEncodingPath(pq.ColumnPath{f.Name}, EncodingFor(f.Type)))
	}
	return pq.NewWriterProperties(props...)
}
