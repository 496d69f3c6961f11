package ipc

import (
	"bytes"
	"errors"
	"fmt"

	arrowipc "github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/VanDung-dev/tabular/chunk"
	"github.com/VanDung-dev/tabular/datatypes"
	"github.com/VanDung-dev/tabular/errs"
)

// EncodeStream serializes chunks in the Arrow IPC stream format. The schema
// message is always written, so zero chunks still yield a decodable stream.
// A schema with no Arrow encoding fails with ErrUnsupportedType.
func EncodeStream(schema *datatypes.Schema, chunks ...*chunk.Chunk) ([]byte, error) {
	if err := schema.CheckEncodable(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer

	writer := arrowipc.NewWriter(&buf,
		arrowipc.WithSchema(schema.Arrow()),
		arrowipc.WithAllocator(memory.NewGoAllocator()))
	defer writer.Close()

	for i, c := range chunks {
		rec, err := c.Record(schema)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		err = writer.Write(rec)
		rec.Release()
		if err != nil {
			return nil, fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeStream deserializes an Arrow IPC stream into its schema and chunks.
func DecodeStream(data []byte) (*datatypes.Schema, []*chunk.Chunk, error) {
	reader, err := arrowipc.NewReader(bytes.NewReader(data), arrowipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, nil, errs.Format("arrow stream", err)
	}
	defer reader.Release()

	schema, err := datatypes.SchemaFromArrow(reader.Schema())
	if err != nil {
		return nil, nil, err
	}

	var chunks []*chunk.Chunk
	for reader.Next() {
		c, err := chunk.FromRecord(reader.Record())
		if err != nil {
			return nil, nil, err
		}
		chunks = append(chunks, c)
	}
	if err := reader.Err(); err != nil {
		return nil, nil, errs.Format("arrow stream", err)
	}

	return schema, chunks, nil
}

// ErrNoChunk is returned by DecodeChunk for a stream holding only a schema.
var ErrNoChunk = errors.New("no record batch in stream")

// DecodeChunk deserializes a stream expected to hold exactly one chunk.
func DecodeChunk(data []byte) (*datatypes.Schema, *chunk.Chunk, error) {
	schema, chunks, err := DecodeStream(data)
	if err != nil {
		return nil, nil, err
	}
	if len(chunks) == 0 {
		return nil, nil, fmt.Errorf("%w: %w", errs.ErrFormat, ErrNoChunk)
	}
	if len(chunks) > 1 {
		return nil, nil, fmt.Errorf("%w: expected one record batch, got %d", errs.ErrFormat, len(chunks))
	}
	return schema, chunks[0], nil
}
