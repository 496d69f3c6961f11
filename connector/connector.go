// Package connector defines the contract for external query engines that
// produce and consume chunks, and implements it over database/sql.
package connector

import (
	"context"

	"github.com/VanDung-dev/tabular/chunk"
	"github.com/VanDung-dev/tabular/datatypes"
)

// DefaultBatchSize is the number of rows per chunk when Execute is given a
// non-positive batch size.
const DefaultBatchSize = 1024

// Connector executes queries against an external engine.
type Connector interface {
	// Execute runs query. Statements without a result set return a nil
	// Iterator and a nil error.
	Execute(ctx context.Context, query string, batchSize int) (Iterator, error)
	// Write runs query once per row of c, binding the row's values as
	// positional parameters.
	Write(ctx context.Context, query string, c *chunk.Chunk) error
}

// Iterator is a forward-only sequence of result chunks.
type Iterator interface {
	// Fields describes the columns of every chunk.
	Fields() []datatypes.Field
	Next() bool
	Chunk() *chunk.Chunk
	Err() error
	Close() error
}

// Collect drains it into a slice and closes it.
func Collect(it Iterator) ([]*chunk.Chunk, error) {
	defer it.Close()
	var out []*chunk.Chunk
	for it.Next() {
		out = append(out, it.Chunk())
	}
	return out, it.Err()
}
