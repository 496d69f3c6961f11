package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/VanDung-dev/tabular/chunk"
	"github.com/VanDung-dev/tabular/datatypes"
	"github.com/VanDung-dev/tabular/dispatch"
)

// schemaCommand prints the schema of each file.
type schemaCommand struct {
	files *[]string
}

func addSchemaCommand(app *kingpin.Application) {
	cmd := &schemaCommand{}
	c := app.Command("schema", "Print the schema and chunk count of files.")
	cmd.files = c.Arg("file", "Arrow IPC or Parquet files").Required().ExistingFiles()
	c.Action(cmd.run)
}

func (cmd *schemaCommand) run(_ *kingpin.ParseContext) error {
	for _, path := range *cmd.files {
		src, format, err := openSource(path, nil)
		if err != nil {
			return err
		}
		printSchema(os.Stdout, path, format, src)
		if err := src.Close(); err != nil {
			return err
		}
	}
	return nil
}

func printSchema(w io.Writer, path, format string, src source) {
	fmt.Fprintf(w, "%s (%s, %d chunks)\n", path, format, src.NumChunks())
	for _, f := range src.Schema().Fields() {
		fmt.Fprintf(w, "\t%s\n", f)
	}
}

// catCommand prints the rows of a file as JSON.
type catCommand struct {
	file  *string
	limit *int
}

func addCatCommand(app *kingpin.Application) {
	cmd := &catCommand{}
	c := app.Command("cat", "Print the rows of a file as JSON, one array per chunk.")
	cmd.file = c.Arg("file", "Arrow IPC or Parquet file").Required().ExistingFile()
	cmd.limit = c.Flag("limit", "Maximum number of chunks to print (0 for all)").Default("0").Int()
	c.Action(cmd.run)
}

func (cmd *catCommand) run(_ *kingpin.ParseContext) error {
	src, _, err := openSource(*cmd.file, nil)
	if err != nil {
		return err
	}
	defer src.Close()
	return printChunks(os.Stdout, src.Schema(), src, *cmd.limit)
}

// chunkIterator is the iteration surface shared by readers and connectors.
type chunkIterator interface {
	Next() bool
	Chunk() *chunk.Chunk
	Err() error
}

func printChunks(w io.Writer, schema *datatypes.Schema, it chunkIterator, limit int) error {
	for n := 0; limit <= 0 || n < limit; n++ {
		if !it.Next() {
			return it.Err()
		}
		out, err := dispatch.ChunkToJSON(it.Chunk(), schema)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s\n", out); err != nil {
			return err
		}
	}
	return nil
}

// convertCommand rewrites a file in another format or with other options.
type convertCommand struct {
	in   *string
	out  *string
	opts sinkOptions
}

func addConvertCommand(app *kingpin.Application) {
	cmd := &convertCommand{}
	c := app.Command("convert", "Convert between Arrow IPC and Parquet.")
	cmd.in = c.Arg("input", "Source file").Required().ExistingFile()
	cmd.out = c.Arg("output", "Destination file").Required().String()
	addSinkFlags(c, &cmd.opts)
	c.Action(cmd.run)
}

func addSinkFlags(c *kingpin.CmdClause, so *sinkOptions) {
	c.Flag("to", "Output format (arrow or parquet); inferred from the extension by default").EnumVar(&so.format, formatArrow, formatParquet)
	c.Flag("compression", "Codec: none, lz4, zstd for arrow; uncompressed, snappy, gzip, zstd for parquet").Default("none").StringVar(&so.compression)
	c.Flag("parquet-v1", "Write Parquet format version 1.0 with V1 data pages").BoolVar(&so.v1)
	c.Flag("no-stats", "Omit Parquet column statistics").BoolVar(&so.noStats)
}

func (cmd *convertCommand) run(_ *kingpin.ParseContext) error {
	src, _, err := openSource(*cmd.in, nil)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := createSink(*cmd.out, src.Schema(), cmd.opts, nil)
	if err != nil {
		return err
	}
	rows, err := copyChunks(dst, src)
	if err = errors.Join(err, dst.Close()); err != nil {
		return err
	}
	logger.Info().Str("input", *cmd.in).Str("output", *cmd.out).Int("rows", rows).Msg("converted")
	return nil
}

// copyChunks writes every chunk of it to dst and returns the row count.
func copyChunks(dst sink, it chunkIterator) (int, error) {
	rows := 0
	for it.Next() {
		if err := dst.Write(it.Chunk()); err != nil {
			return rows, err
		}
		rows += it.Chunk().Len()
	}
	return rows, it.Err()
}
