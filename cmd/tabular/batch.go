package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"

	"github.com/VanDung-dev/tabular/pool"
)

// batchCommand converts many files concurrently, one file per worker.
type batchCommand struct {
	files   *[]string
	outDir  *string
	workers *int
	opts    sinkOptions
}

func addBatchCommand(app *kingpin.Application) {
	cmd := &batchCommand{}
	c := app.Command("batch", "Convert many files into a directory in parallel.")
	cmd.files = c.Arg("file", "Arrow IPC or Parquet files").Required().ExistingFiles()
	cmd.outDir = c.Flag("out-dir", "Destination directory").Required().String()
	cmd.workers = c.Flag("workers", "Number of files converted at once").Default("4").Int()
	addSinkFlags(c, &cmd.opts)
	c.Action(cmd.run)
}

func (cmd *batchCommand) run(_ *kingpin.ParseContext) error {
	if cmd.opts.format == "" {
		return errors.New("--to is required for batch")
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(*cmd.outDir, 0o755); err != nil {
		return err
	}
	jobs := make([]pool.Job, len(*cmd.files))
	for i, in := range *cmd.files {
		out := outputPath(*cmd.outDir, in, cmd.opts.format)
		jobs[i] = pool.Job{Name: in, Run: func(ctx context.Context) error {
			return convertFile(ctx, in, out, cmd.opts)
		}}
	}

	results, err := pool.RunAll(ctx, *cmd.workers, jobs)
	for _, res := range results {
		if res.Err == nil {
			logger.Info().Str("input", res.Name).Dur("duration", res.Duration).Msg("converted")
		}
	}
	return err
}

// outputPath maps in to a file of the same base name under dir.
func outputPath(dir, in, format string) string {
	base := filepath.Base(in)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+"."+format)
}

// convertFile copies every chunk of in to out, stopping early when ctx is
// cancelled.
func convertFile(ctx context.Context, in, out string, so sinkOptions) error {
	src, _, err := openSource(in, nil)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := createSink(out, src.Schema(), so, nil)
	if err != nil {
		return err
	}
	for err == nil && src.Next() {
		if err = ctx.Err(); err == nil {
			err = dst.Write(src.Chunk())
		}
	}
	if err == nil {
		err = src.Err()
	}
	return errors.Join(err, dst.Close())
}
