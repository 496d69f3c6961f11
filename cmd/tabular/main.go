// Command tabular inspects, converts and queries columnar files.
package main

import (
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/rs/zerolog"

	"github.com/VanDung-dev/tabular/gologger"
)

// Version information
const (
	Version = "0.1.0"
	Name    = "tabular"
)

var logger zerolog.Logger

func main() {
	logger = gologger.NewLogger()

	app := kingpin.New(Name, "Inspect, convert and query Arrow IPC and Parquet files.")
	app.Version(Version)
	app.HelpFlag.Short('h')

	addSchemaCommand(app)
	addCatCommand(app)
	addConvertCommand(app)
	addBatchCommand(app)
	addQueryCommand(app)
	addServeCommand(app)

	kingpin.MustParse(app.Parse(os.Args[1:]))
}
