package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	_ "modernc.org/sqlite"

	"github.com/VanDung-dev/tabular/connector"
	"github.com/VanDung-dev/tabular/connector/remote"
	"github.com/VanDung-dev/tabular/datatypes"
	"github.com/VanDung-dev/tabular/monitoring"
)

// queryCommand runs a query and prints or stores the result.
type queryCommand struct {
	query     *string
	driver    *string
	dsn       *string
	connect   *string
	token     *string
	batchSize *int
	out       *string
	opts      sinkOptions
}

func addQueryCommand(app *kingpin.Application) {
	cmd := &queryCommand{}
	c := app.Command("query", "Run a query through a database driver or a remote connector.")
	cmd.query = c.Arg("query", "Query text").Required().String()
	cmd.driver = c.Flag("driver", "database/sql driver (pgx or sqlite)").Default("sqlite").String()
	cmd.dsn = c.Flag("dsn", "Data source name for --driver").String()
	cmd.connect = c.Flag("connect", "Address of a remote connector; overrides --driver").String()
	cmd.token = c.Flag("token", "Auth token for --connect").Envar("TABULAR_AUTH_TOKEN").String()
	cmd.batchSize = c.Flag("batch-size", "Rows per chunk").Default(fmt.Sprint(connector.DefaultBatchSize)).Int()
	cmd.out = c.Flag("out", "Write the result to this file instead of printing it").String()
	addSinkFlags(c, &cmd.opts)
	c.Action(cmd.run)
}

func (cmd *queryCommand) open(ctx context.Context) (connector.Connector, func() error, error) {
	if *cmd.connect != "" {
		client := remote.NewClient(*cmd.connect, &remote.ClientConfig{Token: *cmd.token, Logger: &logger})
		return client, func() error { return nil }, nil
	}
	if *cmd.dsn == "" {
		return nil, nil, errors.New("either --dsn or --connect is required")
	}
	db, err := connector.OpenSQL(ctx, *cmd.driver, *cmd.dsn, &logger)
	if err != nil {
		return nil, nil, err
	}
	return db, db.Close, nil
}

func (cmd *queryCommand) run(_ *kingpin.ParseContext) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, closeConn, err := cmd.open(ctx)
	if err != nil {
		return err
	}
	defer closeConn()

	it, err := conn.Execute(ctx, *cmd.query, *cmd.batchSize)
	if err != nil {
		return err
	}
	if it == nil {
		logger.Info().Msg("statement executed")
		return nil
	}
	defer it.Close()

	schema := datatypes.NewSchema(it.Fields()...)
	if *cmd.out == "" {
		return printChunks(os.Stdout, schema, it, 0)
	}
	dst, err := createSink(*cmd.out, schema, cmd.opts, nil)
	if err != nil {
		return err
	}
	rows, err := copyChunks(dst, it)
	if err = errors.Join(err, dst.Close()); err != nil {
		return err
	}
	logger.Info().Str("output", *cmd.out).Int("rows", rows).Msg("query result written")
	return nil
}

// serveCommand exposes a database through the remote connector protocol.
type serveCommand struct {
	listen      *string
	driver      *string
	dsn         *string
	token       *string
	genToken    *bool
	metricsAddr *string
}

func addServeCommand(app *kingpin.Application) {
	cmd := &serveCommand{}
	c := app.Command("serve", "Serve a database over the remote connector protocol.")
	cmd.listen = c.Flag("listen", "Address to listen on").Default(":50051").String()
	cmd.driver = c.Flag("driver", "database/sql driver (pgx or sqlite)").Default("sqlite").String()
	cmd.dsn = c.Flag("dsn", "Data source name").Required().String()
	cmd.token = c.Flag("token", "Require this auth token").Envar("TABULAR_AUTH_TOKEN").String()
	cmd.genToken = c.Flag("generate-token", "Generate and print a random auth token").Bool()
	cmd.metricsAddr = c.Flag("metrics-addr", "Serve Prometheus metrics on this address").String()
	c.Action(cmd.run)
}

func (cmd *serveCommand) run(_ *kingpin.ParseContext) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := connector.OpenSQL(ctx, *cmd.driver, *cmd.dsn, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	token := *cmd.token
	if *cmd.genToken {
		if token, err = remote.GenerateToken(); err != nil {
			return fmt.Errorf("failed to generate token: %w", err)
		}
		fmt.Println(token)
	}

	reg := prometheus.NewRegistry()
	cfg := remote.DefaultServerConfig()
	cfg.Auth = remote.AuthConfig{Enabled: token != "", Token: token}
	cfg.Metrics = monitoring.NewMetrics(Name, reg)
	cfg.Logger = &logger

	if *cmd.metricsAddr != "" {
		ms := monitoring.NewMetricsServer(*cmd.metricsAddr, reg)
		ms.StartAsync()
		defer ms.Stop()
		logger.Info().Str("address", *cmd.metricsAddr).Msg("metrics server started")
	}

	server := remote.NewServer(db, cfg)
	if err := server.StartAsync(*cmd.listen); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down server")
	server.Stop()
	return nil
}
