package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/VanDung-dev/tabular/chunk"
	"github.com/VanDung-dev/tabular/connector"
	"github.com/VanDung-dev/tabular/datatypes"
	"github.com/VanDung-dev/tabular/errs"
	"github.com/VanDung-dev/tabular/gologger"
	"github.com/VanDung-dev/tabular/ipc"
)

var _ connector.Connector = (*Client)(nil)

// ClientConfig configures a Client.
type ClientConfig struct {
	// Token is sent with every request when non-empty
	Token string
	// DialTimeout bounds connection setup; zero means no limit
	DialTimeout time.Duration
	// Logger receives request events; nil disables them
	Logger *zerolog.Logger
}

// Client is a connector.Connector backed by a remote Server. Each request
// uses its own connection.
type Client struct {
	addr   string
	config ClientConfig
	log    *zerolog.Logger
}

// NewClient creates a Client for the server at addr. A nil config sends no
// token.
func NewClient(addr string, config *ClientConfig) *Client {
	var cfg ClientConfig
	if config != nil {
		cfg = *config
	}
	return &Client{addr: addr, config: cfg, log: gologger.Nop(cfg.Logger)}
}

// dial connects to the server. Cancelling ctx interrupts any blocked read or
// write on the returned connection; the returned stop func detaches ctx.
func (c *Client) dial(ctx context.Context) (net.Conn, func() bool, error) {
	d := net.Dialer{Timeout: c.config.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, nil, errs.IO("dial "+c.addr, err)
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})
	return conn, stop, nil
}

func (c *Client) request(op, query string, batchSize int) Request {
	return Request{Op: op, Query: query, BatchSize: batchSize, Token: c.config.Token}
}

// Execute sends query to the server. Statements without a result set return a
// nil Iterator.
func (c *Client) Execute(ctx context.Context, query string, batchSize int) (connector.Iterator, error) {
	conn, stop, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (connector.Iterator, error) {
		stop()
		conn.Close()
		return nil, err
	}

	if err := writeJSON(conn, c.request(OpExecute, query, batchSize)); err != nil {
		return fail(errs.IO("send request", err))
	}
	var resp Response
	if err := readJSON(conn, &resp); err != nil {
		return fail(errs.IO("read response", err))
	}
	if err := resp.Err(); err != nil {
		return fail(fmt.Errorf("execute: %w", err))
	}
	if !resp.Result {
		stop()
		conn.Close()
		return nil, nil
	}

	head, err := ReadMessage(conn)
	if err != nil {
		return fail(errs.IO("read schema", err))
	}
	schema, _, err := ipc.DecodeStream(head)
	if err != nil {
		return fail(err)
	}
	c.log.Debug().Str("query", query).Int("columns", schema.Len()).Msg("remote result set")
	return &remoteIterator{conn: conn, stop: stop, schema: schema}, nil
}

// Write sends c to the server, which runs query once per row.
func (c *Client) Write(ctx context.Context, query string, ch *chunk.Chunk) error {
	data, err := ipc.EncodeStream(chunk.InferSchema(ch), ch)
	if err != nil {
		return err
	}

	conn, stop, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer stop()

	if err := writeJSON(conn, c.request(OpWrite, query, 0)); err != nil {
		return errs.IO("send request", err)
	}
	if err := WriteMessage(conn, data); err != nil {
		return errs.IO("send chunk", err)
	}
	var resp Response
	if err := readJSON(conn, &resp); err != nil {
		return errs.IO("read response", err)
	}
	if err := resp.Err(); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// remoteIterator reads chunk frames until the terminator and trailer.
type remoteIterator struct {
	conn   net.Conn
	stop   func() bool
	schema *datatypes.Schema
	cur    *chunk.Chunk
	err    error
	done   bool
}

func (it *remoteIterator) Fields() []datatypes.Field { return it.schema.Fields() }

func (it *remoteIterator) Next() bool {
	if it.done {
		return false
	}
	data, err := ReadMessage(it.conn)
	if err != nil {
		return it.finish(errs.IO("read chunk", err))
	}
	if len(data) == 0 {
		var trailer Response
		if err := readJSON(it.conn, &trailer); err != nil {
			return it.finish(errs.IO("read trailer", err))
		}
		return it.finish(trailer.Err())
	}
	_, c, err := ipc.DecodeChunk(data)
	if err != nil {
		return it.finish(err)
	}
	it.cur = c
	return true
}

func (it *remoteIterator) finish(err error) bool {
	it.done = true
	it.cur = nil
	it.err = err
	return false
}

func (it *remoteIterator) Chunk() *chunk.Chunk { return it.cur }

func (it *remoteIterator) Err() error { return it.err }

// Close releases the connection. Closing before the last chunk abandons the
// rest of the result set.
func (it *remoteIterator) Close() error {
	if it.conn == nil {
		return nil
	}
	it.done = true
	it.stop()
	err := it.conn.Close()
	it.conn = nil
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return errs.IO("close connection", err)
	}
	return nil
}
