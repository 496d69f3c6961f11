package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/VanDung-dev/tabular/connector"
	"github.com/VanDung-dev/tabular/datatypes"
	"github.com/VanDung-dev/tabular/errs"
	"github.com/VanDung-dev/tabular/gologger"
	"github.com/VanDung-dev/tabular/ipc"
	"github.com/VanDung-dev/tabular/monitoring"
)

// ServerConfig configures a Server.
type ServerConfig struct {
	// Auth enables token authentication
	Auth AuthConfig
	// IdleTimeout closes connections that send no request for this long;
	// zero disables it
	IdleTimeout time.Duration
	// Metrics receives request counters; nil disables them
	Metrics *monitoring.Metrics
	// Logger receives connection and request events; nil disables them
	Logger *zerolog.Logger
}

// DefaultServerConfig returns a config without authentication and a five
// minute idle timeout.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		IdleTimeout: 5 * time.Minute,
	}
}

// Server is a TCP server that serves a Connector.
type Server struct {
	conn    connector.Connector
	auth    *Authenticator
	config  *ServerConfig
	log     *zerolog.Logger
	metrics *monitoring.Metrics

	listener net.Listener
	running  bool
	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	handlers sync.WaitGroup
	quit     chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewServer creates a Server for conn. A nil config uses DefaultServerConfig.
func NewServer(conn connector.Connector, config *ServerConfig) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		conn:    conn,
		auth:    NewAuthenticator(config.Auth),
		config:  config,
		log:     gologger.Nop(config.Logger),
		metrics: config.Metrics,
		conns:   make(map[net.Conn]struct{}),
		quit:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *Server) listen(address string) (net.Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil, fmt.Errorf("server is already running")
	}

	lis, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	s.listener = lis
	s.running = true
	s.log.Info().Str("address", lis.Addr().String()).Bool("auth", s.auth.IsEnabled()).Msg("remote connector listening")
	return lis, nil
}

// Start starts the server on the specified address.
// This method blocks until the server is stopped or fails.
func (s *Server) Start(address string) error {
	lis, err := s.listen(address)
	if err != nil {
		return err
	}
	defer s.Stop()
	s.serve(lis)
	return nil
}

// StartAsync starts the server in a background goroutine.
func (s *Server) StartAsync(address string) error {
	lis, err := s.listen(address)
	if err != nil {
		return err
	}
	go s.serve(lis)
	return nil
}

func (s *Server) serve(lis net.Listener) {
	for {
		conn, err := lis.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				s.log.Warn().Err(err).Msg("failed to accept connection")
				continue
			}
		}
		if !s.track(conn) {
			conn.Close()
			return
		}
		go s.handleConnection(conn)
	}
}

// track registers an accepted connection so Stop can close it. It reports
// false once the server is stopping.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	s.conns[conn] = struct{}{}
	s.handlers.Add(1)
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.handlers.Done()
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop stops accepting connections, cancels requests in flight and closes
// every open client connection. It returns once all handlers have exited.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}

	s.running = false
	close(s.quit)
	s.cancel()
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			s.log.Warn().Err(err).Msg("failed to close listener")
		}
	}
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.handlers.Wait()
}

// handleConnection serves requests from one client until it disconnects.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.untrack(conn)
	defer conn.Close()
	s.metrics.UpdateConnections(1)
	defer s.metrics.UpdateConnections(-1)

	log := s.log.With().Str("remote", conn.RemoteAddr().String()).Logger()
	log.Debug().Msg("connection opened")

	for {
		if s.config.IdleTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.config.IdleTimeout))
		}

		var req Request
		if err := readJSON(conn, &req); err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debug().Err(err).Msg("connection closed")
			}
			return
		}
		conn.SetReadDeadline(time.Time{})

		start := time.Now()
		err := s.handle(conn, &req)
		s.metrics.RecordRequest(req.Op, err, time.Since(start))
		if err != nil {
			log.Debug().Str("op", req.Op).Err(err).Msg("request failed")
			var se *streamError
			if errors.As(err, &se) || errors.Is(err, ErrAuthRequired) || errors.Is(err, ErrAuthTokenMismatch) {
				return
			}
		}
	}
}

// streamError marks a failure that leaves the connection unusable.
type streamError struct {
	err error
}

func (e *streamError) Error() string { return e.err.Error() }
func (e *streamError) Unwrap() error { return e.err }

func broken(err error) error {
	if err == nil {
		return nil
	}
	return &streamError{err}
}

// handle serves one request. Failures reported to the client are returned
// as-is; failures writing to the client are wrapped in streamError.
func (s *Server) handle(conn net.Conn, req *Request) error {
	// The chunk frame of a write is consumed first so that a rejected request
	// leaves nothing unread on the connection.
	var payload []byte
	if req.Op == OpWrite {
		data, err := ReadMessage(conn)
		if err != nil {
			return broken(err)
		}
		payload = data
	}

	if err := s.auth.ValidateToken(req.Token); err != nil {
		return errors.Join(err, broken(writeJSON(conn, failure(err))))
	}

	switch req.Op {
	case OpExecute:
		return s.execute(conn, req)
	case OpWrite:
		return s.write(conn, req, payload)
	}
	err := fmt.Errorf("%w: unknown operation %q", errs.ErrFormat, req.Op)
	return errors.Join(err, broken(writeJSON(conn, failure(err))))
}

func (s *Server) execute(conn net.Conn, req *Request) error {
	it, err := s.conn.Execute(s.ctx, req.Query, req.BatchSize)
	if err != nil {
		return errors.Join(err, broken(writeJSON(conn, failure(err))))
	}
	if it == nil {
		return broken(writeJSON(conn, Response{OK: true}))
	}
	defer it.Close()

	schema := datatypes.NewSchema(it.Fields()...)
	head, err := ipc.EncodeStream(schema)
	if err != nil {
		return errors.Join(err, broken(writeJSON(conn, failure(err))))
	}
	if err := writeJSON(conn, Response{OK: true, Result: true}); err != nil {
		return broken(err)
	}
	if err := WriteMessage(conn, head); err != nil {
		return broken(err)
	}

	rows := 0
	var encErr error
	for it.Next() {
		data, err := ipc.EncodeStream(schema, it.Chunk())
		if err != nil {
			encErr = err
			break
		}
		if err := WriteMessage(conn, data); err != nil {
			return broken(err)
		}
		rows += it.Chunk().Len()
	}
	if err := WriteMessage(conn, nil); err != nil {
		return broken(err)
	}

	trailer := Response{OK: true}
	if err := errors.Join(encErr, it.Err()); err != nil {
		trailer = failure(err)
	}
	if err := writeJSON(conn, trailer); err != nil {
		return broken(err)
	}
	s.log.Debug().Str("query", req.Query).Int("rows", rows).Msg("served query")
	return trailer.Err()
}

func (s *Server) write(conn net.Conn, req *Request, data []byte) error {
	_, c, err := ipc.DecodeChunk(data)
	if err == nil {
		err = s.conn.Write(s.ctx, req.Query, c)
	}
	if err != nil {
		return errors.Join(err, broken(writeJSON(conn, failure(err))))
	}
	return broken(writeJSON(conn, Response{OK: true}))
}
