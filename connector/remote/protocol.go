// Package remote exposes a connector.Connector over TCP and provides a client
// implementing the same interface.
//
// Every message is a frame of a 4-byte big-endian length followed by the
// payload. A request is a JSON Request frame; a write request is followed by
// one frame holding the chunk as an Arrow IPC stream. The server answers with
// a JSON Response frame. When an execute response reports a result set, the
// server then sends a schema-only IPC stream frame, one IPC stream frame per
// chunk, a zero-length terminator frame and a final JSON Response frame that
// reports whether iteration completed.
package remote

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/goccy/go-json"

	"github.com/VanDung-dev/tabular/errs"
)

// MaxMessageSize is the maximum allowed message size (50MB).
const MaxMessageSize = 50 * 1024 * 1024 // 50MB

// ErrMessageTooLarge is returned when a message exceeds MaxMessageSize.
var ErrMessageTooLarge = errors.New("message size exceeds maximum allowed size")

// ErrRemote marks an error reported by the server.
var ErrRemote = errors.New("remote connector error")

// Request operations
const (
	OpExecute = "execute"
	OpWrite   = "write"
)

// Request is the header frame of every request.
type Request struct {
	Op        string `json:"op"`
	Query     string `json:"query"`
	BatchSize int    `json:"batch_size,omitempty"`
	Token     string `json:"token,omitempty"`
}

// Response answers a request, and closes the chunk frames of a result set.
type Response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	// Kind names the error kind so clients can match it with errors.Is
	Kind string `json:"kind,omitempty"`
	// Result reports whether chunk frames follow an execute response
	Result bool `json:"result,omitempty"`
}

// ReadMessage reads a length-prefixed message from the reader.
// Format: [4 bytes length (BigEndian)] [N bytes payload]
func ReadMessage(r io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, err
	}

	if length > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes (max: %d)", ErrMessageTooLarge, length, MaxMessageSize)
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}

	return buf, nil
}

// WriteMessage writes a length-prefixed message to the writer.
// Format: [4 bytes length (BigEndian)] [N bytes payload]
func WriteMessage(w io.Writer, data []byte) error {
	if len(data) > math.MaxUint32 {
		return fmt.Errorf("%w: data length %d exceeds uint32 max", ErrMessageTooLarge, len(data))
	}
	if len(data) > MaxMessageSize {
		return fmt.Errorf("%w: %d bytes (max: %d)", ErrMessageTooLarge, len(data), MaxMessageSize)
	}

	length := uint32(len(data)) // #nosec G115 - bounds checked above
	if err := binary.Write(w, binary.BigEndian, length); err != nil {
		return fmt.Errorf("failed to write message length: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write message body: %w", err)
	}

	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return WriteMessage(w, data)
}

func readJSON(r io.Reader, v any) error {
	data, err := ReadMessage(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errs.Format("message header", err)
	}
	return nil
}

// kinds lists the error kinds carried across the wire, most specific first.
var kinds = []struct {
	name string
	err  error
}{
	{"length_mismatch", errs.ErrLengthMismatch},
	{"type_mismatch", errs.ErrTypeMismatch},
	{"unsupported_type", errs.ErrUnsupportedType},
	{"unsupported_value", errs.ErrUnsupportedValue},
	{"format", errs.ErrFormat},
	{"io", errs.ErrIO},
	{"capability", errs.ErrCapability},
	{"closed", errs.ErrClosed},
	{"auth_required", ErrAuthRequired},
	{"auth_failed", ErrAuthTokenMismatch},
}

func failure(err error) Response {
	resp := Response{Error: err.Error()}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			resp.Kind = k.name
			break
		}
	}
	return resp
}

// Err returns the error described by a failed response, or nil.
func (r Response) Err() error {
	if r.OK {
		return nil
	}
	for _, k := range kinds {
		if k.name == r.Kind {
			return fmt.Errorf("%w: %w: %s", ErrRemote, k.err, r.Error)
		}
	}
	return fmt.Errorf("%w: %s", ErrRemote, r.Error)
}
