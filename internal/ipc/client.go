package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1broseidon/vdmctl/internal/runtimepath"
)

// DefaultTimeout bounds every exchange with the host.
const DefaultTimeout = 5 * time.Second

// framer moves one encoded request to the host and returns the encoded reply.
type framer interface {
	exchange(req []byte, deadline time.Time) ([]byte, error)
	close() error
}

// Session is an open connection to the driver host. It is not safe for
// concurrent use; callers issue one request at a time.
type Session struct {
	conn    framer
	timeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

// DefaultAddress returns the host socket under the runtime directory.
func DefaultAddress() (string, error) {
	return runtimepath.SocketPath()
}

// Dial opens a session to the host at address. Addresses starting with ws:// or
// wss:// use a websocket; unix:// prefixes and bare paths use a unix socket. An
// empty address resolves to DefaultAddress. A zero timeout means DefaultTimeout.
func Dial(ctx context.Context, address string, timeout time.Duration) (*Session, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if address == "" {
		var err error
		address, err = DefaultAddress()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve host socket path: %w", err)
		}
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch {
	case strings.HasPrefix(address, "ws://"), strings.HasPrefix(address, "wss://"):
		dialer := websocket.Dialer{HandshakeTimeout: timeout}
		conn, _, err := dialer.DialContext(dialCtx, address, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to host at %s: %w", address, err)
		}
		return &Session{conn: &wsFramer{conn: conn}, timeout: timeout}, nil
	default:
		path := strings.TrimPrefix(address, "unix://")
		var d net.Dialer
		conn, err := d.DialContext(dialCtx, "unix", path)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to host: %w (is the driver host running?)", err)
		}
		return NewStreamSession(conn, timeout), nil
	}
}

// NewStreamSession wraps an already connected stream (unix socket, pipe) that
// speaks newline-delimited JSON.
func NewStreamSession(conn net.Conn, timeout time.Duration) *Session {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Session{
		conn:    &streamFramer{conn: conn, reader: bufio.NewReader(conn)},
		timeout: timeout,
	}
}

// Close releases the connection. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.close()
	})
	return s.closeErr
}

// sendRequest sends a request and waits for the matching response
func (s *Session) sendRequest(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	respData, err := s.conn.exchange(reqData, deadline)
	if err != nil {
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("response id %q does not match request id %q", resp.ID, req.ID)
	}

	if resp.Status == StatusError {
		if resp.Code == CodeUnknownIDs {
			var missing DeletePayload
			if err := json.Unmarshal(resp.Data, &missing); err == nil && len(missing.IDs) > 0 {
				return nil, &UnknownIDsError{IDs: missing.IDs}
			}
		}
		return nil, &HostError{Command: req.Command, Code: resp.Code, Message: resp.Error}
	}

	return &resp, nil
}

func (s *Session) call(ctx context.Context, cmd CommandType, payload, out interface{}) error {
	req, err := NewRequest(cmd, payload)
	if err != nil {
		return err
	}
	resp, err := s.sendRequest(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", cmd, err)
	}
	return nil
}

// Query returns every monitor currently registered with the host.
func (s *Session) Query(ctx context.Context) ([]Monitor, error) {
	var data MonitorsData
	if err := s.call(ctx, CommandQuery, nil, &data); err != nil {
		return nil, err
	}
	return data.Monitors, nil
}

// Apply upserts monitors as a single batch.
func (s *Session) Apply(ctx context.Context, monitors []Monitor) error {
	return s.call(ctx, CommandApply, ApplyPayload{Monitors: monitors}, nil)
}

// Delete removes monitors as a single batch. The host rejects the whole batch
// with an UnknownIDsError if any id is missing.
func (s *Session) Delete(ctx context.Context, ids []ID) error {
	return s.call(ctx, CommandDelete, DeletePayload{IDs: ids}, nil)
}

// Clear removes every monitor.
func (s *Session) Clear(ctx context.Context) error {
	return s.call(ctx, CommandClear, nil, nil)
}

// Status retrieves host status.
func (s *Session) Status(ctx context.Context) (*StatusData, error) {
	var status StatusData
	if err := s.call(ctx, CommandStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

type streamFramer struct {
	conn   net.Conn
	reader *bufio.Reader
}

func (f *streamFramer) exchange(req []byte, deadline time.Time) ([]byte, error) {
	if err := f.conn.SetDeadline(deadline); err != nil && !errors.Is(err, net.ErrClosed) {
		return nil, fmt.Errorf("failed to set deadline: %w", err)
	}

	req = append(req, '\n')
	if _, err := f.conn.Write(req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	respData, err := f.reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return respData, nil
}

func (f *streamFramer) close() error {
	return f.conn.Close()
}

type wsFramer struct {
	conn *websocket.Conn
}

func (f *wsFramer) exchange(req []byte, deadline time.Time) ([]byte, error) {
	if err := f.conn.SetWriteDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set deadline: %w", err)
	}
	if err := f.conn.WriteMessage(websocket.TextMessage, req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if err := f.conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set deadline: %w", err)
	}
	_, respData, err := f.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return respData, nil
}

func (f *wsFramer) close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = f.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return f.conn.Close()
}
