package ipc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
)

// maxRequestBytes caps a single request line.
const maxRequestBytes = 4 << 20

// Server accepts sessions on a unix socket and answers requests through a
// Handler. Each connection is one session carrying any number of
// newline-delimited requests.
type Server struct {
	socketPath   string
	listener     net.Listener
	handler      *Handler
	logger       *slog.Logger
	wg           sync.WaitGroup
	conns        map[net.Conn]struct{}
	connsMu      sync.Mutex
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new unix socket server at socketPath.
func NewServer(socketPath string, handler *Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = handler.logger
	}
	return &Server{
		socketPath: socketPath,
		handler:    handler,
		logger:     logger,
		conns:      make(map[net.Conn]struct{}),
	}
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	// Remove a stale socket left by a previous host.
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			stopping := s.shuttingDown
			s.shutdownMu.Unlock()
			if stopping || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("IPC accept error", "err", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.ServeConn(conn)
		}()
	}
}

// ServeConn serves one session until the peer disconnects. It closes conn.
func (s *Server) ServeConn(conn net.Conn) {
	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()

	defer func() {
		s.connsMu.Lock()
		delete(s.conns, conn)
		s.connsMu.Unlock()
		conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxRequestBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		respData := append(s.handler.HandleBytes(line), '\n')
		if _, err := conn.Write(respData); err != nil {
			s.logger.Warn("failed to send response", "err", err)
			return
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
		s.logger.Warn("IPC read error", "err", err)
	}
}

// Stop closes the listener and every open session, then waits for handlers to
// return.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	os.Remove(s.socketPath)
}
