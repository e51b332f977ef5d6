package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/luxio/internal/device"
	"github.com/muurk/luxio/internal/events"
	"github.com/muurk/luxio/internal/logging"
	"github.com/muurk/luxio/internal/rpc"
)

// DefaultPort is the port the controller listens on.
const DefaultPort = 80

// Config holds the server configuration
type Config struct {
	Host string
	Port int

	// RequestTimeout bounds the wait for the run loop to answer one
	// request. Zero selects 10 seconds.
	RequestTimeout time.Duration
}

// Addr returns host:port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// Backend is the controller the server exposes.
type Backend interface {
	Execute(ctx context.Context, req rpc.Request) (rpc.Response, error)
	FullState(ctx context.Context) (device.FullState, error)
	Subscribe(ctx context.Context) (string, <-chan events.Event, device.FullState, error)
	Unsubscribe(id string)
}

// Server is the HTTP and WebSocket transport.
type Server struct {
	config  *Config
	backend Backend
	http    *http.Server
	wg      sync.WaitGroup

	mu          sync.Mutex
	listener    net.Listener
	activeConns map[string]*wsClient
}

// New creates a server for backend.
func New(config *Config, backend Backend) *Server {
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 10 * time.Second
	}
	s := &Server{
		config:      config,
		backend:     backend,
		activeConns: make(map[string]*wsClient),
	}
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routes:
//
//	GET  /    full state
//	POST /    RPC request
//	GET  /ws  event stream and RPC
//
// Anything else is answered with 404 {"error":"not_found"}.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleState)
	mux.HandleFunc("POST /{$}", s.handleRPC)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("/", s.handleNotFound)
	return logRequests(mux)
}

// Listen binds the listening socket. Start calls it when needed.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}

	listener, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr(), err)
	}
	s.listener = listener
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start serves until ctx is done, then shuts down.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	logging.Info("Listening", zap.String("addr", s.Addr().String()))

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.http.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops accepting requests, closes the WebSocket clients and
// waits for their goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	err := s.http.Shutdown(ctx)
	if err != nil {
		logging.Error("Error shutting down HTTP server", zap.Error(err))
	}

	s.mu.Lock()
	for addr, c := range s.activeConns {
		logging.Debug("Closing active connection", zap.String("remote_addr", addr))
		_ = c.conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}
	return err
}

// GetActiveConnections returns the number of open WebSocket clients.
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

func (s *Server) track(c *wsClient) {
	s.mu.Lock()
	s.activeConns[c.id] = c
	s.mu.Unlock()
}

func (s *Server) untrack(c *wsClient) {
	s.mu.Lock()
	delete(s.activeConns, c.id)
	s.mu.Unlock()
}
