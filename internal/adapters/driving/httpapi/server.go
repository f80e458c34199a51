// Package httpapi serves streamed chat completions over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/custodia-labs/tinyrag/internal/core/ports/driving"
	"github.com/custodia-labs/tinyrag/internal/logger"
)

// shutdownTimeout bounds how long Stop waits for open streams.
const shutdownTimeout = 5 * time.Second

// Config holds the server options.
type Config struct {
	// Addr is the listen address, for example 127.0.0.1:7860.
	// Port 0 picks a free port.
	Addr string

	// AssetsDir, when set, is served read-only under /assets/.
	AssetsDir string
}

// Server exposes the chat service on a local HTTP listener.
type Server struct {
	mu       sync.Mutex
	cfg      Config
	chat     driving.ChatService
	server   *http.Server
	listener net.Listener
	errChan  chan error
}

// NewServer creates a server for the chat service.
func NewServer(chat driving.ChatService, cfg Config) *Server {
	return &Server{
		cfg:     cfg,
		chat:    chat,
		errChan: make(chan error, 1),
	}
}

// Handler returns the routes without starting a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("POST /chat_completion", s.handleChatCompletion)
	if s.cfg.AssetsDir != "" {
		mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServer(http.Dir(s.cfg.AssetsDir))))
	}
	return mux
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("server already started")
	}

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	s.listener = listener

	// No write timeout: answers stream for as long as the model generates.
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errChan <- err:
			default:
			}
		}
	}()

	logger.Info("http: listening on %s", listener.Addr())
	return nil
}

// Run starts the server and blocks until ctx is cancelled or serving fails.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-s.errChan:
		_ = s.Stop()
		return err
	}
}

// Stop shuts down the server, waiting briefly for open streams.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.server.Shutdown(ctx)
	s.server = nil
	return err
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.cfg.Addr
	}
	return s.listener.Addr().String()
}
