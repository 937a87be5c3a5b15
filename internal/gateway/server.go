// Package gateway is the persona HTTP server: one chat endpoint with
// buffered, SSE, and WebSocket delivery, plus health.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dwern/persona/internal/agent"
	"github.com/dwern/persona/internal/config"
	"github.com/dwern/persona/internal/logging"
)

// Server hosts the chat API.
type Server struct {
	cfg          config.ServerConfig
	log          *logging.Logger
	orchestrator *agent.Orchestrator
	httpServer   *http.Server
	upgrader     websocket.Upgrader
}

// New creates a gateway server around an orchestrator.
func New(cfg config.ServerConfig, orchestrator *agent.Orchestrator, log *logging.Logger) *Server {
	return &Server{
		cfg:          cfg,
		log:          log.Sub("gateway"),
		orchestrator: orchestrator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkWSOrigin(cfg.AllowedOrigins),
		},
	}
}

// checkWSOrigin validates WebSocket Origin headers against the configured
// allow list. Requests without an Origin header (non-browser clients) pass.
func checkWSOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return isOriginAllowed(origin, allowed)
	}
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/chat/ws", s.handleChatWS)
	return withMiddleware(mux, s.log, s.cfg.AllowedOrigins)
}

// Start listens and serves until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Bind, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		// No WriteTimeout: streamed turns hold the connection open while the
		// provider works. The hosting environment owns the request deadline.
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.log.Info().Str("addr", ln.Addr().String()).Msg("gateway listening")

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down gateway")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
