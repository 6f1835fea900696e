// Package server streams level generation to WebSocket clients. Each
// connection owns its own generator and ticks it as it streams events.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/levelforge/internal/config"
	"github.com/lawnchairsociety/levelforge/internal/level"
	"github.com/lawnchairsociety/levelforge/internal/logger"
	"github.com/lawnchairsociety/levelforge/internal/storage"
)

// Server accepts WebSocket connections and runs one session per connection.
type Server struct {
	cfg     *config.Config
	catalog *level.Catalog
	store   *storage.Store // nil disables saving

	connLimiter      *ConnLimiter
	rejectionLimiter *RejectionLimiter

	httpServer   *http.Server
	ctx          context.Context
	cancel       context.CancelFunc
	sessions     sync.WaitGroup
	shutdownOnce sync.Once
}

// New creates a server. store may be nil.
func New(cfg *config.Config, catalog *level.Catalog, store *storage.Store) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:              cfg,
		catalog:          catalog,
		store:            store,
		connLimiter:      NewConnLimiter(cfg.Connections),
		rejectionLimiter: NewRejectionLimiter(cfg.RateLimit),
		ctx:              ctx,
		cancel:           cancel,
	}
}

// Handler returns the HTTP handler serving /ws and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocketUpgrade)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return mux
}

// Start listens on address until Shutdown is called.
func (s *Server) Start(address string) error {
	s.httpServer = &http.Server{
		Addr:              address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("WebSocket server listening", "address", address)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// handleWebSocketUpgrade upgrades an HTTP connection to WebSocket.
func (s *Server) handleWebSocketUpgrade(w http.ResponseWriter, r *http.Request) {
	clientIP := getRealIP(r)

	if locked, remaining := s.rejectionLimiter.IsLocked(clientIP); locked {
		logger.Warning("WebSocket connection rejected - client locked out",
			"client_ip", clientIP,
			"remaining", remaining.Round(time.Second))
		http.Error(w, "Too many rejected requests. Please try again later.", http.StatusTooManyRequests)
		return
	}

	if !s.connLimiter.TryAcquire(clientIP) {
		logger.Warning("WebSocket connection rejected - limit exceeded",
			"remote_addr", r.RemoteAddr,
			"client_ip", clientIP)
		http.Error(w, "Too many connections. Please try again later.", http.StatusTooManyRequests)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.WebSocket.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", "error", err)
		s.connLimiter.Release(clientIP)
		return
	}

	s.sessions.Add(1)
	go s.handleWebSocketConnection(wsConn, clientIP)
}

// handleWebSocketConnection runs a session until the client leaves or the
// server shuts down.
func (s *Server) handleWebSocketConnection(wsConn *websocket.Conn, clientIP string) {
	client := NewWebSocketClient(wsConn, s.cfg.WebSocket.MaxMessageSize)
	stop := context.AfterFunc(s.ctx, func() { client.Close() })

	defer func() {
		stop()
		client.Close()
		s.connLimiter.Release(clientIP)
		s.sessions.Done()
	}()

	logger.Info("Client connected", "client_ip", clientIP)
	newSession(s, client, clientIP).run(s.ctx)
	logger.Info("Client disconnected", "client_ip", clientIP)
}

// Shutdown stops accepting connections, closes open sessions and waits for
// them to finish.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.cancel()
		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.httpServer.Shutdown(ctx); err != nil {
				logger.Warning("HTTP shutdown did not complete", "error", err)
			}
		}
		s.sessions.Wait()
		s.rejectionLimiter.Stop()
		logger.Info("Server stopped")
	})
}
