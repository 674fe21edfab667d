// Package server exposes builder sessions to browser clients over a
// websocket, plus a few plain HTTP endpoints for decklists and charts.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/magefree/mage-deckbuilder-go/internal/builder"
	"github.com/magefree/mage-deckbuilder-go/internal/chart"
	"github.com/magefree/mage-deckbuilder-go/internal/config"
	"github.com/magefree/mage-deckbuilder-go/internal/deck"
	"github.com/magefree/mage-deckbuilder-go/internal/replay"
)

// Server owns the hub and the HTTP listener.
type Server struct {
	cfg     config.ServerConfig
	manager *builder.Manager
	hub     *Hub
	logger  *zap.Logger
}

// New creates a server. recorder may be nil.
func New(cfg config.ServerConfig, manager *builder.Manager, recorder *replay.Recorder, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:     cfg,
		manager: manager,
		hub:     NewHub(cfg, manager, recorder, logger.Named("hub")),
		logger:  logger,
	}
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.hub.ServeWs)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /sessions/{id}/export", s.handleExport)
	mux.HandleFunc("GET /sessions/{id}/chart", s.handleChart)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": s.manager.Count(),
		"clients":  s.hub.ClientCount(),
	})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*builder.Session, bool) {
	session, err := s.manager.GetSession(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return nil, false
	}
	return session, true
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	format := deck.ExportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = deck.FormatArena
	}
	text, err := session.Export(&deck.ExportOptions{Format: format, IncludeHeaders: true})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text))
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	cfg := chart.DefaultConfig()
	if title := r.URL.Query().Get("title"); title != "" {
		cfg.Title = title
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := chart.Render(w, session.Stats(), cfg); err != nil {
		s.logger.Error("chart render failed", zap.String("session_id", session.ID), zap.Error(err))
	}
}

// ListenAndServe runs the hub and serves HTTP until ctx is done, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.cfg.WebSocket.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		s.hub.Run()
	}()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting websocket server", zap.String("address", lis.Addr().String()))
		errCh <- httpServer.Serve(lis)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown", zap.Error(err))
	}
	s.hub.Stop()
	<-hubDone

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	return nil
}
