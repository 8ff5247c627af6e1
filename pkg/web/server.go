// Package web serves the studio page, its WebSocket and the download API.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/beautifulqr/qrgen/pkg/ads"
	"github.com/beautifulqr/qrgen/pkg/bus"
	"github.com/beautifulqr/qrgen/pkg/config"
	"github.com/beautifulqr/qrgen/pkg/logger"
	"github.com/beautifulqr/qrgen/pkg/qrcode"
	"github.com/beautifulqr/qrgen/pkg/session"
)

//go:embed frontend
var frontendFS embed.FS

type Server struct {
	cfg        *config.Config
	sessions   *session.Manager
	encoder    qrcode.Encoder
	ads        *ads.Injector
	msgBus     *bus.MessageBus
	hub        *Hub
	pages      *template.Template
	httpServer *http.Server
	startTime  time.Time
}

func NewServer(cfg *config.Config, sessions *session.Manager, encoder qrcode.Encoder, msgBus *bus.MessageBus) (*Server, error) {
	pages, err := template.ParseFS(frontendFS, "frontend/templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		sessions:  sessions,
		encoder:   encoder,
		ads:       ads.New(cfg.Ads),
		msgBus:    msgBus,
		pages:     pages,
		startTime: time.Now(),
	}
	s.hub = NewHub(sessions, msgBus, s.originAllowed)
	return s, nil
}

// Handler builds the full route table.
func (s *Server) Handler() (http.Handler, error) {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/privacy", s.handlePrivacy).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.hub.handleWebSocket)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/sessions/{id}/download/{format:png|svg}", s.handleDownload).Methods(http.MethodGet)
	api.HandleFunc("/qr.{format:png|svg}", s.handleRender).Methods(http.MethodGet)

	if s.cfg.Metrics.Enabled {
		r.Handle(s.cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
	}

	static, err := fs.Sub(frontendFS, "frontend/static")
	if err != nil {
		return nil, fmt.Errorf("failed to create static sub-filesystem: %w", err)
	}
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	return s.logMiddleware(s.corsMiddleware(r)), nil
}

func (s *Server) Start(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}
	go s.hub.Run(ctx)

	addr := s.cfg.Addr()
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	go func() {
		logger.InfoCF("web", "Server started", map[string]interface{}{
			"address": addr,
			"ads":     s.ads.Enabled(),
		})
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.ErrorCF("web", "Server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	return nil
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.shutdown(ctx)
}

func (s *Server) shutdown(ctx context.Context) {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			logger.ErrorCF("web", "Server shutdown failed", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			logger.InfoC("web", "Server stopped")
		}
	}
	s.sessions.CloseAll()
}
