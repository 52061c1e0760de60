// Package server exposes the game over HTTP: the chat pipeline (JSON and SSE
// variants), speech synthesis and transcription proxies, and the REST surface
// the table UI uses to manage roster, turns, and the transcript.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/woodwose/tablemuse/internal/game"
	"github.com/woodwose/tablemuse/internal/health"
	"github.com/woodwose/tablemuse/internal/observe"
	"github.com/woodwose/tablemuse/internal/roster"
	"github.com/woodwose/tablemuse/internal/transcript"
	"github.com/woodwose/tablemuse/internal/turn"
	"github.com/woodwose/tablemuse/pkg/provider/stt"
	"github.com/woodwose/tablemuse/pkg/provider/tts"
)

// Deps bundles everything the HTTP surface needs. Director may be nil when no
// chat provider is configured; the chat endpoint then reports misconfiguration.
// TTS and STT may likewise be nil.
type Deps struct {
	Director   *game.Director
	Roster     *roster.Store
	Turns      *turn.Sequencer
	Transcript *transcript.Store
	TTS        tts.Provider
	STT        stt.Provider
	Health     *health.Handler
	Metrics    *observe.Metrics
	Logger     *slog.Logger

	// StartingHealth is the health assigned to characters created without an
	// explicit value. Defaults to [roster.MaxHealth].
	StartingHealth int

	// TLSCert and TLSKey are PEM file paths. When both are set the server
	// serves HTTPS instead of plain HTTP.
	TLSCert string
	TLSKey  string
}

// Server is the HTTP front of one table.
type Server struct {
	srv     *http.Server
	logger  *slog.Logger
	tlsCert string
	tlsKey  string
}

// New builds the router and wraps it in an http.Server listening on addr.
func New(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = observe.DefaultMetrics()
	}
	if deps.Health == nil {
		deps.Health = health.New()
	}
	if deps.StartingHealth < 1 {
		deps.StartingHealth = roster.MaxHealth
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(cors)
	r.Use(observe.Middleware(deps.Metrics))
	r.Use(middleware.Recoverer)

	addRoutes(r, deps)

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger:  deps.Logger,
		tlsCert: deps.TLSCert,
		tlsKey:  deps.TLSKey,
	}
}

// Handler returns the underlying router, for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Run listens and serves until Shutdown. A clean shutdown returns nil.
func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", s.srv.Addr, err)
	}

	if s.tlsCert != "" && s.tlsKey != "" {
		s.logger.Info("https server listening", "addr", s.srv.Addr)
		err = s.srv.ServeTLS(ln, s.tlsCert, s.tlsKey)
	} else {
		s.logger.Info("http server listening", "addr", s.srv.Addr)
		err = s.srv.Serve(ln)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests, bounded to ten seconds.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// cors admits every origin. The UI is a separately-served SPA; the server
// carries no cookies or credentials, so the permissive policy is safe here.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
