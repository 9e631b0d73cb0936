// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

// Package webcontrol exposes a small local HTTP surface so kiosk shells
// and scripts can inspect and steer the client: session status, player
// navigation, preferences, and Prometheus metrics.
package webcontrol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mediaserver-tools/kioskbridge/internal/config"
	"github.com/mediaserver-tools/kioskbridge/internal/logging"
	"github.com/mediaserver-tools/kioskbridge/internal/metrics"
	"github.com/mediaserver-tools/kioskbridge/internal/notify"
	"github.com/mediaserver-tools/kioskbridge/internal/player"
	"github.com/mediaserver-tools/kioskbridge/internal/prefs"
	"github.com/mediaserver-tools/kioskbridge/internal/realtime"
	"github.com/mediaserver-tools/kioskbridge/internal/serverevents"
	"github.com/mediaserver-tools/kioskbridge/internal/session"
)

// ChannelStatus reports the connection state of one push channel. Both
// realtime channel types satisfy it.
type ChannelStatus interface {
	fmt.Stringer
	ReadyState() realtime.ReadyState
}

// Backend is the slice of the REST client the control surface calls
// directly: login flows and the restart operation.
type Backend interface {
	Restart(ctx context.Context) error
	Authenticate(ctx context.Context, username, password string) (string, error)
	LocalhostLogin(ctx context.Context) (string, error)
}

// TokenSink receives the session token after a successful login, and an
// empty string after logout. Main uses it to update the push channel
// identity and the persisted token.
type TokenSink func(token string)

// Server is the local web-control HTTP server.
type Server struct {
	cfg      config.WebControlConfig
	session  *session.Store
	events   *serverevents.Store
	player   *player.Store
	notices  *notify.Center
	prefs    *prefs.Store
	backend  Backend
	sink     TokenSink
	metrics  *metrics.Metrics
	channels []ChannelStatus
}

// New assembles the server. prefs may be nil when no preference store is
// configured; the prefs endpoints then answer 503. sink may be nil when
// nothing needs to observe token changes.
func New(
	cfg config.WebControlConfig,
	sessionStore *session.Store,
	eventStore *serverevents.Store,
	playerStore *player.Store,
	notices *notify.Center,
	prefStore *prefs.Store,
	backend Backend,
	sink TokenSink,
	m *metrics.Metrics,
	channels ...ChannelStatus,
) *Server {
	return &Server{
		cfg:      cfg,
		session:  sessionStore,
		events:   eventStore,
		player:   playerStore,
		notices:  notices,
		prefs:    prefStore,
		backend:  backend,
		sink:     sink,
		metrics:  m,
		channels: channels,
	}
}

// Handler builds the chi router for the control surface.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))
	r.Use(httprate.LimitByIP(s.cfg.RateLimitReqs, s.cfg.RateLimitWindow))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/control", s.handleControl)
		r.Get("/notices", s.handleNotices)
		r.Get("/renderers", s.handleRenderers)
		r.Get("/grid/move", s.handleGridMove)

		r.Route("/prefs", func(r chi.Router) {
			r.Get("/", s.handlePrefsList)
			r.Get("/{key}", s.handlePrefGet)
			r.Put("/{key}", s.handlePrefPut)
			r.Delete("/{key}", s.handlePrefDelete)
		})
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
		s.metrics.Registry,
		promhttp.HandlerOpts{},
	))

	return r
}

// Serve runs the HTTP server until ctx is cancelled. It satisfies
// suture.Service.
func (s *Server) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", addr).Msg("web control listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("web control shutdown")
		}
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web control server: %w", err)
	}
}

// String names the service in supervisor logs.
func (s *Server) String() string {
	return "webcontrol"
}
