// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

// Package main is the entry point for the KioskBridge client.
//
// KioskBridge keeps a headless client session against a home media server:
// it holds the websocket event bus and the SSE player bus open, mirrors the
// pushed state into local stores, and exposes everything over a small
// web-control HTTP surface for kiosk shells.
//
// # Startup Order
//
//  1. Configuration: Koanf v2 layered sources (env over YAML over defaults)
//  2. Logging: zerolog, JSON by default
//  3. Preference store: BadgerDB, with encrypted session-token persistence
//  4. REST client: circuit-breaker wrapped unless disabled
//  5. Stores: session, server events, player, accounts
//  6. Push channels: websocket event bus, SSE player bus
//  7. Supervisor tree: everything long-running runs under suture
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context; the supervisor then shuts
// every service down within the configured timeout.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/mediaserver-tools/kioskbridge/internal/accounts"
	"github.com/mediaserver-tools/kioskbridge/internal/config"
	"github.com/mediaserver-tools/kioskbridge/internal/logging"
	"github.com/mediaserver-tools/kioskbridge/internal/metrics"
	"github.com/mediaserver-tools/kioskbridge/internal/notify"
	"github.com/mediaserver-tools/kioskbridge/internal/player"
	"github.com/mediaserver-tools/kioskbridge/internal/prefs"
	"github.com/mediaserver-tools/kioskbridge/internal/realtime"
	"github.com/mediaserver-tools/kioskbridge/internal/rest"
	"github.com/mediaserver-tools/kioskbridge/internal/serverevents"
	"github.com/mediaserver-tools/kioskbridge/internal/session"
	"github.com/mediaserver-tools/kioskbridge/internal/supervisor"
	"github.com/mediaserver-tools/kioskbridge/internal/webcontrol"
)

// noticeTTL is how long transient toasts stay active.
const noticeTTL = 30 * time.Second

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("startup failed")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("server", cfg.Server.URL).
		Str("events", cfg.EventsURL()).
		Str("player", cfg.PlayerURL()).
		Msg("kioskbridge starting")

	prefStore, err := prefs.Open(cfg.Prefs.Path, cfg.Client.Secret)
	if err != nil {
		return fmt.Errorf("open preference store: %w", err)
	}
	defer func() { _ = prefStore.Close() }()

	identity := realtime.NewIdentity(cfg.Channels.Topic, clientID(cfg, prefStore))
	if cfg.Client.Secret != "" {
		token, err := prefStore.LoadToken()
		if err != nil {
			return fmt.Errorf("load persisted token: %w", err)
		}
		if token != "" {
			identity.SetToken(token)
			logging.Info().Msg("restored persisted session token")
		}
	}

	var backend rest.API = rest.NewClient(cfg.Server.URL, identity.Token)
	if cfg.Server.Breaker {
		backend = rest.NewBreakerClient(backend)
	}

	m := metrics.New()
	center := notify.NewCenter(noticeTTL)

	sessions := session.NewStore(backend, center, m, cfg.Client.AppName)
	events := serverevents.NewStore(m)
	players := player.NewStore(backend, nil, center)
	manager := accounts.NewManager(backend, events, center)

	dispatcher := realtime.NewDispatcher(sessions, events, players, center, m)
	playerDispatcher := realtime.NewDispatcher(nil, nil, players, center, m)

	eventChannel := realtime.NewChannel("general", cfg.EventsURL(), identity, dispatcher, center, m)
	playerChannel := realtime.NewSSEChannel("player", cfg.PlayerURL(), identity, playerDispatcher, center, m)

	tree := supervisor.NewTree(supervisor.TreeConfig{})
	tree.AddStore(sessions)
	tree.AddStore(players)
	tree.AddStore(manager)
	tree.AddTransport(eventChannel)
	tree.AddTransport(playerChannel)

	if cfg.WebControl.Enabled {
		sink := tokenSink(eventChannel, prefStore, cfg.Client.Secret)
		control := webcontrol.New(
			cfg.WebControl,
			sessions,
			events,
			players,
			center,
			prefStore,
			backend,
			sink,
			m,
			eventChannel,
			playerChannel,
		)
		tree.AddControl(control)
	}

	// Prime the session before the channels deliver anything.
	sessions.RefreshAsync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("service did not stop in time")
	}

	logging.Info().Msg("kioskbridge stopped")
	return nil
}

// clientID resolves the stable per-kiosk client identifier: explicit config
// wins, then the persisted one, otherwise a fresh UUID is generated and
// persisted so the identity survives restarts.
func clientID(cfg *config.Config, store *prefs.Store) string {
	if cfg.Channels.ClientID != "" {
		return cfg.Channels.ClientID
	}

	id, ok, err := store.Get(prefs.KeyPlayerClientID)
	if err == nil && ok && id != "" {
		return id
	}
	if err != nil {
		logging.Warn().Err(err).Msg("reading persisted client id failed")
	}

	id = uuid.NewString()
	if err := store.Set(prefs.KeyPlayerClientID, id); err != nil {
		logging.Warn().Err(err).Msg("persisting client id failed")
	}
	return id
}

// tokenSink propagates a token change from a web-control login or logout:
// UpdateToken writes through to the shared identity and re-sends the token
// hello when open, and the token is persisted (or cleared) when a secret
// is configured. The SSE channel picks the token up on its next reconnect.
func tokenSink(ch *realtime.Channel, store *prefs.Store, secret string) webcontrol.TokenSink {
	return func(token string) {
		ch.UpdateToken(token)

		if secret == "" {
			return
		}
		if err := store.SaveToken(token); err != nil {
			logging.Warn().Err(err).Msg("persisting session token failed")
		}
	}
}
