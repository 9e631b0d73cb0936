// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

// Package supervisor builds the suture tree that keeps every long-running
// component alive: store serve loops, push channels, and the web-control
// server. A crash in one layer restarts that layer without taking down
// the others.
package supervisor

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/mediaserver-tools/kioskbridge/internal/logging"
)

// TreeConfig tunes restart behavior for every supervisor in the tree.
type TreeConfig struct {
	// FailureThreshold is the failure count before entering backoff.
	FailureThreshold float64

	// FailureDecay is how fast failures age out, in seconds.
	FailureDecay float64

	// FailureBackoff is the pause after the threshold is exceeded.
	FailureBackoff time.Duration

	// ShutdownTimeout bounds graceful service shutdown.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig matches suture's documented defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree is the supervisor hierarchy:
//   - stores: serve loops that coalesce refreshes and navigation fetches
//   - transport: the websocket and SSE push channels
//   - control: the local web-control HTTP server
//
// A flapping transport never restarts the stores, so state accumulated
// from earlier pushes survives connection trouble.
type Tree struct {
	root      *suture.Supervisor
	stores    *suture.Supervisor
	transport *suture.Supervisor
	control   *suture.Supervisor
}

// NewTree creates the tree. Zero config fields fall back to defaults.
func NewTree(cfg TreeConfig) *Tree {
	defaults := DefaultTreeConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}
	if cfg.FailureDecay == 0 {
		cfg.FailureDecay = defaults.FailureDecay
	}
	if cfg.FailureBackoff == 0 {
		cfg.FailureBackoff = defaults.FailureBackoff
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}

	// MustHook has a pointer receiver; the handler must be addressable.
	handler := &sutureslog.Handler{Logger: logging.NewSlogLogger()}

	rootSpec := suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}
	childSpec := suture.Spec{
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}

	t := &Tree{
		root:      suture.New("kioskbridge", rootSpec),
		stores:    suture.New("stores", childSpec),
		transport: suture.New("transport", childSpec),
		control:   suture.New("control", childSpec),
	}
	t.root.Add(t.stores)
	t.root.Add(t.transport)
	t.root.Add(t.control)
	return t
}

// AddStore adds a store serve loop to the stores layer.
func (t *Tree) AddStore(svc suture.Service) suture.ServiceToken {
	return t.stores.Add(svc)
}

// AddTransport adds a push channel to the transport layer.
func (t *Tree) AddTransport(svc suture.Service) suture.ServiceToken {
	return t.transport.Add(svc)
}

// AddControl adds the web-control server to the control layer.
func (t *Tree) AddControl(svc suture.Service) suture.ServiceToken {
	return t.control.Add(svc)
}

// Serve runs the tree until ctx is cancelled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine and reports its exit.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that ignored shutdown. Useful when
// diagnosing a hang on exit.
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
