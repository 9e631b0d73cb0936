// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

// Package session owns the authenticated-identity snapshot and the UI
// chrome derived from it. Push messages only invalidate the snapshot; the
// data itself always comes from a pull against the backend, so the store
// can never hold a state the server never produced.
package session

import (
	"context"
	"sync"

	"github.com/mediaserver-tools/kioskbridge/internal/logging"
	"github.com/mediaserver-tools/kioskbridge/internal/metrics"
	"github.com/mediaserver-tools/kioskbridge/internal/models"
	"github.com/mediaserver-tools/kioskbridge/internal/notify"
	"github.com/mediaserver-tools/kioskbridge/internal/queue"
)

// API is the backend surface the store pulls from.
type API interface {
	GetSession(ctx context.Context) (models.SessionSnapshot, error)
	Logout(ctx context.Context) error
}

// Chrome is the top-level UI state derived from the session snapshot. The
// navbar and the player surface are mutually exclusive.
type Chrome struct {
	NavbarVisible bool   `json:"navbarVisible"`
	DocumentTitle string `json:"documentTitle"`
}

// Store holds the current session snapshot plus the session-scoped side
// state: status line, bounded log-line buffer, derived chrome.
type Store struct {
	api      API
	notifier notify.Notifier
	appName  string

	mu         sync.RWMutex
	snapshot   models.SessionSnapshot
	statusLine string
	changed    chan struct{}

	logLines *queue.Ring[string]

	// refreshCh coalesces async refresh triggers: many pushes in a burst
	// cost at most one in-flight fetch plus one follow-up.
	refreshCh chan struct{}
}

// NewStore creates a session store pulling from api. appName is the
// document title fallback before a server name is known.
func NewStore(api API, notifier notify.Notifier, m *metrics.Metrics, appName string) *Store {
	s := &Store{
		api:       api,
		notifier:  notifier,
		appName:   appName,
		changed:   make(chan struct{}),
		logLines:  queue.NewRing[string](queue.DefaultCapacity),
		refreshCh: make(chan struct{}, 1),
	}
	if m != nil {
		s.logLines.OnEvict(func() {
			m.QueueEvictions.WithLabelValues("log_lines").Inc()
		})
	}
	return s
}

// Snapshot returns the current session snapshot.
func (s *Store) Snapshot() models.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Changed returns a channel closed on the next snapshot replacement.
// Callers re-subscribe after each receive.
func (s *Store) Changed() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changed
}

// HavePermission reports whether the current account's group grants every
// bit in mask.
func (s *Store) HavePermission(mask models.Permissions) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.HavePermission(&s.snapshot, mask)
}

// Refresh replaces the snapshot with a fresh pull. On failure the previous
// snapshot stays visible and a single deduplicated notice is raised; the
// caller gets the error for logging but nothing is torn down.
func (s *Store) Refresh(ctx context.Context) error {
	snap, err := s.api.GetSession(ctx)
	if err != nil {
		s.notifier.Notify(notify.IDSessionRefresh, notify.SeverityError,
			"Session", "could not refresh session")
		logging.Warn().Err(err).Msg("session refresh failed, keeping previous snapshot")
		return err
	}

	// Initialized is a client-side marker: it records that the first pull
	// completed, regardless of what the backend put in the snapshot.
	snap.Initialized = true

	s.mu.Lock()
	s.snapshot = snap
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()

	s.notifier.Resolve(notify.IDSessionRefresh)
	logging.Debug().
		Bool("authenticated", snap.Authenticate).
		Bool("player_mode", snap.PlayerMode).
		Str("server", snap.ServerName).
		Msg("session snapshot replaced")
	return nil
}

// RefreshAsync schedules a refresh on the store's service loop. Never
// blocks; triggers arriving while one is pending collapse into it.
func (s *Store) RefreshAsync() {
	select {
	case s.refreshCh <- struct{}{}:
	default:
	}
}

// Logout invalidates the server-side session and then refreshes
// unconditionally, so the store converges on whatever identity the server
// now reports (usually the anonymous one).
func (s *Store) Logout(ctx context.Context) error {
	err := s.api.Logout(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("logout request failed")
	}
	if refreshErr := s.Refresh(ctx); err == nil {
		err = refreshErr
	}
	return err
}

// Serve consumes async refresh triggers until the context is canceled.
// It implements suture.Service.
func (s *Store) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.refreshCh:
			// Errors already produced a notice; the loop keeps going.
			_ = s.Refresh(ctx)
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *Store) String() string {
	return "session-store"
}

// Chrome derives the navbar/document-title state from the snapshot.
func (s *Store) Chrome() Chrome {
	s.mu.RLock()
	defer s.mu.RUnlock()

	title := s.appName
	if s.snapshot.ServerName != "" {
		title = s.snapshot.ServerName
	}
	return Chrome{
		// Player mode takes over the whole surface; the navbar only
		// exists outside it, once the backend reports itself ready.
		NavbarVisible: s.snapshot.Initialized && !s.snapshot.PlayerMode,
		DocumentTitle: title,
	}
}

// SetStatusLine replaces the transient status line shown during long
// server-side operations. An empty line clears it.
func (s *Store) SetStatusLine(line string) {
	s.mu.Lock()
	s.statusLine = line
	s.mu.Unlock()
}

// StatusLine returns the current status line.
func (s *Store) StatusLine() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusLine
}

// PushLogLine appends a streamed server log line to the bounded buffer.
func (s *Store) PushLogLine(line string) {
	s.logLines.Push(line)
}

// LogLines returns the buffered log lines, oldest first.
func (s *Store) LogLines() []string {
	return s.logLines.Snapshot()
}
