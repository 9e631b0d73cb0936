// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

// Package serverevents holds the server-pushed operational state that is
// not part of the session: memory stats, scan status, restart eligibility,
// renderer lifecycle events, and change signals for accounts and settings.
//
// Change signals are observer channels rather than latched booleans, so a
// consumer that was busy during the push still sees exactly one wake-up and
// re-pulls once, instead of racing a flag someone else already cleared.
package serverevents

import (
	"sync"

	"github.com/mediaserver-tools/kioskbridge/internal/metrics"
	"github.com/mediaserver-tools/kioskbridge/internal/models"
	"github.com/mediaserver-tools/kioskbridge/internal/queue"
)

// Store is the server event state. All methods are safe for concurrent use;
// writers are the dispatcher, readers are the stores and the web-control
// surface.
type Store struct {
	mu sync.RWMutex

	memory     models.MemoryStats
	scanStatus models.ScanLibraryStatus
	reloadable bool
	lastPatch  models.SettingsPatch

	accountsChanged chan struct{}
	settingsChanged chan struct{}

	renderers *queue.Ring[models.RendererAction]
}

// NewStore creates an empty server event store.
func NewStore(m *metrics.Metrics) *Store {
	s := &Store{
		accountsChanged: make(chan struct{}),
		settingsChanged: make(chan struct{}),
		renderers:       queue.NewRing[models.RendererAction](queue.DefaultCapacity),
	}
	if m != nil {
		s.renderers.OnEvict(func() {
			m.QueueEvictions.WithLabelValues("renderer_actions").Inc()
		})
	}
	return s
}

// SetMemory replaces the memory snapshot wholesale. Fields absent from the
// push already decoded to their zero values; nothing is merged.
func (s *Store) SetMemory(stats models.MemoryStats) {
	s.mu.Lock()
	s.memory = stats
	s.mu.Unlock()
}

// Memory returns the last pushed memory snapshot.
func (s *Store) Memory() models.MemoryStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.memory
}

// SetScanLibraryStatus replaces the library scan state.
func (s *Store) SetScanLibraryStatus(status models.ScanLibraryStatus) {
	s.mu.Lock()
	s.scanStatus = status
	s.mu.Unlock()
}

// ScanLibraryStatus returns the last pushed scan state.
func (s *Store) ScanLibraryStatus() models.ScanLibraryStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanStatus
}

// SetReloadable records whether the backend accepts a restart request.
func (s *Store) SetReloadable(reloadable bool) {
	s.mu.Lock()
	s.reloadable = reloadable
	s.mu.Unlock()
}

// Reloadable reports whether the backend accepts a restart request.
func (s *Store) Reloadable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reloadable
}

// NotifyAccountsChanged wakes every current AccountsChanged subscriber.
// The push carries no payload; subscribers re-pull the account list.
func (s *Store) NotifyAccountsChanged() {
	s.mu.Lock()
	close(s.accountsChanged)
	s.accountsChanged = make(chan struct{})
	s.mu.Unlock()
}

// AccountsChanged returns a channel closed on the next accounts push.
// Callers re-subscribe after each receive.
func (s *Store) AccountsChanged() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountsChanged
}

// SetConfigurationChanged stores the pushed settings patch and wakes every
// current SettingsChanged subscriber.
func (s *Store) SetConfigurationChanged(patch models.SettingsPatch) {
	s.mu.Lock()
	s.lastPatch = patch
	close(s.settingsChanged)
	s.settingsChanged = make(chan struct{})
	s.mu.Unlock()
}

// SettingsChanged returns a channel closed on the next settings push.
func (s *Store) SettingsChanged() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settingsChanged
}

// LastSettingsPatch returns the most recent pushed settings patch, nil
// before the first push.
func (s *Store) LastSettingsPatch() models.SettingsPatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPatch
}

// PushRendererAction queues a renderer lifecycle event. The queue is
// bounded; under a burst the oldest events are dropped first.
func (s *Store) PushRendererAction(action models.RendererAction) {
	s.renderers.Push(action)
}

// RendererActions returns the queued renderer events without consuming
// them, oldest first.
func (s *Store) RendererActions() []models.RendererAction {
	return s.renderers.Snapshot()
}

// PopRendererAction consumes the oldest queued renderer event.
func (s *Store) PopRendererAction() (models.RendererAction, bool) {
	return s.renderers.Pop()
}
