// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

// Package player drives the media browse/play/show surface. Navigation is
// request/response: the store records what the user (or a remote push)
// asked for, fetches the full resulting state from the backend, and never
// patches it incrementally.
package player

import (
	"context"
	"strconv"
	"sync"

	"github.com/mediaserver-tools/kioskbridge/internal/logging"
	"github.com/mediaserver-tools/kioskbridge/internal/models"
	"github.com/mediaserver-tools/kioskbridge/internal/notify"
)

// StateAPI fetches the player state for a navigation request.
type StateAPI interface {
	FetchPlayerState(ctx context.Context, req models.PlayerRequest) (models.PlayerState, error)
}

// MediaControl is the local playback surface remote "player" commands are
// forwarded to. Implementations wrap whatever renders media on this host.
type MediaControl interface {
	Play() error
	Pause() error
	Stop() error
	ToggleMute() error
	SetVolume(percent int) error
	SetPlayID(id string) error
}

// Store owns the current navigation request, its sequence number, and the
// last successfully fetched player state.
type Store struct {
	api      StateAPI
	control  MediaControl
	notifier notify.Notifier

	mu      sync.RWMutex
	request models.PlayerRequest
	state   models.PlayerState
	changed chan struct{}

	fetchCh chan struct{}
}

// NewStore creates a player store. A nil control falls back to a logger
// that accepts every command.
func NewStore(api StateAPI, control MediaControl, notifier notify.Notifier) *Store {
	if control == nil {
		control = LogControl{}
	}
	return &Store{
		api:      api,
		control:  control,
		notifier: notifier,
		changed:  make(chan struct{}),
		fetchCh:  make(chan struct{}, 1),
	}
}

// Request returns the current navigation request.
func (s *Store) Request() models.PlayerRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.request
}

// State returns the last successfully fetched player state.
func (s *Store) State() models.PlayerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Changed returns a channel closed on the next request or state change.
// Callers re-subscribe after each receive.
func (s *Store) Changed() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changed
}

// Browse navigates to a folder. An empty id is the root.
func (s *Store) Browse(id string) { s.setRequest(models.GoalBrowse, id) }

// Play requests playback state for a media id.
func (s *Store) Play(id string) { s.setRequest(models.GoalPlay, id) }

// Show requests the metadata view for a media id.
func (s *Store) Show(id string) { s.setRequest(models.GoalShow, id) }

// setRequest records a new navigation request. The sequence number moves on
// every call, so re-requesting the current id is still a distinct request
// and still triggers a fetch.
func (s *Store) setRequest(goal models.RequestGoal, id string) {
	s.mu.Lock()
	s.request = models.PlayerRequest{
		Goal: goal,
		ID:   id,
		Seq:  s.request.Seq + 1,
	}
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()

	select {
	case s.fetchCh <- struct{}{}:
	default:
	}
}

// Serve fetches player state whenever the request changes, until the
// context is canceled. It implements suture.Service.
func (s *Store) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.fetchCh:
			s.fetch(ctx)
		}
	}
}

// fetch pulls the state for the current request. A stale response (the
// request moved on while the fetch was in flight) is discarded; the
// follow-up trigger already queued covers the newer request.
func (s *Store) fetch(ctx context.Context) {
	req := s.Request()

	state, err := s.api.FetchPlayerState(ctx, req)
	if err != nil {
		s.notifier.Notify("player_request_error", notify.SeverityError,
			"Player", "could not load "+string(req.Goal))
		logging.Warn().
			Str("goal", string(req.Goal)).
			Str("id", req.ID).
			Err(err).
			Msg("player state fetch failed, keeping previous state")
		return
	}

	s.mu.Lock()
	if s.request.Seq != req.Seq {
		s.mu.Unlock()
		return
	}
	s.state = state
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()
}

// String implements fmt.Stringer for supervisor logging.
func (s *Store) String() string {
	return "player-store"
}

// HandleCommand forwards one remote-control command to the local playback
// surface. A rejected command degrades to a one-time warning toast; remote
// parties get no error channel.
func (s *Store) HandleCommand(cmd models.PlayerCommand) {
	var err error
	switch cmd.Request {
	case models.PlayerRequestPlay:
		err = s.control.Play()
	case models.PlayerRequestPause:
		err = s.control.Pause()
	case models.PlayerRequestStop:
		err = s.control.Stop()
	case models.PlayerRequestMute:
		err = s.control.ToggleMute()
	case models.PlayerRequestSetVolume:
		var percent int
		percent, err = strconv.Atoi(cmd.Arg0)
		if err == nil {
			err = s.control.SetVolume(percent)
		}
	case models.PlayerRequestSetPlayID:
		err = s.control.SetPlayID(cmd.Arg0)
	default:
		logging.Debug().Str("request", cmd.Request).Msg("unknown player command, ignoring")
		return
	}

	if err != nil {
		s.notifier.Notify(notify.IDRemotePlayBlocked, notify.SeverityWarning,
			"Player", "remote play only allowed after local interaction")
		logging.Debug().Str("request", cmd.Request).Err(err).Msg("player command rejected")
	}
}

// LogControl is the default MediaControl: it only logs. Useful when the
// kiosk runs without a local renderer attached.
type LogControl struct{}

// Play implements MediaControl.
func (LogControl) Play() error { logControl("play", ""); return nil }

// Pause implements MediaControl.
func (LogControl) Pause() error { logControl("pause", ""); return nil }

// Stop implements MediaControl.
func (LogControl) Stop() error { logControl("stop", ""); return nil }

// ToggleMute implements MediaControl.
func (LogControl) ToggleMute() error { logControl("mute", ""); return nil }

// SetVolume implements MediaControl.
func (LogControl) SetVolume(percent int) error {
	logControl("setvolume", strconv.Itoa(percent))
	return nil
}

// SetPlayID implements MediaControl.
func (LogControl) SetPlayID(id string) error { logControl("setPlayId", id); return nil }

func logControl(request, arg string) {
	logging.Info().Str("request", request).Str("arg", arg).Msg("player command")
}
