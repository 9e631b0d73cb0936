// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

package player

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediaserver-tools/kioskbridge/internal/logging"
	"github.com/mediaserver-tools/kioskbridge/internal/models"
	"github.com/mediaserver-tools/kioskbridge/internal/notify"
)

//nolint:gochecknoinits // keep test output quiet
func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

// fakeStateAPI returns a canned state keyed off the request id. When gate
// is non-nil each fetch blocks until the test sends on it.
type fakeStateAPI struct {
	mu       sync.Mutex
	err      error
	gate     chan struct{}
	started  chan struct{}
	requests []models.PlayerRequest
}

func (f *fakeStateAPI) FetchPlayerState(_ context.Context, req models.PlayerRequest) (models.PlayerState, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	err := f.err
	gate, started := f.gate, f.started
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return models.PlayerState{}, err
	}
	return models.PlayerState{
		Goal:    req.Goal,
		Folders: []models.BrowseFolder{{ID: req.ID, Name: "folder " + req.ID}},
	}, nil
}

func (f *fakeStateAPI) seen() []models.PlayerRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.PlayerRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// fakeControl scripts accept/reject for remote commands.
type fakeControl struct {
	err   error
	calls []string
}

func (f *fakeControl) Play() error       { f.calls = append(f.calls, "play"); return f.err }
func (f *fakeControl) Pause() error      { f.calls = append(f.calls, "pause"); return f.err }
func (f *fakeControl) Stop() error       { f.calls = append(f.calls, "stop"); return f.err }
func (f *fakeControl) ToggleMute() error { f.calls = append(f.calls, "mute"); return f.err }
func (f *fakeControl) SetVolume(percent int) error {
	f.calls = append(f.calls, "setvolume")
	return f.err
}
func (f *fakeControl) SetPlayID(id string) error {
	f.calls = append(f.calls, "setPlayId:"+id)
	return f.err
}

func TestRequestSequenceIsMonotonic(t *testing.T) {
	store := NewStore(&fakeStateAPI{}, nil, notify.NewCenter(time.Minute))

	store.Browse("lib1")
	first := store.Request()
	assert.Equal(t, models.GoalBrowse, first.Goal)
	assert.Equal(t, "lib1", first.ID)

	// Re-requesting the same id is still a new request.
	store.Browse("lib1")
	second := store.Request()
	assert.Equal(t, first.ID, second.ID)
	assert.Greater(t, second.Seq, first.Seq)

	store.Play("media9")
	third := store.Request()
	assert.Equal(t, models.GoalPlay, third.Goal)
	assert.Greater(t, third.Seq, second.Seq)

	store.Show("media9")
	assert.Equal(t, models.GoalShow, store.Request().Goal)
}

func TestServeFetchesStateOnNavigation(t *testing.T) {
	api := &fakeStateAPI{}
	store := NewStore(api, nil, notify.NewCenter(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = store.Serve(ctx) }()

	store.Browse("lib1")

	require.Eventually(t, func() bool {
		state := store.State()
		return state.Goal == models.GoalBrowse && len(state.Folders) == 1
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, "lib1", store.State().Folders[0].ID)
}

func TestFetchFailureKeepsPreviousState(t *testing.T) {
	api := &fakeStateAPI{}
	center := notify.NewCenter(time.Minute)
	store := NewStore(api, nil, center)

	store.Browse("lib1")
	store.fetch(context.Background())
	require.Len(t, store.State().Folders, 1)

	api.mu.Lock()
	api.err = errors.New("502 bad gateway")
	api.mu.Unlock()

	store.Browse("lib2")
	store.fetch(context.Background())

	// Previous state survives; a toast reports the failure.
	assert.Equal(t, "lib1", store.State().Folders[0].ID)
	_, ok := center.Get("player_request_error")
	assert.True(t, ok)
}

func TestStaleFetchResponseDiscarded(t *testing.T) {
	api := &fakeStateAPI{
		gate:    make(chan struct{}),
		started: make(chan struct{}),
	}
	store := NewStore(api, nil, notify.NewCenter(time.Minute))

	store.Browse("old")
	fetchDone := make(chan struct{})
	go func() {
		store.fetch(context.Background())
		close(fetchDone)
	}()
	<-api.started

	// The request moves on while the first fetch is in flight; its
	// response must not clobber the newer request's state.
	store.Browse("new")
	api.gate <- struct{}{}
	<-fetchDone

	assert.Empty(t, store.State().Folders, "stale response applied")

	// The follow-up fetch for the newer request lands normally.
	go store.fetch(context.Background())
	<-api.started
	api.gate <- struct{}{}

	require.Eventually(t, func() bool {
		state := store.State()
		return len(state.Folders) == 1 && state.Folders[0].ID == "new"
	}, time.Second, 5*time.Millisecond)
}

func TestHandleCommandForwardsToControl(t *testing.T) {
	control := &fakeControl{}
	store := NewStore(&fakeStateAPI{}, control, notify.NewCenter(time.Minute))

	store.HandleCommand(models.PlayerCommand{Request: models.PlayerRequestPlay})
	store.HandleCommand(models.PlayerCommand{Request: models.PlayerRequestPause})
	store.HandleCommand(models.PlayerCommand{Request: models.PlayerRequestMute})
	store.HandleCommand(models.PlayerCommand{Request: models.PlayerRequestStop})
	store.HandleCommand(models.PlayerCommand{Request: models.PlayerRequestSetVolume, Arg0: "35"})
	store.HandleCommand(models.PlayerCommand{Request: models.PlayerRequestSetPlayID, Arg0: "media9"})

	assert.Equal(t, []string{"play", "pause", "mute", "stop", "setvolume", "setPlayId:media9"}, control.calls)
}

func TestHandleCommandRejectionRaisesOneToast(t *testing.T) {
	control := &fakeControl{err: errors.New("autoplay blocked")}
	center := notify.NewCenter(time.Minute)
	store := NewStore(&fakeStateAPI{}, control, center)

	store.HandleCommand(models.PlayerCommand{Request: models.PlayerRequestPlay})
	store.HandleCommand(models.PlayerCommand{Request: models.PlayerRequestPlay})

	n, ok := center.Get(notify.IDRemotePlayBlocked)
	require.True(t, ok)
	assert.Equal(t, notify.SeverityWarning, n.Severity)
	assert.Equal(t, "remote play only allowed after local interaction", n.Message)
	assert.Equal(t, 2, n.Count, "repeat rejections update one notice, never stack")
}

func TestHandleCommandUnknownAndBadArgs(t *testing.T) {
	control := &fakeControl{}
	center := notify.NewCenter(time.Minute)
	store := NewStore(&fakeStateAPI{}, control, center)

	// Unknown request: ignored entirely, no toast.
	store.HandleCommand(models.PlayerCommand{Request: "teleport"})
	assert.Empty(t, control.calls)
	assert.Empty(t, center.Active())

	// Non-numeric volume never reaches the control.
	store.HandleCommand(models.PlayerCommand{Request: models.PlayerRequestSetVolume, Arg0: "loud"})
	assert.Empty(t, control.calls)
	_, ok := center.Get(notify.IDRemotePlayBlocked)
	assert.True(t, ok)
}
