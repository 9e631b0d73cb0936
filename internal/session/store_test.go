// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediaserver-tools/kioskbridge/internal/logging"
	"github.com/mediaserver-tools/kioskbridge/internal/metrics"
	"github.com/mediaserver-tools/kioskbridge/internal/models"
	"github.com/mediaserver-tools/kioskbridge/internal/notify"
)

//nolint:gochecknoinits // keep test output quiet
func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

// fakeAPI scripts GetSession/Logout responses. When gate is non-nil each
// GetSession blocks until the test sends on it.
type fakeAPI struct {
	mu       sync.Mutex
	snapshot models.SessionSnapshot
	err      error
	gate     chan struct{}

	getCalls    int
	logoutCalls int
	logoutErr   error
}

func (f *fakeAPI) GetSession(ctx context.Context) (models.SessionSnapshot, error) {
	f.mu.Lock()
	f.getCalls++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return models.SessionSnapshot{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.SessionSnapshot{}, f.err
	}
	return f.snapshot, nil
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

func (f *fakeAPI) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeAPI) set(snap models.SessionSnapshot, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot, f.err = snap, err
}

func authenticatedSnapshot(server string) models.SessionSnapshot {
	return models.SessionSnapshot{
		Initialized:  true,
		Authenticate: true,
		ServerName:   server,
		Account: &models.Account{
			User:  models.UserAccount{ID: 7, Username: "kiosk"},
			Group: models.Group{ID: 2, DisplayName: "Users", Permissions: models.PermWebPlayerBrowse},
		},
	}
}

func newTestStore(api *fakeAPI) (*Store, *notify.Center) {
	center := notify.NewCenter(time.Minute)
	return NewStore(api, center, metrics.New(), "KioskBridge"), center
}

func TestRefreshReplacesSnapshotWholesale(t *testing.T) {
	api := &fakeAPI{}
	api.set(authenticatedSnapshot("Living Room"), nil)
	store, _ := newTestStore(api)

	require.NoError(t, store.Refresh(context.Background()))
	assert.Equal(t, "Living Room", store.Snapshot().ServerName)
	assert.True(t, store.HavePermission(models.PermWebPlayerBrowse))

	// Second pull reports an anonymous session; nothing from the first
	// snapshot survives.
	api.set(models.SessionSnapshot{Initialized: true}, nil)
	require.NoError(t, store.Refresh(context.Background()))
	assert.Nil(t, store.Snapshot().Account)
	assert.False(t, store.HavePermission(models.PermWebPlayerBrowse))
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	api := &fakeAPI{}
	api.set(authenticatedSnapshot("Living Room"), nil)
	store, center := newTestStore(api)
	require.NoError(t, store.Refresh(context.Background()))

	api.set(models.SessionSnapshot{}, errors.New("connection refused"))
	require.Error(t, store.Refresh(context.Background()))
	require.Error(t, store.Refresh(context.Background()))

	// Stale snapshot stays visible.
	assert.Equal(t, "Living Room", store.Snapshot().ServerName)

	// Two failures, one deduplicated notice.
	n, ok := center.Get(notify.IDSessionRefresh)
	require.True(t, ok)
	assert.Equal(t, 2, n.Count)

	// Recovery clears the notice and replaces the snapshot.
	api.set(authenticatedSnapshot("Bedroom"), nil)
	require.NoError(t, store.Refresh(context.Background()))
	_, ok = center.Get(notify.IDSessionRefresh)
	assert.False(t, ok)
	assert.Equal(t, "Bedroom", store.Snapshot().ServerName)
}

func TestRefreshMarksSnapshotInitialized(t *testing.T) {
	api := &fakeAPI{}
	// The backend does not set the flag; completing the pull does.
	api.set(models.SessionSnapshot{ServerName: "Living Room"}, nil)
	store, _ := newTestStore(api)

	assert.False(t, store.Snapshot().Initialized)

	require.NoError(t, store.Refresh(context.Background()))
	assert.True(t, store.Snapshot().Initialized)
	assert.True(t, store.Chrome().NavbarVisible)
}

func TestLogoutRefreshesEvenOnFailure(t *testing.T) {
	api := &fakeAPI{logoutErr: errors.New("500 internal server error")}
	api.set(models.SessionSnapshot{Initialized: true}, nil)
	store, _ := newTestStore(api)

	err := store.Logout(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, api.logoutCalls)
	assert.Equal(t, 1, api.getCalls, "refresh must run even when logout fails")
}

func TestRefreshAsyncCoalesces(t *testing.T) {
	api := &fakeAPI{gate: make(chan struct{})}
	api.set(authenticatedSnapshot("Living Room"), nil)
	store, _ := newTestStore(api)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = store.Serve(ctx) }()

	// First trigger starts a fetch that blocks on the gate.
	store.RefreshAsync()
	require.Eventually(t, func() bool { return api.calls() == 1 },
		time.Second, 5*time.Millisecond)

	// A burst arriving mid-fetch collapses into one pending trigger.
	for i := 0; i < 10; i++ {
		store.RefreshAsync()
	}

	api.gate <- struct{}{}
	api.gate <- struct{}{}

	require.Eventually(t, func() bool { return api.calls() == 2 },
		time.Second, 5*time.Millisecond)

	// Nothing left pending: the loop must not fetch again.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, api.calls())
}

func TestChrome(t *testing.T) {
	api := &fakeAPI{}
	store, _ := newTestStore(api)

	// Before the first successful pull: fallback title, no navbar.
	chrome := store.Chrome()
	assert.False(t, chrome.NavbarVisible)
	assert.Equal(t, "KioskBridge", chrome.DocumentTitle)

	api.set(authenticatedSnapshot("Living Room"), nil)
	require.NoError(t, store.Refresh(context.Background()))
	chrome = store.Chrome()
	assert.True(t, chrome.NavbarVisible)
	assert.Equal(t, "Living Room", chrome.DocumentTitle)

	// Player mode takes the full surface: navbar and player never coexist.
	snap := authenticatedSnapshot("Living Room")
	snap.PlayerMode = true
	api.set(snap, nil)
	require.NoError(t, store.Refresh(context.Background()))
	assert.False(t, store.Chrome().NavbarVisible)
}

func TestStatusLine(t *testing.T) {
	store, _ := newTestStore(&fakeAPI{})

	store.SetStatusLine("scanning library 42%")
	assert.Equal(t, "scanning library 42%", store.StatusLine())

	store.SetStatusLine("")
	assert.Empty(t, store.StatusLine())
}

func TestLogLinesBounded(t *testing.T) {
	store, _ := newTestStore(&fakeAPI{})

	for i := 0; i < 25; i++ {
		store.PushLogLine(fmt.Sprintf("line %d", i))
	}

	lines := store.LogLines()
	require.Len(t, lines, 20)
	assert.Equal(t, "line 5", lines[0])
	assert.Equal(t, "line 24", lines[19])
}
