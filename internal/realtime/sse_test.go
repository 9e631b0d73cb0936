// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

package realtime

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediaserver-tools/kioskbridge/internal/metrics"
	"github.com/mediaserver-tools/kioskbridge/internal/models"
	"github.com/mediaserver-tools/kioskbridge/internal/notify"
)

func newSSETestChannel(endpoint string, player *fakePlayer) (*SSEChannel, *notify.Center) {
	m := metrics.New()
	center := notify.NewCenter(time.Minute)
	dispatcher := NewDispatcher(nil, nil, player, center, m)
	identity := NewIdentity("", "sse-client-1")
	return NewSSEChannel("player", endpoint, identity, dispatcher, center, m), center
}

func TestSSEChannelStreamsAndDispatches(t *testing.T) {
	gotUUID := make(chan string, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUUID <- r.URL.Query().Get("uuid")

		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)

		fmt.Fprintf(w, "event: ping\ndata: keepalive\n\n")
		fmt.Fprintf(w, ": comment line, ignored\n")
		fmt.Fprintf(w, "event: message\ndata: {\"action\":\"player\",\"data\":{\"request\":\"setvolume\",\"arg0\":\"35\"}}\n\n")
		flusher.Flush()

		// Hold the stream open briefly so the client reads everything.
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	player := &fakePlayer{}
	ch, _ := newSSETestChannel(srv.URL, player)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = ch.Serve(ctx) }()

	select {
	case uuid := <-gotUUID:
		assert.Equal(t, "sse-client-1", uuid)
	case <-time.After(5 * time.Second):
		t.Fatal("stream never connected")
	}

	require.Eventually(t, func() bool {
		return len(player.Commands()) == 1
	}, 5*time.Second, 10*time.Millisecond, "player command never dispatched")

	cmds := player.Commands()
	assert.Equal(t, models.PlayerRequestSetVolume, cmds[0].Request)
	assert.Equal(t, "35", cmds[0].Arg0)
}

func TestSSEPingResetsFailureCounter(t *testing.T) {
	ch, _ := newSSETestChannel("http://127.0.0.1:1", &fakePlayer{})

	for i := 0; i < maxConsecutiveErrors-1; i++ {
		ch.recordFailure()
	}
	assert.False(t, ch.Suspended())

	ch.deliver("ping", "keepalive")

	ch.mu.RLock()
	failures := ch.failures
	ch.mu.RUnlock()
	assert.Zero(t, failures)

	// The reset means another long run of errors is needed to suspend.
	for i := 0; i < maxConsecutiveErrors; i++ {
		ch.recordFailure()
	}
	assert.False(t, ch.Suspended())
}

func TestSSESuspendsPastErrorThreshold(t *testing.T) {
	player := &fakePlayer{}
	ch, center := newSSETestChannel("http://127.0.0.1:1", player)

	for i := 0; i < maxConsecutiveErrors; i++ {
		ch.recordFailure()
	}
	assert.False(t, ch.Suspended(), "threshold is strictly more than %d", maxConsecutiveErrors)
	_, raised := center.Get(notify.IDServerUnreachable)
	assert.False(t, raised)

	ch.recordFailure()
	assert.True(t, ch.Suspended())

	// Suspension surfaces the persistent unreachable notice.
	_, raised = center.Get(notify.IDServerUnreachable)
	assert.True(t, raised)

	// Suspended handling drops events instead of dispatching them.
	ch.deliver("message", `{"action":"player","data":{"request":"pause"}}`)
	assert.Empty(t, player.Commands())

	// A heartbeat lifts the suspension and clears the notice; handling
	// resumes.
	ch.deliver("ping", "keepalive")
	assert.False(t, ch.Suspended())
	_, raised = center.Get(notify.IDServerUnreachable)
	assert.False(t, raised)

	ch.deliver("message", `{"action":"player","data":{"request":"pause"}}`)
	cmds := player.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, models.PlayerRequestPause, cmds[0].Request)
}

func TestSSEStreamNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ch, _ := newSSETestChannel(srv.URL, &fakePlayer{})

	opened, err := ch.stream(context.Background())
	assert.False(t, opened)
	assert.Error(t, err)
	assert.Equal(t, StateClosed, ch.ReadyState())
}

func TestSSEStreamURL(t *testing.T) {
	identity := NewIdentity("", "abc")
	m := metrics.New()
	center := notify.NewCenter(time.Minute)
	d := NewDispatcher(nil, nil, nil, center, m)

	plain := NewSSEChannel("p", "http://host/events", identity, d, center, m)
	assert.Equal(t, "http://host/events?uuid=abc", plain.streamURL())

	withQuery := NewSSEChannel("p", "http://host/events?mode=player", identity, d, center, m)
	assert.Equal(t, "http://host/events?mode=player&uuid=abc", withQuery.streamURL())
}
