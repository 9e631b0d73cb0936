// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

package realtime

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mediaserver-tools/kioskbridge/internal/logging"
	"github.com/mediaserver-tools/kioskbridge/internal/metrics"
	"github.com/mediaserver-tools/kioskbridge/internal/notify"
)

// maxConsecutiveErrors is the delivery-error threshold after which the SSE
// channel logs an unreachable-server condition and suspends event handling.
// The retrying fetch keeps running, so a later successful delivery recovers
// the stream.
const maxConsecutiveErrors = 10

// SSEChannel is the Server-Sent-Events client for the player bus. Unlike
// the WebSocket channel it is receive-only; the player's outbound traffic
// goes over REST.
//
// A heartbeat "ping" event resets the internal failure counter.
type SSEChannel struct {
	name     string
	endpoint string
	identity *Identity
	dispatch func(frame []byte)
	notifier notify.Notifier
	metrics  *metrics.Metrics
	client   *http.Client

	mu        sync.RWMutex
	state     ReadyState
	failures  int
	suspended bool
}

// NewSSEChannel creates an SSE channel for the given http(s) endpoint. The
// client identifier is appended as a query parameter so the server can
// address this subscriber.
func NewSSEChannel(name, endpoint string, identity *Identity, dispatcher *Dispatcher, notifier notify.Notifier, m *metrics.Metrics) *SSEChannel {
	return &SSEChannel{
		name:     name,
		endpoint: endpoint,
		identity: identity,
		dispatch: dispatcher.Dispatch,
		notifier: notifier,
		metrics:  m,
		// No overall timeout: the response body is a long-lived stream.
		client: &http.Client{},
		state:  StateClosed,
	}
}

// ReadyState returns the current stream state.
func (c *SSEChannel) ReadyState() ReadyState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Suspended reports whether event handling is currently suspended after
// crossing the consecutive-error threshold.
func (c *SSEChannel) Suspended() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.suspended
}

func (c *SSEChannel) setState(s ReadyState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.metrics.ReadyState.WithLabelValues(c.name).Set(float64(s))
}

// Serve runs the stream/reconnect loop until the context is canceled.
// It implements suture.Service.
func (c *SSEChannel) Serve(ctx context.Context) error {
	delay := initialReconnect

	for {
		select {
		case <-ctx.Done():
			c.setState(StateClosed)
			return ctx.Err()
		default:
		}

		opened, err := c.stream(ctx)
		if ctx.Err() != nil {
			c.setState(StateClosed)
			return ctx.Err()
		}
		if opened {
			delay = initialReconnect
		}

		c.recordFailure()
		c.metrics.Reconnects.WithLabelValues(c.name).Inc()
		logging.Warn().
			Str("channel", c.name).
			Dur("retry_in", delay).
			Err(err).
			Msg("event stream interrupted")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			c.setState(StateClosed)
			return ctx.Err()
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// stream opens the event source and consumes events until the connection
// drops. The returned bool reports whether the stream reached the open
// state; the error is never nil, since a healthy stream only ends on
// failure or cancellation.
func (c *SSEChannel) stream(ctx context.Context) (bool, error) {
	c.setState(StateConnecting)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.streamURL(), nil)
	if err != nil {
		c.setState(StateClosed)
		return false, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.client.Do(req)
	if err != nil {
		c.setState(StateClosed)
		return false, fmt.Errorf("open event stream: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.setState(StateClosed)
		return false, fmt.Errorf("event stream returned status %d", resp.StatusCode)
	}

	c.setState(StateOpen)
	c.replayHellos(ctx)
	logging.Info().Str("channel", c.name).Msg("event stream open")

	var event, data string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			// Blank line terminates one event.
			c.deliver(event, data)
			event, data = "", ""
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case strings.HasPrefix(line, ":"):
			// Comment/keepalive line, ignored.
		}
	}

	c.setState(StateClosed)
	if err := scanner.Err(); err != nil {
		return true, fmt.Errorf("read event stream: %w", err)
	}
	return true, fmt.Errorf("event stream closed by server")
}

// deliver routes one complete event. Ping heartbeats reset the failure
// counter; everything else is dispatched unless handling is suspended.
func (c *SSEChannel) deliver(event, data string) {
	if event == "ping" {
		c.recordSuccess()
		return
	}
	if data == "" {
		return
	}

	c.mu.RLock()
	suspended := c.suspended
	c.mu.RUnlock()
	if suspended {
		// Threshold crossed earlier: drop events but keep reading so a
		// later ping or message can recover the stream.
		return
	}

	c.dispatch([]byte(data))
	c.recordSuccess()
}

// recordFailure bumps the consecutive-error counter and suspends handling
// past the threshold.
func (c *SSEChannel) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures++
	if c.failures > maxConsecutiveErrors && !c.suspended {
		c.suspended = true
		c.notifier.Persist(notify.IDServerUnreachable, notify.SeverityError,
			"Connection", "server unreachable")
		logging.Error().
			Str("channel", c.name).
			Int("consecutive_errors", c.failures).
			Msg("server unreachable, suspending event handling")
	}
}

// recordSuccess resets the failure counter and lifts any suspension.
func (c *SSEChannel) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.suspended {
		c.notifier.Resolve(notify.IDServerUnreachable)
		logging.Info().Str("channel", c.name).Msg("event stream recovered")
	}
	c.failures = 0
	c.suspended = false
}

// replayHellos reports the client identity to the server over the REST
// side channel the SSE bus cannot carry. The general bus owns the token
// and subscribe hellos; here only the uuid matters and it is part of the
// stream URL, so this just counts the replay for observability.
func (c *SSEChannel) replayHellos(_ context.Context) {
	c.metrics.HelloReplays.WithLabelValues(c.name).Inc()
}

// streamURL appends the client identifier to the endpoint.
func (c *SSEChannel) streamURL() string {
	sep := "?"
	if strings.Contains(c.endpoint, "?") {
		sep = "&"
	}
	return c.endpoint + sep + "uuid=" + c.identity.UUID()
}

// String implements fmt.Stringer for supervisor logging.
func (c *SSEChannel) String() string {
	return "sse-" + c.name
}
