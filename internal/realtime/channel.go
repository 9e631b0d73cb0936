// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

package realtime

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mediaserver-tools/kioskbridge/internal/logging"
	"github.com/mediaserver-tools/kioskbridge/internal/metrics"
	"github.com/mediaserver-tools/kioskbridge/internal/models"
	"github.com/mediaserver-tools/kioskbridge/internal/notify"
)

const (
	handshakeTimeout  = 10 * time.Second
	readTimeout       = 60 * time.Second
	writeTimeout      = 10 * time.Second
	pingInterval      = 30 * time.Second
	initialReconnect  = 1 * time.Second
	maxReconnectDelay = 32 * time.Second
)

// Channel is the WebSocket client for the general event bus. At most one
// live connection exists per Channel; the connection is recreated
// transparently on transport error, forever, with exponential backoff.
//
// Every transition to the open state replays the three hello messages with
// the identity's then-current values.
type Channel struct {
	name     string
	endpoint string
	identity *Identity
	dispatch func(frame []byte)
	notifier notify.Notifier
	metrics  *metrics.Metrics

	// pingEvery must stay well under readTimeout: the pings are what keep
	// the read deadline moving on a quiet connection.
	pingEvery time.Duration

	mu    sync.RWMutex
	conn  *websocket.Conn
	state ReadyState
}

// NewChannel creates a channel for the given ws:// or http:// endpoint.
// HTTP schemes are converted to their WebSocket equivalents.
func NewChannel(name, endpoint string, identity *Identity, dispatcher *Dispatcher, notifier notify.Notifier, m *metrics.Metrics) *Channel {
	return &Channel{
		name:      name,
		endpoint:  endpoint,
		identity:  identity,
		dispatch:  dispatcher.Dispatch,
		notifier:  notifier,
		metrics:   m,
		pingEvery: pingInterval,
		state:     StateClosed,
	}
}

// ReadyState returns the current connection state.
func (c *Channel) ReadyState() ReadyState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Channel) setState(s ReadyState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.metrics.ReadyState.WithLabelValues(c.name).Set(float64(s))
}

// Send serializes and transmits a message when the channel is open.
// Otherwise it is a no-op: messages are fire and forget, never queued, and
// callers do not receive an error.
func (c *Channel) Send(msg models.Message) {
	c.mu.RLock()
	conn, state := c.conn, c.state
	c.mu.RUnlock()

	if state != StateOpen || conn == nil {
		return
	}

	frame, err := msg.Encode()
	if err != nil {
		return
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		logging.Debug().Str("channel", c.name).Err(err).Msg("send failed, dropping message")
	}
}

// UpdateToken stores a new auth token and, when open, re-sends the token
// hello immediately so the server sees the change without a reconnect.
func (c *Channel) UpdateToken(token string) {
	c.identity.SetToken(token)
	c.Send(models.NewMessage(models.ActionToken, token))
}

// UpdateSubscription stores a new topic filter and re-sends the subscribe
// hello when open.
func (c *Channel) UpdateSubscription(topic string) {
	c.identity.SetTopic(topic)
	c.Send(models.NewMessage(models.ActionSubscribe, topic))
}

// Serve runs the connect/read/reconnect loop until the context is canceled.
// It implements suture.Service.
func (c *Channel) Serve(ctx context.Context) error {
	delay := initialReconnect

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		default:
		}

		if err := c.connect(ctx); err != nil {
			c.metrics.Reconnects.WithLabelValues(c.name).Inc()
			c.notifier.Persist(notify.IDServerUnreachable, notify.SeverityError,
				"Connection", "server unreachable")
			logging.Warn().
				Str("channel", c.name).
				Dur("retry_in", delay).
				Err(err).
				Msg("channel connect failed")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				c.shutdown()
				return ctx.Err()
			}
			delay *= 2
			if delay > maxReconnectDelay {
				delay = maxReconnectDelay
			}
			continue
		}

		delay = initialReconnect
		c.readLoop(ctx)

		if ctx.Err() != nil {
			c.shutdown()
			return ctx.Err()
		}
	}
}

// connect dials the endpoint, moves the channel to open, and replays the
// hello messages.
func (c *Channel) connect(ctx context.Context) error {
	c.setState(StateConnecting)

	wsURL, err := websocketURL(c.endpoint)
	if err != nil {
		c.setState(StateClosed)
		return fmt.Errorf("build websocket url: %w", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout:  handshakeTimeout,
		EnableCompression: true,
	}
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if resp != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		c.setState(StateClosed)
		if resp != nil {
			return fmt.Errorf("websocket dial (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.state = StateOpen
	c.mu.Unlock()
	c.metrics.ReadyState.WithLabelValues(c.name).Set(float64(StateOpen))

	c.replayHellos()
	c.notifier.Resolve(notify.IDServerUnreachable)
	logging.Info().Str("channel", c.name).Msg("channel open")
	return nil
}

// replayHellos sends the three idempotent hello messages with the
// identity's current values. Called exactly once per transition to open.
func (c *Channel) replayHellos() {
	c.Send(models.NewMessage(models.ActionToken, c.identity.Token()))
	c.Send(models.NewMessage(models.ActionSubscribe, c.identity.Topic()))
	c.Send(models.NewMessage(models.ActionUUID, c.identity.UUID()))
	c.metrics.HelloReplays.WithLabelValues(c.name).Inc()
}

// readLoop dispatches frames until the connection drops. A keepalive ping
// runs alongside it: without traffic the read deadline would expire and
// tear down a healthy but quiet connection.
func (c *Channel) readLoop(ctx context.Context) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return
	}

	// Pongs are consumed inside ReadMessage, so the handler is the only
	// place the deadline can be extended for them.
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	stop := make(chan struct{})
	defer close(stop)
	go c.pingLoop(conn, stop)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			break
		}
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Warn().Str("channel", c.name).Err(err).Msg("channel read error")
			}
			break
		}
		c.dispatch(frame)
	}

	c.closeConn()
	if ctx.Err() == nil {
		c.notifier.Persist(notify.IDServerUnreachable, notify.SeverityError,
			"Connection", "server unreachable")
	}
}

// pingLoop sends a WebSocket ping at every interval until the read loop
// exits or a write fails. WriteControl is safe to call concurrently with
// the data writes in Send.
func (c *Channel) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(c.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				logging.Debug().Str("channel", c.name).Err(err).Msg("keepalive ping failed")
				return
			}
		}
	}
}

// closeConn tears down the connection and marks the channel closed.
func (c *Channel) closeConn() {
	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = c.conn.Close()
		c.conn = nil
	}
	c.state = StateClosed
	c.mu.Unlock()
	c.metrics.ReadyState.WithLabelValues(c.name).Set(float64(StateClosed))
}

// shutdown closes the connection for good during service stop.
func (c *Channel) shutdown() {
	c.setState(StateClosing)
	c.closeConn()
	logging.Info().Str("channel", c.name).Msg("channel stopped")
}

// String implements fmt.Stringer for supervisor logging.
func (c *Channel) String() string {
	return "channel-" + c.name
}

// websocketURL converts an http(s) endpoint to its ws(s) equivalent.
// Endpoints already using a websocket scheme pass through unchanged.
func websocketURL(endpoint string) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	return parsed.String(), nil
}
