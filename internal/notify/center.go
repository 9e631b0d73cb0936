// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

// Package notify implements the client-side notification center: transient
// titled toasts for request failures and "notify" pushes, plus a persistent
// server-unreachable notice driven by the channel layer.
//
// Notices are deduplicated by id: re-raising an id that is already active
// updates the existing notice instead of stacking a second one. Every
// failure path in the client degrades to a notice here; nothing is fatal.
package notify

import (
	"sync"
	"time"

	"github.com/mediaserver-tools/kioskbridge/internal/logging"
)

// Severity classifies a notice.
type Severity string

// Notice severities. Persistent notices stay active until resolved;
// the rest are transient toasts.
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Well-known notice ids shared across components.
const (
	IDServerUnreachable = "connection_lost"
	IDSessionRefresh    = "session_refresh_error"
	IDRemotePlayBlocked = "remote_play_blocked"
)

// Notice is one active or historical notification.
type Notice struct {
	ID         string    `json:"id"`
	Severity   Severity  `json:"severity"`
	Title      string    `json:"title,omitempty"`
	Message    string    `json:"message"`
	Persistent bool      `json:"persistent"`
	RaisedAt   time.Time `json:"raisedAt"`
	// Count is how many times this id was raised while active.
	Count int `json:"count"`
}

// Notifier is the write side consumed by the stores and channels.
type Notifier interface {
	// Notify raises a transient notice. An empty id derives one from the
	// title so repeated identical failures coalesce.
	Notify(id string, severity Severity, title, message string)
	// Persist raises (or updates) a persistent notice.
	Persist(id string, severity Severity, title, message string)
	// Resolve clears an active notice by id. Unknown ids are ignored.
	Resolve(id string)
}

// Center is the default Notifier. Active notices are observable for the
// web-control surface; transient notices auto-expire on read.
type Center struct {
	mu     sync.Mutex
	active map[string]*Notice
	ttl    time.Duration
	now    func() time.Time
}

// NewCenter creates a notification center. Transient notices expire ttl
// after their last raise; a non-positive ttl defaults to 10 seconds.
func NewCenter(ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Center{
		active: make(map[string]*Notice),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Notify implements Notifier.
func (c *Center) Notify(id string, severity Severity, title, message string) {
	if id == "" {
		id = title
	}
	c.raise(id, severity, title, message, false)
}

// Persist implements Notifier.
func (c *Center) Persist(id string, severity Severity, title, message string) {
	c.raise(id, severity, title, message, true)
}

func (c *Center) raise(id string, severity Severity, title, message string, persistent bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.active[id]; ok {
		// Same id while visible: update in place, never stack.
		n.Severity = severity
		n.Title = title
		n.Message = message
		n.RaisedAt = c.now()
		n.Count++
		return
	}

	c.active[id] = &Notice{
		ID:         id,
		Severity:   severity,
		Title:      title,
		Message:    message,
		Persistent: persistent,
		RaisedAt:   c.now(),
		Count:      1,
	}

	event := logging.Info()
	switch severity {
	case SeverityWarning:
		event = logging.Warn()
	case SeverityError:
		event = logging.Error()
	}
	event.Str("notice_id", id).Str("title", title).Msg(message)
}

// Resolve implements Notifier.
func (c *Center) Resolve(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, id)
}

// Active returns the currently visible notices, expiring stale transient
// ones as a side effect.
func (c *Center) Active() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.ttl)
	out := make([]Notice, 0, len(c.active))
	for id, n := range c.active {
		if !n.Persistent && n.RaisedAt.Before(cutoff) {
			delete(c.active, id)
			continue
		}
		out = append(out, *n)
	}
	return out
}

// Get returns the active notice with the given id, if any.
func (c *Center) Get(id string) (Notice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.active[id]
	if !ok {
		return Notice{}, false
	}
	return *n, true
}
