// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyDeduplicatesByID(t *testing.T) {
	c := NewCenter(time.Minute)

	c.Notify(IDSessionRefresh, SeverityError, "Error", "session refresh failed")
	c.Notify(IDSessionRefresh, SeverityError, "Error", "session refresh failed")

	active := c.Active()
	require.Len(t, active, 1)
	assert.Equal(t, 2, active[0].Count)
}

func TestNotifyUpdatesInPlace(t *testing.T) {
	c := NewCenter(time.Minute)

	c.Notify("toast", SeverityInfo, "First", "first message")
	c.Notify("toast", SeverityWarning, "Second", "second message")

	n, ok := c.Get("toast")
	require.True(t, ok)
	assert.Equal(t, SeverityWarning, n.Severity)
	assert.Equal(t, "second message", n.Message)
	assert.Equal(t, 2, n.Count)
}

func TestPersistentSurvivesExpiry(t *testing.T) {
	c := NewCenter(time.Minute)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Persist(IDServerUnreachable, SeverityError, "Connection", "server unreachable")
	c.Notify("transient", SeverityInfo, "Info", "short lived")

	// Advance past the transient TTL.
	c.now = func() time.Time { return base.Add(2 * time.Minute) }

	active := c.Active()
	require.Len(t, active, 1)
	assert.Equal(t, IDServerUnreachable, active[0].ID)
}

func TestResolveClearsNotice(t *testing.T) {
	c := NewCenter(time.Minute)

	c.Persist(IDServerUnreachable, SeverityError, "Connection", "server unreachable")
	c.Resolve(IDServerUnreachable)

	_, ok := c.Get(IDServerUnreachable)
	assert.False(t, ok)
	assert.Empty(t, c.Active())

	// Resolving an unknown id is a no-op.
	c.Resolve("never-raised")
}

func TestEmptyIDFallsBackToTitle(t *testing.T) {
	c := NewCenter(time.Minute)

	c.Notify("", SeverityError, "Accounts", "save failed")
	c.Notify("", SeverityError, "Accounts", "save failed")

	active := c.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "Accounts", active[0].ID)
}
