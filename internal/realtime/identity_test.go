// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

package realtime

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityGeneratesUUIDWhenEmpty(t *testing.T) {
	a := NewIdentity("main", "")
	b := NewIdentity("main", "")

	assert.NotEmpty(t, a.UUID())
	assert.NotEqual(t, a.UUID(), b.UUID())

	fixed := NewIdentity("main", "kiosk-7")
	assert.Equal(t, "kiosk-7", fixed.UUID())
}

func TestIdentitySetters(t *testing.T) {
	id := NewIdentity("main", "kiosk-7")

	assert.Empty(t, id.Token())
	assert.Equal(t, "main", id.Topic())

	id.SetToken("opaque-session-token")
	id.SetTopic("player")

	assert.Equal(t, "opaque-session-token", id.Token())
	assert.Equal(t, "player", id.Topic())
}

func TestIdentityKeepsExpiredJWT(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)

	id := NewIdentity("main", "kiosk-7")
	id.SetToken(signed)

	// Expiry is the server's call; the client only warns.
	assert.Equal(t, signed, id.Token())
}
