// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

package realtime

import (
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mediaserver-tools/kioskbridge/internal/logging"
)

// Identity holds the current values of the three hello messages. Channels
// read it at replay time so a reconnect always sends the then-current
// values, not ones captured when the channel was created.
type Identity struct {
	mu    sync.RWMutex
	token string
	topic string
	uuid  string
}

// NewIdentity creates an identity with the given subscription topic and a
// fresh client id when clientID is empty.
func NewIdentity(topic, clientID string) *Identity {
	if clientID == "" {
		clientID = uuid.NewString()
	}
	return &Identity{topic: topic, uuid: clientID}
}

// Token returns the current auth token (may be empty).
func (i *Identity) Token() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.token
}

// Topic returns the current subscription filter.
func (i *Identity) Topic() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.topic
}

// UUID returns the client identifier.
func (i *Identity) UUID() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.uuid
}

// SetToken stores a new auth token. When the token parses as a JWT with an
// expiry in the past a warning is logged, but the token is kept: the server
// is the authority on whether it is still acceptable.
func (i *Identity) SetToken(token string) {
	if token != "" && strings.Count(token, ".") == 2 {
		warnIfExpired(token)
	}
	i.mu.Lock()
	i.token = token
	i.mu.Unlock()
}

// SetTopic stores a new subscription filter.
func (i *Identity) SetTopic(topic string) {
	i.mu.Lock()
	i.topic = topic
	i.mu.Unlock()
}

// warnIfExpired does an unverified claims parse to inspect the exp claim.
// Signature verification is the server's job; this is diagnostics only.
func warnIfExpired(token string) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return
	}
	if exp.Before(time.Now()) {
		logging.Warn().
			Time("expired_at", exp.Time).
			Msg("stored auth token is expired, sending anyway")
	}
}
