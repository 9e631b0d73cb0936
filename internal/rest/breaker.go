// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

package rest

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/mediaserver-tools/kioskbridge/internal/logging"
	"github.com/mediaserver-tools/kioskbridge/internal/models"
)

// Ensure BreakerClient implements API.
var _ API = (*BreakerClient)(nil)

// BreakerClient wraps Client with a circuit breaker so a dead or slow
// server fails requests fast instead of stacking up 30s timeouts. The
// channels keep their own retry loops; only the pull side trips.
type BreakerClient struct {
	client API
	cb     *gobreaker.CircuitBreaker[any]
}

// NewBreakerClient wraps client in a circuit breaker.
// The breaker opens after a 60% failure rate over at least 10 requests,
// stays open for 30 seconds, and allows 3 probes while half-open.
func NewBreakerClient(client API) *BreakerClient {
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "media-server-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
		// Refused requests (4xx) mean the server is healthy enough to say
		// no; only transport failures and 5xx count against the breaker.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			if IsUnreachable(err) {
				return false
			}
			code := StatusCode(err)
			return code > 0 && code < 500
		},
	})

	return &BreakerClient{client: client, cb: cb}
}

func (b *BreakerClient) run(fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

// Ping implements API.
func (b *BreakerClient) Ping(ctx context.Context) error {
	return b.run(func() error { return b.client.Ping(ctx) })
}

// GetSession implements API.
func (b *BreakerClient) GetSession(ctx context.Context) (models.SessionSnapshot, error) {
	var snap models.SessionSnapshot
	err := b.run(func() error {
		var err error
		snap, err = b.client.GetSession(ctx)
		return err
	})
	return snap, err
}

// Logout implements API.
func (b *BreakerClient) Logout(ctx context.Context) error {
	return b.run(func() error { return b.client.Logout(ctx) })
}

// Authenticate implements API.
func (b *BreakerClient) Authenticate(ctx context.Context, username, password string) (string, error) {
	var token string
	err := b.run(func() error {
		var err error
		token, err = b.client.Authenticate(ctx, username, password)
		return err
	})
	return token, err
}

// LocalhostLogin implements API.
func (b *BreakerClient) LocalhostLogin(ctx context.Context) (string, error) {
	var token string
	err := b.run(func() error {
		var err error
		token, err = b.client.LocalhostLogin(ctx)
		return err
	})
	return token, err
}

// GetAccounts implements API.
func (b *BreakerClient) GetAccounts(ctx context.Context) (AccountList, error) {
	var list AccountList
	err := b.run(func() error {
		var err error
		list, err = b.client.GetAccounts(ctx)
		return err
	})
	return list, err
}

// CreateGroup implements API.
func (b *BreakerClient) CreateGroup(ctx context.Context, group models.Group) error {
	return b.run(func() error { return b.client.CreateGroup(ctx, group) })
}

// ModifyGroup implements API.
func (b *BreakerClient) ModifyGroup(ctx context.Context, group models.Group) error {
	return b.run(func() error { return b.client.ModifyGroup(ctx, group) })
}

// DeleteGroup implements API.
func (b *BreakerClient) DeleteGroup(ctx context.Context, id int) error {
	return b.run(func() error { return b.client.DeleteGroup(ctx, id) })
}

// UpdatePermission implements API.
func (b *BreakerClient) UpdatePermission(ctx context.Context, groupID int, permissions models.Permissions) error {
	return b.run(func() error { return b.client.UpdatePermission(ctx, groupID, permissions) })
}

// CreateUser implements API.
func (b *BreakerClient) CreateUser(ctx context.Context, user models.UserAccount) error {
	return b.run(func() error { return b.client.CreateUser(ctx, user) })
}

// ModifyUser implements API.
func (b *BreakerClient) ModifyUser(ctx context.Context, user models.UserAccount) error {
	return b.run(func() error { return b.client.ModifyUser(ctx, user) })
}

// DeleteUser implements API.
func (b *BreakerClient) DeleteUser(ctx context.Context, id int) error {
	return b.run(func() error { return b.client.DeleteUser(ctx, id) })
}

// ChangeLogin implements API.
func (b *BreakerClient) ChangeLogin(ctx context.Context, userID int, username, password string) error {
	return b.run(func() error { return b.client.ChangeLogin(ctx, userID, username, password) })
}

// GetSettings implements API.
func (b *BreakerClient) GetSettings(ctx context.Context) (models.SettingsPatch, error) {
	var settings models.SettingsPatch
	err := b.run(func() error {
		var err error
		settings, err = b.client.GetSettings(ctx)
		return err
	})
	return settings, err
}

// SaveSettings implements API.
func (b *BreakerClient) SaveSettings(ctx context.Context, patch models.SettingsPatch) error {
	return b.run(func() error { return b.client.SaveSettings(ctx, patch) })
}

// GetSharedContent implements API.
func (b *BreakerClient) GetSharedContent(ctx context.Context) ([]models.SharedContentItem, error) {
	var items []models.SharedContentItem
	err := b.run(func() error {
		var err error
		items, err = b.client.GetSharedContent(ctx)
		return err
	})
	return items, err
}

// SaveSharedContent implements API.
func (b *BreakerClient) SaveSharedContent(ctx context.Context, items []models.SharedContentItem) error {
	return b.run(func() error { return b.client.SaveSharedContent(ctx, items) })
}

// FetchPlayerState implements API.
func (b *BreakerClient) FetchPlayerState(ctx context.Context, req models.PlayerRequest) (models.PlayerState, error) {
	var state models.PlayerState
	err := b.run(func() error {
		var err error
		state, err = b.client.FetchPlayerState(ctx, req)
		return err
	})
	return state, err
}

// Restart implements API.
func (b *BreakerClient) Restart(ctx context.Context) error {
	return b.run(func() error { return b.client.Restart(ctx) })
}
