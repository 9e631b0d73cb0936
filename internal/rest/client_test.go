// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

package rest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediaserver-tools/kioskbridge/internal/logging"
	"github.com/mediaserver-tools/kioskbridge/internal/models"
)

//nolint:gochecknoinits // keep test output quiet
func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

func TestGetSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/session", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{
			"initialized": true,
			"authenticate": true,
			"serverName": "Living Room",
			"account": {
				"user": {"id": 7, "username": "kiosk", "groupId": 2},
				"group": {"id": 2, "displayName": "Users", "permissions": 512}
			}
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, func() string { return "tok-1" })
	snap, err := client.GetSession(context.Background())
	require.NoError(t, err)

	assert.True(t, snap.Authenticate)
	assert.Equal(t, "Living Room", snap.ServerName)
	require.NotNil(t, snap.Account)
	assert.Equal(t, 7, snap.Account.User.ID)
	assert.True(t, snap.Account.Group.Permissions.Has(models.PermWebPlayerBrowse))
}

func TestAccountOperationsCarryDiscriminator(t *testing.T) {
	var ops []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/accounts", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		op, _ := body["operation"].(string)
		ops = append(ops, op)

		switch op {
		case opAuthentication, opLocalhost:
			_, _ = w.Write([]byte(`{"token":"fresh-token"}`))
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	ctx := context.Background()

	token, err := client.Authenticate(ctx, "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)

	token, err = client.LocalhostLogin(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)

	require.NoError(t, client.CreateGroup(ctx, models.Group{DisplayName: "Kids"}))
	require.NoError(t, client.ModifyGroup(ctx, models.Group{ID: 3, DisplayName: "Teens"}))
	require.NoError(t, client.DeleteGroup(ctx, 3))
	require.NoError(t, client.UpdatePermission(ctx, 3, models.PermWebPlayerBrowse))
	require.NoError(t, client.CreateUser(ctx, models.UserAccount{Username: "kid"}))
	require.NoError(t, client.ModifyUser(ctx, models.UserAccount{ID: 9, Username: "kid2"}))
	require.NoError(t, client.DeleteUser(ctx, 9))
	require.NoError(t, client.ChangeLogin(ctx, 9, "kid2", "hunter2"))

	assert.Equal(t, []string{
		opAuthentication, opLocalhost,
		opCreateGroup, opModifyGroup, opDeleteGroup, opUpdatePermission,
		opCreateUser, opModifyUser, opDeleteUser, opChangeLogin,
	}, ops)
}

func TestFetchPlayerStateQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/player", r.URL.Path)
		assert.Equal(t, "browse", r.URL.Query().Get("goal"))
		assert.Equal(t, "lib1", r.URL.Query().Get("id"))
		_, _ = w.Write([]byte(`{
			"goal": "browse",
			"folders": [{"id": "f1", "name": "Movies"}],
			"useWebControl": true
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	state, err := client.FetchPlayerState(context.Background(), models.PlayerRequest{
		Goal: models.GoalBrowse,
		ID:   "lib1",
		Seq:  3,
	})
	require.NoError(t, err)
	assert.True(t, state.UseWebControl)
	require.Len(t, state.Folders, 1)
	assert.Equal(t, "Movies", state.Folders[0].Name)
}

func TestSharedContentRoundTrip(t *testing.T) {
	var saved []models.SharedContentItem
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/sharedcontent", r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`[{"type":"Folder","active":true,"file":"/media/movies"}]`))
		case http.MethodPost:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&saved))
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	items, err := client.GetSharedContent(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.SharedFolder, items[0].Type)

	items[0].Active = false
	require.NoError(t, client.SaveSharedContent(context.Background(), items))
	require.Len(t, saved, 1)
	assert.False(t, saved[0].Active)
}

func TestStatusErrorCarriesCodeAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("permission denied"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	err := client.DeleteGroup(context.Background(), 5)
	require.Error(t, err)

	assert.False(t, IsUnreachable(err))
	assert.Equal(t, http.StatusForbidden, StatusCode(err))
	assert.Contains(t, err.Error(), "permission denied")
}

func TestTransportFailureIsUnreachable(t *testing.T) {
	// Nothing listens here.
	client := NewClient("http://127.0.0.1:1", nil)

	_, err := client.GetSession(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnreachable(err))
	assert.Zero(t, StatusCode(err))
}

func TestNoAuthorizationHeaderWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", nil)
	_, err := client.GetSession(context.Background())
	require.NoError(t, err)
}
