// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

/*
client.go - Media server REST API client

This file implements the pull side of the client: session state, account
administration, settings, shared content, and player navigation. The push
channels only ever invalidate; every piece of data the stores hold comes
through here.

Account mutations all post to the same endpoint with an "operation"
discriminator, mirroring the backend's single admin handler.
*/

package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/mediaserver-tools/kioskbridge/internal/models"
)

// API is the backend surface consumed by the stores. Both Client and
// BreakerClient implement it.
type API interface {
	Ping(ctx context.Context) error
	GetSession(ctx context.Context) (models.SessionSnapshot, error)
	Logout(ctx context.Context) error
	Authenticate(ctx context.Context, username, password string) (string, error)
	LocalhostLogin(ctx context.Context) (string, error)

	GetAccounts(ctx context.Context) (AccountList, error)
	CreateGroup(ctx context.Context, group models.Group) error
	ModifyGroup(ctx context.Context, group models.Group) error
	DeleteGroup(ctx context.Context, id int) error
	UpdatePermission(ctx context.Context, groupID int, permissions models.Permissions) error
	CreateUser(ctx context.Context, user models.UserAccount) error
	ModifyUser(ctx context.Context, user models.UserAccount) error
	DeleteUser(ctx context.Context, id int) error
	ChangeLogin(ctx context.Context, userID int, username, password string) error

	GetSettings(ctx context.Context) (models.SettingsPatch, error)
	SaveSettings(ctx context.Context, patch models.SettingsPatch) error
	GetSharedContent(ctx context.Context) ([]models.SharedContentItem, error)
	SaveSharedContent(ctx context.Context, items []models.SharedContentItem) error
	FetchPlayerState(ctx context.Context, req models.PlayerRequest) (models.PlayerState, error)
	Restart(ctx context.Context) error
}

// Ensure Client implements API.
var _ API = (*Client)(nil)

// AccountList is the full administration view: every user and every group.
type AccountList struct {
	Users  []models.UserAccount `json:"users"`
	Groups []models.Group       `json:"groups"`
}

// TokenSource supplies the current session token for request auth. May
// return an empty string before login.
type TokenSource func() string

// Client talks to the media server's REST API.
type Client struct {
	baseURL    string
	token      TokenSource
	httpClient *http.Client
}

// NewClient creates a REST client for the given server base URL
// (e.g. http://localhost:8000). token may be nil for unauthenticated use.
func NewClient(baseURL string, token TokenSource) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Ping checks that the server answers at all.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.doGet(ctx, "/api/ping", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return checkStatus(resp)
}

// GetSession fetches the current session snapshot for this client's token.
func (c *Client) GetSession(ctx context.Context) (models.SessionSnapshot, error) {
	var snap models.SessionSnapshot
	if err := c.getJSON(ctx, "/api/session", nil, &snap); err != nil {
		return models.SessionSnapshot{}, fmt.Errorf("get session: %w", err)
	}
	return snap, nil
}

// Logout invalidates the server-side session for this client's token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.postJSON(ctx, "/api/logout", struct{}{}, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// authResult is the login response.
type authResult struct {
	Token string `json:"token"`
}

// Authenticate exchanges credentials for a session token.
func (c *Client) Authenticate(ctx context.Context, username, password string) (string, error) {
	req := accountRequest{
		Operation: opAuthentication,
		Username:  username,
		Password:  password,
	}
	var res authResult
	if err := c.postJSON(ctx, "/api/accounts", req, &res); err != nil {
		return "", fmt.Errorf("authenticate: %w", err)
	}
	return res.Token, nil
}

// LocalhostLogin claims the implicit localhost admin identity. The server
// only honors it for loopback connections; a remote caller gets a status
// error, never a client-side shortcut.
func (c *Client) LocalhostLogin(ctx context.Context) (string, error) {
	req := accountRequest{Operation: opLocalhost}
	var res authResult
	if err := c.postJSON(ctx, "/api/accounts", req, &res); err != nil {
		return "", fmt.Errorf("localhost login: %w", err)
	}
	return res.Token, nil
}

// Account operation discriminators understood by the backend.
const (
	opCreateGroup      = "creategroup"
	opModifyGroup      = "modifygroup"
	opDeleteGroup      = "deletegroup"
	opUpdatePermission = "updatepermission"
	opCreateUser       = "createuser"
	opModifyUser       = "modifyuser"
	opDeleteUser       = "deleteuser"
	opChangeLogin      = "changelogin"
	opLocalhost        = "localhost"
	opAuthentication   = "authentication"
)

// accountRequest is the tagged union posted to the accounts endpoint.
type accountRequest struct {
	Operation   string              `json:"operation"`
	ID          int                 `json:"id,omitempty"`
	User        *models.UserAccount `json:"user,omitempty"`
	Group       *models.Group       `json:"group,omitempty"`
	Permissions *models.Permissions `json:"permissions,omitempty"`
	Username    string              `json:"username,omitempty"`
	Password    string              `json:"password,omitempty"`
}

// GetAccounts fetches every user and group. Requires the users-manage or
// groups-manage capability server-side.
func (c *Client) GetAccounts(ctx context.Context) (AccountList, error) {
	var list AccountList
	if err := c.getJSON(ctx, "/api/accounts", nil, &list); err != nil {
		return AccountList{}, fmt.Errorf("get accounts: %w", err)
	}
	return list, nil
}

// CreateGroup creates a group. The group id must be the new-entity marker.
func (c *Client) CreateGroup(ctx context.Context, group models.Group) error {
	return c.accountOp(ctx, accountRequest{Operation: opCreateGroup, Group: &group})
}

// ModifyGroup updates a group's display name.
func (c *Client) ModifyGroup(ctx context.Context, group models.Group) error {
	return c.accountOp(ctx, accountRequest{Operation: opModifyGroup, Group: &group})
}

// DeleteGroup removes a group by id.
func (c *Client) DeleteGroup(ctx context.Context, id int) error {
	return c.accountOp(ctx, accountRequest{Operation: opDeleteGroup, ID: id})
}

// UpdatePermission replaces a group's permission bitmask.
func (c *Client) UpdatePermission(ctx context.Context, groupID int, permissions models.Permissions) error {
	return c.accountOp(ctx, accountRequest{
		Operation:   opUpdatePermission,
		ID:          groupID,
		Permissions: &permissions,
	})
}

// CreateUser creates a user account.
func (c *Client) CreateUser(ctx context.Context, user models.UserAccount) error {
	return c.accountOp(ctx, accountRequest{Operation: opCreateUser, User: &user})
}

// ModifyUser updates a user's profile and group assignment.
func (c *Client) ModifyUser(ctx context.Context, user models.UserAccount) error {
	return c.accountOp(ctx, accountRequest{Operation: opModifyUser, User: &user})
}

// DeleteUser removes a user account by id.
func (c *Client) DeleteUser(ctx context.Context, id int) error {
	return c.accountOp(ctx, accountRequest{Operation: opDeleteUser, ID: id})
}

// ChangeLogin updates a user's credentials.
func (c *Client) ChangeLogin(ctx context.Context, userID int, username, password string) error {
	return c.accountOp(ctx, accountRequest{
		Operation: opChangeLogin,
		ID:        userID,
		Username:  username,
		Password:  password,
	})
}

func (c *Client) accountOp(ctx context.Context, req accountRequest) error {
	if err := c.postJSON(ctx, "/api/accounts", req, nil); err != nil {
		return fmt.Errorf("account %s: %w", req.Operation, err)
	}
	return nil
}

// GetSettings fetches the full server settings map.
func (c *Client) GetSettings(ctx context.Context) (models.SettingsPatch, error) {
	var settings models.SettingsPatch
	if err := c.getJSON(ctx, "/api/settings", nil, &settings); err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

// SaveSettings submits changed settings keys. Unchanged keys are omitted;
// the backend merges and broadcasts the result as a configuration push.
func (c *Client) SaveSettings(ctx context.Context, patch models.SettingsPatch) error {
	if err := c.postJSON(ctx, "/api/settings", patch, nil); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// GetSharedContent fetches the configured shared content tree.
func (c *Client) GetSharedContent(ctx context.Context) ([]models.SharedContentItem, error) {
	var items []models.SharedContentItem
	if err := c.getJSON(ctx, "/api/sharedcontent", nil, &items); err != nil {
		return nil, fmt.Errorf("get shared content: %w", err)
	}
	return items, nil
}

// SaveSharedContent submits the full edited shared content tree. The
// backend treats it as the new configuration, not a diff.
func (c *Client) SaveSharedContent(ctx context.Context, items []models.SharedContentItem) error {
	if err := c.postJSON(ctx, "/api/sharedcontent", items, nil); err != nil {
		return fmt.Errorf("save shared content: %w", err)
	}
	return nil
}

// FetchPlayerState pulls the full browse/play/show state for a navigation
// request.
func (c *Client) FetchPlayerState(ctx context.Context, req models.PlayerRequest) (models.PlayerState, error) {
	query := url.Values{}
	query.Set("goal", string(req.Goal))
	query.Set("id", req.ID)

	var state models.PlayerState
	if err := c.getJSON(ctx, "/api/player", query, &state); err != nil {
		return models.PlayerState{}, fmt.Errorf("fetch player state: %w", err)
	}
	return state, nil
}

// Restart asks the backend to restart itself. Only honored when the server
// reported itself reloadable.
func (c *Client) Restart(ctx context.Context) error {
	if err := c.postJSON(ctx, "/api/restart", struct{}{}, nil); err != nil {
		return fmt.Errorf("restart: %w", err)
	}
	return nil
}

// getJSON performs a GET and decodes the 200 response into out.
func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	resp, err := c.doGet(ctx, endpoint, query)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// postJSON performs a POST with a JSON body and optionally decodes the
// response into out.
func (c *Client) postJSON(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) doGet(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	target := c.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return resp, nil
}

func (c *Client) authorize(req *http.Request) {
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// checkStatus turns a non-2xx response into a StatusError, capturing a
// bounded slice of the body for diagnostics.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
