// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

// Package accounts manages the user/group administration view. It holds a
// pulled copy of the account list, validates mutation forms before they hit
// the wire, and refuses the mutations the backend would reject anyway: the
// built-in administrators group can never be deleted or re-permissioned.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/mediaserver-tools/kioskbridge/internal/logging"
	"github.com/mediaserver-tools/kioskbridge/internal/models"
	"github.com/mediaserver-tools/kioskbridge/internal/notify"
	"github.com/mediaserver-tools/kioskbridge/internal/rest"
)

// ErrProtectedGroup is returned for delete or permission mutations aimed at
// a built-in group. The check is by id value, so it holds for any caller
// input, not just ids obtained from the list.
var ErrProtectedGroup = errors.New("built-in group cannot be deleted or re-permissioned")

// API is the slice of the REST surface the manager needs.
type API interface {
	GetAccounts(ctx context.Context) (rest.AccountList, error)
	CreateGroup(ctx context.Context, group models.Group) error
	ModifyGroup(ctx context.Context, group models.Group) error
	DeleteGroup(ctx context.Context, id int) error
	UpdatePermission(ctx context.Context, groupID int, permissions models.Permissions) error
	CreateUser(ctx context.Context, user models.UserAccount) error
	ModifyUser(ctx context.Context, user models.UserAccount) error
	DeleteUser(ctx context.Context, id int) error
	ChangeLogin(ctx context.Context, userID int, username, password string) error
}

// ChangeSource exposes the accounts-changed push signal.
type ChangeSource interface {
	AccountsChanged() <-chan struct{}
}

// UserForm is the validated input for user create/modify operations.
type UserForm struct {
	ID            int    `validate:"gte=0"`
	Username      string `validate:"required,min=1,max=64"`
	DisplayName   string `validate:"max=128"`
	Password      string `validate:"omitempty,min=4"`
	PinCode       string `validate:"omitempty,len=4,numeric"`
	GroupID       int    `validate:"gte=1"`
	LibraryHidden bool
}

// GroupForm is the validated input for group create/rename operations.
type GroupForm struct {
	ID          int    `validate:"gte=0"`
	DisplayName string `validate:"required,min=1,max=64"`
}

// Manager owns the pulled account list and the mutation rules on top of it.
type Manager struct {
	api      API
	changes  ChangeSource
	notifier notify.Notifier
	validate *validator.Validate

	mu   sync.RWMutex
	list rest.AccountList
}

// NewManager creates an accounts manager. changes may be nil when no push
// channel feeds it (the web-control surface then refreshes explicitly).
func NewManager(api API, changes ChangeSource, notifier notify.Notifier) *Manager {
	return &Manager{
		api:      api,
		changes:  changes,
		notifier: notifier,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Refresh re-pulls the account list. On failure the previous list stays
// visible and a deduplicated toast is raised.
func (m *Manager) Refresh(ctx context.Context) error {
	list, err := m.api.GetAccounts(ctx)
	if err != nil {
		m.notifier.Notify("accounts_refresh_error", notify.SeverityError,
			"Accounts", "could not load accounts")
		logging.Warn().Err(err).Msg("accounts refresh failed, keeping previous list")
		return err
	}

	m.mu.Lock()
	m.list = list
	m.mu.Unlock()
	return nil
}

// Users returns the pulled user list.
func (m *Manager) Users() []models.UserAccount {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.UserAccount, len(m.list.Users))
	copy(out, m.list.Users)
	return out
}

// Groups returns the pulled group list.
func (m *Manager) Groups() []models.Group {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Group, len(m.list.Groups))
	copy(out, m.list.Groups)
	return out
}

// GroupByID looks a group up in the pulled list.
func (m *Manager) GroupByID(id int) (models.Group, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, g := range m.list.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return models.Group{}, false
}

// CreateGroup validates and submits a new group. Permissions start empty;
// they are assigned with SetGroupPermissions afterwards.
func (m *Manager) CreateGroup(ctx context.Context, form GroupForm) error {
	if err := m.validate.Struct(form); err != nil {
		return fmt.Errorf("invalid group form: %w", err)
	}
	group := models.Group{ID: models.NewEntityID, DisplayName: form.DisplayName}
	if err := m.api.CreateGroup(ctx, group); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

// RenameGroup validates and submits a display-name change. Renaming a
// built-in group is allowed; only deletion and permission changes are not.
func (m *Manager) RenameGroup(ctx context.Context, form GroupForm) error {
	if err := m.validate.Struct(form); err != nil {
		return fmt.Errorf("invalid group form: %w", err)
	}
	group := models.Group{ID: form.ID, DisplayName: form.DisplayName}
	if err := m.api.ModifyGroup(ctx, group); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

// DeleteGroup removes a group. Built-in groups are refused locally.
func (m *Manager) DeleteGroup(ctx context.Context, id int) error {
	if id <= models.AdminGroupID {
		return ErrProtectedGroup
	}
	if err := m.api.DeleteGroup(ctx, id); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

// SetGroupPermissions replaces a group's permission bitmask. Built-in
// groups are refused locally.
func (m *Manager) SetGroupPermissions(ctx context.Context, id int, permissions models.Permissions) error {
	if id <= models.AdminGroupID {
		return ErrProtectedGroup
	}
	if err := m.api.UpdatePermission(ctx, id, permissions); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

// CreateUser validates and submits a new user.
func (m *Manager) CreateUser(ctx context.Context, form UserForm) error {
	if err := m.validate.Struct(form); err != nil {
		return fmt.Errorf("invalid user form: %w", err)
	}
	user := models.UserAccount{
		ID:            models.NewEntityID,
		Username:      form.Username,
		DisplayName:   form.DisplayName,
		PinCode:       form.PinCode,
		GroupID:       form.GroupID,
		LibraryHidden: form.LibraryHidden,
	}
	if err := m.api.CreateUser(ctx, user); err != nil {
		return err
	}
	if form.Password != "" {
		// Credentials travel separately from the profile; the backend
		// resolves the user created above by username. Not finding it
		// means the account exists without the requested password, which
		// the caller has to know about.
		user, ok := m.findUserAfterRefresh(ctx, form.Username)
		if !ok {
			return fmt.Errorf("user %q created but not found for credential assignment", form.Username)
		}
		if err := m.api.ChangeLogin(ctx, user.ID, form.Username, form.Password); err != nil {
			return err
		}
	}
	return m.Refresh(ctx)
}

// ModifyUser validates and submits a profile update.
func (m *Manager) ModifyUser(ctx context.Context, form UserForm) error {
	if err := m.validate.Struct(form); err != nil {
		return fmt.Errorf("invalid user form: %w", err)
	}
	user := models.UserAccount{
		ID:            form.ID,
		Username:      form.Username,
		DisplayName:   form.DisplayName,
		PinCode:       form.PinCode,
		GroupID:       form.GroupID,
		LibraryHidden: form.LibraryHidden,
	}
	if err := m.api.ModifyUser(ctx, user); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

// DeleteUser removes a user account.
func (m *Manager) DeleteUser(ctx context.Context, id int) error {
	if err := m.api.DeleteUser(ctx, id); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

// ChangeLogin updates a user's credentials.
func (m *Manager) ChangeLogin(ctx context.Context, userID int, username, password string) error {
	if username == "" || password == "" {
		return errors.New("username and password are required")
	}
	if err := m.api.ChangeLogin(ctx, userID, username, password); err != nil {
		return err
	}
	return m.Refresh(ctx)
}

func (m *Manager) findUserAfterRefresh(ctx context.Context, username string) (models.UserAccount, bool) {
	if err := m.Refresh(ctx); err != nil {
		return models.UserAccount{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.list.Users {
		if u.Username == username {
			return u, true
		}
	}
	return models.UserAccount{}, false
}

// Serve re-pulls the account list whenever the backend pushes an accounts
// change, until the context is canceled. It implements suture.Service.
func (m *Manager) Serve(ctx context.Context) error {
	if m.changes == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	for {
		changed := m.changes.AccountsChanged()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
			_ = m.Refresh(ctx)
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (m *Manager) String() string {
	return "accounts-manager"
}
