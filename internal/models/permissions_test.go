// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sessionWithPermissions(p Permissions) *SessionSnapshot {
	return &SessionSnapshot{
		Initialized: true,
		Account: &Account{
			User:  UserAccount{ID: 2, Username: "kiosk", GroupID: 5},
			Group: Group{ID: 5, DisplayName: "Players", Permissions: p},
		},
	}
}

func TestHavePermission(t *testing.T) {
	s := sessionWithPermissions(0b0101)

	assert.True(t, HavePermission(s, 0b0100))
	assert.True(t, HavePermission(s, 0b0001))
	assert.False(t, HavePermission(s, 0b0010))

	// Combined masks require every bit.
	assert.True(t, HavePermission(s, 0b0101))
	assert.False(t, HavePermission(s, 0b0110))
}

func TestHavePermissionNilSafety(t *testing.T) {
	assert.False(t, HavePermission(nil, PermSettingsView))
	assert.False(t, HavePermission(&SessionSnapshot{}, PermSettingsView))
}

func TestHavePermissionNamedBits(t *testing.T) {
	s := sessionWithPermissions(PermWebPlayerBrowse | PermWebPlayerDownload)

	assert.True(t, HavePermission(s, PermWebPlayerBrowse))
	assert.False(t, HavePermission(s, PermWebPlayerEdit))
	assert.False(t, HavePermission(s, PermWebPlayerBrowse|PermWebPlayerEdit))
}

func TestPermAllHasEverything(t *testing.T) {
	s := sessionWithPermissions(PermAll)

	all := []Permissions{
		PermUsersManage, PermGroupsManage, PermSettingsView,
		PermSettingsModify, PermDevicesControl, PermServerRestart,
		PermApplicationRestart, PermApplicationShutdown,
		PermComputerShutdown, PermWebPlayerBrowse, PermWebPlayerDownload,
		PermWebPlayerEdit,
	}
	for _, bit := range all {
		assert.True(t, HavePermission(s, bit))
	}
}

func TestIsLocalhostAdmin(t *testing.T) {
	s := sessionWithPermissions(PermAll)
	assert.False(t, s.IsLocalhostAdmin())

	s.Account.User.ID = LocalhostUserID
	assert.True(t, s.IsLocalhostAdmin())

	// The sentinel bypasses no permission checks.
	s.Account.Group.Permissions = 0
	assert.False(t, HavePermission(s, PermSettingsView))
}
