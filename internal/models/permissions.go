// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

package models

// Permissions is the capability bitmask carried by a group. Bit meanings
// are shared by convention with the backend; the client never invents bits.
type Permissions uint32

// Capability bits. A "modify" capability should imply its "view" capability
// in correct configurations, but that is the administrator's responsibility
// when assigning bits to a group; nothing here enforces it.
const (
	PermUsersManage Permissions = 1 << iota
	PermGroupsManage
	PermSettingsView
	PermSettingsModify
	PermDevicesControl
	PermServerRestart
	PermApplicationRestart
	PermApplicationShutdown
	PermComputerShutdown
	PermWebPlayerBrowse
	PermWebPlayerDownload
	PermWebPlayerEdit
)

// PermAll grants every capability. Assigned by the backend to the built-in
// administrators group.
const PermAll Permissions = 0xFFFFFFFF

// Has reports whether every bit of mask is present in p. Combining masks
// with | therefore requires all combined bits to be set.
func (p Permissions) Has(mask Permissions) bool {
	return p&mask == mask
}

// HavePermission reports whether the session's account holds every bit of
// mask. A nil account (not authenticated) holds nothing. The localhost
// admin sentinel gets no special treatment here; its elevated access comes
// from the backend assigning it the full-permission group.
func HavePermission(s *SessionSnapshot, mask Permissions) bool {
	if s == nil || s.Account == nil {
		return false
	}
	return s.Account.Group.Permissions.Has(mask)
}
