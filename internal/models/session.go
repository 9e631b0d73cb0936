// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

package models

// Reserved account and group identifiers.
const (
	// NewEntityID marks a not-yet-persisted user or group in a working
	// copy. It is never sent to the backend as an existing id.
	NewEntityID = 0

	// AdminGroupID is the built-in administrators group. Its permission
	// bits are fixed; the accounts manager refuses to re-permission or
	// delete any group with an id at or below this value.
	AdminGroupID = 1

	// LocalhostUserID is the implicit localhost admin identity. The value
	// mirrors the backend's sentinel (max 32-bit signed int); it is
	// compared by value and rendered without a logout option.
	LocalhostUserID = 2147483647
)

// UserAccount is one login identity known to the backend.
type UserAccount struct {
	ID            int    `json:"id"`
	Username      string `json:"username"`
	DisplayName   string `json:"displayName"`
	Avatar        string `json:"avatar,omitempty"`
	PinCode       string `json:"pinCode,omitempty"`
	GroupID       int    `json:"groupId"`
	LibraryHidden bool   `json:"libraryHidden"`
}

// Group bundles a display name with a permission bitmask.
type Group struct {
	ID          int         `json:"id"`
	DisplayName string      `json:"displayName"`
	Permissions Permissions `json:"permissions"`
}

// Account pairs a user with its resolved group.
type Account struct {
	User  UserAccount `json:"user"`
	Group Group       `json:"group"`
}

// SessionSnapshot is the authenticated-identity-and-capabilities state for
// this client. It is owned by the session store and replaced wholesale by
// refresh(); UI chrome fields (navbar, document title) live in the store,
// not here.
type SessionSnapshot struct {
	Initialized  bool     `json:"initialized"`
	Authenticate bool     `json:"authenticate"`
	NoAdminFound bool     `json:"noAdminFound"`
	PlayerMode   bool     `json:"player"`
	ServerName   string   `json:"serverName"`
	Account      *Account `json:"account,omitempty"`
}

// IsLocalhostAdmin reports whether the snapshot carries the implicit
// localhost admin identity.
func (s *SessionSnapshot) IsLocalhostAdmin() bool {
	return s != nil && s.Account != nil && s.Account.User.ID == LocalhostUserID
}
