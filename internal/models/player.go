// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

package models

import (
	"github.com/goccy/go-json"
)

// RequestGoal is the kind of resource the player is asking the backend for.
type RequestGoal string

// Player request goals. Setting any one supersedes the other two for that
// request cycle.
const (
	GoalBrowse RequestGoal = "browse"
	GoalPlay   RequestGoal = "play"
	GoalShow   RequestGoal = "show"
)

// PlayerRequest identifies the resource the player currently wants. Seq is
// a monotonically increasing sequence number that changes on every request,
// so a repeat navigation to the same id is still observable as a new
// request (replacing the old transient clear-then-set trick).
type PlayerRequest struct {
	Goal RequestGoal `json:"goal"`
	ID   string      `json:"id"`
	Seq  uint64      `json:"seq"`
}

// BrowseFolder is one navigable entry in the player view.
type BrowseFolder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// BrowseMedia is one playable entry in the player view.
type BrowseMedia struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MediaType string `json:"mediaType,omitempty"`
	Icon      string `json:"icon,omitempty"`
}

// PlayerState is the full browse/play/show response fetched from the server
// on every navigation request. It is never partially patched.
type PlayerState struct {
	Goal                RequestGoal     `json:"goal"`
	Folders             []BrowseFolder  `json:"folders,omitempty"`
	MediaLibraryFolders []BrowseFolder  `json:"mediaLibraryFolders,omitempty"`
	Breadcrumbs         []BrowseFolder  `json:"breadcrumbs,omitempty"`
	Medias              []BrowseMedia   `json:"medias,omitempty"`
	MediasSelections    json.RawMessage `json:"mediasSelections,omitempty"`
	Metadata            json.RawMessage `json:"metadata,omitempty"`
	UseWebControl       bool            `json:"useWebControl"`
}
