// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

package models

// SharedContentType discriminates the shared content tagged union.
type SharedContentType string

// Shared content variants. Folder and VirtualFolder are filesystem-backed;
// the Feed* and Stream* variants point at remote sources; the remaining
// three are platform library imports.
const (
	SharedFolder        SharedContentType = "Folder"
	SharedVirtualFolder SharedContentType = "VirtualFolder"
	SharedFeedAudio     SharedContentType = "FeedAudio"
	SharedFeedImage     SharedContentType = "FeedImage"
	SharedFeedVideo     SharedContentType = "FeedVideo"
	SharedStreamAudio   SharedContentType = "StreamAudio"
	SharedStreamVideo   SharedContentType = "StreamVideo"
	SharedITunes        SharedContentType = "iTunes"
	SharedIPhoto        SharedContentType = "iPhoto"
	SharedAperture      SharedContentType = "Aperture"
)

// SharedContentItem is one configured media source exposed to end users.
// Which fields are meaningful depends on Type:
//
//   - Folder: File (path)
//   - VirtualFolder: Name, Childs (ordered child folders)
//   - Feed*/Stream*: Name, Source, Parent
//   - iTunes/iPhoto/Aperture: File (library path), optional
//
// An empty Groups list means the item is unrestricted.
type SharedContentItem struct {
	Type   SharedContentType   `json:"type"`
	Active bool                `json:"active"`
	Groups []int               `json:"groups,omitempty"`
	Name   string              `json:"name,omitempty"`
	Source string              `json:"source,omitempty"`
	Parent string              `json:"parent,omitempty"`
	File   string              `json:"file,omitempty"`
	Childs []SharedContentItem `json:"childs,omitempty"`
}

// IsFolderVariant reports whether the item carries a filesystem path.
func (i SharedContentItem) IsFolderVariant() bool {
	switch i.Type {
	case SharedFolder, SharedITunes, SharedIPhoto, SharedAperture:
		return true
	default:
		return false
	}
}

// RestrictedTo reports whether the item is limited to the given group.
// Unrestricted items (empty Groups) are visible to every group.
func (i SharedContentItem) RestrictedTo(groupID int) bool {
	if len(i.Groups) == 0 {
		return true
	}
	for _, g := range i.Groups {
		if g == groupID {
			return true
		}
	}
	return false
}
