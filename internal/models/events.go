// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

package models

import (
	"github.com/goccy/go-json"
)

// MemoryStats is the server memory snapshot pushed with "update_memory".
// It is always replaced wholesale, never merged field by field.
type MemoryStats struct {
	Max    int64 `json:"max"`
	Used   int64 `json:"used"`
	Buffer int64 `json:"buffer"`
}

// ScanLibraryStatus is pushed with "set_scanlibrary_status" and
// "set_media_scan_status".
type ScanLibraryStatus struct {
	Enabled bool `json:"enabled"`
	Running bool `json:"running"`
}

// RendererActionKind distinguishes renderer lifecycle pushes.
type RendererActionKind string

// Renderer lifecycle kinds, one per push action.
const (
	RendererAdd    RendererActionKind = "renderer_add"
	RendererUpdate RendererActionKind = "renderer_update"
	RendererDelete RendererActionKind = "renderer_delete"
)

// RendererAction is one queued renderer add/update/delete event. The
// renderer payload stays raw; this client only surfaces the events, it
// does not drive renderers itself.
type RendererAction struct {
	Kind RendererActionKind `json:"kind"`
	Data json.RawMessage    `json:"data"`
}

// SettingsPatch is the partial settings update pushed with
// "set_configuration_changed". Keys are backend setting names.
type SettingsPatch map[string]any
