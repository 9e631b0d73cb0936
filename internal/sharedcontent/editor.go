// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

// Package sharedcontent edits the server's shared content configuration
// through a working copy. Edits accumulate locally and go to the backend in
// one batch on save; until then the last fetched configuration stays
// untouched and a reset is always possible.
package sharedcontent

import (
	"context"
	"errors"
	"reflect"
	"sync"

	"github.com/mediaserver-tools/kioskbridge/internal/logging"
	"github.com/mediaserver-tools/kioskbridge/internal/models"
	"github.com/mediaserver-tools/kioskbridge/internal/notify"
)

// ErrIndexOutOfRange is returned for edits addressing a position the
// working copy does not have.
var ErrIndexOutOfRange = errors.New("shared content index out of range")

// API is the slice of the REST surface the editor needs.
type API interface {
	GetSharedContent(ctx context.Context) ([]models.SharedContentItem, error)
	SaveSharedContent(ctx context.Context, items []models.SharedContentItem) error
}

// Editor is a working copy over the shared content configuration.
type Editor struct {
	api      API
	notifier notify.Notifier

	mu       sync.RWMutex
	original []models.SharedContentItem
	working  []models.SharedContentItem
	loaded   bool
}

// NewEditor creates a shared content editor.
func NewEditor(api API, notifier notify.Notifier) *Editor {
	return &Editor{api: api, notifier: notifier}
}

// Load fetches the current configuration and resets the working copy to
// it. Pending edits are discarded; callers should check Dirty first when
// that matters.
func (e *Editor) Load(ctx context.Context) error {
	items, err := e.api.GetSharedContent(ctx)
	if err != nil {
		e.notifier.Notify("sharedcontent_load_error", notify.SeverityError,
			"Shared content", "could not load shared content")
		logging.Warn().Err(err).Msg("shared content load failed")
		return err
	}

	e.mu.Lock()
	e.original = cloneItems(items)
	e.working = cloneItems(items)
	e.loaded = true
	e.mu.Unlock()
	return nil
}

// Loaded reports whether a configuration has been fetched.
func (e *Editor) Loaded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loaded
}

// Items returns a copy of the working configuration.
func (e *Editor) Items() []models.SharedContentItem {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneItems(e.working)
}

// Add appends an item to the working copy.
func (e *Editor) Add(item models.SharedContentItem) {
	e.mu.Lock()
	e.working = append(e.working, cloneItem(item))
	e.mu.Unlock()
}

// Remove deletes the item at index i from the working copy.
func (e *Editor) Remove(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.working) {
		return ErrIndexOutOfRange
	}
	e.working = append(e.working[:i], e.working[i+1:]...)
	return nil
}

// Update replaces the item at index i wholesale, nested children included.
func (e *Editor) Update(i int, item models.SharedContentItem) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.working) {
		return ErrIndexOutOfRange
	}
	e.working[i] = cloneItem(item)
	return nil
}

// ToggleActive flips the active flag of the item at index i.
func (e *Editor) ToggleActive(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.working) {
		return ErrIndexOutOfRange
	}
	e.working[i].Active = !e.working[i].Active
	return nil
}

// SetGroups replaces the group restriction of the item at index i. An
// empty or nil list makes the item unrestricted.
func (e *Editor) SetGroups(i int, groups []int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= len(e.working) {
		return ErrIndexOutOfRange
	}
	if len(groups) == 0 {
		e.working[i].Groups = nil
		return nil
	}
	e.working[i].Groups = append([]int(nil), groups...)
	return nil
}

// Dirty reports whether the working copy differs from the last fetched
// configuration.
func (e *Editor) Dirty() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !reflect.DeepEqual(e.original, e.working)
}

// Save submits the working copy as the new configuration. A clean copy is
// a no-op. On success the submitted state becomes the new baseline; on
// failure the edits stay pending so a retry loses nothing.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.RLock()
	dirty := !reflect.DeepEqual(e.original, e.working)
	items := cloneItems(e.working)
	e.mu.RUnlock()

	if !dirty {
		return nil
	}

	if err := e.api.SaveSharedContent(ctx, items); err != nil {
		e.notifier.Notify("sharedcontent_save_error", notify.SeverityError,
			"Shared content", "could not save shared content")
		logging.Warn().Err(err).Msg("shared content save failed, edits kept")
		return err
	}

	e.mu.Lock()
	e.original = cloneItems(items)
	e.mu.Unlock()
	return nil
}

// Reset discards pending edits, restoring the last fetched configuration.
func (e *Editor) Reset() {
	e.mu.Lock()
	e.working = cloneItems(e.original)
	e.mu.Unlock()
}

func cloneItems(items []models.SharedContentItem) []models.SharedContentItem {
	if items == nil {
		return nil
	}
	out := make([]models.SharedContentItem, len(items))
	for i, item := range items {
		out[i] = cloneItem(item)
	}
	return out
}

func cloneItem(item models.SharedContentItem) models.SharedContentItem {
	if item.Groups != nil {
		item.Groups = append([]int(nil), item.Groups...)
	}
	item.Childs = cloneItems(item.Childs)
	return item
}
