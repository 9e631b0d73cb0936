// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

package sharedcontent

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediaserver-tools/kioskbridge/internal/logging"
	"github.com/mediaserver-tools/kioskbridge/internal/models"
	"github.com/mediaserver-tools/kioskbridge/internal/notify"
)

//nolint:gochecknoinits // keep test output quiet
func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

type fakeAPI struct {
	items   []models.SharedContentItem
	saveErr error
	saved   [][]models.SharedContentItem
}

func (f *fakeAPI) GetSharedContent(context.Context) ([]models.SharedContentItem, error) {
	return f.items, nil
}

func (f *fakeAPI) SaveSharedContent(_ context.Context, items []models.SharedContentItem) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, items)
	return nil
}

func seeded() *fakeAPI {
	return &fakeAPI{
		items: []models.SharedContentItem{
			{Type: models.SharedFolder, Active: true, File: "/media/movies"},
			{
				Type:   models.SharedVirtualFolder,
				Active: true,
				Name:   "Podcasts",
				Childs: []models.SharedContentItem{
					{Type: models.SharedFeedAudio, Active: true, Name: "News", Source: "https://example.org/feed"},
				},
			},
		},
	}
}

func newTestEditor(api *fakeAPI) *Editor {
	return NewEditor(api, notify.NewCenter(time.Minute))
}

func TestLoadResetsWorkingCopy(t *testing.T) {
	editor := newTestEditor(seeded())
	assert.False(t, editor.Loaded())

	require.NoError(t, editor.Load(context.Background()))
	assert.True(t, editor.Loaded())
	assert.False(t, editor.Dirty())
	assert.Len(t, editor.Items(), 2)
}

func TestEditsMakeDirtyAndResetClears(t *testing.T) {
	editor := newTestEditor(seeded())
	require.NoError(t, editor.Load(context.Background()))

	require.NoError(t, editor.ToggleActive(0))
	assert.True(t, editor.Dirty())
	assert.False(t, editor.Items()[0].Active)

	editor.Reset()
	assert.False(t, editor.Dirty())
	assert.True(t, editor.Items()[0].Active)
}

func TestItemsReturnsIsolatedCopy(t *testing.T) {
	editor := newTestEditor(seeded())
	require.NoError(t, editor.Load(context.Background()))

	items := editor.Items()
	items[0].Active = false
	items[1].Childs[0].Name = "mutated"

	// Mutating the returned slice never touches the working copy.
	assert.False(t, editor.Dirty())
	assert.Equal(t, "News", editor.Items()[1].Childs[0].Name)
}

func TestAddRemoveUpdate(t *testing.T) {
	editor := newTestEditor(seeded())
	require.NoError(t, editor.Load(context.Background()))

	editor.Add(models.SharedContentItem{
		Type:   models.SharedStreamVideo,
		Active: true,
		Name:   "Webcam",
		Source: "rtsp://cam.local/stream",
	})
	assert.Len(t, editor.Items(), 3)

	require.NoError(t, editor.Update(0, models.SharedContentItem{
		Type: models.SharedFolder, Active: true, File: "/media/films",
	}))
	assert.Equal(t, "/media/films", editor.Items()[0].File)

	require.NoError(t, editor.Remove(1))
	assert.Len(t, editor.Items(), 2)

	assert.ErrorIs(t, editor.Remove(9), ErrIndexOutOfRange)
	assert.ErrorIs(t, editor.Update(-1, models.SharedContentItem{}), ErrIndexOutOfRange)
	assert.ErrorIs(t, editor.ToggleActive(7), ErrIndexOutOfRange)
	assert.ErrorIs(t, editor.SetGroups(7, nil), ErrIndexOutOfRange)
}

func TestSetGroups(t *testing.T) {
	editor := newTestEditor(seeded())
	require.NoError(t, editor.Load(context.Background()))

	require.NoError(t, editor.SetGroups(0, []int{2, 3}))
	assert.Equal(t, []int{2, 3}, editor.Items()[0].Groups)
	assert.True(t, editor.Items()[0].RestrictedTo(2))
	assert.False(t, editor.Items()[0].RestrictedTo(4))

	// Clearing the restriction makes the item visible to everyone again.
	require.NoError(t, editor.SetGroups(0, nil))
	assert.Nil(t, editor.Items()[0].Groups)
	assert.True(t, editor.Items()[0].RestrictedTo(4))
}

func TestSaveSubmitsBatchAndRebases(t *testing.T) {
	api := seeded()
	editor := newTestEditor(api)
	require.NoError(t, editor.Load(context.Background()))

	// Clean copy: saving is a no-op.
	require.NoError(t, editor.Save(context.Background()))
	assert.Empty(t, api.saved)

	require.NoError(t, editor.ToggleActive(0))
	require.NoError(t, editor.SetGroups(1, []int{2}))
	require.NoError(t, editor.Save(context.Background()))

	// One batch carrying both edits.
	require.Len(t, api.saved, 1)
	assert.False(t, api.saved[0][0].Active)
	assert.Equal(t, []int{2}, api.saved[0][1].Groups)

	// The submitted state is the new baseline.
	assert.False(t, editor.Dirty())
}

func TestSaveFailureKeepsEdits(t *testing.T) {
	api := seeded()
	api.saveErr = errors.New("503 service unavailable")
	center := notify.NewCenter(time.Minute)
	editor := NewEditor(api, center)
	require.NoError(t, editor.Load(context.Background()))

	require.NoError(t, editor.ToggleActive(0))
	require.Error(t, editor.Save(context.Background()))

	// Edits survive for a retry; a toast reports the failure.
	assert.True(t, editor.Dirty())
	_, ok := center.Get("sharedcontent_save_error")
	assert.True(t, ok)

	api.saveErr = nil
	require.NoError(t, editor.Save(context.Background()))
	assert.False(t, editor.Dirty())
	require.Len(t, api.saved, 1)
}
