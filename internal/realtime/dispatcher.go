// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

package realtime

import (
	"github.com/goccy/go-json"

	"github.com/mediaserver-tools/kioskbridge/internal/logging"
	"github.com/mediaserver-tools/kioskbridge/internal/metrics"
	"github.com/mediaserver-tools/kioskbridge/internal/models"
	"github.com/mediaserver-tools/kioskbridge/internal/notify"
)

// SessionTarget is the slice of the session store the dispatcher mutates.
// Narrow interfaces keep the stores free of transport imports.
type SessionTarget interface {
	// RefreshAsync schedules a session re-fetch; the push message only
	// invalidates, the pull supplies the data.
	RefreshAsync()
	SetStatusLine(line string)
	PushLogLine(line string)
}

// ServerEventsTarget is the slice of the server event store the dispatcher
// mutates.
type ServerEventsTarget interface {
	NotifyAccountsChanged()
	SetMemory(stats models.MemoryStats)
	SetConfigurationChanged(patch models.SettingsPatch)
	SetScanLibraryStatus(status models.ScanLibraryStatus)
	SetReloadable(reloadable bool)
	PushRendererAction(action models.RendererAction)
}

// PlayerTarget receives remote-control commands from "player" actions.
type PlayerTarget interface {
	HandleCommand(cmd models.PlayerCommand)
}

// Dispatcher routes decoded push messages to the store that owns the
// matching slice of state. Routing is synchronous and order-preserving per
// channel; there is no cross-message atomicity.
type Dispatcher struct {
	session  SessionTarget
	events   ServerEventsTarget
	player   PlayerTarget
	notifier notify.Notifier
	metrics  *metrics.Metrics
}

// NewDispatcher wires the dispatch targets. Any target may be nil, in which
// case its actions are counted but not applied (used by the player bus,
// which only carries "player" actions).
func NewDispatcher(session SessionTarget, events ServerEventsTarget, player PlayerTarget, notifier notify.Notifier, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		session:  session,
		events:   events,
		player:   player,
		notifier: notifier,
		metrics:  m,
	}
}

// Dispatch decodes one raw frame and routes it. Frames that are not valid
// envelopes or carry an unrecognized action are dropped without surfacing
// an error; only the unknown-action counter moves.
func (d *Dispatcher) Dispatch(frame []byte) {
	msg, err := models.DecodeMessage(frame)
	if err != nil || msg.Action == "" {
		d.metrics.UnknownActions.Inc()
		return
	}
	d.Route(msg)
}

// Route applies one decoded message to its target store.
//
//nolint:gocyclo // one arm per protocol action
func (d *Dispatcher) Route(msg models.Message) {
	switch msg.Action {
	case models.ActionRefreshSession:
		if d.session != nil {
			d.session.RefreshAsync()
		}

	case models.ActionUpdateAccounts:
		if d.events != nil {
			d.events.NotifyAccountsChanged()
		}

	case models.ActionUpdateMemory:
		var stats models.MemoryStats
		if !d.decode(msg, &stats) {
			return
		}
		if d.events != nil {
			d.events.SetMemory(stats)
		}

	case models.ActionSetConfigurationChanged:
		var patch models.SettingsPatch
		if !d.decode(msg, &patch) {
			return
		}
		if d.events != nil {
			d.events.SetConfigurationChanged(patch)
		}

	case models.ActionSetScanLibraryStatus, models.ActionSetMediaScanStatus:
		var status models.ScanLibraryStatus
		if !d.decode(msg, &status) {
			return
		}
		if d.events != nil {
			d.events.SetScanLibraryStatus(status)
		}

	case models.ActionSetReloadable:
		var reloadable bool
		if !d.decode(msg, &reloadable) {
			return
		}
		if d.events != nil {
			d.events.SetReloadable(reloadable)
		}

	case models.ActionSetStatusLine:
		var line string
		if !d.decode(msg, &line) {
			return
		}
		if d.session != nil {
			d.session.SetStatusLine(line)
		}

	case models.ActionRendererAdd, models.ActionRendererUpdate, models.ActionRendererDelete:
		if d.events != nil {
			d.events.PushRendererAction(models.RendererAction{
				Kind: models.RendererActionKind(msg.Action),
				Data: msg.Data,
			})
		}

	case models.ActionLogLine:
		var line string
		if !d.decode(msg, &line) {
			return
		}
		if d.session != nil {
			d.session.PushLogLine(line)
		}

	case models.ActionNotify:
		var payload models.NotifyPayload
		if !d.decode(msg, &payload) {
			return
		}
		if d.notifier != nil {
			d.notifier.Notify(payload.ID, severityForColor(payload.Color), payload.Title, payload.Message)
		}

	case models.ActionPlayer:
		// The command arrives either nested in data or as siblings of
		// the action; the player bus sends the flat shape.
		cmd := models.PlayerCommand{Request: msg.Request, Arg0: msg.Arg0, Arg1: msg.Arg1}
		if len(msg.Data) > 0 {
			if !d.decode(msg, &cmd) {
				return
			}
		} else if cmd.Request == "" {
			logging.Debug().Str("action", msg.Action).Msg("player frame without a request, skipping")
			return
		}
		if d.player != nil {
			d.player.HandleCommand(cmd)
		}

	default:
		// Unrecognized action: deliberate permissiveness, not a
		// validation boundary. Counted so protocol drift is at least
		// visible in metrics.
		d.metrics.UnknownActions.Inc()
		return
	}

	d.metrics.MessagesDispatched.WithLabelValues(msg.Action).Inc()
}

// decode unmarshals a recognized action's payload. A malformed payload for
// a known action is logged at debug and skipped.
func (d *Dispatcher) decode(msg models.Message, out any) bool {
	if err := json.Unmarshal(msg.Data, out); err != nil {
		logging.Debug().
			Str("action", msg.Action).
			Err(err).
			Msg("malformed payload for known action, skipping")
		return false
	}
	return true
}

// severityForColor maps the backend's toast color hints onto notice
// severities.
func severityForColor(color string) notify.Severity {
	switch color {
	case "red":
		return notify.SeverityError
	case "orange", "yellow":
		return notify.SeverityWarning
	default:
		return notify.SeverityInfo
	}
}
