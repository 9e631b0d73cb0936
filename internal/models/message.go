// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

package models

import (
	"github.com/goccy/go-json"
)

// Known push message actions on the general event bus.
const (
	ActionRefreshSession          = "refresh_session"
	ActionUpdateAccounts          = "update_accounts"
	ActionUpdateMemory            = "update_memory"
	ActionSetConfigurationChanged = "set_configuration_changed"
	ActionSetScanLibraryStatus    = "set_scanlibrary_status"
	ActionSetMediaScanStatus      = "set_media_scan_status"
	ActionSetReloadable           = "set_reloadable"
	ActionSetStatusLine           = "set_status_line"
	ActionRendererAdd             = "renderer_add"
	ActionRendererUpdate          = "renderer_update"
	ActionRendererDelete          = "renderer_delete"
	ActionLogLine                 = "log_line"
	ActionNotify                  = "notify"
	ActionPlayer                  = "player"
)

// Outbound hello actions replayed on every channel (re)connection.
const (
	ActionToken     = "token"
	ActionSubscribe = "subscribe"
	ActionUUID      = "uuid"
)

// Message is the push channel envelope: a tagged union keyed by Action.
// Data is kept raw so each handler can unmarshal its own payload shape;
// payloads without a recognized action are ignored by the dispatcher.
//
// The player bus nests its remote-control command as siblings of the
// action instead of inside data, so the envelope also carries those
// fields; they stay empty on every other action.
type Message struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`

	Request string `json:"request,omitempty"`
	Arg0    string `json:"arg0,omitempty"`
	Arg1    string `json:"arg1,omitempty"`
}

// DecodeMessage parses one inbound frame into a Message.
// A frame that is not a JSON object with an "action" string field yields
// an empty Action, which the dispatcher treats as unrecognized.
func DecodeMessage(frame []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// Encode serializes the message for transmission.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// NewMessage builds a Message with the given action and a JSON-encoded
// payload. Encoding errors are impossible for the simple scalar payloads
// used by the hello messages, so they are swallowed into an empty Data.
func NewMessage(action string, data any) Message {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{Action: action}
	}
	return Message{Action: action, Data: raw}
}

// PlayerCommand is the remote-control sub-protocol delivered inside
// "player" actions on the player bus.
type PlayerCommand struct {
	Request string `json:"request"`
	Arg0    string `json:"arg0,omitempty"`
	Arg1    string `json:"arg1,omitempty"`
}

// Remote-control requests understood by the player event store.
const (
	PlayerRequestPlay      = "play"
	PlayerRequestPause     = "pause"
	PlayerRequestMute      = "mute"
	PlayerRequestStop      = "stop"
	PlayerRequestSetVolume = "setvolume"
	PlayerRequestSetPlayID = "setPlayId"
)

// NotifyPayload is the transient toast request carried by "notify" actions.
// It is shown once and never stored.
type NotifyPayload struct {
	ID      string `json:"id,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
	Color   string `json:"color,omitempty"`
}
