// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

// Package realtime owns the push transports and message routing between the
// backend media server and the client-side stores.
//
// Two channel kinds exist: a WebSocket channel for the general event bus and
// a Server-Sent-Events channel for the player bus. Both reconnect forever
// with exponential backoff and replay the three idempotent hello messages
// (token, subscribe, uuid) every time their ready state transitions to open.
//
// Inbound frames are decoded into a tagged {action, data} envelope and fanned
// out synchronously, in arrival order, by the Dispatcher. Messages with an
// unrecognized action are dropped without error; version skew between client
// and server degrades gracefully instead of crashing.
//
// Outbound sends are fire and forget: Send on a channel that is not open is
// a silent no-op, never queued.
package realtime
