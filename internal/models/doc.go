// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

// Package models defines the shared data model of KioskBridge: the push
// message envelope, the authenticated session snapshot, accounts and groups
// with their permission bitmask, shared content items, server event state,
// and the player browse/play state.
//
// Types here are plain data carriers. Mutation rules live in the store
// packages (session, serverevents, player) and in the accounts manager.
package models
