// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

package rest

import (
	"errors"
	"fmt"
)

// ErrUnreachable marks transport-level failures: dial errors, timeouts,
// anything where no HTTP response arrived. Callers branch on it to decide
// between the persistent connection-lost notice and a per-request toast.
var ErrUnreachable = errors.New("server unreachable")

// StatusError is a non-2xx HTTP response. The server was reachable; the
// request itself was refused.
type StatusError struct {
	Code int
	Body string
}

// Error implements error.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned status %d", e.Code)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Code, e.Body)
}

// IsUnreachable reports whether err stems from a transport failure.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}

// StatusCode extracts the HTTP status from err, or 0 when err carries none.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
