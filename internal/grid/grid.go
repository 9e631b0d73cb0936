// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

// Package grid computes keyboard focus movement over a tile grid whose row
// membership is inferred from layout, not data. The web-control surface
// serves it to kiosk front-ends so every client agrees on the arithmetic.
package grid

// Key is a navigation key.
type Key string

// Navigation keys understood by Move.
const (
	KeyLeft  Key = "ArrowLeft"
	KeyRight Key = "ArrowRight"
	KeyUp    Key = "ArrowUp"
	KeyDown  Key = "ArrowDown"
	KeyHome  Key = "Home"
	KeyEnd   Key = "End"
)

// Layout describes one rendered tile grid.
type Layout struct {
	// Count is the number of focusable tiles.
	Count int
	// Columns is the inferred column count, at least 1.
	Columns int
	// RTL mirrors horizontal movement for right-to-left locales.
	RTL bool
}

// New creates a layout. Non-positive columns collapse to 1; a negative
// count to 0.
func New(count, columns int, rtl bool) Layout {
	if columns < 1 {
		columns = 1
	}
	if count < 0 {
		count = 0
	}
	return Layout{Count: count, Columns: columns, RTL: rtl}
}

// InferColumns derives the column count from tile vertical offsets: the
// browser breaks rows implicitly, so the first row is the run of leading
// tiles sharing the first tile's offset.
func InferColumns(tops []int) int {
	if len(tops) == 0 {
		return 1
	}
	columns := 1
	for i := 1; i < len(tops); i++ {
		if tops[i] != tops[0] {
			break
		}
		columns++
	}
	return columns
}

// Move returns the tile index focus moves to when key is pressed at
// current. Unknown keys and empty grids leave the index unchanged.
//
// Horizontal movement wraps around the whole list; under RTL the
// left/right keys swap meaning. Vertical movement steps by one row:
// overshooting the bottom clamps to the last tile (ragged rows keep focus
// reachable); overshooting the top wraps to the matching column of the
// last row, again clamped to the last tile when that row is short.
func (l Layout) Move(current int, key Key) int {
	if l.Count == 0 {
		return current
	}
	max := l.Count - 1
	if current < 0 || current > max {
		return current
	}

	if l.RTL {
		switch key {
		case KeyLeft:
			key = KeyRight
		case KeyRight:
			key = KeyLeft
		}
	}

	switch key {
	case KeyLeft:
		if current == 0 {
			return max
		}
		return current - 1

	case KeyRight:
		if current == max {
			return 0
		}
		return current + 1

	case KeyDown:
		target := current + l.Columns
		if target > max {
			return max
		}
		return target

	case KeyUp:
		target := current - l.Columns
		if target >= 0 {
			return target
		}
		lastRowStart := (max / l.Columns) * l.Columns
		target = lastRowStart + current%l.Columns
		if target > max {
			return max
		}
		return target

	case KeyHome:
		return 0

	case KeyEnd:
		return max

	default:
		return current
	}
}
