// Package panel renders the two screen bars and the window decorations:
// the top panel with workspace labels and a clock, the bottom panel with
// the active workspace's tasklist, and the frame painter for client
// containers. Panels hold dirty flags and repaint on the host loop's
// redraw pass, never directly from event handlers.
package panel

import (
	"github.com/vhslib/vaporwm/internal/wm"
	"github.com/vhslib/vaporwm/internal/x11"
)

// Palette shared by the panels and the frame painter.
const (
	colorBackground = 0x000000
	colorActiveText = 0x949ca3
	colorInactive   = 0x454545
	colorActiveBack = 0x242424

	colorFrame           = 0xbfbfbf
	colorBevelOuterLight = 0xdedede
	colorBevelOuterDark  = 0x000000
	colorBevelInnerLight = 0xffffff
	colorBevelInnerDark  = 0x808080

	colorTitlebarActiveFrom   = 0x008080
	colorTitlebarActiveTo     = 0x00abab
	colorTitlebarInactiveFrom = 0xa18c66
	colorTitlebarInactiveTo   = 0xd4ccba
	colorTitleText            = 0xffffff
)

// Icon placement inside a titlebar or tasklist entry.
const (
	iconMarginLeft  = 7
	iconMarginRight = 9
)

// Manager is the window-manager surface the panels read for drawing and
// drive on clicks.
type Manager interface {
	ActiveWorkspaceIndex() int
	Workspace(i int) *wm.Workspace
	ActiveWorkspace() *wm.Workspace
	ChangeActiveWorkspace(index int)
	RaiseClient(stackIndex int)
}

// span is a clickable horizontal pixel range, both ends inclusive.
type span struct {
	start, end int
}

func (s span) contains(x int) bool {
	return x >= s.start && x <= s.end
}

// hitTest returns the index of the span containing x, or -1.
func hitTest(spans []span, x int) int {
	for i, s := range spans {
		if s.contains(x) {
			return i
		}
	}
	return -1
}

// defaultIcon stands in for clients that supply none: a small window glyph
// in the frame palette.
var defaultIcon = buildDefaultIcon()

func buildDefaultIcon() *x11.Icon {
	data := make([]byte, x11.IconSize*x11.IconSize*4)
	set := func(x, y int, color uint32) {
		i := (y*x11.IconSize + x) * 4
		data[i] = byte(color)
		data[i+1] = byte(color >> 8)
		data[i+2] = byte(color >> 16)
		data[i+3] = 0xff
	}
	for y := 1; y < x11.IconSize-1; y++ {
		for x := 1; x < x11.IconSize-1; x++ {
			color := uint32(colorBevelInnerLight)
			if y < 5 {
				color = colorTitlebarActiveFrom
			}
			if x == 1 || x == x11.IconSize-2 || y == 1 || y == x11.IconSize-2 {
				color = colorBevelOuterDark
			}
			set(x, y, color)
		}
	}
	return &x11.Icon{Data: data}
}
