package panel

import (
	"fmt"

	"github.com/jezek/xgb/xproto"

	"github.com/vhslib/vaporwm/internal/wm"
	"github.com/vhslib/vaporwm/internal/x11"
)

// Titlebar text sits on the font baseline, vertically centered in the band.
const titlebarBaseline = wm.BorderWidth + (wm.TitlebarHeight+x11.FontAscent)/2

// gradientBand is the width of one solid slice of the titlebar gradient.
const gradientBand = 4

// Frame paints client decorations: a raised bevel around the content area
// and a titlebar with icon and title. Maximized clients have no decoration
// and never reach the painter.
type Frame struct {
	conn *x11.Client
	gc   xproto.Gcontext
}

// NewFrame creates the painter and its graphics context.
func NewFrame(conn *x11.Client) (*Frame, error) {
	gc, err := conn.NewGC(colorFrame)
	if err != nil {
		return nil, fmt.Errorf("create frame gc: %w", err)
	}
	return &Frame{conn: conn, gc: gc}, nil
}

// PaintFrame draws the full decoration onto the client's container.
func (f *Frame) PaintFrame(c *wm.Client, active bool) {
	win := c.Container()
	w := int16(c.ContainerWidth())
	h := int16(c.ContainerHeight())

	f.conn.SetForeground(f.gc, colorFrame)
	f.conn.FillRect(win, f.gc, 0, 0, uint16(w), uint16(h))

	// Raised bevel: light on the top and left edges, dark on the bottom
	// and right, two pixels deep.
	f.conn.SetForeground(f.gc, colorBevelOuterLight)
	f.conn.DrawLines(win, f.gc, []xproto.Point{{X: 0, Y: h - 2}, {X: 0, Y: 0}, {X: w - 2, Y: 0}})
	f.conn.SetForeground(f.gc, colorBevelInnerLight)
	f.conn.DrawLines(win, f.gc, []xproto.Point{{X: 1, Y: h - 3}, {X: 1, Y: 1}, {X: w - 3, Y: 1}})
	f.conn.SetForeground(f.gc, colorBevelInnerDark)
	f.conn.DrawLines(win, f.gc, []xproto.Point{{X: 1, Y: h - 2}, {X: w - 2, Y: h - 2}, {X: w - 2, Y: 1}})
	f.conn.SetForeground(f.gc, colorBevelOuterDark)
	f.conn.DrawLines(win, f.gc, []xproto.Point{{X: 0, Y: h - 1}, {X: w - 1, Y: h - 1}, {X: w - 1, Y: 0}})

	from, to := colorTitlebarInactiveFrom, colorTitlebarInactiveTo
	if active {
		from, to = colorTitlebarActiveFrom, colorTitlebarActiveTo
	}
	f.paintTitlebarGradient(win, c.Width(), uint32(from), uint32(to))

	icon := c.Icon()
	if icon == nil {
		icon = defaultIcon
	}
	f.conn.DrawImage(
		win, f.gc,
		wm.BorderWidth+iconMarginLeft,
		wm.BorderWidth+(wm.TitlebarHeight-x11.IconSize)/2,
		x11.IconSize, x11.IconSize,
		icon.Data,
	)

	title := c.Title()
	if title == "" {
		title = fmt.Sprintf("[%d]", c.ID())
	}
	f.conn.SetForeground(f.gc, colorTitleText)
	textX := int16(wm.BorderWidth + iconMarginLeft + x11.IconSize + iconMarginRight)
	f.conn.DrawText(win, f.gc, textX, titlebarBaseline, title)
}

// paintTitlebarGradient fills the titlebar band with a horizontal gradient
// approximated as solid vertical slices.
func (f *Frame) paintTitlebarGradient(win xproto.Window, width uint16, from, to uint32) {
	for x := 0; x < int(width); x += gradientBand {
		band := gradientBand
		if x+band > int(width) {
			band = int(width) - x
		}
		f.conn.SetForeground(f.gc, lerpColor(from, to, x, int(width)))
		f.conn.FillRect(
			win, f.gc,
			int16(wm.BorderWidth+x), wm.BorderWidth,
			uint16(band), wm.TitlebarHeight,
		)
	}
}

// lerpColor interpolates between two colors channel-wise at num/den.
func lerpColor(from, to uint32, num, den int) uint32 {
	lerp := func(shift uint) uint32 {
		a := int(from >> shift & 0xff)
		b := int(to >> shift & 0xff)
		return uint32(a+(b-a)*num/den) << shift
	}
	return lerp(16) | lerp(8) | lerp(0)
}
