package x11

import (
	"github.com/jezek/xgb/xproto"
)

// Metrics of the panel font. The fixed misc font is monospaced, which keeps
// text layout arithmetic exact without round trips to the server.
const (
	// FontWidth is the advance of a single glyph.
	FontWidth = 6

	// FontAscent is the distance from the baseline to the glyph top.
	FontAscent = 11
)

// NewGC creates a graphics context with the given foreground color and the
// panel font preselected.
func (c *Client) NewGC(fg uint32) (xproto.Gcontext, error) {
	gid, err := xproto.NewGcontextId(c.conn)
	if err != nil {
		return 0, err
	}
	err = xproto.CreateGCChecked(
		c.conn,
		gid,
		xproto.Drawable(c.root),
		xproto.GcForeground|xproto.GcFont,
		[]uint32{fg, uint32(c.font)},
	).Check()
	if err != nil {
		return 0, err
	}
	return gid, nil
}

// SetForeground switches the foreground color of an existing GC.
func (c *Client) SetForeground(gc xproto.Gcontext, color uint32) {
	xproto.ChangeGC(c.conn, gc, xproto.GcForeground, []uint32{color})
}

// FillRect draws a filled rectangle on the given window.
func (c *Client) FillRect(win xproto.Window, gc xproto.Gcontext, x, y int16, width, height uint16) {
	xproto.PolyFillRectangle(c.conn, xproto.Drawable(win), gc, []xproto.Rectangle{
		{X: x, Y: y, Width: width, Height: height},
	})
}

// DrawLines draws a polyline through the given points on the given window.
func (c *Client) DrawLines(win xproto.Window, gc xproto.Gcontext, points []xproto.Point) {
	xproto.PolyLine(c.conn, xproto.CoordModeOrigin, xproto.Drawable(win), gc, points)
}

// DrawText draws a string on the given window with the baseline at the
// given coordinates. The glyph background is left untouched.
func (c *Client) DrawText(win xproto.Window, gc xproto.Gcontext, x, y int16, text string) {
	if len(text) > 254 {
		text = text[:254]
	}
	item := make([]byte, 0, len(text)+2)
	item = append(item, byte(len(text)), 0)
	item = append(item, text...)
	xproto.PolyText8(c.conn, xproto.Drawable(win), gc, x, y, item)
}

// DrawImage uploads a block of pixels to the given window. The data is in
// ZPixmap layout, 4 bytes per pixel, blue first.
func (c *Client) DrawImage(win xproto.Window, gc xproto.Gcontext, x, y int16, width, height uint16, data []byte) {
	xproto.PutImage(
		c.conn,
		xproto.ImageFormatZPixmap,
		xproto.Drawable(win),
		gc,
		width,
		height,
		x,
		y,
		0,
		c.rootDepth,
		data,
	)
}
