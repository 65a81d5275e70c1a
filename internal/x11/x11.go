// Package x11 provides a client for speaking the core X protocol to the
// display server: window lifecycle requests, input grabs, property queries,
// drawing primitives and an event poll loop.
package x11

import (
	"fmt"
	"strings"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// Atom names
const (
	netWmIcon      = "_NET_WM_ICON"
	netWmName      = "_NET_WM_NAME"
	utf8String     = "UTF8_STRING"
	wmClass        = "WM_CLASS"
	wmDeleteWindow = "WM_DELETE_WINDOW"
	wmProtocols    = "WM_PROTOCOLS"
	wmState        = "WM_STATE"
)

// Client maintains a connection with the X server and performs window
// management requests on behalf of the manager and the panels.
type Client struct {
	conn  *xgb.Conn
	atoms atomCache
	root  xproto.Window

	screenWidth  uint16
	screenHeight uint16
	rootDepth    byte
	rootVisual   xproto.Visualid

	font    xproto.Font
	cursors Cursors
}

// NewClient attempts to connect to the X server.
func NewClient() (*Client, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, err
	}
	screen := xproto.Setup(conn).DefaultScreen(conn)
	c := &Client{
		conn: conn,
		atoms: atomCache{
			conn: conn,
			data: make(map[string]xproto.Atom),
		},
		root:         screen.Root,
		screenWidth:  screen.WidthInPixels,
		screenHeight: screen.HeightInPixels,
		rootDepth:    screen.RootDepth,
		rootVisual:   screen.RootVisual,
	}
	if err := c.loadFont(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("load font: %w", err)
	}
	if err := c.loadCursors(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("load cursors: %w", err)
	}
	return c, nil
}

// RegisterWm claims the substructure-redirect selection on the root window,
// making this client the window manager. It fails with ErrWmRunning if
// another client holds the selection already.
func (c *Client) RegisterWm() error {
	err := xproto.ChangeWindowAttributesChecked(
		c.conn,
		c.root,
		xproto.CwEventMask,
		[]uint32{xproto.EventMaskSubstructureRedirect | xproto.EventMaskSubstructureNotify},
	).Check()
	if err != nil {
		if _, ok := err.(xproto.AccessError); ok {
			return ErrWmRunning
		}
		return err
	}
	return nil
}

// Close shuts down the connection with the X server.
func (c *Client) Close() {
	c.conn.Close()
}

// RootWindow returns the ID of the root window.
func (c *Client) RootWindow() xproto.Window {
	return c.root
}

// Cursors returns the cursors created from the standard cursor font at
// connection time.
func (c *Client) Cursors() Cursors {
	return c.cursors
}

// Atom returns the atom with the given name, interning it if this client
// has not seen it before.
func (c *Client) Atom(name string) (xproto.Atom, error) {
	return c.atoms.Get(name)
}

// ScreenSize returns the dimensions of the screen.
func (c *Client) ScreenSize() (uint16, uint16) {
	return c.screenWidth, c.screenHeight
}

// Geometry returns the geometry of the given window.
func (c *Client) Geometry(win xproto.Window) (Geometry, error) {
	reply, err := xproto.GetGeometry(c.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return Geometry{}, err
	}
	return Geometry{reply.X, reply.Y, reply.Width, reply.Height}, nil
}

// WindowAttributes returns the attributes of the given window.
func (c *Client) WindowAttributes(win xproto.Window) (Attributes, error) {
	reply, err := xproto.GetWindowAttributes(c.conn, win).Reply()
	if err != nil {
		return Attributes{}, err
	}
	return Attributes{
		Unmapped:         reply.MapState == xproto.MapStateUnmapped,
		OverrideRedirect: reply.OverrideRedirect,
	}, nil
}

// Children returns the direct children of the given window, bottom to top
// in stacking order.
func (c *Client) Children(win xproto.Window) ([]xproto.Window, error) {
	reply, err := xproto.QueryTree(c.conn, win).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Children, nil
}

// WindowClass returns the class of the given window, or an empty string if
// the window has none set.
func (c *Client) WindowClass(win xproto.Window) (string, error) {
	raw, err := c.getProperty(win, wmClass, xproto.AtomString)
	if err != nil {
		return "", err
	}
	// WM_CLASS consists of the instance and class names, null-separated.
	// The class name is the one shown to the user.
	parts := strings.Split(string(raw), "\x00")
	if len(parts) < 2 {
		return strings.TrimRight(string(raw), "\x00"), nil
	}
	return parts[1], nil
}

// WindowTitle returns the _NET_WM_NAME property of the given window, or an
// empty string if it is unset or not UTF-8.
func (c *Client) WindowTitle(win xproto.Window) (string, error) {
	utf8, err := c.atoms.Get(utf8String)
	if err != nil {
		return "", err
	}
	raw, err := c.getProperty(win, netWmName, utf8)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// CreateWindow creates an unmapped child of the root window with the given
// geometry, background pixel and event mask.
func (c *Client) CreateWindow(x, y int16, width, height uint16, bg uint32, eventMask uint32) (xproto.Window, error) {
	wid, err := xproto.NewWindowId(c.conn)
	if err != nil {
		return 0, err
	}
	err = xproto.CreateWindowChecked(
		c.conn,
		xproto.WindowClassCopyFromParent,
		wid,
		c.root,
		x,
		y,
		width,
		height,
		0,
		xproto.WindowClassInputOutput,
		c.rootVisual,
		xproto.CwBackPixel|xproto.CwBorderPixel|xproto.CwEventMask,
		[]uint32{bg, 0, eventMask},
	).Check()
	if err != nil {
		return 0, err
	}
	return wid, nil
}

// MapWindow makes the given window visible.
func (c *Client) MapWindow(win xproto.Window) {
	xproto.MapWindow(c.conn, win)
}

// UnmapWindow hides the given window.
func (c *Client) UnmapWindow(win xproto.Window) {
	xproto.UnmapWindow(c.conn, win)
}

// DestroyWindow destroys the given window.
func (c *Client) DestroyWindow(win xproto.Window) {
	xproto.DestroyWindow(c.conn, win)
}

// ReparentWindow makes the given window a child of parent, placed at the
// given coordinates within it.
func (c *Client) ReparentWindow(win, parent xproto.Window, x, y int16) {
	xproto.ReparentWindow(c.conn, win, parent, x, y)
}

// SetWindowX moves the given window horizontally.
func (c *Client) SetWindowX(win xproto.Window, x int16) {
	xproto.ConfigureWindow(c.conn, win, xproto.ConfigWindowX, []uint32{uint32(int32(x))})
}

// SetWindowY moves the given window vertically.
func (c *Client) SetWindowY(win xproto.Window, y int16) {
	xproto.ConfigureWindow(c.conn, win, xproto.ConfigWindowY, []uint32{uint32(int32(y))})
}

// SetWindowWidth resizes the given window horizontally.
func (c *Client) SetWindowWidth(win xproto.Window, width uint16) {
	xproto.ConfigureWindow(c.conn, win, xproto.ConfigWindowWidth, []uint32{uint32(width)})
}

// SetWindowHeight resizes the given window vertically.
func (c *Client) SetWindowHeight(win xproto.Window, height uint16) {
	xproto.ConfigureWindow(c.conn, win, xproto.ConfigWindowHeight, []uint32{uint32(height)})
}

// SetBorderWidth sets the width of the given window's own border.
func (c *Client) SetBorderWidth(win xproto.Window, width uint16) {
	xproto.ConfigureWindow(c.conn, win, xproto.ConfigWindowBorderWidth, []uint32{uint32(width)})
}

// RaiseWindow raises the given window to the top of the stacking order.
func (c *Client) RaiseWindow(win xproto.Window) {
	xproto.ConfigureWindow(c.conn, win, xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove})
}

// SetFocus gives input focus to the given window. Pass the root window to
// drop focus entirely.
func (c *Client) SetFocus(win xproto.Window) {
	xproto.SetInputFocus(c.conn, xproto.InputFocusNone, win, xproto.TimeCurrentTime)
}

// SetEventMask replaces the event mask of the given window.
func (c *Client) SetEventMask(win xproto.Window, mask uint32) {
	xproto.ChangeWindowAttributes(c.conn, win, xproto.CwEventMask, []uint32{mask})
}

// SetCursor sets the cursor shown while the pointer is over the given
// window.
func (c *Client) SetCursor(win xproto.Window, cursor xproto.Cursor) {
	xproto.ChangeWindowAttributes(c.conn, win, xproto.CwCursor, []uint32{uint32(cursor)})
}

// WarpPointer moves the pointer to the given root coordinates.
func (c *Client) WarpPointer(x, y int16) {
	xproto.WarpPointer(c.conn, xproto.WindowNone, c.root, 0, 0, 0, 0, x, y)
}

// AllowReplayPointer releases the currently frozen pointer grab and replays
// the triggering event to the client it would have gone to.
func (c *Client) AllowReplayPointer() {
	xproto.AllowEvents(c.conn, xproto.AllowReplayPointer, xproto.TimeCurrentTime)
}

// AddToSaveSet adds the given window to this client's save-set so it
// survives a manager crash.
func (c *Client) AddToSaveSet(win xproto.Window) {
	xproto.ChangeSaveSet(c.conn, xproto.SetModeInsert, win)
}

// RemoveFromSaveSet removes the given window from this client's save-set.
func (c *Client) RemoveFromSaveSet(win xproto.Window) {
	xproto.ChangeSaveSet(c.conn, xproto.SetModeDelete, win)
}

// GrabKey grabs a keyboard key on the given window, diverting matching key
// presses to this client.
func (c *Client) GrabKey(key Key, win xproto.Window) error {
	return xproto.GrabKeyChecked(
		c.conn,
		true,
		win,
		uint16(key.Mod),
		key.Code,
		xproto.GrabModeAsync,
		xproto.GrabModeAsync,
	).Check()
}

// UngrabKey releases a grabbed key and returns it back to the X server.
func (c *Client) UngrabKey(key Key, win xproto.Window) error {
	return xproto.UngrabKeyChecked(
		c.conn,
		key.Code,
		win,
		uint16(key.Mod),
	).Check()
}

// GrabButton grabs a pointer button on the given window. With sync set, the
// pointer freezes on a press until AllowReplayPointer is called.
func (c *Client) GrabButton(win xproto.Window, button xproto.Button, mod Keymod, eventMask uint16, cursor xproto.Cursor, ownerEvents, sync bool) error {
	pointerMode := byte(xproto.GrabModeAsync)
	if sync {
		pointerMode = xproto.GrabModeSync
	}
	return xproto.GrabButtonChecked(
		c.conn,
		ownerEvents,
		win,
		eventMask,
		pointerMode,
		xproto.GrabModeAsync,
		xproto.WindowNone,
		cursor,
		byte(button),
		uint16(mod),
	).Check()
}

// UngrabButton releases a grabbed pointer button.
func (c *Client) UngrabButton(win xproto.Window, button xproto.Button, mod Keymod) error {
	return xproto.UngrabButtonChecked(
		c.conn,
		byte(button),
		win,
		uint16(mod),
	).Check()
}

// SetWmState marks the given window as being in the normal managed state
// per ICCCM.
func (c *Client) SetWmState(win xproto.Window) error {
	atom, err := c.atoms.Get(wmState)
	if err != nil {
		return err
	}
	data := make([]byte, 8)
	data[0] = 1 // NormalState
	xproto.ChangeProperty(c.conn, xproto.PropModeReplace, win, atom, atom, 32, 2, data)
	return nil
}

// CloseWindow asks the given window to close itself by sending the ICCCM
// WM_DELETE_WINDOW client message. The window is free to ignore it.
func (c *Client) CloseWindow(win xproto.Window) error {
	protocols, err := c.atoms.Get(wmProtocols)
	if err != nil {
		return err
	}
	del, err := c.atoms.Get(wmDeleteWindow)
	if err != nil {
		return err
	}
	evt := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   protocols,
		Data: xproto.ClientMessageDataUnionData32New([]uint32{
			uint32(del),
			uint32(xproto.TimeCurrentTime),
			0,
			0,
			0,
		}),
	}
	xproto.SendEvent(c.conn, false, win, xproto.EventMaskNoEvent, string(evt.Bytes()))
	return nil
}

// ForwardConfigure applies a configure request from an unmanaged window
// verbatim.
func (c *Client) ForwardConfigure(evt xproto.ConfigureRequestEvent) {
	mask := uint16(0)
	values := make([]uint32, 0, 7)
	if evt.ValueMask&xproto.ConfigWindowX != 0 {
		mask |= xproto.ConfigWindowX
		values = append(values, uint32(int32(evt.X)))
	}
	if evt.ValueMask&xproto.ConfigWindowY != 0 {
		mask |= xproto.ConfigWindowY
		values = append(values, uint32(int32(evt.Y)))
	}
	if evt.ValueMask&xproto.ConfigWindowWidth != 0 {
		mask |= xproto.ConfigWindowWidth
		values = append(values, uint32(evt.Width))
	}
	if evt.ValueMask&xproto.ConfigWindowHeight != 0 {
		mask |= xproto.ConfigWindowHeight
		values = append(values, uint32(evt.Height))
	}
	if evt.ValueMask&xproto.ConfigWindowBorderWidth != 0 {
		mask |= xproto.ConfigWindowBorderWidth
		values = append(values, uint32(evt.BorderWidth))
	}
	if evt.ValueMask&xproto.ConfigWindowSibling != 0 {
		mask |= xproto.ConfigWindowSibling
		values = append(values, uint32(evt.Sibling))
	}
	if evt.ValueMask&xproto.ConfigWindowStackMode != 0 {
		mask |= xproto.ConfigWindowStackMode
		values = append(values, uint32(evt.StackMode))
	}
	xproto.ConfigureWindow(c.conn, evt.Window, mask, values)
}

// getProperty retrieves a raw window property.
func (c *Client) getProperty(win xproto.Window, name string, typ xproto.Atom) ([]byte, error) {
	atom, err := c.atoms.Get(name)
	if err != nil {
		return nil, err
	}
	reply, err := xproto.GetProperty(
		c.conn,
		false,
		win,
		atom,
		typ,
		0,
		(1<<32)-1,
	).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

// loadFont opens the core font used for panel and titlebar text.
func (c *Client) loadFont() error {
	fid, err := xproto.NewFontId(c.conn)
	if err != nil {
		return err
	}
	name := "fixed"
	if err := xproto.OpenFontChecked(c.conn, fid, uint16(len(name)), name).Check(); err != nil {
		return err
	}
	c.font = fid
	return nil
}

// loadCursors creates the cursors used by the manager from the standard
// cursor font.
func (c *Client) loadCursors() error {
	fid, err := xproto.NewFontId(c.conn)
	if err != nil {
		return err
	}
	name := "cursor"
	if err := xproto.OpenFontChecked(c.conn, fid, uint16(len(name)), name).Check(); err != nil {
		return err
	}
	load := func(glyph uint16) (xproto.Cursor, error) {
		cid, err := xproto.NewCursorId(c.conn)
		if err != nil {
			return 0, err
		}
		err = xproto.CreateGlyphCursorChecked(
			c.conn,
			cid,
			fid,
			fid,
			glyph,
			glyph+1,
			0, 0, 0,
			0xffff, 0xffff, 0xffff,
		).Check()
		if err != nil {
			return 0, err
		}
		return cid, nil
	}
	if c.cursors.LeftPtr, err = load(glyphLeftPtr); err != nil {
		return err
	}
	if c.cursors.Hand, err = load(glyphHand); err != nil {
		return err
	}
	if c.cursors.Fleur, err = load(glyphFleur); err != nil {
		return err
	}
	if c.cursors.BottomRight, err = load(glyphBottomRight); err != nil {
		return err
	}
	return nil
}
