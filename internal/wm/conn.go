// Package wm implements the window manager state machine: the registry of
// managed clients, the 9 fixed workspaces with their stack and tasklist
// orderings, interactive move and resize drags, and the session snapshot
// taken across soft restarts.
package wm

import (
	"github.com/jezek/xgb/xproto"

	"github.com/vhslib/vaporwm/internal/x11"
)

// Layout constants shared between the manager and the decoration painters.
const (
	// WorkspaceCount is the fixed number of workspaces.
	WorkspaceCount = 9

	// BorderWidth is the thickness of the frame drawn around a client on
	// every side.
	BorderWidth = 5

	// TitlebarHeight is the height of the titlebar band inside the frame.
	TitlebarHeight = 25

	// TopPanelHeight and BottomPanelHeight are the screen bands reserved
	// for the panels. Maximized clients fill the space between them.
	TopPanelHeight    = 28
	BottomPanelHeight = 30
)

// Conn is the surface of the display server connection the manager drives.
// It is satisfied by x11.Client and by the fake connection used in tests.
type Conn interface {
	RootWindow() xproto.Window
	ScreenSize() (uint16, uint16)
	Cursors() x11.Cursors
	Atom(name string) (xproto.Atom, error)

	Geometry(win xproto.Window) (x11.Geometry, error)
	WindowAttributes(win xproto.Window) (x11.Attributes, error)
	Children(win xproto.Window) ([]xproto.Window, error)
	WindowClass(win xproto.Window) (string, error)
	WindowTitle(win xproto.Window) (string, error)
	WindowIcon(win xproto.Window) (*x11.Icon, error)

	CreateWindow(x, y int16, width, height uint16, bg uint32, eventMask uint32) (xproto.Window, error)
	MapWindow(win xproto.Window)
	UnmapWindow(win xproto.Window)
	DestroyWindow(win xproto.Window)
	ReparentWindow(win, parent xproto.Window, x, y int16)
	SetWindowX(win xproto.Window, x int16)
	SetWindowY(win xproto.Window, y int16)
	SetWindowWidth(win xproto.Window, width uint16)
	SetWindowHeight(win xproto.Window, height uint16)
	SetBorderWidth(win xproto.Window, width uint16)
	RaiseWindow(win xproto.Window)
	SetFocus(win xproto.Window)
	SetEventMask(win xproto.Window, mask uint32)
	WarpPointer(x, y int16)
	AllowReplayPointer()
	AddToSaveSet(win xproto.Window)
	RemoveFromSaveSet(win xproto.Window)
	GrabButton(win xproto.Window, button xproto.Button, mod x11.Keymod, eventMask uint16, cursor xproto.Cursor, ownerEvents, sync bool) error
	UngrabButton(win xproto.Window, button xproto.Button, mod x11.Keymod) error
	SetWmState(win xproto.Window) error
	CloseWindow(win xproto.Window) error
	ForwardConfigure(evt xproto.ConfigureRequestEvent)
}

// Panel is the manager's view of a panel: it can be marked dirty and its
// window can be raised above client containers.
type Panel interface {
	Notify()
	Window() xproto.Window
}

// FramePainter draws the decoration of a non-maximized client onto its
// container window.
type FramePainter interface {
	PaintFrame(c *Client, active bool)
}
