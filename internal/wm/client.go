package wm

import (
	"github.com/jezek/xgb/xproto"
	"github.com/rs/zerolog/log"

	"github.com/vhslib/vaporwm/internal/x11"
)

// frameBackground is the base color of the frame bevel, set as the
// container's background pixel so freshly exposed areas match the frame.
const frameBackground = 0xbfbfbf

// Client is one managed top-level window together with the container window
// the manager wraps it in. Position and size always describe the content
// area; the container geometry is derived from them and from the maximized
// flag.
type Client struct {
	conn Conn

	id        xproto.Window
	container xproto.Window

	x, y          int16
	width, height uint16
	maximized     bool

	class string
	title string
	icon  *x11.Icon

	needRedraw bool
}

// newClient wraps the given window in a container, reparents it inside and
// establishes the input grabs the manager relies on. The container starts
// unmapped.
func newClient(conn Conn, id xproto.Window, x, y int16, width, height uint16, maximized bool, class, title string, icon *x11.Icon) (*Client, error) {
	c := &Client{
		conn:       conn,
		id:         id,
		x:          x,
		y:          y,
		width:      width,
		height:     height,
		maximized:  maximized,
		class:      class,
		title:      title,
		icon:       icon,
		needRedraw: true,
	}
	container, err := conn.CreateWindow(
		c.containerX(),
		c.containerY(),
		c.ContainerWidth(),
		c.ContainerHeight(),
		frameBackground,
		xproto.EventMaskSubstructureRedirect|
			xproto.EventMaskSubstructureNotify|
			xproto.EventMaskButtonPress|
			xproto.EventMaskButtonMotion|
			xproto.EventMaskButtonRelease,
	)
	if err != nil {
		return nil, err
	}
	c.container = container
	if !c.maximized {
		c.grabContainerButtons()
	}
	conn.AddToSaveSet(id)
	conn.ReparentWindow(id, container, c.innerOffsetX(), c.innerOffsetY())

	// Sync grabs on the content window freeze the pointer on any click so
	// the manager can raise the client before replaying the press.
	for _, button := range []xproto.Button{1, 3} {
		err := conn.GrabButton(id, button, x11.ModAny, xproto.EventMaskButtonPress, xproto.CursorNone, true, true)
		if err != nil {
			log.Debug().Err(err).Uint32("window", uint32(id)).Msg("content button grab failed")
		}
	}
	conn.SetEventMask(id, xproto.EventMaskPropertyChange)
	conn.SetBorderWidth(id, 0)
	if err := conn.SetWmState(id); err != nil {
		log.Debug().Err(err).Uint32("window", uint32(id)).Msg("failed to set WM_STATE")
	}
	return c, nil
}

func (c *Client) containerX() int16 {
	if c.maximized {
		return 0
	}
	return c.x - BorderWidth
}

func (c *Client) containerY() int16 {
	if c.maximized {
		return TopPanelHeight
	}
	return c.y - BorderWidth - TitlebarHeight
}

// ContainerWidth returns the current width of the container window.
func (c *Client) ContainerWidth() uint16 {
	if c.maximized {
		width, _ := c.conn.ScreenSize()
		return width
	}
	return c.width + BorderWidth*2
}

// ContainerHeight returns the current height of the container window.
func (c *Client) ContainerHeight() uint16 {
	if c.maximized {
		_, height := c.conn.ScreenSize()
		return height - TopPanelHeight - BottomPanelHeight
	}
	return c.height + BorderWidth*2 + TitlebarHeight
}

func (c *Client) innerOffsetX() int16 {
	if c.maximized {
		return 0
	}
	return BorderWidth
}

func (c *Client) innerOffsetY() int16 {
	if c.maximized {
		return 0
	}
	return BorderWidth + TitlebarHeight
}

func (c *Client) grabContainerButtons() {
	cursors := c.conn.Cursors()
	mask := uint16(xproto.EventMaskButtonPress | xproto.EventMaskButtonMotion | xproto.EventMaskButtonRelease)
	if err := c.conn.GrabButton(c.container, 1, x11.Mod4, mask, cursors.Fleur, false, false); err != nil {
		log.Debug().Err(err).Msg("container move grab failed")
	}
	if err := c.conn.GrabButton(c.container, 3, x11.Mod4, mask, cursors.BottomRight, false, false); err != nil {
		log.Debug().Err(err).Msg("container resize grab failed")
	}
}

func (c *Client) ungrabContainerButtons() {
	if err := c.conn.UngrabButton(c.container, 1, x11.Mod4); err != nil {
		log.Debug().Err(err).Msg("container move ungrab failed")
	}
	if err := c.conn.UngrabButton(c.container, 3, x11.Mod4); err != nil {
		log.Debug().Err(err).Msg("container resize ungrab failed")
	}
}

// ID returns the content window.
func (c *Client) ID() xproto.Window {
	return c.id
}

// Container returns the container window.
func (c *Client) Container() xproto.Window {
	return c.container
}

// X returns the content x coordinate.
func (c *Client) X() int16 {
	return c.x
}

// Y returns the content y coordinate.
func (c *Client) Y() int16 {
	return c.y
}

// Width returns the content width.
func (c *Client) Width() uint16 {
	return c.width
}

// Height returns the content height.
func (c *Client) Height() uint16 {
	return c.height
}

// Maximized reports whether the client fills the usable screen band.
func (c *Client) Maximized() bool {
	return c.maximized
}

// Class returns the cached program class, or an empty string.
func (c *Client) Class() string {
	return c.class
}

// Title returns the cached window title, or an empty string.
func (c *Client) Title() string {
	return c.title
}

// Icon returns the cached window icon, or nil.
func (c *Client) Icon() *x11.Icon {
	return c.icon
}

// SetX moves the content area horizontally. The container follows unless
// the client is maximized.
func (c *Client) SetX(x int16) {
	c.x = x
	if !c.maximized {
		c.conn.SetWindowX(c.container, c.containerX())
	}
}

// SetY moves the content area vertically.
func (c *Client) SetY(y int16) {
	c.y = y
	if !c.maximized {
		c.conn.SetWindowY(c.container, c.containerY())
	}
}

// SetSize records a new content size and applies it to both windows. While
// maximized only the record changes; the visible geometry stays
// policy-derived.
func (c *Client) SetSize(width, height uint16) {
	c.width = width
	c.height = height
	if c.maximized {
		return
	}
	c.conn.SetWindowWidth(c.id, c.width)
	c.conn.SetWindowHeight(c.id, c.height)
	c.conn.SetWindowWidth(c.container, c.ContainerWidth())
	c.conn.SetWindowHeight(c.container, c.ContainerHeight())
	c.needRedraw = true
}

// SetMaximized switches between the two layout policies, repositioning both
// windows. Leaving maximized mode restores the recorded geometry and
// re-enables the interactive drag grabs.
func (c *Client) SetMaximized(maximized bool) {
	if maximized == c.maximized {
		return
	}
	c.maximized = maximized

	c.conn.SetWindowX(c.id, c.innerOffsetX())
	c.conn.SetWindowY(c.id, c.innerOffsetY())
	c.conn.SetWindowX(c.container, c.containerX())
	c.conn.SetWindowY(c.container, c.containerY())
	c.conn.SetWindowWidth(c.container, c.ContainerWidth())
	c.conn.SetWindowHeight(c.container, c.ContainerHeight())

	width, height := c.width, c.height
	if maximized {
		width = c.ContainerWidth()
		height = c.ContainerHeight()
	}
	c.conn.SetWindowWidth(c.id, width)
	c.conn.SetWindowHeight(c.id, height)

	if maximized {
		c.ungrabContainerButtons()
	} else {
		c.needRedraw = true
		c.grabContainerButtons()
	}
}

// SetClass updates the cached class. Only the top panel shows it, so no
// dirty mark here.
func (c *Client) SetClass(class string) {
	c.class = class
}

// SetTitle updates the cached title and marks the frame dirty.
func (c *Client) SetTitle(title string) {
	c.title = title
	c.needRedraw = true
}

// SetIcon updates the cached icon and marks the frame dirty.
func (c *Client) SetIcon(icon *x11.Icon) {
	c.icon = icon
	c.needRedraw = true
}

// Notify marks the frame dirty so the next redraw pass repaints it.
func (c *Client) Notify() {
	c.needRedraw = true
}

// Destroy releases the window back to the root and tears the container
// down. The content window itself is left alone; it still belongs to the
// program that created it.
func (c *Client) Destroy() {
	c.conn.ReparentWindow(c.id, c.conn.RootWindow(), c.x, c.y)
	c.conn.RemoveFromSaveSet(c.id)
	c.conn.DestroyWindow(c.container)
}
