package wm

import (
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/rs/zerolog/log"

	"github.com/vhslib/vaporwm/internal/x11"
)

type dragKind int

const (
	dragMove dragKind = iota
	dragResize
)

// dragState tracks an in-progress interactive move or resize. The anchor is
// the pointer position of the previous motion event, so deltas accumulate
// incrementally.
type dragState struct {
	kind dragKind
	x, y int16
}

// Wm owns the workspaces and is the sole writer of client and workspace
// state. Events are fed in one at a time through HandleEvent; panels are
// driven through the narrow Panel hooks bound after construction.
type Wm struct {
	conn    Conn
	painter FramePainter
	top     Panel
	bottom  Panel

	workspaces [WorkspaceCount]Workspace
	active     int
	drag       *dragState

	atomNetWmName xproto.Atom
	atomNetWmIcon xproto.Atom
}

// New creates the manager and reconciles the session snapshot against the
// windows that exist on the server right now. Serialized clients still
// present are re-adopted with their saved geometry; anything else mapped on
// the root is adopted into the active workspace with live geometry.
func New(conn Conn, state SessionState) (*Wm, error) {
	w := &Wm{conn: conn, active: state.ActiveWorkspaceIndex}
	if w.active < 0 || w.active >= WorkspaceCount {
		w.active = 0
	}
	var err error
	if w.atomNetWmName, err = conn.Atom("_NET_WM_NAME"); err != nil {
		log.Warn().Err(err).Msg("failed to intern _NET_WM_NAME")
	}
	if w.atomNetWmIcon, err = conn.Atom("_NET_WM_ICON"); err != nil {
		log.Warn().Err(err).Msg("failed to intern _NET_WM_ICON")
	}

	children, err := conn.Children(conn.RootWindow())
	if err != nil {
		return nil, fmt.Errorf("query existing windows: %w", err)
	}
	existing := make(map[xproto.Window]bool, len(children))
	for _, id := range children {
		existing[id] = true
	}

	for i := range state.Workspaces {
		ws := &w.workspaces[i]
		for _, sc := range state.Workspaces[i].Stack {
			id := xproto.Window(sc.ID)
			if !existing[id] {
				continue
			}
			delete(existing, id)
			sc := sc
			c := w.manageExisting(id, &sc)
			if c == nil {
				continue
			}
			if i == w.active {
				conn.MapWindow(c.container)
			}
			ws.stack = append(ws.stack, c)
		}
		for _, id := range state.Workspaces[i].Tasklist {
			if j := ws.stackIndex(xproto.Window(id)); j >= 0 {
				ws.tasklist = append(ws.tasklist, ws.stack[j])
			}
		}
		// Stack and tasklist hold the same client set; entries a stale
		// tasklist lost are appended.
		for _, c := range ws.stack {
			if ws.tasklistIndex(c.id) < 0 {
				ws.tasklist = append(ws.tasklist, c)
			}
		}
	}

	active := w.activeWorkspace()
	for _, id := range children {
		if !existing[id] {
			continue
		}
		c := w.manageExisting(id, nil)
		if c == nil {
			continue
		}
		conn.MapWindow(c.container)
		active.stack = append(active.stack, c)
		active.tasklist = append(active.tasklist, c)
	}
	w.focusTop(active)
	return w, nil
}

// manageExisting adopts a window that predates this manager instance. With
// a serialized record the saved geometry wins; otherwise geometry is
// queried live and maximization inferred from it. Unmapped and
// override-redirect windows are never managed.
func (w *Wm) manageExisting(id xproto.Window, saved *SessionClient) *Client {
	attrs, err := w.conn.WindowAttributes(id)
	if err != nil || attrs.Unmapped || attrs.OverrideRedirect {
		return nil
	}
	var (
		x, y          int16
		width, height uint16
		maximized     bool
	)
	if saved != nil {
		x, y = saved.X, saved.Y
		width, height = saved.Width, saved.Height
		maximized = saved.Maximized
	} else {
		geo, err := w.conn.Geometry(id)
		if err != nil {
			return nil
		}
		screenWidth, screenHeight := w.conn.ScreenSize()
		maximized = geo.Width == screenWidth &&
			geo.Height == screenHeight-TopPanelHeight-BottomPanelHeight
		x, y = geo.X, geo.Y
		width, height = geo.Width, geo.Height
	}
	class, _ := w.conn.WindowClass(id)
	title, _ := w.conn.WindowTitle(id)
	icon, _ := w.conn.WindowIcon(id)
	c, err := newClient(w.conn, id, x, y, width, height, maximized, class, title, icon)
	if err != nil {
		log.Error().Err(err).Uint32("window", uint32(id)).Msg("failed to adopt window")
		return nil
	}
	log.Info().Uint32("window", uint32(id)).Bool("from_session", saved != nil).Msg("adopted window")
	return c
}

// Bind attaches the panels and the frame painter. Must be called before the
// event loop starts feeding events in.
func (w *Wm) Bind(top, bottom Panel, painter FramePainter) {
	w.top = top
	w.bottom = bottom
	w.painter = painter
}

// ActiveWorkspaceIndex returns the index of the visible workspace.
func (w *Wm) ActiveWorkspaceIndex() int {
	return w.active
}

// Workspace returns the workspace with the given index.
func (w *Wm) Workspace(i int) *Workspace {
	return &w.workspaces[i]
}

// ActiveWorkspace returns the visible workspace.
func (w *Wm) ActiveWorkspace() *Workspace {
	return w.activeWorkspace()
}

func (w *Wm) activeWorkspace() *Workspace {
	return &w.workspaces[w.active]
}

func (w *Wm) focusTop(ws *Workspace) {
	if c := ws.top(); c != nil {
		w.conn.SetFocus(c.id)
	} else {
		w.conn.SetFocus(w.conn.RootWindow())
	}
}

// HandleEvent dispatches one event to the matching handler. Unknown kinds
// are ignored.
func (w *Wm) HandleEvent(evt xgb.Event) {
	switch evt := evt.(type) {
	case xproto.MapRequestEvent:
		w.handleMapRequest(evt)
	case xproto.UnmapNotifyEvent:
		w.handleUnmapNotify(evt)
	case xproto.KeyPressEvent:
		w.handleKeyPress(evt)
	case xproto.ButtonPressEvent:
		w.handleButtonPress(evt)
	case xproto.MotionNotifyEvent:
		w.handleMotionNotify(evt)
	case xproto.ButtonReleaseEvent:
		w.drag = nil
	case xproto.PropertyNotifyEvent:
		w.handlePropertyNotify(evt)
	case xproto.ConfigureRequestEvent:
		w.handleConfigureRequest(evt)
	}
}

func (w *Wm) handleMapRequest(evt xproto.MapRequestEvent) {
	id := evt.Window
	for i := range w.workspaces {
		if w.workspaces[i].stackIndex(id) >= 0 {
			return
		}
	}

	geo, err := w.conn.Geometry(id)
	if err != nil {
		log.Debug().Err(err).Uint32("window", uint32(id)).Msg("map request for vanished window")
		return
	}
	screenWidth, screenHeight := w.conn.ScreenSize()
	maximizedHeight := screenHeight - TopPanelHeight - BottomPanelHeight

	// Full-width startup geometry is how most programs express "start me
	// maximized". Their real unmaximized size is unknown at this point, so
	// a placeholder is recorded for the eventual restore.
	maximized := geo.Width == screenWidth
	if maximized && geo.Height != maximizedHeight {
		w.conn.SetWindowHeight(id, maximizedHeight)
	}
	width, height := geo.Width, geo.Height
	if maximized {
		width, height = 1000, 800
	}
	x := (int16(screenWidth) - int16(width)) / 2
	y := (int16(screenHeight) + TopPanelHeight - int16(height)) / 2

	class, _ := w.conn.WindowClass(id)
	title, _ := w.conn.WindowTitle(id)
	icon, _ := w.conn.WindowIcon(id)
	c, err := newClient(w.conn, id, x, y, width, height, maximized, class, title, icon)
	if err != nil {
		log.Error().Err(err).Uint32("window", uint32(id)).Msg("failed to manage window")
		return
	}
	log.Info().Uint32("window", uint32(id)).Str("class", class).Msg("managing window")

	w.conn.MapWindow(c.id)
	w.conn.MapWindow(c.container)
	w.conn.SetFocus(c.id)

	ws := w.activeWorkspace()
	if prev := ws.top(); prev != nil {
		prev.Notify()
		ws.insertIntoTasklist(ws.tasklistIndex(prev.id)+1, c)
	} else {
		ws.tasklist = append(ws.tasklist, c)
	}
	ws.stack = append(ws.stack, c)

	w.conn.RaiseWindow(w.top.Window())
	w.conn.RaiseWindow(w.bottom.Window())
	w.top.Notify()
	w.bottom.Notify()
}

func (w *Wm) handleUnmapNotify(evt xproto.UnmapNotifyEvent) {
	// Reparenting a mapped window generates an UnmapNotify reported via the
	// root. Those arrive for windows adopted at startup and for synthetic
	// withdrawals; real unmaps of managed content are reported via the
	// container.
	if evt.Event == w.conn.RootWindow() {
		return
	}
	for i := range w.workspaces {
		ws := &w.workspaces[i]
		j := ws.stackIndex(evt.Window)
		if j < 0 {
			continue
		}
		c := ws.removeFromStack(j)
		if k := ws.tasklistIndex(evt.Window); k >= 0 {
			ws.removeFromTasklist(k)
		}
		c.Destroy()
		log.Info().Uint32("window", uint32(evt.Window)).Msg("unmanaged window")

		w.top.Notify()
		if i == w.active {
			if top := ws.top(); top != nil {
				top.Notify()
			}
			w.focusTop(ws)
			w.bottom.Notify()
		}
		return
	}
}

func (w *Wm) handleKeyPress(evt xproto.KeyPressEvent) {
	// Key events also arrive through spawn grabs whose keycode can overlap
	// a command key under a different modifier set; only the exact
	// combinations in the command grab table act here.
	switch x11.Keymod(evt.State) & x11.ModRelevant {
	case x11.Mod4:
		switch evt.Detail {
		case x11.KeyEscape:
			w.saveAndRestart()
		case x11.KeyK:
			w.raiseNextTasklistClient()
		case x11.KeyJ:
			w.raisePreviousTasklistClient()
		case x11.Key1, x11.Key2, x11.Key3, x11.Key4, x11.Key5, x11.Key6, x11.Key7, x11.Key8, x11.Key9:
			w.ChangeActiveWorkspace(int(evt.Detail - x11.Key1))
		case x11.KeyRight:
			w.ChangeActiveWorkspace(cycleNext(WorkspaceCount, w.active))
		case x11.KeyLeft:
			w.ChangeActiveWorkspace(cyclePrevious(WorkspaceCount, w.active))
		case x11.KeyX:
			if c := w.activeWorkspace().top(); c != nil {
				if err := w.conn.CloseWindow(c.id); err != nil {
					log.Debug().Err(err).Uint32("window", uint32(c.id)).Msg("close request failed")
				}
			}
		case x11.KeyM:
			if c := w.activeWorkspace().top(); c != nil {
				c.SetMaximized(!c.maximized)
			}
		}
	case x11.Mod4 | x11.ModShift:
		switch evt.Detail {
		case x11.KeyK:
			w.moveActiveForwardInTasklist()
		case x11.KeyJ:
			w.moveActiveBackwardInTasklist()
		case x11.Key1, x11.Key2, x11.Key3, x11.Key4, x11.Key5, x11.Key6, x11.Key7, x11.Key8, x11.Key9:
			w.moveActiveToWorkspace(int(evt.Detail - x11.Key1))
		}
	}
}

func (w *Wm) moveActiveToWorkspace(index int) {
	ws := w.activeWorkspace()
	c := ws.top()
	if c == nil {
		return
	}
	ws.stack = ws.stack[:len(ws.stack)-1]

	w.conn.UnmapWindow(c.container)
	if top := ws.top(); top != nil {
		top.Notify()
	}
	w.conn.RaiseWindow(c.container)
	w.conn.RaiseWindow(w.top.Window())
	w.conn.RaiseWindow(w.bottom.Window())
	w.focusTop(ws)

	if k := ws.tasklistIndex(c.id); k >= 0 {
		ws.removeFromTasklist(k)
	}

	target := &w.workspaces[index]
	target.stack = append(target.stack, c)
	target.tasklist = append(target.tasklist, c)

	w.top.Notify()
	w.bottom.Notify()
}

func (w *Wm) moveActiveForwardInTasklist() {
	ws := w.activeWorkspace()
	c := ws.top()
	if c == nil {
		return
	}
	i := ws.tasklistIndex(c.id)
	j := cycleNext(len(ws.tasklist), i)
	ws.tasklist[i], ws.tasklist[j] = ws.tasklist[j], ws.tasklist[i]
	w.top.Notify()
	w.bottom.Notify()
}

func (w *Wm) moveActiveBackwardInTasklist() {
	ws := w.activeWorkspace()
	c := ws.top()
	if c == nil {
		return
	}
	i := ws.tasklistIndex(c.id)
	j := cyclePrevious(len(ws.tasklist), i)
	ws.tasklist[i], ws.tasklist[j] = ws.tasklist[j], ws.tasklist[i]
	w.top.Notify()
	w.bottom.Notify()
}

func (w *Wm) raiseNextTasklistClient() {
	ws := w.activeWorkspace()
	c := ws.top()
	if c == nil {
		return
	}
	next := ws.tasklist[cycleNext(len(ws.tasklist), ws.tasklistIndex(c.id))]
	w.RaiseClient(ws.stackIndex(next.id))
}

func (w *Wm) raisePreviousTasklistClient() {
	ws := w.activeWorkspace()
	c := ws.top()
	if c == nil {
		return
	}
	previous := ws.tasklist[cyclePrevious(len(ws.tasklist), ws.tasklistIndex(c.id))]
	w.RaiseClient(ws.stackIndex(previous.id))
}

func (w *Wm) handleButtonPress(evt xproto.ButtonPressEvent) {
	ws := w.activeWorkspace()
	index := -1
	for i, c := range ws.stack {
		if c.id == evt.Event || c.container == evt.Event {
			index = i
			break
		}
	}
	if index < 0 {
		return
	}

	onContainer := ws.stack[index].container == evt.Event
	button := evt.Detail
	mod4 := x11.Keymod(evt.State)&x11.Mod4 != 0

	if onContainer {
		if !(button == 1 || (button == 3 && mod4)) {
			return
		}
	} else {
		// The click arrived through a sync grab on the content window.
		// Release and replay it so the program still sees it.
		w.conn.AllowReplayPointer()
	}

	w.RaiseClient(index)
	c := ws.top()
	if c.maximized {
		return
	}

	x, y := int(evt.EventX), int(evt.EventY)
	onTitlebar := x >= BorderWidth && x <= BorderWidth+int(c.width) &&
		y >= BorderWidth && y <= BorderWidth+TitlebarHeight

	switch {
	case button == 1 && (mod4 || (onContainer && onTitlebar)):
		w.drag = &dragState{kind: dragMove, x: evt.RootX, y: evt.RootY}
	case button == 3 && mod4:
		x := c.x + int16(c.width)
		y := c.y + int16(c.height)
		w.conn.WarpPointer(x, y)
		w.drag = &dragState{kind: dragResize, x: x, y: y}
	}
}

func (w *Wm) handleMotionNotify(evt xproto.MotionNotifyEvent) {
	if w.drag == nil {
		return
	}
	ws := w.activeWorkspace()
	var c *Client
	for _, candidate := range ws.stack {
		if candidate.id == evt.Event || candidate.container == evt.Event {
			c = candidate
			break
		}
	}
	if c == nil {
		return
	}

	dx := evt.RootX - w.drag.x
	dy := evt.RootY - w.drag.y
	switch w.drag.kind {
	case dragMove:
		c.SetX(c.x + dx)
		c.SetY(c.y + dy)
	case dragResize:
		width := int(c.width) + int(dx)
		if width < 1 {
			width = 1
		}
		height := int(c.height) + int(dy)
		if height < 1 {
			height = 1
		}
		c.SetSize(uint16(width), uint16(height))
	}
	w.drag.x = evt.RootX
	w.drag.y = evt.RootY
}

func (w *Wm) handlePropertyNotify(evt xproto.PropertyNotifyEvent) {
	for i := range w.workspaces {
		ws := &w.workspaces[i]
		j := ws.stackIndex(evt.Window)
		if j < 0 {
			continue
		}
		c := ws.stack[j]
		switch evt.Atom {
		case xproto.AtomWmClass:
			class, _ := w.conn.WindowClass(c.id)
			c.SetClass(class)
			w.top.Notify()
		case w.atomNetWmName:
			title, _ := w.conn.WindowTitle(c.id)
			c.SetTitle(title)
			if i == w.active {
				w.bottom.Notify()
			}
		case w.atomNetWmIcon:
			icon, _ := w.conn.WindowIcon(c.id)
			c.SetIcon(icon)
			if i == w.active {
				w.bottom.Notify()
			}
		}
		return
	}
}

func (w *Wm) handleConfigureRequest(evt xproto.ConfigureRequestEvent) {
	var c *Client
	for i := range w.workspaces {
		if j := w.workspaces[i].stackIndex(evt.Window); j >= 0 {
			c = w.workspaces[i].stack[j]
			break
		}
	}
	if c == nil {
		w.conn.ForwardConfigure(evt)
		return
	}
	// Position requests from managed clients are dropped; placement belongs
	// to the user.
	if evt.ValueMask&(xproto.ConfigWindowWidth|xproto.ConfigWindowHeight) == 0 {
		return
	}
	c.SetSize(evt.Width, evt.Height)
}

// ChangeActiveWorkspace switches the visible workspace, mapping the target
// containers and unmapping the previous ones. No-op when already active.
func (w *Wm) ChangeActiveWorkspace(index int) {
	if w.active == index {
		return
	}
	target := &w.workspaces[index]
	for i := len(target.stack) - 1; i >= 0; i-- {
		w.conn.MapWindow(target.stack[i].container)
		target.stack[i].Notify()
	}
	w.focusTop(target)
	for _, c := range w.activeWorkspace().stack {
		w.conn.UnmapWindow(c.container)
	}
	w.active = index
	w.top.Notify()
	w.bottom.Notify()
}

// RaiseClient moves the client at the given stack index to the top of the
// active workspace, focusing it. Raising the topmost client is a no-op.
func (w *Wm) RaiseClient(stackIndex int) {
	ws := w.activeWorkspace()
	if stackIndex == len(ws.stack)-1 {
		return
	}
	c := ws.removeFromStack(stackIndex)
	if top := ws.top(); top != nil {
		top.Notify()
	}
	w.conn.RaiseWindow(c.container)
	w.conn.RaiseWindow(w.top.Window())
	w.conn.RaiseWindow(w.bottom.Window())
	w.conn.SetFocus(c.id)
	c.Notify()
	ws.stack = append(ws.stack, c)
	w.bottom.Notify()
}

// RequestRedraw repaints the frame of every dirty, non-maximized client on
// the active workspace.
func (w *Wm) RequestRedraw() {
	stack := w.activeWorkspace().stack
	for i, c := range stack {
		if !c.needRedraw || c.maximized {
			continue
		}
		c.needRedraw = false
		w.painter.PaintFrame(c, i == len(stack)-1)
	}
}

// Teardown releases every managed window back to the root so they survive
// the manager exiting.
func (w *Wm) Teardown() {
	for i := range w.workspaces {
		for _, c := range w.workspaces[i].stack {
			c.Destroy()
		}
	}
}
