package wm_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jezek/xgb/xproto"

	"github.com/vhslib/vaporwm/internal/wm"
	"github.com/vhslib/vaporwm/internal/x11"
)

const (
	fakeAtomNetWmName xproto.Atom = 300
	fakeAtomNetWmIcon xproto.Atom = 301
)

// fakeConn implements wm.Conn in memory, recording every command so tests
// can assert both state and the requests sent to the server.
type fakeConn struct {
	screenWidth  uint16
	screenHeight uint16
	root         xproto.Window
	next         xproto.Window

	commands []string

	geometry   map[xproto.Window]x11.Geometry
	attributes map[xproto.Window]x11.Attributes
	children   []xproto.Window
	classes    map[xproto.Window]string
	titles     map[xproto.Window]string
	icons      map[xproto.Window]*x11.Icon
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		screenWidth:  1920,
		screenHeight: 1080,
		root:         1,
		next:         1000,
		geometry:     map[xproto.Window]x11.Geometry{},
		attributes:   map[xproto.Window]x11.Attributes{},
		classes:      map[xproto.Window]string{},
		titles:       map[xproto.Window]string{},
		icons:        map[xproto.Window]*x11.Icon{},
	}
}

func (f *fakeConn) record(format string, args ...any) {
	f.commands = append(f.commands, fmt.Sprintf(format, args...))
}

func (f *fakeConn) RootWindow() xproto.Window    { return f.root }
func (f *fakeConn) ScreenSize() (uint16, uint16) { return f.screenWidth, f.screenHeight }
func (f *fakeConn) Cursors() x11.Cursors         { return x11.Cursors{} }

func (f *fakeConn) Atom(name string) (xproto.Atom, error) {
	switch name {
	case "_NET_WM_NAME":
		return fakeAtomNetWmName, nil
	case "_NET_WM_ICON":
		return fakeAtomNetWmIcon, nil
	}
	return 0, nil
}

func (f *fakeConn) Geometry(win xproto.Window) (x11.Geometry, error) {
	geo, ok := f.geometry[win]
	if !ok {
		return x11.Geometry{}, errors.New("no such window")
	}
	return geo, nil
}

func (f *fakeConn) WindowAttributes(win xproto.Window) (x11.Attributes, error) {
	attrs, ok := f.attributes[win]
	if !ok {
		return x11.Attributes{}, errors.New("no such window")
	}
	return attrs, nil
}

func (f *fakeConn) Children(xproto.Window) ([]xproto.Window, error) {
	return f.children, nil
}

func (f *fakeConn) WindowClass(win xproto.Window) (string, error) { return f.classes[win], nil }
func (f *fakeConn) WindowTitle(win xproto.Window) (string, error) { return f.titles[win], nil }
func (f *fakeConn) WindowIcon(win xproto.Window) (*x11.Icon, error) {
	return f.icons[win], nil
}

func (f *fakeConn) CreateWindow(x, y int16, width, height uint16, bg uint32, eventMask uint32) (xproto.Window, error) {
	f.next++
	f.record("create %d %dx%d+%d+%d", f.next, width, height, x, y)
	return f.next, nil
}

func (f *fakeConn) MapWindow(win xproto.Window)     { f.record("map %d", win) }
func (f *fakeConn) UnmapWindow(win xproto.Window)   { f.record("unmap %d", win) }
func (f *fakeConn) DestroyWindow(win xproto.Window) { f.record("destroy %d", win) }

func (f *fakeConn) ReparentWindow(win, parent xproto.Window, x, y int16) {
	f.record("reparent %d %d", win, parent)
}

func (f *fakeConn) SetWindowX(win xproto.Window, x int16) { f.record("set-x %d %d", win, x) }
func (f *fakeConn) SetWindowY(win xproto.Window, y int16) { f.record("set-y %d %d", win, y) }
func (f *fakeConn) SetWindowWidth(win xproto.Window, width uint16) {
	f.record("set-width %d %d", win, width)
}
func (f *fakeConn) SetWindowHeight(win xproto.Window, height uint16) {
	f.record("set-height %d %d", win, height)
}
func (f *fakeConn) SetBorderWidth(win xproto.Window, width uint16) {
	f.record("set-border %d %d", win, width)
}
func (f *fakeConn) RaiseWindow(win xproto.Window) { f.record("raise %d", win) }
func (f *fakeConn) SetFocus(win xproto.Window)    { f.record("focus %d", win) }
func (f *fakeConn) SetEventMask(win xproto.Window, mask uint32) {
	f.record("event-mask %d", win)
}
func (f *fakeConn) WarpPointer(x, y int16) { f.record("warp %d %d", x, y) }
func (f *fakeConn) AllowReplayPointer()    { f.record("replay") }

func (f *fakeConn) AddToSaveSet(win xproto.Window)      { f.record("save-set add %d", win) }
func (f *fakeConn) RemoveFromSaveSet(win xproto.Window) { f.record("save-set remove %d", win) }

func (f *fakeConn) GrabButton(win xproto.Window, button xproto.Button, mod x11.Keymod, eventMask uint16, cursor xproto.Cursor, ownerEvents, sync bool) error {
	f.record("grab-button %d %d", win, button)
	return nil
}

func (f *fakeConn) UngrabButton(win xproto.Window, button xproto.Button, mod x11.Keymod) error {
	f.record("ungrab-button %d %d", win, button)
	return nil
}

func (f *fakeConn) SetWmState(win xproto.Window) error {
	f.record("wm-state %d", win)
	return nil
}

func (f *fakeConn) CloseWindow(win xproto.Window) error {
	f.record("close %d", win)
	return nil
}

func (f *fakeConn) ForwardConfigure(evt xproto.ConfigureRequestEvent) {
	f.record("forward-configure %d", evt.Window)
}

type fakePanel struct {
	window   xproto.Window
	notified int
}

func (p *fakePanel) Notify()               { p.notified++ }
func (p *fakePanel) Window() xproto.Window { return p.window }

type paintCall struct {
	window xproto.Window
	active bool
}

type fakePainter struct {
	calls []paintCall
}

func (p *fakePainter) PaintFrame(c *wm.Client, active bool) {
	p.calls = append(p.calls, paintCall{c.Container(), active})
}

type fixture struct {
	wm      *wm.Wm
	conn    *fakeConn
	top     *fakePanel
	bottom  *fakePanel
	painter *fakePainter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithState(t, newFakeConn(), wm.SessionState{})
}

func newFixtureWithState(t *testing.T, conn *fakeConn, state wm.SessionState) *fixture {
	t.Helper()
	w, err := wm.New(conn, state)
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		wm:      w,
		conn:    conn,
		top:     &fakePanel{window: 2},
		bottom:  &fakePanel{window: 3},
		painter: &fakePainter{},
	}
	w.Bind(f.top, f.bottom, f.painter)
	return f
}

// mapWindow runs a map request for win with the given starting geometry and
// returns the managed client.
func (f *fixture) mapWindow(t *testing.T, win xproto.Window, geo x11.Geometry) *wm.Client {
	t.Helper()
	f.conn.geometry[win] = geo
	f.wm.HandleEvent(xproto.MapRequestEvent{Window: win})
	stack := f.wm.ActiveWorkspace().Stack()
	if len(stack) == 0 || stack[len(stack)-1].ID() != win {
		t.Fatalf("window %d did not become the focused client", win)
	}
	return stack[len(stack)-1]
}

func (f *fixture) checkInvariants(t *testing.T) {
	t.Helper()
	for i := 0; i < wm.WorkspaceCount; i++ {
		ws := f.wm.Workspace(i)
		stack, tasklist := ws.Stack(), ws.Tasklist()
		if len(stack) != len(tasklist) {
			t.Fatalf("workspace %d: stack has %d clients, tasklist has %d", i, len(stack), len(tasklist))
		}
		for _, c := range stack {
			count := 0
			for _, other := range tasklist {
				if other.ID() == c.ID() {
					count++
				}
			}
			if count != 1 {
				t.Fatalf("workspace %d: client %d appears %d times in tasklist", i, c.ID(), count)
			}
		}
	}
}

func ids(clients []*wm.Client) []xproto.Window {
	out := make([]xproto.Window, len(clients))
	for i, c := range clients {
		out[i] = c.ID()
	}
	return out
}

func wantIDs(t *testing.T, got []*wm.Client, want ...xproto.Window) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", ids(got), want)
	}
	for i := range want {
		if got[i].ID() != want[i] {
			t.Fatalf("got %v, want %v", ids(got), want)
		}
	}
}

func TestMapRequestCentersWindow(t *testing.T) {
	f := newFixture(t)
	c := f.mapWindow(t, 50, x11.Geometry{X: 5, Y: 5, Width: 800, Height: 600})

	wantIDs(t, f.wm.ActiveWorkspace().Stack(), 50)
	wantIDs(t, f.wm.ActiveWorkspace().Tasklist(), 50)
	if c.X() != (1920-800)/2 {
		t.Fatalf("got x %d, want %d", c.X(), (1920-800)/2)
	}
	if c.Y() != (1080+28-600)/2 {
		t.Fatalf("got y %d, want %d", c.Y(), (1080+28-600)/2)
	}
	want := fmt.Sprintf("focus %d", 50)
	found := false
	for _, cmd := range f.conn.commands {
		if cmd == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("no focus command for new window in %v", f.conn.commands)
	}
	f.checkInvariants(t)
}

func TestMapRequestInsertsAfterFocusedInTasklist(t *testing.T) {
	f := newFixture(t)
	f.mapWindow(t, 50, x11.Geometry{Width: 400, Height: 300})
	f.mapWindow(t, 51, x11.Geometry{Width: 400, Height: 300})
	f.mapWindow(t, 52, x11.Geometry{Width: 400, Height: 300})

	// Raise 50, then map a new window: it lands right after 50 in the
	// tasklist rather than at the end.
	f.wm.RaiseClient(0)
	f.mapWindow(t, 53, x11.Geometry{Width: 400, Height: 300})

	wantIDs(t, f.wm.ActiveWorkspace().Tasklist(), 50, 53, 51, 52)
	wantIDs(t, f.wm.ActiveWorkspace().Stack(), 51, 52, 50, 53)
	f.checkInvariants(t)
}

func TestMapRequestIgnoresManagedWindow(t *testing.T) {
	f := newFixture(t)
	f.mapWindow(t, 50, x11.Geometry{Width: 400, Height: 300})
	before := len(f.conn.commands)
	f.wm.HandleEvent(xproto.MapRequestEvent{Window: 50})
	if len(f.conn.commands) != before {
		t.Fatalf("managed window triggered commands: %v", f.conn.commands[before:])
	}
	wantIDs(t, f.wm.ActiveWorkspace().Stack(), 50)
}

func TestMapRequestMaximizedHeuristic(t *testing.T) {
	f := newFixture(t)
	c := f.mapWindow(t, 50, x11.Geometry{Width: 1920, Height: 500})

	if !c.Maximized() {
		t.Fatal("full-width window was not treated as maximized")
	}
	if c.Width() != 1000 || c.Height() != 800 {
		t.Fatalf("got placeholder size %dx%d, want 1000x800", c.Width(), c.Height())
	}
	// The mismatched height is corrected before the window is managed.
	want := fmt.Sprintf("set-height %d %d", 50, 1080-28-30)
	found := false
	for _, cmd := range f.conn.commands {
		if cmd == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("height was not forced to the maximized band in %v", f.conn.commands)
	}
	if c.ContainerWidth() != 1920 || c.ContainerHeight() != 1080-28-30 {
		t.Fatalf("container %dx%d does not fill the usable band", c.ContainerWidth(), c.ContainerHeight())
	}
}

func TestUnmapRemovesClient(t *testing.T) {
	f := newFixture(t)
	a := f.mapWindow(t, 50, x11.Geometry{Width: 400, Height: 300})
	f.mapWindow(t, 51, x11.Geometry{Width: 400, Height: 300})

	f.wm.HandleEvent(xproto.UnmapNotifyEvent{Event: a.Container(), Window: 50})

	wantIDs(t, f.wm.ActiveWorkspace().Stack(), 51)
	wantIDs(t, f.wm.ActiveWorkspace().Tasklist(), 51)
	f.checkInvariants(t)

	// Teardown releases the window back to the root.
	want := fmt.Sprintf("reparent %d %d", 50, f.conn.root)
	found := false
	for _, cmd := range f.conn.commands {
		if cmd == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("window was not reparented back to the root in %v", f.conn.commands)
	}
}

func TestUnmapOfFocusedRefocuses(t *testing.T) {
	f := newFixture(t)
	f.mapWindow(t, 50, x11.Geometry{Width: 400, Height: 300})
	b := f.mapWindow(t, 51, x11.Geometry{Width: 400, Height: 300})

	f.conn.commands = nil
	f.wm.HandleEvent(xproto.UnmapNotifyEvent{Event: b.Container(), Window: 51})

	wantIDs(t, f.wm.ActiveWorkspace().Stack(), 50)
	want := fmt.Sprintf("focus %d", 50)
	found := false
	for _, cmd := range f.conn.commands {
		if cmd == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("focus did not return to the remaining client in %v", f.conn.commands)
	}
}

func TestUnmapReportedViaRootIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.mapWindow(t, 50, x11.Geometry{Width: 400, Height: 300})

	// Reparent artifacts and synthetic withdrawals arrive with the root as
	// the reporting window.
	f.wm.HandleEvent(xproto.UnmapNotifyEvent{Event: f.conn.root, Window: 50})

	wantIDs(t, f.wm.ActiveWorkspace().Stack(), 50)
}

func TestRaiseTopmostIsNoop(t *testing.T) {
	f := newFixture(t)
	f.mapWindow(t, 50, x11.Geometry{Width: 400, Height: 300})
	f.mapWindow(t, 51, x11.Geometry{Width: 400, Height: 300})

	before := len(f.conn.commands)
	f.wm.RaiseClient(1)
	if len(f.conn.commands) != before {
		t.Fatalf("raising the topmost client issued commands: %v", f.conn.commands[before:])
	}
	wantIDs(t, f.wm.ActiveWorkspace().Stack(), 50, 51)
}

func TestRaiseReordersStackOnly(t *testing.T) {
	f := newFixture(t)
	f.mapWindow(t, 50, x11.Geometry{Width: 400, Height: 300})
	f.mapWindow(t, 51, x11.Geometry{Width: 400, Height: 300})
	f.mapWindow(t, 52, x11.Geometry{Width: 400, Height: 300})

	f.wm.RaiseClient(0)

	wantIDs(t, f.wm.ActiveWorkspace().Stack(), 51, 52, 50)
	wantIDs(t, f.wm.ActiveWorkspace().Tasklist(), 50, 51, 52)
	f.checkInvariants(t)
}

func TestTitlebarPressRaisesAndStartsMove(t *testing.T) {
	f := newFixture(t)
	a := f.mapWindow(t, 50, x11.Geometry{Width: 400, Height: 300})
	f.mapWindow(t, 51, x11.Geometry{Width: 400, Height: 300})
	f.mapWindow(t, 52, x11.Geometry{Width: 400, Height: 300})

	f.wm.HandleEvent(xproto.ButtonPressEvent{
		Detail: 1,
		Event:  a.Container(),
		EventX: 6,
		EventY: 6,
		RootX:  400,
		RootY:  400,
	})

	wantIDs(t, f.wm.ActiveWorkspace().Stack(), 51, 52, 50)
	wantIDs(t, f.wm.ActiveWorkspace().Tasklist(), 50, 51, 52)

	x, y := a.X(), a.Y()
	f.wm.HandleEvent(xproto.MotionNotifyEvent{Event: a.Container(), RootX: 405, RootY: 410})
	if a.X() != x+5 || a.Y() != y+10 {
		t.Fatalf("got position (%d,%d), want (%d,%d)", a.X(), a.Y(), x+5, y+10)
	}

	// Deltas accumulate from the previous pointer position, not the press.
	f.wm.HandleEvent(xproto.MotionNotifyEvent{Event: a.Container(), RootX: 404, RootY: 410})
	if a.X() != x+4 || a.Y() != y+10 {
		t.Fatalf("got position (%d,%d), want (%d,%d)", a.X(), a.Y(), x+4, y+10)
	}

	f.wm.HandleEvent(xproto.ButtonReleaseEvent{})
	f.wm.HandleEvent(xproto.MotionNotifyEvent{Event: a.Container(), RootX: 500, RootY: 500})
	if a.X() != x+4 {
		t.Fatal("motion after release still moved the client")
	}
}

func TestBorderPressOutsideTitlebarOnlyRaises(t *testing.T) {
	f := newFixture(t)
	a := f.mapWindow(t, 50, x11.Geometry{Width: 400, Height: 300})
	f.mapWindow(t, 51, x11.Geometry{Width: 400, Height: 300})

	f.wm.HandleEvent(xproto.ButtonPressEvent{
		Detail: 1,
		Event:  a.Container(),
		EventX: 2,
		EventY: 200,
		RootX:  400,
		RootY:  400,
	})
	wantIDs(t, f.wm.ActiveWorkspace().Stack(), 51, 50)

	x := a.X()
	f.wm.HandleEvent(xproto.MotionNotifyEvent{Event: a.Container(), RootX: 450, RootY: 400})
	if a.X() != x {
		t.Fatal("press outside the titlebar started a drag")
	}
}

func TestContentPressReplaysPointer(t *testing.T) {
	f := newFixture(t)
	f.mapWindow(t, 50, x11.Geometry{Width: 400, Height: 300})
	f.mapWindow(t, 51, x11.Geometry{Width: 400, Height: 300})

	f.conn.commands = nil
	f.wm.HandleEvent(xproto.ButtonPressEvent{Detail: 1, Event: 50, EventX: 100, EventY: 100})

	if len(f.conn.commands) == 0 || f.conn.commands[0] != "replay" {
		t.Fatalf("content press did not replay the pointer first: %v", f.conn.commands)
	}
	wantIDs(t, f.wm.ActiveWorkspace().Stack(), 51, 50)
}

func TestResizeDragAccumulatesAndClamps(t *testing.T) {
	f := newFixture(t)
	c := f.mapWindow(t, 50, x11.Geometry{Width: 100, Height: 100})

	f.conn.commands = nil
	f.wm.HandleEvent(xproto.ButtonPressEvent{
		Detail: 3,
		State:  uint16(x11.Mod4),
		Event:  c.Container(),
		EventX: 50,
		EventY: 50,
	})

	cornerX := c.X() + int16(c.Width())
	cornerY := c.Y() + int16(c.Height())
	want := fmt.Sprintf("warp %d %d", cornerX, cornerY)
	found := false
	for _, cmd := range f.conn.commands {
		if cmd == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("pointer was not warped to the corner in %v", f.conn.commands)
	}

	f.wm.HandleEvent(xproto.MotionNotifyEvent{Event: c.Container(), RootX: cornerX + 50, RootY: cornerY})
	if c.Width() != 150 || c.Height() != 100 {
		t.Fatalf("got %dx%d, want 150x100", c.Width(), c.Height())
	}

	f.wm.HandleEvent(xproto.MotionNotifyEvent{Event: c.Container(), RootX: cornerX + 50, RootY: cornerY - 80})
	if c.Width() != 150 || c.Height() != 20 {
		t.Fatalf("got %dx%d, want 150x20", c.Width(), c.Height())
	}

	f.wm.HandleEvent(xproto.MotionNotifyEvent{Event: c.Container(), RootX: cornerX + 50, RootY: cornerY - 280})
	if c.Width() != 150 || c.Height() != 1 {
		t.Fatalf("got %dx%d, want height clamped to 1", c.Width(), c.Height())
	}
}

func TestMaximizedClientDoesNotDrag(t *testing.T) {
	f := newFixture(t)
	c := f.mapWindow(t, 50, x11.Geometry{Width: 400, Height: 300})
	c.SetMaximized(true)

	f.wm.HandleEvent(xproto.ButtonPressEvent{Detail: 1, Event: c.Container(), EventX: 6, EventY: 6})
	x := c.X()
	f.wm.HandleEvent(xproto.MotionNotifyEvent{Event: c.Container(), RootX: 100, RootY: 100})
	if c.X() != x {
		t.Fatal("maximized client moved")
	}
}

func TestTasklistReorderForward(t *testing.T) {
	f := newFixture(t)
	f.mapWindow(t, 50, x11.Geometry{Width: 400, Height: 300})
	f.mapWindow(t, 51, x11.Geometry{Width: 400, Height: 300})
	f.mapWindow(t, 52, x11.Geometry{Width: 400, Height: 300})

	// Focus 51, then push it forward past 52.
	f.wm.RaiseClient(1)
	stackBefore := ids(f.wm.ActiveWorkspace().Stack())

	f.wm.HandleEvent(xproto.KeyPressEvent{
		Detail: x11.KeyK,
		State:  uint16(x11.Mod4 | x11.ModShift),
	})

	wantIDs(t, f.wm.ActiveWorkspace().Tasklist(), 50, 52, 51)
	stackAfter := ids(f.wm.ActiveWorkspace().Stack())
	for i := range stackBefore {
		if stackBefore[i] != stackAfter[i] {
			t.Fatalf("stack changed from %v to %v", stackBefore, stackAfter)
		}
	}
	f.checkInvariants(t)
}

func TestTasklistReorderWrapsAround(t *testing.T) {
	f := newFixture(t)
	f.mapWindow(t, 50, x11.Geometry{Width: 400, Height: 300})
	f.mapWindow(t, 51, x11.Geometry{Width: 400, Height: 300})

	// 51 is focused and last in the tasklist; forward wraps it to slot 0.
	f.wm.HandleEvent(xproto.KeyPressEvent{
		Detail: x11.KeyK,
		State:  uint16(x11.Mod4 | x11.ModShift),
	})
	wantIDs(t, f.wm.ActiveWorkspace().Tasklist(), 51, 50)
}

func TestRaiseCyclesThroughTasklist(t *testing.T) {
	f := newFixture(t)
	f.mapWindow(t, 50, x11.Geometry{Width: 400, Height: 300})
	f.mapWindow(t, 51, x11.Geometry{Width: 400, Height: 300})
	f.mapWindow(t, 52, x11.Geometry{Width: 400, Height: 300})

	next := xproto.KeyPressEvent{Detail: x11.KeyK, State: uint16(x11.Mod4)}

	// Tasklist is 50,51,52 with 52 focused; next wraps to 50.
	f.wm.HandleEvent(next)
	wantIDs(t, f.wm.ActiveWorkspace().Stack(), 51, 52, 50)
	f.wm.HandleEvent(next)
	wantIDs(t, f.wm.ActiveWorkspace().Stack(), 52, 50, 51)

	previous := xproto.KeyPressEvent{Detail: x11.KeyJ, State: uint16(x11.Mod4)}
	f.wm.HandleEvent(previous)
	wantIDs(t, f.wm.ActiveWorkspace().Stack(), 52, 51, 50)
}

func TestWorkspaceSwitch(t *testing.T) {
	f := newFixture(t)
	a := f.mapWindow(t, 50, x11.Geometry{Width: 400, Height: 300})

	f.conn.commands = nil
	f.wm.HandleEvent(xproto.KeyPressEvent{Detail: x11.Key2, State: uint16(x11.Mod4)})

	if f.wm.ActiveWorkspaceIndex() != 1 {
		t.Fatalf("got workspace %d, want 1", f.wm.ActiveWorkspaceIndex())
	}
	wantUnmap := fmt.Sprintf("unmap %d", a.Container())
	wantFocus := fmt.Sprintf("focus %d", f.conn.root)
	foundUnmap, foundFocus := false, false
	for _, cmd := range f.conn.commands {
		if cmd == wantUnmap {
			foundUnmap = true
		}
		if cmd == wantFocus {
			foundFocus = true
		}
	}
	if !foundUnmap {
		t.Fatalf("container was not unmapped in %v", f.conn.commands)
	}
	if !foundFocus {
		t.Fatalf("focus was not dropped to the root in %v", f.conn.commands)
	}

	f.conn.commands = nil
	f.wm.HandleEvent(xproto.KeyPressEvent{Detail: x11.Key1, State: uint16(x11.Mod4)})
	wantMap := fmt.Sprintf("map %d", a.Container())
	foundMap := false
	for _, cmd := range f.conn.commands {
		if cmd == wantMap {
			foundMap = true
		}
	}
	if !foundMap {
		t.Fatalf("container was not mapped again in %v", f.conn.commands)
	}
	wantIDs(t, f.wm.ActiveWorkspace().Stack(), 50)
}

func TestWorkspaceSwitchToSameIsNoop(t *testing.T) {
	f := newFixture(t)
	f.mapWindow(t, 50, x11.Geometry{Width: 400, Height: 300})
	before := len(f.conn.commands)
	f.wm.ChangeActiveWorkspace(0)
	if len(f.conn.commands) != before {
		t.Fatalf("switching to the active workspace issued commands: %v", f.conn.commands[before:])
	}
}

func TestWorkspaceCyclingWrapsAround(t *testing.T) {
	f := newFixture(t)
	f.wm.HandleEvent(xproto.KeyPressEvent{Detail: x11.KeyLeft, State: uint16(x11.Mod4)})
	if f.wm.ActiveWorkspaceIndex() != 8 {
		t.Fatalf("got workspace %d, want 8", f.wm.ActiveWorkspaceIndex())
	}
	f.wm.HandleEvent(xproto.KeyPressEvent{Detail: x11.KeyRight, State: uint16(x11.Mod4)})
	if f.wm.ActiveWorkspaceIndex() != 0 {
		t.Fatalf("got workspace %d, want 0", f.wm.ActiveWorkspaceIndex())
	}
}

func TestMoveClientToWorkspace(t *testing.T) {
	f := newFixture(t)
	f.mapWindow(t, 50, x11.Geometry{Width: 400, Height: 300})
	b := f.mapWindow(t, 51, x11.Geometry{Width: 400, Height: 300})

	f.conn.commands = nil
	f.wm.HandleEvent(xproto.KeyPressEvent{Detail: x11.Key3, State: uint16(x11.Mod4 | x11.ModShift)})

	wantIDs(t, f.wm.ActiveWorkspace().Stack(), 50)
	wantIDs(t, f.wm.Workspace(2).Stack(), 51)
	wantIDs(t, f.wm.Workspace(2).Tasklist(), 51)
	f.checkInvariants(t)

	wantUnmap := fmt.Sprintf("unmap %d", b.Container())
	wantFocus := fmt.Sprintf("focus %d", 50)
	foundUnmap, foundFocus := false, false
	for _, cmd := range f.conn.commands {
		if cmd == wantUnmap {
			foundUnmap = true
		}
		if cmd == wantFocus {
			foundFocus = true
		}
	}
	if !foundUnmap {
		t.Fatalf("moved container was not unmapped in %v", f.conn.commands)
	}
	if !foundFocus {
		t.Fatalf("focus did not return to the source top in %v", f.conn.commands)
	}

	// Switching to the target shows the moved client focused.
	f.wm.HandleEvent(xproto.KeyPressEvent{Detail: x11.Key3, State: uint16(x11.Mod4)})
	wantIDs(t, f.wm.ActiveWorkspace().Stack(), 51)
}

func TestCloseRequestsOnlyFocused(t *testing.T) {
	f := newFixture(t)
	f.mapWindow(t, 50, x11.Geometry{Width: 400, Height: 300})
	f.mapWindow(t, 51, x11.Geometry{Width: 400, Height: 300})

	f.conn.commands = nil
	f.wm.HandleEvent(xproto.KeyPressEvent{Detail: x11.KeyX, State: uint16(x11.Mod4)})

	if len(f.conn.commands) != 1 || f.conn.commands[0] != fmt.Sprintf("close %d", 51) {
		t.Fatalf("got %v, want a single close for the focused client", f.conn.commands)
	}
	// The client stays managed until the window actually unmaps.
	wantIDs(t, f.wm.ActiveWorkspace().Stack(), 50, 51)
}

func TestKeyPressOutsideCommandTableIgnored(t *testing.T) {
	f := newFixture(t)
	f.mapWindow(t, 50, x11.Geometry{Width: 400, Height: 300})
	f.mapWindow(t, 51, x11.Geometry{Width: 400, Height: 300})

	// Chords like these reach the manager through spawn grabs; they are not
	// in the command table and must not act on windows.
	f.conn.commands = nil
	f.wm.HandleEvent(xproto.KeyPressEvent{Detail: x11.KeyX, State: uint16(x11.Mod4 | x11.ModShift)})
	f.wm.HandleEvent(xproto.KeyPressEvent{Detail: x11.KeyK, State: uint16(x11.Mod4 | x11.ModCtrl)})

	if len(f.conn.commands) != 0 {
		t.Fatalf("non-command chords issued commands: %v", f.conn.commands)
	}
	wantIDs(t, f.wm.ActiveWorkspace().Stack(), 50, 51)
}

func TestKeyPressIgnoresLockModifiers(t *testing.T) {
	f := newFixture(t)
	f.wm.HandleEvent(xproto.KeyPressEvent{
		Detail: x11.Key2,
		State:  uint16(x11.Mod4 | x11.ModLock | x11.Mod2),
	})
	if f.wm.ActiveWorkspaceIndex() != 1 {
		t.Fatalf("got workspace %d, want 1", f.wm.ActiveWorkspaceIndex())
	}
}

func TestPropertyNotifyUpdatesMetadata(t *testing.T) {
	f := newFixture(t)
	c := f.mapWindow(t, 50, x11.Geometry{Width: 400, Height: 300})

	f.conn.titles[50] = "editor"
	topBefore, bottomBefore := f.top.notified, f.bottom.notified
	f.wm.HandleEvent(xproto.PropertyNotifyEvent{Window: 50, Atom: fakeAtomNetWmName})
	if c.Title() != "editor" {
		t.Fatalf("got title %q, want %q", c.Title(), "editor")
	}
	if f.bottom.notified != bottomBefore+1 {
		t.Fatal("title change did not notify the bottom panel")
	}

	f.conn.classes[50] = "Editor"
	f.wm.HandleEvent(xproto.PropertyNotifyEvent{Window: 50, Atom: xproto.AtomWmClass})
	if c.Class() != "Editor" {
		t.Fatalf("got class %q, want %q", c.Class(), "Editor")
	}
	if f.top.notified != topBefore+1 {
		t.Fatal("class change did not notify the top panel")
	}
}

func TestPropertyNotifyInactiveWorkspaceSkipsBottomPanel(t *testing.T) {
	f := newFixture(t)
	f.mapWindow(t, 50, x11.Geometry{Width: 400, Height: 300})
	f.wm.HandleEvent(xproto.KeyPressEvent{Detail: x11.Key3, State: uint16(x11.Mod4 | x11.ModShift)})

	f.conn.titles[50] = "elsewhere"
	before := f.bottom.notified
	f.wm.HandleEvent(xproto.PropertyNotifyEvent{Window: 50, Atom: fakeAtomNetWmName})
	if f.bottom.notified != before {
		t.Fatal("title change on an inactive workspace notified the bottom panel")
	}
}

func TestConfigureRequestUnmanagedForwarded(t *testing.T) {
	f := newFixture(t)
	f.conn.commands = nil
	f.wm.HandleEvent(xproto.ConfigureRequestEvent{
		Window:    77,
		ValueMask: xproto.ConfigWindowX | xproto.ConfigWindowWidth,
		X:         10,
		Width:     500,
	})
	if len(f.conn.commands) != 1 || f.conn.commands[0] != "forward-configure 77" {
		t.Fatalf("got %v, want the request forwarded verbatim", f.conn.commands)
	}
}

func TestConfigureRequestPositionOnlyDropped(t *testing.T) {
	f := newFixture(t)
	c := f.mapWindow(t, 50, x11.Geometry{Width: 400, Height: 300})

	f.conn.commands = nil
	f.wm.HandleEvent(xproto.ConfigureRequestEvent{
		Window:    50,
		ValueMask: xproto.ConfigWindowX | xproto.ConfigWindowY,
		X:         0,
		Y:         0,
	})
	if len(f.conn.commands) != 0 {
		t.Fatalf("position-only request issued commands: %v", f.conn.commands)
	}
	if c.X() == 0 {
		t.Fatal("position-only request moved the client")
	}
}

func TestConfigureRequestSizeApplied(t *testing.T) {
	f := newFixture(t)
	c := f.mapWindow(t, 50, x11.Geometry{Width: 400, Height: 300})

	f.wm.HandleEvent(xproto.ConfigureRequestEvent{
		Window:    50,
		ValueMask: xproto.ConfigWindowWidth | xproto.ConfigWindowHeight,
		Width:     640,
		Height:    480,
	})
	if c.Width() != 640 || c.Height() != 480 {
		t.Fatalf("got %dx%d, want 640x480", c.Width(), c.Height())
	}
}

func TestRedrawPaintsDirtyFramesOnce(t *testing.T) {
	f := newFixture(t)
	a := f.mapWindow(t, 50, x11.Geometry{Width: 400, Height: 300})
	b := f.mapWindow(t, 51, x11.Geometry{Width: 400, Height: 300})

	f.wm.RequestRedraw()
	if len(f.painter.calls) != 2 {
		t.Fatalf("got %d paints, want 2", len(f.painter.calls))
	}
	if f.painter.calls[0].window != a.Container() || f.painter.calls[0].active {
		t.Fatalf("bottom client painted wrong: %+v", f.painter.calls[0])
	}
	if f.painter.calls[1].window != b.Container() || !f.painter.calls[1].active {
		t.Fatalf("top client painted wrong: %+v", f.painter.calls[1])
	}

	f.painter.calls = nil
	f.wm.RequestRedraw()
	if len(f.painter.calls) != 0 {
		t.Fatalf("clean frames were repainted: %+v", f.painter.calls)
	}

	b.Notify()
	f.wm.RequestRedraw()
	if len(f.painter.calls) != 1 || f.painter.calls[0].window != b.Container() {
		t.Fatalf("got %+v, want a single repaint of the notified client", f.painter.calls)
	}
}

func TestRedrawSkipsMaximizedFrames(t *testing.T) {
	f := newFixture(t)
	c := f.mapWindow(t, 50, x11.Geometry{Width: 400, Height: 300})
	c.SetMaximized(true)

	f.wm.RequestRedraw()
	if len(f.painter.calls) != 0 {
		t.Fatalf("maximized frame was painted: %+v", f.painter.calls)
	}
}
