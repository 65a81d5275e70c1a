package wm_test

import (
	"fmt"
	"testing"

	"github.com/vhslib/vaporwm/internal/x11"
)

func wantCommands(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d commands, want %d:\ngot  %v\nwant %v", len(got), len(want), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("command %d: got %q, want %q\nfull: %v", i, got[i], want[i], got)
		}
	}
}

func TestManageCommandOrder(t *testing.T) {
	f := newFixture(t)
	f.conn.commands = nil
	f.mapWindow(t, 50, x11.Geometry{Width: 800, Height: 600})

	// Window 50 centers to (560,254); its container 1001 wraps it with a
	// 5px border and a 25px titlebar.
	wantCommands(t, f.conn.commands, []string{
		"create 1001 810x635+555+224",
		"grab-button 1001 1",
		"grab-button 1001 3",
		"save-set add 50",
		"reparent 50 1001",
		"grab-button 50 1",
		"grab-button 50 3",
		"event-mask 50",
		"set-border 50 0",
		"wm-state 50",
		"map 50",
		"map 1001",
		"focus 50",
		"raise 2",
		"raise 3",
	})
}

func TestMaximizeCommandOrder(t *testing.T) {
	f := newFixture(t)
	c := f.mapWindow(t, 50, x11.Geometry{Width: 800, Height: 600})
	container := c.Container()

	f.conn.commands = nil
	c.SetMaximized(true)

	wantCommands(t, f.conn.commands, []string{
		"set-x 50 0",
		"set-y 50 0",
		fmt.Sprintf("set-x %d 0", container),
		fmt.Sprintf("set-y %d 28", container),
		fmt.Sprintf("set-width %d 1920", container),
		fmt.Sprintf("set-height %d 1022", container),
		"set-width 50 1920",
		"set-height 50 1022",
		fmt.Sprintf("ungrab-button %d 1", container),
		fmt.Sprintf("ungrab-button %d 3", container),
	})
}

func TestMaximizeToggleRestoresGeometry(t *testing.T) {
	f := newFixture(t)
	c := f.mapWindow(t, 50, x11.Geometry{Width: 800, Height: 600})
	x, y, width, height := c.X(), c.Y(), c.Width(), c.Height()

	c.SetMaximized(true)
	c.SetMaximized(false)

	if c.X() != x || c.Y() != y || c.Width() != width || c.Height() != height {
		t.Fatalf("got %dx%d+%d+%d, want %dx%d+%d+%d",
			c.Width(), c.Height(), c.X(), c.Y(), width, height, x, y)
	}
	if c.ContainerWidth() != width+10 || c.ContainerHeight() != height+35 {
		t.Fatalf("container %dx%d does not wrap the restored geometry",
			c.ContainerWidth(), c.ContainerHeight())
	}
	// The drag grabs come back with the frame.
	want := fmt.Sprintf("grab-button %d 1", c.Container())
	found := false
	for _, cmd := range f.conn.commands {
		if cmd == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("container grabs were not restored in %v", f.conn.commands)
	}
}

func TestSetMaximizedSameValueIsNoop(t *testing.T) {
	f := newFixture(t)
	c := f.mapWindow(t, 50, x11.Geometry{Width: 800, Height: 600})

	f.conn.commands = nil
	c.SetMaximized(false)
	if len(f.conn.commands) != 0 {
		t.Fatalf("redundant unmaximize issued commands: %v", f.conn.commands)
	}
}

func TestSetSizeWhileMaximizedOnlyRecords(t *testing.T) {
	f := newFixture(t)
	c := f.mapWindow(t, 50, x11.Geometry{Width: 800, Height: 600})
	c.SetMaximized(true)

	f.conn.commands = nil
	c.SetSize(500, 400)
	if len(f.conn.commands) != 0 {
		t.Fatalf("resize while maximized issued commands: %v", f.conn.commands)
	}
	if c.Width() != 500 || c.Height() != 400 {
		t.Fatalf("got recorded size %dx%d, want 500x400", c.Width(), c.Height())
	}

	// The recorded size is what the restore uses.
	c.SetMaximized(false)
	found := false
	for _, cmd := range f.conn.commands {
		if cmd == "set-width 50 500" {
			found = true
		}
	}
	if !found {
		t.Fatalf("restore did not apply the recorded width in %v", f.conn.commands)
	}
}

func TestSetPositionWhileMaximizedOnlyRecords(t *testing.T) {
	f := newFixture(t)
	c := f.mapWindow(t, 50, x11.Geometry{Width: 800, Height: 600})
	c.SetMaximized(true)

	f.conn.commands = nil
	c.SetX(10)
	c.SetY(20)
	if len(f.conn.commands) != 0 {
		t.Fatalf("move while maximized issued commands: %v", f.conn.commands)
	}
	if c.X() != 10 || c.Y() != 20 {
		t.Fatalf("got recorded position (%d,%d), want (10,20)", c.X(), c.Y())
	}
}

func TestDestroyReleasesWindowToRoot(t *testing.T) {
	f := newFixture(t)
	c := f.mapWindow(t, 50, x11.Geometry{Width: 800, Height: 600})

	f.conn.commands = nil
	c.Destroy()

	wantCommands(t, f.conn.commands, []string{
		fmt.Sprintf("reparent 50 %d", f.conn.root),
		"save-set remove 50",
		fmt.Sprintf("destroy %d", c.Container()),
	})
}
