package wm

import "github.com/jezek/xgb/xproto"

// Workspace is one of the 9 fixed virtual desktops. The stack orders
// clients bottom to top, with the last element focused; the tasklist holds
// the same clients in the user-controlled task-switch order. The two always
// contain the same set.
type Workspace struct {
	stack    []*Client
	tasklist []*Client
}

// Stack returns the z-order, bottom first. The last client is focused.
func (ws *Workspace) Stack() []*Client {
	return ws.stack
}

// Tasklist returns the task-switch order.
func (ws *Workspace) Tasklist() []*Client {
	return ws.tasklist
}

// top returns the focused client, or nil when the workspace is empty.
func (ws *Workspace) top() *Client {
	if len(ws.stack) == 0 {
		return nil
	}
	return ws.stack[len(ws.stack)-1]
}

func (ws *Workspace) stackIndex(win xproto.Window) int {
	for i, c := range ws.stack {
		if c.id == win {
			return i
		}
	}
	return -1
}

func (ws *Workspace) tasklistIndex(win xproto.Window) int {
	for i, c := range ws.tasklist {
		if c.id == win {
			return i
		}
	}
	return -1
}

func (ws *Workspace) removeFromStack(i int) *Client {
	c := ws.stack[i]
	ws.stack = append(ws.stack[:i], ws.stack[i+1:]...)
	return c
}

func (ws *Workspace) removeFromTasklist(i int) {
	ws.tasklist = append(ws.tasklist[:i], ws.tasklist[i+1:]...)
}

func (ws *Workspace) insertIntoTasklist(i int, c *Client) {
	ws.tasklist = append(ws.tasklist, nil)
	copy(ws.tasklist[i+1:], ws.tasklist[i:])
	ws.tasklist[i] = c
}

// cycleNext returns the index after current, wrapping to 0 past the end.
func cycleNext(length, current int) int {
	if current == length-1 {
		return 0
	}
	return current + 1
}

// cyclePrevious returns the index before current, wrapping to the end
// before 0.
func cyclePrevious(length, current int) int {
	if current == 0 {
		return length - 1
	}
	return current - 1
}
