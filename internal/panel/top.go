package panel

import (
	"fmt"
	"strings"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"github.com/vhslib/vaporwm/internal/wm"
	"github.com/vhslib/vaporwm/internal/x11"
)

const (
	labelOffset  = 10
	labelSpacing = 30
	topBaseline  = (wm.TopPanelHeight + x11.FontAscent) / 2
	clockMargin  = 12
)

// Top is the bar across the top of the screen: one label per workspace on
// the left, a clock on the right. Label clicks switch workspaces.
//
// Click and hover events are deferred and handled during the redraw pass,
// so hit-testing always runs against the layout that is actually on
// screen.
type Top struct {
	conn *x11.Client
	wm   Manager
	id   xproto.Window
	gc   xproto.Gcontext

	needRedraw bool
	clock      string
	layout     []span

	// Only the most recent pointer position matters. The motion coordinate
	// persists across passes so cursor feedback follows layout changes;
	// the click coordinate is consumed once.
	deferredMotionX *int
	deferredClickX  *int
}

// NewTop creates and maps the top panel window.
func NewTop(conn *x11.Client, m Manager) (*Top, error) {
	width, _ := conn.ScreenSize()
	id, err := conn.CreateWindow(
		0, 0,
		width, wm.TopPanelHeight,
		colorBackground,
		xproto.EventMaskButtonPress|xproto.EventMaskPointerMotion,
	)
	if err != nil {
		return nil, fmt.Errorf("create top panel: %w", err)
	}
	gc, err := conn.NewGC(colorActiveText)
	if err != nil {
		return nil, fmt.Errorf("create top panel gc: %w", err)
	}
	conn.MapWindow(id)
	return &Top{
		conn:       conn,
		wm:         m,
		id:         id,
		gc:         gc,
		needRedraw: true,
	}, nil
}

// Window returns the panel window.
func (p *Top) Window() xproto.Window {
	return p.id
}

// Notify marks the panel dirty.
func (p *Top) Notify() {
	p.needRedraw = true
}

// HandleEvent records pointer activity over the panel for the next redraw
// pass. Motion elsewhere clears the hover state.
func (p *Top) HandleEvent(evt xgb.Event) {
	switch evt := evt.(type) {
	case xproto.MotionNotifyEvent:
		if evt.Event == p.id {
			x := int(evt.EventX)
			p.deferredMotionX = &x
		} else {
			p.deferredMotionX = nil
		}
	case xproto.ButtonPressEvent:
		if evt.Event == p.id && evt.Detail == 1 {
			x := int(evt.EventX)
			p.deferredClickX = &x
		}
	}
}

// RequestRedraw repaints if dirty, then services the deferred pointer
// state. A serviced click can dirty the panel again, so it repaints once
// more at the end.
func (p *Top) RequestRedraw() {
	if clock := clockText(time.Now()); clock != p.clock {
		p.clock = clock
		p.needRedraw = true
	}
	p.redraw()

	if p.deferredMotionX != nil {
		p.setCursor(*p.deferredMotionX)
	}
	if p.deferredClickX != nil {
		x := *p.deferredClickX
		p.deferredClickX = nil
		if i := hitTest(p.layout, x); i >= 0 {
			p.wm.ChangeActiveWorkspace(i)
		}
	}

	p.redraw()
}

func (p *Top) redraw() {
	if !p.needRedraw {
		return
	}
	p.needRedraw = false

	width, _ := p.conn.ScreenSize()
	p.conn.SetForeground(p.gc, colorBackground)
	p.conn.FillRect(p.id, p.gc, 0, 0, width, wm.TopPanelHeight)

	p.drawWorkspaceLabels()
	p.drawClock(width)
}

func (p *Top) drawWorkspaceLabels() {
	p.layout = p.layout[:0]
	active := p.wm.ActiveWorkspaceIndex()

	offset := labelOffset
	for i := 0; i < wm.WorkspaceCount; i++ {
		label := workspaceLabel(firstClass(p.wm.Workspace(i)), i)
		color := uint32(colorInactive)
		if i == active {
			color = colorActiveText
		}
		p.conn.SetForeground(p.gc, color)
		p.conn.DrawText(p.id, p.gc, int16(offset), topBaseline, label)

		end := offset + len(label)*x11.FontWidth
		p.layout = append(p.layout, span{start: offset, end: end})
		offset = end + labelSpacing
	}
}

func (p *Top) drawClock(screenWidth uint16) {
	x := int(screenWidth) - clockMargin - len(p.clock)*x11.FontWidth
	p.conn.SetForeground(p.gc, colorActiveText)
	p.conn.DrawText(p.id, p.gc, int16(x), topBaseline, p.clock)
}

func (p *Top) setCursor(x int) {
	cursor := p.conn.Cursors().LeftPtr
	if hitTest(p.layout, x) >= 0 {
		cursor = p.conn.Cursors().Hand
	}
	p.conn.SetCursor(p.id, cursor)
}

// firstClass returns the class of the workspace's first tasklist client,
// or an empty string.
func firstClass(ws *wm.Workspace) string {
	tasklist := ws.Tasklist()
	if len(tasklist) == 0 {
		return ""
	}
	return tasklist[0].Class()
}

// workspaceLabel renders one label: the first client's class uppercased,
// or the workspace number when there is none.
func workspaceLabel(class string, index int) string {
	if class == "" {
		return fmt.Sprintf("[%d]", index+1)
	}
	return fmt.Sprintf("[%s]", strings.ToUpper(class))
}

// clockText renders the clock line, e.g. "14:05 // Monday 02.01.2023".
func clockText(t time.Time) string {
	return fmt.Sprintf(
		"%02d:%02d // %s %02d.%02d.%d",
		t.Hour(), t.Minute(), t.Weekday(), t.Day(), int(t.Month()), t.Year(),
	)
}
