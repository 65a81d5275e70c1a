package panel

import (
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"github.com/vhslib/vaporwm/internal/wm"
	"github.com/vhslib/vaporwm/internal/x11"
)

const (
	// maxEntryWidth caps tasklist entries; with few windows the entries do
	// not stretch across the whole screen.
	maxEntryWidth = 300

	bottomBaseline = (wm.BottomPanelHeight + x11.FontAscent) / 2

	// entryIconGap separates an entry's icon from its title text.
	entryIconGap = 10
	entryTextX   = iconMarginLeft + x11.IconSize + entryIconGap
)

// Bottom is the bar across the bottom of the screen showing the active
// workspace's tasklist. Clicking an entry raises that client.
type Bottom struct {
	conn *x11.Client
	wm   Manager
	id   xproto.Window
	gc   xproto.Gcontext

	needRedraw bool
	layout     []span
	lastMouseX *int
}

// NewBottom creates and maps the bottom panel window.
func NewBottom(conn *x11.Client, m Manager) (*Bottom, error) {
	width, height := conn.ScreenSize()
	id, err := conn.CreateWindow(
		0, int16(height-wm.BottomPanelHeight),
		width, wm.BottomPanelHeight,
		colorBackground,
		xproto.EventMaskButtonPress|xproto.EventMaskPointerMotion,
	)
	if err != nil {
		return nil, fmt.Errorf("create bottom panel: %w", err)
	}
	gc, err := conn.NewGC(colorActiveText)
	if err != nil {
		return nil, fmt.Errorf("create bottom panel gc: %w", err)
	}
	conn.MapWindow(id)
	return &Bottom{
		conn:       conn,
		wm:         m,
		id:         id,
		gc:         gc,
		needRedraw: true,
	}, nil
}

// Window returns the panel window.
func (p *Bottom) Window() xproto.Window {
	return p.id
}

// Notify marks the panel dirty.
func (p *Bottom) Notify() {
	p.needRedraw = true
}

// HandleEvent reacts to pointer activity over the panel. Unlike the top
// panel, clicks raise clients immediately.
func (p *Bottom) HandleEvent(evt xgb.Event) {
	switch evt := evt.(type) {
	case xproto.MotionNotifyEvent:
		if evt.Event == p.id {
			x := int(evt.EventX)
			p.setCursor(x)
			p.lastMouseX = &x
		} else {
			p.lastMouseX = nil
		}
	case xproto.ButtonPressEvent:
		if evt.Event == p.id && evt.Detail == 1 {
			p.handlePress(int(evt.EventX))
		}
	}
}

// RequestRedraw repaints if dirty and refreshes cursor feedback against the
// new layout.
func (p *Bottom) RequestRedraw() {
	if !p.needRedraw {
		return
	}
	p.needRedraw = false

	p.draw()
	if p.lastMouseX != nil {
		p.setCursor(*p.lastMouseX)
	}
}

func (p *Bottom) draw() {
	p.layout = p.layout[:0]

	screenWidth, _ := p.conn.ScreenSize()
	p.conn.SetForeground(p.gc, colorBackground)
	p.conn.FillRect(p.id, p.gc, 0, 0, screenWidth, wm.BottomPanelHeight)

	ws := p.wm.ActiveWorkspace()
	clients := ws.Tasklist()
	if len(clients) == 0 {
		return
	}

	entryWidth, justified := entryLayout(int(screenWidth), len(clients))
	maxLen := titleMaxLen(entryWidth)
	active := ws.Stack()[len(ws.Stack())-1]

	for i, c := range clients {
		offset := i * entryWidth
		width := entryWidth
		if justified && i == len(clients)-1 {
			width = int(screenWidth) - offset
		}
		p.layout = append(p.layout, span{start: offset, end: offset + width})

		if c.ID() == active.ID() {
			p.conn.SetForeground(p.gc, colorActiveBack)
			p.conn.FillRect(p.id, p.gc, int16(offset), 0, uint16(width), wm.BottomPanelHeight)
		}

		icon := c.Icon()
		if icon == nil {
			icon = defaultIcon
		}
		p.conn.DrawImage(
			p.id, p.gc,
			int16(offset+iconMarginLeft),
			(wm.BottomPanelHeight-x11.IconSize)/2,
			x11.IconSize, x11.IconSize,
			icon.Data,
		)

		title := c.Title()
		if title == "" {
			title = fmt.Sprintf("[%d]", c.ID())
		} else {
			title = truncateTitle(title, maxLen)
		}
		color := uint32(colorInactive)
		if c.ID() == active.ID() {
			color = colorActiveText
		}
		p.conn.SetForeground(p.gc, color)
		p.conn.DrawText(p.id, p.gc, int16(offset+entryTextX), bottomBaseline, title)
	}
}

func (p *Bottom) setCursor(x int) {
	cursor := p.conn.Cursors().LeftPtr
	if hitTest(p.layout, x) >= 0 {
		cursor = p.conn.Cursors().Hand
	}
	p.conn.SetCursor(p.id, cursor)
}

// handlePress raises the client whose entry is under x. The layout may lag
// a pending redraw, so the tasklist index is bounds-checked.
func (p *Bottom) handlePress(x int) {
	i := hitTest(p.layout, x)
	if i < 0 {
		return
	}
	ws := p.wm.ActiveWorkspace()
	tasklist := ws.Tasklist()
	if i >= len(tasklist) {
		return
	}
	id := tasklist[i].ID()
	for j, c := range ws.Stack() {
		if c.ID() == id {
			p.wm.RaiseClient(j)
			return
		}
	}
}

// entryLayout computes the width of one tasklist entry. When the cap is
// not hit, entries are justified: the last one absorbs the division
// remainder so the row spans the whole screen.
func entryLayout(screenWidth, count int) (int, bool) {
	width := screenWidth / count
	if width > maxEntryWidth {
		return maxEntryWidth, false
	}
	return width, true
}

// titleMaxLen is how many characters of a title fit in an entry next to
// the icon, leaving room for the ellipsis.
func titleMaxLen(entryWidth int) int {
	n := (entryWidth-entryTextX)/x11.FontWidth - 3
	if n < 0 {
		return 0
	}
	return n
}

// truncateTitle cuts the title at maxLen characters, marking the cut with
// an ellipsis.
func truncateTitle(title string, maxLen int) string {
	runes := []rune(title)
	if len(runes) <= maxLen {
		return title
	}
	return string(runes[:maxLen]) + "..."
}
