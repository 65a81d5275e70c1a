package x11

import (
	"encoding/binary"

	"github.com/jezek/xgb/xproto"
)

// IconSize is the side length of the icons shown by the panels.
const IconSize = 16

// Icon is a square IconSize x IconSize image in ZPixmap layout, 4 bytes per
// pixel, blue first, with the alpha channel premultiplied in. It can be
// handed to DrawImage as is.
type Icon struct {
	Data []byte
}

type rawIcon struct {
	width  uint32
	height uint32
	data   []byte
}

// WindowIcon reads the _NET_WM_ICON property of the given window, picks the
// size closest to IconSize and scales it down. Returns nil if the window
// carries no usable icon.
func (c *Client) WindowIcon(win xproto.Window) (*Icon, error) {
	raw, err := c.getProperty(win, netWmIcon, xproto.AtomCardinal)
	if err != nil {
		return nil, err
	}
	icons := parseIcons(raw)
	best := bestIcon(icons)
	if best == nil {
		return nil, nil
	}
	return scaleIcon(best), nil
}

// parseIcons splits the property value into the individual icons it holds.
// Each icon is a width and height followed by width*height packed ARGB
// pixels, all 32-bit little endian. A truncated stream yields nothing.
func parseIcons(buf []byte) []rawIcon {
	var icons []rawIcon
	for len(buf) > 0 {
		if len(buf) < 8 {
			return nil
		}
		width := binary.LittleEndian.Uint32(buf)
		height := binary.LittleEndian.Uint32(buf[4:])
		length := int(width) * int(height) * 4
		if len(buf[8:]) < length {
			return nil
		}
		icons = append(icons, rawIcon{
			width:  width,
			height: height,
			data:   buf[8 : 8+length],
		})
		buf = buf[8+length:]
	}
	return icons
}

// bestIcon picks the icon closest in size to IconSize. An exact match wins
// outright.
func bestIcon(icons []rawIcon) *rawIcon {
	if len(icons) == 0 {
		return nil
	}
	result := &icons[0]
	if result.width == IconSize && result.height == IconSize {
		return result
	}
	for i := 1; i < len(icons); i++ {
		icon := &icons[i]
		if icon.width == IconSize && icon.height == IconSize {
			return icon
		}
		if betterIcon(icon, result) {
			result = icon
		}
	}
	return result
}

// betterIcon reports whether a is a closer fit for IconSize than b. Larger
// icons beat smaller ones since downscaling loses less than upscaling, and
// square icons get the benefit of the doubt when only one axis improves.
func betterIcon(a, b *rawIcon) bool {
	aDeltaWidth := IconSize - int32(a.width)
	aDeltaHeight := IconSize - int32(a.height)
	bDeltaWidth := IconSize - int32(b.width)
	bDeltaHeight := IconSize - int32(b.height)

	betterByWidth := aDeltaWidth < bDeltaWidth
	betterByHeight := aDeltaHeight < bDeltaHeight
	isSquare := a.width == a.height

	if betterByWidth && betterByHeight {
		return true
	}
	return (betterByWidth || betterByHeight) && isSquare
}

// scaleIcon premultiplies the alpha channel and resamples the icon down to
// IconSize x IconSize with nearest filtering. Premultiplying blends the
// icon against black, which is what the panels draw on. Pixels outside a
// non-square source stay black.
func scaleIcon(icon *rawIcon) *Icon {
	size := icon.width
	if icon.height > size {
		size = icon.height
	}
	if size == 0 {
		return nil
	}
	out := make([]byte, IconSize*IconSize*4)
	for dy := 0; dy < IconSize; dy++ {
		sy := uint32(dy) * size / IconSize
		if sy >= icon.height {
			continue
		}
		for dx := 0; dx < IconSize; dx++ {
			sx := uint32(dx) * size / IconSize
			if sx >= icon.width {
				continue
			}
			src := (sy*icon.width + sx) * 4
			dst := (dy*IconSize + dx) * 4
			b := icon.data[src]
			g := icon.data[src+1]
			r := icon.data[src+2]
			a := icon.data[src+3]
			out[dst] = byte(uint16(b) * uint16(a) / 255)
			out[dst+1] = byte(uint16(g) * uint16(a) / 255)
			out[dst+2] = byte(uint16(r) * uint16(a) / 255)
			out[dst+3] = a
		}
	}
	return &Icon{Data: out}
}
