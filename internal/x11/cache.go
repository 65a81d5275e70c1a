package x11

import (
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// atomCache maintains a mapping of strings to X11 atoms to avoid
// re-requesting atoms from the X server repeatedly.
type atomCache struct {
	conn *xgb.Conn
	data map[string]xproto.Atom
}

// Get returns the atom with the associated name.
func (c *atomCache) Get(name string) (xproto.Atom, error) {
	if atom, ok := c.data[name]; ok {
		return atom, nil
	}
	reply, err := xproto.InternAtom(c.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	c.data[name] = reply.Atom
	return reply.Atom, nil
}
