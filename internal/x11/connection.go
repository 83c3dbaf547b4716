package x11

import (
	"errors"
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window

	atomMu sync.Mutex
	atoms  map[string]xproto.Atom
}

// NewConnection establishes a connection to the X11 server. An empty display
// uses $DISPLAY.
func NewConnection(display string) (*Connection, error) {
	var (
		xu  *xgbutil.XUtil
		err error
	)
	if display == "" {
		xu, err = xgbutil.NewConn()
	} else {
		xu, err = xgbutil.NewConnDisplay(display)
	}
	if err != nil {
		return nil, err
	}
	// EWMH and RandR extensions are initialized automatically by xgbutil

	return &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
		atoms: make(map[string]xproto.Atom),
	}, nil
}

// EventLoop starts the main X11 event loop (blocking)
func (c *Connection) EventLoop() {
	xevent.Main(c.XUtil)
}

// Quit stops a running EventLoop.
func (c *Connection) Quit() {
	xevent.Quit(c.XUtil)
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}

// Atom interns name, caching the result.
func (c *Connection) Atom(name string) (xproto.Atom, error) {
	c.atomMu.Lock()
	defer c.atomMu.Unlock()
	if a, ok := c.atoms[name]; ok {
		return a, nil
	}
	reply, err := xproto.InternAtom(c.XUtil.Conn(), false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to intern %s: %w", name, err)
	}
	c.atoms[name] = reply.Atom
	return reply.Atom, nil
}

// IsBadWindow reports whether err is the server saying the window (or its
// drawable) no longer exists.
func IsBadWindow(err error) bool {
	var we xproto.WindowError
	if errors.As(err, &we) {
		return true
	}
	var de xproto.DrawableError
	return errors.As(err, &de)
}
