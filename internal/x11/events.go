package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// WindowEvents are the callbacks for one watched window. Nil callbacks are
// skipped. They run on the event loop goroutine.
type WindowEvents struct {
	Configure    func(Rect)
	Mapped       func()
	Unmapped     func()
	Destroyed    func()
	StateChanged func(states []string)
	Focused      func()
}

// Watch selects structure, property and focus events on windowID and routes
// them to cb until the returned func is called.
func (c *Connection) Watch(windowID xproto.Window, cb WindowEvents) (func(), error) {
	win := xwindow.New(c.XUtil, windowID)
	if err := win.Listen(
		xproto.EventMaskStructureNotify,
		xproto.EventMaskPropertyChange,
		xproto.EventMaskFocusChange,
	); err != nil {
		return nil, err
	}
	stateAtom, err := c.Atom("_NET_WM_STATE")
	if err != nil {
		return nil, err
	}

	xevent.ConfigureNotifyFun(func(_ *xgbutil.XUtil, _ xevent.ConfigureNotifyEvent) {
		if cb.Configure == nil {
			return
		}
		// Event coordinates are parent-relative once reparented; ask again.
		if r, err := c.Geometry(windowID); err == nil {
			cb.Configure(r)
		}
	}).Connect(c.XUtil, windowID)

	xevent.MapNotifyFun(func(_ *xgbutil.XUtil, _ xevent.MapNotifyEvent) {
		if cb.Mapped != nil {
			cb.Mapped()
		}
	}).Connect(c.XUtil, windowID)

	xevent.UnmapNotifyFun(func(_ *xgbutil.XUtil, _ xevent.UnmapNotifyEvent) {
		if cb.Unmapped != nil {
			cb.Unmapped()
		}
	}).Connect(c.XUtil, windowID)

	xevent.DestroyNotifyFun(func(_ *xgbutil.XUtil, _ xevent.DestroyNotifyEvent) {
		if cb.Destroyed != nil {
			cb.Destroyed()
		}
	}).Connect(c.XUtil, windowID)

	xevent.PropertyNotifyFun(func(_ *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		if cb.StateChanged == nil || ev.Atom != stateAtom {
			return
		}
		if states, err := c.States(windowID); err == nil {
			cb.StateChanged(states)
		}
	}).Connect(c.XUtil, windowID)

	xevent.FocusInFun(func(_ *xgbutil.XUtil, _ xevent.FocusInEvent) {
		if cb.Focused != nil {
			cb.Focused()
		}
	}).Connect(c.XUtil, windowID)

	return func() { xevent.Detach(c.XUtil, windowID) }, nil
}
