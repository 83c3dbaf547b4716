package x11

import (
	"fmt"
	"math"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
)

// baseDPI is the resolution that corresponds to a scale factor of 1.
const baseDPI = 96.0

// Monitor represents a physical display
type Monitor struct {
	ID     int
	Name   string
	X      int
	Y      int
	Width  int
	Height int
	// MmWidth is the physical width reported by the output, 0 if unknown.
	MmWidth int
}

// Scale returns the display scale factor derived from the monitor DPI,
// rounded to the nearest quarter. Unknown physical sizes report 1.
func (m Monitor) Scale() float64 {
	if m.MmWidth <= 0 || m.Width <= 0 {
		return 1
	}
	dpi := float64(m.Width) / (float64(m.MmWidth) / 25.4)
	scale := math.Round(dpi/baseDPI*4) / 4
	if scale < 1 {
		return 1
	}
	return scale
}

// GetMonitors retrieves all active monitors using XRandR
func (c *Connection) GetMonitors() ([]Monitor, error) {
	// Initialize RandR if not already done
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	// Get screen resources
	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor

	// Query each CRTC for active monitors
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}

		// Skip disabled CRTCs
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		mon := Monitor{
			ID:     i,
			Name:   fmt.Sprintf("Monitor%d", i),
			X:      int(crtcInfo.X),
			Y:      int(crtcInfo.Y),
			Width:  int(crtcInfo.Width),
			Height: int(crtcInfo.Height),
		}
		outputInfo, err := randr.GetOutputInfo(c.XUtil.Conn(), crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply()
		if err == nil {
			mon.Name = string(outputInfo.Name)
			mon.MmWidth = int(outputInfo.MmWidth)
		}

		monitors = append(monitors, mon)
	}

	return monitors, nil
}

// ScaleForWindow returns the scale of the monitor showing windowID.
func (c *Connection) ScaleForWindow(windowID xproto.Window) (float64, error) {
	r, err := c.Geometry(windowID)
	if err != nil {
		return 0, err
	}
	monitors, err := c.GetMonitors()
	if err != nil {
		return 0, err
	}
	if mon := MonitorAt(monitors, r.X+r.Width/2, r.Y+r.Height/2); mon != nil {
		return mon.Scale(), nil
	}
	if len(monitors) > 0 {
		return monitors[0].Scale(), nil
	}
	return 1, nil
}

// MonitorAt returns the monitor containing the point, or nil.
func MonitorAt(monitors []Monitor, x, y int) *Monitor {
	for i := range monitors {
		mon := &monitors[i]
		if x >= mon.X && x < mon.X+mon.Width && y >= mon.Y && y < mon.Y+mon.Height {
			return mon
		}
	}
	return nil
}
