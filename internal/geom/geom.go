// Package geom holds the center-based rectangle model used for window state.
//
// Window geometry is kept as a center point plus half-size rather than
// top-left/width/height so symmetric move and resize math stays simple.
// Conversion to the edge-based rectangles native surfaces expect happens at
// the boundary.
package geom

import (
	"math"
)

// UnboundedSize is the sentinel maximum for an axis with no size limit.
const UnboundedSize = math.MaxInt32

// Point is a 2D vector in screen units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Scale returns p scaled by f.
func (p Point) Scale(f float64) Point { return Point{X: p.X * f, Y: p.Y * f} }

// Axis returns the component for the given axis.
func (p Point) Axis(a Axis) float64 {
	if a == AxisY {
		return p.Y
	}
	return p.X
}

// Axis selects the x or y component of a vector.
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

// Axes lists both axes in order.
var Axes = [2]Axis{AxisX, AxisY}

func (a Axis) String() string {
	if a == AxisY {
		return "y"
	}
	return "x"
}

// Bounds is a rectangle described by its center and half-size.
type Bounds struct {
	Center   Point `json:"center"`
	HalfSize Point `json:"half_size"`
}

// Min returns the top-left corner.
func (b Bounds) Min() Point { return b.Center.Sub(b.HalfSize) }

// Max returns the bottom-right corner.
func (b Bounds) Max() Point { return b.Center.Add(b.HalfSize) }

// Size returns the full width and height.
func (b Bounds) Size() Point { return b.HalfSize.Scale(2) }

// Rect is an edge-based integer rectangle in screen coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Insets is an amount to grow a rectangle by on each edge.
type Insets struct {
	Top    int `json:"top" yaml:"top"`
	Bottom int `json:"bottom" yaml:"bottom"`
	Left   int `json:"left" yaml:"left"`
	Right  int `json:"right" yaml:"right"`
}

// IsZero reports whether every edge is zero.
func (i Insets) IsZero() bool { return i == Insets{} }

// ToRect converts center-based bounds to an edge rectangle, rounding edges
// to the nearest integer.
func (b Bounds) ToRect() Rect {
	minP := b.Min()
	maxP := b.Max()
	x := int(math.Round(minP.X))
	y := int(math.Round(minP.Y))
	return Rect{
		X:      x,
		Y:      y,
		Width:  int(math.Round(maxP.X)) - x,
		Height: int(math.Round(maxP.Y)) - y,
	}
}

// FromRect converts an edge rectangle to center-based bounds.
func FromRect(r Rect) Bounds {
	half := Point{X: float64(r.Width) / 2, Y: float64(r.Height) / 2}
	return Bounds{
		Center:   Point{X: float64(r.X) + half.X, Y: float64(r.Y) + half.Y},
		HalfSize: half,
	}
}

// Outset grows r by the insets.
func (r Rect) Outset(in Insets) Rect {
	return Rect{
		X:      r.X - in.Left,
		Y:      r.Y - in.Top,
		Width:  r.Width + in.Left + in.Right,
		Height: r.Height + in.Top + in.Bottom,
	}
}

// Inset shrinks r by the insets.
func (r Rect) Inset(in Insets) Rect {
	return Rect{
		X:      r.X + in.Left,
		Y:      r.Y + in.Top,
		Width:  r.Width - in.Left - in.Right,
		Height: r.Height - in.Top - in.Bottom,
	}
}

// ResizeConstraint limits resizing along a single axis.
type ResizeConstraint struct {
	// ResizableMin is whether the near edge (left/top) can be dragged.
	ResizableMin bool `json:"resizable_min"`
	// ResizableMax is whether the far edge (right/bottom) can be dragged.
	ResizableMax bool `json:"resizable_max"`
	MinSize      int  `json:"min_size"`
	MaxSize      int  `json:"max_size"`
}

// Resizable reports whether either edge can be dragged.
func (c ResizeConstraint) Resizable() bool { return c.ResizableMin || c.ResizableMax }

// Bounded reports whether the axis has a real maximum. A MaxSize of zero or
// less means no limit, like UnboundedSize.
func (c ResizeConstraint) Bounded() bool { return c.MaxSize > 0 && c.MaxSize < UnboundedSize }

// ResizeConstraints holds the constraint for each axis.
type ResizeConstraints struct {
	X ResizeConstraint `json:"x"`
	Y ResizeConstraint `json:"y"`
}

// Axis returns the constraint for a.
func (c ResizeConstraints) Axis(a Axis) ResizeConstraint {
	if a == AxisY {
		return c.Y
	}
	return c.X
}

// Unconstrained returns fully resizable constraints with no size limits.
func Unconstrained() ResizeConstraints {
	free := ResizeConstraint{ResizableMin: true, ResizableMax: true, MinSize: 0, MaxSize: UnboundedSize}
	return ResizeConstraints{X: free, Y: free}
}
