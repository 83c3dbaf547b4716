package geom

import "testing"

func TestRectRoundTrip(t *testing.T) {
	tests := []Rect{
		{X: 0, Y: 0, Width: 200, Height: 100},
		{X: -50, Y: 30, Width: 1, Height: 3},
		{X: 1920, Y: 0, Width: 1280, Height: 1024},
	}
	for _, r := range tests {
		if got := FromRect(r).ToRect(); got != r {
			t.Errorf("FromRect(%+v).ToRect() = %+v", r, got)
		}
	}
}

func TestFromRect(t *testing.T) {
	b := FromRect(Rect{X: 10, Y: 20, Width: 100, Height: 50})
	if b.Center != (Point{X: 60, Y: 45}) {
		t.Fatalf("center = %+v", b.Center)
	}
	if b.HalfSize != (Point{X: 50, Y: 25}) {
		t.Fatalf("half size = %+v", b.HalfSize)
	}
	if b.Size() != (Point{X: 100, Y: 50}) {
		t.Fatalf("size = %+v", b.Size())
	}
}

func TestToRectRoundsEdges(t *testing.T) {
	b := Bounds{Center: Point{X: 10.4, Y: 10}, HalfSize: Point{X: 5.2, Y: 5}}
	got := b.ToRect()
	want := Rect{X: 5, Y: 5, Width: 11, Height: 10}
	if got != want {
		t.Fatalf("ToRect() = %+v, want %+v", got, want)
	}
}

func TestInsets(t *testing.T) {
	in := Insets{Left: 7, Right: 7, Bottom: 7}
	r := Rect{X: 100, Y: 0, Width: 200, Height: 100}
	out := r.Outset(in)
	if out != (Rect{X: 93, Y: 0, Width: 214, Height: 107}) {
		t.Fatalf("Outset() = %+v", out)
	}
	if back := out.Inset(in); back != r {
		t.Fatalf("Inset(Outset()) = %+v", back)
	}
	if !(Insets{}).IsZero() || in.IsZero() {
		t.Fatalf("IsZero() wrong")
	}
}

func TestResizeConstraint(t *testing.T) {
	free := Unconstrained()
	if free.X.Bounded() || !free.Y.Resizable() {
		t.Fatalf("Unconstrained() = %+v", free)
	}
	fixed := ResizeConstraint{MaxSize: 400}
	if !fixed.Bounded() || fixed.Resizable() {
		t.Fatalf("fixed = %+v", fixed)
	}
	if zero := (ResizeConstraint{}); zero.Bounded() {
		t.Fatalf("zero MaxSize should be unbounded")
	}
	c := ResizeConstraints{X: fixed, Y: free.Y}
	if c.Axis(AxisX) != fixed || c.Axis(AxisY) != free.Y {
		t.Fatalf("Axis() mismatch")
	}
}
