package port

import "fmt"

// Area is a rectangle in frame coordinates. X2 and Y2 are one past the last
// pixel.
type Area struct {
	X1, Y1, X2, Y2 int
}

// Full returns the area covering a w x h frame.
func Full(w, h int) Area { return Area{X2: w, Y2: h} }

func (a Area) Width() int {
	if a.X2 <= a.X1 {
		return 0
	}
	return a.X2 - a.X1
}

func (a Area) Height() int {
	if a.Y2 <= a.Y1 {
		return 0
	}
	return a.Y2 - a.Y1
}

// Empty reports whether the area covers no pixel.
func (a Area) Empty() bool { return a.X1 >= a.X2 || a.Y1 >= a.Y2 }

// Valid reports whether a is non-empty and lies inside a w x h frame.
func (a Area) Valid(w, h int) bool {
	return !a.Empty() && a.X1 >= 0 && a.Y1 >= 0 && a.X2 <= w && a.Y2 <= h
}

// Clip intersects a with the w x h frame.
func (a Area) Clip(w, h int) Area {
	return a.Intersect(Full(w, h))
}

func (a Area) Intersect(b Area) Area {
	r := Area{
		X1: max(a.X1, b.X1),
		Y1: max(a.Y1, b.Y1),
		X2: min(a.X2, b.X2),
		Y2: min(a.Y2, b.Y2),
	}
	if r.Empty() {
		return Area{}
	}
	return r
}

// Union returns the bounding box of a and b. Empty operands are ignored.
func (a Area) Union(b Area) Area {
	switch {
	case a.Empty():
		return b
	case b.Empty():
		return a
	}
	return Area{
		X1: min(a.X1, b.X1),
		Y1: min(a.Y1, b.Y1),
		X2: max(a.X2, b.X2),
		Y2: max(a.Y2, b.Y2),
	}
}

func (a Area) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", a.X1, a.Y1, a.X2, a.Y2)
}
