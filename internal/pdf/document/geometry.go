package document

import (
	"fmt"
)

// Rect is an axis aligned rectangle in top-left page space: the origin is
// the top-left corner of the page, y grows downward, units are points.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Width returns X1 - X0
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns Y1 - Y0
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// IsEmpty reports whether the rectangle has no area
func (r Rect) IsEmpty() bool {
	return r.X1 <= r.X0 || r.Y1 <= r.Y0
}

// Contains reports whether (x, y) lies inside r
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1
}

// Pad grows r by p. Negative padding shrinks it.
func (r Rect) Pad(p Padding) Rect {
	return Rect{
		X0: r.X0 - p.Left,
		Y0: r.Y0 - p.Top,
		X1: r.X1 + p.Right,
		Y1: r.Y1 + p.Bottom,
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("[%.2f %.2f %.2f %.2f]", r.X0, r.Y0, r.X1, r.Y1)
}

// Point is a location in top-left page space
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Padding grows a redaction rectangle on each side
type Padding struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Uniform pads every side by p
func Uniform(p float64) Padding {
	return Padding{Left: p, Top: p, Right: p, Bottom: p}
}

// WithTrailing pads every side by p and adds extra on the right, covering
// glyph overhang after the last character of a placeholder.
func WithTrailing(p, extra float64) Padding {
	pad := Uniform(p)
	pad.Right += extra
	return pad
}

// Color is an RGB color with components in [0, 1]
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

var (
	Black = Color{}
	White = Color{R: 1, G: 1, B: 1}
)

func (c Color) valid() bool {
	in := func(v float64) bool { return v >= 0 && v <= 1 }
	return in(c.R) && in(c.G) && in(c.B)
}
