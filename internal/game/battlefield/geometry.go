package battlefield

import (
	"fmt"
	"math"
	"strings"
)

// Point is a position on the table in inches.
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Towards returns the point dist inches from p in the direction of q.
// When p == q, p is returned.
func (p Point) Towards(q Point, dist float64) Point {
	d := p.Distance(q)
	if d == 0 {
		return p
	}
	return Point{X: p.X + (q.X-p.X)/d*dist, Y: p.Y + (q.Y-p.Y)/d*dist}
}

func (p Point) String() string {
	return fmt.Sprintf("(%.1f, %.1f)", p.X, p.Y)
}

// Shape is the kind of a Footprint.
type Shape int

const (
	ShapeRect Shape = iota
	ShapeCircle
)

func (s Shape) String() string {
	if s == ShapeCircle {
		return "circle"
	}
	return "rect"
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Shape) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "rect", "rectangle", "":
		*s = ShapeRect
	case "circle", "radius":
		*s = ShapeCircle
	default:
		return fmt.Errorf("unknown shape %q", string(text))
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (s Shape) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Footprint is an axis-aligned rectangle (Width along X, Length along Y) or a
// circle, both positioned by Center.
type Footprint struct {
	Shape  Shape   `yaml:"shape" json:"shape"`
	Center Point   `yaml:"center" json:"center"`
	Width  float64 `yaml:"width,omitempty" json:"width,omitempty"`
	Length float64 `yaml:"length,omitempty" json:"length,omitempty"`
	Radius float64 `yaml:"radius,omitempty" json:"radius,omitempty"`
}

// Rect returns a rectangular footprint centered on c.
func Rect(c Point, width, length float64) Footprint {
	return Footprint{Shape: ShapeRect, Center: c, Width: width, Length: length}
}

// Circle returns a circular footprint.
func Circle(c Point, radius float64) Footprint {
	return Footprint{Shape: ShapeCircle, Center: c, Radius: radius}
}

// Degenerate reports whether the footprint has zero area.
func (f Footprint) Degenerate() bool {
	if f.Shape == ShapeCircle {
		return f.Radius <= 0
	}
	return f.Width <= 0 || f.Length <= 0
}

// Bounds returns the bounding box corners of the footprint.
func (f Footprint) Bounds() (lo, hi Point) {
	hw, hl := f.Width/2, f.Length/2
	if f.Shape == ShapeCircle {
		hw, hl = f.Radius, f.Radius
	}
	return Point{X: f.Center.X - hw, Y: f.Center.Y - hl}, Point{X: f.Center.X + hw, Y: f.Center.Y + hl}
}

// Contains reports whether p lies inside or on the edge of the footprint.
func (f Footprint) Contains(p Point) bool {
	if f.Shape == ShapeCircle {
		return f.Center.Distance(p) <= f.Radius
	}
	lo, hi := f.Bounds()
	return p.X >= lo.X && p.X <= hi.X && p.Y >= lo.Y && p.Y <= hi.Y
}

// IntersectsSegment reports whether the segment a-b touches the footprint.
func (f Footprint) IntersectsSegment(a, b Point) bool {
	if f.Shape == ShapeCircle {
		return segmentPointDistance(a, b, f.Center) <= f.Radius
	}
	lo, hi := f.Bounds()
	return segmentHitsBox(a, b, lo, hi)
}

// segmentHitsBox clips the segment against the box (Liang-Barsky).
func segmentHitsBox(a, b, lo, hi Point) bool {
	dx, dy := b.X-a.X, b.Y-a.Y
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, a.X - lo.X},
		{dx, hi.X - a.X},
		{-dy, a.Y - lo.Y},
		{dy, hi.Y - a.Y},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return false
			}
			t0 = math.Max(t0, r)
		} else {
			if r < t0 {
				return false
			}
			t1 = math.Min(t1, r)
		}
	}
	return t0 <= t1
}

func segmentPointDistance(a, b, p Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return a.Distance(p)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return p.Distance(Point{X: a.X + t*dx, Y: a.Y + t*dy})
}
