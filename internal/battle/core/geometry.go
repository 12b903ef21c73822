package core

import (
	"fmt"
	"math"
)

// Vec2 is a point or direction in continuous world coordinates.
type Vec2 struct {
	X, Y float64
}

// V is shorthand for constructing a Vec2.
func V(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

// FromAngle returns the unit vector pointing along the given heading (radians, 0 = +X).
func FromAngle(heading float64) Vec2 {
	return Vec2{X: math.Cos(heading), Y: math.Sin(heading)}
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}
func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }
func (v Vec2) LenSq() float64     { return v.X*v.X + v.Y*v.Y }
func (v Vec2) Len() float64       { return math.Sqrt(v.LenSq()) }

// Dist returns the Euclidean distance between two points.
func (v Vec2) Dist(o Vec2) float64 {
	return v.Sub(o).Len()
}

// Normalize returns the unit vector in the direction of v, or the zero vector.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{X: v.X / l, Y: v.Y / l}
}

// Angle returns the heading of v in radians.
func (v Vec2) Angle() float64 {
	return math.Atan2(v.Y, v.X)
}

// Rotate rotates v by theta radians.
func (v Vec2) Rotate(theta float64) Vec2 {
	c, s := math.Cos(theta), math.Sin(theta)
	return Vec2{X: v.X*c - v.Y*s, Y: v.X*s + v.Y*c}
}

// ClampLen shortens v to at most max length.
func (v Vec2) ClampLen(max float64) Vec2 {
	l := v.Len()
	if l <= max || l == 0 {
		return v
	}
	return v.Scale(max / l)
}

func (v Vec2) String() string {
	return fmt.Sprintf("(%.2f,%.2f)", v.X, v.Y)
}

// AngleBetween returns the absolute difference between two headings, in [0, pi].
func AngleBetween(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 2*math.Pi)
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}

// Cell is a discrete grid coordinate.
type Cell struct {
	X, Y int
}

// C is shorthand for constructing a Cell.
func C(x, y int) Cell {
	return Cell{X: x, Y: y}
}

// CellFromIndex creates a cell from a row-major index.
func CellFromIndex(idx, width int) Cell {
	return Cell{X: idx % width, Y: idx / width}
}

// IsValid checks if the cell is within the given bounds.
func (c Cell) IsValid(width, height int) bool {
	return c.X >= 0 && c.X < width && c.Y >= 0 && c.Y < height
}

// ToIndex converts the cell to a row-major index.
func (c Cell) ToIndex(width int) int {
	return c.Y*width + c.X
}

// Chebyshev returns the king-move distance between two cells.
func (c Cell) Chebyshev(o Cell) int {
	dx, dy := c.X-o.X, c.Y-o.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// Euclid returns the straight-line distance between cell coordinates.
func (c Cell) Euclid(o Cell) float64 {
	dx, dy := float64(c.X-o.X), float64(c.Y-o.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}
