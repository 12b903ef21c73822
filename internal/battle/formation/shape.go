// Package formation keeps units in fixed slots relative to a moving anchor.
package formation

import (
	"fmt"
	"math"
	"strings"

	"github.com/mitchelldurbincs/TacticalBattleSim/internal/battle/core"
)

// Shape identifies how slots are laid out around the anchor.
type Shape int

const (
	ShapeLine   Shape = iota // ranks perpendicular to facing
	ShapeColumn              // files along facing
	ShapeWedge               // V with the point forward
	ShapeBlock               // square
)

func (s Shape) String() string {
	switch s {
	case ShapeLine:
		return "line"
	case ShapeColumn:
		return "column"
	case ShapeWedge:
		return "wedge"
	case ShapeBlock:
		return "block"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// ParseShape converts a shape name.
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "line", "":
		return ShapeLine, nil
	case "column":
		return ShapeColumn, nil
	case "wedge":
		return ShapeWedge, nil
	case "block":
		return ShapeBlock, nil
	}
	return 0, fmt.Errorf("unknown formation shape %q", s)
}

// Offset is a slot position local to the anchor: Forward along the facing,
// Right perpendicular to it.
type Offset struct {
	Forward, Right float64
}

// side alternates around a centre line: 0, -1, +1, -2, +2, ...
func side(i int) float64 {
	s := float64((i + 1) / 2)
	if i%2 == 1 {
		return -s
	}
	return s
}

// Offsets lays out count slots. Slot 0 sits on the anchor, except in a
// two-file column whose leading pair straddles it.
func Offsets(shape Shape, count int, spacing float64, rankWidth int) []Offset {
	offsets := make([]Offset, count)
	if count == 0 {
		return offsets
	}
	if rankWidth <= 0 {
		rankWidth = count
	}

	switch shape {
	case ShapeLine:
		for i := 0; i < count; i++ {
			rank, file := i/rankWidth, i%rankWidth
			offsets[i] = Offset{Forward: -float64(rank) * spacing, Right: side(file) * spacing}
		}
	case ShapeColumn:
		files := 2
		if count < files {
			files = count
		}
		for i := 0; i < count; i++ {
			rank, file := i/files, i%files
			right := 0.0
			if files == 2 {
				right = (float64(file) - 0.5) * spacing
			}
			offsets[i] = Offset{Forward: -float64(rank) * spacing, Right: right}
		}
	case ShapeWedge:
		for i := 1; i < count; i++ {
			depth := float64((i + 1) / 2)
			offsets[i] = Offset{Forward: -depth * spacing, Right: side(i) * spacing}
		}
	case ShapeBlock:
		width := int(math.Ceil(math.Sqrt(float64(count))))
		for i := 0; i < count; i++ {
			rank, file := i/width, i%width
			offsets[i] = Offset{Forward: -float64(rank) * spacing, Right: side(file) * spacing}
		}
	}
	return offsets
}

// ToWorld converts a local offset to a world position for the given anchor.
func ToWorld(anchor core.Vec2, facing float64, o Offset) core.Vec2 {
	fwd := core.FromAngle(facing)
	right := core.Vec2{X: -fwd.Y, Y: fwd.X}
	return anchor.Add(fwd.Scale(o.Forward)).Add(right.Scale(o.Right))
}
