package layout

import (
	"fmt"
	"image"
	"image/color"
)

// Direction is the axis items are stacked along.
type Direction int

const (
	// Vertical stacks items top to bottom. The primary axis is height.
	Vertical Direction = iota

	// Horizontal stacks items left to right. The primary axis is width.
	Horizontal
)

func (d Direction) String() string {
	switch d {
	case Vertical:
		return "vertical"
	case Horizontal:
		return "horizontal"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection accepts "vertical" and "horizontal".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "vertical", "v":
		return Vertical, nil
	case "horizontal", "h":
		return Horizontal, nil
	default:
		return Vertical, fmt.Errorf("unknown direction %q", s)
	}
}

// Split returns the primary and cross extents of a width x height box.
func (d Direction) Split(width, height int) (primary, cross int) {
	if d == Horizontal {
		return width, height
	}
	return height, width
}

// Join is the inverse of Split.
func (d Direction) Join(primary, cross int) Size {
	if d == Horizontal {
		return Size{Width: primary, Height: cross}
	}
	return Size{Width: cross, Height: primary}
}

// Rect returns the canvas rectangle spanning [cursor, cursor+primary) on
// the primary axis and [0, cross) on the cross axis.
func (d Direction) Rect(cursor, primary, cross int) image.Rectangle {
	if d == Horizontal {
		return image.Rect(cursor, 0, cursor+primary, cross)
	}
	return image.Rect(0, cursor, cross, cursor+primary)
}

// ExtentMode selects how items are scaled on the cross axis.
type ExtentMode int

const (
	// ScaleToLargest scales every item to the largest cross extent.
	ScaleToLargest ExtentMode = iota

	// ScaleToSmallest scales every item to the smallest cross extent.
	ScaleToSmallest

	// FixedExtent scales every item to Extent.Value.
	FixedExtent

	// PreserveNative draws every item at its own size.
	PreserveNative
)

func (m ExtentMode) String() string {
	switch m {
	case ScaleToLargest:
		return "largest"
	case ScaleToSmallest:
		return "smallest"
	case FixedExtent:
		return "fixed"
	case PreserveNative:
		return "native"
	default:
		return fmt.Sprintf("ExtentMode(%d)", int(m))
	}
}

// Extent is an ExtentMode plus the target value used by FixedExtent.
type Extent struct {
	Mode  ExtentMode
	Value int
}

// Fixed returns a FixedExtent of n pixels.
func Fixed(n int) Extent {
	return Extent{Mode: FixedExtent, Value: n}
}

// ExtentFromTarget maps the integer target used by the public API:
// 0 scales to the largest item, negative to the smallest, positive is a
// fixed extent in pixels.
func ExtentFromTarget(target int) Extent {
	switch {
	case target == 0:
		return Extent{Mode: ScaleToLargest}
	case target < 0:
		return Extent{Mode: ScaleToSmallest}
	default:
		return Fixed(target)
	}
}

func (e Extent) String() string {
	if e.Mode == FixedExtent {
		return fmt.Sprintf("fixed(%d)", e.Value)
	}
	return e.Mode.String()
}

// Policy describes how a sequence of sources is laid out.
//
// The zero value stacks vertically, scales to the largest item, uses no
// spacing and leaves the background transparent.
type Policy struct {
	Direction Direction
	Extent    Extent
	Spacing   int
	FillColor color.Color
}

// Gap returns the spacing with negative values normalized to zero.
func (p Policy) Gap() int {
	return max(p.Spacing, 0)
}

// HasFill reports whether the canvas must be filled before compositing.
func (p Policy) HasFill() bool {
	if p.FillColor == nil {
		return false
	}
	_, _, _, a := p.FillColor.RGBA()
	return a != 0
}
