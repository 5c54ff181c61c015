// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"errors"
	"fmt"
)

// ErrInvalidRegion indicates a degenerate or out-of-bounds rectangle.
var ErrInvalidRegion = errors.New("invalid region")

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PointInt represents a 2D point with integer coordinates.
type PointInt struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Region is an axis-aligned rectangle in image coordinates. (X1, Y1) is the
// top-left corner (inclusive), (X2, Y2) the bottom-right corner (exclusive).
// A valid region has X1 < X2 and Y1 < Y2.
type Region struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// NewRegion creates a new Region.
func NewRegion(x1, y1, x2, y2 int) Region {
	return Region{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Width returns the region width in pixels.
func (r Region) Width() int {
	return r.X2 - r.X1
}

// Height returns the region height in pixels.
func (r Region) Height() int {
	return r.Y2 - r.Y1
}

// Area returns the number of pixels covered by the region.
func (r Region) Area() int {
	return r.Width() * r.Height()
}

// Valid reports whether the region has positive width and height.
func (r Region) Valid() bool {
	return r.X1 < r.X2 && r.Y1 < r.Y2
}

// Contains returns true if the point is inside the region.
func (r Region) Contains(x, y int) bool {
	return x >= r.X1 && x < r.X2 && y >= r.Y1 && y < r.Y2
}

// Clamp returns a copy of the region clipped to a w×h image.
func (r Region) Clamp(w, h int) Region {
	return Region{
		X1: clamp(r.X1, 0, w),
		Y1: clamp(r.Y1, 0, h),
		X2: clamp(r.X2, 0, w),
		Y2: clamp(r.Y2, 0, h),
	}
}

// ClampValid clips the region to a w×h image and fails if the result is
// degenerate. This is the standard validation entry for callers that take a
// user-selected rectangle.
func (r Region) ClampValid(w, h int) (Region, error) {
	c := r.Clamp(w, h)
	if !c.Valid() {
		return Region{}, fmt.Errorf("%w: (%d,%d)-(%d,%d) in %dx%d image",
			ErrInvalidRegion, r.X1, r.Y1, r.X2, r.Y2, w, h)
	}
	return c, nil
}

// Expand returns the region grown by n pixels in every direction, clipped to
// a w×h image.
func (r Region) Expand(n, w, h int) Region {
	return Region{
		X1: clamp(r.X1-n, 0, w),
		Y1: clamp(r.Y1-n, 0, h),
		X2: clamp(r.X2+n, 0, w),
		Y2: clamp(r.Y2+n, 0, h),
	}
}

// Scale returns the region with all coordinates multiplied by factor,
// rounded toward zero.
func (r Region) Scale(factor float64) Region {
	return Region{
		X1: int(float64(r.X1) * factor),
		Y1: int(float64(r.Y1) * factor),
		X2: int(float64(r.X2) * factor),
		Y2: int(float64(r.Y2) * factor),
	}
}

func clamp(v, minVal, maxVal int) int {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
