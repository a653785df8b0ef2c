// Package geometry - primitive box and grasp-rectangle types shared by the
// post-processing pipeline.
package geometry

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Rect is a lightweight axis-aligned bounding box in corner form.
type Rect struct {
	// X2,Y2 are inclusive image coordinates (Faster R-CNN convention),
	// so the pixel width of a box is X2-X1+1.
	X1, Y1, X2, Y2 float32
}

// Width returns the pixel width of the box under the inclusive-corner convention.
func (r Rect) Width() float32 { return r.X2 - r.X1 + 1 }

// Height returns the pixel height of the box under the inclusive-corner convention.
func (r Rect) Height() float32 { return r.Y2 - r.Y1 + 1 }

// Area returns the pixel area of the box.
func (r Rect) Area() float32 { return r.Width() * r.Height() }

// CenterX returns the x coordinate of the box center.
func (r Rect) CenterX() float32 { return r.X1 + 0.5*(r.X2-r.X1) }

// CenterY returns the y coordinate of the box center.
func (r Rect) CenterY() float32 { return r.Y1 + 0.5*(r.Y2-r.Y1) }

// Clip clamps all four coordinates into the image, x into [0, width-1]
// and y into [0, height-1].
func (r Rect) Clip(height, width float32) Rect {
	return Rect{
		X1: math32.Min(math32.Max(r.X1, 0), width-1),
		Y1: math32.Min(math32.Max(r.Y1, 0), height-1),
		X2: math32.Min(math32.Max(r.X2, 0), width-1),
		Y2: math32.Min(math32.Max(r.Y2, 0), height-1),
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.2f, %.2f), (%.2f, %.2f)", r.X1, r.Y1, r.X2, r.Y2)
}

// IoU (Intersection over Union) measures the extent of overlap between two
// boxes:
//
//	IoU = Area of Intersection / Area of Union
//
//   - 1.0 means the boxes are identical.
//   - 0.0 means the boxes do not overlap at all.
//
// The intersection corners are the maximum of the top-left corners and the
// minimum of the bottom-right corners; a non-positive width or height means
// the boxes are disjoint. The union follows the Principle of
// Inclusion-Exclusion: Area(A) + Area(B) - Area(Intersection).
func IoU(r, o Rect) float32 {
	ix1 := math32.Max(r.X1, o.X1)
	iy1 := math32.Max(r.Y1, o.Y1)
	ix2 := math32.Min(r.X2, o.X2)
	iy2 := math32.Min(r.Y2, o.Y2)

	interW := ix2 - ix1 + 1
	interH := iy2 - iy1 + 1
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	return interArea / unionArea
}
