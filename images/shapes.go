// Package images - Image geometry utilities
package images

import (
	"fmt"
	"image"

	"github.com/chewxy/math32"
)

// Rect is a corner-form box in pixel space.
//
// Unlike image.Rectangle, X2,Y2 are inclusive: a Rect spanning pixels 0 through 9
// has X1=0, X2=9 and a width of 10 pixels. This is the legacy pixel-counting
// convention used by the suppression code and it must not be "fixed" without
// changing suppression results on boundary-adjacent boxes.
type Rect struct {
	X1, Y1, X2, Y2 float32
}

// Degenerate reports whether r has zero or negative extent on either axis.
//
// A degenerate Rect has no area and overlaps nothing.
func (r Rect) Degenerate() bool {
	return !(r.X2 > r.X1) || !(r.Y2 > r.Y1)
}

// Width returns the inclusive pixel width of r.
func (r Rect) Width() float32 {
	return r.X2 - r.X1 + 1
}

// Height returns the inclusive pixel height of r.
func (r Rect) Height() float32 {
	return r.Y2 - r.Y1 + 1
}

// Area returns the inclusive pixel area of r, (x2-x1+1)*(y2-y1+1).
//
// Returns 0 for degenerate rectangles.
func (r Rect) Area() float32 {
	if r.Degenerate() {
		return 0
	}
	return r.Width() * r.Height()
}

// ToImageRect converts r to an integer image.Rectangle.
//
// Edges are floored to whole pixels, so negative coordinates grow outward, and
// because image.Rectangle is max-exclusive the inclusive X2,Y2 are shifted by one.
func (r Rect) ToImageRect() image.Rectangle {
	return image.Rect(
		int(math32.Floor(r.X1)),
		int(math32.Floor(r.Y1)),
		int(math32.Floor(r.X2))+1,
		int(math32.Floor(r.Y2))+1,
	).Canon()
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.2f, %.2f)-(%.2f, %.2f)", r.X1, r.Y1, r.X2, r.Y2)
}

// CalculateIoU computes the Intersection over Union of two rectangles using
// the inclusive "+1" pixel convention on both the areas and the intersection.
//
// The intersection rectangle is found by taking the maximum of the top-left
// corners and the minimum of the bottom-right corners:
//
//	inter = max(0, xx2-xx1+1) * max(0, yy2-yy1+1)
//	IoU   = inter / (area(r) + area(o) - inter)
//
// Note that under this convention two rectangles whose edges sit on the same
// pixel column already overlap by one pixel.
//
// Degenerate inputs never fault: if either rectangle is degenerate, or the
// union is not positive, the overlap is defined as 0.
//
// Arguments:
//   - r: The first rectangle.
//   - o: The other rectangle to compare against.
//
// Returns:
//   - float32: A value between 0.0 and 1.0 representing the IoU score.
//
// Example Usage:
// ```go
//
//	a := Rect{X1: 8, Y1: 8, X2: 12, Y2: 12}
//	b := Rect{X1: 10, Y1: 10, X2: 14, Y2: 14}
//
//	iou := CalculateIoU(a, b) // inter 3x3=9, union 25+25-9=41. Output: 0.219512
//
// ```
func CalculateIoU(r, o Rect) float32 {
	if r.Degenerate() || o.Degenerate() {
		return 0
	}

	xx1 := math32.Max(r.X1, o.X1)
	yy1 := math32.Max(r.Y1, o.Y1)
	xx2 := math32.Min(r.X2, o.X2)
	yy2 := math32.Min(r.Y2, o.Y2)

	w := math32.Max(0, xx2-xx1+1)
	h := math32.Max(0, yy2-yy1+1)
	inter := w * h

	union := r.Area() + o.Area() - inter
	if !(union > 0) {
		return 0
	}

	return inter / union
}
