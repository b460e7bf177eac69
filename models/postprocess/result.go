// Package postprocess - Box decoding and suppression for detection results.
package postprocess

import (
	"fmt"
	"image"

	"github.com/nvr-ai/go-nms/images"
)

// BoxFields is the number of values per box row: cx, cy, w, h, score.
const BoxFields = 5

// Box is a single scored, center-form bounding box.
//
// Coordinates are normalized to [0,1] before decoding and absolute pixels
// after. Boxes are values; nothing identifies them beyond their fields and
// their position in a batch.
type Box struct {
	// CX is the horizontal center of the box.
	CX float32 `json:"cx" yaml:"cx"`
	// CY is the vertical center of the box.
	CY float32 `json:"cy" yaml:"cy"`
	// W is the width of the box.
	W float32 `json:"w" yaml:"w"`
	// H is the height of the box.
	H float32 `json:"h" yaml:"h"`
	// Score is the confidence of the box.
	Score float32 `json:"score" yaml:"score"`
}

// Rect converts b from center-form to corner-form.
//
//	x1 = cx - w/2, y1 = cy - h/2, x2 = cx + w/2, y2 = cy + h/2
func (b Box) Rect() images.Rect {
	return images.Rect{
		X1: b.CX - b.W/2,
		Y1: b.CY - b.H/2,
		X2: b.CX + b.W/2,
		Y2: b.CY + b.H/2,
	}
}

// ToImageRect returns the integer pixel rectangle covered by b, for drawing.
func (b Box) ToImageRect() image.Rectangle {
	return b.Rect().ToImageRect()
}

func (b Box) String() string {
	return fmt.Sprintf("Box (score %f): center (%.2f, %.2f), size %.2fx%.2f",
		b.Score, b.CX, b.CY, b.W, b.H)
}
