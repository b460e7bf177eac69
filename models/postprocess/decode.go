package postprocess

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// DecodeBoxes converts a flat, row-major buffer of normalized box parameters
// into absolute pixel-space, center-form boxes.
//
// Each row of BoxFields values is (cx, cy, w, h, score). cx and w are scaled by
// width, cy and h by height. The score passes through untouched and no rows are
// dropped: a row with score <= 0 is still decoded. Truncation at such sentinel
// rows is left to the caller (see TruncateAtSentinel).
//
// Arguments:
//   - raw: Flat buffer of N*5 values. It is not modified.
//   - width: The target image width in pixels.
//   - height: The target image height in pixels.
//
// Returns:
//   - []Box: N boxes in the same order as the rows of raw.
//   - error: ErrShape if len(raw) is not a multiple of 5 or the image size is
//     not positive. No boxes are returned on error.
func DecodeBoxes(raw []float32, width, height int) ([]Box, error) {
	if err := validateShape(len(raw), width, height); err != nil {
		return nil, err
	}

	w := float32(width)
	h := float32(height)
	n := len(raw) / BoxFields
	boxes := make([]Box, n)

	for i := 0; i < n; i++ {
		row := raw[i*BoxFields : (i+1)*BoxFields]
		boxes[i] = Box{
			CX:    row[0] * w,
			CY:    row[1] * h,
			W:     row[2] * w,
			H:     row[3] * h,
			Score: row[4],
		}
	}

	return boxes, nil
}

// DecodeTensor is DecodeBoxes for a float32 tensor holding the raw box rows,
// typically shaped [N, 5]. Any shape is accepted as long as its total size is a
// multiple of 5; the data is read in row-major order.
//
// Arguments:
//   - t: The raw label tensor. Views are materialized before reading.
//   - width: The target image width in pixels.
//   - height: The target image height in pixels.
//
// Returns:
//   - []Box: The decoded boxes.
//   - error: ErrShape for nil, scalar or non-float32 tensors, or any DecodeBoxes error.
func DecodeTensor(t *tensor.Dense, width, height int) ([]Box, error) {
	if t == nil {
		return nil, errors.Wrap(ErrShape, "tensor is nil")
	}
	if t.Dims() == 0 {
		return nil, errors.Wrapf(ErrShape, "tensor shape %v is a scalar", t.Shape())
	}
	if t.Dtype() != tensor.Float32 {
		return nil, errors.Wrapf(ErrShape, "tensor dtype %v is not float32", t.Dtype())
	}

	dense := t
	if t.IsMaterializable() {
		m, ok := t.Materialize().(*tensor.Dense)
		if !ok {
			return nil, errors.Wrap(ErrShape, "tensor view could not be materialized")
		}
		dense = m
	}

	data, ok := dense.Data().([]float32)
	if !ok {
		return nil, errors.Wrapf(ErrShape, "tensor data is %T, not []float32", dense.Data())
	}

	return DecodeBoxes(data, width, height)
}

func validateShape(size, width, height int) error {
	if size%BoxFields != 0 {
		return errors.Wrapf(ErrShape, "buffer length %d is not a multiple of %d", size, BoxFields)
	}
	if width <= 0 || height <= 0 {
		return errors.Wrapf(ErrShape, "image size %dx%d must be positive", width, height)
	}
	return nil
}
