package postprocess

import (
	"cmp"
	"slices"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-nms/images"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// Threshold is the IoU above which a lower-scoring box is suppressed.
	// Higher values keep more overlapping boxes.
	Threshold float32 `json:"threshold" yaml:"threshold"`
	// Workers is the number of samples suppressed concurrently by batch callers.
	// Zero means GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers"`
}

// Validate checks the threshold is within [0,1] and the worker count is not negative.
func (c *NMSConfig) Validate() error {
	if err := validateThreshold(c.Threshold); err != nil {
		return err
	}
	if c.Workers < 0 {
		return errors.Errorf("nms workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// ApplyNMS runs ApplyGreedyNMS with the threshold from config.
func ApplyNMS(boxes []Box, config *NMSConfig) ([]Box, error) {
	if config == nil {
		return nil, errors.New("nms config is nil")
	}
	return ApplyGreedyNMS(boxes, config.Threshold)
}

// ApplyGreedyNMS performs greedy Non-Maximum Suppression over center-form boxes.
//
// Boxes are visited in descending score order, ties broken by original index.
// Each visited box that is still active is kept, and every other active box
// whose overlap with it exceeds threshold is deactivated. Overlap uses the
// inclusive "+1" pixel convention of images.CalculateIoU.
//
// Arguments:
//   - boxes: Center-form boxes in any order. The slice is not modified.
//   - threshold: IoU threshold in [0,1] above which boxes are suppressed.
//
// Returns:
//   - []Box: The kept boxes in descending score order, unchanged. Empty, not
//     nil, when boxes is empty.
//   - error: ErrInvalidThreshold if threshold is outside [0,1]. No other errors.
func ApplyGreedyNMS(boxes []Box, threshold float32) ([]Box, error) {
	if err := validateThreshold(threshold); err != nil {
		return nil, err
	}

	n := len(boxes)
	kept := make([]Box, 0, n)
	if n == 0 {
		return kept, nil
	}

	rects := make([]images.Rect, n)
	order := make([]int, n)
	for i, b := range boxes {
		rects[i] = b.Rect()
		order[i] = i
	}

	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(boxes[b].Score, boxes[a].Score)
	})

	active := make([]bool, n)
	for i := range active {
		active[i] = true
	}

	for pos, i := range order {
		if !active[i] {
			continue
		}
		kept = append(kept, boxes[i])
		active[i] = false

		for _, j := range order[pos+1:] {
			if !active[j] {
				continue
			}
			if images.CalculateIoU(rects[i], rects[j]) > threshold {
				active[j] = false
			}
		}
	}

	return kept, nil
}

func validateThreshold(threshold float32) error {
	if math32.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return errors.Wrapf(ErrInvalidThreshold, "got %v", threshold)
	}
	return nil
}
