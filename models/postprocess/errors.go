package postprocess

import "github.com/pkg/errors"

var (
	// ErrShape is returned when a raw box buffer or image size is malformed.
	ErrShape = errors.New("invalid box buffer shape")
	// ErrInvalidThreshold is returned when an overlap threshold is outside [0,1].
	ErrInvalidThreshold = errors.New("overlap threshold must be within [0,1]")
)
