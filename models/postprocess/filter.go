package postprocess

import "github.com/samber/lo"

// Postprocessor filters or modifies a decoded batch of boxes.
//
// Decoding and suppression never filter on their own; score cut-offs and
// sentinel handling are caller policy expressed as Postprocessors.
type Postprocessor func([]Box) []Box

// TruncateAtSentinel returns a Postprocessor that keeps only the boxes before
// the first one with a non-positive score. Producers that pad a fixed-size label
// buffer use such a row to mark the end of the valid boxes.
func TruncateAtSentinel() Postprocessor {
	return func(in []Box) []Box {
		_, idx, found := lo.FindIndexOf(in, func(b Box) bool {
			return b.Score <= 0
		})
		if !found {
			return in
		}
		return in[:idx]
	}
}

// NewScoreFilter returns a Postprocessor that drops boxes scoring below minScore.
func NewScoreFilter(minScore float32) Postprocessor {
	return func(in []Box) []Box {
		return lo.Filter(in, func(b Box, _ int) bool {
			return b.Score >= minScore
		})
	}
}

// Chain composes postprocessors, applied left to right. Nil entries are skipped.
func Chain(pps ...Postprocessor) Postprocessor {
	pps = lo.Filter(pps, func(pp Postprocessor, _ int) bool {
		return pp != nil
	})
	return func(in []Box) []Box {
		for _, pp := range pps {
			in = pp(in)
		}
		return in
	}
}
