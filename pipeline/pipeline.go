// Package pipeline runs decode, caller filters and suppression over batches of
// samples, one sample per image.
//
// Samples are independent, so they are processed concurrently on a bounded
// worker pool; the suppression of a single sample stays sequential.
package pipeline

import (
	"context"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nvr-ai/go-nms/models/model"
	"github.com/nvr-ai/go-nms/models/postprocess"
)

// Sample is the raw output of the detector for one image.
type Sample struct {
	// ID identifies the sample in results and logs.
	ID string
	// Raw is the flat [N, 5] buffer of normalized (cx, cy, w, h, score) rows.
	Raw []float32
	// Width and Height are the image size in pixels. When both are zero the
	// configured input size is used.
	Width, Height int
}

// Result is the outcome of processing one Sample.
type Result struct {
	ID string
	// Decoded is the number of boxes decoded before filtering and suppression.
	Decoded int
	// Boxes are the kept boxes in descending score order.
	Boxes []postprocess.Box
	// Err is set when the sample was skipped.
	Err error
}

// Processor applies a fixed configuration to samples. It is safe for
// concurrent use.
type Processor struct {
	config model.Config
	logger *zap.SugaredLogger
	pp     postprocess.Postprocessor
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPostprocessor appends a caller-owned filter, run after the filters from
// the config and before suppression.
func WithPostprocessor(pp postprocess.Postprocessor) Option {
	return func(p *Processor) {
		p.pp = postprocess.Chain(p.pp, pp)
	}
}

// New validates cfg and returns a Processor.
//
// Arguments:
//   - cfg: The run configuration.
//   - opts: Optional logger and extra filters.
//
// Returns:
//   - *Processor: The processor.
//   - error: If cfg fails validation.
func New(cfg model.Config, opts ...Option) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid pipeline config")
	}

	p := &Processor{
		config: cfg,
		logger: zap.NewNop().Sugar(),
		pp:     cfg.Postprocessor(),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Workers returns the number of samples processed concurrently.
func (p *Processor) Workers() int {
	if p.config.NMS.Workers > 0 {
		return p.config.NMS.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// ProcessOne decodes, filters and suppresses a single sample.
//
// Returns:
//   - Result: The outcome. On failure Result.Err holds the same error.
//   - error: ErrShape from decoding, wrapped with the sample ID.
func (p *Processor) ProcessOne(s Sample) (Result, error) {
	res := Result{ID: s.ID}

	width, height := s.Width, s.Height
	if width == 0 && height == 0 {
		width, height = p.config.Input.Width, p.config.Input.Height
		p.logger.Warnw("sample has no image size, using configured input size",
			"id", s.ID,
			"width", width,
			"height", height,
		)
	}

	boxes, err := postprocess.DecodeBoxes(s.Raw, width, height)
	if err != nil {
		res.Err = errors.Wrapf(err, "sample %q", s.ID)
		return res, res.Err
	}
	res.Decoded = len(boxes)

	if p.pp != nil {
		boxes = p.pp(boxes)
	}

	// The threshold was validated in New, so this cannot fail.
	kept, err := postprocess.ApplyGreedyNMS(boxes, p.config.NMS.Threshold)
	if err != nil {
		res.Err = errors.Wrapf(err, "sample %q", s.ID)
		return res, res.Err
	}
	res.Boxes = kept

	p.logger.Debugw("suppressed sample",
		"id", s.ID,
		"decoded", res.Decoded,
		"filtered", len(boxes),
		"kept", len(kept),
	)

	return res, nil
}

// Process runs every sample through ProcessOne on a bounded worker pool.
//
// Results are returned in the order of samples. When the config enables
// SkipInvalid, a failing sample is logged and recorded on its Result; use
// Errors to collect those failures. Otherwise the first failure cancels the
// remaining work and is returned.
//
// Arguments:
//   - ctx: Cancels the batch between samples.
//   - samples: The samples to process.
//
// Returns:
//   - []Result: One result per sample.
//   - error: The first sample error, or the context error.
func (p *Processor) Process(ctx context.Context, samples []Sample) ([]Result, error) {
	results := make([]Result, len(samples))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers())

	var (
		mu      sync.Mutex
		skipped int
	)

	for i := range samples {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res, err := p.ProcessOne(samples[i])
			results[i] = res
			if err == nil {
				return nil
			}
			if !p.config.SkipInvalid {
				return err
			}

			p.logger.Warnw("skipping sample", "id", samples[i].ID, "error", err)
			mu.Lock()
			skipped++
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.logger.Debugw("processed batch", "samples", len(samples), "skipped", skipped)

	return results, nil
}

// Errors combines the errors recorded on results, or returns nil if there are none.
func Errors(results []Result) error {
	var err error
	for _, r := range results {
		err = multierr.Append(err, r.Err)
	}
	return err
}
