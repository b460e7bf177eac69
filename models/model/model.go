// Package model - Configuration for the decode and suppression pipeline.
package model

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-nms/models/postprocess"
)

// InputConfig describes the default image size used to scale normalized boxes.
type InputConfig struct {
	// Width is the default image width in pixels.
	Width int `json:"width" yaml:"width"`
	// Height is the default image height in pixels.
	Height int `json:"height" yaml:"height"`
}

// FilterConfig holds the caller-owned filtering policy applied between
// decoding and suppression.
type FilterConfig struct {
	// MinScore drops decoded boxes scoring below it. Zero disables the filter.
	MinScore float32 `json:"min_score" yaml:"min_score"`
	// TruncateAtSentinel drops every box from the first non-positive score onward.
	TruncateAtSentinel bool `json:"truncate_at_sentinel" yaml:"truncate_at_sentinel"`
}

// Config is the full configuration of a decode and suppress run.
type Config struct {
	NMS    postprocess.NMSConfig `json:"nms" yaml:"nms"`
	Input  InputConfig           `json:"input" yaml:"input"`
	Filter FilterConfig          `json:"filter" yaml:"filter"`
	// SkipInvalid records malformed samples as failed results instead of
	// aborting the whole batch.
	SkipInvalid bool `json:"skip_invalid" yaml:"skip_invalid"`
}

// DefaultConfig returns a configuration with sensible defaults.
//
// Returns:
//   - Config: 0.5 IoU threshold, GOMAXPROCS workers, 640x640 input, no filters.
func DefaultConfig() Config {
	return Config{
		NMS: postprocess.NMSConfig{
			Threshold: 0.5,
			Workers:   0,
		},
		Input: InputConfig{
			Width:  640,
			Height: 640,
		},
	}
}

// LoadConfig reads a YAML configuration file on top of DefaultConfig.
//
// Arguments:
//   - path: Path to the YAML file.
//
// Returns:
//   - Config: The merged, validated configuration.
//   - error: If the file cannot be read or parsed, or fails Validate.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "config %s", path)
	}

	return cfg, nil
}

// Validate checks the configuration.
//
// Returns:
//   - error: wrapping postprocess.ErrInvalidThreshold for a bad threshold, or
//     postprocess.ErrShape for a non-positive input size.
func (c Config) Validate() error {
	if err := c.NMS.Validate(); err != nil {
		return err
	}
	if c.Input.Width <= 0 || c.Input.Height <= 0 {
		return errors.Wrapf(postprocess.ErrShape, "input size %dx%d must be positive",
			c.Input.Width, c.Input.Height)
	}
	if c.Filter.MinScore < 0 {
		return errors.Errorf("filter min_score must not be negative, got %v", c.Filter.MinScore)
	}
	return nil
}

// Postprocessor builds the caller-owned filter chain described by the config.
//
// Returns nil when no filter is enabled.
func (c Config) Postprocessor() postprocess.Postprocessor {
	var pps []postprocess.Postprocessor
	if c.Filter.TruncateAtSentinel {
		pps = append(pps, postprocess.TruncateAtSentinel())
	}
	if c.Filter.MinScore > 0 {
		pps = append(pps, postprocess.NewScoreFilter(c.Filter.MinScore))
	}
	if len(pps) == 0 {
		return nil
	}
	return postprocess.Chain(pps...)
}
