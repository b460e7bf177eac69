// Package util - Loading raw detector output from disk.
package util

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-nms/models/postprocess"
	"github.com/nvr-ai/go-nms/pipeline"
)

// SampleFile is the on-disk form of one image's raw detector output.
//
//	{"width": 640, "height": 480, "boxes": [[cx, cy, w, h, score], ...]}
type SampleFile struct {
	// Width is the image width in pixels.
	Width int `json:"width"`
	// Height is the image height in pixels.
	Height int `json:"height"`
	// Boxes are the normalized rows, one per candidate box.
	Boxes [][]float32 `json:"boxes"`
}

// Flatten returns the rows as a flat, row-major buffer.
//
// Returns:
//   - []float32: The buffer.
//   - error: ErrShape if a row does not hold exactly postprocess.BoxFields values.
func (f SampleFile) Flatten() ([]float32, error) {
	raw := make([]float32, 0, len(f.Boxes)*postprocess.BoxFields)
	for i, row := range f.Boxes {
		if len(row) != postprocess.BoxFields {
			return nil, errors.Wrapf(postprocess.ErrShape, "row %d has %d values", i, len(row))
		}
		raw = append(raw, row...)
	}
	return raw, nil
}

// LoadSampleFile reads a single sample file.
//
// Arguments:
//   - path: Path to the JSON file. The sample ID is the file name without extension.
//
// Returns:
//   - pipeline.Sample: The sample.
//   - error: If the file cannot be read or parsed.
func LoadSampleFile(path string) (pipeline.Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Sample{}, err
	}

	var f SampleFile
	if err := json.Unmarshal(data, &f); err != nil {
		return pipeline.Sample{}, errors.Wrapf(err, "parsing %s", path)
	}

	raw, err := f.Flatten()
	if err != nil {
		return pipeline.Sample{}, errors.Wrapf(err, "sample %s", path)
	}

	return pipeline.Sample{
		ID:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Raw:    raw,
		Width:  f.Width,
		Height: f.Height,
	}, nil
}

// LoadDirectorySamples reads all frame-<N>.json sample files from a directory.
//
// Arguments:
// - dir: Directory path containing sample files.
//
// Returns:
// - []pipeline.Sample: The samples sorted by frame number.
// - error: Error if loading fails.
func LoadDirectorySamples(dir string) ([]pipeline.Sample, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type frameSample struct {
		frame  int
		sample pipeline.Sample
	}

	var samples []frameSample
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		frame, err := frameNumber(file.Name())
		if err != nil {
			return nil, err
		}
		sample, err := LoadSampleFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, err
		}
		samples = append(samples, frameSample{frame: frame, sample: sample})
	}

	sort.Slice(samples, func(i, j int) bool {
		return samples[i].frame < samples[j].frame
	})

	out := make([]pipeline.Sample, len(samples))
	for i, s := range samples {
		out[i] = s.sample
	}

	return out, nil
}

func frameNumber(name string) (int, error) {
	trimmed, ok := strings.CutPrefix(name, "frame-")
	if !ok {
		return 0, errors.Errorf("file %s is not named frame-<N>.json", name)
	}
	frame, err := strconv.Atoi(strings.TrimSuffix(trimmed, filepath.Ext(name)))
	if err != nil {
		return 0, errors.Wrapf(err, "file %s is not named frame-<N>.json", name)
	}
	return frame, nil
}
