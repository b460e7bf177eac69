package postprocess

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-nms/images"
)

func randomBoxes(rng *rand.Rand, n int) []Box {
	boxes := make([]Box, n)
	for i := range boxes {
		boxes[i] = Box{
			CX:    rng.Float32() * 200,
			CY:    rng.Float32() * 200,
			W:     rng.Float32() * 60,
			H:     rng.Float32() * 60,
			Score: rng.Float32(),
		}
	}
	return boxes
}

func TestApplyGreedyNMS_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		boxes     []Box
		threshold float32
		expected  []Box
	}{
		{
			name: "Identical boxes keep the higher score",
			boxes: []Box{
				{CX: 10, CY: 10, W: 4, H: 4, Score: 0.9},
				{CX: 10, CY: 10, W: 4, H: 4, Score: 0.5},
			},
			threshold: 0.5,
			expected:  []Box{{CX: 10, CY: 10, W: 4, H: 4, Score: 0.9}},
		},
		{
			name: "Identical boxes given lowest score first",
			boxes: []Box{
				{CX: 10, CY: 10, W: 4, H: 4, Score: 0.5},
				{CX: 10, CY: 10, W: 4, H: 4, Score: 0.9},
			},
			threshold: 0.5,
			expected:  []Box{{CX: 10, CY: 10, W: 4, H: 4, Score: 0.9}},
		},
		{
			name: "Disjoint boxes are both kept",
			boxes: []Box{
				{CX: 0, CY: 0, W: 2, H: 2, Score: 0.8},
				{CX: 100, CY: 100, W: 2, H: 2, Score: 0.6},
			},
			threshold: 0,
			expected: []Box{
				{CX: 0, CY: 0, W: 2, H: 2, Score: 0.8},
				{CX: 100, CY: 100, W: 2, H: 2, Score: 0.6},
			},
		},
		{
			name: "Output is ordered by descending score",
			boxes: []Box{
				{CX: 100, CY: 100, W: 2, H: 2, Score: 0.2},
				{CX: 0, CY: 0, W: 2, H: 2, Score: 0.8},
				{CX: 50, CY: 50, W: 2, H: 2, Score: 0.5},
			},
			threshold: 0.3,
			expected: []Box{
				{CX: 0, CY: 0, W: 2, H: 2, Score: 0.8},
				{CX: 50, CY: 50, W: 2, H: 2, Score: 0.5},
				{CX: 100, CY: 100, W: 2, H: 2, Score: 0.2},
			},
		},
		{
			// Corners (8,8)-(12,12) and (12,8)-(16,12) share the column x=12.
			name: "Edge-sharing boxes overlap at threshold zero",
			boxes: []Box{
				{CX: 10, CY: 10, W: 4, H: 4, Score: 0.9},
				{CX: 14, CY: 10, W: 4, H: 4, Score: 0.7},
			},
			threshold: 0,
			expected:  []Box{{CX: 10, CY: 10, W: 4, H: 4, Score: 0.9}},
		},
		{
			// Same pair: inter=1x5=5, union=25+25-5=45, IoU~0.111.
			name: "Edge-sharing boxes survive a looser threshold",
			boxes: []Box{
				{CX: 10, CY: 10, W: 4, H: 4, Score: 0.9},
				{CX: 14, CY: 10, W: 4, H: 4, Score: 0.7},
			},
			threshold: 0.12,
			expected: []Box{
				{CX: 10, CY: 10, W: 4, H: 4, Score: 0.9},
				{CX: 14, CY: 10, W: 4, H: 4, Score: 0.7},
			},
		},
		{
			// b is suppressed by a, so c (overlapping only b) survives.
			name: "Suppressed boxes do not suppress others",
			boxes: []Box{
				{CX: 10, CY: 10, W: 10, H: 10, Score: 0.9},
				{CX: 14, CY: 10, W: 10, H: 10, Score: 0.8},
				{CX: 18, CY: 10, W: 10, H: 10, Score: 0.7},
			},
			threshold: 0.3,
			expected: []Box{
				{CX: 10, CY: 10, W: 10, H: 10, Score: 0.9},
				{CX: 18, CY: 10, W: 10, H: 10, Score: 0.7},
			},
		},
		{
			name: "Degenerate box is never suppressed",
			boxes: []Box{
				{CX: 10, CY: 10, W: 4, H: 4, Score: 0.9},
				{CX: 10, CY: 10, W: 0, H: 0, Score: 0.5},
			},
			threshold: 0,
			expected: []Box{
				{CX: 10, CY: 10, W: 4, H: 4, Score: 0.9},
				{CX: 10, CY: 10, W: 0, H: 0, Score: 0.5},
			},
		},
		{
			name: "Degenerate box never suppresses",
			boxes: []Box{
				{CX: 10, CY: 10, W: 0, H: 0, Score: 0.9},
				{CX: 10, CY: 10, W: 4, H: 4, Score: 0.5},
				{CX: 10, CY: 10, W: -3, H: 2, Score: 0.4},
			},
			threshold: 0,
			expected: []Box{
				{CX: 10, CY: 10, W: 0, H: 0, Score: 0.9},
				{CX: 10, CY: 10, W: 4, H: 4, Score: 0.5},
				{CX: 10, CY: 10, W: -3, H: 2, Score: 0.4},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kept, err := ApplyGreedyNMS(tt.boxes, tt.threshold)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, kept)
		})
	}
}

func TestApplyGreedyNMS_TiesKeepInputOrder(t *testing.T) {
	boxes := []Box{
		{CX: 0, CY: 0, W: 2, H: 2, Score: 0.5},
		{CX: 50, CY: 50, W: 2, H: 2, Score: 0.5},
		{CX: 100, CY: 100, W: 2, H: 2, Score: 0.5},
	}

	kept, err := ApplyGreedyNMS(boxes, 0.5)
	require.NoError(t, err)
	assert.Equal(t, boxes, kept)

	// Overlapping ties: the earlier box wins.
	overlapping := []Box{
		{CX: 10, CY: 10, W: 4, H: 4, Score: 0.5},
		{CX: 11, CY: 10, W: 4, H: 4, Score: 0.5},
	}
	kept, err = ApplyGreedyNMS(overlapping, 0.5)
	require.NoError(t, err)
	assert.Equal(t, overlapping[:1], kept)
}

func TestApplyGreedyNMS_Empty(t *testing.T) {
	kept, err := ApplyGreedyNMS(nil, 0.5)
	require.NoError(t, err)
	assert.NotNil(t, kept)
	assert.Empty(t, kept)

	kept, err = ApplyGreedyNMS([]Box{}, 0)
	require.NoError(t, err)
	assert.Empty(t, kept)
}

func TestApplyGreedyNMS_InvalidThreshold(t *testing.T) {
	boxes := []Box{{CX: 10, CY: 10, W: 4, H: 4, Score: 0.9}}

	for _, threshold := range []float32{-0.01, 1.01, float32(math.NaN()), float32(math.Inf(1))} {
		kept, err := ApplyGreedyNMS(boxes, threshold)
		assert.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidThreshold), "threshold %v", threshold)
		assert.Nil(t, kept)
	}

	// Invalid thresholds are rejected even with nothing to suppress.
	_, err := ApplyGreedyNMS(nil, 2)
	assert.True(t, errors.Is(err, ErrInvalidThreshold))
}

func TestApplyGreedyNMS_DoesNotModifyInput(t *testing.T) {
	boxes := randomBoxes(rand.New(rand.NewSource(7)), 50)
	snapshot := append([]Box(nil), boxes...)

	_, err := ApplyGreedyNMS(boxes, 0.3)
	require.NoError(t, err)
	assert.Equal(t, snapshot, boxes)
}

func TestApplyGreedyNMS_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for round := 0; round < 25; round++ {
		boxes := randomBoxes(rng, 1+rng.Intn(80))
		threshold := rng.Float32()

		kept, err := ApplyGreedyNMS(boxes, threshold)
		require.NoError(t, err)

		// Never more boxes than given, each one taken from the input.
		require.LessOrEqual(t, len(kept), len(boxes))
		for _, k := range kept {
			assert.Contains(t, boxes, k)
		}

		for a := 0; a < len(kept); a++ {
			for b := a + 1; b < len(kept); b++ {
				assert.GreaterOrEqual(t, kept[a].Score, kept[b].Score)
				iou := images.CalculateIoU(kept[a].Rect(), kept[b].Rect())
				assert.LessOrEqual(t, iou, threshold)
			}
		}

		// Idempotent on its own output.
		again, err := ApplyGreedyNMS(kept, threshold)
		require.NoError(t, err)
		assert.Equal(t, kept, again)

		// Threshold 1 keeps everything.
		all, err := ApplyGreedyNMS(boxes, 1)
		require.NoError(t, err)
		assert.Len(t, all, len(boxes))
		for i := 1; i < len(all); i++ {
			assert.GreaterOrEqual(t, all[i-1].Score, all[i].Score)
		}
	}
}

func TestApplyNMS(t *testing.T) {
	boxes := []Box{
		{CX: 10, CY: 10, W: 4, H: 4, Score: 0.9},
		{CX: 10, CY: 10, W: 4, H: 4, Score: 0.5},
	}

	kept, err := ApplyNMS(boxes, &NMSConfig{Threshold: 0.5})
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	_, err = ApplyNMS(boxes, nil)
	assert.Error(t, err)
}

func TestNMSConfig_Validate(t *testing.T) {
	assert.NoError(t, (&NMSConfig{Threshold: 0}).Validate())
	assert.NoError(t, (&NMSConfig{Threshold: 1, Workers: 8}).Validate())
	assert.True(t, errors.Is((&NMSConfig{Threshold: 1.5}).Validate(), ErrInvalidThreshold))
	assert.Error(t, (&NMSConfig{Threshold: 0.5, Workers: -1}).Validate())
}

func BenchmarkApplyGreedyNMS(b *testing.B) {
	boxes := randomBoxes(rand.New(rand.NewSource(42)), 1000)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = ApplyGreedyNMS(boxes, 0.5)
	}
}
