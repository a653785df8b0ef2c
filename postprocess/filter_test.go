package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmrn-ai/go-grasp/geometry"
)

// TestFilterThresholdBoundary verifies that the score comparison is a
// strict greater-than: a candidate exactly at the threshold is excluded.
func TestFilterThresholdBoundary(t *testing.T) {
	boxes := []geometry.Rect{
		{X1: 0, Y1: 0, X2: 9, Y2: 9},
		{X1: 20, Y1: 20, X2: 29, Y2: 29},
	}
	scores := []float32{0.5, 0.50001}

	kept, keptScores, idx, err := Filter(boxes, scores, FilterConfig{ScoreThreshold: 0.5})
	require.NoError(t, err)

	require.Len(t, kept, 1, "only the candidate strictly above threshold survives")
	assert.Equal(t, []float32{0.50001}, keptScores)
	assert.Equal(t, []int{1}, idx)
}

// TestFilterEmptyResult verifies that no survivors is an explicitly empty
// result set rather than an error or nil panic.
func TestFilterEmptyResult(t *testing.T) {
	boxes := []geometry.Rect{{X1: 0, Y1: 0, X2: 9, Y2: 9}}

	kept, scores, idx, err := Filter(boxes, []float32{0.1}, FilterConfig{ScoreThreshold: 0.9})
	require.NoError(t, err)
	assert.Empty(t, kept)
	assert.Empty(t, scores)
	assert.Empty(t, idx)
	assert.NotNil(t, idx, "the index list is empty, not absent")

	kept, scores, idx, err = Filter(nil, nil, FilterConfig{ScoreThreshold: 0.9})
	require.NoError(t, err)
	assert.Empty(t, kept)
	assert.Empty(t, scores)
	assert.Empty(t, idx)
}

// TestFilterIndexProvenance verifies the load-bearing index contract:
// kept[i] must equal the input candidate at idx[i] for every i, with idx
// referring to the caller's original pre-sort ordering.
func TestFilterIndexProvenance(t *testing.T) {
	boxes := []geometry.Rect{
		{X1: 0, Y1: 0, X2: 9, Y2: 9},
		{X1: 100, Y1: 100, X2: 109, Y2: 109},
		{X1: 200, Y1: 200, X2: 209, Y2: 209},
		{X1: 300, Y1: 300, X2: 309, Y2: 309},
	}
	scores := []float32{0.2, 0.9, 0.05, 0.6}

	kept, keptScores, idx, err := Filter(boxes, scores, FilterConfig{ScoreThreshold: 0.1})
	require.NoError(t, err)

	require.Len(t, kept, 3)
	assert.Equal(t, []int{1, 3, 0}, idx, "indices follow descending score order")
	for i := range kept {
		assert.Equal(t, boxes[idx[i]], kept[i],
			"kept box %d must be the original candidate at its reported index", i)
		assert.Equal(t, scores[idx[i]], keptScores[i])
	}
}

// TestFilterStableTies verifies that equal scores keep their input order.
func TestFilterStableTies(t *testing.T) {
	boxes := []geometry.Rect{
		{X1: 0, Y1: 0, X2: 9, Y2: 9},
		{X1: 100, Y1: 100, X2: 109, Y2: 109},
		{X1: 200, Y1: 200, X2: 209, Y2: 209},
	}
	scores := []float32{0.5, 0.5, 0.5}

	_, _, idx, err := Filter(boxes, scores, FilterConfig{ScoreThreshold: 0.1})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, idx, "ties must be broken by input order")
}

// TestFilterNMSInvariant verifies the two NMS postconditions: every kept
// pair overlaps no more than the threshold, and every discarded survivor
// has a kept witness with higher-or-equal score and above-threshold
// overlap.
func TestFilterNMSInvariant(t *testing.T) {
	boxes := []geometry.Rect{
		{X1: 0, Y1: 0, X2: 99, Y2: 99},     // cluster A, best
		{X1: 5, Y1: 5, X2: 104, Y2: 104},   // cluster A, suppressed
		{X1: 2, Y1: 2, X2: 101, Y2: 101},   // cluster A, suppressed
		{X1: 300, Y1: 300, X2: 399, Y2: 399}, // cluster B, kept
		{X1: 305, Y1: 300, X2: 404, Y2: 399}, // cluster B, suppressed
	}
	scores := []float32{0.9, 0.8, 0.7, 0.85, 0.6}
	cfg := FilterConfig{ScoreThreshold: 0.1, UseNMS: true, IoUThreshold: 0.5}

	kept, keptScores, idx, err := Filter(boxes, scores, cfg)
	require.NoError(t, err)

	require.Len(t, kept, 2)
	assert.Equal(t, []int{0, 3}, idx)
	assert.Equal(t, []float32{0.9, 0.85}, keptScores)

	// Kept pairs do not overlap beyond the threshold.
	for i := 0; i < len(kept); i++ {
		for j := i + 1; j < len(kept); j++ {
			assert.LessOrEqual(t, geometry.IoU(kept[i], kept[j]), cfg.IoUThreshold,
				"kept detections %d and %d must not exceed the overlap threshold", i, j)
		}
	}

	// Every discarded survivor has a kept suppressor.
	keptSet := map[int]bool{}
	for _, k := range idx {
		keptSet[k] = true
	}
	for cand, s := range scores {
		if keptSet[cand] || s <= cfg.ScoreThreshold {
			continue
		}
		witnessed := false
		for _, k := range idx {
			if scores[k] >= s && geometry.IoU(boxes[k], boxes[cand]) > cfg.IoUThreshold {
				witnessed = true
				break
			}
		}
		assert.True(t, witnessed, "discarded candidate %d must have a kept suppressor", cand)
	}
}

// TestFilterContractErrors verifies that malformed candidate sets come back
// as errors instead of panics: NMS without boxes, and a box slice that does
// not pair up with the scores.
func TestFilterContractErrors(t *testing.T) {
	scores := []float32{0.9, 0.8}

	_, _, _, err := Filter(nil, scores, FilterConfig{UseNMS: true, IoUThreshold: 0.5})
	assert.ErrorContains(t, err, "NMS requires")

	short := []geometry.Rect{{X1: 0, Y1: 0, X2: 9, Y2: 9}}
	_, _, _, err = Filter(short, scores, FilterConfig{ScoreThreshold: 0.1})
	assert.ErrorContains(t, err, "2 scores")
}
