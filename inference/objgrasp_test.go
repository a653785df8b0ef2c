package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmrn-ai/go-grasp/geometry"
)

// TestObjectsAndGraspsAlignment verifies that grasp lists follow their
// object through score sorting and NMS: reordering detections by score must
// not shuffle which grasps belong to which box.
func TestObjectsAndGraspsAlignment(t *testing.T) {
	rois := []geometry.Rect{
		{X1: 0, Y1: 0, X2: 99, Y2: 99},
		{X1: 200, Y1: 0, X2: 299, Y2: 99},
	}
	info := ImageInfo{Height: 400, Width: 400, ScaleX: 1, ScaleY: 1}

	// Object scores reverse the ROI order: ROI 1 outscores ROI 0.
	oClsProb := denseOf([]int{2, 2}, []float32{0.4, 0.6, 0.1, 0.9})
	oBoxDeltas := denseOf([]int{2, 4}, make([]float32, 8))

	// Two grasp anchors per ROI, zero deltas, so each decoded grasp is its
	// ROI-local anchor. The second anchor wins in ROI 1, the first in ROI 0.
	gPriors := [][]geometry.GraspRect{
		{{CX: 50, CY: 50, W: 20, H: 10}, {CX: 40, CY: 40, W: 20, H: 10}},
		{{CX: 30, CY: 20, W: 20, H: 10}, {CX: 60, CY: 70, W: 20, H: 10}},
	}
	gClsProb := denseOf([]int{2, 2, 2}, []float32{
		0.2, 0.8, 0.5, 0.5,
		0.7, 0.3, 0.3, 0.7,
	})
	gBoxDeltas := denseOf([]int{2, 2, 5}, make([]float32, 20))

	perClass, err := ObjectsAndGrasps(oClsProb, oBoxDeltas, gClsProb, gBoxDeltas, info, rois, gPriors, ROIGraspConfig{
		GraspNormalizer: graspNorm,
		ForVis:          true,
		TopNGrasps:      1,
	})
	require.NoError(t, err)
	require.Len(t, perClass, 2)
	require.Len(t, perClass[1], 2)

	// Best detection is ROI 1: its grasp is anchor (60, 70) offset by the
	// ROI origin.
	best := perClass[1][0]
	assert.InDelta(t, 0.9, best.Object.Score, 1e-6)
	assert.Equal(t, rois[1], best.Object.Box)
	require.Len(t, best.Grasps, 1)
	wantBest := geometry.GraspRect{CX: 260, CY: 70, W: 20, H: 10}.Corners()
	for k := range wantBest {
		assert.InDelta(t, wantBest[k], best.Grasps[0].Corners[k], 1e-3)
	}

	// Second detection is ROI 0 with its own top grasp, not ROI 1's.
	second := perClass[1][1]
	assert.InDelta(t, 0.6, second.Object.Score, 1e-6)
	assert.Equal(t, rois[0], second.Object.Box)
	require.Len(t, second.Grasps, 1)
	wantSecond := geometry.GraspRect{CX: 50, CY: 50, W: 20, H: 10}.Corners()
	for k := range wantSecond {
		assert.InDelta(t, wantSecond[k], second.Grasps[0].Corners[k], 1e-3)
	}
}

// TestObjectsAndGraspsPrefersInROIGrasps verifies that a grasp whose decoded
// center escapes its ROI loses to an in-ROI grasp regardless of score.
func TestObjectsAndGraspsPrefersInROIGrasps(t *testing.T) {
	rois := []geometry.Rect{{X1: 0, Y1: 0, X2: 99, Y2: 99}}
	info := ImageInfo{Height: 400, Width: 400, ScaleX: 1, ScaleY: 1}

	oClsProb := denseOf([]int{1, 2}, []float32{0.1, 0.9})
	oBoxDeltas := denseOf([]int{1, 4}, make([]float32, 4))

	// Anchor 0 escapes the ROI (center x past the ROI width) with the best
	// score; anchor 1 stays inside.
	gPriors := [][]geometry.GraspRect{
		{{CX: 120, CY: 50, W: 20, H: 10}, {CX: 50, CY: 50, W: 20, H: 10}},
	}
	gClsProb := denseOf([]int{1, 2, 2}, []float32{0.1, 0.9, 0.6, 0.4})
	gBoxDeltas := denseOf([]int{1, 2, 5}, make([]float32, 10))

	perClass, err := ObjectsAndGrasps(oClsProb, oBoxDeltas, gClsProb, gBoxDeltas, info, rois, gPriors, ROIGraspConfig{
		GraspNormalizer: graspNorm,
		ForVis:          true,
		TopNGrasps:      1,
	})
	require.NoError(t, err)
	require.Len(t, perClass[1], 1)
	require.Len(t, perClass[1][0].Grasps, 1)
	assert.InDelta(t, 0.4, perClass[1][0].Grasps[0].Score, 1e-6,
		"the in-ROI grasp wins despite the lower score")
}

// TestObjectsAndGraspsEvaluationMode verifies the single-grasp contract
// outside visualization: one grasp per object no matter the configured N.
func TestObjectsAndGraspsEvaluationMode(t *testing.T) {
	rois := []geometry.Rect{{X1: 0, Y1: 0, X2: 99, Y2: 99}}
	info := ImageInfo{Height: 400, Width: 400, ScaleX: 1, ScaleY: 1}

	oClsProb := denseOf([]int{1, 2}, []float32{0.9, 0.1})
	oBoxDeltas := denseOf([]int{1, 4}, make([]float32, 4))
	gPriors := [][]geometry.GraspRect{
		{{CX: 50, CY: 50, W: 20, H: 10}, {CX: 40, CY: 40, W: 20, H: 10}},
	}
	gClsProb := denseOf([]int{1, 2, 2}, []float32{0.2, 0.8, 0.5, 0.5})
	gBoxDeltas := denseOf([]int{1, 2, 5}, make([]float32, 10))

	perClass, err := ObjectsAndGrasps(oClsProb, oBoxDeltas, gClsProb, gBoxDeltas, info, rois, gPriors, ROIGraspConfig{
		GraspNormalizer: graspNorm,
		TopNGrasps:      5,
	})
	require.NoError(t, err)

	// Zero threshold keeps even the weak detection, with exactly one grasp.
	require.Len(t, perClass[1], 1)
	assert.Len(t, perClass[1][0].Grasps, 1)
	assert.InDelta(t, 0.8, perClass[1][0].Grasps[0].Score, 1e-6)
}

func TestObjectsAndGraspsConfigErrors(t *testing.T) {
	info := ImageInfo{Height: 400, Width: 400, ScaleX: 1, ScaleY: 1}
	rois := []geometry.Rect{{X1: 0, Y1: 0, X2: 99, Y2: 99}}
	gPriors := [][]geometry.GraspRect{{{CX: 50, CY: 50, W: 20, H: 10}}}
	oClsProb := denseOf([]int{1, 2}, []float32{0.5, 0.5})
	oBoxDeltas := denseOf([]int{1, 4}, make([]float32, 4))
	gClsProb := denseOf([]int{1, 1, 2}, []float32{0.5, 0.5})
	gBoxDeltas := denseOf([]int{1, 1, 5}, make([]float32, 5))

	base := ROIGraspConfig{GraspNormalizer: graspNorm, ForVis: true, TopNGrasps: 1}

	_, err := ObjectsAndGrasps(oClsProb, oBoxDeltas, gClsProb, gBoxDeltas, info, nil, gPriors, base)
	assert.Error(t, err)

	_, err = ObjectsAndGrasps(oClsProb, oBoxDeltas, gClsProb, gBoxDeltas, info, rois, nil, base)
	assert.ErrorIs(t, err, ErrAnchorFree)

	noNorm := base
	noNorm.GraspNormalizer = nil
	_, err = ObjectsAndGrasps(oClsProb, oBoxDeltas, gClsProb, gBoxDeltas, info, rois, gPriors, noNorm)
	assert.ErrorIs(t, err, ErrNormalizationDisabled)

	noTopN := base
	noTopN.TopNGrasps = 0
	_, err = ObjectsAndGrasps(oClsProb, oBoxDeltas, gClsProb, gBoxDeltas, info, rois, gPriors, noTopN)
	assert.Error(t, err)

	short := base
	_, err = ObjectsAndGrasps(oClsProb, oBoxDeltas, gClsProb, gBoxDeltas, info,
		[]geometry.Rect{rois[0], {X1: 200, Y1: 0, X2: 299, Y2: 99}}, gPriors, short)
	assert.Error(t, err, "grasp output rows must match the roi count")
}
