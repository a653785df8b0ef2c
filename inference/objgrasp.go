package inference

import (
	"sort"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/vmrn-ai/go-grasp/boxcodec"
	"github.com/vmrn-ai/go-grasp/geometry"
	"github.com/vmrn-ai/go-grasp/graspcodec"
	"github.com/vmrn-ai/go-grasp/postprocess"
)

// ObjectGrasps pairs a kept object detection with its best grasp
// candidates, ranked best first.
type ObjectGrasps struct {
	Object postprocess.Result
	Grasps []ScoredGrasp
}

// ROIGraspConfig controls joint object+grasp post-processing on ROI-pooled
// network output (one grasp head evaluated per object proposal).
type ROIGraspConfig struct {
	// ObjectNormalizer reverses box-target standardization. nil disables
	// box regression entirely: the ROIs themselves become the detections.
	ObjectNormalizer *boxcodec.Normalizer
	// GraspNormalizer reverses grasp-target standardization. Mandatory.
	GraspNormalizer *boxcodec.Normalizer
	// ClassAgnostic marks object regression shared across classes.
	ClassAgnostic bool
	// ForVis selects the visualization operating mode.
	ForVis bool
	// VisThreshold overrides DefaultVisThreshold when nonzero.
	VisThreshold float32
	// NMSThreshold overrides DefaultNMSThreshold when nonzero.
	NMSThreshold float32
	// TopNGrasps is the number of grasps kept per object. Forced to 1
	// outside visualization mode, where exactly one grasp per object is
	// reported for evaluation.
	TopNGrasps int
	// RecoverScale maps all geometry back to original image resolution.
	RecoverScale bool
}

// ObjectsAndGrasps decodes joint object and grasp output where the grasp
// head ran once per object proposal. oClsProb is [N, numClasses] and
// oBoxDeltas [N, 4] or [N, 4*numClasses]; gClsProb is [N, KA, 2] and
// gBoxDeltas [N, KA, 5] with KA grasp anchors per ROI, ROI-local
// coordinates. rois are the N object proposals in network-input space.
//
// Grasp candidates whose decoded center leaves their ROI are demoted below
// every in-ROI candidate when ranking. The kept grasps ride along with
// their object through score filtering and NMS via index provenance, so
// grasp lists always describe the object they are attached to.
func ObjectsAndGrasps(
	oClsProb, oBoxDeltas *tensor.Dense,
	gClsProb, gBoxDeltas *tensor.Dense,
	info ImageInfo,
	rois []geometry.Rect,
	gPriors [][]geometry.GraspRect,
	cfg ROIGraspConfig,
) ([][]ObjectGrasps, error) {
	if rois == nil {
		return nil, errors.New("rois must be supplied for ROI-based grasp inference")
	}
	if gPriors == nil {
		return nil, ErrAnchorFree
	}
	if cfg.GraspNormalizer == nil {
		return nil, ErrNormalizationDisabled
	}

	topN := cfg.TopNGrasps
	if !cfg.ForVis {
		topN = 1
	}
	if topN <= 0 {
		return nil, errors.New("ROI-based grasp inference requires top-N grasp selection per object")
	}

	oScoreRows, err := rowsOf(oClsProb, "object class probabilities")
	if err != nil {
		return nil, err
	}
	gScoreGrid, err := gridOf(gClsProb, "grasp class probabilities")
	if err != nil {
		return nil, err
	}
	gDeltaGrid, err := gridOf(gBoxDeltas, "grasp regression output")
	if err != nil {
		return nil, err
	}
	if len(gScoreGrid) != len(rois) || len(gDeltaGrid) != len(rois) || len(gPriors) != len(rois) {
		return nil, errors.Errorf(
			"grasp output rows (%d scores, %d deltas, %d priors) do not match %d rois",
			len(gScoreGrid), len(gDeltaGrid), len(gPriors), len(rois))
	}

	// Top-N grasps per ROI, decoded in ROI-local space then offset into
	// the image.
	graspsPerROI := make([][]ScoredGrasp, len(rois))
	for i, roi := range rois {
		rects, err := graspcodec.DecodeNormalized(*cfg.GraspNormalizer, gPriors[i], gDeltaGrid[i])
		if err != nil {
			return nil, errors.Wrapf(err, "roi %d", i)
		}
		graspsPerROI[i] = rankROIGrasps(rects, gScoreGrid[i], roi, topN)
		if cfg.RecoverScale {
			for k := range graspsPerROI[i] {
				boxcodec.RecoverScale(graspsPerROI[i][k].Corners[:], info.ScaleX, info.ScaleY)
			}
		}
	}

	// Object boxes: regressed against the ROIs, or the ROIs themselves
	// when regression is disabled.
	numClasses := oClsProb.Shape()[1]
	var boxes [][]float32
	if cfg.ObjectNormalizer != nil {
		deltaRows, err := rowsOf(oBoxDeltas, "object box regression output")
		if err != nil {
			return nil, err
		}
		if err := cfg.ObjectNormalizer.Validate(4); err != nil {
			return nil, err
		}
		raw, err := cfg.ObjectNormalizer.Unnormalize(deltaRows)
		if err != nil {
			return nil, err
		}
		boxes, err = boxcodec.TransformInv(rois, raw)
		if err != nil {
			return nil, err
		}
		boxcodec.Clip(boxes, info.Height, info.Width)
	} else {
		boxes = make([][]float32, len(rois))
		for i, r := range rois {
			boxes[i] = []float32{r.X1, r.Y1, r.X2, r.Y2}
		}
	}
	if cfg.RecoverScale {
		boxcodec.RecoverScaleRows(boxes, info.ScaleX, info.ScaleY)
	}

	oThresh := float32(0)
	if cfg.ForVis {
		oThresh = DefaultVisThreshold
		if cfg.VisThreshold != 0 {
			oThresh = cfg.VisThreshold
		}
	}
	nmsThresh := float32(DefaultNMSThreshold)
	if cfg.NMSThreshold != 0 {
		nmsThresh = cfg.NMSThreshold
	}
	filterCfg := postprocess.FilterConfig{
		ScoreThreshold: oThresh,
		UseNMS:         true,
		IoUThreshold:   nmsThresh,
	}

	classAgnostic := cfg.ClassAgnostic || cfg.ObjectNormalizer == nil
	perClass := make([][]ObjectGrasps, numClasses)
	for j := 1; j < numClasses; j++ {
		clsBoxes, err := classBoxes(boxes, j, numClasses, classAgnostic)
		if err != nil {
			return nil, err
		}
		kept, scores, keepIdx, err := postprocess.Filter(clsBoxes, column(oScoreRows, j), filterCfg)
		if err != nil {
			return nil, err
		}

		results := make([]ObjectGrasps, len(kept))
		for k := range kept {
			results[k] = ObjectGrasps{
				Object: postprocess.Result{Box: kept[k], Score: scores[k], Class: j},
				Grasps: graspsPerROI[keepIdx[k]],
			}
		}
		perClass[j] = results
	}
	return perClass, nil
}

// rankROIGrasps offsets ROI-local grasps into image space and picks the
// top-N by score, preferring grasps whose decoded center stays inside the
// ROI over those that escaped it.
func rankROIGrasps(rects []geometry.GraspRect, scores [][]float32, roi geometry.Rect, topN int) []ScoredGrasp {
	roiW := roi.X2 - roi.X1
	roiH := roi.Y2 - roi.Y1

	type candidate struct {
		idx   int
		score float32
		inROI bool
	}
	cands := make([]candidate, len(rects))
	for i, g := range rects {
		cands[i] = candidate{
			idx:   i,
			score: scores[i][1],
			inROI: g.CX > 0 && g.CY > 0 && g.CX < roiW && g.CY < roiH,
		}
	}
	sort.SliceStable(cands, func(a, b int) bool {
		if cands[a].inROI != cands[b].inROI {
			return cands[a].inROI
		}
		return cands[a].score > cands[b].score
	})
	if len(cands) > topN {
		cands = cands[:topN]
	}

	out := make([]ScoredGrasp, len(cands))
	for k, c := range cands {
		g := rects[c.idx]
		g.CX += roi.X1
		g.CY += roi.Y1
		out[k] = ScoredGrasp{Corners: g.Corners(), Score: c.score}
	}
	return out
}
