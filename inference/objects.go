package inference

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/vmrn-ai/go-grasp/boxcodec"
	"github.com/vmrn-ai/go-grasp/geometry"
	"github.com/vmrn-ai/go-grasp/postprocess"
)

const (
	// FullRecallThreshold keeps virtually all candidates; used for
	// evaluation, where recall matters more than display clutter.
	FullRecallThreshold = 0.01
	// DefaultVisThreshold aggressively filters detections for display.
	DefaultVisThreshold = 0.5
	// DefaultNMSThreshold is the overlap above which a lower-scored box
	// is suppressed.
	DefaultNMSThreshold = 0.3
)

// ObjectConfig controls object detection post-processing.
type ObjectConfig struct {
	// Normalizer reverses box-target standardization. Mandatory: nil
	// means normalization was not precomputed, which this pipeline
	// refuses to run without.
	Normalizer *boxcodec.Normalizer
	// ClassAgnostic marks regression output shared across classes
	// ([N,4]) rather than per-class ([N,4*numClasses]).
	ClassAgnostic bool
	// ForVis selects the visualization operating mode: same algorithm,
	// aggressive threshold.
	ForVis bool
	// VisThreshold overrides DefaultVisThreshold when nonzero.
	VisThreshold float32
	// NMSThreshold overrides DefaultNMSThreshold when nonzero.
	NMSThreshold float32
	// RecoverScale maps boxes back to original image resolution.
	RecoverScale bool
}

func (c ObjectConfig) scoreThreshold() float32 {
	if !c.ForVis {
		return FullRecallThreshold
	}
	if c.VisThreshold != 0 {
		return c.VisThreshold
	}
	return DefaultVisThreshold
}

func (c ObjectConfig) nmsThreshold() float32 {
	if c.NMSThreshold != 0 {
		return c.NMSThreshold
	}
	return DefaultNMSThreshold
}

// Objects decodes class probabilities and box regression output into
// per-class detection lists. Index j of the returned slice holds the
// detections of class j; index 0 (background) is always empty. Use
// FlattenClasses for a single display list.
//
// clsProb is [N, numClasses], boxDeltas is [N, 4] (class-agnostic) or
// [N, 4*numClasses], and priors are paired positionally with the rows.
func Objects(clsProb, boxDeltas *tensor.Dense, info ImageInfo, priors []geometry.Rect, cfg ObjectConfig) ([][]postprocess.Result, error) {
	deltaRows, err := rowsOf(boxDeltas, "box regression output")
	if err != nil {
		return nil, err
	}
	scoreRows, err := rowsOf(clsProb, "class probabilities")
	if err != nil {
		return nil, err
	}
	if priors == nil {
		return nil, ErrAnchorFree
	}
	if cfg.Normalizer == nil {
		return nil, ErrNormalizationDisabled
	}
	if err := cfg.Normalizer.Validate(4); err != nil {
		return nil, err
	}
	if len(scoreRows) != len(deltaRows) {
		return nil, errors.Errorf(
			"class probabilities have %d rows, box regression has %d", len(scoreRows), len(deltaRows))
	}

	numClasses := clsProb.Shape()[1]

	raw, err := cfg.Normalizer.Unnormalize(deltaRows)
	if err != nil {
		return nil, err
	}
	boxes, err := boxcodec.TransformInv(priors, raw)
	if err != nil {
		return nil, err
	}
	boxcodec.Clip(boxes, info.Height, info.Width)
	if cfg.RecoverScale {
		boxcodec.RecoverScaleRows(boxes, info.ScaleX, info.ScaleY)
	}

	filterCfg := postprocess.FilterConfig{
		ScoreThreshold: cfg.scoreThreshold(),
		UseNMS:         true,
		IoUThreshold:   cfg.nmsThreshold(),
	}

	perClass := make([][]postprocess.Result, numClasses)
	for j := 1; j < numClasses; j++ {
		clsBoxes, err := classBoxes(boxes, j, numClasses, cfg.ClassAgnostic)
		if err != nil {
			return nil, err
		}
		kept, scores, _, err := postprocess.Filter(clsBoxes, column(scoreRows, j), filterCfg)
		if err != nil {
			return nil, err
		}

		results := make([]postprocess.Result, len(kept))
		for k := range kept {
			results[k] = postprocess.Result{Box: kept[k], Score: scores[k], Class: j}
		}
		perClass[j] = results
	}
	return perClass, nil
}

// classBoxes extracts the box of class j from each decoded row.
func classBoxes(boxes [][]float32, j, numClasses int, classAgnostic bool) ([]geometry.Rect, error) {
	out := make([]geometry.Rect, len(boxes))
	for i, row := range boxes {
		off := 0
		if !classAgnostic {
			if len(row) != 4*numClasses {
				return nil, errors.Errorf(
					"box row %d has %d values, want %d for %d classes",
					i, len(row), 4*numClasses, numClasses)
			}
			off = j * 4
		}
		out[i] = geometry.Rect{
			X1: row[off], Y1: row[off+1], X2: row[off+2], Y2: row[off+3],
		}
	}
	return out, nil
}

// FlattenClasses concatenates per-class detection lists into one display
// list, class 1 first. Each Result keeps its class id.
func FlattenClasses(perClass [][]postprocess.Result) []postprocess.Result {
	var all []postprocess.Result
	for _, dets := range perClass {
		all = append(all, dets...)
	}
	return all
}
