package inference

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/vmrn-ai/go-grasp/boxcodec"
	"github.com/vmrn-ai/go-grasp/geometry"
	"github.com/vmrn-ai/go-grasp/graspcodec"
	"github.com/vmrn-ai/go-grasp/postprocess"
)

// GraspThreshold is the score cut applied when grasp detection is not in
// top-N mode.
const GraspThreshold = 0.5

// ScoredGrasp is a decoded grasp candidate: four corner points plus the
// graspability score.
type ScoredGrasp struct {
	Corners geometry.Polygon
	Score   float32
}

// GraspConfig controls standalone grasp detection post-processing.
type GraspConfig struct {
	// Normalizer reverses grasp-target standardization (5 coordinates).
	Normalizer *boxcodec.Normalizer
	// TopN, when positive, keeps the N best grasps with a near-zero
	// score threshold instead of the fixed GraspThreshold cut.
	TopN int
	// RecoverScale maps grasp corners back to original image resolution.
	RecoverScale bool
}

// Grasps decodes grasp classification and regression output into scored
// corner polygons, best first. clsProb is [N, 2] (background/graspable),
// graspDeltas is [N, 5], and priors pair positionally with the rows.
// Grasps with any corner outside the image are hard-rejected before
// scoring; they are physically invalid, not recoverable by clipping.
func Grasps(clsProb, graspDeltas *tensor.Dense, info ImageInfo, priors []geometry.GraspRect, cfg GraspConfig) ([]ScoredGrasp, error) {
	deltaRows, err := rowsOf(graspDeltas, "grasp regression output")
	if err != nil {
		return nil, err
	}
	scoreRows, err := rowsOf(clsProb, "grasp class probabilities")
	if err != nil {
		return nil, err
	}
	if priors == nil {
		return nil, ErrAnchorFree
	}
	if cfg.Normalizer == nil {
		return nil, ErrNormalizationDisabled
	}
	if len(scoreRows) != len(deltaRows) {
		return nil, errors.Errorf(
			"grasp class probabilities have %d rows, grasp regression has %d",
			len(scoreRows), len(deltaRows))
	}

	rects, err := graspcodec.DecodeNormalized(*cfg.Normalizer, priors, deltaRows)
	if err != nil {
		return nil, err
	}
	polys := graspcodec.ToPolygons(rects)
	mask := graspcodec.BoundsMask(polys, info.Height, info.Width)

	var (
		valid  []geometry.Polygon
		scores []float32
	)
	for i, ok := range mask {
		if !ok {
			continue
		}
		valid = append(valid, polys[i])
		scores = append(scores, scoreRows[i][1])
	}

	if cfg.RecoverScale {
		for i := range valid {
			boxcodec.RecoverScale(valid[i][:], info.ScaleX, info.ScaleY)
		}
	}

	thresh := float32(GraspThreshold)
	if cfg.TopN > 0 {
		thresh = 0
	}
	_, keptScores, keptIdx, err := postprocess.Filter(nil, scores, postprocess.FilterConfig{
		ScoreThreshold: thresh,
	})
	if err != nil {
		return nil, err
	}

	out := make([]ScoredGrasp, len(keptIdx))
	for k, idx := range keptIdx {
		out[k] = ScoredGrasp{Corners: valid[idx], Score: keptScores[k]}
	}
	if cfg.TopN > 0 && len(out) > cfg.TopN {
		out = out[:cfg.TopN]
	}
	return out, nil
}
