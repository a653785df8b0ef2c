// Package graspcodec - decodes anchor-relative 5-parameter grasp regression
// output (center, size, rotation) into oriented rectangles and their
// 4-corner polygons.
package graspcodec

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/vmrn-ai/go-grasp/boxcodec"
	"github.com/vmrn-ai/go-grasp/geometry"
)

// GroupSize is the grasp coordinate group width: cx, cy, w, h, theta.
const GroupSize = 5

// Decode inverts anchor-relative grasp regression. Center and size follow
// the box convention (offsets scaled by the anchor size, log-scale sizes);
// the rotation is an additive offset in degrees on top of the anchor angle.
// Deltas must already be unnormalized (see boxcodec.Normalizer).
func Decode(priors []geometry.GraspRect, deltas [][]float32) ([]geometry.GraspRect, error) {
	if len(priors) != len(deltas) {
		return nil, errors.Errorf(
			"grasp prior count %d does not match delta row count %d", len(priors), len(deltas))
	}
	out := make([]geometry.GraspRect, len(deltas))
	for i, row := range deltas {
		if len(row) != GroupSize {
			return nil, errors.Errorf(
				"grasp delta row %d has %d values, want %d", i, len(row), GroupSize)
		}
		p := priors[i]
		out[i] = geometry.GraspRect{
			CX:    row[0]*p.W + p.CX,
			CY:    row[1]*p.H + p.CY,
			W:     math32.Exp(row[2]) * p.W,
			H:     math32.Exp(row[3]) * p.H,
			Theta: row[4] + p.Theta,
		}
	}
	return out, nil
}

// Encode expresses ground-truth grasps as regression targets relative to
// their anchors, the exact inverse of Decode.
func Encode(priors, grasps []geometry.GraspRect) ([][]float32, error) {
	if len(priors) != len(grasps) {
		return nil, errors.Errorf(
			"grasp prior count %d does not match grasp count %d", len(priors), len(grasps))
	}
	out := make([][]float32, len(grasps))
	for i := range grasps {
		p, g := priors[i], grasps[i]
		out[i] = []float32{
			(g.CX - p.CX) / p.W,
			(g.CY - p.CY) / p.H,
			math32.Log(g.W / p.W),
			math32.Log(g.H / p.H),
			g.Theta - p.Theta,
		}
	}
	return out, nil
}

// DecodeNormalized unnormalizes the raw network output and decodes it
// against the grasp anchors in one step.
func DecodeNormalized(n boxcodec.Normalizer, priors []geometry.GraspRect, deltas [][]float32) ([]geometry.GraspRect, error) {
	if err := n.Validate(GroupSize); err != nil {
		return nil, err
	}
	raw, err := n.Unnormalize(deltas)
	if err != nil {
		return nil, err
	}
	return Decode(priors, raw)
}

// ToPolygons expands decoded grasp rectangles into their 4-corner polygons.
func ToPolygons(grasps []geometry.GraspRect) []geometry.Polygon {
	polys := make([]geometry.Polygon, len(grasps))
	for i, g := range grasps {
		polys[i] = g.Corners()
	}
	return polys
}

// BoundsMask marks grasps whose corners all lie inside [0, width) x
// [0, height). An out-of-bounds grasp is physically invalid and is rejected
// outright rather than clipped.
func BoundsMask(polys []geometry.Polygon, height, width float32) []bool {
	mask := make([]bool, len(polys))
	for i, p := range polys {
		mask[i] = p.InBounds(height, width)
	}
	return mask
}
