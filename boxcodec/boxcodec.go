// Package boxcodec - decodes anchor-relative box regression output into
// absolute image-space boxes, reversing target normalization, the
// center/log-size encoding, and input-resolution scaling.
package boxcodec

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/vmrn-ai/go-grasp/geometry"
)

// Normalizer holds the per-coordinate mean and standard deviation the
// regression targets were standardized with during training.
type Normalizer struct {
	Mean []float32
	Std  []float32
}

// Validate checks that the normalizer matches the coordinate group size
// (4 for boxes, 5 for grasps).
func (n Normalizer) Validate(dBox int) error {
	if len(n.Mean) != dBox || len(n.Std) != dBox {
		return errors.Errorf(
			"normalizer mean/std length must be %d, got mean=%d std=%d",
			dBox, len(n.Mean), len(n.Std))
	}
	return nil
}

// Unnormalize reverses target standardization: raw = delta*std + mean,
// applied per len(Mean)-sized coordinate group. Rows of width d cover
// class-agnostic regression; rows of width d*numClasses cover per-class
// regression, one group per class. The input is not mutated.
//
// Returns an error if the normalizer is malformed or a row is not a whole
// number of coordinate groups.
func (n Normalizer) Unnormalize(deltas [][]float32) ([][]float32, error) {
	d := len(n.Mean)
	if err := n.Validate(d); err != nil {
		return nil, err
	}
	out := make([][]float32, len(deltas))
	for i, row := range deltas {
		if len(row)%d != 0 {
			return nil, errors.Errorf(
				"delta row %d has %d values, not a multiple of group size %d",
				i, len(row), d)
		}
		raw := make([]float32, len(row))
		for k, v := range row {
			raw[k] = v*n.Std[k%d] + n.Mean[k%d]
		}
		out[i] = raw
	}
	return out, nil
}

// Normalize standardizes raw regression targets, the inverse of Unnormalize.
func (n Normalizer) Normalize(raw [][]float32) ([][]float32, error) {
	d := len(n.Mean)
	if err := n.Validate(d); err != nil {
		return nil, err
	}
	out := make([][]float32, len(raw))
	for i, row := range raw {
		if len(row)%d != 0 {
			return nil, errors.Errorf(
				"target row %d has %d values, not a multiple of group size %d",
				i, len(row), d)
		}
		norm := make([]float32, len(row))
		for k, v := range row {
			norm[k] = (v - n.Mean[k%d]) / n.Std[k%d]
		}
		out[i] = norm
	}
	return out, nil
}

// TransformInv inverts anchor-relative box regression. Each 4-value group
// (dx, dy, dw, dh) in a delta row is combined with the prior paired to that
// row: the predicted center is dx*priorW + priorCX (same for y), the
// predicted size is exp(dw)*priorW (same for h), and the result is written
// back in corner form. Rows wider than 4 hold one group per class, all
// decoded against the same prior.
func TransformInv(priors []geometry.Rect, deltas [][]float32) ([][]float32, error) {
	if len(priors) != len(deltas) {
		return nil, errors.Errorf(
			"prior count %d does not match delta row count %d", len(priors), len(deltas))
	}
	out := make([][]float32, len(deltas))
	for i, row := range deltas {
		if len(row)%4 != 0 {
			return nil, errors.Errorf(
				"delta row %d has %d values, not a multiple of 4", i, len(row))
		}
		p := priors[i]
		w, h := p.Width(), p.Height()
		cx, cy := p.CenterX(), p.CenterY()

		boxes := make([]float32, len(row))
		for g := 0; g < len(row); g += 4 {
			predCX := row[g]*w + cx
			predCY := row[g+1]*h + cy
			predW := math32.Exp(row[g+2]) * w
			predH := math32.Exp(row[g+3]) * h

			boxes[g] = predCX - 0.5*predW
			boxes[g+1] = predCY - 0.5*predH
			boxes[g+2] = predCX + 0.5*predW
			boxes[g+3] = predCY + 0.5*predH
		}
		out[i] = boxes
	}
	return out, nil
}

// Transform is the forward encoder: it expresses ground-truth boxes as
// regression targets relative to their priors, the exact inverse of
// TransformInv. Used to build training targets and round-trip tests.
func Transform(priors, boxes []geometry.Rect) ([][]float32, error) {
	if len(priors) != len(boxes) {
		return nil, errors.Errorf(
			"prior count %d does not match box count %d", len(priors), len(boxes))
	}
	out := make([][]float32, len(boxes))
	for i := range boxes {
		p, b := priors[i], boxes[i]
		out[i] = []float32{
			(b.CenterX() - p.CenterX()) / p.Width(),
			(b.CenterY() - p.CenterY()) / p.Height(),
			math32.Log(b.Width() / p.Width()),
			math32.Log(b.Height() / p.Height()),
		}
	}
	return out, nil
}

// Clip clamps every decoded coordinate into the image in place, x into
// [0, width-1] and y into [0, height-1], per 4-value group.
func Clip(boxes [][]float32, height, width float32) {
	for _, row := range boxes {
		for k := range row {
			switch k % 4 {
			case 0, 2:
				row[k] = math32.Min(math32.Max(row[k], 0), width-1)
			default:
				row[k] = math32.Min(math32.Max(row[k], 0), height-1)
			}
		}
	}
}

// RecoverScale maps network-input-resolution coordinates back to the
// original image resolution in place: even-indexed values are divided by
// scaleX and odd-indexed values by scaleY. Because the innermost dimension
// of every box layout (4-corner boxes, per-class rows, 8-value polygons)
// alternates x,y, the same flat walk covers plain, batched, and
// batched-per-class buffers.
func RecoverScale(coords []float32, scaleX, scaleY float32) {
	for k := range coords {
		if k%2 == 0 {
			coords[k] /= scaleX
		} else {
			coords[k] /= scaleY
		}
	}
}

// RecoverScaleRows applies RecoverScale to each row of a box batch.
func RecoverScaleRows(rows [][]float32, scaleX, scaleY float32) {
	for _, row := range rows {
		RecoverScale(row, scaleX, scaleY)
	}
}
