// Package inference - turns raw network output tensors into final object
// detections, oriented grasp rectangles, and manipulation orders. The
// network itself (backbone, ROI pooling, heads) is an external collaborator;
// this package owns everything after the last layer.
package inference

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Fatal inference errors. None of these are downgraded to defaults: silent
// fallback would corrupt downstream geometry or manipulation ordering.
var (
	// ErrAnchorFree is returned when no priors are supplied.
	ErrAnchorFree = errors.New("inference for anchor-free algorithms has not been implemented")
	// ErrBatchedInput is returned when a multi-image batch is pushed
	// through the single-image path.
	ErrBatchedInput = errors.New("multi-instance batch inference has not been implemented")
	// ErrNormalizationDisabled is returned when no regression-target
	// normalizer is supplied; precomputed normalization is mandatory.
	ErrNormalizationDisabled = errors.New("precomputed box-target normalization is required")
)

// ImageInfo carries the image metadata of a single inference call: the
// network-input dimensions the raw boxes live in, and the factors the frame
// was scaled by, used to recover original-resolution coordinates.
type ImageInfo struct {
	Height float32
	Width  float32
	ScaleX float32
	ScaleY float32
}

// rowsOf views a 2-dimensional float32 tensor as per-candidate rows without
// copying the backing buffer.
func rowsOf(t *tensor.Dense, name string) ([][]float32, error) {
	if t.Dims() > 2 {
		return nil, errors.Wrapf(ErrBatchedInput, "%s has %d dimensions", name, t.Dims())
	}
	if t.Dims() != 2 {
		return nil, errors.Errorf("%s must be 2-dimensional, got %d", name, t.Dims())
	}
	data, ok := t.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("%s must hold float32 data, got %T", name, t.Data())
	}
	shape := t.Shape()
	n, d := shape[0], shape[1]
	rows := make([][]float32, n)
	for i := 0; i < n; i++ {
		rows[i] = data[i*d : (i+1)*d]
	}
	return rows, nil
}

// gridOf views a 3-dimensional float32 tensor as [outer][inner]row slices
// without copying the backing buffer.
func gridOf(t *tensor.Dense, name string) ([][][]float32, error) {
	if t.Dims() != 3 {
		return nil, errors.Errorf("%s must be 3-dimensional, got %d", name, t.Dims())
	}
	data, ok := t.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("%s must hold float32 data, got %T", name, t.Data())
	}
	shape := t.Shape()
	n, k, d := shape[0], shape[1], shape[2]
	grid := make([][][]float32, n)
	for i := 0; i < n; i++ {
		grid[i] = make([][]float32, k)
		for j := 0; j < k; j++ {
			off := (i*k + j) * d
			grid[i][j] = data[off : off+d]
		}
	}
	return grid, nil
}

// column copies column j out of a row-major score matrix.
func column(rows [][]float32, j int) []float32 {
	col := make([]float32, len(rows))
	for i, row := range rows {
		col[i] = row[j]
	}
	return col
}
