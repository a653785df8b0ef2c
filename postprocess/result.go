// Package postprocess - score thresholding and Non-Maximum Suppression for
// detection candidates.
package postprocess

import "github.com/vmrn-ai/go-grasp/geometry"

// Result represents a single detection result.
type Result struct {
	// The bounding box of the result.
	Box geometry.Rect
	// The confidence score of the result.
	Score float32
	// The predicted class index of the result.
	Class int
}
