package postprocess

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/vmrn-ai/go-grasp/geometry"
)

// FilterConfig defines parameters for candidate filtering.
type FilterConfig struct {
	// ScoreThreshold removes candidates with score <= threshold (strict >).
	ScoreThreshold float32
	// UseNMS enables greedy Non-Maximum Suppression on the survivors.
	UseNMS bool
	// IoUThreshold is the overlap above which a lower-scored box is
	// suppressed. Only consulted when UseNMS is set.
	IoUThreshold float32
}

// Filter applies score thresholding and optional greedy NMS to a candidate
// set. boxes and scores are paired positionally; boxes may be nil only when
// UseNMS is false (grasp candidates are filtered on score alone).
//
// Returns the kept boxes, their scores in descending order, and the indices
// of the kept candidates in the caller's original ordering. Callers rely on
// those indices to correlate detections back to per-candidate side data
// (grasp predictions, relation-matrix rows), so they always refer to the
// pre-sort input position. No survivors is not an error: all three returns
// are empty, never nil boxes with live scores. A missing or mismatched box
// slice is an error, never a panic.
func Filter(boxes []geometry.Rect, scores []float32, cfg FilterConfig) ([]geometry.Rect, []float32, []int, error) {
	if boxes == nil && cfg.UseNMS {
		return nil, nil, nil, errors.New("NMS requires the candidate boxes, got only scores")
	}
	if boxes != nil && len(boxes) != len(scores) {
		return nil, nil, nil, errors.Errorf(
			"got %d boxes for %d scores", len(boxes), len(scores))
	}

	// Survivors keep their original index through the sort.
	survivors := make([]int, 0, len(scores))
	for i, s := range scores {
		if s > cfg.ScoreThreshold {
			survivors = append(survivors, i)
		}
	}
	if len(survivors) == 0 {
		return []geometry.Rect{}, []float32{}, []int{}, nil
	}

	// Descending by score; ties keep input order.
	sort.SliceStable(survivors, func(a, b int) bool {
		return scores[survivors[a]] > scores[survivors[b]]
	})

	if cfg.UseNMS {
		survivors = suppress(boxes, scores, survivors, cfg.IoUThreshold)
	}

	keptBoxes := make([]geometry.Rect, 0, len(survivors))
	keptScores := make([]float32, len(survivors))
	for k, idx := range survivors {
		if boxes != nil {
			keptBoxes = append(keptBoxes, boxes[idx])
		}
		keptScores[k] = scores[idx]
	}
	return keptBoxes, keptScores, survivors, nil
}

// suppress performs greedy NMS over candidate indices already sorted by
// descending score: take the best remaining candidate, keep it, and drop
// every lower-ranked candidate overlapping it beyond the threshold.
// O(K^2) on the survivor count.
func suppress(boxes []geometry.Rect, scores []float32, order []int, iouThreshold float32) []int {
	kept := make([]int, 0, len(order))
	used := make([]bool, len(order))

	for i := 0; i < len(order); i++ {
		if used[i] {
			continue
		}
		kept = append(kept, order[i])
		used[i] = true

		anchor := boxes[order[i]]
		for j := i + 1; j < len(order); j++ {
			if used[j] {
				continue
			}
			if geometry.IoU(anchor, boxes[order[j]]) > iouThreshold {
				used[j] = true
			}
		}
	}
	return kept
}
