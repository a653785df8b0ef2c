package inference

import (
	"gorgonia.org/tensor"

	"github.com/vmrn-ai/go-grasp/relation"
)

// ManipulationOrder converts pairwise relation classifier output into the
// minimal object-removal sequence that clears the target object.
//
// relProb is [P, 3] where P = numObjects*(numObjects-1)/2, one score row
// per unordered pair in the fixed (0,1), (0,2), ..., (n-2,n-1) enumeration
// order; numObjects is the detected-object count produced by the detection
// filter, and target indexes into that same detection ordering.
func ManipulationOrder(relProb *tensor.Dense, numObjects, target int) ([]int, error) {
	pairRows, err := rowsOf(relProb, "relation probabilities")
	if err != nil {
		return nil, err
	}
	mat, err := relation.BuildMatrix(pairRows, numObjects)
	if err != nil {
		return nil, err
	}
	tree := relation.BuildTree(mat)
	return tree.ShortestPath(target)
}
