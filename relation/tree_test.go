package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chainMatrix encodes the stack 0 on top of 1 on top of 2: object 0 must
// come off before 1, and 1 before 2.
func chainMatrix(t *testing.T) *Matrix {
	t.Helper()
	m, err := BuildMatrix([][]float32{
		pairRow(Child),      // (0,1): 1 depends on 0
		pairRow(NoRelation), // (0,2)
		pairRow(Child),      // (1,2): 2 depends on 1
	}, 3)
	require.NoError(t, err)
	return m
}

func TestBuildTreeChain(t *testing.T) {
	tree := BuildTree(chainMatrix(t))

	require.Equal(t, 3, tree.NumNodes())
	assert.Empty(t, tree.Prerequisites(0))
	assert.Equal(t, []int{0}, tree.Prerequisites(1))
	assert.Equal(t, []int{1}, tree.Prerequisites(2))

	// Unlocks is the mirror view of Prerequisites.
	assert.Equal(t, []int{1}, tree.Unlocks(0))
	assert.Equal(t, []int{2}, tree.Unlocks(1))
	assert.Empty(t, tree.Unlocks(2))
}

func TestShortestPathChain(t *testing.T) {
	tree := BuildTree(chainMatrix(t))

	path, err := tree.ShortestPath(2)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, path, "clearing order must walk the stack top-down")

	path, err = tree.ShortestPath(0)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, path, "the top object is immediately reachable")
}

func TestAllPathsDiamond(t *testing.T) {
	// 0 unlocks both 1 and 2; 3 depends on each of them.
	m, err := BuildMatrix([][]float32{
		pairRow(Child),      // (0,1)
		pairRow(Child),      // (0,2)
		pairRow(NoRelation), // (0,3)
		pairRow(NoRelation), // (1,2)
		pairRow(Child),      // (1,3)
		pairRow(Child),      // (2,3)
	}, 4)
	require.NoError(t, err)
	tree := BuildTree(m)

	paths, err := tree.AllPaths(3)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1, 3}, {0, 2, 3}}, paths)

	// Equal-length candidates resolve to the first in enumeration order.
	best, err := tree.ShortestPath(3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 3}, best)
}

func TestShortestPathPrefersFewerMoves(t *testing.T) {
	// 3 depends on 2 directly and on 1 through 0: the direct route wins.
	m, err := BuildMatrix([][]float32{
		pairRow(Child),      // (0,1)
		pairRow(NoRelation), // (0,2)
		pairRow(NoRelation), // (0,3)
		pairRow(NoRelation), // (1,2)
		pairRow(Child),      // (1,3)
		pairRow(Child),      // (2,3)
	}, 4)
	require.NoError(t, err)
	tree := BuildTree(m)

	best, err := tree.ShortestPath(3)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, best)
}

func TestAllPathsCycle(t *testing.T) {
	// Malformed classifier output producing 0 -> 1 -> 2 -> 0.
	m, err := BuildMatrix([][]float32{
		pairRow(Child),  // (0,1)
		pairRow(Parent), // (0,2)
		pairRow(Child),  // (1,2)
	}, 3)
	require.NoError(t, err)
	tree := BuildTree(m)

	_, err = tree.AllPaths(0)
	assert.ErrorContains(t, err, "cycle")

	_, err = tree.ShortestPath(0)
	assert.Error(t, err)
}

func TestPathTargetNotInTree(t *testing.T) {
	tree := BuildTree(chainMatrix(t))

	_, err := tree.AllPaths(5)
	assert.Error(t, err)
	assert.False(t, tree.HasNode(5))
	assert.False(t, tree.HasNode(-1))
	assert.True(t, tree.HasNode(2))
}
