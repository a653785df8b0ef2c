package relation

import "github.com/pkg/errors"

// Tree is a directed manipulation relationship graph over object indices.
// An edge a -> b means object a must be cleared before b is reachable.
// The structure is assumed acyclic; path search guards against cycles from
// malformed upstream data but does not validate the whole graph up front.
type Tree struct {
	nodes int
	// in[v] lists the prerequisite objects of v (edges u -> v).
	in [][]int
	// out[u] lists the objects unlocked by clearing u (edges u -> v).
	out [][]int
}

// BuildTree converts a relation matrix into a manipulation tree. The node
// count is one more than the highest index participating in any filled
// relation entry. For every unordered pair with obj1 > obj2: Parent at
// (obj1, obj2) adds obj2 -> obj1, Child adds obj1 -> obj2, NoRelation adds
// nothing.
func BuildTree(m *Matrix) *Tree {
	nodes := 0
	for i := 0; i < m.NumObjects(); i++ {
		for j := 0; j < m.NumObjects(); j++ {
			if m.At(i, j) != 0 && i >= nodes {
				nodes = i + 1
			}
		}
	}

	t := &Tree{
		nodes: nodes,
		in:    make([][]int, nodes),
		out:   make([][]int, nodes),
	}
	for obj1 := 0; obj1 < nodes; obj1++ {
		for obj2 := 0; obj2 < obj1; obj2++ {
			switch m.At(obj1, obj2) {
			case Parent:
				t.addEdge(obj2, obj1)
			case Child:
				t.addEdge(obj1, obj2)
			}
		}
	}
	return t
}

func (t *Tree) addEdge(u, v int) {
	t.out[u] = append(t.out[u], v)
	t.in[v] = append(t.in[v], u)
}

// NumNodes returns the node count of the tree.
func (t *Tree) NumNodes() int { return t.nodes }

// HasNode reports whether the object index is a node of the tree.
func (t *Tree) HasNode(n int) bool { return n >= 0 && n < t.nodes }

// Prerequisites returns the objects that must be cleared immediately before
// the given object (its incoming edges).
func (t *Tree) Prerequisites(n int) []int { return t.in[n] }

// Unlocks returns the objects that become reachable once the given object
// is cleared (its outgoing edges).
func (t *Tree) Unlocks(n int) []int { return t.out[n] }

// AllPaths enumerates every manipulation order ending at the target object,
// following edges backward: for each prerequisite of the target, all paths
// ending at that prerequisite are found recursively and the target is
// appended. A node without prerequisites yields the singleton path.
// Exhaustive and exponential in the worst case, which is acceptable for the
// small object counts of manipulation scenes.
//
// Returns an error if the target is not a node of the tree, or if a cycle
// is reached (malformed upstream relation data).
func (t *Tree) AllPaths(target int) ([][]int, error) {
	if !t.HasNode(target) {
		return nil, errors.Errorf(
			"target node %d is not in the manipulation relationship tree", target)
	}
	visited := make([]bool, t.nodes)
	return t.walk(target, visited)
}

func (t *Tree) walk(node int, visited []bool) ([][]int, error) {
	if visited[node] {
		return nil, errors.Errorf(
			"relation data contains a cycle through object %d", node)
	}
	visited[node] = true
	defer func() { visited[node] = false }()

	var paths [][]int
	for _, u := range t.in[node] {
		sub, err := t.walk(u, visited)
		if err != nil {
			return nil, err
		}
		paths = append(paths, sub...)
	}
	if len(paths) == 0 {
		return [][]int{{node}}, nil
	}
	for i := range paths {
		paths[i] = append(paths[i], node)
	}
	return paths, nil
}

// ShortestPath selects the minimal manipulation sequence that clears the
// target object: among all paths ending at the target, the one with the
// fewest nodes, ties resolved toward the first such path in enumeration
// order.
func (t *Tree) ShortestPath(target int) ([]int, error) {
	paths, err := t.AllPaths(target)
	if err != nil {
		return nil, err
	}
	best := paths[0]
	for _, p := range paths[1:] {
		if len(p) < len(best) {
			best = p
		}
	}
	return best, nil
}
