// Package relation - converts pairwise relation classifier output into a
// relation matrix, a directed manipulation tree, and an object-removal
// order for robotic grasping.
package relation

import "github.com/pkg/errors"

// Label is the relationship between an ordered pair of detected objects.
type Label int

const (
	// Parent means the row object must be moved before the column object.
	Parent Label = 1
	// Child is the inverse of Parent.
	Child Label = 2
	// NoRelation means neither object blocks the other.
	NoRelation Label = 3
)

// Matrix is an N x N relationship matrix over detected-object indices.
// Entry (i, j) is the relation of object i toward object j.
type Matrix struct {
	n   int
	rel []Label
}

// NumObjects returns the object count N.
func (m *Matrix) NumObjects() int { return m.n }

// At returns the relation of object i toward object j. Zero for i == j.
func (m *Matrix) At(i, j int) Label { return m.rel[i*m.n+j] }

func (m *Matrix) set(i, j int, l Label) { m.rel[i*m.n+j] = l }

// PairCount returns the number of unordered object pairs for n objects,
// the expected row count of the pairwise classifier output.
func PairCount(n int) int { return n * (n - 1) / 2 }

// BuildMatrix fills a relation matrix from pairwise classifier output.
// pairProbs holds one 3-way score row per unordered pair (i, j), enumerated
// as i from 0 to n-1, j from i+1 to n-1; that enumeration order is a hard
// contract with the upstream classifier. The arg-max label, shifted by +1,
// lands in the upper triangle; the lower triangle is derived by the
// symmetry rule: NoRelation mirrors as itself, Parent and Child swap
// (3 - label).
func BuildMatrix(pairProbs [][]float32, numObjects int) (*Matrix, error) {
	if len(pairProbs) == 0 {
		return &Matrix{}, nil
	}
	if want := PairCount(numObjects); len(pairProbs) != want {
		return nil, errors.Errorf(
			"got %d pair scores for %d objects, want %d", len(pairProbs), numObjects, want)
	}

	m := &Matrix{n: numObjects, rel: make([]Label, numObjects*numObjects)}
	counter := 0
	for i := 0; i < numObjects; i++ {
		for j := i + 1; j < numObjects; j++ {
			row := pairProbs[counter]
			if len(row) != 3 {
				return nil, errors.Errorf(
					"pair score row %d has %d values, want 3", counter, len(row))
			}
			m.set(i, j, Label(argmax(row)+1))
			counter++
		}
	}

	for i := 0; i < numObjects; i++ {
		for j := 0; j < i; j++ {
			switch m.At(j, i) {
			case NoRelation:
				m.set(i, j, NoRelation)
			case Parent, Child:
				m.set(i, j, 3-m.At(j, i))
			default:
				return nil, errors.Errorf(
					"relation matrix entry (%d, %d) holds invalid label %d", j, i, m.At(j, i))
			}
		}
	}
	return m, nil
}

func argmax(row []float32) int {
	best := 0
	for k := 1; k < len(row); k++ {
		if row[k] > row[best] {
			best = k
		}
	}
	return best
}
