package postprocess

import (
	"math/rand"
	"testing"

	"github.com/vmrn-ai/go-grasp/geometry"
)

// candidateSet builds a reproducible proposal-sized candidate pool with
// clustered overlapping boxes, the shape NMS actually sees.
func candidateSet(n int) ([]geometry.Rect, []float32) {
	rng := rand.New(rand.NewSource(42))
	boxes := make([]geometry.Rect, n)
	scores := make([]float32, n)
	for i := range boxes {
		cx := rng.Float32() * 500
		cy := rng.Float32() * 500
		w := 40 + rng.Float32()*80
		h := 40 + rng.Float32()*80
		boxes[i] = geometry.Rect{X1: cx, Y1: cy, X2: cx + w, Y2: cy + h}
		scores[i] = rng.Float32()
	}
	return boxes, scores
}

func BenchmarkFilter300(b *testing.B) {
	boxes, scores := candidateSet(300)
	cfg := FilterConfig{ScoreThreshold: 0.01, UseNMS: true, IoUThreshold: 0.3}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, _, err := Filter(boxes, scores, cfg); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFilterScoreOnly300(b *testing.B) {
	_, scores := candidateSet(300)
	cfg := FilterConfig{ScoreThreshold: 0.5}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, _, err := Filter(nil, scores, cfg); err != nil {
			b.Fatal(err)
		}
	}
}
