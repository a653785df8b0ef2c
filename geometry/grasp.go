package geometry

import "github.com/chewxy/math32"

// GraspRect is an oriented grasp rectangle in center form.
type GraspRect struct {
	// CX,CY locate the rectangle center, W and H are the full side
	// lengths, and Theta is the rotation in degrees. W,H >= 0.
	CX, CY, W, H, Theta float32
}

// Polygon holds the four corners of an oriented rectangle, flattened as
// x1,y1,x2,y2,x3,y3,x4,y4 in winding order.
type Polygon [8]float32

// Corners expands the oriented rectangle into its four corner points.
// The first edge (p1->p2) runs along the rectangle width.
func (g GraspRect) Corners() Polygon {
	rad := g.Theta * math32.Pi / 180
	sin, cos := math32.Sincos(rad)

	// Half-extent vectors along the width and height axes.
	wx, wy := 0.5*g.W*cos, 0.5*g.W*sin
	hx, hy := -0.5*g.H*sin, 0.5*g.H*cos

	return Polygon{
		g.CX - wx - hx, g.CY - wy - hy,
		g.CX + wx - hx, g.CY + wy - hy,
		g.CX + wx + hx, g.CY + wy + hy,
		g.CX - wx + hx, g.CY - wy + hy,
	}
}

// InBounds reports whether every corner coordinate lies inside [0, width) on
// the x axis and [0, height) on the y axis. A corner exactly on the far edge
// is out of bounds.
func (p Polygon) InBounds(height, width float32) bool {
	for i := 0; i < len(p); i += 2 {
		if p[i] < 0 || p[i] >= width {
			return false
		}
		if p[i+1] < 0 || p[i+1] >= height {
			return false
		}
	}
	return true
}
