// Package visual - renders detections, grasp rectangles, and manipulation
// orders onto frames for the visualization operating mode.
package visual

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/vmrn-ai/go-grasp/inference"
	"github.com/vmrn-ai/go-grasp/postprocess"
)

var (
	objectColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	graspColor  = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	orderColor  = color.RGBA{R: 255, G: 255, B: 0, A: 0}
)

// DrawObjects draws labeled detection boxes onto the frame.
func DrawObjects(frame *gocv.Mat, objects []postprocess.Result) {
	for _, obj := range objects {
		rect := image.Rect(int(obj.Box.X1), int(obj.Box.Y1), int(obj.Box.X2), int(obj.Box.Y2))
		gocv.Rectangle(frame, rect, objectColor, 2)

		label := fmt.Sprintf("%s %.2f", inference.ClassName(obj.Class), obj.Score)
		gocv.PutText(frame, label,
			image.Pt(rect.Min.X, rect.Min.Y-4),
			gocv.FontHersheySimplex, 0.5, objectColor, 1)
	}
}

// DrawGrasps draws oriented grasp rectangles as closed 4-corner polygons.
func DrawGrasps(frame *gocv.Mat, grasps []inference.ScoredGrasp) {
	for _, g := range grasps {
		for k := 0; k < 4; k++ {
			x1, y1 := g.Corners[2*k], g.Corners[2*k+1]
			x2, y2 := g.Corners[(2*k+2)%8], g.Corners[(2*k+3)%8]
			gocv.Line(frame,
				image.Pt(int(x1), int(y1)),
				image.Pt(int(x2), int(y2)),
				graspColor, 2)
		}
	}
}

// DrawOrder annotates each detection with its position in the manipulation
// order. order holds detection indices, first object to clear first;
// objects indexes by the same detection ordering.
func DrawOrder(frame *gocv.Mat, objects []postprocess.Result, order []int) {
	for step, idx := range order {
		if idx < 0 || idx >= len(objects) {
			continue
		}
		box := objects[idx].Box
		gocv.PutText(frame, fmt.Sprintf("#%d", step+1),
			image.Pt(int(box.CenterX()), int(box.CenterY())),
			gocv.FontHersheySimplex, 0.8, orderColor, 2)
	}
}
