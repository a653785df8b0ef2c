package main

import (
	"bytes"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"
	"gorgonia.org/tensor"

	"github.com/vmrn-ai/go-grasp/boxcodec"
	"github.com/vmrn-ai/go-grasp/geometry"
	"github.com/vmrn-ai/go-grasp/inference"
	"github.com/vmrn-ai/go-grasp/inference/providers"
	"github.com/vmrn-ai/go-grasp/postprocess"
	"github.com/vmrn-ai/go-grasp/preprocess"
	"github.com/vmrn-ai/go-grasp/profiler"
	"github.com/vmrn-ai/go-grasp/relation"
	"github.com/vmrn-ai/go-grasp/util"
	"github.com/vmrn-ai/go-grasp/visual"
)

const (
	// Network input resolution.
	inputWidth  = 600
	inputHeight = 600
	// Candidate count emitted by the proposal stage.
	numCandidates = 300
	// Object classes including background.
	numClasses = 32
	// Upper bound on detected objects the relation head scores.
	maxObjects = 16
)

// Output head names of the exported grasp network.
const (
	headClsProb    = "cls_prob"
	headBoxDeltas  = "bbox_pred"
	headRois       = "rois"
	headGraspProb  = "grasp_prob"
	headGraspPred  = "grasp_pred"
	headRelation   = "rel_prob"
	graspAnchorsKA = 54
)

// Regression-target normalizers the network was trained with.
var (
	boxNormalizer = boxcodec.Normalizer{
		Mean: []float32{0, 0, 0, 0},
		Std:  []float32{0.1, 0.1, 0.2, 0.2},
	}
	graspNormalizer = boxcodec.Normalizer{
		Mean: []float32{0, 0, 0, 0, 0},
		Std:  []float32{0.1, 0.1, 0.2, 0.2, 10},
	}
)

func main() {
	var (
		modelPath string
		framesDir string
		outputDir string
		target    int
	)
	flag.StringVar(&modelPath, "model", "vmrn.onnx", "Path to the exported grasp network")
	flag.StringVar(&framesDir, "frames", "frames", "Directory of scene images")
	flag.StringVar(&outputDir, "out", "annotated", "Directory for annotated output frames")
	flag.IntVar(&target, "target", 0, "Index of the target object to clear")
	flag.Parse()

	if err := run(modelPath, framesDir, outputDir, target); err != nil {
		log.Fatalf("graspdemo: %v", err)
	}
}

func run(modelPath, framesDir, outputDir string, target int) error {
	frames, err := util.LoadSceneFrames(framesDir)
	if err != nil {
		return fmt.Errorf("loading frames: %w", err)
	}
	if len(frames) == 0 {
		return fmt.Errorf("no scene images found in %s", framesDir)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}

	session, err := providers.NewSession(providers.NewCPUProvider(), providers.NewSessionArgs{
		ModelPath: modelPath,
		Inputs: []providers.TensorSpec{
			{Name: "image", Shape: []int64{1, 3, inputHeight, inputWidth}},
		},
		Outputs: []providers.TensorSpec{
			{Name: headClsProb, Shape: []int64{numCandidates, numClasses}},
			{Name: headBoxDeltas, Shape: []int64{numCandidates, 4 * numClasses}},
			{Name: headRois, Shape: []int64{numCandidates, 4}},
			{Name: headGraspProb, Shape: []int64{numCandidates, graspAnchorsKA, 2}},
			{Name: headGraspPred, Shape: []int64{numCandidates, graspAnchorsKA, 5}},
			{Name: headRelation, Shape: []int64{relation.PairCount(maxObjects), 3}},
		},
	})
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	defer session.Close()
	log.Printf("session ready: %s", modelPath)

	prof := profiler.NewPipeline()
	for _, frame := range frames {
		if err := processFrame(session, prof, frame, outputDir, target); err != nil {
			return fmt.Errorf("frame %s: %w", frame.Path, err)
		}
	}
	prof.Report(os.Stderr)
	return nil
}

func processFrame(session *providers.Session, prof *profiler.Pipeline, frame util.FrameFile, outputDir string, target int) error {
	img, _, err := image.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		return err
	}

	stopPrep := prof.Start("preprocess")
	prepared, err := preprocess.Prepare(img, preprocess.Config{
		InputWidth:  inputWidth,
		InputHeight: inputHeight,
		PixelMeans:  [3]float32{122.77, 115.95, 102.98},
	})
	if err != nil {
		return err
	}
	if err := session.SetInput(0, prepared.Data); err != nil {
		return err
	}
	stopPrep()

	stopNet := prof.Start("network")
	outputs, err := session.Run()
	stopNet()
	if err != nil {
		return err
	}

	stopPost := prof.Start("postprocess")
	rois, err := roisOf(outputs[headRois])
	if err != nil {
		return err
	}
	gPriors := graspAnchorsFor(rois)

	perClass, err := inference.ObjectsAndGrasps(
		outputs[headClsProb], outputs[headBoxDeltas],
		outputs[headGraspProb], outputs[headGraspPred],
		prepared.Info, rois, gPriors,
		inference.ROIGraspConfig{
			ObjectNormalizer: &boxNormalizer,
			GraspNormalizer:  &graspNormalizer,
			ForVis:           true,
			TopNGrasps:       3,
			RecoverScale:     true,
		})
	if err != nil {
		return err
	}

	var objects []postprocess.Result
	var grasps []inference.ScoredGrasp
	for _, dets := range perClass {
		for _, og := range dets {
			objects = append(objects, og.Object)
			grasps = append(grasps, og.Grasps...)
		}
	}
	stopPost()
	log.Printf("%s: %d objects, %d grasps", filepath.Base(frame.Path), len(objects), len(grasps))

	defer prof.Start("annotate")()
	mat := gocv.IMRead(frame.Path, gocv.IMReadColor)
	if mat.Empty() {
		return fmt.Errorf("could not re-read %s for annotation", frame.Path)
	}
	defer mat.Close()

	visual.DrawObjects(&mat, objects)
	visual.DrawGrasps(&mat, grasps)

	if n := len(objects); n > 1 && target < n {
		order, err := manipulationOrder(outputs[headRelation], n, target)
		if err != nil {
			return err
		}
		visual.DrawOrder(&mat, objects, order)
		log.Printf("%s: manipulation order %v", filepath.Base(frame.Path), order)
	}

	outPath := filepath.Join(outputDir, filepath.Base(frame.Path))
	if ok := gocv.IMWrite(outPath, mat); !ok {
		return fmt.Errorf("failed to write %s", outPath)
	}
	return nil
}

// manipulationOrder slices the first n*(n-1)/2 pair rows out of the
// fixed-shape relation head and derives the removal order.
func manipulationOrder(relProb *tensor.Dense, numObjects, target int) ([]int, error) {
	data := relProb.Data().([]float32)
	pairs := relation.PairCount(numObjects)
	if pairs*3 > len(data) {
		return nil, fmt.Errorf("relation head holds %d values, need %d", len(data), pairs*3)
	}
	sliced := tensor.New(
		tensor.WithShape(pairs, 3),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(data[:pairs*3]),
	)
	return inference.ManipulationOrder(sliced, numObjects, target)
}

func roisOf(t *tensor.Dense) ([]geometry.Rect, error) {
	data, ok := t.Data().([]float32)
	if !ok || len(data)%4 != 0 {
		return nil, fmt.Errorf("malformed roi output")
	}
	rois := make([]geometry.Rect, len(data)/4)
	for i := range rois {
		rois[i] = geometry.Rect{
			X1: data[4*i], Y1: data[4*i+1], X2: data[4*i+2], Y2: data[4*i+3],
		}
	}
	return rois, nil
}

// graspAnchorsFor builds the fixed oriented-anchor grid the grasp head was
// trained against, ROI-local, one set per ROI.
func graspAnchorsFor(rois []geometry.Rect) [][]geometry.GraspRect {
	// 3 scales x 3 aspect ratios x 6 orientations = 54 anchors.
	scales := []float32{24, 48, 96}
	ratios := []float32{0.5, 1, 2}
	angles := []float32{-75, -45, -15, 15, 45, 75}

	base := make([]geometry.GraspRect, 0, graspAnchorsKA)
	for _, s := range scales {
		for _, r := range ratios {
			for _, a := range angles {
				base = append(base, geometry.GraspRect{W: s * r, H: s / r, Theta: a})
			}
		}
	}

	out := make([][]geometry.GraspRect, len(rois))
	for i, roi := range rois {
		anchors := make([]geometry.GraspRect, len(base))
		copy(anchors, base)
		cx, cy := (roi.X2-roi.X1)/2, (roi.Y2-roi.Y1)/2
		for k := range anchors {
			anchors[k].CX = cx
			anchors[k].CY = cy
		}
		out[i] = anchors
	}
	return out
}
