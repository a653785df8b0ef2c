// Package providers - Inference sessions.
package providers

import (
	"fmt"
	"os"

	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"
)

// TensorSpec names a model input or output and fixes its shape.
type TensorSpec struct {
	Name  string
	Shape []int64
}

// Session wraps a native ONNX Runtime session with preallocated input and
// output tensors. The grasp network exposes several heads at once (class
// probabilities, box and grasp regression, pairwise relation scores), so
// inputs and outputs are positional slices matching the specs the session
// was created with.
type Session struct {
	session *ort.AdvancedSession
	inputs  []*ort.Tensor[float32]
	outputs []*ort.Tensor[float32]
	specs   []TensorSpec
}

// NewSessionArgs represents the arguments for creating a new session.
type NewSessionArgs struct {
	// The path to the ONNX model file.
	ModelPath string
	// The inputs of the model.
	Inputs []TensorSpec
	// The outputs of the model.
	Outputs []TensorSpec
}

// NewSession creates a new ONNX Runtime session with preallocated input and
// output tensors.
//
// Order of operations:
//  1. Library path check: ensures the native runtime is accessible.
//  2. Environment setup: prepares ONNX Runtime internals.
//  3. Tensor allocation: fixed-shape buffers for every named head.
//  4. Session options: threading and graph optimization level.
//  5. Session creation: loads the model and binds resources.
//
// Cleanup of the returned session is the caller's responsibility (Close).
func NewSession(provider ExecutionProvider, args NewSessionArgs) (*Session, error) {
	libPath := GetSharedLibPath()
	if _, err := os.Stat(libPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("ONNX Runtime library not found at %s: %w", libPath, err)
	}

	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("error initializing ORT environment: %w", err)
	}

	inputs, inputNames, err := allocate(args.Inputs)
	if err != nil {
		return nil, err
	}
	outputs, outputNames, err := allocate(args.Outputs)
	if err != nil {
		destroyAll(inputs)
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		destroyAll(inputs)
		destroyAll(outputs)
		return nil, fmt.Errorf("error creating ORT session options: %w", err)
	}
	defer options.Destroy()

	if cpu, ok := provider.(*CPUProvider); ok {
		options.SetIntraOpNumThreads(cpu.IntraOpThreads)
		options.SetInterOpNumThreads(cpu.InterOpThreads)
	}
	options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended)

	session, err := ort.NewAdvancedSession(
		args.ModelPath,
		inputNames,
		outputNames,
		asArbitrary(inputs),
		asArbitrary(outputs),
		options,
	)
	if err != nil {
		destroyAll(inputs)
		destroyAll(outputs)
		return nil, fmt.Errorf("error creating ORT session: %w", err)
	}

	return &Session{
		session: session,
		inputs:  inputs,
		outputs: outputs,
		specs:   args.Outputs,
	}, nil
}

// SetInput copies data into the input tensor at the given position. The
// data length must match the tensor's allocated shape.
func (s *Session) SetInput(i int, data []float32) error {
	buf := s.inputs[i].GetData()
	if len(buf) != len(data) {
		return fmt.Errorf("input %d expects %d values, got %d", i, len(buf), len(data))
	}
	copy(buf, data)
	return nil
}

// Run executes the model and returns every output head as a dense tensor
// keyed by the output name it was created with. Output buffers are copied,
// so the returned tensors stay valid across calls.
func (s *Session) Run() (map[string]*tensor.Dense, error) {
	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("error running ORT session: %w", err)
	}

	out := make(map[string]*tensor.Dense, len(s.outputs))
	for i, t := range s.outputs {
		data := make([]float32, len(t.GetData()))
		copy(data, t.GetData())

		shape := make([]int, len(s.specs[i].Shape))
		for k, d := range s.specs[i].Shape {
			shape[k] = int(d)
		}
		out[s.specs[i].Name] = tensor.New(
			tensor.WithShape(shape...),
			tensor.Of(tensor.Float32),
			tensor.WithBacking(data),
		)
	}
	return out, nil
}

// Close releases the resources associated with the Session.
func (s *Session) Close() error {
	destroyAll(s.inputs)
	s.inputs = nil
	destroyAll(s.outputs)
	s.outputs = nil

	if s.session != nil {
		if err := s.session.Destroy(); err != nil {
			return fmt.Errorf("error destroying ORT session: %w", err)
		}
		s.session = nil
	}
	return nil
}

func allocate(specs []TensorSpec) ([]*ort.Tensor[float32], []string, error) {
	var tensors []*ort.Tensor[float32]
	var names []string
	for _, spec := range specs {
		t, err := ort.NewEmptyTensor[float32](ort.NewShape(spec.Shape...))
		if err != nil {
			destroyAll(tensors)
			return nil, nil, fmt.Errorf("error creating tensor %q: %w", spec.Name, err)
		}
		tensors = append(tensors, t)
		names = append(names, spec.Name)
	}
	return tensors, names, nil
}

func asArbitrary(tensors []*ort.Tensor[float32]) []ort.ArbitraryTensor {
	out := make([]ort.ArbitraryTensor, len(tensors))
	for i, t := range tensors {
		out[i] = t
	}
	return out
}

func destroyAll(tensors []*ort.Tensor[float32]) {
	for _, t := range tensors {
		if t != nil {
			t.Destroy()
		}
	}
}
