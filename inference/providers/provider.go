// Package providers - ONNX Runtime execution providers and sessions for the
// grasp network. The network is an external collaborator of the
// post-processing pipeline; this package is the adapter that produces its
// raw output tensors.
package providers

// ProviderBackend represents an ONNX Runtime execution provider.
type ProviderBackend string

const (
	// CPUProviderBackend uses the default CPU execution provider.
	CPUProviderBackend ProviderBackend = "cpu"
)

// ExecutionProvider represents the contract that all execution providers
// must implement.
type ExecutionProvider interface {
	Backend() ProviderBackend
}
