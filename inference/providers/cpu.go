// Package providers - CPU based execution provider.
package providers

// CPUProvider represents the CPU execution provider.
type CPUProvider struct {
	// IntraOpThreads controls parallelism inside a graph node; 0 lets the
	// runtime decide.
	IntraOpThreads int
	// InterOpThreads controls parallelism across independent graph
	// nodes; 0 lets the runtime decide.
	InterOpThreads int
}

// Backend returns the provider backend identifier.
func (p *CPUProvider) Backend() ProviderBackend { return CPUProviderBackend }

// NewCPUProvider creates a new CPU provider.
func NewCPUProvider() *CPUProvider {
	return &CPUProvider{}
}
