// Package profiler - lightweight per-stage timing for the frame pipeline:
// how long preprocessing, network execution, and post-processing take per
// frame, with a summary report at shutdown.
package profiler

import (
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync"
	"time"
)

// stageStats accumulates timing statistics for one pipeline stage.
type stageStats struct {
	total time.Duration
	min   time.Duration
	max   time.Duration
	count int64
}

// Pipeline tracks stage timings across frames. Safe for concurrent use.
type Pipeline struct {
	mu     sync.Mutex
	stages map[string]*stageStats
	start  time.Time
}

// NewPipeline creates an empty pipeline profiler.
func NewPipeline() *Pipeline {
	return &Pipeline{
		stages: make(map[string]*stageStats),
		start:  time.Now(),
	}
}

// Start begins timing a stage. Call the returned function when the stage
// completes:
//
//	defer p.Start("preprocess")()
func (p *Pipeline) Start(stage string) func() {
	begin := time.Now()
	return func() {
		p.record(stage, time.Since(begin))
	}
}

func (p *Pipeline) record(stage string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.stages[stage]
	if !ok {
		s = &stageStats{min: d, max: d}
		p.stages[stage] = s
	}
	s.total += d
	s.count++
	if d < s.min {
		s.min = d
	}
	if d > s.max {
		s.max = d
	}
}

// Report writes a per-stage timing summary, stages sorted by total time
// descending, plus current memory use.
func (p *Pipeline) Report(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.stages))
	for name := range p.stages {
		names = append(names, name)
	}
	sort.Slice(names, func(a, b int) bool {
		return p.stages[names[a]].total > p.stages[names[b]].total
	})

	fmt.Fprintf(w, "pipeline timing over %v\n", time.Since(p.start).Truncate(time.Millisecond))
	for _, name := range names {
		s := p.stages[name]
		avg := s.total / time.Duration(s.count)
		fmt.Fprintf(w, "  %-12s avg=%v min=%v max=%v n=%d\n",
			name,
			avg.Truncate(time.Microsecond),
			s.min.Truncate(time.Microsecond),
			s.max.Truncate(time.Microsecond),
			s.count)
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	fmt.Fprintf(w, "  heap alloc %.1f MB, %d gc cycles\n",
		float64(mem.HeapAlloc)/(1024*1024), mem.NumGC)
}
