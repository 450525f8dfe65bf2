package mot

import (
	"sort"
	"sync"
	"time"
)

// Stage names a profiled pipeline stage.
type Stage string

const (
	// StageTrack covers the motion work: flow registration and the
	// prediction step, plus the whole track-only path.
	StageTrack Stage = "track"
	// StagePreproc covers detection dispatch (frame handoff to the model).
	StagePreproc Stage = "preproc"
	// StageDetect covers the flow-overlap window through detection join.
	StageDetect Stage = "detect"
	// StageExtract covers the prediction-overlap window through
	// extraction join.
	StageExtract Stage = "extract"
	// StageAssoc covers the association/update step.
	StageAssoc Stage = "assoc"
)

// StageProfiler accumulates per-stage durations with thread-safe
// operations. Purely observational: the scheduler consults it never,
// callers query averages for reporting.
type StageProfiler struct {
	mu     sync.Mutex
	totals map[Stage]time.Duration
	counts map[Stage]int64
}

// NewStageProfiler creates an empty profiler.
func NewStageProfiler() *StageProfiler {
	return &StageProfiler{
		totals: make(map[Stage]time.Duration),
		counts: make(map[Stage]int64),
	}
}

// Observe records one duration sample for a stage.
func (p *StageProfiler) Observe(stage Stage, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.totals[stage] += d
	p.counts[stage]++
}

// Time starts a stage timer and returns a stop function that records the
// elapsed duration.
func (p *StageProfiler) Time(stage Stage) func() {
	start := time.Now()
	return func() {
		p.Observe(stage, time.Since(start))
	}
}

// Avg returns the average duration recorded for a stage, or zero when no
// samples exist.
func (p *StageProfiler) Avg(stage Stage) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := p.counts[stage]
	if count == 0 {
		return 0
	}
	return p.totals[stage] / time.Duration(count)
}

// Averages returns a snapshot of all stage averages.
func (p *StageProfiler) Averages() map[Stage]time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	avgs := make(map[Stage]time.Duration, len(p.totals))
	for stage, total := range p.totals {
		if count := p.counts[stage]; count > 0 {
			avgs[stage] = total / time.Duration(count)
		}
	}
	return avgs
}

// Reset clears all accumulated samples.
func (p *StageProfiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.totals = make(map[Stage]time.Duration)
	p.counts = make(map[Stage]int64)
}

// LogStats writes average stage timings to the diag stream, one line per
// stage in stable order.
func (p *StageProfiler) LogStats() {
	avgs := p.Averages()
	if len(avgs) == 0 {
		return
	}
	stages := make([]string, 0, len(avgs))
	for stage := range avgs {
		stages = append(stages, string(stage))
	}
	sort.Strings(stages)
	diagf("================ Timing Stats ================")
	for _, stage := range stages {
		avg := avgs[Stage(stage)]
		diagf("%-12s %8.3f ms", stage, float64(avg.Microseconds())/1000.0)
	}
}
