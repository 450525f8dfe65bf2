package mot

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TrackerFactory builds a fresh tracker for one stream at Reset time.
type TrackerFactory func(cfg StreamConfig) Tracker

// VisualizerFactory builds a visualizer for the stream at the given
// index. May return nil to disable rendering for that stream.
type VisualizerFactory func(streamIndex int) Visualizer

// SessionOptions configures a Session beyond its shared stage clients.
type SessionOptions struct {
	// NewTracker is required: it constructs each stream's tracker.
	NewTracker TrackerFactory

	// NewVisualizer is consulted only when Draw is true.
	NewVisualizer VisualizerFactory

	// Draw enables the rendering hook after each processed frame.
	Draw bool

	// Profiler receives stage timings. Nil creates a private one.
	Profiler *StageProfiler
}

// Session is the top-level entry point: it fans a batch of input frames
// out to N independent streams and runs the cadence scheduler for each.
// Streams are processed one at a time within a Step call; the latency
// overlap lives inside each stream's detect cycle, not across streams.
type Session struct {
	sched   *Scheduler
	opts    SessionOptions
	streams []*Stream
}

// NewSession creates a session over shared detector and extractor
// capabilities. Reset must be called before the first Step.
func NewSession(detector Detector, extractor FeatureExtractor, opts SessionOptions) (*Session, error) {
	if detector == nil {
		return nil, errors.New("session: detector is required")
	}
	if extractor == nil {
		return nil, errors.New("session: feature extractor is required")
	}
	if opts.NewTracker == nil {
		return nil, errors.New("session: tracker factory is required")
	}
	if opts.Draw && opts.NewVisualizer == nil {
		return nil, errors.New("session: draw enabled but no visualizer factory")
	}
	return &Session{
		sched: NewScheduler(NewDetectorClient(detector), NewExtractorClient(extractor), opts.Profiler),
		opts:  opts,
	}, nil
}

// Reset (re)initialises exactly one stream per configuration, each with a
// zero frame counter and a freshly constructed tracker seeded with that
// stream's frame interval. Calling Reset again fully replaces prior
// stream state. A configuration error aborts before any stream is built.
func (s *Session) Reset(configs ...StreamConfig) error {
	if len(configs) == 0 {
		return errors.New("session: reset requires at least one stream config")
	}
	for i, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("session: stream %d: %w", i, err)
		}
	}

	streams := make([]*Stream, len(configs))
	for i, cfg := range configs {
		tracker := s.opts.NewTracker(cfg)
		if tracker == nil {
			return fmt.Errorf("session: stream %d: tracker factory returned nil", i)
		}
		tracker.Reset(cfg.FrameInterval)

		var vis Visualizer
		if s.opts.Draw {
			vis = s.opts.NewVisualizer(i)
		}
		streams[i] = &Stream{
			Index:      i,
			Period:     cfg.CadencePeriod,
			Tracker:    tracker,
			Visualizer: vis,
		}
	}
	s.streams = streams
	return nil
}

// Step accepts one candidate frame per configured stream, positionally
// matched. A nil frame is a no-op for its stream: neither the tracker nor
// the frame counter is touched. Stage failures are contained to their
// stream — the frame counter still advances and the remaining streams
// proceed — and are reported joined into the returned error.
func (s *Session) Step(ctx context.Context, frames ...*Frame) error {
	if len(s.streams) == 0 {
		return errors.New("session: step called before reset")
	}
	if len(frames) != len(s.streams) {
		return fmt.Errorf("session: got %d frames for %d streams", len(frames), len(s.streams))
	}

	var errs []error
	for i, frame := range frames {
		if frame == nil {
			continue
		}
		stream := s.streams[i]
		dets, err := s.sched.Process(ctx, stream, frame)
		if err != nil {
			errs = append(errs, fmt.Errorf("stream %d frame %d: %w", i, stream.FrameCount, err))
		} else if s.opts.Draw && stream.Visualizer != nil {
			stream.Visualizer.Render(frame, stream.Tracker.VisibleTracks(), dets, stream.Tracker.FlowArtifacts())
		}
		stream.FrameCount++
	}
	return errors.Join(errs...)
}

// VisibleTracks returns, per stream, a snapshot of the tracks currently
// classified confirmed and active. The snapshots are freshly built on
// each call and querying them mutates nothing.
func (s *Session) VisibleTracks() [][]TrackSnapshot {
	visible := make([][]TrackSnapshot, len(s.streams))
	for i, stream := range s.streams {
		visible[i] = stream.Tracker.VisibleTracks()
	}
	return visible
}

// StreamCount returns the number of configured streams.
func (s *Session) StreamCount() int {
	return len(s.streams)
}

// FrameCount returns the frame counter for one stream.
func (s *Session) FrameCount(stream int) int {
	return s.streams[stream].FrameCount
}

// DegradedFrames returns how many of a stream's frames were abandoned
// after a stage failure.
func (s *Session) DegradedFrames(stream int) int {
	return s.streams[stream].DegradedFrames
}

// TimingReport returns accumulated average durations per named stage.
func (s *Session) TimingReport() map[Stage]time.Duration {
	return s.sched.Profiler().Averages()
}

// LogTimingStats writes the timing report to the diag log stream.
func (s *Session) LogTimingStats() {
	s.sched.Profiler().LogStats()
}
