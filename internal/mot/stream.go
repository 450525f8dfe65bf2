package mot

import (
	"fmt"
	"time"
)

// StreamConfig describes one video stream managed by a Session.
type StreamConfig struct {
	// CadencePeriod is the number of frames between detect cycles.
	// Must be >= 1; a period of 1 disables the track-only path.
	CadencePeriod int

	// FrameInterval is the expected time between frames, used to seed
	// the tracker's motion model.
	FrameInterval time.Duration
}

// Validate checks the configuration for fatal errors.
func (c StreamConfig) Validate() error {
	if c.CadencePeriod < 1 {
		return fmt.Errorf("cadence period must be >= 1, got %d", c.CadencePeriod)
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("frame interval must be positive, got %v", c.FrameInterval)
	}
	return nil
}

// Stream holds the per-stream cadence state: the frame counter the phase
// derives from, and the exclusively-owned tracker and visualizer handles.
// One record per stream; nothing about a stream lives in a parallel slice.
type Stream struct {
	Index      int
	FrameCount int
	Period     int
	Tracker    Tracker
	Visualizer Visualizer

	// DegradedFrames counts frames whose detect cycle was abandoned
	// after a stage failure. The frame counter still advances for those
	// frames; only tracker state is left untouched.
	DegradedFrames int
}

// Phase derives the cadence phase for the stream's next frame.
func (s *Stream) Phase() CadencePhase {
	return PhaseFor(s.FrameCount, s.Period)
}
