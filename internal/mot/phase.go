package mot

// CadencePhase selects which per-frame protocol runs for a stream. It is
// always derived from the frame counter and cadence period, never stored,
// so it cannot drift out of sync with the counter.
type CadencePhase int

const (
	// PhaseColdStart runs a one-shot synchronous detection to seed the
	// tracker on a stream's first frame.
	PhaseColdStart CadencePhase = iota

	// PhaseDetectCycle runs the full overlapped detect/extract/associate
	// protocol. Fires every CadencePeriod frames after frame 0.
	PhaseDetectCycle

	// PhaseTrackOnly runs only the cheap motion step. Fires on the
	// CadencePeriod-1 frames between detect cycles.
	PhaseTrackOnly
)

// String returns the phase name for logs and errors.
func (p CadencePhase) String() string {
	switch p {
	case PhaseColdStart:
		return "cold_start"
	case PhaseDetectCycle:
		return "detect_cycle"
	case PhaseTrackOnly:
		return "track_only"
	default:
		return "unknown"
	}
}

// PhaseFor computes the cadence phase for a stream with the given frame
// counter and cadence period. Period must be >= 1; a period of 1 means
// every frame after frame 0 is a detect cycle.
func PhaseFor(frameCount, period int) CadencePhase {
	if frameCount == 0 {
		return PhaseColdStart
	}
	if frameCount%period == 0 {
		return PhaseDetectCycle
	}
	return PhaseTrackOnly
}
