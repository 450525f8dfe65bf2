package mot

import (
	"context"
	"fmt"
)

// Scheduler executes exactly one of the three mutually exclusive per-frame
// protocols for a stream: cold start, detect cycle, or track only. The
// detector and extractor clients are shared across all streams; tracker
// state on the stream is exclusively the scheduler's to touch for the
// duration of one Process call.
type Scheduler struct {
	detector  *DetectorClient
	extractor *ExtractorClient
	prof      *StageProfiler
}

// NewScheduler creates a scheduler over shared stage clients. The
// profiler may be nil to disable stage timing.
func NewScheduler(detector *DetectorClient, extractor *ExtractorClient, prof *StageProfiler) *Scheduler {
	if prof == nil {
		prof = NewStageProfiler()
	}
	return &Scheduler{detector: detector, extractor: extractor, prof: prof}
}

// Profiler returns the scheduler's stage profiler.
func (s *Scheduler) Profiler() *StageProfiler {
	return s.prof
}

// Process runs the cadence protocol selected by the stream's phase on one
// frame. It returns the frame's detections (empty outside detect cycles)
// for optional rendering. On a stage failure the cycle is abandoned with
// no tracker mutation; the caller still advances the frame counter so the
// cadence stays aligned.
func (s *Scheduler) Process(ctx context.Context, stream *Stream, frame *Frame) (DetectionSet, error) {
	switch phase := stream.Phase(); phase {
	case PhaseColdStart:
		return s.coldStart(ctx, stream, frame)
	case PhaseDetectCycle:
		return s.detectCycle(ctx, stream, frame)
	case PhaseTrackOnly:
		return nil, s.trackOnly(stream, frame)
	default:
		return nil, fmt.Errorf("stream %d: unknown cadence phase %v", stream.Index, phase)
	}
}

// coldStart runs detection synchronously and seeds the tracker. Nothing
// overlaps here: on frame 0 there is no prior state to predict from, so
// there is no concurrent useful work.
func (s *Scheduler) coldStart(ctx context.Context, stream *Stream, frame *Frame) (DetectionSet, error) {
	stopDetect := s.prof.Time(StageDetect)
	dets, err := s.detector.Detect(ctx, frame)
	stopDetect()
	if err != nil {
		stream.DegradedFrames++
		opsf("stream %d frame %d: cold-start detection failed: %v", stream.Index, stream.FrameCount, err)
		return nil, fmt.Errorf("cold start: detect: %w", err)
	}
	stream.Tracker.Init(frame, dets)
	return dets, nil
}

// detectCycle runs the overlap protocol. Strict order:
//
//  1. issue detection (non-blocking)
//  2. flow registration, concurrent with the in-flight detection
//  3. join detection — first suspension point
//  4. issue extraction on the detected boxes (non-blocking)
//  5. motion prediction, concurrent with the in-flight extraction
//  6. join extraction — second suspension point
//  7. association/update with detections + aligned embeddings
//
// The two inference latencies are hidden behind the two local motion
// computations, so the cycle costs max(detect, flow) + max(extract,
// predict) + associate rather than the sum of all five.
func (s *Scheduler) detectCycle(ctx context.Context, stream *Stream, frame *Frame) (DetectionSet, error) {
	stopPreproc := s.prof.Time(StagePreproc)
	pendingDet := s.detector.Issue(ctx, frame)
	stopPreproc()

	stopDetect := s.prof.Time(StageDetect)
	stopFlow := s.prof.Time(StageTrack)
	flowErr := stream.Tracker.ComputeFlow(frame)
	stopFlow()

	dets, err := pendingDet.Join(ctx)
	stopDetect()
	if err != nil {
		stream.DegradedFrames++
		opsf("stream %d frame %d: detection failed, cycle abandoned: %v", stream.Index, stream.FrameCount, err)
		return nil, fmt.Errorf("detect cycle: join detection: %w", err)
	}
	if flowErr != nil {
		stream.DegradedFrames++
		opsf("stream %d frame %d: flow registration failed, cycle abandoned: %v", stream.Index, stream.FrameCount, flowErr)
		return nil, fmt.Errorf("detect cycle: flow registration: %w", flowErr)
	}

	stopExtract := s.prof.Time(StageExtract)
	// Box order must match the DetectionSet exactly; the joined
	// embeddings rely on it for index alignment.
	pendingEmb := s.extractor.Issue(ctx, frame, dets.Boxes())

	stopPredict := s.prof.Time(StageTrack)
	stream.Tracker.Predict()
	stopPredict()

	embs, err := pendingEmb.Join(ctx)
	stopExtract()
	if err != nil {
		stream.DegradedFrames++
		opsf("stream %d frame %d: extraction failed, cycle abandoned: %v", stream.Index, stream.FrameCount, err)
		return nil, fmt.Errorf("detect cycle: join extraction: %w", err)
	}
	if len(embs) != len(dets) {
		stream.DegradedFrames++
		opsf("stream %d frame %d: embedding count %d != detection count %d, cycle abandoned",
			stream.Index, stream.FrameCount, len(embs), len(dets))
		return nil, fmt.Errorf("detect cycle: %d embeddings for %d detections", len(embs), len(dets))
	}

	stopAssoc := s.prof.Time(StageAssoc)
	stream.Tracker.Update(stream.FrameCount, dets, embs)
	stopAssoc()

	return dets, nil
}

// trackOnly runs the cheap motion step. This is the cadence's cost
// amortisation: inference runs once per period, motion on the rest.
func (s *Scheduler) trackOnly(stream *Stream, frame *Frame) error {
	stopTrack := s.prof.Time(StageTrack)
	err := stream.Tracker.Step(frame)
	stopTrack()
	if err != nil {
		stream.DegradedFrames++
		opsf("stream %d frame %d: track-only step failed: %v", stream.Index, stream.FrameCount, err)
		return fmt.Errorf("track only: %w", err)
	}
	return nil
}
