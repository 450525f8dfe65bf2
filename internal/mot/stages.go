package mot

import (
	"context"
	"time"
)

// ---------------------------------------------------------------------------
// Capability contracts consumed by the cadence engine.
//
// The engine owns scheduling only: detection, feature extraction, optical
// flow and the association math live behind these interfaces. Detector and
// FeatureExtractor implementations are shared across all streams and must
// tolerate interleaved calls from different streams' cycles; Tracker and
// Visualizer instances are exclusively owned by one stream.
// ---------------------------------------------------------------------------

// Detector produces detections for a frame. Implementations are expected
// to be expensive (model inference); the engine hides their latency by
// issuing them through a DetectorClient while motion work runs.
type Detector interface {
	Detect(ctx context.Context, frame *Frame) (DetectionSet, error)
}

// FeatureExtractor computes one appearance embedding per input box.
// The returned EmbeddingSet must preserve box order: embedding i belongs
// to boxes[i].
type FeatureExtractor interface {
	Extract(ctx context.Context, frame *Frame, boxes []Rect) (EmbeddingSet, error)
}

// Tracker is the per-stream track-state capability. The engine calls its
// methods in a fixed order per cycle (ComputeFlow before Predict before
// Update) and never from more than one goroutine at a time.
type Tracker interface {
	// Reset clears all track state. The frame interval seeds the motion
	// model's time step.
	Reset(frameInterval time.Duration)

	// Init seeds tracks from a cold-start detection pass. No embeddings
	// and no motion prediction: there is no prior state on frame 0.
	Init(frame *Frame, dets DetectionSet)

	// ComputeFlow registers currently tracked boxes against the frame.
	// CPU-bound; scheduled to run while detection inference is in flight.
	ComputeFlow(frame *Frame) error

	// Predict applies the motion prediction step to every track using
	// the registration from the preceding ComputeFlow call.
	Predict()

	// Update reconciles detections and their aligned embeddings against
	// predicted track state (births, continuations, deaths).
	Update(frameIndex int, dets DetectionSet, embs EmbeddingSet)

	// Step runs the lightweight motion-only path for frames between
	// detect cycles.
	Step(frame *Frame) error

	// VisibleTracks returns snapshots of confirmed, active tracks.
	// Must not mutate tracker state.
	VisibleTracks() []TrackSnapshot

	// FlowArtifacts returns the latest registration intermediates for
	// rendering.
	FlowArtifacts() FlowArtifacts
}

// Visualizer renders one stream's state onto a frame. Pure side effect;
// the engine relies on no return value.
type Visualizer interface {
	Render(frame *Frame, tracks []TrackSnapshot, dets DetectionSet, flow FlowArtifacts)
}
