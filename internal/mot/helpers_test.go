package mot

import (
	"context"
	"image"
	"sync"
	"time"
)

// testFrame builds a small frame whose timestamp encodes the frame
// index, so shared fake stages can tell frames apart.
func testFrame(n int) *Frame {
	return &Frame{
		Image: image.NewRGBA(image.Rect(0, 0, 64, 48)),
		Time:  time.Unix(0, int64(n)),
	}
}

func frameIndex(f *Frame) int {
	return int(f.Time.UnixNano())
}

// fakeDetector runs an injectable detect function. Shared across
// streams like a real model client.
type fakeDetector struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, f *Frame) (DetectionSet, error)
}

func (d *fakeDetector) Detect(ctx context.Context, f *Frame) (DetectionSet, error) {
	d.mu.Lock()
	d.calls++
	fn := d.fn
	d.mu.Unlock()
	if fn == nil {
		return DetectionSet{}, nil
	}
	return fn(ctx, f)
}

func (d *fakeDetector) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// fakeExtractor echoes one embedding per box; the embedding encodes the
// box centre so alignment can be checked downstream.
type fakeExtractor struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, f *Frame, boxes []Rect) (EmbeddingSet, error)
}

func (e *fakeExtractor) Extract(ctx context.Context, f *Frame, boxes []Rect) (EmbeddingSet, error) {
	e.mu.Lock()
	e.calls++
	fn := e.fn
	e.mu.Unlock()
	if fn != nil {
		return fn(ctx, f, boxes)
	}
	embs := make(EmbeddingSet, len(boxes))
	for i, b := range boxes {
		c := b.Center()
		embs[i] = Embedding{c.X, c.Y}
	}
	return embs, nil
}

// recordingTracker logs the tracker calls the scheduler makes, in order.
type recordingTracker struct {
	calls []string

	// Captured inputs from the most recent Update.
	lastFrameIndex int
	lastDets       DetectionSet
	lastEmbs       EmbeddingSet

	// Hooks fired inside ComputeFlow / Predict, used to prove the
	// inference calls are genuinely in flight during motion work.
	onFlow    func()
	onPredict func()

	flowErr error
	stepErr error

	visible []TrackSnapshot
}

func (t *recordingTracker) Reset(frameInterval time.Duration) {
	t.calls = append(t.calls, "reset")
}

func (t *recordingTracker) Init(f *Frame, dets DetectionSet) {
	t.calls = append(t.calls, "init")
	t.lastDets = dets
}

func (t *recordingTracker) ComputeFlow(f *Frame) error {
	t.calls = append(t.calls, "flow")
	if t.onFlow != nil {
		t.onFlow()
	}
	return t.flowErr
}

func (t *recordingTracker) Predict() {
	t.calls = append(t.calls, "predict")
	if t.onPredict != nil {
		t.onPredict()
	}
}

func (t *recordingTracker) Update(frameIndex int, dets DetectionSet, embs EmbeddingSet) {
	t.calls = append(t.calls, "update")
	t.lastFrameIndex = frameIndex
	t.lastDets = dets
	t.lastEmbs = embs
}

func (t *recordingTracker) Step(f *Frame) error {
	t.calls = append(t.calls, "step")
	return t.stepErr
}

func (t *recordingTracker) VisibleTracks() []TrackSnapshot {
	return append([]TrackSnapshot(nil), t.visible...)
}

func (t *recordingTracker) FlowArtifacts() FlowArtifacts {
	return FlowArtifacts{}
}

// countCalls returns how many times name appears in the call log.
func (t *recordingTracker) countCalls(name string) int {
	n := 0
	for _, c := range t.calls {
		if c == name {
			n++
		}
	}
	return n
}
