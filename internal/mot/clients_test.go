package mot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestPendingDetectionJoinDeliversResult(t *testing.T) {
	det := &fakeDetector{fn: func(ctx context.Context, f *Frame) (DetectionSet, error) {
		return DetectionSet{{Box: Rect{X: 1, Y: 2, W: 3, H: 4}}}, nil
	}}
	client := NewDetectorClient(det)

	pending := client.Issue(context.Background(), testFrame(0))
	dets, err := pending.Join(context.Background())
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if len(dets) != 1 || dets[0].Box.X != 1 {
		t.Errorf("unexpected detections: %+v", dets)
	}
}

func TestPendingJoinConsumedExactlyOnce(t *testing.T) {
	client := NewDetectorClient(&fakeDetector{})
	pending := client.Issue(context.Background(), testFrame(0))

	if _, err := pending.Join(context.Background()); err != nil {
		t.Fatalf("first join: %v", err)
	}
	if _, err := pending.Join(context.Background()); !errors.Is(err, ErrPendingConsumed) {
		t.Errorf("second join error = %v, want ErrPendingConsumed", err)
	}
}

func TestPendingJoinPropagatesFailure(t *testing.T) {
	stageErr := errors.New("model unavailable")
	client := NewDetectorClient(&fakeDetector{fn: func(ctx context.Context, f *Frame) (DetectionSet, error) {
		return nil, stageErr
	}})

	pending := client.Issue(context.Background(), testFrame(0))
	if _, err := pending.Join(context.Background()); !errors.Is(err, stageErr) {
		t.Errorf("join error = %v, want %v", err, stageErr)
	}
}

func TestPendingJoinHonoursContext(t *testing.T) {
	block := make(chan struct{})
	client := NewDetectorClient(&fakeDetector{fn: func(ctx context.Context, f *Frame) (DetectionSet, error) {
		<-block
		return DetectionSet{}, nil
	}})
	defer close(block)

	pending := client.Issue(context.Background(), testFrame(0))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := pending.Join(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("join error = %v, want deadline exceeded", err)
	}
}

// Concurrent issues from independent streams must each receive their
// own result: every pending handle owns its channel.
func TestConcurrentIssuesDoNotInterfere(t *testing.T) {
	det := &fakeDetector{fn: func(ctx context.Context, f *Frame) (DetectionSet, error) {
		// Encode the frame identity in the result.
		return DetectionSet{{Box: Rect{X: float32(frameIndex(f))}}}, nil
	}}
	client := NewDetectorClient(det)

	const n = 16
	pendings := make([]*PendingDetection, n)
	for i := 0; i < n; i++ {
		pendings[i] = client.Issue(context.Background(), testFrame(i))
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dets, err := pendings[i].Join(context.Background())
			if err != nil {
				t.Errorf("join %d: %v", i, err)
				return
			}
			if got := int(dets[0].Box.X); got != i {
				t.Errorf("pending %d received result for frame %d", i, got)
			}
		}(i)
	}
	wg.Wait()
}

func TestExtractorClientPreservesBoxOrder(t *testing.T) {
	client := NewExtractorClient(&fakeExtractor{})
	boxes := []Rect{
		{X: 10, Y: 10, W: 4, H: 4},
		{X: 50, Y: 20, W: 4, H: 4},
		{X: 90, Y: 30, W: 4, H: 4},
	}

	pending := client.Issue(context.Background(), testFrame(0), boxes)
	embs, err := pending.Join(context.Background())
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if len(embs) != len(boxes) {
		t.Fatalf("got %d embeddings for %d boxes", len(embs), len(boxes))
	}
	for i, b := range boxes {
		c := b.Center()
		if embs[i][0] != c.X || embs[i][1] != c.Y {
			t.Errorf("embedding %d = %v, want centre (%v, %v)", i, embs[i], c.X, c.Y)
		}
	}
}
