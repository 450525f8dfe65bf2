package mot

import (
	"context"
	"errors"
)

// ErrPendingConsumed is returned when a pending handle is joined twice.
// Each issue must be matched by exactly one join within the same cycle.
var ErrPendingConsumed = errors.New("pending result already consumed")

type detectOutcome struct {
	dets DetectionSet
	err  error
}

type extractOutcome struct {
	embs EmbeddingSet
	err  error
}

// PendingDetection is an in-flight detection request. It is created by
// DetectorClient.Issue and consumed exactly once by Join. Handles are
// never shared across streams or retained across frames.
type PendingDetection struct {
	ch       chan detectOutcome
	consumed bool
}

// Join blocks until the detection completes and returns its result.
// This is one of the two suspension points in a detect cycle.
func (p *PendingDetection) Join(ctx context.Context) (DetectionSet, error) {
	if p.consumed {
		return nil, ErrPendingConsumed
	}
	p.consumed = true
	select {
	case out := <-p.ch:
		return out.dets, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PendingEmbedding is an in-flight feature-extraction request, consumed
// exactly once by Join.
type PendingEmbedding struct {
	ch       chan extractOutcome
	consumed bool
}

// Join blocks until extraction completes and returns embeddings aligned
// to the boxes passed at issue time.
func (p *PendingEmbedding) Join(ctx context.Context) (EmbeddingSet, error) {
	if p.consumed {
		return nil, ErrPendingConsumed
	}
	p.consumed = true
	select {
	case out := <-p.ch:
		return out.embs, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// DetectorClient wraps a shared Detector capability with an issue/join
// pair. Each Issue runs on its own goroutine and delivers into a buffered
// channel owned by the returned handle, so concurrent issues from
// different streams never interfere.
type DetectorClient struct {
	detector Detector
}

// NewDetectorClient wraps a detector for async dispatch.
func NewDetectorClient(d Detector) *DetectorClient {
	return &DetectorClient{detector: d}
}

// Detect runs detection synchronously. Only the cold-start path uses
// this: on frame 0 there is no concurrent work to hide latency behind.
func (c *DetectorClient) Detect(ctx context.Context, frame *Frame) (DetectionSet, error) {
	return c.detector.Detect(ctx, frame)
}

// Issue starts detection on the frame without blocking.
func (c *DetectorClient) Issue(ctx context.Context, frame *Frame) *PendingDetection {
	pending := &PendingDetection{ch: make(chan detectOutcome, 1)}
	go func() {
		dets, err := c.detector.Detect(ctx, frame)
		pending.ch <- detectOutcome{dets: dets, err: err}
	}()
	return pending
}

// ExtractorClient wraps a shared FeatureExtractor capability with an
// issue/join pair, preserving box order through to the joined result.
type ExtractorClient struct {
	extractor FeatureExtractor
}

// NewExtractorClient wraps a feature extractor for async dispatch.
func NewExtractorClient(e FeatureExtractor) *ExtractorClient {
	return &ExtractorClient{extractor: e}
}

// Issue starts extraction for the given boxes without blocking. The box
// slice must be in DetectionSet order; the joined EmbeddingSet carries
// the same ordering.
func (c *ExtractorClient) Issue(ctx context.Context, frame *Frame, boxes []Rect) *PendingEmbedding {
	pending := &PendingEmbedding{ch: make(chan extractOutcome, 1)}
	go func() {
		embs, err := c.extractor.Extract(ctx, frame, boxes)
		pending.ch <- extractOutcome{embs: embs, err: err}
	}()
	return pending
}
