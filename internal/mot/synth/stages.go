package synth

import (
	"context"
	"math/rand"
	"time"

	"github.com/mosaic-vision/cadence/internal/mot"
)

// Detector implements the engine's Detector capability against a scene's
// ground truth. Latency simulates model inference time; BoxJitter adds
// localisation noise so association is non-trivial.
type Detector struct {
	Scene     *Scene
	Latency   time.Duration
	BoxJitter float32

	rng *rand.Rand
}

// NewDetector creates a scene-backed detector with its own seeded RNG so
// runs are reproducible.
func NewDetector(scene *Scene, latency time.Duration) *Detector {
	return &Detector{
		Scene:   scene,
		Latency: latency,
		rng:     rand.New(rand.NewSource(1)),
	}
}

// Detect returns ground-truth boxes for the frame, after the simulated
// inference latency.
func (d *Detector) Detect(ctx context.Context, frame *mot.Frame) (mot.DetectionSet, error) {
	if d.Latency > 0 {
		select {
		case <-time.After(d.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	n := d.frameIndex(frame)
	dets := d.Scene.Truth(n)
	for i := range dets {
		dets[i].Box = dets[i].Box.Translate(jitter(d.rng, d.BoxJitter), jitter(d.rng, d.BoxJitter))
	}
	return dets, nil
}

func (d *Detector) frameIndex(frame *mot.Frame) int {
	if d.Scene.Interval <= 0 {
		return 0
	}
	return int(frame.Time.Sub(time.Unix(0, 0)) / d.Scene.Interval)
}

// Extractor implements the FeatureExtractor capability: the embedding
// for a box is the mean colour of the frame pixels inside it, so the
// same object yields a stable appearance across frames.
type Extractor struct {
	Latency time.Duration
}

// NewExtractor creates a mean-colour extractor.
func NewExtractor(latency time.Duration) *Extractor {
	return &Extractor{Latency: latency}
}

// Extract returns one embedding per box, preserving box order.
func (e *Extractor) Extract(ctx context.Context, frame *mot.Frame, boxes []mot.Rect) (mot.EmbeddingSet, error) {
	if e.Latency > 0 {
		select {
		case <-time.After(e.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	embs := make(mot.EmbeddingSet, len(boxes))
	for i, box := range boxes {
		embs[i] = meanColor(frame, box)
	}
	return embs, nil
}

// meanColor averages RGB over the box interior, sampled on a stride to
// bound cost on large boxes.
func meanColor(frame *mot.Frame, box mot.Rect) mot.Embedding {
	img := frame.Image
	b := img.Bounds()
	x0 := clamp(int(box.X), b.Min.X, b.Max.X-1)
	y0 := clamp(int(box.Y), b.Min.Y, b.Max.Y-1)
	x1 := clamp(int(box.X+box.W), b.Min.X, b.Max.X)
	y1 := clamp(int(box.Y+box.H), b.Min.Y, b.Max.Y)

	var r, g, bl, n float32
	for y := y0; y < y1; y += 2 {
		for x := x0; x < x1; x += 2 {
			i := img.PixOffset(x, y)
			r += float32(img.Pix[i])
			g += float32(img.Pix[i+1])
			bl += float32(img.Pix[i+2])
			n++
		}
	}
	if n == 0 {
		return mot.Embedding{0, 0, 0}
	}
	return mot.Embedding{r / n / 255, g / n / 255, bl / n / 255}
}
