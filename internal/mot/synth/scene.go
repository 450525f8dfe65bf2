// Package synth generates synthetic scenes for end-to-end exercising of
// the cadence engine without camera hardware or model weights: moving
// coloured boxes over a textured background, plus detector and feature
// extractor capabilities that read the scene's ground truth with
// configurable latency and noise.
package synth

import (
	"image"
	"image/color"
	"math"
	"math/rand"
	"time"

	"github.com/mosaic-vision/cadence/internal/mot"
)

// Object is one simulated target moving linearly with constant velocity,
// bouncing off frame edges.
type Object struct {
	X, Y   float32 // top-left at frame 0
	W, H   float32
	VX, VY float32 // pixels per frame
	Class  int
	Color  color.RGBA
}

// Scene describes a synthetic multi-object sequence.
type Scene struct {
	Width   int
	Height  int
	Objects []Object

	// Interval is the simulated time between frames.
	Interval time.Duration
}

// DefaultScene returns a 640x480 scene with three targets of distinct
// colours and speeds.
func DefaultScene() *Scene {
	return &Scene{
		Width:  640,
		Height: 480,
		Objects: []Object{
			{X: 40, Y: 60, W: 48, H: 96, VX: 6, VY: 1, Class: 0, Color: color.RGBA{R: 200, G: 40, B: 40, A: 255}},
			{X: 520, Y: 300, W: 64, H: 48, VX: -4, VY: -2, Class: 1, Color: color.RGBA{R: 40, G: 180, B: 60, A: 255}},
			{X: 300, Y: 400, W: 40, H: 40, VX: 2, VY: -5, Class: 0, Color: color.RGBA{R: 60, G: 80, B: 220, A: 255}},
		},
		Interval: 33 * time.Millisecond,
	}
}

// BoxAt returns object i's box at frame index n, reflecting off edges.
func (s *Scene) BoxAt(i, n int) mot.Rect {
	o := s.Objects[i]
	x := bounce(o.X+o.VX*float32(n), float32(s.Width)-o.W)
	y := bounce(o.Y+o.VY*float32(n), float32(s.Height)-o.H)
	return mot.Rect{X: x, Y: y, W: o.W, H: o.H}
}

// bounce reflects a coordinate into [0, limit].
func bounce(v, limit float32) float32 {
	if limit <= 0 {
		return 0
	}
	period := 2 * limit
	v = float32(math.Mod(float64(v), float64(period)))
	if v < 0 {
		v += period
	}
	if v > limit {
		v = period - v
	}
	return v
}

// Frame renders frame n: a deterministic textured background with the
// objects drawn as solid boxes. The texture gives the flow estimator
// something to lock onto.
func (s *Scene) Frame(n int) *mot.Frame {
	img := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			// Cheap deterministic noise pattern, stable across frames.
			v := uint8(40 + (x*7+y*13)%48 + ((x/16 + y/16) % 2 * 24))
			i := img.PixOffset(x, y)
			img.Pix[i] = v
			img.Pix[i+1] = v
			img.Pix[i+2] = v
			img.Pix[i+3] = 255
		}
	}
	for i := range s.Objects {
		box := s.BoxAt(i, n)
		fillRect(img, box, s.Objects[i].Color)
	}
	return &mot.Frame{
		Image: img,
		Time:  time.Unix(0, 0).Add(time.Duration(n) * s.Interval),
	}
}

// Truth returns the ground-truth detections for frame n in stable
// object order.
func (s *Scene) Truth(n int) mot.DetectionSet {
	dets := make(mot.DetectionSet, len(s.Objects))
	for i := range s.Objects {
		dets[i] = mot.Detection{Box: s.BoxAt(i, n), Class: s.Objects[i].Class, Score: 0.9}
	}
	return dets
}

func fillRect(img *image.RGBA, box mot.Rect, c color.RGBA) {
	b := img.Bounds()
	x0 := clamp(int(box.X), b.Min.X, b.Max.X)
	y0 := clamp(int(box.Y), b.Min.Y, b.Max.Y)
	x1 := clamp(int(box.X+box.W), b.Min.X, b.Max.X)
	y1 := clamp(int(box.Y+box.H), b.Min.Y, b.Max.Y)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// jitter returns a deterministic small perturbation for frame n, det i.
func jitter(rng *rand.Rand, amount float32) float32 {
	if amount <= 0 {
		return 0
	}
	return (rng.Float32()*2 - 1) * amount
}
