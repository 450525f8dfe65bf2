package mot

import (
	"image"
	"time"
)

// Frame is a single decoded video frame handed to the cadence engine.
// A nil *Frame in a Step call means "no input for this stream this call".
type Frame struct {
	Image *image.RGBA
	Time  time.Time
}

// Point is a 2D image-plane coordinate.
type Point struct {
	X float32
	Y float32
}

// Rect is an axis-aligned box in image coordinates (top-left, width, height).
type Rect struct {
	X float32
	Y float32
	W float32
	H float32
}

// Center returns the box centre.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Area returns the box area in pixels².
func (r Rect) Area() float32 {
	return r.W * r.H
}

// Translate returns the box shifted by (dx, dy).
func (r Rect) Translate(dx, dy float32) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// IoU returns the intersection-over-union overlap with another box.
func (r Rect) IoU(o Rect) float32 {
	x1 := maxf(r.X, o.X)
	y1 := maxf(r.Y, o.Y)
	x2 := minf(r.X+r.W, o.X+o.W)
	y2 := minf(r.Y+r.H, o.Y+o.H)
	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	inter := (x2 - x1) * (y2 - y1)
	union := r.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

// Detection is a single detector output: box, class label and confidence.
type Detection struct {
	Box   Rect
	Class int
	Score float32
}

// DetectionSet is the ordered sequence of detections for one frame.
// The ordering is load-bearing: embeddings produced from a DetectionSet
// are aligned to it by index. An empty set is a valid result, not an error.
type DetectionSet []Detection

// Boxes returns the detection boxes in set order.
func (ds DetectionSet) Boxes() []Rect {
	boxes := make([]Rect, len(ds))
	for i, d := range ds {
		boxes[i] = d.Box
	}
	return boxes
}

// Embedding is a single appearance feature vector.
type Embedding []float32

// EmbeddingSet is aligned 1:1 by index with the DetectionSet that
// produced it.
type EmbeddingSet []Embedding

// TrackSnapshot is a read-only view of one tracked object, safe to hold
// across Step calls.
type TrackSnapshot struct {
	TrackID string
	Box     Rect
	Class   int
	Age     int // frames since the track was created
	Hits    int // consecutive successful associations
}

// FlowArtifacts exposes the motion-registration intermediates for
// rendering: per-track flow-propagated boxes and the background
// keypoints used to fit the camera-motion transform.
type FlowArtifacts struct {
	TrackBoxes    []Rect
	PrevKeypoints []Point
	Keypoints     []Point
}
