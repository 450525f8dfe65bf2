package track

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/mosaic-vision/cadence/internal/mot"
)

// Correspondence pairs a background keypoint in the previous frame with
// its matched position in the current frame.
type Correspondence struct {
	From mot.Point
	To   mot.Point
}

// FlowEstimator produces sparse background keypoint correspondences
// between two consecutive frames. Implementations are CPU-bound by
// design: the cadence engine schedules flow work to run while model
// inference is in flight.
type FlowEstimator interface {
	Estimate(prev, cur *mot.Frame) ([]Correspondence, error)
}

// registration is a similarity transform [a -b tx; b a ty] mapping
// previous-frame coordinates into the current frame.
type registration struct {
	A  float32
	B  float32
	TX float32
	TY float32
}

func identityRegistration() registration {
	return registration{A: 1}
}

// apply maps a point through the transform.
func (r registration) apply(p mot.Point) mot.Point {
	return mot.Point{
		X: r.A*p.X - r.B*p.Y + r.TX,
		Y: r.B*p.X + r.A*p.Y + r.TY,
	}
}

// scale returns the isotropic scale factor of the transform.
func (r registration) scale() float32 {
	return float32(math.Hypot(float64(r.A), float64(r.B)))
}

// warp maps a box through the transform: centre is transformed, width
// and height scale isotropically.
func (r registration) warp(box mot.Rect) mot.Rect {
	c := r.apply(box.Center())
	s := r.scale()
	w := box.W * s
	h := box.H * s
	return mot.Rect{X: c.X - w/2, Y: c.Y - h/2, W: w, H: h}
}

// fitSimilarity solves the least-squares similarity transform for a set
// of correspondences. Each pair contributes two rows:
//
//	[x −y 1 0] [a b tx ty]ᵀ = x'
//	[y  x 0 1]              = y'
//
// Needs at least two pairs; an exactly singular system falls back to
// identity so a degenerate frame never poisons prediction.
func fitSimilarity(corrs []Correspondence) (registration, error) {
	if len(corrs) < 2 {
		return identityRegistration(), fmt.Errorf("need >= 2 correspondences, got %d", len(corrs))
	}

	a := mat.NewDense(2*len(corrs), 4, nil)
	b := mat.NewVecDense(2*len(corrs), nil)
	for i, c := range corrs {
		x := float64(c.From.X)
		y := float64(c.From.Y)
		a.SetRow(2*i, []float64{x, -y, 1, 0})
		a.SetRow(2*i+1, []float64{y, x, 0, 1})
		b.SetVec(2*i, float64(c.To.X))
		b.SetVec(2*i+1, float64(c.To.Y))
	}

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return identityRegistration(), fmt.Errorf("fit similarity: %w", err)
	}
	return registration{
		A:  float32(x.AtVec(0)),
		B:  float32(x.AtVec(1)),
		TX: float32(x.AtVec(2)),
		TY: float32(x.AtVec(3)),
	}, nil
}

// flowState holds the per-stream registration pipeline: the previous
// frame, the fitted transform and the keypoints behind it.
type flowState struct {
	estimator FlowEstimator
	prev      *mot.Frame

	reg       registration
	prevKeys  []mot.Point
	keys      []mot.Point
	hasMotion bool
}

func newFlowState(estimator FlowEstimator) *flowState {
	return &flowState{estimator: estimator, reg: identityRegistration()}
}

func (f *flowState) reset() {
	f.prev = nil
	f.reg = identityRegistration()
	f.prevKeys = nil
	f.keys = nil
	f.hasMotion = false
}

// compute registers the current frame against the previous one. The
// first call after a reset has nothing to register and leaves the
// identity transform in place.
//
// The previous frame is kept as a pixel copy, not the caller's pointer:
// the engine renders boxes and labels into the frame buffer after the
// cycle, and registering against an annotated image biases the fit.
func (f *flowState) compute(cur *mot.Frame) error {
	if cur == nil {
		return errors.New("flow: nil frame")
	}
	defer func() { f.prev = snapshotFrame(cur) }()

	if f.prev == nil {
		f.reg = identityRegistration()
		f.hasMotion = false
		return nil
	}

	corrs, err := f.estimator.Estimate(f.prev, cur)
	if err != nil {
		return fmt.Errorf("flow estimate: %w", err)
	}

	f.prevKeys = f.prevKeys[:0]
	f.keys = f.keys[:0]
	for _, c := range corrs {
		f.prevKeys = append(f.prevKeys, c.From)
		f.keys = append(f.keys, c.To)
	}

	reg, err := fitSimilarity(corrs)
	if err != nil {
		// Too few or degenerate correspondences: assume a static camera
		// rather than failing the whole cycle.
		f.reg = identityRegistration()
		f.hasMotion = false
		return nil
	}
	f.reg = reg
	f.hasMotion = true
	return nil
}

// snapshotFrame deep-copies the frame's pixel data.
func snapshotFrame(f *mot.Frame) *mot.Frame {
	if f.Image == nil {
		return &mot.Frame{Time: f.Time}
	}
	img := *f.Image
	img.Pix = append([]uint8(nil), f.Image.Pix...)
	return &mot.Frame{Image: &img, Time: f.Time}
}
