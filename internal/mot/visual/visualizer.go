// Package visual renders tracker state onto frames for debugging and
// replay review.
package visual

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mosaic-vision/cadence/internal/mot"
)

// palette cycles box colours by track identity so adjacent tracks stay
// distinguishable.
var palette = []color.RGBA{
	{R: 66, G: 133, B: 244, A: 255},
	{R: 219, G: 68, B: 55, A: 255},
	{R: 244, G: 180, B: 0, A: 255},
	{R: 15, G: 157, B: 88, A: 255},
	{R: 171, G: 71, B: 188, A: 255},
	{R: 0, G: 172, B: 193, A: 255},
}

var (
	detectionColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	keypointColor  = color.RGBA{R: 120, G: 120, B: 120, A: 255}
)

// Options configures an ImageVisualizer.
type Options struct {
	// DrawDetections outlines raw detector boxes in addition to tracks.
	DrawDetections bool
	// DrawFlow plots the background keypoints used for registration.
	DrawFlow bool
	// DrawLabels writes the short track ID above each track box.
	DrawLabels bool
}

// DefaultOptions enables track labels and detection outlines.
func DefaultOptions() Options {
	return Options{DrawDetections: true, DrawLabels: true}
}

// ImageVisualizer draws tracks, detections and flow keypoints directly
// into the frame's RGBA buffer. It implements the cadence engine's
// Visualizer capability and is exclusively owned by one stream.
type ImageVisualizer struct {
	opts Options
	face font.Face
}

// New creates a visualizer.
func New(opts Options) *ImageVisualizer {
	return &ImageVisualizer{opts: opts, face: basicfont.Face7x13}
}

// Render draws the stream's current state onto the frame.
func (v *ImageVisualizer) Render(frame *mot.Frame, tracks []mot.TrackSnapshot, dets mot.DetectionSet, flow mot.FlowArtifacts) {
	if frame == nil || frame.Image == nil {
		return
	}
	img := frame.Image

	if v.opts.DrawDetections {
		for _, d := range dets {
			drawRect(img, d.Box, detectionColor, 1)
		}
	}
	if v.opts.DrawFlow {
		for _, p := range flow.Keypoints {
			drawDot(img, p, keypointColor)
		}
	}
	for i, t := range tracks {
		c := palette[i%len(palette)]
		drawRect(img, t.Box, c, 2)
		if v.opts.DrawLabels {
			v.drawLabel(img, t.Box, shortID(t.TrackID), c)
		}
	}
	v.drawLabel(img, mot.Rect{X: 8, Y: 24}, fmt.Sprintf("visible: %d", len(tracks)), detectionColor)
}

// drawLabel writes text just above the box's top-left corner.
func (v *ImageVisualizer) drawLabel(img *image.RGBA, box mot.Rect, text string, c color.RGBA) {
	x := int(box.X)
	y := int(box.Y) - 3
	if y < 13 {
		y = int(box.Y+box.H) + 13
	}
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: v.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// drawRect outlines a box with the given stroke thickness, clipped to
// the image bounds.
func drawRect(img *image.RGBA, box mot.Rect, c color.RGBA, thickness int) {
	x0 := int(box.X)
	y0 := int(box.Y)
	x1 := int(box.X + box.W)
	y1 := int(box.Y + box.H)
	for t := 0; t < thickness; t++ {
		drawHLine(img, x0, x1, y0+t, c)
		drawHLine(img, x0, x1, y1-t, c)
		drawVLine(img, x0+t, y0, y1, c)
		drawVLine(img, x1-t, y0, y1, c)
	}
}

func drawDot(img *image.RGBA, p mot.Point, c color.RGBA) {
	x := int(p.X)
	y := int(p.Y)
	for dy := -1; dy <= 1; dy++ {
		drawHLine(img, x-1, x+1, y+dy, c)
	}
}

func drawHLine(img *image.RGBA, x0, x1, y int, c color.RGBA) {
	b := img.Bounds()
	if y < b.Min.Y || y >= b.Max.Y {
		return
	}
	for x := max(x0, b.Min.X); x <= min(x1, b.Max.X-1); x++ {
		img.SetRGBA(x, y, c)
	}
}

func drawVLine(img *image.RGBA, x, y0, y1 int, c color.RGBA) {
	b := img.Bounds()
	if x < b.Min.X || x >= b.Max.X {
		return
	}
	for y := max(y0, b.Min.Y); y <= min(y1, b.Max.Y-1); y++ {
		img.SetRGBA(x, y, c)
	}
}
