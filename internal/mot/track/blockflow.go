package track

import (
	"errors"
	"image"

	"github.com/mosaic-vision/cadence/internal/mot"
)

// BlockFlow is the default flow estimator: coarse block matching on a
// sparse grid of textured patches. It is deliberately simple — the
// estimator contract exists so a real optical-flow implementation can be
// swapped in — but it is good enough to recover translation and mild
// zoom on synthetic and static-camera footage.
type BlockFlow struct {
	// GridStep is the spacing between candidate keypoints in pixels.
	GridStep int
	// PatchRadius is half the matching window size.
	PatchRadius int
	// SearchRadius bounds the displacement search per keypoint.
	SearchRadius int
	// MinTexture rejects flat patches whose gradient energy is below
	// this threshold; matching those produces junk correspondences.
	MinTexture int
}

// NewBlockFlow returns a BlockFlow with production defaults.
func NewBlockFlow() *BlockFlow {
	return &BlockFlow{
		GridStep:     32,
		PatchRadius:  4,
		SearchRadius: 7,
		MinTexture:   200,
	}
}

// Estimate matches grid keypoints from prev into cur.
func (bf *BlockFlow) Estimate(prev, cur *mot.Frame) ([]Correspondence, error) {
	if prev == nil || cur == nil || prev.Image == nil || cur.Image == nil {
		return nil, errors.New("blockflow: missing frame image")
	}
	if prev.Image.Bounds() != cur.Image.Bounds() {
		return nil, errors.New("blockflow: frame size changed between frames")
	}

	bounds := prev.Image.Bounds()
	margin := bf.PatchRadius + bf.SearchRadius
	var corrs []Correspondence

	for y := bounds.Min.Y + margin; y < bounds.Max.Y-margin; y += bf.GridStep {
		for x := bounds.Min.X + margin; x < bounds.Max.X-margin; x += bf.GridStep {
			if bf.texture(prev.Image, x, y) < bf.MinTexture {
				continue
			}
			dx, dy := bf.match(prev.Image, cur.Image, x, y)
			corrs = append(corrs, Correspondence{
				From: mot.Point{X: float32(x), Y: float32(y)},
				To:   mot.Point{X: float32(x + dx), Y: float32(y + dy)},
			})
		}
	}
	return corrs, nil
}

// texture returns the horizontal+vertical gradient energy of the patch
// centred at (x, y).
func (bf *BlockFlow) texture(img *image.RGBA, x, y int) int {
	var energy int
	for py := y - bf.PatchRadius; py <= y+bf.PatchRadius; py++ {
		for px := x - bf.PatchRadius; px <= x+bf.PatchRadius; px++ {
			c := gray(img, px, py)
			energy += abs(c-gray(img, px+1, py)) + abs(c-gray(img, px, py+1))
		}
	}
	return energy
}

// match finds the displacement within the search radius minimising the
// sum of absolute differences between patches.
func (bf *BlockFlow) match(prev, cur *image.RGBA, x, y int) (int, int) {
	bestDX, bestDY := 0, 0
	bestSAD := int(^uint(0) >> 1)
	for dy := -bf.SearchRadius; dy <= bf.SearchRadius; dy++ {
		for dx := -bf.SearchRadius; dx <= bf.SearchRadius; dx++ {
			sad := 0
			for py := -bf.PatchRadius; py <= bf.PatchRadius && sad < bestSAD; py++ {
				for px := -bf.PatchRadius; px <= bf.PatchRadius; px++ {
					sad += abs(gray(prev, x+px, y+py) - gray(cur, x+px+dx, y+py+dy))
				}
			}
			if sad < bestSAD {
				bestSAD = sad
				bestDX, bestDY = dx, dy
			}
		}
	}
	return bestDX, bestDY
}

// gray approximates luminance with integer weights (2R + 5G + B) / 8.
func gray(img *image.RGBA, x, y int) int {
	i := img.PixOffset(x, y)
	r := int(img.Pix[i])
	g := int(img.Pix[i+1])
	b := int(img.Pix[i+2])
	return (2*r + 5*g + b) / 8
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
