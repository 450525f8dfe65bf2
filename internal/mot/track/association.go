package track

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/mosaic-vision/cadence/internal/mot"
)

// Detection-to-track association. The cost matrix fuses motion and
// appearance: squared Mahalanobis distance from the track's predicted
// position, normalised by the gate, blended with cosine distance between
// the detection embedding and the track's smoothed embedding. Entries
// failing either gate are forbidden so the solver never selects them.

// forbiddenCost stands in for infinity in the cost matrix.
const forbiddenCost = 1e18

// buildCostMatrix computes the fused det × track cost matrix. embs may
// be nil (cold start never calls this; flow-only pseudo-updates do not
// use it either), in which case cost is motion-only.
func buildCostMatrix(dets mot.DetectionSet, embs mot.EmbeddingSet, tracks []*Track, cfg Config) [][]float32 {
	cost := make([][]float32, len(dets))
	for i := range dets {
		cost[i] = make([]float32, len(tracks))
		c := dets[i].Box.Center()
		for j, t := range tracks {
			motion := mahalanobisSquared(t, c.X, c.Y, cfg.MeasurementNoise)
			if motion > cfg.GatingDistanceSquared {
				cost[i][j] = forbiddenCost
				continue
			}
			fused := (1 - cfg.AppearanceWeight) * (motion / cfg.GatingDistanceSquared)
			if cfg.AppearanceWeight > 0 && embs != nil && len(embs[i]) > 0 && len(t.embedding) > 0 {
				appearance := cosineDistance(embs[i], t.embedding)
				if appearance > cfg.MaxAppearanceDist {
					cost[i][j] = forbiddenCost
					continue
				}
				fused += cfg.AppearanceWeight * appearance
			}
			cost[i][j] = fused
		}
	}
	return cost
}

// cosineDistance returns 1 − cosine similarity, clamped to [0, 2].
func cosineDistance(a mot.Embedding, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 1
	}
	af := make([]float64, n)
	bf := make([]float64, n)
	for i := 0; i < n; i++ {
		af[i] = float64(a[i])
		bf[i] = float64(b[i])
	}
	dot := floats.Dot(af, bf)
	na := math.Sqrt(floats.Dot(af, af))
	nb := math.Sqrt(floats.Dot(bf, bf))
	if na == 0 || nb == 0 {
		return 1
	}
	d := 1 - dot/(na*nb)
	if d < 0 {
		return 0
	}
	return float32(d)
}

// assign solves the rectangular assignment problem for an n×m cost
// matrix with the Kuhn–Munkres algorithm (Jonker–Volgenant potentials
// variant, O(n³)). Returns assignment[i] = column matched to row i, or
// -1 when row i is unassigned or its best column is forbidden.
func assign(cost [][]float32) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}
	m := len(cost[0])
	if m == 0 {
		result := make([]int, n)
		for i := range result {
			result[i] = -1
		}
		return result
	}

	// Pad to square so excess rows or columns stay unmatched.
	dim := n
	if m > dim {
		dim = m
	}
	c := make([][]float64, dim)
	for i := 0; i < dim; i++ {
		c[i] = make([]float64, dim)
		for j := 0; j < dim; j++ {
			if i < n && j < m {
				c[i][j] = float64(cost[i][j])
			} else {
				c[i][j] = forbiddenCost
			}
		}
	}

	const inf = math.MaxFloat64 / 2

	// 1-indexed arrays keep the augmenting-path arithmetic clean.
	u := make([]float64, dim+1)
	v := make([]float64, dim+1)
	p := make([]int, dim+1)
	way := make([]int, dim+1)
	minv := make([]float64, dim+1)
	used := make([]bool, dim+1)

	for i := 1; i <= dim; i++ {
		p[0] = i
		j0 := 0
		for j := 1; j <= dim; j++ {
			minv[j] = inf
			used[j] = false
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1
			for j := 1; j <= dim; j++ {
				if used[j] {
					continue
				}
				cur := c[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			if j1 < 0 {
				break
			}
			for j := 0; j <= dim; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			p[j0] = p[way[j0]]
			j0 = way[j0]
		}
	}

	rowAssign := make([]int, dim)
	for i := range rowAssign {
		rowAssign[i] = -1
	}
	for j := 1; j <= dim; j++ {
		if p[j] > 0 && p[j] <= dim {
			rowAssign[p[j]-1] = j - 1
		}
	}

	result := make([]int, n)
	for i := 0; i < n; i++ {
		col := rowAssign[i]
		if col < 0 || col >= m || cost[i][col] >= forbiddenCost {
			result[i] = -1
		} else {
			result[i] = col
		}
	}
	return result
}
