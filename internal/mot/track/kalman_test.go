package track

import (
	"math"
	"testing"
)

func newKalmanTrack(x, y, vx, vy float32) *Track {
	return &Track{X: x, Y: y, VX: vx, VY: vy, P: initialCovariance()}
}

func TestPredictAdvancesByVelocity(t *testing.T) {
	tr := newKalmanTrack(100, 50, 10, -4)
	kalmanPredict(tr, 0.5, 1, 4)

	if tr.X != 105 || tr.Y != 48 {
		t.Errorf("position = (%v, %v), want (105, 48)", tr.X, tr.Y)
	}
	if tr.VX != 10 || tr.VY != -4 {
		t.Errorf("velocity changed during predict: (%v, %v)", tr.VX, tr.VY)
	}
}

func TestPredictGrowsUncertainty(t *testing.T) {
	tr := newKalmanTrack(0, 0, 0, 0)
	before := tr.P[0]
	kalmanPredict(tr, 0.1, 1, 4)
	if tr.P[0] <= before {
		t.Errorf("position variance %v did not grow from %v", tr.P[0], before)
	}
	// Covariance must stay symmetric.
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			d := float64(tr.P[i*4+j] - tr.P[j*4+i])
			if math.Abs(d) > 1e-4 {
				t.Errorf("P[%d][%d] != P[%d][%d]: diff %v", i, j, j, i, d)
			}
		}
	}
}

func TestUpdatePullsTowardMeasurement(t *testing.T) {
	tr := newKalmanTrack(0, 0, 0, 0)
	if !kalmanUpdate(tr, 10, -6, 2) {
		t.Fatal("update rejected on well-conditioned covariance")
	}
	if tr.X <= 0 || tr.X >= 10 {
		t.Errorf("X = %v, want strictly between prior 0 and measurement 10", tr.X)
	}
	if tr.Y >= 0 || tr.Y <= -6 {
		t.Errorf("Y = %v, want strictly between prior 0 and measurement -6", tr.Y)
	}
	if tr.P[0] >= 10 {
		t.Errorf("position variance %v not reduced by update", tr.P[0])
	}
}

func TestRepeatedUpdatesConverge(t *testing.T) {
	tr := newKalmanTrack(0, 0, 0, 0)
	for i := 0; i < 50; i++ {
		kalmanPredict(tr, 0.1, 0.1, 0.1)
		kalmanUpdate(tr, 40, 30, 2)
	}
	if math.Abs(float64(tr.X-40)) > 1 || math.Abs(float64(tr.Y-30)) > 1 {
		t.Errorf("state (%v, %v) did not converge to measurement (40, 30)", tr.X, tr.Y)
	}
}

func TestUpdateRejectsSingularCovariance(t *testing.T) {
	tr := newKalmanTrack(0, 0, 0, 0)
	tr.P = [16]float32{} // degenerate
	if kalmanUpdate(tr, 5, 5, 0) {
		t.Error("update accepted a singular innovation covariance")
	}
	if tr.X != 0 || tr.Y != 0 {
		t.Errorf("state mutated by rejected update: (%v, %v)", tr.X, tr.Y)
	}
}

func TestMahalanobisGrowsWithDistance(t *testing.T) {
	tr := newKalmanTrack(0, 0, 0, 0)
	near := mahalanobisSquared(tr, 1, 0, 2)
	far := mahalanobisSquared(tr, 20, 0, 2)
	if near <= 0 {
		t.Errorf("near distance %v, want > 0", near)
	}
	if far <= near {
		t.Errorf("far distance %v not greater than near %v", far, near)
	}
}

func TestMahalanobisSingular(t *testing.T) {
	tr := newKalmanTrack(0, 0, 0, 0)
	tr.P = [16]float32{}
	if got := mahalanobisSquared(tr, 1, 1, 0); got != singularDistance {
		t.Errorf("singular distance = %v, want %v", got, float32(singularDistance))
	}
}
