package track

// 4-state constant-velocity Kalman filter over [cx, cy, vx, vy] with a
// position-only measurement. The 4x4 covariance is kept row-major and the
// matrix products are unrolled; at this size that beats a general solver
// and keeps the filter allocation-free.

const (
	// minDeterminant guards covariance inversion.
	minDeterminant = 1e-6
	// singularDistance is returned when the innovation covariance is
	// singular, so gating rejects the pairing.
	singularDistance = 1e9
)

// initialCovariance is the covariance for a freshly created track: high
// position uncertainty, lower velocity uncertainty.
func initialCovariance() [16]float32 {
	return [16]float32{
		10, 0, 0, 0,
		0, 10, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// kalmanPredict advances the track state by dt seconds.
func kalmanPredict(t *Track, dt, qPos, qVel float32) {
	// x' = F x with F the constant-velocity transition.
	t.X += t.VX * dt
	t.Y += t.VY * dt

	// P' = F P Fᵀ + Q, computed in two passes.
	P := t.P
	var FP [16]float32
	for j := 0; j < 4; j++ {
		FP[0*4+j] = P[0*4+j] + dt*P[2*4+j]
		FP[1*4+j] = P[1*4+j] + dt*P[3*4+j]
		FP[2*4+j] = P[2*4+j]
		FP[3*4+j] = P[3*4+j]
	}
	for i := 0; i < 4; i++ {
		t.P[i*4+0] = FP[i*4+0] + dt*FP[i*4+2]
		t.P[i*4+1] = FP[i*4+1] + dt*FP[i*4+3]
		t.P[i*4+2] = FP[i*4+2]
		t.P[i*4+3] = FP[i*4+3]
	}

	t.P[0*4+0] += qPos
	t.P[1*4+1] += qPos
	t.P[2*4+2] += qVel
	t.P[3*4+3] += qVel
}

// kalmanUpdate folds a position measurement (zx, zy) into the track with
// measurement noise r. Returns false when the innovation covariance is
// singular and the update is skipped.
func kalmanUpdate(t *Track, zx, zy, r float32) bool {
	yX := zx - t.X
	yY := zy - t.Y

	// S = H P Hᵀ + R; H extracts position, so S is the top-left 2x2.
	S00 := t.P[0*4+0] + r
	S01 := t.P[0*4+1]
	S10 := t.P[1*4+0]
	S11 := t.P[1*4+1] + r

	det := S00*S11 - S01*S10
	if det < minDeterminant {
		return false
	}
	invS00 := S11 / det
	invS01 := -S01 / det
	invS10 := -S10 / det
	invS11 := S00 / det

	// K = P Hᵀ S⁻¹, a 4x2.
	var K [8]float32
	for i := 0; i < 4; i++ {
		K[i*2+0] = t.P[i*4+0]*invS00 + t.P[i*4+1]*invS10
		K[i*2+1] = t.P[i*4+0]*invS01 + t.P[i*4+1]*invS11
	}

	t.X += K[0*2+0]*yX + K[0*2+1]*yY
	t.Y += K[1*2+0]*yX + K[1*2+1]*yY
	t.VX += K[2*2+0]*yX + K[2*2+1]*yY
	t.VY += K[3*2+0]*yX + K[3*2+1]*yY

	// P' = (I − K H) P. K H only populates the first two columns.
	var IKH [16]float32
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var identity float32
			if i == j {
				identity = 1
			}
			var kh float32
			switch j {
			case 0:
				kh = K[i*2+0]
			case 1:
				kh = K[i*2+1]
			}
			IKH[i*4+j] = identity - kh
		}
	}
	var newP [16]float32
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += IKH[i*4+k] * t.P[k*4+j]
			}
			newP[i*4+j] = sum
		}
	}
	t.P = newP
	return true
}

// mahalanobisSquared computes the squared gating distance between the
// track's predicted position and a measurement.
func mahalanobisSquared(t *Track, zx, zy, r float32) float32 {
	dx := zx - t.X
	dy := zy - t.Y

	S00 := t.P[0*4+0] + r
	S01 := t.P[0*4+1]
	S10 := t.P[1*4+0]
	S11 := t.P[1*4+1] + r

	det := S00*S11 - S01*S10
	if det < minDeterminant {
		return singularDistance
	}
	invS00 := S11 / det
	invS01 := -S01 / det
	invS10 := -S10 / det
	invS11 := S00 / det

	return dx*dx*invS00 + dx*dy*(invS01+invS10) + dy*dy*invS11
}
