// Package track implements the per-stream multi-object tracker consumed
// by the cadence engine.
//
// Each track runs a 4-state constant-velocity Kalman filter over its box
// centre in image coordinates. Camera motion between frames is estimated
// from background keypoint correspondences and compensated before
// prediction, so object velocity stays meaningful under a moving camera.
// Detections are associated to tracks with a gated cost that fuses
// Mahalanobis motion distance and appearance cosine distance, solved by
// Kuhn–Munkres assignment.
package track
