// Package mot provides the frame-cadence engine for real-time
// multi-object video tracking.
//
// The engine amortises expensive model inference (detection, appearance
// feature extraction) across frames: a full detect cycle runs once every
// cadence period, with cheap motion tracking on the frames in between.
// Within a detect cycle the two inference calls are issued asynchronously
// and their latency is hidden behind flow registration and motion
// prediction, which run locally while the calls are in flight.
//
// This package owns scheduling only. Detection, feature extraction and
// the tracking math live behind the capability interfaces in stages.go;
// Session is the composition surface that drives N independent streams
// through the cadence.
package mot
