package track

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mosaic-vision/cadence/internal/mot"
)

// State is the lifecycle state of a track.
type State string

const (
	Tentative State = "tentative" // New track, needs confirmation
	Confirmed State = "confirmed" // Stable track with sufficient history
	Deleted   State = "deleted"   // Track marked for removal
)

// Config holds tracker tuning parameters.
type Config struct {
	MaxTracks             int     // Cap on concurrent tracks
	MaxMisses             int     // Consecutive missed detect cycles before deletion
	HitsToConfirm         int     // Consecutive hits needed for confirmation
	GatingDistanceSquared float32 // Squared Mahalanobis gate (pixels²-normalised)
	ProcessNoisePos       float32 // Position process noise (σ²)
	ProcessNoiseVel       float32 // Velocity process noise (σ²)
	MeasurementNoise      float32 // Detection measurement noise (σ²)
	FlowMeasurementNoise  float32 // Inflated noise for flow pseudo-measurements
	AppearanceWeight      float32 // Appearance share of the fused cost [0, 1]
	MaxAppearanceDist     float32 // Cosine-distance gate
	EmbeddingAlpha        float32 // EMA factor for track embeddings
	SizeAlpha             float32 // EMA factor for box width/height
	DeletedGraceFrames    int     // Frames to keep deleted tracks before removal
}

// DefaultConfig returns production-default tracker parameters.
func DefaultConfig() Config {
	return Config{
		MaxTracks:             100,
		MaxMisses:             3,
		HitsToConfirm:         3,
		GatingDistanceSquared: 50.0,
		ProcessNoisePos:       1.0,
		ProcessNoiseVel:       4.0,
		MeasurementNoise:      2.0,
		FlowMeasurementNoise:  10.0,
		AppearanceWeight:      0.5,
		MaxAppearanceDist:     0.35,
		EmbeddingAlpha:        0.9,
		SizeAlpha:             0.7,
		DeletedGraceFrames:    30,
	}
}

// Track is a single tracked object.
type Track struct {
	ID    string
	Class int
	State State

	Hits   int // Consecutive successful associations
	Misses int // Consecutive missed detect cycles

	StartFrame int
	LastFrame  int

	// Kalman state: box centre and velocity in pixels / pixels-per-second.
	X  float32
	Y  float32
	VX float32
	VY float32

	// Box size, EMA-smoothed from matched detections.
	W float32
	H float32

	// Kalman covariance (4x4, row-major).
	P [16]float32

	// EMA-smoothed appearance embedding.
	embedding []float32
}

// Box returns the track's current box.
func (t *Track) Box() mot.Rect {
	return mot.Rect{X: t.X - t.W/2, Y: t.Y - t.H/2, W: t.W, H: t.H}
}

// Active reports whether the track was matched on its most recent
// detect cycle.
func (t *Track) Active() bool {
	return t.Misses == 0
}

// MultiTracker implements the cadence engine's Tracker capability for
// one stream. It is exclusively owned by that stream and is not safe for
// concurrent use; the engine guarantees single-cycle access.
type MultiTracker struct {
	cfg    Config
	dt     float32
	flow   *flowState
	tracks map[string]*Track

	// lastFrame is the most recent frame index seen by Update, used for
	// deleted-track grace accounting.
	lastFrame int
}

// New creates a tracker with the given configuration and flow estimator.
// A nil estimator gets the default block-matching one.
func New(cfg Config, estimator FlowEstimator) *MultiTracker {
	if estimator == nil {
		estimator = NewBlockFlow()
	}
	return &MultiTracker{
		cfg:    cfg,
		dt:     0.1,
		flow:   newFlowState(estimator),
		tracks: make(map[string]*Track),
	}
}

// Reset clears all tracks and seeds the motion model's time step from
// the stream's inter-frame interval.
func (mt *MultiTracker) Reset(frameInterval time.Duration) {
	if frameInterval > 0 {
		mt.dt = float32(frameInterval.Seconds())
	}
	mt.tracks = make(map[string]*Track)
	mt.flow.reset()
	mt.lastFrame = 0
}

// Init seeds tracks from the cold-start detection pass. Cold-start
// tracks are confirmed immediately: frame 0 has no history to gate on
// and an empty tracker should become visible at once.
func (mt *MultiTracker) Init(frame *mot.Frame, dets mot.DetectionSet) {
	mt.tracks = make(map[string]*Track)
	for _, d := range dets {
		t := mt.newTrack(d, nil, 0)
		t.State = Confirmed
	}
	// Prime the flow registration so the first detect cycle has a
	// previous frame to register against.
	_ = mt.flow.compute(frame)
}

// ComputeFlow registers tracked boxes against the frame. It mutates only
// flow state, never tracks, so an abandoned cycle leaves track state
// exactly as it was.
func (mt *MultiTracker) ComputeFlow(frame *mot.Frame) error {
	return mt.flow.compute(frame)
}

// Predict applies camera-motion compensation from the latest flow
// registration, then the Kalman prediction step, to every live track.
func (mt *MultiTracker) Predict() {
	for _, t := range mt.tracks {
		if t.State == Deleted {
			continue
		}
		mt.propagate(t)
	}
}

// propagate runs compensation + prediction for one track.
func (mt *MultiTracker) propagate(t *Track) {
	if mt.flow.hasMotion {
		reg := mt.flow.reg
		c := reg.apply(mot.Point{X: t.X, Y: t.Y})
		s := reg.scale()
		t.X = c.X
		t.Y = c.Y
		// Rotation/scale applies to velocity; translation does not.
		vx := reg.A*t.VX - reg.B*t.VY
		vy := reg.B*t.VX + reg.A*t.VY
		t.VX = vx
		t.VY = vy
		t.W *= s
		t.H *= s
	}
	kalmanPredict(t, mt.dt, mt.cfg.ProcessNoisePos, mt.cfg.ProcessNoiseVel)
}

// Update reconciles detections and their aligned embeddings against
// predicted track state. Called exactly once per detect cycle.
func (mt *MultiTracker) Update(frameIndex int, dets mot.DetectionSet, embs mot.EmbeddingSet) {
	mt.lastFrame = frameIndex

	live := mt.liveTracks()
	cost := buildCostMatrix(dets, embs, live, mt.cfg)
	assignment := assign(cost)

	matched := make(map[string]bool, len(live))
	for di, ti := range assignment {
		if ti < 0 {
			continue
		}
		t := live[ti]
		var emb mot.Embedding
		if di < len(embs) {
			emb = embs[di]
		}
		mt.updateTrack(t, dets[di], emb, frameIndex)
		matched[t.ID] = true
	}

	for _, t := range live {
		if matched[t.ID] {
			continue
		}
		t.Misses++
		t.Hits = 0
		if t.Misses >= mt.cfg.MaxMisses {
			t.State = Deleted
			t.LastFrame = frameIndex
		}
	}

	for di, ti := range assignment {
		if ti >= 0 {
			continue
		}
		if len(mt.tracks) >= mt.cfg.MaxTracks {
			break
		}
		var emb mot.Embedding
		if di < len(embs) {
			emb = embs[di]
		}
		mt.newTrack(dets[di], emb, frameIndex)
	}

	mt.cleanupDeleted(frameIndex)
}

// Step runs the motion-only path for frames between detect cycles: flow
// registration, compensation + prediction, then a pseudo-measurement
// update from the flow-propagated box with inflated noise. Misses are
// not advanced here — only detect cycles carry evidence of absence.
func (mt *MultiTracker) Step(frame *mot.Frame) error {
	if err := mt.flow.compute(frame); err != nil {
		return err
	}
	for _, t := range mt.tracks {
		if t.State == Deleted {
			continue
		}
		prior := t.Box()
		mt.propagate(t)
		if mt.flow.hasMotion {
			c := mt.flow.reg.warp(prior).Center()
			kalmanUpdate(t, c.X, c.Y, mt.cfg.FlowMeasurementNoise)
		}
	}
	return nil
}

// VisibleTracks returns snapshots of confirmed, active tracks sorted by
// track ID for deterministic output. Querying never mutates state.
func (mt *MultiTracker) VisibleTracks() []mot.TrackSnapshot {
	snaps := make([]mot.TrackSnapshot, 0, len(mt.tracks))
	for _, t := range mt.tracks {
		if t.State != Confirmed || !t.Active() {
			continue
		}
		snaps = append(snaps, mot.TrackSnapshot{
			TrackID: t.ID,
			Box:     t.Box(),
			Class:   t.Class,
			Age:     t.LastFrame - t.StartFrame,
			Hits:    t.Hits,
		})
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].TrackID < snaps[j].TrackID })
	return snaps
}

// FlowArtifacts returns the latest registration intermediates for
// rendering: flow-warped track boxes plus the background keypoints.
func (mt *MultiTracker) FlowArtifacts() mot.FlowArtifacts {
	boxes := make([]mot.Rect, 0, len(mt.tracks))
	for _, t := range mt.tracks {
		if t.State == Deleted {
			continue
		}
		boxes = append(boxes, mt.flow.reg.warp(t.Box()))
	}
	return mot.FlowArtifacts{
		TrackBoxes:    boxes,
		PrevKeypoints: append([]mot.Point(nil), mt.flow.prevKeys...),
		Keypoints:     append([]mot.Point(nil), mt.flow.keys...),
	}
}

// TrackCount returns counts of tracks by state.
func (mt *MultiTracker) TrackCount() (total, tentative, confirmed, deleted int) {
	for _, t := range mt.tracks {
		total++
		switch t.State {
		case Tentative:
			tentative++
		case Confirmed:
			confirmed++
		case Deleted:
			deleted++
		}
	}
	return
}

// AllTracks returns every track including deleted ones, sorted by ID.
// Useful for persistence and post-run analysis.
func (mt *MultiTracker) AllTracks() []*Track {
	all := make([]*Track, 0, len(mt.tracks))
	for _, t := range mt.tracks {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

func (mt *MultiTracker) liveTracks() []*Track {
	live := make([]*Track, 0, len(mt.tracks))
	for _, t := range mt.tracks {
		if t.State != Deleted {
			live = append(live, t)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].ID < live[j].ID })
	return live
}

func (mt *MultiTracker) newTrack(d mot.Detection, emb mot.Embedding, frameIndex int) *Track {
	c := d.Box.Center()
	t := &Track{
		ID:         uuid.NewString(),
		Class:      d.Class,
		State:      Tentative,
		Hits:       1,
		StartFrame: frameIndex,
		LastFrame:  frameIndex,
		X:          c.X,
		Y:          c.Y,
		W:          d.Box.W,
		H:          d.Box.H,
		P:          initialCovariance(),
	}
	if len(emb) > 0 {
		t.embedding = append([]float32(nil), emb...)
	}
	mt.tracks[t.ID] = t
	return t
}

func (mt *MultiTracker) updateTrack(t *Track, d mot.Detection, emb mot.Embedding, frameIndex int) {
	c := d.Box.Center()
	kalmanUpdate(t, c.X, c.Y, mt.cfg.MeasurementNoise)

	a := mt.cfg.SizeAlpha
	t.W = a*t.W + (1-a)*d.Box.W
	t.H = a*t.H + (1-a)*d.Box.H
	t.Class = d.Class

	if len(emb) > 0 {
		if len(t.embedding) != len(emb) {
			t.embedding = append([]float32(nil), emb...)
		} else {
			ea := mt.cfg.EmbeddingAlpha
			for i := range t.embedding {
				t.embedding[i] = ea*t.embedding[i] + (1-ea)*emb[i]
			}
		}
	}

	t.Hits++
	t.Misses = 0
	t.LastFrame = frameIndex
	if t.State == Tentative && t.Hits >= mt.cfg.HitsToConfirm {
		t.State = Confirmed
	}
}

// cleanupDeleted removes tracks deleted longer than the grace window.
func (mt *MultiTracker) cleanupDeleted(frameIndex int) {
	for id, t := range mt.tracks {
		if t.State == Deleted && frameIndex-t.LastFrame > mt.cfg.DeletedGraceFrames {
			delete(mt.tracks, id)
		}
	}
}
