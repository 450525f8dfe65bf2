// Command cadence runs the multi-stream tracking session against a
// synthetic scene. It exists to exercise and benchmark the cadence
// engine end-to-end: stage latencies are simulated, per-stage timings
// are reported, and tracks can be persisted to sqlite for review.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/mosaic-vision/cadence/internal/config"
	"github.com/mosaic-vision/cadence/internal/mot"
	"github.com/mosaic-vision/cadence/internal/mot/storage/sqlite"
	"github.com/mosaic-vision/cadence/internal/mot/synth"
	"github.com/mosaic-vision/cadence/internal/mot/track"
	"github.com/mosaic-vision/cadence/internal/mot/visual"
)

type options struct {
	frames         int
	detectLatency  time.Duration
	extractLatency time.Duration
	dbPath         string
	timingsOut     string
	drawDir        string
}

func main() {
	var (
		configPath     = flag.String("config", "", "path to session config JSON (optional)")
		frames         = flag.Int("frames", 120, "number of frames to run per stream")
		streams        = flag.Int("streams", 0, "stream count override (0 = from config)")
		period         = flag.Int("period", 0, "cadence period override (0 = from config)")
		detectLatency  = flag.Duration("detect-latency", 20*time.Millisecond, "simulated detector latency")
		extractLatency = flag.Duration("extract-latency", 10*time.Millisecond, "simulated extractor latency")
		dbPath         = flag.String("db", "", "sqlite path to persist tracks (optional)")
		timingsOut     = flag.String("timings", "", "path to write timing report JSON (optional)")
		drawDir        = flag.String("draw-dir", "", "directory to write rendered PNG frames for stream 0 (optional)")
		verbose        = flag.Bool("v", false, "enable diagnostic logging")
	)
	flag.Parse()

	if *verbose {
		mot.SetLogWriters(os.Stderr, os.Stderr)
	} else {
		mot.SetLogWriters(os.Stderr, nil)
	}

	cfg := config.Empty()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}
	if *streams > 0 {
		cfg.Streams = streams
	}
	if *period > 0 {
		cfg.CadencePeriod = period
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	opts := options{
		frames:         *frames,
		detectLatency:  *detectLatency,
		extractLatency: *extractLatency,
		dbPath:         *dbPath,
		timingsOut:     *timingsOut,
		drawDir:        *drawDir,
	}
	if err := run(cfg, opts); err != nil {
		log.Fatalf("run: %v", err)
	}
}

func run(cfg *config.SessionConfig, opts options) error {
	scene := synth.DefaultScene()
	scene.Interval = cfg.GetFrameInterval()

	detector := synth.NewDetector(scene, opts.detectLatency)
	detector.BoxJitter = 1.5
	extractor := synth.NewExtractor(opts.extractLatency)

	// Keep tracker handles so tracks can be persisted after the run.
	var trackers []*track.MultiTracker
	draw := cfg.GetDraw() || opts.drawDir != ""

	session, err := mot.NewSession(detector, extractor, mot.SessionOptions{
		Draw: draw,
		NewTracker: func(sc mot.StreamConfig) mot.Tracker {
			t := track.New(cfg.TrackerConfig(), nil)
			trackers = append(trackers, t)
			return t
		},
		NewVisualizer: func(streamIndex int) mot.Visualizer {
			return visual.New(visual.DefaultOptions())
		},
	})
	if err != nil {
		return err
	}

	if err := session.Reset(cfg.StreamConfigs()...); err != nil {
		return err
	}
	nStreams := session.StreamCount()

	ctx := context.Background()
	for n := 0; n < opts.frames; n++ {
		batch := make([]*mot.Frame, nStreams)
		for i := range batch {
			batch[i] = scene.Frame(n)
		}
		if err := session.Step(ctx, batch...); err != nil {
			// Contained per-stream failures: report and keep going.
			log.Printf("frame %d: %v", n, err)
		}
		if opts.drawDir != "" {
			if err := writePNG(filepath.Join(opts.drawDir, fmt.Sprintf("frame_%04d.png", n)), batch[0]); err != nil {
				return err
			}
		}
	}

	for i := 0; i < nStreams; i++ {
		visible := session.VisibleTracks()[i]
		log.Printf("stream %d: %d frames, %d visible tracks, %d degraded",
			i, session.FrameCount(i), len(visible), session.DegradedFrames(i))
	}
	session.LogTimingStats()

	if opts.timingsOut != "" {
		if err := writeTimings(opts.timingsOut, session.TimingReport()); err != nil {
			return err
		}
	}
	if opts.dbPath != "" {
		if err := persistTracks(opts.dbPath, trackers); err != nil {
			return err
		}
	}
	return nil
}

// writeTimings writes average per-stage durations in milliseconds, the
// format the timing-chart tool consumes.
func writeTimings(path string, report map[mot.Stage]time.Duration) error {
	millis := make(map[string]float64, len(report))
	for stage, avg := range report {
		millis[string(stage)] = float64(avg.Microseconds()) / 1000.0
	}
	data, err := json.MarshalIndent(millis, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal timings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write timings: %w", err)
	}
	return nil
}

func writePNG(path string, frame *mot.Frame) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create draw dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, frame.Image); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

func persistTracks(dbPath string, trackers []*track.MultiTracker) error {
	store, err := sqlite.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	for streamIndex, mt := range trackers {
		for _, t := range mt.AllTracks() {
			rec := &sqlite.TrackRecord{
				TrackID:     t.ID,
				StreamIndex: streamIndex,
				Class:       t.Class,
				State:       string(t.State),
				StartFrame:  t.StartFrame,
				LastFrame:   t.LastFrame,
				AvgWidth:    t.W,
				AvgHeight:   t.H,
			}
			if err := store.UpsertTrack(rec); err != nil {
				return err
			}
			obs := &sqlite.Observation{
				TrackID:    t.ID,
				FrameIndex: t.LastFrame,
				X:          t.X,
				Y:          t.Y,
				W:          t.W,
				H:          t.H,
				VelocityX:  t.VX,
				VelocityY:  t.VY,
			}
			if err := store.InsertObservation(obs); err != nil {
				return err
			}
		}
	}
	if pruned, err := store.PruneShortTracks(2); err != nil {
		return err
	} else if pruned > 0 {
		log.Printf("pruned %d short-lived tracks", pruned)
	}
	return nil
}
