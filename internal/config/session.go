// Package config loads session tuning parameters from JSON. Fields are
// pointers so a partial file overrides only what it names; everything
// else keeps its default.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mosaic-vision/cadence/internal/mot"
	"github.com/mosaic-vision/cadence/internal/mot/track"
)

// Defaults for fields absent from the JSON file.
const (
	DefaultStreams       = 1
	DefaultCadencePeriod = 5
	DefaultFrameInterval = "33ms"
	DefaultDraw          = false
)

// SessionConfig is the root configuration for a tracking session.
type SessionConfig struct {
	// Session params
	Streams       *int    `json:"streams,omitempty"`
	CadencePeriod *int    `json:"cadence_period,omitempty"`
	FrameInterval *string `json:"frame_interval,omitempty"` // duration string like "33ms"
	Draw          *bool   `json:"draw,omitempty"`

	// Tracker params (optional)
	MaxTracks             *int     `json:"max_tracks,omitempty"`
	MaxMisses             *int     `json:"max_misses,omitempty"`
	HitsToConfirm         *int     `json:"hits_to_confirm,omitempty"`
	GatingDistanceSquared *float64 `json:"gating_distance_squared,omitempty"`
	ProcessNoisePos       *float64 `json:"process_noise_pos,omitempty"`
	ProcessNoiseVel       *float64 `json:"process_noise_vel,omitempty"`
	MeasurementNoise      *float64 `json:"measurement_noise,omitempty"`
	AppearanceWeight      *float64 `json:"appearance_weight,omitempty"`
	MaxAppearanceDist     *float64 `json:"max_appearance_dist,omitempty"`
}

// Empty returns a SessionConfig with all fields unset.
func Empty() *SessionConfig {
	return &SessionConfig{}
}

// Load reads a SessionConfig from a JSON file. The path must have a
// .json extension and the file is capped at 1MB. Omitted fields keep
// their defaults, so partial configs are safe.
func Load(path string) (*SessionConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks all set fields for semantic errors.
func (c *SessionConfig) Validate() error {
	if c.Streams != nil && *c.Streams < 1 {
		return fmt.Errorf("streams must be >= 1, got %d", *c.Streams)
	}
	if c.CadencePeriod != nil && *c.CadencePeriod < 1 {
		return fmt.Errorf("cadence_period must be >= 1, got %d", *c.CadencePeriod)
	}
	if c.FrameInterval != nil {
		d, err := time.ParseDuration(*c.FrameInterval)
		if err != nil {
			return fmt.Errorf("frame_interval: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("frame_interval must be positive, got %v", d)
		}
	}
	if c.MaxTracks != nil && *c.MaxTracks < 1 {
		return fmt.Errorf("max_tracks must be >= 1, got %d", *c.MaxTracks)
	}
	if c.MaxMisses != nil && *c.MaxMisses < 1 {
		return fmt.Errorf("max_misses must be >= 1, got %d", *c.MaxMisses)
	}
	if c.HitsToConfirm != nil && *c.HitsToConfirm < 1 {
		return fmt.Errorf("hits_to_confirm must be >= 1, got %d", *c.HitsToConfirm)
	}
	if c.GatingDistanceSquared != nil && *c.GatingDistanceSquared <= 0 {
		return fmt.Errorf("gating_distance_squared must be positive, got %v", *c.GatingDistanceSquared)
	}
	if c.AppearanceWeight != nil && (*c.AppearanceWeight < 0 || *c.AppearanceWeight > 1) {
		return fmt.Errorf("appearance_weight must be in [0, 1], got %v", *c.AppearanceWeight)
	}
	return nil
}

// GetStreams returns the configured stream count or its default.
func (c *SessionConfig) GetStreams() int {
	if c.Streams != nil {
		return *c.Streams
	}
	return DefaultStreams
}

// GetCadencePeriod returns the cadence period or its default.
func (c *SessionConfig) GetCadencePeriod() int {
	if c.CadencePeriod != nil {
		return *c.CadencePeriod
	}
	return DefaultCadencePeriod
}

// GetFrameInterval returns the inter-frame interval or its default.
// Validate has already checked the string parses.
func (c *SessionConfig) GetFrameInterval() time.Duration {
	s := DefaultFrameInterval
	if c.FrameInterval != nil {
		s = *c.FrameInterval
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		d, _ = time.ParseDuration(DefaultFrameInterval)
	}
	return d
}

// GetDraw returns the render flag or its default.
func (c *SessionConfig) GetDraw() bool {
	if c.Draw != nil {
		return *c.Draw
	}
	return DefaultDraw
}

// StreamConfigs expands the session config into one homogeneous
// per-stream config per stream.
func (c *SessionConfig) StreamConfigs() []mot.StreamConfig {
	configs := make([]mot.StreamConfig, c.GetStreams())
	for i := range configs {
		configs[i] = mot.StreamConfig{
			CadencePeriod: c.GetCadencePeriod(),
			FrameInterval: c.GetFrameInterval(),
		}
	}
	return configs
}

// TrackerConfig derives tracker parameters, starting from defaults and
// overriding only the fields the file set.
func (c *SessionConfig) TrackerConfig() track.Config {
	cfg := track.DefaultConfig()
	if c.MaxTracks != nil {
		cfg.MaxTracks = *c.MaxTracks
	}
	if c.MaxMisses != nil {
		cfg.MaxMisses = *c.MaxMisses
	}
	if c.HitsToConfirm != nil {
		cfg.HitsToConfirm = *c.HitsToConfirm
	}
	if c.GatingDistanceSquared != nil {
		cfg.GatingDistanceSquared = float32(*c.GatingDistanceSquared)
	}
	if c.ProcessNoisePos != nil {
		cfg.ProcessNoisePos = float32(*c.ProcessNoisePos)
	}
	if c.ProcessNoiseVel != nil {
		cfg.ProcessNoiseVel = float32(*c.ProcessNoiseVel)
	}
	if c.MeasurementNoise != nil {
		cfg.MeasurementNoise = float32(*c.MeasurementNoise)
	}
	if c.AppearanceWeight != nil {
		cfg.AppearanceWeight = float32(*c.AppearanceWeight)
	}
	if c.MaxAppearanceDist != nil {
		cfg.MaxAppearanceDist = float32(*c.MaxAppearanceDist)
	}
	return cfg
}
