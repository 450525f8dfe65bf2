package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, "session.json", `{
		"streams": 4,
		"cadence_period": 8,
		"frame_interval": "16ms",
		"draw": true,
		"max_tracks": 50,
		"appearance_weight": 0.7
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.GetStreams())
	assert.Equal(t, 8, cfg.GetCadencePeriod())
	assert.Equal(t, 16*time.Millisecond, cfg.GetFrameInterval())
	assert.True(t, cfg.GetDraw())

	tc := cfg.TrackerConfig()
	assert.Equal(t, 50, tc.MaxTracks)
	assert.InDelta(t, 0.7, float64(tc.AppearanceWeight), 1e-6)
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "partial.json", `{"cadence_period": 3}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.GetCadencePeriod())
	assert.Equal(t, DefaultStreams, cfg.GetStreams())
	assert.Equal(t, 33*time.Millisecond, cfg.GetFrameInterval())
	assert.False(t, cfg.GetDraw())
}

func TestLoadRejectsNonJSONExtension(t *testing.T) {
	path := writeConfig(t, "session.yaml", `{}`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := writeConfig(t, "bad.json", `{"streams": `)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	intp := func(v int) *int { return &v }
	strp := func(v string) *string { return &v }
	floatp := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		cfg     SessionConfig
		wantErr bool
	}{
		{name: "empty", cfg: SessionConfig{}},
		{name: "valid", cfg: SessionConfig{Streams: intp(2), CadencePeriod: intp(5)}},
		{name: "zero streams", cfg: SessionConfig{Streams: intp(0)}, wantErr: true},
		{name: "zero period", cfg: SessionConfig{CadencePeriod: intp(0)}, wantErr: true},
		{name: "bad interval", cfg: SessionConfig{FrameInterval: strp("fast")}, wantErr: true},
		{name: "negative interval", cfg: SessionConfig{FrameInterval: strp("-5ms")}, wantErr: true},
		{name: "zero max tracks", cfg: SessionConfig{MaxTracks: intp(0)}, wantErr: true},
		{name: "weight above one", cfg: SessionConfig{AppearanceWeight: floatp(1.5)}, wantErr: true},
		{name: "weight in range", cfg: SessionConfig{AppearanceWeight: floatp(0.3)}},
		{name: "negative gate", cfg: SessionConfig{GatingDistanceSquared: floatp(-1)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStreamConfigsExpansion(t *testing.T) {
	streams := 3
	period := 7
	cfg := SessionConfig{Streams: &streams, CadencePeriod: &period}

	configs := cfg.StreamConfigs()
	require.Len(t, configs, 3)
	for _, sc := range configs {
		assert.Equal(t, 7, sc.CadencePeriod)
		assert.Equal(t, 33*time.Millisecond, sc.FrameInterval)
		assert.NoError(t, sc.Validate())
	}
}

func TestTrackerConfigDefaultsWhenUnset(t *testing.T) {
	cfg := Empty()
	tc := cfg.TrackerConfig()
	assert.Equal(t, 100, tc.MaxTracks)
	assert.Equal(t, 3, tc.MaxMisses)
	assert.InDelta(t, 0.5, float64(tc.AppearanceWeight), 1e-6)
}
