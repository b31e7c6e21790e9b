package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/msaa-line/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "msaa-line", cfg.Title)
	assert.Equal(t, uint32(4), cfg.SampleCount)
	assert.False(t, cfg.UsesSPIRV())
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
title = "lines"
sample_count = 8
present_mode = "uncapped"
frame_limit = 120
profiling = true
log_level = "debug"
`))
	require.NoError(t, err)
	assert.Equal(t, "lines", cfg.Title)
	assert.Equal(t, uint32(8), cfg.SampleCount)
	assert.Equal(t, 120, cfg.FrameLimit)
	assert.True(t, cfg.Profiling)
	assert.Equal(t, 800, cfg.Width, "missing keys keep their default")
	assert.Equal(t, uint32(50), cfg.Segments)

	mode, err := cfg.Present()
	require.NoError(t, err)
	assert.Equal(t, renderer.PresentModeUncapped, mode)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", `sample_rate = 4`},
		{"sample count not a power of two", `sample_count = 3`},
		{"sample count above 16", `sample_count = 32`},
		{"sample count above max", "sample_count = 8\nmax_sample_count = 4"},
		{"zero width", `width = 0`},
		{"negative height", `height = -1`},
		{"zero segments", `segments = 0`},
		{"present mode", `present_mode = "mailbox"`},
		{"frame limit", `frame_limit = -1`},
		{"log level", `log_level = "loud"`},
		{"profile interval", `profile_interval_ms = 0`},
		{"half a shader pair", `vertex_spirv = "line.vert.spv"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte(`width = `))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msaa-line.toml")
	require.NoError(t, os.WriteFile(path, []byte("vertex_spirv = \"a.spv\"\nfragment_spirv = \"b.spv\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.UsesSPIRV())

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPresentAndLevelDefaults(t *testing.T) {
	var cfg Config
	mode, err := cfg.Present()
	require.NoError(t, err)
	assert.Equal(t, renderer.PresentModeVSync, mode)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestParseEmptyStringsKeepDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
title = ""
present_mode = ""
log_level = ""
vertex_entry_point = ""
`))
	require.NoError(t, err)
	assert.Equal(t, "msaa-line", cfg.Title)
	assert.Equal(t, "vsync", cfg.PresentMode)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "main", cfg.VertexEntryPoint)
}

func TestParseShaderEntryPointsAndProfileInterval(t *testing.T) {
	cfg, err := Parse([]byte(`
vertex_spirv = "line.vert.spv"
fragment_spirv = "line.frag.spv"
vertex_entry_point = "vs_main"
fragment_entry_point = "fs_main"
profile_interval_ms = 250
`))
	require.NoError(t, err)
	assert.True(t, cfg.UsesSPIRV())
	assert.Equal(t, "vs_main", cfg.VertexEntryPoint)
	assert.Equal(t, "fs_main", cfg.FragmentEntryPoint)
	assert.Equal(t, 250*time.Millisecond, cfg.ProfileInterval())
	assert.Equal(t, time.Second, Default().ProfileInterval())
}
