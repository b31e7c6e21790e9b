package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Carmen-Shannon/msaa-line/common"
	"github.com/Carmen-Shannon/msaa-line/engine/renderer"
	"github.com/Carmen-Shannon/msaa-line/engine/renderer/shader"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig is returned when a configuration value is out of range or unknown.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the application configuration for the msaa-line example, read from TOML.
type Config struct {
	Title          string `toml:"title"`
	Width          int    `toml:"width"`
	Height         int    `toml:"height"`
	SampleCount    uint32 `toml:"sample_count"`
	MaxSampleCount uint32 `toml:"max_sample_count"`
	Segments       uint32 `toml:"segments"`
	PresentMode    string `toml:"present_mode"`
	FrameLimit     int    `toml:"frame_limit"`
	Profiling      bool   `toml:"profiling"`
	LogLevel       string `toml:"log_level"`

	// ProfileIntervalMS is how often the profiler reports, in milliseconds.
	ProfileIntervalMS int `toml:"profile_interval_ms"`

	// VertexSPIRV and FragmentSPIRV optionally point at pre-built SPIR-V blobs that replace the
	// bundled WGSL shaders. Both or neither must be set. The entry points name the stage functions
	// inside those blobs.
	VertexSPIRV        string `toml:"vertex_spirv"`
	FragmentSPIRV      string `toml:"fragment_spirv"`
	VertexEntryPoint   string `toml:"vertex_entry_point"`
	FragmentEntryPoint string `toml:"fragment_entry_point"`
}

// Default returns the configuration used when no file is given.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	return Config{
		Title:          "msaa-line",
		Width:          800,
		Height:         600,
		SampleCount:    uint32(renderer.MSAA4x),
		MaxSampleCount: uint32(renderer.MSAA16x),
		Segments:       50,
		PresentMode:    "vsync",
		LogLevel:       "info",

		ProfileIntervalMS: 1000,

		VertexEntryPoint:   shader.DefaultEntryPoint,
		FragmentEntryPoint: shader.DefaultEntryPoint,
	}
}

// Load reads and validates a TOML configuration file. Keys missing from the file keep their defaults.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - Config: the loaded configuration
//   - error: error if the file cannot be read, decoded or validated
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML on top of Default and validates the result. Unknown keys are rejected and
// string keys set to "" fall back to their defaults.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - Config: the decoded configuration
//   - error: error if decoding or validation fails
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, strict.String())
		}
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	defaults := Default()
	cfg.Title = common.Coalesce(cfg.Title, defaults.Title)
	cfg.PresentMode = common.Coalesce(cfg.PresentMode, defaults.PresentMode)
	cfg.LogLevel = common.Coalesce(cfg.LogLevel, defaults.LogLevel)
	cfg.VertexEntryPoint = common.Coalesce(cfg.VertexEntryPoint, defaults.VertexEntryPoint)
	cfg.FragmentEntryPoint = common.Coalesce(cfg.FragmentEntryPoint, defaults.FragmentEntryPoint)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every value against what the renderer and window accept.
//
// Returns:
//   - error: an error wrapping ErrInvalidConfig, or nil
func (c Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size must be positive, got %dx%d", c.Width, c.Height))
	}
	count, maxCount := renderer.SampleCount(c.SampleCount), renderer.SampleCount(c.MaxSampleCount)
	if !count.Valid() {
		errs = append(errs, fmt.Errorf("sample_count must be one of 1, 2, 4, 8, 16, got %d", c.SampleCount))
	}
	if !maxCount.Valid() {
		errs = append(errs, fmt.Errorf("max_sample_count must be one of 1, 2, 4, 8, 16, got %d", c.MaxSampleCount))
	} else if count.Valid() && count > maxCount {
		errs = append(errs, fmt.Errorf("sample_count %d exceeds max_sample_count %d", c.SampleCount, c.MaxSampleCount))
	}
	if c.Segments == 0 {
		errs = append(errs, errors.New("segments must be positive"))
	}
	if _, err := c.Present(); err != nil {
		errs = append(errs, err)
	}
	if c.FrameLimit < 0 {
		errs = append(errs, fmt.Errorf("frame_limit must not be negative, got %d", c.FrameLimit))
	}
	if c.ProfileIntervalMS <= 0 {
		errs = append(errs, fmt.Errorf("profile_interval_ms must be positive, got %d", c.ProfileIntervalMS))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if (c.VertexSPIRV == "") != (c.FragmentSPIRV == "") {
		errs = append(errs, errors.New("vertex_spirv and fragment_spirv must be set together"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Present maps present_mode to the renderer's PresentMode.
//
// Returns:
//   - renderer.PresentMode: PresentModeVSync or PresentModeUncapped
//   - error: error if the mode is unknown
func (c Config) Present() (renderer.PresentMode, error) {
	switch strings.ToLower(c.PresentMode) {
	case "", "vsync":
		return renderer.PresentModeVSync, nil
	case "uncapped":
		return renderer.PresentModeUncapped, nil
	default:
		return 0, fmt.Errorf("present_mode must be \"vsync\" or \"uncapped\", got %q", c.PresentMode)
	}
}

// Level maps log_level to a slog level.
//
// Returns:
//   - slog.Level: the parsed level
//   - error: error if the level name is unknown
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// ProfileInterval returns profile_interval_ms as a duration.
func (c Config) ProfileInterval() time.Duration {
	return time.Duration(c.ProfileIntervalMS) * time.Millisecond
}

// UsesSPIRV reports whether pre-built SPIR-V replaces the bundled WGSL shaders.
func (c Config) UsesSPIRV() bool {
	return c.VertexSPIRV != "" && c.FragmentSPIRV != ""
}
