// Package config handles workbench configuration loading and management.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all workbench settings.
type Config struct {
	Viewer   ViewerConfig   `yaml:"viewer"`
	Rig      RigConfig      `yaml:"rig"`
	Playback PlaybackConfig `yaml:"playback"`
	Assets   AssetsConfig   `yaml:"assets"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ViewerConfig holds display and rendering settings.
type ViewerConfig struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Fullscreen bool    `yaml:"fullscreen"`
	VSync      bool    `yaml:"vsync"`
	FOVDegrees float32 `yaml:"fov_degrees"`
	ShowGrid   bool    `yaml:"show_grid"`
}

// RigConfig holds mesh normalization and marker staging settings.
type RigConfig struct {
	TargetHeight float32 `yaml:"target_height"` // meters after normalization
	GroundY      float32 `yaml:"ground_y"`
	StageOffset  float32 `yaml:"stage_offset"` // spacing of freshly placed markers
}

// PlaybackConfig holds initial values for the retarget controls, all
// normalized 0-100.
type PlaybackConfig struct {
	Speed      float32 `yaml:"speed"`
	Enthusiasm float32 `yaml:"enthusiasm"`
	Spacing    float32 `yaml:"spacing"`
	InPlace    bool    `yaml:"in_place"`
}

// AssetsConfig holds asset fetching settings.
type AssetsConfig struct {
	BaseURL      string   `yaml:"base_url"`
	FetchTimeout Duration `yaml:"fetch_timeout"`
}

// Duration wraps time.Duration so config files can spell timeouts the
// human way ("30s", "2m") instead of nanosecond integers.
type Duration time.Duration

// Std returns the wrapped standard duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	// Bare integers are taken as nanoseconds, matching what older saved
	// configs contain.
	var n int64
	if err := value.Decode(&n); err != nil {
		return err
	}
	*d = Duration(n)
	return nil
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Viewer: ViewerConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			FOVDegrees: 45,
			ShowGrid:   true,
		},
		Rig: RigConfig{
			TargetHeight: 1.8,
			GroundY:      0,
			StageOffset:  0.15,
		},
		Playback: PlaybackConfig{
			Speed:      50,
			Enthusiasm: 50,
			Spacing:    50,
			InPlace:    false,
		},
		Assets: AssetsConfig{
			BaseURL:      "",
			FetchTimeout: Duration(30 * time.Second),
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
