// Package config loads mudra's optional JSON settings file.
//
// Every field is optional. Omitted fields fall back to the defaults returned
// by the Get* accessors, so a partial file or no file at all is valid.
// Threshold profiles are not configuration; they live in the profile store.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/plugin"
)

// Defaults for fields omitted from the file.
const (
	DefaultListenAddr     = "127.0.0.1:8080"
	DefaultFPS            = 30
	DefaultSampleInterval = 200 * time.Millisecond
	DefaultFileName       = "config.json"
	dataDirName           = ".mudra"
	maxFileSize           = 1 << 20
)

// Config is the root of the settings file.
type Config struct {
	ListenAddr     *string `json:"listen_addr,omitempty"`
	CameraID       *int    `json:"camera_id,omitempty"`
	FPS            *int    `json:"fps,omitempty"`
	PluginDir      *string `json:"plugin_dir,omitempty"`
	DataDir        *string `json:"data_dir,omitempty"`
	SampleInterval *string `json:"sample_interval,omitempty"` // duration string like "200ms"
	PluginTimeout  *string `json:"plugin_timeout,omitempty"`

	Calibration *CalibrationConfig `json:"calibration,omitempty"`
}

// CalibrationConfig tunes the guided calibration workflow.
type CalibrationConfig struct {
	RequiredSamples *int     `json:"required_samples,omitempty"`
	MinConfidence   *float64 `json:"min_confidence,omitempty"`
	AdvanceDelay    *string  `json:"advance_delay,omitempty"`
	TransitionPause *string  `json:"transition_pause,omitempty"`
}

func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// Empty returns a Config with every field unset.
func Empty() *Config {
	return &Config{}
}

// DefaultDataDir returns ~/.mudra, or .mudra when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return dataDirName
	}
	return filepath.Join(home, dataDirName)
}

// DefaultPath returns the settings file location inside the default data dir.
func DefaultPath() string {
	return filepath.Join(DefaultDataDir(), DefaultFileName)
}

// Load reads and validates the file at path. A missing file yields an empty
// Config rather than an error.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if errors.Is(err, os.ErrNotExist) {
		return Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
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

// Validate checks the values that are set.
func (c *Config) Validate() error {
	if c.ListenAddr != nil && *c.ListenAddr == "" {
		return errors.New("listen_addr must not be empty")
	}
	if c.CameraID != nil && *c.CameraID < 0 {
		return fmt.Errorf("camera_id must be non-negative, got %d", *c.CameraID)
	}
	if c.FPS != nil && (*c.FPS <= 0 || *c.FPS > 120) {
		return fmt.Errorf("fps must be between 1 and 120, got %d", *c.FPS)
	}
	if err := validDuration("sample_interval", c.SampleInterval); err != nil {
		return err
	}
	if err := validDuration("plugin_timeout", c.PluginTimeout); err != nil {
		return err
	}

	cal := c.Calibration
	if cal == nil {
		return nil
	}
	if cal.RequiredSamples != nil && *cal.RequiredSamples < calibration.MinSamplesPerGesture {
		return fmt.Errorf("calibration.required_samples must be at least %d, got %d",
			calibration.MinSamplesPerGesture, *cal.RequiredSamples)
	}
	if cal.MinConfidence != nil && (*cal.MinConfidence < 0 || *cal.MinConfidence > 1) {
		return fmt.Errorf("calibration.min_confidence must be between 0 and 1, got %f", *cal.MinConfidence)
	}
	if err := validDuration("calibration.advance_delay", cal.AdvanceDelay); err != nil {
		return err
	}
	return validDuration("calibration.transition_pause", cal.TransitionPause)
}

func validDuration(name string, s *string) error {
	if s == nil || *s == "" {
		return nil
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return fmt.Errorf("invalid %s '%s': %w", name, *s, err)
	}
	if d < 0 {
		return fmt.Errorf("%s must be non-negative, got %s", name, *s)
	}
	return nil
}

func durationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def
	}
	return d
}

// SetListenAddr overrides the listen address, typically from a flag.
func (c *Config) SetListenAddr(addr string) { c.ListenAddr = ptrString(addr) }

// SetCameraID overrides the camera device.
func (c *Config) SetCameraID(id int) { c.CameraID = ptrInt(id) }

// GetListenAddr returns listen_addr or the default.
func (c *Config) GetListenAddr() string {
	if c.ListenAddr == nil {
		return DefaultListenAddr
	}
	return *c.ListenAddr
}

// GetCameraID returns camera_id or 0.
func (c *Config) GetCameraID() int {
	if c.CameraID == nil {
		return 0
	}
	return *c.CameraID
}

// GetFPS returns fps or the default.
func (c *Config) GetFPS() int {
	if c.FPS == nil {
		return DefaultFPS
	}
	return *c.FPS
}

// GetDataDir returns data_dir or ~/.mudra.
func (c *Config) GetDataDir() string {
	if c.DataDir == nil || *c.DataDir == "" {
		return DefaultDataDir()
	}
	return *c.DataDir
}

// GetPluginDir returns plugin_dir or <data_dir>/plugins.
func (c *Config) GetPluginDir() string {
	if c.PluginDir == nil || *c.PluginDir == "" {
		return filepath.Join(c.GetDataDir(), "plugins")
	}
	return *c.PluginDir
}

// GetDatabasePath returns the profile store location inside the data dir.
func (c *Config) GetDatabasePath() string {
	return filepath.Join(c.GetDataDir(), "mudra.db")
}

// GetSampleInterval returns the minimum spacing between calibration samples.
func (c *Config) GetSampleInterval() time.Duration {
	return durationOr(c.SampleInterval, DefaultSampleInterval)
}

// GetPluginTimeout returns the per-run plugin limit.
func (c *Config) GetPluginTimeout() time.Duration {
	return durationOr(c.PluginTimeout, plugin.DefaultTimeout)
}

// GetCalibration returns the workflow settings with defaults applied.
func (c *Config) GetCalibration() calibration.Config {
	out := calibration.DefaultConfig()
	cal := c.Calibration
	if cal == nil {
		return out
	}
	if cal.RequiredSamples != nil {
		out.RequiredSamples = *cal.RequiredSamples
	}
	if cal.MinConfidence != nil {
		out.MinConfidence = *cal.MinConfidence
	}
	out.AdvanceDelay = durationOr(cal.AdvanceDelay, out.AdvanceDelay)
	out.TransitionPause = durationOr(cal.TransitionPause, out.TransitionPause)
	return out
}
