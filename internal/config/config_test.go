package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/plugin"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GetListenAddr() != DefaultListenAddr {
		t.Errorf("GetListenAddr() = %q, want %q", cfg.GetListenAddr(), DefaultListenAddr)
	}
	if cfg.GetFPS() != DefaultFPS {
		t.Errorf("GetFPS() = %d, want %d", cfg.GetFPS(), DefaultFPS)
	}
	if cfg.GetSampleInterval() != DefaultSampleInterval {
		t.Errorf("GetSampleInterval() = %v, want %v", cfg.GetSampleInterval(), DefaultSampleInterval)
	}
	if cfg.GetPluginTimeout() != plugin.DefaultTimeout {
		t.Errorf("GetPluginTimeout() = %v, want %v", cfg.GetPluginTimeout(), plugin.DefaultTimeout)
	}
	if got, want := cfg.GetCalibration(), calibration.DefaultConfig(); got != want {
		t.Errorf("GetCalibration() = %+v, want %+v", got, want)
	}
}

func TestLoad_PartialFile(t *testing.T) {
	path := writeConfig(t, `{
		"listen_addr": ":9000",
		"camera_id": 2,
		"data_dir": "/var/lib/mudra",
		"sample_interval": "150ms",
		"calibration": {"required_samples": 12, "transition_pause": "0s"}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.GetListenAddr() != ":9000" {
		t.Errorf("GetListenAddr() = %q", cfg.GetListenAddr())
	}
	if cfg.GetCameraID() != 2 {
		t.Errorf("GetCameraID() = %d", cfg.GetCameraID())
	}
	if cfg.GetPluginDir() != filepath.Join("/var/lib/mudra", "plugins") {
		t.Errorf("GetPluginDir() = %q", cfg.GetPluginDir())
	}
	if cfg.GetDatabasePath() != filepath.Join("/var/lib/mudra", "mudra.db") {
		t.Errorf("GetDatabasePath() = %q", cfg.GetDatabasePath())
	}
	if cfg.GetSampleInterval() != 150*time.Millisecond {
		t.Errorf("GetSampleInterval() = %v", cfg.GetSampleInterval())
	}

	cal := cfg.GetCalibration()
	if cal.RequiredSamples != 12 {
		t.Errorf("RequiredSamples = %d, want 12", cal.RequiredSamples)
	}
	if cal.TransitionPause != 0 {
		t.Errorf("TransitionPause = %v, want 0", cal.TransitionPause)
	}
	if cal.AdvanceDelay != calibration.DefaultConfig().AdvanceDelay {
		t.Errorf("AdvanceDelay = %v, want default", cal.AdvanceDelay)
	}
	if cal.MinConfidence != calibration.DefaultMinConfidence {
		t.Errorf("MinConfidence = %v, want default", cal.MinConfidence)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"bad json", `{"fps":`, "failed to parse"},
		{"fps out of range", `{"fps": 0}`, "fps must be"},
		{"negative camera", `{"camera_id": -1}`, "camera_id"},
		{"empty listen addr", `{"listen_addr": ""}`, "listen_addr"},
		{"bad duration", `{"sample_interval": "soon"}`, "sample_interval"},
		{"negative duration", `{"plugin_timeout": "-1s"}`, "plugin_timeout"},
		{"too few samples", `{"calibration": {"required_samples": 3}}`, "required_samples"},
		{"confidence above one", `{"calibration": {"min_confidence": 1.5}}`, "min_confidence"},
		{"bad pause", `{"calibration": {"transition_pause": "x"}}`, "transition_pause"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("Load() error = nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_RequiresJSONExtension(t *testing.T) {
	if _, err := Load("/etc/mudra.yaml"); err == nil {
		t.Error("Load() should reject non-JSON paths")
	}
}

func TestOverrides(t *testing.T) {
	cfg := Empty()
	cfg.SetListenAddr(":7000")
	cfg.SetCameraID(4)

	if cfg.GetListenAddr() != ":7000" || cfg.GetCameraID() != 4 {
		t.Errorf("overrides not applied: %q %d", cfg.GetListenAddr(), cfg.GetCameraID())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
