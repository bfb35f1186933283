package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEmptySweepConfigDefaults(t *testing.T) {
	cfg := EmptySweepConfig()

	if got := cfg.GetPeerAddress(); got != "127.0.0.1:32501" {
		t.Errorf("GetPeerAddress() = %q, want 127.0.0.1:32501", got)
	}
	if got := cfg.GetGPIODevice(); got != "/dev/gpio_stream" {
		t.Errorf("GetGPIODevice() = %q", got)
	}
	if got := cfg.GetCoilPins(); got != [4]uint8{17, 18, 22, 23} {
		t.Errorf("GetCoilPins() = %v", got)
	}
	if got := cfg.GetSampleCount(); got != 100 {
		t.Errorf("GetSampleCount() = %d, want 100", got)
	}
	if got := cfg.GetHalfStepsPerSample(); got != 160 {
		t.Errorf("GetHalfStepsPerSample() = %d, want 160", got)
	}
	if got := cfg.GetStepDelay(); got != 70*time.Millisecond {
		t.Errorf("GetStepDelay() = %v, want 70ms", got)
	}
	if got := cfg.GetReceiveTimeout(); got != 2*time.Second {
		t.Errorf("GetReceiveTimeout() = %v, want 2s", got)
	}
	if got := cfg.GetMaxRetries(); got != 5 {
		t.Errorf("GetMaxRetries() = %d, want 5", got)
	}
	if got := cfg.GetI2CAddress(); got != 0x29 {
		t.Errorf("GetI2CAddress() = 0x%02X, want 0x29", got)
	}
	if got := cfg.GetDebugListen(); got != "" {
		t.Errorf("GetDebugListen() = %q, want disabled", got)
	}
}

// The documented defaults file must agree with the compiled-in fallbacks.
func TestDefaultsFileMatchesGetters(t *testing.T) {
	file := MustLoadDefaultConfig()
	empty := EmptySweepConfig()

	checks := []struct {
		name      string
		got, want any
	}{
		{"peer_address", file.GetPeerAddress(), empty.GetPeerAddress()},
		{"listen_address", file.GetListenAddress(), empty.GetListenAddress()},
		{"gpio_backend", file.GetGPIOBackend(), empty.GetGPIOBackend()},
		{"gpio_device", file.GetGPIODevice(), empty.GetGPIODevice()},
		{"coil_pins", file.GetCoilPins(), empty.GetCoilPins()},
		{"sample_count", file.GetSampleCount(), empty.GetSampleCount()},
		{"half_steps_per_sample", file.GetHalfStepsPerSample(), empty.GetHalfStepsPerSample()},
		{"step_delay", file.GetStepDelay(), empty.GetStepDelay()},
		{"receive_timeout", file.GetReceiveTimeout(), empty.GetReceiveTimeout()},
		{"max_retries", file.GetMaxRetries(), empty.GetMaxRetries()},
		{"debug_listen", file.GetDebugListen(), empty.GetDebugListen()},
		{"i2c_device", file.GetI2CDevice(), empty.GetI2CDevice()},
		{"i2c_address", file.GetI2CAddress(), empty.GetI2CAddress()},
		{"distance_mode", file.GetDistanceMode(), empty.GetDistanceMode()},
		{"measure_timeout", file.GetMeasureTimeout(), empty.GetMeasureTimeout()},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: defaults file has %v, getter default is %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadSweepConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "sweep.json")
	testJSON := `{
  "coil_pins": [5, 6, 13, 19],
  "step_delay": "10ms",
  "max_retries": 0,
  "distance_mode": "LONG"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadSweepConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if got := cfg.GetCoilPins(); got != [4]uint8{5, 6, 13, 19} {
		t.Errorf("GetCoilPins() = %v", got)
	}
	if got := cfg.GetStepDelay(); got != 10*time.Millisecond {
		t.Errorf("GetStepDelay() = %v, want 10ms", got)
	}
	if got := cfg.GetMaxRetries(); got != 0 {
		t.Errorf("GetMaxRetries() = %d, want explicit 0", got)
	}
	if got := cfg.GetDistanceMode(); got != "long" {
		t.Errorf("GetDistanceMode() = %q, want long", got)
	}
	// untouched fields keep defaults
	if got := cfg.GetSampleCount(); got != 100 {
		t.Errorf("GetSampleCount() = %d, want 100", got)
	}
}

func TestLoadSweepConfigRejects(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"wrong extension", "sweep.yaml", `{}`, ".json extension"},
		{"bad json", "bad.json", `{`, "failed to parse"},
		{"bad duration", "dur.json", `{"step_delay": "fast"}`, "invalid step_delay"},
		{"negative duration", "neg.json", `{"receive_timeout": "-1s"}`, "receive_timeout must be non-negative"},
		{"three pins", "pins.json", `{"coil_pins": [1, 2, 3]}`, "4 pins"},
		{"duplicate pin", "dup.json", `{"coil_pins": [1, 2, 2, 3]}`, "listed twice"},
		{"zero samples", "samples.json", `{"sample_count": 0}`, "sample_count"},
		{"zero half steps", "steps.json", `{"half_steps_per_sample": 0}`, "half_steps_per_sample"},
		{"address above 7 bits", "addr.json", `{"i2c_address": 200}`, "7-bit"},
		{"unknown backend", "backend.json", `{"gpio_backend": "sysfs"}`, "gpio_backend"},
		{"unknown mode", "mode.json", `{"distance_mode": "medium"}`, "distance_mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadSweepConfig(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadSweepConfig() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadSweepConfigTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.json")
	if err := os.WriteFile(path, make([]byte, 1024*1024+1), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSweepConfig(path); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

func TestReverseHalfStepsAllowed(t *testing.T) {
	cfg := &SweepConfig{HalfStepsPerSample: ptrInt(-160), GPIOBackend: ptrString(BackendPeriph)}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if got := cfg.GetHalfStepsPerSample(); got != -160 {
		t.Errorf("GetHalfStepsPerSample() = %d, want -160", got)
	}
}
