package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultConfigPath is the path to the documented defaults file. Every value
// in it matches the fallback returned by the corresponding Get* method.
const DefaultConfigPath = "config/sweep.defaults.json"

// SweepConfig is the startup configuration shared by the stepper node and
// the sensor node. Fields omitted from the JSON keep their defaults.
type SweepConfig struct {
	// Stepper node
	PeerAddress        *string `json:"peer_address,omitempty"`
	GPIOBackend        *string `json:"gpio_backend,omitempty"` // "stream" or "periph"
	GPIODevice         *string `json:"gpio_device,omitempty"`
	CoilPins           []int   `json:"coil_pins,omitempty"`
	SampleCount        *int    `json:"sample_count,omitempty"`
	HalfStepsPerSample *int    `json:"half_steps_per_sample,omitempty"`
	StepDelay          *string `json:"step_delay,omitempty"`      // duration string like "70ms"
	ReceiveTimeout     *string `json:"receive_timeout,omitempty"` // duration string like "2s"
	MaxRetries         *int    `json:"max_retries,omitempty"`
	DebugListen        *string `json:"debug_listen,omitempty"`

	// Sensor node
	ListenAddress  *string `json:"listen_address,omitempty"`
	I2CDevice      *string `json:"i2c_device,omitempty"`
	I2CAddress     *int    `json:"i2c_address,omitempty"` // 7-bit
	DistanceMode   *string `json:"distance_mode,omitempty"`
	MeasureTimeout *string `json:"measure_timeout,omitempty"`
}

const (
	BackendStream = "stream"
	BackendPeriph = "periph"
)

// EmptySweepConfig returns a SweepConfig with all fields unset, so every
// Get* method returns its default.
func EmptySweepConfig() *SweepConfig {
	return &SweepConfig{}
}

// LoadSweepConfig loads a SweepConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadSweepConfig(path string) (*SweepConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySweepConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory
// or a parent. Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *SweepConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadSweepConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

func validateDuration(name string, v *string) error {
	if v == nil || *v == "" {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
	}
	if d < 0 {
		return fmt.Errorf("%s must be non-negative, got %s", name, *v)
	}
	return nil
}

// Validate checks that the configuration values are valid.
func (c *SweepConfig) Validate() error {
	if c.GPIOBackend != nil {
		switch *c.GPIOBackend {
		case BackendStream, BackendPeriph:
		default:
			return fmt.Errorf("gpio_backend must be %q or %q, got %q", BackendStream, BackendPeriph, *c.GPIOBackend)
		}
	}

	if c.CoilPins != nil {
		if len(c.CoilPins) != 4 {
			return fmt.Errorf("coil_pins must list 4 pins, got %d", len(c.CoilPins))
		}
		seen := make(map[int]bool)
		for _, p := range c.CoilPins {
			if p < 0 || p > 255 {
				return fmt.Errorf("coil pin %d out of range 0-255", p)
			}
			if seen[p] {
				return fmt.Errorf("coil pin %d listed twice", p)
			}
			seen[p] = true
		}
	}

	if c.SampleCount != nil && *c.SampleCount < 1 {
		return fmt.Errorf("sample_count must be at least 1, got %d", *c.SampleCount)
	}
	if c.HalfStepsPerSample != nil && *c.HalfStepsPerSample == 0 {
		return fmt.Errorf("half_steps_per_sample must be non-zero")
	}
	if c.MaxRetries != nil && *c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative, got %d", *c.MaxRetries)
	}

	if c.I2CAddress != nil && (*c.I2CAddress < 0x03 || *c.I2CAddress > 0x77) {
		return fmt.Errorf("i2c_address must be a 7-bit address in 0x03-0x77, got 0x%02X", *c.I2CAddress)
	}
	if c.DistanceMode != nil {
		switch strings.ToLower(*c.DistanceMode) {
		case "short", "long":
		default:
			return fmt.Errorf("distance_mode must be short or long, got %q", *c.DistanceMode)
		}
	}

	durations := []struct {
		name string
		v    *string
	}{
		{"step_delay", c.StepDelay},
		{"receive_timeout", c.ReceiveTimeout},
		{"measure_timeout", c.MeasureTimeout},
	}
	for _, d := range durations {
		if err := validateDuration(d.name, d.v); err != nil {
			return err
		}
	}
	return nil
}

func durationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def // default on parse error
	}
	return d
}

func stringOr(v *string, def string) string {
	if v == nil || *v == "" {
		return def
	}
	return *v
}

// GetPeerAddress returns the sensor node address the stepper node dials.
func (c *SweepConfig) GetPeerAddress() string {
	return stringOr(c.PeerAddress, "127.0.0.1:32501")
}

// GetListenAddress returns the address the sensor node listens on.
func (c *SweepConfig) GetListenAddress() string {
	return stringOr(c.ListenAddress, "0.0.0.0:32501")
}

// GetGPIOBackend returns the coil output backend.
func (c *SweepConfig) GetGPIOBackend() string {
	return stringOr(c.GPIOBackend, BackendStream)
}

// GetGPIODevice returns the stream device path.
func (c *SweepConfig) GetGPIODevice() string {
	return stringOr(c.GPIODevice, "/dev/gpio_stream")
}

// GetCoilPins returns the A, B, C, D coil pins.
func (c *SweepConfig) GetCoilPins() [4]uint8 {
	if len(c.CoilPins) != 4 {
		return [4]uint8{17, 18, 22, 23}
	}
	var pins [4]uint8
	for i, p := range c.CoilPins {
		pins[i] = uint8(p)
	}
	return pins
}

// GetSampleCount returns the number of samples per sweep.
func (c *SweepConfig) GetSampleCount() int {
	if c.SampleCount == nil {
		return 100
	}
	return *c.SampleCount
}

// GetHalfStepsPerSample returns the motor movement between samples.
func (c *SweepConfig) GetHalfStepsPerSample() int {
	if c.HalfStepsPerSample == nil {
		return 160 // 20 passes through the 8-row table
	}
	return *c.HalfStepsPerSample
}

// GetStepDelay returns the pause after each half-step row.
func (c *SweepConfig) GetStepDelay() time.Duration {
	return durationOr(c.StepDelay, 70*time.Millisecond)
}

// GetReceiveTimeout returns how long one distance request waits for a reply.
func (c *SweepConfig) GetReceiveTimeout() time.Duration {
	return durationOr(c.ReceiveTimeout, 2*time.Second)
}

// GetMaxRetries returns the number of retries after a failed request.
func (c *SweepConfig) GetMaxRetries() int {
	if c.MaxRetries == nil {
		return 5
	}
	return *c.MaxRetries
}

// GetDebugListen returns the debug HTTP address; empty disables it.
func (c *SweepConfig) GetDebugListen() string {
	if c.DebugListen == nil {
		return ""
	}
	return *c.DebugListen
}

// GetI2CDevice returns the I2C bus device path.
func (c *SweepConfig) GetI2CDevice() string {
	return stringOr(c.I2CDevice, "/dev/i2c-1")
}

// GetI2CAddress returns the sensor's 7-bit address.
func (c *SweepConfig) GetI2CAddress() uint16 {
	if c.I2CAddress == nil {
		return 0x29
	}
	return uint16(*c.I2CAddress)
}

// GetDistanceMode returns "short" or "long".
func (c *SweepConfig) GetDistanceMode() string {
	return strings.ToLower(stringOr(c.DistanceMode, "short"))
}

// GetMeasureTimeout returns how long the sensor node waits for one reading.
func (c *SweepConfig) GetMeasureTimeout() time.Duration {
	return durationOr(c.MeasureTimeout, time.Second)
}
