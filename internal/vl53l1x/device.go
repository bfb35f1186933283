// Package vl53l1x drives the ST VL53L1X time-of-flight sensor in continuous
// ranging mode through the ranging platform shim.
package vl53l1x

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/tofsweep/internal/monitoring"
)

// DefaultAddress is the 7-bit bus address after power-on.
const DefaultAddress uint16 = 0x29

// ErrWrongModel is returned when the model ID register does not read 0xEACC.
var ErrWrongModel = errors.New("vl53l1x: unexpected model id")

// Platform is the register shim the driver needs; *ranging.Platform
// implements it.
type Platform interface {
	WriteMulti(index uint16, data []byte) error
	WriteReg8(index uint16, v uint8) error
	WriteReg16(index uint16, v uint16) error
	ReadReg8(index uint16) (uint8, error)
	ReadReg16(index uint16) (uint16, error)
	WaitValueMask(index uint16, expected, mask uint8, timeoutMs, pollDelayMs uint32) error
}

// DistanceMode selects the VCSEL timing trade-off between range and ambient
// light immunity.
type DistanceMode int

const (
	// Short reaches about 1.3 m and copes best with ambient light.
	Short DistanceMode = 1
	// Long reaches about 4 m in the dark.
	Long DistanceMode = 2
)

func (m DistanceMode) String() string {
	switch m {
	case Short:
		return "short"
	case Long:
		return "long"
	default:
		return fmt.Sprintf("DistanceMode(%d)", int(m))
	}
}

// ParseDistanceMode accepts "short" or "long".
func ParseDistanceMode(s string) (DistanceMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "short":
		return Short, nil
	case "long":
		return Long, nil
	default:
		return 0, fmt.Errorf("unsupported distance mode %q: expected short or long", s)
	}
}

// Config holds the driver timeouts.
type Config struct {
	BootTimeout    time.Duration
	MeasureTimeout time.Duration
	PollDelay      time.Duration
}

func (c Config) withDefaults() Config {
	if c.BootTimeout <= 0 {
		c.BootTimeout = 500 * time.Millisecond
	}
	if c.MeasureTimeout <= 0 {
		c.MeasureTimeout = time.Second
	}
	if c.PollDelay <= 0 {
		c.PollDelay = time.Millisecond
	}
	return c
}

// Device is one VL53L1X.
type Device struct {
	p        Platform
	cfg      Config
	polarity uint8
}

// New wraps an initialised platform.
func New(p Platform, cfg Config) *Device {
	return &Device{p: p, cfg: cfg.withDefaults(), polarity: 1}
}

func ms(d time.Duration) uint32 {
	return uint32(d / time.Millisecond)
}

// WaitBooted blocks until the firmware reports it has booted.
func (d *Device) WaitBooted() error {
	if err := d.p.WaitValueMask(regFirmwareSystemStatus, 0x01, 0x01, ms(d.cfg.BootTimeout), ms(d.cfg.PollDelay)); err != nil {
		return fmt.Errorf("waiting for sensor boot: %w", err)
	}
	return nil
}

// SensorID reads the model ID register.
func (d *Device) SensorID() (uint16, error) {
	return d.p.ReadReg16(regIdentificationModelID)
}

// Init checks the model, loads the default configuration and runs one
// throwaway measurement to complete VHV calibration.
func (d *Device) Init() error {
	if err := d.WaitBooted(); err != nil {
		return err
	}
	id, err := d.SensorID()
	if err != nil {
		return fmt.Errorf("reading model id: %w", err)
	}
	if id != ModelID {
		return fmt.Errorf("%w: 0x%04X", ErrWrongModel, id)
	}

	if err := d.p.WriteMulti(defaultConfigurationFirstAddr, defaultConfiguration[:]); err != nil {
		return fmt.Errorf("writing default configuration: %w", err)
	}
	if err := d.loadPolarity(); err != nil {
		return err
	}

	if err := d.StartRanging(); err != nil {
		return err
	}
	if err := d.WaitDataReady(); err != nil {
		return fmt.Errorf("first measurement: %w", err)
	}
	if err := d.ClearInterrupt(); err != nil {
		return err
	}
	if err := d.StopRanging(); err != nil {
		return err
	}

	// two bounds for VHV
	if err := d.p.WriteReg8(regVHVTimeoutMacropLoopBound, 0x09); err != nil {
		return err
	}
	if err := d.p.WriteReg8(regVHVConfigInit, 0x00); err != nil {
		return err
	}

	monitoring.Logf("VL53L1X initialised (model 0x%04X)", id)
	return nil
}

func (d *Device) loadPolarity() error {
	v, err := d.p.ReadReg8(regGPIOHVMuxCtrl)
	if err != nil {
		return fmt.Errorf("reading interrupt polarity: %w", err)
	}
	// bit 4 set means active low
	if v&0x10 != 0 {
		d.polarity = 0
	} else {
		d.polarity = 1
	}
	return nil
}

// SetDistanceMode reprograms the VCSEL periods and phase windows.
func (d *Device) SetDistanceMode(m DistanceMode) error {
	type write8 struct {
		reg uint16
		v   uint8
	}
	var regs []write8
	var woi, phase uint16

	switch m {
	case Short:
		regs = []write8{
			{regPhasecalTimeoutMacrop, 0x14},
			{regRangeVCSELPeriodA, 0x07},
			{regRangeVCSELPeriodB, 0x05},
			{regRangeValidPhaseHigh, 0x38},
		}
		woi, phase = 0x0705, 0x0606
	case Long:
		regs = []write8{
			{regPhasecalTimeoutMacrop, 0x0A},
			{regRangeVCSELPeriodA, 0x0F},
			{regRangeVCSELPeriodB, 0x0D},
			{regRangeValidPhaseHigh, 0xB8},
		}
		woi, phase = 0x0F0D, 0x0E0E
	default:
		return fmt.Errorf("unsupported distance mode %v", m)
	}

	for _, w := range regs {
		if err := d.p.WriteReg8(w.reg, w.v); err != nil {
			return fmt.Errorf("setting %v distance mode: %w", m, err)
		}
	}
	if err := d.p.WriteReg16(regSDConfigWOISD0, woi); err != nil {
		return fmt.Errorf("setting %v distance mode: %w", m, err)
	}
	if err := d.p.WriteReg16(regSDConfigInitialPhaseSD0, phase); err != nil {
		return fmt.Errorf("setting %v distance mode: %w", m, err)
	}
	return nil
}

// StartRanging enables continuous ranging.
func (d *Device) StartRanging() error {
	if err := d.p.WriteReg8(regSystemModeStart, modeStartContinuous); err != nil {
		return fmt.Errorf("starting ranging: %w", err)
	}
	return nil
}

// StopRanging halts continuous ranging.
func (d *Device) StopRanging() error {
	if err := d.p.WriteReg8(regSystemModeStart, modeStop); err != nil {
		return fmt.Errorf("stopping ranging: %w", err)
	}
	return nil
}

// ClearInterrupt acknowledges the last measurement so the next one can be
// reported.
func (d *Device) ClearInterrupt() error {
	if err := d.p.WriteReg8(regSystemInterruptClear, 0x01); err != nil {
		return fmt.Errorf("clearing interrupt: %w", err)
	}
	return nil
}

// DataReady reports whether a new measurement is waiting.
func (d *Device) DataReady() (bool, error) {
	v, err := d.p.ReadReg8(regGPIOTIOHVStatus)
	if err != nil {
		return false, err
	}
	return v&0x01 == d.polarity, nil
}

// WaitDataReady polls until a measurement is waiting or MeasureTimeout
// passes.
func (d *Device) WaitDataReady() error {
	return d.p.WaitValueMask(regGPIOTIOHVStatus, d.polarity, 0x01, ms(d.cfg.MeasureTimeout), ms(d.cfg.PollDelay))
}

// rangeStatusCodes maps the raw RESULT__RANGE_STATUS to the driver's status.
var rangeStatusCodes = [24]uint8{
	255, 255, 255, 5, 2, 4, 1, 7, 3, 0,
	255, 255, 9, 13, 255, 255, 255, 255, 10, 6,
	255, 255, 11, 12,
}

// RangeStatus returns the status of the last measurement; 0 means valid.
func (d *Device) RangeStatus() (uint8, error) {
	v, err := d.p.ReadReg8(regResultRangeStatus)
	if err != nil {
		return 0, err
	}
	v &= 0x1F
	if int(v) < len(rangeStatusCodes) {
		return rangeStatusCodes[v], nil
	}
	return 255, nil
}

// Distance waits for the next measurement, reads it in millimetres and
// clears the interrupt.
func (d *Device) Distance(ctx context.Context) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := d.WaitDataReady(); err != nil {
		return 0, err
	}
	mm, err := d.p.ReadReg16(regResultFinalRangeMM)
	if err != nil {
		return 0, fmt.Errorf("reading distance: %w", err)
	}
	if err := d.ClearInterrupt(); err != nil {
		return 0, err
	}
	return uint32(mm), nil
}

// SoftReset pulses the soft reset register and waits for the firmware to
// boot again.
func (d *Device) SoftReset() error {
	if err := d.p.WriteReg8(regSoftReset, 0x00); err != nil {
		return err
	}
	if err := d.p.WriteReg8(regSoftReset, 0x01); err != nil {
		return err
	}
	return d.WaitBooted()
}
