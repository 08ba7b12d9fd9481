// Package ads1115 drives a TI ADS1115 16-bit ADC in single-shot mode.
//
// The driver is written against the tinygo drivers I2C interface so the same
// code runs over Linux i2c-dev on the host and over machine.I2C on a
// microcontroller. It keeps fixed transfer buffers and does not allocate on
// the read path.
//
//	dev := ads1115.New(bus, ads1115.AddressGround, ads1115.Config{})
//	if err := dev.Configure(); err != nil { ... }
//	raw, err := dev.ReadSingle(0)
package ads1115

import (
	"errors"
	"fmt"
	"time"

	"tinygo.org/x/drivers"
)

// Errors returned by the driver.
var (
	ErrTimeout  = errors.New("ads1115: conversion timeout")
	ErrChannel  = errors.New("ads1115: channel out of range")
	ErrReleased = errors.New("ads1115: bus released")
)

// ReadyPin reports the level of the ALERT/RDY line, already translated to
// "conversion complete".
type ReadyPin interface {
	Ready() (bool, error)
}

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// DataRate defaults to 860 SPS.
	DataRate DataRate
	// ConversionTimeout bounds the wait in ReadSingle. Default 10 ms.
	ConversionTimeout time.Duration
	// PollInterval is the sleep between completion checks. Default 100 us.
	PollInterval time.Duration
	// Ready, if set, is polled instead of the config register OS bit, and
	// Configure programs the threshold registers to drive ALERT/RDY.
	Ready ReadyPin
}

// Device is an ADS1115 on an I2C bus.
type Device struct {
	bus  drivers.I2C
	addr uint16
	cfg  Config

	// config mirrors the config register without the OS and MUX fields.
	config uint16

	now   func() time.Time
	sleep func(time.Duration)

	w [3]byte
	r [2]byte
}

// New creates a Device at addr. It does not touch the bus; call Configure.
func New(bus drivers.I2C, addr uint16, cfg Config) *Device {
	if cfg.ConversionTimeout <= 0 {
		cfg.ConversionTimeout = 10 * time.Millisecond
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Microsecond
	}
	d := &Device{
		bus:   bus,
		addr:  addr,
		cfg:   cfg,
		now:   time.Now,
		sleep: time.Sleep,
	}
	d.config = configModeOnce | cfg.DataRate.bits() | uint16(Range2048)
	if cfg.Ready == nil {
		d.config |= configCompQueue
	}
	return d
}

// Address returns the device's 7-bit bus address.
func (d *Device) Address() uint16 { return d.addr }

// FullScaleRange returns the gain setting last written to the device.
func (d *Device) FullScaleRange() FullScaleRange {
	return FullScaleRange(d.config & configPGAMask)
}

// Configure writes single-shot mode, data rate and comparator settings.
// With a ReadyPin configured it also sets the threshold registers so that
// ALERT/RDY asserts at the end of every conversion.
func (d *Device) Configure() error {
	if d.cfg.Ready != nil {
		if err := d.writeRegister(regHiThreshold, readyHiThreshold); err != nil {
			return fmt.Errorf("write hi threshold: %w", err)
		}
		if err := d.writeRegister(regLoThreshold, readyLoThreshold); err != nil {
			return fmt.Errorf("write lo threshold: %w", err)
		}
	}
	if err := d.writeRegister(regConfig, d.config); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// SetFullScaleRange sets the PGA. The cached configuration only changes if
// the write succeeds.
func (d *Device) SetFullScaleRange(r FullScaleRange) error {
	cfg := (d.config &^ configPGAMask) | (uint16(r) & configPGAMask)
	if err := d.writeRegister(regConfig, cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	d.config = cfg
	return nil
}

// StartSingle starts a single-shot conversion of channel ch (AINch vs GND).
func (d *Device) StartSingle(ch uint8) error {
	if ch > 3 {
		return ErrChannel
	}
	if err := d.writeRegister(regConfig, d.config|configOS|muxForChannel(ch)); err != nil {
		return fmt.Errorf("start conversion: %w", err)
	}
	return nil
}

// ConversionReady reports whether the last conversion has completed.
func (d *Device) ConversionReady() (bool, error) {
	if d.cfg.Ready != nil {
		return d.cfg.Ready.Ready()
	}
	v, err := d.readRegister(regConfig)
	if err != nil {
		return false, fmt.Errorf("read config: %w", err)
	}
	return v&configOS != 0, nil
}

// RawConversion returns the conversion register as a signed sample.
func (d *Device) RawConversion() (int16, error) {
	v, err := d.readRegister(regConversion)
	if err != nil {
		return 0, fmt.Errorf("read conversion: %w", err)
	}
	return int16(v), nil
}

// ReadSingle performs a full single-shot measurement of channel ch: start,
// wait for completion (bounded by ConversionTimeout), read.
func (d *Device) ReadSingle(ch uint8) (int16, error) {
	if err := d.StartSingle(ch); err != nil {
		return 0, err
	}
	deadline := d.now().Add(d.cfg.ConversionTimeout)
	for {
		ready, err := d.ConversionReady()
		if err != nil {
			return 0, err
		}
		if ready {
			break
		}
		if d.now().After(deadline) {
			return 0, ErrTimeout
		}
		d.sleep(d.cfg.PollInterval)
	}
	return d.RawConversion()
}

// Release hands the bus back to the caller. The Device must not be used
// afterwards; every bus operation then fails with ErrReleased.
func (d *Device) Release() drivers.I2C {
	bus := d.bus
	d.bus = nil
	return bus
}

// Read a 16-bit register, MSB first.
func (d *Device) readRegister(reg uint8) (uint16, error) {
	if d.bus == nil {
		return 0, ErrReleased
	}
	d.w[0] = reg
	if err := d.bus.Tx(d.addr, d.w[:1], d.r[:2]); err != nil {
		return 0, err
	}
	return uint16(d.r[0])<<8 | uint16(d.r[1]), nil
}

// Write a 16-bit register, MSB first.
func (d *Device) writeRegister(reg uint8, value uint16) error {
	if d.bus == nil {
		return ErrReleased
	}
	d.w[0] = reg
	d.w[1] = byte(value >> 8)
	d.w[2] = byte(value)
	return d.bus.Tx(d.addr, d.w[:3], nil)
}
