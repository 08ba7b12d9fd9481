// Package i2cdev opens a host I2C adapter through periph and exposes it as a
// tinygo drivers.I2C bus, so device drivers written for microcontrollers run
// unchanged on a Raspberry Pi.
package i2cdev

import (
	"fmt"
	"strings"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
)

// DefaultPath is the I2C adapter on the Raspberry Pi header pins.
const DefaultPath = "/dev/i2c-1"

var _ drivers.I2C = (*Bus)(nil)

// Bus is an open adapter. periph's i2c.Bus already has the drivers.I2C
// Tx signature; Bus adds the path it was opened from and an idempotent Close.
type Bus struct {
	i2c.BusCloser
	path string

	once     sync.Once
	closeErr error
}

// BusName maps a /dev/i2c-N path to the name periph registers it under.
// Anything else ("1", "I2C1", or "" for the first bus) is passed through.
func BusName(path string) string {
	return strings.TrimPrefix(path, "/dev/i2c-")
}

// Open initialises the host drivers and opens the adapter at path.
func Open(path string) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host drivers: %w", err)
	}
	b, err := i2creg.Open(BusName(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Bus{BusCloser: b, path: path}, nil
}

// Path returns the path the bus was opened from.
func (b *Bus) Path() string { return b.path }

// Close releases the adapter. Later calls return the first result.
func (b *Bus) Close() error {
	b.once.Do(func() {
		if err := b.BusCloser.Close(); err != nil {
			b.closeErr = fmt.Errorf("close %s: %w", b.path, err)
		}
	})
	return b.closeErr
}
