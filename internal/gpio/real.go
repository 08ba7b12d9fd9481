//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReadyPin reads ALERT/RDY from actual hardware using the Linux GPIO
// character device.
type RealReadyPin struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealReadyPin requests offset on chip as an active-low input.
func NewRealReadyPin(chip string, offset int) (*RealReadyPin, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	// ALERT/RDY is open-drain: pull it up, and let the kernel invert so that
	// a value of 1 means "asserted".
	line, err := c.RequestLine(offset, gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.AsActiveLow)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request ready pin %d: %w", offset, err)
	}

	return &RealReadyPin{chip: c, line: line}, nil
}

// Ready reports whether ALERT/RDY is asserted.
func (p *RealReadyPin) Ready() (bool, error) {
	v, err := p.line.Value()
	if err != nil {
		return false, fmt.Errorf("read ready pin: %w", err)
	}
	return v == 1, nil
}

// Close releases GPIO resources.
func (p *RealReadyPin) Close() error {
	var errs []error

	if p.line != nil {
		if err := p.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close ready pin: %w", err))
		}
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
