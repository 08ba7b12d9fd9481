//go:build !linux

package gpio

import "errors"

// RealReadyPin is not available on non-Linux platforms.
type RealReadyPin struct{}

// NewRealReadyPin returns an error on non-Linux platforms.
func NewRealReadyPin(chip string, offset int) (*RealReadyPin, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Ready is not implemented on non-Linux platforms.
func (p *RealReadyPin) Ready() (bool, error) {
	return false, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (p *RealReadyPin) Close() error {
	return nil
}
