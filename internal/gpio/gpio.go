// Package gpio reads the ADS1115 ALERT/RDY line with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// ReadyPin reports whether the ADC has finished a conversion.
// It satisfies ads1115.ReadyPin.
type ReadyPin interface {
	// Ready returns true while ALERT/RDY is asserted (electrically low).
	Ready() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Defaults (BCM numbering).
const (
	DefaultChip = "gpiochip0"
	Disabled    = -1
)
