package knobs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/emshotton/knobz/internal/ads1115"
)

// Address selects one of the four ADS1115 strap addresses. Each address
// also staggers the sampling phase so that boards sharing a bus and a poll
// loop do not all hit the bus in the same tick.
type Address uint8

const (
	X48 Address = iota // ADDR to GND
	X49                // ADDR to VDD
	X4A                // ADDR to SDA
	X4B                // ADDR to SCL
)

// BusAddress returns the 7-bit I2C address. Unknown selectors map to 0x48.
func (a Address) BusAddress() uint16 {
	bus, _ := a.mapping()
	return bus
}

// PhaseOffset returns the initial timer value in microseconds.
func (a Address) PhaseOffset() uint32 {
	_, phase := a.mapping()
	return phase
}

func (a Address) mapping() (uint16, uint32) {
	switch a {
	case X49:
		return ads1115.AddressVDD, 250
	case X4A:
		return ads1115.AddressSDA, 500
	case X4B:
		return ads1115.AddressSCL, 750
	default:
		return ads1115.AddressGround, 0
	}
}

func (a Address) String() string {
	return fmt.Sprintf("0x%02X", a.BusAddress())
}

// AddressFromBus maps a 7-bit bus address back to its selector. Anything
// other than 0x48..0x4B yields X48.
func AddressFromBus(b uint8) Address {
	switch b {
	case ads1115.AddressVDD:
		return X49
	case ads1115.AddressSDA:
		return X4A
	case ads1115.AddressSCL:
		return X4B
	default:
		return X48
	}
}

// ParseAddress parses "0x48".."0x4B" (or the decimal equivalents).
// Unlike AddressFromBus it rejects addresses no ADS1115 can answer on.
func ParseAddress(s string) (Address, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return X48, fmt.Errorf("parse address %q: %w", s, err)
	}
	if n < ads1115.AddressGround || n > ads1115.AddressSCL {
		return X48, fmt.Errorf("address %#x out of range 0x48-0x4b", n)
	}
	return AddressFromBus(uint8(n)), nil
}
