// Package knobs turns four potentiometers on an ADS1115 into change events.
//
// A Controller is polled by its owner with the elapsed time since the last
// call. Every millisecond of accumulated time it samples one channel in the
// fixed order A0, A1, A2, A3, scales the raw reading into the channel's
// configured Range and reports the channel only if its scaled value changed.
//
// This package has no clock, goroutines or heap allocation on the update
// path. It is not safe for concurrent use.
package knobs

import "fmt"

// NumChannels is the number of knobs behind one ADC.
const NumChannels = 4

// Channel identifies one ADC input.
type Channel uint8

const (
	A0 Channel = iota
	A1
	A2
	A3
)

// Valid reports whether c is one of A0..A3.
func (c Channel) Valid() bool { return c < NumChannels }

// Next returns the channel sampled after c.
func (c Channel) Next() Channel { return (c + 1) % NumChannels }

func (c Channel) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Channel(%d)", uint8(c))
	}
	return "A" + string(rune('0'+c))
}

// Change is a channel whose scaled value differs from its previous sample.
type Change struct {
	Channel Channel
	Value   uint16
}

// Stats counts what the controller has done since construction.
type Stats struct {
	Samples    uint32 // successful reads
	Changes    uint32 // Change values returned by Update
	ReadErrors uint32 // transient read failures swallowed by Update
}
