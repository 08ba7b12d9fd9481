package gpio

import "errors"

// FakeReadyPin is a test double that returns scripted ready levels.
type FakeReadyPin struct {
	// Levels contains scripted Ready() results.
	// Each call consumes the next level.
	Levels []bool

	// index tracks current position in Levels
	index int

	// Calls counts Ready() invocations.
	Calls int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Ready()
	ReadError error
}

// NewFakeReadyPin creates a FakeReadyPin with the given levels.
func NewFakeReadyPin(levels ...bool) *FakeReadyPin {
	return &FakeReadyPin{Levels: levels}
}

// Ready returns the next scripted level.
// If levels are exhausted, returns the last level repeatedly.
func (f *FakeReadyPin) Ready() (bool, error) {
	f.Calls++
	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Levels) == 0 {
		return false, errors.New("no levels configured")
	}

	level := f.Levels[f.index]
	if f.index < len(f.Levels)-1 {
		f.index++
	}

	return level, nil
}

// Close marks the pin as closed.
func (f *FakeReadyPin) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the scripted levels.
func (f *FakeReadyPin) Reset() {
	f.index = 0
	f.Calls = 0
	f.Closed = false
}
