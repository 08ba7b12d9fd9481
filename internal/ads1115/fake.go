package ads1115

import (
	"errors"
	"sync"

	"tinygo.org/x/drivers"
)

// ErrNoDevice is returned by FakeBus for transfers to any other address.
var ErrNoDevice = errors.New("ads1115: fake bus: no device at address")

var _ drivers.I2C = (*FakeBus)(nil)

// FakeBus is a register-level ADS1115 test double implementing drivers.I2C.
type FakeBus struct {
	mu sync.Mutex

	// Addr is the only address that acknowledges. Zero means AddressGround.
	Addr uint16

	// Samples holds scripted raw readings per channel. Each conversion
	// consumes the next one; the last is repeated once exhausted. A channel
	// with no samples converts to 0.
	Samples [4][]int16

	// BusyPolls is how many OS-bit reads report "converting" after a start.
	BusyPolls int

	// Stuck makes every conversion run forever.
	Stuck bool

	// WriteError, if set, is returned by every register write.
	WriteError error

	// ReadError, if set, is returned by every register read.
	ReadError error

	// ChannelErrors, if set, fail the start of a conversion on that channel.
	ChannelErrors [4]error

	config      uint16
	hiThreshold uint16
	loThreshold uint16
	conversion  uint16
	busy        int
	index       [4]int
	conversions [4]int
	txs         int
	closed      bool
}

// NewFakeBus creates a FakeBus answering at addr.
func NewFakeBus(addr uint16) *FakeBus {
	return &FakeBus{Addr: addr, config: 0x8583}
}

// Tx implements drivers.I2C.
func (f *FakeBus) Tx(addr uint16, w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs++

	want := f.Addr
	if want == 0 {
		want = AddressGround
	}
	if f.closed || addr != want {
		return ErrNoDevice
	}

	switch {
	case len(w) == 3 && len(r) == 0:
		if f.WriteError != nil {
			return f.WriteError
		}
		return f.write(w[0], uint16(w[1])<<8|uint16(w[2]))
	case len(w) == 1 && len(r) == 2:
		if f.ReadError != nil {
			return f.ReadError
		}
		v := f.read(w[0])
		r[0] = byte(v >> 8)
		r[1] = byte(v)
		return nil
	default:
		return errors.New("ads1115: fake bus: unsupported transfer")
	}
}

func (f *FakeBus) write(reg uint8, v uint16) error {
	switch reg {
	case regConfig:
		if v&configOS != 0 {
			ch := uint8(((v & configMuxMask) - configMuxSingle) / configMuxInc)
			if ch > 3 {
				return errors.New("ads1115: fake bus: differential mux not simulated")
			}
			if err := f.ChannelErrors[ch]; err != nil {
				return err
			}
			f.conversion = uint16(f.next(ch))
			f.conversions[ch]++
			f.busy = f.BusyPolls
		}
		f.config = v &^ configOS
	case regHiThreshold:
		f.hiThreshold = v
	case regLoThreshold:
		f.loThreshold = v
	case regConversion:
		// read-only
	}
	return nil
}

func (f *FakeBus) read(reg uint8) uint16 {
	switch reg {
	case regConfig:
		if f.Stuck {
			return f.config
		}
		if f.busy > 0 {
			f.busy--
			return f.config
		}
		return f.config | configOS
	case regConversion:
		return f.conversion
	case regHiThreshold:
		return f.hiThreshold
	case regLoThreshold:
		return f.loThreshold
	}
	return 0
}

func (f *FakeBus) next(ch uint8) int16 {
	s := f.Samples[ch]
	if len(s) == 0 {
		return 0
	}
	v := s[f.index[ch]]
	if f.index[ch] < len(s)-1 {
		f.index[ch]++
	}
	return v
}

// SetSamples replaces the scripted readings of ch and rewinds it.
func (f *FakeBus) SetSamples(ch uint8, samples ...int16) {
	f.mu.Lock()
	f.Samples[ch] = samples
	f.index[ch] = 0
	f.mu.Unlock()
}

// Config returns the last value written to the config register, without OS.
func (f *FakeBus) Config() uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.config
}

// Thresholds returns the hi and lo threshold registers.
func (f *FakeBus) Thresholds() (hi, lo uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hiThreshold, f.loThreshold
}

// Conversions returns how many conversions were started on ch.
func (f *FakeBus) Conversions(ch uint8) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conversions[ch]
}

// Transfers returns the number of Tx calls, including failed ones.
func (f *FakeBus) Transfers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txs
}

// Close marks the bus closed. Later transfers fail with ErrNoDevice.
func (f *FakeBus) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *FakeBus) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
