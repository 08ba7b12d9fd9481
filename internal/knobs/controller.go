package knobs

import (
	"errors"
	"fmt"

	"github.com/emshotton/knobz/internal/ads1115"
	"tinygo.org/x/drivers"
)

// FullScale is the PGA setting the knobs are sampled at. MaxChannelValue is
// only meaningful at this setting.
const FullScale = ads1115.Range4096

// ErrConfig matches any *ConfigError.
var ErrConfig = errors.New("knobs: front end configuration failed")

// ConfigError is returned by New when the front end rejects its
// configuration. No Controller exists in that case.
type ConfigError struct {
	Address Address
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("knobs: configure ADC at %s: %v", e.Address, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrConfig) match.
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// FrontEnd is the analog front end a Controller samples. *ads1115.Device
// implements it.
type FrontEnd interface {
	// SetFullScaleRange is called once, from the constructor.
	SetFullScaleRange(r ads1115.FullScaleRange) error
	// ReadSingle performs one blocking single-shot conversion of channel ch.
	ReadSingle(ch uint8) (int16, error)
	// Release returns the underlying bus.
	Release() drivers.I2C
}

type channelState struct {
	rng      Range
	inverted bool
}

// Controller samples four knobs round-robin and reports changes.
type Controller struct {
	fe       FrontEnd
	addr     Address
	channels [NumChannels]channelState
	values   detector
	cursor   Channel
	timer    timer
	stats    Stats
}

// New creates a Controller for the ADS1115 at addr on bus. cfg is passed to
// the driver; its zero value suits most boards.
func New(bus drivers.I2C, addr Address, cfg ads1115.Config) (*Controller, error) {
	dev := ads1115.New(bus, addr.BusAddress(), cfg)
	if err := dev.Configure(); err != nil {
		return nil, &ConfigError{Address: addr, Err: err}
	}
	return NewWithFrontEnd(dev, addr)
}

// NewWithFrontEnd creates a Controller sampling fe. addr only sets the
// sampling phase; fe must already talk to the right device.
func NewWithFrontEnd(fe FrontEnd, addr Address) (*Controller, error) {
	if err := fe.SetFullScaleRange(FullScale); err != nil {
		return nil, &ConfigError{Address: addr, Err: err}
	}
	return &Controller{
		fe:    fe,
		addr:  addr,
		timer: timer{elapsed: addr.PhaseOffset()},
	}, nil
}

// SetChannelRange changes the bucket ch is scaled into. The cached value is
// not rescaled; the next sample of ch uses the new range. Invalid channels
// or ranges are ignored.
func (c *Controller) SetChannelRange(ch Channel, r Range) {
	if !ch.Valid() || !r.Valid() {
		return
	}
	c.channels[ch].rng = r
}

// SetInvertChannel flips the direction of ch from its next sample on.
func (c *Controller) SetInvertChannel(ch Channel, inverted bool) {
	if !ch.Valid() {
		return
	}
	c.channels[ch].inverted = inverted
}

// Update advances the controller by dtUs microseconds. At most one channel
// is read per call. It returns the sampled channel and its new value only
// when that value changed; read errors are counted and otherwise ignored.
func (c *Controller) Update(dtUs uint32) (Change, bool) {
	if c.fe == nil || !c.timer.tick(dtUs) {
		return Change{}, false
	}

	ch := c.cursor
	c.cursor = ch.Next()

	raw, err := c.fe.ReadSingle(uint8(ch))
	if err != nil {
		c.stats.ReadErrors++
		return Change{}, false
	}
	c.stats.Samples++

	st := c.channels[ch]
	v, changed := c.values.observe(ch, Scale(raw, st.rng, st.inverted))
	if !changed {
		return Change{}, false
	}
	c.stats.Changes++
	return Change{Channel: ch, Value: v}, true
}

// Destroy returns the bus to the caller. The controller is inert afterwards:
// Update reports nothing and never touches the bus.
func (c *Controller) Destroy() drivers.I2C {
	if c.fe == nil {
		return nil
	}
	bus := c.fe.Release()
	c.fe = nil
	return bus
}

// Value returns the last scaled value of ch.
func (c *Controller) Value(ch Channel) uint16 {
	if !ch.Valid() {
		return 0
	}
	return c.values.last[ch]
}

// Range returns the configured bucket of ch.
func (c *Controller) Range(ch Channel) Range {
	if !ch.Valid() {
		return Within1023
	}
	return c.channels[ch].rng
}

// Inverted reports whether ch is inverted.
func (c *Controller) Inverted(ch Channel) bool {
	return ch.Valid() && c.channels[ch].inverted
}

// Cursor returns the channel the next sample will read.
func (c *Controller) Cursor() Channel { return c.cursor }

// Address returns the selector the controller was built with.
func (c *Controller) Address() Address { return c.addr }

// Stats returns counters since construction.
func (c *Controller) Stats() Stats { return c.stats }
