package knobs

import (
	"fmt"
	"strings"

	"github.com/emshotton/knobz/internal/mathx"
)

// MaxChannelValue is the ceiling of the Full range. It is the reading of a
// knob at the supply rail with the ADC at +/-4.096 V full scale.
const MaxChannelValue uint16 = 26427

// Range is the output bucket a channel's raw reading is scaled into.
type Range uint8

const (
	Within1023 Range = iota // default
	Within255
	Within511
	Full
)

// Valid reports whether r is one of the four buckets.
func (r Range) Valid() bool { return r <= Full }

// Max returns the largest value Scale can produce for r.
func (r Range) Max() uint16 {
	max, _ := r.params()
	return max
}

func (r Range) params() (max, divisor uint16) {
	switch r {
	case Within255:
		return 255, 103
	case Within511:
		return 511, 51
	case Full:
		return MaxChannelValue, 1
	default:
		return 1023, 25
	}
}

func (r Range) String() string {
	switch r {
	case Within255:
		return "0-255"
	case Within511:
		return "0-511"
	case Within1023:
		return "0-1023"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("Range(%d)", uint8(r))
	}
}

// ParseRange accepts "255", "511", "1023", "full" and the String forms.
func ParseRange(s string) (Range, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "255", "0-255":
		return Within255, nil
	case "511", "0-511":
		return Within511, nil
	case "1023", "0-1023":
		return Within1023, nil
	case "full":
		return Full, nil
	}
	return 0, fmt.Errorf("unknown range %q (want 255, 511, 1023 or full)", s)
}

// Scale maps a raw ADC sample into r. Negative samples count as zero.
//
// For the Full range the polarity is the opposite of the other three: the
// non-inverted value counts down from MaxChannelValue.
func Scale(raw int16, r Range, inverted bool) uint16 {
	v := uint16(mathx.Max(raw, 0))
	max, divisor := r.params()
	if r == Full {
		c := mathx.Min(v, max)
		if inverted {
			return c
		}
		return max - c
	}
	c := mathx.Min(max, v/divisor)
	if inverted {
		return max - c
	}
	return c
}
