package knobs

import "github.com/emshotton/knobz/internal/mathx"

// SampleInterval is the minimum accumulated time, in microseconds, between
// two samples.
const SampleInterval uint32 = 1000

// timer gates sampling to at most once per SampleInterval of caller time.
type timer struct {
	elapsed uint32
}

// tick adds dt and reports whether a sample is due. When it is, the
// accumulated time restarts from zero; the excess over SampleInterval is
// dropped, not carried into the next period.
func (t *timer) tick(dt uint32) bool {
	t.elapsed = mathx.SatAddU32(t.elapsed, dt)
	if t.elapsed < SampleInterval {
		return false
	}
	t.elapsed = 0
	return true
}
