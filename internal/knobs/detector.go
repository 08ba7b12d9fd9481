package knobs

// detector remembers the last scaled value of every channel.
type detector struct {
	last [NumChannels]uint16
}

// observe stores v for ch and reports whether it differs from the value
// stored before.
func (d *detector) observe(ch Channel, v uint16) (uint16, bool) {
	changed := d.last[ch] != v
	d.last[ch] = v
	return v, changed
}
