package mqtt

// bufferedMsg is a serialized message held for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages published while the broker is unreachable. Replay
// is oldest first, so a knob's last value on the broker is its latest one.
// When full the oldest message is dropped. Not safe for concurrent use.
type outbox struct {
	msgs    []bufferedMsg
	limit   int
	dropped int
}

// newOutbox returns an outbox holding at most limit messages; limit < 1
// means DefaultBufferSize.
func newOutbox(limit int) *outbox {
	if limit < 1 {
		limit = DefaultBufferSize
	}
	return &outbox{limit: limit}
}

func (o *outbox) push(m bufferedMsg) {
	if len(o.msgs) == o.limit {
		copy(o.msgs, o.msgs[1:])
		o.msgs = o.msgs[:len(o.msgs)-1]
		o.dropped++
	}
	o.msgs = append(o.msgs, m)
}

// drain empties the outbox, returning its messages oldest first and how many
// were dropped since the previous drain.
func (o *outbox) drain() ([]bufferedMsg, int) {
	msgs, dropped := o.msgs, o.dropped
	o.msgs, o.dropped = nil, 0
	return msgs, dropped
}

func (o *outbox) len() int { return len(o.msgs) }
