package mqtt

// FakePublisher records published knob and system events for test assertions.
// Topics are derived from Prefix exactly as RealPublisher derives them.
type FakePublisher struct {
	// Prefix is the topic prefix; empty means DefaultPrefix.
	Prefix string

	// Events and Payloads hold each published knob change and its JSON.
	Events   []Event
	Payloads [][]byte

	// SystemEvents and SystemPayloads hold each lifecycle event and its JSON.
	SystemEvents   []SystemEvent
	SystemPayloads [][]byte

	// Topics lists the topic of every recorded publish, in order.
	Topics []string

	// PublishError and PublishSystemError, if set, fail the matching call
	// without recording anything.
	PublishError       error
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher using DefaultPrefix.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) prefix() string {
	if f.Prefix == "" {
		return DefaultPrefix
	}
	return f.Prefix
}

// Publish records the knob change.
func (f *FakePublisher) Publish(event Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	f.Topics = append(f.Topics, EventsTopic(f.prefix()))
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	f.Topics = append(f.Topics, SystemTopic(f.prefix()))
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears everything recorded and any injected errors.
func (f *FakePublisher) Reset() {
	*f = FakePublisher{Prefix: f.Prefix}
}
