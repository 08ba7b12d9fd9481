// Package status provides a thread-safe status tracker for the knobz daemon.
// It is read by HTTP handlers and fans live changes out to websocket clients.
package status

import (
	"sync"
	"time"

	"github.com/emshotton/knobz/internal/knobs"
)

// NetworkInfo contains network state as reported by the host's network helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Bus         string
	Address     string
	TickUs      int64
	HeartbeatMs int64
	Broker      string
	Topic       string
	HTTPAddr    string
}

// Knob is the last known state of one input channel.
type Knob struct {
	Value    uint16
	Range    knobs.Range
	Inverted bool
	Changes  int
}

// Change is a single recorded value change, as delivered to subscribers.
type Change struct {
	Timestamp time.Time
	Channel   knobs.Channel
	Value     uint16
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Knobs         [knobs.NumChannels]Knob
	Stats         knobs.Stats
	StartTime     time.Time
	Now           time.Time
	LastChange    time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// TotalChanges sums the per-channel change counts.
func (s Snapshot) TotalChanges() int {
	n := 0
	for _, k := range s.Knobs {
		n += k.Changes
	}
	return n
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu            sync.RWMutex
	snap          Snapshot
	lastHeartbeat time.Time
	subs          map[chan Change]struct{}
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		lastHeartbeat: startTime,
		subs:          make(map[chan Change]struct{}),
	}
}

// SetChannel records the range and inversion configured for ch.
func (t *Tracker) SetChannel(ch knobs.Channel, r knobs.Range, inverted bool) {
	if !ch.Valid() {
		return
	}
	t.mu.Lock()
	t.snap.Knobs[ch].Range = r
	t.snap.Knobs[ch].Inverted = inverted
	t.mu.Unlock()
}

// SetStats stores the controller's counters. Called from runLoop on every tick.
func (t *Tracker) SetStats(s knobs.Stats) {
	t.mu.Lock()
	t.snap.Stats = s
	t.mu.Unlock()
}

// RecordChange stores a new channel value and forwards it to subscribers.
// Subscribers that are not keeping up miss the change.
func (t *Tracker) RecordChange(now time.Time, c knobs.Change) {
	if !c.Channel.Valid() {
		return
	}
	t.mu.Lock()
	k := &t.snap.Knobs[c.Channel]
	k.Value = c.Value
	k.Changes++
	t.snap.LastChange = now

	ev := Change{Timestamp: now, Channel: c.Channel, Value: c.Value}
	for ch := range t.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	t.mu.Unlock()
}

// Subscribe registers a listener for recorded changes. The returned cancel
// func unregisters it and closes the channel.
func (t *Tracker) Subscribe(buffer int) (<-chan Change, func()) {
	ch := make(chan Change, buffer)
	t.mu.Lock()
	t.subs[ch] = struct{}{}
	t.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, ch)
			t.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of registered listeners.
func (t *Tracker) Subscribers() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// CheckHeartbeat reports whether interval has elapsed since the last
// heartbeat (or startup), and if so starts a new interval at now.
// An interval <= 0 disables heartbeats.
func (t *Tracker) CheckHeartbeat(now time.Time, interval time.Duration) bool {
	if interval <= 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if now.Sub(t.lastHeartbeat) < interval {
		return false
	}
	t.lastHeartbeat = now
	return true
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
