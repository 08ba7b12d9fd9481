// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/emshotton/knobz/internal/knobs"
)

// DefaultPrefix is the topic prefix used when none is configured.
const DefaultPrefix = "knobz"

// EventsTopic returns the topic knob changes are published on.
func EventsTopic(prefix string) string { return prefix + "/events" }

// SystemTopic returns the topic system lifecycle events are published on.
func SystemTopic(prefix string) string { return prefix + "/system" }

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a knob change to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Event is a knob change with the context needed to interpret its value.
type Event struct {
	Timestamp time.Time
	Channel   knobs.Channel
	Value     uint16
	Range     knobs.Range
	Inverted  bool
}

// NewEvent describes a change as seen at time now.
func NewEvent(now time.Time, c knobs.Change, r knobs.Range, inverted bool) Event {
	return Event{Timestamp: now, Channel: c.Channel, Value: c.Value, Range: r, Inverted: inverted}
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Knob KnobPayload `json:"knob"`
}

// KnobPayload contains the knob change details.
type KnobPayload struct {
	Timestamp string `json:"timestamp"`
	Channel   string `json:"channel"`
	Value     uint16 `json:"value"`
	Range     string `json:"range"`
	Max       uint16 `json:"max"`
	Inverted  bool   `json:"inverted"`
}

// FormatPayload creates the JSON payload for a knob change.
func FormatPayload(event Event) ([]byte, error) {
	payload := Payload{
		Knob: KnobPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Channel:   event.Channel.String(),
			Value:     event.Value,
			Range:     event.Range.String(),
			Max:       event.Range.Max(),
			Inverted:  event.Inverted,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
