package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/emshotton/knobz/internal/knobs"
)

var testTime = time.Date(2026, 1, 30, 12, 0, 0, 0, time.UTC)

func TestTopics(t *testing.T) {
	if got := EventsTopic("studio/desk"); got != "studio/desk/events" {
		t.Errorf("EventsTopic: got %q", got)
	}
	if got := SystemTopic(DefaultPrefix); got != "knobz/system" {
		t.Errorf("SystemTopic: got %q", got)
	}
}

func TestFormatPayload(t *testing.T) {
	ev := NewEvent(testTime, knobs.Change{Channel: knobs.A1, Value: 512}, knobs.Within1023, false)

	got, err := FormatPayload(ev)
	if err != nil {
		t.Fatalf("FormatPayload: %v", err)
	}
	want := `{"knob":{"timestamp":"2026-01-30T12:00:00Z","channel":"A1","value":512,"range":"0-1023","max":1023,"inverted":false}}`
	if string(got) != want {
		t.Errorf("payload mismatch:\ngot:  %s\nwant: %s", got, want)
	}
}

func TestFormatPayloadFullInverted(t *testing.T) {
	ev := Event{
		Timestamp: testTime.In(time.FixedZone("CET", 3600)),
		Channel:   knobs.A3,
		Value:     knobs.MaxChannelValue,
		Range:     knobs.Full,
		Inverted:  true,
	}
	got, err := FormatPayload(ev)
	if err != nil {
		t.Fatalf("FormatPayload: %v", err)
	}

	var p Payload
	if err := json.Unmarshal(got, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Knob.Timestamp != "2026-01-30T12:00:00Z" {
		t.Errorf("timestamp should be UTC, got %s", p.Knob.Timestamp)
	}
	if p.Knob.Range != "full" || p.Knob.Max != knobs.MaxChannelValue || !p.Knob.Inverted {
		t.Errorf("unexpected knob payload %+v", p.Knob)
	}
}

func TestFormatSystemPayload(t *testing.T) {
	got, err := FormatSystemPayload(SystemEvent{Timestamp: testTime, Event: "SHUTDOWN", Reason: "SIGTERM"})
	if err != nil {
		t.Fatalf("FormatSystemPayload: %v", err)
	}
	want := `{"system":{"timestamp":"2026-01-30T12:00:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(got) != want {
		t.Errorf("payload mismatch:\ngot:  %s\nwant: %s", got, want)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	got, err := FormatSystemPayload(SystemEvent{Timestamp: testTime, Event: "RECONNECTED"})
	if err != nil {
		t.Fatalf("FormatSystemPayload: %v", err)
	}
	var m map[string]map[string]interface{}
	if err := json.Unmarshal(got, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := m["system"]["reason"]; ok {
		t.Error("reason should be omitted when empty")
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":"ok"}`)
	got, err := FormatSystemPayload(SystemEvent{Event: "HEARTBEAT", RawPayload: raw})
	if err != nil {
		t.Fatalf("FormatSystemPayload: %v", err)
	}
	if string(got) != string(raw) {
		t.Errorf("got %s, want raw payload passed through", got)
	}
}

func TestFakePublisherRecords(t *testing.T) {
	pub := NewFakePublisher()
	var _ Publisher = pub
	var _ ConnectionStatus = pub

	ev := NewEvent(testTime, knobs.Change{Channel: knobs.A0, Value: 7}, knobs.Within255, false)
	if err := pub.Publish(ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := pub.PublishSystem(SystemEvent{Timestamp: testTime, Event: "STARTUP"}); err != nil {
		t.Fatalf("PublishSystem: %v", err)
	}
	if len(pub.Events) != 1 || len(pub.Payloads) != 1 {
		t.Errorf("events: got %d/%d, want 1/1", len(pub.Events), len(pub.Payloads))
	}
	if len(pub.SystemEvents) != 1 || pub.SystemEvents[0].Event != "STARTUP" {
		t.Errorf("system events: %+v", pub.SystemEvents)
	}
	if len(pub.Topics) != 2 || pub.Topics[0] != "knobz/events" || pub.Topics[1] != "knobz/system" {
		t.Errorf("topics: %v", pub.Topics)
	}

	pub.Close()
	if !pub.Closed {
		t.Error("Close not recorded")
	}
	pub.Prefix = "desk"
	pub.Reset()
	if pub.Events != nil || pub.Topics != nil || pub.Closed {
		t.Error("Reset did not clear state")
	}
	pub.Publish(ev)
	if pub.Topics[0] != "desk/events" {
		t.Errorf("Reset should keep the prefix, got topic %q", pub.Topics[0])
	}
}

func TestFakePublisherErrors(t *testing.T) {
	pub := NewFakePublisher()
	pub.PublishError = errors.New("broker down")
	pub.PublishSystemError = errors.New("broker down")

	if err := pub.Publish(Event{}); err == nil {
		t.Error("expected Publish error")
	}
	if err := pub.PublishSystem(SystemEvent{}); err == nil {
		t.Error("expected PublishSystem error")
	}
	if len(pub.Events) != 0 || len(pub.SystemEvents) != 0 {
		t.Error("failed publishes should not be recorded")
	}
}
