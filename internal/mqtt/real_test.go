package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/emshotton/knobz/internal/knobs"
)

// doneToken is an already-completed paho token.
type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type sentMsg struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient is a paho.Client with a switchable connection that records
// publishes. Methods the publisher does not use panic via the nil embed.
type fakeClient struct {
	paho.Client

	mu        sync.Mutex
	connected bool
	sent      []sentMsg
	err       error
}

func (c *fakeClient) IsConnectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentMsg{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return doneToken{err: c.err}
}

func (c *fakeClient) Disconnect(uint) {}

func newTestPublisher(connected bool) (*RealPublisher, *fakeClient) {
	c := &fakeClient{connected: connected}
	p := newPublisher("studio")
	p.client = c
	return p, c
}

func knobEvent(v uint16) Event {
	return NewEvent(testTime, knobs.Change{Channel: knobs.A0, Value: v}, knobs.Within1023, false)
}

func TestRealPublisherSendsWhenConnected(t *testing.T) {
	p, c := newTestPublisher(true)

	if err := p.Publish(knobEvent(12)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Timestamp: testTime, Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("PublishSystem: %v", err)
	}

	if len(c.sent) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(c.sent))
	}
	if m := c.sent[0]; m.topic != "studio/events" || m.qos != 0 || m.retained {
		t.Errorf("event publish: %+v", m)
	}
	if m := c.sent[1]; m.topic != "studio/system" || m.qos != 1 || !m.retained {
		t.Errorf("system publish: %+v", m)
	}
	if p.outbox.len() != 0 {
		t.Error("nothing should be buffered while connected")
	}
	if !p.IsConnected() {
		t.Error("IsConnected should follow the client")
	}
}

func TestRealPublisherPublishError(t *testing.T) {
	p, c := newTestPublisher(true)
	c.err = errors.New("not authorized")

	if err := p.Publish(knobEvent(1)); err == nil {
		t.Error("expected publish error")
	}
}

func TestRealPublisherBuffersAndReplays(t *testing.T) {
	p, c := newTestPublisher(false)

	for _, v := range []uint16{10, 20, 30} {
		if err := p.Publish(knobEvent(v)); err != nil {
			t.Fatalf("Publish while disconnected: %v", err)
		}
	}
	if err := p.PublishSystem(SystemEvent{Timestamp: testTime, Event: "HEARTBEAT", Retained: true}); err != nil {
		t.Fatalf("PublishSystem while disconnected: %v", err)
	}
	if len(c.sent) != 0 {
		t.Fatalf("expected nothing sent while disconnected, got %d", len(c.sent))
	}
	if p.outbox.len() != 4 {
		t.Fatalf("outbox: got %d, want 4", p.outbox.len())
	}

	c.setConnected(true)
	p.onConnect(c)

	if len(c.sent) != 5 {
		t.Fatalf("expected 4 replays and RECONNECTED, got %d", len(c.sent))
	}
	for i, want := range []uint16{10, 20, 30} {
		var pl Payload
		if err := json.Unmarshal(c.sent[i].payload, &pl); err != nil {
			t.Fatalf("replay %d: %v", i, err)
		}
		if pl.Knob.Value != want || c.sent[i].topic != "studio/events" || c.sent[i].qos != 0 {
			t.Errorf("replay %d: got value %d on %s qos %d", i, pl.Knob.Value, c.sent[i].topic, c.sent[i].qos)
		}
	}
	if m := c.sent[3]; m.topic != "studio/system" || m.qos != 1 || !m.retained {
		t.Errorf("replayed heartbeat lost its flags: %+v", m)
	}

	var sys SystemPayload
	if err := json.Unmarshal(c.sent[4].payload, &sys); err != nil {
		t.Fatalf("unmarshal RECONNECTED: %v", err)
	}
	if sys.System.Event != "RECONNECTED" || c.sent[4].topic != "studio/system" || c.sent[4].retained {
		t.Errorf("last message: %s on %s", sys.System.Event, c.sent[4].topic)
	}
	if p.outbox.len() != 0 {
		t.Error("outbox should be empty after replay")
	}
}

func TestRealPublisherConnectWithEmptyOutbox(t *testing.T) {
	p, c := newTestPublisher(true)
	p.onConnect(c)
	if len(c.sent) != 0 {
		t.Errorf("expected no messages on a clean connect, got %d", len(c.sent))
	}
}

func TestRealPublisherConcurrentReconnect(t *testing.T) {
	p, c := newTestPublisher(false)
	const n = 200

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			p.Publish(knobEvent(uint16(i)))
		}
	}()
	c.setConnected(true)
	p.onConnect(c)
	wg.Wait()

	// Every message is either sent directly or replayed; none is stranded.
	if p.outbox.len() != 0 {
		t.Errorf("%d messages stranded in the outbox", p.outbox.len())
	}
	events := 0
	for _, m := range c.sent {
		if m.topic == "studio/events" {
			events++
		}
	}
	if events != n {
		t.Errorf("sent %d knob events, want %d", events, n)
	}
}
