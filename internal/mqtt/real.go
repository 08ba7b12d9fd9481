package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// DefaultBufferSize is how many messages are held while the broker is unreachable.
const DefaultBufferSize = 256

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
	prefix string

	// mu orders buffering against the replay in onConnect.
	mu     sync.Mutex
	outbox *outbox
}

func newPublisher(prefix string) *RealPublisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RealPublisher{
		prefix: prefix,
		outbox: newOutbox(DefaultBufferSize),
	}
}

// NewRealPublisher creates a publisher connected to the given broker.
// The broker is told to publish SHUTDOWN/MQTT_DISCONNECT on the system
// topic if the connection drops without a clean Close.
func NewRealPublisher(broker, prefix, clientID string) (*RealPublisher, error) {
	p := newPublisher(prefix)

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(time.Minute).
		SetBinaryWill(SystemTopic(p.prefix), will, 1, false).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		}).
		SetOnConnectHandler(p.onConnect)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		// ConnectRetry keeps trying in the background; publishes buffer until then.
		log.Printf("mqtt: broker %s not reachable yet, buffering", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// onConnect replays anything buffered during an outage, then announces
// RECONNECTED. It runs on the initial connect too, where the outbox is
// normally empty and nothing is sent.
func (p *RealPublisher) onConnect(c paho.Client) {
	replayed := 0
	for {
		p.mu.Lock()
		pending, dropped := p.outbox.drain()
		p.mu.Unlock()
		if len(pending) == 0 {
			break
		}
		if dropped > 0 {
			log.Printf("mqtt: outbox overflowed, %d messages lost", dropped)
		}
		for _, m := range pending {
			c.Publish(m.topic, m.qos, m.retained, m.payload)
		}
		replayed += len(pending)
	}
	if replayed == 0 {
		return
	}
	log.Printf("mqtt: reconnected, replayed %d buffered messages", replayed)

	payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
	if err != nil {
		log.Printf("mqtt: format reconnect event: %v", err)
		return
	}
	c.Publish(SystemTopic(p.prefix), 1, false, payload)
}

// IsConnected reports whether the client currently has a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Publish sends a knob change to the MQTT broker.
func (p *RealPublisher) Publish(event Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.send(bufferedMsg{topic: EventsTopic(p.prefix), payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	return p.send(bufferedMsg{
		topic:    SystemTopic(p.prefix),
		payload:  payload,
		qos:      1,
		retained: event.Retained,
	})
}

func (p *RealPublisher) send(m bufferedMsg) error {
	// The check and the push share the lock so a concurrent onConnect
	// either sees the message or the connection is already open.
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		p.outbox.push(m)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
