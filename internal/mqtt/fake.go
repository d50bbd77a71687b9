package mqtt

import (
	"github.com/sweeney/touch-keys/internal/keys"
)

// Message is one publish as it would reach the broker.
type Message struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// FakePublisher records publishes without a broker. Messages are built by the
// same code as RealPublisher's, so topics, QoS and retain flags match.
type FakePublisher struct {
	// Name is the device name used in topics. Empty means "fake".
	Name string

	Events       []keys.Event
	SystemEvents []SystemEvent

	// Sent holds every recorded message, key and system, in publish order.
	Sent []Message

	// PublishError and PublishSystemError fail the matching call while set.
	// Failed calls record nothing.
	PublishError       error
	PublishSystemError error

	Connected bool
	Closed    bool
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) name() string {
	if f.Name == "" {
		return "fake"
	}
	return f.Name
}

func (f *FakePublisher) record(msg bufferedMsg) {
	f.Sent = append(f.Sent, Message{Topic: msg.topic, QoS: msg.qos, Retained: msg.retained, Payload: msg.payload})
}

func (f *FakePublisher) Publish(event keys.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	msg, err := keyMessage(TopicEvents(f.name()), event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.record(msg)
	return nil
}

func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	msg, err := systemMessage(TopicSystem(f.name()), event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.record(msg)
	return nil
}

// Payloads returns the key event payloads in publish order.
func (f *FakePublisher) Payloads() [][]byte {
	return f.payloads(TopicEvents(f.name()))
}

// SystemPayloads returns the system event payloads in publish order.
func (f *FakePublisher) SystemPayloads() [][]byte {
	return f.payloads(TopicSystem(f.name()))
}

func (f *FakePublisher) payloads(topic string) [][]byte {
	var out [][]byte
	for _, m := range f.Sent {
		if m.Topic == topic {
			out = append(out, m.Payload)
		}
	}
	return out
}

// SystemEventNames returns the Event field of each recorded system event.
func (f *FakePublisher) SystemEventNames() []string {
	names := make([]string, len(f.SystemEvents))
	for i, e := range f.SystemEvents {
		names[i] = e.Event
	}
	return names
}

func (f *FakePublisher) IsConnected() bool { return f.Connected }

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// Reset forgets everything except Name.
func (f *FakePublisher) Reset() {
	*f = FakePublisher{Name: f.Name}
}
