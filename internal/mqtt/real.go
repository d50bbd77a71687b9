package mqtt

import (
	"fmt"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/touch-keys/internal/keys"
)

// DefaultBufferSize is the number of messages held while disconnected.
const DefaultBufferSize = 256

// Config configures a RealPublisher.
type Config struct {
	Broker     string
	ClientID   string
	Name       string // device name used in topics
	BufferSize int
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are held and replayed on reconnect.
type RealPublisher struct {
	client      paho.Client
	topic       string
	topicSystem string
	out         *outbox
	connects    atomic.Int32
}

// NewRealPublisher creates a publisher connected to the configured broker.
func NewRealPublisher(cfg Config) (*RealPublisher, error) {
	if cfg.ClientID == "" {
		cfg.ClientID = "touch-keys-" + cfg.Name
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}

	p := &RealPublisher{
		topic:       TopicEvents(cfg.Name),
		topicSystem: TopicSystem(cfg.Name),
		out:         newOutbox(cfg.BufferSize),
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(p.topicSystem, string(WillPayload()), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.WithError(err).Warn("mqtt: connection lost")
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// onConnect replays held messages. Every connect after the first also
// announces RECONNECTED.
func (p *RealPublisher) onConnect(_ paho.Client) {
	if p.connects.Add(1) > 1 {
		msg, _ := systemMessage(p.topicSystem, SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED", Retained: true})
		if err := p.send(msg); err != nil {
			log.WithError(err).Warn("mqtt: publish reconnected")
		}
	}

	n, err := p.out.flush(p.send)
	if err != nil {
		log.WithError(err).WithField("replayed", n).Warn("mqtt: replay interrupted")
		return
	}
	if n > 0 {
		log.WithField("replayed", n).Info("mqtt: replayed buffered messages")
	}
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.out.hold(msg)
		return nil
	}
	return p.send(msg)
}

// keyMessage builds the QoS 0 message for a key event.
func keyMessage(topic string, event keys.Event) (bufferedMsg, error) {
	payload, err := FormatPayload(event)
	if err != nil {
		return bufferedMsg{}, fmt.Errorf("format payload: %w", err)
	}
	return bufferedMsg{topic: topic, payload: payload}, nil
}

// systemMessage builds the QoS 1 message for a system event.
func systemMessage(topic string, event SystemEvent) (bufferedMsg, error) {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return bufferedMsg{}, fmt.Errorf("format system payload: %w", err)
	}
	return bufferedMsg{topic: topic, payload: payload, qos: 1, retained: event.Retained}, nil
}

// Publish sends a key event to the MQTT broker.
func (p *RealPublisher) Publish(event keys.Event) error {
	msg, err := keyMessage(p.topic, event)
	if err != nil {
		return err
	}
	return p.publish(msg)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	msg, err := systemMessage(p.topicSystem, event)
	if err != nil {
		return err
	}
	return p.publish(msg)
}

// IsConnected reports whether the broker connection is currently open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Pending returns the number of messages held for replay.
func (p *RealPublisher) Pending() int {
	return p.out.pending()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
