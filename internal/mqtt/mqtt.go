// Package mqtt publishes key and system events to an MQTT broker, with a
// fake for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/touch-keys/internal/keys"
)

// TopicEvents returns the topic for key events of the named device.
func TopicEvents(name string) string {
	return "touchkeys/" + name + "/events"
}

// TopicSystem returns the topic for system lifecycle events of the named device.
func TopicSystem(name string) string {
	return "touchkeys/" + name + "/system"
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a key event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event keys.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // STARTUP, SHUTDOWN, HEARTBEAT, RECONNECTED, OFFLINE
	Reason     string // signal name, shutdown only
	RawPayload []byte // if set, FormatSystemPayload returns it as is
	Retained   bool
}

// Payload is the MQTT message for a key event.
type Payload struct {
	Key KeyPayload `json:"key"`
}

// KeyPayload contains the key event details.
type KeyPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Channel   int    `json:"channel"`
	Name      string `json:"name"`
	Pressed   bool   `json:"pressed"`
}

// FormatPayload creates the JSON payload for a key event.
func FormatPayload(event keys.Event) ([]byte, error) {
	payload := Payload{
		Key: KeyPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
			Event:     string(event.Type),
			Channel:   event.Channel,
			Name:      event.Key,
			Pressed:   event.Pressed(),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the message for simple system events (LWT, RECONNECTED)
// that don't carry a status snapshot.
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

// WillPayload is the last-will message the broker publishes when the
// connection drops uncleanly.
func WillPayload() []byte {
	data, _ := json.Marshal(SystemPayload{System: SystemPayloadInner{Event: "OFFLINE"}})
	return data
}
