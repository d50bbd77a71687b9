// Package keys turns pressed bitmaps into key-down/key-up events and
// dispatches them to per-channel handlers and transport sinks.
package keys

import (
	"fmt"
	"time"
)

// EventType is a key transition.
type EventType string

const (
	KeyDown EventType = "KEY_DOWN"
	KeyUp   EventType = "KEY_UP"
)

// Event is one key transition to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Channel   int
	Key       string
}

// Pressed reports whether the event leaves the key down.
func (e Event) Pressed() bool {
	return e.Type == KeyDown
}

// Counts tracks the number of each event type since startup.
type Counts struct {
	Down int
	Up   int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
}

// Default key names for the default pads.
var DefaultKeys = []string{"up", "down", "left", "right"}

// Names returns n key names, taking them from keys and naming the rest
// after their channel.
func Names(n int, keys []string) []string {
	out := make([]string, n)
	for i := range out {
		if i < len(keys) && keys[i] != "" {
			out[i] = keys[i]
		} else {
			out[i] = fmt.Sprintf("key%d", i)
		}
	}
	return out
}
