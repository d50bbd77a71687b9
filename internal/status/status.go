// Package status provides a thread-safe status tracker for the touch-keys
// daemon. It is read by the HTTP handlers and the MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/touch-keys/internal/capsense"
	"github.com/sweeney/touch-keys/internal/keys"
)

// Config contains daemon configuration for display.
type Config struct {
	Name        string
	Keys        []string
	TickMs      int64
	HeartbeatMs int64
	Broker      string
	NATSURL     string
	HTTPAddr    string
	Params      capsense.Params
}

// Snapshot is a point-in-time view of daemon state. Safe to use after the
// lock is released.
type Snapshot struct {
	Channels      []capsense.ChannelInfo
	Pressed       capsense.Bitmap
	Ticks         uint64
	Counts        keys.Counts
	SourceErrors  uint64
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Ready reports whether every channel has been calibrated.
func (s Snapshot) Ready() bool {
	if len(s.Channels) == 0 {
		return false
	}
	for _, ch := range s.Channels {
		if ch.NeedsCalibration || ch.Calibrations == 0 {
			return false
		}
	}
	return true
}

// KeyName returns the configured name for channel i.
func (s Snapshot) KeyName(i int) string {
	return keys.Names(i+1, s.Config.Keys)[i]
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the result of one engine tick.
func (t *Tracker) Update(channels []capsense.ChannelInfo, pressed capsense.Bitmap, counts keys.Counts) {
	t.mu.Lock()
	t.snap.Channels = channels
	t.snap.Pressed = pressed
	t.snap.Counts = counts
	t.snap.Ticks++
	t.mu.Unlock()
}

// SetSourceErrors sets the number of failed pad reads.
func (t *Tracker) SetSourceErrors(n uint64) {
	t.mu.Lock()
	t.snap.SourceErrors = n
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Channels = append([]capsense.ChannelInfo(nil), t.snap.Channels...)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
