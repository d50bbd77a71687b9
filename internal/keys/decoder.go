package keys

import (
	"time"

	"github.com/sweeney/touch-keys/internal/capsense"
)

// Decoder diffs successive pressed bitmaps into key events.
type Decoder struct {
	keys          []string
	prev          capsense.Bitmap
	counts        Counts
	startTime     time.Time
	lastHeartbeat time.Time
}

// NewDecoder creates a decoder for the named channels. All keys start up.
// The startTime is used for calculating uptime in heartbeat events.
func NewDecoder(keys []string, startTime time.Time) *Decoder {
	return &Decoder{
		keys:          keys,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process returns the transitions between the previous bitmap and bm,
// in channel order.
func (d *Decoder) Process(bm capsense.Bitmap, now time.Time) []Event {
	changed := d.prev ^ bm
	if changed == 0 {
		return nil
	}

	var events []Event
	for i, key := range d.keys {
		if !changed.Pressed(i) {
			continue
		}
		e := Event{Timestamp: now, Channel: i, Key: key, Type: KeyUp}
		if bm.Pressed(i) {
			e.Type = KeyDown
			d.counts.Down++
		} else {
			d.counts.Up++
		}
		events = append(events, e)
	}

	d.prev = bm
	return events
}

// Pressed returns the last processed bitmap.
func (d *Decoder) Pressed() capsense.Bitmap {
	return d.prev
}

// Keys returns the channel names.
func (d *Decoder) Keys() []string {
	return d.keys
}

// Counts returns the event counts since startup.
func (d *Decoder) Counts() Counts {
	return d.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (d *Decoder) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.counts,
	}
}
