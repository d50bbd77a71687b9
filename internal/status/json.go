package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Ready         bool          `json:"ready"`
	Pressed       []string      `json:"pressed"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	Ticks         uint64        `json:"ticks"`
	SourceErrors  uint64        `json:"source_errors"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Counts        CountsJSON    `json:"event_counts"`
	Channels      []ChannelJSON `json:"channels"`
	Config        ConfigJSON    `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	KeyDown int `json:"key_down"`
	KeyUp   int `json:"key_up"`
}

// ChannelJSON is the JSON representation of one pad.
type ChannelJSON struct {
	Index            int    `json:"index"`
	Pin              int    `json:"pin"`
	Key              string `json:"key"`
	Pressed          bool   `json:"pressed"`
	Low              uint8  `json:"low"`
	High             uint8  `json:"high"`
	LowSum           int    `json:"low_sum"`
	HighSum          int    `json:"high_sum"`
	NeedsCalibration bool   `json:"needs_calibration"`
	Degenerate       bool   `json:"degenerate"`
	GrayZoneTicks    uint32 `json:"grayzone_ticks"`
	DebounceTicks    uint32 `json:"debounce_ticks"`
	Calibrations     uint32 `json:"calibrations"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Name              string `json:"name"`
	TickMs            int64  `json:"tick_ms"`
	HeartbeatMs       int64  `json:"heartbeat_ms"`
	Broker            string `json:"broker"`
	NATSURL           string `json:"nats_url,omitempty"`
	HTTPAddr          string `json:"http_addr"`
	SamplesNum        int    `json:"samples"`
	LowPercent        int    `json:"low_percent"`
	HighPercent       int    `json:"high_percent"`
	PressMargin       uint8  `json:"press_margin"`
	ReleaseMargin     uint8  `json:"release_margin"`
	Hysteresis        uint32 `json:"hysteresis"`
	MaxTimeInGrayzone uint32 `json:"max_time_in_grayzone"`
}

func buildInner(snap Snapshot) StatusInner {
	p := snap.Config.Params
	inner := StatusInner{
		Ready:         snap.Ready(),
		Pressed:       []string{},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Ticks:         snap.Ticks,
		SourceErrors:  snap.SourceErrors,
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts:        CountsJSON{KeyDown: snap.Counts.Down, KeyUp: snap.Counts.Up},
		Channels:      make([]ChannelJSON, 0, len(snap.Channels)),
		Config: ConfigJSON{
			Name:              snap.Config.Name,
			TickMs:            snap.Config.TickMs,
			HeartbeatMs:       snap.Config.HeartbeatMs,
			Broker:            snap.Config.Broker,
			NATSURL:           snap.Config.NATSURL,
			HTTPAddr:          snap.Config.HTTPAddr,
			SamplesNum:        p.SamplesNum,
			LowPercent:        p.LowPercent,
			HighPercent:       p.HighPercent,
			PressMargin:       p.PressMargin,
			ReleaseMargin:     p.ReleaseMargin,
			Hysteresis:        p.Hysteresis,
			MaxTimeInGrayzone: p.MaxTimeInGrayzone,
		},
	}

	for _, ch := range snap.Channels {
		key := snap.KeyName(ch.Index)
		if ch.Pressed {
			inner.Pressed = append(inner.Pressed, key)
		}
		inner.Channels = append(inner.Channels, ChannelJSON{
			Index:            ch.Index,
			Pin:              ch.Pin,
			Key:              key,
			Pressed:          ch.Pressed,
			Low:              ch.Low,
			High:             ch.High,
			LowSum:           ch.LowSum,
			HighSum:          ch.HighSum,
			NeedsCalibration: ch.NeedsCalibration,
			Degenerate:       ch.Degenerate(),
			GrayZoneTicks:    ch.GrayZoneTicks,
			DebounceTicks:    ch.DebounceTicks,
			Calibrations:     ch.Calibrations,
		})
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
