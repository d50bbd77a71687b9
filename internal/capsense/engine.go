package capsense

import (
	"errors"
	"fmt"
)

// Engine owns a fixed set of channels and produces one pressed bitmap per tick.
// Not safe for concurrent use; drive it from a single goroutine.
type Engine struct {
	params   Params
	lim      limits
	src      Source
	cal      *Calibrator
	channels []*Channel
}

// NewEngine creates an engine for the given pins, in report bit order.
// Channels start uncalibrated and released.
func NewEngine(p Params, src Source, pins []int) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if src == nil {
		return nil, errors.New("nil source")
	}
	if len(pins) == 0 {
		return nil, errors.New("no pins configured")
	}
	if len(pins) > MaxChannels {
		return nil, fmt.Errorf("%d pins configured, at most %d supported", len(pins), MaxChannels)
	}

	seen := make(map[int]bool, len(pins))
	channels := make([]*Channel, len(pins))
	for i, pin := range pins {
		if seen[pin] {
			return nil, fmt.Errorf("duplicate pin %d", pin)
		}
		seen[pin] = true
		channels[i] = newChannel(pin, p.SamplesNum)
	}

	return &Engine{
		params:   p,
		lim:      newLimits(p),
		src:      src,
		cal:      NewCalibrator(src, p),
		channels: channels,
	}, nil
}

// Len returns the number of channels.
func (e *Engine) Len() int {
	return len(e.channels)
}

// Params returns the engine tuning.
func (e *Engine) Params() Params {
	return e.params
}

// Calibrate calibrates every channel flagged for calibration.
func (e *Engine) Calibrate() {
	var pending []*Channel
	for _, ch := range e.channels {
		if ch.NeedsCalibration {
			ch.GrayZoneTicks = 0
			pending = append(pending, ch)
		}
	}
	e.cal.Calibrate(pending)
}

// Recalibrate flags channel i for calibration on the next tick.
func (e *Engine) Recalibrate(i int) {
	if i < 0 || i >= len(e.channels) {
		return
	}
	e.channels[i].NeedsCalibration = true
}

// Tick runs one evaluation: pending calibrations, a fresh batch of reads on
// every channel, then the decision rules. Bit i of the result is channel i's
// pressed state.
func (e *Engine) Tick() Bitmap {
	e.Calibrate()

	which := make([]side, len(e.channels))
	for i := range which {
		which[i] = sideBoth
	}
	fill(e.src, e.params.SamplesNum, e.channels, which)
	e.src.DischargeAll()

	var out Bitmap
	for i, ch := range e.channels {
		e.evaluate(ch)
		if ch.Pressed {
			out |= 1 << uint(i)
		}
	}
	return out
}

// evaluate applies the low-side rule and then the high-side rule to the
// current buffer sums.
func (e *Engine) evaluate(ch *Channel) {
	s := ch.LowBuf.Sum()
	switch {
	case s <= e.lim.release:
		// Confidently not touching; trust it only after Hysteresis ticks.
		ch.DebounceTicks++
		if ch.DebounceTicks > e.params.Hysteresis {
			ch.Pressed = false
			ch.NeedsCalibration = true
			ch.GrayZoneTicks = 0
			ch.DebounceTicks = 0
		}
	case s <= e.lim.low:
		e.grayZone(ch)
	default:
		ch.GrayZoneTicks = 0
	}

	h := ch.HighBuf.Sum()
	switch {
	case h >= e.lim.press:
		// Confidently touching; trusted at once.
		ch.Pressed = true
		ch.DebounceTicks = 0
		ch.NeedsCalibration = true
		ch.GrayZoneTicks = 0
	case h >= e.lim.high:
		e.grayZone(ch)
	default:
		ch.GrayZoneTicks = 0
	}
}

func (e *Engine) grayZone(ch *Channel) {
	ch.GrayZoneTicks++
	if ch.GrayZoneTicks >= e.params.MaxTimeInGrayzone {
		ch.NeedsCalibration = true
		ch.Pressed = false
	}
}

// Channels returns a snapshot of every channel.
func (e *Engine) Channels() []ChannelInfo {
	out := make([]ChannelInfo, len(e.channels))
	for i, ch := range e.channels {
		out[i] = ch.info(i)
	}
	return out
}
