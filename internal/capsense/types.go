// Package capsense turns RC charge-time readings into per-channel touch decisions.
// This package has NO external dependencies (no GPIO, MQTT, OS or logging).
// Physical reads go through the Source interface and every operation is bounded.
package capsense

import (
	"errors"
	"fmt"
)

// MaxChannels is the number of channels that fit in a Bitmap.
const MaxChannels = 32

// Coarse search starting bracket (quarter and three quarters of the range).
const (
	startLow  uint8 = 64
	startHigh uint8 = 192
)

// Confident release/press bands, in percent of SamplesNum.
const (
	releasePercent = 10
	pressPercent   = 90
)

// Source performs physical comparator reads.
//
// Raising the threshold biases reads toward "untouched" (false), lowering it
// biases them toward "touched" (true).
type Source interface {
	// Read performs one charge/read/discharge cycle on pin at threshold and
	// reports whether the pad reads as touched.
	Read(pin int, threshold uint8) bool

	// DischargeAll discharges every pad. Called between batches; may be a no-op.
	DischargeAll()
}

// Bitmap holds one pressed bit per channel; bit i is channel i.
type Bitmap uint32

// Pressed reports whether channel i is pressed.
func (b Bitmap) Pressed(i int) bool {
	return b&(1<<uint(i)) != 0
}

// Params are the construction-time tuning constants of the engine.
type Params struct {
	// SamplesNum is the capacity of every sample buffer (1..255).
	SamplesNum int
	// LowPercent is the share of touched reads the low threshold must produce.
	LowPercent int
	// HighPercent is the share of touched reads the high threshold must stay under.
	HighPercent int
	// PressMargin widens the high threshold after calibration.
	PressMargin uint8
	// ReleaseMargin narrows the low threshold after calibration.
	ReleaseMargin uint8
	// Hysteresis is the number of confident release ticks to tolerate before
	// committing a release.
	Hysteresis uint32
	// MaxTimeInGrayzone is the number of ambiguous ticks that forces a
	// recalibration.
	MaxTimeInGrayzone uint32
	// MaxProbeSteps bounds the coarse binary search.
	MaxProbeSteps uint32
}

// DefaultParams returns the stock tuning.
func DefaultParams() Params {
	return Params{
		SamplesNum:        32,
		LowPercent:        90,
		HighPercent:       10,
		PressMargin:       3,
		ReleaseMargin:     0,
		Hysteresis:        0,
		MaxTimeInGrayzone: 2000,
		MaxProbeSteps:     250,
	}
}

// Validate checks that every parameter is in range.
func (p Params) Validate() error {
	var errs []error
	if p.SamplesNum < 1 || p.SamplesNum > 255 {
		errs = append(errs, fmt.Errorf("samples %d out of range [1,255]", p.SamplesNum))
	}
	if p.LowPercent < 0 || p.LowPercent > 100 {
		errs = append(errs, fmt.Errorf("low percent %d out of range [0,100]", p.LowPercent))
	}
	if p.HighPercent < 0 || p.HighPercent > 100 {
		errs = append(errs, fmt.Errorf("high percent %d out of range [0,100]", p.HighPercent))
	}
	if p.MaxTimeInGrayzone < 1 {
		errs = append(errs, errors.New("max time in grayzone must be at least 1"))
	}
	if p.MaxProbeSteps < 1 {
		errs = append(errs, errors.New("max probe steps must be at least 1"))
	}
	return errors.Join(errs...)
}

// limits are the integer forms of the percentage comparisons against a buffer sum.
// A sum s satisfies s <= N*f iff s <= floor(N*f), and s >= N*f iff s >= ceil(N*f).
type limits struct {
	release int // floor(N * 10%)
	low     int // floor(N * LowPercent)
	high    int // ceil(N * HighPercent)
	press   int // ceil(N * 90%)
}

func newLimits(p Params) limits {
	n := p.SamplesNum
	return limits{
		release: n * releasePercent / 100,
		low:     n * p.LowPercent / 100,
		high:    (n*p.HighPercent + 99) / 100,
		press:   (n*pressPercent + 99) / 100,
	}
}

// ChannelInfo is a value snapshot of a channel for status consumers.
type ChannelInfo struct {
	Index            int
	Pin              int
	Low              uint8
	High             uint8
	LowSum           int
	HighSum          int
	Pressed          bool
	NeedsCalibration bool
	GrayZoneTicks    uint32
	DebounceTicks    uint32
	Calibrations     uint32
	Pinned           bool
}

// Degenerate reports whether the last calibration ran a threshold off the end
// of the range, which happens when a pad never reads touched or never
// untouched. Margins clamping a threshold to 0 or 255 do not count.
func (c ChannelInfo) Degenerate() bool {
	return c.Pinned
}
