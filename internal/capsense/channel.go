package capsense

// Channel is one sensing pad plus its calibration and decision state.
type Channel struct {
	// Pin is passed through to the Source untouched.
	Pin int

	// Low must read touched, High must read untouched.
	Low  uint8
	High uint8

	LowBuf  *RunningSumBuffer
	HighBuf *RunningSumBuffer

	Pressed          bool
	NeedsCalibration bool
	GrayZoneTicks    uint32
	DebounceTicks    uint32

	// Calibrations counts completed calibrations.
	Calibrations uint32

	// Pinned is set when the last calibration walked a threshold to 0 or
	// 255 without meeting its criterion.
	Pinned bool
}

func newChannel(pin, samples int) *Channel {
	return &Channel{
		Pin:              pin,
		LowBuf:           NewRunningSumBuffer(samples),
		HighBuf:          NewRunningSumBuffer(samples),
		NeedsCalibration: true,
	}
}

func (c *Channel) info(i int) ChannelInfo {
	return ChannelInfo{
		Index:            i,
		Pin:              c.Pin,
		Low:              c.Low,
		High:             c.High,
		LowSum:           c.LowBuf.Sum(),
		HighSum:          c.HighBuf.Sum(),
		Pressed:          c.Pressed,
		NeedsCalibration: c.NeedsCalibration,
		GrayZoneTicks:    c.GrayZoneTicks,
		DebounceTicks:    c.DebounceTicks,
		Calibrations:     c.Calibrations,
		Pinned:           c.Pinned,
	}
}

// side selects which of a channel's buffers a fill refreshes.
type side uint8

const (
	sideNone side = 0
	sideLow  side = 1 << 0
	sideHigh side = 1 << 1
	sideBoth      = sideLow | sideHigh
)

// fill takes samples reads per selected buffer. Within one sample round all
// low-side reads precede all high-side reads, so a channel's two thresholds
// are never reordered relative to each other.
func fill(src Source, samples int, chs []*Channel, which []side) {
	for i := 0; i < samples; i++ {
		for j, ch := range chs {
			if which[j]&sideLow != 0 {
				ch.LowBuf.Push(src.Read(ch.Pin, ch.Low))
			}
		}
		for j, ch := range chs {
			if which[j]&sideHigh != 0 {
				ch.HighBuf.Push(src.Read(ch.Pin, ch.High))
			}
		}
	}
}
