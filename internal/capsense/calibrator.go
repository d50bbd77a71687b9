package capsense

// +----------------------------------------------------+
// |  raising a threshold leads to more 0 (untouched)   |
// |  lowering a threshold leads to more 1 (touched)    |
// +----------------------------------------------------+

// Calibrator searches per-channel threshold pairs. Channels are batched so
// the reads of one step are issued together, which does not change the
// outcome for any single channel.
type Calibrator struct {
	src    Source
	params Params
	lim    limits
}

// NewCalibrator creates a calibrator reading from src.
func NewCalibrator(src Source, p Params) *Calibrator {
	return &Calibrator{src: src, params: p, lim: newLimits(p)}
}

// Calibrate finds thresholds for every channel in chs and clears their
// NeedsCalibration flag. It never fails: a pad that cannot be read converges
// to clamped thresholds.
func (c *Calibrator) Calibrate(chs []*Channel) {
	if len(chs) == 0 {
		return
	}
	for _, ch := range chs {
		ch.Pinned = false
	}
	c.probe(chs)
	c.adjust(chs)
	c.widen(chs)
	for _, ch := range chs {
		if ch.High < ch.Low {
			ch.Low, ch.High = ch.High, ch.Low
		}
		ch.NeedsCalibration = false
		ch.Calibrations++
	}
}

// probe runs the coarse binary search. Arithmetic wraps at 8 bits.
func (c *Calibrator) probe(chs []*Channel) {
	n := len(chs)
	highestLow := make([]int, n)
	lowestHigh := make([]int, n)
	done := make([]bool, n)
	for i, ch := range chs {
		highestLow[i] = 0
		lowestHigh[i] = 255
		ch.Low = startLow
		ch.High = startHigh
	}

	for steps := uint32(0); steps < c.params.MaxProbeSteps; steps++ {
		allDone := true
		for i, ch := range chs {
			if int(ch.High) <= int(ch.Low)+1 {
				done[i] = true
			}
			if !done[i] {
				allDone = false
			}
		}
		if allDone {
			return
		}

		for i, ch := range chs {
			if done[i] {
				continue
			}
			low, high := int(ch.Low), int(ch.High)
			if c.src.Read(ch.Pin, ch.Low) {
				highestLow[i] = low
				ch.Low = uint8(low + (high-low)/2)
			} else {
				ch.Low = uint8((low + highestLow[i]) / 2)
			}
		}

		for i, ch := range chs {
			if done[i] {
				continue
			}
			low, high := int(ch.Low), int(ch.High)
			if c.src.Read(ch.Pin, ch.High) {
				ch.High = uint8((high + lowestHigh[i] + 1) / 2)
			} else {
				lowestHigh[i] = high
				ch.High = uint8(high + (high-low)/2)
			}
		}

		for i, ch := range chs {
			if done[i] || ch.High > ch.Low {
				continue
			}
			// Both results come from the values before either assignment.
			low, high := int(ch.Low), int(ch.High)
			ch.High = uint8((low - high + 1) / 2)
			ch.Low = uint8((low - high - 1) / 2)
		}
	}
}

// direction of a fine adjustment walk.
type direction int8

const (
	down direction = -1
	up   direction = 1
)

// adjust walks each threshold one step at a time to the edge of its criterion.
func (c *Calibrator) adjust(chs []*Channel) {
	n := len(chs)
	which := make([]side, n)
	for i := range which {
		which[i] = sideBoth
	}
	fill(c.src, c.params.SamplesNum, chs, which)

	lowDir := make([]direction, n)
	highDir := make([]direction, n)
	for i, ch := range chs {
		// Low side is satisfied while it over-reads touched; walk up to the edge.
		if ch.LowBuf.Sum() > c.lim.low {
			lowDir[i] = up
		} else {
			lowDir[i] = down
		}
		// High side over-reads touched; walk up until it reads untouched.
		if ch.HighBuf.Sum() >= c.lim.high {
			highDir[i] = up
		} else {
			highDir[i] = down
		}
	}

	for {
		active := false
		for i, ch := range chs {
			if which[i]&sideLow != 0 {
				if next, ok := step(ch.Low, lowDir[i]); ok {
					ch.Low = next
					active = true
				} else {
					ch.Pinned = true
					which[i] &^= sideLow
				}
			}
			if which[i]&sideHigh != 0 {
				if next, ok := step(ch.High, highDir[i]); ok {
					ch.High = next
					active = true
				} else {
					ch.Pinned = true
					which[i] &^= sideHigh
				}
			}
		}
		if !active {
			return
		}

		fill(c.src, c.params.SamplesNum, chs, which)

		for i, ch := range chs {
			if which[i]&sideLow != 0 {
				sum := ch.LowBuf.Sum()
				switch {
				case lowDir[i] == up && sum <= c.lim.low:
					ch.Low-- // previous step was the last good one
					which[i] &^= sideLow
				case lowDir[i] == down && sum > c.lim.low:
					which[i] &^= sideLow
				}
			}
			if which[i]&sideHigh != 0 {
				sum := ch.HighBuf.Sum()
				switch {
				case highDir[i] == down && sum >= c.lim.high:
					ch.High++ // previous step was the last good one
					which[i] &^= sideHigh
				case highDir[i] == up && sum < c.lim.high:
					which[i] &^= sideHigh
				}
			}
		}
	}
}

// step moves v one unit in dir. It reports false when v is already at the
// end of the range.
func step(v uint8, dir direction) (uint8, bool) {
	if dir == up {
		if v == 255 {
			return v, false
		}
		return v + 1, true
	}
	if v == 0 {
		return v, false
	}
	return v - 1, true
}

// widen applies the press and release margins with clamping.
func (c *Calibrator) widen(chs []*Channel) {
	for _, ch := range chs {
		if ch.Low < c.params.ReleaseMargin {
			ch.Low = 0
		} else {
			ch.Low -= c.params.ReleaseMargin
		}
		if 255-ch.High < c.params.PressMargin {
			ch.High = 255
		} else {
			ch.High += c.params.PressMargin
		}
	}
}
