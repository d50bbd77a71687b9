package capsense

// RunningSumBuffer is a fixed-capacity ring of binary samples that keeps the
// count of ones among the last Len() pushes.
// Not safe for concurrent use.
type RunningSumBuffer struct {
	data []uint8
	pos  int // next write position
	sum  int
}

// NewRunningSumBuffer creates a zeroed buffer. Capacity is clamped to [1,255].
func NewRunningSumBuffer(capacity int) *RunningSumBuffer {
	if capacity < 1 {
		capacity = 1
	}
	if capacity > 255 {
		capacity = 255
	}
	return &RunningSumBuffer{data: make([]uint8, capacity)}
}

// Push stores a sample, evicting the oldest one.
func (b *RunningSumBuffer) Push(sample bool) {
	var v uint8
	if sample {
		v = 1
	}
	b.sum -= int(b.data[b.pos])
	b.data[b.pos] = v
	b.sum += int(v)
	b.pos++
	if b.pos >= len(b.data) {
		b.pos = 0
	}
}

// Sum returns the number of ones in the buffer.
func (b *RunningSumBuffer) Sum() int {
	return b.sum
}

// Len returns the buffer capacity.
func (b *RunningSumBuffer) Len() int {
	return len(b.data)
}

// Reset zeroes every sample. A reset buffer sums to 0.
func (b *RunningSumBuffer) Reset() {
	for i := range b.data {
		b.data[i] = 0
	}
	b.pos = 0
	b.sum = 0
}
