package capsense

import "math/rand"

// boundarySource reads touched whenever threshold <= the pin's boundary.
// Pins without a boundary never read touched.
type boundarySource struct {
	boundary   map[int]int
	reads      int
	discharges int
}

func newBoundarySource(pinBoundary map[int]int) *boundarySource {
	return &boundarySource{boundary: pinBoundary}
}

func (s *boundarySource) Read(pin int, threshold uint8) bool {
	s.reads++
	b, ok := s.boundary[pin]
	return ok && int(threshold) <= b
}

func (s *boundarySource) DischargeAll() {
	s.discharges++
}

// constSource always returns the same reading.
type constSource bool

func (c constSource) Read(int, uint8) bool { return bool(c) }
func (c constSource) DischargeAll()        {}

// noisySource returns random readings.
type noisySource struct {
	rng *rand.Rand
}

func (n *noisySource) Read(int, uint8) bool { return n.rng.Intn(2) == 1 }
func (n *noisySource) DischargeAll()        {}

func fillBuf(b *RunningSumBuffer, ones int) {
	b.Reset()
	for i := 0; i < b.Len(); i++ {
		b.Push(i < ones)
	}
}
