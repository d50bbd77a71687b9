package sense

import "errors"

// BoundarySource is a test double with one fixed charge boundary per pin:
// a read is touched when threshold <= boundary. Unknown pins never read touched.
type BoundarySource struct {
	// Boundary maps pin to the highest threshold that still reads touched.
	Boundary map[int]int

	// Reads counts Read calls.
	Reads int

	// Discharges counts DischargeAll calls.
	Discharges int
}

// NewBoundarySource creates a BoundarySource with the given boundaries.
func NewBoundarySource(boundary map[int]int) *BoundarySource {
	if boundary == nil {
		boundary = make(map[int]int)
	}
	return &BoundarySource{Boundary: boundary}
}

// Read reports whether threshold is at or below the pin's boundary.
func (s *BoundarySource) Read(pin int, threshold uint8) bool {
	s.Reads++
	b, ok := s.Boundary[pin]
	return ok && int(threshold) <= b
}

// DischargeAll counts the call.
func (s *BoundarySource) DischargeAll() {
	s.Discharges++
}

// Touch raises pin's boundary by delta, as a finger adds capacitance.
func (s *BoundarySource) Touch(pin, delta int) {
	s.Boundary[pin] += delta
}

// ScriptedSource is a test double that returns scripted readings in order.
type ScriptedSource struct {
	// Readings contains scripted values to return.
	// Each call to Read consumes the next one; the last repeats.
	Readings []bool

	// Calls records every read in order.
	Calls []ReadCall

	index int

	// Discharges counts DischargeAll calls.
	Discharges int
}

// ReadCall is one recorded Read.
type ReadCall struct {
	Pin       int
	Threshold uint8
}

// NewScriptedSource creates a ScriptedSource with the given readings.
func NewScriptedSource(readings []bool) *ScriptedSource {
	return &ScriptedSource{Readings: readings}
}

// Read returns the next scripted reading, or false when none are configured.
func (s *ScriptedSource) Read(pin int, threshold uint8) bool {
	s.Calls = append(s.Calls, ReadCall{Pin: pin, Threshold: threshold})
	if len(s.Readings) == 0 {
		return false
	}
	v := s.Readings[s.index]
	if s.index < len(s.Readings)-1 {
		s.index++
	}
	return v
}

// DischargeAll counts the call.
func (s *ScriptedSource) DischargeAll() {
	s.Discharges++
}

// Reset rewinds the script and clears recorded calls.
func (s *ScriptedSource) Reset() {
	s.index = 0
	s.Calls = nil
	s.Discharges = 0
}

// FakeLED records LED states.
type FakeLED struct {
	// States contains every value passed to Set.
	States []bool

	// SetError, if set, will be returned by Set.
	SetError error

	// Closed tracks if Close was called.
	Closed bool
}

// Set records the state.
func (l *FakeLED) Set(on bool) error {
	if l.SetError != nil {
		return l.SetError
	}
	l.States = append(l.States, on)
	return nil
}

// On reports the last recorded state.
func (l *FakeLED) On() bool {
	return len(l.States) > 0 && l.States[len(l.States)-1]
}

// Close marks the LED as closed.
func (l *FakeLED) Close() error {
	if l.Closed {
		return errors.New("already closed")
	}
	l.Closed = true
	return nil
}
