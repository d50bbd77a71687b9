package sense

import (
	"errors"
	"testing"

	"github.com/sweeney/touch-keys/internal/capsense"
)

// Compile-time checks that every source satisfies the engine interface.
var (
	_ capsense.Source = (*BoundarySource)(nil)
	_ capsense.Source = (*ScriptedSource)(nil)
	_ capsense.Source = (*AutoDischarge)(nil)
	_ capsense.Source = (*RealSource)(nil)
	_ LED             = (*FakeLED)(nil)
	_ LED             = (*RealLED)(nil)
)

func TestBoundarySourceRead(t *testing.T) {
	s := NewBoundarySource(map[int]int{8: 100})

	tests := []struct {
		pin       int
		threshold uint8
		want      bool
	}{
		{8, 0, true},
		{8, 100, true},
		{8, 101, false},
		{8, 255, false},
		{9, 0, false}, // unknown pin
	}

	for _, tt := range tests {
		if got := s.Read(tt.pin, tt.threshold); got != tt.want {
			t.Errorf("Read(%d, %d): got %v, want %v", tt.pin, tt.threshold, got, tt.want)
		}
	}
	if s.Reads != len(tests) {
		t.Errorf("expected %d reads, got %d", len(tests), s.Reads)
	}
}

func TestBoundarySourceTouch(t *testing.T) {
	s := NewBoundarySource(nil)
	s.Touch(8, 40)

	if !s.Read(8, 40) {
		t.Error("expected touched at new boundary")
	}
	if s.Read(8, 41) {
		t.Error("expected untouched above new boundary")
	}
}

func TestScriptedSourceRead(t *testing.T) {
	s := NewScriptedSource([]bool{true, false, true})

	want := []bool{true, false, true, true}
	for i, w := range want {
		if got := s.Read(3, uint8(i)); got != w {
			t.Errorf("read %d: got %v, want %v", i, got, w)
		}
	}

	if len(s.Calls) != 4 {
		t.Fatalf("expected 4 recorded calls, got %d", len(s.Calls))
	}
	if s.Calls[2] != (ReadCall{Pin: 3, Threshold: 2}) {
		t.Errorf("unexpected call record: %+v", s.Calls[2])
	}
}

func TestScriptedSourceNoReadings(t *testing.T) {
	s := NewScriptedSource(nil)
	if s.Read(1, 1) {
		t.Error("expected untouched with no readings")
	}
}

func TestScriptedSourceReset(t *testing.T) {
	s := NewScriptedSource([]bool{true, false})
	s.Read(1, 1)
	s.DischargeAll()

	s.Reset()

	if !s.Read(1, 1) {
		t.Error("after reset: expected first reading again")
	}
	if len(s.Calls) != 1 || s.Discharges != 0 {
		t.Errorf("after reset: calls=%d discharges=%d", len(s.Calls), s.Discharges)
	}
}

func TestFakeLED(t *testing.T) {
	l := &FakeLED{}
	if l.On() {
		t.Error("should start off")
	}

	l.Set(true)
	if !l.On() {
		t.Error("expected on")
	}
	l.Set(false)
	if l.On() {
		t.Error("expected off")
	}

	l.SetError = errors.New("simulated error")
	if err := l.Set(true); err == nil {
		t.Error("expected error")
	}
	if len(l.States) != 2 {
		t.Errorf("expected 2 states, got %d", len(l.States))
	}

	if err := l.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !l.Closed {
		t.Error("should be closed after Close()")
	}
}
