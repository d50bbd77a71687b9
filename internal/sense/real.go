//go:build linux

package sense

import (
	"fmt"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/warthog618/go-gpiocdev"
)

// RealSource reads pads from actual hardware using the Linux GPIO character device.
//
// Each pad sits behind a large resistor. A read releases the line as an input
// with pull-up, waits threshold charge steps and samples it: a line that is
// still low has extra capacitance from a finger. The line is then driven low
// again so the next read starts discharged.
type RealSource struct {
	chip      *gpiocdev.Chip
	lines     map[int]*gpiocdev.Line
	step      time.Duration
	discharge time.Duration
	errors    atomic.Uint64
}

// NewRealSource requests every pin as an output driven low.
// step is the charge time per threshold unit, discharge is how long
// DischargeAll holds the pads low.
func NewRealSource(chipName string, pins []int, step, discharge time.Duration) (*RealSource, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	s := &RealSource{
		chip:      chip,
		lines:     make(map[int]*gpiocdev.Line, len(pins)),
		step:      step,
		discharge: discharge,
	}
	for _, pin := range pins {
		line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("request pad pin %d: %w", pin, err)
		}
		s.lines[pin] = line
	}

	return s, nil
}

// Read performs one charge/read/discharge cycle. Errors read as untouched.
func (s *RealSource) Read(pin int, threshold uint8) bool {
	line, ok := s.lines[pin]
	if !ok {
		s.fail(pin, fmt.Errorf("pin %d not requested", pin))
		return false
	}

	if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
		s.fail(pin, fmt.Errorf("release line: %w", err))
		return false
	}
	spin(time.Duration(threshold) * s.step)
	v, err := line.Value()

	// Leave the pad low whatever happened, so the next read starts discharged.
	if derr := line.Reconfigure(gpiocdev.AsOutput(0)); derr != nil {
		s.fail(pin, fmt.Errorf("discharge line: %w", derr))
	}
	if err != nil {
		s.fail(pin, fmt.Errorf("read line: %w", err))
		return false
	}

	return v == 0
}

// DischargeAll drives every pad low and waits for the pads to drain.
func (s *RealSource) DischargeAll() {
	for pin, line := range s.lines {
		if err := line.SetValue(0); err != nil {
			s.fail(pin, fmt.Errorf("discharge: %w", err))
		}
	}
	if s.discharge > 0 {
		spin(s.discharge)
	}
}

// Errors returns the number of failed line operations since startup.
func (s *RealSource) Errors() uint64 {
	return s.errors.Load()
}

func (s *RealSource) fail(pin int, err error) {
	s.errors.Add(1)
	log.WithField("pin", pin).WithError(err).Debug("sense: pad operation failed")
}

// Close releases GPIO resources.
// Reconfigures pads to input with pull-down (matching Pi boot defaults)
// before closing.
func (s *RealSource) Close() error {
	var errs []error

	for pin, line := range s.lines {
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", pin, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
	}
	if s.chip != nil {
		if err := s.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// spin busy-waits for d. Charge times are far below scheduler granularity,
// so sleeping is not an option.
func spin(d time.Duration) {
	if d <= 0 {
		return
	}
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}

// RealLED drives an activity LED on a GPIO output line.
type RealLED struct {
	line *gpiocdev.Line
}

// NewRealLED requests pin on chipName as an output, initially off.
func NewRealLED(chipName string, pin int) (*RealLED, error) {
	line, err := gpiocdev.RequestLine(chipName, pin, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request led pin %d: %w", pin, err)
	}
	return &RealLED{line: line}, nil
}

// Set switches the LED.
func (l *RealLED) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	return l.line.SetValue(v)
}

// Close turns the LED off and releases the line.
func (l *RealLED) Close() error {
	var errs []error
	if err := l.line.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("led off: %w", err))
	}
	if err := l.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close led: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
