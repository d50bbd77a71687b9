//go:build !linux

package sense

import (
	"errors"
	"time"
)

// RealSource is not available on non-Linux platforms.
type RealSource struct{}

// NewRealSource returns an error on non-Linux platforms.
func NewRealSource(chipName string, pins []int, step, discharge time.Duration) (*RealSource, error) {
	return nil, errors.New("sense: not supported on this platform (requires Linux)")
}

// Read always reads untouched.
func (s *RealSource) Read(pin int, threshold uint8) bool { return false }

// DischargeAll is a no-op.
func (s *RealSource) DischargeAll() {}

// Errors is always zero.
func (s *RealSource) Errors() uint64 { return 0 }

// Close is not implemented on non-Linux platforms.
func (s *RealSource) Close() error { return nil }

// RealLED is not available on non-Linux platforms.
type RealLED struct{}

// NewRealLED returns an error on non-Linux platforms.
func NewRealLED(chipName string, pin int) (*RealLED, error) {
	return nil, errors.New("sense: not supported on this platform (requires Linux)")
}

// Set is not implemented on non-Linux platforms.
func (l *RealLED) Set(on bool) error { return errors.New("sense: not supported") }

// Close is not implemented on non-Linux platforms.
func (l *RealLED) Close() error { return nil }
