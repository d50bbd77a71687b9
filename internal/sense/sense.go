// Package sense provides capacitive pad reads with hardware abstraction.
// The real implementation times RC charging through the Linux GPIO character device.
// The fake implementations allow testing without hardware.
package sense

// Source reads pads by RC charge time. It matches capsense.Source.
type Source interface {
	// Read charges pin for a time derived from threshold and reports whether
	// the pad is still low (touched).
	Read(pin int, threshold uint8) bool

	// DischargeAll drives every pad low.
	DischargeAll()
}

// LED drives the activity indicator.
type LED interface {
	Set(on bool) error
	Close() error
}

// Default pads (BCM numbering) in report bit order.
var DefaultPins = []int{8, 9, 10, 11}
