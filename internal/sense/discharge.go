package sense

// AutoDischarge wraps a Source so a pad is never read twice without a
// discharge in between. Reading a pad already used since the last discharge
// discharges every pad first; pads that share charge state stay consistent.
// Not safe for concurrent use.
type AutoDischarge struct {
	inner Source
	used  map[int]bool

	// forced counts discharges issued by Read.
	forced int
}

// NewAutoDischarge wraps inner.
func NewAutoDischarge(inner Source) *AutoDischarge {
	return &AutoDischarge{inner: inner, used: make(map[int]bool)}
}

// Read discharges first when pin was read since the last discharge.
func (a *AutoDischarge) Read(pin int, threshold uint8) bool {
	if a.used[pin] {
		a.DischargeAll()
		a.forced++
	}
	v := a.inner.Read(pin, threshold)
	a.used[pin] = true
	return v
}

// DischargeAll discharges every pad and marks them ready.
func (a *AutoDischarge) DischargeAll() {
	a.inner.DischargeAll()
	for pin := range a.used {
		delete(a.used, pin)
	}
}

// Forced returns how many discharges Read had to issue.
func (a *AutoDischarge) Forced() int {
	return a.forced
}
