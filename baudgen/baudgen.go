package baudgen

/*
Baud-rate generator: divides the system clock down to a one-tick pulse
per bit period. Both serial engines run off the same divisor, so their
bit boundaries stay aligned as long as the phase is reset together.
*/

// Generator produces one pulse every divisor system clocks.
type Generator struct {
	divisor uint32
	counter uint32
}

// New returns a generator with the given divisor. A divisor below 2
// pulses on every clock.
func New(divisor uint32) *Generator {
	return &Generator{divisor: divisor}
}

// Divisor returns the programmed divisor.
func (g *Generator) Divisor() uint32 {
	return g.divisor
}

// SetDivisor reprograms the divisor. The running phase is kept; a phase
// reset happens only on controller reset.
func (g *Generator) SetDivisor(d uint32) {
	g.divisor = d
}

// Tick advances the generator by one system clock and reports whether
// this clock carries the baud pulse.
func (g *Generator) Tick() bool {
	g.counter++
	if g.counter >= g.divisor {
		g.counter = 0
		return true
	}
	return false
}

// Reset returns the phase to the initial state.
func (g *Generator) Reset() {
	g.counter = 0
}

// Divisor computes the divisor for a target baud rate on a given system
// clock, rounded to the nearest integer.
func Divisor(clockHz, baudRate uint32) uint32 {
	return (clockHz + baudRate/2) / baudRate
}
