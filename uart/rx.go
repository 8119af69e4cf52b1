package uart

import "uartctl/interrupts"

// Receive deserializer. Runs on every system clock, not on the baud
// pulse: mid-bit sampling needs a half-period offset from the start
// edge, so the engine keeps its own down-counter armed when the falling
// edge arrives and reloaded with the shared divisor after each sample.

type rxState int

const (
	rxIdle rxState = iota
	rxStart
	rxData
	rxParity
	rxStop
)

type rxEngine struct {
	state rxState

	// current and previous line level, for edge detection
	line bool
	prev bool

	// clocks until the next mid-bit sample
	counter uint32

	shift byte
	bit   uint
}

func (r *rxEngine) reset() {
	r.state = rxIdle
	r.line = true
	r.prev = true
	r.counter = 0
	r.shift = 0
	r.bit = 0
}

func (r *rxEngine) busy() bool {
	return r.state != rxIdle
}

// arm schedules the next sample n clocks from now.
func (r *rxEngine) arm(n uint32) {
	if n == 0 {
		n = 1
	}
	r.counter = n
}

// tickRx runs on every system clock.
func (c *Controller) tickRx() {
	in := c.rx.line
	edge := c.rx.prev && !in
	c.rx.prev = in

	if c.ctrl&CtrlRxEn == 0 {
		c.rx.state = rxIdle
		return
	}

	if c.rx.state == rxIdle {
		if edge {
			// candidate start bit; confirm at its midpoint
			c.rx.state = rxStart
			c.rx.arm(c.baud.Divisor() / 2)
		}
		return
	}

	c.rx.counter--
	if c.rx.counter > 0 {
		return
	}
	c.sampleRx(in)
}

// sampleRx handles one mid-bit sample.
func (c *Controller) sampleRx(in bool) {
	d := c.baud.Divisor()

	switch c.rx.state {
	case rxStart:
		if in {
			// line back at mark: a glitch, not a start bit
			c.rx.state = rxIdle
			return
		}
		c.rx.shift = 0
		c.rx.bit = 0
		c.rx.state = rxData
		c.rx.arm(d)

	case rxData:
		if in {
			c.rx.shift |= 1 << c.rx.bit
		}
		c.rx.bit++
		if c.rx.bit == 8 {
			if c.ctrl&CtrlParityEn != 0 {
				c.rx.state = rxParity
			} else {
				c.rx.state = rxStop
			}
		}
		c.rx.arm(d)

	case rxParity:
		if in != c.parityBit(c.rx.shift) {
			c.parityErr = true
		}
		c.rx.state = rxStop
		c.rx.arm(d)

	case rxStop:
		if !in {
			c.frameErr = true
		}
		c.commitRx()
		c.rx.state = rxIdle
	}
}

// commitRx pushes the assembled byte into the RX FIFO. A full FIFO
// discards the byte and latches the overrun error instead.
func (c *Controller) commitRx() {
	if !c.rxFifo.Enqueue(c.rx.shift) {
		c.overrunErr = true
		return
	}
	c.ints.SetPending(interrupts.RxFull)
}
