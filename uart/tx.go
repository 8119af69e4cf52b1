package uart

import "uartctl/interrupts"

// Transmit serializer. One state transition per baud pulse; the line
// level set in a transition is driven for the following bit period.

type txState int

const (
	txIdle txState = iota
	txStart
	txData
	txParity
	txStop
)

type txEngine struct {
	state txState
	shift byte
	bit   uint
	line  bool
}

func (t *txEngine) reset() {
	t.state = txIdle
	t.shift = 0
	t.bit = 0
	// mark level while nothing is in flight
	t.line = true
}

func (t *txEngine) busy() bool {
	return t.state != txIdle
}

// tickTx runs on every baud pulse.
func (c *Controller) tickTx() {
	switch c.tx.state {
	case txIdle:
		c.txLoad()

	case txStart:
		// start bit done, drive data bit 0
		c.tx.bit = 0
		c.tx.line = c.tx.shift&1 != 0
		c.tx.state = txData

	case txData:
		c.tx.bit++
		if c.tx.bit < 8 {
			c.tx.line = c.tx.shift&(1<<c.tx.bit) != 0
			break
		}
		if c.ctrl&CtrlParityEn != 0 {
			c.tx.line = c.parityBit(c.tx.shift)
			c.tx.state = txParity
		} else {
			c.tx.line = true
			c.tx.state = txStop
		}

	case txParity:
		c.tx.line = true
		c.tx.state = txStop

	case txStop:
		// frame complete
		if c.txFifo.Empty() {
			c.ints.SetPending(interrupts.TxEmpty)
		}
		// queued bytes go out back to back
		if !c.txLoad() {
			c.tx.state = txIdle
		}
	}
}

// txLoad tries to start a frame: dequeues a byte and drives the start
// bit. Returns false when disabled or nothing is queued, leaving the
// line at mark.
func (c *Controller) txLoad() bool {
	if c.ctrl&CtrlTxEn == 0 {
		c.tx.line = true
		return false
	}
	b, ok := c.txFifo.Dequeue()
	if !ok {
		c.tx.line = true
		return false
	}
	c.tx.shift = b
	c.tx.line = false
	c.tx.state = txStart
	return true
}
