package uart

import (
	"errors"
	"fmt"
	"log"
	"math/bits"

	"uartctl/baudgen"
	"uartctl/fifo"
	"uartctl/interrupts"
)

// register offsets, byte-addressed 32-bit registers
const (
	CTRL   uint32 = 0x00
	STAT   uint32 = 0x04
	TXDATA uint32 = 0x08
	RXDATA uint32 = 0x0C
	BAUD   uint32 = 0x10
	FIFO   uint32 = 0x14 // reserved, reads zero
	INT    uint32 = 0x18
)

// CTRL register bits
const (
	CtrlEnable    uint32 = 1 << 0
	CtrlTxEn      uint32 = 1 << 1
	CtrlRxEn      uint32 = 1 << 2
	CtrlParityEn  uint32 = 1 << 3
	CtrlParityOdd uint32 = 1 << 4
)

const ctrlMask = CtrlEnable | CtrlTxEn | CtrlRxEn | CtrlParityEn | CtrlParityOdd

// STAT register bits, computed on every read
const (
	StatTxBusy     uint32 = 1 << 0
	StatRxBusy     uint32 = 1 << 1
	StatTxFull     uint32 = 1 << 2
	StatRxEmpty    uint32 = 1 << 3
	StatParityErr  uint32 = 1 << 4
	StatFrameErr   uint32 = 1 << 5
	StatOverrunErr uint32 = 1 << 6
)

// ErrInvalidAddress - register access outside the 0x00..0x18 map.
// The bus turns it into a slave error; no controller state is touched.
var ErrInvalidAddress = errors.New("not a UART register address")

// Controller is the UART core: register file, TX/RX FIFOs, baud
// generator, both serial engines and the interrupt state. All of it
// advances on a single shared clock via Tick; register accesses arrive
// between ticks from the bus.
type Controller struct {
	ctrl uint32

	baud           *baudgen.Generator
	defaultDivisor uint32

	txFifo *fifo.Fifo
	rxFifo *fifo.Fifo

	ints *interrupts.Controller

	tx txEngine
	rx rxEngine

	// error latches, cleared only by Reset
	parityErr  bool
	frameErr   bool
	overrunErr bool

	// last byte handed out on RXDATA; reading an empty FIFO
	// returns this stale value rather than an error
	lastRx byte

	log *log.Logger
}

// New returns a controller with both FIFOs at the given depth and the
// baud generator programmed to divisor. Reset returns BAUD to this
// divisor. The controller comes up disabled: CTRL must be written
// before anything moves.
func New(fifoDepth int, divisor uint32, logger *log.Logger) *Controller {
	c := &Controller{
		baud:           baudgen.New(divisor),
		defaultDivisor: divisor,
		txFifo:         fifo.New(fifoDepth),
		rxFifo:         fifo.New(fifoDepth),
		ints:           interrupts.New(),
		log:            logger,
	}
	c.tx.reset()
	c.rx.reset()
	return c
}

// Reset returns every component to its initial state: CTRL cleared,
// FIFOs emptied, baud phase and divisor back to default, error latches
// and interrupt bits dropped, any frame in flight discarded.
func (c *Controller) Reset() {
	c.ctrl = 0
	c.baud.SetDivisor(c.defaultDivisor)
	c.baud.Reset()
	c.txFifo.Reset()
	c.rxFifo.Reset()
	c.ints.Reset()
	c.tx.reset()
	c.rx.reset()
	c.parityErr = false
	c.frameErr = false
	c.overrunErr = false
	c.lastRx = 0
}

// ReadRegister performs a register read, with the RXDATA dequeue side
// effect. Undefined offsets return ErrInvalidAddress and read as zero.
func (c *Controller) ReadRegister(addr uint32) (uint32, error) {
	switch addr {
	case CTRL:
		return c.ctrl, nil
	case STAT:
		return c.Status(), nil
	case TXDATA:
		// write only
		return 0, nil
	case RXDATA:
		if b, ok := c.rxFifo.Dequeue(); ok {
			c.lastRx = b
		}
		return uint32(c.lastRx), nil
	case BAUD:
		return c.baud.Divisor(), nil
	case FIFO:
		return 0, nil
	case INT:
		return c.ints.Read(), nil
	default:
		return 0, fmt.Errorf("read at %#02x: %w", addr, ErrInvalidAddress)
	}
}

// WriteRegister performs a register write. A TXDATA write that finds
// the TX FIFO full is dropped with no latched error; tx_full in STAT is
// the only trace. Writes to read-only offsets are accepted and ignored.
func (c *Controller) WriteRegister(addr, data uint32) error {
	switch addr {
	case CTRL:
		c.ctrl = data & ctrlMask
	case STAT:
		// read only, computed
	case TXDATA:
		if !c.txFifo.Enqueue(byte(data)) {
			// dropped, tx_full is the only trace
			c.log.Printf("TXDATA write %#02x dropped, FIFO full", byte(data))
		}
	case RXDATA:
		// read only
	case BAUD:
		c.baud.SetDivisor(data)
	case FIFO:
		// reserved
	case INT:
		c.ints.Write(data)
	default:
		return fmt.Errorf("write at %#02x: %w", addr, ErrInvalidAddress)
	}
	return nil
}

// Status computes the STAT register from live FIFO, engine and latch
// state. Never cached; the next read always sees the current occupancy.
func (c *Controller) Status() uint32 {
	var s uint32
	if c.tx.busy() {
		s |= StatTxBusy
	}
	if c.rx.busy() {
		s |= StatRxBusy
	}
	if c.txFifo.Full() {
		s |= StatTxFull
	}
	if c.rxFifo.Empty() {
		s |= StatRxEmpty
	}
	if c.parityErr {
		s |= StatParityErr
	}
	if c.frameErr {
		s |= StatFrameErr
	}
	if c.overrunErr {
		s |= StatOverrunErr
	}
	return s
}

// Tick advances the controller by one system clock. With CtrlEnable
// clear nothing moves. Order is fixed: the baud pulse drives the
// serializer, then the deserializer samples the RX line.
func (c *Controller) Tick() {
	if c.ctrl&CtrlEnable == 0 {
		return
	}
	if c.baud.Tick() {
		c.tickTx()
	}
	c.tickRx()
}

// Control returns the current CTRL register value.
func (c *Controller) Control() uint32 {
	return c.ctrl
}

// Divisor returns the programmed baud divisor.
func (c *Controller) Divisor() uint32 {
	return c.baud.Divisor()
}

// TxLine returns the current level of the serial output pin.
func (c *Controller) TxLine() bool {
	return c.tx.line
}

// SetRxLine drives the serial input pin for the coming clocks.
func (c *Controller) SetRxLine(level bool) {
	c.rx.line = level
}

// IrqTxEmpty is the TX-empty level interrupt output.
func (c *Controller) IrqTxEmpty() bool {
	return c.ints.Asserted(interrupts.TxEmpty)
}

// IrqRxFull is the RX-full level interrupt output.
func (c *Controller) IrqRxFull() bool {
	return c.ints.Asserted(interrupts.RxFull)
}

// ParityBit returns the parity bit for a data byte: for even parity the
// bit makes the total count of ones even, for odd parity odd.
func ParityBit(b byte, odd bool) bool {
	p := bits.OnesCount8(b)%2 == 1
	if odd {
		return !p
	}
	return p
}

func (c *Controller) parityBit(b byte) bool {
	return ParityBit(b, c.ctrl&CtrlParityOdd != 0)
}
