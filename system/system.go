package system

import (
	"log"

	"uartctl/apb"
	"uartctl/baudgen"
	"uartctl/console"
	"uartctl/uart"
)

// machine parameters of the modeled controller
const (
	ClockHz         uint32 = 50_000_000
	DefaultBaudRate uint32 = 115200
	FifoDepth              = 16
)

// System owns the controller and its bus interface and advances both on
// a single shared clock. Everything is stepped from one goroutine in a
// fixed order, so behavior is deterministic and race free.
type System struct {
	UART *uart.Controller
	Bus  *apb.Bus

	console  console.Console
	log      *log.Logger
	cycles   uint64
	loopback bool
}

// InitializeSystem builds the controller with the observed machine
// parameters: 50 MHz clock, 115200 baud default divisor, FIFO depth 16.
func InitializeSystem(c console.Console, logger *log.Logger) *System {
	sys := new(System)
	sys.console = c
	sys.log = logger

	sys.UART = uart.New(FifoDepth, baudgen.Divisor(ClockHz, DefaultBaudRate), logger)
	sys.Bus = apb.New(sys.UART)

	if c != nil {
		_ = c.WriteConsole("Initializing UART controller.\n")
	}
	return sys
}

// Reset is the single reset entry point: bus, register file, FIFOs,
// baud generator and both serial engines return to their initial state
// on the spot.
func (sys *System) Reset() {
	sys.Bus.Reset()
	sys.UART.Reset()
}

// Step advances the whole system by one clock, presenting the given bus
// signals. Order is fixed: bus transaction first, then the serial
// engines, so a register write lands before the engines see the tick.
func (sys *System) Step(in apb.Signals) apb.Outputs {
	out := sys.Bus.Tick(in)
	if sys.loopback {
		sys.UART.SetRxLine(sys.UART.TxLine())
	}
	sys.UART.Tick()
	sys.cycles++
	return out
}

// Idle runs n clocks with the bus idle.
func (sys *System) Idle(n int) {
	for i := 0; i < n; i++ {
		sys.Step(apb.Signals{})
	}
}

// Cycles returns the number of clocks stepped since construction.
func (sys *System) Cycles() uint64 {
	return sys.cycles
}

// Loopback connects the TX pin to the RX pin on every clock, so bytes
// written to TXDATA come back through the deserializer.
func (sys *System) Loopback(on bool) {
	sys.loopback = on
	if !on {
		sys.UART.SetRxLine(true)
	}
}

// WriteRegister runs one full bus write transaction: setup clock,
// enable clock, ready-gated completion, release. A slave error comes
// back as ErrSlave.
func (sys *System) WriteRegister(addr, data uint32) error {
	in := apb.Signals{Sel: true, Write: true, Addr: addr, WData: data}
	sys.Step(in)
	in.Enable = true
	out := sys.Step(in)
	for !out.Ready {
		out = sys.Step(in)
	}
	sys.Step(apb.Signals{})
	if out.SlvErr {
		return apb.ErrSlave
	}
	return nil
}

// ReadRegister runs one full bus read transaction.
func (sys *System) ReadRegister(addr uint32) (uint32, error) {
	in := apb.Signals{Sel: true, Addr: addr}
	sys.Step(in)
	in.Enable = true
	out := sys.Step(in)
	for !out.Ready {
		out = sys.Step(in)
	}
	sys.Step(apb.Signals{})
	if out.SlvErr {
		return 0, apb.ErrSlave
	}
	return out.RData, nil
}

// SendSerialByte plays the far end of the wire: it drives one complete
// frame onto the RX pin at the programmed divisor, honoring the
// controller's parity configuration, and leaves the line at mark.
func (sys *System) SendSerialByte(b byte) {
	d := int(sys.UART.Divisor())
	ctrl := sys.UART.Control()

	drive := func(level bool) {
		sys.UART.SetRxLine(level)
		sys.Idle(d)
	}

	// start bit
	drive(false)
	// data bits, LSB first
	for i := 0; i < 8; i++ {
		drive(b&(1<<i) != 0)
	}
	if ctrl&uart.CtrlParityEn != 0 {
		drive(uart.ParityBit(b, ctrl&uart.CtrlParityOdd != 0))
	}
	// stop bit
	drive(true)
}

// DrainRx empties the RX FIFO over the bus, one RXDATA read per queued
// byte. Used by the monitor to pull received characters.
func (sys *System) DrainRx() []byte {
	var out []byte
	for {
		stat, err := sys.ReadRegister(uart.STAT)
		if err != nil || stat&uart.StatRxEmpty != 0 {
			return out
		}
		data, err := sys.ReadRegister(uart.RXDATA)
		if err != nil {
			return out
		}
		out = append(out, byte(data))
	}
}
