package apb

import "errors"

/*
APB-style slave bus interface. Two-phase synchronous handshake:
the master asserts select with address and write data, asserts enable on
the following clock, and holds both until ready comes back. An address
the peripheral rejects completes the transaction with the slave-error
signal instead of touching any register.
*/

// ErrSlave - the transaction completed with the slave-error signal
// asserted. Reported by master-side helpers, not by the bus itself.
var ErrSlave = errors.New("bus slave error")

// Peripheral is the register-file side of the bus.
type Peripheral interface {
	ReadRegister(addr uint32) (uint32, error)
	WriteRegister(addr, data uint32) error
}

// Signals carries the master-driven lines sampled on each clock.
type Signals struct {
	Sel    bool
	Enable bool
	Write  bool
	Addr   uint32
	WData  uint32
}

// Outputs carries the slave-driven lines valid after a clock.
type Outputs struct {
	RData  uint32
	Ready  bool
	SlvErr bool
}

type state int

const (
	stateIdle state = iota
	stateSetup
	stateAccess
)

// Bus is the slave-side bus interface state machine.
type Bus struct {
	state  state
	periph Peripheral

	// latched during the setup phase
	addr  uint32
	wdata uint32
	write bool

	out Outputs
}

// New returns an idle bus in front of the given peripheral.
func New(p Peripheral) *Bus {
	return &Bus{periph: p}
}

// Reset returns the state machine to idle, discarding any transaction
// in flight.
func (b *Bus) Reset() {
	b.state = stateIdle
	b.out = Outputs{}
}

// Tick advances the state machine by one clock with the given master
// signals and returns the slave signals for that clock. Address, write
// data and direction are latched in the setup phase; the access phase
// performs the register operation and raises ready, holding the outputs
// until the master releases enable.
func (b *Bus) Tick(in Signals) Outputs {
	switch b.state {
	case stateIdle:
		b.out = Outputs{}
		if in.Sel && !in.Enable {
			b.addr = in.Addr
			b.wdata = in.WData
			b.write = in.Write
			b.state = stateSetup
		}

	case stateSetup:
		if !in.Sel {
			// master walked away
			b.state = stateIdle
			break
		}
		if in.Enable {
			b.out = b.access()
			b.state = stateAccess
		}

	case stateAccess:
		if !in.Sel || !in.Enable {
			b.out = Outputs{}
			b.state = stateIdle
		}
	}
	return b.out
}

// access dispatches the latched transaction to the peripheral. The
// peripheral rejecting the address yields slverr with no side effect.
func (b *Bus) access() Outputs {
	out := Outputs{Ready: true}
	if b.write {
		if err := b.periph.WriteRegister(b.addr, b.wdata); err != nil {
			out.SlvErr = true
		}
		return out
	}
	data, err := b.periph.ReadRegister(b.addr)
	if err != nil {
		out.SlvErr = true
	}
	out.RData = data
	return out
}
