package interrupts

/**
 * Separate leaf package for the interrupt state, mainly to keep the
 * register file and the serial engines free of each other's imports.
 */

// Source identifies one interrupt source of the controller.
type Source uint32

// interrupt sources:

// TxEmpty : raised by the serializer when a completed frame leaves the
// TX FIFO empty
const TxEmpty Source = 0

// RxFull : raised by the deserializer when a received byte is committed
// to the RX FIFO
const RxFull Source = 1

// INT register bit layout
const (
	TxEmptyEnable  uint32 = 1 << 0
	RxFullEnable   uint32 = 1 << 1
	TxEmptyPending uint32 = 1 << 2
	RxFullPending  uint32 = 1 << 3
)

// Controller holds the per-source enable and pending bits and combines
// them into level interrupt outputs. There is no latching beyond the
// pending bits themselves.
type Controller struct {
	enable  uint32
	pending uint32
}

// New returns an interrupt controller with everything deasserted.
func New() *Controller {
	return &Controller{}
}

// Read packs enable and pending bits into the INT register layout.
func (ic *Controller) Read() uint32 {
	return (ic.enable & 03) | (ic.pending&03)<<2
}

// Write applies a bus write to the INT register: enable bits are plain
// read/write, pending bits are write-one-to-clear.
func (ic *Controller) Write(data uint32) {
	ic.enable = data & 03
	ic.pending &^= (data >> 2) & 03
}

// SetPending marks a source pending. Only a bus write clears it again.
func (ic *Controller) SetPending(s Source) {
	ic.pending |= 1 << s
}

// Pending reports whether a source is pending, enabled or not.
func (ic *Controller) Pending(s Source) bool {
	return ic.pending&(1<<s) != 0
}

// Asserted reports the level output for a source:
// enable AND pending.
func (ic *Controller) Asserted(s Source) bool {
	return ic.enable&ic.pending&(1<<s) != 0
}

// Reset deasserts every enable and pending bit.
func (ic *Controller) Reset() {
	ic.enable = 0
	ic.pending = 0
}
