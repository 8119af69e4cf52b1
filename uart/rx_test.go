package uart

import "testing"

// driveBit holds the RX pin at level for one bit period.
func driveBit(c *Controller, level bool, d int) {
	c.SetRxLine(level)
	for i := 0; i < d; i++ {
		c.Tick()
	}
}

// driveFrame plays one character onto the RX pin, with full control
// over the parity and stop levels so error frames can be injected.
func driveFrame(c *Controller, b byte, d int, parity *bool, stop bool) {
	driveBit(c, false, d)
	for i := 0; i < 8; i++ {
		driveBit(c, b&(1<<i) != 0, d)
	}
	if parity != nil {
		driveBit(c, *parity, d)
	}
	driveBit(c, stop, d)
	// a little idle time at mark before whatever comes next
	driveBit(c, true, d)
}

func TestReceiveByte(t *testing.T) {
	c := newTestController(8)
	c.WriteRegister(CTRL, CtrlEnable|CtrlRxEn)

	driveFrame(c, 0x5A, 8, nil, true)

	stat := c.Status()
	if stat&StatRxEmpty != 0 {
		t.Fatal("rx_empty still set after a clean frame")
	}
	if stat&(StatParityErr|StatFrameErr|StatOverrunErr) != 0 {
		t.Errorf("error bits set on a clean frame: STAT = %#02x", stat)
	}
	got, _ := c.ReadRegister(RXDATA)
	if got != 0x5A {
		t.Errorf("RXDATA = %#02x, want 0x5A", got)
	}
	if c.Status()&StatRxEmpty == 0 {
		t.Error("rx_empty clear after the only byte was read")
	}
}

func TestReceivePendingInterrupt(t *testing.T) {
	c := newTestController(8)
	c.WriteRegister(CTRL, CtrlEnable|CtrlRxEn)
	c.WriteRegister(INT, 0x02) // rx_full_en

	driveFrame(c, 0x11, 8, nil, true)

	intr, _ := c.ReadRegister(INT)
	if intr&0x08 == 0 {
		t.Error("rx_full pending not set after commit")
	}
	if !c.IrqRxFull() {
		t.Error("irq_rx_full not asserted")
	}
	c.WriteRegister(INT, 0x0A) // keep enable, clear pending
	if c.IrqRxFull() {
		t.Error("irq_rx_full still asserted after write-one-to-clear")
	}
}

func TestReceiveParity(t *testing.T) {
	tests := []struct {
		name    string
		b       byte
		odd     bool
		flip    bool
		wantErr bool
	}{
		{"even parity good", 0x41, false, false, false},
		{"even parity bad", 0x41, false, true, true},
		{"odd parity good", 0x07, true, false, false},
		{"odd parity bad", 0x07, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := CtrlEnable | CtrlRxEn | CtrlParityEn
			if tt.odd {
				ctrl |= CtrlParityOdd
			}
			c := newTestController(8)
			c.WriteRegister(CTRL, ctrl)

			p := ParityBit(tt.b, tt.odd)
			if tt.flip {
				p = !p
			}
			driveFrame(c, tt.b, 8, &p, true)

			gotErr := c.Status()&StatParityErr != 0
			if gotErr != tt.wantErr {
				t.Errorf("parity_err = %v, want %v", gotErr, tt.wantErr)
			}
			// the byte is committed either way; the latch is the record
			got, _ := c.ReadRegister(RXDATA)
			if got != uint32(tt.b) {
				t.Errorf("RXDATA = %#02x, want %#02x", got, tt.b)
			}
		})
	}
}

func TestReceiveFrameError(t *testing.T) {
	c := newTestController(8)
	c.WriteRegister(CTRL, CtrlEnable|CtrlRxEn)

	// stop bit held low
	driveFrame(c, 0x7E, 8, nil, false)

	if c.Status()&StatFrameErr == 0 {
		t.Error("frame_err not latched on a low stop bit")
	}
	got, _ := c.ReadRegister(RXDATA)
	if got != 0x7E {
		t.Errorf("RXDATA = %#02x, want 0x7E", got)
	}
}

func TestReceiveOverrun(t *testing.T) {
	c := newTestController(4)
	c.WriteRegister(CTRL, CtrlEnable|CtrlRxEn)

	for i := 0; i < 16; i++ {
		driveFrame(c, byte(i), 4, nil, true)
	}
	if c.Status()&StatOverrunErr != 0 {
		t.Fatal("overrun latched while the FIFO still had room")
	}
	if c.Status()&StatRxEmpty != 0 {
		t.Fatal("rx_empty set with a full FIFO")
	}

	// the 17th byte has nowhere to go
	driveFrame(c, 0xEE, 4, nil, true)
	if c.Status()&StatOverrunErr == 0 {
		t.Error("overrun_err not latched on commit to a full FIFO")
	}

	// the queued 16 survive in order; the overrun byte is gone
	for i := 0; i < 16; i++ {
		got, _ := c.ReadRegister(RXDATA)
		if got != uint32(i) {
			t.Errorf("RXDATA #%d = %#02x, want %#02x", i, got, i)
		}
	}
	if c.Status()&StatRxEmpty == 0 {
		t.Error("rx_empty clear after draining: the dropped byte was committed")
	}
}

func TestStartBitGlitchRejected(t *testing.T) {
	c := newTestController(8)
	c.WriteRegister(CTRL, CtrlEnable|CtrlRxEn)

	// a two-clock spike, back at mark before the midpoint sample
	c.SetRxLine(false)
	c.Tick()
	c.Tick()
	c.SetRxLine(true)
	for i := 0; i < 40; i++ {
		c.Tick()
	}

	stat := c.Status()
	if stat&StatRxBusy != 0 {
		t.Error("deserializer stuck after a glitch")
	}
	if stat&StatRxEmpty == 0 {
		t.Error("glitch produced a byte")
	}
}

func TestRxDisabledIgnoresLine(t *testing.T) {
	c := newTestController(8)
	c.WriteRegister(CTRL, CtrlEnable) // no rx_en

	driveFrame(c, 0x55, 8, nil, true)

	if c.Status()&StatRxEmpty == 0 {
		t.Error("byte received with rx_en clear")
	}
}

func TestErrorsLatchUntilReset(t *testing.T) {
	c := newTestController(8)
	c.WriteRegister(CTRL, CtrlEnable|CtrlRxEn|CtrlParityEn)

	bad := !ParityBit(0x41, false)
	driveFrame(c, 0x41, 8, &bad, true)
	if c.Status()&StatParityErr == 0 {
		t.Fatal("parity_err not latched")
	}

	// a clean frame afterwards is received fine; the latch stays
	good := ParityBit(0x42, false)
	driveFrame(c, 0x42, 8, &good, true)
	if c.Status()&StatParityErr == 0 {
		t.Error("parity_err latch cleared by a later clean frame")
	}
	c.ReadRegister(RXDATA)
	got, _ := c.ReadRegister(RXDATA)
	if got != 0x42 {
		t.Errorf("reception after an error frame broken: RXDATA = %#02x, want 0x42", got)
	}

	c.Reset()
	if c.Status()&StatParityErr != 0 {
		t.Error("parity_err survived controller reset")
	}
}

func TestRxBusyFlag(t *testing.T) {
	c := newTestController(8)
	c.WriteRegister(CTRL, CtrlEnable|CtrlRxEn)

	c.SetRxLine(false)
	for i := 0; i < 20; i++ {
		c.Tick()
	}
	if c.Status()&StatRxBusy == 0 {
		t.Error("rx_busy clear mid-frame")
	}
}
