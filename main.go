package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jroimartin/gocui"
	"github.com/mattn/go-tty"

	"uartctl/console"
	"uartctl/logger"
	"uartctl/system"
	"uartctl/uart"
)

// clocks stepped per 2ms slice: 100k clocks -> 50MHz model time
const clocksPerSlice = 100_000

var (
	nogui   = flag.Bool("nogui", false, "run without the gocui monitor")
	logPath = flag.String("log", "", "log file path (default: stdout)")
)

func main() {
	flag.Parse()
	l := logger.New(*logPath)

	if *nogui {
		if err := runSimple(l); err != nil {
			log.Fatal(err)
		}
		return
	}

	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		log.Panicln("Couldn't create gui!")
	}
	defer g.Close()

	g.SetManagerFunc(layout)
	g.Cursor = true

	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		log.Panicln(err)
	}

	m := &monitor{
		g:    g,
		keys: make(chan byte, 8),
		log:  l,
	}
	g.Update(m.start)

	if err := g.MainLoop(); err != nil && err != gocui.ErrQuit {
		log.Panicln(err)
	}
}

// monitor drives the modeled controller from a single clock goroutine.
// Key presses arrive over a channel, so every bus transaction and every
// clock step happens on that one goroutine.
type monitor struct {
	g    *gocui.Gui
	sys  *system.System
	keys chan byte
	log  *log.Logger
}

// start wires the system to the views and kicks off the clock. Runs
// inside g.Update, once the views exist.
func (m *monitor) start(g *gocui.Gui) error {
	statusView, err := g.View("status")
	if err != nil {
		return err
	}
	termView, err := g.View("terminal")
	if err != nil {
		return err
	}
	termView.Editable = true
	termView.Editor = gocui.EditorFunc(m.edit)
	if _, err := g.SetCurrentView("terminal"); err != nil {
		return err
	}

	fmt.Fprintf(statusView, "Starting UART controller monitor..\n")

	c := console.NewGui(g)
	m.sys = system.InitializeSystem(c, m.log)
	m.sys.Reset()
	m.sys.Loopback(true)

	// enable controller, TX and RX
	if err := m.sys.WriteRegister(uart.CTRL, uart.CtrlEnable|uart.CtrlTxEn|uart.CtrlRxEn); err != nil {
		return err
	}
	_ = c.WriteConsole(fmt.Sprintf("CTRL=0x07, divisor %d, loopback on\n", m.sys.UART.Divisor()))

	go m.run()
	return nil
}

// edit feeds typed characters into the clock goroutine.
func (m *monitor) edit(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) {
	var b byte
	switch {
	case ch != 0 && ch < 0x80:
		b = byte(ch)
	case key == gocui.KeySpace:
		b = ' '
	case key == gocui.KeyEnter:
		b = '\r'
	default:
		return
	}
	select {
	case m.keys <- b:
	default:
		// key dropped, the model is behind
	}
}

// run is the clock goroutine: step the model, push typed bytes to
// TXDATA, drain RXDATA into the terminal view, refresh the register
// view about once a second.
func (m *monitor) run() {
	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()

	slices := 0
	for range ticker.C {
		select {
		case b := <-m.keys:
			_ = m.sys.WriteRegister(uart.TXDATA, uint32(b))
		default:
		}

		m.sys.Idle(clocksPerSlice)

		if rx := m.sys.DrainRx(); len(rx) > 0 {
			m.g.Update(func(g *gocui.Gui) error {
				v, err := g.View("terminal")
				if err != nil {
					return err
				}
				for _, b := range rx {
					if b == '\r' {
						fmt.Fprintln(v)
						continue
					}
					fmt.Fprint(v, string(rune(b)))
				}
				return nil
			})
		}

		slices++
		if slices%500 == 0 {
			m.updateRegisters()
		}
	}
}

// updateRegisters refreshes the register view over the bus.
func (m *monitor) updateRegisters() {
	ctrl, _ := m.sys.ReadRegister(uart.CTRL)
	stat, _ := m.sys.ReadRegister(uart.STAT)
	baud, _ := m.sys.ReadRegister(uart.BAUD)
	intr, _ := m.sys.ReadRegister(uart.INT)
	cycles := m.sys.Cycles()

	m.g.Update(func(g *gocui.Gui) error {
		v, err := g.View("registers")
		if err != nil {
			return err
		}
		v.Clear()
		fmt.Fprintf(v, " CTRL: %#02x | STAT: %#02x | BAUD: %d | INT: %#02x | <t : 0x%x>",
			ctrl, stat, baud, intr, cycles)
		return nil
	})
}

// gocui layout
func layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	// up -> serial terminal
	if v, err := g.SetView("terminal", 0, 0, maxX-1, maxY-18); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Terminal"
	}

	// middle -> register values
	if v, err := g.SetView("registers", 0, maxY-17, maxX-1, maxY-14); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Registers"
	}
	// down -> status
	if v, err := g.SetView("status", 0, maxY-13, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Status"
	}
	return nil
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}

// runSimple is the monitor without gocui: raw keyboard via go-tty,
// received bytes straight to stdout. Ctrl-C exits.
func runSimple(l *log.Logger) error {
	c := console.NewSimple()
	sys := system.InitializeSystem(c, l)
	sys.Reset()
	sys.Loopback(true)

	if err := sys.WriteRegister(uart.CTRL, uart.CtrlEnable|uart.CtrlTxEn|uart.CtrlRxEn); err != nil {
		return err
	}
	_ = c.WriteConsole("UART loopback terminal, Ctrl-C to quit.\n")

	t, err := tty.Open()
	if err != nil {
		return err
	}
	defer t.Close()

	keys := make(chan byte, 8)
	go func() {
		for {
			r, err := t.ReadRune()
			if err != nil {
				close(keys)
				return
			}
			if r < 0x80 {
				keys <- byte(r)
			}
		}
	}()

	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		select {
		case b, ok := <-keys:
			if !ok || b == 0x03 {
				return nil
			}
			_ = sys.WriteRegister(uart.TXDATA, uint32(b))
		default:
		}

		sys.Idle(clocksPerSlice)

		if rx := sys.DrainRx(); len(rx) > 0 {
			os.Stdout.Write(rx)
		}
	}
	return nil
}
