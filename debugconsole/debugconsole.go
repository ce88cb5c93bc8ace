// SPDX-License-Identifier: GPL-2.0-or-later

// Package debugconsole is an interactive terminal front panel for a
// running board, grounded on michalkowalik-pdp11's console/console.go:
// a gocui.Gui laid out into stacked views, one of them refreshed off a
// background ticker via g.Update since gocui views may only be mutated
// from the main loop's goroutine. Where the teacher's console only
// displays CPU registers, this one has no CPU to show (§1 scopes the ARM
// core out) and instead tails the central log alongside AIC/PDC/IOX
// state pulled live off the *soc.SoC, plus a command line for peeking
// and poking MMIO addresses and raising/lowering AIC lines directly.
package debugconsole

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jroimartin/gocui"

	"github.com/us-irs/qemu-iobc/logger"
	"github.com/us-irs/qemu-iobc/pdc"
	"github.com/us-irs/qemu-iobc/soc"
)

// registerRefresh is how often the registers view is redrawn. There is no
// invariant tying this to anything in the board; it is purely cosmetic.
const registerRefresh = 500 * time.Millisecond

// Console is the interactive front panel: a gocui.Gui wired to four
// stacked views ("log", "registers", "cmd", "status") and a background
// ticker that redraws "registers" and tails the central log into "log".
type Console struct {
	g   *gocui.Gui
	soc *soc.SoC
}

// New creates the gocui.Gui, lays out its views and wires the quit and
// command-entry keybindings. Run must be called afterwards to start the
// ticker and enter the gocui main loop.
func New(s *soc.SoC) (*Console, error) {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return nil, err
	}

	c := &Console{g: g, soc: s}
	g.Cursor = true
	g.SetManagerFunc(c.layout)

	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		g.Close()
		return nil, err
	}
	if err := g.SetKeybinding("cmd", gocui.KeyEnter, gocui.ModNone, c.execCommand); err != nil {
		g.Close()
		return nil, err
	}

	return c, nil
}

func quit(*gocui.Gui, *gocui.View) error { return gocui.ErrQuit }

// Run starts the register/log ticker and blocks in the gocui main loop
// until the user quits (Ctrl-C) or types "quit"/"q" into the command
// line, closing the Gui on return. Matching gocui's own convention,
// gocui.ErrQuit from MainLoop is not an error.
func (c *Console) Run() error {
	defer c.g.Close()

	ticker := time.NewTicker(registerRefresh)
	defer ticker.Stop()
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				c.g.Update(c.redraw)
			}
		}
	}()

	if err := c.g.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}
	return nil
}

// Fixed heights for the bottom two bars and the "registers" view above
// them; "log" takes whatever vertical space remains at the top.
const (
	statusHeight    = 3
	cmdHeight       = 3
	registersHeight = 15
)

func (c *Console) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	statusY0 := maxY - statusHeight
	cmdY0 := statusY0 - cmdHeight
	registersY0 := cmdY0 - registersHeight

	if v, err := g.SetView("log", 0, 0, maxX-1, registersY0-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Log"
		v.Autoscroll = true
		v.Wrap = true
	}

	if v, err := g.SetView("registers", 0, registersY0, maxX-1, cmdY0-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Board state"
	}

	if v, err := g.SetView("cmd", 0, cmdY0, maxX-1, statusY0-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Command"
		v.Editable = true
		if _, err := g.SetCurrentView("cmd"); err != nil {
			return err
		}
	}

	if v, err := g.SetView("status", 0, statusY0, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Status"
		fmt.Fprint(v, " peek <hex addr> | poke <hex addr> <hex val> | irq <line> <0|1> | quit")
	}

	return nil
}

func (c *Console) redraw(g *gocui.Gui) error {
	if v, err := g.View("registers"); err == nil {
		v.Clear()
		c.writeBoardState(v)
	}
	if v, err := g.View("log"); err == nil {
		logger.WriteRecent(v)
	}
	return nil
}

// execCommand runs the single command line typed into "cmd" and echoes
// its result (or error) into the central log, where it surfaces in the
// "log" view on the next redraw. The view is cleared afterwards so the
// next command starts from an empty line, the same one-shot-entry idiom
// a gocui command prompt uses.
func (c *Console) execCommand(g *gocui.Gui, v *gocui.View) error {
	line := strings.TrimSpace(v.Buffer())
	v.Clear()
	v.SetCursor(0, 0)

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch strings.ToLower(fields[0]) {
	case "quit", "q":
		return gocui.ErrQuit
	case "peek":
		c.peek(fields)
	case "poke":
		c.poke(fields)
	case "irq":
		c.setIRQ(fields)
	default:
		logger.Logf(logger.Allow, "debugconsole", "unknown command %q", line)
	}
	return nil
}

func parseHex(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 32)
	return uint32(v), err
}

func (c *Console) peek(fields []string) {
	if len(fields) != 2 {
		logger.Logf(logger.Allow, "debugconsole", "usage: peek <hex addr>")
		return
	}
	addr, err := parseHex(fields[1])
	if err != nil {
		logger.Logf(logger.Allow, "debugconsole", "peek: bad address %q: %v", fields[1], err)
		return
	}
	value, err := c.soc.Fabric.Read(addr)
	if err != nil {
		logger.Logf(logger.Allow, "debugconsole", "peek %#08x: %v", addr, err)
		return
	}
	logger.Logf(logger.Allow, "debugconsole", "peek %#08x = %#08x", addr, value)
}

func (c *Console) poke(fields []string) {
	if len(fields) != 3 {
		logger.Logf(logger.Allow, "debugconsole", "usage: poke <hex addr> <hex val>")
		return
	}
	addr, err := parseHex(fields[1])
	if err != nil {
		logger.Logf(logger.Allow, "debugconsole", "poke: bad address %q: %v", fields[1], err)
		return
	}
	value, err := parseHex(fields[2])
	if err != nil {
		logger.Logf(logger.Allow, "debugconsole", "poke: bad value %q: %v", fields[2], err)
		return
	}
	if err := c.soc.Fabric.Write(addr, value); err != nil {
		logger.Logf(logger.Allow, "debugconsole", "poke %#08x = %#08x: %v", addr, value, err)
		return
	}
	logger.Logf(logger.Allow, "debugconsole", "poke %#08x = %#08x", addr, value)
}

// setIRQ raises or lowers an AIC line directly, bypassing whatever
// peripheral owns it — useful for exercising the AIC's priority/vector
// selection (spec §8 property 2) without wiring up an external client on
// every peripheral's IOX socket first.
func (c *Console) setIRQ(fields []string) {
	if len(fields) != 3 {
		logger.Logf(logger.Allow, "debugconsole", "usage: irq <line> <0|1>")
		return
	}
	line, err := strconv.Atoi(fields[1])
	if err != nil || line < 0 || line > 31 {
		logger.Logf(logger.Allow, "debugconsole", "irq: line must be 0-31")
		return
	}
	level, err := strconv.Atoi(fields[2])
	if err != nil || (level != 0 && level != 1) {
		logger.Logf(logger.Allow, "debugconsole", "irq: level must be 0 or 1")
		return
	}
	c.soc.AIC.SetLine(line, level == 1)
	logger.Logf(logger.Allow, "debugconsole", "irq line %d set to %v", line, level == 1)
}

// writeBoardState reproduces metrics.socDump's coverage (AIC pending
// state, every PDC-owning peripheral's channel counters, IOX client
// connection state) as plain text for a terminal view instead of JSON.
func (c *Console) writeBoardState(w io.Writer) {
	fmt.Fprintf(w, "AIC    IPR=%#010x IMR=%#010x\n", c.soc.AIC.IPR(), c.soc.AIC.IMR())

	writePDC(w, "twi", c.soc.TWI.PDC())
	writePDC(w, "mci", c.soc.MCI.PDC())
	for i, u := range c.soc.USART {
		writePDC(w, fmt.Sprintf("usart%d", i), u.PDC())
	}
	for i, s := range c.soc.SPI {
		writePDC(w, fmt.Sprintf("spi%d", i), s.PDC())
	}

	for _, srv := range c.soc.IOXServers() {
		fmt.Fprintf(w, "iox    %-8s connected=%v\n", srv.Name(), srv.Connected())
	}
}

func writePDC(w io.Writer, name string, p *pdc.Controller) {
	fmt.Fprintf(w, "pdc    %-8s rcr=%-6d tcr=%-6d rpr=%#010x tpr=%#010x\n",
		name, p.RCR(), p.TCR(), p.RPR(), p.TPR())
}
