// SPDX-License-Identifier: GPL-2.0-or-later

// Package dbgu implements the AT91 Debug Unit, grounded on at91-dbgu.c:
// THR writes flush synchronously to an io.Writer (normally host stdout),
// and RHR is fed from host stdin placed into raw mode via
// github.com/pkg/term/termios.
package dbgu

import (
	"io"
	"os"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"

	"github.com/us-irs/qemu-iobc/curated"
)

const (
	regCR   = 0x00
	regMR   = 0x04
	regIER  = 0x08
	regIDR  = 0x0c
	regIMR  = 0x10
	regSR   = 0x14
	regRHR  = 0x18
	regTHR  = 0x1c
	regBRGR = 0x20
	regCIDR = 0x40
	regEXID = 0x44
	regFNR  = 0x48
)

const (
	crRSTRX  = 1 << 2
	crRSTTX  = 1 << 3
	crRXEN   = 1 << 4
	crRXDIS  = 1 << 5
	crTXEN   = 1 << 6
	crTXDIS  = 1 << 7
	crRSTSTA = 1 << 8

	srRXRDY   = 1 << 0
	srTXRDY   = 1 << 1
	srOVRE    = 1 << 5
	srFRAME   = 1 << 6
	srPARE    = 1 << 7
	srTXEMPTY = 1 << 9
	srTXBUFE  = 1 << 11
	srRXBUFF  = 1 << 12
)

// Controller is the DBGU instance (the board has exactly one).
type Controller struct {
	name string
	out  io.Writer

	mr, sr, imr          uint32
	rhr, brgr, fnr       uint32
	cidr, exid           uint32
	rxEnabled, txEnabled bool

	rx *stdinReader

	SetIRQ func(level bool)
}

// New constructs the DBGU instance; out receives every byte written to
// THR (normally os.Stdout, via a board-level io.Writer adapter).
func New(name string, out io.Writer) *Controller {
	c := &Controller{name: name, out: out}
	c.Reset()
	return c
}

// Reset implements dbgu_reset_registers.
func (c *Controller) Reset() {
	c.sr = srTXRDY | srTXBUFE | srTXEMPTY
	c.mr, c.imr, c.rhr, c.brgr, c.fnr = 0, 0, 0, 0, 0
	c.cidr, c.exid = 0, 0 // IOBC_CIDR/IOBC_EXID are both zero placeholders upstream too
	c.rxEnabled, c.txEnabled = false, false
}

func (c *Controller) updateIRQ() {
	if c.SetIRQ != nil {
		c.SetIRQ(c.sr&c.imr != 0)
	}
}

// AttachStdin starts a background reader over in (normally os.Stdin)
// placed into raw/cbreak mode, feeding received bytes into RHR. Step must
// be called regularly (from SoC.Run's loop) to drain it without blocking.
func (c *Controller) AttachStdin(in *os.File) error {
	r, err := newStdinReader(in)
	if err != nil {
		return curated.Errorf("dbgu: %s: %v", c.name, err)
	}
	c.rx = r
	return nil
}

// DetachStdin restores canonical terminal mode, undoing AttachStdin. It
// is a no-op if stdin was never attached.
func (c *Controller) DetachStdin() error {
	if c.rx == nil {
		return nil
	}
	err := c.rx.Restore()
	c.rx = nil
	return err
}

// Step drains at most one buffered host-stdin byte into RHR without
// blocking. DBGU is the only peripheral polled this way; the others are
// driven from their own goroutines and callbacks.
func (c *Controller) Step() {
	if c.rx == nil || !c.rxEnabled {
		return
	}
	b, ok := c.rx.tryRead()
	if !ok {
		return
	}
	if c.sr&srRXRDY != 0 {
		c.sr |= srOVRE
	}
	c.rhr = uint32(b)
	c.sr |= srRXRDY
	c.updateIRQ()
}

// stdinReader owns the raw-mode termios state and a goroutine blocked on
// the real file descriptor, handing bytes to Step via a buffered channel
// so the core event loop never itself blocks on host input. The
// save/restore shape mirrors easyterm.Terminal's canAttr/rawAttr pair.
type stdinReader struct {
	f        *os.File
	canAttr  unix.Termios
	bytesCh  chan byte
}

func newStdinReader(f *os.File) (*stdinReader, error) {
	var saved, raw unix.Termios
	if err := termios.Tcgetattr(f.Fd(), &saved); err != nil {
		return nil, err
	}
	raw = saved
	termios.Cfmakeraw(&raw)
	if err := termios.Tcsetattr(f.Fd(), termios.TCSANOW, &raw); err != nil {
		return nil, err
	}

	r := &stdinReader{f: f, canAttr: saved, bytesCh: make(chan byte, 256)}
	go r.readLoop()
	return r, nil
}

// Restore puts the controlling terminal back into canonical mode.
func (r *stdinReader) Restore() error {
	return termios.Tcsetattr(r.f.Fd(), termios.TCSANOW, &r.canAttr)
}

func (r *stdinReader) readLoop() {
	buf := make([]byte, 1)
	for {
		n, err := r.f.Read(buf)
		if n > 0 {
			r.bytesCh <- buf[0]
		}
		if err != nil {
			return
		}
	}
}

func (r *stdinReader) tryRead() (byte, bool) {
	select {
	case b := <-r.bytesCh:
		return b, true
	default:
		return 0, false
	}
}
