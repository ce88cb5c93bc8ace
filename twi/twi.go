// SPDX-License-Identifier: GPL-2.0-or-later

// Package twi implements the AT91 TWI (I2C) master, grounded on
// at91-twi.c: CTRL_START/CTRL_STOP IOX framing, the two-tick debounce
// timer that bundles single-byte THR writes into one burst, and the
// half-duplex PDC channel's mode-transition guard.
package twi

import (
	"sync"
	"time"

	"github.com/us-irs/qemu-iobc/iox"
	"github.com/us-irs/qemu-iobc/pdc"
)

const (
	regCR   = 0x00
	regMMR  = 0x04
	regSMR  = 0x08
	regIADR = 0x0c
	regCWGR = 0x10
	regSR   = 0x20
	regIER  = 0x24
	regIDR  = 0x28
	regIMR  = 0x2c
	regRHR  = 0x30
	regTHR  = 0x34

	pdcStart = 0x100
	pdcEnd   = 0x128
)

const (
	crSTART = 1 << 0
	crSTOP  = 1 << 1
	crMSEN  = 1 << 2
	crMSDIS = 1 << 3
	crSVEN  = 1 << 4
	crSVDIS = 1 << 5
	crSWRST = 1 << 7

	mmrIADRSZShift = 8
	mmrIADRSZMask  = 0x03
	mmrDADRShift   = 16
	mmrDADRMask    = 0x7f
	mmrMREAD       = 1 << 12

	srTXCOMP = 1 << 0
	srRXRDY  = 1 << 1
	srTXRDY  = 1 << 2
	srOVRE   = 1 << 6
	srNACK   = 1 << 8
	srARBLST = 1 << 9
	srENDRX  = 1 << 12
	srENDTX  = 1 << 13
	srRXBUFF = 1 << 14
	srTXBUFE = 1 << 15

	iocCatData       = 0x01
	iocCatFault      = 0x02
	iocIDDataIn      = 0x01
	iocIDDataOut     = 0x02
	iocIDCtrlStart   = 0x03
	iocIDCtrlStop    = 0x04
	iocIDFaultOVRE   = 0x01
	iocIDFaultNACK   = 0x02
	iocIDFaultARBLST = 0x03

	// debounceTicks is the "two ticks of the TWI clock" the original
	// models with a ptimer counting down from 2.
	debounceTicks = 2
)

// Mode mirrors AT91_TWI_MODE_{OFFLINE,MASTER,SLAVE}.
type Mode int

const (
	ModeOffline Mode = iota
	ModeMaster
	ModeSlave
)

// MemoryBus is the PDC-addressable byte view of system memory.
type MemoryBus interface {
	ReadBytes(addr uint32, n int) ([]byte, error)
	WriteBytes(addr uint32, data []byte) error
}

// Controller is the TWI instance (the board has exactly one).
type Controller struct {
	name string
	bus  MemoryBus
	pdc  *pdc.Controller

	mode Mode

	mmr, smr, iadr, cwgr uint32
	sr, imr              uint32
	rhr                  uint32

	mclk  uint32
	clock uint32

	sendbuf []byte
	rcvbuf  *iox.Buffer

	dmaRxEnabled bool

	debounce *time.Timer

	server *iox.Server

	// mu serializes the debounce-timer callback and inbound IOX frame
	// handling against MMIO dispatch of this controller's registers, the
	// same role QEMU's BQL plays between a device's background activity
	// and vCPU-driven register access. Kept private to this controller:
	// a lock shared across peripherals would deadlock the moment one
	// peripheral's callback reaches into another while holding it.
	mu sync.Locker

	SetIRQ func(level bool)
}

// New constructs the TWI instance.
func New(name string, bus MemoryBus) *Controller {
	c := &Controller{name: name, bus: bus, rcvbuf: iox.NewBuffer(1024), mu: &sync.Mutex{}}
	c.pdc = pdc.NewHalfDuplex(c)
	c.Reset()
	return c
}

// SetLock replaces this controller's lock.
func (c *Controller) SetLock(mu sync.Locker) { c.mu = mu }

// AttachServer wires the board-configured IOX socket.
func (c *Controller) AttachServer(srv *iox.Server) { c.server = srv }

// PDC exposes the embedded PDC channel for diagnostics.
func (c *Controller) PDC() *pdc.Controller { return c.pdc }

// Reset implements twi_reset_registers.
func (c *Controller) Reset() {
	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.mode = ModeOffline
	c.mmr, c.smr, c.iadr, c.cwgr = 0, 0, 0, 0
	c.sr = srTXCOMP
	c.imr = 0
	c.rhr = 0
	c.sendbuf = c.sendbuf[:0]
	c.dmaRxEnabled = false
	c.pdc.Reset()
	c.rcvbuf.Reset()
}

// SetMasterClock implements at91_twi_set_master_clock; wired from pmc.
func (c *Controller) SetMasterClock(mclk uint32) {
	c.mclk = mclk
	c.updateClock()
}

func (c *Controller) updateClock() {
	ckdiv := (c.cwgr >> 16) & 0x7
	cldiv := c.cwgr & 0xff
	chdiv := (c.cwgr >> 8) & 0xff

	ldiv := cldiv*(1<<ckdiv) + 4
	hdiv := chdiv*(1<<ckdiv) + 4

	if c.mclk != 0 {
		c.clock = c.mclk / (ldiv + hdiv)
	}
}

func (c *Controller) updateIRQ() {
	if c.SetIRQ != nil {
		c.SetIRQ(c.imr&c.sr != 0)
	}
}

func (c *Controller) mmrDADR() uint32 {
	dadr := (c.mmr >> mmrDADRShift) & mmrDADRMask
	if c.mmr&mmrMREAD != 0 {
		dadr |= 1 << 5
	}
	return dadr
}

func (c *Controller) mmrIADRSZ() uint32 { return (c.mmr >> mmrIADRSZShift) & mmrIADRSZMask }
