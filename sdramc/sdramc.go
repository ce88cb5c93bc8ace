// SPDX-License-Identifier: GPL-2.0-or-later

// Package sdramc implements the AT91 SDRAM Controller, grounded on
// at91-sdramc.c: a flat register file whose only modelled interrupt
// source is a refresh-error status bit injected over an IOX socket
// (category FAULT, ID RES), since the original has no way to actually
// simulate a refresh failure from within QEMU.
package sdramc

import (
	"sync"

	"github.com/us-irs/qemu-iobc/curated"
	"github.com/us-irs/qemu-iobc/iox"
)

const (
	regMR  = 0x00
	regTR  = 0x04
	regCR  = 0x08
	regLPR = 0x10
	regIER = 0x14
	regIDR = 0x18
	regIMR = 0x1c
	regISR = 0x20
	regMDR = 0x24
)

const isrRES = 1 << 0

const (
	iocCatFault     = 0x02
	iocIDFaultRES   = 0x01
)

// Controller is the SDRAMC instance (the board has exactly one). Its
// interrupt line feeds aic.SysCOR input 2, not the AIC directly.
type Controller struct {
	name string

	mr, tr, cr, lpr uint32
	imr, isr        uint32
	mdr             uint32

	server *iox.Server

	// mu serializes inbound IOX frame handling against MMIO dispatch of
	// this controller's registers, the same role QEMU's BQL plays
	// between a device's background activity and vCPU-driven register
	// access. Kept private to this controller rather than shared across
	// peripherals.
	mu sync.Locker

	SetIRQ func(level bool)
}

// New constructs the SDRAMC instance.
func New(name string) *Controller {
	c := &Controller{name: name, mu: &sync.Mutex{}}
	c.Reset()
	return c
}

// SetLock replaces this controller's lock.
func (c *Controller) SetLock(mu sync.Locker) { c.mu = mu }

// AttachServer wires the board-configured IOX socket.
func (c *Controller) AttachServer(srv *iox.Server) { c.server = srv }

// Reset implements sdramc_reset_registers.
func (c *Controller) Reset() {
	c.mr, c.tr = 0, 0
	c.cr = 0x852372c0
	c.lpr = 0
	c.imr, c.isr = 0, 0
	c.mdr = 0
	c.updateIRQ()
}

func (c *Controller) updateIRQ() {
	if c.SetIRQ != nil {
		c.SetIRQ(c.imr&c.isr != 0)
	}
}

// HandleFrame implements sdramc's iox_receive: a FAULT/RES frame raises
// the refresh-error status bit and re-evaluates the interrupt line.
func (c *Controller) HandleFrame(frame iox.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if frame.Cat != iocCatFault || frame.ID != iocIDFaultRES {
		return
	}
	c.isr |= isrRES
	c.updateIRQ()
}

// Read implements sdramc_mmio_read.
func (c *Controller) Read(offset uint32) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch offset {
	case regMR:
		return c.mr, nil
	case regTR:
		return c.tr, nil
	case regCR:
		return c.cr, nil
	case regLPR:
		return c.lpr, nil
	case regIMR:
		return c.imr, nil
	case regISR:
		isr := c.isr
		c.isr &^= isrRES
		c.updateIRQ()
		return isr, nil
	case regMDR:
		return c.mdr, nil
	default:
		return 0, curated.ReadAccessf(offset, "sdramc: %s", c.name)
	}
}

// Write implements sdramc_mmio_write.
func (c *Controller) Write(offset uint32, value uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch offset {
	case regMR:
		c.mr = value
	case regTR:
		c.tr = value
	case regCR:
		c.cr = value
	case regLPR:
		c.lpr = value
	case regIER:
		c.imr |= value
		c.updateIRQ()
	case regIDR:
		c.imr &^= value
		c.updateIRQ()
	case regMDR:
		c.mdr = value
	default:
		return curated.WriteAccessf(offset, value, "sdramc: %s", c.name)
	}
	return nil
}
