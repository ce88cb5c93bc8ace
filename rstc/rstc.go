// SPDX-License-Identifier: GPL-2.0-or-later

// Package rstc implements the AT91 Reset Controller, grounded on
// at91-rstc.c: a three-register file guarded by a write key, whose only
// implemented effect is the user-reset status bit and its interrupt —
// the original leaves processor/peripheral/external reset itself as an
// unimplemented TODO, which this port keeps as a logged no-op rather than
// inventing reset semantics the real hardware model never built.
package rstc

import (
	"github.com/us-irs/qemu-iobc/curated"
	"github.com/us-irs/qemu-iobc/logger"
)

const (
	regCR = 0x00
	regSR = 0x04
	regMR = 0x08
)

const keyPassword = 0xa5

const (
	crPROCRST = 1 << 0
	crPERRST  = 1 << 2
	crEXTRST  = 1 << 3

	srURSTS = 1 << 0
	srNRSTL = 1 << 16
	srSRCMP = 1 << 17

	mrURSTIEN = 1 << 4
)

// Controller is the RSTC instance (the board has exactly one). Its
// interrupt line feeds aic.SysCOR input 3, not the AIC directly.
type Controller struct {
	name string

	sr, mr uint32

	SetIRQ func(level bool)
}

// New constructs the RSTC instance.
func New(name string) *Controller {
	c := &Controller{name: name}
	c.Reset()
	return c
}

// Reset implements rstc_device_realize's register initialisation.
func (c *Controller) Reset() {
	c.sr = srURSTS | srNRSTL
	c.mr = 0
}

func (c *Controller) updateIRQ() {
	if c.SetIRQ != nil {
		c.SetIRQ(c.mr&mrURSTIEN != 0 && c.sr&srURSTS != 0)
	}
}

// Read implements rstc_mmio_read.
func (c *Controller) Read(offset uint32) (uint32, error) {
	switch offset {
	case regSR:
		sr := c.sr
		c.sr &^= srURSTS
		c.updateIRQ()
		return sr, nil
	case regMR:
		return c.mr, nil
	default:
		return 0, curated.ReadAccessf(offset, "rstc: %s", c.name)
	}
}

// Write implements rstc_mmio_write: writes to any register other than MR
// without the 0xa5 key in the top byte are dropped with a logged warning,
// not an abort; MR writes are accepted without a key check.
func (c *Controller) Write(offset uint32, value uint32) error {
	if offset != regMR && (value>>24)&0xff != keyPassword {
		logger.Logf(logger.Allow, c.name, "write access without proper key")
		return nil
	}

	switch offset {
	case regCR:
		if value&crPROCRST != 0 {
			logger.Logf(logger.Allow, c.name, "processor reset not implemented")
		}
		if value&crPERRST != 0 {
			logger.Logf(logger.Allow, c.name, "peripheral reset not implemented")
		}
		if value&crEXTRST != 0 {
			logger.Logf(logger.Allow, c.name, "external reset not implemented")
		}
	case regMR:
		c.mr = value
	default:
		return curated.WriteAccessf(offset, value, "rstc: %s", c.name)
	}

	c.updateIRQ()
	return nil
}
