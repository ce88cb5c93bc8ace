// SPDX-License-Identifier: GPL-2.0-or-later

// Package pio implements the AT91 Parallel I/O controller, grounded on
// at91-pio.c/.h. The board instantiates three of these (PIOA/B/C); pin
// state that isn't driven by the PIO's own registers is observed and
// injected over an IOX socket (category PINSTATE) rather than through
// real GPIO wires, since this port has no physical pin fabric.
package pio

import (
	"sync"

	"github.com/us-irs/qemu-iobc/curated"
	"github.com/us-irs/qemu-iobc/iox"
)

// NumPins matches AT91_PIO_NUM_PINS.
const NumPins = 32

const (
	regPER  = 0x00
	regPDR  = 0x04
	regPSR  = 0x08
	regOER  = 0x10
	regODR  = 0x14
	regOSR  = 0x18
	regIFER = 0x20
	regIFDR = 0x24
	regIFSR = 0x28
	regSODR = 0x30
	regCODR = 0x34
	regODSR = 0x38
	regPDSR = 0x3c
	regIER  = 0x40
	regIDR  = 0x44
	regIMR  = 0x48
	regISR  = 0x4c
	regMDER = 0x50
	regMDDR = 0x54
	regMDSR = 0x58
	regPUDR = 0x60
	regPUER = 0x64
	regPUSR = 0x68
	regASR  = 0x70
	regBSR  = 0x74
	regABSR = 0x78
	regOWER = 0xa0
	regOWDR = 0xa4
	regOWSR = 0xa8
)

// iox categories/IDs for the PINSTATE convention: a client injects input
// pin levels and peripheral-output levels, and observes the resulting
// PDSR-driven output state.
const (
	iocCatPinstate = 0x01
	iocIDPinIn     = 0x01
	iocIDPerihAIn  = 0x02
	iocIDPerihBIn  = 0x03
	iocIDPinOut    = 0x04
)

// Controller is one PIO bank.
type Controller struct {
	name string

	psr, osr, ifsr         uint32
	odsr, pdsr             uint32
	imr, isr               uint32
	mdsr, pusr, absr, owsr uint32

	pinStateIn      uint32
	pinStatePeriphA uint32
	pinStatePeriphB uint32

	server *iox.Server

	// PinOut mirrors the original's qdev_init_gpio_out_named "pin.out"
	// array: a board wires a device's input (e.g. mci.Controller.SelectCard
	// off PIOB pin 7) to one of these slots.
	PinOut [NumPins]func(level bool)

	SetIRQ func(level bool)

	// mu serializes inbound IOX PINSTATE frame handling against MMIO
	// dispatch of this controller's registers, the same role QEMU's BQL
	// plays between a device's background activity and vCPU-driven
	// register access. Kept private to this controller: updatePins runs
	// PinOut callbacks into other peripherals (MCI's card-select) while
	// still holding it, so sharing this lock across peripherals would
	// deadlock the moment one of those callbacks locked back in.
	mu sync.Locker
}

// New constructs a PIO bank; name distinguishes PIOA/PIOB/PIOC in logs.
func New(name string) *Controller {
	c := &Controller{name: name, mu: &sync.Mutex{}}
	c.Reset()
	return c
}

// SetLock replaces this controller's lock.
func (c *Controller) SetLock(mu sync.Locker) { c.mu = mu }

// AttachServer wires an IOX socket carrying PINSTATE frames for this bank.
func (c *Controller) AttachServer(s *iox.Server) { c.server = s }

// Reset implements pio_reset_registers. Every register's documented
// implementation-dependent reset value is modeled as zero, matching the
// original's own comment on reg_psr.
func (c *Controller) Reset() {
	c.psr, c.osr, c.ifsr = 0, 0, 0
	c.odsr, c.pdsr = 0, 0
	c.imr, c.isr = 0, 0
	c.mdsr, c.pusr, c.absr, c.owsr = 0, 0, 0, 0
}

func (c *Controller) updateIRQ() {
	if c.SetIRQ != nil {
		c.SetIRQ(c.isr&c.imr != 0)
	}
}

// updatePins implements pio_update_pins: for each pin, resolves its
// driver (PIO output, raw input, peripheral A, or peripheral B), diffs
// the recomputed PDSR against the previous value to raise edge-triggered
// ISR bits, and reports the result over the attached IOX socket.
func (c *Controller) updatePins() {
	prev := c.pdsr

	for pin := uint32(0); pin < NumPins; pin++ {
		mask := uint32(1) << pin
		switch {
		case c.psr&mask != 0:
			if c.osr&mask != 0 {
				c.pdsr = (c.pdsr &^ mask) | (c.odsr & mask)
			} else {
				c.pdsr = (c.pdsr &^ mask) | (c.pinStateIn & mask)
			}
		case c.absr&mask == 0:
			c.pdsr = (c.pdsr &^ mask) | (c.pinStatePeriphA & mask)
		default:
			c.pdsr = (c.pdsr &^ mask) | (c.pinStatePeriphB & mask)
		}

		if cb := c.PinOut[pin]; cb != nil {
			cb(c.pdsr&mask != 0)
		}
	}

	c.isr |= prev ^ c.pdsr
	c.updateIRQ()

	if c.server != nil {
		c.server.SendU32(iocCatPinstate, iocIDPinOut, c.pdsr)
	}
}

// HandleFrame implements the three pio_handle_gpio_* callbacks, driven
// from an IOX PINSTATE frame in place of a real GPIO wire.
func (c *Controller) HandleFrame(frame iox.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if frame.Cat != iocCatPinstate || len(frame.Payload) < 4 {
		return
	}
	value := be32(frame.Payload)

	switch frame.ID {
	case iocIDPinIn:
		c.pinStateIn = value
	case iocIDPerihAIn:
		c.pinStatePeriphA = value
	case iocIDPerihBIn:
		c.pinStatePeriphB = value
	default:
		return
	}
	c.updatePins()
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// Read implements pio_mmio_read.
func (c *Controller) Read(offset uint32) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch offset {
	case regPSR:
		return c.psr, nil
	case regOSR:
		return c.osr, nil
	case regIFSR:
		return c.ifsr, nil
	case regODSR:
		return c.odsr, nil
	case regPDSR:
		return c.pdsr, nil
	case regIMR:
		return c.imr, nil
	case regISR:
		v := c.isr
		c.isr = 0
		c.updateIRQ()
		return v, nil
	case regMDSR:
		return c.mdsr, nil
	case regPUSR:
		return c.pusr, nil
	case regABSR:
		return c.absr, nil
	case regOWSR:
		return c.owsr, nil
	default:
		return 0, curated.ReadAccessf(offset, "pio: %s", c.name)
	}
}

// Write implements pio_mmio_write.
func (c *Controller) Write(offset uint32, value uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch offset {
	case regPER:
		c.psr |= value
	case regPDR:
		c.psr &^= value
	case regOER:
		c.osr |= value
	case regODR:
		c.osr &^= value
	case regIFER:
		c.ifsr |= value
	case regIFDR:
		c.ifsr &^= value
	case regSODR:
		c.odsr |= value
	case regCODR:
		c.odsr &^= value
	case regODSR:
		c.odsr |= c.owsr & value
		c.odsr &= ^c.owsr | value
	case regIER:
		c.imr |= value
	case regIDR:
		c.imr &^= value
	case regMDER:
		c.mdsr |= value
	case regMDDR:
		c.mdsr &^= value
	case regPUER:
		c.pusr &^= value
	case regPUDR:
		c.pusr |= value
	case regASR:
		c.absr &^= value
	case regBSR:
		c.absr |= value
	case regOWER:
		c.owsr |= value
	case regOWDR:
		c.owsr &^= value
	default:
		return curated.WriteAccessf(offset, value, "pio: %s", c.name)
	}

	c.updatePins()
	return nil
}
