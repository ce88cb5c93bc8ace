// SPDX-License-Identifier: GPL-2.0-or-later

// Package aic implements the Advanced Interrupt Controller: a 32-line
// priority-vectored controller bit-exact with the AT91SAM9G20 datasheet,
// grounded on the QEMU isis_obc board's at91-aic.c. It is wired into the
// SoC as an mmio.Device and exposes SetLine for every peripheral that
// drives one of the 32 input lines.
package aic

import "github.com/us-irs/qemu-iobc/curated"

// Register offsets, relative to the AIC's own MMIO window.
const (
	regSMR0  = 0x000
	regSMR31 = 0x07c
	regSVR0  = 0x080
	regSVR31 = 0x0fc
	regIVR   = 0x100
	regFVR   = 0x104
	regISR   = 0x108
	regIPR   = 0x10c
	regIMR   = 0x110
	regCISR  = 0x114
	regIECR  = 0x120
	regIDCR  = 0x124
	regICCR  = 0x128
	regISCR  = 0x12c
	regEOICR = 0x130
	regSPU   = 0x134
	regDCR   = 0x138
	regFFER  = 0x140
	regFFDR  = 0x144
	regFFSR  = 0x148
)

// source type, packed into bits 5:6 of SMR.
type sourceType uint8

const (
	typeActiveLow     sourceType = 0
	typeActiveFalling sourceType = 1
	typeActiveHigh    sourceType = 2
	typeActiveRising  sourceType = 3
	typeEdgeMask      sourceType = 1
)

const (
	cisrNIRQ = 0x01
	cisrNFIQ = 0x02

	dcrPROT = 0x01
	dcrGMSK = 0x02

	priorityLowest    = 0
	priorityHighest   = 7
	prioritySpurious  = 8
	irqNumberSpurious = 0xff

	stackDepth = 8
)

type stackElem struct {
	irq uint8
	pri uint8
}

// Controller is the AIC. The zero value is not usable; construct with New.
type Controller struct {
	smr [32]uint32
	svr [32]uint32

	ipr  uint32
	imr  uint32
	cisr uint32
	spu  uint32
	dcr  uint32
	ffsr uint32

	lineState uint32

	stack    [stackDepth]stackElem
	stackPos int // -1 means empty

	// SetIRQ/SetFIQ are the output lines. They are called every time
	// aic_core_irq_update would run in the original: on every register
	// write and every input line transition.
	SetIRQ func(level bool)
	SetFIQ func(level bool)
}

// New constructs an AIC with both output lines reset.
func New() *Controller {
	c := &Controller{}
	c.Reset()
	return c
}

// Reset implements the reset_registers + stack/line_state reinitialisation
// performed by both device_realize and device_reset in the original.
func (c *Controller) Reset() {
	for i := range c.smr {
		c.smr[i] = 0
		c.svr[i] = 0
	}
	c.ipr = 0
	c.imr = 0
	c.cisr = 0
	c.spu = 0
	c.dcr = 0
	c.ffsr = 0
	c.lineState = 0
	c.stackPos = -1
	c.updateOutputs()
}

// IPR returns the raw interrupt pending register, matching AIC_IPR.
func (c *Controller) IPR() uint32 { return c.ipr }

// IMR returns the raw interrupt mask register, matching AIC_IMR.
func (c *Controller) IMR() uint32 { return c.imr }

func (c *Controller) priority(irq int) uint8 {
	return uint8(c.smr[irq] & 7)
}

// sourceTypeOf returns the effective source type for irq. Internal sources
// (1..28) are forced to the ACTIVE_HIGH/ACTIVE_RISING equivalent of
// whatever level/edge family software configured, regardless of SMR —
// matching aic_irq_get_type's hardwiring.
func (c *Controller) sourceTypeOf(irq int) sourceType {
	st := sourceType((c.smr[irq] >> 5) & 0x3)
	if irq > 0 && irq < 29 {
		switch st {
		case typeActiveLow:
			return typeActiveHigh
		case typeActiveFalling:
			return typeActiveRising
		}
	}
	return st
}

func (c *Controller) isEdgeTriggered(irq int) bool {
	return c.sourceTypeOf(irq)&typeEdgeMask != 0
}

func (c *Controller) isFast(irq int) bool {
	return (c.ffsr|0x1)&(1<<uint(irq)) != 0
}

// highestPending implements aic_irq_get_highest_pending: among lines
// 1..31, pending & enabled & not fast-forced, pick the highest priority;
// ties favour the lowest index because of the strict '>' comparison.
func (c *Controller) highestPending() int {
	pending := c.ipr & c.imr &^ c.ffsr
	highIRQ, highPri := -1, -1
	for irq := 1; irq < 32; irq++ {
		if pending&(1<<uint(irq)) == 0 {
			continue
		}
		pri := int(c.priority(irq))
		if pri > highPri {
			highIRQ, highPri = irq, pri
		}
	}
	return highIRQ
}

func (c *Controller) stackTop() *stackElem {
	if c.stackPos < 0 {
		return nil
	}
	return &c.stack[c.stackPos]
}

func (c *Controller) stackPush(irq, pri uint8) error {
	if c.stackPos >= stackDepth-1 {
		return curated.Errorf("aic: irq stack overflow pushing irq %d", irq)
	}
	c.stackPos++
	c.stack[c.stackPos] = stackElem{irq: irq, pri: pri}
	return nil
}

func (c *Controller) stackPop() {
	if c.stackPos >= 0 {
		c.stackPos--
	}
}

// updateOutputs implements aic_core_irq_update.
func (c *Controller) updateOutputs() {
	if c.dcr&dcrGMSK != 0 {
		c.cisr = 0
	} else {
		pending := c.ipr & c.imr
		fast := c.ffsr | 1

		nfiq := pending&fast != 0
		nirq := pending&^fast != 0

		if nirq {
			if top := c.stackTop(); top != nil {
				irq := c.highestPending()
				nirq = irq >= 0 && c.priority(irq) > top.pri
			}
		}

		c.cisr = 0
		if nirq {
			c.cisr |= cisrNIRQ
		}
		if nfiq {
			c.cisr |= cisrNFIQ
		}
	}

	if c.SetFIQ != nil {
		c.SetFIQ(c.cisr&cisrNFIQ != 0)
	}
	if c.SetIRQ != nil {
		c.SetIRQ(c.cisr&cisrNIRQ != 0)
	}
}

// SetLine is the input side: a peripheral (or the AIC stub, for SYSC)
// drives line irq to level. Implements aic_irq_handle.
func (c *Controller) SetLine(irq int, level bool) {
	mask := uint32(1) << uint(irq)
	newBit := uint32(0)
	if level {
		newBit = mask
	}

	active := false
	switch {
	case c.lineState&mask != newBit && level:
		active = c.sourceTypeOf(irq) == typeActiveRising
	case c.lineState&mask != newBit && !level:
		active = c.sourceTypeOf(irq) == typeActiveFalling
	}
	c.lineState = (c.lineState &^ mask) | newBit

	if level {
		active = active || c.sourceTypeOf(irq) == typeActiveHigh
	} else {
		active = active || c.sourceTypeOf(irq) == typeActiveLow
	}

	if active {
		c.ipr |= mask
	} else if !c.isEdgeTriggered(irq) {
		c.ipr &^= mask
	}

	c.updateOutputs()
}
