// SPDX-License-Identifier: GPL-2.0-or-later

// Package pmc implements the AT91 Power Management Controller, grounded
// on at91-pmc.c: a flat 33-word register file validated against a fixed
// per-register access-class table, with the small set of set-on-write
// status side effects (MOSCS/LOCKA/LOCKB/MCKRDY) the original hard-codes.
// The original leaves actual clock computation as a TODO ("simulate
// non-instant change"); this port supplements it with a real MCKR-driven
// master-clock computation fanned out to every peripheral that cares,
// since nothing else in the board can derive a clock rate otherwise.
package pmc

import "github.com/us-irs/qemu-iobc/curated"

const numRegs = 33

// register indices, matching enum reg_index (offset/4).
const (
	rSCER    = 0x00 / 4
	rSCDR    = 0x04 / 4
	rSCSR    = 0x08 / 4
	rPCER    = 0x10 / 4
	rPCDR    = 0x14 / 4
	rPCSR    = 0x18 / 4
	rCKGR_MOR   = 0x20 / 4
	rCKGR_MCFR  = 0x24 / 4
	rCKGR_PLLAR = 0x28 / 4
	rCKGR_PLLBR = 0x2c / 4
	rMCKR    = 0x30 / 4
	rPCK0    = 0x40 / 4
	rPCK1    = 0x44 / 4
	rIER     = 0x60 / 4
	rIDR     = 0x64 / 4
	rSR      = 0x68 / 4
	rIMR     = 0x6c / 4
	rPLLICPR = 0x80 / 4
)

type access int

const (
	accessReserved access = iota
	accessRW
	accessRO
	accessWO
)

// regAccess mirrors pmc_reg_access[] exactly, index-for-index.
var regAccess = [numRegs]access{
	accessWO, accessWO, accessRO, accessReserved,
	accessWO, accessWO, accessRO, accessReserved,
	accessRW, accessRO, accessRW, accessRW,
	accessRW, accessReserved, accessReserved, accessRW,
	accessRW, accessReserved, accessReserved, accessReserved,
	accessReserved, accessReserved, accessReserved, accessWO,
	accessWO, accessRO, accessRO, accessReserved,
	accessReserved, accessReserved, accessReserved, accessReserved,
	accessRW,
}

// srMOSCS/LOCKA/LOCKB/MCKRDY are the only PMC_SR bits this model ever
// sets; everything else stays at its reset value forever, matching the
// original's own admission that interrupt generation is unimplemented.
const (
	srMOSCS  = 1 << 0
	srLOCKA  = 1 << 1
	srLOCKB  = 1 << 2
	srMCKRDY = 1 << 3
)

// mckrCSS/PRES are the bit fields this port actually interprets to derive
// a concrete clock rate; the original leaves MCKR inert.
const (
	mckrCSS  = 0x03
	mckrPRES = 0x1c
)

const (
	cssSlowClock = 0
	cssMainClock = 1
	cssPLLA      = 2
	cssPLLB      = 3
)

// SlowClock and MainClock are the two oscillator inputs the iOBC board
// wires to the PMC; PLLA/PLLB rates are derived from CKGR_PLLAR/PLLBR's
// MUL/DIV fields the same way the datasheet specifies.
const (
	SlowClock = 32768
	MainClock = 18432000
)

// ClockListener receives the master clock rate (Hz) whenever MCKR (or a
// PLL feeding it) changes. usart.Controller, twi.Controller, tc.Block,
// pit.Controller and mci.Controller all implement this via their existing
// SetMasterClock(uint32) method.
type ClockListener interface {
	SetMasterClock(mclk uint32)
}

// Controller is the PMC instance (the board has exactly one).
type Controller struct {
	name string
	reg  [numRegs]uint32

	listeners []ClockListener

	// lastMclk/mclkKnown cache the most recently notified master clock
	// rate, so notifyClock only calls the listeners when the rate
	// actually changes (spec §3's debounce requirement).
	lastMclk  uint32
	mclkKnown bool
}

// New constructs the PMC instance.
func New(name string) *Controller {
	c := &Controller{name: name}
	c.Reset()
	return c
}

// AddClockListener registers l to be notified of the master clock rate
// on every subsequent change, and immediately primes it with the current
// rate so wiring order doesn't matter.
func (c *Controller) AddClockListener(l ClockListener) {
	c.listeners = append(c.listeners, l)
	l.SetMasterClock(c.masterClock())
}

// Reset implements pmc_reset_registers.
func (c *Controller) Reset() {
	for i := range c.reg {
		c.reg[i] = 0
	}
	c.reg[rSCSR] = 0x03
	c.reg[rCKGR_PLLAR] = 0x3f00
	c.reg[rCKGR_PLLBR] = 0x3f00
	c.reg[rSR] = 0x08
	c.notifyClock()
}

// pllValid reports whether a CKGR_PLLAR/CKGR_PLLBR value describes a
// lockable configuration: a zero multiplier or divider never locks.
func pllValid(pllr uint32) bool {
	mul := (pllr >> 16) & 0x7ff
	div := pllr & 0xff
	return div != 0 && mul != 0
}

func (c *Controller) pllRate(pllr uint32) uint32 {
	if !pllValid(pllr) {
		return 0
	}
	mul := (pllr >> 16) & 0x7ff
	div := pllr & 0xff
	return MainClock * (mul + 1) / div
}

// masterClock implements the MCKR CSS/PRES decode the original never
// performs.
func (c *Controller) masterClock() uint32 {
	var src uint32
	switch c.reg[rMCKR] & mckrCSS {
	case cssSlowClock:
		src = SlowClock
	case cssMainClock:
		src = MainClock
	case cssPLLA:
		src = c.pllRate(c.reg[rCKGR_PLLAR])
	case cssPLLB:
		src = c.pllRate(c.reg[rCKGR_PLLBR])
	}
	shift := (c.reg[rMCKR] & mckrPRES) >> 2
	if shift > 6 {
		return 0
	}
	return src >> shift
}

// notifyClock fires SetMasterClock on every listener, but only when the
// computed rate differs from the last rate it notified — writing the same
// MCKR configuration twice must not re-fire the callback (spec §3).
func (c *Controller) notifyClock() {
	mclk := c.masterClock()
	if c.mclkKnown && mclk == c.lastMclk {
		return
	}
	c.mclkKnown = true
	c.lastMclk = mclk
	for _, l := range c.listeners {
		l.SetMasterClock(mclk)
	}
}

// Read implements pmc_mmio_read.
func (c *Controller) Read(offset uint32) (uint32, error) {
	if offset > 0x80 || offset%4 != 0 {
		return 0, curated.ReadAccessf(offset, "pmc: %s", c.name)
	}
	index := offset / 4
	if regAccess[index] == accessReserved || regAccess[index] == accessWO {
		return 0, curated.ReadAccessf(offset, "pmc: %s", c.name)
	}
	return c.reg[index], nil
}

// Write implements pmc_mmio_write.
func (c *Controller) Write(offset uint32, value uint32) error {
	if offset > 0x80 || offset%4 != 0 {
		return curated.WriteAccessf(offset, value, "pmc: %s", c.name)
	}
	index := offset / 4
	if regAccess[index] == accessReserved || regAccess[index] == accessRO {
		return curated.WriteAccessf(offset, value, "pmc: %s", c.name)
	}
	c.reg[index] = value

	switch index {
	case rCKGR_MOR:
		c.reg[rSR] = (c.reg[rSR] &^ srMOSCS) | (value & srMOSCS)
	case rCKGR_PLLAR:
		if pllValid(value) {
			c.reg[rSR] |= srLOCKA
		}
	case rCKGR_PLLBR:
		if pllValid(value) {
			c.reg[rSR] |= srLOCKB
		}
	case rMCKR:
		c.reg[rSR] |= srMCKRDY
	}
	c.notifyClock()
	return nil
}
