// SPDX-License-Identifier: GPL-2.0-or-later

// Package tc implements the AT91 Timer/Counter block, grounded on
// at91-tc.c: two independent TC blocks of three channels each, with a
// TCCLKS-selected clock source, sawtooth/triangular waveform counting
// and RA/RB/RC compare.
package tc

import (
	"sync"
	"time"

	"github.com/us-irs/qemu-iobc/curated"
)

const NumChannels = 3

const (
	regCCR = 0x00
	regCMR = 0x04
	regCV  = 0x10
	regRA  = 0x14
	regRB  = 0x18
	regRC  = 0x1c
	regSR  = 0x20
	regIER = 0x24
	regIDR = 0x28
	regIMR = 0x2c

	chan0Start, chan0End = 0x00, 0x2c
	chan1Start, chan1End = 0x40, 0x6c
	chan2Start, chan2End = 0x80, 0xac

	regBCR = 0xc0
	regBMR = 0xc4
)

const (
	bcrSYNC = 1 << 0

	ccrCLKEN  = 1 << 0
	ccrCLKDIS = 1 << 1
	ccrSWTRG  = 1 << 2

	cmrWAVE = 1 << 15

	cmrCPCSTOP = 1 << 6
	cmrCPCDIS  = 1 << 7
	cmrCPCTRG  = 1 << 14
	cmrWAVSELShift = 13
	cmrWAVSELMask  = 0x03

	srCOVFS  = 1 << 0
	srLOVRS  = 1 << 1
	srCPAS   = 1 << 2
	srCPBS   = 1 << 3
	srCPCS   = 1 << 4
	srLDRAS  = 1 << 5
	srLDRBS  = 1 << 6
	srETRGS  = 1 << 7
	srCLKSTA = 1 << 16

	tcclksTC1 = 0
	tcclksTC2 = 1
	tcclksTC3 = 2
	tcclksTC4 = 3
	tcclksTC5 = 4
	tcclksXC0 = 5
	tcclksXC1 = 6
	tcclksXC2 = 7

	// slowClock is AT91_PMC_SLCK: the always-on 32.768kHz slow clock
	// TCCLKS=4 (TC5) selects directly, independent of MCK.
	slowClock = 32768
)

// Channel is one of the three timer/counter channels in a Block.
type Channel struct {
	name   string
	parent *Block

	cmr, cv, ra, rb, rc uint32
	sr, imr             uint32

	clk   uint32
	cstep int32

	timer *time.Timer

	SetIRQ func(level bool)
}

// Block is one AT91 TC instance (the iOBC board has two).
type Block struct {
	name     string
	channels [NumChannels]*Channel
	bmr      uint32
	mclk     uint32

	// mu serializes every channel's timer-driven tick against MMIO
	// dispatch of this block's registers, the same role QEMU's BQL plays
	// between a device's internal timers and vCPU-driven register access.
	// Every Block/Controller keeps its own lock rather than sharing one
	// across peripherals: a callback chain that crosses peripherals (PIO
	// driving MCI's card-select line, say) must never re-enter a lock it
	// already holds. SetLock exists for tests that want to observe
	// locking directly; it never needs wiring in normal use.
	mu sync.Locker
}

// New constructs a TC block and its three channels.
func New(name string) *Block {
	b := &Block{name: name, mu: &sync.Mutex{}}
	for i := range b.channels {
		b.channels[i] = &Channel{name: name, parent: b}
	}
	b.Reset()
	return b
}

// SetLock replaces this block's lock.
func (b *Block) SetLock(mu sync.Locker) { b.mu = mu }

// Channel returns channel i (0, 1 or 2).
func (b *Block) Channel(i int) *Channel { return b.channels[i] }

// Reset implements tc_reset_registers.
func (b *Block) Reset() {
	b.bmr = 0
	for _, c := range b.channels {
		c.stopTimer()
		c.cstep = 1
		c.cmr, c.cv, c.ra, c.rb, c.rc = 0, 0, 0, 0, 0
		c.sr, c.imr = 0, 0
		c.clk = 0
	}
}

// SetMasterClock implements at91_tc_set_master_clock; wired from pmc.
func (b *Block) SetMasterClock(mclk uint32) {
	b.mclk = mclk
	for _, c := range b.channels {
		c.clkUpdate()
	}
}

func (c *Channel) updateIRQ() {
	if c.SetIRQ != nil {
		c.SetIRQ(c.sr&c.imr&0xff != 0)
	}
}

// clkUpdate implements tc_clk_update.
func (c *Channel) clkUpdate() error {
	var clk uint32
	switch c.cmr & 0x07 {
	case tcclksTC1:
		clk = c.parent.mclk / 2
	case tcclksTC2:
		clk = c.parent.mclk / 8
	case tcclksTC3:
		clk = c.parent.mclk / 32
	case tcclksTC4:
		clk = c.parent.mclk / 128
	case tcclksTC5:
		clk = slowClock
	case tcclksXC0:
		return curated.Errorf("tc: %s: XC0 clock not implemented", c.name)
	case tcclksXC1:
		return curated.Errorf("tc: %s: XC1 clock not implemented", c.name)
	case tcclksXC2:
		return curated.Errorf("tc: %s: XC2 clock not implemented", c.name)
	}
	c.clk = clk
	if c.sr&srCLKSTA != 0 && c.clk != 0 {
		c.rearm()
	}
	return nil
}
