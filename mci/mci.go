// SPDX-License-Identifier: GPL-2.0-or-later

// Package mci implements the AT91 MCI (MultiMedia Card Interface),
// grounded on at91-mci.c: command dispatch onto a Card over the sdbus
// interface, response-register round-robin read-out, and a PDC channel
// whose transfer counters are scaled by word or byte units depending on
// MR_PDCFBYTE.
package mci

import (
	"sync"

	"github.com/us-irs/qemu-iobc/mci/sdbus"
	"github.com/us-irs/qemu-iobc/pdc"
)

const (
	regCR   = 0x00
	regMR   = 0x04
	regDTOR = 0x08
	regSDCR = 0x0c
	regARGR = 0x10
	regCMDR = 0x14
	regBLKR = 0x18
	regRSPR0 = 0x20
	regRSPR1 = 0x24
	regRSPR2 = 0x28
	regRSPR3 = 0x2c
	regRDR   = 0x30
	regTDR   = 0x34
	regSR    = 0x40
	regIER   = 0x44
	regIDR   = 0x48
	regIMR   = 0x4c

	pdcStart = 0x100
	pdcEnd   = 0x128
)

const (
	crMCIEN  = 1 << 0
	crMCIDIS = 1 << 1
	crPWSEN  = 1 << 2
	crPWSDIS = 1 << 3
	crSWRST  = 1 << 7

	mrRDPROOF  = 1 << 11
	mrWRPROOF  = 1 << 12
	mrPDCFBYTE = 1 << 13
	mrPDCPADV  = 1 << 14
	mrPDCMODE  = 1 << 15

	sdcrSDCBUS = 1 << 7

	cmdrOPDCMD = 1 << 11
	cmdrMAXLAT = 1 << 12
	cmdrTRDIR  = 1 << 18

	cmdrRspNoResp  = 0
	cmdrRsp48Bit   = 1
	cmdrRsp136Bit  = 2

	cmdrTrcmdNone  = 0
	cmdrTrcmdStart = 1
	cmdrTrcmdStop  = 2

	cmdrTrtypSingleBlock   = 0
	cmdrTrtypMultipleBlock = 1
	cmdrTrtypMMCStream     = 2
	cmdrTrtypSDIOByte      = 4
	cmdrTrtypSDIOBlock     = 5

	srCMDRDY   = 1 << 0
	srRXRDY    = 1 << 1
	srTXRDY    = 1 << 2
	srBLKE     = 1 << 3
	srDTIP     = 1 << 4
	srNOTBUSY  = 1 << 5
	srENDRX    = 1 << 6
	srENDTX    = 1 << 7
	srSDIOIRQA = 1 << 8
	srSDIOIRQB = 1 << 9
	srRXBUFF   = 1 << 14
	srTXBUFE   = 1 << 15
	srRINDE    = 1 << 16
	srRDIRE    = 1 << 17
	srRCRCE    = 1 << 18
	srRENDE    = 1 << 19
	srRTOE     = 1 << 20
	srDCRCE    = 1 << 21
	srDTOE     = 1 << 22
	srOVRE     = 1 << 30
	srUNRE     = 1 << 31
)

// blkUnlimited is the sentinel that marks an open-ended multiple-block
// transfer (BCNT == 0), mirroring BLKLEN_MULTIBLOCK_UNLIMITED. Go has no
// size_t -1 idiom, so a distinct negative int64 stands in for it.
const blkUnlimited int64 = -1

// MemoryBus is the PDC-addressable byte view of system memory.
type MemoryBus interface {
	ReadBytes(addr uint32, n int) ([]byte, error)
	WriteBytes(addr uint32, data []byte) error
}

// Controller is the MCI instance (the board has exactly one, with a
// single card permanently wired to slot A).
type Controller struct {
	name string
	bus  MemoryBus
	pdc  *pdc.Controller

	card sdbus.Card

	mr, dtor, sdcr, argr, blkr uint32
	sr, imr                    uint32

	rspr      [4]uint32
	rsprIndex int
	rsprLen   int

	mcien, pwsen bool
	mclk, mcck   uint32

	rdBytesLeft int64
	wrBytesLeft int64
	wrBytesBlk  uint32

	rxDMAEnabled, txDMAEnabled bool

	// selectedCard mirrors card_select_irq_handle's s->selected_card, wired
	// from a PIOB pin on the real board. The iOBC only ever populates slot
	// A with a real card, so this is tracked but never changes which Card
	// DoCommand actually reaches.
	selectedCard uint8

	SetIRQ func(level bool)

	// mu serializes SelectCard (driven off a PIO pin callback, which
	// PIO invokes while its own lock is held) against MMIO dispatch of
	// this controller's registers, the same role QEMU's BQL plays
	// between a device's background activity and vCPU-driven register
	// access. Kept private and distinct from PIO's lock: SelectCard is
	// reached from inside PIO's locked updatePins, so it must never try
	// to acquire that same lock itself.
	mu sync.Locker
}

// SelectCard implements card_select_irq_handle: level low selects slot A
// (card index 0), matching the PIOB pin polarity in the original.
func (c *Controller) SelectCard(level bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if level {
		c.selectedCard = 1
	} else {
		c.selectedCard = 0
	}
}

// New constructs the MCI instance. card may be nil until a card image is
// attached (e.g. via SetCard), matching "no card inserted" behavior.
func New(name string, bus MemoryBus, card sdbus.Card) *Controller {
	c := &Controller{name: name, bus: bus, card: card, mu: &sync.Mutex{}}
	c.pdc = pdc.New(c)
	c.Reset()
	return c
}

// SetLock replaces this controller's lock.
func (c *Controller) SetLock(mu sync.Locker) { c.mu = mu }

// SetCard swaps the attached card, e.g. after loading a different disk
// image.
func (c *Controller) SetCard(card sdbus.Card) { c.card = card }

// PDC exposes the embedded PDC channel for diagnostics.
func (c *Controller) PDC() *pdc.Controller { return c.pdc }

// Reset implements mci_reset_registers.
func (c *Controller) Reset() {
	c.mr, c.dtor, c.sdcr, c.argr, c.blkr = 0, 0, 0, 0, 0
	c.sr = srCMDRDY | srTXRDY | srNOTBUSY | srENDRX | srENDTX | srRXBUFF | srTXBUFE
	c.imr = 0

	c.rspr = [4]uint32{}
	c.rsprIndex = 0
	c.rsprLen = 0

	c.mcien = false
	c.pwsen = false

	c.rdBytesLeft = 0
	c.wrBytesLeft = 0
	c.wrBytesBlk = 0

	c.rxDMAEnabled, c.txDMAEnabled = false, false

	c.pdc.Reset()
}

// SetMasterClock implements at91_mci_set_master_clock; wired from pmc.
func (c *Controller) SetMasterClock(mclk uint32) {
	c.mclk = mclk
	c.updateMCCK()
}

func (c *Controller) updateMCCK() {
	clkdiv := c.mr & 0xff
	c.mcck = c.mclk / (2 * (clkdiv + 1))
}

func (c *Controller) updateIRQ() {
	if c.SetIRQ != nil {
		c.SetIRQ(c.sr&c.imr != 0)
	}
}

func (c *Controller) blklen() uint32 { return (c.blkr >> 16) & 0xffff }
func (c *Controller) bcnt() uint32   { return c.blkr & 0xffff }
