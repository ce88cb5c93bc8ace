// SPDX-License-Identifier: GPL-2.0-or-later

package spi

import (
	"github.com/us-irs/qemu-iobc/curated"
	"github.com/us-irs/qemu-iobc/pdc"
)

// writeTDR implements a single master-mode transfer word: the emulator
// either loops the byte straight back (no client) or hands it to the
// connected client and suspends the channel until the echo arrives, per
// §5's "pending external completion" design note.
func (c *Controller) writeTDR(value uint32) {
	if c.sr&srTDRE == 0 {
		return
	}
	c.tdr = value
	c.sr &^= srTDRE

	bits := c.wordBits()
	data := value & ((1 << bits) - 1)
	unit := encodeUnit(c.pcs(), bits, data)

	if c.server == nil || !c.server.Connected() {
		c.completeUnit(unit)
		return
	}

	c.pending = true
	c.server.SendData(iocCatData, iocIDDataOut, encodeBytes(unit))
}

// completeUnit delivers an echoed (or looped-back) unit into RDR.
func (c *Controller) completeUnit(unit uint32) {
	if c.sr&srRDRF != 0 {
		c.sr |= srOVRES
	}
	c.rdr = unit
	c.sr |= srRDRF
	c.sr |= srTDRE | srTXEMPTY
	c.pending = false
	c.updateIRQ()
}

// Pending reports whether the channel is awaiting an IOX echo; until that
// echo reaches HandleFrame, TDRE stays clear and RDRF is not raised.
func (c *Controller) Pending() bool { return c.pending }

func encodeBytes(unit uint32) []byte {
	return []byte{byte(unit), byte(unit >> 8), byte(unit >> 16), byte(unit >> 24)}
}

func decodeBytes(b []byte) uint32 {
	var unit uint32
	for i := 0; i < len(b) && i < 4; i++ {
		unit |= uint32(b[i]) << (8 * i)
	}
	return unit
}

// pdc.Host implementation: DMA bursts move whole units one at a time
// through the same client-echo/loopback path as a single TDR write.

func (c *Controller) DMARxStart() {}
func (c *Controller) DMARxStop()  {}

func (c *Controller) DMATxStart() {
	for c.pdc.TCR() > 0 {
		data, err := c.bus.ReadBytes(c.pdc.TPR(), 4)
		if err != nil {
			panic(curated.Errorf("spi: %s: DMA TX burst: %v", c.name, err))
		}
		c.writeTDR(decodeBytes(data))
		c.pdc.AdvanceTx(4)
		if c.pdc.TCR() == 0 {
			c.sr |= srENDTX
			if !c.pdc.RolloverTx() {
				c.sr |= srTXBUFE
			}
		}
		if c.pending {
			// a connected client hasn't echoed yet; the rest of the burst
			// resumes once the echo lands (see HandleFrame).
			return
		}
		c.drainRDRToMemory()
	}
	c.updateIRQ()
}

func (c *Controller) drainRDRToMemory() {
	if c.sr&srRDRF == 0 {
		return
	}
	if c.pdc.RCR() == 0 {
		return
	}
	if err := c.bus.WriteBytes(c.pdc.RPR(), encodeBytes(c.rdr)); err != nil {
		panic(curated.Errorf("spi: %s: DMA RX burst: %v", c.name, err))
	}
	c.pdc.AdvanceRx(4)
	c.sr &^= srRDRF
	if c.pdc.RCR() == 0 {
		c.sr |= srENDRX
		if !c.pdc.RolloverRx() {
			c.sr |= srRXBUFF
		}
	}
}

func (c *Controller) DMATxStop() {}

func (c *Controller) UpdateIRQ() { c.updateIRQ() }

func (c *Controller) StatusRegister() *uint32 { return &c.sr }

func (c *Controller) Flags() pdc.Flags {
	return pdc.Flags{ENDRX: srENDRX, ENDTX: srENDTX, RXBUFF: srRXBUFF, TXBUFE: srTXBUFE}
}
