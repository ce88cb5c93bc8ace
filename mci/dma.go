// SPDX-License-Identifier: GPL-2.0-or-later

package mci

import (
	"github.com/us-irs/qemu-iobc/curated"
	"github.com/us-irs/qemu-iobc/pdc"
)

// pdcDoReadRcr implements mci_pdc_do_read_rcr: drains up to RCR units
// (words unless PDCFBYTE is set) from the card into system memory at RPR,
// scaling the RCR decrement and the rdBytesLeft decrement independently
// since they're counted in different units whenever PDCFBYTE is clear.
func (c *Controller) pdcDoReadRcr() {
	length := int(c.pdc.RCR())
	if c.mr&mrPDCFBYTE == 0 {
		length *= 4
	}
	if c.rdBytesLeft >= 0 && int64(length) > c.rdBytesLeft {
		length = int(c.rdBytesLeft)
	}

	data := make([]byte, length)
	for i := range data {
		if c.card != nil && c.card.DataReady() {
			data[i] = c.card.ReadData()
		}
	}

	if err := c.bus.WriteBytes(c.pdc.RPR(), data); err != nil {
		panic(curated.Errorf("mci: %s: DMA RX burst: %v", c.name, err))
	}

	unitsConsumed := length
	if c.mr&mrPDCFBYTE == 0 {
		unitsConsumed = length / 4
	}

	c.pdc.SetRPR(c.pdc.RPR() + uint32(length))
	c.pdc.SetRCR(c.pdc.RCR() - uint16(unitsConsumed))

	if c.rdBytesLeft >= 0 {
		c.rdBytesLeft -= int64(length)
	}
}

// pdcDoRead implements mci_pdc_do_read.
func (c *Controller) pdcDoRead() {
	if c.pdc.RCR() != 0 {
		c.pdcDoReadRcr()
	}

	if c.pdc.RCR() == 0 {
		c.sr |= srENDRX
	}

	if c.pdc.RCR() == 0 && c.pdc.RNCR() != 0 {
		c.pdc.SetRCR(c.pdc.RNCR())
		c.pdc.SetRNCR(0)
		c.pdc.SetRPR(c.pdc.RNPR())
		c.pdc.SetRNPR(0)

		if c.rdBytesLeft != 0 {
			c.pdcDoReadRcr()
		}
	}

	if c.rdBytesLeft == 0 {
		c.sr &^= srDTIP | srRXRDY
	}

	if c.pdc.RCR() == 0 && c.pdc.RNCR() == 0 {
		c.sr |= srRXBUFF
		c.rxDMAEnabled = false

		if c.rdBytesLeft != 0 {
			c.sr |= srRXRDY
		}
	}
}

// pdcDoWriteTcr implements mci_pdc_do_write_tcr.
func (c *Controller) pdcDoWriteTcr() {
	length := int(c.pdc.TCR())
	if c.mr&mrPDCFBYTE == 0 {
		length *= 4
	}
	if c.wrBytesLeft >= 0 && int64(length) > c.wrBytesLeft {
		length = int(c.wrBytesLeft)
	}

	data, err := c.bus.ReadBytes(c.pdc.TPR(), length)
	if err != nil {
		panic(curated.Errorf("mci: %s: DMA TX burst: %v", c.name, err))
	}

	if c.card != nil {
		for _, b := range data {
			c.card.WriteData(b)
		}
	}

	unitsConsumed := length
	if c.mr&mrPDCFBYTE == 0 {
		unitsConsumed = length / 4
	}

	c.pdc.SetTPR(c.pdc.TPR() + uint32(length))
	c.pdc.SetTCR(c.pdc.TCR() - uint16(unitsConsumed))

	if c.wrBytesLeft >= 0 {
		c.wrBytesLeft -= int64(length)
	}

	if c.blklen() != 0 {
		c.wrBytesBlk = (c.wrBytesBlk + uint32(length)) % c.blklen()
	}
}

// pdcDoWrite implements mci_pdc_do_write.
func (c *Controller) pdcDoWrite() {
	if c.pdc.TCR() != 0 {
		c.pdcDoWriteTcr()
	}

	if c.pdc.TCR() == 0 {
		c.sr |= srENDTX
	}

	if c.pdc.TCR() == 0 && c.pdc.TNCR() != 0 {
		c.pdc.SetTCR(c.pdc.TNCR())
		c.pdc.SetTNCR(0)
		c.pdc.SetTPR(c.pdc.TNPR())
		c.pdc.SetTNPR(0)

		if c.wrBytesLeft != 0 {
			c.pdcDoWriteTcr()
		}
	}

	if c.wrBytesLeft == 0 {
		c.sr |= srNOTBUSY | srBLKE
		c.sr &^= srDTIP | srTXRDY
	}

	if c.pdc.TCR() == 0 && c.pdc.TNCR() == 0 {
		c.sr |= srTXBUFE
		c.txDMAEnabled = false

		if c.wrBytesLeft == blkUnlimited && c.wrBytesBlk == 0 {
			c.sr |= srBLKE
		}
		if c.wrBytesLeft != 0 {
			c.sr |= srTXRDY
		}
	}
}

// pdc.Host implementation.

func (c *Controller) DMARxStart() {
	c.rxDMAEnabled = true
	if c.rdBytesLeft != 0 {
		c.pdcDoRead()
	}
}

func (c *Controller) DMARxStop() { c.rxDMAEnabled = false }

func (c *Controller) DMATxStart() {
	c.txDMAEnabled = true
	if c.wrBytesLeft != 0 {
		c.pdcDoWrite()
	}
}

func (c *Controller) DMATxStop() { c.txDMAEnabled = false }

func (c *Controller) UpdateIRQ() { c.updateIRQ() }

func (c *Controller) StatusRegister() *uint32 { return &c.sr }

func (c *Controller) Flags() pdc.Flags {
	return pdc.Flags{ENDRX: srENDRX, ENDTX: srENDTX, RXBUFF: srRXBUFF, TXBUFE: srTXBUFE}
}
