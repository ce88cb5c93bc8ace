// SPDX-License-Identifier: GPL-2.0-or-later

package usart

import (
	"github.com/us-irs/qemu-iobc/curated"
	"github.com/us-irs/qemu-iobc/pdc"
)

// xferChrReceive implements xfer_chr_receive: deliver one character into
// RHR, flagging OVRE if the previous one had not yet been read.
func (c *Controller) xferChrReceive(chr uint16, rxsynh bool) {
	if c.csr&csrRXRDY != 0 && c.rxEnabled {
		c.csr |= csrOVRE
	}
	v := chr & rhrRXCHR
	if rxsynh {
		v |= rhrRXSYNH
	}
	c.rhr = uint32(v)
	c.csr |= csrRXRDY
	c.updateIRQ()
}

// xferReceiverNext implements xfer_receiver_next: drain one byte out of
// the IOX receive buffer into RHR if RHR is currently empty.
func (c *Controller) xferReceiverNext() {
	if c.rcvbuf.IsEmpty() {
		return
	}
	if c.csr&csrRXRDY != 0 {
		return
	}
	b, ok := c.rcvbuf.GetByte()
	if !ok {
		return
	}
	c.xferChrReceive(uint16(b), false)
}

// xferReceiverDMA implements xfer_receiver_dma / __xfer_receiver_dma: move
// buffered IOX bytes into system memory via the PDC's RX channel, then
// fall back to direct RHR delivery once both PDC buffers are exhausted.
func (c *Controller) xferReceiverDMA() {
	if c.csr&csrRXRDY != 0 {
		b := byte(c.rhr & rhrRXCHR)
		if err := c.bus.WriteBytes(c.pdc.RPR(), []byte{b}); err != nil {
			panic(curated.Errorf("usart: %s: DMA RX burst: %v", c.name, err))
		}
		c.pdc.AdvanceRx(1)
		c.csr &^= csrRXRDY
		c.checkRxEnd()
	}

	for c.pdc.RCR() > 0 && !c.rcvbuf.IsEmpty() {
		n := int(c.pdc.RCR())
		if bufLen := c.rcvbuf.Len(); bufLen < n {
			n = bufLen
		}
		data := make([]byte, n)
		for i := range data {
			b, _ := c.rcvbuf.GetByte()
			data[i] = b
		}
		if err := c.bus.WriteBytes(c.pdc.RPR(), data); err != nil {
			panic(curated.Errorf("usart: %s: DMA RX burst: %v", c.name, err))
		}
		c.pdc.AdvanceRx(uint32(n))
		c.checkRxEnd()
	}

	c.updateIRQ()

	if c.pdc.RCR() == 0 {
		c.rxDMAEnabled = false
	}
	if c.pdc.RCR() == 0 {
		c.xferReceiverNext()
	}
}

// checkRxEnd raises ENDRX the instant RCR reaches zero, then rolls the
// next RNPR/RNCR buffer into place — RXBUFF is only raised once that
// rollover finds no further buffer queued.
func (c *Controller) checkRxEnd() {
	if c.pdc.RCR() != 0 {
		return
	}
	c.csr |= csrENDRX
	if !c.pdc.RolloverRx() {
		c.csr |= csrRXBUFF
	}
}

// xferChrTransmit implements xfer_chr_transmit: bytes are handed straight
// to the IOX client with no shift-register timing model.
func (c *Controller) xferChrTransmit(chr uint16, txsynh bool) {
	if c.csr&csrTXRDY == 0 {
		// SPEC: writing THR while TXRDY is low has no effect; the byte is
		// lost.
		return
	}
	_ = txsynh
	c.sendChars([]byte{byte(chr)})
	c.csr |= csrTXRDY | csrTXEMPTY
}

func (c *Controller) sendChars(data []byte) {
	if c.server == nil {
		return
	}
	if err := c.server.SendData(iocCatData, iocIDDataOut, data); err != nil {
		c.csr |= csrOVRE
	}
}

// pdc.Host implementation.

func (c *Controller) DMARxStart() {
	c.rxDMAEnabled = true
	c.xferReceiverDMA()
}

func (c *Controller) DMARxStop() {
	c.rxDMAEnabled = false
}

func (c *Controller) DMATxStart() {
	for c.pdc.TCR() > 0 {
		c.dmaTxBurst()
	}
	c.updateIRQ()
}

func (c *Controller) dmaTxBurst() {
	data, err := c.bus.ReadBytes(c.pdc.TPR(), int(c.pdc.TCR()))
	if err != nil {
		panic(curated.Errorf("usart: %s: DMA TX burst: %v", c.name, err))
	}
	c.sendChars(data)
	c.pdc.AdvanceTx(uint32(len(data)))
	if c.pdc.TCR() == 0 {
		c.csr |= csrENDTX
		if !c.pdc.RolloverTx() {
			c.csr |= csrTXBUFE
		}
	}
}

func (c *Controller) DMATxStop() {
	// no-op, matching xfer_dma_tx_stop.
}

func (c *Controller) UpdateIRQ() {
	c.updateIRQ()
}

func (c *Controller) StatusRegister() *uint32 { return &c.csr }

func (c *Controller) Flags() pdc.Flags {
	return pdc.Flags{ENDRX: csrENDRX, ENDTX: csrENDTX, RXBUFF: csrRXBUFF, TXBUFE: csrTXBUFE}
}
