// SPDX-License-Identifier: GPL-2.0-or-later

package twi

import (
	"time"

	"github.com/us-irs/qemu-iobc/curated"
	"github.com/us-irs/qemu-iobc/pdc"
)

type startFrame struct {
	dadr   byte
	iadrsz byte
	iadr0  byte
	iadr1  byte
	iadr2  byte
}

func (f startFrame) bytes() []byte {
	return []byte{f.dadr, f.iadrsz, f.iadr0, f.iadr1, f.iadr2}
}

// sendFrameStart implements xfer_send_frame_start.
func (c *Controller) sendFrameStart() {
	if c.server == nil {
		return
	}
	f := startFrame{
		dadr:   byte(c.mmrDADR()),
		iadrsz: byte(c.mmrIADRSZ()),
		iadr0:  byte(c.iadr),
		iadr1:  byte(c.iadr >> 8),
		iadr2:  byte(c.iadr >> 16),
	}
	c.server.SendData(iocCatData, iocIDCtrlStart, f.bytes())
}

// sendFrameStop implements xfer_send_frame_stop.
func (c *Controller) sendFrameStop() {
	if c.server == nil {
		return
	}
	c.server.SendCommand(iocCatData, iocIDCtrlStop)
}

func (c *Controller) sendChars(data []byte) {
	if c.server == nil || len(data) == 0 {
		return
	}
	c.server.SendMultiframe(iocCatData, iocIDDataOut, data)
}

// xferChrTransmit implements xfer_chr_transmit: buffer the byte and
// (re)start the two-tick debounce timer that flushes the accumulated
// burst as one START/data/STOP sequence. A real time.Timer stands in for
// the original's ptimer counting TWI clock ticks; its callback,
// flushDebounce, runs on the timer's own goroutine and takes c.mu before
// touching controller state.
func (c *Controller) xferChrTransmit(value byte) {
	c.sendbuf = append(c.sendbuf, value)

	if c.debounce != nil {
		c.debounce.Stop()
	}
	period := c.debouncePeriod()
	c.debounce = time.AfterFunc(period, c.flushDebounce)

	c.sr |= srTXRDY
	c.updateIRQ()
}

// flushDebounce implements xfer_chrtx_timer_tick.
func (c *Controller) flushDebounce() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sendFrameStart()
	c.sendChars(c.sendbuf)
	c.sendFrameStop()

	c.sendbuf = c.sendbuf[:0]
	c.sr |= srTXCOMP
	c.updateIRQ()
}

func (c *Controller) debouncePeriod() time.Duration {
	if c.clock == 0 {
		return time.Millisecond
	}
	tick := time.Second / time.Duration(c.clock)
	return debounceTicks * tick
}

// xferChrReceive implements xfer_chr_receive.
func (c *Controller) xferChrReceive(chr byte) {
	if c.sr&srRXRDY != 0 {
		c.sr |= srOVRE
	}
	c.rhr = uint32(chr)
	c.sr |= srRXRDY
	c.updateIRQ()
}

// xferReceiverNext implements xfer_receiver_next.
func (c *Controller) xferReceiverNext() {
	if c.rcvbuf.IsEmpty() || c.sr&srRXRDY != 0 {
		return
	}
	b, ok := c.rcvbuf.GetByte()
	if !ok {
		return
	}
	c.xferChrReceive(b)
}

// xferReceiverDMA implements xfer_receiver_dma/__xfer_receiver_dma.
func (c *Controller) xferReceiverDMA() {
	if c.sr&srRXRDY != 0 {
		b := byte(c.rhr)
		if err := c.bus.WriteBytes(c.pdc.RPR(), []byte{b}); err != nil {
			panic(curated.Errorf("twi: %s: DMA RX burst: %v", c.name, err))
		}
		c.pdc.AdvanceRx(1)
		c.sr &^= srRXRDY
		c.checkRxEnd()
	}

	for c.pdc.RCR() > 0 && !c.rcvbuf.IsEmpty() {
		n := int(c.pdc.RCR())
		if bl := c.rcvbuf.Len(); bl < n {
			n = bl
		}
		data := make([]byte, n)
		for i := range data {
			b, _ := c.rcvbuf.GetByte()
			data[i] = b
		}
		if err := c.bus.WriteBytes(c.pdc.RPR(), data); err != nil {
			panic(curated.Errorf("twi: %s: DMA RX burst: %v", c.name, err))
		}
		c.pdc.AdvanceRx(uint32(n))
		c.checkRxEnd()
	}

	c.updateIRQ()

	if c.pdc.RCR() == 0 {
		c.dmaRxEnabled = false
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
	c.sr |= srENDRX
	if !c.pdc.RolloverRx() {
		c.sr |= srRXBUFF
	}
}

// pdc.Host implementation (half-duplex: RX and TX never enabled together).

func (c *Controller) DMARxStart() {
	c.dmaRxEnabled = true
	c.xferReceiverDMA()
}

func (c *Controller) DMARxStop() { c.dmaRxEnabled = false }

// DMATxStart implements xfer_dma_tx_start: a PDC TX burst is sent
// synchronously as one START/data/STOP sequence, unlike the debounced
// single-byte THR path.
func (c *Controller) DMATxStart() {
	if c.pdc.TCR() == 0 {
		return
	}

	c.sendFrameStart()

	data, err := c.bus.ReadBytes(c.pdc.TPR(), int(c.pdc.TCR()))
	if err != nil {
		panic(curated.Errorf("twi: %s: DMA TX burst: %v", c.name, err))
	}
	c.sendChars(data)
	c.pdc.AdvanceTx(uint32(len(data)))
	if c.pdc.TCR() == 0 && c.pdc.RolloverTx() && c.pdc.TCR() > 0 {
		data, err = c.bus.ReadBytes(c.pdc.TPR(), int(c.pdc.TCR()))
		if err != nil {
			panic(curated.Errorf("twi: %s: DMA TX burst: %v", c.name, err))
		}
		c.sendChars(data)
		c.pdc.AdvanceTx(uint32(len(data)))
	}

	c.sendFrameStop()

	c.sr |= srENDTX | srTXBUFE | srTXCOMP | srTXRDY
	c.updateIRQ()
}

func (c *Controller) DMATxStop() {}

func (c *Controller) UpdateIRQ() { c.updateIRQ() }

func (c *Controller) StatusRegister() *uint32 { return &c.sr }

func (c *Controller) Flags() pdc.Flags {
	return pdc.Flags{ENDRX: srENDRX, ENDTX: srENDTX, RXBUFF: srRXBUFF, TXBUFE: srTXBUFE}
}
