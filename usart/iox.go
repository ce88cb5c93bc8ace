// SPDX-License-Identifier: GPL-2.0-or-later

package usart

import "github.com/us-irs/qemu-iobc/iox"

// HandleFrame implements iox_receive: inbound DATA_IN frames feed the
// receive buffer (or the PDC channel directly, if RX DMA is enabled);
// inbound FAULT frames inject the named CSR error bit.
func (c *Controller) HandleFrame(frame iox.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch frame.Cat {
	case iocCatData:
		if frame.ID == iocIDDataIn {
			c.handleDataIn(frame)
		}

	case iocCatFault:
		switch frame.ID {
		case iocIDFaultOVRE:
			c.csr |= csrOVRE
		case iocIDFaultFrame:
			c.csr |= csrFRAME
		case iocIDFaultPARE:
			c.csr |= csrPARE
		case iocIDFaultTimeout:
			c.csr |= csrTIMEOUT
		}
		c.updateIRQ()
	}
}

// handleDataIn implements iox_receive_data: buffer the payload, then
// drain it either through the PDC or byte-by-byte into RHR, matching the
// original's ENXIO response when the receiver is disabled.
func (c *Controller) handleDataIn(frame iox.Frame) {
	if !c.rxEnabled {
		if c.server != nil {
			c.server.Reply(frame, 6 /* ENXIO */)
		}
		return
	}

	inProgress := !c.rcvbuf.IsEmpty()
	for _, b := range frame.Payload {
		c.rcvbuf.PutByte(b)
	}
	if c.server != nil {
		c.server.Reply(frame, 0)
	}
	if inProgress {
		return
	}

	if c.rxDMAEnabled {
		c.xferReceiverDMA()
	} else {
		c.xferReceiverNext()
	}
}
