// SPDX-License-Identifier: GPL-2.0-or-later

package twi

import "github.com/us-irs/qemu-iobc/iox"

// HandleFrame implements iox_receive: inbound DATA_IN feeds the receive
// path (PDC or direct RHR), FAULT frames inject OVRE/NACK/ARBLST.
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
			c.sr |= srOVRE
		case iocIDFaultNACK:
			c.sr |= srNACK
		case iocIDFaultARBLST:
			c.sr |= srARBLST
		}
		c.updateIRQ()
	}
}

func (c *Controller) handleDataIn(frame iox.Frame) {
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

	if c.dmaRxEnabled {
		c.xferReceiverDMA()
	} else {
		c.xferReceiverNext()
	}
}
