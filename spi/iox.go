// SPDX-License-Identifier: GPL-2.0-or-later

package spi

import "github.com/us-irs/qemu-iobc/iox"

// HandleFrame implements the SPI-side IOX frame handler: a DATA_IN frame
// delivers the client's echo for the pending transfer (dropping excess
// bytes beyond one unit, per §4.6); FAULT frames inject MODF/OVRES.
func (c *Controller) HandleFrame(frame iox.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch frame.Cat {
	case iocCatData:
		if frame.ID == iocIDDataIn && c.pending {
			unit := decodeBytes(frame.Payload)
			c.completeUnit(unit)
			c.drainRDRToMemory()
			if c.pdc.TCR() > 0 {
				c.DMATxStart()
			}
		}

	case iocCatFault:
		switch frame.ID {
		case iocIDFaultMODF:
			c.sr |= srMODF
		case iocIDFaultOVRES:
			c.sr |= srOVRES
		}
		c.updateIRQ()
	}
}
