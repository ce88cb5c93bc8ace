// SPDX-License-Identifier: GPL-2.0-or-later

package twi

import "github.com/us-irs/qemu-iobc/curated"

func (c *Controller) Read(offset uint32) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case offset == regMMR:
		return c.mmr, nil
	case offset == regSMR:
		return c.smr, nil
	case offset == regIADR:
		return c.iadr, nil
	case offset == regCWGR:
		return c.cwgr, nil
	case offset == regSR:
		return c.sr, nil
	case offset == regIMR:
		return c.imr, nil
	case offset == regRHR:
		c.sr &^= srRXRDY
		c.updateIRQ()
		return c.rhr, nil
	case offset >= pdcStart && offset < pdcEnd:
		return c.pdc.Read(offset)
	default:
		return 0, curated.ReadAccessf(offset, "twi: %s", c.name)
	}
}

func (c *Controller) Write(offset uint32, value uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case offset == regCR:
		return c.writeCR(value)

	case offset == regMMR:
		c.mmr = value

	case offset == regSMR:
		c.smr = value

	case offset == regIADR:
		c.iadr = value

	case offset == regCWGR:
		c.cwgr = value
		c.updateClock()

	case offset == regIER:
		c.imr |= value
		c.updateIRQ()

	case offset == regIDR:
		c.imr &^= value
		c.updateIRQ()

	case offset == regTHR:
		c.xferChrTransmit(byte(value))

	case offset >= pdcStart && offset < pdcEnd:
		if err := c.pdc.Write(offset, value); err != nil {
			return curated.Errorf("twi: %s: %v", c.name, err)
		}
		c.updateIRQ()

	default:
		return curated.WriteAccessf(offset, value, "twi: %s", c.name)
	}

	return nil
}

// writeCR implements the mode-transition guard: switching master<->slave
// is legal only at TXCOMP=1; any other attempt aborts, matching the
// original's abort() (not a warning) for this specific violation.
func (c *Controller) writeCR(value uint32) error {
	if value&crSTART != 0 {
		c.sendFrameStart()
	}
	if value&crSTOP != 0 {
		c.sendFrameStop()
	}

	if value&crMSEN != 0 && value&crMSDIS == 0 {
		txc := c.sr&srTXCOMP != 0
		switch {
		case c.mode == ModeOffline || (txc && c.mode == ModeSlave):
			c.mode = ModeMaster
			c.sr |= srTXRDY
			c.updateIRQ()
		case c.mode == ModeSlave:
			return curated.Errorf("twi: %s: switching slave to master requires TXCOMP", c.name)
		}
	}
	if value&crMSDIS != 0 && c.mode == ModeMaster {
		c.mode = ModeOffline
	}

	if value&crSVEN != 0 && value&crSVDIS == 0 {
		txc := c.sr&srTXCOMP != 0
		switch {
		case c.mode == ModeOffline || (txc && c.mode == ModeMaster):
			c.mode = ModeSlave
		case c.mode == ModeMaster:
			return curated.Errorf("twi: %s: switching master to slave requires TXCOMP", c.name)
		}
	}
	if value&crSVDIS != 0 && c.mode == ModeSlave {
		c.mode = ModeOffline
	}

	if value&crSWRST != 0 {
		c.Reset()
	}

	return nil
}
