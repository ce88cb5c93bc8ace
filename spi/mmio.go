// SPDX-License-Identifier: GPL-2.0-or-later

package spi

import "github.com/us-irs/qemu-iobc/curated"

func (c *Controller) Read(offset uint32) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case offset == regMR:
		return c.mr, nil
	case offset == regRDR:
		c.sr &^= srRDRF
		c.updateIRQ()
		return c.rdr, nil
	case offset == regSR:
		sr := c.sr
		if c.enabled {
			sr |= srSPIENS
		}
		return sr, nil
	case offset == regIMR:
		return c.imr, nil
	case offset >= regCSR0 && offset <= regCSR3:
		return c.csr[(offset-regCSR0)/4], nil
	case offset >= pdcStart && offset < pdcEnd:
		return c.pdc.Read(offset)
	default:
		return 0, curated.ReadAccessf(offset, "spi: %s", c.name)
	}
}

func (c *Controller) Write(offset uint32, value uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case offset == regCR:
		if value&crSWRST != 0 {
			c.Reset()
			return nil
		}
		if value&crSPIEN != 0 {
			c.enabled = true
		}
		if value&crSPIDIS != 0 {
			c.enabled = false
		}

	case offset == regMR:
		c.mr = value

	case offset == regTDR:
		c.writeTDR(value)

	case offset == regIER:
		c.imr |= value
		c.updateIRQ()

	case offset == regIDR:
		c.imr &^= value
		c.updateIRQ()

	case offset >= regCSR0 && offset <= regCSR3:
		c.csr[(offset-regCSR0)/4] = value

	case offset >= pdcStart && offset < pdcEnd:
		if err := c.pdc.Write(offset, value); err != nil {
			return curated.Errorf("spi: %s: %v", c.name, err)
		}
		c.updateIRQ()

	default:
		return curated.WriteAccessf(offset, value, "spi: %s", c.name)
	}

	return nil
}
