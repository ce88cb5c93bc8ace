// SPDX-License-Identifier: GPL-2.0-or-later

package usart

import "github.com/us-irs/qemu-iobc/curated"

func (c *Controller) Read(offset uint32) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case offset == regMR:
		return c.mr, nil
	case offset == regIMR:
		return c.imr, nil
	case offset == regCSR:
		tmp := c.csr
		if !c.rxEnabled {
			tmp &^= csrRXRDY
		}
		c.csr &^= csrRIIC | csrDSRIC | csrDCDIC | csrCTSIC
		return tmp, nil
	case offset == regRHR:
		c.csr &^= csrRXRDY
		c.xferReceiverNext()
		c.updateIRQ()
		return c.rhr, nil
	case offset == regBRGR:
		return c.brgr, nil
	case offset == regRTOR:
		return c.rtor, nil
	case offset == regTTGR:
		return c.ttgr, nil
	case offset == regFIDI:
		return c.fidi, nil
	case offset == regNER:
		// kept as a register but never incremented — see the NER Open
		// Question decision.
		return c.ner, nil
	case offset == regIF:
		return c.ifReg, nil
	case offset == regMAN:
		return c.man, nil
	case offset >= pdcStart && offset < pdcEnd:
		return c.pdc.Read(offset)
	default:
		return 0, curated.ReadAccessf(offset, "usart: %s", c.name)
	}
}

func (c *Controller) Write(offset uint32, value uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case offset == regCR:
		return c.writeCR(value)

	case offset == regMR:
		c.mr = value
		c.updateBaudRate()

	case offset == regIER:
		c.imr |= value
		c.updateIRQ()

	case offset == regIDR:
		c.imr &^= value
		c.updateIRQ()

	case offset == regTHR:
		c.xferChrTransmit(uint16(value&thrTXCHR), value&thrTXSYNH != 0)
		c.updateIRQ()

	case offset == regBRGR:
		c.brgr = value
		c.updateBaudRate()

	case offset == regRTOR:
		c.rtor = value
		if c.rtor == 0 {
			c.csr &^= csrTIMEOUT
			c.updateIRQ()
		}

	case offset == regTTGR:
		c.ttgr = value

	case offset == regFIDI:
		c.fidi = value
		c.updateBaudRate()

	case offset == regIF:
		c.ifReg = value

	case offset == regMAN:
		c.man = value

	case offset >= pdcStart && offset < pdcEnd:
		if err := c.pdc.Write(offset, value); err != nil {
			return curated.Errorf("usart: %s: %v", c.name, err)
		}
		c.updateIRQ()

	default:
		return curated.WriteAccessf(offset, value, "usart: %s", c.name)
	}

	return nil
}

// writeCR implements the US_CR action-bit dispatch.
func (c *Controller) writeCR(value uint32) error {
	if value&crRSTRX != 0 {
		c.rxEnabled = false
		c.csr &^= csrPARE | csrFRAME | csrOVRE | csrMANERR
		c.csr &^= csrRXBRK | csrTIMEOUT | csrENDRX | csrRXBUFF | csrNACK
		// Note: RXRDY is deliberately not cleared here, matching the
		// original's inline comment — it is masked separately by rxEnabled.
		c.updateIRQ()
	}
	if value&crRSTTX != 0 {
		c.txEnabled = false
		c.csr &^= csrTXRDY | csrTXEMPTY | csrENDTX | csrTXBUFE
	}
	if value&crRXEN != 0 {
		c.rxEnabled = true
		c.updateIRQ()
	}
	if value&crRXDIS != 0 {
		c.rxEnabled = false
		c.updateIRQ()
	}
	if value&crTXEN != 0 {
		c.txEnabled = true
		c.csr |= csrTXRDY | csrTXEMPTY
	}
	if value&crTXDIS != 0 {
		c.txEnabled = false
		c.csr &^= csrTXRDY | csrTXEMPTY
	}
	if value&crRSTSTA != 0 {
		c.csr &^= csrPARE | csrFRAME | csrOVRE | csrMANERR | csrRXBRK
		c.updateIRQ()
	}
	if value&crRSTIT != 0 {
		if m := c.mode(); m == modeISO7816_0 || m == modeISO7816_1 {
			c.csr &^= csrITER
			c.updateIRQ()
		}
	}
	if value&crRSTNACK != 0 {
		c.csr &^= csrNACK
		c.updateIRQ()
	}

	c.updateIRQ()
	return nil
}
